package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/auth"
	"github.com/moviemu/backend/internal/catalog"
	"github.com/moviemu/backend/internal/config"
	"github.com/moviemu/backend/internal/database"
	"github.com/moviemu/backend/internal/events"
	"github.com/moviemu/backend/internal/ids"
	"github.com/moviemu/backend/internal/lists"
	"github.com/moviemu/backend/internal/logging"
	"github.com/moviemu/backend/internal/match"
	"github.com/moviemu/backend/internal/reviews"
	"github.com/moviemu/backend/internal/server"
	"github.com/moviemu/backend/internal/users"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moviemu-api",
		Short: "MovieMu movie matching backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("google-client-id", defaults.GetString("google.client_id"), "Google OAuth client ID")
	cmd.PersistentFlags().String("google-jwks-url", defaults.GetString("google.jwks_url"), "Google JWKS URL")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Backend token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Backend signing secret (overrides env)")
	cmd.PersistentFlags().String("catalog-base-url", defaults.GetString("catalog.base_url"), "Movie catalog base URL")
	cmd.PersistentFlags().String("catalog-api-key", "", "Movie catalog API key (overrides env)")
	cmd.PersistentFlags().String("catalog-region", defaults.GetString("catalog.region"), "Default watch-provider region")
	cmd.PersistentFlags().String("redis-address", "", "Redis address for the catalog page cache (empty disables caching)")
	cmd.PersistentFlags().Int("cache-ttl-minutes", defaults.GetInt("cache.ttl_minutes"), "Catalog page cache TTL in minutes")
	cmd.PersistentFlags().String("nats-url", "", "NATS server URL for match event publication (empty disables)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "google.client_id", "google-client-id")
	bindFlag(cmd, "google.jwks_url", "google-jwks-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "catalog.base_url", "catalog-base-url")
	bindFlag(cmd, "catalog.api_key", "catalog-api-key")
	bindFlag(cmd, "catalog.region", "catalog-region")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "cache.ttl_minutes", "cache-ttl-minutes")
	bindFlag(cmd, "nats.url", "nats-url")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "moviemu-auth",
		Audience:      "moviemu-api",
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	googleVerifier, err := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
		Audience: appConfig.GoogleClientID,
		JWKSURL:  appConfig.GoogleJWKSURL,
		Logger:   logging.Named(logger, "auth"),
	})
	if err != nil {
		return err
	}

	idProvider := ids.NewUUIDProvider()

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logging.Named(logger, "users"),
	})
	if err != nil {
		return err
	}

	listsService, err := lists.NewService(lists.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logging.Named(logger, "lists"),
	})
	if err != nil {
		return err
	}

	dispatcher := events.NewDispatcher()
	publisher := events.MultiPublisher{dispatcher}
	if appConfig.NATSURL != "" {
		bridge, err := events.NewNATSBridge(events.NATSConfig{
			URL:    appConfig.NATSURL,
			Logger: logging.Named(logger, "nats"),
		})
		if err != nil {
			return err
		}
		defer bridge.Close()
		publisher = append(publisher, bridge)
	}

	matchService, err := match.NewService(match.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Lists:      listsService,
		Publisher:  publisher,
		Logger:     logging.Named(logger, "match"),
	})
	if err != nil {
		return err
	}

	recorder, err := match.NewRecorder(match.RecorderConfig{
		Ledger: matchService,
		Logger: logging.Named(logger, "recorder"),
	})
	if err != nil {
		return err
	}

	reviewsService := reviews.NewService(reviews.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Profiles:   usersService,
		Logger:     logging.Named(logger, "reviews"),
	})

	catalogClient, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL: appConfig.CatalogBaseURL,
		APIKey:  appConfig.CatalogAPIKey,
		Logger:  logging.Named(logger, "catalog"),
	})
	if err != nil {
		return err
	}

	var pageCache catalog.PageCache
	if appConfig.RedisAddress != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddress})
		defer redisClient.Close()
		pageCache, err = catalog.NewRedisPageCache(redisClient, appConfig.CacheTTL)
		if err != nil {
			return err
		}
	}

	feed, err := catalog.NewFeedProvider(catalog.FeedProviderConfig{
		Discoverer: catalogClient,
		Cache:      pageCache,
		Logger:     logging.Named(logger, "feed"),
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		GoogleVerifier: googleVerifier,
		TokenManager:   tokenManager,
		MatchService:   matchService,
		VoteQueue:      recorder,
		Feed:           feed,
		Catalog:        catalogClient,
		DefaultRegion:  appConfig.CatalogRegion,
		ListsService:   listsService,
		UsersService:   usersService,
		ReviewsService: reviewsService,
		Events:         dispatcher,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go recorder.Run(signalCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
