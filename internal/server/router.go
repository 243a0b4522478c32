package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/auth"
	"github.com/moviemu/backend/internal/catalog"
	"github.com/moviemu/backend/internal/events"
	"github.com/moviemu/backend/internal/lists"
	"github.com/moviemu/backend/internal/match"
	"github.com/moviemu/backend/internal/metrics"
	"github.com/moviemu/backend/internal/reviews"
	"github.com/moviemu/backend/internal/users"
)

const userIDContextKey = "moviemu_user_id"

var (
	errMissingGoogleVerifier = errors.New("google verifier dependency required")
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingMatchService   = errors.New("match service dependency required")
	errMissingListsService   = errors.New("lists service dependency required")
	errMissingUsersService   = errors.New("users service dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (auth.GoogleClaims, error)
}

type BackendTokenManager interface {
	IssueBackendToken(ctx context.Context, claims auth.GoogleClaims) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// VoteQueue is the asynchronous vote path: enqueue a decision, ask later
// whether it has been durably recorded.
type VoteQueue interface {
	Enqueue(listID, sessionID, actorID string, movie match.MovieVote, direction match.Direction) error
	Status(sessionID string, movieID int64, actorID string) match.SyncStatus
}

// CandidateFeed serves filtered, exclusion-aware candidate pages.
type CandidateFeed interface {
	FetchCandidates(ctx context.Context, filters catalog.Filters, excludeIDs map[int64]struct{}) ([]catalog.Candidate, error)
}

type Dependencies struct {
	GoogleVerifier GoogleVerifier
	TokenManager   BackendTokenManager
	MatchService   *match.Service
	VoteQueue      VoteQueue
	Feed           CandidateFeed
	Catalog        CatalogBrowser
	DefaultRegion  string
	ListsService   *lists.Service
	UsersService   *users.Service
	ReviewsService *reviews.Service
	Events         *events.Dispatcher
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.GoogleVerifier == nil {
		return nil, errMissingGoogleVerifier
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.MatchService == nil {
		return nil, errMissingMatchService
	}
	if deps.ListsService == nil {
		return nil, errMissingListsService
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	defaultRegion := deps.DefaultRegion
	if defaultRegion == "" {
		defaultRegion = "BR"
	}

	handler := &httpHandler{
		verifier:      deps.GoogleVerifier,
		tokens:        deps.TokenManager,
		matches:       deps.MatchService,
		votes:         deps.VoteQueue,
		feed:          deps.Feed,
		catalog:       deps.Catalog,
		defaultRegion: defaultRegion,
		lists:         deps.ListsService,
		users:         deps.UsersService,
		reviews:       deps.ReviewsService,
		events:        deps.Events,
		logger:        logger,
	}

	router.GET("/health", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/auth/google", handler.handleGoogleAuth)
	router.GET("/events/stream", handler.handleEventStream)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.POST("/lists", handler.handleCreateList)
	protected.GET("/lists", handler.handleListsByUser)
	protected.POST("/lists/one-on-one", handler.handleOneOnOneList)
	protected.GET("/lists/:listID", handler.handleGetList)
	protected.DELETE("/lists/:listID", handler.handleDeleteList)
	protected.POST("/lists/:listID/join", handler.handleJoinList)
	protected.POST("/lists/:listID/participants", handler.handleAddParticipants)
	protected.POST("/lists/:listID/leave", handler.handleLeaveList)
	protected.GET("/lists/:listID/movies", handler.handleListMovies)
	protected.POST("/lists/:listID/movies", handler.handleAddMovie)
	protected.DELETE("/lists/:listID/movies/:entryID", handler.handleRemoveMovie)
	protected.POST("/lists/:listID/movies/:entryID/watched", handler.handleMarkWatched)

	protected.POST("/lists/:listID/match/session", handler.handleMatchSession)
	protected.POST("/lists/:listID/match/sessions/:sessionID/votes", handler.handleRecordVote)
	protected.GET("/lists/:listID/match/sessions/:sessionID/votes", handler.handleVotedMovies)
	protected.GET("/lists/:listID/match/sessions/:sessionID/votes/:movieID/status", handler.handleVoteStatus)
	protected.GET("/lists/:listID/match/sessions/:sessionID/ledger", handler.handleSessionLedger)
	protected.GET("/lists/:listID/match/sessions/:sessionID/candidates", handler.handleCandidates)

	protected.GET("/movies/:movieID", handler.handleMovieDetails)

	protected.GET("/users/username-available", handler.handleUsernameAvailable)
	protected.POST("/users/profile", handler.handleCreateProfile)
	protected.GET("/users/profile", handler.handleOwnProfile)
	protected.PUT("/users/profile", handler.handleUpdateProfile)
	protected.GET("/users/search", handler.handleSearchUsers)
	protected.POST("/users/friends/requests", handler.handleSendFriendRequest)
	protected.GET("/users/friends/requests", handler.handleFriendRequests)
	protected.POST("/users/friends/requests/:friendID/accept", handler.handleAcceptFriendRequest)
	protected.POST("/users/friends/requests/:friendID/reject", handler.handleRejectFriendRequest)
	protected.GET("/users/friends", handler.handleFriends)
	protected.DELETE("/users/friends/:friendID", handler.handleRemoveFriend)

	protected.GET("/users/favorites", handler.handleFavorites)
	protected.POST("/users/favorites", handler.handleAddFavorite)
	protected.DELETE("/users/favorites/:favoriteID", handler.handleRemoveFavorite)
	protected.GET("/users/top5", handler.handleTopFive)
	protected.PUT("/users/top5/:position", handler.handleSetTopFive)

	protected.POST("/reviews", handler.handleAddReview)
	protected.PUT("/reviews/:reviewID", handler.handleUpdateReview)
	protected.DELETE("/reviews/:reviewID", handler.handleDeleteReview)
	protected.GET("/reviews/movie/:movieID", handler.handleReviewsByMovie)
	protected.GET("/reviews/user/:userID", handler.handleReviewsByUser)
	protected.GET("/reviews/friends", handler.handleFriendsReviews)

	return router, nil
}

type httpHandler struct {
	verifier      GoogleVerifier
	tokens        BackendTokenManager
	matches       *match.Service
	votes         VoteQueue
	feed          CandidateFeed
	catalog       CatalogBrowser
	defaultRegion string
	lists         *lists.Service
	users         *users.Service
	reviews       *reviews.Service
	events        *events.Dispatcher
	logger        *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}
