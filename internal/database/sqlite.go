package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/moviemu/backend/internal/lists"
	"github.com/moviemu/backend/internal/match"
	"github.com/moviemu/backend/internal/reviews"
	"github.com/moviemu/backend/internal/users"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&users.Profile{},
		&users.FriendRequest{},
		&users.Friend{},
		&users.Favorite{},
		&users.TopFiveEntry{},
		&lists.List{},
		&lists.Participant{},
		&lists.Movie{},
		&match.Session{},
		&match.Vote{},
		&reviews.Review{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
