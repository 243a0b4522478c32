package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillDisplayNames  = "2026-05-12_backfill_profile_display_names"
	migrationLowercaseUsernames    = "2026-06-02_lowercase_usernames"
	migrationCloseOrphanedSessions = "2026-07-21_close_orphaned_match_sessions"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillDisplayNames, apply: backfillProfileDisplayNames},
		{name: migrationLowercaseUsernames, apply: lowercaseUsernames},
		{name: migrationCloseOrphanedSessions, apply: closeOrphanedMatchSessions},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillProfileDisplayNames copies full_name into display_name for rows
// created before display_name existed.
func backfillProfileDisplayNames(db *gorm.DB) error {
	return db.Exec("UPDATE user_profiles SET display_name = full_name WHERE display_name = '' OR display_name IS NULL;").Error
}

// lowercaseUsernames normalizes usernames stored before lowercase
// enforcement moved into the service layer.
func lowercaseUsernames(db *gorm.DB) error {
	return db.Exec("UPDATE user_profiles SET username = lower(username) WHERE username <> lower(username);").Error
}

// closeOrphanedMatchSessions deactivates sessions whose list no longer
// exists, left behind by list deletions that predate cascading cleanup.
func closeOrphanedMatchSessions(db *gorm.DB) error {
	return db.Exec("UPDATE match_sessions SET is_active = 0 WHERE is_active = 1 AND list_id NOT IN (SELECT list_id FROM shared_lists);").Error
}
