package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/platform/envutil"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

// SqliteService is the single-instance fallback store, used when
// POSTGRES_HOST is not configured (local development, tests). Not safe to run
// behind multiple instances: the claim queries rely on Postgres row locking.
type SqliteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSqliteService(log *logger.Logger) (*SqliteService, error) {
	serviceLog := log.With("service", "SqliteService")

	path := envutil.String("SQLITE_PATH", "ideaforge.db")
	serviceLog.Info("Opening sqlite database...", "path", path)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		serviceLog.Error("Failed to open sqlite database", "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &SqliteService{db: gdb, log: serviceLog}, nil
}

func (s *SqliteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := s.db.AutoMigrate(
		&domain.Idea{},
		&domain.JobRun{},
		&domain.RefineCacheEntry{},
	); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *SqliteService) DB() *gorm.DB {
	return s.db
}
