package repos

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

type RefineCacheRepo interface {
	Get(dbc dbctx.Context, key string) (*domain.RefineCacheEntry, error)
	Upsert(dbc dbctx.Context, entry *domain.RefineCacheEntry) error
	PurgeExpired(dbc dbctx.Context) (int64, error)
}

type refineCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRefineCacheRepo(db *gorm.DB, baseLog *logger.Logger) RefineCacheRepo {
	return &refineCacheRepo{
		db:  db,
		log: baseLog.With("repo", "RefineCacheRepo"),
	}
}

func (r *refineCacheRepo) Get(dbc dbctx.Context, key string) (*domain.RefineCacheEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil, nil
	}
	var entry domain.RefineCacheEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("key = ? AND expires_at > ?", key, time.Now()).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.Key == "" {
		return nil, nil
	}
	return &entry, nil
}

func (r *refineCacheRepo) Upsert(dbc dbctx.Context, entry *domain.RefineCacheEntry) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil || entry.Key == "" {
		return nil
	}
	// Last write wins on key collision.
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"result", "created_at", "expires_at"}),
		}).
		Create(entry).Error
}

func (r *refineCacheRepo) PurgeExpired(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&domain.RefineCacheEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
