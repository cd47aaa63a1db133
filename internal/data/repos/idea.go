package repos

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

// ErrStateConflict is returned when a guarded status write finds the stored
// status no longer matches the expected precondition.
var ErrStateConflict = errors.New("idea status changed since read")

type IdeaRepo interface {
	Create(dbc dbctx.Context, ideas []*domain.Idea) ([]*domain.Idea, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Idea, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*domain.Idea, error)
	// UpdateStatusIf applies updates (which must include the new status) only
	// if the stored status still equals expectedStatus. Compare-and-set: the
	// single mutual-exclusion primitive guarding job launches.
	UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) error
	// MergeAnswers merges delta into wizard_answers key-wise under a row lock
	// and writes currentStep verbatim when non-nil. Keys absent from delta are
	// never dropped.
	MergeAnswers(dbc dbctx.Context, id uuid.UUID, delta map[string]any, currentStep *int) (*domain.Idea, error)
	CountByStatus(dbc dbctx.Context, status string) (int64, error)
	CountByOwnerAndStatus(dbc dbctx.Context, ownerUserID uuid.UUID, status string) (int64, error)
	DeleteByIDForOwner(dbc dbctx.Context, id uuid.UUID, ownerUserID uuid.UUID) (bool, error)
}

type ideaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdeaRepo(db *gorm.DB, baseLog *logger.Logger) IdeaRepo {
	return &ideaRepo{
		db:  db,
		log: baseLog.With("repo", "IdeaRepo"),
	}
}

func (r *ideaRepo) Create(dbc dbctx.Context, ideas []*domain.Idea) ([]*domain.Idea, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ideas) == 0 {
		return []*domain.Idea{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&ideas).Error; err != nil {
		return nil, err
	}
	return ideas, nil
}

func (r *ideaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Idea, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var idea domain.Idea
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&idea).Error
	if err != nil {
		return nil, err
	}
	if idea.ID == uuid.Nil {
		return nil, nil
	}
	return &idea, nil
}

func (r *ideaRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*domain.Idea, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Idea
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ideaRepo) UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return fmt.Errorf("missing idea id")
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.Idea{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

func (r *ideaRepo) MergeAnswers(dbc dbctx.Context, id uuid.UUID, delta map[string]any, currentStep *int) (*domain.Idea, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var merged *domain.Idea
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var idea domain.Idea
		q := txx.Where("id = ?", id)
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&idea).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		answers := map[string]any{}
		if len(idea.WizardAnswers) > 0 {
			if err := json.Unmarshal(idea.WizardAnswers, &answers); err != nil {
				return fmt.Errorf("decode stored answers: %w", err)
			}
		}
		for k, v := range delta {
			answers[k] = v
		}
		raw, err := json.Marshal(answers)
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"wizard_answers": datatypes.JSON(raw),
			"updated_at":     now,
		}
		if currentStep != nil {
			updates["current_step"] = *currentStep
		}
		if err := txx.Model(&domain.Idea{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		idea.WizardAnswers = datatypes.JSON(raw)
		if currentStep != nil {
			idea.CurrentStep = *currentStep
		}
		idea.UpdatedAt = now
		merged = &idea
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (r *ideaRepo) CountByStatus(dbc dbctx.Context, status string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Idea{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ideaRepo) CountByOwnerAndStatus(dbc dbctx.Context, ownerUserID uuid.UUID, status string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.Idea{}).
		Where("owner_user_id = ? AND status = ?", ownerUserID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ideaRepo) DeleteByIDForOwner(dbc dbctx.Context, id uuid.UUID, ownerUserID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || ownerUserID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Delete(&domain.Idea{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
