package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Background job types.
const (
	JobGenerateQuestions = "generate_questions"
	JobStage1Analysis    = "stage1_analysis"
)

// JobRun statuses. "dead" is the dead-letter state for jobs that exhausted
// their attempts.
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusFailed  = "failed"
	JobStatusDead    = "dead"
	JobStatusDone    = "done"
)

// JobRun is one durable background job. Rows are claimed with
// SELECT ... FOR UPDATE SKIP LOCKED, so delivery is at-least-once and a
// killed worker's row is reclaimed once its heartbeat goes stale.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	IdeaID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"idea_id"`
	JobType     string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
