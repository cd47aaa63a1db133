package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Idea lifecycle statuses. Transitions between them are guarded by
// compare-and-set writes on the status column (IdeaRepo.UpdateStatusIf).
const (
	StatusDraft               = "draft"
	StatusGeneratingQuestions = "generating_questions"
	StatusQuestionsReady      = "questions_ready"
	StatusGenerationFailed    = "generation_failed"
	StatusGeneratingStage1    = "generating_stage1"
	StatusComplete            = "complete"
	StatusStage1Failed        = "stage1_failed"
)

// statusEdges is the directed transition graph.
var statusEdges = map[string][]string{
	StatusDraft:               {StatusGeneratingQuestions},
	StatusGeneratingQuestions: {StatusQuestionsReady, StatusGenerationFailed},
	StatusQuestionsReady:      {StatusGeneratingStage1},
	StatusGeneratingStage1:    {StatusComplete, StatusStage1Failed},
	StatusStage1Failed:        {StatusGeneratingStage1},
	StatusGenerationFailed:    {},
	StatusComplete:            {},
}

func ValidStatus(s string) bool {
	_, ok := statusEdges[s]
	return ok
}

func CanTransition(from, to string) bool {
	for _, next := range statusEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsGenerating reports whether an in-flight background job owns the record.
func IsGenerating(status string) bool {
	return status == StatusGeneratingQuestions || status == StatusGeneratingStage1
}

// AnswersEditable reports whether wizard answer autosaves are accepted.
func AnswersEditable(status string) bool {
	switch status {
	case StatusQuestionsReady, StatusGeneratingStage1, StatusStage1Failed, StatusComplete:
		return true
	}
	return false
}

type Idea struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Text        string    `gorm:"column:text;not null" json:"text"`
	Status      string    `gorm:"column:status;not null;index" json:"status"`

	Questions            datatypes.JSON `gorm:"column:questions" json:"questions,omitempty"`
	WizardAnswers        datatypes.JSON `gorm:"column:wizard_answers" json:"wizard_answers,omitempty"`
	CurrentStep          int            `gorm:"column:current_step;not null;default:0" json:"current_step"`
	TotalQuestions       int            `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	QuestionsGeneratedAt *time.Time     `gorm:"column:questions_generated_at" json:"questions_generated_at,omitempty"`
	WizardCompletedAt    *time.Time     `gorm:"column:wizard_completed_at" json:"wizard_completed_at,omitempty"`

	Score        *int           `gorm:"column:score" json:"score,omitempty"`
	RiskScore    *int           `gorm:"column:risk_score" json:"risk_score,omitempty"`
	RiskAnalysis datatypes.JSON `gorm:"column:risk_analysis" json:"risk_analysis,omitempty"`
	AIInsights   datatypes.JSON `gorm:"column:ai_insights" json:"ai_insights,omitempty"`
	Competitors  datatypes.JSON `gorm:"column:competitors" json:"competitors,omitempty"`

	ErrorMessage    string     `gorm:"column:error_message" json:"error_message,omitempty"`
	ErrorOccurredAt *time.Time `gorm:"column:error_occurred_at" json:"error_occurred_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Idea) TableName() string { return "idea" }

// QuestionList decodes the stored question sequence. Nil when questions have
// not been generated yet.
func (i *Idea) QuestionList() ([]Question, error) {
	if len(i.Questions) == 0 {
		return nil, nil
	}
	var out []Question
	if err := json.Unmarshal(i.Questions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnswersMap decodes the stored wizard answers; never nil.
func (i *Idea) AnswersMap() (map[string]any, error) {
	out := map[string]any{}
	if len(i.WizardAnswers) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(i.WizardAnswers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Competitor is one entry of the Stage-1 competitor scan.
type Competitor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Threat      string `json:"threat,omitempty"`
}
