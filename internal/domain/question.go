package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Question types form a closed set; each carries its own validation rules.
const (
	QuestionShortText    = "short_text"
	QuestionLongText     = "long_text"
	QuestionSingleChoice = "single_choice"
	QuestionMultiChoice  = "multi_choice"
	QuestionEnumChoice   = "enum_choice"
	QuestionNumeric      = "numeric"
)

func ValidQuestionType(t string) bool {
	switch t {
	case QuestionShortText, QuestionLongText, QuestionSingleChoice,
		QuestionMultiChoice, QuestionEnumChoice, QuestionNumeric:
		return true
	}
	return false
}

func choiceType(t string) bool {
	switch t {
	case QuestionSingleChoice, QuestionMultiChoice, QuestionEnumChoice:
		return true
	}
	return false
}

type QuestionOption struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// Question is one immutable member of an idea's generated question list.
type Question struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Text        string           `json:"text"`
	Required    bool             `json:"required"`
	Placeholder string           `json:"placeholder,omitempty"`
	HelpText    string           `json:"help_text,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`

	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// Validate checks structural sanity of a generated question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("question id required")
	}
	if !ValidQuestionType(q.Type) {
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %s: text required", q.ID)
	}
	if choiceType(q.Type) && len(q.Options) == 0 {
		return fmt.Errorf("question %s: choice type requires options", q.ID)
	}
	return nil
}

// ValidateAnswer checks an answer value against this question's constraints.
// A nil value is only acceptable for non-required questions.
func (q Question) ValidateAnswer(value any) error {
	if value == nil {
		if q.Required {
			return fmt.Errorf("question %s: answer required", q.ID)
		}
		return nil
	}

	switch q.Type {
	case QuestionShortText, QuestionLongText:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("question %s: expected text answer", q.ID)
		}
		trimmed := strings.TrimSpace(s)
		if q.Required && trimmed == "" {
			return fmt.Errorf("question %s: answer required", q.ID)
		}
		if q.MinLength != nil && len(trimmed) < *q.MinLength {
			return fmt.Errorf("question %s: answer shorter than %d characters", q.ID, *q.MinLength)
		}
		if q.MaxLength != nil && len(trimmed) > *q.MaxLength {
			return fmt.Errorf("question %s: answer longer than %d characters", q.ID, *q.MaxLength)
		}
		return nil

	case QuestionSingleChoice, QuestionEnumChoice:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("question %s: expected a single option value", q.ID)
		}
		if !q.hasOption(s) {
			return fmt.Errorf("question %s: %q is not an option", q.ID, s)
		}
		return nil

	case QuestionMultiChoice:
		values, err := asStringSlice(value)
		if err != nil {
			return fmt.Errorf("question %s: expected a list of option values", q.ID)
		}
		if q.Required && len(values) == 0 {
			return fmt.Errorf("question %s: answer required", q.ID)
		}
		for _, v := range values {
			if !q.hasOption(v) {
				return fmt.Errorf("question %s: %q is not an option", q.ID, v)
			}
		}
		return nil

	case QuestionNumeric:
		n, err := asFloat(value)
		if err != nil {
			return fmt.Errorf("question %s: expected numeric answer", q.ID)
		}
		if q.Min != nil && n < *q.Min {
			return fmt.Errorf("question %s: answer below minimum %v", q.ID, *q.Min)
		}
		if q.Max != nil && n > *q.Max {
			return fmt.Errorf("question %s: answer above maximum %v", q.ID, *q.Max)
		}
		return nil
	}
	return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
}

func (q Question) hasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func asStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("non-string element")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a list")
}

func asFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	}
	return 0, fmt.Errorf("not a number")
}
