package domain

import "testing"

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestQuestionValidate(t *testing.T) {
	cases := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{
			name: "valid_short_text",
			q:    Question{ID: "q1", Type: QuestionShortText, Text: "What problem does it solve?"},
		},
		{
			name:    "missing_id",
			q:       Question{Type: QuestionShortText, Text: "x"},
			wantErr: true,
		},
		{
			name:    "unknown_type",
			q:       Question{ID: "q1", Type: "dropdown", Text: "x"},
			wantErr: true,
		},
		{
			name:    "choice_without_options",
			q:       Question{ID: "q1", Type: QuestionSingleChoice, Text: "Pick one"},
			wantErr: true,
		},
		{
			name: "choice_with_options",
			q: Question{ID: "q1", Type: QuestionMultiChoice, Text: "Pick any", Options: []QuestionOption{
				{Value: "a"}, {Value: "b"},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate()=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateAnswer(t *testing.T) {
	choice := Question{ID: "q1", Type: QuestionSingleChoice, Text: "Pick", Required: true, Options: []QuestionOption{
		{Value: "saas"}, {Value: "marketplace"},
	}}
	multi := Question{ID: "q2", Type: QuestionMultiChoice, Text: "Pick many", Required: true, Options: []QuestionOption{
		{Value: "b2b"}, {Value: "b2c"},
	}}
	text := Question{ID: "q3", Type: QuestionShortText, Text: "Name", Required: true, MinLength: intPtr(3), MaxLength: intPtr(10)}
	numeric := Question{ID: "q4", Type: QuestionNumeric, Text: "Budget", Min: floatPtr(0), Max: floatPtr(100)}
	optional := Question{ID: "q5", Type: QuestionLongText, Text: "Anything else?"}

	cases := []struct {
		name    string
		q       Question
		value   any
		wantErr bool
	}{
		{"nil_required", choice, nil, true},
		{"nil_optional", optional, nil, false},
		{"choice_valid", choice, "saas", false},
		{"choice_unknown_option", choice, "crypto", true},
		{"choice_wrong_type", choice, 42, true},
		{"multi_valid", multi, []any{"b2b", "b2c"}, false},
		{"multi_empty_required", multi, []any{}, true},
		{"multi_unknown_option", multi, []any{"b2b", "gov"}, true},
		{"text_valid", text, "Acme", false},
		{"text_too_short", text, "ab", true},
		{"text_too_long", text, "averylongname", true},
		{"text_wrong_type", text, 7, true},
		{"numeric_valid", numeric, float64(50), false},
		{"numeric_int", numeric, 50, false},
		{"numeric_below_min", numeric, float64(-1), true},
		{"numeric_above_max", numeric, float64(101), true},
		{"numeric_wrong_type", numeric, "fifty", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.ValidateAnswer(tc.value)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateAnswer(%v)=%v, wantErr=%v", tc.value, err, tc.wantErr)
			}
		})
	}
}
