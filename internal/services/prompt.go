package services

// Prompts and structured-output schemas for the three AI operations.

const refineSystemPrompt = `You help founders sharpen one-line startup ideas.
Rewrite the idea as a single clear sentence naming the audience, the problem
and the mechanism. Do not invent features the user did not mention. If the
input is too vague to refine (no discernible audience or problem), say so
instead of guessing.`

const questionWizardSystemPrompt = `You design short intake questionnaires for
startup idea validation. Given an idea, produce five to seven questions that
surface the target customer, the problem severity, the business model and the
founder's constraints. Prefer choice questions where a closed set of answers
exists. Every question must be answerable in under a minute.`

const stage1InsightsSystemPrompt = `You are a pragmatic startup analyst.
Given an idea and the founder's wizard answers, score the idea's overall
potential from 0 to 100 and summarize the strongest and weakest aspects.
Be specific and concrete; avoid generic advice.`

const stage1RiskSystemPrompt = `You are a risk analyst for early-stage
ventures. Given an idea and the founder's wizard answers, score the overall
risk from 0 (negligible) to 100 (severe) and break it down by market,
execution, technical and regulatory risk.`

const stage1CompetitorsSystemPrompt = `You research competitive landscapes.
Given an idea, list the most relevant existing competitors or substitutes,
one line each, with a short threat assessment. List real companies only; if
none come to mind, return an empty list.`

func refineSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"refined", "too_vague", "guidance"},
		"properties": map[string]any{
			"refined":   map[string]any{"type": "string"},
			"too_vague": map[string]any{"type": "boolean"},
			"guidance":  map[string]any{"type": "string"},
		},
	}
}

func questionWizardSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 5,
				"maxItems": 7,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"id", "type", "text", "required"},
					"properties": map[string]any{
						"id":          map[string]any{"type": "string"},
						"type": map[string]any{
							"type": "string",
							"enum": []string{"short_text", "long_text", "single_choice", "multi_choice", "enum_choice", "numeric"},
						},
						"text":        map[string]any{"type": "string"},
						"required":    map[string]any{"type": "boolean"},
						"placeholder": map[string]any{"type": "string"},
						"help_text":   map[string]any{"type": "string"},
						"options": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":                 "object",
								"additionalProperties": false,
								"required":             []string{"value"},
								"properties": map[string]any{
									"value": map[string]any{"type": "string"},
									"label": map[string]any{"type": "string"},
								},
							},
						},
						"min_length": map[string]any{"type": "integer"},
						"max_length": map[string]any{"type": "integer"},
						"min":        map[string]any{"type": "number"},
						"max":        map[string]any{"type": "number"},
					},
				},
			},
		},
	}
}

func stage1InsightsSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"score", "strengths", "weaknesses", "summary"},
		"properties": map[string]any{
			"score":      map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"strengths":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"weaknesses": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"summary":    map[string]any{"type": "string"},
		},
	}
}

func stage1RiskSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"risk_score", "market", "execution", "technical", "regulatory"},
		"properties": map[string]any{
			"risk_score": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"market":     map[string]any{"type": "string"},
			"execution":  map[string]any{"type": "string"},
			"technical":  map[string]any{"type": "string"},
			"regulatory": map[string]any{"type": "string"},
		},
	}
}

func stage1CompetitorsSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"competitors"},
		"properties": map[string]any{
			"competitors": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "description", "threat"},
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"url":         map[string]any{"type": "string"},
						"threat":      map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}
