// Package planner decides what a study session contains: which
// exercise types to generate, at what difficulty, over which topics,
// and when sessions are scheduled before the due date. Selection is
// weighted-random; difficulty and scheduling are deterministic.
package planner

import "github.com/studyloop/studyloop/internal/model"

// Distribution is the fraction of a session drawn from each tier.
// The three fractions sum to 1 before session-progress shifting.
type Distribution struct {
	Tier1 float64
	Tier2 float64
	Tier3 float64
}

// TypeConfig is the selection policy for one assignment shape.
type TypeConfig struct {
	SessionsRecommended int
	ExercisesPerSession int
	Distribution        Distribution
	// TemplateWeights drives intra-tier weighted sampling. Only
	// exercise types listed here are eligible for selection.
	TemplateWeights map[string]float64
}

var examConfigs = map[model.ExamSubtype]TypeConfig{
	model.SubtypeTheoretical: {
		SessionsRecommended: 5,
		ExercisesPerSession: 12,
		Distribution:        Distribution{Tier1: 0.40, Tier2: 0.40, Tier3: 0.20},
		TemplateWeights: map[string]float64{
			"multiple_choice":         0.25,
			"true_false_justify":      0.15,
			"flashcard":               0.15,
			"fill_in_blank":           0.10,
			"numerical_problem":       0.05,
			"short_answer_define":     0.10,
			"short_answer_explain":    0.10,
			"one_sentence_definition": 0.10,
			"scenario_application":    0.10,
			"error_identification":    0.05,
		},
	},
	model.SubtypePractical: {
		SessionsRecommended: 5,
		ExercisesPerSession: 12,
		Distribution:        Distribution{Tier1: 0.35, Tier2: 0.35, Tier3: 0.30},
		TemplateWeights: map[string]float64{
			"numerical_problem":        0.30,
			"multiple_choice":          0.15,
			"fill_in_blank":            0.05,
			"problem_type_recognition": 0.15,
			"short_answer_explain":     0.10,
			"error_identification":     0.15,
			"mini_problem_set":         0.10,
			"scenario_prediction":      0.05,
		},
	},
	model.SubtypeHybrid: {
		SessionsRecommended: 5,
		ExercisesPerSession: 12,
		Distribution:        Distribution{Tier1: 0.35, Tier2: 0.35, Tier3: 0.30},
		TemplateWeights: map[string]float64{
			"multiple_choice":          0.20,
			"numerical_problem":        0.15,
			"true_false_justify":       0.10,
			"short_answer_define":      0.10,
			"short_answer_explain":     0.10,
			"short_answer_compare":     0.05,
			"problem_type_recognition": 0.10,
			"concept_comparison":       0.05,
			"scenario_application":     0.10,
			"error_identification":     0.10,
			"mini_problem_set":         0.05,
		},
	},
}

var quizConfig = TypeConfig{
	SessionsRecommended: 2,
	ExercisesPerSession: 10,
	Distribution:        Distribution{Tier1: 0.60, Tier2: 0.30, Tier3: 0.10},
	TemplateWeights: map[string]float64{
		"multiple_choice":          0.30,
		"true_false_justify":       0.20,
		"flashcard":                0.20,
		"fill_in_blank":            0.10,
		"one_sentence_definition":  0.15,
		"problem_type_recognition": 0.05,
		"mini_problem_set":         0.05,
	},
}

// ConfigFor resolves the selection policy for an assignment. Quizzes
// have their own config; every other kind uses the exam configs, with
// hybrid as the fallback subtype (essays and presentations land here
// too).
func ConfigFor(kind model.AssignmentKind, subtype model.ExamSubtype) TypeConfig {
	if kind == model.KindQuiz {
		return quizConfig
	}
	if cfg, ok := examConfigs[subtype]; ok {
		return cfg
	}
	return examConfigs[model.SubtypeHybrid]
}
