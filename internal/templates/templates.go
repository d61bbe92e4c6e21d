// Package templates is the exercise template catalog: fifteen exercise
// archetypes in three tiers, each owning its generation prompt, its
// payload shape, and its evaluation strategy. Tier 1 grades fully
// automatically, tier 2 mixes keyword checks with LLM grading, tier 3
// is LLM-graded (the mini problem set grades sub-problems by their own
// declared type).
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studyloop/studyloop/internal/model"
)

// Provider is the LLM completion contract the templates consume.
// *llm.Client satisfies it; tests substitute stubs.
type Provider interface {
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

// EvalStrategy declares how an exercise type is graded.
type EvalStrategy string

const (
	StrategyAutomatic     EvalStrategy = "automatic"
	StrategySemiAutomatic EvalStrategy = "semi-automatic"
	StrategyGPTAssisted   EvalStrategy = "gpt-assisted"
	StrategySelfReport    EvalStrategy = "self-report"
	StrategyMixed         EvalStrategy = "mixed"
)

// RequiresProvider reports whether evaluation needs an LLM handle.
func (s EvalStrategy) RequiresProvider() bool {
	return s == StrategyGPTAssisted || s == StrategyMixed
}

// Template is one exercise archetype. Implementations are stateless;
// the payload returned by NewPayload carries all per-exercise data.
type Template interface {
	Name() string
	Tier() int
	Strategy() EvalStrategy
	BuildPrompt(in PromptInput) string
	NewPayload() any
	Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error)
}

// PromptInput carries everything a generation prompt depends on.
type PromptInput struct {
	Topic      string
	Difficulty int
	Kind       model.AssignmentKind
	Material   string
}

var registry = map[string]Template{}

func register(t Template) {
	if _, dup := registry[t.Name()]; dup {
		panic("duplicate template registration: " + t.Name())
	}
	registry[t.Name()] = t
}

// Lookup returns the template for an exercise type name.
func Lookup(name string) (Template, error) {
	t, ok := registry[name]
	if !ok {
		return nil, &UnknownTemplateError{Name: name}
	}
	return t, nil
}

// TierOf returns the tier owning the named exercise type, or 0 if the
// name is not registered.
func TierOf(name string) int {
	t, ok := registry[name]
	if !ok {
		return 0
	}
	return t.Tier()
}

// UnknownTemplateError reports an exercise type name registered in no
// tier.
type UnknownTemplateError struct {
	Name string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("unknown exercise type: %q", e.Name)
}

// GenerationError reports a failed exercise generation: the LLM call
// failed or its output did not parse into the template's payload.
type GenerationError struct {
	Template string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Template, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ProviderError reports an LLM failure during evaluation. It
// propagates to the caller; there is no internal retry.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("LLM provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrMissingProvider is returned when an LLM-graded exercise is
// evaluated without an LLM handle. This is a configuration error, not
// a wrong answer.
var ErrMissingProvider = errors.New("exercise type requires an LLM provider for evaluation")

// completeJSON runs a grading completion and parses the response into
// out. All failures, including unparsable output, surface as
// *ProviderError.
func completeJSON(ctx context.Context, provider Provider, system, prompt string, out any) error {
	raw, err := provider.Complete(ctx, system, prompt, gradeTemperature)
	if err != nil {
		return &ProviderError{Err: err}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &ProviderError{Err: fmt.Errorf("parse grading response: %w (raw: %s)", err, raw)}
	}
	return nil
}
