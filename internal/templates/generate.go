package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyloop/studyloop/internal/model"
)

// Generate builds one exercise: it looks up the template, sends the
// generation prompt to the provider, and parses the strict-JSON reply
// into the template's payload. The returned exercise carries no
// ownership fields and is not persisted; both are the caller's job.
func Generate(ctx context.Context, provider Provider, typ, topic string, difficulty int, kind model.AssignmentKind, material string) (*model.Exercise, error) {
	tmpl, err := Lookup(typ)
	if err != nil {
		return nil, err
	}

	prompt := tmpl.BuildPrompt(PromptInput{
		Topic:      topic,
		Difficulty: difficulty,
		Kind:       kind,
		Material:   material,
	})

	raw, err := provider.Complete(ctx, genSystemPrompt, prompt, genTemperature)
	if err != nil {
		return nil, &GenerationError{Template: typ, Err: err}
	}

	payload := tmpl.NewPayload()
	if err := json.Unmarshal([]byte(raw), payload); err != nil {
		return nil, &GenerationError{Template: typ, Err: fmt.Errorf("parse generated content: %w (raw: %s)", err, raw)}
	}

	// Re-encode so the stored payload is exactly what the typed
	// struct understands, not whatever extra fields the LLM added.
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &GenerationError{Template: typ, Err: err}
	}

	return &model.Exercise{
		Type:       typ,
		Topic:      topic,
		Difficulty: difficulty,
		Payload:    encoded,
		CreatedAt:  time.Now(),
	}, nil
}

// GenSpec describes one exercise to generate in a batch.
type GenSpec struct {
	Type       string
	Topic      string
	Difficulty int
	Kind       model.AssignmentKind
	Material   string
}

// GenerateBatch generates specs one at a time, in order. A failed spec
// is logged and skipped so one bad generation never aborts the rest; a
// partial session is valid. The sequential order is the isolation
// policy, not an optimization target.
func GenerateBatch(ctx context.Context, provider Provider, specs []GenSpec) []*model.Exercise {
	exercises := make([]*model.Exercise, 0, len(specs))
	for _, spec := range specs {
		ex, err := Generate(ctx, provider, spec.Type, spec.Topic, spec.Difficulty, spec.Kind, spec.Material)
		if err != nil {
			slog.Warn("exercise generation failed",
				"type", spec.Type, "topic", spec.Topic, "error", err)
			continue
		}
		exercises = append(exercises, ex)
	}
	return exercises
}
