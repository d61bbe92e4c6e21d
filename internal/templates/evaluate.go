package templates

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyloop/studyloop/internal/model"
)

// Evaluate grades a submitted answer with the exercise's own template.
// Templates whose strategy needs LLM grading fail with
// ErrMissingProvider when provider is nil. Wrong or malformed answers
// are normal zero/low-score results; only provider and payload
// failures are errors.
func Evaluate(ctx context.Context, ex *model.Exercise, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	tmpl, err := Lookup(ex.Type)
	if err != nil {
		return nil, err
	}

	if tmpl.Strategy().RequiresProvider() && provider == nil {
		return nil, fmt.Errorf("%s: %w", ex.Type, ErrMissingProvider)
	}

	payload := tmpl.NewPayload()
	if err := json.Unmarshal(ex.Payload, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", ex.Type, err)
	}

	return tmpl.Evaluate(ctx, payload, resp, provider)
}
