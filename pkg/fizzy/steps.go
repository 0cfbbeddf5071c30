package fizzy

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// StepsService manages the checklist of a card.
type StepsService struct {
	service
}

// List returns a card's steps. There is no steps index; they are read from
// the card.
func (s *StepsService) List(ctx context.Context, cardNumber int) ([]Step, error) {
	card, err := get[*Card](ctx, s.service, cardPath(cardNumber), nil)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}
	return card.Steps, nil
}

// Get returns a step.
func (s *StepsService) Get(ctx context.Context, cardNumber int, stepID string) (*Step, error) {
	return get[*Step](ctx, s.service, cardPath(cardNumber, "steps", stepID), nil)
}

// Create adds a step.
func (s *StepsService) Create(ctx context.Context, cardNumber int, content string, completed *bool) (*Step, error) {
	if err := validation.Validate(content, validation.Required); err != nil {
		return nil, err
	}
	step := map[string]any{"content": content}
	if completed != nil {
		step["completed"] = *completed
	}
	return send[*Step](ctx, s.service, http.MethodPost, cardPath(cardNumber, "steps"), map[string]any{"step": step})
}

// Update changes a step. Nil fields are left unchanged.
func (s *StepsService) Update(ctx context.Context, cardNumber int, stepID string, content *string, completed *bool) (*Step, error) {
	step := map[string]any{}
	if content != nil {
		step["content"] = *content
	}
	if completed != nil {
		step["completed"] = *completed
	}
	return send[*Step](ctx, s.service, http.MethodPut, cardPath(cardNumber, "steps", stepID), map[string]any{"step": step})
}

// Delete deletes a step.
func (s *StepsService) Delete(ctx context.Context, cardNumber int, stepID string) error {
	return remove(ctx, s.service, cardPath(cardNumber, "steps", stepID))
}
