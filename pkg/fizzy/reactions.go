package fizzy

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ReactionsService manages reactions on comments.
type ReactionsService struct {
	service
}

// List returns a comment's reactions.
func (s *ReactionsService) List(ctx context.Context, cardNumber int, commentID string) ([]Reaction, error) {
	return get[[]Reaction](ctx, s.service, cardPath(cardNumber, "comments", commentID, "reactions"), nil)
}

// Create adds a reaction, e.g. an emoji.
func (s *ReactionsService) Create(ctx context.Context, cardNumber int, commentID, content string) (*Reaction, error) {
	if err := validation.Validate(content, validation.Required, validation.RuneLength(1, 16)); err != nil {
		return nil, err
	}
	return send[*Reaction](ctx, s.service, http.MethodPost, cardPath(cardNumber, "comments", commentID, "reactions"),
		map[string]any{"reaction": map[string]any{"content": content}})
}

// Delete removes a reaction.
func (s *ReactionsService) Delete(ctx context.Context, cardNumber int, commentID, reactionID string) error {
	return remove(ctx, s.service, cardPath(cardNumber, "comments", commentID, "reactions", reactionID))
}
