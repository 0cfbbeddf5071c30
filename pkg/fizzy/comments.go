package fizzy

import (
	"context"
	"iter"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Sternrassler/fizzy-go/pkg/client"
	"github.com/Sternrassler/fizzy-go/pkg/pagination"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// CommentsService manages comments on cards.
type CommentsService struct {
	service
}

// List returns the first page of a card's comments.
func (s *CommentsService) List(ctx context.Context, cardNumber int) ([]Comment, error) {
	return get[[]Comment](ctx, s.service, cardPath(cardNumber, "comments"), nil)
}

// ListPaginated returns the first page of a card's comments with a cursor
// to the next.
func (s *CommentsService) ListPaginated(ctx context.Context, cardNumber int) (*pagination.Page[Comment], error) {
	return firstPage[Comment](ctx, s.service, cardPath(cardNumber, "comments"), nil)
}

// ListAll iterates over every comment of a card.
func (s *CommentsService) ListAll(ctx context.Context, cardNumber int) iter.Seq2[Comment, error] {
	return listAll[Comment](ctx, s.service, cardPath(cardNumber, "comments"), nil)
}

// ListAllForCards walks the comments of several cards in parallel. The
// result is keyed by card number; cards whose comments could not be
// fetched are missing and their errors are aggregated.
func (s *CommentsService) ListAllForCards(ctx context.Context, cardNumbers []int) (map[int][]Comment, error) {
	reqs := make([]transport.Request, len(cardNumbers))
	for i, n := range cardNumbers {
		reqs[i] = transport.Get(cardPath(n, "comments"), nil)
	}

	bf := pagination.NewBatchFetcher(s.client, client.JSON[[]Comment](), pagination.Config{
		MaxConcurrency: s.client.Config().MaxConcurrency,
	})
	byIndex, err := bf.FetchAll(ctx, reqs)

	out := make(map[int][]Comment, len(byIndex))
	for i, comments := range byIndex {
		out[cardNumbers[i]] = comments
	}
	return out, err
}

// Get returns a comment.
func (s *CommentsService) Get(ctx context.Context, cardNumber int, commentID string) (*Comment, error) {
	return get[*Comment](ctx, s.service, cardPath(cardNumber, "comments", commentID), nil)
}

// Create adds a comment. body may contain rich text, including attachment
// tags.
func (s *CommentsService) Create(ctx context.Context, cardNumber int, body string) (*Comment, error) {
	if err := validation.Validate(body, validation.Required); err != nil {
		return nil, err
	}
	return send[*Comment](ctx, s.service, http.MethodPost, cardPath(cardNumber, "comments"),
		map[string]any{"comment": map[string]any{"body": body}})
}

// Update replaces a comment's body and returns its new state.
func (s *CommentsService) Update(ctx context.Context, cardNumber int, commentID, body string) (*Comment, error) {
	if err := validation.Validate(body, validation.Required); err != nil {
		return nil, err
	}
	path := cardPath(cardNumber, "comments", commentID)
	if err := exec(ctx, s.service, http.MethodPut, path, map[string]any{"comment": map[string]any{"body": body}}); err != nil {
		return nil, err
	}
	return s.Get(ctx, cardNumber, commentID)
}

// Delete deletes a comment.
func (s *CommentsService) Delete(ctx context.Context, cardNumber int, commentID string) error {
	return remove(ctx, s.service, cardPath(cardNumber, "comments", commentID))
}
