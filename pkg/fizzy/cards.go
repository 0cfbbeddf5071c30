package fizzy

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/fizzy-go/pkg/pagination"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// CardsService manages cards and their state transitions.
type CardsService struct {
	service
}

// CardFilter narrows card lists. Zero fields are not sent.
type CardFilter struct {
	BoardID     string
	ColumnID    string
	TagIDs      []string
	AssigneeIDs []string
	Status      string
}

// Query encodes the filter as list query parameters.
func (f CardFilter) Query() url.Values {
	return transport.Params(map[string]any{
		"board_id":     f.BoardID,
		"column_id":    f.ColumnID,
		"tag_ids":      f.TagIDs,
		"assignee_ids": f.AssigneeIDs,
		"status":       f.Status,
	})
}

// Validate checks the status value.
func (f CardFilter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Status, validation.In(CardStatusOpen, CardStatusClosed, CardStatusDeferred)),
	)
}

// CardInput holds card attributes. Nil and empty fields are not sent.
type CardInput struct {
	Title       string
	Description *string
	ColumnID    string
	TagIDs      []string
	AssigneeIDs []string

	// BoardID moves the card (update only)
	BoardID string

	// Image switches the request to a multipart form
	Image *transport.File
}

func (in CardInput) payload() map[string]any {
	p := map[string]any{}
	if in.Title != "" {
		p["title"] = in.Title
	}
	if in.Description != nil {
		p["description"] = *in.Description
	}
	if in.ColumnID != "" {
		p["column_id"] = in.ColumnID
	}
	if in.TagIDs != nil {
		p["tag_ids"] = in.TagIDs
	}
	if in.AssigneeIDs != nil {
		p["assignee_ids"] = in.AssigneeIDs
	}
	if in.BoardID != "" {
		p["board_id"] = in.BoardID
	}
	return p
}

// List returns the first page of cards matching filter.
func (s *CardsService) List(ctx context.Context, filter CardFilter) ([]Card, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return get[[]Card](ctx, s.service, "/cards", filter.Query())
}

// ListPaginated returns the first page of cards with a cursor to the next.
func (s *CardsService) ListPaginated(ctx context.Context, filter CardFilter) (*pagination.Page[Card], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return firstPage[Card](ctx, s.service, "/cards", filter.Query())
}

// ListAll iterates over every card matching filter.
func (s *CardsService) ListAll(ctx context.Context, filter CardFilter) iter.Seq2[Card, error] {
	if err := filter.Validate(); err != nil {
		return func(yield func(Card, error) bool) { yield(Card{}, err) }
	}
	return listAll[Card](ctx, s.service, "/cards", filter.Query())
}

// Get returns a card by number.
func (s *CardsService) Get(ctx context.Context, number int) (*Card, error) {
	return get[*Card](ctx, s.service, cardPath(number), nil)
}

// GetMany fetches cards concurrently, bounded by the client's
// MaxConcurrency. The result is in input order; cards that failed are nil
// and their errors are aggregated.
func (s *CardsService) GetMany(ctx context.Context, numbers []int) ([]*Card, error) {
	cards := make([]*Card, len(numbers))

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	var g errgroup.Group
	g.SetLimit(max(s.client.Config().MaxConcurrency, 1))

	for i, number := range numbers {
		g.Go(func() error {
			card, err := s.Get(ctx, number)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("card %d: %w", number, err))
				mu.Unlock()
				return nil
			}
			cards[i] = card
			return nil
		})
	}
	_ = g.Wait()

	return cards, errs.ErrorOrNil()
}

// Create creates a card on a board. A non-nil Image sends the card as a
// multipart form.
func (s *CardsService) Create(ctx context.Context, boardID string, in CardInput) (*Card, error) {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
	); err != nil {
		return nil, err
	}
	if err := validation.Validate(boardID, validation.Required); err != nil {
		return nil, fmt.Errorf("board id: %w", err)
	}

	path := "/boards/" + boardID + "/cards"
	if in.Image != nil {
		return sendForm[*Card](ctx, s.service, http.MethodPost, path, "card", in.payload(), map[string]transport.File{"image": *in.Image})
	}
	return send[*Card](ctx, s.service, http.MethodPost, path, map[string]any{"card": in.payload()})
}

// Update changes a card. A non-nil Image sends the card as a multipart
// form.
func (s *CardsService) Update(ctx context.Context, number int, in CardInput) (*Card, error) {
	if in.Image != nil {
		return sendForm[*Card](ctx, s.service, http.MethodPut, cardPath(number), "card", in.payload(), map[string]transport.File{"image": *in.Image})
	}
	return send[*Card](ctx, s.service, http.MethodPut, cardPath(number), map[string]any{"card": in.payload()})
}

// DeleteImage removes the card's header image.
func (s *CardsService) DeleteImage(ctx context.Context, number int) error {
	return remove(ctx, s.service, cardPath(number, "image"))
}

// Delete deletes a card.
func (s *CardsService) Delete(ctx context.Context, number int) error {
	return remove(ctx, s.service, cardPath(number))
}

// The state transitions below return the updated card when the API sends
// one and nil when it replies with no content.

// Close closes a card.
func (s *CardsService) Close(ctx context.Context, number int) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodPost, cardPath(number, "closure"), nil)
}

// Reopen reopens a closed card.
func (s *CardsService) Reopen(ctx context.Context, number int) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodDelete, cardPath(number, "closure"), nil)
}

// Postpone moves a card to "not now".
func (s *CardsService) Postpone(ctx context.Context, number int) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodPost, cardPath(number, "not_now"), nil)
}

// Triage moves a card from the triage stream into a column.
func (s *CardsService) Triage(ctx context.Context, number int, columnID string) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodPost, cardPath(number, "triage"), map[string]any{"column_id": columnID})
}

// Untriage sends a card back to triage.
func (s *CardsService) Untriage(ctx context.Context, number int) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodDelete, cardPath(number, "triage"), nil)
}

// ToggleTag adds the tag if absent, removes it otherwise. Unknown titles
// create the tag.
func (s *CardsService) ToggleTag(ctx context.Context, number int, tagTitle string) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodPost, cardPath(number, "taggings"), map[string]any{"tag_title": tagTitle})
}

// ToggleAssignment assigns or unassigns a user.
func (s *CardsService) ToggleAssignment(ctx context.Context, number int, assigneeID string) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodPost, cardPath(number, "assignments"), map[string]any{"assignee_id": assigneeID})
}

// Watch subscribes the current user to a card.
func (s *CardsService) Watch(ctx context.Context, number int) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodPost, cardPath(number, "watch"), nil)
}

// Unwatch unsubscribes the current user.
func (s *CardsService) Unwatch(ctx context.Context, number int) error {
	return remove(ctx, s.service, cardPath(number, "watch"))
}

// Gild marks a card as golden.
func (s *CardsService) Gild(ctx context.Context, number int) (*Card, error) {
	return send[*Card](ctx, s.service, http.MethodPost, cardPath(number, "goldness"), nil)
}

// Ungild removes the golden mark.
func (s *CardsService) Ungild(ctx context.Context, number int) error {
	return remove(ctx, s.service, cardPath(number, "goldness"))
}
