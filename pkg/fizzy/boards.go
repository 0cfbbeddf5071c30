package fizzy

import (
	"context"
	"iter"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Sternrassler/fizzy-go/pkg/pagination"
)

// BoardsService manages boards.
type BoardsService struct {
	service
}

// BoardInput holds board attributes. Nil fields are left unchanged.
type BoardInput struct {
	Name               string
	PublicDescription  *string
	AllAccess          *bool
	AutoPostponePeriod *int

	// UserIDs sets board access (update only)
	UserIDs []string
}

func (in BoardInput) payload() map[string]any {
	p := map[string]any{}
	if in.Name != "" {
		p["name"] = in.Name
	}
	if in.PublicDescription != nil {
		p["public_description"] = *in.PublicDescription
	}
	if in.AllAccess != nil {
		p["all_access"] = *in.AllAccess
	}
	if in.AutoPostponePeriod != nil {
		p["auto_postpone_period"] = *in.AutoPostponePeriod
	}
	if in.UserIDs != nil {
		p["user_ids"] = in.UserIDs
	}
	return p
}

// List returns the first page of boards.
func (s *BoardsService) List(ctx context.Context) ([]Board, error) {
	return get[[]Board](ctx, s.service, "/boards", nil)
}

// ListPaginated returns the first page of boards with a cursor to the next.
func (s *BoardsService) ListPaginated(ctx context.Context) (*pagination.Page[Board], error) {
	return firstPage[Board](ctx, s.service, "/boards", nil)
}

// ListAll iterates over every board.
func (s *BoardsService) ListAll(ctx context.Context) iter.Seq2[Board, error] {
	return listAll[Board](ctx, s.service, "/boards", nil)
}

// Get returns a board.
func (s *BoardsService) Get(ctx context.Context, boardID string) (*Board, error) {
	return get[*Board](ctx, s.service, "/boards/"+boardID, nil)
}

// Create creates a board.
func (s *BoardsService) Create(ctx context.Context, in BoardInput) (*Board, error) {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
	); err != nil {
		return nil, err
	}
	return send[*Board](ctx, s.service, http.MethodPost, "/boards", map[string]any{"board": in.payload()})
}

// Update changes a board and returns its new state.
func (s *BoardsService) Update(ctx context.Context, boardID string, in BoardInput) (*Board, error) {
	if err := exec(ctx, s.service, http.MethodPut, "/boards/"+boardID, map[string]any{"board": in.payload()}); err != nil {
		return nil, err
	}
	return s.Get(ctx, boardID)
}

// Delete deletes a board.
func (s *BoardsService) Delete(ctx context.Context, boardID string) error {
	return remove(ctx, s.service, "/boards/"+boardID)
}
