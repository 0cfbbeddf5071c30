package fizzy

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ColumnsService manages the columns of a board.
type ColumnsService struct {
	service
}

func columnsPath(boardID string) string {
	return "/boards/" + boardID + "/columns"
}

// List returns a board's columns.
func (s *ColumnsService) List(ctx context.Context, boardID string) ([]Column, error) {
	return get[[]Column](ctx, s.service, columnsPath(boardID), nil)
}

// Get returns a column.
func (s *ColumnsService) Get(ctx context.Context, boardID, columnID string) (*Column, error) {
	return get[*Column](ctx, s.service, columnsPath(boardID)+"/"+columnID, nil)
}

// Create adds a column. color may be empty.
func (s *ColumnsService) Create(ctx context.Context, boardID, name, color string) (*Column, error) {
	if err := validation.Validate(name, validation.Required); err != nil {
		return nil, err
	}
	column := map[string]any{"name": name}
	if color != "" {
		column["color"] = color
	}
	return send[*Column](ctx, s.service, http.MethodPost, columnsPath(boardID), map[string]any{"column": column})
}

// Update renames or recolors a column and returns its new state. Empty
// arguments are left unchanged.
func (s *ColumnsService) Update(ctx context.Context, boardID, columnID, name, color string) (*Column, error) {
	column := map[string]any{}
	if name != "" {
		column["name"] = name
	}
	if color != "" {
		column["color"] = color
	}
	if err := exec(ctx, s.service, http.MethodPut, columnsPath(boardID)+"/"+columnID, map[string]any{"column": column}); err != nil {
		return nil, err
	}
	return s.Get(ctx, boardID, columnID)
}

// Delete deletes a column.
func (s *ColumnsService) Delete(ctx context.Context, boardID, columnID string) error {
	return remove(ctx, s.service, columnsPath(boardID)+"/"+columnID)
}
