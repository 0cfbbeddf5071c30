package fizzy

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"

	"github.com/Sternrassler/fizzy-go/pkg/pagination"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// UsersService manages account members.
type UsersService struct {
	service
}

// List returns the first page of users.
func (s *UsersService) List(ctx context.Context) ([]User, error) {
	return get[[]User](ctx, s.service, "/users", nil)
}

// ListPaginated returns the first page of users with a cursor to the next.
func (s *UsersService) ListPaginated(ctx context.Context) (*pagination.Page[User], error) {
	return firstPage[User](ctx, s.service, "/users", nil)
}

// ListAll iterates over every user.
func (s *UsersService) ListAll(ctx context.Context) iter.Seq2[User, error] {
	return listAll[User](ctx, s.service, "/users", nil)
}

// Get returns a user.
func (s *UsersService) Get(ctx context.Context, userID string) (*User, error) {
	return get[*User](ctx, s.service, "/users/"+userID, nil)
}

// Update renames a user and/or replaces the avatar, then returns the new
// state. A non-nil avatar sends a multipart form.
func (s *UsersService) Update(ctx context.Context, userID, name string, avatar *transport.File) (*User, error) {
	user := map[string]any{}
	if name != "" {
		user["name"] = name
	}

	path := "/users/" + userID
	if avatar != nil {
		if _, err := sendForm[json.RawMessage](ctx, s.service, http.MethodPut, path, "user", user, map[string]transport.File{"avatar": *avatar}); err != nil {
			return nil, err
		}
	} else if err := exec(ctx, s.service, http.MethodPut, path, map[string]any{"user": user}); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Delete deactivates a user.
func (s *UsersService) Delete(ctx context.Context, userID string) error {
	return remove(ctx, s.service, "/users/"+userID)
}
