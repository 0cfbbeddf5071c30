package fizzy

import "context"

// TagsService lists the account's tags.
type TagsService struct {
	service
}

// List returns all tags.
func (s *TagsService) List(ctx context.Context) ([]Tag, error) {
	return get[[]Tag](ctx, s.service, "/tags", nil)
}
