package fizzy

import (
	"context"

	"github.com/Sternrassler/fizzy-go/pkg/client"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// IdentityService reads the authenticated identity. Its endpoint is not
// scoped to an account.
type IdentityService struct {
	service
}

// Get returns the identity and its accounts.
func (s *IdentityService) Get(ctx context.Context) (*Identity, error) {
	req := transport.Get("/my/identity", nil)
	req.Unscoped = true
	return client.Run(ctx, s.client, req, client.JSON[*Identity]())
}
