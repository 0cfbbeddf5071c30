// Package auth implements the passwordless magic-link sign-in: request a
// code by email, then exchange the code for a session token that can be
// used as client.Config.SessionToken.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/Sternrassler/fizzy-go/pkg/client"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

const (
	sessionPath   = "/session"
	magicLinkPath = "/session/magic_link"
)

// ErrNoToken is returned when the code was accepted but no token came back.
var ErrNoToken = errors.New("magic link response carries no token")

// Service runs the magic-link flow against an anonymous client.
type Service struct {
	client *client.Client
}

// New creates a Service for the Fizzy instance at baseURL ("" for the
// default). Responses are never cached.
func New(baseURL string) (*Service, error) {
	cfg := client.DefaultConfig("", "")
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.Anonymous = true
	cfg.EnableCache = false

	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{client: c}, nil
}

// NewWithClient uses an existing client. Its credentials, if any, are sent.
func NewWithClient(c *client.Client) *Service {
	return &Service{client: c}
}

// Close releases the client.
func (s *Service) Close() error {
	return s.client.Close()
}

// RequestMagicLink asks Fizzy to email a sign-in code. An invalid address
// is reported as a validation error.
func (s *Service) RequestMagicLink(ctx context.Context, email string) (map[string]any, error) {
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}

	req := transport.NewRequest(http.MethodPost, sessionPath)
	req.Body = map[string]string{"email": email}
	req.Unscoped = true

	status, err := client.Run(ctx, s.client, req, client.JSON[map[string]any]())
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = map[string]any{}
	}
	return status, nil
}

// SubmitMagicCode exchanges the emailed code for a session token. Invalid
// or expired codes fail with client.ErrAuthentication.
func (s *Service) SubmitMagicCode(ctx context.Context, code string) (string, error) {
	if err := validation.Validate(code, validation.Required); err != nil {
		return "", fmt.Errorf("code: %w", err)
	}

	req := transport.NewRequest(http.MethodPost, magicLinkPath)
	req.Body = map[string]string{"code": code}
	req.Unscoped = true

	reply, err := client.Run(ctx, s.client, req, client.JSON[struct {
		Token string `json:"token"`
	}]())
	if err != nil {
		return "", err
	}
	if reply.Token == "" {
		return "", ErrNoToken
	}
	return reply.Token, nil
}
