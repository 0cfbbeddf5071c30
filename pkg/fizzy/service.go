package fizzy

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/Sternrassler/fizzy-go/pkg/client"
	"github.com/Sternrassler/fizzy-go/pkg/pagination"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// service is embedded by every resource service.
type service struct {
	client *client.Client
}

func get[T any](ctx context.Context, s service, path string, query url.Values) (T, error) {
	return client.Run(ctx, s.client, transport.Get(path, query), client.JSON[T]())
}

// send issues a mutation with a JSON body. An empty reply yields the zero
// value of T.
func send[T any](ctx context.Context, s service, method, path string, body any) (T, error) {
	req := transport.NewRequest(method, path)
	req.Body = body
	return client.Run(ctx, s.client, req, client.JSON[T]())
}

// sendForm issues a mutation as a multipart form rooted at root.
func sendForm[T any](ctx context.Context, s service, method, path, root string, fields map[string]any, files map[string]transport.File) (T, error) {
	raw, contentType, err := transport.MultipartBody(root, fields, files)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("encode %s form: %w", root, err)
	}
	req := transport.NewRequest(method, path)
	req.Raw = raw
	req.ContentType = contentType
	return client.Run(ctx, s.client, req, client.JSON[T]())
}

// exec issues a call whose reply body is not needed.
func exec(ctx context.Context, s service, method, path string, body any) error {
	req := transport.NewRequest(method, path)
	req.Body = body
	_, err := client.Run(ctx, s.client, req, client.Raw)
	return err
}

func remove(ctx context.Context, s service, path string) error {
	return exec(ctx, s, http.MethodDelete, path, nil)
}

func firstPage[T any](ctx context.Context, s service, path string, query url.Values) (*pagination.Page[T], error) {
	return pagination.New[T](s.client, transport.Get(path, query), nil).Current(ctx)
}

func listAll[T any](ctx context.Context, s service, path string, query url.Values) iter.Seq2[T, error] {
	return pagination.New[T](s.client, transport.Get(path, query), nil).All(ctx)
}

func cardPath(number int, parts ...any) string {
	path := fmt.Sprintf("/cards/%d", number)
	for _, p := range parts {
		path += fmt.Sprintf("/%v", p)
	}
	return path
}
