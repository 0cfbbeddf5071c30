package client

import (
	"context"
	"encoding/json"

	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// Run executes req and returns the decoded value. Empty responses (204,
// empty 2xx bodies) yield the zero value of T without calling decode.
// Every call gets a value of its own, including 304 revalidations.
func Run[T any](ctx context.Context, c *Client, req transport.Request, decode func([]byte) (T, error)) (T, error) {
	value, _, err := Execute(ctx, c, req, decode)
	return value, err
}

// Execute is Run that also returns the call's Result (headers, cache
// status, attempts).
func Execute[T any](ctx context.Context, c *Client, req transport.Request, decode func([]byte) (T, error)) (T, *Result, error) {
	var zero T

	result, err := c.Do(ctx, req, func(body []byte) (any, error) {
		return decode(body)
	})
	if err != nil {
		return zero, nil, err
	}

	value, _ := result.Value.(T)
	return value, result, nil
}

// JSON returns a decoder that unmarshals into T.
func JSON[T any]() func([]byte) (T, error) {
	return func(body []byte) (T, error) {
		var v T
		err := json.Unmarshal(body, &v)
		return v, err
	}
}

// Raw returns the body unchanged.
func Raw(body []byte) ([]byte, error) {
	return body, nil
}
