package client

import (
	"github.com/Sternrassler/fizzy-go/pkg/cache"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

func cacheKeyFor(c *Client, path string) cache.Key {
	return cache.NewKey(c.Transport().ResolvePath(transport.Get(path, nil)), nil)
}
