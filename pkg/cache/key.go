package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "fizzy"

// Key identifies a cacheable request.
type Key struct {
	// Method is the HTTP verb (only GET is cached)
	Method string

	// Path is the resolved request path including the account scope,
	// e.g. "/acme/cards/42"
	Path string

	// Query holds the query parameters
	Query url.Values
}

// NewKey builds a key for a GET of path with query.
func NewKey(path string, query url.Values) Key {
	return Key{Method: "GET", Path: path, Query: query}
}

// String generates a deterministic cache key string. Query keys and the
// values of repeated keys are sorted, so parameter order never matters.
// Names and values are query-escaped and the path has '%' and ':' escaped,
// so separators inside them cannot collide with the key layout.
// Format: fizzy:METHOD:/path:k1=v1:k2=v2,v3
//
// Example:
//
//	fizzy:GET:/acme/cards:board_ids%5B%5D=b1,b2:status=open
func (k Key) String() string {
	method := strings.ToUpper(k.Method)
	if method == "" {
		method = "GET"
	}

	parts := []string{KeyPrefix, method, normalizePath(k.Path)}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			for i, v := range values {
				values[i] = url.QueryEscape(v)
			}
			parts = append(parts, url.QueryEscape(name)+"="+strings.Join(values, ","))
		}
	}

	return strings.Join(parts, ":")
}

// PathPrefix returns the key prefix shared by every GET under path.
func PathPrefix(path string) string {
	return KeyPrefix + ":GET:" + normalizePath(path)
}

// HasPathPrefix reports whether key falls under prefix on a path segment
// boundary: "/acme/cards" matches "/acme/cards/7" but not "/acme/cardsets".
func HasPathPrefix(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	if len(key) == len(prefix) {
		return true
	}
	switch key[len(prefix)] {
	case '/', ':':
		return true
	}
	return false
}

// CollectionPaths returns the collection paths touched by a mutation of
// path, each prefixed with scope. Resource paths alternate collection and
// identifier segments, so every even segment is a collection:
// "/boards/b1/cards" yields "/scope/boards" and "/scope/cards".
func CollectionPaths(scope, path string) []string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < len(segments); i += 2 {
		seg := strings.TrimSuffix(segments[i], ".json")
		if seg == "" || seen[seg] {
			continue
		}
		seen[seg] = true
		out = append(out, strings.TrimRight(scope, "/")+"/"+seg)
	}
	return out
}

var pathEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func normalizePath(p string) string {
	p = strings.TrimSuffix(p, ".json")
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return pathEscaper.Replace(p)
}
