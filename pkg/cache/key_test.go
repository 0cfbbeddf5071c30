package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "path only",
			key:  Key{Method: "GET", Path: "/acme/boards"},
			want: "fizzy:GET:/acme/boards",
		},
		{
			name: "default method and trailing slash",
			key:  Key{Path: "/acme/boards/"},
			want: "fizzy:GET:/acme/boards",
		},
		{
			name: "json suffix dropped",
			key:  Key{Path: "/acme/cards/42.json"},
			want: "fizzy:GET:/acme/cards/42",
		},
		{
			name: "separators escaped",
			key: Key{Path: "/acme/tags/a:b", Query: url.Values{
				"q": {"x,y"},
			}},
			want: "fizzy:GET:/acme/tags/a%3Ab:q=x%2Cy",
		},
		{
			name: "query sorted",
			key: Key{Path: "/acme/cards", Query: url.Values{
				"status":      {"open"},
				"board_ids[]": {"b2", "b1"},
			}},
			want: "fizzy:GET:/acme/cards:board_ids%5B%5D=b1,b2:status=open",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_OrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Add("status", "open")
	a.Add("tag_ids[]", "t1")
	a.Add("tag_ids[]", "t2")

	b := url.Values{}
	b.Add("tag_ids[]", "t2")
	b.Add("tag_ids[]", "t1")
	b.Add("status", "open")

	ka := NewKey("/acme/cards", a)
	kb := NewKey("/acme/cards", b)
	if ka.String() != kb.String() {
		t.Errorf("keys differ: %q vs %q", ka.String(), kb.String())
	}
}

func TestKey_SeparatorsDoNotCollide(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
	}{
		{
			name: "comma in value",
			a:    NewKey("/acme/cards", url.Values{"q": {"x,y"}}),
			b:    NewKey("/acme/cards", url.Values{"q": {"x", "y"}}),
		},
		{
			name: "colon in value",
			a:    NewKey("/acme/cards", url.Values{"q": {"x:status=open"}}),
			b:    NewKey("/acme/cards", url.Values{"q": {"x"}, "status": {"open"}}),
		},
		{
			name: "equals in name",
			a:    NewKey("/acme/cards", url.Values{"a=b": {"c"}}),
			b:    NewKey("/acme/cards", url.Values{"a": {"b=c"}}),
		},
		{
			name: "colon in path",
			a:    NewKey("/acme/cards:q=x", nil),
			b:    NewKey("/acme/cards", url.Values{"q": {"x"}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.String() == tt.b.String() {
				t.Errorf("keys collide: %q", tt.a.String())
			}
		})
	}
}

func TestHasPathPrefix_EscapedKeys(t *testing.T) {
	prefix := PathPrefix("/acme/cards")
	key := NewKey("/acme/cards", url.Values{"q": {"x:y"}}).String()
	if !HasPathPrefix(key, prefix) {
		t.Errorf("HasPathPrefix(%q, %q) = false, want true", key, prefix)
	}
	other := NewKey("/acme/cards:x", nil).String()
	if HasPathPrefix(other, prefix) {
		t.Errorf("HasPathPrefix(%q, %q) = true, want false", other, prefix)
	}
}

func TestHasPathPrefix(t *testing.T) {
	prefix := PathPrefix("/acme/cards")

	tests := []struct {
		key  string
		want bool
	}{
		{"fizzy:GET:/acme/cards", true},
		{"fizzy:GET:/acme/cards:status=open", true},
		{"fizzy:GET:/acme/cards/7", true},
		{"fizzy:GET:/acme/cards/7/comments", true},
		{"fizzy:GET:/acme/cardsets", false},
		{"fizzy:GET:/acme/boards", false},
	}

	for _, tt := range tests {
		if got := HasPathPrefix(tt.key, prefix); got != tt.want {
			t.Errorf("HasPathPrefix(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestCollectionPaths(t *testing.T) {
	tests := []struct {
		scope string
		path  string
		want  []string
	}{
		{"/acme", "/boards", []string{"/acme/boards"}},
		{"/acme", "/boards/b1/cards", []string{"/acme/boards", "/acme/cards"}},
		{"/acme", "/cards/7/comments/c1", []string{"/acme/cards", "/acme/comments"}},
		{"/acme", "/cards/7/closure", []string{"/acme/cards", "/acme/closure"}},
		{"", "/session", []string{"/session"}},
	}

	for _, tt := range tests {
		got := CollectionPaths(tt.scope, tt.path)
		if len(got) != len(tt.want) {
			t.Errorf("CollectionPaths(%q, %q) = %v, want %v", tt.scope, tt.path, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("CollectionPaths(%q, %q)[%d] = %q, want %q", tt.scope, tt.path, i, got[i], tt.want[i])
			}
		}
	}
}
