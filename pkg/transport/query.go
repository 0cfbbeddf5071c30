package transport

import (
	"net/url"
)

// Params builds query parameters from loosely typed values. Slices are sent
// as repeated "key[]" entries, booleans as "true"/"false", and nil or empty
// values are dropped.
func Params(values map[string]any) url.Values {
	q := url.Values{}
	for key, value := range values {
		switch v := value.(type) {
		case nil:
		case []string:
			for _, item := range v {
				q.Add(key+"[]", item)
			}
		case []int:
			for _, item := range v {
				s, _ := scalar(item)
				q.Add(key+"[]", s)
			}
		case []any:
			for _, item := range v {
				if s, ok := scalar(item); ok {
					q.Add(key+"[]", s)
				}
			}
		case *bool:
			if v != nil {
				s, _ := scalar(*v)
				q.Set(key, s)
			}
		case string:
			if v != "" {
				q.Set(key, v)
			}
		default:
			if s, ok := scalar(v); ok {
				q.Set(key, s)
			}
		}
	}
	if len(q) == 0 {
		return nil
	}
	return q
}
