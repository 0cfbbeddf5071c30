package pagination

import (
	"net/http"
	"regexp"
)

var linkPattern = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="([^"]+)"`)

// ParseLinkHeader parses an RFC 8288 Link header into rel -> URL.
func ParseLinkHeader(value string) map[string]string {
	links := make(map[string]string)
	for _, m := range linkPattern.FindAllStringSubmatch(value, -1) {
		links[m[2]] = m[1]
	}
	return links
}

// NextLink returns the rel="next" URL from the response headers, or "".
func NextLink(h http.Header) string {
	for _, value := range h.Values("Link") {
		if next, ok := ParseLinkHeader(value)["next"]; ok {
			return next
		}
	}
	return ""
}
