package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPathSegment is returned for captured segments that would
// resolve outside the upstream API prefix.
var ErrInvalidPathSegment = errors.New("invalid path segment")

// PathSegments is the ordered list of path components captured by the
// proxy's wildcard route. Segments keep their percent-encoding.
type PathSegments []string

// ParsePathSegments splits an escaped wildcard capture on "/".
// An empty capture yields an empty sequence; a trailing slash yields a
// trailing empty segment so it survives Join.
func ParsePathSegments(raw string) (PathSegments, error) {
	if raw == "" {
		return PathSegments{}, nil
	}

	parts := strings.Split(raw, "/")
	for _, p := range parts {
		if unsafeSegment(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPathSegment, p)
		}
	}
	return PathSegments(parts), nil
}

// Join concatenates the segments with "/".
func (s PathSegments) Join() string {
	return strings.Join(s, "/")
}

func unsafeSegment(p string) bool {
	if p == "" {
		return false
	}
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return true
	}
	return decoded == "." || decoded == ".." || strings.ContainsAny(decoded, "/\\")
}
