// Package facet converts between the colon-delimited tag syntax users write
// ("lang:rust") and the slash-rooted facet path that the index and the tag
// virtual filesystem actually key on ("/lang/rust").
package facet

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidTag is returned when a tag or facet path contains an empty or
// out-of-charset component.
var ErrInvalidTag = errors.New("facet: invalid tag")

var componentRe = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)

// ToFacet normalizes a colon-delimited tag ("lang:rust", or the query-atom
// form ":lang:rust") into its facet path ("/lang/rust"). A leading colon, if
// present, is treated as the facet root marker and dropped before splitting.
func ToFacet(tag string) (string, error) {
	parts := strings.Split(tag, ":")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	return join(parts)
}

// ToTag converts a facet path back to its colon-delimited tag form. It is the
// inverse of ToFacet for any valid facet path: ToTag(must(ToFacet(t))) == t.
func ToTag(path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", ErrInvalidTag
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if err := validate(parts); err != nil {
		return "", err
	}
	return strings.Join(parts, ":"), nil
}

func join(parts []string) (string, error) {
	if err := validate(parts); err != nil {
		return "", err
	}
	return "/" + strings.Join(parts, "/"), nil
}

func validate(parts []string) error {
	if len(parts) == 0 {
		return ErrInvalidTag
	}
	for _, p := range parts {
		if p == "" || !componentRe.MatchString(p) {
			return ErrInvalidTag
		}
	}
	return nil
}

// Parent returns the facet path one level up from path ("/lang/rust" ->
// "/lang"), and false if path is already a root-level facet ("/lang") or not
// a valid facet path at all.
func Parent(path string) (string, bool) {
	parts := Components(path)
	if len(parts) <= 1 {
		return "", false
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/"), true
}

// Components splits a facet path into its component names, e.g. "/lang/rust"
// -> ["lang", "rust"]. An empty or malformed path yields nil.
func Components(path string) []string {
	if !strings.HasPrefix(path, "/") {
		return nil
	}
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	if validate(parts) != nil {
		return nil
	}
	return parts
}
