package session

import "strings"

// DefaultPublicPaths are the unauthenticated routes of the EventEase
// frontend: no chrome (nav, sidebar) renders on these.
var DefaultPublicPaths = []string{
	"/",
	"/signin",
	"/signup",
	"/verify-email",
	"/password-reset",
}

// ChromeResolver decides, from the current path alone, whether the
// authenticated chrome should render. It is a pure function of its
// configured public set: evaluate it once eagerly at startup with the
// known current path, then again on every completed navigation.
type ChromeResolver struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewChromeResolver builds a resolver for the given public paths. A path
// ending in "/*" marks a public subtree, e.g. "/password-reset/*".
func NewChromeResolver(publicPaths ...string) *ChromeResolver {
	if len(publicPaths) == 0 {
		publicPaths = DefaultPublicPaths
	}

	r := &ChromeResolver{exact: map[string]struct{}{}}
	for _, p := range publicPaths {
		if strings.HasSuffix(p, "/*") {
			prefix := normalizePath(strings.TrimSuffix(p, "/*"))
			r.prefixes = append(r.prefixes, prefix)
			continue
		}
		r.exact[normalizePath(p)] = struct{}{}
	}

	return r
}

// Show reports whether authenticated chrome renders for the given path.
// The query string and fragment are stripped before matching.
func (r *ChromeResolver) Show(path string) bool {
	return !r.IsPublic(path)
}

// IsPublic reports whether the path belongs to the public set.
func (r *ChromeResolver) IsPublic(path string) bool {
	p := normalizePath(path)

	if _, ok := r.exact[p]; ok {
		return true
	}

	for _, prefix := range r.prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	return false
}

// normalizePath strips the query string and fragment and trims a
// trailing slash (keeping the root path intact).
func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}

	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return path
}
