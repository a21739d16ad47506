// Package urlkit implements the runtime's URL data model (spec.md §3, §4's
// "URL" type): scheme, authority, pathname, query (SearchParams),
// fragment, with canonical reconstruction and dot-segment resolution.
// Grounded on _examples/original_source/src/runtime/url/{url,path,search}.cc.
package urlkit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/qntx-runtime/rterr"
)

// Authority holds the parsed userinfo/host/port triple of a URL.
type Authority struct {
	Username string
	Password string
	Hostname string
	Port     string
}

// URL is the runtime's parsed URL, matching spec.md §3.
type URL struct {
	Scheme    string
	Authority Authority
	Pathname  string
	Query     *SearchParams
	Fragment  string
}

// Parse parses a well-formed URL string into its components. It does not
// attempt to be a general-purpose RFC 3986 parser; it covers the shapes
// the runtime actually needs: scheme://[user[:pass]@]host[:port][/path][?query][#fragment].
func Parse(raw string) (*URL, error) {
	u := &URL{Query: NewSearchParams("")}
	rest := raw

	if idx := strings.Index(rest, "://"); idx >= 0 {
		u.Scheme = rest[:idx]
		rest = rest[idx+3:]
	} else if idx := strings.Index(rest, ":"); idx >= 0 && !strings.HasPrefix(rest, "/") {
		// scheme:opaque form (e.g. "socket:app.id/path") still carries an
		// authority-less scheme.
		u.Scheme = rest[:idx]
		rest = rest[idx+1:]
	}

	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		u.Fragment = rest[idx+1:]
		rest = rest[:idx]
	}

	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		u.Query = NewSearchParams(rest[idx+1:])
		rest = rest[:idx]
	}

	// Split authority from pathname: authority runs up to the first '/'
	// that isn't part of scheme:opaque (already consumed above in the
	// "://" branch; in the opaque branch, rest begins right after ':').
	if strings.Contains(raw, "://") {
		slash := strings.IndexByte(rest, '/')
		authority := rest
		if slash >= 0 {
			authority = rest[:slash]
			u.Pathname = rest[slash:]
		} else {
			u.Pathname = "/"
		}
		u.Authority = parseAuthority(authority)
	} else {
		if !strings.HasPrefix(rest, "/") {
			rest = "/" + rest
		}
		u.Pathname = rest
	}

	if u.Pathname == "" {
		u.Pathname = "/"
	}

	return u, nil
}

func parseAuthority(s string) Authority {
	var a Authority
	if idx := strings.IndexByte(s, '@'); idx >= 0 {
		userinfo := s[:idx]
		s = s[idx+1:]
		if c := strings.IndexByte(userinfo, ':'); c >= 0 {
			a.Username, a.Password = userinfo[:c], userinfo[c+1:]
		} else {
			a.Username = userinfo
		}
	}
	if idx := strings.LastIndexByte(s, ':'); idx >= 0 {
		a.Hostname, a.Port = s[:idx], s[idx+1:]
	} else {
		a.Hostname = s
	}
	return a
}

// Str reconstructs the canonical string form of the URL, matching
// invariant 6: URL(URL(x).str()) == URL(x).
func (u *URL) Str() string {
	var b strings.Builder
	hasAuthority := u.Authority.Hostname != ""

	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		if hasAuthority {
			b.WriteString("://")
		} else {
			b.WriteString(":")
		}
	}
	if hasAuthority {
		if u.Authority.Username != "" {
			b.WriteString(u.Authority.Username)
			if u.Authority.Password != "" {
				b.WriteString(":")
				b.WriteString(u.Authority.Password)
			}
			b.WriteString("@")
		}
		b.WriteString(u.Authority.Hostname)
		if u.Authority.Port != "" {
			b.WriteString(":")
			b.WriteString(u.Authority.Port)
		}
	}
	b.WriteString(u.Pathname)
	if qs := u.Query.Encode(); qs != "" {
		b.WriteString("?")
		b.WriteString(qs)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// ResolveReference resolves ref (possibly relative) against base,
// collapsing "." and ".." path segments per standard dot-segment rules.
func ResolveReference(base *URL, ref string) (*URL, error) {
	r, err := Parse(ref)
	if err != nil {
		return nil, err
	}
	if r.Scheme != "" || r.Authority.Hostname != "" {
		return r, nil
	}
	resolved := *base
	resolved.Fragment = r.Fragment
	resolved.Query = r.Query
	if r.Pathname != "" {
		if strings.HasPrefix(ref, "/") {
			resolved.Pathname = collapseDotSegments(r.Pathname)
		} else {
			dir := base.Pathname
			if idx := strings.LastIndexByte(dir, '/'); idx >= 0 {
				dir = dir[:idx+1]
			} else {
				dir = "/"
			}
			resolved.Pathname = collapseDotSegments(dir + strings.TrimPrefix(r.Pathname, "/"))
		}
	}
	return &resolved, nil
}

func collapseDotSegments(path string) string {
	segments := strings.Split(path, "/")
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		switch s {
		case ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	joined := strings.Join(out, "/")
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

// PathComponents splits a pathname into its non-empty "/"-delimited
// segments, matching PathComponents in the original url/path.cc.
type PathComponents struct {
	parts []string
}

// NewPathComponents splits pathname on "/" and trims empty segments.
func NewPathComponents(pathname string) *PathComponents {
	pc := &PathComponents{}
	for _, part := range strings.Split(pathname, "/") {
		part = strings.TrimSpace(part)
		if part != "" {
			pc.parts = append(pc.parts, part)
		}
	}
	return pc
}

func (pc *PathComponents) Len() int { return len(pc.parts) }

func (pc *PathComponents) At(i int) (string, error) {
	if i < 0 || i >= len(pc.parts) {
		return "", rterr.OutOfRange("path component index %d out of range", i)
	}
	return pc.parts[i], nil
}

// Str rejoins the components into a canonical absolute path.
func (pc *PathComponents) Str() string {
	return "/" + strings.Join(pc.parts, "/")
}

// GetUint64 parses the component at i as a uint64, per the original's
// templated PathComponents::get<T>.
func (pc *PathComponents) GetUint64(i int) (uint64, error) {
	s, err := pc.At(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, rterr.BadRequest("path component %d is not a uint64: %s", i, s)
	}
	return v, nil
}

// SearchParams is the query-string component. Per spec.md §9's
// open question, getters here use Get (the "at"-style const accessor);
// mutation only happens through Set/Add.
type SearchParams struct {
	values map[string][]string
	order  []string
}

// NewSearchParams parses a raw (unescaped) query string of the form
// "k=v&k2=v2".
func NewSearchParams(raw string) *SearchParams {
	sp := &SearchParams{values: map[string][]string{}}
	if raw == "" {
		return sp
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		var k, v string
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			k, v = pair[:idx], pair[idx+1:]
		} else {
			k = pair
		}
		k = unescape(k)
		v = unescape(v)
		sp.appendKey(k, v)
	}
	return sp
}

func (sp *SearchParams) appendKey(k, v string) {
	if _, ok := sp.values[k]; !ok {
		sp.order = append(sp.order, k)
	}
	sp.values[k] = append(sp.values[k], v)
}

// Get returns the first value for key (the "at"-style const accessor the
// spec recommends over an operator[] that mutates on miss).
func (sp *SearchParams) Get(key string) (string, bool) {
	v, ok := sp.values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// GetAll returns every value bound to key, in insertion order.
func (sp *SearchParams) GetAll(key string) []string {
	return append([]string(nil), sp.values[key]...)
}

// Set replaces all values bound to key.
func (sp *SearchParams) Set(key, value string) {
	if _, ok := sp.values[key]; !ok {
		sp.order = append(sp.order, key)
	}
	sp.values[key] = []string{value}
}

// Add appends a value to key without replacing existing ones.
func (sp *SearchParams) Add(key, value string) {
	sp.appendKey(key, value)
}

// Has reports whether key is present at all.
func (sp *SearchParams) Has(key string) bool {
	_, ok := sp.values[key]
	return ok
}

// Delete removes a key entirely.
func (sp *SearchParams) Delete(key string) {
	delete(sp.values, key)
	for i, k := range sp.order {
		if k == key {
			sp.order = append(sp.order[:i], sp.order[i+1:]...)
			break
		}
	}
}

// Encode renders the params back to "k=v&k2=v2" in insertion order.
func (sp *SearchParams) Encode() string {
	var parts []string
	for _, k := range sp.order {
		for _, v := range sp.values[k] {
			parts = append(parts, escape(k)+"="+escape(v))
		}
	}
	return strings.Join(parts, "&")
}

// Keys returns the set of distinct keys, sorted for deterministic
// iteration (the underlying map has none).
func (sp *SearchParams) Keys() []string {
	keys := append([]string(nil), sp.order...)
	sort.Strings(keys)
	return keys
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte('%')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}
