// Package tenant resolves and carries the site key that scopes every query.
package tenant

import (
	"context"
	"net"
	"strings"
)

type ctxKey struct{}

// WithSite returns a child context carrying site.
func WithSite(ctx context.Context, site string) context.Context {
	return context.WithValue(ctx, ctxKey{}, site)
}

// Site returns the site key stored in ctx, or "" when none was set.
func Site(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

// Resolver maps request domains to site keys.
type Resolver struct {
	domains     map[string]string
	defaultSite string
}

// NewResolver builds a resolver from a domain -> site table. Domains are
// matched case-insensitively without port; a leading "www." is ignored.
func NewResolver(domains map[string]string, defaultSite string) *Resolver {
	m := make(map[string]string, len(domains))
	for d, s := range domains {
		m[normalizeHost(d)] = s
	}
	return &Resolver{domains: m, defaultSite: defaultSite}
}

// Resolve returns the site for the first non-empty candidate that is known,
// falling back to the default site.
func (r *Resolver) Resolve(candidates ...string) string {
	for _, c := range candidates {
		h := normalizeHost(c)
		if h == "" {
			continue
		}
		if s, ok := r.domains[h]; ok {
			return s
		}
	}
	return r.defaultSite
}

// Default is the site used when no domain matches.
func (r *Resolver) Default() string { return r.defaultSite }

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimPrefix(h, "www.")
}
