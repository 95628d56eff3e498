package offlinecache

import (
	"net/http"
	"path"
	"strings"
)

// Rules configures the request classifier. All pattern sets are matched
// against the request URL; none of them consult request headers or bodies.
type Rules struct {
	// ExemptPathSegments are path segments (e.g. "/api/") that mark a request
	// as never cacheable.
	ExemptPathSegments []string

	// ExemptHosts are backend hosts (host or host:port) whose traffic is
	// never cached.
	ExemptHosts []string

	// ExemptExtensions are file extensions (e.g. ".json") treated as
	// structured data and never cached.
	ExemptExtensions []string

	// ExemptRoutePrefixes are framework-internal data-route prefixes that are
	// never cached.
	ExemptRoutePrefixes []string

	// StaticPathSegments are path segments whose content is served cache-first.
	StaticPathSegments []string

	// StaticExtensions are binary asset extensions served cache-first.
	// Matching is case-insensitive.
	StaticExtensions []string
}

// DefaultRules returns the deployment defaults: API traffic, the booking
// backend, and anything that looks like structured data are exempt; script
// bundles, icons, images and fonts are static assets.
//
// The ".json" exemption is intentionally broad: any JSON-suffixed URL is
// treated as API-shaped data and never cached, even if it is a static asset.
func DefaultRules() Rules {
	return Rules{
		ExemptPathSegments:  []string{"/api/"},
		ExemptHosts:         []string{"localhost:8000", "127.0.0.1:8000"},
		ExemptExtensions:    []string{".json"},
		ExemptRoutePrefixes: []string{"/_next/data/"},
		StaticPathSegments:  []string{"/static/", "/_next/static/", "/icons/", "/images/"},
		StaticExtensions: []string{
			".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
			".woff", ".woff2", ".ttf",
		},
	}
}

// Classification is the classifier's verdict for a single request.
type Classification struct {
	// CacheExempt marks a request that must always hit the network.
	// It takes precedence over IsStaticAsset.
	CacheExempt bool

	// IsStaticAsset marks a request eligible for cache-first handling.
	IsStaticAsset bool

	// IsCrossOrigin marks a request whose origin differs from the
	// application's own origin.
	IsCrossOrigin bool
}

// Classifier decides how a request relates to the cache. It is a pure
// function over the request URL and its configured rule sets.
type Classifier struct {
	origin string
	rules  Rules
}

// NewClassifier creates a classifier for the given application origin
// (scheme://host) and rule sets.
func NewClassifier(origin string, rules Rules) *Classifier {
	return &Classifier{origin: strings.TrimSuffix(origin, "/"), rules: rules}
}

// Classify computes the verdict for a retrieval request. Callers must filter
// out non-retrieval methods before classification.
func (c *Classifier) Classify(r *http.Request) Classification {
	urlPath := r.URL.Path
	ext := strings.ToLower(path.Ext(urlPath))

	return Classification{
		CacheExempt:   c.isExempt(r, urlPath, ext),
		IsStaticAsset: c.isStaticAsset(urlPath, ext),
		IsCrossOrigin: c.origin != "" && requestOrigin(r) != c.origin,
	}
}

func (c *Classifier) isExempt(r *http.Request, urlPath, ext string) bool {
	for _, seg := range c.rules.ExemptPathSegments {
		if strings.Contains(urlPath, seg) {
			return true
		}
	}
	for _, host := range c.rules.ExemptHosts {
		if r.URL.Host == host {
			return true
		}
	}
	for _, e := range c.rules.ExemptExtensions {
		if ext == e {
			return true
		}
	}
	for _, prefix := range c.rules.ExemptRoutePrefixes {
		if strings.HasPrefix(urlPath, prefix) {
			return true
		}
	}
	return false
}

func (c *Classifier) isStaticAsset(urlPath, ext string) bool {
	for _, seg := range c.rules.StaticPathSegments {
		if strings.Contains(urlPath, seg) {
			return true
		}
	}
	for _, e := range c.rules.StaticExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func requestOrigin(r *http.Request) string {
	return r.URL.Scheme + "://" + r.URL.Host
}
