package offlinecache

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyURL(t *testing.T, c *Classifier, url string) Classification {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return c.Classify(req)
}

func TestClassifier_ExemptionPatterns(t *testing.T) {
	c := NewClassifier("http://app.local", DefaultRules())

	assert.True(t, classifyURL(t, c, "http://app.local/api/v1/rooms").CacheExempt)
	assert.True(t, classifyURL(t, c, "http://localhost:8000/rooms").CacheExempt)
	assert.True(t, classifyURL(t, c, "http://127.0.0.1:8000/rooms").CacheExempt)
	assert.True(t, classifyURL(t, c, "http://app.local/data/listings.json").CacheExempt)
	assert.True(t, classifyURL(t, c, "http://app.local/_next/data/build/page.js").CacheExempt)

	assert.False(t, classifyURL(t, c, "http://app.local/dashboard").CacheExempt)
}

func TestClassifier_StaticAssetPatterns(t *testing.T) {
	c := NewClassifier("http://app.local", DefaultRules())

	assert.True(t, classifyURL(t, c, "http://app.local/icons/icon-192x192.png").IsStaticAsset)
	assert.True(t, classifyURL(t, c, "http://app.local/_next/static/chunks/main.js").IsStaticAsset)
	assert.True(t, classifyURL(t, c, "http://app.local/photos/room.JPG").IsStaticAsset, "extension match is case-insensitive")
	assert.True(t, classifyURL(t, c, "http://app.local/fonts/inter.woff2").IsStaticAsset)

	assert.False(t, classifyURL(t, c, "http://app.local/dashboard").IsStaticAsset)
	assert.False(t, classifyURL(t, c, "http://app.local/rooms/42").IsStaticAsset)
}

func TestClassifier_ExemptAndStaticOverlap(t *testing.T) {
	c := NewClassifier("http://app.local", DefaultRules())

	// A JSON file under a static path matches both rule sets; both flags are
	// reported and the dispatcher resolves the precedence.
	cl := classifyURL(t, c, "http://app.local/icons/sprites.json")
	assert.True(t, cl.CacheExempt)
	assert.True(t, cl.IsStaticAsset)
}

func TestClassifier_CrossOrigin(t *testing.T) {
	c := NewClassifier("http://app.local", DefaultRules())

	assert.False(t, classifyURL(t, c, "http://app.local/rooms").IsCrossOrigin)
	assert.True(t, classifyURL(t, c, "http://third.party/rooms").IsCrossOrigin)
	assert.True(t, classifyURL(t, c, "https://app.local/rooms").IsCrossOrigin, "scheme is part of the origin")
}

func TestClassifier_SyntheticRules(t *testing.T) {
	c := NewClassifier("http://app.local", Rules{
		ExemptPathSegments: []string{"/graphql/"},
		StaticExtensions:   []string{".avif"},
	})

	assert.True(t, classifyURL(t, c, "http://app.local/graphql/query").CacheExempt)
	assert.False(t, classifyURL(t, c, "http://app.local/api/v1/rooms").CacheExempt)
	assert.True(t, classifyURL(t, c, "http://app.local/img/hero.avif").IsStaticAsset)
	assert.False(t, classifyURL(t, c, "http://app.local/icons/logo.png").IsStaticAsset)
}

func TestIsNavigation(t *testing.T) {
	nav, _ := http.NewRequest(http.MethodGet, "http://app.local/dashboard", nil)
	nav.Header.Set("Sec-Fetch-Mode", "navigate")
	assert.True(t, isNavigation(nav))

	accept, _ := http.NewRequest(http.MethodGet, "http://app.local/dashboard", nil)
	accept.Header.Set("Accept", "text/html,application/xhtml+xml")
	assert.True(t, isNavigation(accept))

	plain, _ := http.NewRequest(http.MethodGet, "http://app.local/rooms/42", nil)
	assert.False(t, isNavigation(plain))
}
