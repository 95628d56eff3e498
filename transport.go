// Package offlinecache provides an offline-first caching transport for HTTP
// clients. It intercepts retrieval requests, classifies them against
// configurable rule sets, and applies one of three strategies (network-only,
// cache-first, network-first-with-fallback) backed by named cache stores, so
// an application keeps rendering something useful when the network is down.
package offlinecache

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Strategy labels reported in logs and metrics.
const (
	strategyPassthrough  = "passthrough"
	strategyNetworkOnly  = "network_only"
	strategyCacheFirst   = "cache_first"
	strategyNetworkFirst = "network_first"
)

// Transport is an http.RoundTripper that mediates between the application and
// the network. Each request passes through it exactly once; there is no
// shared state between concurrent requests other than the cache stores.
type Transport struct {
	base       http.RoundTripper
	classifier *Classifier
	stores     Stores
	version    Version
	origin     string
	log        logrus.FieldLogger
	metrics    *metrics
	observe    WriteObserver
}

// NewTransport creates a caching transport over the given store backend. The
// version carries the two live store names; requests are mirrored into the
// runtime store and fall back to the precache's root document when offline.
func NewTransport(stores Stores, version Version, opts ...Option) *Transport {
	config := &Config{
		Base:   http.DefaultTransport,
		Rules:  DefaultRules(),
		Logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(config)
	}

	t := &Transport{
		base:       config.Base,
		classifier: NewClassifier(config.Origin, config.Rules),
		stores:     stores,
		version:    version,
		origin:     strings.TrimSuffix(config.Origin, "/"),
		log:        config.Logger,
		observe:    config.WriteObserver,
	}
	if config.Registerer != nil {
		t.metrics = newMetrics(config.Registerer)
	}
	return t
}

// RoundTrip implements http.RoundTripper. Non-retrieval requests and
// cross-origin non-asset requests pass through to the base transport
// untouched; everything else is handled by one of the three strategies.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return t.base.RoundTrip(r)
	}

	cl := t.classifier.Classify(r)
	switch {
	case cl.IsCrossOrigin && !cl.IsStaticAsset:
		t.metrics.request(strategyPassthrough, "network")
		return t.base.RoundTrip(r)
	case cl.CacheExempt:
		// Exemption wins over static-asset overlap: exempt content is
		// defined as not cacheable.
		return t.networkOnly(r)
	case cl.IsStaticAsset:
		return t.cacheFirst(r)
	default:
		return t.networkFirst(r)
	}
}

// networkOnly always hits the network and never touches a store. A transport
// failure is converted into a structured service-unavailable response rather
// than an error, so callers always receive a well-formed response.
func (t *Transport) networkOnly(r *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		t.log.WithError(err).WithField("url", r.URL.String()).
			Warn("network unavailable for exempt request")
		t.metrics.request(strategyNetworkOnly, "unavailable")
		return unavailableJSON(r), nil
	}
	t.metrics.request(strategyNetworkOnly, "network")
	return resp, nil
}

// cacheFirst serves static assets from the runtime store when possible. On a
// miss, a successful network response is mirrored into the store before being
// returned; a network failure with no cached copy propagates to the caller.
func (t *Transport) cacheFirst(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	id := Identity(r)

	runtime := t.openStore(ctx, t.version.Runtime)
	if runtime != nil {
		if cached, err := runtime.Get(ctx, id); err == nil {
			t.metrics.cacheRead(true)
			t.metrics.request(strategyCacheFirst, "cache")
			return cached.Response(r), nil
		}
		t.metrics.cacheRead(false)
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		t.metrics.request(strategyCacheFirst, "error")
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && runtime != nil {
		t.mirror(runtime, id, resp)
	}
	t.metrics.request(strategyCacheFirst, "network")
	return resp, nil
}

// networkFirst prefers a fresh response, mirroring successful ones into the
// runtime store. When the network fails it falls back to the runtime store,
// then to the precached root document for navigations, then to a synthesized
// service-unavailable response.
func (t *Transport) networkFirst(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	id := Identity(r)

	resp, err := t.base.RoundTrip(r)
	if err == nil {
		if resp.StatusCode == http.StatusOK {
			if runtime := t.openStore(ctx, t.version.Runtime); runtime != nil {
				t.mirror(runtime, id, resp)
			}
		}
		t.metrics.request(strategyNetworkFirst, "network")
		return resp, nil
	}
	t.log.WithError(err).WithField("url", r.URL.String()).Debug("network failed, falling back to cache")

	if runtime := t.openStore(ctx, t.version.Runtime); runtime != nil {
		if cached, gerr := runtime.Get(ctx, id); gerr == nil {
			t.metrics.cacheRead(true)
			t.metrics.request(strategyNetworkFirst, "cache")
			return cached.Response(r), nil
		}
		t.metrics.cacheRead(false)
	}

	if isNavigation(r) {
		if pre := t.openStore(ctx, t.version.Precache); pre != nil {
			if shell, gerr := pre.Get(ctx, t.shellIdentity(r)); gerr == nil {
				t.metrics.request(strategyNetworkFirst, "offline_shell")
				return shell.Response(r), nil
			}
		}
	}

	t.metrics.request(strategyNetworkFirst, "unavailable")
	return unavailableText(r), nil
}

// mirror snapshots a response and schedules a detached write into the store.
// The write never gates the response: its outcome is logged and reported to
// the write observer, nothing more.
func (t *Transport) mirror(s Store, id string, resp *http.Response) {
	snap, err := Snapshot(resp)
	if err != nil {
		t.log.WithError(err).WithField("identity", id).Warn("snapshot response for caching")
		t.notifyWrite(id, err)
		return
	}
	go func() {
		err := s.Put(context.Background(), id, snap)
		if err != nil {
			t.log.WithError(err).WithField("identity", id).Warn("cache write failed")
		}
		t.notifyWrite(id, err)
	}()
}

func (t *Transport) notifyWrite(id string, err error) {
	if t.observe != nil {
		t.observe(id, err)
	}
}

func (t *Transport) openStore(ctx context.Context, name string) Store {
	s, err := t.stores.Open(ctx, name)
	if err != nil {
		t.log.WithError(err).WithField("store", name).Warn("open cache store")
		return nil
	}
	return s
}

// shellIdentity is the identity the root document was precached under.
func (t *Transport) shellIdentity(r *http.Request) string {
	origin := t.origin
	if origin == "" {
		origin = requestOrigin(r)
	}
	return http.MethodGet + " " + origin + "/"
}

// isNavigation reports whether a request is a page navigation, which is
// eligible for the offline-shell fallback.
func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func unavailableJSON(r *http.Request) *http.Response {
	return synthesized(r, []byte(`{"error":"service unavailable","offline":true}`), "application/json")
}

func unavailableText(r *http.Request) *http.Response {
	return synthesized(r, []byte("offline"), "text/plain; charset=utf-8")
}

func synthesized(r *http.Request, body []byte, contentType string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", contentType)
	return &http.Response{
		Status:        "503 Service Unavailable",
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}
