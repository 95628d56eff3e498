package offlinecache

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Version identifies one deployed generation of the caching layer by the two
// store names it owns. Exactly one precache and one runtime store are live at
// a time; activation purges every other store name.
type Version struct {
	Precache string
	Runtime  string
}

// NewVersion derives the two store names from a release tag, e.g. "v3".
func NewVersion(tag string) Version {
	return Version{
		Precache: "precache-" + tag,
		Runtime:  "runtime-" + tag,
	}
}

func (v Version) owns(name string) bool {
	return name == v.Precache || name == v.Runtime
}

// State is a lifecycle controller state
type State int32

const (
	StateNew State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActive
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// DefaultSeedAssets is the default precache seed list: the root document, the
// manifest, and the primary icon assets.
var DefaultSeedAssets = []string{
	"/",
	"/index.html",
	"/manifest.json",
	"/icons/icon-192x192.png",
	"/icons/icon-512x512.png",
}

// Controller manages the caching layer's own lifecycle: installation
// pre-populates the precache, activation evicts stale store generations, and
// a recurring best-effort check looks for newer versions. It never forces a
// live session to reload; a new version only mediates new requests.
type Controller struct {
	stores  Stores
	version Version
	base    http.RoundTripper
	origin  string
	seeds   []string
	log     logrus.FieldLogger

	state       atomic.Int32
	check       func(ctx context.Context) error
	onInstalled func(v Version)
	onActivated func(v Version)

	stop      chan struct{}
	closeOnce sync.Once
	done      sync.WaitGroup
}

// NewController creates a lifecycle controller for the given version.
func NewController(stores Stores, version Version, opts ...ControllerOption) *Controller {
	config := &ControllerConfig{
		Base:   http.DefaultTransport,
		Seeds:  DefaultSeedAssets,
		Logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(config)
	}

	return &Controller{
		stores:      stores,
		version:     version,
		base:        config.Base,
		origin:      config.Origin,
		seeds:       config.Seeds,
		log:         config.Logger,
		check:       config.UpdateCheck,
		onInstalled: config.OnInstalled,
		onActivated: config.OnActivated,
		stop:        make(chan struct{}),
	}
}

// State returns the controller's current lifecycle state
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Version returns the version this controller manages
func (c *Controller) Version() Version {
	return c.version
}

// Install fetches every seed asset through the base transport and populates
// the precache store. The seed set is all-or-nothing: if any fetch fails, no
// precache store is left behind and a previously active version keeps
// serving.
func (c *Controller) Install(ctx context.Context) error {
	c.state.Store(int32(StateInstalling))
	c.log.WithField("version", c.version.Precache).Info("installing")

	snapshots := make(map[string]*CachedResponse, len(c.seeds))
	for _, seed := range c.seeds {
		id, snap, err := c.fetchSeed(ctx, seed)
		if err != nil {
			return fmt.Errorf("install seed %s: %w", seed, err)
		}
		snapshots[id] = snap
	}

	pre, err := c.stores.Open(ctx, c.version.Precache)
	if err != nil {
		return fmt.Errorf("open precache store: %w", err)
	}
	for id, snap := range snapshots {
		if err := pre.Put(ctx, id, snap); err != nil {
			// Roll back the partial store so install stays all-or-nothing.
			if derr := c.stores.Drop(ctx, c.version.Precache); derr != nil {
				c.log.WithError(derr).Warn("drop partial precache store")
			}
			return fmt.Errorf("precache %s: %w", id, err)
		}
	}

	c.state.Store(int32(StateInstalled))
	c.log.WithField("seeds", len(c.seeds)).Info("installed")
	if c.onInstalled != nil {
		c.onInstalled(c.version)
	}
	return nil
}

func (c *Controller) fetchSeed(ctx context.Context, seed string) (string, *CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.origin+seed, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	snap, err := Snapshot(resp)
	if err != nil {
		return "", nil, err
	}
	return Identity(req), snap, nil
}

// Activate purges every store whose name belongs to neither the current
// precache nor the current runtime store, then marks this version active.
// Requests from already-open sessions are mediated immediately; nothing is
// reloaded.
func (c *Controller) Activate(ctx context.Context) error {
	c.state.Store(int32(StateActivating))

	names, err := c.stores.Names(ctx)
	if err != nil {
		return fmt.Errorf("list cache stores: %w", err)
	}

	var firstErr error
	for _, name := range names {
		if c.version.owns(name) {
			continue
		}
		c.log.WithField("store", name).Info("purging stale cache store")
		if err := c.stores.Drop(ctx, name); err != nil {
			c.log.WithError(err).WithField("store", name).Warn("drop stale cache store")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return firstErr
	}

	c.state.Store(int32(StateActive))
	c.log.Info("activated")
	if c.onActivated != nil {
		c.onActivated(c.version)
	}
	return nil
}

// StartUpdateChecks runs the configured update check on a fixed interval
// until Close is called. Check failures are logged and otherwise ignored;
// freshness is a nicety, not a correctness concern.
func (c *Controller) StartUpdateChecks(interval time.Duration) {
	if c.check == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}

	c.done.Add(1)
	go func() {
		defer c.done.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.check(context.Background()); err != nil {
					c.log.WithError(err).Debug("update check failed")
				}
			case <-c.stop:
				return
			}
		}
	}()
}

// Close stops the update-check loop. It is safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	c.done.Wait()
}
