package offlinecache_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unistay/offlinecache"
	"github.com/unistay/offlinecache/store"
)

var testSeeds = []string{"/", "/manifest.webmanifest", "/icons/icon-192x192.png"}

func seedNetwork(failPath string) *fakeTransport {
	return &fakeTransport{handler: func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == failPath {
			return nil, errNetworkDown
		}
		return okResponse(r, "text/html", "seed:"+r.URL.Path)
	}}
}

func TestController_InstallPopulatesPrecache(t *testing.T) {
	backend := store.NewMemory()
	installed := false
	ctrl := offlinecache.NewController(backend, offlinecache.NewVersion("v1"),
		offlinecache.WithControllerBase(seedNetwork("")),
		offlinecache.WithControllerOrigin(testOrigin),
		offlinecache.WithSeedAssets(testSeeds),
		offlinecache.WithOnInstalled(func(v offlinecache.Version) { installed = true }),
	)

	require.NoError(t, ctrl.Install(context.Background()))
	assert.Equal(t, offlinecache.StateInstalled, ctrl.State())
	assert.True(t, installed)

	pre, err := backend.Open(context.Background(), "precache-v1")
	require.NoError(t, err)
	for _, seed := range testSeeds {
		cached, err := pre.Get(context.Background(), "GET "+testOrigin+seed)
		require.NoError(t, err, "seed %s should be precached", seed)
		assert.Equal(t, http.StatusOK, cached.StatusCode)
		assert.Equal(t, "seed:"+seed, string(cached.Body))
	}
}

func TestController_InstallIsAllOrNothing(t *testing.T) {
	backend := store.NewMemory()

	// A store belonging to a previously active version must survive.
	_, err := backend.Open(context.Background(), "precache-v0")
	require.NoError(t, err)

	ctrl := offlinecache.NewController(backend, offlinecache.NewVersion("v1"),
		offlinecache.WithControllerBase(seedNetwork("/icons/icon-192x192.png")),
		offlinecache.WithControllerOrigin(testOrigin),
		offlinecache.WithSeedAssets(testSeeds),
	)

	err = ctrl.Install(context.Background())
	require.Error(t, err)

	names, err := backend.Names(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, names, "precache-v1", "failed install leaves no precache store")
	assert.Contains(t, names, "precache-v0", "previous version keeps serving")
}

func TestController_InstallFailsOnNon200Seed(t *testing.T) {
	backend := store.NewMemory()
	network := &fakeTransport{handler: func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/manifest.webmanifest" {
			resp, _ := okResponse(r, "text/plain", "not found")
			resp.StatusCode = http.StatusNotFound
			resp.Status = "404 Not Found"
			return resp, nil
		}
		return okResponse(r, "text/html", "ok")
	}}

	ctrl := offlinecache.NewController(backend, offlinecache.NewVersion("v1"),
		offlinecache.WithControllerBase(network),
		offlinecache.WithControllerOrigin(testOrigin),
		offlinecache.WithSeedAssets(testSeeds),
	)

	require.Error(t, ctrl.Install(context.Background()))
	names, err := backend.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestController_ActivatePurgesStaleStores(t *testing.T) {
	backend := store.NewMemory()
	ctx := context.Background()
	for _, name := range []string{
		"precache-v1", "runtime-v1",
		"precache-v0", "runtime-v0", "precache-legacy",
	} {
		_, err := backend.Open(ctx, name)
		require.NoError(t, err)
	}

	activated := false
	ctrl := offlinecache.NewController(backend, offlinecache.NewVersion("v1"),
		offlinecache.WithControllerOrigin(testOrigin),
		offlinecache.WithOnActivated(func(v offlinecache.Version) { activated = true }),
	)

	require.NoError(t, ctrl.Activate(ctx))
	assert.Equal(t, offlinecache.StateActive, ctrl.State())
	assert.True(t, activated)

	names, err := backend.Names(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"precache-v1", "runtime-v1"}, names)
}

func TestController_UpdateChecksAreBestEffort(t *testing.T) {
	var checks atomic.Int32
	ctrl := offlinecache.NewController(store.NewMemory(), offlinecache.NewVersion("v1"),
		offlinecache.WithControllerOrigin(testOrigin),
		offlinecache.WithUpdateCheck(func(ctx context.Context) error {
			checks.Add(1)
			return errNetworkDown // failures must not stop the loop
		}),
	)

	ctrl.StartUpdateChecks(10 * time.Millisecond)
	assert.Eventually(t, func() bool { return checks.Load() >= 2 },
		2*time.Second, 5*time.Millisecond)
	ctrl.Close()
}

func TestController_CloseIsIdempotent(t *testing.T) {
	ctrl := offlinecache.NewController(store.NewMemory(), offlinecache.NewVersion("v1"))
	ctrl.StartUpdateChecks(time.Minute)
	ctrl.Close()
	ctrl.Close()
}
