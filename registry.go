package offlinecache

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRetryDelay is how long the registry waits before the single retry
// after an invalid-registration-state error.
const DefaultRetryDelay = 300 * time.Millisecond

// Registration binds a caching transport and its lifecycle controller to a
// scope. The hosting application holds exactly one registration per origin at
// the root scope.
type Registration struct {
	Scope     string
	Transport *Transport
	Lifecycle *Controller
}

// Registry manages registrations by scope. Registering an already-registered
// scope reuses the existing registration rather than creating a duplicate.
type Registry struct {
	mu         sync.Mutex
	regs       map[string]*Registration
	retryDelay time.Duration
	log        logrus.FieldLogger
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		regs:       make(map[string]*Registration),
		retryDelay: DefaultRetryDelay,
		log:        logrus.StandardLogger(),
	}
}

// Register returns the registration for the scope, building it on first use.
// If the builder reports ErrInvalidRegistrationState, every existing
// registration is torn down and the build is retried once after a short fixed
// delay; a second failure is returned to the caller.
func (g *Registry) Register(scope string, build func() (*Registration, error)) (*Registration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if reg, ok := g.regs[scope]; ok {
		return reg, nil
	}

	reg, err := build()
	if errors.Is(err, ErrInvalidRegistrationState) {
		g.log.WithField("scope", scope).Warn("invalid registration state, unregistering all and retrying")
		g.unregisterAllLocked()
		time.Sleep(g.retryDelay)
		reg, err = build()
	}
	if err != nil {
		return nil, err
	}

	reg.Scope = scope
	g.regs[scope] = reg
	return reg, nil
}

// Lookup returns the registration for the scope, if any
func (g *Registry) Lookup(scope string) (*Registration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	reg, ok := g.regs[scope]
	return reg, ok
}

// Unregister removes the registration for the scope and stops its lifecycle
// controller.
func (g *Registry) Unregister(scope string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if reg, ok := g.regs[scope]; ok {
		if reg.Lifecycle != nil {
			reg.Lifecycle.Close()
		}
		delete(g.regs, scope)
	}
}

// UnregisterAll removes every registration
func (g *Registry) UnregisterAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unregisterAllLocked()
}

func (g *Registry) unregisterAllLocked() {
	for scope, reg := range g.regs {
		if reg.Lifecycle != nil {
			reg.Lifecycle.Close()
		}
		delete(g.regs, scope)
	}
}
