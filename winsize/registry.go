package winsize

import "sync"

// registry is the process-wide collection of active trackers, inserted at
// construction and removed on Close. Every Tracker routes SIGWINCH
// through its own os/signal channel rather than a raw handler, so there
// is no handler-vs-registry-mutation race to guard against; the registry
// exists for diagnostics and so teardown is observable.
var registry = struct {
	mu       sync.Mutex
	trackers map[*Tracker]struct{}
}{trackers: make(map[*Tracker]struct{})}

func registryAdd(t *Tracker) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.trackers[t] = struct{}{}
}

func registryRemove(t *Tracker) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.trackers, t)
}

// Active returns the number of currently-registered trackers. Exposed for
// tests that need to assert teardown actually ran.
func Active() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.trackers)
}
