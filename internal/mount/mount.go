// Package mount implements the foreign-mount interface of spec.md §4.7:
// external collaborators expose a remote dataset as a local schema of
// live tables. The core only depends on the Handler interface and a
// small registry; concrete handlers (beyond the filecsv reference
// implementation) are out of scope.
package mount

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cxz/splitgraph/internal/engine"
)

// Handler mounts a remote dataset as a schema of live tables and tears
// it back down. Implementations own their own connection lifecycle;
// Mount/Unmount just sequence the calls and track what's mounted.
type Handler interface {
	// Mount connects to conn (a handler-specific connection string),
	// creates schema in eng, and populates it with one live table per
	// dataset entity. options carries handler-specific tuning.
	Mount(ctx context.Context, eng engine.Engine, schema, conn string, options map[string]string) error
	// Unmount tears down whatever Mount created in schema.
	Unmount(ctx context.Context, eng engine.Engine, schema string) error
}

var registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// Register makes a handler available under name, for use by Mount.
// Re-registering a name replaces the previous handler — tests do this
// to install fakes.
func Register(name string, h Handler) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.handlers == nil {
		registry.handlers = make(map[string]Handler)
	}
	registry.handlers[name] = h
}

// Lookup returns the handler registered under name, if any.
func Lookup(name string) (Handler, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	h, ok := registry.handlers[name]
	return h, ok
}

// Names returns every registered handler name, sorted.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0, len(registry.handlers))
	for name := range registry.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Mountpoint tracks one active mount, the state `unmount` needs to find
// the right handler again.
type Mountpoint struct {
	Schema      string
	HandlerName string
}

// Registry of active mountpoints, separate from the handler registry
// above (one maps names to implementations, this maps schemas to which
// implementation mounted them).
type Registry struct {
	mu     sync.Mutex
	active map[string]Mountpoint // by schema
}

// NewRegistry returns an empty mountpoint tracker.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]Mountpoint)}
}

// Mount resolves handlerName, calls its Mount into mountpoint, and
// records the mountpoint so a later Unmount can find the handler
// again, per spec.md §4.7: `mount(handler_name, mountpoint, conn,
// options) -> schema`.
func (r *Registry) Mount(ctx context.Context, eng engine.Engine, handlerName, mountpoint, conn string, options map[string]string) (string, error) {
	h, ok := Lookup(handlerName)
	if !ok {
		return "", fmt.Errorf("mount: no handler registered under %q", handlerName)
	}
	if err := h.Mount(ctx, eng, mountpoint, conn, options); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.active[mountpoint] = Mountpoint{Schema: mountpoint, HandlerName: handlerName}
	r.mu.Unlock()
	return mountpoint, nil
}

// Unmount tears down mountpoint via the handler that created it, per
// spec.md §4.7's `unmount(mountpoint)`.
func (r *Registry) Unmount(ctx context.Context, eng engine.Engine, mountpoint string) error {
	r.mu.Lock()
	mp, ok := r.active[mountpoint]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("mount: %q is not mounted", mountpoint)
	}
	h, ok := Lookup(mp.HandlerName)
	if !ok {
		return fmt.Errorf("mount: handler %q for %q is no longer registered", mp.HandlerName, mountpoint)
	}
	if err := h.Unmount(ctx, eng, mountpoint); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.active, mountpoint)
	r.mu.Unlock()
	return nil
}

// IsMounted reports whether schema is a live mountpoint, the check
// repository Commit and Checkout use to refuse an audit trigger on a foreign table
// (spec.md §4.7: "cannot be committed into — no audit trigger on
// foreign tables").
func (r *Registry) IsMounted(schema string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[schema]
	return ok
}
