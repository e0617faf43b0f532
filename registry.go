package renderpass

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/renderpass/gfx"
)

// ErrUnknownPass is returned when no factory is registered under a name.
var ErrUnknownPass = errors.New("renderpass: unknown pass type")

// Factory creates a pass from its parameter dictionary. ctx may be used to
// allocate long-lived resources; a nil ctx defers allocation to Execute.
type Factory func(ctx gfx.Context, dict Dictionary) (Pass, error)

// Desc describes a registered pass type.
type Desc struct {
	Name    string
	Summary string
	Factory Factory
}

// Registry maps pass type names to factories. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]Desc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]Desc)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry pass packages register into from
// their init functions.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a pass type. Registering a name twice replaces the
// earlier factory.
func (r *Registry) Register(d Desc) error {
	if d.Name == "" || d.Factory == nil {
		return fmt.Errorf("renderpass: register %q: name and factory are required", d.Name)
	}
	r.mu.Lock()
	r.descs[d.Name] = d
	r.mu.Unlock()
	return nil
}

// Lookup returns the description of a registered pass type.
func (r *Registry) Lookup(name string) (Desc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	return d, ok
}

// Names returns the registered pass types in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.descs))
	for n := range r.descs {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// New creates a pass of the named type.
func (r *Registry) New(ctx gfx.Context, name string, dict Dictionary) (Pass, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPass, name)
	}
	if dict == nil {
		dict = NewDictionary()
	}
	p, err := d.Factory(ctx, dict)
	if err != nil {
		return nil, fmt.Errorf("renderpass: create %s: %w", name, err)
	}
	return p, nil
}

// Create is New for hosts that drop failed passes: it logs the failure and
// returns nil.
func (r *Registry) Create(ctx gfx.Context, name string, dict Dictionary) Pass {
	p, err := r.New(ctx, name, dict)
	if err != nil {
		Logger().Error("renderpass: pass creation failed", "pass", name, "err", err)
		return nil
	}
	Logger().Info("renderpass: pass created", "pass", name)
	return p
}

// Register adds a pass type to the default registry. Pass packages call
// it from init and panic on error.
func Register(d Desc) {
	if err := defaultRegistry.Register(d); err != nil {
		panic(err)
	}
}

// Create creates a pass from the default registry, logging and returning
// nil on failure.
func Create(ctx gfx.Context, name string, dict Dictionary) Pass {
	return defaultRegistry.Create(ctx, name, dict)
}
