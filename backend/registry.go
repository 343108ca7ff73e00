package backend

import (
	"fmt"
	"sort"

	"github.com/gogpu/gpucontext"
)

// Well-known backend names.
const (
	NameGLES  = "gles"
	NameSoft  = "soft"
	NameTrace = "trace"
)

// Backend opens native call tables for one kind of graphics context.
type Backend interface {
	// Name returns the registered backend name.
	Name() string

	// Open loads the call table. It is invoked on the goroutine that will
	// own the context.
	Open() (*Procs, error)
}

// backends holds registered factories. Real drivers win over the
// software rasterizer, which wins over the call tracer.
var backends = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(NameGLES, NameSoft, NameTrace),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory func() Backend) {
	backends.Register(name, factory)
}

// Unregister removes a backend from the registry.
func Unregister(name string) {
	backends.Unregister(name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	names := backends.Available()
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Get returns a backend instance by name, or nil if none is registered.
func Get(name string) Backend {
	return backends.Get(name)
}

// Default returns the highest priority registered backend, or nil.
func Default() Backend {
	return backends.Best()
}

// DefaultName returns the name Default would pick.
func DefaultName() string {
	return backends.BestName()
}

// Open resolves a backend by name and loads its call table. An empty name
// selects the default backend. The returned table is validated.
func Open(name string) (*Procs, error) {
	var b Backend
	if name == "" {
		b = Default()
	} else {
		b = Get(name)
	}
	if b == nil {
		if name == "" {
			return nil, ErrBackendNotAvailable
		}
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}

	procs, err := b.Open()
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", b.Name(), err)
	}
	if err := procs.Validate(); err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", b.Name(), err)
	}
	slogger().Debug("backend opened", "name", b.Name())
	return procs, nil
}
