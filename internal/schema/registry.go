package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the process-wide descriptor cache. It is append-only: a
// descriptor is built at most usefully once per type and never replaced or
// evicted. Two callers racing to define the same type may both build it;
// insert-if-absent keeps one and both observe a fully-built descriptor.
// Changing a registration requires a process restart.
type Registry struct {
	m sync.Map // type name -> *Descriptor
}

// NewRegistry creates an empty registry. Most callers share Default.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default is the shared process-wide registry.
var Default = NewRegistry()

// Define builds and caches the descriptor for the named type. When the type
// is already registered the cached descriptor is returned and fn is not
// invoked. Foreign-key targets are resolved against this registry.
func (r *Registry) Define(name string, fn func(*Builder)) (*Descriptor, error) {
	if d, ok := r.m.Load(name); ok {
		return d.(*Descriptor), nil
	}
	b := Define(name)
	fn(b)
	d, err := b.build(r)
	if err != nil {
		return nil, err
	}
	actual, _ := r.m.LoadOrStore(name, d)
	return actual.(*Descriptor), nil
}

// MustDefine is Define for init-time registrations that cannot fail.
func (r *Registry) MustDefine(name string, fn func(*Builder)) *Descriptor {
	d, err := r.Define(name, fn)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return d
}

// Lookup returns the cached descriptor for a type.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.m.Load(name)
	if !ok {
		return nil, false
	}
	return d.(*Descriptor), true
}

// Descriptors returns every registered descriptor, ordered by type name.
func (r *Registry) Descriptors() []*Descriptor {
	var out []*Descriptor
	r.m.Range(func(_, v any) bool {
		out = append(out, v.(*Descriptor))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) tableKnown(table string) bool {
	known := false
	r.m.Range(func(_, v any) bool {
		if v.(*Descriptor).Table == table {
			known = true
			return false
		}
		return true
	})
	return known
}

// Register defines a type in the Default registry.
func Register(name string, fn func(*Builder)) (*Descriptor, error) {
	return Default.Define(name, fn)
}

// MustRegister defines a type in the Default registry and panics on a
// mapping error.
func MustRegister(name string, fn func(*Builder)) *Descriptor {
	return Default.MustDefine(name, fn)
}

// Lookup reads the Default registry.
func Lookup(name string) (*Descriptor, bool) {
	return Default.Lookup(name)
}
