// Package registry implements the thread-safe (dimension, name) -> value
// store described in spec.md §4.1 (C1): lazy initialization, entry-point
// style discovery, and declarative CLI construction all read from it.
package registry

import (
	"sync"

	"github.com/sswlabs/foundation/pkg/ferrors"
)

// Entry is one registered (dimension, name) -> value record.
type Entry struct {
	Dimension string
	Name      string
	Value     interface{}
	Metadata  map[string]interface{}
	Aliases   []string
}

type dimensionStore struct {
	order   []string           // names in insertion order
	entries map[string]*Entry  // name -> entry
	aliases map[string]string  // alias -> canonical name
}

func newDimensionStore() *dimensionStore {
	return &dimensionStore{
		entries: make(map[string]*Entry),
		aliases: make(map[string]string),
	}
}

// Registry is a multi-dimensional store guarded by a single sync.RWMutex,
// which is not reentrant: no method calls another while holding it. Reads
// are expected to dominate; writes happen at init time (spec.md §4.1).
type Registry struct {
	mu   sync.RWMutex
	dims map[string]*dimensionStore
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{dims: make(map[string]*dimensionStore)}
}

// Options configure a Register call.
type Options struct {
	Metadata map[string]interface{}
	Aliases  []string
	Replace  bool
}

// Register inserts name -> value under dimension. With Replace=false a
// duplicate (dimension, name) or an alias colliding with any existing name
// or alias fails with ferrors.KindAlreadyExists.
func (r *Registry) Register(dimension, name string, value interface{}, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.dims[dimension]
	if !ok {
		ds = newDimensionStore()
		r.dims[dimension] = ds
	}

	_, nameTaken := ds.entries[name]
	_, nameIsAlias := ds.aliases[name]
	if (nameTaken || nameIsAlias) && !opts.Replace {
		return ferrors.AlreadyExists("registry", "register",
			"name already registered in dimension "+dimension).WithMeta("name", name)
	}

	for _, alias := range opts.Aliases {
		if alias == name {
			continue
		}
		if canonical, exists := ds.aliases[alias]; exists && canonical != name && !opts.Replace {
			return ferrors.AlreadyExists("registry", "register",
				"alias already registered in dimension "+dimension).WithMeta("alias", alias)
		}
		if _, exists := ds.entries[alias]; exists && !opts.Replace {
			return ferrors.AlreadyExists("registry", "register",
				"alias collides with an existing name in dimension "+dimension).WithMeta("alias", alias)
		}
	}

	if nameTaken && opts.Replace {
		// Replacing in place preserves original insertion order.
		entry := ds.entries[name]
		entry.Value = value
		entry.Metadata = opts.Metadata
		entry.Aliases = append([]string(nil), opts.Aliases...)
		for _, alias := range opts.Aliases {
			ds.aliases[alias] = name
		}
		return nil
	}
	if nameIsAlias && opts.Replace {
		delete(ds.aliases, name)
	}

	ds.order = append(ds.order, name)
	ds.entries[name] = &Entry{
		Dimension: dimension,
		Name:      name,
		Value:     value,
		Metadata:  opts.Metadata,
		Aliases:   append([]string(nil), opts.Aliases...),
	}
	for _, alias := range opts.Aliases {
		ds.aliases[alias] = name
	}
	return nil
}

// Get resolves name (or an alias of name) within dimension.
func (r *Registry) Get(dimension, name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.dims[dimension]
	if !ok {
		return nil, false
	}
	if canonical, ok := ds.aliases[name]; ok {
		name = canonical
	}
	entry, ok := ds.entries[name]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// Contains reports whether name (or an alias) is registered in dimension.
func (r *Registry) Contains(dimension, name string) bool {
	_, ok := r.Get(dimension, name)
	return ok
}

// Remove deletes name (and its aliases) from dimension, reporting whether
// anything was removed.
func (r *Registry) Remove(dimension, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.dims[dimension]
	if !ok {
		return false
	}
	if canonical, ok := ds.aliases[name]; ok {
		name = canonical
	}
	entry, ok := ds.entries[name]
	if !ok {
		return false
	}
	for _, alias := range entry.Aliases {
		delete(ds.aliases, alias)
	}
	delete(ds.entries, name)
	for i, n := range ds.order {
		if n == name {
			ds.order = append(ds.order[:i], ds.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns entries in insertion order. When dimension is "" every
// dimension is returned, dimension-major; entries keep insertion order
// within each dimension, but the order of the dimensions themselves follows
// Go map iteration and is not defined.
func (r *Registry) List(dimension string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if dimension != "" {
		ds, ok := r.dims[dimension]
		if !ok {
			return nil
		}
		return snapshotOrdered(ds)
	}

	var out []Entry
	for _, ds := range r.dims {
		out = append(out, snapshotOrdered(ds)...)
	}
	return out
}

func snapshotOrdered(ds *dimensionStore) []Entry {
	out := make([]Entry, 0, len(ds.order))
	for _, name := range ds.order {
		out = append(out, *ds.entries[name])
	}
	return out
}

// Reset clears every dimension, used by Hub.ResetForTesting.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dims = make(map[string]*dimensionStore)
}
