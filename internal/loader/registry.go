package loader

import (
	"maps"
	"sync"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

// BaseRegistry is a concurrency-safe key-value store
type BaseRegistry[K comparable, V any] struct {
	data map[K]V
	mu   sync.RWMutex
}

func NewBaseRegistry[K comparable, V any]() *BaseRegistry[K, V] {
	return &BaseRegistry[K, V]{
		data: make(map[K]V),
	}
}

// Get retrieves an item from the registry
func (r *BaseRegistry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, exists := r.data[key]
	return value, exists
}

// GetOrAdd returns the stored value for key, computing and storing it
// with fn when absent. fn runs without the lock held, so two callers may
// compute the same key; the first stored value wins.
func (r *BaseRegistry[K, V]) GetOrAdd(key K, fn func() V) V {
	if value, ok := r.Get(key); ok {
		return value
	}
	value := fn()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.data[key]; ok {
		return existing
	}
	r.data[key] = value
	return value
}

// GetAll returns all items (copy to prevent external modification)
func (r *BaseRegistry[K, V]) GetAll() map[K]V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[K]V, len(r.data))
	maps.Copy(result, r.data)
	return result
}

// Count returns the number of items
func (r *BaseRegistry[K, V]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

type classEntry struct {
	class *classfile.Class
	err   error
}

// ClassRegistry caches parsed classes of one loader, including lookups that
// failed, so a class is read and parsed at most once per run.
type ClassRegistry struct {
	loader  ClassLoader
	classes *BaseRegistry[string, classEntry]
}

func NewClassRegistry(l ClassLoader) *ClassRegistry {
	return &ClassRegistry{
		loader:  l,
		classes: NewBaseRegistry[string, classEntry](),
	}
}

// Class loads a class by dotted or internal name
func (r *ClassRegistry) Class(className string) (*classfile.Class, error) {
	name := reference.ToClassName(className)
	entry := r.classes.GetOrAdd(name, func() classEntry {
		cls, err := LoadClass(r.loader, name)
		return classEntry{class: cls, err: err}
	})
	return entry.class, entry.err
}

func (r *ClassRegistry) Loader() ClassLoader {
	return r.loader
}

// Loaded returns the classes parsed successfully so far
func (r *ClassRegistry) Loaded() map[string]*classfile.Class {
	loaded := make(map[string]*classfile.Class)
	for name, entry := range r.classes.GetAll() {
		if entry.err == nil {
			loaded[name] = entry.class
		}
	}
	return loaded
}

func (r *ClassRegistry) Count() int {
	return r.classes.Count()
}
