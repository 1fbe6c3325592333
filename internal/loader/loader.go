package loader

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

// ErrClassNotFound is wrapped by every loader when a resource is absent
var ErrClassNotFound = errors.New("class not found")

// ClassLoader resolves class path resources such as "a/b/C.class". Loaders
// only hand out bytes; nothing is ever executed.
type ClassLoader interface {
	Resource(name string) ([]byte, error)
	String() string
}

// notFound builds the error loaders return for a missing resource
func notFound(name string, where fmt.Stringer) error {
	return fmt.Errorf("%w: %s in %s", ErrClassNotFound, name, where)
}

// LoadClass reads and parses a class by dotted or internal name
func LoadClass(l ClassLoader, className string) (*classfile.Class, error) {
	data, err := l.Resource(reference.ToResourceName(className))
	if err != nil {
		return nil, err
	}
	cls, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s from %s: %w", className, l, err)
	}
	return cls, nil
}

// MapLoader serves classes held in memory, keyed by resource name
type MapLoader struct {
	Name      string
	Resources map[string][]byte
}

func NewMapLoader(name string) *MapLoader {
	return &MapLoader{Name: name, Resources: make(map[string][]byte)}
}

// AddClass stores class bytes under the resource name of className
func (m *MapLoader) AddClass(className string, data []byte) *MapLoader {
	m.Resources[reference.ToResourceName(className)] = data
	return m
}

func (m *MapLoader) Resource(name string) ([]byte, error) {
	data, ok := m.Resources[name]
	if !ok {
		return nil, notFound(name, m)
	}
	return data, nil
}

// ResourceNames lists the stored resources in sorted order
func (m *MapLoader) ResourceNames() []string {
	return slices.Sorted(maps.Keys(m.Resources))
}

func (m *MapLoader) String() string {
	if m.Name == "" {
		return "memory"
	}
	return m.Name
}
