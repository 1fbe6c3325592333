package loader

import "github.com/mabhi256/jmuzzle/internal/reference"

// ClassLoaderMatcher is a cheap predicate over a class loader, used to rule
// out loaders before running a full reference match.
type ClassLoaderMatcher func(ClassLoader) bool

// HasClassNamed matches loaders that can resolve the named class
func HasClassNamed(className string) ClassLoaderMatcher {
	resource := reference.ToResourceName(className)
	return func(l ClassLoader) bool {
		if checker, ok := l.(interface{ HasResource(string) bool }); ok {
			return checker.HasResource(resource)
		}
		_, err := l.Resource(resource)
		return err == nil
	}
}

// HasClassesNamed matches loaders that resolve every named class. With no
// names it matches everything.
func HasClassesNamed(classNames ...string) ClassLoaderMatcher {
	matchers := make([]ClassLoaderMatcher, len(classNames))
	for i, name := range classNames {
		matchers[i] = HasClassNamed(name)
	}
	return func(l ClassLoader) bool {
		for _, m := range matchers {
			if !m(l) {
				return false
			}
		}
		return true
	}
}

// HasResource reports presence without reading the entry
func (j *JarLoader) HasResource(name string) bool {
	_, ok := j.entries[name]
	return ok
}

func (m *MapLoader) HasResource(name string) bool {
	_, ok := m.Resources[name]
	return ok
}
