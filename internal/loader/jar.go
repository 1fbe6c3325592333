package loader

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"sync"
)

// JarLoader serves classes from a jar. Entries are read lazily; the
// archive stays open until Close.
type JarLoader struct {
	path    string
	reader  *zip.ReadCloser
	entries map[string]*zip.File
	mu      sync.Mutex
}

func OpenJar(path string) (*JarLoader, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar %s: %w", path, err)
	}
	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}
	return &JarLoader{path: path, reader: r, entries: entries}, nil
}

func (j *JarLoader) Resource(name string) ([]byte, error) {
	f, ok := j.entries[name]
	if !ok {
		return nil, notFound(name, j)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in %s: %w", name, j, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", name, j, err)
	}
	return data, nil
}

// ClassNames returns every class in the jar in dotted form, skipping
// module-info and multi-release variants.
func (j *JarLoader) ClassNames() []string {
	var names []string
	for name := range j.entries {
		if !strings.HasSuffix(name, ".class") || strings.HasPrefix(name, "META-INF/") ||
			strings.HasSuffix(name, "module-info.class") {
			continue
		}
		names = append(names, resourceToClassName(name))
	}
	return names
}

func (j *JarLoader) Close() error {
	return j.reader.Close()
}

func (j *JarLoader) String() string {
	return j.path
}
