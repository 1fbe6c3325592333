package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirLoader serves classes from an exploded class directory
type DirLoader struct {
	Root string
}

func NewDirLoader(root string) *DirLoader {
	return &DirLoader{Root: root}
}

func (d *DirLoader) Resource(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid resource name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name, d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", name, d, err)
	}
	return data, nil
}

// ClassNames walks the directory and returns every class it holds, in
// dotted form.
func (d *DirLoader) ClassNames() ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		names = append(names, resourceToClassName(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list classes in %s: %w", d, err)
	}
	return names, nil
}

func (d *DirLoader) String() string {
	return d.Root
}

func resourceToClassName(resource string) string {
	return strings.ReplaceAll(strings.TrimSuffix(resource, ".class"), "/", ".")
}
