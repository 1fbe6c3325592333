package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Classpath chains loaders; the first one holding a resource wins
type Classpath struct {
	Loaders []ClassLoader
}

func NewClasspath(loaders ...ClassLoader) *Classpath {
	return &Classpath{Loaders: loaders}
}

// ParseClasspath opens every entry of a class path string separated by the
// OS list separator. Entries ending in .jar or .zip are opened as archives,
// anything else as a class directory.
func ParseClasspath(classpath string) (*Classpath, error) {
	cp := &Classpath{}
	for _, entry := range filepath.SplitList(classpath) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		info, err := os.Stat(entry)
		if err != nil {
			cp.Close()
			return nil, fmt.Errorf("failed to open classpath entry %s: %w", entry, err)
		}

		ext := strings.ToLower(filepath.Ext(entry))
		switch {
		case info.IsDir():
			cp.Loaders = append(cp.Loaders, NewDirLoader(entry))
		case ext == ".jar" || ext == ".zip":
			jar, err := OpenJar(entry)
			if err != nil {
				cp.Close()
				return nil, err
			}
			cp.Loaders = append(cp.Loaders, jar)
		default:
			cp.Close()
			return nil, fmt.Errorf("unsupported classpath entry %s", entry)
		}
	}
	return cp, nil
}

func (c *Classpath) Resource(name string) ([]byte, error) {
	for _, l := range c.Loaders {
		data, err := l.Resource(name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}
	return nil, notFound(name, c)
}

// ClassNames lists the classes of every directory and jar entry
func (c *Classpath) ClassNames() ([]string, error) {
	var names []string
	for _, l := range c.Loaders {
		switch l := l.(type) {
		case *DirLoader:
			dirNames, err := l.ClassNames()
			if err != nil {
				return nil, err
			}
			names = append(names, dirNames...)
		case *JarLoader:
			names = append(names, l.ClassNames()...)
		}
	}
	return names, nil
}

// Close releases every entry that holds an open file
func (c *Classpath) Close() error {
	var errs []error
	for _, l := range c.Loaders {
		if closer, ok := l.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

func (c *Classpath) String() string {
	parts := make([]string, len(c.Loaders))
	for i, l := range c.Loaders {
		parts[i] = l.String()
	}
	return strings.Join(parts, string(os.PathListSeparator))
}
