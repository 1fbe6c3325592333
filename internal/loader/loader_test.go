package loader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jmuzzle/internal/classfile"
)

func classBytes(t *testing.T, internalName string) []byte {
	t.Helper()
	data, err := classfile.NewClassWriter(classfile.AccPublic, internalName, "").Bytes()
	require.NoError(t, err)
	return data
}

func writeJar(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeClassDir(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
}

func TestMapLoader(t *testing.T) {
	l := NewMapLoader("test").AddClass("com.acme.Lib", classBytes(t, "com/acme/Lib"))

	cls, err := LoadClass(l, "com.acme.Lib")
	require.NoError(t, err)
	assert.Equal(t, "com/acme/Lib", cls.Name)

	_, err = LoadClass(l, "com/acme/Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Equal(t, []string{"com/acme/Lib.class"}, l.ResourceNames())
}

func TestLoadClassRejectsGarbage(t *testing.T) {
	l := NewMapLoader("").AddClass("a.B", []byte("not a class"))
	_, err := LoadClass(l, "a.B")
	assert.ErrorIs(t, err, classfile.ErrMalformedClass)
	assert.NotErrorIs(t, err, ErrClassNotFound)
}

func TestDirLoader(t *testing.T) {
	root := t.TempDir()
	writeClassDir(t, root, map[string][]byte{
		"com/acme/Lib.class":     classBytes(t, "com/acme/Lib"),
		"com/acme/sub/Ext.class": classBytes(t, "com/acme/sub/Ext"),
		"README.txt":             []byte("ignored"),
	})

	l := NewDirLoader(root)
	cls, err := LoadClass(l, "com.acme.sub.Ext")
	require.NoError(t, err)
	assert.Equal(t, "com/acme/sub/Ext", cls.Name)

	_, err = l.Resource("com/acme/Nope.class")
	assert.ErrorIs(t, err, ErrClassNotFound)

	_, err = l.Resource("../escape.class")
	assert.Error(t, err)

	names, err := l.ClassNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"com.acme.Lib", "com.acme.sub.Ext"}, names)
}

func TestJarLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.jar")
	writeJar(t, path, map[string][]byte{
		"com/acme/Lib.class":           classBytes(t, "com/acme/Lib"),
		"META-INF/MANIFEST.MF":         []byte("Manifest-Version: 1.0\n"),
		"META-INF/versions/11/X.class": {},
		"module-info.class":            {},
	})

	jar, err := OpenJar(path)
	require.NoError(t, err)
	defer jar.Close()

	cls, err := LoadClass(jar, "com.acme.Lib")
	require.NoError(t, err)
	assert.Equal(t, "com/acme/Lib", cls.Name)
	assert.Equal(t, []string{"com.acme.Lib"}, jar.ClassNames())

	_, err = jar.Resource("com/acme/Missing.class")
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestClasspathOrder(t *testing.T) {
	first := NewMapLoader("first").AddClass("a.Shared", classBytes(t, "a/Shared"))
	second := NewMapLoader("second").
		AddClass("a.Shared", []byte("shadowed")).
		AddClass("a.Only", classBytes(t, "a/Only"))
	cp := NewClasspath(first, second)

	_, err := LoadClass(cp, "a.Shared")
	require.NoError(t, err)
	_, err = LoadClass(cp, "a.Only")
	require.NoError(t, err)

	_, err = cp.Resource("a/None.class")
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Contains(t, err.Error(), "first")
}

func TestParseClasspath(t *testing.T) {
	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	writeClassDir(t, classes, map[string][]byte{"a/Dir.class": classBytes(t, "a/Dir")})
	jarPath := filepath.Join(dir, "lib.jar")
	writeJar(t, jarPath, map[string][]byte{"a/Jar.class": classBytes(t, "a/Jar")})

	cp, err := ParseClasspath(strings.Join([]string{classes, "", jarPath}, string(os.PathListSeparator)))
	require.NoError(t, err)
	defer cp.Close()
	require.Len(t, cp.Loaders, 2)

	names, err := cp.ClassNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.Dir", "a.Jar"}, names)

	_, err = ParseClasspath(filepath.Join(dir, "missing.jar"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = ParseClasspath(txt)
	assert.ErrorContains(t, err, "unsupported classpath entry")
}

type countingLoader struct {
	*MapLoader
	mu    sync.Mutex
	reads map[string]int
}

func (c *countingLoader) Resource(name string) ([]byte, error) {
	c.mu.Lock()
	c.reads[name]++
	c.mu.Unlock()
	return c.MapLoader.Resource(name)
}

func TestClassRegistryCaches(t *testing.T) {
	l := &countingLoader{
		MapLoader: NewMapLoader("count").AddClass("a.B", classBytes(t, "a/B")),
		reads:     make(map[string]int),
	}
	reg := NewClassRegistry(l)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cls, err := reg.Class("a/B")
			assert.NoError(t, err)
			assert.Equal(t, "a/B", cls.Name)
		}()
	}
	wg.Wait()

	_, err := reg.Class("a.Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
	_, err = reg.Class("a.Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)

	assert.Equal(t, 1, l.reads["a/Missing.class"])
	assert.Equal(t, 2, reg.Count())
	assert.Len(t, reg.Loaded(), 1)
}

func TestClassLoaderMatchers(t *testing.T) {
	l := NewMapLoader("m").
		AddClass("com.acme.Lib", classBytes(t, "com/acme/Lib")).
		AddClass("com.acme.Other", classBytes(t, "com/acme/Other"))
	empty := NewMapLoader("empty")

	assert.True(t, HasClassNamed("com.acme.Lib")(l))
	assert.True(t, HasClassNamed("com/acme/Lib")(l))
	assert.False(t, HasClassNamed("com.acme.Lib")(empty))

	assert.True(t, HasClassesNamed("com.acme.Lib", "com.acme.Other")(l))
	assert.False(t, HasClassesNamed("com.acme.Lib", "com.acme.Missing")(l))
	assert.True(t, HasClassesNamed()(empty))

	// a chain without HasResource falls back to reading
	assert.True(t, HasClassNamed("com.acme.Other")(NewClasspath(empty, l)))
}
