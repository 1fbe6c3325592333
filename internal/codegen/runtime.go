package codegen

import (
	"errors"
	"strings"

	"github.com/mabhi256/jmuzzle/internal/classfile"
)

// DefaultRuntimePackage holds the JVM-side ReferenceMatcher, Reference and
// Reference$Builder classes that generated code calls into.
const DefaultRuntimePackage = "io/jmuzzle/muzzle"

var ErrNotGenerated = errors.New("not a generated muzzle class")

// Runtime names the JVM package the generated create() method targets
type Runtime struct {
	Package string // internal form, e.g. io/jmuzzle/muzzle
}

func DefaultRuntime() Runtime {
	return Runtime{Package: DefaultRuntimePackage}
}

// NewRuntime accepts a dotted or internal package name
func NewRuntime(pkg string) Runtime {
	pkg = strings.Trim(strings.ReplaceAll(pkg, ".", "/"), "/")
	if pkg == "" {
		return DefaultRuntime()
	}
	return Runtime{Package: pkg}
}

func (r Runtime) class(simple string) string {
	if r.Package == "" {
		return DefaultRuntimePackage + "/" + simple
	}
	return r.Package + "/" + simple
}

func (r Runtime) MatcherClass() string   { return r.class("ReferenceMatcher") }
func (r Runtime) ReferenceClass() string { return r.class("Reference") }
func (r Runtime) BuilderClass() string   { return r.class("Reference$Builder") }

func objectType(internalName string) string {
	return "L" + internalName + ";"
}

const (
	stringType      = "Ljava/lang/String;"
	stringArrayType = "[Ljava/lang/String;"
	createMethod    = "create"
)

func (r Runtime) createDescriptor() string {
	return classfile.MethodDescriptor(objectType(r.MatcherClass()))
}

func (r Runtime) referenceFactoryDescriptor() string {
	return classfile.MethodDescriptor(objectType(r.ReferenceClass()))
}

func (r Runtime) matcherInitDescriptor() string {
	return classfile.MethodDescriptor("V", "["+objectType(r.ReferenceClass()))
}

// builder method descriptors by name
func (r Runtime) builderDescriptors() map[string]string {
	self := objectType(r.BuilderClass())
	return map[string]string{
		"<init>":        classfile.MethodDescriptor("V", stringType),
		"withSource":    classfile.MethodDescriptor(self, stringType, "I"),
		"withFlag":      classfile.MethodDescriptor(self, "I"),
		"withSuperName": classfile.MethodDescriptor(self, stringType),
		"withInterface": classfile.MethodDescriptor(self, stringType),
		"withField":     classfile.MethodDescriptor(self, stringArrayType, "I", stringType, stringType),
		"withMethod":    classfile.MethodDescriptor(self, stringArrayType, "I", stringType, stringType, stringArrayType),
		"build":         classfile.MethodDescriptor(objectType(r.ReferenceClass())),
	}
}

// runtimeFromCreate recovers the runtime package from create()'s descriptor
func runtimeFromCreate(descriptor string) (Runtime, bool) {
	const suffix = "/ReferenceMatcher;"
	if !strings.HasPrefix(descriptor, "()L") || !strings.HasSuffix(descriptor, suffix) {
		return Runtime{}, false
	}
	pkg := descriptor[len("()L") : len(descriptor)-len(suffix)]
	if pkg == "" {
		return Runtime{}, false
	}
	return Runtime{Package: pkg}, true
}
