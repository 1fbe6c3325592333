package reference

import (
	"errors"
	"fmt"

	"github.com/mabhi256/jmuzzle/internal/classfile"
)

var ErrClassNameMismatch = errors.New("cannot merge references to different classes")

// Reference is the shape one external class must have for the code that
// refers to it to link. It is immutable once built; use a Builder or Merge
// to derive new ones.
type Reference struct {
	ClassName  string // dotted
	Sources    []string
	Flags      Flags
	SuperName  string // dotted, "" when any superclass is fine
	Interfaces []string
	Fields     []Field
	Methods    []Method
}

type Field struct {
	Sources    []string
	Flags      Flags
	Name       string
	Descriptor string
}

type Method struct {
	Sources    []string
	Flags      Flags
	Name       string
	Descriptor string // full method descriptor, e.g. (I)Ljava/lang/String;
}

func (f Field) String() string {
	return f.Name + ":" + f.Descriptor
}

func (m Method) String() string {
	return m.Name + m.Descriptor
}

// ReturnAndParams splits the method descriptor
func (m Method) ReturnAndParams() (ret string, params []string, err error) {
	params, ret, err = classfile.ParseMethodDescriptor(m.Descriptor)
	return ret, params, err
}

func (r *Reference) Field(name, descriptor string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f, true
		}
	}
	return Field{}, false
}

func (r *Reference) Method(name, descriptor string) (Method, bool) {
	for _, m := range r.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return Method{}, false
}

// IsEmpty reports a reference that only requires the class to exist
func (r *Reference) IsEmpty() bool {
	return r.Flags == 0 && r.SuperName == "" && len(r.Interfaces) == 0 &&
		len(r.Fields) == 0 && len(r.Methods) == 0
}

func (r *Reference) String() string {
	return fmt.Sprintf("Reference{%s flags=%s fields=%d methods=%d}",
		r.ClassName, r.Flags, len(r.Fields), len(r.Methods))
}

// Merge combines two references to the same class: flags are OR'd, members
// are unioned by name and descriptor, and sources are concatenated without
// duplicates. Neither input is modified.
func (r *Reference) Merge(other *Reference) (*Reference, error) {
	if r.ClassName != other.ClassName {
		return nil, fmt.Errorf("%w: %s and %s", ErrClassNameMismatch, r.ClassName, other.ClassName)
	}
	b := r.ToBuilder()
	b.add(other)
	return b.Build(), nil
}

// ToBuilder returns a builder seeded with a copy of r
func (r *Reference) ToBuilder() *Builder {
	b := NewBuilder(r.ClassName)
	b.add(r)
	return b
}
