package reference

import (
	"slices"

	"github.com/mabhi256/jmuzzle/internal/classfile"
)

type memberKey struct {
	name       string
	descriptor string
}

// Builder accumulates one Reference. It is not safe for concurrent use and
// must not be reused after Build.
type Builder struct {
	ref     Reference
	fields  map[memberKey]int
	methods map[memberKey]int
}

// NewBuilder starts a reference to className, given in dotted or internal form
func NewBuilder(className string) *Builder {
	return &Builder{
		ref:     Reference{ClassName: ToClassName(className)},
		fields:  make(map[memberKey]int),
		methods: make(map[memberKey]int),
	}
}

func appendSources(dst []string, sources ...string) []string {
	for _, s := range sources {
		if !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

func (b *Builder) WithSource(file string, line int) *Builder {
	b.ref.Sources = appendSources(b.ref.Sources, FormatSource(file, line))
	return b
}

func (b *Builder) WithFlag(flags Flags) *Builder {
	b.ref.Flags |= flags
	return b
}

// WithSuperName keeps the first superclass set
func (b *Builder) WithSuperName(name string) *Builder {
	if b.ref.SuperName == "" {
		b.ref.SuperName = ToClassName(name)
	}
	return b
}

func (b *Builder) WithInterface(name string) *Builder {
	name = ToClassName(name)
	if !slices.Contains(b.ref.Interfaces, name) {
		b.ref.Interfaces = append(b.ref.Interfaces, name)
	}
	return b
}

// WithField adds a field expectation, merging with an existing one of the
// same name and descriptor.
func (b *Builder) WithField(sources []string, flags Flags, name, descriptor string) *Builder {
	key := memberKey{name, descriptor}
	if i, ok := b.fields[key]; ok {
		f := &b.ref.Fields[i]
		f.Flags |= flags
		f.Sources = appendSources(f.Sources, sources...)
		return b
	}
	b.fields[key] = len(b.ref.Fields)
	b.ref.Fields = append(b.ref.Fields, Field{
		Sources:    appendSources(nil, sources...),
		Flags:      flags,
		Name:       name,
		Descriptor: descriptor,
	})
	return b
}

// WithMethod adds a method expectation from its return and parameter
// descriptors.
func (b *Builder) WithMethod(sources []string, flags Flags, name, returnDescriptor string, params ...string) *Builder {
	return b.WithMethodDescriptor(sources, flags, name, classfile.MethodDescriptor(returnDescriptor, params...))
}

func (b *Builder) WithMethodDescriptor(sources []string, flags Flags, name, descriptor string) *Builder {
	key := memberKey{name, descriptor}
	if i, ok := b.methods[key]; ok {
		m := &b.ref.Methods[i]
		m.Flags |= flags
		m.Sources = appendSources(m.Sources, sources...)
		return b
	}
	b.methods[key] = len(b.ref.Methods)
	b.ref.Methods = append(b.ref.Methods, Method{
		Sources:    appendSources(nil, sources...),
		Flags:      flags,
		Name:       name,
		Descriptor: descriptor,
	})
	return b
}

func (b *Builder) add(r *Reference) {
	b.ref.Sources = appendSources(b.ref.Sources, r.Sources...)
	b.WithFlag(r.Flags)
	if r.SuperName != "" {
		b.WithSuperName(r.SuperName)
	}
	for _, iface := range r.Interfaces {
		b.WithInterface(iface)
	}
	for _, f := range r.Fields {
		b.WithField(f.Sources, f.Flags, f.Name, f.Descriptor)
	}
	for _, m := range r.Methods {
		b.WithMethodDescriptor(m.Sources, m.Flags, m.Name, m.Descriptor)
	}
}

// Build returns the reference with members in insertion order. The result
// shares no slices with the builder.
func (b *Builder) Build() *Reference {
	ref := b.ref
	ref.Sources = slices.Clone(ref.Sources)
	ref.Interfaces = slices.Clone(ref.Interfaces)
	ref.Fields = slices.Clone(ref.Fields)
	for i := range ref.Fields {
		ref.Fields[i].Sources = slices.Clone(ref.Fields[i].Sources)
	}
	ref.Methods = slices.Clone(ref.Methods)
	for i := range ref.Methods {
		ref.Methods[i].Sources = slices.Clone(ref.Methods[i].Sources)
	}
	return &ref
}
