package muzzle

import (
	"context"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/loader"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

// Matcher checks a fixed set of references against class loaders
type Matcher struct {
	refs   []*reference.Reference
	policy Policy
	logger *slog.Logger
}

func NewMatcher(refs []*reference.Reference, opts ...Option) *Matcher {
	s := newSettings(opts)
	return &Matcher{refs: slices.Clone(refs), policy: s.policy, logger: s.logger}
}

func (m *Matcher) References() []*reference.Reference {
	return slices.Clone(m.refs)
}

// Matches reports whether every reference is satisfied by l. An empty
// reference set matches any loader.
func (m *Matcher) Matches(ctx context.Context, l loader.ClassLoader) bool {
	return len(m.MismatchedReferenceSources(ctx, l)) == 0
}

// MismatchedReferenceSources lists every unsatisfied expectation, empty
// when l is compatible.
func (m *Matcher) MismatchedReferenceSources(ctx context.Context, l loader.ClassLoader) []Mismatch {
	return m.Mismatches(ctx, loader.NewClassRegistry(l))
}

// Mismatches is MismatchedReferenceSources over a shared class cache
func (m *Matcher) Mismatches(ctx context.Context, classes *loader.ClassRegistry) []Mismatch {
	ctx, span := tracer.Start(ctx, "Matcher.Mismatches",
		trace.WithAttributes(attribute.String("muzzle.loader", classes.Loader().String())),
	)
	defer span.End()

	h := &hierarchy{classes: classes, policy: m.policy}
	var out []Mismatch
	for _, ref := range m.refs {
		found := h.check(ref)
		for _, mm := range found {
			m.logger.Debug("mismatch", "kind", mm.Kind(), "class", mm.ClassName(), "detail", mm.String())
		}
		out = append(out, found...)
	}

	setSpanCounts(span, len(m.refs), len(out))
	recordMismatches(ctx, out)
	return out
}

// objectClass stands in for java.lang.Object when the loader under test
// does not carry the platform classes.
var objectClass = &classfile.Class{
	AccessFlags: classfile.AccPublic | classfile.AccSuper,
	Name:        "java/lang/Object",
	Methods: []*classfile.Member{
		{AccessFlags: classfile.AccPublic, Name: "<init>", Descriptor: "()V"},
		{AccessFlags: classfile.AccPublic | classfile.AccNative, Name: "hashCode", Descriptor: "()I"},
		{AccessFlags: classfile.AccPublic, Name: "equals", Descriptor: "(Ljava/lang/Object;)Z"},
		{AccessFlags: classfile.AccPublic, Name: "toString", Descriptor: "()Ljava/lang/String;"},
		{AccessFlags: classfile.AccPublic | classfile.AccFinal | classfile.AccNative, Name: "getClass", Descriptor: "()Ljava/lang/Class;"},
		{AccessFlags: classfile.AccPublic | classfile.AccFinal | classfile.AccNative, Name: "notify", Descriptor: "()V"},
		{AccessFlags: classfile.AccPublic | classfile.AccFinal | classfile.AccNative, Name: "notifyAll", Descriptor: "()V"},
		{AccessFlags: classfile.AccPublic | classfile.AccFinal, Name: "wait", Descriptor: "()V"},
		{AccessFlags: classfile.AccPublic | classfile.AccFinal | classfile.AccNative, Name: "wait", Descriptor: "(J)V"},
		{AccessFlags: classfile.AccPublic | classfile.AccFinal, Name: "wait", Descriptor: "(JI)V"},
		{AccessFlags: classfile.AccProtected | classfile.AccNative, Name: "clone", Descriptor: "()Ljava/lang/Object;"},
		{AccessFlags: classfile.AccProtected, Name: "finalize", Descriptor: "()V"},
	},
}

// upper bound on superclass chains, guards against cyclic class files
const maxHierarchyDepth = 256

type hierarchy struct {
	classes *loader.ClassRegistry
	policy  Policy
}

// lookup loads a class by dotted name. Platform classes the loader cannot
// provide are opaque: they exist but their shape is unknown.
func (h *hierarchy) lookup(name string) (cls *classfile.Class, opaque bool, err error) {
	cls, err = h.classes.Class(name)
	switch {
	case err == nil:
		return cls, false, nil
	case name == "java.lang.Object":
		return objectClass, false, nil
	case h.policy.IsJDK(name):
		return nil, true, nil
	default:
		return nil, false, err
	}
}

// superclasses returns cls followed by its loadable ancestors
func (h *hierarchy) superclasses(cls *classfile.Class) (chain []*classfile.Class, opaque bool) {
	for c := cls; c != nil && len(chain) < maxHierarchyDepth; {
		chain = append(chain, c)
		if c.SuperName == "" {
			break
		}
		next, op, err := h.lookup(reference.ToClassName(c.SuperName))
		if op {
			return chain, true
		}
		if err != nil {
			break
		}
		c = next
	}
	return chain, false
}

// interfaces returns every interface the chain implements, directly or
// through superinterfaces, in breadth-first order
func (h *hierarchy) interfaces(chain []*classfile.Class) (names []string, loaded []*classfile.Class, opaque bool) {
	seen := make(map[string]bool)
	var queue []string
	for _, c := range chain {
		queue = append(queue, c.Interfaces...)
	}
	for len(queue) > 0 {
		name := reference.ToClassName(queue[0])
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)

		iface, op, err := h.lookup(name)
		if op {
			opaque = true
			continue
		}
		if err != nil {
			continue
		}
		loaded = append(loaded, iface)
		queue = append(queue, iface.Interfaces...)
	}
	return names, loaded, opaque
}

func (h *hierarchy) check(ref *reference.Reference) []Mismatch {
	cls, opaque, err := h.lookup(ref.ClassName)
	if opaque {
		return nil
	}
	if err != nil {
		return []Mismatch{&MissingClass{Reference: ref, Err: err}}
	}

	var out []Mismatch
	actual := reference.AccessOf(cls.AccessFlags)
	if unmet := reference.Unsatisfied(ref.Flags, actual); unmet != 0 {
		out = append(out, &MissingFlag{Reference: ref, Expected: unmet, Actual: actual})
	}

	chain, chainOpaque := h.superclasses(cls)
	ifaceNames, ifaces, ifaceOpaque := h.interfaces(chain)
	unknownAncestry := chainOpaque || ifaceOpaque

	if ref.SuperName != "" && !chainOpaque {
		extends := slices.ContainsFunc(chain[1:], func(c *classfile.Class) bool {
			return reference.ToClassName(c.Name) == ref.SuperName
		})
		if !extends {
			out = append(out, &MissingSuperType{Reference: ref, SuperType: ref.SuperName})
		}
	}
	for _, iface := range ref.Interfaces {
		if !slices.Contains(ifaceNames, iface) && !unknownAncestry {
			out = append(out, &MissingSuperType{Reference: ref, SuperType: iface, Interface: true})
		}
	}

	// fields resolve through the superclass chain then interfaces, methods
	// the same way
	candidates := append(slices.Clone(chain), ifaces...)
	for _, f := range ref.Fields {
		member := findMember(candidates, func(c *classfile.Class) *classfile.Member { return c.Field(f.Name, f.Descriptor) })
		switch {
		case member != nil:
			if mm := checkMember(ref, f.String(), f.Sources, f.Flags, member); mm != nil {
				out = append(out, mm)
			}
		case !unknownAncestry:
			out = append(out, &MissingField{Reference: ref, Field: f})
		}
	}
	for _, m := range ref.Methods {
		member := findMember(candidates, func(c *classfile.Class) *classfile.Member { return c.Method(m.Name, m.Descriptor) })
		switch {
		case member != nil:
			if mm := checkMember(ref, m.String(), m.Sources, m.Flags, member); mm != nil {
				out = append(out, mm)
			}
		case !unknownAncestry:
			out = append(out, &MissingMethod{Reference: ref, Method: m})
		}
	}
	return out
}

func findMember(classes []*classfile.Class, get func(*classfile.Class) *classfile.Member) *classfile.Member {
	for _, c := range classes {
		if m := get(c); m != nil {
			return m
		}
	}
	return nil
}

func checkMember(ref *reference.Reference, name string, sources []string, expected reference.Flags, member *classfile.Member) Mismatch {
	actual := reference.AccessOf(member.AccessFlags)
	unmet := reference.Unsatisfied(expected, actual)
	if unmet == 0 {
		return nil
	}
	return &MissingFlag{
		Reference:     ref,
		Member:        name,
		MemberSources: sources,
		Expected:      unmet,
		Actual:        actual,
	}
}
