package muzzle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/loader"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

// Creator collects the references instrumentation code makes into other
// classes by reading its bytecode.
type Creator struct {
	policy Policy
	logger *slog.Logger
}

func NewCreator(opts ...Option) *Creator {
	s := newSettings(opts)
	return &Creator{policy: s.policy, logger: s.logger}
}

func (c *Creator) Policy() Policy {
	return c.policy
}

// CreateReferencesFrom scans className and every instrumentation class it
// reaches, breadth first, and returns the references found keyed by dotted
// class name. Failing to load any scanned class is an error, except that
// with no configured instrumentation packages a class of the start package
// the loader cannot provide is kept as a plain reference.
func (c *Creator) CreateReferencesFrom(ctx context.Context, className string, l loader.ClassLoader) (map[string]*reference.Reference, error) {
	return c.CreateReferences(ctx, className, loader.NewClassRegistry(l))
}

// CreateReferences is CreateReferencesFrom over a shared class cache
func (c *Creator) CreateReferences(ctx context.Context, className string, classes *loader.ClassRegistry) (map[string]*reference.Reference, error) {
	start := reference.ToClassName(className)
	ctx, span := tracer.Start(ctx, "Creator.CreateReferences",
		trace.WithAttributes(attribute.String("muzzle.class", start)),
	)
	defer span.End()

	s := &scan{
		policy:   c.policy.forScan(start),
		implicit: len(c.policy.InstrumentationPackages) == 0,
		start:    start,
		classes:  classes,
		builders: make(map[string]*reference.Builder),
		visited:  map[string]bool{start: true},
		queue:    []string{start},
		logger:   c.logger,
	}

	scanned := 0
	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		name := s.queue[0]
		s.queue = s.queue[1:]

		cls, err := classes.Class(name)
		if err != nil {
			err = fmt.Errorf("failed to scan %s: %w", name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "class not loadable")
			return nil, err
		}
		c.logger.Debug("scanning class", "class", name, "queued", len(s.queue))
		if err := s.visit(cls); err != nil {
			err = fmt.Errorf("failed to scan %s: %w", name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "malformed bytecode")
			return nil, err
		}
		scanned++
	}

	refs := make(map[string]*reference.Reference, len(s.builders))
	for name, b := range s.builders {
		refs[name] = b.Build()
	}
	span.SetAttributes(attribute.Int("muzzle.classes_scanned", scanned))
	setSpanCounts(span, len(refs), 0)
	recordScan(ctx, scanned, len(refs))
	c.logger.Debug("collected references", "class", start, "scanned", scanned, "references", len(refs))
	return refs, nil
}

// SortedReferences flattens a reference map in class name order
func SortedReferences(refs map[string]*reference.Reference) []*reference.Reference {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]*reference.Reference, len(names))
	for i, name := range names {
		out[i] = refs[name]
	}
	return out
}

type scan struct {
	policy   Policy
	start    string
	classes  *loader.ClassRegistry
	builders map[string]*reference.Builder
	visited  map[string]bool
	queue    []string
	logger   *slog.Logger

	// the instrumentation boundary is the start class's package rather
	// than configured packages
	implicit bool
}

func (s *scan) builder(name string) *reference.Builder {
	b, ok := s.builders[name]
	if !ok {
		b = reference.NewBuilder(name)
		s.builders[name] = b
	}
	return b
}

// position is where in the scanned class a reference was made
type position struct {
	file string
	line int
}

func (p position) String() string {
	return reference.FormatSource(p.file, p.line)
}

// record notes a class reference made from current. It reports whether
// the class is tracked, in which case member references may follow.
func (s *scan) record(current, name string, at position, flags reference.Flags) bool {
	if name == "" || name == current || name == s.start || !s.policy.ShouldRecord(name) {
		return false
	}
	s.builder(name).WithSource(at.file, at.line).WithFlag(flags)
	if s.policy.IsInstrumentation(name) && !s.visited[name] {
		s.visited[name] = true
		if s.implicit && !s.loadable(name) {
			s.logger.Debug("class outside the build classpath", "class", name, "from", current)
			return true
		}
		s.queue = append(s.queue, name)
		s.logger.Debug("queued helper class", "class", name, "from", current)
	}
	return true
}

// loadable reports whether the class loader can provide name. Only a
// missing class counts, broken class files still fail the scan.
func (s *scan) loadable(name string) bool {
	_, err := s.classes.Class(name)
	return !errors.Is(err, loader.ErrClassNotFound)
}

func (s *scan) recordDescriptorTypes(current, descriptor string, at position) {
	var types []string
	if len(descriptor) > 0 && descriptor[0] == '(' {
		params, ret, err := classfile.ParseMethodDescriptor(descriptor)
		if err != nil {
			return
		}
		types = append(params, ret)
	} else {
		types = []string{descriptor}
	}
	for _, t := range types {
		if class := classfile.ClassOf(t); class != "" && class != t {
			s.record(current, reference.ToClassName(class), at, 0)
		}
	}
}

func samePackage(a, b string) bool {
	return reference.PackageOf(a) == reference.PackageOf(b)
}

// classAccess is the visibility needed to name class from current
func classAccess(current, class string) reference.Flags {
	if samePackage(current, class) {
		return reference.ExpectsNonPrivate
	}
	return reference.ExpectsPublic
}

// memberAccess is the visibility needed to use a member of owner from
// current, whose direct superclass is superName.
func memberAccess(current, superName, owner string) reference.Flags {
	switch {
	case samePackage(current, owner):
		return reference.ExpectsNonPrivate
	case owner == superName:
		return reference.ExpectsPublicOrProtected
	default:
		return reference.ExpectsPublic
	}
}

// inheritedAccess is the visibility needed to use a member current
// inherits from owner
func inheritedAccess(current, owner string) reference.Flags {
	if samePackage(current, owner) {
		return reference.ExpectsNonPrivate
	}
	return reference.ExpectsPublicOrProtected
}

// inheritedOwner walks up from cls to the class that provides a member
// cls uses through its own name without declaring it. It returns "" when
// instrumentation code declares the member itself.
func (s *scan) inheritedOwner(cls *classfile.Class, declares func(*classfile.Class) bool) string {
	for range maxHierarchyDepth {
		if declares(cls) || cls.SuperName == "" {
			return ""
		}
		super := reference.ToClassName(cls.SuperName)
		if !s.policy.IsInstrumentation(super) {
			return super
		}
		next, err := s.classes.Class(super)
		if err != nil {
			return super
		}
		cls = next
	}
	return ""
}

func staticFlag(static bool) reference.Flags {
	if static {
		return reference.ExpectsStatic
	}
	return reference.ExpectsNonStatic
}

func (s *scan) visit(cls *classfile.Class) error {
	current := reference.ToClassName(cls.Name)
	superName := reference.ToClassName(cls.SuperName)
	file := cls.SourceFile
	if file == "" {
		file = current
	}
	decl := position{file: file}

	// a helper's own shape is part of what it needs
	own := current != s.start && s.policy.ShouldRecord(current)
	if superName != "" && superName != "java.lang.Object" {
		if own {
			s.builder(current).WithSuperName(superName)
		}
		s.record(current, superName, decl, classAccess(current, superName)|reference.ExpectsNonInterface|reference.ExpectsNonFinal)
	}
	for _, iface := range cls.Interfaces {
		iface = reference.ToClassName(iface)
		if own {
			s.builder(current).WithInterface(iface)
		}
		s.record(current, iface, decl, classAccess(current, iface)|reference.ExpectsInterface)
	}

	for _, f := range cls.Fields {
		s.recordDescriptorTypes(current, f.Descriptor, decl)
	}
	for _, m := range cls.Methods {
		at := decl
		if m.Code != nil {
			at.line = m.Code.LineAt(0)
		}
		s.recordDescriptorTypes(current, m.Descriptor, at)

		insns, err := classfile.Instructions(m.Code, cls.Pool)
		if err != nil {
			return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
		}
		for _, insn := range insns {
			at := position{file: file, line: m.Code.LineAt(insn.Offset())}
			s.visitInstruction(cls, superName, insn, at)
		}
	}
	return nil
}

func (s *scan) visitInstruction(cls *classfile.Class, superName string, insn classfile.Instruction, at position) {
	current := reference.ToClassName(cls.Name)
	switch in := insn.(type) {
	case *classfile.FieldAccess:
		owner := reference.ToClassName(in.Owner)
		access := memberAccess(current, superName, owner)
		if owner == current {
			owner = s.inheritedOwner(cls, func(c *classfile.Class) bool {
				return c.Field(in.Name, in.Descriptor) != nil
			})
			access = inheritedAccess(current, owner)
		}
		if s.record(current, owner, at, classAccess(current, owner)) {
			flags := access | staticFlag(in.Static)
			if in.Write {
				flags |= reference.ExpectsNonFinal
			}
			s.builder(owner).WithField([]string{at.String()}, flags, in.Name, in.Descriptor)
		}
		s.recordDescriptorTypes(current, in.Descriptor, at)

	case *classfile.MethodCall:
		owner := reference.ToClassName(in.Owner)
		access := memberAccess(current, superName, owner)
		if owner == current && !in.Interface {
			owner = s.inheritedOwner(cls, func(c *classfile.Class) bool {
				return c.Method(in.Name, in.Descriptor) != nil
			})
			access = inheritedAccess(current, owner)
		}
		classFlags := classAccess(current, owner)
		if in.Interface {
			classFlags |= reference.ExpectsInterface
		} else {
			classFlags |= reference.ExpectsNonInterface
		}
		if s.record(current, owner, at, classFlags) {
			flags := access | staticFlag(in.Kind == classfile.InvokeStatic)
			s.builder(owner).WithMethodDescriptor([]string{at.String()}, flags, in.Name, in.Descriptor)
		}
		s.recordDescriptorTypes(current, in.Descriptor, at)

	case *classfile.TypeReference:
		class := reference.ToClassName(in.Class)
		flags := classAccess(current, class)
		if in.Context == classfile.TypeNew {
			flags |= reference.ExpectsNonInterface
		}
		s.record(current, class, at, flags)
	}
}
