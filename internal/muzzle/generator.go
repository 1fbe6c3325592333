package muzzle

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mabhi256/jmuzzle/internal/codegen"
	"github.com/mabhi256/jmuzzle/internal/loader"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

// MuzzleSuffix is appended to a module's class name to name its
// generated reference class
const MuzzleSuffix = "$Muzzle"

// Generator runs a Creator over every advice class of a module
type Generator struct {
	creator *Creator
	runtime codegen.Runtime
	logger  *slog.Logger
}

func NewGenerator(creator *Creator, runtime codegen.Runtime, opts ...Option) *Generator {
	s := newSettings(opts)
	if runtime.Package == "" {
		runtime = codegen.DefaultRuntime()
	}
	return &Generator{creator: creator, runtime: runtime, logger: s.logger}
}

func (g *Generator) Creator() *Creator {
	return g.creator
}

func (g *Generator) Runtime() codegen.Runtime {
	return g.runtime
}

// MuzzleClassName is the internal name of the generated class for a module
func MuzzleClassName(module InstrumentationModule) string {
	return reference.ToInternalName(module.Name()) + MuzzleSuffix
}

// CollectReferences scans all advice of module and returns the merged
// references sorted by class name. Helper classes are left out since they
// ship with the module.
func (g *Generator) CollectReferences(ctx context.Context, module InstrumentationModule, l loader.ClassLoader) ([]*reference.Reference, error) {
	return g.collect(ctx, module, loader.NewClassRegistry(l))
}

func (g *Generator) collect(ctx context.Context, module InstrumentationModule, classes *loader.ClassRegistry) ([]*reference.Reference, error) {
	ctx, span := tracer.Start(ctx, "Generator.CollectReferences",
		trace.WithAttributes(attribute.String("muzzle.module", module.Name())),
	)
	defer span.End()

	merged := make(map[string]*reference.Reference)
	for _, advice := range AdviceClassNames(module) {
		refs, err := g.creator.CreateReferences(ctx, advice, classes)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reference collection failed")
			return nil, fmt.Errorf("module %s: %w", module.Name(), err)
		}
		for name, ref := range refs {
			prev, ok := merged[name]
			if !ok {
				merged[name] = ref
				continue
			}
			if merged[name], err = prev.Merge(ref); err != nil {
				return nil, err
			}
		}
	}

	for _, helper := range module.HelperClassNames() {
		delete(merged, reference.ToClassName(helper))
	}

	out := SortedReferences(merged)
	setSpanCounts(span, len(out), 0)
	g.logger.Debug("collected module references", "module", module.Name(), "references", len(out))
	return out, nil
}

// GenerateMuzzleClass collects the module's references and encodes them as
// a class named internalName whose static create() rebuilds them. An empty
// internalName means MuzzleClassName(module).
func (g *Generator) GenerateMuzzleClass(ctx context.Context, module InstrumentationModule, internalName string, l loader.ClassLoader) ([]byte, error) {
	refs, err := g.CollectReferences(ctx, module, l)
	if err != nil {
		return nil, err
	}
	if internalName == "" {
		internalName = MuzzleClassName(module)
	}
	data, err := codegen.Encode(internalName, g.runtime, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", internalName, err)
	}
	g.logger.Info("generated muzzle class", "module", module.Name(), "class", internalName,
		"references", len(refs), "bytes", len(data))
	return data, nil
}

// LoadGenerated builds a Matcher from a class GenerateMuzzleClass wrote
func LoadGenerated(data []byte, opts ...Option) (*Matcher, error) {
	decoded, err := codegen.Decode(data)
	if err != nil {
		return nil, err
	}
	return NewMatcher(decoded.References, opts...), nil
}
