package muzzle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/jmuzzle/internal/loader"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// ModuleResult is the outcome of checking one module against a target
type ModuleResult struct {
	Module string
	// Skipped is set when the target lacks the module's required classes,
	// listed in MissingRequired. No references are matched then.
	Skipped         bool
	MissingRequired []string
	// FromGenerated is set when references came from a $Muzzle class on
	// the build classpath instead of a bytecode scan.
	FromGenerated bool
	References    []*reference.Reference
	Mismatches    []Mismatch
	Duration      time.Duration
}

func (r *ModuleResult) Outcome() string {
	switch {
	case r.Skipped:
		return OutcomeSkipped
	case len(r.Mismatches) > 0:
		return OutcomeFailed
	default:
		return OutcomePassed
	}
}

// Checker matches instrumentation modules, read from a build classpath,
// against a target classpath
type Checker struct {
	generator *Generator
	build     *loader.ClassRegistry
	policy    Policy
	logger    *slog.Logger
	jobs      int
}

func NewChecker(generator *Generator, build loader.ClassLoader, opts ...Option) *Checker {
	s := newSettings(opts)
	return &Checker{
		generator: generator,
		build:     loader.NewClassRegistry(build),
		policy:    s.policy,
		logger:    s.logger,
		jobs:      s.jobs,
	}
}

// Check matches a single module against target
func (c *Checker) Check(ctx context.Context, module InstrumentationModule, target loader.ClassLoader) (*ModuleResult, error) {
	return c.check(ctx, module, loader.NewClassRegistry(target))
}

// CheckAll checks modules concurrently, sharing one class cache per
// classpath. Results keep the order of modules.
func (c *Checker) CheckAll(ctx context.Context, modules []InstrumentationModule, target loader.ClassLoader) ([]*ModuleResult, error) {
	targetClasses := loader.NewClassRegistry(target)
	results := make([]*ModuleResult, len(modules))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.jobs)
	for i, module := range modules {
		g.Go(func() error {
			result, err := c.check(ctx, module, targetClasses)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Checker) check(ctx context.Context, module InstrumentationModule, target *loader.ClassRegistry) (*ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Checker.Check",
		trace.WithAttributes(attribute.String("muzzle.module", module.Name())),
	)
	defer span.End()

	start := time.Now()
	result := &ModuleResult{Module: module.Name()}
	defer func() {
		result.Duration = time.Since(start)
		span.SetAttributes(attribute.String("muzzle.outcome", result.Outcome()))
		recordModuleCheck(ctx, result.Duration, result.Outcome())
	}()

	required := RequiredClassNames(module)
	if !loader.HasClassesNamed(required...)(target.Loader()) {
		for _, name := range required {
			if !loader.HasClassNamed(name)(target.Loader()) {
				result.MissingRequired = append(result.MissingRequired, name)
			}
		}
		result.Skipped = true
		c.logger.Info("skipping module, required classes absent", "module", module.Name(), "missing", result.MissingRequired)
		return result, nil
	}

	matcher, generated, err := c.matcher(ctx, module)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result.FromGenerated = generated
	result.References = matcher.References()
	result.Mismatches = matcher.Mismatches(ctx, target)
	setSpanCounts(span, len(result.References), len(result.Mismatches))

	c.logger.Info("checked module", "module", module.Name(), "outcome", result.Outcome(),
		"references", len(result.References), "mismatches", len(result.Mismatches), "generated", generated)
	return result, nil
}

// matcher prefers a generated $Muzzle class on the build classpath and
// falls back to scanning advice bytecode
func (c *Checker) matcher(ctx context.Context, module InstrumentationModule) (*Matcher, bool, error) {
	opts := []Option{WithPolicy(c.policy), WithLogger(c.logger)}

	name := MuzzleClassName(module)
	data, err := c.build.Loader().Resource(reference.ToResourceName(name))
	switch {
	case err == nil:
		matcher, err := LoadGenerated(data, opts...)
		if err == nil {
			c.logger.Debug("using generated references", "module", module.Name(), "class", name)
			return matcher, true, nil
		}
		c.logger.Warn("ignoring unreadable generated class", "class", name, "error", err)
	case !errors.Is(err, loader.ErrClassNotFound):
		return nil, false, err
	}

	refs, err := c.generator.collect(ctx, module, c.build)
	if err != nil {
		return nil, false, err
	}
	return NewMatcher(refs, opts...), false, nil
}
