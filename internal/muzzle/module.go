package muzzle

import (
	"slices"

	"github.com/mabhi256/jmuzzle/internal/reference"
)

// AdviceTransformer receives advice registrations from a type
// instrumentation
type AdviceTransformer interface {
	ApplyAdviceToMethod(methodMatcher, adviceClassName string)
}

// TypeInstrumentation instruments the classes matched by TypeMatcher
type TypeInstrumentation interface {
	TypeMatcher() string
	Transform(transformer AdviceTransformer)
}

// InstrumentationModule groups the type instrumentations shipped for one
// library together with the helper classes injected next to them.
type InstrumentationModule interface {
	Name() string
	TypeInstrumentations() []TypeInstrumentation
	HelperClassNames() []string
}

// RequiredClassesProvider is implemented by modules that name classes the
// target must have before a full reference match is worth running.
type RequiredClassesProvider interface {
	RequiredClassNames() []string
}

type adviceRecorder struct {
	classes []string
}

func (r *adviceRecorder) ApplyAdviceToMethod(_, adviceClassName string) {
	name := reference.ToClassName(adviceClassName)
	if !slices.Contains(r.classes, name) {
		r.classes = append(r.classes, name)
	}
}

// AdviceClassNames lists the advice classes a module registers, in
// registration order without duplicates
func AdviceClassNames(module InstrumentationModule) []string {
	r := &adviceRecorder{}
	for _, ti := range module.TypeInstrumentations() {
		ti.Transform(r)
	}
	return r.classes
}

func RequiredClassNames(module InstrumentationModule) []string {
	if p, ok := module.(RequiredClassesProvider); ok {
		return p.RequiredClassNames()
	}
	return nil
}

// AdviceBinding applies one advice class to the methods a matcher selects
type AdviceBinding struct {
	Method string `yaml:"method" json:"method"`
	Advice string `yaml:"class" json:"class"`
}

// StaticTypeInstrumentation is a TypeInstrumentation described by data
type StaticTypeInstrumentation struct {
	Type   string          `yaml:"type" json:"type"`
	Advice []AdviceBinding `yaml:"advice" json:"advice"`
}

func (t StaticTypeInstrumentation) TypeMatcher() string {
	return t.Type
}

func (t StaticTypeInstrumentation) Transform(transformer AdviceTransformer) {
	for _, a := range t.Advice {
		transformer.ApplyAdviceToMethod(a.Method, a.Advice)
	}
}

// StaticModule is an InstrumentationModule described by data, as loaded
// from configuration
type StaticModule struct {
	ModuleName      string                      `yaml:"name" json:"name"`
	Instrumentation []StaticTypeInstrumentation `yaml:"typeInstrumentations" json:"typeInstrumentations"`
	Helpers         []string                    `yaml:"helperClasses" json:"helperClasses,omitempty"`
	Required        []string                    `yaml:"requiredClasses" json:"requiredClasses,omitempty"`
}

func (m *StaticModule) Name() string {
	return m.ModuleName
}

func (m *StaticModule) TypeInstrumentations() []TypeInstrumentation {
	out := make([]TypeInstrumentation, len(m.Instrumentation))
	for i, ti := range m.Instrumentation {
		out[i] = ti
	}
	return out
}

func (m *StaticModule) HelperClassNames() []string {
	return m.Helpers
}

func (m *StaticModule) RequiredClassNames() []string {
	return m.Required
}
