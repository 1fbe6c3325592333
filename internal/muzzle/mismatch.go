package muzzle

import (
	"fmt"
	"strings"

	"github.com/mabhi256/jmuzzle/internal/reference"
)

// Mismatch is one way a class loader fails to satisfy a reference. It is
// a result, not an error: a check returns every mismatch it finds.
type Mismatch interface {
	// Kind names the mismatch category, e.g. "missing-class"
	Kind() string
	ClassName() string
	// Sources are the places in instrumentation code that made the
	// unsatisfied reference.
	Sources() []string
	String() string
}

const (
	KindMissingClass     = "missing-class"
	KindMissingField     = "missing-field"
	KindMissingMethod    = "missing-method"
	KindMissingFlag      = "missing-flag"
	KindMissingSuperType = "missing-super-type"
)

func formatSources(sources []string) string {
	if len(sources) == 0 {
		return "<unknown source>"
	}
	return strings.Join(sources, ", ")
}

type MissingClass struct {
	Reference *reference.Reference
	Err       error
}

func (m *MissingClass) Kind() string      { return KindMissingClass }
func (m *MissingClass) ClassName() string { return m.Reference.ClassName }
func (m *MissingClass) Sources() []string { return m.Reference.Sources }

func (m *MissingClass) String() string {
	return fmt.Sprintf("%s Missing class %s", formatSources(m.Sources()), m.ClassName())
}

type MissingField struct {
	Reference *reference.Reference
	Field     reference.Field
}

func (m *MissingField) Kind() string      { return KindMissingField }
func (m *MissingField) ClassName() string { return m.Reference.ClassName }
func (m *MissingField) Sources() []string { return m.Field.Sources }

func (m *MissingField) String() string {
	return fmt.Sprintf("%s Missing field %s#%s", formatSources(m.Sources()), m.ClassName(), m.Field)
}

type MissingMethod struct {
	Reference *reference.Reference
	Method    reference.Method
}

func (m *MissingMethod) Kind() string      { return KindMissingMethod }
func (m *MissingMethod) ClassName() string { return m.Reference.ClassName }
func (m *MissingMethod) Sources() []string { return m.Method.Sources }

func (m *MissingMethod) String() string {
	return fmt.Sprintf("%s Missing method %s#%s", formatSources(m.Sources()), m.ClassName(), m.Method)
}

// MissingFlag reports a class or member that exists but whose modifiers
// break the expectations. All unmet flags of one declaration are reported
// together.
type MissingFlag struct {
	Reference *reference.Reference
	// Member is "" for the class itself, otherwise name and descriptor
	Member        string
	MemberSources []string
	Expected      reference.Flags
	Actual        reference.Access
}

func (m *MissingFlag) Kind() string      { return KindMissingFlag }
func (m *MissingFlag) ClassName() string { return m.Reference.ClassName }

func (m *MissingFlag) Sources() []string {
	if m.Member != "" {
		return m.MemberSources
	}
	return m.Reference.Sources
}

func (m *MissingFlag) String() string {
	target := m.ClassName()
	if m.Member != "" {
		target += "#" + m.Member
	}
	return fmt.Sprintf("%s Missing flag %s: expected %s but was %s",
		formatSources(m.Sources()), target, m.Expected, m.Actual)
}

// MissingSuperType reports an expected superclass or interface the class
// does not extend or implement.
type MissingSuperType struct {
	Reference *reference.Reference
	SuperType string
	Interface bool
}

func (m *MissingSuperType) Kind() string      { return KindMissingSuperType }
func (m *MissingSuperType) ClassName() string { return m.Reference.ClassName }
func (m *MissingSuperType) Sources() []string { return m.Reference.Sources }

func (m *MissingSuperType) String() string {
	what := "superclass"
	if m.Interface {
		what = "interface"
	}
	return fmt.Sprintf("%s Missing %s %s of %s", formatSources(m.Sources()), what, m.SuperType, m.ClassName())
}
