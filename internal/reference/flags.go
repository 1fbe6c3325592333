package reference

import (
	"fmt"
	"strings"

	"github.com/mabhi256/jmuzzle/internal/classfile"
)

// Flags is a set of expectations about a class or member's modifiers. The
// bit values are part of the generated class format and must not change.
type Flags uint32

const (
	ExpectsPublic            Flags = 1 << 0
	ExpectsPublicOrProtected Flags = 1 << 1
	ExpectsNonPrivate        Flags = 1 << 2
	ExpectsStatic            Flags = 1 << 3
	ExpectsNonStatic         Flags = 1 << 4
	ExpectsInterface         Flags = 1 << 5
	ExpectsNonInterface      Flags = 1 << 6
	ExpectsNonFinal          Flags = 1 << 7

	AllFlags = ExpectsPublic | ExpectsPublicOrProtected | ExpectsNonPrivate | ExpectsStatic |
		ExpectsNonStatic | ExpectsInterface | ExpectsNonInterface | ExpectsNonFinal
)

// Access is the part of a declaration's modifiers that flags are checked against
type Access struct {
	Visibility classfile.Visibility
	Static     bool
	Interface  bool
	Final      bool
}

func AccessOf(flags classfile.AccessFlags) Access {
	return Access{
		Visibility: flags.Visibility(),
		Static:     flags.IsStatic(),
		Interface:  flags.IsInterface(),
		Final:      flags.IsFinal(),
	}
}

func (a Access) String() string {
	parts := []string{a.Visibility.String()}
	if a.Static {
		parts = append(parts, "static")
	}
	if a.Final {
		parts = append(parts, "final")
	}
	if a.Interface {
		parts = append(parts, "interface")
	}
	return strings.Join(parts, " ")
}

type flagCheck struct {
	flag      Flags
	name      string
	satisfied func(Access) bool
}

var flagChecks = []flagCheck{
	{ExpectsPublic, "PUBLIC", func(a Access) bool {
		return a.Visibility == classfile.Public
	}},
	{ExpectsPublicOrProtected, "PUBLIC_OR_PROTECTED", func(a Access) bool {
		return a.Visibility == classfile.Public || a.Visibility == classfile.Protected
	}},
	{ExpectsNonPrivate, "NON_PRIVATE", func(a Access) bool {
		return a.Visibility != classfile.Private
	}},
	{ExpectsStatic, "STATIC", func(a Access) bool { return a.Static }},
	{ExpectsNonStatic, "NON_STATIC", func(a Access) bool { return !a.Static }},
	{ExpectsInterface, "INTERFACE", func(a Access) bool { return a.Interface }},
	{ExpectsNonInterface, "NON_INTERFACE", func(a Access) bool { return !a.Interface }},
	{ExpectsNonFinal, "NON_FINAL", func(a Access) bool { return !a.Final }},
}

// Unsatisfied returns the expected flags that actual fails
func Unsatisfied(expected Flags, actual Access) Flags {
	var failed Flags
	for _, c := range flagChecks {
		if expected&c.flag != 0 && !c.satisfied(actual) {
			failed |= c.flag
		}
	}
	return failed
}

// Matches reports whether actual satisfies every expected flag. No
// expectations always match.
func Matches(expected Flags, actual Access) bool {
	return Unsatisfied(expected, actual) == 0
}

// MatchesAccessFlags is Matches over raw class file modifiers
func MatchesAccessFlags(expected Flags, actual classfile.AccessFlags) bool {
	return Matches(expected, AccessOf(actual))
}

func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for _, c := range flagChecks {
		if f&c.flag != 0 {
			names = append(names, c.name)
		}
	}
	if rest := f &^ AllFlags; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(names, "|")
}
