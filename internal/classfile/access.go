package classfile

import (
	"fmt"
	"strings"
)

// AccessFlags is the access_flags item of a class, field or method.
// Several bits are overloaded depending on where they appear
// (ACC_SUPER/ACC_SYNCHRONIZED, ACC_VOLATILE/ACC_BRIDGE, ...).
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020 // classes
	AccSynchronized AccessFlags = 0x0020 // methods
	AccVolatile     AccessFlags = 0x0040 // fields
	AccBridge       AccessFlags = 0x0040 // methods
	AccTransient    AccessFlags = 0x0080 // fields
	AccVarargs      AccessFlags = 0x0080 // methods
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

// Visibility is the JVM access level encoded by the public/protected/private bits
type Visibility int

const (
	Private Visibility = iota
	PackagePrivate
	Protected
	Public
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case PackagePrivate:
		return "package-private"
	case Protected:
		return "protected"
	case Public:
		return "public"
	default:
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
}

func (f AccessFlags) IsPublic() bool    { return f&AccPublic != 0 }
func (f AccessFlags) IsPrivate() bool   { return f&AccPrivate != 0 }
func (f AccessFlags) IsProtected() bool { return f&AccProtected != 0 }
func (f AccessFlags) IsStatic() bool    { return f&AccStatic != 0 }
func (f AccessFlags) IsFinal() bool     { return f&AccFinal != 0 }
func (f AccessFlags) IsInterface() bool { return f&AccInterface != 0 }
func (f AccessFlags) IsAbstract() bool  { return f&AccAbstract != 0 }

func (f AccessFlags) Visibility() Visibility {
	switch {
	case f.IsPublic():
		return Public
	case f.IsProtected():
		return Protected
	case f.IsPrivate():
		return Private
	default:
		return PackagePrivate
	}
}

// String renders the modifiers that matter for compatibility checks,
// in source order, e.g. "public static final".
func (f AccessFlags) String() string {
	var parts []string
	if v := f.Visibility(); v != PackagePrivate {
		parts = append(parts, v.String())
	}
	if f.IsStatic() {
		parts = append(parts, "static")
	}
	if f.IsAbstract() && !f.IsInterface() {
		parts = append(parts, "abstract")
	}
	if f.IsFinal() {
		parts = append(parts, "final")
	}
	if f.IsInterface() {
		parts = append(parts, "interface")
	}
	if len(parts) == 0 {
		return "package-private"
	}
	return strings.Join(parts, " ")
}
