package muzzle

import (
	"strings"

	"github.com/mabhi256/jmuzzle/internal/reference"
)

// DefaultJDKPrefixes name packages that are always provided by the JVM
var DefaultJDKPrefixes = []string{
	"java.",
	"javax.",
	"jdk.",
	"sun.",
	"com.sun.",
	"org.ietf.",
	"org.omg.",
	"org.w3c.",
	"org.xml.",
}

// Policy decides which referenced classes are recorded and which are
// followed into. Entries ending in "." are raw name prefixes, anything
// else is a package matched together with its subpackages.
type Policy struct {
	// Classes the JVM always provides. They are never recorded.
	JDKPrefixes []string

	// Classes of the instrumentation framework itself. They are not
	// recorded unless they fall into an instrumentation package.
	FrameworkPrefixes []string

	// Packages holding instrumentation code: advice and its helpers.
	// Classes here are recorded and scanned transitively. When empty, the
	// package of the class a scan starts from is used.
	InstrumentationPackages []string
}

func DefaultPolicy() Policy {
	return Policy{JDKPrefixes: DefaultJDKPrefixes}
}

func matchesPrefix(className string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, ".") {
			if strings.HasPrefix(className, p) {
				return true
			}
			continue
		}
		if className == p || strings.HasPrefix(className, p+".") {
			return true
		}
	}
	return false
}

// IsJDK reports whether a dotted class name belongs to the platform
func (p Policy) IsJDK(className string) bool {
	return matchesPrefix(className, p.JDKPrefixes)
}

func (p Policy) IsFramework(className string) bool {
	return matchesPrefix(className, p.FrameworkPrefixes)
}

// forScan fills in InstrumentationPackages for a scan rooted at startClass
func (p Policy) forScan(startClass string) Policy {
	if len(p.InstrumentationPackages) == 0 {
		if pkg := reference.PackageOf(startClass); pkg != "" {
			p.InstrumentationPackages = []string{pkg}
		}
	}
	return p
}

func (p Policy) IsInstrumentation(className string) bool {
	return matchesPrefix(className, p.InstrumentationPackages)
}

// ShouldRecord reports whether a reference to className belongs in the
// reference set
func (p Policy) ShouldRecord(className string) bool {
	if p.IsJDK(className) {
		return false
	}
	return !p.IsFramework(className) || p.IsInstrumentation(className)
}
