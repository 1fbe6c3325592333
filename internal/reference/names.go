package reference

import (
	"strconv"
	"strings"
)

// ToClassName converts an internal name (a/b/C) to a dotted one (a.b.C)
func ToClassName(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}

// ToInternalName converts a dotted class name to its internal form
func ToInternalName(className string) string {
	return strings.ReplaceAll(className, ".", "/")
}

// ToResourceName returns the class path resource holding a class: a.b.C
// becomes a/b/C.class. Internal names are accepted too.
func ToResourceName(className string) string {
	return ToInternalName(className) + ".class"
}

// PackageOf returns the dotted package of a class, "" for the default package
func PackageOf(className string) string {
	className = ToClassName(className)
	if i := strings.LastIndexByte(className, '.'); i >= 0 {
		return className[:i]
	}
	return ""
}

// FormatSource renders a provenance entry as "file:line", or just the file
// when the line is unknown.
func FormatSource(file string, line int) string {
	if line <= 0 {
		return file
	}
	return file + ":" + strconv.Itoa(line)
}

// SplitSource is the inverse of FormatSource
func SplitSource(source string) (file string, line int) {
	i := strings.LastIndexByte(source, ':')
	if i < 0 {
		return source, 0
	}
	n, err := strconv.Atoi(source[i+1:])
	if err != nil || n <= 0 || strconv.Itoa(n) != source[i+1:] {
		return source, 0
	}
	return source[:i], n
}
