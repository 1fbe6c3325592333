package classfile

import (
	"fmt"
	"strings"
)

// ParseMethodDescriptor splits "(ILjava/lang/String;)V" into its parameter
// descriptors and return descriptor.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: method descriptor %q must start with '('", ErrMalformedClass, desc)
	}

	i := 1
	for i < len(desc) && desc[i] != ')' {
		end, err := fieldTypeEnd(desc, i)
		if err != nil {
			return nil, "", err
		}
		params = append(params, desc[i:end])
		i = end
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("%w: method descriptor %q has no ')'", ErrMalformedClass, desc)
	}

	ret = desc[i+1:]
	if ret != "V" {
		end, err := fieldTypeEnd(ret, 0)
		if err != nil {
			return nil, "", err
		}
		if end != len(ret) {
			return nil, "", fmt.Errorf("%w: trailing data in method descriptor %q", ErrMalformedClass, desc)
		}
	}

	return params, ret, nil
}

// fieldTypeEnd returns the index just past the field type starting at i
func fieldTypeEnd(desc string, i int) (int, error) {
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("%w: truncated type in descriptor %q", ErrMalformedClass, desc)
	}

	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		semi := strings.IndexByte(desc[i:], ';')
		if semi < 0 {
			return 0, fmt.Errorf("%w: unterminated class type in descriptor %q", ErrMalformedClass, desc)
		}
		return i + semi + 1, nil
	default:
		return 0, fmt.Errorf("%w: invalid type %q in descriptor %q", ErrMalformedClass, desc[i], desc)
	}
}

// MethodDescriptor assembles a method descriptor from its parts
func MethodDescriptor(ret string, params ...string) string {
	return "(" + strings.Join(params, "") + ")" + ret
}

// ClassOf returns the internal name of the class a field descriptor or
// array class name mentions: "Lfoo/Bar;" and "[[Lfoo/Bar;" both give
// "foo/Bar". Primitives and primitive arrays give "". A plain internal
// name is returned unchanged.
func ClassOf(desc string) string {
	trimmed := strings.TrimLeft(desc, "[")
	if trimmed == desc && !strings.HasSuffix(desc, ";") {
		return desc
	}
	if strings.HasPrefix(trimmed, "L") && strings.HasSuffix(trimmed, ";") {
		return trimmed[1 : len(trimmed)-1]
	}
	return ""
}

// SlotSize is the number of operand stack slots a value of the given type uses
func SlotSize(desc string) int {
	switch desc {
	case "V":
		return 0
	case "J", "D":
		return 2
	default:
		return 1
	}
}

// ArgumentSlots counts the stack slots taken by a method's parameters
func ArgumentSlots(desc string) (int, error) {
	params, _, err := ParseMethodDescriptor(desc)
	if err != nil {
		return 0, err
	}
	slots := 0
	for _, p := range params {
		slots += SlotSize(p)
	}
	return slots, nil
}
