package classfile

import (
	"errors"
	"fmt"
	"math"
)

/*
*	Class file format described here
*	https://docs.oracle.com/javase/specs/jvms/se21/html/jvms-4.html
 */

const Magic uint32 = 0xCAFEBABE

var (
	// ErrMalformedClass wraps every structural error found while parsing
	ErrMalformedClass = errors.New("malformed class file")

	// ErrCodeTooLarge is returned when a method body exceeds the 64KiB code limit
	ErrCodeTooLarge = errors.New("method code too large")

	// ErrPoolOverflow is returned when a constant pool needs more than 65535 slots
	ErrPoolOverflow = errors.New("constant pool overflow")
)

type ConstantKind uint8

const (
	ConstantUtf8               ConstantKind = 1
	ConstantInteger            ConstantKind = 3
	ConstantFloat              ConstantKind = 4
	ConstantLong               ConstantKind = 5
	ConstantDouble             ConstantKind = 6
	ConstantClass              ConstantKind = 7
	ConstantString             ConstantKind = 8
	ConstantFieldref           ConstantKind = 9
	ConstantMethodref          ConstantKind = 10
	ConstantInterfaceMethodref ConstantKind = 11
	ConstantNameAndType        ConstantKind = 12
	ConstantMethodHandle       ConstantKind = 15
	ConstantMethodType         ConstantKind = 16
	ConstantDynamic            ConstantKind = 17
	ConstantInvokeDynamic      ConstantKind = 18
	ConstantModule             ConstantKind = 19
	ConstantPackage            ConstantKind = 20
)

func (k ConstantKind) String() string {
	switch k {
	case ConstantUtf8:
		return "Utf8"
	case ConstantInteger:
		return "Integer"
	case ConstantFloat:
		return "Float"
	case ConstantLong:
		return "Long"
	case ConstantDouble:
		return "Double"
	case ConstantClass:
		return "Class"
	case ConstantString:
		return "String"
	case ConstantFieldref:
		return "Fieldref"
	case ConstantMethodref:
		return "Methodref"
	case ConstantInterfaceMethodref:
		return "InterfaceMethodref"
	case ConstantNameAndType:
		return "NameAndType"
	case ConstantMethodHandle:
		return "MethodHandle"
	case ConstantMethodType:
		return "MethodType"
	case ConstantDynamic:
		return "Dynamic"
	case ConstantInvokeDynamic:
		return "InvokeDynamic"
	case ConstantModule:
		return "Module"
	case ConstantPackage:
		return "Package"
	default:
		return fmt.Sprintf("ConstantKind(%d)", uint8(k))
	}
}

// Constant is one constant pool slot. Which fields are meaningful depends on Kind:
//
//	Utf8                      Text
//	Integer, Long             Int
//	Float, Double             Float
//	Class, String, MethodType Index1 (utf8 index)
//	Module, Package           Index1 (utf8 index)
//	*ref                      Index1 (class), Index2 (name-and-type)
//	NameAndType               Index1 (name), Index2 (descriptor)
//	MethodHandle              RefKind, Index1 (member ref)
//	Dynamic, InvokeDynamic    Index1 (bootstrap method), Index2 (name-and-type)
//
// The slot after a Long or Double, and slot 0, have Kind 0.
type Constant struct {
	Kind    ConstantKind
	Text    string
	Int     int64
	Float   float64
	Index1  uint16
	Index2  uint16
	RefKind uint8
}

type ConstantPool []Constant

// MemberRef is a resolved Fieldref, Methodref or InterfaceMethodref
type MemberRef struct {
	Kind       ConstantKind
	Owner      string // internal name, may be an array descriptor
	Name       string
	Descriptor string
}

func (cp ConstantPool) entry(idx uint16, kinds ...ConstantKind) (*Constant, error) {
	if idx == 0 || int(idx) >= len(cp) {
		return nil, fmt.Errorf("%w: constant index %d out of range", ErrMalformedClass, idx)
	}
	c := &cp[idx]
	for _, k := range kinds {
		if c.Kind == k {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: constant %d is %s, expected %v", ErrMalformedClass, idx, c.Kind, kinds)
}

func (cp ConstantPool) Utf8(idx uint16) (string, error) {
	c, err := cp.entry(idx, ConstantUtf8)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

// ClassName returns the internal name a Class constant points to
func (cp ConstantPool) ClassName(idx uint16) (string, error) {
	c, err := cp.entry(idx, ConstantClass)
	if err != nil {
		return "", err
	}
	return cp.Utf8(c.Index1)
}

func (cp ConstantPool) NameAndType(idx uint16) (name, descriptor string, err error) {
	c, err := cp.entry(idx, ConstantNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = cp.Utf8(c.Index1); err != nil {
		return "", "", err
	}
	descriptor, err = cp.Utf8(c.Index2)
	return name, descriptor, err
}

// MemberRef resolves a field or method reference constant
func (cp ConstantPool) MemberRef(idx uint16) (MemberRef, error) {
	c, err := cp.entry(idx, ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref)
	if err != nil {
		return MemberRef{}, err
	}
	owner, err := cp.ClassName(c.Index1)
	if err != nil {
		return MemberRef{}, err
	}
	name, descriptor, err := cp.NameAndType(c.Index2)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Kind: c.Kind, Owner: owner, Name: name, Descriptor: descriptor}, nil
}

// Loadable returns the value an ldc instruction pushes: string, int32,
// float32, int64, float64, or a ClassConstant.
func (cp ConstantPool) Loadable(idx uint16) (any, error) {
	c, err := cp.entry(idx, ConstantString, ConstantInteger, ConstantFloat,
		ConstantLong, ConstantDouble, ConstantClass, ConstantMethodType,
		ConstantMethodHandle, ConstantDynamic)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case ConstantString:
		return cp.Utf8(c.Index1)
	case ConstantInteger:
		return int32(c.Int), nil
	case ConstantFloat:
		return float32(c.Float), nil
	case ConstantLong:
		return c.Int, nil
	case ConstantDouble:
		return c.Float, nil
	case ConstantClass:
		name, err := cp.Utf8(c.Index1)
		return ClassConstant(name), err
	default:
		return *c, nil
	}
}

// ClassConstant is the result of ldc on a Class constant
type ClassConstant string

func readConstantPool(br *BinaryReader) (ConstantPool, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read constant pool count: %w", err)
	}

	// Slot 0 is never used; long and double take two slots
	pool := make(ConstantPool, 1, max(int(count), 1))
	for len(pool) < int(count) {
		tag, err := br.ReadU1()
		if err != nil {
			return nil, fmt.Errorf("failed to read constant tag at index %d: %w", len(pool), err)
		}

		c := Constant{Kind: ConstantKind(tag)}
		switch c.Kind {
		case ConstantUtf8:
			length, err := br.ReadU2()
			if err != nil {
				return nil, fmt.Errorf("failed to read utf8 length: %w", err)
			}
			text, err := br.ReadNBytes(int(length))
			if err != nil {
				return nil, fmt.Errorf("failed to read utf8 data: %w", err)
			}
			c.Text = decodeModifiedUTF8(text)
		case ConstantInteger:
			v, err := br.ReadI4()
			if err != nil {
				return nil, fmt.Errorf("failed to read integer constant: %w", err)
			}
			c.Int = int64(v)
		case ConstantFloat:
			v, err := br.ReadU4()
			if err != nil {
				return nil, fmt.Errorf("failed to read float constant: %w", err)
			}
			c.Float = float64(math.Float32frombits(v))
		case ConstantLong:
			v, err := br.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("failed to read long constant: %w", err)
			}
			c.Int = int64(v)
		case ConstantDouble:
			v, err := br.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("failed to read double constant: %w", err)
			}
			c.Float = math.Float64frombits(v)
		case ConstantClass, ConstantString, ConstantMethodType, ConstantModule, ConstantPackage:
			if c.Index1, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read %s index: %w", c.Kind, err)
			}
		case ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref,
			ConstantNameAndType, ConstantDynamic, ConstantInvokeDynamic:
			if c.Index1, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read %s first index: %w", c.Kind, err)
			}
			if c.Index2, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read %s second index: %w", c.Kind, err)
			}
		case ConstantMethodHandle:
			if c.RefKind, err = br.ReadU1(); err != nil {
				return nil, fmt.Errorf("failed to read method handle kind: %w", err)
			}
			if c.Index1, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read method handle reference: %w", err)
			}
		default:
			return nil, fmt.Errorf("%w: invalid constant tag %d at index %d", ErrMalformedClass, tag, len(pool))
		}

		pool = append(pool, c)
		if c.Kind == ConstantLong || c.Kind == ConstantDouble {
			pool = append(pool, Constant{})
		}
	}

	if len(pool) != int(count) {
		return nil, fmt.Errorf("%w: 8-byte constant overruns pool of %d entries", ErrMalformedClass, count)
	}

	return pool, nil
}
