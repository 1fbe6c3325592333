package classfile

import (
	"fmt"
	"strings"
)

// Instruction is one symbolic reference made by a method body. It is a
// closed set: *FieldAccess, *MethodCall or *TypeReference.
type Instruction interface {
	Offset() int
	instruction()
}

// FieldAccess is a getfield/putfield/getstatic/putstatic
type FieldAccess struct {
	PC         int
	Owner      string
	Name       string
	Descriptor string
	Static     bool
	Write      bool
}

type InvokeKind uint8

const (
	InvokeVirtual InvokeKind = iota
	InvokeSpecial
	InvokeStatic
	InvokeInterface
)

func (k InvokeKind) String() string {
	switch k {
	case InvokeVirtual:
		return "virtual"
	case InvokeSpecial:
		return "special"
	case InvokeStatic:
		return "static"
	case InvokeInterface:
		return "interface"
	default:
		return fmt.Sprintf("InvokeKind(%d)", uint8(k))
	}
}

// MethodCall is an invoke* other than invokedynamic. Interface reports
// whether the constant was an InterfaceMethodref, which can happen for
// invokestatic and invokespecial too.
type MethodCall struct {
	PC         int
	Kind       InvokeKind
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

type TypeContext uint8

const (
	TypeNew TypeContext = iota
	TypeCheckCast
	TypeInstanceOf
	TypeNewArray
	TypeConstant
	TypeArrayCall
)

func (c TypeContext) String() string {
	switch c {
	case TypeNew:
		return "new"
	case TypeCheckCast:
		return "checkcast"
	case TypeInstanceOf:
		return "instanceof"
	case TypeNewArray:
		return "newarray"
	case TypeConstant:
		return "ldc"
	case TypeArrayCall:
		return "array call"
	default:
		return fmt.Sprintf("TypeContext(%d)", uint8(c))
	}
}

// TypeReference is an instruction naming a class directly. Class is the
// element class for arrays.
type TypeReference struct {
	PC      int
	Context TypeContext
	Class   string
}

func (f *FieldAccess) Offset() int   { return f.PC }
func (m *MethodCall) Offset() int    { return m.PC }
func (t *TypeReference) Offset() int { return t.PC }

func (*FieldAccess) instruction()   {}
func (*MethodCall) instruction()    {}
func (*TypeReference) instruction() {}

// Instructions decodes the symbolic references of one method body, in
// bytecode order. Instructions that touch primitives only are dropped.
func Instructions(code *Code, pool ConstantPool) ([]Instruction, error) {
	if code == nil {
		return nil, nil
	}

	var out []Instruction
	err := Walk(code.Bytecode, func(pc int, op Opcode, operands []byte) error {
		in, err := decode(pc, op, operands, pool)
		if err != nil {
			return fmt.Errorf("failed to decode %s at pc %d: %w", op, pc, err)
		}
		if in != nil {
			out = append(out, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decode(pc int, op Opcode, operands []byte, pool ConstantPool) (Instruction, error) {
	switch op {
	case Getstatic, Putstatic, Getfield, Putfield:
		ref, err := pool.MemberRef(OperandIndex(operands))
		if err != nil {
			return nil, err
		}
		if ref.Kind != ConstantFieldref {
			return nil, fmt.Errorf("%w: %s on %s constant", ErrMalformedClass, op, ref.Kind)
		}
		return &FieldAccess{
			PC:         pc,
			Owner:      ref.Owner,
			Name:       ref.Name,
			Descriptor: ref.Descriptor,
			Static:     op == Getstatic || op == Putstatic,
			Write:      op == Putstatic || op == Putfield,
		}, nil

	case Invokevirtual, Invokespecial, Invokestatic, Invokeinterface:
		ref, err := pool.MemberRef(OperandIndex(operands))
		if err != nil {
			return nil, err
		}
		if ref.Kind == ConstantFieldref {
			return nil, fmt.Errorf("%w: %s on Fieldref constant", ErrMalformedClass, op)
		}
		// clone() and friends on arrays only need the element class
		if strings.HasPrefix(ref.Owner, "[") {
			class := ClassOf(ref.Owner)
			if class == "" {
				return nil, nil
			}
			return &TypeReference{PC: pc, Context: TypeArrayCall, Class: class}, nil
		}
		return &MethodCall{
			PC:         pc,
			Kind:       InvokeKind(op - Invokevirtual),
			Owner:      ref.Owner,
			Name:       ref.Name,
			Descriptor: ref.Descriptor,
			Interface:  ref.Kind == ConstantInterfaceMethodref,
		}, nil

	case New, Checkcast, Instanceof, Anewarray, Multianewarray:
		name, err := pool.ClassName(OperandIndex(operands))
		if err != nil {
			return nil, err
		}
		class := ClassOf(name)
		if class == "" {
			return nil, nil
		}
		ctx := map[Opcode]TypeContext{
			New:            TypeNew,
			Checkcast:      TypeCheckCast,
			Instanceof:     TypeInstanceOf,
			Anewarray:      TypeNewArray,
			Multianewarray: TypeNewArray,
		}[op]
		return &TypeReference{PC: pc, Context: ctx, Class: class}, nil

	case Ldc, LdcW:
		idx := uint16(operands[0])
		if op == LdcW {
			idx = OperandIndex(operands)
		}
		v, err := pool.Loadable(idx)
		if err != nil {
			return nil, err
		}
		cc, ok := v.(ClassConstant)
		if !ok {
			return nil, nil
		}
		class := ClassOf(string(cc))
		if class == "" {
			return nil, nil
		}
		return &TypeReference{PC: pc, Context: TypeConstant, Class: class}, nil
	}

	return nil, nil
}
