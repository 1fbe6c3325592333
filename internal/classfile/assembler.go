package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// stack effect of the operand-free instructions the assembler knows
var simpleStackDelta = map[Opcode]int{
	Nop:         0,
	AconstNull:  1,
	Dup:         1,
	Pop:         -1,
	Pop2:        -2,
	Swap:        0,
	Iadd:        -1,
	Aastore:     -3,
	Arraylength: 0,
	Athrow:      -1,
	Ireturn:     -1,
	Lreturn:     -2,
	Freturn:     -1,
	Dreturn:     -2,
	Areturn:     -1,
	Return:      0,
}

// Assembler emits straight-line bytecode and keeps track of the operand
// stack depth so max_stack can be computed. Errors are sticky and surface
// from Code.
type Assembler struct {
	pool      *ConstantPoolBuilder
	buf       []byte
	depth     int
	maxDepth  int
	maxLocals int
	lines     []LineNumber
	err       error
}

func NewAssembler(pool *ConstantPoolBuilder) *Assembler {
	return &Assembler{pool: pool}
}

func (a *Assembler) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *Assembler) adjust(delta int, op Opcode) {
	a.depth += delta
	if a.depth < 0 {
		a.fail(fmt.Errorf("operand stack underflow at %s (pc %d)", op, len(a.buf)))
		a.depth = 0
	}
	a.maxDepth = max(a.maxDepth, a.depth)
}

func (a *Assembler) emit(op Opcode, delta int, operands ...byte) *Assembler {
	a.buf = append(a.buf, byte(op))
	a.buf = append(a.buf, operands...)
	a.adjust(delta, op)
	return a
}

func u2(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

// PC is the offset the next instruction will be written at
func (a *Assembler) PC() int {
	return len(a.buf)
}

// Line maps the next instruction to a source line
func (a *Assembler) Line(line int) *Assembler {
	if line > 0 && line <= math.MaxUint16 {
		a.lines = append(a.lines, LineNumber{StartPC: uint16(len(a.buf)), Line: uint16(line)})
	}
	return a
}

// Op emits an instruction without operands
func (a *Assembler) Op(op Opcode) *Assembler {
	delta, ok := simpleStackDelta[op]
	if !ok {
		a.fail(fmt.Errorf("unsupported instruction %s", op))
		return a
	}
	return a.emit(op, delta)
}

// PushInt pushes an int constant using the shortest encoding
func (a *Assembler) PushInt(v int32) *Assembler {
	switch {
	case v >= -1 && v <= 5:
		return a.emit(Opcode(int32(Iconst0)+v), 1)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return a.emit(Bipush, 1, byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return a.emit(Sipush, 1, u2(uint16(int16(v)))...)
	default:
		return a.ldc(a.pool.Integer(v))
	}
}

func (a *Assembler) PushString(s string) *Assembler {
	return a.ldc(a.pool.String(s))
}

// PushClass pushes a java.lang.Class constant
func (a *Assembler) PushClass(internalName string) *Assembler {
	return a.ldc(a.pool.Class(internalName))
}

func (a *Assembler) ldc(idx uint16) *Assembler {
	if idx <= math.MaxUint8 {
		return a.emit(Ldc, 1, byte(idx))
	}
	return a.emit(LdcW, 1, u2(idx)...)
}

// TypeOp emits new, anewarray, checkcast or instanceof
func (a *Assembler) TypeOp(op Opcode, class string) *Assembler {
	idx := a.pool.Class(class)
	switch op {
	case New:
		return a.emit(op, 1, u2(idx)...)
	case Anewarray, Checkcast, Instanceof:
		return a.emit(op, 0, u2(idx)...)
	default:
		a.fail(fmt.Errorf("%s is not a type instruction", op))
		return a
	}
}

// Invoke emits a method call; owner is an interface for invokeinterface
func (a *Assembler) Invoke(op Opcode, owner, name, descriptor string) *Assembler {
	params, ret, err := ParseMethodDescriptor(descriptor)
	if err != nil {
		a.fail(err)
		return a
	}
	args := 0
	for _, p := range params {
		args += SlotSize(p)
	}

	switch op {
	case Invokevirtual, Invokespecial:
		return a.emit(op, SlotSize(ret)-args-1, u2(a.pool.Methodref(owner, name, descriptor))...)
	case Invokestatic:
		return a.emit(op, SlotSize(ret)-args, u2(a.pool.Methodref(owner, name, descriptor))...)
	case Invokeinterface:
		idx := a.pool.InterfaceMethodref(owner, name, descriptor)
		return a.emit(op, SlotSize(ret)-args-1, append(u2(idx), byte(args+1), 0)...)
	default:
		a.fail(fmt.Errorf("%s is not an invoke instruction", op))
		return a
	}
}

// FieldOp emits getfield, putfield, getstatic or putstatic
func (a *Assembler) FieldOp(op Opcode, owner, name, descriptor string) *Assembler {
	idx := u2(a.pool.Fieldref(owner, name, descriptor))
	size := SlotSize(descriptor)
	switch op {
	case Getstatic:
		return a.emit(op, size, idx...)
	case Putstatic:
		return a.emit(op, -size, idx...)
	case Getfield:
		return a.emit(op, size-1, idx...)
	case Putfield:
		return a.emit(op, -size-1, idx...)
	default:
		a.fail(fmt.Errorf("%s is not a field instruction", op))
		return a
	}
}

// Local emits a load or store (iload..aload, istore..astore) of a local
// slot, using the one-byte forms for slots 0-3.
func (a *Assembler) Local(op Opcode, slot int) *Assembler {
	var load bool
	var kind int
	switch {
	case op >= Iload && op <= Aload:
		load, kind = true, int(op-Iload)
	case op >= Istore && op <= Astore:
		kind = int(op - Istore)
	default:
		a.fail(fmt.Errorf("%s is not a local variable instruction", op))
		return a
	}
	if slot < 0 || slot > math.MaxUint8 {
		a.fail(fmt.Errorf("local slot %d out of range", slot))
		return a
	}

	// long and double take two slots
	size := 1
	if kind == 1 || kind == 3 {
		size = 2
	}
	a.maxLocals = max(a.maxLocals, slot+size)

	delta := size
	if !load {
		delta = -size
	}
	if slot <= 3 {
		base := Iload0
		if !load {
			base = Istore0
		}
		return a.emit(base+Opcode(kind*4+slot), delta)
	}
	return a.emit(op, delta, byte(slot))
}

// Code finishes the method body
func (a *Assembler) Code() (*Code, error) {
	if a.err != nil {
		return nil, a.err
	}
	if err := a.pool.Err(); err != nil {
		return nil, err
	}
	if len(a.buf) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCodeTooLarge, len(a.buf))
	}
	return &Code{
		MaxStack:    uint16(a.maxDepth),
		MaxLocals:   uint16(a.maxLocals),
		Bytecode:    a.buf,
		LineNumbers: a.lines,
	}, nil
}
