package classfile

import "fmt"

type Opcode uint8

const (
	Nop             Opcode = 0x00
	AconstNull      Opcode = 0x01
	IconstM1        Opcode = 0x02
	Iconst0         Opcode = 0x03
	Iconst5         Opcode = 0x08
	Bipush          Opcode = 0x10
	Sipush          Opcode = 0x11
	Ldc             Opcode = 0x12
	LdcW            Opcode = 0x13
	Ldc2W           Opcode = 0x14
	Iload           Opcode = 0x15
	Lload           Opcode = 0x16
	Fload           Opcode = 0x17
	Dload           Opcode = 0x18
	Aload           Opcode = 0x19
	Iload0          Opcode = 0x1a
	Aload0          Opcode = 0x2a
	Istore          Opcode = 0x36
	Lstore          Opcode = 0x37
	Fstore          Opcode = 0x38
	Dstore          Opcode = 0x39
	Astore          Opcode = 0x3a
	Istore0         Opcode = 0x3b
	Astore0         Opcode = 0x4b
	Aastore         Opcode = 0x53
	Pop             Opcode = 0x57
	Pop2            Opcode = 0x58
	Dup             Opcode = 0x59
	Swap            Opcode = 0x5f
	Iadd            Opcode = 0x60
	Iinc            Opcode = 0x84
	Ifeq            Opcode = 0x99
	Goto            Opcode = 0xa7
	Jsr             Opcode = 0xa8
	Ret             Opcode = 0xa9
	Tableswitch     Opcode = 0xaa
	Lookupswitch    Opcode = 0xab
	Ireturn         Opcode = 0xac
	Lreturn         Opcode = 0xad
	Freturn         Opcode = 0xae
	Dreturn         Opcode = 0xaf
	Areturn         Opcode = 0xb0
	Return          Opcode = 0xb1
	Getstatic       Opcode = 0xb2
	Putstatic       Opcode = 0xb3
	Getfield        Opcode = 0xb4
	Putfield        Opcode = 0xb5
	Invokevirtual   Opcode = 0xb6
	Invokespecial   Opcode = 0xb7
	Invokestatic    Opcode = 0xb8
	Invokeinterface Opcode = 0xb9
	Invokedynamic   Opcode = 0xba
	New             Opcode = 0xbb
	Newarray        Opcode = 0xbc
	Anewarray       Opcode = 0xbd
	Arraylength     Opcode = 0xbe
	Athrow          Opcode = 0xbf
	Checkcast       Opcode = 0xc0
	Instanceof      Opcode = 0xc1
	Wide            Opcode = 0xc4
	Multianewarray  Opcode = 0xc5
	Ifnull          Opcode = 0xc6
	Ifnonnull       Opcode = 0xc7
	GotoW           Opcode = 0xc8
	JsrW            Opcode = 0xc9
)

var opcodeNames = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4", "iconst_5",
	"lconst_0", "lconst_1", "fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1",
	"bipush", "sipush", "ldc", "ldc_w", "ldc2_w",
	"iload", "lload", "fload", "dload", "aload",
	"iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1", "lload_2", "lload_3",
	"fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1", "dload_2", "dload_3",
	"aload_0", "aload_1", "aload_2", "aload_3",
	"iaload", "laload", "faload", "daload", "aaload", "baload", "caload", "saload",
	"istore", "lstore", "fstore", "dstore", "astore",
	"istore_0", "istore_1", "istore_2", "istore_3", "lstore_0", "lstore_1", "lstore_2", "lstore_3",
	"fstore_0", "fstore_1", "fstore_2", "fstore_3", "dstore_0", "dstore_1", "dstore_2", "dstore_3",
	"astore_0", "astore_1", "astore_2", "astore_3",
	"iastore", "lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore",
	"pop", "pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land", "ior", "lor", "ixor", "lxor",
	"iinc", "i2l", "i2f", "i2d", "l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l", "d2f",
	"i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg",
	"ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle",
	"if_icmpeq", "if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne",
	"goto", "jsr", "ret", "tableswitch", "lookupswitch",
	"ireturn", "lreturn", "freturn", "dreturn", "areturn", "return",
	"getstatic", "putstatic", "getfield", "putfield",
	"invokevirtual", "invokespecial", "invokestatic", "invokeinterface", "invokedynamic",
	"new", "newarray", "anewarray", "arraylength", "athrow", "checkcast", "instanceof",
	"monitorenter", "monitorexit", "wide", "multianewarray", "ifnull", "ifnonnull", "goto_w", "jsr_w",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(0x%02x)", uint8(op))
}

// operandSize is the fixed operand length of op, or -1 for the variable
// length switches and wide.
func operandSize(op Opcode) (int, error) {
	switch {
	case op == Bipush, op == Ldc, op == Newarray, op == Ret:
		return 1, nil
	case op >= Iload && op <= Aload, op >= Istore && op <= Astore:
		return 1, nil
	case op == Sipush, op == LdcW, op == Ldc2W, op == Iinc:
		return 2, nil
	case op >= Ifeq && op <= Jsr, op == Ifnull, op == Ifnonnull:
		return 2, nil
	case op >= Getstatic && op <= Invokestatic:
		return 2, nil
	case op == New, op == Anewarray, op == Checkcast, op == Instanceof:
		return 2, nil
	case op == Multianewarray:
		return 3, nil
	case op == Invokeinterface, op == Invokedynamic, op == GotoW, op == JsrW:
		return 4, nil
	case op == Tableswitch, op == Lookupswitch, op == Wide:
		return -1, nil
	case op <= JsrW:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: unknown opcode 0x%02x", ErrMalformedClass, uint8(op))
	}
}

// Walk calls fn for every instruction in bytecode with its offset and raw
// operand bytes. For tableswitch and lookupswitch the operands include the
// alignment padding; for wide they start with the modified opcode.
func Walk(bytecode []byte, fn func(pc int, op Opcode, operands []byte) error) error {
	br := NewBinaryReader(bytecode)
	for br.Remaining() > 0 {
		pc := br.Pos()
		b, err := br.ReadU1()
		if err != nil {
			return err
		}
		op := Opcode(b)

		size, err := operandSize(op)
		if err != nil {
			return fmt.Errorf("at pc %d: %w", pc, err)
		}
		if size < 0 {
			if size, err = variableOperandSize(bytecode, pc, op); err != nil {
				return fmt.Errorf("at pc %d: %w", pc, err)
			}
		}

		operands, err := br.ReadNBytes(size)
		if err != nil {
			return fmt.Errorf("failed to read %s operands at pc %d: %w", op, pc, err)
		}
		if err := fn(pc, op, operands); err != nil {
			return err
		}
	}
	return nil
}

func variableOperandSize(bytecode []byte, pc int, op Opcode) (int, error) {
	br := NewBinaryReader(bytecode)
	switch op {
	case Wide:
		if err := br.Skip(pc + 1); err != nil {
			return 0, err
		}
		inner, err := br.ReadU1()
		if err != nil {
			return 0, fmt.Errorf("failed to read wide opcode: %w", err)
		}
		if Opcode(inner) == Iinc {
			return 5, nil
		}
		return 3, nil

	case Tableswitch, Lookupswitch:
		// 32-bit operands are aligned to a multiple of 4 from the start of the code
		pad := (4 - (pc+1)%4) % 4
		if err := br.Skip(pc + 1 + pad + 4); err != nil {
			return 0, fmt.Errorf("failed to skip %s header: %w", op, err)
		}
		if op == Tableswitch {
			low, err := br.ReadI4()
			if err != nil {
				return 0, fmt.Errorf("failed to read tableswitch low: %w", err)
			}
			high, err := br.ReadI4()
			if err != nil {
				return 0, fmt.Errorf("failed to read tableswitch high: %w", err)
			}
			if high < low {
				return 0, fmt.Errorf("%w: tableswitch high %d < low %d", ErrMalformedClass, high, low)
			}
			return pad + 12 + int(int64(high)-int64(low)+1)*4, nil
		}
		npairs, err := br.ReadI4()
		if err != nil {
			return 0, fmt.Errorf("failed to read lookupswitch pair count: %w", err)
		}
		if npairs < 0 {
			return 0, fmt.Errorf("%w: negative lookupswitch pair count %d", ErrMalformedClass, npairs)
		}
		return pad + 8 + int(npairs)*8, nil
	}
	return 0, fmt.Errorf("%w: %s has no variable operands", ErrMalformedClass, op)
}

// OperandIndex reads the u2 constant pool index that starts most operand lists
func OperandIndex(operands []byte) uint16 {
	return uint16(operands[0])<<8 | uint16(operands[1])
}
