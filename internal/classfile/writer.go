package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Version written by ClassWriter (Java 8). Generated code has no branches,
// so no StackMapTable is needed.
const (
	WriterMajorVersion = 52
	WriterMinorVersion = 0
)

type poolKey struct {
	kind ConstantKind
	text string
	a, b uint16
	i    int64
}

// ConstantPoolBuilder assigns constant pool indexes, reusing identical
// entries. The first overflow is sticky and reported by Err.
type ConstantPoolBuilder struct {
	entries []Constant
	index   map[poolKey]uint16
	err     error
}

func NewConstantPoolBuilder() *ConstantPoolBuilder {
	return &ConstantPoolBuilder{
		entries: make([]Constant, 1),
		index:   make(map[poolKey]uint16),
	}
}

func (b *ConstantPoolBuilder) Err() error {
	return b.err
}

// Pool returns the entries added so far, indexed like a parsed pool
func (b *ConstantPoolBuilder) Pool() ConstantPool {
	return append(ConstantPool(nil), b.entries...)
}

func (b *ConstantPoolBuilder) add(key poolKey, c Constant) uint16 {
	if idx, ok := b.index[key]; ok {
		return idx
	}
	if b.err != nil {
		return 0
	}
	if len(b.entries) >= math.MaxUint16 {
		b.err = fmt.Errorf("%w: more than %d entries", ErrPoolOverflow, math.MaxUint16-1)
		return 0
	}
	idx := uint16(len(b.entries))
	b.entries = append(b.entries, c)
	b.index[key] = idx
	return idx
}

func (b *ConstantPoolBuilder) Utf8(s string) uint16 {
	if b.err == nil && len(encodeModifiedUTF8(s)) > math.MaxUint16 {
		b.err = fmt.Errorf("%w: string constant of %d bytes", ErrPoolOverflow, len(s))
		return 0
	}
	return b.add(poolKey{kind: ConstantUtf8, text: s}, Constant{Kind: ConstantUtf8, Text: s})
}

// Class adds a Class constant for an internal name or array descriptor
func (b *ConstantPoolBuilder) Class(internalName string) uint16 {
	name := b.Utf8(internalName)
	return b.add(poolKey{kind: ConstantClass, a: name}, Constant{Kind: ConstantClass, Index1: name})
}

func (b *ConstantPoolBuilder) String(s string) uint16 {
	text := b.Utf8(s)
	return b.add(poolKey{kind: ConstantString, a: text}, Constant{Kind: ConstantString, Index1: text})
}

func (b *ConstantPoolBuilder) Integer(v int32) uint16 {
	return b.add(poolKey{kind: ConstantInteger, i: int64(v)}, Constant{Kind: ConstantInteger, Int: int64(v)})
}

func (b *ConstantPoolBuilder) NameAndType(name, descriptor string) uint16 {
	n, d := b.Utf8(name), b.Utf8(descriptor)
	return b.add(poolKey{kind: ConstantNameAndType, a: n, b: d},
		Constant{Kind: ConstantNameAndType, Index1: n, Index2: d})
}

func (b *ConstantPoolBuilder) memberRef(kind ConstantKind, owner, name, descriptor string) uint16 {
	class, nat := b.Class(owner), b.NameAndType(name, descriptor)
	return b.add(poolKey{kind: kind, a: class, b: nat}, Constant{Kind: kind, Index1: class, Index2: nat})
}

func (b *ConstantPoolBuilder) Fieldref(owner, name, descriptor string) uint16 {
	return b.memberRef(ConstantFieldref, owner, name, descriptor)
}

func (b *ConstantPoolBuilder) Methodref(owner, name, descriptor string) uint16 {
	return b.memberRef(ConstantMethodref, owner, name, descriptor)
}

func (b *ConstantPoolBuilder) InterfaceMethodref(owner, name, descriptor string) uint16 {
	return b.memberRef(ConstantInterfaceMethodref, owner, name, descriptor)
}

func (b *ConstantPoolBuilder) appendTo(out []byte) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(len(b.entries)))
	for _, c := range b.entries[1:] {
		out = append(out, byte(c.Kind))
		switch c.Kind {
		case ConstantUtf8:
			text := encodeModifiedUTF8(c.Text)
			out = binary.BigEndian.AppendUint16(out, uint16(len(text)))
			out = append(out, text...)
		case ConstantInteger:
			out = binary.BigEndian.AppendUint32(out, uint32(int32(c.Int)))
		case ConstantClass, ConstantString:
			out = binary.BigEndian.AppendUint16(out, c.Index1)
		default:
			out = binary.BigEndian.AppendUint16(out, c.Index1)
			out = binary.BigEndian.AppendUint16(out, c.Index2)
		}
	}
	return out
}

type memberEntry struct {
	access     AccessFlags
	name       string
	descriptor string
	code       *Code
}

// ClassWriter assembles a class file in memory
type ClassWriter struct {
	pool       *ConstantPoolBuilder
	access     AccessFlags
	name       string
	superName  string
	interfaces []string
	sourceFile string
	fields     []memberEntry
	methods    []memberEntry
}

// NewClassWriter starts a class. Names are internal (slash) names; an empty
// superName means java/lang/Object.
func NewClassWriter(access AccessFlags, name, superName string, interfaces ...string) *ClassWriter {
	if superName == "" {
		superName = "java/lang/Object"
	}
	return &ClassWriter{
		pool:       NewConstantPoolBuilder(),
		access:     access,
		name:       name,
		superName:  superName,
		interfaces: interfaces,
	}
}

// Pool exposes the writer's constant pool, shared with its assemblers
func (w *ClassWriter) Pool() *ConstantPoolBuilder {
	return w.pool
}

func (w *ClassWriter) Name() string {
	return w.name
}

func (w *ClassWriter) SetSourceFile(name string) {
	w.sourceFile = name
}

// NewAssembler returns an assembler emitting into this class's pool
func (w *ClassWriter) NewAssembler() *Assembler {
	return NewAssembler(w.pool)
}

func (w *ClassWriter) AddField(access AccessFlags, name, descriptor string) {
	w.fields = append(w.fields, memberEntry{access: access, name: name, descriptor: descriptor})
}

// AddMethod adds a method. asm is nil for abstract and native methods.
// max_locals covers the receiver and parameters at least.
func (w *ClassWriter) AddMethod(access AccessFlags, name, descriptor string, asm *Assembler) error {
	entry := memberEntry{access: access, name: name, descriptor: descriptor}
	if asm != nil {
		code, err := asm.Code()
		if err != nil {
			return fmt.Errorf("failed to assemble %s%s: %w", name, descriptor, err)
		}
		args, err := ArgumentSlots(descriptor)
		if err != nil {
			return fmt.Errorf("failed to size locals of %s%s: %w", name, descriptor, err)
		}
		if !access.IsStatic() {
			args++
		}
		if int(code.MaxLocals) < args {
			code.MaxLocals = uint16(args)
		}
		entry.code = code
	}
	w.methods = append(w.methods, entry)
	return nil
}

// Bytes serializes the class
func (w *ClassWriter) Bytes() ([]byte, error) {
	thisIdx := w.pool.Class(w.name)
	superIdx := w.pool.Class(w.superName)
	ifaceIdx := make([]uint16, len(w.interfaces))
	for i, iface := range w.interfaces {
		ifaceIdx[i] = w.pool.Class(iface)
	}

	// Every pool entry must exist before the pool is written
	body := w.appendMembers(nil, w.fields)
	body = w.appendMembers(body, w.methods)
	var sourceAttr []byte
	if w.sourceFile != "" {
		sourceAttr = binary.BigEndian.AppendUint16(sourceAttr, w.pool.Utf8("SourceFile"))
		sourceAttr = binary.BigEndian.AppendUint32(sourceAttr, 2)
		sourceAttr = binary.BigEndian.AppendUint16(sourceAttr, w.pool.Utf8(w.sourceFile))
	}
	if err := w.pool.Err(); err != nil {
		return nil, fmt.Errorf("failed to write class %s: %w", w.name, err)
	}

	out := binary.BigEndian.AppendUint32(nil, Magic)
	out = binary.BigEndian.AppendUint16(out, WriterMinorVersion)
	out = binary.BigEndian.AppendUint16(out, WriterMajorVersion)
	out = w.pool.appendTo(out)
	out = binary.BigEndian.AppendUint16(out, uint16(w.access))
	out = binary.BigEndian.AppendUint16(out, thisIdx)
	out = binary.BigEndian.AppendUint16(out, superIdx)
	out = binary.BigEndian.AppendUint16(out, uint16(len(ifaceIdx)))
	for _, idx := range ifaceIdx {
		out = binary.BigEndian.AppendUint16(out, idx)
	}
	out = append(out, body...)
	if sourceAttr != nil {
		out = binary.BigEndian.AppendUint16(out, 1)
		out = append(out, sourceAttr...)
	} else {
		out = binary.BigEndian.AppendUint16(out, 0)
	}
	return out, nil
}

func (w *ClassWriter) appendMembers(out []byte, members []memberEntry) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(len(members)))
	for _, m := range members {
		out = binary.BigEndian.AppendUint16(out, uint16(m.access))
		out = binary.BigEndian.AppendUint16(out, w.pool.Utf8(m.name))
		out = binary.BigEndian.AppendUint16(out, w.pool.Utf8(m.descriptor))
		if m.code == nil {
			out = binary.BigEndian.AppendUint16(out, 0)
			continue
		}
		out = binary.BigEndian.AppendUint16(out, 1)
		out = w.appendCode(out, m.code)
	}
	return out
}

func (w *ClassWriter) appendCode(out []byte, code *Code) []byte {
	var attrs []byte
	attrCount := uint16(0)
	if len(code.LineNumbers) > 0 {
		attrCount++
		attrs = binary.BigEndian.AppendUint16(attrs, w.pool.Utf8("LineNumberTable"))
		attrs = binary.BigEndian.AppendUint32(attrs, uint32(2+4*len(code.LineNumbers)))
		attrs = binary.BigEndian.AppendUint16(attrs, uint16(len(code.LineNumbers)))
		for _, ln := range code.LineNumbers {
			attrs = binary.BigEndian.AppendUint16(attrs, ln.StartPC)
			attrs = binary.BigEndian.AppendUint16(attrs, ln.Line)
		}
	}

	// max_stack, max_locals, code_length, code, exception table, attributes
	length := 2 + 2 + 4 + len(code.Bytecode) + 2 + 2 + len(attrs)
	out = binary.BigEndian.AppendUint16(out, w.pool.Utf8("Code"))
	out = binary.BigEndian.AppendUint32(out, uint32(length))
	out = binary.BigEndian.AppendUint16(out, code.MaxStack)
	out = binary.BigEndian.AppendUint16(out, code.MaxLocals)
	out = binary.BigEndian.AppendUint32(out, uint32(len(code.Bytecode)))
	out = append(out, code.Bytecode...)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, attrCount)
	return append(out, attrs...)
}
