package classfile

import (
	"fmt"
	"sort"
)

// Class is the parsed form of one .class file. Only what compatibility
// checks need is kept: names are in internal (slash) form.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         ConstantPool
	AccessFlags  AccessFlags
	Name         string
	SuperName    string // "" for java/lang/Object and module-info
	Interfaces   []string
	Fields       []*Member
	Methods      []*Member
	SourceFile   string
}

// Member is a field or method declaration
type Member struct {
	AccessFlags AccessFlags
	Name        string
	Descriptor  string
	Code        *Code // methods with a body only
}

type Code struct {
	MaxStack    uint16
	MaxLocals   uint16
	Bytecode    []byte
	LineNumbers []LineNumber // sorted by StartPC
}

type LineNumber struct {
	StartPC uint16
	Line    uint16
}

// LineAt returns the source line of the instruction at pc, or 0 when the
// method carries no line table.
func (c *Code) LineAt(pc int) int {
	if c == nil {
		return 0
	}
	line := 0
	for _, ln := range c.LineNumbers {
		if int(ln.StartPC) > pc {
			break
		}
		line = int(ln.Line)
	}
	return line
}

// Field returns the declared field with the given name and descriptor
func (c *Class) Field(name, descriptor string) *Member {
	return findMember(c.Fields, name, descriptor)
}

// Method returns the declared method with the given name and descriptor
func (c *Class) Method(name, descriptor string) *Member {
	return findMember(c.Methods, name, descriptor)
}

func findMember(members []*Member, name, descriptor string) *Member {
	for _, m := range members {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

/*
Parse decodes a class file:

u4             magic
u2             minor_version
u2             major_version
u2             constant_pool_count
cp_info        constant_pool[constant_pool_count-1]
u2             access_flags
u2             this_class
u2             super_class
u2             interfaces_count
u2             interfaces[interfaces_count]
u2             fields_count
field_info     fields[fields_count]
u2             methods_count
method_info    methods[methods_count]
u2             attributes_count
attribute_info attributes[attributes_count]
*/
func Parse(data []byte) (*Class, error) {
	cls, err := parse(NewBinaryReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClass, err)
	}
	return cls, nil
}

func parse(br *BinaryReader) (*Class, error) {
	magic, err := br.ReadU4()
	if err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("invalid magic 0x%08X", magic)
	}

	cls := &Class{}
	if cls.MinorVersion, err = br.ReadU2(); err != nil {
		return nil, fmt.Errorf("failed to read minor version: %w", err)
	}
	if cls.MajorVersion, err = br.ReadU2(); err != nil {
		return nil, fmt.Errorf("failed to read major version: %w", err)
	}

	if cls.Pool, err = readConstantPool(br); err != nil {
		return nil, err
	}

	flags, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read access flags: %w", err)
	}
	cls.AccessFlags = AccessFlags(flags)

	thisIdx, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read this_class: %w", err)
	}
	if cls.Name, err = cls.Pool.ClassName(thisIdx); err != nil {
		return nil, fmt.Errorf("failed to resolve this_class: %w", err)
	}

	superIdx, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read super_class: %w", err)
	}
	if superIdx != 0 {
		if cls.SuperName, err = cls.Pool.ClassName(superIdx); err != nil {
			return nil, fmt.Errorf("failed to resolve super_class: %w", err)
		}
	}

	ifaceCount, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read interfaces count: %w", err)
	}
	for i := range int(ifaceCount) {
		idx, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read interface %d: %w", i, err)
		}
		name, err := cls.Pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve interface %d: %w", i, err)
		}
		cls.Interfaces = append(cls.Interfaces, name)
	}

	if cls.Fields, err = readMembers(br, cls.Pool, "field"); err != nil {
		return nil, err
	}
	if cls.Methods, err = readMembers(br, cls.Pool, "method"); err != nil {
		return nil, err
	}

	err = readAttributes(br, cls.Pool, func(name string, attr *BinaryReader) error {
		if name != "SourceFile" {
			return nil
		}
		idx, err := attr.ReadU2()
		if err != nil {
			return fmt.Errorf("failed to read SourceFile index: %w", err)
		}
		cls.SourceFile, err = cls.Pool.Utf8(idx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read class attributes: %w", err)
	}

	return cls, nil
}

func readMembers(br *BinaryReader, pool ConstantPool, kind string) ([]*Member, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s count: %w", kind, err)
	}

	members := make([]*Member, 0, count)
	for i := range int(count) {
		m := &Member{}
		flags, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s %d access flags: %w", kind, i, err)
		}
		m.AccessFlags = AccessFlags(flags)

		nameIdx, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s %d name: %w", kind, i, err)
		}
		if m.Name, err = pool.Utf8(nameIdx); err != nil {
			return nil, fmt.Errorf("failed to resolve %s %d name: %w", kind, i, err)
		}

		descIdx, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s %s descriptor: %w", kind, m.Name, err)
		}
		if m.Descriptor, err = pool.Utf8(descIdx); err != nil {
			return nil, fmt.Errorf("failed to resolve %s %s descriptor: %w", kind, m.Name, err)
		}

		err = readAttributes(br, pool, func(name string, attr *BinaryReader) error {
			if name != "Code" || kind != "method" {
				return nil
			}
			code, err := readCode(attr, pool)
			if err != nil {
				return err
			}
			m.Code = code
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s %s attributes: %w", kind, m.Name, err)
		}

		members = append(members, m)
	}
	return members, nil
}

// readAttributes walks an attribute table, handing each attribute body to fn
// through its own reader so a short read never desynchronizes the outer one.
func readAttributes(br *BinaryReader, pool ConstantPool, fn func(name string, attr *BinaryReader) error) error {
	count, err := br.ReadU2()
	if err != nil {
		return fmt.Errorf("failed to read attributes count: %w", err)
	}

	for i := range int(count) {
		nameIdx, err := br.ReadU2()
		if err != nil {
			return fmt.Errorf("failed to read attribute %d name: %w", i, err)
		}
		name, err := pool.Utf8(nameIdx)
		if err != nil {
			return fmt.Errorf("failed to resolve attribute %d name: %w", i, err)
		}
		length, err := br.ReadU4()
		if err != nil {
			return fmt.Errorf("failed to read %s length: %w", name, err)
		}
		body, err := br.ReadNBytes(int(length))
		if err != nil {
			return fmt.Errorf("failed to read %s body: %w", name, err)
		}
		if err := fn(name, NewBinaryReader(body)); err != nil {
			return err
		}
	}
	return nil
}

/*
readCode parses a Code attribute body:

u2 max_stack
u2 max_locals
u4 code_length
u1 code[code_length]
u2 exception_table_length
   { u2 start_pc; u2 end_pc; u2 handler_pc; u2 catch_type; } [exception_table_length]
u2 attributes_count
*/
func readCode(br *BinaryReader, pool ConstantPool) (*Code, error) {
	code := &Code{}
	var err error
	if code.MaxStack, err = br.ReadU2(); err != nil {
		return nil, fmt.Errorf("failed to read max_stack: %w", err)
	}
	if code.MaxLocals, err = br.ReadU2(); err != nil {
		return nil, fmt.Errorf("failed to read max_locals: %w", err)
	}

	length, err := br.ReadU4()
	if err != nil {
		return nil, fmt.Errorf("failed to read code length: %w", err)
	}
	if code.Bytecode, err = br.ReadNBytes(int(length)); err != nil {
		return nil, fmt.Errorf("failed to read bytecode: %w", err)
	}

	handlers, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read exception table length: %w", err)
	}
	if err := br.Skip(int(handlers) * 8); err != nil {
		return nil, fmt.Errorf("failed to skip exception table: %w", err)
	}

	err = readAttributes(br, pool, func(name string, attr *BinaryReader) error {
		if name != "LineNumberTable" {
			return nil
		}
		n, err := attr.ReadU2()
		if err != nil {
			return fmt.Errorf("failed to read line number count: %w", err)
		}
		for range int(n) {
			var ln LineNumber
			if ln.StartPC, err = attr.ReadU2(); err != nil {
				return fmt.Errorf("failed to read line start pc: %w", err)
			}
			if ln.Line, err = attr.ReadU2(); err != nil {
				return fmt.Errorf("failed to read line number: %w", err)
			}
			code.LineNumbers = append(code.LineNumbers, ln)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(code.LineNumbers, func(i, j int) bool {
		return code.LineNumbers[i].StartPC < code.LineNumbers[j].StartPC
	})
	return code, nil
}
