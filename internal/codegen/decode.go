package codegen

import (
	"fmt"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

// Decoded is what a generated class's create() method builds
type Decoded struct {
	ClassName  string // dotted
	Runtime    Runtime
	References []*reference.Reference
}

// operand stack values
type (
	uninitialized struct{ class string }
	builderValue  struct{ b *reference.Builder }
	matcherValue  struct{ refs []*reference.Reference }
	arrayValue    struct {
		elem  string
		items []any
	}
)

// Decode recovers the references from a class produced by Encode by
// evaluating its create() method symbolically. Anything Encode would not
// emit fails with ErrNotGenerated.
func Decode(data []byte) (*Decoded, error) {
	cls, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}

	var create *classfile.Member
	for _, m := range cls.Methods {
		if m.Name == createMethod && m.AccessFlags.IsStatic() {
			create = m
			break
		}
	}
	if create == nil || create.Code == nil {
		return nil, fmt.Errorf("%w: %s has no static create()", ErrNotGenerated, cls.Name)
	}
	runtime, ok := runtimeFromCreate(create.Descriptor)
	if !ok {
		return nil, fmt.Errorf("%w: create%s does not return a ReferenceMatcher", ErrNotGenerated, create.Descriptor)
	}

	e := &evaluator{cls: cls, runtime: runtime, builderDesc: runtime.builderDescriptors()}
	result, err := e.run(create)
	if err != nil {
		return nil, err
	}
	matcher, ok := result.(*matcherValue)
	if !ok {
		return nil, fmt.Errorf("%w: create() returned %T", ErrNotGenerated, result)
	}
	return &Decoded{
		ClassName:  reference.ToClassName(cls.Name),
		Runtime:    runtime,
		References: matcher.refs,
	}, nil
}

type evaluator struct {
	cls         *classfile.Class
	runtime     Runtime
	builderDesc map[string]string
	depth       int
}

func notGenerated(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotGenerated, fmt.Sprintf(format, args...))
}

func (e *evaluator) run(method *classfile.Member) (any, error) {
	if method.Code == nil {
		return nil, notGenerated("%s has no code", method.Name)
	}
	// factories never call each other
	if e.depth > 1 {
		return nil, notGenerated("nested call into %s", method.Name)
	}
	e.depth++
	defer func() { e.depth-- }()

	pool := e.cls.Pool
	var stack []any
	var result any
	returned := false

	push := func(v any) { stack = append(stack, v) }
	pop := func() (any, error) {
		if len(stack) == 0 {
			return nil, notGenerated("operand stack underflow in %s", method.Name)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	err := classfile.Walk(method.Code.Bytecode, func(pc int, op classfile.Opcode, operands []byte) error {
		if returned {
			return notGenerated("code after return at pc %d", pc)
		}
		if op >= classfile.IconstM1 && op <= classfile.Iconst5 {
			push(int32(op) - int32(classfile.Iconst0))
			return nil
		}

		switch op {
		case classfile.Bipush:
			push(int32(int8(operands[0])))
		case classfile.Sipush:
			push(int32(int16(classfile.OperandIndex(operands))))
		case classfile.Ldc, classfile.LdcW:
			idx := uint16(operands[0])
			if op == classfile.LdcW {
				idx = classfile.OperandIndex(operands)
			}
			v, err := pool.Loadable(idx)
			if err != nil {
				return err
			}
			switch v.(type) {
			case string, int32:
				push(v)
			default:
				return notGenerated("unexpected constant %T at pc %d", v, pc)
			}
		case classfile.Dup:
			if len(stack) == 0 {
				return notGenerated("dup on empty stack at pc %d", pc)
			}
			push(stack[len(stack)-1])
		case classfile.New:
			class, err := pool.ClassName(classfile.OperandIndex(operands))
			if err != nil {
				return err
			}
			if class != e.runtime.MatcherClass() && class != e.runtime.BuilderClass() {
				return notGenerated("new %s at pc %d", class, pc)
			}
			push(&uninitialized{class: class})
		case classfile.Anewarray:
			class, err := pool.ClassName(classfile.OperandIndex(operands))
			if err != nil {
				return err
			}
			v, err := pop()
			if err != nil {
				return err
			}
			n, ok := v.(int32)
			if !ok || n < 0 {
				return notGenerated("bad array length at pc %d", pc)
			}
			// every element needs its own aastore after this instruction
			if int(n) > len(method.Code.Bytecode)-pc {
				return notGenerated("array length %d exceeds the code at pc %d", n, pc)
			}
			push(&arrayValue{elem: class, items: make([]any, n)})
		case classfile.Aastore:
			val, err := pop()
			if err != nil {
				return err
			}
			iv, err := pop()
			if err != nil {
				return err
			}
			av, err := pop()
			if err != nil {
				return err
			}
			arr, ok1 := av.(*arrayValue)
			idx, ok2 := iv.(int32)
			if !ok1 || !ok2 || idx < 0 || int(idx) >= len(arr.items) {
				return notGenerated("bad array store at pc %d", pc)
			}
			arr.items[idx] = val
		case classfile.Invokestatic, classfile.Invokespecial, classfile.Invokevirtual:
			ref, err := pool.MemberRef(classfile.OperandIndex(operands))
			if err != nil {
				return err
			}
			return e.invoke(op, ref, pc, pop, push)
		case classfile.Areturn:
			v, err := pop()
			if err != nil {
				return err
			}
			result, returned = v, true
		default:
			return notGenerated("unexpected %s at pc %d", op, pc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !returned {
		return nil, notGenerated("%s does not return", method.Name)
	}
	return result, nil
}

func (e *evaluator) invoke(op classfile.Opcode, ref classfile.MemberRef, pc int, pop func() (any, error), push func(any)) error {
	switch {
	case op == classfile.Invokestatic && ref.Owner == e.cls.Name:
		if ref.Descriptor != e.runtime.referenceFactoryDescriptor() {
			return notGenerated("call to %s%s at pc %d", ref.Name, ref.Descriptor, pc)
		}
		method := e.cls.Method(ref.Name, ref.Descriptor)
		if method == nil {
			return notGenerated("missing factory %s at pc %d", ref.Name, pc)
		}
		v, err := e.run(method)
		if err != nil {
			return err
		}
		if _, ok := v.(*reference.Reference); !ok {
			return notGenerated("factory %s returned %T", ref.Name, v)
		}
		push(v)
		return nil

	case op == classfile.Invokespecial && ref.Name == "<init>" && ref.Owner == e.runtime.MatcherClass():
		if ref.Descriptor != e.runtime.matcherInitDescriptor() {
			return notGenerated("matcher constructor %s at pc %d", ref.Descriptor, pc)
		}
		args, err := popN(pop, 1)
		if err != nil {
			return err
		}
		arr, ok := args[0].(*arrayValue)
		if !ok || arr.elem != e.runtime.ReferenceClass() {
			return notGenerated("matcher constructed without references at pc %d", pc)
		}
		refs := make([]*reference.Reference, len(arr.items))
		for i, item := range arr.items {
			if refs[i], ok = item.(*reference.Reference); !ok {
				return notGenerated("reference %d is %T", i, item)
			}
		}
		return initialize(pop, push, e.runtime.MatcherClass(), &matcherValue{refs: refs})

	case op == classfile.Invokespecial && ref.Name == "<init>" && ref.Owner == e.runtime.BuilderClass():
		if ref.Descriptor != e.builderDesc["<init>"] {
			return notGenerated("builder constructor %s at pc %d", ref.Descriptor, pc)
		}
		args, err := popN(pop, 1)
		if err != nil {
			return err
		}
		name, ok := args[0].(string)
		if !ok {
			return notGenerated("builder constructed without a class name at pc %d", pc)
		}
		return initialize(pop, push, e.runtime.BuilderClass(), &builderValue{b: reference.NewBuilder(name)})

	case op == classfile.Invokevirtual && ref.Owner == e.runtime.BuilderClass():
		return e.callBuilder(ref, pc, pop, push)
	}
	return notGenerated("call to %s.%s%s at pc %d", ref.Owner, ref.Name, ref.Descriptor, pc)
}

// initialize consumes the two copies new+dup left and pushes the object
func initialize(pop func() (any, error), push func(any), class string, obj any) error {
	for range 2 {
		v, err := pop()
		if err != nil {
			return err
		}
		u, ok := v.(*uninitialized)
		if !ok || u.class != class {
			return notGenerated("constructor of %s on %T", class, v)
		}
	}
	push(obj)
	return nil
}

func popN(pop func() (any, error), n int) ([]any, error) {
	args := make([]any, n)
	for i := n - 1; i >= 0; i-- {
		v, err := pop()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (e *evaluator) callBuilder(ref classfile.MemberRef, pc int, pop func() (any, error), push func(any)) error {
	desc, ok := e.builderDesc[ref.Name]
	if !ok || ref.Name == "<init>" || desc != ref.Descriptor {
		return notGenerated("builder call %s%s at pc %d", ref.Name, ref.Descriptor, pc)
	}
	params, _, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return err
	}
	args, err := popN(pop, len(params))
	if err != nil {
		return err
	}
	recv, err := pop()
	if err != nil {
		return err
	}
	bv, ok := recv.(*builderValue)
	if !ok {
		return notGenerated("%s called on %T at pc %d", ref.Name, recv, pc)
	}

	bad := func() error {
		return notGenerated("bad arguments to %s at pc %d", ref.Name, pc)
	}
	switch ref.Name {
	case "withSource":
		file, ok1 := args[0].(string)
		line, ok2 := args[1].(int32)
		if !ok1 || !ok2 {
			return bad()
		}
		bv.b.WithSource(file, int(line))
	case "withFlag":
		flags, ok := args[0].(int32)
		if !ok {
			return bad()
		}
		bv.b.WithFlag(reference.Flags(uint32(flags)))
	case "withSuperName", "withInterface":
		name, ok := args[0].(string)
		if !ok {
			return bad()
		}
		if ref.Name == "withSuperName" {
			bv.b.WithSuperName(name)
		} else {
			bv.b.WithInterface(name)
		}
	case "withField":
		sources, ok1 := stringItems(args[0])
		flags, ok2 := args[1].(int32)
		name, ok3 := args[2].(string)
		desc, ok4 := args[3].(string)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return bad()
		}
		bv.b.WithField(sources, reference.Flags(uint32(flags)), name, desc)
	case "withMethod":
		sources, ok1 := stringItems(args[0])
		flags, ok2 := args[1].(int32)
		name, ok3 := args[2].(string)
		ret, ok4 := args[3].(string)
		params, ok5 := stringItems(args[4])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return bad()
		}
		bv.b.WithMethod(sources, reference.Flags(uint32(flags)), name, ret, params...)
	case "build":
		push(bv.b.Build())
		return nil
	}
	push(bv)
	return nil
}

func stringItems(v any) ([]string, bool) {
	arr, ok := v.(*arrayValue)
	if !ok || arr.elem != "java/lang/String" {
		return nil, false
	}
	out := make([]string, len(arr.items))
	for i, item := range arr.items {
		if out[i], ok = item.(string); !ok {
			return nil, false
		}
	}
	return out, true
}
