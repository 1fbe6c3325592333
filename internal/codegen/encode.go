package codegen

import (
	"fmt"
	"math"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

/*
Encode writes a class with a static factory that rebuilds refs on the JVM:

	public final class <className> {
	    private <className>() {}

	    public static ReferenceMatcher create() {
	        return new ReferenceMatcher(new Reference[] { reference$0(), reference$1(), ... });
	    }

	    private static Reference reference$0() {
	        return new Reference.Builder("a.b.C")
	            .withSource("Advice.java", 12)
	            .withFlag(4)
	            .withMethod(new String[] {...}, 16, "doWork", "Ljava/lang/String;", new String[] {...})
	            .build();
	    }
	}

Each reference gets its own method so large modules stay under the code
size limit of a single method.
*/
func Encode(className string, runtime Runtime, refs []*reference.Reference) ([]byte, error) {
	className = reference.ToInternalName(className)
	if len(refs) > math.MaxInt32 {
		return nil, fmt.Errorf("too many references: %d", len(refs))
	}

	w := classfile.NewClassWriter(classfile.AccPublic|classfile.AccFinal|classfile.AccSuper, className, "")

	ctor := w.NewAssembler()
	ctor.Local(classfile.Aload, 0).
		Invoke(classfile.Invokespecial, "java/lang/Object", "<init>", "()V").
		Op(classfile.Return)
	if err := w.AddMethod(classfile.AccPrivate, "<init>", "()V", ctor); err != nil {
		return nil, err
	}

	create := w.NewAssembler()
	create.TypeOp(classfile.New, runtime.MatcherClass()).
		Op(classfile.Dup).
		PushInt(int32(len(refs))).
		TypeOp(classfile.Anewarray, runtime.ReferenceClass())

	for i, ref := range refs {
		name := factoryName(i)
		create.Op(classfile.Dup).
			PushInt(int32(i)).
			Invoke(classfile.Invokestatic, className, name, runtime.referenceFactoryDescriptor()).
			Op(classfile.Aastore)

		asm, err := encodeReference(w, runtime, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to encode reference to %s: %w", ref.ClassName, err)
		}
		err = w.AddMethod(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic,
			name, runtime.referenceFactoryDescriptor(), asm)
		if err != nil {
			return nil, fmt.Errorf("failed to encode reference to %s: %w", ref.ClassName, err)
		}
	}

	create.Invoke(classfile.Invokespecial, runtime.MatcherClass(), "<init>", runtime.matcherInitDescriptor()).
		Op(classfile.Areturn)
	if err := w.AddMethod(classfile.AccPublic|classfile.AccStatic, createMethod, runtime.createDescriptor(), create); err != nil {
		return nil, err
	}

	return w.Bytes()
}

func factoryName(i int) string {
	return fmt.Sprintf("reference$%d", i)
}

func encodeReference(w *classfile.ClassWriter, runtime Runtime, ref *reference.Reference) (*classfile.Assembler, error) {
	builder := runtime.BuilderClass()
	desc := runtime.builderDescriptors()
	call := func(asm *classfile.Assembler, method string) {
		asm.Invoke(classfile.Invokevirtual, builder, method, desc[method])
	}

	asm := w.NewAssembler()
	asm.TypeOp(classfile.New, builder).
		Op(classfile.Dup).
		PushString(ref.ClassName).
		Invoke(classfile.Invokespecial, builder, "<init>", desc["<init>"])

	for _, src := range ref.Sources {
		file, line := reference.SplitSource(src)
		asm.PushString(file).PushInt(int32(line))
		call(asm, "withSource")
	}
	if ref.Flags != 0 {
		asm.PushInt(int32(ref.Flags))
		call(asm, "withFlag")
	}
	if ref.SuperName != "" {
		asm.PushString(ref.SuperName)
		call(asm, "withSuperName")
	}
	for _, iface := range ref.Interfaces {
		asm.PushString(iface)
		call(asm, "withInterface")
	}
	for _, f := range ref.Fields {
		pushStrings(asm, f.Sources)
		asm.PushInt(int32(f.Flags)).PushString(f.Name).PushString(f.Descriptor)
		call(asm, "withField")
	}
	for _, m := range ref.Methods {
		ret, params, err := m.ReturnAndParams()
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		pushStrings(asm, m.Sources)
		asm.PushInt(int32(m.Flags)).PushString(m.Name).PushString(ret)
		pushStrings(asm, params)
		call(asm, "withMethod")
	}

	call(asm, "build")
	asm.Op(classfile.Areturn)
	return asm, nil
}

// pushStrings leaves a new String[] holding items on the stack
func pushStrings(asm *classfile.Assembler, items []string) {
	asm.PushInt(int32(len(items))).TypeOp(classfile.Anewarray, "java/lang/String")
	for i, s := range items {
		asm.Op(classfile.Dup).PushInt(int32(i)).PushString(s).Op(classfile.Aastore)
	}
}
