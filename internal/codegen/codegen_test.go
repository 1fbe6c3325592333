package codegen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

func sampleReferences() []*reference.Reference {
	lib := reference.NewBuilder("com.acme.Lib").
		WithSource("Advice.java", 12).
		WithSource("Advice.java", 14).
		WithFlag(reference.ExpectsNonPrivate|reference.ExpectsNonInterface).
		WithSuperName("com.acme.Base").
		WithInterface("java.io.Closeable").
		WithInterface("com.acme.Service").
		WithField([]string{"Advice.java:14"}, reference.ExpectsStatic|reference.ExpectsPublic, "VERSION", "Ljava/lang/String;").
		WithMethod([]string{"Advice.java:12"}, reference.ExpectsNonStatic|reference.ExpectsPublic, "doWork", "Ljava/lang/String;", "I", "[Lcom/acme/Lib;").
		WithMethod(nil, reference.ExpectsNonStatic, "<init>", "V").
		Build()
	bare := reference.NewBuilder("com.acme.Empty").Build()
	odd := reference.NewBuilder("com.acme.Odd").
		WithSource("com.acme.Advice", 0).
		WithSource("weird:name:7x", 0).
		WithFlag(reference.AllFlags).
		Build()
	return []*reference.Reference{lib, bare, odd}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	refs := sampleReferences()
	data, err := Encode("com/acme/AcmeModule$Muzzle", DefaultRuntime(), refs)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "com.acme.AcmeModule$Muzzle", decoded.ClassName)
	assert.Equal(t, DefaultRuntime(), decoded.Runtime)
	assert.Equal(t, refs, decoded.References)
}

func TestEncodedClassShape(t *testing.T) {
	data, err := Encode("com.acme.AcmeModule$Muzzle", DefaultRuntime(), sampleReferences())
	require.NoError(t, err)

	cls, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "com/acme/AcmeModule$Muzzle", cls.Name)
	assert.Equal(t, "java/lang/Object", cls.SuperName)
	assert.True(t, cls.AccessFlags.IsFinal())

	ctor := cls.Method("<init>", "()V")
	require.NotNil(t, ctor)
	assert.True(t, ctor.AccessFlags.IsPrivate())

	create := cls.Method("create", "()Lio/jmuzzle/muzzle/ReferenceMatcher;")
	require.NotNil(t, create)
	assert.True(t, create.AccessFlags.IsPublic())
	assert.True(t, create.AccessFlags.IsStatic())

	insns, err := classfile.Instructions(create.Code, cls.Pool)
	require.NoError(t, err)
	var calls []string
	for _, insn := range insns {
		if call, ok := insn.(*classfile.MethodCall); ok {
			calls = append(calls, call.Name)
		}
	}
	assert.Equal(t, []string{"reference$0", "reference$1", "reference$2", "<init>"}, calls)
}

func TestEncodeCustomRuntime(t *testing.T) {
	runtime := NewRuntime("org.example.agent.muzzle")
	assert.Equal(t, "org/example/agent/muzzle/Reference$Builder", runtime.BuilderClass())

	data, err := Encode("Mod$Muzzle", runtime, sampleReferences()[:1])
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, runtime, decoded.Runtime)
	assert.Len(t, decoded.References, 1)
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode("Empty$Muzzle", DefaultRuntime(), nil)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, decoded.References)
}

func TestEncodeManyReferences(t *testing.T) {
	var refs []*reference.Reference
	for i := range 400 {
		refs = append(refs, reference.NewBuilder(fmt.Sprintf("com.acme.gen.C%d", i)).
			WithSource("Advice.java", 1000+i).
			WithFlag(reference.ExpectsPublic).
			WithMethod([]string{fmt.Sprintf("Advice.java:%d", 70000+i)}, reference.ExpectsStatic, fmt.Sprintf("m%d", i), "V").
			Build())
	}
	data, err := Encode("Big$Muzzle", DefaultRuntime(), refs)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, refs, decoded.References)
}

func TestEncodeRejectsBadMethodDescriptor(t *testing.T) {
	ref := reference.NewBuilder("a.B").WithMethodDescriptor(nil, 0, "m", "not-a-descriptor").Build()
	_, err := Encode("X$Muzzle", DefaultRuntime(), []*reference.Reference{ref})
	assert.ErrorContains(t, err, "a.B")
}

func TestDecodeRejectsOtherClasses(t *testing.T) {
	t.Run("no create", func(t *testing.T) {
		w := classfile.NewClassWriter(classfile.AccPublic, "a/Plain", "")
		data, err := w.Bytes()
		require.NoError(t, err)
		_, err = Decode(data)
		assert.ErrorIs(t, err, ErrNotGenerated)
	})

	t.Run("create does something else", func(t *testing.T) {
		w := classfile.NewClassWriter(classfile.AccPublic, "a/Tricky", "")
		asm := w.NewAssembler()
		asm.FieldOp(classfile.Getstatic, "a/Tricky", "INSTANCE", "Lio/jmuzzle/muzzle/ReferenceMatcher;").
			Op(classfile.Areturn)
		require.NoError(t, w.AddMethod(classfile.AccPublic|classfile.AccStatic, "create",
			"()Lio/jmuzzle/muzzle/ReferenceMatcher;", asm))
		data, err := w.Bytes()
		require.NoError(t, err)
		_, err = Decode(data)
		assert.ErrorIs(t, err, ErrNotGenerated)
	})

	t.Run("wrong return type", func(t *testing.T) {
		w := classfile.NewClassWriter(classfile.AccPublic, "a/Wrong", "")
		asm := w.NewAssembler()
		asm.Op(classfile.AconstNull).Op(classfile.Areturn)
		require.NoError(t, w.AddMethod(classfile.AccPublic|classfile.AccStatic, "create", "()Ljava/lang/Object;", asm))
		data, err := w.Bytes()
		require.NoError(t, err)
		_, err = Decode(data)
		assert.ErrorIs(t, err, ErrNotGenerated)
	})

	t.Run("array longer than the code", func(t *testing.T) {
		w := classfile.NewClassWriter(classfile.AccPublic, "a/Huge$Muzzle", "")
		asm := w.NewAssembler()
		asm.PushInt(0x7fffffff).
			TypeOp(classfile.Anewarray, DefaultRuntime().ReferenceClass()).
			Op(classfile.Areturn)
		require.NoError(t, w.AddMethod(classfile.AccPublic|classfile.AccStatic, "create",
			"()Lio/jmuzzle/muzzle/ReferenceMatcher;", asm))
		data, err := w.Bytes()
		require.NoError(t, err)
		_, err = Decode(data)
		assert.ErrorIs(t, err, ErrNotGenerated)
		assert.ErrorContains(t, err, "exceeds the code")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode([]byte{1, 2, 3})
		assert.ErrorIs(t, err, classfile.ErrMalformedClass)
	})
}
