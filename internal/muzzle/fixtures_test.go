package muzzle

import (
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/loader"
)

const (
	libName    = "com/acme/advice/Lib"
	adviceName = "com/acme/advice/Advice"
	entryName  = "com/acme/advice/Entry"
	helperName = "com/acme/advice/helper/Helper"
	vendorName = "com/vendor/V"
	baseName   = "com/vendor/Base"
)

func classBytes(t *testing.T, w *classfile.ClassWriter) []byte {
	t.Helper()
	data, err := w.Bytes()
	require.NoError(t, err)
	return data
}

// staticMethodClass writes a class whose only method is a static void
// onEnter() with the given body
func staticMethodClass(t *testing.T, name, superName string, body func(a *classfile.Assembler)) []byte {
	t.Helper()
	w := classfile.NewClassWriter(classfile.AccPublic|classfile.AccSuper, name, superName)
	w.SetSourceFile(path.Base(name) + ".java")
	asm := w.NewAssembler()
	body(asm)
	asm.Op(classfile.Return)
	require.NoError(t, w.AddMethod(classfile.AccPublic|classfile.AccStatic, "onEnter", "()V", asm))
	return classBytes(t, w)
}

// adviceClass calls new Lib().doWork("x") on line 12 and reads
// Lib.VERSION on line 14
func adviceClass(t *testing.T) []byte {
	return staticMethodClass(t, adviceName, "", func(a *classfile.Assembler) {
		a.Line(12).
			TypeOp(classfile.New, libName).
			Op(classfile.Dup).
			Invoke(classfile.Invokespecial, libName, "<init>", "()V").
			PushString("x").
			Invoke(classfile.Invokevirtual, libName, "doWork", "(Ljava/lang/String;)Ljava/lang/String;").
			Op(classfile.Pop).
			Line(14).
			FieldOp(classfile.Getstatic, libName, "VERSION", "Ljava/lang/String;").
			Op(classfile.Pop)
	})
}

func libClass(t *testing.T, access, doWork classfile.AccessFlags) []byte {
	w := classfile.NewClassWriter(access, libName, "")
	w.AddField(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "VERSION", "Ljava/lang/String;")
	require.NoError(t, w.AddMethod(classfile.AccPublic, "<init>", "()V", nil))
	require.NoError(t, w.AddMethod(doWork, "doWork", "(Ljava/lang/String;)Ljava/lang/String;", nil))
	return classBytes(t, w)
}

// entryClass reaches the vendor library only through Helper, and also
// touches framework and platform classes
func entryClass(t *testing.T) []byte {
	return staticMethodClass(t, entryName, "", func(a *classfile.Assembler) {
		a.Line(5).
			Invoke(classfile.Invokestatic, helperName, "help", "()V").
			Line(6).
			Invoke(classfile.Invokestatic, "io/framework/api/Tool", "log", "()V").
			Invoke(classfile.Invokestatic, "java/lang/System", "nanoTime", "()J").
			Op(classfile.Pop2)
	})
}

func helperClass(t *testing.T) []byte {
	w := classfile.NewClassWriter(classfile.AccPublic|classfile.AccSuper, helperName, baseName)
	w.SetSourceFile("Helper.java")
	asm := w.NewAssembler()
	asm.Line(20).
		Invoke(classfile.Invokestatic, vendorName, "m", "()V").
		Line(21).
		Invoke(classfile.Invokestatic, baseName, "util", "()V").
		Op(classfile.Return)
	require.NoError(t, w.AddMethod(classfile.AccPublic|classfile.AccStatic, "help", "()V", asm))
	return classBytes(t, w)
}

func vendorClasses(t *testing.T) (base, v []byte) {
	bw := classfile.NewClassWriter(classfile.AccPublic|classfile.AccSuper, baseName, "")
	require.NoError(t, bw.AddMethod(classfile.AccProtected|classfile.AccStatic, "util", "()V", nil))
	vw := classfile.NewClassWriter(classfile.AccPublic|classfile.AccSuper, vendorName, "")
	require.NoError(t, vw.AddMethod(classfile.AccPublic|classfile.AccStatic, "m", "()V", nil))
	return classBytes(t, bw), classBytes(t, vw)
}

// buildLoader holds the instrumentation classes
func buildLoader(t *testing.T) *loader.MapLoader {
	return loader.NewMapLoader("build").
		AddClass(adviceName, adviceClass(t)).
		AddClass(libName, libClass(t, classfile.AccPublic|classfile.AccSuper, classfile.AccPublic)).
		AddClass(entryName, entryClass(t)).
		AddClass(helperName, helperClass(t))
}

// inheritingLoader holds Entry and a Helper that extends Base through the
// helper Mid. Helper reaches members through its own name: util and LEVEL
// come from Base, mid from Mid and local from Helper itself.
func inheritingLoader(t *testing.T) *loader.MapLoader {
	const midName = "com/acme/advice/helper/Mid"
	mw := classfile.NewClassWriter(classfile.AccPublic|classfile.AccSuper, midName, baseName)
	require.NoError(t, mw.AddMethod(classfile.AccProtected|classfile.AccStatic, "mid", "()V", nil))

	hw := classfile.NewClassWriter(classfile.AccPublic|classfile.AccSuper, helperName, midName)
	hw.SetSourceFile("Helper.java")
	asm := hw.NewAssembler()
	asm.Line(30).
		Invoke(classfile.Invokestatic, helperName, "util", "()V").
		Line(31).
		Invoke(classfile.Invokestatic, helperName, "mid", "()V").
		Line(32).
		Invoke(classfile.Invokestatic, helperName, "local", "()V").
		Line(33).
		FieldOp(classfile.Getstatic, helperName, "LEVEL", "I").
		Op(classfile.Pop).
		Op(classfile.Return)
	require.NoError(t, hw.AddMethod(classfile.AccPublic|classfile.AccStatic, "help", "()V", asm))
	require.NoError(t, hw.AddMethod(classfile.AccPrivate|classfile.AccStatic, "local", "()V", nil))

	return loader.NewMapLoader("build").
		AddClass(entryName, entryClass(t)).
		AddClass(midName, classBytes(t, mw)).
		AddClass(helperName, classBytes(t, hw))
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.FrameworkPrefixes = []string{"io.framework."}
	return p
}

// acmePolicy configures the instrumentation packages explicitly
func acmePolicy() Policy {
	p := testPolicy()
	p.InstrumentationPackages = []string{"com.acme.advice"}
	return p
}

func acmeModule() *StaticModule {
	return &StaticModule{
		ModuleName: "com.acme.AcmeModule",
		Instrumentation: []StaticTypeInstrumentation{
			{Type: "com.vendor.V", Advice: []AdviceBinding{{Method: "m", Advice: "com.acme.advice.Entry"}}},
		},
		Helpers: []string{"com.acme.advice.helper.Helper"},
	}
}
