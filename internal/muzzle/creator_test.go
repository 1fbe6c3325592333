package muzzle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jmuzzle/internal/classfile"
	"github.com/mabhi256/jmuzzle/internal/loader"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

func TestCreateReferencesSamePackage(t *testing.T) {
	refs, err := NewCreator().CreateReferencesFrom(context.Background(), "com.acme.advice.Advice", buildLoader(t))
	require.NoError(t, err)

	require.Contains(t, refs, "com.acme.advice.Lib")
	assert.Len(t, refs, 1)
	lib := refs["com.acme.advice.Lib"]

	assert.True(t, lib.Flags.Has(reference.ExpectsNonPrivate))
	assert.False(t, lib.Flags.Has(reference.ExpectsPublic))
	assert.True(t, lib.Flags.Has(reference.ExpectsNonInterface))
	assert.Equal(t, []string{"Advice.java:12", "Advice.java:14"}, lib.Sources)

	doWork, ok := lib.Method("doWork", "(Ljava/lang/String;)Ljava/lang/String;")
	require.True(t, ok)
	assert.True(t, doWork.Flags.Has(reference.ExpectsNonStatic))
	assert.False(t, doWork.Flags.Has(reference.ExpectsStatic))
	assert.Equal(t, []string{"Advice.java:12"}, doWork.Sources)

	_, ok = lib.Method("<init>", "()V")
	assert.True(t, ok)

	version, ok := lib.Field("VERSION", "Ljava/lang/String;")
	require.True(t, ok)
	assert.True(t, version.Flags.Has(reference.ExpectsStatic))
	assert.Equal(t, []string{"Advice.java:14"}, version.Sources)
}

func TestCreateReferencesFollowsHelpers(t *testing.T) {
	creator := NewCreator(WithPolicy(testPolicy()))
	refs, err := creator.CreateReferencesFrom(context.Background(), "com.acme.advice.Entry", buildLoader(t))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"com.acme.advice.helper.Helper",
		"com.vendor.V",
		"com.vendor.Base",
	}, mapKeys(refs))

	v := refs["com.vendor.V"]
	assert.Equal(t, reference.ExpectsPublic|reference.ExpectsNonInterface, v.Flags)
	m, ok := v.Method("m", "()V")
	require.True(t, ok)
	assert.Equal(t, reference.ExpectsPublic|reference.ExpectsStatic, m.Flags)
	assert.Equal(t, []string{"Helper.java:20"}, m.Sources)

	base := refs["com.vendor.Base"]
	assert.True(t, base.Flags.Has(reference.ExpectsNonFinal))
	util, ok := base.Method("util", "()V")
	require.True(t, ok)
	assert.Equal(t, reference.ExpectsPublicOrProtected|reference.ExpectsStatic, util.Flags)

	helper := refs["com.acme.advice.helper.Helper"]
	assert.Equal(t, "com.vendor.Base", helper.SuperName)
	assert.Equal(t, []string{"Entry.java:5"}, helper.Sources)
}

func TestCreateReferencesSkipsPlatformAndFramework(t *testing.T) {
	refs, err := NewCreator(WithPolicy(testPolicy())).
		CreateReferencesFrom(context.Background(), "com.acme.advice.Entry", buildLoader(t))
	require.NoError(t, err)
	assert.NotContains(t, refs, "java.lang.System")
	assert.NotContains(t, refs, "io.framework.api.Tool")
	assert.NotContains(t, refs, "com.acme.advice.Entry")

	// without the framework prefix the class is an ordinary library
	refs, err = NewCreator().CreateReferencesFrom(context.Background(), "com.acme.advice.Entry", buildLoader(t))
	require.NoError(t, err)
	assert.Contains(t, refs, "io.framework.api.Tool")
}

func TestCreateReferencesInstrumentationInsideFramework(t *testing.T) {
	const advice = "io/framework/instrumentation/acme/Advice"
	const helper = "io/framework/instrumentation/acme/Helper"
	l := loader.NewMapLoader("build").
		AddClass(advice, staticMethodClass(t, advice, "", func(a *classfile.Assembler) {
			a.Invoke(classfile.Invokestatic, helper, "help", "()V")
		})).
		AddClass(helper, staticMethodClass(t, helper, "", func(a *classfile.Assembler) {}))

	policy := Policy{
		JDKPrefixes:             DefaultJDKPrefixes,
		FrameworkPrefixes:       []string{"io.framework."},
		InstrumentationPackages: []string{"io.framework.instrumentation"},
	}
	refs, err := NewCreator(WithPolicy(policy)).CreateReferencesFrom(context.Background(), advice, l)
	require.NoError(t, err)
	assert.Contains(t, refs, "io.framework.instrumentation.acme.Helper")
}

func TestCreateReferencesEmptyClass(t *testing.T) {
	w := classfile.NewClassWriter(classfile.AccPublic, "com/acme/Empty", "")
	l := loader.NewMapLoader("build").AddClass("com.acme.Empty", classBytes(t, w))

	refs, err := NewCreator().CreateReferencesFrom(context.Background(), "com.acme.Empty", l)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestCreateReferencesIsRepeatable(t *testing.T) {
	l := buildLoader(t)
	creator := NewCreator(WithPolicy(testPolicy()))
	first, err := creator.CreateReferencesFrom(context.Background(), "com.acme.advice.Entry", l)
	require.NoError(t, err)
	second, err := creator.CreateReferencesFrom(context.Background(), "com.acme.advice.Entry", l)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCreateReferencesLoadFailures(t *testing.T) {
	_, err := NewCreator().CreateReferencesFrom(context.Background(), "com.acme.Missing", loader.NewMapLoader("empty"))
	assert.ErrorIs(t, err, loader.ErrClassNotFound)

	l := buildLoader(t)
	delete(l.Resources, reference.ToResourceName(helperName))
	_, err = NewCreator(WithPolicy(acmePolicy())).CreateReferencesFrom(context.Background(), "com.acme.advice.Entry", l)
	assert.ErrorIs(t, err, loader.ErrClassNotFound)
	assert.ErrorContains(t, err, "com.acme.advice.helper.Helper")
}

func TestCreateReferencesLibraryInStartPackage(t *testing.T) {
	// Lib shares the advice package but only the target provides it
	l := loader.NewMapLoader("build").AddClass(adviceName, adviceClass(t))

	refs, err := NewCreator().CreateReferencesFrom(context.Background(), "com.acme.advice.Advice", l)
	require.NoError(t, err)
	require.Contains(t, refs, "com.acme.advice.Lib")
	lib := refs["com.acme.advice.Lib"]
	assert.True(t, lib.Flags.Has(reference.ExpectsNonPrivate))
	_, ok := lib.Method("doWork", "(Ljava/lang/String;)Ljava/lang/String;")
	assert.True(t, ok)
	_, ok = lib.Field("VERSION", "Ljava/lang/String;")
	assert.True(t, ok)

	// configured packages must be complete on the build classpath
	_, err = NewCreator(WithPolicy(acmePolicy())).CreateReferencesFrom(context.Background(), "com.acme.advice.Advice", l)
	assert.ErrorIs(t, err, loader.ErrClassNotFound)
	assert.ErrorContains(t, err, "com.acme.advice.Lib")
}

func TestCreateReferencesInheritedThroughSelf(t *testing.T) {
	refs, err := NewCreator(WithPolicy(testPolicy())).
		CreateReferencesFrom(context.Background(), "com.acme.advice.Entry", inheritingLoader(t))
	require.NoError(t, err)

	require.Contains(t, refs, "com.vendor.Base")
	base := refs["com.vendor.Base"]
	util, ok := base.Method("util", "()V")
	require.True(t, ok)
	assert.Equal(t, reference.ExpectsPublicOrProtected|reference.ExpectsStatic, util.Flags)
	assert.Equal(t, []string{"Helper.java:30"}, util.Sources)
	_, ok = base.Field("LEVEL", "I")
	assert.True(t, ok)

	// members declared by instrumentation classes stay internal
	_, ok = base.Method("mid", "()V")
	assert.False(t, ok)
	_, ok = base.Method("local", "()V")
	assert.False(t, ok)
	require.Contains(t, refs, "com.acme.advice.helper.Mid")
	assert.Empty(t, refs["com.acme.advice.helper.Mid"].Methods)
	helper := refs["com.acme.advice.helper.Helper"]
	require.Len(t, helper.Methods, 1)
	assert.Equal(t, "help", helper.Methods[0].Name)
	assert.Empty(t, helper.Fields)
}

func TestCreateReferencesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCreator().CreateReferencesFrom(ctx, "com.acme.advice.Advice", buildLoader(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy(t *testing.T) {
	p := testPolicy().forScan("com.acme.advice.Advice")
	assert.True(t, p.IsJDK("java.util.List"))
	assert.True(t, p.IsJDK("sun.misc.Unsafe"))
	assert.False(t, p.IsJDK("javafx.Thing"))
	assert.True(t, p.IsInstrumentation("com.acme.advice.helper.Helper"))
	assert.False(t, p.IsInstrumentation("com.acme.advicex.Other"))
	assert.False(t, p.ShouldRecord("io.framework.api.Tool"))
	assert.True(t, p.ShouldRecord("com.vendor.V"))
}

func TestSortedReferences(t *testing.T) {
	refs := map[string]*reference.Reference{
		"b.B": reference.NewBuilder("b.B").Build(),
		"a.A": reference.NewBuilder("a.A").Build(),
	}
	sorted := SortedReferences(refs)
	require.Len(t, sorted, 2)
	assert.Equal(t, "a.A", sorted[0].ClassName)
	assert.Equal(t, "b.B", sorted[1].ClassName)
}

func mapKeys(refs map[string]*reference.Reference) []string {
	var keys []string
	for k := range refs {
		keys = append(keys, k)
	}
	return keys
}
