package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc   string
		params []string
		ret    string
	}{
		{"()V", nil, "V"},
		{"(I)Ljava/lang/String;", []string{"I"}, "Ljava/lang/String;"},
		{"([[JLa/B;D)[La/C;", []string{"[[J", "La/B;", "D"}, "[La/C;"},
	}
	for _, tt := range tests {
		params, ret, err := ParseMethodDescriptor(tt.desc)
		require.NoError(t, err, tt.desc)
		assert.Equal(t, tt.params, params, tt.desc)
		assert.Equal(t, tt.ret, ret, tt.desc)
		assert.Equal(t, tt.desc, MethodDescriptor(ret, params...))
	}

	for _, bad := range []string{"", "V", "(I", "(Q)V", "(La/B)V", "()", "()II"} {
		_, _, err := ParseMethodDescriptor(bad)
		assert.ErrorIs(t, err, ErrMalformedClass, bad)
	}
}

func TestClassOf(t *testing.T) {
	tests := map[string]string{
		"La/B;":    "a/B",
		"[[La/B;":  "a/B",
		"[I":       "",
		"a/b/C":    "a/b/C",
		"[Z":       "",
		"[La/B$C;": "a/B$C",
	}
	for in, want := range tests {
		assert.Equal(t, want, ClassOf(in), in)
	}
}

func TestArgumentSlots(t *testing.T) {
	n, err := ArgumentSlots("(IJLa/B;D[J)V")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestAccessFlagsString(t *testing.T) {
	assert.Equal(t, "public static final", (AccPublic | AccStatic | AccFinal).String())
	assert.Equal(t, "package-private", AccessFlags(0).String())
	assert.Equal(t, "public interface", (AccPublic | AccInterface | AccAbstract).String())
	assert.Equal(t, Protected, (AccProtected | AccStatic).Visibility())
}
