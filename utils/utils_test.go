package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.5μs"},
		{1500 * time.Microsecond, "1.5ms"},
		{2500 * time.Millisecond, "2.50s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512B", FormatSize(512))
	assert.Equal(t, "1.5KB", FormatSize(1536))
	assert.Equal(t, "2.0MB", FormatSize(2*1024*1024))
}

func TestEnumCycling(t *testing.T) {
	type tab int
	assert.Equal(t, tab(1), NextEnum(tab(0), 2))
	assert.Equal(t, tab(0), NextEnum(tab(2), 2))
	assert.Equal(t, tab(2), PrevEnum(tab(0), 2))
}

func TestTruncateAndWrap(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "ab...", TruncateString("abcdefgh", 5))
	assert.Equal(t, []string{"one two", "three"}, WrapText("one two three", 10))
}

func TestCompleteFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"agent.jar", "notes.txt", "A.class"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "classes"), 0o755))

	complete := CompleteFilesByExtension(".jar", ".class")
	got, directive := complete(&cobra.Command{}, nil, dir+"/")
	assert.Equal(t, []string{
		filepath.Join(dir, "A.class"),
		filepath.Join(dir, "agent.jar"),
		filepath.Join(dir, "classes") + "/",
	}, got)
	assert.NotZero(t, directive&cobra.ShellCompDirectiveNoFileComp)

	got, _ = complete(&cobra.Command{}, nil, "lib.jar"+string(os.PathListSeparator)+dir+"/ag")
	assert.Equal(t, []string{"lib.jar" + string(os.PathListSeparator) + filepath.Join(dir, "agent.jar")}, got)
}
