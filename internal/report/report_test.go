package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/internal/reference"
)

func sampleResults() []*muzzle.ModuleResult {
	client := reference.NewBuilder("com.vendor.Client").
		WithSource("Advice.java", 12).
		WithFlag(reference.ExpectsPublic).
		WithMethod([]string{"Advice.java:14"}, reference.ExpectsNonStatic, "send", "V", "Ljava/lang/String;").
		Build()
	gone := reference.NewBuilder("com.vendor.Gone").WithSource("Advice.java", 20).Build()

	return []*muzzle.ModuleResult{
		{Module: "com.acme.Ok", References: []*reference.Reference{client}, Duration: 2 * time.Millisecond},
		{
			Module:     "com.acme.Broken",
			References: []*reference.Reference{client, gone},
			Mismatches: []muzzle.Mismatch{&muzzle.MissingClass{Reference: gone}},
		},
		{Module: "com.acme.Other", Skipped: true, MissingRequired: []string{"com.other.Client"}},
	}
}

func TestNewSummarizes(t *testing.T) {
	r := New("target.jar", sampleResults())

	_, err := uuid.Parse(r.RunID)
	assert.NoError(t, err)
	assert.Equal(t, Summary{Passed: 1, Failed: 1, Skipped: 1, References: 3, Mismatches: 1}, r.Summary)
	assert.True(t, r.Failed())
	assert.Len(t, r.Results(), 3)

	broken := r.Modules[1]
	assert.Equal(t, muzzle.OutcomeFailed, broken.Outcome)
	require.Len(t, broken.Mismatches, 1)
	assert.Equal(t, Mismatch{
		Kind:    muzzle.KindMissingClass,
		Class:   "com.vendor.Gone",
		Sources: []string{"Advice.java:20"},
		Message: "Advice.java:20 Missing class com.vendor.Gone",
	}, broken.Mismatches[0])
	assert.Equal(t, 2.0, r.Modules[0].DurationMillis)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("target.jar", sampleResults()).WriteJSON(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "target.jar", decoded["target"])
	modules := decoded["modules"].([]any)
	require.Len(t, modules, 3)
	assert.Equal(t, "skipped", modules[2].(map[string]any)["outcome"])
	assert.NotContains(t, modules[0].(map[string]any), "mismatches")
}

func TestRender(t *testing.T) {
	out := New("target.jar", sampleResults()).Render(100)

	assert.Contains(t, out, "com.acme.Ok")
	assert.Contains(t, out, "Missing class com.vendor.Gone")
	assert.Contains(t, out, "missing required classes: com.other.Client")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "50%")
}

func TestRenderReferences(t *testing.T) {
	out := RenderReferences(sampleResults()[1].References)

	assert.Contains(t, out, "com.vendor.Client PUBLIC")
	assert.Contains(t, out, "at Advice.java:12")
	assert.Contains(t, out, "send(Ljava/lang/String;)V NON_STATIC")
	assert.Contains(t, out, "com.vendor.Gone")

	assert.Contains(t, RenderReferences(nil), "no references")
}

func TestWriteReferencesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReferencesJSON(&buf, sampleResults()[1].References))

	var decoded []jsonReference
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, []string{"PUBLIC"}, decoded[0].Flags)
	assert.Equal(t, jsonMember{
		Name:       "send",
		Descriptor: "(Ljava/lang/String;)V",
		Flags:      []string{"NON_STATIC"},
		Sources:    []string{"Advice.java:14"},
	}, decoded[0].Methods[0])
	assert.Empty(t, decoded[1].Flags)
}
