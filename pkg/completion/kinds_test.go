package completion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_BuiltinKinds(t *testing.T) {
	registry := NewRegistry()

	for _, name := range []string{"soap_note", "summary", "referral_letter", "patient_explanation"} {
		kind, ok := registry.Get(name)
		require.True(t, ok, "missing built-in kind %s", name)
		assert.False(t, kind.Custom)
		assert.Contains(t, kind.Template, TranscriptPlaceholder)
	}

	_, ok := registry.Get("unknown")
	assert.False(t, ok)
}

func TestKinds_SortedByName(t *testing.T) {
	kinds := NewRegistry().Kinds()
	require.Len(t, kinds, 4)

	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, kind.Name)
	}
	assert.Equal(t, []string{"patient_explanation", "referral_letter", "soap_note", "summary"}, names)
}

func TestLoadCustomKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinds.yaml")
	content := `
- name: discharge_summary
  template: "Write a discharge summary.\n\n{transcript}"
- name: soap_note
  template: "Custom SOAP variant: {transcript}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	registry := NewRegistry()
	require.NoError(t, registry.LoadCustomKinds(path))

	kind, ok := registry.Get("discharge_summary")
	require.True(t, ok)
	assert.True(t, kind.Custom)

	// Custom kinds shadow built-in names
	kind, ok = registry.Get("soap_note")
	require.True(t, ok)
	assert.True(t, kind.Custom)
	assert.Equal(t, "Custom SOAP variant: {transcript}", kind.Template)
}

func TestLoadCustomKinds_Errors(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()

	assert.Error(t, registry.LoadCustomKinds(filepath.Join(dir, "missing.yaml")))

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("{not valid yaml"), 0644))
	assert.Error(t, registry.LoadCustomKinds(invalid))

	incomplete := filepath.Join(dir, "incomplete.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("- name: no_template\n"), 0644))
	assert.Error(t, registry.LoadCustomKinds(incomplete))
}

func TestRenderPrompt(t *testing.T) {
	transcripts := []string{"BP 120/80", "no known allergies"}

	rendered := RenderPrompt("Summarize:\n\n{transcript}", transcripts)
	assert.Equal(t, "Summarize:\n\nBP 120/80\nno known allergies", rendered)
}

func TestRenderPrompt_MissingPlaceholderAppends(t *testing.T) {
	rendered := RenderPrompt("Summarize the dictation.", []string{"BP 120/80"})
	assert.Equal(t, "Summarize the dictation.\n\nBP 120/80", rendered)
}
