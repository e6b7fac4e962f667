package completion

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NikoToRA/koereq-sync/pkg/session"
)

// TranscriptPlaceholder is the marker in a prompt template replaced with the
// session's joined transcript text.
const TranscriptPlaceholder = "{transcript}"

// Built-in prompt kinds shipped with the application
var builtinKinds = []session.PromptKind{
	{
		Name:     "soap_note",
		Template: "Convert the following clinical dictation into a SOAP note with Subjective, Objective, Assessment and Plan sections.\n\n{transcript}",
	},
	{
		Name:     "summary",
		Template: "Summarize the following clinical dictation in a few concise sentences for the medical record.\n\n{transcript}",
	},
	{
		Name:     "referral_letter",
		Template: "Write a referral letter to a specialist based on the following clinical dictation.\n\n{transcript}",
	},
	{
		Name:     "patient_explanation",
		Template: "Explain the following clinical findings to the patient in plain, non-technical language.\n\n{transcript}",
	},
}

// Registry holds the available prompt kinds: the built-in set plus any
// custom kinds loaded from configuration.
type Registry struct {
	kinds map[string]session.PromptKind
}

// NewRegistry creates a registry holding the built-in prompt kinds
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]session.PromptKind)}
	for _, kind := range builtinKinds {
		r.kinds[kind.Name] = kind
	}
	return r
}

// LoadCustomKinds adds custom {name, template} kinds from a YAML file.
// Custom kinds may shadow built-in names.
func (r *Registry) LoadCustomKinds(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompt kinds file: %w", err)
	}

	var kinds []session.PromptKind
	if err := yaml.Unmarshal(data, &kinds); err != nil {
		return fmt.Errorf("failed to parse prompt kinds file: %w", err)
	}

	for _, kind := range kinds {
		if kind.Name == "" || kind.Template == "" {
			return fmt.Errorf("custom prompt kind must have both name and template")
		}
		kind.Custom = true
		r.kinds[kind.Name] = kind
	}
	return nil
}

// Get returns the prompt kind with the given name
func (r *Registry) Get(name string) (session.PromptKind, bool) {
	kind, ok := r.kinds[name]
	return kind, ok
}

// Kinds returns all registered prompt kinds sorted by name
func (r *Registry) Kinds() []session.PromptKind {
	kinds := make([]session.PromptKind, 0, len(r.kinds))
	for _, kind := range r.kinds {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Name < kinds[j].Name })
	return kinds
}

// RenderPrompt substitutes the joined transcript texts into the template's
// {transcript} placeholder. A template without the placeholder gets the
// transcript appended instead of silently dropping it.
func RenderPrompt(template string, transcripts []string) string {
	joined := strings.Join(transcripts, "\n")
	if strings.Contains(template, TranscriptPlaceholder) {
		return strings.ReplaceAll(template, TranscriptPlaceholder, joined)
	}
	return template + "\n\n" + joined
}
