package triage

import "strings"

// Detector finds canonical symptoms in free text by exact substring match.
// Typos are not corrected.
type Detector struct {
	lex *Lexicon
}

// NewDetector constructs a Detector over the given lexicon.
func NewDetector(lex *Lexicon) *Detector {
	return &Detector{lex: lex}
}

// Detect returns the symptoms newly mentioned in utterance, skipping any in
// already.  Lexicon keys are checked first in lexicon order, then aliases in
// declaration order; each canonical name appears at most once.
func (d *Detector) Detect(utterance string, already []string) []string {
	text := strings.ToLower(utterance)
	seen := make(map[string]bool, len(already))
	for _, s := range already {
		seen[s] = true
	}

	var found []string
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		found = append(found, name)
	}

	for _, e := range d.lex.entries {
		if strings.Contains(text, e.Name) {
			add(e.Name)
		}
	}
	for _, a := range d.lex.aliases {
		if !strings.Contains(text, a.Phrase) {
			continue
		}
		if _, ok := d.lex.Resolve(a.Symptom); ok {
			add(a.Symptom)
		}
	}
	return found
}
