package triage

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// SymptomEntry is the lexicon record for one canonical symptom.
type SymptomEntry struct {
	Name       string   `yaml:"name"`
	FollowUp   string   `yaml:"follow_up"`
	Related    []string `yaml:"related"`
	Treatments []string `yaml:"treatments"`
}

// PhraseAlias maps a colloquial phrase onto a canonical symptom name.
type PhraseAlias struct {
	Phrase  string `yaml:"phrase"`
	Symptom string `yaml:"symptom"`
}

type lexiconFile struct {
	Symptoms   []SymptomEntry `yaml:"symptoms"`
	Aliases    []PhraseAlias  `yaml:"aliases"`
	Vocabulary []string       `yaml:"vocabulary"`
}

// Lexicon is the immutable symptom table shared by the detector, the
// dialogue policy and the summary synthesizer.  Build one with
// DefaultLexicon, LoadLexicon or ParseLexicon and never modify it.
type Lexicon struct {
	entries    []SymptomEntry
	index      map[string]int
	aliases    []PhraseAlias
	vocabulary []string
}

// DefaultLexicon parses the embedded lexicon.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("triage: embedded lexicon: %v", err))
	}
	return lex
}

// LoadLexicon reads a YAML lexicon from disk.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon builds a Lexicon from YAML.  Names are case-folded, must be
// unique, and every alias must point at a known symptom.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(f.Symptoms) == 0 {
		return nil, fmt.Errorf("parse lexicon: no symptoms defined")
	}

	lex := &Lexicon{index: make(map[string]int, len(f.Symptoms))}
	for _, e := range f.Symptoms {
		e.Name = strings.ToLower(strings.TrimSpace(e.Name))
		if e.Name == "" {
			return nil, fmt.Errorf("parse lexicon: symptom without a name")
		}
		if _, dup := lex.index[e.Name]; dup {
			return nil, fmt.Errorf("parse lexicon: duplicate symptom %q", e.Name)
		}
		lex.index[e.Name] = len(lex.entries)
		lex.entries = append(lex.entries, e)
	}
	for _, a := range f.Aliases {
		a.Phrase = strings.ToLower(strings.TrimSpace(a.Phrase))
		a.Symptom = strings.ToLower(strings.TrimSpace(a.Symptom))
		if a.Phrase == "" {
			return nil, fmt.Errorf("parse lexicon: alias without a phrase")
		}
		if _, ok := lex.Resolve(a.Symptom); !ok {
			return nil, fmt.Errorf("parse lexicon: alias %q points at unknown symptom %q", a.Phrase, a.Symptom)
		}
		lex.aliases = append(lex.aliases, a)
	}
	seen := make(map[string]bool, len(f.Vocabulary)+len(lex.entries))
	addTerm := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		lex.vocabulary = append(lex.vocabulary, v)
	}
	for _, v := range f.Vocabulary {
		addTerm(strings.ToLower(strings.TrimSpace(v)))
	}
	// The summary vocabulary always covers every chat-time symptom.
	for _, e := range lex.entries {
		addTerm(e.Name)
	}
	return lex, nil
}

// Entries returns the symptom entries in lexicon order.
func (l *Lexicon) Entries() []SymptomEntry {
	return append([]SymptomEntry(nil), l.entries...)
}

// Aliases returns the phrase aliases in declaration order.
func (l *Lexicon) Aliases() []PhraseAlias {
	return append([]PhraseAlias(nil), l.aliases...)
}

// Vocabulary returns the extended summary vocabulary: the declared terms
// followed by any symptom names they did not already list.
func (l *Lexicon) Vocabulary() []string {
	return append([]string(nil), l.vocabulary...)
}

// Lookup returns the entry stored under exactly this canonical name.
func (l *Lexicon) Lookup(name string) (SymptomEntry, bool) {
	i, ok := l.index[name]
	if !ok {
		return SymptomEntry{}, false
	}
	return l.entries[i], true
}

// Resolve finds the entry for a detected symptom: an exact key first, then
// the first key that contains or is contained in the name.
func (l *Lexicon) Resolve(name string) (SymptomEntry, bool) {
	if e, ok := l.Lookup(name); ok {
		return e, true
	}
	if name == "" {
		return SymptomEntry{}, false
	}
	for _, e := range l.entries {
		if strings.Contains(name, e.Name) || strings.Contains(e.Name, name) {
			return e, true
		}
	}
	return SymptomEntry{}, false
}
