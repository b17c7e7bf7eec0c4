package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	d := NewDetector(DefaultLexicon())

	tests := []struct {
		name    string
		text    string
		already []string
		want    []string
	}{
		{name: "repeated keyword counted once", text: "My cough is bad, this cough will not stop", want: []string{"cough"}},
		{name: "ache alias rides along with headache", text: "a headache", want: []string{"headache", "pain"}},
		{name: "case folded", text: "FEVER since Monday", want: []string{"fever"}},
		{name: "keys then aliases", text: "I have a fever and feel tired", want: []string{"fever", "fatigue"}},
		{name: "alias order", text: "my stomach is upset and I want to throw up", want: []string{"nausea", "abdominal pain"}},
		{name: "key order", text: "I have chest pain", want: []string{"pain", "chest pain"}},
		{name: "alias does not duplicate key", text: "sore throat since yesterday", want: []string{"sore throat"}},
		{name: "already detected skipped", text: "cough and a fever", already: []string{"cough"}, want: []string{"fever"}},
		{name: "typo not matched", text: "I have a headahce", want: nil},
		{name: "nothing", text: "ok", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.text, tt.already))
		})
	}
}

func TestDetectResultsResolve(t *testing.T) {
	lex := DefaultLexicon()
	d := NewDetector(lex)

	text := "throat, cant sleep, belly, back hurts, heart, stuffy, itchy, spots, exhausted, cant breathe"
	for _, s := range d.Detect(text, nil) {
		_, ok := lex.Resolve(s)
		assert.True(t, ok, s)
	}
}
