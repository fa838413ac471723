package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{name: "empty", args: "", want: ""},
		{name: "plain", args: "the patient is stable", want: "the patient is stable"},
		{name: "full dictation",
			args: "um I'll see the patient period new paragraph the patient is stable",
			want: "I will see the patient.\n\nthe patient is stable"},
		{name: "dosage",
			args: "the dose is 40 milligrams comma twice daily period",
			want: "the dose is 40 milligrams, twice daily."},
		{name: "fillers and contraction",
			args: "you know it's fine uh all clear period",
			want: "it is fine all clear."},
		{name: "space after punctuation",
			args: "Hello,world period",
			want: "Hello, world."},
		{name: "quotes", args: "open quote stable close quote", want: `" stable "`},
		{name: "full stop", args: "no change full stop", want: "no change."},
		{name: "question", args: "any allergies question mark", want: "any allergies?"},
		{name: "new line", args: "first new line second", want: "first\nsecond"},
		{name: "keeps possessive", args: "the patient's chart", want: "the patient's chart"},
		{name: "capital contraction", args: "Can't walk", want: "Cannot walk"},
		{name: "collapse spaces", args: "a  \t b", want: "a b"},
		{name: "trim", args: "  a b  ", want: "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.args))
		})
	}
}

func TestNormalize_NoFillersLeft(t *testing.T) {
	got := Normalize("um I'll see the patient period new paragraph")
	assert.NotContains(t, got, "um")
	assert.NotContains(t, got, "period")
	assert.Contains(t, got, "I will")
	assert.Contains(t, got, ".")
}

func TestNormalize_FillerInsideWordKept(t *testing.T) {
	assert.Equal(t, "the graph ahead", Normalize("the graph ahead"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"um I'll see the patient period new paragraph the patient is stable",
		"the dose is 40 milligrams comma twice daily period",
		"you know it's fine uh all clear period",
		"Hello,world period",
		"first new line second",
		"Can't walk comma won't run",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input: %s", in)
	}
}
