package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fire Bolt", "firebolt"},
		{"firebolt", "firebolt"},
		{"  Magic\tMissile\n", "magicmissile"},
		{"Hunter's Mark", "hunter'smark"},
		{"GREAT  SWORD", "greatsword"},
		{"Épée Longue", "épéelongue"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.in))
		})
	}
}

func TestName_Idempotent(t *testing.T) {
	for _, in := range []string{"Fire Bolt", "Cure Wounds", "Bardic Inspiration"} {
		once := Name(in)
		assert.Equal(t, once, Name(once), "normalizing twice must not change the key")
	}
}

func TestName_ComposedAndDecomposedAgree(t *testing.T) {
	// "é" as one rune vs "e" + combining acute
	assert.Equal(t, Name("Caf\u00e9"), Name("Cafe\u0301"))
}
