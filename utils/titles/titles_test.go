package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{name: "identical", a: "Queen of Tears", b: "Queen of Tears", min: 1.0, max: 1.0},
		{name: "case and punctuation", a: "queen-of-tears", b: "Queen of Tears", min: 1.0, max: 1.0},
		{name: "ampersand equivalence", a: "Me & You", b: "Me and You", min: 1.0, max: 1.0},
		{name: "possessive prefix", a: "Disney's Mulan Story", b: "Mulan Story", min: 0.9, max: 1.0},
		{name: "close spelling", a: "Vincenzo", b: "Vincenso", min: 0.8, max: 0.95},
		{name: "unrelated", a: "Crash Landing on You", b: "One Piece", min: 0.0, max: 0.4},
		{name: "short suffix not contained", a: "The Great Queen Seondeok", b: "Seondeok", min: 0.0, max: 0.6},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Score(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestScoreIsSymmetric(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Score("Hometown Cha-Cha-Cha", "Hometown ChaChaCha"), Score("Hometown ChaChaCha", "Hometown Cha-Cha-Cha"))
}

func TestScoreEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, Score("", "Something"))
	assert.Equal(t, 1.0, Score("", ""))
}
