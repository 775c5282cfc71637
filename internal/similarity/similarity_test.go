package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Tiers(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "exact match", a: "elma", b: "elma", want: 1.0},
		{name: "exact match after normalization", a: "  Elma ", b: "elma", want: 1.0},
		{name: "direct synonym", a: "su", b: "ayran", want: 0.8},
		{name: "synonym reversed", a: "ayran", b: "su", want: 0.8},
		{name: "same category different word", a: "kahve", b: "kola", want: 0.5},
		{name: "containment", a: "istanbullu", b: "istanbul", want: 0.3},
		{name: "empty left", a: "", b: "elma", want: 0},
		{name: "empty right", a: "elma", b: "   ", want: 0},
		{name: "unrelated", a: "buzdolabı", b: "istanbul", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScore_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"su", "ayran"},
		{"kedi", "keli"},
		{"istanbullu", "istanbul"},
		{"kahve", "kola"},
		{"elma", "armut"},
		{"", "elma"},
	}
	for _, p := range pairs {
		assert.Equal(t, Score(p[0], p[1]), Score(p[1], p[0]), "score(%q,%q)", p[0], p[1])
	}
}

func TestScore_Identity(t *testing.T) {
	for _, w := range []string{"su", "elma", "bilimkurgu", "x y z"} {
		assert.Equal(t, 1.0, Score(w, w))
	}
}

// A semantic match must outrank a near-miss on spelling: "su"/"ayran"
// share no characters but are synonyms, while "kedi"/"keli" differ by
// one letter yet mean nothing alike.
func TestScore_SemanticOutranksEditDistance(t *testing.T) {
	synonymScore := Score("su", "ayran")
	editScore := Score("kedi", "keli")

	assert.GreaterOrEqual(t, synonymScore, 0.5)
	assert.LessOrEqual(t, editScore, 0.4)
	assert.Greater(t, synonymScore, editScore)
}

func TestScore_EditDistanceBounds(t *testing.T) {
	// 3 of 4 characters align: ratio 0.75, scaled to 0.3.
	assert.InDelta(t, 0.3, Score("kedi", "keli"), 1e-9)

	// Long words never hit the edit-distance tier.
	assert.Equal(t, 0.0, Score("buzdolabında", "buzdolabınla"))

	// Ratio at or below 0.6 is rejected.
	assert.Equal(t, 0.0, Score("kedi", "masa"))
}
