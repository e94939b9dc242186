package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMentioned_ExactSubstring(t *testing.T) {
	text := "Pour une fuite, appelez Dupont Toiture au plus vite."
	assert.True(t, IsMentioned(text, "Dupont Toiture", "", DefaultThreshold))
	assert.True(t, IsMentioned(text, "DUPONT TOITURE SARL", "", DefaultThreshold))
	assert.True(t, IsMentioned("dupont toiture", "Dupont Toiture", "", DefaultThreshold))
}

func TestIsMentioned_EmptyNameNeverMatches(t *testing.T) {
	for _, name := range []string{"", "   ", "SARL", "!!!", "Groupe SAS"} {
		assert.False(t, IsMentioned("n'importe quel texte avec du contenu", name, "", DefaultThreshold),
			"name %q normalizes empty-ish and must not match", name)
	}
}

func TestIsMentioned_WordSubset(t *testing.T) {
	// Both significant words appear, just not adjacent.
	text := "Chez Dupont, la toiture est leur spécialité depuis 1987."
	assert.True(t, IsMentioned(text, "Dupont Toiture", "", DefaultThreshold))
}

func TestIsMentioned_FuzzyPluralDrift(t *testing.T) {
	// "Toitures" vs "Toiture": absorbed by the sliding fuzzy window.
	text := "Les meilleures entreprises sont Dupont Toitures et quelques autres."
	assert.True(t, IsMentioned(text, "Dupont Toiture", "", DefaultThreshold))
}

func TestIsMentioned_NoFalsePositiveOnUnrelatedText(t *testing.T) {
	text := "Voici quelques couvreurs réputés: Martin Couverture, Toits de Savoie."
	assert.False(t, IsMentioned(text, "Dupont Toiture", "", DefaultThreshold))
}

func TestIsMentioned_DomainFallback(t *testing.T) {
	text := "Jetez un œil à https://www.dupontcouverture.fr pour un devis."
	assert.True(t, IsMentioned(text, "Entreprise Générale du Bâtiment", "https://dupontcouverture.fr", DefaultThreshold))
	// Tokens of length <= 2 are too short for the fallback.
	assert.False(t, IsMentioned("rien d'utile ici ab cd", "Zzz Qqq Xxx", "https://ab.fr", DefaultThreshold))
}

func TestIsMentioned_SubstringPropertyHolds(t *testing.T) {
	// Whenever Normalize(name) is a substring of Normalize(text) the
	// matcher must say yes, whatever the threshold.
	cases := [][2]string{
		{"allez chez Boulangerie Du Centre demain", "Boulangerie du Centre"},
		{"le Café de la Gare est ouvert", "café de la gare"},
	}
	for _, c := range cases {
		assert.True(t, IsMentioned(c[0], c[1], "", 0.99))
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("dupont toiture", "dupont toiture"))
	assert.Equal(t, 0.0, similarity("", "abc"))
	assert.Equal(t, 1.0, similarity("", ""))

	// Symmetric.
	a, b := "dupont toiture", "dupont toitures"
	assert.InDelta(t, similarity(a, b), similarity(b, a), 1e-12)

	// Strictly below 1.0 unless equal.
	assert.Less(t, similarity(a, b), 1.0)
	assert.Greater(t, similarity(a, b), DefaultThreshold)

	// Monotonic under shared-substring growth.
	assert.Greater(t,
		similarity("dupont toiture", "dupont toitures"),
		similarity("dupont toiture", "durand fenetres"))
}
