package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

func TestExtractEntities_Empty(t *testing.T) {
	assert.Empty(t, ExtractEntities(""))
}

func TestExtractEntities_CompanyRuns(t *testing.T) {
	text := "Je recommande Dupont Toiture pour ce genre de travaux. " +
		"Dupont Toiture est bien noté, tout comme Martin Couverture Savoie."

	got := ExtractEntities(text)

	var values []string
	for _, e := range got {
		require.Equal(t, model.EntityCompany, e.Type)
		values = append(values, e.Value)
	}
	// Duplicate "Dupont Toiture" collapses to one entity.
	assert.Contains(t, values, "Dupont Toiture")
	assert.Contains(t, values, "Martin Couverture Savoie")
	count := 0
	for _, v := range values {
		if v == "Dupont Toiture" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractEntities_ShortRunsDropped(t *testing.T) {
	// Single capitalized words of <= 3 chars are too noisy to keep.
	got := ExtractEntities("Le Toit ou la vie")
	for _, e := range got {
		assert.Greater(t, len([]rune(e.Value)), 3)
	}
}

func TestExtractEntities_URLs(t *testing.T) {
	text := "Voir https://www.dupont-toiture.fr/devis ou http://martin.example.com"

	got := ExtractEntities(text)

	var urls []model.Entity
	for _, e := range got {
		if e.Type == model.EntityURL {
			urls = append(urls, e)
		}
	}
	require.Len(t, urls, 2)
	assert.Equal(t, "dupont-toiture.fr", urls[0].Domain)
	assert.Equal(t, "example.com", urls[1].Domain)
}

func TestExtractEntities_URLWithoutDomainDropped(t *testing.T) {
	got := ExtractEntities("debug endpoint http://localhost/admin only")
	for _, e := range got {
		assert.NotEqual(t, model.EntityURL, e.Type)
	}
}

func TestExtractEntities_AccentedNames(t *testing.T) {
	got := ExtractEntities("Pour ce chantier, essayez Rénovation Étanchéité à Annecy")
	var values []string
	for _, e := range got {
		values = append(values, e.Value)
	}
	assert.Contains(t, values, "Rénovation Étanchéité")
}

func TestExtractEntities_RunsAreMaximal(t *testing.T) {
	// A sentence-initial capitalized word joins the run; the extractor
	// never splits a run of capitalized words.
	got := ExtractEntities("Essayez Rénovation Étanchéité à Annecy")
	var values []string
	for _, e := range got {
		values = append(values, e.Value)
	}
	assert.Contains(t, values, "Essayez Rénovation Étanchéité")
	assert.NotContains(t, values, "Rénovation Étanchéité")
}

func TestExtractEntities_URLsPrecedeCompanies(t *testing.T) {
	got := ExtractEntities("Allez voir Martin Couverture sur https://martin-couverture.fr")
	require.NotEmpty(t, got)
	assert.Equal(t, model.EntityURL, got[0].Type)
}
