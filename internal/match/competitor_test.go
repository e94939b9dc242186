package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/visibility-cli/internal/model"
)

func company(v string) model.Entity {
	return model.Entity{Type: model.EntityCompany, Value: v}
}

func TestCompetitorsFrom_DropsTarget(t *testing.T) {
	entities := []model.Entity{
		company("Dupont Toiture"),
		company("Martin Couverture"),
		company("Dupont Toiture SARL"),
		company("Toits de Savoie"),
	}

	got := CompetitorsFrom(entities, "Dupont Toiture", "")

	assert.Equal(t, []string{"Martin Couverture", "Toits de Savoie"}, got)
}

func TestCompetitorsFrom_NeverContainsTargetName(t *testing.T) {
	entities := ExtractEntities(
		"Dupont Toiture, Martin Couverture et Les Toitures Dupont Toiture Annecy sont connus.")

	got := CompetitorsFrom(entities, "Dupont Toiture", "https://dupont-toiture.fr")

	normTarget := Normalize("Dupont Toiture")
	for _, c := range got {
		assert.NotContains(t, Normalize(c), normTarget)
	}
}

func TestCompetitorsFrom_DropsTargetDomain(t *testing.T) {
	entities := []model.Entity{
		{Type: model.EntityURL, Value: "https://dupontcouverture.fr/devis", Domain: "dupontcouverture.fr"},
		{Type: model.EntityURL, Value: "https://martin.fr", Domain: "martin.fr"},
	}

	got := CompetitorsFrom(entities, "quelque chose d'autre", "https://www.dupontcouverture.fr")

	assert.Equal(t, []string{"https://martin.fr"}, got)
}

func TestCompetitorsFrom_KeepsDuplicates(t *testing.T) {
	entities := []model.Entity{
		company("Martin Couverture"),
		company("Martin Couverture"),
	}
	got := CompetitorsFrom(entities, "Dupont Toiture", "")
	assert.Len(t, got, 2)
}

func TestDedupeFold(t *testing.T) {
	in := []string{"Martin Couverture", "martin couverture", "Toits de Savoie", "MARTIN COUVERTURE"}
	assert.Equal(t, []string{"Martin Couverture", "Toits de Savoie"}, DedupeFold(in, 0))

	var many []string
	for i := 0; i < 30; i++ {
		many = append(many, strings.Repeat("x", i+1))
	}
	assert.Len(t, DedupeFold(many, 20), 20)
}
