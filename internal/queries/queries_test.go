package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestFor_KnownProfession(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	qs := r.For("couvreur", "Annecy")
	require.Len(t, qs, Count)
	for _, q := range qs {
		assert.Contains(t, q, "Annecy")
		assert.NotContains(t, q, "{city}")
		assert.NotContains(t, q, "{profession}")
	}
}

func TestFor_UnknownProfessionUsesDefault(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	qs := r.For("chocolatier", "Lyon")
	require.Len(t, qs, Count)
	assert.Contains(t, qs[0], "chocolatier")
	assert.Contains(t, qs[0], "Lyon")
}

func TestFor_Deterministic(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	first := r.For("Plombier", "Grenoble")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, r.For("Plombier", "Grenoble"))
	}
}
