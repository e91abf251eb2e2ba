package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactValues_Scale(t *testing.T) {
	t.Parallel()

	v := ImpactValues{Climate: 2, Water: 4, N2O: 0.5, WaterScarcity: 1}
	got := v.Scale(0.5)

	assert.Equal(t, 1.0, got.Climate)
	assert.Equal(t, 2.0, got.Water)
	assert.Equal(t, 0.25, got.N2O)
	assert.Equal(t, 0.5, got.WaterScarcity)
	// Original is untouched.
	assert.Equal(t, 2.0, v.Climate)
}

func TestImpactValues_Add(t *testing.T) {
	t.Parallel()

	a := ImpactValues{Climate: 1, Land: 2, CH4Fossil: 0.1}
	b := ImpactValues{Climate: 3, Land: 1, Ecotoxicity: 7}
	got := a.Add(b)

	assert.Equal(t, 4.0, got.Climate)
	assert.Equal(t, 3.0, got.Land)
	assert.Equal(t, 0.1, got.CH4Fossil)
	assert.Equal(t, 7.0, got.Ecotoxicity)
}

func TestImpactValues_Named(t *testing.T) {
	t.Parallel()

	v := ImpactValues{Climate: 1.5, N2O: 0.2}
	named := v.Named()
	require.Len(t, named, len(ImpactCategoryNames))
	assert.Equal(t, "climate", named[0].Name)
	assert.Equal(t, 1.5, named[0].Value)
	last := named[len(named)-1]
	assert.Equal(t, "n2o", last.Name)
	assert.Equal(t, 0.2, last.Value)
}

func TestImpactValues_IsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, ImpactValues{}.IsZero())
	assert.False(t, ImpactValues{ResourceUseMinerals: 1e-9}.IsZero())
}

func TestImpactValues_SliceRoundTrip(t *testing.T) {
	t.Parallel()

	v := ImpactValues{Climate: 1, Water: 2, N2O: 3}
	s := v.Slice()
	require.Len(t, s, len(ImpactCategoryNames))
	assert.Equal(t, v, ImpactValuesFromSlice(s))
	assert.Equal(t, ImpactValues{Climate: 9}, ImpactValuesFromSlice([]float64{9}))
}
