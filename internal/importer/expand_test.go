package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_SingleUnit(t *testing.T) {
	for _, qty := range []int{-1, 0, 1} {
		got := Expand("P1", "Cabinet", qty, "")
		require.Len(t, got, 1)
		assert.Equal(t, Instance{Index: 1, ID: "P1", Name: "Cabinet", Suffix: ""}, got[0])
	}
}

func TestExpand_MultipleUnits(t *testing.T) {
	got := Expand("P1", "Cabinet", 3, "")
	require.Len(t, got, 3)
	for i, inst := range got {
		assert.Equal(t, i+1, inst.Index)
	}
	assert.Equal(t, "P1_1", got[0].ID)
	assert.Equal(t, "P1_3", got[2].ID)
	assert.Equal(t, "Cabinet (Instance 2)", got[1].Name)
	assert.Equal(t, "_2", got[1].Suffix)
}

func TestExpand_InheritedSuffix(t *testing.T) {
	// Drawer x2 inside the second of several cabinets
	got := Expand("S1_2", "Drawer", 2, "_2")
	require.Len(t, got, 2)
	assert.Equal(t, "S1_2_1", got[0].ID)
	assert.Equal(t, "_2_1", got[0].Suffix)
	assert.Equal(t, "S1_2_2", got[1].ID)
	assert.Equal(t, "_2_2", got[1].Suffix)

	// Quantity 1 keeps the inherited suffix as is
	single := Expand("S2_2_1", "Front", 1, "_2_1")
	require.Len(t, single, 1)
	assert.Equal(t, "_2_1", single[0].Suffix)
}

func TestExpand_CapsQuantity(t *testing.T) {
	got := Expand("P1", "Cabinet", MaxExpandQuantity+5, "")
	assert.Len(t, got, MaxExpandQuantity)
	assert.Equal(t, fmt.Sprintf("P1_%d", MaxExpandQuantity), got[len(got)-1].ID)
}
