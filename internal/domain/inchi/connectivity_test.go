package inchi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoleculeFromIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		elements []string
		bonds    [][2]int
	}{
		{"ethanol", "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3", []string{"C", "C", "O"}, [][2]int{{0, 1}, {1, 2}}},
		{"branch list", "InChI=1S/C5H12/c1-5(2,3)4/h1-4H3", []string{"C", "C", "C", "C", "C"}, [][2]int{{0, 4}, {4, 1}, {4, 2}, {4, 3}}},
		{"two components", "InChI=1S/C2H6O.CH4O/c1-2-3;1-2/h3H,2H2,1H3;2H,1H3", []string{"C", "C", "O", "C", "O"}, [][2]int{{0, 1}, {1, 2}, {3, 4}}},
		{"multiplied component", "InChI=1S/2CH4O/c2*1-2/h2*2H,1H3", []string{"C", "O", "C", "O"}, [][2]int{{0, 1}, {2, 3}}},
		{"ion pair", sodiumWater, []string{"Na", "O"}, nil},
		{"hydrogen only", "InChI=1S/H2/h1H", []string{"H", "H"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mol, err := MoleculeFromIdentifier(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.elements, elements(mol))
			assert.Equal(t, tt.bonds, bondPairs(mol))
		})
	}
}

func TestMoleculeFromIdentifier_Errors(t *testing.T) {
	for _, id := range []string{
		"InChI=1S/C2H6O/c1-2-4",
		"InChI=1S/C2H6O/c1-2(3",
		"InChI=1S/C2H6O/c1-2)3",
		"InChI=1S/CH4 ",
	} {
		_, err := MoleculeFromIdentifier(id)
		assert.Error(t, err, id)
	}
}
