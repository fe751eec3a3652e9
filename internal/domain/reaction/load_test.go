package reaction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

func TestLoadComponents(t *testing.T) {
	r := reaction.New(nil)
	reactants := methanethiol + "\r\n" + methanethiolAux + "\r\n" + fluorine + "\r\n"
	products := hydroxylamine + "\n" + hydroxylamineAux + "\n" + fluorine + "\n" + fluorineAux + "\n\n"
	agents := ""

	require.NoError(t, r.LoadComponents(reactants, products, agents))
	assert.Equal(t, []string{methanethiol, fluorine}, identifiers(t, r.Reactants()))
	assert.Equal(t, []string{hydroxylamine, fluorine}, identifiers(t, r.Products()))
	assert.Empty(t, r.Agents())

	aux, err := r.Reactants()[0].AuxInfo()
	require.NoError(t, err)
	assert.Equal(t, methanethiolAux, aux)

	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "RInChI=1.00.1S/CH4S/c1-2/h2H,1H3!F2/c1-2<>F2/c1-2!H3NO/c1-2/h2H,1H2/d+", s)
}

func TestLoadComponents_AppendsToExisting(t *testing.T) {
	r := reaction.New(nil)
	add(t, r.AddAgent(), hydroxylamine, "")
	require.NoError(t, r.LoadComponents("", "", methanethiol))
	assert.Equal(t, []string{hydroxylamine, methanethiol}, identifiers(t, r.Agents()))
}

func TestLoadComponents_Errors(t *testing.T) {
	tests := []struct {
		name   string
		block  string
		check  func(error) bool
		substr string
	}{
		{"data after blank line", methanethiol + "\n\n" + fluorine, errors.IsFormat, "Line 3: Unexpected trailing data"},
		{"aux first", methanethiolAux + "\n" + methanethiol, errors.IsFormat, "Line 1: AuxInfo without preceding InChI string."},
		{"unexpected line", methanethiol + "\nCH4S", errors.IsFormat, "Line 2: Unexpected line data"},
		{"invalid identifier", "InChI=1S/CH4S/z1", errors.IsValidation, "Unknown layer '/z1'"},
		{"non-standard identifier", "InChI=1/CH4S/c1-2", errors.IsValidation, "Only standard InChIs are supported"},
		{
			"mismatched aux", methanethiol + "\n" + "AuxInfo=1/0/N:1,2,3/rA:3nCCS/rB:s1;s2;/rC:;;;",
			errors.IsValidation, "for reaction component '" + methanethiol + "'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reaction.New(nil)
			err := r.LoadComponents(tt.block, "", "")
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}
