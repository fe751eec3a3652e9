package inchi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

func TestKey(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
	}{
		{NoStructure, NoStructureKey},
		{methanethiol, "LSDPWZHWYPCBBB-UHFFFAOYSA-N"},
		{fluorine, "PXGOKWXKJXAPGV-UHFFFAOYSA-N"},
		{hydroxylamine, "AVXURJPOCDRRFD-UHFFFAOYSA-N"},
		{"InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3", "LFQSCWFLJHTTHZ-UHFFFAOYSA-N"},
		{"InChI=1S/C3H7NO2/c1-2(4)3(5)6/h2H,4H2,1H3,(H,5,6)/t2-/m0/s1", "QNAYBMKLOCPYGJ-REOHCLBHSA-N"},
		{dimethylOxiran, "PQXKWPLDPFFDJP-WUCPZUCCSA-N"},
		{bromobutanol, "JCYSVJNMXBWPHS-DMTCNVIQSA-N"},
		{sodiumWater, "HEMHJVSKTPXQMS-UHFFFAOYSA-M"},
		{"InChI=1S/H2O/h1H2/p+1", "XLYOFNOQVPJJNP-UHFFFAOYSA-O"},
	}
	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			got, err := Key(tt.identifier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKey_RejectsForeignPrefix(t *testing.T) {
	_, err := Key("RInChI=1.00.1S/CH4")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
