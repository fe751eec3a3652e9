package reaction_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
)

const (
	methanethiol  = "InChI=1S/CH4S/c1-2/h2H,1H3"
	fluorine      = "InChI=1S/F2/c1-2"
	hydroxylamine = "InChI=1S/H3NO/c1-2/h2H,1H2"

	methanethiolAux  = "AuxInfo=1/0/N:1,2/rA:2nCS/rB:s1;/rC:-4.2134,-3.4179,0;-3.4989,-3.8304,0;"
	fluorineAux      = "AuxInfo=1/0/N:1,2/E:(1,2)/rA:2nFF/rB:s1;/rC:-4.2134,-3.4179,0;-3.4989,-3.8304,0;"
	hydroxylamineAux = "AuxInfo=1/0/N:1,2/rA:2nNO/rB:s1;/rC:-4.2134,-3.4179,0;-3.4989,-3.8304,0;"

	dimethylOxiran = "InChI=1S/C4H8O/c1-3-4(2)5-3/h3-4H,1-2H3/t3-,4?/m0/s1"
	bromobutanol   = "InChI=1S/C4H9BrO/c1-3(5)4(2)6/h3-4,6H,1-2H3/t3-,4+/m1/s1"
	sodiumWater    = "InChI=1S/Na.H2O/h;1H2/q+1;/p-1"

	dimethylOxiranAux = "0/N:4,1,3,2,5/E:(1,2)(3,4)/it:im/rA:5nCCCCO/rB:N1;s2;P3;s2s3;/rC:-1.127,-.5635,0;-.4125,-.151,0;.4125,-.151,0;1.127,-.5635,0;0,.5635,0;"
	bromobutanolAux   = "0/N:4,1,3,2,6,5/it:im/rA:6nCCCCOBr/rB:s1;s2;s3;N2;P3;/rC:-.825,-.7557,0;-.4125,-.0412,0;.4125,-.0412,0;.825,.6733,0;-.626,.7557,0;.825,-.7557,0;"
	sodiumWaterAux    = "1/N:1;2/rA:2nNaO/rB:s1;/rC:-.4125,0,0;.4125,0,0;"
)

func add(t *testing.T, c *reaction.Component, identifier, aux string) {
	t.Helper()
	require.NoError(t, c.SetIdentifier(identifier, aux))
}

func addPlaceholder(t *testing.T, c *reaction.Component) {
	t.Helper()
	require.NoError(t, c.SetMolecule(&inchi.Molecule{}))
}

func identifiers(t *testing.T, cs []*reaction.Component) []string {
	t.Helper()
	out := make([]string, len(cs))
	for i, c := range cs {
		id, err := c.Identifier()
		require.NoError(t, err)
		out[i] = id
	}
	return out
}

type rendered struct {
	rinchi, aux, long, short, web string
}

func render(t *testing.T, r *reaction.Reaction) rendered {
	t.Helper()
	var out rendered
	var err error
	out.rinchi, err = r.String()
	require.NoError(t, err)
	out.aux, err = r.AuxInfo()
	require.NoError(t, err)
	out.long, err = r.LongKey()
	require.NoError(t, err)
	out.short, err = r.ShortKey()
	require.NoError(t, err)
	out.web, err = r.WebKey()
	require.NoError(t, err)
	return out
}
