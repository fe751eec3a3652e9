package reaction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
)

func TestNewRecord(t *testing.T) {
	r := reaction.New(nil)
	add(t, r.AddReactant(), methanethiol, methanethiolAux)
	addPlaceholder(t, r.AddReactant())
	add(t, r.AddProduct(), hydroxylamine, hydroxylamineAux)
	add(t, r.AddAgent(), fluorine, fluorineAux)

	rec, err := reaction.NewRecord(r, "upload.rxn")
	require.NoError(t, err)

	got := render(t, r)
	assert.Equal(t, got.rinchi, rec.RInChI)
	assert.Equal(t, got.aux, rec.RAuxInfo)
	assert.Equal(t, got.long, rec.LongKey)
	assert.Equal(t, got.short, rec.ShortKey)
	assert.Equal(t, got.web, rec.WebKey)
	assert.Equal(t, "upload.rxn", rec.Source)
	assert.Equal(t, "+", rec.Direction)
	assert.Equal(t, [reaction.NumGroups]int{1, 0, 0}, rec.Placeholders)

	require.Len(t, rec.Components, 3)
	assert.Equal(t, reaction.RecordComponent{Role: reaction.Reactants, Position: 0, InChI: methanethiol, InChIKey: rec.Components[0].InChIKey}, rec.Components[0])
	assert.Equal(t, reaction.Products, rec.Components[1].Role)
	assert.Equal(t, reaction.Agents, rec.Components[2].Role)
	assert.Equal(t, fluorine, rec.Components[2].InChI)
	for _, c := range rec.Components {
		assert.NotEqual(t, inchi.NoStructureKey, c.InChIKey)
		assert.Len(t, c.InChIKey, 27)
	}
}

func TestNewRecord_Equilibrium(t *testing.T) {
	r := reaction.New(nil)
	add(t, r.AddReactant(), methanethiol, "")
	add(t, r.AddProduct(), hydroxylamine, "")
	r.SetDirectionality(reaction.Equilibrium)

	rec, err := reaction.NewRecord(r, "")
	require.NoError(t, err)
	assert.Equal(t, "=", rec.Direction)
}

func TestClassifyKey(t *testing.T) {
	const (
		long  = "Long-RInChIKey=SA-FUHFF"
		short = "Short-RInChIKey=SA-FUHFF-UHFFFADPSC-UHFFFADPSC-UHFFFADPSC-NUHFF-NUHFF-NUHFF-ZZZ"
		web   = "Web-RInChIKey=UHFFFADPSCTJAUYIS-NUHFFFADPSCTJSA"
	)
	tests := []struct {
		in   string
		kind reaction.KeyKind
		want string
	}{
		{long, reaction.LongKey, long},
		{short, reaction.ShortKey, short},
		{web, reaction.WebKey, web},
		{"SA-FUHFF", reaction.LongKey, long},
		{"SA-FUHFF-UHFFFADPSC-UHFFFADPSC-UHFFFADPSC-NUHFF-NUHFF-NUHFF-ZZZ", reaction.ShortKey, short},
		{" UHFFFADPSCTJAUYIS-NUHFFFADPSCTJSA\n", reaction.WebKey, web},
	}
	for _, tt := range tests {
		kind, key, ok := reaction.ClassifyKey(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.kind, kind, tt.in)
		assert.Equal(t, tt.want, key, tt.in)
	}

	_, _, ok := reaction.ClassifyKey("InChI=1S/CH4")
	assert.False(t, ok)
}
