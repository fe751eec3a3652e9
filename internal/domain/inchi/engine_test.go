package inchi

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

func TestLexicalEngine(t *testing.T) {
	e := NewLexicalEngine()

	id, aux, err := e.ComputeIdentifier(&Molecule{})
	require.NoError(t, err)
	assert.Equal(t, NoStructure, id)
	assert.Equal(t, NoStructureAuxInfo, aux)

	_, _, err = e.ComputeIdentifier(&Molecule{Atoms: []Atom{{Element: "C"}}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEngineUnsupported))

	assert.NoError(t, e.Validate(methanethiol))
	assert.Error(t, e.Validate("InChI=1S/CH4S/c1-2 x"))

	key, err := e.IdentifierToKey(methanethiol)
	require.NoError(t, err)
	assert.Equal(t, "LSDPWZHWYPCBBB-UHFFFAOYSA-N", key)

	_, err = e.IdentifierToKey("InChI=1S/")
	assert.Error(t, err)

	mol, err := e.ReconstructGraph(methanethiol, methanethiolAux)
	require.NoError(t, err)
	assert.Len(t, mol.Atoms, 2)
}

// overlapDetector fails when two calls are inside the engine at once.
type overlapDetector struct {
	LexicalEngine
	inside  int32
	overlap int32
}

func (d *overlapDetector) enter() {
	if atomic.AddInt32(&d.inside, 1) > 1 {
		atomic.StoreInt32(&d.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&d.inside, -1)
}

func (d *overlapDetector) Validate(id string) error {
	d.enter()
	return nil
}

func (d *overlapDetector) IdentifierToKey(id string) (string, error) {
	d.enter()
	return NoStructureKey, nil
}

func TestSession_SerializesCalls(t *testing.T) {
	det := &overlapDetector{}
	s := NewSession(det)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = s.Validate(methanethiol) }()
		go func() { defer wg.Done(); _, _ = s.IdentifierToKey(methanethiol) }()
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&det.overlap))
	assert.Same(t, Engine(det), s.Engine())
}

func TestMolecule(t *testing.T) {
	var nilMol *Molecule
	assert.True(t, nilMol.IsNoStructure())
	assert.Zero(t, nilMol.HeavyAtomCount())

	m := &Molecule{}
	a := m.AddAtom(Atom{Element: "C"})
	b := m.AddAtom(Atom{Element: "H"})
	m.AddBond(a, b, BondSingle, StereoNone)
	assert.False(t, m.IsNoStructure())
	assert.Equal(t, 1, m.HeavyAtomCount())
	assert.Equal(t, Bond{From: 0, To: 1, Order: BondSingle}, m.Bonds[0])
}
