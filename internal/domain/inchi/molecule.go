// Package inchi holds the molecular-structure side of RInChI: the atom/bond
// graph, the identifier engine abstraction with its mutex-guarded Session,
// the InChI layer splitter and a native, lexical engine that validates
// standard InChIs, derives InChIKeys and rebuilds graphs from AuxInfo.
package inchi

// Identifier prefixes and the No-Structure sentinels.
const (
	Header        = "InChI=1S/"
	AuxInfoHeader = "AuxInfo=1/"
	KeyPrefix     = "InChIKey="

	NoStructure        = Header + "/"
	NoStructureAuxInfo = AuxInfoHeader + "/"
	NoStructureKey     = "MOSFIJXAXDLOML-UHFFFAOYSA-N"
)

// Radical multiplicities as used by MDL molfiles.
const (
	RadicalNone    = 0
	RadicalSinglet = 1
	RadicalDoublet = 2
	RadicalTriplet = 3
)

// Bond orders as used by MDL molfiles.
const (
	BondSingle   = 1
	BondDouble   = 2
	BondTriple   = 3
	BondAromatic = 4
)

// Bond stereo codes for single bonds as used by MDL molfiles.
const (
	StereoNone         = 0
	StereoUp           = 1
	StereoDoubleEither = 3
	StereoEither       = 4
	StereoDown         = 6
)

// Atom is one vertex of a molecular graph.
type Atom struct {
	Element string
	X, Y, Z float64
	Charge  int
	Radical int
	// MassDiff is the isotopic mass difference from the element's most
	// abundant isotope, 0 for natural abundance.
	MassDiff int
	// IsotopicMass is an absolute isotope mass; it takes precedence over
	// MassDiff when set.
	IsotopicMass int
}

// Bond connects two atoms by their zero-based indexes.
type Bond struct {
	From, To int
	Order    int
	Stereo   int
}

// Molecule is an atom/bond graph. A molecule without atoms is a
// No-Structure.
type Molecule struct {
	Name   string
	Atoms  []Atom
	Bonds  []Bond
	Chiral bool
}

// IsNoStructure reports whether m carries no atoms. A nil molecule is a
// No-Structure too.
func (m *Molecule) IsNoStructure() bool {
	return m == nil || len(m.Atoms) == 0
}

// AddAtom appends an atom and returns its index.
func (m *Molecule) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	return len(m.Atoms) - 1
}

// AddBond appends a bond between two existing atoms.
func (m *Molecule) AddBond(from, to, order, stereo int) {
	m.Bonds = append(m.Bonds, Bond{From: from, To: to, Order: order, Stereo: stereo})
}

// HeavyAtomCount counts the non-hydrogen atoms.
func (m *Molecule) HeavyAtomCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, a := range m.Atoms {
		if a.Element != "H" {
			n++
		}
	}
	return n
}
