package reaction

import "github.com/IUPAC-InChI/RInChI/internal/domain/inchi"

// Version is the RInChI format version written into every header.
const Version = "1.00"

const (
	Header        = "RInChI=" + Version + ".1S/"
	AuxInfoHeader = "RAuxInfo=" + Version + ".1/"

	LongKeyHeader  = "Long-RInChIKey="
	ShortKeyHeader = "Short-RInChIKey="
	WebKeyHeader   = "Web-RInChIKey="
)

// Delimiters of the string forms.
const (
	delimLayer = "/"
	delimComp  = "!"
	delimGroup = "<>"

	directionTag         = "/d"
	directionForward     = '+'
	directionReverse     = '-'
	directionEquilibrium = '='

	placeholderTag   = "/u"
	placeholderDelim = "-"
)

// Delimiters and fixed blocks of the keys.
const (
	keyVersion    = "SA"
	keyDelimBlock = "-"
	keyDelimComp  = "-"
	keyDelimGroup = "--"

	// reservedHashBlock stands for the hash of additional reaction layers,
	// of which there are none yet.
	reservedHashBlock = "UHFF"
)

// NumGroups is the number of component groups in a reaction.
const NumGroups = 3

// Role names a component group. The numeric values are the fixed role
// order used for placeholder counts.
type Role int

const (
	Reactants Role = iota
	Products
	Agents
)

func (r Role) String() string {
	switch r {
	case Reactants:
		return "reactants"
	case Products:
		return "products"
	case Agents:
		return "agents"
	}
	return "unknown"
}

// Directionality of a reaction.
type Directionality int

const (
	Directional Directionality = iota
	Equilibrium
)

func (d Directionality) String() string {
	if d == Equilibrium {
		return "equilibrium"
	}
	return "directional"
}

// PlaceholderKey is the InChIKey of the No-Structure identifier.
const PlaceholderKey = inchi.NoStructureKey
