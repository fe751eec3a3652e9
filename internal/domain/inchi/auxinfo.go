package inchi

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

var (
	atomLayer = regexp.MustCompile(`^(\d+)n(.*)$`)
	atomToken = regexp.MustCompile(`([A-Z][a-z]?)([+-]\d*)?(\.\d)?`)
	bondToken = regexp.MustCompile(`([sdtaNPU])(\d+)`)
)

// AuxInfo is the parsed form of an AuxInfo string. Only the numbering and
// the reversibility layers (rA atoms, rB bonds, rC coordinates) are kept.
type AuxInfo struct {
	Normalization string
	Numbering     [][]int
	Layers        map[string]string
	Molecule      *Molecule
}

// HasStructure reports whether the reversibility layers were present.
func (a *AuxInfo) HasStructure() bool { return a.Molecule != nil }

// NumberedAtoms is the number of entries in the numbering layer.
func (a *AuxInfo) NumberedAtoms() int {
	n := 0
	for _, c := range a.Numbering {
		n += len(c)
	}
	return n
}

// ParseAuxInfo parses aux. The No-Structure AuxInfo yields an empty result.
func ParseAuxInfo(aux string) (*AuxInfo, error) {
	if aux == NoStructureAuxInfo {
		return &AuxInfo{Layers: map[string]string{}}, nil
	}
	if !strings.HasPrefix(aux, AuxInfoHeader) {
		return nil, errors.NewValidationErrorf("Invalid AuxInfo header in '%s'", aux)
	}
	parts := strings.Split(aux[len(AuxInfoHeader):], "/")
	if parts[0] != "0" && parts[0] != "1" {
		return nil, errors.NewValidationErrorf("Invalid AuxInfo normalization flag '%s' in '%s'", parts[0], aux)
	}

	info := &AuxInfo{Normalization: parts[0], Layers: make(map[string]string, len(parts)-1)}
	for _, layer := range parts[1:] {
		colon := strings.IndexByte(layer, ':')
		if colon <= 0 {
			return nil, errors.NewValidationErrorf("Invalid AuxInfo layer '/%s' in '%s'", layer, aux)
		}
		info.Layers[layer[:colon]] = layer[colon+1:]
	}

	if n, ok := info.Layers["N"]; ok {
		numbering, err := parseNumbering(n)
		if err != nil {
			return nil, errors.NewValidationErrorf("Invalid AuxInfo numbering '%s': %s", n, err.Error())
		}
		info.Numbering = numbering
	}

	if ra, ok := info.Layers["rA"]; ok {
		mol, err := parseReversibility(ra, info.Layers["rB"], info.Layers["rC"])
		if err != nil {
			return nil, errors.NewValidationErrorf("Invalid AuxInfo '%s': %s", aux, err.Error())
		}
		info.Molecule = mol
	}
	return info, nil
}

func parseNumbering(layer string) ([][]int, error) {
	var out [][]int
	for _, comp := range strings.Split(layer, ";") {
		var nums []int
		for _, f := range strings.Split(comp, ",") {
			n, err := strconv.Atoi(f)
			if err != nil || n < 1 {
				return nil, errors.NewFormatErrorf("bad atom number '%s'", f)
			}
			nums = append(nums, n)
		}
		out = append(out, nums)
	}
	return out, nil
}

func splitEntries(layer string) []string {
	if layer == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(layer, ";"), ";")
}

func parseReversibility(ra, rb, rc string) (*Molecule, error) {
	m := atomLayer.FindStringSubmatch(ra)
	if m == nil {
		return nil, errors.NewFormatErrorf("bad atom layer 'rA:%s'", ra)
	}
	count, _ := strconv.Atoi(m[1])

	mol := &Molecule{}
	rest := m[2]
	for len(rest) > 0 {
		loc := atomToken.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			return nil, errors.NewFormatErrorf("bad atom '%s' in 'rA:%s'", rest, ra)
		}
		atom := Atom{Element: rest[loc[2]:loc[3]]}
		if loc[4] >= 0 {
			atom.Charge = parseSigned(rest[loc[4]:loc[5]])
		}
		if loc[6] >= 0 {
			atom.Radical = int(rest[loc[6]+1] - '0')
		}
		mol.AddAtom(atom)
		rest = rest[loc[1]:]
	}
	if len(mol.Atoms) != count {
		return nil, errors.NewFormatErrorf("atom layer declares %d atoms but lists %d", count, len(mol.Atoms))
	}

	entries := splitEntries(rb)
	maxEntries := count - 1
	if maxEntries < 0 {
		maxEntries = 0
	}
	if len(entries) > maxEntries {
		return nil, errors.NewFormatErrorf("bond layer has %d entries for %d atoms", len(entries), count)
	}
	for i, entry := range entries {
		atom := i + 1
		consumed := 0
		for _, t := range bondToken.FindAllStringSubmatchIndex(entry, -1) {
			if t[0] != consumed {
				break
			}
			consumed = t[1]
			neighbour, _ := strconv.Atoi(entry[t[4]:t[5]])
			if neighbour < 1 || neighbour > atom {
				return nil, errors.NewFormatErrorf("bond from atom %d to %d out of range", atom+1, neighbour)
			}
			order, stereo := bondKind(entry[t[2]])
			mol.AddBond(neighbour-1, atom, order, stereo)
		}
		if consumed != len(entry) {
			return nil, errors.NewFormatErrorf("bad bond entry '%s'", entry)
		}
	}

	coords := splitEntries(rc)
	if rc != "" && len(coords) != count {
		return nil, errors.NewFormatErrorf("coordinate layer has %d entries for %d atoms", len(coords), count)
	}
	for i, c := range coords {
		xyz := strings.Split(c, ",")
		if len(xyz) != 3 {
			return nil, errors.NewFormatErrorf("bad coordinates '%s'", c)
		}
		var v [3]float64
		for k, s := range xyz {
			if s == "" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.NewFormatErrorf("bad coordinate '%s'", s)
			}
			v[k] = f
		}
		mol.Atoms[i].X, mol.Atoms[i].Y, mol.Atoms[i].Z = v[0], v[1], v[2]
	}
	return mol, nil
}

func parseSigned(s string) int {
	if len(s) == 1 {
		if s == "-" {
			return -1
		}
		return 1
	}
	n, _ := strconv.Atoi(s)
	return n
}

func bondKind(c byte) (order, stereo int) {
	switch c {
	case 'd':
		return BondDouble, StereoNone
	case 't':
		return BondTriple, StereoNone
	case 'a':
		return BondAromatic, StereoNone
	case 'P':
		return BondSingle, StereoUp
	case 'N':
		return BondSingle, StereoDown
	case 'U':
		return BondSingle, StereoEither
	default:
		return BondSingle, StereoNone
	}
}

// Reconstruct rebuilds the molecule of an identifier/AuxInfo pair and checks
// that the two belong together. Without reversibility layers the skeleton is
// taken from the identifier itself.
func Reconstruct(identifier, aux string) (*Molecule, error) {
	if identifier == NoStructure {
		return &Molecule{}, nil
	}
	skeleton, err := MoleculeFromIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if aux == "" {
		return skeleton, nil
	}

	info, err := ParseAuxInfo(aux)
	if err != nil {
		return nil, err
	}
	heavy := skeletonSize(skeleton)
	if info.Numbering != nil && info.NumberedAtoms() != heavy {
		return nil, errors.NewValidationErrorf("AuxInfo numbers %d atoms but InChI '%s' has %d", info.NumberedAtoms(), identifier, heavy)
	}
	if !info.HasStructure() {
		return skeleton, nil
	}
	mol := info.Molecule
	if got := skeletonSize(mol); got != heavy {
		return nil, errors.NewValidationErrorf("AuxInfo lists %d heavy atoms but InChI '%s' has %d", got, identifier, heavy)
	}
	seen := make(map[int]bool)
	for _, comp := range info.Numbering {
		for _, n := range comp {
			if n > len(mol.Atoms) || seen[n] {
				return nil, errors.NewValidationErrorf("AuxInfo numbering refers to atom %d of %d", n, len(mol.Atoms))
			}
			seen[n] = true
		}
	}
	return mol, nil
}

// skeletonSize counts heavy atoms, or all atoms of a hydrogen-only molecule.
func skeletonSize(m *Molecule) int {
	if n := m.HeavyAtomCount(); n > 0 {
		return n
	}
	return len(m.Atoms)
}
