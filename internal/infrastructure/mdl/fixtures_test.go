package mdl_test

import (
	"sort"
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
)

const methanolMolfile = `Methanol
  test

  2  1  0  0  1  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.2990    0.7500    0.0000 O   0  5  0  0  0  0  0  0  0  0  0  0
  1  2  1  0  0  0  0
M  CHG  1   1   1
M  END
`

const ethyneMolfile = `Ethyne
  test

  2  1  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   1  0  0  0  0  0  0  0  0  0  0  0
    1.2000    0.0000    0.0000 C   0  4  0  0  0  0  0  0  0  0  0  0
  1  2  3  0  0  0  0
M  ISO  1   2  13
M  END
`

const waterMolfile = `Water
  test

  1  0  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
M  END
`

const rGroupMolfile = `R
  test

  1  0  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 R#  0  0  0  0  0  0  0  0  0  0  0  0
M  RGP  1   1   1
M  END
`

const v3000Molfile = `V3000 molecule
  test

  0  0  0  0  0  0  0  0  0  0999 V3000
M  V30 BEGIN CTAB
M  V30 COUNTS 2 1 0 0 0
M  V30 BEGIN ATOM
M  V30 1 C 0 0 0 0 CHG=1
M  V30 2 O 1.299 0.75 0 0 MASS=18 RAD=2
M  V30 END ATOM
M  V30 BEGIN BOND
M  V30 1 1 1 2 CFG=1
M  V30 END BOND
M  V30 BEGIN COLLECTION
M  V30 MDLV30/HILITE ATOMS=(1 1)
M  V30 END COLLECTION
M  V30 END CTAB
M  END
`

func rxnFile(counts string, molfiles ...string) string {
	var sb strings.Builder
	sb.WriteString("$RXN\n\n  test\n\n")
	sb.WriteString(counts + "\n")
	for _, m := range molfiles {
		sb.WriteString("$MOL\n")
		sb.WriteString(m)
	}
	return sb.String()
}

// formulaEngine derives a pseudo identifier from the element counts of a
// molecule so that reactions read from files can be keyed in tests.
type formulaEngine struct {
	*inchi.LexicalEngine
}

func newFormulaEngine() *formulaEngine {
	return &formulaEngine{LexicalEngine: inchi.NewLexicalEngine()}
}

func (e *formulaEngine) ComputeIdentifier(mol *inchi.Molecule) (string, string, error) {
	if mol.IsNoStructure() {
		return inchi.NoStructure, inchi.NoStructureAuxInfo, nil
	}
	counts := map[string]int{}
	for _, a := range mol.Atoms {
		counts[a.Element]++
	}
	elements := make([]string, 0, len(counts))
	for el := range counts {
		elements = append(elements, el)
	}
	sort.Strings(elements)
	var sb strings.Builder
	for _, el := range elements {
		sb.WriteString(el)
		if counts[el] > 1 {
			sb.WriteString(strconv.Itoa(counts[el]))
		}
	}
	return inchi.Header + sb.String(), "", nil
}

var _ inchi.Engine = (*formulaEngine)(nil)
