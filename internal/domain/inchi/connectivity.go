package inchi

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

var elementCount = regexp.MustCompile(`([A-Z][a-z]?)(\d*)`)

// formulaComponent is one "."-separated part of a formula layer with its
// leading multiplier removed.
type formulaComponent struct {
	elements []string
}

// parseFormula expands a formula layer into per-component atom lists in
// canonical order: every element in formula (Hill) order, hydrogen left out
// unless the component has nothing else.
func parseFormula(formula string) ([]formulaComponent, error) {
	var out []formulaComponent
	for _, part := range strings.Split(formula, ".") {
		mult := 1
		i := 0
		for i < len(part) && part[i] >= '0' && part[i] <= '9' {
			i++
		}
		if i > 0 {
			n, err := strconv.Atoi(part[:i])
			if err != nil || n < 1 {
				return nil, errors.NewFormatErrorf("Invalid multiplier in formula component '%s'", part)
			}
			mult = n
		}

		var heavy, hydrogens []string
		for _, m := range elementCount.FindAllStringSubmatch(part[i:], -1) {
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			for k := 0; k < count; k++ {
				if m[1] == "H" {
					hydrogens = append(hydrogens, "H")
				} else {
					heavy = append(heavy, m[1])
				}
			}
		}
		if len(heavy) == 0 {
			heavy = hydrogens
		}
		for k := 0; k < mult; k++ {
			out = append(out, formulaComponent{elements: heavy})
		}
	}
	return out, nil
}

// expandConnections splits a connection layer body into one entry per
// component, honoring "n*" multipliers.
func expandConnections(layer string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(layer, ";") {
		if star := strings.IndexByte(part, '*'); star > 0 {
			n, err := strconv.Atoi(part[:star])
			if err != nil || n < 1 {
				return nil, errors.NewFormatErrorf("Invalid multiplier in connection layer '%s'", part)
			}
			for k := 0; k < n; k++ {
				out = append(out, part[star+1:])
			}
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

// connect adds the single bonds described by one component's connection
// table. Atom numbers are 1-based within the component and offset by base.
func connect(mol *Molecule, table string, base, size int) error {
	var stack []int
	prev := -1
	for i := 0; i < len(table); {
		c := table[i]
		switch {
		case c >= '0' && c <= '9':
			j := i
			for j < len(table) && table[j] >= '0' && table[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(table[i:j])
			if n < 1 || n > size {
				return errors.NewFormatErrorf("Atom number %d out of range in connection table '%s'", n, table)
			}
			atom := base + n - 1
			if prev >= 0 {
				mol.AddBond(prev, atom, BondSingle, StereoNone)
			}
			prev = atom
			i = j
			continue
		case c == '-':
		case c == '(':
			stack = append(stack, prev)
		case c == ',':
			if len(stack) == 0 {
				return errors.NewFormatErrorf("Unbalanced branch in connection table '%s'", table)
			}
			prev = stack[len(stack)-1]
		case c == ')':
			if len(stack) == 0 {
				return errors.NewFormatErrorf("Unbalanced branch in connection table '%s'", table)
			}
			prev = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		default:
			return errors.NewFormatErrorf("Unexpected character %q in connection table '%s'", c, table)
		}
		i++
	}
	if len(stack) != 0 {
		return errors.NewFormatErrorf("Unbalanced branch in connection table '%s'", table)
	}
	return nil
}

// MoleculeFromIdentifier rebuilds the skeleton of a standard InChI: atoms
// from the formula layer and single bonds from the connection layer. Bond
// orders, charges, hydrogens and coordinates are not recovered.
func MoleculeFromIdentifier(identifier string) (*Molecule, error) {
	if identifier == NoStructure {
		return &Molecule{}, nil
	}
	if err := ValidateSyntax(identifier); err != nil {
		return nil, err
	}
	layers := strings.Split(identifier[len(Header):], "/")
	if protonOnly.MatchString(layers[0]) {
		return &Molecule{Atoms: []Atom{{Element: "H", Charge: 1}}}, nil
	}
	components, err := parseFormula(layers[0])
	if err != nil {
		return nil, err
	}

	var tables []string
	for _, layer := range layers[1:] {
		if layer[0] == 'c' {
			if tables, err = expandConnections(layer[1:]); err != nil {
				return nil, err
			}
			break
		}
	}

	mol := &Molecule{}
	for i, comp := range components {
		base := len(mol.Atoms)
		for _, el := range comp.elements {
			mol.AddAtom(Atom{Element: el})
		}
		if i < len(tables) && tables[i] != "" {
			if err := connect(mol, tables[i], base, len(comp.elements)); err != nil {
				return nil, err
			}
		}
	}
	return mol, nil
}
