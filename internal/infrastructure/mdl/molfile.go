package mdl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Molfile tags.
const (
	TagV2000      = "V2000"
	TagV3000      = "V3000"
	TagMolfileEnd = "M  END"

	tagCharge     = "M  CHG"
	tagRadical    = "M  RAD"
	tagIsotope    = "M  ISO"
	tagAtomAlias  = "A  "
	tagGroupAbbrv = "G  "

	tagV30        = "M  V30 "
	tagV30CTab    = "CTAB"
	tagV30Counts  = "COUNTS"
	tagV30Atom    = "ATOM"
	tagV30Bond    = "BOND"
	tagV30Begin   = "BEGIN "
	tagV30End     = "END "
	keyV30Charge  = "CHG="
	keyV30Mass    = "MASS="
	keyV30Radical = "RAD="
	keyV30Config  = "CFG="
)

// ReadMolfile reads one molfile. A molfile whose only atom is a special
// query atom (A, X, R#, R or *) yields a No-Structure.
func ReadMolfile(r io.Reader, name string) (*inchi.Molecule, error) {
	return readMolecule(newLineReader(r, name))
}

func isSpecialAtom(symbol string) bool {
	switch symbol {
	case "A", "X", "R#", "R", "*":
		return true
	}
	return false
}

func readMolecule(lr *lineReader) (*inchi.Molecule, error) {
	// Name, program/timestamp and comment lines.
	if err := lr.next(errors.ErrCodeMolfile); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(lr.line)
	for i := 0; i < 2; i++ {
		if err := lr.next(errors.ErrCodeMolfile); err != nil {
			return nil, err
		}
	}

	if err := lr.next(errors.ErrCodeMolfile); err != nil {
		return nil, err
	}
	counts := lr.line
	versioned := true
	switch len(counts) {
	case 33:
		versioned = false
	case 39:
	default:
		return nil, lr.fail(errors.ErrCodeMolfile, "Invalid header line - must be 39 characters long.")
	}
	atomCount, err := intField(counts, 0, 3)
	if err != nil {
		return nil, lr.failf(errors.ErrCodeMolfile, "Invalid atom count: %s", err)
	}
	bondCount, err := intField(counts, 3, 3)
	if err != nil {
		return nil, lr.failf(errors.ErrCodeMolfile, "Invalid bond count: %s", err)
	}
	propCount := 0
	if !versioned {
		if propCount, err = intField(counts, 30, 3); err != nil {
			return nil, lr.failf(errors.ErrCodeMolfile, "Invalid property line count: %s", err)
		}
	}
	chiral := counts[14]
	if chiral != '0' && chiral != '1' {
		return nil, lr.fail(errors.ErrCodeMolfile, "Invalid chiral flag (must be '0' or '1').")
	}

	var mol *inchi.Molecule
	switch {
	case !versioned || counts[34:] == TagV2000:
		mol, err = readV2000(lr, atomCount, bondCount, versioned, propCount)
	case counts[34:] == TagV3000:
		if atomCount != 0 {
			return nil, lr.fail(errors.ErrCodeMolfile, "Invalid V3000 file - V2000 atom count must be zero.")
		}
		if bondCount != 0 {
			return nil, lr.fail(errors.ErrCodeMolfile, "Invalid V3000 file - V2000 bond count must be zero.")
		}
		mol, err = readV3000(lr, chiral == '1')
	default:
		return nil, lr.fail(errors.ErrCodeMolfile, "Not an MDL "+TagV2000+" or "+TagV3000+" file")
	}
	if err != nil {
		return nil, err
	}
	mol.Name = name
	mol.Chiral = chiral == '1'
	return mol, nil
}

// skipToEnd consumes lines up to and including "M  END".
func skipToEnd(lr *lineReader) error {
	for lr.line != TagMolfileEnd {
		if err := lr.next(errors.ErrCodeMolfile); err != nil {
			return err
		}
	}
	return nil
}

func readV2000(lr *lineReader, atomCount, bondCount int, versioned bool, propCount int) (*inchi.Molecule, error) {
	mol := &inchi.Molecule{}

	// Atom-block charges, radicals and mass differences are superseded by
	// the first CHG/RAD or ISO property line.
	var inlineCharged, inlineIsotopes []int

	for i := 0; i < atomCount; i++ {
		if err := lr.next(errors.ErrCodeMolfile); err != nil {
			return nil, err
		}
		line := lr.line
		if len(line) < 39 {
			return nil, lr.fail(errors.ErrCodeMolfile, "Invalid atom (Atom lines are expected to be at least 39 characters long each.)")
		}
		symbol := field(line, 31, 3)
		if atomCount == 1 && isSpecialAtom(symbol) {
			if err := skipToEnd(lr); err != nil {
				return nil, err
			}
			return &inchi.Molecule{}, nil
		}

		atom := inchi.Atom{Element: symbol}
		var coords [3]float64
		for k := range coords {
			f := field(line, k*10, 10)
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, lr.failf(errors.ErrCodeMolfile, "Invalid atom (coordinate '%s' is not a number)", f)
			}
			coords[k] = v
		}
		atom.X, atom.Y, atom.Z = coords[0], coords[1], coords[2]

		if code := line[38]; code != '0' {
			if code < '1' || code > '7' {
				return nil, lr.failf(errors.ErrCodeMolfile, "Invalid atom (Charge code out of range: '%c')", code)
			}
			if code == '4' {
				atom.Radical = inchi.RadicalDoublet
			} else {
				atom.Charge = int('4') - int(code)
			}
			inlineCharged = append(inlineCharged, i)
		}

		if diff := line[34:36]; diff != " 0" {
			v, err := strconv.Atoi(strings.TrimSpace(diff))
			if err == nil {
				err = checkRange(v, -3, 4, "Inline mass difference")
			}
			if err != nil {
				return nil, lr.failf(errors.ErrCodeMolfile, "Invalid atom (%s)", err)
			}
			atom.MassDiff = v
			inlineIsotopes = append(inlineIsotopes, i)
		}

		if len(line) >= 51 {
			if code := line[48:51]; code != "  0" {
				v, err := strconv.Atoi(strings.TrimSpace(code))
				if err == nil {
					err = checkRange(v, 0, 15, "Valence code")
				}
				if err != nil {
					return nil, lr.failf(errors.ErrCodeMolfile, "Invalid atom (%s)", err)
				}
			}
		}
		mol.AddAtom(atom)
	}

	for i := 0; i < bondCount; i++ {
		if err := lr.next(errors.ErrCodeMolfile); err != nil {
			return nil, err
		}
		bond, err := parseV2000Bond(lr.line, len(mol.Atoms))
		if err != nil {
			return nil, lr.failf(errors.ErrCodeMolfile, "Invalid bond (%s)", err)
		}
		mol.AddBond(bond.From, bond.To, bond.Order, bond.Stereo)
	}

	read := 0
	for lr.more() {
		if !versioned && read >= propCount {
			break
		}
		if err := lr.next(errors.ErrCodeMolfile); err != nil {
			return nil, err
		}
		read++

		line := lr.line
		tag := line
		if len(tag) > 6 {
			tag = tag[:6]
		}
		switch {
		case tag == tagCharge || tag == tagRadical:
			for _, i := range inlineCharged {
				mol.Atoms[i].Charge, mol.Atoms[i].Radical = 0, 0
			}
			inlineCharged = nil
			err := readPropertyLine(line, len(mol.Atoms), func(atom, value int) error {
				if tag == tagCharge {
					if err := checkRange(value, -15, 15, "Charge line: charge value"); err != nil {
						return err
					}
					mol.Atoms[atom].Charge = value
					return nil
				}
				if err := checkRange(value, 0, 3, "Radical line: radical value"); err != nil {
					return err
				}
				mol.Atoms[atom].Radical = value
				return nil
			})
			if err != nil {
				return nil, lr.fail(errors.ErrCodeMolfile, err.Error())
			}
		case tag == tagIsotope:
			for _, i := range inlineIsotopes {
				mol.Atoms[i].MassDiff = 0
			}
			inlineIsotopes = nil
			err := readPropertyLine(line, len(mol.Atoms), func(atom, value int) error {
				mol.Atoms[atom].IsotopicMass = value
				return nil
			})
			if err != nil {
				return nil, lr.fail(errors.ErrCodeMolfile, err.Error())
			}
		case strings.HasPrefix(line, tagAtomAlias) || strings.HasPrefix(line, tagGroupAbbrv):
			// The data of these old-style properties is on the next line.
			if err := lr.next(errors.ErrCodeMolfile); err != nil {
				return nil, err
			}
			read++
		case line == TagMolfileEnd:
			return mol, nil
		}
	}

	if versioned {
		return nil, lr.failf(errors.ErrCodeMolfile, "Missing '%s' at end - instead found '%s'", TagMolfileEnd, lr.line)
	}
	return mol, nil
}

func parseV2000Bond(line string, atomCount int) (inchi.Bond, error) {
	var b inchi.Bond
	from, err := intField(line, 0, 3)
	if err != nil {
		return b, err
	}
	to, err := intField(line, 3, 3)
	if err != nil {
		return b, err
	}
	order, err := intField(line, 6, 3)
	if err != nil {
		return b, err
	}
	stereo, err := intField(line, 9, 3)
	if err != nil {
		return b, err
	}
	if err := checkRange(order, 1, 8, "Bond type"); err != nil {
		return b, err
	}
	// Aromatic bonds (4) are accepted; 5 and up are query bonds.
	if order >= 5 {
		return b, fmt.Errorf("SSS query bonds are not allowed")
	}
	if err := checkRange(from, 1, atomCount, "Bond atom number"); err != nil {
		return b, err
	}
	if err := checkRange(to, 1, atomCount, "Bond atom number"); err != nil {
		return b, err
	}
	switch stereo {
	case inchi.StereoNone, inchi.StereoUp, inchi.StereoDown, inchi.StereoDoubleEither, inchi.StereoEither:
	default:
		return b, fmt.Errorf("Bond stereo flag out of range. Only 0 (NONE), 1 (UP), 6 (DOWN), 3 (DOUBLE_EITHER), or 4 (EITHER) is allowed")
	}
	return inchi.Bond{From: from - 1, To: to - 1, Order: order, Stereo: stereo}, nil
}

// readPropertyLine walks the "nn8 aaa vvv ..." entries of a V2000 atom
// property line, passing zero-based atom indexes to set.
func readPropertyLine(line string, atomCount int, set func(atom, value int) error) error {
	what := strings.TrimSpace(line[3:6])
	n, err := intField(line, 6, 3)
	if err != nil {
		return err
	}
	if err := checkRange(n, 1, 8, what+" line item count"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		atom, err := intField(line, 10+i*8, 3)
		if err != nil {
			return err
		}
		if err := checkRange(atom, 1, atomCount, what+" line; atom number"); err != nil {
			return err
		}
		value, err := intField(line, 14+i*8, 3)
		if err != nil {
			return err
		}
		if err := set(atom-1, value); err != nil {
			return err
		}
	}
	return nil
}

func v30Line(lr *lineReader) (string, error) {
	if err := lr.next(errors.ErrCodeMolfile); err != nil {
		return "", err
	}
	if !strings.HasPrefix(lr.line, tagV30) {
		return "", lr.failf(errors.ErrCodeMolfile, "Invalid V3000 line - must start with '%s'.", tagV30)
	}
	return strings.TrimRight(lr.line[len(tagV30):], " "), nil
}

func expectV30(lr *lineReader, want, what string) error {
	got, err := v30Line(lr)
	if err != nil {
		return err
	}
	if got != want {
		return lr.failf(errors.ErrCodeMolfile, "Expected V3000 %s, but got '%s'", what, lr.line)
	}
	return nil
}

// v30Property looks up an integer KEY=value property among the trailing
// fields of a V3000 atom or bond line.
func v30Property(fields []string, key string) (int, bool) {
	for _, f := range fields {
		if strings.HasPrefix(f, key) {
			v, err := strconv.Atoi(f[len(key):])
			if err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func readV3000(lr *lineReader, chiral bool) (*inchi.Molecule, error) {
	if err := expectV30(lr, tagV30Begin+tagV30CTab, "CTAB block start"); err != nil {
		return nil, err
	}
	counts, err := v30Line(lr)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(counts, tagV30Counts) {
		return nil, lr.failf(errors.ErrCodeMolfile, "Expected a V3000 CTAB COUNTS line, but got '%s'", lr.line)
	}
	f := strings.Fields(counts[len(tagV30Counts):])
	if len(f) < 5 {
		return nil, lr.fail(errors.ErrCodeMolfile, "V3000 COUNTS line must have five fields")
	}
	atomCount, err1 := strconv.Atoi(f[0])
	bondCount, err2 := strconv.Atoi(f[1])
	flag, err3 := strconv.Atoi(f[4])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, lr.failf(errors.ErrCodeMolfile, "Invalid V3000 COUNTS line '%s'", lr.line)
	}
	if flag != 0 && flag != 1 {
		return nil, lr.failf(errors.ErrCodeMolfile, "V3000 chiral flag out of range: %d is not in [0; 1]", flag)
	}
	if chiral && flag != 1 {
		return nil, lr.fail(errors.ErrCodeMolfile, "Inconsistent chiral flag: V2000 and V3000 count line disagree on value.")
	}

	if err := expectV30(lr, tagV30Begin+tagV30Atom, "ATOM block start"); err != nil {
		return nil, err
	}
	mol := &inchi.Molecule{}
	for i := 1; i <= atomCount; i++ {
		line, err := v30Line(lr)
		if err != nil {
			return nil, err
		}
		f := strings.Fields(line)
		if len(f) < 6 {
			return nil, lr.failf(errors.ErrCodeMolfile, "Invalid atom ('%s')", line)
		}
		if atomCount == 1 && isSpecialAtom(f[1]) {
			if err := skipToEnd(lr); err != nil {
				return nil, err
			}
			return &inchi.Molecule{}, nil
		}
		if n, err := strconv.Atoi(f[0]); err != nil || n != i {
			return nil, lr.fail(errors.ErrCodeMolfile, "Cowardly refusing to read V3000 molfile requiring a correspondance matrix for atom numbers - this is not supported yet")
		}
		atom := inchi.Atom{Element: f[1]}
		var coords [3]float64
		for k := range coords {
			v, err := strconv.ParseFloat(f[2+k], 64)
			if err != nil {
				return nil, lr.failf(errors.ErrCodeMolfile, "Invalid atom (coordinate '%s' is not a number)", f[2+k])
			}
			coords[k] = v
		}
		atom.X, atom.Y, atom.Z = coords[0], coords[1], coords[2]
		props := f[6:]
		atom.Charge, _ = v30Property(props, keyV30Charge)
		atom.Radical, _ = v30Property(props, keyV30Radical)
		atom.IsotopicMass, _ = v30Property(props, keyV30Mass)
		mol.AddAtom(atom)
	}
	if err := expectV30(lr, tagV30End+tagV30Atom, "ATOM block end"); err != nil {
		return nil, err
	}

	if bondCount > 0 {
		if err := expectV30(lr, tagV30Begin+tagV30Bond, "BOND block start"); err != nil {
			return nil, err
		}
		for i := 1; i <= bondCount; i++ {
			line, err := v30Line(lr)
			if err != nil {
				return nil, err
			}
			bond, err := parseV3000Bond(line, i, len(mol.Atoms))
			if err != nil {
				return nil, lr.failf(errors.ErrCodeMolfile, "Invalid bond (%s)", err)
			}
			mol.AddBond(bond.From, bond.To, bond.Order, bond.Stereo)
		}
		if err := expectV30(lr, tagV30End+tagV30Bond, "BOND block end"); err != nil {
			return nil, err
		}
	}

	// Collections, S-groups and other nested blocks are skipped.
	if err := lr.next(errors.ErrCodeMolfile); err != nil {
		return nil, err
	}
	for strings.HasPrefix(lr.line, tagV30+tagV30Begin) {
		end := tagV30 + tagV30End + strings.TrimRight(lr.line[len(tagV30+tagV30Begin):], " ")
		for strings.TrimRight(lr.line, " ") != end {
			if err := lr.next(errors.ErrCodeMolfile); err != nil {
				return nil, err
			}
		}
		if err := lr.next(errors.ErrCodeMolfile); err != nil {
			return nil, err
		}
	}
	if strings.TrimRight(lr.line, " ") != tagV30+tagV30End+tagV30CTab {
		return nil, lr.failf(errors.ErrCodeMolfile, "Expected V3000 CTAB block end, but got '%s'.", lr.line)
	}
	if err := lr.next(errors.ErrCodeMolfile); err != nil {
		return nil, err
	}
	if lr.line != TagMolfileEnd {
		return nil, lr.failf(errors.ErrCodeMolfile, "Missing '%s' at end - instead found '%s'", TagMolfileEnd, lr.line)
	}
	return mol, nil
}

func parseV3000Bond(line string, want, atomCount int) (inchi.Bond, error) {
	var b inchi.Bond
	f := strings.Fields(line)
	if len(f) < 4 {
		return b, fmt.Errorf("'%s' has too few fields", line)
	}
	var nums [4]int
	for k := range nums {
		v, err := strconv.Atoi(f[k])
		if err != nil {
			return b, fmt.Errorf("'%s' is not an integer", f[k])
		}
		nums[k] = v
	}
	if nums[0] != want {
		return b, fmt.Errorf("Refusing to read V3000 molfile requiring a correspondance matrix for bond numbers - this is not supported yet")
	}
	if err := checkRange(nums[1], 1, 3, "Bond cardinality"); err != nil {
		return b, err
	}
	for _, a := range nums[2:] {
		if err := checkRange(a, 1, atomCount, "Bond atom number"); err != nil {
			return b, err
		}
	}
	stereo := inchi.StereoNone
	if cfg, ok := v30Property(f[4:], keyV30Config); ok {
		switch cfg {
		case 0:
		case 1:
			stereo = inchi.StereoUp
		case 2:
			stereo = inchi.StereoEither
		case 3:
			stereo = inchi.StereoDown
		default:
			return b, fmt.Errorf("Unsupported V3000 stereo code (%d)", cfg)
		}
	}
	return inchi.Bond{From: nums[2] - 1, To: nums[3] - 1, Order: nums[1], Stereo: stereo}, nil
}
