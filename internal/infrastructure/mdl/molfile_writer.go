package mdl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// programLine is the second header line of every molfile written here.
const programLine = "  InChIV10"

// NoStructureMolfile is the body (everything after the name line) written
// for a No-Structure component.
const NoStructureMolfile = "\n" + programLine + "\n\n" +
	"  0  0  0  0  0  0  0  0  0  0999 V2000\n" +
	TagMolfileEnd + "\n"

// WriteMolfile writes mol as a V2000 molfile whose first line is name.
func WriteMolfile(w io.Writer, name string, mol *inchi.Molecule) error {
	bw := bufio.NewWriter(w)
	if err := writeMolfile(bw, name, mol); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeMolfile, "failed to write molfile")
	}
	return nil
}

// EncodeMolfile renders mol as a V2000 molfile. It has the signature of
// inchi.MolfileEncoder.
func EncodeMolfile(mol *inchi.Molecule) ([]byte, error) {
	var buf bytes.Buffer
	name := ""
	if mol != nil {
		name = mol.Name
	}
	if err := WriteMolfile(&buf, name, mol); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ inchi.MolfileEncoder = EncodeMolfile

func writeMolfile(w *bufio.Writer, name string, mol *inchi.Molecule) error {
	w.WriteString(name)
	if mol.IsNoStructure() {
		w.WriteString(NoStructureMolfile)
		return nil
	}
	if len(mol.Atoms) > 999 || len(mol.Bonds) > 999 {
		return errors.Newf(errors.ErrCodeMolfile, "molecule with %d atoms and %d bonds does not fit a V2000 molfile", len(mol.Atoms), len(mol.Bonds))
	}

	chiral := 0
	if mol.Chiral {
		chiral = 1
	}
	fmt.Fprintf(w, "\n%s\n\n", programLine)
	fmt.Fprintf(w, "%3d%3d  0  0%3d  0  0  0  0  0999 %s\n", len(mol.Atoms), len(mol.Bonds), chiral, TagV2000)

	var charged, radicals, isotopes []int
	for i, a := range mol.Atoms {
		fmt.Fprintf(w, "%10.4f%10.4f%10.4f %-3s%2d  0  0  0  0  0  0  0  0  0  0  0\n", a.X, a.Y, a.Z, a.Element, a.MassDiff)
		if a.Charge != 0 {
			charged = append(charged, i)
		}
		if a.Radical != 0 {
			radicals = append(radicals, i)
		}
		if a.IsotopicMass != 0 {
			isotopes = append(isotopes, i)
		}
	}
	for _, b := range mol.Bonds {
		fmt.Fprintf(w, "%3d%3d%3d%3d  0  0  0\n", b.From+1, b.To+1, b.Order, b.Stereo)
	}

	writeProperty(w, tagCharge, charged, func(i int) int { return mol.Atoms[i].Charge })
	writeProperty(w, tagRadical, radicals, func(i int) int { return mol.Atoms[i].Radical })
	writeProperty(w, tagIsotope, isotopes, func(i int) int { return mol.Atoms[i].IsotopicMass })
	w.WriteString(TagMolfileEnd + "\n")
	return nil
}

// writeProperty writes atom property lines with at most eight entries each.
func writeProperty(w *bufio.Writer, tag string, atoms []int, value func(int) int) {
	for start := 0; start < len(atoms); start += 8 {
		end := start + 8
		if end > len(atoms) {
			end = len(atoms)
		}
		fmt.Fprintf(w, "%s%3d", tag, end-start)
		for _, i := range atoms[start:end] {
			fmt.Fprintf(w, " %3d %3d", i+1, value(i))
		}
		w.WriteString("\n")
	}
}
