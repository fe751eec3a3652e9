package mdl

import (
	"bufio"
	"fmt"
	"io"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// RXN file tags.
const (
	TagRXN         = "$RXN"
	TagRXNMolecule = "$MOL"

	// equilibriumNote is the comment line that marks an equilibrium
	// reaction in files written here.
	equilibriumNote = "NOTE: Reaction is an equilibrium reaction."
)

// ReadRXN reads an RXN file into rxn. The counts line may carry a third
// column with an agent count.
func ReadRXN(r io.Reader, name string, rxn *reaction.Reaction, forceEquilibrium bool) error {
	return readRXN(newLineReader(r, name), rxn, forceEquilibrium)
}

func readRXN(lr *lineReader, rxn *reaction.Reaction, forceEquilibrium bool) error {
	if err := lr.next(errors.ErrCodeRxnfile); err != nil {
		return err
	}
	if lr.line != TagRXN {
		return lr.fail(errors.ErrCodeRxnfile, "RXN files must begin with a '"+TagRXN+"' line.")
	}
	// Name, program/timestamp and comment lines.
	for i := 0; i < 3; i++ {
		if err := lr.next(errors.ErrCodeRxnfile); err != nil {
			return err
		}
	}

	if err := lr.next(errors.ErrCodeRxnfile); err != nil {
		return err
	}
	counts := lr.line
	if len(counts) != 6 && len(counts) != 9 {
		return lr.fail(errors.ErrCodeRxnfile, "Invalid component count line - must be 6 characters long.")
	}
	var n [reaction.NumGroups]int
	for i := 0; i < len(counts)/3; i++ {
		v, err := intField(counts, i*3, 3)
		if err != nil {
			return lr.failf(errors.ErrCodeRxnfile, "Invalid component count line (%s)", err)
		}
		n[i] = v
	}

	for _, role := range []reaction.Role{reaction.Reactants, reaction.Products, reaction.Agents} {
		for i := 0; i < n[role]; i++ {
			if err := lr.next(errors.ErrCodeRxnfile); err != nil {
				return err
			}
			if lr.line != TagRXNMolecule {
				return lr.fail(errors.ErrCodeRxnfile, "Reaction components must be delimited by a '"+TagRXNMolecule+"' line.")
			}
			mol, err := readMolecule(lr)
			if err != nil {
				return err
			}
			if err := rxn.Add(role).SetMolecule(mol); err != nil {
				return err
			}
		}
	}

	if forceEquilibrium {
		rxn.SetDirectionality(reaction.Equilibrium)
	}
	return nil
}

// WriteRXN writes rxn as an RXN file. Components are rebuilt from their
// identifiers and AuxInfo by the reaction's engine.
func WriteRXN(w io.Writer, rxn *reaction.Reaction, withAgents bool) error {
	bw := bufio.NewWriter(w)
	if err := writeRXN(bw, rxn, withAgents); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeRxnfile, "failed to write RXN file")
	}
	return nil
}

func writeRXN(w *bufio.Writer, rxn *reaction.Reaction, withAgents bool) error {
	reactants, products, agents := rxn.Reactants(), rxn.Products(), rxn.Agents()
	withAgents = withAgents && len(agents) > 0

	w.WriteString(TagRXN + "\n")
	w.WriteString("\n      RInChI" + reaction.Version + "\n")
	if rxn.Directionality() == reaction.Equilibrium {
		w.WriteString(equilibriumNote)
	}
	w.WriteString("\n")
	fmt.Fprintf(w, "%3d%3d", len(reactants), len(products))
	if withAgents {
		fmt.Fprintf(w, "%3d", len(agents))
	}
	w.WriteString("\n")

	groups := []struct {
		label      string
		components []*reaction.Component
	}{
		{"Reactant", reactants},
		{"Product", products},
	}
	if withAgents {
		groups = append(groups, struct {
			label      string
			components []*reaction.Component
		}{"Agent", agents})
	}
	for _, g := range groups {
		for i, c := range g.components {
			w.WriteString(TagRXNMolecule + "\n")
			if err := writeComponent(w, fmt.Sprintf("%s%d", g.label, i+1), rxn.Engine(), c); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeComponent writes one component as a molfile named name.
func writeComponent(w *bufio.Writer, name string, engine inchi.Engine, c *reaction.Component) error {
	identifier, err := c.Identifier()
	if err != nil {
		return err
	}
	if identifier == inchi.NoStructure {
		w.WriteString(name + NoStructureMolfile)
		return nil
	}
	aux, err := c.AuxInfo()
	if err != nil {
		return err
	}
	mol, err := engine.ReconstructGraph(identifier, aux)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeMolfile, "cannot rebuild structure of '%s'", identifier)
	}
	return writeMolfile(w, name, mol)
}
