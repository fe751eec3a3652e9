package reaction

import (
	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Component is one participant of a reaction. Its identifier and AuxInfo are
// either set directly or computed lazily from a molecule through the
// reaction's engine. Once the identifier is known it only changes through
// Reset.
type Component struct {
	owner      *Reaction
	molecule   *inchi.Molecule
	identifier string
	auxInfo    string
	key        string
}

// SetIdentifier sets the identifier and AuxInfo of an empty component.
func (c *Component) SetIdentifier(identifier, auxInfo string) error {
	if c.identifier != "" || c.molecule != nil {
		return errors.NewPreconditionErrorf("Component already holds InChI '%s'; reset it first.", c.identifier)
	}
	if identifier == "" {
		return errors.NewPreconditionError("Component InChI must not be empty.")
	}
	c.identifier = identifier
	c.auxInfo = auxInfo
	c.changed()
	return nil
}

// SetMolecule attaches the structure the identifier will be computed from.
// A molecule without atoms makes the component a No-Structure.
func (c *Component) SetMolecule(mol *inchi.Molecule) error {
	if c.identifier != "" || c.molecule != nil {
		return errors.NewPreconditionError("Component already holds a structure; reset it first.")
	}
	if mol == nil {
		mol = &inchi.Molecule{}
	}
	c.molecule = mol
	c.changed()
	return nil
}

// Reset clears the structure together with every value derived from it.
func (c *Component) Reset() {
	c.molecule = nil
	c.identifier = ""
	c.auxInfo = ""
	c.key = ""
	c.changed()
}

// Molecule returns the attached structure, nil for components created from
// identifier text.
func (c *Component) Molecule() *inchi.Molecule { return c.molecule }

// IsPlaceholder reports whether the component is a No-Structure.
func (c *Component) IsPlaceholder() bool {
	if c.molecule != nil {
		return c.molecule.IsNoStructure()
	}
	return c.identifier == inchi.NoStructure
}

// Identifier returns the standard InChI, computing it on first use.
func (c *Component) Identifier() (string, error) {
	if err := c.compute(); err != nil {
		return "", err
	}
	return c.identifier, nil
}

// AuxInfo returns the AuxInfo, computing it together with the identifier.
func (c *Component) AuxInfo() (string, error) {
	if err := c.compute(); err != nil {
		return "", err
	}
	return c.auxInfo, nil
}

// Key returns the standard InChIKey.
func (c *Component) Key() (string, error) {
	if c.key != "" {
		return c.key, nil
	}
	id, err := c.Identifier()
	if err != nil {
		return "", err
	}
	if id == inchi.NoStructure {
		c.key = inchi.NoStructureKey
		return c.key, nil
	}
	key, err := c.engine().IdentifierToKey(id)
	if err != nil {
		return "", err
	}
	c.key = key
	return key, nil
}

func (c *Component) compute() error {
	if c.identifier != "" {
		return nil
	}
	if c.molecule == nil {
		return errors.NewPreconditionError("Component has neither an InChI nor a structure.")
	}
	if c.molecule.IsNoStructure() {
		c.identifier, c.auxInfo = inchi.NoStructure, inchi.NoStructureAuxInfo
		return nil
	}
	id, aux, err := c.engine().ComputeIdentifier(c.molecule)
	if err != nil {
		return err
	}
	c.identifier, c.auxInfo = id, aux
	return nil
}

func (c *Component) engine() inchi.Engine {
	if c.owner != nil && c.owner.engine != nil {
		return c.owner.engine
	}
	return inchi.NewLexicalEngine()
}

func (c *Component) changed() {
	if c.owner != nil {
		c.owner.invalidate()
	}
}
