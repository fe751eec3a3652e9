package reaction

import (
	"strings"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// LoadComponents adds components read from three blocks of line-oriented
// text, one per role. In each block an "InChI=" line starts a component and
// an "AuxInfo=" line sets the AuxInfo of the current one. A single trailing
// blank line is allowed.
func (r *Reaction) LoadComponents(reactants, products, agents string) error {
	blocks := [NumGroups]string{reactants, products, agents}
	for i, text := range blocks {
		if err := r.loadBlock(Role(i), text); err != nil {
			return err
		}
	}
	r.invalidate()
	return nil
}

func (r *Reaction) loadBlock(role Role, text string) error {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var current *Component
	blank := false
	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimSuffix(line, "\r")
		if blank {
			return errors.NewFormatErrorf("Line %d: Unexpected trailing data; expected an EOF after previous blank line.", lineNo)
		}
		switch {
		case strings.HasPrefix(line, "InChI="):
			if current != nil {
				if err := r.checkLoaded(current); err != nil {
					return err
				}
			}
			current = r.addIdentified(role, line, "")
		case strings.HasPrefix(line, "AuxInfo="):
			if current == nil {
				return errors.NewFormatErrorf("Line %d: AuxInfo without preceding InChI string.", lineNo)
			}
			current.auxInfo = line
		case line == "":
			blank = true
		default:
			return errors.NewFormatErrorf("Line %d: Unexpected line data; expected an InChI or AuxInfo string.", lineNo)
		}
	}
	if current != nil {
		return r.checkLoaded(current)
	}
	return nil
}

func (r *Reaction) checkLoaded(c *Component) error {
	if err := validateIdentifier(r.engine, c.identifier); err != nil {
		return err
	}
	if c.auxInfo == "" {
		return nil
	}
	if _, err := r.engine.ReconstructGraph(c.identifier, c.auxInfo); err != nil {
		return errors.NewValidationErrorf("Invalid AuxInfo '%s' for reaction component '%s'.", c.auxInfo, c.identifier).
			WithCause(err)
	}
	return nil
}
