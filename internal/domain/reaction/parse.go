package reaction

import (
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Split parses an RInChI and its optional RAuxInfo into a new reaction.
func Split(rinchi, rauxinfo string, engine inchi.Engine) (*Reaction, error) {
	r := New(engine)
	if err := r.SplitInto(rinchi, rauxinfo); err != nil {
		return nil, err
	}
	return r, nil
}

// SplitInto populates an empty reaction from an RInChI and its optional
// RAuxInfo. After a failure the reaction must be discarded.
func (r *Reaction) SplitInto(rinchi, rauxinfo string) error {
	if !r.IsEmpty() {
		return errors.NewPreconditionError("Cannot put components of an RInChI string into a non-empty Reaction.")
	}
	if !strings.HasPrefix(rinchi, Header) {
		return errors.NewFormatError("Invalid or incompatible RInChI header.")
	}

	groups := splitGroups(rinchi[len(Header):])
	last := &groups[len(groups)-1]
	var direction, placeholders string
	for i := 0; i < 2; i++ {
		pos := strings.LastIndex(*last, delimLayer)
		if pos < 0 || pos >= len(*last)-1 {
			break
		}
		tag := (*last)[pos : pos+2]
		if tag == placeholderTag {
			if placeholders != "" {
				return errors.NewFormatErrorf("Duplicate No-Structure tag '%s' in RInChI input string.", (*last)[pos:])
			}
			placeholders = (*last)[pos:]
		} else if tag == directionTag {
			if direction != "" {
				return errors.NewFormatErrorf("Duplicate direction tag '%s' in RInChI input string.", (*last)[pos:])
			}
			direction = (*last)[pos:]
		} else {
			break
		}
		*last = (*last)[:pos]
	}

	flag := byte(directionForward)
	if direction != "" {
		if len(direction) != 3 {
			return errors.NewFormatErrorf("Invalid direction tag '%s' in RInChI input string.", direction)
		}
		flag = direction[2]
	}
	var first, second Role
	switch flag {
	case directionForward, directionEquilibrium:
		first, second = Reactants, Products
	case directionReverse:
		first, second = Products, Reactants
	default:
		return errors.NewFormatErrorf("Invalid direction tag '%s' in RInChI input string.", direction)
	}
	if flag == directionEquilibrium {
		r.direction = Equilibrium
	} else {
		r.direction = Directional
	}

	roles := [NumGroups]Role{first, second, Agents}
	for i, g := range groups {
		if err := r.addFromGroup(roles[i], g); err != nil {
			return err
		}
	}

	if rauxinfo != "" {
		if !strings.HasPrefix(rauxinfo, AuxInfoHeader) {
			return errors.NewFormatError("Invalid or incompatible RAuxInfo header.")
		}
		names := [NumGroups]string{"first group", "second group", "third group"}
		for i, g := range splitGroups(rauxinfo[len(AuxInfoHeader):]) {
			label := names[i] + " (" + roles[i].String() + ")"
			if err := r.attachAuxInfo(roles[i], g, label); err != nil {
				return err
			}
		}
	}

	if placeholders != "" {
		counts, err := parsePlaceholderCounts(placeholders[len(placeholderTag):])
		if err != nil {
			return err
		}
		if flag == directionReverse {
			counts[0], counts[1] = counts[1], counts[0]
		}
		aux := inchi.NoStructureAuxInfo
		if rauxinfo == "" {
			aux = ""
		}
		for i := 0; i < NumGroups; i++ {
			for k := 0; k < counts[i]; k++ {
				r.addIdentified(Role(i), inchi.NoStructure, aux)
			}
		}
		r.placeholders = counts
	} else {
		r.placeholders = [NumGroups]int{}
	}
	r.invalidate()
	return nil
}

// splitGroups splits s on the group delimiter into at most three groups.
// Anything after a third delimiter stays in the last group.
func splitGroups(s string) []string {
	return strings.SplitN(s, delimGroup, NumGroups)
}

func (r *Reaction) addFromGroup(role Role, group string) error {
	if group == "" {
		return nil
	}
	for _, frag := range strings.Split(group, delimComp) {
		frag = strings.Trim(frag, " ")
		if strings.ContainsAny(frag, " \n\t") {
			return errors.NewFormatErrorf("Invalid trailing text in component InChI '%s'.", frag)
		}
		identifier := inchi.Header + frag
		if err := validateIdentifier(r.engine, identifier); err != nil {
			return err
		}
		r.addIdentified(role, identifier, "")
	}
	return nil
}

func (r *Reaction) attachAuxInfo(role Role, group, label string) error {
	if group == "" {
		return nil
	}
	components := r.groups[role]
	for i, frag := range strings.Split(group, delimComp) {
		if i >= len(components) {
			return errors.NewFormatErrorf("RAuxInfo contains too many elements in the %s.", label)
		}
		aux := inchi.AuxInfoHeader + frag
		if err := reconstruct(r.engine, components[i].identifier, aux); err != nil {
			return err
		}
		components[i].auxInfo = aux
	}
	return nil
}

func parsePlaceholderCounts(data string) ([NumGroups]int, error) {
	var counts [NumGroups]int
	first := strings.Index(data, placeholderDelim)
	last := strings.LastIndex(data, placeholderDelim)
	if first < 0 || first == last {
		return counts, errors.NewFormatErrorf("Invalid No-Structure count format in '%s'.", data)
	}
	fields := [NumGroups]string{data[:first], data[first+1 : last], data[last+1:]}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return counts, errors.NewFormatErrorf("Invalid No-Structure count '%s' for %s in '%s'.", f, Role(i), data)
		}
		counts[i] = n
	}
	return counts, nil
}

// validateIdentifier runs the engine validator and reports failures as
// validation errors naming the identifier.
func validateIdentifier(engine inchi.Engine, identifier string) error {
	if err := engine.Validate(identifier); err != nil {
		if errors.GetCode(err) == errors.CodeUnknown {
			return errors.Wrapf(err, errors.ErrCodeValidation, "Invalid component InChI '%s'.", identifier)
		}
		return err
	}
	return nil
}

// reconstruct checks that identifier and aux describe the same structure.
func reconstruct(engine inchi.Engine, identifier, aux string) error {
	if _, err := engine.ReconstructGraph(identifier, aux); err != nil {
		return errors.NewValidationErrorf("Invalid AuxInfo '%s' for a reaction component.", aux).
			WithDetail(identifier).WithCause(err)
	}
	return nil
}
