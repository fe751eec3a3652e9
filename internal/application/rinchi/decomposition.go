package rinchi

import (
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
)

// ComponentInfo is one component of a decomposed reaction.
type ComponentInfo struct {
	Role     string `json:"role"`
	InChI    string `json:"inchi"`
	AuxInfo  string `json:"auxinfo"`
	InChIKey string `json:"inchikey"`
}

// Decomposition lists the components of an RInChI in reactant, product,
// agent order. Direction is "+", "-" or "=".
type Decomposition struct {
	Direction    string                  `json:"direction"`
	Placeholders [reaction.NumGroups]int `json:"placeholders"`
	Components   []ComponentInfo         `json:"components"`
}

var rolePrefix = map[string]string{
	reaction.Reactants.String(): "R:",
	reaction.Products.String():  "P:",
	reaction.Agents.String():    "A:",
}

// Text renders the line format
//
//	D:<+|-|=>
//	N:<reactants>,<products>,<agents>
//	R:<InChI>
//	R:<AuxInfo>
//	...
//
// with "P:" and "A:" lines for products and agents.
func (d *Decomposition) Text() string {
	var sb strings.Builder
	sb.WriteString("D:" + d.Direction + "\n")
	sb.WriteString("N:")
	for i, n := range d.Placeholders {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(n))
	}
	sb.WriteByte('\n')
	for _, c := range d.Components {
		p := rolePrefix[c.Role]
		sb.WriteString(p + c.InChI + "\n")
		sb.WriteString(p + c.AuxInfo + "\n")
	}
	return sb.String()
}

func decompose(rxn *reaction.Reaction) (*Decomposition, error) {
	d := &Decomposition{Direction: "="}
	if rxn.Directionality() == reaction.Directional {
		reversed, err := rxn.IsReversed()
		if err != nil {
			return nil, err
		}
		d.Direction = "+"
		if reversed {
			d.Direction = "-"
		}
	}
	for role := reaction.Reactants; role <= reaction.Agents; role++ {
		n, err := rxn.PlaceholderCount(role)
		if err != nil {
			return nil, err
		}
		d.Placeholders[role] = n
		for _, c := range rxn.Group(role) {
			id, err := c.Identifier()
			if err != nil {
				return nil, err
			}
			aux, err := c.AuxInfo()
			if err != nil {
				return nil, err
			}
			key, err := c.Key()
			if err != nil {
				return nil, err
			}
			d.Components = append(d.Components, ComponentInfo{Role: role.String(), InChI: id, AuxInfo: aux, InChIKey: key})
		}
	}
	return d, nil
}
