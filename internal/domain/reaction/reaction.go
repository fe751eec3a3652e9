// Package reaction holds the RInChI reaction model: three groups of
// components, the canonical ordering of those groups, the RInChI and RAuxInfo
// string forms, the three RInChIKeys and the parser that turns an RInChI back
// into components.
//
// A Reaction is not safe for concurrent mutation. Once a string or key has
// been produced the canonical view is cached and concurrent reads are safe
// until the next mutation.
package reaction

import "github.com/IUPAC-InChI/RInChI/internal/domain/inchi"

// Reaction owns its components.
type Reaction struct {
	engine       inchi.Engine
	groups       [NumGroups][]*Component
	direction    Directionality
	placeholders [NumGroups]int
	view         *canonicalView
}

// New returns an empty directional reaction whose components use engine.
// A nil engine falls back to the lexical engine.
func New(engine inchi.Engine) *Reaction {
	if engine == nil {
		engine = inchi.NewLexicalEngine()
	}
	return &Reaction{engine: engine}
}

// Engine returns the engine components are computed and validated with.
func (r *Reaction) Engine() inchi.Engine { return r.engine }

func (r *Reaction) AddReactant() *Component { return r.add(Reactants) }
func (r *Reaction) AddProduct() *Component  { return r.add(Products) }
func (r *Reaction) AddAgent() *Component    { return r.add(Agents) }

// Add appends an empty component to the group of role.
func (r *Reaction) Add(role Role) *Component { return r.add(role) }

func (r *Reaction) add(role Role) *Component {
	c := &Component{owner: r}
	r.groups[role] = append(r.groups[role], c)
	r.invalidate()
	return c
}

// addIdentified appends a component whose identifier is already known.
func (r *Reaction) addIdentified(role Role, identifier, auxInfo string) *Component {
	c := &Component{owner: r, identifier: identifier, auxInfo: auxInfo}
	r.groups[role] = append(r.groups[role], c)
	r.invalidate()
	return c
}

// DeleteAgent removes c from the agents and reports whether it was there.
func (r *Reaction) DeleteAgent(c *Component) bool {
	agents := r.groups[Agents]
	for i, a := range agents {
		if a != c {
			continue
		}
		r.groups[Agents] = append(agents[:i:i], agents[i+1:]...)
		c.owner = nil
		r.invalidate()
		return true
	}
	return false
}

// Group returns the live components of role, placeholders included.
func (r *Reaction) Group(role Role) []*Component {
	out := make([]*Component, len(r.groups[role]))
	copy(out, r.groups[role])
	return out
}

func (r *Reaction) Reactants() []*Component { return r.Group(Reactants) }
func (r *Reaction) Products() []*Component  { return r.Group(Products) }
func (r *Reaction) Agents() []*Component    { return r.Group(Agents) }

func (r *Reaction) Directionality() Directionality { return r.direction }

// SetDirectionality changes only the emitted direction tag; the canonical
// order does not depend on it.
func (r *Reaction) SetDirectionality(d Directionality) { r.direction = d }

// IsEmpty reports whether the reaction has no components and no recorded
// placeholders.
func (r *Reaction) IsEmpty() bool {
	for i := 0; i < NumGroups; i++ {
		if len(r.groups[i]) != 0 || r.placeholders[i] != 0 {
			return false
		}
	}
	return true
}

// PlaceholderCount returns the number of No-Structure components of role.
func (r *Reaction) PlaceholderCount(role Role) (int, error) {
	if _, err := r.canonical(); err != nil {
		return 0, err
	}
	return r.placeholders[role], nil
}

// IsReversed reports whether products are written before reactants.
func (r *Reaction) IsReversed() (bool, error) {
	v, err := r.canonical()
	if err != nil {
		return false, err
	}
	return v.reverse, nil
}

func (r *Reaction) invalidate() { r.view = nil }
