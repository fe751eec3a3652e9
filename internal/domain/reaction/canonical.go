package reaction

import (
	"sort"
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
)

// canonicalView is the role-order independent form of a reaction. It is
// built on first read and dropped by every mutation.
type canonicalView struct {
	// order lists roles in output order. Agents are always last.
	order [NumGroups]Role
	// ordered holds the non-placeholder components of each role sorted by
	// identifier.
	ordered     [NumGroups][]*Component
	identifiers [NumGroups]string
	auxInfos    [NumGroups]string
	// reverse is set when the products sort before the reactants.
	reverse bool
}

type sortEntry struct {
	id string
	c  *Component
}

func (r *Reaction) canonical() (*canonicalView, error) {
	if r.view != nil {
		return r.view, nil
	}

	v := &canonicalView{order: [NumGroups]Role{Reactants, Products, Agents}}
	for i := 0; i < NumGroups; i++ {
		r.placeholders[i] = 0
		entries := make([]sortEntry, 0, len(r.groups[i]))
		for _, c := range r.groups[i] {
			id, err := c.Identifier()
			if err != nil {
				return nil, err
			}
			if c.IsPlaceholder() {
				r.placeholders[i]++
				continue
			}
			entries = append(entries, sortEntry{id: id, c: c})
		}
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].id < entries[b].id })

		var ids, auxs strings.Builder
		v.ordered[i] = make([]*Component, len(entries))
		for k, e := range entries {
			v.ordered[i][k] = e.c
			// Key errors are left for LongKey to report; a failed lookup
			// caches nothing.
			_, _ = e.c.Key()
			if k > 0 {
				ids.WriteString(delimComp)
				auxs.WriteString(delimComp)
			}
			ids.WriteString(strings.TrimPrefix(e.id, inchi.Header))
			if aux := e.c.auxInfo; aux == "" {
				auxs.WriteString(delimLayer)
			} else {
				auxs.WriteString(strings.TrimPrefix(aux, inchi.AuxInfoHeader))
			}
		}
		v.identifiers[i] = ids.String()
		v.auxInfos[i] = auxs.String()
	}

	v.reverse = v.identifiers[Products] < v.identifiers[Reactants]
	if v.reverse {
		v.order[0], v.order[1] = v.order[1], v.order[0]
	}
	r.view = v
	return v, nil
}

// outputGroups is one more than the last output position holding a
// non-empty group, or, when withPlaceholders is set, a placeholder. It is
// at least 1.
func (r *Reaction) outputGroups(v *canonicalView, withPlaceholders bool) int {
	n := 1
	for i, role := range v.order {
		if v.identifiers[role] != "" {
			n = i + 1
		}
		if withPlaceholders && r.placeholders[role] != 0 {
			n = i + 1
		}
	}
	return n
}
