package reaction

import (
	"sort"
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/hashing"
	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// KeyKind selects one of the three RInChIKeys.
type KeyKind byte

const (
	LongKey  KeyKind = 'L'
	ShortKey KeyKind = 'S'
	WebKey   KeyKind = 'W'
)

// ParseKeyKind accepts "L", "S" or "W", case-insensitively.
func ParseKeyKind(s string) (KeyKind, error) {
	if len(s) == 1 {
		switch k := KeyKind(strings.ToUpper(s)[0]); k {
		case LongKey, ShortKey, WebKey:
			return k, nil
		}
	}
	sel := byte(0)
	if s != "" {
		sel = s[0]
	}
	return 0, errors.NewPreconditionErrorf("Invalid key selector '%c'", sel)
}

func (k KeyKind) String() string {
	switch k {
	case LongKey:
		return "long"
	case ShortKey:
		return "short"
	case WebKey:
		return "web"
	}
	return "invalid"
}

// String renders the RInChI:
//
//	RInChI=1.00.1S/<group>[<><group>[<><group>]]/d<+|-|=>[/u<n>-<n>-<n>]
func (r *Reaction) String() (string, error) {
	v, err := r.canonical()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(Header)
	n := r.outputGroups(v, false)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(delimGroup)
		}
		sb.WriteString(v.identifiers[v.order[i]])
	}
	sb.WriteString(directionTag)
	sb.WriteByte(r.directionFlag(v))

	if r.hasPlaceholders() {
		sb.WriteString(placeholderTag)
		for i, role := range v.order {
			if i > 0 {
				sb.WriteString(placeholderDelim)
			}
			sb.WriteString(strconv.Itoa(r.placeholders[role]))
		}
	}
	return sb.String(), nil
}

// AuxInfo renders the RAuxInfo with the group layout of String.
func (r *Reaction) AuxInfo() (string, error) {
	v, err := r.canonical()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(AuxInfoHeader)
	n := r.outputGroups(v, false)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(delimGroup)
		}
		sb.WriteString(v.auxInfos[v.order[i]])
	}
	return sb.String(), nil
}

// LongKey concatenates the InChIKeys of every component. Each No-Structure
// contributes the No-Structure InChIKey.
func (r *Reaction) LongKey() (string, error) {
	v, err := r.canonical()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(LongKeyHeader)
	sb.WriteString(keyVersion)
	sb.WriteString(keyDelimBlock)
	sb.WriteByte(r.directionCode(v))
	sb.WriteString(reservedHashBlock)

	n := r.outputGroups(v, true)
	keys := make([]string, 0, n)
	emitted := false
	for i := 0; i < n; i++ {
		role := v.order[i]
		group := make([]string, 0, len(v.ordered[role])+r.placeholders[role])
		for _, c := range v.ordered[role] {
			key, err := c.Key()
			if err != nil {
				return "", err
			}
			group = append(group, key)
		}
		for k := 0; k < r.placeholders[role]; k++ {
			group = append(group, PlaceholderKey)
		}
		if len(group) > 0 {
			emitted = true
		}
		keys = append(keys, strings.Join(group, keyDelimComp))
	}
	if emitted {
		sb.WriteString(keyDelimBlock)
		sb.WriteString(strings.Join(keys, keyDelimGroup))
	}
	return sb.String(), nil
}

// ShortKey hashes the major and minor layers of each group in output order
// and ends with one placeholder-count letter per group.
func (r *Reaction) ShortKey() (string, error) {
	v, err := r.canonical()
	if err != nil {
		return "", err
	}

	var majors, minors strings.Builder
	for _, role := range v.order {
		var layers inchi.Layers
		for _, c := range v.ordered[role] {
			if err := layers.Append(c.identifier); err != nil {
				return "", err
			}
		}
		majors.WriteString(keyDelimBlock + layers.MajorHash())
		minors.WriteString(keyDelimBlock + layers.MinorHash())
	}

	var sb strings.Builder
	sb.WriteString(ShortKeyHeader)
	sb.WriteString(keyVersion)
	sb.WriteString(keyDelimBlock)
	sb.WriteByte(r.directionCode(v))
	sb.WriteString(hashing.Empty4)
	sb.WriteString(majors.String())
	sb.WriteString(minors.String())
	sb.WriteString(keyDelimBlock)
	for _, role := range v.order {
		sb.WriteByte(PlaceholderChar(r.placeholders[role]))
	}
	return sb.String(), nil
}

// WebKey hashes the distinct identifiers of all components regardless of
// their role. No-Structures take part with their identifier.
func (r *Reaction) WebKey() (string, error) {
	if _, err := r.canonical(); err != nil {
		return "", err
	}

	unique := make(map[string]struct{})
	for i := 0; i < NumGroups; i++ {
		for _, c := range r.groups[i] {
			id, err := c.Identifier()
			if err != nil {
				return "", err
			}
			unique[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var layers inchi.Layers
	for _, id := range ids {
		if err := layers.Append(id); err != nil {
			return "", err
		}
	}
	return WebKeyHeader + layers.MajorHashExt() + keyDelimBlock + layers.MinorHashExt() + keyVersion, nil
}

// Key returns the key selected by kind.
func (r *Reaction) Key(kind KeyKind) (string, error) {
	switch kind {
	case LongKey:
		return r.LongKey()
	case ShortKey:
		return r.ShortKey()
	case WebKey:
		return r.WebKey()
	}
	return "", errors.NewPreconditionErrorf("Invalid key selector '%c'", byte(kind))
}

// PlaceholderChar encodes a No-Structure count: 0 is Z, 1 to 24 are A to X
// and anything above 24 is Y.
func PlaceholderChar(count int) byte {
	switch {
	case count <= 0:
		return 'Z'
	case count > 24:
		return 'Y'
	}
	return byte('A' + count - 1)
}

func (r *Reaction) hasPlaceholders() bool {
	for _, n := range r.placeholders {
		if n > 0 {
			return true
		}
	}
	return false
}

func (r *Reaction) directionFlag(v *canonicalView) byte {
	switch {
	case r.direction == Equilibrium:
		return directionEquilibrium
	case v.reverse:
		return directionReverse
	}
	return directionForward
}

// directionCode is the key letter: F(orward), B(ackward) or E(quilibrium).
func (r *Reaction) directionCode(v *canonicalView) byte {
	switch {
	case r.direction == Equilibrium:
		return 'E'
	case v.reverse:
		return 'B'
	}
	return 'F'
}
