package reaction

import (
	"context"
	"strings"
	"time"
)

// Record is a registered reaction: its identifiers and the InChIKeys of its
// components.
type Record struct {
	ID           string            `json:"id"`
	RInChI       string            `json:"rinchi"`
	RAuxInfo     string            `json:"rauxinfo,omitempty"`
	LongKey      string            `json:"long_key"`
	ShortKey     string            `json:"short_key"`
	WebKey       string            `json:"web_key"`
	Direction    string            `json:"direction"`
	Placeholders [NumGroups]int    `json:"placeholders"`
	Components   []RecordComponent `json:"components"`
	Source       string            `json:"source,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// RecordComponent is one component of a Record. Position is the index
// within its role group in RInChI order.
type RecordComponent struct {
	Role     Role   `json:"role"`
	Position int    `json:"position"`
	InChI    string `json:"inchi"`
	InChIKey string `json:"inchikey"`
}

// Repository persists Records. Save is idempotent on the RInChI: saving a
// reaction already registered refreshes its RAuxInfo and source and returns
// the existing ID.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	FindByID(ctx context.Context, id string) (*Record, error)
	// FindByKey looks a record up by any of its three keys, with or
	// without the key prefix.
	FindByKey(ctx context.Context, key string) (*Record, error)
	FindByComponent(ctx context.Context, inchiKey string, limit int) ([]*Record, error)
	List(ctx context.Context, offset, limit int) ([]*Record, int64, error)
	Delete(ctx context.Context, id string) error
}

// NewRecord computes every identifier of r. Placeholder components are
// counted, not listed.
func NewRecord(r *Reaction, source string) (*Record, error) {
	rec := &Record{Source: source}
	var err error
	if rec.RInChI, err = r.String(); err != nil {
		return nil, err
	}
	if rec.RAuxInfo, err = r.AuxInfo(); err != nil {
		return nil, err
	}
	if rec.LongKey, err = r.LongKey(); err != nil {
		return nil, err
	}
	if rec.ShortKey, err = r.ShortKey(); err != nil {
		return nil, err
	}
	if rec.WebKey, err = r.WebKey(); err != nil {
		return nil, err
	}

	rec.Direction = "="
	if r.Directionality() == Directional {
		reversed, err := r.IsReversed()
		if err != nil {
			return nil, err
		}
		rec.Direction = "+"
		if reversed {
			rec.Direction = "-"
		}
	}

	for role := Reactants; role <= Agents; role++ {
		if rec.Placeholders[role], err = r.PlaceholderCount(role); err != nil {
			return nil, err
		}
		pos := 0
		for _, c := range r.Group(role) {
			if c.IsPlaceholder() {
				continue
			}
			id, err := c.Identifier()
			if err != nil {
				return nil, err
			}
			key, err := c.Key()
			if err != nil {
				return nil, err
			}
			rec.Components = append(rec.Components, RecordComponent{Role: role, Position: pos, InChI: id, InChIKey: key})
			pos++
		}
	}
	return rec, nil
}

// ClassifyKey reports which kind of key s is and returns it with its prefix.
// Unprefixed keys are classified by shape: web keys are 17+1+15 letters,
// short keys start "SA-" and have nine blocks, anything else starting
// "SA-" is a long key.
func ClassifyKey(s string) (KeyKind, string, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, LongKeyHeader):
		return LongKey, s, true
	case strings.HasPrefix(s, ShortKeyHeader):
		return ShortKey, s, true
	case strings.HasPrefix(s, WebKeyHeader):
		return WebKey, s, true
	case len(s) == 33 && s[17] == '-' && !strings.HasPrefix(s, "SA-"):
		return WebKey, WebKeyHeader + s, true
	case strings.HasPrefix(s, "SA-") && strings.Count(s, "-") == 8 && len(s) == 63:
		return ShortKey, ShortKeyHeader + s, true
	case strings.HasPrefix(s, "SA-"):
		return LongKey, LongKeyHeader + s, true
	}
	return 0, "", false
}
