package reaction

import "context"

// Participation is one edge of the reaction network: a molecule taking
// part in the reaction identified by LongKey.
type Participation struct {
	LongKey string `json:"long_key"`
	WebKey  string `json:"web_key,omitempty"`
	Role    Role   `json:"role"`
}

// Network is a graph projection of registered reactions. Molecules are
// nodes keyed by InChIKey and linked to every reaction they take part in.
type Network interface {
	// Project replaces the projection of rec. Re-projecting a reaction
	// drops edges that are no longer present.
	Project(ctx context.Context, rec *Record) error
	// Participations lists the reactions a molecule takes part in.
	Participations(ctx context.Context, inchiKey string) ([]Participation, error)
	// Successors returns the long keys of reactions consuming any product
	// of the given reaction.
	Successors(ctx context.Context, longKey string, limit int) ([]string, error)
	Remove(ctx context.Context, longKey string) error
}
