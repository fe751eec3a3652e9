package inchi

import "sync"

// Engine computes and interprets standard InChI identifiers for single
// molecules.
type Engine interface {
	// ComputeIdentifier returns the standard InChI and AuxInfo of mol.
	ComputeIdentifier(mol *Molecule) (identifier, auxInfo string, err error)
	// Validate rejects identifiers the engine does not accept.
	Validate(identifier string) error
	// IdentifierToKey returns the standard InChIKey of identifier.
	IdentifierToKey(identifier string) (string, error)
	// ReconstructGraph rebuilds a molecule from identifier and, when
	// non-empty, its AuxInfo.
	ReconstructGraph(identifier, auxInfo string) (*Molecule, error)
}

// Session serializes every call into the wrapped engine. Engines backed by a
// process-wide library handle must only be reached through a Session.
type Session struct {
	mu     sync.Mutex
	engine Engine
}

// NewSession wraps engine.
func NewSession(engine Engine) *Session {
	return &Session{engine: engine}
}

// Engine returns the wrapped engine.
func (s *Session) Engine() Engine { return s.engine }

func (s *Session) ComputeIdentifier(mol *Molecule) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ComputeIdentifier(mol)
}

func (s *Session) Validate(identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Validate(identifier)
}

func (s *Session) IdentifierToKey(identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.IdentifierToKey(identifier)
}

func (s *Session) ReconstructGraph(identifier, auxInfo string) (*Molecule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ReconstructGraph(identifier, auxInfo)
}

var _ Engine = (*Session)(nil)
