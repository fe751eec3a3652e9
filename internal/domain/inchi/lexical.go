package inchi

import "github.com/IUPAC-InChI/RInChI/pkg/errors"

// LexicalEngine works on identifier text alone. It validates standard InChI
// syntax, derives InChIKeys natively and rebuilds graphs from AuxInfo
// reversibility layers. It cannot canonicalize structures, so computing the
// identifier of anything but a No-Structure is unsupported.
type LexicalEngine struct{}

// NewLexicalEngine returns the lexical engine.
func NewLexicalEngine() *LexicalEngine { return &LexicalEngine{} }

func (*LexicalEngine) ComputeIdentifier(mol *Molecule) (string, string, error) {
	if mol.IsNoStructure() {
		return NoStructure, NoStructureAuxInfo, nil
	}
	return "", "", errors.New(errors.ErrCodeEngineUnsupported,
		"structure canonicalization needs an InChI program; configure engine.kind=command")
}

func (*LexicalEngine) Validate(identifier string) error {
	return ValidateSyntax(identifier)
}

func (*LexicalEngine) IdentifierToKey(identifier string) (string, error) {
	if err := ValidateSyntax(identifier); err != nil {
		return "", err
	}
	return Key(identifier)
}

func (*LexicalEngine) ReconstructGraph(identifier, auxInfo string) (*Molecule, error) {
	return Reconstruct(identifier, auxInfo)
}

var _ Engine = (*LexicalEngine)(nil)
