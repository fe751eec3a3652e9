package rinchi

import (
	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/mdl"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// NewEngine builds the structure engine selected by cfg. The command
// engine is wrapped in a Session so at most one InChI process runs per
// engine at a time.
func NewEngine(cfg config.EngineConfig, log logging.Logger) (inchi.Engine, error) {
	switch cfg.Kind {
	case "", config.EngineLexical:
		return inchi.NewLexicalEngine(), nil
	case config.EngineCommand:
		args := append(append([]string{}, inchi.DefaultCommandArgs...), cfg.Args...)
		e, err := inchi.NewCommandEngine(cfg.Command, mdl.EncodeMolfile, log,
			inchi.WithArgs(args...), inchi.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		return inchi.NewSession(e), nil
	}
	return nil, errors.Newf(errors.ErrCodeConfig, "unknown engine kind %q", cfg.Kind)
}
