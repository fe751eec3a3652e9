// Package app wires configuration into running processes: the API server
// and the batch worker. The CLI and the cmd entrypoints share it.
package app

import (
	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/mdl"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// NewEngine builds the configured identifier engine. The command engine is
// wrapped in a Session.
func NewEngine(cfg config.EngineConfig, logger logging.Logger) (inchi.Engine, error) {
	switch cfg.Kind {
	case "", config.EngineLexical:
		return inchi.NewLexicalEngine(), nil
	case config.EngineCommand:
		e, err := inchi.NewCommandEngine(cfg.Command, mdl.EncodeMolfile, logger.Named("engine"),
			inchi.WithArgs(cfg.Args...), inchi.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		return inchi.NewSession(e), nil
	}
	return nil, errors.Newf(errors.ErrCodeConfig, "unknown engine kind %q", cfg.Kind)
}

// NewService builds the library service. cache may be nil.
func NewService(cfg *config.Config, engine inchi.Engine, infra *Infrastructure, logger logging.Logger) rinchi.Service {
	opts := []rinchi.Option{rinchi.WithLogger(logger.Named("rinchi"))}
	if infra != nil {
		opts = append(opts, rinchi.WithMetrics(infra.Metrics))
		if infra.Cache != nil {
			opts = append(opts, rinchi.WithCache(infra.Cache, cfg.Cache.TTL))
		}
	}
	return rinchi.NewService(engine, opts...)
}
