package inchi

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// DefaultCommandArgs makes an inchi-1 compatible program read one molfile
// from stdin and print the identifier and AuxInfo to stdout.
var DefaultCommandArgs = []string{"-STDIO"}

const defaultCommandTimeout = 30 * time.Second

// MolfileEncoder renders a molecule as an MDL molfile.
type MolfileEncoder func(mol *Molecule) ([]byte, error)

// Runner executes an external program.
type Runner interface {
	Run(ctx context.Context, path string, args []string, stdin []byte) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, path string, args []string, stdin []byte) ([]byte, []byte, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find command %q: %w", path, err)
	}
	// #nosec G204 - the program is fixed by configuration, not by input
	cmd := exec.CommandContext(ctx, resolved, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CommandEngine computes identifiers by running an external InChI program
// and leaves validation, key derivation and reconstruction to the lexical
// engine.
type CommandEngine struct {
	path    string
	args    []string
	timeout time.Duration
	encode  MolfileEncoder
	runner  Runner
	lexical *LexicalEngine
	logger  logging.Logger
}

// CommandOption configures a CommandEngine.
type CommandOption func(*CommandEngine)

// WithArgs replaces DefaultCommandArgs.
func WithArgs(args ...string) CommandOption {
	return func(e *CommandEngine) { e.args = args }
}

// WithTimeout bounds each program run.
func WithTimeout(d time.Duration) CommandOption {
	return func(e *CommandEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRunner replaces process execution, mainly for tests.
func WithRunner(r Runner) CommandOption {
	return func(e *CommandEngine) { e.runner = r }
}

// NewCommandEngine returns an engine running path.
func NewCommandEngine(path string, encode MolfileEncoder, logger logging.Logger, opts ...CommandOption) (*CommandEngine, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeConfig, "InChI program path is empty")
	}
	if encode == nil {
		return nil, errors.New(errors.ErrCodeConfig, "molfile encoder is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	e := &CommandEngine{
		path:    path,
		args:    DefaultCommandArgs,
		timeout: defaultCommandTimeout,
		encode:  encode,
		runner:  execRunner{},
		lexical: NewLexicalEngine(),
		logger:  logger.Named("inchi-command"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *CommandEngine) ComputeIdentifier(mol *Molecule) (string, string, error) {
	if mol.IsNoStructure() {
		return NoStructure, NoStructureAuxInfo, nil
	}
	molfile, err := e.encode(mol)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := e.runner.Run(ctx, e.path, e.args, molfile)
	if err != nil {
		e.logger.Warn("InChI program failed",
			logging.String("program", e.path),
			logging.Error(err),
			logging.String("stderr", firstErrorLine(stderr)))
		return "", "", errors.Wrap(err, errors.ErrCodeEngineFailed, "InChI program failed").
			WithDetail(firstErrorLine(stderr))
	}

	identifier, aux := scanOutput(stdout)
	if identifier == "" {
		return "", "", errors.New(errors.ErrCodeEngineFailed, "no InChI has been created").
			WithDetail(firstErrorLine(stderr))
	}
	if !strings.HasPrefix(identifier, Header) {
		return "", "", errors.Newf(errors.ErrCodeEngineFailed, "InChI program returned a non-standard identifier '%s'", identifier)
	}
	e.logger.Debug("computed identifier",
		logging.Identifier("inchi", identifier),
		logging.Int("atoms", len(mol.Atoms)),
		logging.Duration("elapsed", time.Since(start)))
	return identifier, aux, nil
}

func (e *CommandEngine) Validate(identifier string) error {
	return e.lexical.Validate(identifier)
}

func (e *CommandEngine) IdentifierToKey(identifier string) (string, error) {
	return e.lexical.IdentifierToKey(identifier)
}

func (e *CommandEngine) ReconstructGraph(identifier, auxInfo string) (*Molecule, error) {
	return e.lexical.ReconstructGraph(identifier, auxInfo)
}

// scanOutput picks the first identifier and AuxInfo lines, skipping labels
// such as "Structure: 1".
func scanOutput(stdout []byte) (identifier, aux string) {
	sc := bufio.NewScanner(bytes.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case identifier == "" && strings.HasPrefix(line, "InChI="):
			identifier = line
		case aux == "" && strings.HasPrefix(line, "AuxInfo="):
			aux = line
		}
	}
	return identifier, aux
}

func firstErrorLine(stderr []byte) string {
	for _, line := range strings.Split(string(stderr), "\n") {
		if strings.Contains(strings.ToLower(line), "error") {
			return strings.TrimSpace(line)
		}
	}
	return strings.TrimSpace(string(stderr))
}

var _ Engine = (*CommandEngine)(nil)
