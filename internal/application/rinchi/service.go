// Package rinchi is the application service behind the CLI, the HTTP API
// and the batch worker. It exposes the library operations of the RInChI
// toolkit: identifiers from reaction files, keys, reaction files from
// identifiers and decomposition into component InChIs.
package rinchi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/domain/inchi"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/mdl"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Service defines the library operations.
type Service interface {
	// FromFileText computes the RInChI, RAuxInfo and keys of an RXN or RD
	// file. A file whose first line is an RInChI is split instead, with an
	// optional RAuxInfo on its second line.
	FromFileText(ctx context.Context, in *FileInput) (*Identifiers, error)
	KeyFromFileText(ctx context.Context, in *FileInput, keyType string) (string, error)
	// FileTextFromRInChI reconstructs an RXN or RD file. Format "AUTO"
	// writes RD when the reaction has agents.
	FileTextFromRInChI(ctx context.Context, rinchi, rauxinfo, format string) (string, error)
	Decompose(ctx context.Context, rinchi, rauxinfo string) (*Decomposition, error)
	FromInChIs(ctx context.Context, in *InChIsInput) (*Identifiers, error)
	// KeyFromRInChI ignores everything from the first line feed on.
	KeyFromRInChI(ctx context.Context, rinchi, keyType string) (string, error)
	Keys(ctx context.Context, rinchi string) (*Identifiers, error)
	// Record computes the registry record of a reaction file without
	// storing it.
	Record(ctx context.Context, in *FileInput, source string) (*reaction.Record, error)
}

// FileInput is the text of a reaction file.
type FileInput struct {
	Text string
	// Name appears in parse errors; defaults to "input".
	Name             string
	Format           string
	ForceEquilibrium bool
}

// InChIsInput carries one line-oriented block per role: "InChI=" lines,
// each optionally followed by its "AuxInfo=" line.
type InChIsInput struct {
	Reactants   string
	Products    string
	Agents      string
	Equilibrium bool
}

// Identifiers are the string forms of one reaction.
type Identifiers struct {
	RInChI   string `json:"rinchi"`
	RAuxInfo string `json:"rauxinfo,omitempty"`
	LongKey  string `json:"long_key"`
	ShortKey string `json:"short_key"`
	WebKey   string `json:"web_key"`
}

// Cache is satisfied by the Redis and Badger caches.
type Cache interface {
	Name() string
	GetOrLoad(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func(context.Context) (interface{}, error)) error
}

type Option func(*serviceImpl)

func WithLogger(l logging.Logger) Option {
	return func(s *serviceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *serviceImpl) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithCache caches keys and decompositions, which depend only on their
// input strings.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithRDReader replaces the default RD reader, e.g. to change the
// non-agent keywords.
func WithRDReader(r *mdl.RDReader) Option {
	return func(s *serviceImpl) {
		if r != nil {
			s.rdReader = r
		}
	}
}

type serviceImpl struct {
	engine   inchi.Engine
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
	cache    Cache
	cacheTTL time.Duration
	rdReader *mdl.RDReader
}

// NewService creates the service on top of engine.
func NewService(engine inchi.Engine, opts ...Option) Service {
	s := &serviceImpl{
		engine:   engine,
		logger:   logging.NewNopLogger(),
		metrics:  prometheus.NewNopMetrics(),
		rdReader: mdl.NewRDReader(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) observe(op string, start time.Time, err error) {
	d := time.Since(start)
	prometheus.RecordOperation(s.metrics, op, d, err)
	if err != nil {
		prometheus.RecordError(s.metrics, "rinchi", errors.GetCode(err).String())
		s.logger.Debug("operation failed",
			logging.String("operation", op), logging.Duration("elapsed", d), logging.Error(err))
	}
}

func (s *serviceImpl) FromFileText(ctx context.Context, in *FileInput) (ids *Identifiers, err error) {
	defer func(start time.Time) { s.observe("from_file_text", start, err) }(time.Now())

	rxn, err := s.load(in)
	if err != nil {
		return nil, err
	}
	return identifiers(rxn, true)
}

func (s *serviceImpl) KeyFromFileText(ctx context.Context, in *FileInput, keyType string) (key string, err error) {
	defer func(start time.Time) { s.observe("key_from_file_text", start, err) }(time.Now())

	kind, err := parseKeyType(keyType)
	if err != nil {
		return "", err
	}
	rxn, err := s.load(in)
	if err != nil {
		return "", err
	}
	return rxn.Key(kind)
}

func (s *serviceImpl) FileTextFromRInChI(ctx context.Context, rinchi, rauxinfo, format string) (text string, err error) {
	defer func(start time.Time) { s.observe("file_text_from_rinchi", start, err) }(time.Now())

	f, err := mdl.ParseFormat(format)
	if err != nil {
		return "", err
	}
	if f == mdl.FormatRInChI {
		return "", errors.NewPreconditionErrorf("Unsupported output file format '%s'.", format)
	}
	rxn, err := reaction.Split(rinchi, rauxinfo, s.engine)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := mdl.WriteReaction(&buf, rxn, f); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *serviceImpl) Decompose(ctx context.Context, rinchi, rauxinfo string) (d *Decomposition, err error) {
	defer func(start time.Time) { s.observe("decompose", start, err) }(time.Now())

	load := func(context.Context) (interface{}, error) {
		rxn, err := reaction.Split(rinchi, rauxinfo, s.engine)
		if err != nil {
			return nil, err
		}
		return decompose(rxn)
	}
	d = &Decomposition{}
	if err := s.cached(ctx, "dec:"+digest(rinchi, rauxinfo), d, load); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *serviceImpl) FromInChIs(ctx context.Context, in *InChIsInput) (ids *Identifiers, err error) {
	defer func(start time.Time) { s.observe("from_inchis", start, err) }(time.Now())

	rxn := reaction.New(s.engine)
	if in.Equilibrium {
		rxn.SetDirectionality(reaction.Equilibrium)
	}
	if err := rxn.LoadComponents(in.Reactants, in.Products, in.Agents); err != nil {
		return nil, err
	}
	return identifiers(rxn, true)
}

func (s *serviceImpl) KeyFromRInChI(ctx context.Context, rinchi, keyType string) (key string, err error) {
	defer func(start time.Time) { s.observe("key_from_rinchi", start, err) }(time.Now())

	kind, err := parseKeyType(keyType)
	if err != nil {
		return "", err
	}
	rinchi = firstLine(rinchi)

	load := func(context.Context) (interface{}, error) {
		rxn, err := reaction.Split(rinchi, "", s.engine)
		if err != nil {
			return nil, err
		}
		return rxn.Key(kind)
	}
	if err := s.cached(ctx, "key:"+string(kind)+":"+digest(rinchi), &key, load); err != nil {
		return "", err
	}
	return key, nil
}

func (s *serviceImpl) Keys(ctx context.Context, rinchi string) (ids *Identifiers, err error) {
	defer func(start time.Time) { s.observe("keys", start, err) }(time.Now())

	rinchi = firstLine(rinchi)
	load := func(context.Context) (interface{}, error) {
		rxn, err := reaction.Split(rinchi, "", s.engine)
		if err != nil {
			return nil, err
		}
		return identifiers(rxn, false)
	}
	ids = &Identifiers{}
	if err := s.cached(ctx, "keys:"+digest(rinchi), ids, load); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *serviceImpl) Record(ctx context.Context, in *FileInput, source string) (rec *reaction.Record, err error) {
	defer func(start time.Time) { s.observe("record", start, err) }(time.Now())

	rxn, err := s.load(in)
	if err != nil {
		return nil, err
	}
	return reaction.NewRecord(rxn, source)
}

// load reads in into a new reaction, choosing the reader by format or by
// the first line of the text.
func (s *serviceImpl) load(in *FileInput) (*reaction.Reaction, error) {
	if in == nil {
		return nil, errors.NewPreconditionError("No input file text.")
	}
	f, err := mdl.ParseFormat(in.Format)
	if err != nil {
		return nil, err
	}
	name := in.Name
	if name == "" {
		name = "input"
	}
	if f == mdl.FormatAuto {
		f = mdl.DetectFormat(mdl.FirstLine(in.Text))
	}

	rxn := reaction.New(s.engine)
	switch f {
	case mdl.FormatRInChI:
		lines := strings.SplitN(in.Text, "\n", 3)
		aux := ""
		if len(lines) > 1 {
			aux = strings.TrimRight(lines[1], "\r")
		}
		err = rxn.SplitInto(strings.TrimRight(lines[0], "\r"), aux)
	case mdl.FormatRD:
		err = s.rdReader.Read(strings.NewReader(in.Text), name, rxn, in.ForceEquilibrium)
	default:
		err = mdl.ReadReaction(in.Text, name, f, rxn, in.ForceEquilibrium)
	}
	if err != nil {
		return nil, err
	}
	for role := reaction.Reactants; role <= reaction.Agents; role++ {
		s.metrics.ComponentsTotal.WithLabelValues(role.String()).Add(float64(len(rxn.Group(role))))
	}
	return rxn, nil
}

// cached runs load through the cache when one is configured.
func (s *serviceImpl) cached(ctx context.Context, key string, dest interface{}, load func(context.Context) (interface{}, error)) error {
	if s.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return err
		}
		return assign(dest, v)
	}

	loaded := false
	err := s.cache.GetOrLoad(ctx, key, dest, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return load(ctx)
	})
	if err != nil && isCacheFailure(err) {
		// A failing cache must not fail the operation.
		s.logger.Warn("cache unavailable, computing directly",
			logging.String("cache", s.cache.Name()), logging.Error(err))
		v, lerr := load(ctx)
		if lerr != nil {
			return lerr
		}
		return assign(dest, v)
	}
	if err == nil {
		prometheus.RecordCacheAccess(s.metrics, s.cache.Name(), !loaded)
	}
	return err
}

func isCacheFailure(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeCacheError, errors.ErrCodeSerialization, errors.ErrCodeServiceUnavailable:
		return true
	}
	return false
}

func assign(dest, v interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = v.(string)
	case *Decomposition:
		*d = *v.(*Decomposition)
	case *Identifiers:
		*d = *v.(*Identifiers)
	default:
		return errors.Internal("unsupported cache destination")
	}
	return nil
}

func identifiers(rxn *reaction.Reaction, withAux bool) (*Identifiers, error) {
	var ids Identifiers
	var err error
	if ids.RInChI, err = rxn.String(); err != nil {
		return nil, err
	}
	if withAux {
		if ids.RAuxInfo, err = rxn.AuxInfo(); err != nil {
			return nil, err
		}
	}
	if ids.LongKey, err = rxn.LongKey(); err != nil {
		return nil, err
	}
	if ids.ShortKey, err = rxn.ShortKey(); err != nil {
		return nil, err
	}
	if ids.WebKey, err = rxn.WebKey(); err != nil {
		return nil, err
	}
	return &ids, nil
}

// parseKeyType looks at the first character only, so "Long" selects the
// long key.
func parseKeyType(keyType string) (reaction.KeyKind, error) {
	if keyType == "" {
		return 0, errors.NewPreconditionError("Missing key selector: key type must be 'L'(ong), 'S'(hort) or 'W'(eb).")
	}
	return reaction.ParseKeyKind(keyType[:1])
}

// firstLine cuts s at the first line feed and drops a trailing carriage
// return.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "\r")
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
