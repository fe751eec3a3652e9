// Package registry stores computed reactions in the relational registry and
// projects them into the reaction network graph.
package registry

import (
	"context"

	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service defines registry operations.
type Service interface {
	// Register computes the record of a reaction file and stores it. An
	// already registered RInChI keeps its ID.
	Register(ctx context.Context, in *rinchi.FileInput, source string) (*reaction.Record, error)
	Get(ctx context.Context, id string) (*reaction.Record, error)
	// Lookup accepts any of the three keys, prefixed or not.
	Lookup(ctx context.Context, key string) (*reaction.Record, error)
	ByComponent(ctx context.Context, inchiKey string, limit int) ([]*reaction.Record, error)
	List(ctx context.Context, in *ListInput) (*ListResult, error)
	Delete(ctx context.Context, id string) error
	Participations(ctx context.Context, inchiKey string) ([]reaction.Participation, error)
	// Successors lists reactions consuming a product of the reaction with
	// the given key.
	Successors(ctx context.Context, key string, limit int) ([]string, error)
}

// Recorder computes records; rinchi.Service satisfies it.
type Recorder interface {
	Record(ctx context.Context, in *rinchi.FileInput, source string) (*reaction.Record, error)
}

type ListInput struct {
	Page     int
	PageSize int
}

type ListResult struct {
	Reactions  []*reaction.Record `json:"reactions"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

type serviceImpl struct {
	recorder Recorder
	repo     reaction.Repository
	network  reaction.Network
	logger   logging.Logger
}

// NewService creates the registry service. network may be nil, in which
// case graph queries report the graph as unavailable.
func NewService(recorder Recorder, repo reaction.Repository, network reaction.Network, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{recorder: recorder, repo: repo, network: network, logger: logger}
}

func (s *serviceImpl) Register(ctx context.Context, in *rinchi.FileInput, source string) (*reaction.Record, error) {
	rec, err := s.recorder.Record(ctx, in, source)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	if s.network != nil {
		// Save is idempotent, so a retry after a failed projection is safe.
		if err := s.network.Project(ctx, rec); err != nil {
			s.logger.Error("reaction network projection failed",
				logging.String("reaction_id", rec.ID), logging.Error(err))
			return nil, err
		}
	}
	s.logger.Info("reaction registered",
		logging.String("reaction_id", rec.ID), logging.String("long_key", rec.LongKey))
	return rec, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*reaction.Record, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *serviceImpl) Lookup(ctx context.Context, key string) (*reaction.Record, error) {
	if key == "" {
		return nil, errors.NewValidationError("key is required")
	}
	return s.repo.FindByKey(ctx, key)
}

func (s *serviceImpl) ByComponent(ctx context.Context, inchiKey string, limit int) ([]*reaction.Record, error) {
	if inchiKey == "" {
		return nil, errors.NewValidationError("inchikey is required")
	}
	return s.repo.FindByComponent(ctx, inchiKey, limit)
}

func (s *serviceImpl) List(ctx context.Context, in *ListInput) (*ListResult, error) {
	page, size := 1, defaultPageSize
	if in != nil {
		if in.Page > 0 {
			page = in.Page
		}
		if in.PageSize > 0 {
			size = min(in.PageSize, maxPageSize)
		}
	}

	recs, total, err := s.repo.List(ctx, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	totalPages := int(total) / size
	if int(total)%size > 0 {
		totalPages++
	}
	return &ListResult{
		Reactions:  recs,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.network != nil {
		if err := s.network.Remove(ctx, rec.LongKey); err != nil {
			s.logger.Warn("reaction removed from registry but not from network",
				logging.String("long_key", rec.LongKey), logging.Error(err))
			return err
		}
	}
	return nil
}

func (s *serviceImpl) Participations(ctx context.Context, inchiKey string) ([]reaction.Participation, error) {
	if s.network == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "reaction network is not configured")
	}
	if inchiKey == "" {
		return nil, errors.NewValidationError("inchikey is required")
	}
	return s.network.Participations(ctx, inchiKey)
}

func (s *serviceImpl) Successors(ctx context.Context, key string, limit int) ([]string, error) {
	if s.network == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "reaction network is not configured")
	}
	kind, long, ok := reaction.ClassifyKey(key)
	if !ok {
		return nil, errors.InvalidParam("not a RInChIKey").WithDetail(key)
	}
	if kind != reaction.LongKey {
		rec, err := s.repo.FindByKey(ctx, long)
		if err != nil {
			return nil, err
		}
		long = rec.LongKey
	}
	return s.network.Successors(ctx, long, limit)
}
