package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const reactionColumns = `id, rinchi, rauxinfo, long_key, short_key, web_key, direction,
	nostruct_r, nostruct_p, nostruct_a, source, created_at, updated_at`

const maxListLimit = 500

type postgresReactionRepo struct {
	baseRepo
}

// NewReactionRepository returns the registry of reactions.
func NewReactionRepository(conn *postgres.Connection, log logging.Logger, m *prometheus.AppMetrics) reaction.Repository {
	return &postgresReactionRepo{baseRepo: newBaseRepo(conn, log, m)}
}

func (r *postgresReactionRepo) Save(ctx context.Context, rec *reaction.Record) (err error) {
	defer func(start time.Time) { r.observe("reaction_save", start, err) }(time.Now())

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := parseID(rec.ID); err != nil {
		return err
	}

	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO reactions (
				id, rinchi, rauxinfo, long_key, short_key, web_key, direction,
				nostruct_r, nostruct_p, nostruct_a, source
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (rinchi) DO UPDATE SET
				rauxinfo = EXCLUDED.rauxinfo,
				source = EXCLUDED.source,
				updated_at = NOW()
			RETURNING id, created_at, updated_at`,
			rec.ID, rec.RInChI, rec.RAuxInfo, rec.LongKey, rec.ShortKey, rec.WebKey, rec.Direction,
			rec.Placeholders[reaction.Reactants], rec.Placeholders[reaction.Products], rec.Placeholders[reaction.Agents],
			rec.Source,
		).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return dbError(err, "failed to save reaction")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reaction_components WHERE reaction_id = $1`, rec.ID); err != nil {
			return dbError(err, "failed to replace reaction components")
		}
		if len(rec.Components) == 0 {
			return nil
		}
		query, args := componentInsert(rec.ID, rec.Components)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return dbError(err, "failed to save reaction components")
		}
		return nil
	})
}

func componentInsert(id string, components []reaction.RecordComponent) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO reaction_components (reaction_id, role, position, inchi, inchikey) VALUES ")
	args := make([]interface{}, 0, len(components)*5)
	for i, c := range components {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, id, int(c.Role), c.Position, c.InChI, c.InChIKey)
	}
	return sb.String(), args
}

func (r *postgresReactionRepo) FindByID(ctx context.Context, id string) (rec *reaction.Record, err error) {
	defer func(start time.Time) { r.observe("reaction_find_by_id", start, err) }(time.Now())

	if _, err := parseID(id); err != nil {
		return nil, err
	}
	return r.findOne(ctx, `SELECT `+reactionColumns+` FROM reactions WHERE id = $1`, id)
}

func (r *postgresReactionRepo) FindByKey(ctx context.Context, key string) (rec *reaction.Record, err error) {
	defer func(start time.Time) { r.observe("reaction_find_by_key", start, err) }(time.Now())

	kind, full, ok := reaction.ClassifyKey(key)
	if !ok {
		return nil, errors.InvalidParam("not an RInChIKey").WithDetail(key)
	}
	column := map[reaction.KeyKind]string{
		reaction.LongKey:  "long_key",
		reaction.ShortKey: "short_key",
		reaction.WebKey:   "web_key",
	}[kind]
	return r.findOne(ctx,
		`SELECT `+reactionColumns+` FROM reactions WHERE `+column+` = $1 ORDER BY created_at LIMIT 1`, full)
}

func (r *postgresReactionRepo) findOne(ctx context.Context, query string, arg interface{}) (*reaction.Record, error) {
	rec, err := scanReaction(r.db().QueryRowContext(ctx, query, arg))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeReactionNotFound, "reaction not found")
	}
	if err != nil {
		return nil, dbError(err, "failed to load reaction")
	}
	if rec.Components, err = r.components(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *postgresReactionRepo) components(ctx context.Context, id string) ([]reaction.RecordComponent, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT role, position, inchi, inchikey
		FROM reaction_components
		WHERE reaction_id = $1
		ORDER BY role, position`, id)
	if err != nil {
		return nil, dbError(err, "failed to load reaction components")
	}
	defer rows.Close()

	var out []reaction.RecordComponent
	for rows.Next() {
		var c reaction.RecordComponent
		var role int
		if err := rows.Scan(&role, &c.Position, &c.InChI, &c.InChIKey); err != nil {
			return nil, dbError(err, "failed to scan reaction component")
		}
		c.Role = reaction.Role(role)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to read reaction components")
	}
	return out, nil
}

// FindByComponent returns reactions containing the molecule with inchiKey
// in any role, newest first. Components are not loaded.
func (r *postgresReactionRepo) FindByComponent(ctx context.Context, inchiKey string, limit int) (recs []*reaction.Record, err error) {
	defer func(start time.Time) { r.observe("reaction_find_by_component", start, err) }(time.Now())

	rows, err := r.db().QueryContext(ctx, `
		SELECT `+prefixed("r.", reactionColumns)+`
		FROM reactions r
		WHERE EXISTS (
			SELECT 1 FROM reaction_components c
			WHERE c.reaction_id = r.id AND c.inchikey = $1
		)
		ORDER BY r.created_at DESC
		LIMIT $2`, inchiKey, clampLimit(limit))
	if err != nil {
		return nil, dbError(err, "failed to query reactions by component")
	}
	return collect(rows)
}

// List pages through the registry newest first. Components are not loaded.
func (r *postgresReactionRepo) List(ctx context.Context, offset, limit int) (recs []*reaction.Record, total int64, err error) {
	defer func(start time.Time) { r.observe("reaction_list", start, err) }(time.Now())

	if offset < 0 {
		offset = 0
	}
	if err := r.db().QueryRowContext(ctx, `SELECT COUNT(*) FROM reactions`).Scan(&total); err != nil {
		return nil, 0, dbError(err, "failed to count reactions")
	}
	rows, err := r.db().QueryContext(ctx, `
		SELECT `+reactionColumns+`
		FROM reactions
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, clampLimit(limit), offset)
	if err != nil {
		return nil, 0, dbError(err, "failed to list reactions")
	}
	recs, err = collect(rows)
	return recs, total, err
}

func (r *postgresReactionRepo) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { r.observe("reaction_delete", start, err) }(time.Now())

	if _, err := parseID(id); err != nil {
		return err
	}
	res, err := r.db().ExecContext(ctx, `DELETE FROM reactions WHERE id = $1`, id)
	if err != nil {
		return dbError(err, "failed to delete reaction")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeReactionNotFound, "reaction not found")
	}
	return nil
}

func scanReaction(s scanner) (*reaction.Record, error) {
	var rec reaction.Record
	err := s.Scan(&rec.ID, &rec.RInChI, &rec.RAuxInfo, &rec.LongKey, &rec.ShortKey, &rec.WebKey, &rec.Direction,
		&rec.Placeholders[reaction.Reactants], &rec.Placeholders[reaction.Products], &rec.Placeholders[reaction.Agents],
		&rec.Source, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func collect(rows *sql.Rows) ([]*reaction.Record, error) {
	defer rows.Close()
	var out []*reaction.Record
	for rows.Next() {
		rec, err := scanReaction(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan reaction")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to read reactions")
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// prefixed qualifies each column of a comma-separated list with p.
func prefixed(p, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = p + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
