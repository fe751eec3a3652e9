// Package repositories holds the Cypher behind the reaction network.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	driver "github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/neo4j"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const maxSuccessors = 200

// Relationship types, one per role.
var relTypes = [reaction.NumGroups]string{
	reaction.Reactants: "REACTANT_OF",
	reaction.Products:  "PRODUCT_OF",
	reaction.Agents:    "AGENT_OF",
}

var schemaStatements = []string{
	`CREATE CONSTRAINT reaction_long_key IF NOT EXISTS FOR (r:Reaction) REQUIRE r.long_key IS UNIQUE`,
	`CREATE CONSTRAINT molecule_inchikey IF NOT EXISTS FOR (m:Molecule) REQUIRE m.inchikey IS UNIQUE`,
}

const (
	mergeReactionCypher = `
		MERGE (r:Reaction {long_key: $longKey})
		SET r.rinchi = $rinchi, r.short_key = $shortKey, r.web_key = $webKey,
			r.direction = $direction, r.updated_at = datetime()`

	clearEdgesCypher = `
		MATCH (:Molecule)-[e]->(:Reaction {long_key: $longKey})
		DELETE e`

	// %s is a relationship type from relTypes.
	linkCypher = `
		MATCH (r:Reaction {long_key: $longKey})
		UNWIND $components AS c
		MERGE (m:Molecule {inchikey: c.inchikey})
		ON CREATE SET m.inchi = c.inchi
		MERGE (m)-[e:%s]->(r)
		SET e.position = c.position`

	participationsCypher = `
		MATCH (:Molecule {inchikey: $inchiKey})-[e]->(r:Reaction)
		RETURN r.long_key AS long_key, r.web_key AS web_key, type(e) AS rel
		ORDER BY long_key, rel`

	successorsCypher = `
		MATCH (:Reaction {long_key: $longKey})<-[:PRODUCT_OF]-(:Molecule)-[:REACTANT_OF]->(next:Reaction)
		WHERE next.long_key <> $longKey
		RETURN DISTINCT next.long_key AS long_key
		ORDER BY long_key
		LIMIT $limit`

	removeCypher = `
		MATCH (r:Reaction {long_key: $longKey})
		OPTIONAL MATCH (m:Molecule)-->(r)
		WITH r, collect(DISTINCT m) AS molecules
		DETACH DELETE r
		WITH molecules
		UNWIND molecules AS m
		WITH m WHERE NOT (m)--()
		DELETE m`
)

type neo4jNetworkRepo struct {
	driver  driver.DriverInterface
	log     logging.Logger
	metrics *prometheus.AppMetrics
}

// NewNetworkRepository returns the Neo4j projection of the registry.
func NewNetworkRepository(d driver.DriverInterface, log logging.Logger, m *prometheus.AppMetrics) reaction.Network {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if m == nil {
		m = prometheus.NewNopMetrics()
	}
	return &neo4jNetworkRepo{driver: d, log: log, metrics: m}
}

// EnsureSchema creates the uniqueness constraints the MERGE statements
// rely on. It is safe to call repeatedly.
func EnsureSchema(ctx context.Context, d driver.DriverInterface) error {
	_, err := d.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		for _, stmt := range schemaStatements {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (r *neo4jNetworkRepo) observe(op string, start time.Time, err error) {
	prometheus.RecordDBQuery(r.metrics, "neo4j", op, time.Since(start), err)
	if err != nil {
		r.log.Error("graph query failed", logging.String("op", op), logging.Error(err))
	}
}

func (r *neo4jNetworkRepo) Project(ctx context.Context, rec *reaction.Record) (err error) {
	defer func(start time.Time) { r.observe("network_project", start, err) }(time.Now())

	if rec == nil || rec.LongKey == "" {
		return errors.InvalidParam("reaction has no long key")
	}
	var byRole [reaction.NumGroups][]map[string]any
	for _, c := range rec.Components {
		if c.InChIKey == "" || int(c.Role) >= reaction.NumGroups {
			continue
		}
		byRole[c.Role] = append(byRole[c.Role], map[string]any{
			"inchikey": c.InChIKey,
			"inchi":    c.InChI,
			"position": c.Position,
		})
	}

	_, err = r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		params := map[string]any{
			"longKey":   rec.LongKey,
			"rinchi":    rec.RInChI,
			"shortKey":  rec.ShortKey,
			"webKey":    rec.WebKey,
			"direction": rec.Direction,
		}
		if _, err := tx.Run(ctx, mergeReactionCypher, params); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, clearEdgesCypher, map[string]any{"longKey": rec.LongKey}); err != nil {
			return nil, err
		}
		for role, comps := range byRole {
			if len(comps) == 0 {
				continue
			}
			q := fmt.Sprintf(linkCypher, relTypes[role])
			if _, err := tx.Run(ctx, q, map[string]any{"longKey": rec.LongKey, "components": comps}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (r *neo4jNetworkRepo) Participations(ctx context.Context, inchiKey string) (out []reaction.Participation, err error) {
	defer func(start time.Time) { r.observe("network_participations", start, err) }(time.Now())

	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, participationsCypher, map[string]any{"inchiKey": inchiKey})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, toParticipation)
	})
	if err != nil {
		return nil, err
	}
	out, _ = res.([]reaction.Participation)
	return out, nil
}

func toParticipation(rec *neo4j.Record) (reaction.Participation, error) {
	var p reaction.Participation
	var err error
	if p.LongKey, err = driver.StringValue(rec, "long_key"); err != nil {
		return p, err
	}
	if p.WebKey, err = driver.StringValue(rec, "web_key"); err != nil {
		return p, err
	}
	rel, err := driver.StringValue(rec, "rel")
	if err != nil {
		return p, err
	}
	for role, t := range relTypes {
		if t == rel {
			p.Role = reaction.Role(role)
			return p, nil
		}
	}
	return p, errors.Newf(errors.ErrCodeGraphError, "unknown relationship type %q", rel)
}

func (r *neo4jNetworkRepo) Successors(ctx context.Context, longKey string, limit int) (out []string, err error) {
	defer func(start time.Time) { r.observe("network_successors", start, err) }(time.Now())

	if limit <= 0 || limit > maxSuccessors {
		limit = maxSuccessors
	}
	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, successorsCypher, map[string]any{"longKey": longKey, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (string, error) {
			return driver.StringValue(rec, "long_key")
		})
	})
	if err != nil {
		return nil, err
	}
	out, _ = res.([]string)
	return out, nil
}

// Remove deletes the reaction node and any molecule left without edges.
// Removing an unknown reaction is not an error.
func (r *neo4jNetworkRepo) Remove(ctx context.Context, longKey string) (err error) {
	defer func(start time.Time) { r.observe("network_remove", start, err) }(time.Now())

	_, err = r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		_, err := tx.Run(ctx, removeCypher, map[string]any{"longKey": longKey})
		return nil, err
	})
	return err
}
