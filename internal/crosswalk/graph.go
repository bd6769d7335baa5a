// Package crosswalk maintains a graph of clauses across frameworks whose
// texts overlap enough to be treated as equivalents. The edges back the
// /map command and the crosswalk API; the matching engine itself never
// reads them.
package crosswalk

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/textnorm"
)

// Equivalent is a clause in another framework linked to a source clause.
type Equivalent struct {
	ClauseID  string  `json:"clause_id"`
	Framework string  `json:"framework"`
	Reference string  `json:"reference"`
	Overlap   float64 `json:"overlap"`
}

// Graph persists clause equivalence edges in Neo4j.
type Graph struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewGraph connects to Neo4j and verifies the connection.
func NewGraph(ctx context.Context, uri, username, password string, logger *zap.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Graph{driver: driver, logger: logger}, nil
}

// Rebuild scans the snapshot for cross-framework clause pairs whose
// token sets overlap above threshold and rewrites the edge set. Edges
// are stored once per unordered pair and traversed in both directions.
func (g *Graph) Rebuild(ctx context.Context, snap *catalog.Snapshot, threshold float64) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, `MATCH (:Clause)-[r:EQUIVALENT_TO]->(:Clause) DELETE r`, nil); err != nil {
		return fmt.Errorf("clear crosswalk edges: %w", err)
	}

	records := snap.Records()
	tokens := make([]map[string]bool, len(records))
	for i, rec := range records {
		tokens[i] = textnorm.TokenSet(rec.Text)
	}

	edges := 0
	for i := range records {
		for j := i + 1; j < len(records); j++ {
			if records[i].Framework == records[j].Framework {
				continue
			}
			overlap := jaccard(tokens[i], tokens[j])
			if overlap < threshold {
				continue
			}
			if err := g.link(ctx, session, records[i], records[j], overlap); err != nil {
				return err
			}
			edges++
		}
	}
	g.logger.Info("crosswalk rebuilt",
		zap.Int("clauses", len(records)),
		zap.Int("edges", edges),
		zap.Float64("threshold", threshold))
	return nil
}

func (g *Graph) link(ctx context.Context, session neo4j.SessionWithContext, a, b catalog.ClauseRecord, overlap float64) error {
	_, err := session.Run(ctx,
		`MERGE (a:Clause {id: $aId})
		 ON CREATE SET a.framework = $aFramework, a.reference = $aReference
		 MERGE (b:Clause {id: $bId})
		 ON CREATE SET b.framework = $bFramework, b.reference = $bReference
		 MERGE (a)-[r:EQUIVALENT_TO]->(b)
		 SET r.overlap = $overlap, r.updated_at = datetime()`,
		map[string]interface{}{
			"aId":        a.ID,
			"aFramework": a.Framework,
			"aReference": a.Reference,
			"bId":        b.ID,
			"bFramework": b.Framework,
			"bReference": b.Reference,
			"overlap":    overlap,
		})
	if err != nil {
		return fmt.Errorf("link %s to %s: %w", a.ID, b.ID, err)
	}
	return nil
}

// Equivalents returns the clauses linked to the given clause, best
// overlap first.
func (g *Graph) Equivalents(ctx context.Context, clauseID string) ([]Equivalent, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Clause {id: $id})-[r:EQUIVALENT_TO]-(b:Clause)
		 RETURN b.id, b.framework, b.reference, r.overlap
		 ORDER BY r.overlap DESC`,
		map[string]interface{}{"id": clauseID})
	if err != nil {
		return nil, fmt.Errorf("equivalents for %s: %w", clauseID, err)
	}

	var out []Equivalent
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("b.id")
		framework, _ := rec.Get("b.framework")
		reference, _ := rec.Get("b.reference")
		overlap, _ := rec.Get("r.overlap")

		eq := Equivalent{}
		if s, ok := id.(string); ok {
			eq.ClauseID = s
		}
		if s, ok := framework.(string); ok {
			eq.Framework = s
		}
		if s, ok := reference.(string); ok {
			eq.Reference = s
		}
		if f, ok := overlap.(float64); ok {
			eq.Overlap = f
		}
		out = append(out, eq)
	}
	return out, result.Err()
}

// Close shuts down the driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
