package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresSource loads clause records from a Postgres catalog table,
// for deployments that maintain standards in a database instead of JSON
// files.
type PostgresSource struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresSource connects a pgx pool to the catalog database.
func NewPostgresSource(dsn string, logger *zap.Logger) (*PostgresSource, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("catalog postgres connected")
	return &PostgresSource{db: pool, logger: logger}, nil
}

// Load reads all clause rows and builds a validated snapshot. The concept
// table is optional; a missing table leaves expansion empty.
func (p *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, framework, reference, text, keywords, topic_tags
		FROM clauses
		ORDER BY framework, reference`)
	if err != nil {
		return nil, fmt.Errorf("query clauses: %w", err)
	}
	defer rows.Close()

	var records []ClauseRecord
	for rows.Next() {
		var r ClauseRecord
		if err := rows.Scan(&r.ID, &r.Framework, &r.Reference, &r.Text, &r.Keywords, &r.TopicTags); err != nil {
			return nil, fmt.Errorf("scan clause row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clauses: %w", err)
	}

	concepts, err := p.loadConcepts(ctx)
	if err != nil {
		p.logger.Warn("concept table unavailable, expansion disabled", zap.Error(err))
		concepts = nil
	}
	return NewSnapshot(records, concepts)
}

func (p *PostgresSource) loadConcepts(ctx context.Context) (map[string][]string, error) {
	rows, err := p.db.Query(ctx, `SELECT concept, synonyms FROM concepts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	concepts := make(map[string][]string)
	for rows.Next() {
		var concept string
		var synonyms []string
		if err := rows.Scan(&concept, &synonyms); err != nil {
			return nil, err
		}
		concepts[concept] = synonyms
	}
	return concepts, rows.Err()
}

// Close shuts down the connection pool.
func (p *PostgresSource) Close() {
	p.db.Close()
}
