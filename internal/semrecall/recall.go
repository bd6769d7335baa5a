package semrecall

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/catalog"
)

// Recall indexes clause texts as vectors and answers nearest-neighbor
// lookups. It is the fallback path for queries the lexical engine cannot
// retrieve anything for; the engine itself never calls into it.
type Recall struct {
	embedder *Embedder
	store    *VectorStore
	logger   *zap.Logger
}

// NewRecall wires the embedder and vector store together.
func NewRecall(embedder *Embedder, store *VectorStore, logger *zap.Logger) *Recall {
	return &Recall{embedder: embedder, store: store, logger: logger}
}

// IndexSnapshot embeds every clause in the snapshot and upserts the
// points. Points are keyed by a UUID derived from the clause id so
// re-indexing overwrites instead of duplicating.
func (r *Recall) IndexSnapshot(ctx context.Context, snap *catalog.Snapshot) error {
	if err := r.store.EnsureCollection(ctx, uint64(r.embedder.Dimension())); err != nil {
		return err
	}
	for _, clause := range snap.Records() {
		vector, err := r.embedder.Embed(ctx, clause.Text)
		if err != nil {
			return fmt.Errorf("embed clause %s: %w", clause.ID, err)
		}
		pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(clause.ID)).String()
		payload := map[string]string{
			"clause_id": clause.ID,
			"framework": clause.Framework,
			"reference": clause.Reference,
		}
		if err := r.store.Upsert(ctx, pointID, vector, payload); err != nil {
			return fmt.Errorf("upsert clause %s: %w", clause.ID, err)
		}
	}
	r.logger.Info("indexed clause vectors", zap.Int("count", snap.Len()))
	return nil
}

// Fallback embeds the raw query and returns the nearest clause hits.
func (r *Recall) Fallback(ctx context.Context, query string, topK int) ([]Hit, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.store.Search(ctx, vector, uint64(topK))
}

// Close releases the vector store connection.
func (r *Recall) Close() error {
	return r.store.Close()
}
