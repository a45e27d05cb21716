package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/record"
	"github.com/kalvix/mailrag/internal/source"
)

// Stats summarizes one rebuild.
type Stats struct {
	Total    int
	Rejected int
	Counts   map[record.SourceType]int
}

// Builder assembles snapshots from the record source. Document pages
// arrive with stored embeddings; mail and event records are embedded
// here. Records whose embedding dimensionality doesn't match the
// embedder's output size are rejected, never truncated or padded.
type Builder struct {
	source   source.Source
	embedder llm.Embedder
	store    *Store
}

// NewBuilder creates a Builder wired to the given source, embedder, and store.
func NewBuilder(src source.Source, embedder llm.Embedder, st *Store) *Builder {
	return &Builder{source: src, embedder: embedder, store: st}
}

// Rebuild loads the user's records, embeds the ones without vectors, and
// publishes a fresh snapshot. The previous snapshot stays visible until
// the new one is complete.
func (b *Builder) Rebuild(ctx context.Context, userID string) (Stats, error) {
	batch, err := b.source.Load(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("loading records for user %s: %w", userID, err)
	}

	records := batch.All()
	if err := b.embedMissing(ctx, records); err != nil {
		return Stats{}, err
	}

	accepted, rejected := b.validateDimensions(records)
	if rejected > 0 {
		slog.Warn("rejected records with mismatched embedding dimensions",
			"user_id", userID, "rejected", rejected, "expected_dim", b.embedder.Dimensions())
	}

	snap := NewSnapshot(userID, accepted)
	b.store.Publish(snap)

	slog.Info("record snapshot published",
		"user_id", userID, "records", len(accepted), "rejected", rejected)

	return Stats{Total: len(accepted), Rejected: rejected, Counts: snap.CountsByType()}, nil
}

// embedMissing fills in embeddings for records that arrived without one.
func (b *Builder) embedMissing(ctx context.Context, records []record.Record) error {
	var idx []int
	var texts []string
	for i, r := range records {
		if len(r.Embedding) == 0 {
			idx = append(idx, i)
			texts = append(texts, r.Content)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vecs, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d records: %w", len(texts), err)
	}
	for j, i := range idx {
		records[i].Embedding = vecs[j]
	}
	return nil
}

// validateDimensions splits records into those whose embedding matches the
// configured dimensionality and a count of rejected ones.
func (b *Builder) validateDimensions(records []record.Record) ([]record.Record, int) {
	want := b.embedder.Dimensions()
	accepted := make([]record.Record, 0, len(records))
	rejected := 0
	for _, r := range records {
		if len(r.Embedding) != want {
			rejected++
			continue
		}
		accepted = append(accepted, r)
	}
	return accepted, rejected
}
