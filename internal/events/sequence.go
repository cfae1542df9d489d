package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type SequenceStore interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SequenceRepository hands out a monotonically increasing number per partition key.
type SequenceRepository struct {
	store SequenceStore
}

func NewSequenceRepository(store SequenceStore) *SequenceRepository {
	return &SequenceRepository{store: store}
}

func (r *SequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, errors.New("partition key is required")
	}

	var seq int64
	err := r.store.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, partitionKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
