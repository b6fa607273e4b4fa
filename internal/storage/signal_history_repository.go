package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/types"
)

// SignalObservation is one normalized external observation recorded for
// historical analysis. History is append-only and never read on the alert
// path; recording failures must not block evaluation.
type SignalObservation struct {
	ID         string
	Kind       types.SignalKind
	Subject    string // city, keyword, or country depending on kind
	Value      float64
	ObservedAt time.Time
	RecordedAt time.Time
}

// SignalHistoryRepository writes signal observations to ClickHouse.
type SignalHistoryRepository struct {
	db *ClickHouseDB
}

// NewSignalHistoryRepository creates a new signal history repository
func NewSignalHistoryRepository(db *ClickHouseDB) *SignalHistoryRepository {
	return &SignalHistoryRepository{db: db}
}

// RecordBatch appends a batch of observations. Batches are the unit of
// insertion because ClickHouse penalizes single-row writes.
func (r *SignalHistoryRepository) RecordBatch(ctx context.Context, observations []*SignalObservation) error {
	if len(observations) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO signal_history (id, kind, subject, value, observed_at, recorded_at)
	`)
	if err != nil {
		return errors.NewPersistenceFailureError("prepare signal batch", err)
	}

	now := time.Now()
	for _, obs := range observations {
		if obs.ID == "" {
			obs.ID = uuid.New().String()
		}
		if obs.RecordedAt.IsZero() {
			obs.RecordedAt = now
		}

		err := batch.Append(
			obs.ID,
			string(obs.Kind),
			obs.Subject,
			obs.Value,
			obs.ObservedAt,
			obs.RecordedAt,
		)
		if err != nil {
			return errors.NewPersistenceFailureError("append signal observation", err)
		}
	}

	if err := batch.Send(); err != nil {
		return errors.NewPersistenceFailureError("send signal batch", err)
	}
	return nil
}

// CountSince returns the number of observations of a kind recorded at or
// after since. Used by the history endpoint, not the alert path.
func (r *SignalHistoryRepository) CountSince(ctx context.Context, kind types.SignalKind, since time.Time) (uint64, error) {
	var count uint64
	err := r.db.Conn().QueryRow(ctx, `
		SELECT count() FROM signal_history WHERE kind = ? AND recorded_at >= ?
	`, string(kind), since).Scan(&count)
	if err != nil {
		return 0, errors.NewPersistenceFailureError("count signal history", err)
	}
	return count, nil
}
