package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/types"
)

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *PostgresDB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *PostgresDB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, user_id, alert_type, source, priority, status, title, message,
	keyword, context, predicted_impact, confidence, created_at, read_at, acted_at`

// AlertFilter narrows ListByUser results. Zero values mean no filter.
type AlertFilter struct {
	Status types.AlertStatus
	Type   types.AlertType
	Limit  int
}

// InsertBatch persists a batch of alerts in a single transaction. Either every
// alert in the batch lands or none does; a failure leaves the alert table
// untouched so the next evaluation pass can retry.
func (r *AlertRepository) InsertBatch(ctx context.Context, alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return errors.NewPersistenceFailureError("begin alert batch", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	query := `
		INSERT INTO alerts (id, user_id, alert_type, source, priority, status, title, message,
			keyword, context, predicted_impact, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	now := time.Now()
	for _, alert := range alerts {
		if alert.ID == "" {
			alert.ID = uuid.New().String()
		}
		if alert.Status == "" {
			alert.Status = types.StatusNew
		}
		if alert.CreatedAt.IsZero() {
			alert.CreatedAt = now
		}

		contextJSON, err := types.EncodeContext(alert.Context)
		if err != nil {
			return errors.NewPersistenceFailureError("encode alert context", err)
		}

		_, err = tx.Exec(ctx, query,
			alert.ID,
			alert.UserID,
			alert.AlertType,
			alert.Source,
			alert.Priority,
			alert.Status,
			alert.Title,
			alert.Message,
			alert.Keyword,
			contextJSON,
			alert.PredictedImpact,
			alert.Confidence,
			alert.CreatedAt,
		)
		if err != nil {
			return errors.NewPersistenceFailureError("insert alert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewPersistenceFailureError("commit alert batch", err)
	}
	return nil
}

// ListUnresolved retrieves the status=new alerts for a user created at or
// after since. The synthesizer deduplicates against this set. A zero since
// means no time bound.
func (r *AlertRepository) ListUnresolved(ctx context.Context, userID string, since time.Time) ([]*models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE user_id = $1 AND status = $2`, alertColumns)
	args := []interface{}{userID, types.StatusNew}

	if !since.IsZero() {
		query += ` AND created_at >= $3`
		args = append(args, since)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list unresolved alerts", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ListByUser retrieves a user's alerts, newest first, optionally filtered by
// status and type.
func (r *AlertRepository) ListByUser(ctx context.Context, userID string, filter AlertFilter) ([]*models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE user_id = $1`, alertColumns)
	args := []interface{}{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(` AND alert_type = $%d`, len(args))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list alerts", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByID retrieves an alert by ID.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE id = $1`, alertColumns)

	alert, err := scanAlert(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewNotFoundError("alert", id)
		}
		return nil, errors.NewPersistenceFailureError("get alert", err)
	}
	return alert, nil
}

// UpdateStatus moves an alert forward in its lifecycle, recording the
// transition timestamp. Alerts never go back to new.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id string, status types.AlertStatus) (*models.Alert, error) {
	if !types.ValidStatus(status) || status == types.StatusNew {
		return nil, errors.NewInvalidParameterError("status", string(status))
	}

	var query string
	switch status {
	case types.StatusRead:
		query = `UPDATE alerts SET status = $2, read_at = $3 WHERE id = $1`
	case types.StatusActed:
		query = `UPDATE alerts SET status = $2, acted_at = $3 WHERE id = $1`
	}

	result, err := r.db.Pool().Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return nil, errors.NewPersistenceFailureError("update alert status", err)
	}
	if result.RowsAffected() == 0 {
		return nil, errors.NewNotFoundError("alert", id)
	}

	return r.GetByID(ctx, id)
}

// Delete deletes an alert by ID.
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return errors.NewPersistenceFailureError("delete alert", err)
	}
	if result.RowsAffected() == 0 {
		return errors.NewNotFoundError("alert", id)
	}
	return nil
}

func scanAlerts(rows pgx.Rows) ([]*models.Alert, error) {
	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, errors.NewPersistenceFailureError("scan alert", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceFailureError("iterate alerts", err)
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var (
		alert       models.Alert
		contextJSON []byte
	)

	err := row.Scan(
		&alert.ID,
		&alert.UserID,
		&alert.AlertType,
		&alert.Source,
		&alert.Priority,
		&alert.Status,
		&alert.Title,
		&alert.Message,
		&alert.Keyword,
		&contextJSON,
		&alert.PredictedImpact,
		&alert.Confidence,
		&alert.CreatedAt,
		&alert.ReadAt,
		&alert.ActedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(contextJSON) > 0 {
		alertContext, err := types.DecodeContext(contextJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode alert context: %w", err)
		}
		alert.Context = alertContext
	}
	return &alert, nil
}
