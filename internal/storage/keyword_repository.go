package storage

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/models"
)

// KeywordRepository handles tracked keyword persistence
type KeywordRepository struct {
	db *PostgresDB
}

// NewKeywordRepository creates a new keyword repository
func NewKeywordRepository(db *PostgresDB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// Create creates a tracked keyword for a user. Keywords are unique per
// (user, keyword); a duplicate returns a conflict error.
func (r *KeywordRepository) Create(ctx context.Context, kw *models.TrackedKeyword) error {
	if kw.ID == "" {
		kw.ID = uuid.New().String()
	}
	kw.CreatedAt = time.Now()

	query := `
		INSERT INTO tracked_keywords (id, user_id, keyword, category, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		kw.ID,
		kw.UserID,
		kw.Keyword,
		kw.Category,
		kw.IsActive,
		kw.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.NewConflictError("keyword already tracked: " + kw.Keyword)
		}
		return errors.NewPersistenceFailureError("create keyword", err)
	}

	return nil
}

// ListByUser retrieves the active tracked keywords for a user.
func (r *KeywordRepository) ListByUser(ctx context.Context, userID string) ([]*models.TrackedKeyword, error) {
	query := `
		SELECT id, user_id, keyword, category, is_active, created_at
		FROM tracked_keywords
		WHERE user_id = $1 AND is_active
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list keywords", err)
	}
	defer rows.Close()

	var keywords []*models.TrackedKeyword
	for rows.Next() {
		var kw models.TrackedKeyword
		err := rows.Scan(&kw.ID, &kw.UserID, &kw.Keyword, &kw.Category, &kw.IsActive, &kw.CreatedAt)
		if err != nil {
			return nil, errors.NewPersistenceFailureError("scan keyword", err)
		}
		keywords = append(keywords, &kw)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceFailureError("iterate keywords", err)
	}
	return keywords, nil
}

// GetByID retrieves a tracked keyword by ID.
func (r *KeywordRepository) GetByID(ctx context.Context, id string) (*models.TrackedKeyword, error) {
	query := `
		SELECT id, user_id, keyword, category, is_active, created_at
		FROM tracked_keywords
		WHERE id = $1
	`

	var kw models.TrackedKeyword
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&kw.ID, &kw.UserID, &kw.Keyword, &kw.Category, &kw.IsActive, &kw.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewNotFoundError("keyword", id)
		}
		return nil, errors.NewPersistenceFailureError("get keyword", err)
	}
	return &kw, nil
}

// Delete deletes a tracked keyword by ID.
func (r *KeywordRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM tracked_keywords WHERE id = $1`, id)
	if err != nil {
		return errors.NewPersistenceFailureError("delete keyword", err)
	}
	if result.RowsAffected() == 0 {
		return errors.NewNotFoundError("keyword", id)
	}
	return nil
}
