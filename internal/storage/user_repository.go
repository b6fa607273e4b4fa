package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/models"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, business_name, is_active, market_categories,
	location_city, location_state, location_country, created_at, updated_at`

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	categoriesJSON, err := json.Marshal(user.MarketCategories)
	if err != nil {
		return fmt.Errorf("failed to marshal market categories: %w", err)
	}

	query := `
		INSERT INTO users (id, email, business_name, is_active, market_categories,
			location_city, location_state, location_country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		user.ID,
		user.Email,
		user.BusinessName,
		user.IsActive,
		categoriesJSON,
		user.LocationCity,
		user.LocationState,
		user.LocationCountry,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return errors.NewPersistenceFailureError("create user", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewNotFoundError("user", id)
		}
		return nil, errors.NewPersistenceFailureError("get user", err)
	}
	return user, nil
}

// ListActive retrieves all active users ordered by creation time. The
// scheduler iterates this set each evaluation pass.
func (r *UserRepository) ListActive(ctx context.Context) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE is_active ORDER BY created_at`, userColumns)

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list active users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.NewPersistenceFailureError("scan user", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceFailureError("iterate users", err)
	}
	return users, nil
}

// List retrieves users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, userColumns)

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.NewPersistenceFailureError("scan user", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceFailureError("iterate users", err)
	}
	return users, nil
}

// Delete deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.NewPersistenceFailureError("delete user", err)
	}
	if result.RowsAffected() == 0 {
		return errors.NewNotFoundError("user", id)
	}
	return nil
}

// scanUser scans one user row, decoding the market categories JSON.
func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user           models.User
		categoriesJSON []byte
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.BusinessName,
		&user.IsActive,
		&categoriesJSON,
		&user.LocationCity,
		&user.LocationState,
		&user.LocationCountry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &user.MarketCategories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal market categories: %w", err)
		}
	}
	return &user, nil
}
