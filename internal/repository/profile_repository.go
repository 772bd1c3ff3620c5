package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tenderspro/backend/internal/model"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	query := `SELECT * FROM profiles WHERE id = $1`
	err := r.db.GetContext(ctx, &profile, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return &profile, err
}

func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (id, email, selected_categories, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at`
	return r.db.QueryRowxContext(ctx, query,
		profile.ID, profile.Email, profile.SelectedCategories,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
}

// SetSelectedCategories stores the comma-joined category choices made
// at checkout so the post-payment flow can build the user's alert.
func (r *ProfileRepository) SetSelectedCategories(ctx context.Context, id uuid.UUID, categories string) error {
	query := `
		UPDATE profiles
		SET selected_categories = $2, updated_at = NOW()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, categories)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
