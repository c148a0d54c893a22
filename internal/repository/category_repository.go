package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/wild-series/internal/model"
)

// CategoryRepo reads the categories table.  Categories are managed outside
// of this service so there are no write methods.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// GetByID returns ErrCategoryNotFound when the id does not exist.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	return r.getOne(ctx, "SELECT id, name FROM categories WHERE id = ? LIMIT 1", id)
}

// GetByName matches the lower-cased category name exactly.
func (r *CategoryRepo) GetByName(ctx context.Context, key string) (*model.Category, error) {
	return r.getOne(ctx, "SELECT id, name FROM categories WHERE LOWER(name) = ? LIMIT 1", key)
}

func (r *CategoryRepo) getOne(ctx context.Context, q string, arg any) (*model.Category, error) {
	var c model.Category
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(&c.ID, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListAll returns all categories ordered by name, used to fill the program form.
func (r *CategoryRepo) ListAll(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Category{}
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
