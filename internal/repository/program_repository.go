// Package repository contains data access logic separated from HTTP handlers.
// This file holds the queries for programs.  Every read joins the category
// name and the owner's email so callers never need a second round trip.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/wild-series/internal/model"
)

const selectProgram = `SELECT p.id, p.title, p.slug, p.summary, p.poster, p.category_id,
	       c.name, p.owner_id, COALESCE(u.email, ''), p.created_at
	  FROM programs p
	  JOIN categories c ON c.id = p.category_id
	  LEFT JOIN users u ON u.id = p.owner_id`

// ProgramRepo encapsulates all database queries related to programs.
type ProgramRepo struct {
	db *sql.DB
}

// NewProgramRepo constructs a ProgramRepo with the provided DB handle.
func NewProgramRepo(db *sql.DB) *ProgramRepo {
	return &ProgramRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(s rowScanner) (*model.Program, error) {
	var (
		p     model.Program
		owner sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Slug, &p.Summary, &p.Poster, &p.CategoryID,
		&p.CategoryName, &owner, &p.OwnerEmail, &p.CreatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		id := uint64(owner.Int64)
		p.OwnerID = &id
	}
	return &p, nil
}

func (r *ProgramRepo) getOne(ctx context.Context, where string, arg any) (*model.Program, error) {
	p, err := scanProgram(r.db.QueryRowContext(ctx, selectProgram+" WHERE "+where+" LIMIT 1", arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *ProgramRepo) list(ctx context.Context, query string, args ...any) ([]*model.Program, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new program.  On success the ID and CreatedAt fields are
// populated from the database.
func (r *ProgramRepo) Create(ctx context.Context, p *model.Program) error {
	const q = `INSERT INTO programs (title, slug, summary, poster, category_id, owner_id)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Title, p.Slug, p.Summary, p.Poster, p.CategoryID, p.OwnerID)
	if err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	if err := r.db.QueryRowContext(ctx, "SELECT created_at FROM programs WHERE id = ?", p.ID).Scan(&p.CreatedAt); err != nil {
		return err
	}
	return nil
}

// Update writes the editable columns of an existing program.  MySQL
// reports zero affected rows when nothing changed, so the row count is not
// used to detect a missing program; callers load the program first.
func (r *ProgramRepo) Update(ctx context.Context, p *model.Program) error {
	const q = `UPDATE programs
	           SET title = ?, slug = ?, summary = ?, poster = ?, category_id = ?
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, p.Title, p.Slug, p.Summary, p.Poster, p.CategoryID, p.ID); err != nil {
		return fmt.Errorf("update program %d: %w", p.ID, err)
	}
	return nil
}

// GetByID fetches a program by primary key.
func (r *ProgramRepo) GetByID(ctx context.Context, id uint64) (*model.Program, error) {
	return r.getOne(ctx, "p.id = ?", id)
}

// GetBySlug fetches a program by its stored slug.
func (r *ProgramRepo) GetBySlug(ctx context.Context, slug string) (*model.Program, error) {
	return r.getOne(ctx, "p.slug = ?", slug)
}

// GetByTitle fetches a program whose lower-cased title equals key.  The key
// is expected to be lower case already.
func (r *ProgramRepo) GetByTitle(ctx context.Context, key string) (*model.Program, error) {
	return r.getOne(ctx, "LOWER(p.title) = ?", key)
}

// ListAll returns every program ordered by id.  It never returns nil so an
// empty table yields an empty slice.
func (r *ProgramRepo) ListAll(ctx context.Context) ([]*model.Program, error) {
	return r.list(ctx, selectProgram+" ORDER BY p.id")
}

// ListWithCategoryAndOwner returns every program for the admin listing,
// newest first.
func (r *ProgramRepo) ListWithCategoryAndOwner(ctx context.Context) ([]*model.Program, error) {
	return r.list(ctx, selectProgram+" ORDER BY p.id DESC")
}

// ListByCategory returns programs of a category ordered by descending id
// with the given window.
func (r *ProgramRepo) ListByCategory(ctx context.Context, categoryID uint64, limit, offset int) ([]*model.Program, error) {
	return r.list(ctx, selectProgram+" WHERE p.category_id = ? ORDER BY p.id DESC LIMIT ? OFFSET ?",
		categoryID, limit, offset)
}

// Delete removes a program together with its watchlist entries, its
// seasons and their episodes.  Everything happens in one transaction.
// ErrProgramNotFound is returned when the program row does not exist.
func (r *ProgramRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM watchlist WHERE program_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE e FROM episodes e
		 JOIN seasons s ON s.id = e.season_id
		 WHERE s.program_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM seasons WHERE program_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrProgramNotFound
		return err
	}
	return nil
}
