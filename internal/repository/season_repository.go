package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/wild-series/internal/model"
)

// SeasonRepo reads seasons and their episodes.
type SeasonRepo struct {
	db *sql.DB
}

func NewSeasonRepo(db *sql.DB) *SeasonRepo {
	return &SeasonRepo{db: db}
}

// GetByID fetches a season by primary key or returns ErrSeasonNotFound.
func (r *SeasonRepo) GetByID(ctx context.Context, id uint64) (*model.Season, error) {
	const q = `SELECT id, program_id, number, year, description FROM seasons WHERE id = ?`
	var s model.Season
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.ProgramID, &s.Number, &s.Year, &s.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByProgram returns every season of a program in storage order.
func (r *SeasonRepo) ListByProgram(ctx context.Context, programID uint64) ([]*model.Season, error) {
	const q = `SELECT id, program_id, number, year, description FROM seasons WHERE program_id = ?`
	rows, err := r.db.QueryContext(ctx, q, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Season{}
	for rows.Next() {
		s := new(model.Season)
		if err := rows.Scan(&s.ID, &s.ProgramID, &s.Number, &s.Year, &s.Description); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEpisodes returns the episodes of a season ordered by episode number.
func (r *SeasonRepo) ListEpisodes(ctx context.Context, seasonID uint64) ([]*model.Episode, error) {
	const q = `SELECT id, season_id, number, title, synopsis FROM episodes WHERE season_id = ? ORDER BY number, id`
	rows, err := r.db.QueryContext(ctx, q, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Episode{}
	for rows.Next() {
		e := new(model.Episode)
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.Number, &e.Title, &e.Synopsis); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
