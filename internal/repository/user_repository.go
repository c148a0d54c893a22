package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/wild-series/internal/model"
	"github.com/iliyamo/wild-series/internal/utils"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT id,email,password_hash,role,created_at FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT id,email,password_hash,role,created_at FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// IsInWatchlist reports whether the user saved the program.
func (r *UserRepo) IsInWatchlist(ctx context.Context, userID, programID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM watchlist WHERE user_id=? AND program_id=? LIMIT 1",
		userID, programID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ToggleWatchlist removes the program from the user's watchlist when it is
// present and adds it otherwise.  The check and the write share one
// transaction; concurrent toggles of the same pair are not serialized.
// The returned flag is the membership after the toggle.
func (r *UserRepo) ToggleWatchlist(ctx context.Context, userID, programID uint64) (inWatchlist bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM watchlist WHERE user_id=? AND program_id=? LIMIT 1",
		userID, programID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO watchlist (user_id, program_id) VALUES (?,?)", userID, programID); err != nil {
			return false, fmt.Errorf("add to watchlist: %w", err)
		}
		inWatchlist = true
	case err != nil:
		return false, err
	default:
		if _, err = tx.ExecContext(ctx,
			"DELETE FROM watchlist WHERE user_id=? AND program_id=?", userID, programID); err != nil {
			return false, fmt.Errorf("remove from watchlist: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return inWatchlist, nil
}

// ListWatchlist returns the programs saved by a user, most recently added first.
func (r *UserRepo) ListWatchlist(ctx context.Context, userID uint64) ([]*model.Program, error) {
	q := selectProgram + ` JOIN watchlist w ON w.program_id = p.id
	 WHERE w.user_id = ? ORDER BY w.created_at DESC, p.id DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID)
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
