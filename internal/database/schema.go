package database

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(16) NOT NULL DEFAULT 'USER',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaCategories = `
CREATE TABLE IF NOT EXISTS categories (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(100) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaPrograms = `
CREATE TABLE IF NOT EXISTS programs (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	slug VARCHAR(255) NOT NULL,
	summary VARCHAR(2000) NOT NULL DEFAULT '',
	poster VARCHAR(512) NOT NULL DEFAULT '',
	category_id BIGINT UNSIGNED NOT NULL,
	owner_id BIGINT UNSIGNED NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_programs_slug (slug),
	INDEX idx_programs_title (title),
	INDEX idx_programs_category (category_id, id),
	FOREIGN KEY (category_id) REFERENCES categories(id),
	FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaSeasons = `
CREATE TABLE IF NOT EXISTS seasons (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	program_id BIGINT UNSIGNED NOT NULL,
	number INT UNSIGNED NOT NULL,
	year INT UNSIGNED NOT NULL DEFAULT 0,
	description VARCHAR(2000) NOT NULL DEFAULT '',
	INDEX idx_seasons_program (program_id),
	FOREIGN KEY (program_id) REFERENCES programs(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaEpisodes = `
CREATE TABLE IF NOT EXISTS episodes (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	season_id BIGINT UNSIGNED NOT NULL,
	number INT UNSIGNED NOT NULL,
	title VARCHAR(255) NOT NULL,
	synopsis VARCHAR(2000) NOT NULL DEFAULT '',
	INDEX idx_episodes_season (season_id, number),
	FOREIGN KEY (season_id) REFERENCES seasons(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaWatchlist = `
CREATE TABLE IF NOT EXISTS watchlist (
	user_id BIGINT UNSIGNED NOT NULL,
	program_id BIGINT UNSIGNED NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, program_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (program_id) REFERENCES programs(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// schemaStatements lists the tables in dependency order.
var schemaStatements = []string{
	schemaUsers,
	schemaCategories,
	schemaPrograms,
	schemaSeasons,
	schemaEpisodes,
	schemaWatchlist,
}

// EnsureSchema creates missing tables.  It never alters existing ones;
// migrations of a live schema are handled outside this service.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
