// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish a missing row from a storage failure without
// inspecting driver errors.
package repository

import "errors"

var (
	// ErrProgramNotFound is returned when no program matches an id, slug or title.
	ErrProgramNotFound = errors.New("program not found")
	// ErrCategoryNotFound is returned when no category matches an id or name.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrSeasonNotFound is returned when a season id does not exist.
	ErrSeasonNotFound = errors.New("season not found")
	// ErrUserNotFound is returned when a user cannot be loaded.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists signals a duplicate key on users.email.
	ErrEmailExists = errors.New("email already exists")
)
