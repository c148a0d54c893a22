package model

import "time"

// Roles accepted in the users.role column.
const (
    RoleAdmin = "ADMIN"
    RoleUser  = "USER"
)

// User represents an application user record as stored in the
// `users` table.  The watchlist is kept in the `watchlist` join table and
// is only reachable through the repository, never through this struct.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or USER.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
}
