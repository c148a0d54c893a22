package model

import "time"

// Program represents one series of the catalog as stored in the
// `programs` table.  Slug is derived from Title whenever the program is
// created or edited.  CategoryName and OwnerEmail are filled by queries
// that join the related tables and are empty otherwise.
//
// Fields:
//  ID           – primary key identifier.
//  Title        – display name, expected to be unique.
//  Slug         – URL-safe token derived from Title.
//  Summary      – free text synopsis.
//  Poster       – URL of the poster image (may be empty).
//  CategoryID   – category the program belongs to.
//  OwnerID      – user who published the program (nil when unknown).
//  CreatedAt    – timestamp of creation.
type Program struct {
    ID           uint64    `json:"id"`
    Title        string    `json:"title"`
    Slug         string    `json:"slug"`
    Summary      string    `json:"summary"`
    Poster       string    `json:"poster,omitempty"`
    CategoryID   uint64    `json:"category_id"`
    CategoryName string    `json:"category,omitempty"`
    OwnerID      *uint64   `json:"owner_id,omitempty"`
    OwnerEmail   string    `json:"owner,omitempty"`
    CreatedAt    time.Time `json:"created_at"`
}

// Category groups programs by genre.  Programs reference exactly one category.
type Category struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
}
