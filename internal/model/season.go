package model

// Season belongs to a single program and has no meaning without it.
type Season struct {
    ID          uint64 `json:"id"`
    ProgramID   uint64 `json:"program_id"`
    Number      uint32 `json:"number"`
    Year        uint32 `json:"year,omitempty"`
    Description string `json:"description,omitempty"`
}

// Episode is a row of the `episodes` table linked to a season.
type Episode struct {
    ID       uint64 `json:"id"`
    SeasonID uint64 `json:"season_id"`
    Number   uint32 `json:"number"`
    Title    string `json:"title"`
    Synopsis string `json:"synopsis,omitempty"`
}
