package handler // handler defines http handlers

import (
    "context"  // context carries request deadlines into stores
    "errors"   // errors provides sentinel values used in actorID
    "net/http" // status codes
    "strconv"  // strconv converts path params to numeric ids
    "time"     // per-request store timeouts

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/wild-series/internal/model"
    "github.com/iliyamo/wild-series/internal/queue"
)

// The handlers depend on these narrow interfaces rather than on the
// repository structs so tests can substitute in-memory stores.

type ProgramStore interface {
    Create(ctx context.Context, p *model.Program) error
    Update(ctx context.Context, p *model.Program) error
    GetByID(ctx context.Context, id uint64) (*model.Program, error)
    GetBySlug(ctx context.Context, slug string) (*model.Program, error)
    GetByTitle(ctx context.Context, key string) (*model.Program, error)
    ListAll(ctx context.Context) ([]*model.Program, error)
    ListWithCategoryAndOwner(ctx context.Context) ([]*model.Program, error)
    ListByCategory(ctx context.Context, categoryID uint64, limit, offset int) ([]*model.Program, error)
    Delete(ctx context.Context, id uint64) error
}

type CategoryStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Category, error)
    GetByName(ctx context.Context, key string) (*model.Category, error)
    ListAll(ctx context.Context) ([]*model.Category, error)
}

type SeasonStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Season, error)
    ListByProgram(ctx context.Context, programID uint64) ([]*model.Season, error)
    ListEpisodes(ctx context.Context, seasonID uint64) ([]*model.Episode, error)
}

// WatchlistStore is implemented by repository.UserRepo.
type WatchlistStore interface {
    IsInWatchlist(ctx context.Context, userID, programID uint64) (bool, error)
    ToggleWatchlist(ctx context.Context, userID, programID uint64) (bool, error)
    ListWatchlist(ctx context.Context, userID uint64) ([]*model.Program, error)
}

// Notifier sends the "new program" email.
type Notifier interface {
    ProgramPublished(ctx context.Context, p *model.Program) error
}

// EventPublisher emits program.published; optional.
type EventPublisher interface {
    PublishProgramPublished(ctx context.Context, ev queue.ProgramPublishedEvent) error
}

// CachePurger drops cached browse responses after catalog writes.
type CachePurger interface {
    Purge(ctx context.Context) error
}

const storeTimeout = 5 * time.Second

func storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), storeTimeout)
}

var errNoActor = errors.New("invalid user_id in context")

// actorID extracts the user_id placed in the context by JWTAuth.
func actorID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        if t > 0 {
            return t, nil
        }
    case float64:
        if t > 0 {
            return uint64(t), nil
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
            return n, nil
        }
    }
    return 0, errNoActor
}

// parseID returns the numeric path parameter name, or false when it is
// missing, non-numeric or zero.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

func notFound(c echo.Context, msg string) error {
    return c.JSON(http.StatusNotFound, echo.Map{"error": msg})
}

func dbError(c echo.Context) error {
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// public hides the owner of programs served on anonymous routes.
func public(ps ...*model.Program) []*model.Program {
    out := make([]*model.Program, 0, len(ps))
    for _, p := range ps {
        cp := *p
        cp.OwnerID = nil
        cp.OwnerEmail = ""
        out = append(out, &cp)
    }
    return out
}
