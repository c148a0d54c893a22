package handler

import (
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/wild-series/internal/repository"
    "github.com/iliyamo/wild-series/internal/slug"
)

// categoryPageSize is how many programs a category page shows, newest first.
const categoryPageSize = 3

// BrowseHandler serves the anonymous catalog pages.  Lookups by name go
// through the slug helpers: hyphens in the URL stand for spaces in the
// stored title or category name, compared case-insensitively.
type BrowseHandler struct {
    Programs   ProgramStore
    Categories CategoryStore
    Seasons    SeasonStore
    Log        *logrus.Entry
}

// Index lists every program.  An empty catalog is a 404.
func (h *BrowseHandler) Index(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    programs, err := h.Programs.ListAll(ctx)
    if err != nil {
        h.Log.WithError(err).Error("list programs")
        return dbError(c)
    }
    if len(programs) == 0 {
        return notFound(c, "No program found in program's table.")
    }
    return c.JSON(http.StatusOK, echo.Map{"programs": public(programs...)})
}

// ShowBySlug resolves "breaking-bad" to the program titled "Breaking Bad".
func (h *BrowseHandler) ShowBySlug(c echo.Context) error {
    raw := c.Param("slug")
    if raw == "" || !slug.Valid(raw) {
        return notFound(c, "No slug has been sent to find a program in program's table.")
    }
    title := slug.Humanize(raw)

    ctx, cancel := storeCtx(c)
    defer cancel()

    p, err := h.Programs.GetByTitle(ctx, slug.LookupKey(raw))
    if err != nil {
        if errors.Is(err, repository.ErrProgramNotFound) {
            return notFound(c, fmt.Sprintf("No program with %s title, found in program's table.", title))
        }
        h.Log.WithError(err).Error("load program by title")
        return dbError(c)
    }
    return c.JSON(http.StatusOK, echo.Map{"program": public(p)[0], "slug": title})
}

// ShowByCategory returns the three most recent programs of a category.
func (h *BrowseHandler) ShowByCategory(c echo.Context) error {
    raw := c.Param("categoryName")
    if raw == "" || !slug.Valid(raw) {
        return notFound(c, "No category has been sent to find programs in program's table.")
    }
    name := slug.CleanParam(raw)

    ctx, cancel := storeCtx(c)
    defer cancel()

    cat, err := h.Categories.GetByName(ctx, strings.ToLower(name))
    if err != nil {
        if errors.Is(err, repository.ErrCategoryNotFound) {
            return notFound(c, fmt.Sprintf("No programs with %s category, found in category's table.", name))
        }
        h.Log.WithError(err).Error("load category")
        return dbError(c)
    }
    programs, err := h.Programs.ListByCategory(ctx, cat.ID, categoryPageSize, 0)
    if err != nil {
        h.Log.WithError(err).WithField("category_id", cat.ID).Error("list programs by category")
        return dbError(c)
    }
    return c.JSON(http.StatusOK, echo.Map{"category": cat, "programs": public(programs...)})
}

// ShowByProgram returns a program found by name along with its seasons.
func (h *BrowseHandler) ShowByProgram(c echo.Context) error {
    raw := c.Param("programName")
    if raw == "" || !slug.Valid(raw) {
        return notFound(c, "No program has been sent to find seasons in season's table")
    }
    name := slug.CleanParam(raw)

    ctx, cancel := storeCtx(c)
    defer cancel()

    p, err := h.Programs.GetByTitle(ctx, strings.ToLower(name))
    if err != nil {
        if errors.Is(err, repository.ErrProgramNotFound) {
            return notFound(c, fmt.Sprintf("No program with %s program, found in program's table.", name))
        }
        h.Log.WithError(err).Error("load program by title")
        return dbError(c)
    }
    seasons, err := h.Seasons.ListByProgram(ctx, p.ID)
    if err != nil {
        h.Log.WithError(err).WithField("program_id", p.ID).Error("list seasons")
        return dbError(c)
    }
    return c.JSON(http.StatusOK, echo.Map{"program": public(p)[0], "seasons": seasons})
}

// ShowBySeason returns a season, its program and its episodes.
func (h *BrowseHandler) ShowBySeason(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return notFound(c, "No id has been sent to find seasons in season's table")
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    season, err := h.Seasons.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrSeasonNotFound) {
            return notFound(c, fmt.Sprintf("No season with %d id, found in season's table.", id))
        }
        h.Log.WithError(err).Error("load season")
        return dbError(c)
    }
    p, err := h.Programs.GetByID(ctx, season.ProgramID)
    if err != nil {
        h.Log.WithError(err).WithField("season_id", id).Error("load season program")
        return dbError(c)
    }
    episodes, err := h.Seasons.ListEpisodes(ctx, id)
    if err != nil {
        h.Log.WithError(err).WithField("season_id", id).Error("list episodes")
        return dbError(c)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "program":  public(p)[0],
        "season":   season,
        "episodes": episodes,
    })
}
