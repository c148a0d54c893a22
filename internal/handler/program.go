package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/wild-series/internal/csrf"
    "github.com/iliyamo/wild-series/internal/flash"
    "github.com/iliyamo/wild-series/internal/metrics"
    "github.com/iliyamo/wild-series/internal/model"
    "github.com/iliyamo/wild-series/internal/queue"
    "github.com/iliyamo/wild-series/internal/repository"
    "github.com/iliyamo/wild-series/internal/slug"
)

const (
    msgAdded    = "Program added successfully"
    msgModified = "Program modified successfully"
    msgDeleted  = "Program deleted successfully"

    listPath = "/program/"
)

// CatalogHandler serves the administrative program pages.  Every route
// except the watchlist ones is mounted behind RequireRole(ADMIN).
type CatalogHandler struct {
    Programs   ProgramStore
    Categories CategoryStore
    Seasons    SeasonStore
    Watchlist  WatchlistStore
    Mailer     Notifier
    Events     EventPublisher // nil when no broker is configured
    Cache      CachePurger    // nil disables purging
    CSRF       *csrf.Manager
    Metrics    *metrics.Metrics // nil disables workflow counters
    Log        *logrus.Entry
}

// programForm is the editable subset of a program.  It binds from either
// form posts or JSON bodies.
type programForm struct {
    Title      string `json:"title" form:"title" validate:"required,max=255"`
    Summary    string `json:"summary" form:"summary" validate:"max=2000"`
    Poster     string `json:"poster" form:"poster" validate:"omitempty,url,max=255"`
    CategoryID uint64 `json:"category_id" form:"category_id" validate:"required"`
}

func formOf(p *model.Program) programForm {
    return programForm{Title: p.Title, Summary: p.Summary, Poster: p.Poster, CategoryID: p.CategoryID}
}

// formView is returned by New/Edit and by failed submissions.
type formView struct {
    Program    programForm       `json:"program"`
    Slug       string            `json:"slug,omitempty"`
    Categories []*model.Category `json:"categories"`
    Errors     map[string]string `json:"errors,omitempty"`
}

// List returns every program with its category and owner, newest first,
// together with the flash messages left by the previous request.
func (h *CatalogHandler) List(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    programs, err := h.Programs.ListWithCategoryAndOwner(ctx)
    if err != nil {
        h.Log.WithError(err).Error("list programs")
        return dbError(c)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "programs": programs,
        "flashes":  flash.Pop(c),
    })
}

// New returns an empty form.
func (h *CatalogHandler) New(c echo.Context) error {
    return h.renderForm(c, http.StatusOK, programForm{}, "", nil)
}

// Create validates the submitted form, persists the program, then sends
// the notification email.  The program is stored before the email is
// attempted and is not removed if sending fails.
func (h *CatalogHandler) Create(c echo.Context) error {
    uid, err := actorID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }

    form, cat, errs := h.readForm(c)
    if errs != nil {
        return h.renderForm(c, http.StatusOK, form, "", errs)
    }

    p := &model.Program{
        Title:        form.Title,
        Slug:         slug.Generate(form.Title),
        Summary:      form.Summary,
        Poster:       form.Poster,
        CategoryID:   cat.ID,
        CategoryName: cat.Name,
        OwnerID:      &uid,
    }

    ctx, cancel := storeCtx(c)
    defer cancel()
    err = h.Programs.Create(ctx, p)
    h.Metrics.Observe("program_created", err)
    if err != nil {
        h.Log.WithError(err).Error("create program")
        return dbError(c)
    }
    h.purge(c)

    log := h.Log.WithFields(logrus.Fields{"program_id": p.ID, "slug": p.Slug})
    err = h.Mailer.ProgramPublished(c.Request().Context(), p)
    h.Metrics.Observe("notification_email", err)
    if err != nil {
        log.WithError(err).Error("notification email failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "notification failed"})
    }
    log.Info("program published")
    h.publish(c, p, uid)

    flash.Add(c, "success", msgAdded)
    return c.Redirect(http.StatusSeeOther, listPath)
}

// Show returns one program by slug with its seasons and the token the
// delete form must send back.
func (h *CatalogHandler) Show(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    p, err := h.Programs.GetBySlug(ctx, c.Param("slug"))
    if err != nil {
        return h.lookupError(c, err)
    }
    seasons, err := h.Seasons.ListByProgram(ctx, p.ID)
    if err != nil {
        h.Log.WithError(err).Error("list seasons")
        return dbError(c)
    }

    resp := echo.Map{"program": p, "seasons": seasons}
    if uid, err := actorID(c); err == nil {
        resp["delete_token"] = h.CSRF.Token(uid, deleteIntention(p.ID))
        in, err := h.Watchlist.IsInWatchlist(ctx, uid, p.ID)
        if err != nil {
            h.Log.WithError(err).Error("watchlist lookup")
            return dbError(c)
        }
        resp["isInWatchlist"] = in
    }
    return c.JSON(http.StatusOK, resp)
}

// Edit returns the form prefilled with the stored program.
func (h *CatalogHandler) Edit(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    p, err := h.Programs.GetBySlug(ctx, c.Param("slug"))
    if err != nil {
        return h.lookupError(c, err)
    }
    return h.renderForm(c, http.StatusOK, formOf(p), p.Slug, nil)
}

// Update applies a valid form to an existing program.  The slug is derived
// again from the title so a rename moves the program to a new URL.
func (h *CatalogHandler) Update(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    p, err := h.Programs.GetBySlug(ctx, c.Param("slug"))
    if err != nil {
        return h.lookupError(c, err)
    }

    form, cat, errs := h.readForm(c)
    if errs != nil {
        return h.renderForm(c, http.StatusOK, form, p.Slug, errs)
    }

    p.Title = form.Title
    p.Slug = slug.Generate(form.Title)
    p.Summary = form.Summary
    p.Poster = form.Poster
    p.CategoryID = cat.ID
    p.CategoryName = cat.Name
    if err := h.Programs.Update(ctx, p); err != nil {
        h.Log.WithError(err).WithField("program_id", p.ID).Error("update program")
        return dbError(c)
    }
    h.purge(c)

    flash.Add(c, "success", msgModified)
    return c.Redirect(http.StatusSeeOther, listPath)
}

// Delete removes the program when _token matches "delete<id>" for the
// current actor.  A bad token is ignored and the client is still sent
// back to the list.
func (h *CatalogHandler) Delete(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return notFound(c, "program not found")
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    if _, err := h.Programs.GetByID(ctx, id); err != nil {
        return h.lookupError(c, err)
    }

    // net/http only parses POST/PUT/PATCH bodies, so a plain DELETE
    // carries the token in a header instead.
    token := c.FormValue("_token")
    if token == "" {
        token = c.Request().Header.Get("X-CSRF-Token")
    }
    uid, _ := actorID(c)
    if h.CSRF.Valid(uid, deleteIntention(id), token) {
        if err := h.Programs.Delete(ctx, id); err != nil {
            if errors.Is(err, repository.ErrProgramNotFound) {
                return notFound(c, "program not found")
            }
            h.Log.WithError(err).WithField("program_id", id).Error("delete program")
            return dbError(c)
        }
        h.purge(c)
        flash.Add(c, "danger", msgDeleted)
    } else {
        h.Log.WithField("program_id", id).Warn("delete rejected: invalid csrf token")
    }
    return c.Redirect(http.StatusSeeOther, listPath)
}

// ToggleWatchlist adds the program to the actor's watchlist, or removes it
// when already present.
func (h *CatalogHandler) ToggleWatchlist(c echo.Context) error {
    uid, err := actorID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }
    id, ok := parseID(c, "id")
    if !ok {
        return notFound(c, "program not found")
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    if _, err := h.Programs.GetByID(ctx, id); err != nil {
        return h.lookupError(c, err)
    }
    in, err := h.Watchlist.ToggleWatchlist(ctx, uid, id)
    if err != nil {
        h.Log.WithError(err).Error("toggle watchlist")
        return dbError(c)
    }
    return c.JSON(http.StatusOK, echo.Map{"isInWatchlist": in})
}

// MyWatchlist lists the actor's watchlisted programs.
func (h *CatalogHandler) MyWatchlist(c echo.Context) error {
    uid, err := actorID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }
    ctx, cancel := storeCtx(c)
    defer cancel()

    programs, err := h.Watchlist.ListWatchlist(ctx, uid)
    if err != nil {
        h.Log.WithError(err).Error("list watchlist")
        return dbError(c)
    }
    return c.JSON(http.StatusOK, echo.Map{"programs": programs})
}

// readForm binds and validates the request body.  errs is nil on success,
// in which case cat is the selected category.
func (h *CatalogHandler) readForm(c echo.Context) (programForm, *model.Category, map[string]string) {
    var form programForm
    if err := c.Bind(&form); err != nil {
        return form, nil, map[string]string{"_form": "Invalid form submission."}
    }
    form.Title = strings.TrimSpace(form.Title)
    form.Summary = strings.TrimSpace(form.Summary)
    form.Poster = strings.TrimSpace(form.Poster)

    if err := c.Validate(&form); err != nil {
        return form, nil, fieldErrors(err)
    }
    if slug.Generate(form.Title) == "" {
        return form, nil, map[string]string{"title": "The title must contain at least one letter or digit."}
    }

    ctx, cancel := storeCtx(c)
    defer cancel()
    cat, err := h.Categories.GetByID(ctx, form.CategoryID)
    if err != nil {
        if errors.Is(err, repository.ErrCategoryNotFound) {
            return form, nil, map[string]string{"category_id": "This value is not valid."}
        }
        h.Log.WithError(err).Error("load category")
        return form, nil, map[string]string{"_form": "Category lookup failed."}
    }
    return form, cat, nil
}

func (h *CatalogHandler) renderForm(c echo.Context, status int, form programForm, current string, errs map[string]string) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    cats, err := h.Categories.ListAll(ctx)
    if err != nil {
        h.Log.WithError(err).Error("list categories")
        return dbError(c)
    }
    return c.JSON(status, formView{Program: form, Slug: current, Categories: cats, Errors: errs})
}

func (h *CatalogHandler) lookupError(c echo.Context, err error) error {
    if errors.Is(err, repository.ErrProgramNotFound) {
        return notFound(c, "program not found")
    }
    h.Log.WithError(err).Error("load program")
    return dbError(c)
}

// purge drops cached browse pages.  Failures are logged only: entries
// expire on their own.
func (h *CatalogHandler) purge(c echo.Context) {
    if h.Cache == nil {
        return
    }
    if err := h.Cache.Purge(c.Request().Context()); err != nil {
        h.Log.WithError(err).Warn("cache purge failed")
    }
}

// publish emits program.published.  The broker is optional; errors are
// logged by the publisher and otherwise ignored.
func (h *CatalogHandler) publish(c echo.Context, p *model.Program, uid uint64) {
    if h.Events == nil {
        return
    }
    err := h.Events.PublishProgramPublished(c.Request().Context(), queue.ProgramPublishedEvent{
        EventID:     uuid.NewString(),
        ProgramID:   p.ID,
        Title:       p.Title,
        Slug:        p.Slug,
        Category:    p.CategoryName,
        OwnerID:     uid,
        PublishedAt: time.Now().UTC().Format(time.RFC3339),
    })
    h.Metrics.Observe("event_published", err)
}

func deleteIntention(id uint64) string {
    return "delete" + strconv.FormatUint(id, 10)
}
