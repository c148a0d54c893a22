package handler

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "net/url"
    "sort"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/prometheus/client_golang/prometheus"

    "github.com/iliyamo/wild-series/internal/csrf"
    "github.com/iliyamo/wild-series/internal/logging"
    "github.com/iliyamo/wild-series/internal/metrics"
    "github.com/iliyamo/wild-series/internal/model"
    "github.com/iliyamo/wild-series/internal/queue"
    "github.com/iliyamo/wild-series/internal/repository"
    "github.com/iliyamo/wild-series/internal/utils"
)

// memDB backs the in-memory stores.  Each store is a thin view so that the
// same GetByID name can exist once per interface.
type memDB struct {
    mu         sync.Mutex
    nextID     uint64
    programs   map[uint64]*model.Program
    categories map[uint64]*model.Category
    seasons    map[uint64]*model.Season
    episodes   map[uint64][]*model.Episode
    watch      map[[2]uint64]bool
    users      map[uint64]model.User
}

func newMemDB() *memDB {
    return &memDB{
        nextID:     100,
        programs:   map[uint64]*model.Program{},
        categories: map[uint64]*model.Category{},
        seasons:    map[uint64]*model.Season{},
        episodes:   map[uint64][]*model.Episode{},
        watch:      map[[2]uint64]bool{},
        users:      map[uint64]model.User{},
    }
}

func (db *memDB) addCategory(id uint64, name string) {
    db.categories[id] = &model.Category{ID: id, Name: name}
}

func (db *memDB) addProgram(id uint64, title, slug string, categoryID uint64) *model.Program {
    p := &model.Program{ID: id, Title: title, Slug: slug, CategoryID: categoryID, CreatedAt: time.Now()}
    db.programs[id] = p
    return p
}

// hydrate returns a copy with the joined category name, as the SQL does.
func (db *memDB) hydrate(p *model.Program) *model.Program {
    cp := *p
    if c, ok := db.categories[p.CategoryID]; ok {
        cp.CategoryName = c.Name
    }
    return &cp
}

func (db *memDB) sorted(desc bool, keep func(*model.Program) bool) []*model.Program {
    out := []*model.Program{}
    for _, p := range db.programs {
        if keep == nil || keep(p) {
            out = append(out, db.hydrate(p))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if desc {
            return out[i].ID > out[j].ID
        }
        return out[i].ID < out[j].ID
    })
    return out
}

type programFake struct{ *memDB }

func (f programFake) Create(_ context.Context, p *model.Program) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.nextID++
    p.ID = f.nextID
    p.CreatedAt = time.Now()
    cp := *p
    f.programs[p.ID] = &cp
    return nil
}

func (f programFake) Update(_ context.Context, p *model.Program) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.programs[p.ID]; !ok {
        return repository.ErrProgramNotFound
    }
    cp := *p
    f.programs[p.ID] = &cp
    return nil
}

func (f programFake) GetByID(_ context.Context, id uint64) (*model.Program, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if p, ok := f.programs[id]; ok {
        return f.hydrate(p), nil
    }
    return nil, repository.ErrProgramNotFound
}

func (f programFake) find(match func(*model.Program) bool) (*model.Program, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if ps := f.sorted(false, match); len(ps) > 0 {
        return ps[0], nil
    }
    return nil, repository.ErrProgramNotFound
}

func (f programFake) GetBySlug(_ context.Context, slug string) (*model.Program, error) {
    return f.find(func(p *model.Program) bool { return p.Slug == slug })
}

func (f programFake) GetByTitle(_ context.Context, key string) (*model.Program, error) {
    return f.find(func(p *model.Program) bool { return strings.ToLower(p.Title) == key })
}

func (f programFake) ListAll(context.Context) ([]*model.Program, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.sorted(false, nil), nil
}

func (f programFake) ListWithCategoryAndOwner(context.Context) ([]*model.Program, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.sorted(true, nil), nil
}

func (f programFake) ListByCategory(_ context.Context, categoryID uint64, limit, offset int) ([]*model.Program, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    all := f.sorted(true, func(p *model.Program) bool { return p.CategoryID == categoryID })
    if offset >= len(all) {
        return []*model.Program{}, nil
    }
    all = all[offset:]
    if len(all) > limit {
        all = all[:limit]
    }
    return all, nil
}

func (f programFake) Delete(_ context.Context, id uint64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.programs[id]; !ok {
        return repository.ErrProgramNotFound
    }
    for k := range f.watch {
        if k[1] == id {
            delete(f.watch, k)
        }
    }
    for sid, s := range f.seasons {
        if s.ProgramID == id {
            delete(f.episodes, sid)
            delete(f.seasons, sid)
        }
    }
    delete(f.programs, id)
    return nil
}

type categoryFake struct{ *memDB }

func (f categoryFake) GetByID(_ context.Context, id uint64) (*model.Category, error) {
    if c, ok := f.categories[id]; ok {
        return c, nil
    }
    return nil, repository.ErrCategoryNotFound
}

func (f categoryFake) GetByName(_ context.Context, key string) (*model.Category, error) {
    for _, c := range f.categories {
        if strings.ToLower(c.Name) == key {
            return c, nil
        }
    }
    return nil, repository.ErrCategoryNotFound
}

func (f categoryFake) ListAll(context.Context) ([]*model.Category, error) {
    out := []*model.Category{}
    for _, c := range f.categories {
        out = append(out, c)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
    return out, nil
}

type seasonFake struct{ *memDB }

func (f seasonFake) GetByID(_ context.Context, id uint64) (*model.Season, error) {
    if s, ok := f.seasons[id]; ok {
        return s, nil
    }
    return nil, repository.ErrSeasonNotFound
}

func (f seasonFake) ListByProgram(_ context.Context, programID uint64) ([]*model.Season, error) {
    out := []*model.Season{}
    for _, s := range f.seasons {
        if s.ProgramID == programID {
            out = append(out, s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
    return out, nil
}

func (f seasonFake) ListEpisodes(_ context.Context, seasonID uint64) ([]*model.Episode, error) {
    out := append([]*model.Episode{}, f.episodes[seasonID]...)
    return out, nil
}

// userFake implements both UserStore and WatchlistStore.
type userFake struct{ *memDB }

func (f userFake) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, u := range f.users {
        if u.Email == email {
            return 0, repository.ErrEmailExists
        }
    }
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    f.nextID++
    f.users[f.nextID] = model.User{ID: f.nextID, Email: email, PasswordHash: hash, Role: role}
    return f.nextID, nil
}

func (f userFake) GetByEmail(_ context.Context, email string) (model.User, error) {
    for _, u := range f.users {
        if u.Email == email {
            return u, nil
        }
    }
    return model.User{}, repository.ErrUserNotFound
}

func (f userFake) GetByID(_ context.Context, id uint64) (model.User, error) {
    if u, ok := f.users[id]; ok {
        return u, nil
    }
    return model.User{}, repository.ErrUserNotFound
}

func (f userFake) IsInWatchlist(_ context.Context, userID, programID uint64) (bool, error) {
    return f.watch[[2]uint64{userID, programID}], nil
}

func (f userFake) ToggleWatchlist(_ context.Context, userID, programID uint64) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    k := [2]uint64{userID, programID}
    if f.watch[k] {
        delete(f.watch, k)
        return false, nil
    }
    f.watch[k] = true
    return true, nil
}

func (f userFake) ListWatchlist(_ context.Context, userID uint64) ([]*model.Program, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.sorted(true, func(p *model.Program) bool { return f.watch[[2]uint64{userID, p.ID}] }), nil
}

type fakeMailer struct {
    sent []*model.Program
    err  error
}

func (m *fakeMailer) ProgramPublished(_ context.Context, p *model.Program) error {
    m.sent = append(m.sent, p)
    return m.err
}

type fakeEvents struct{ events []queue.ProgramPublishedEvent }

func (e *fakeEvents) PublishProgramPublished(_ context.Context, ev queue.ProgramPublishedEvent) error {
    e.events = append(e.events, ev)
    return errors.New("broker down")
}

type fakePurger struct{ calls int }

func (p *fakePurger) Purge(context.Context) error { p.calls++; return nil }

// env wires the handlers onto an echo instance the way the router does,
// with the actor injected from test headers instead of a JWT.
type env struct {
    e       *echo.Echo
    db      *memDB
    mailer  *fakeMailer
    events  *fakeEvents
    purger  *fakePurger
    csrf    *csrf.Manager
    metrics *metrics.Metrics
    catalog *CatalogHandler
}

const (
    adminID uint64 = 1
    userID  uint64 = 2
)

func newEnv(t *testing.T) *env {
    t.Helper()
    db := newMemDB()
    v := &env{
        e:       echo.New(),
        db:      db,
        mailer:  &fakeMailer{},
        events:  &fakeEvents{},
        purger:  &fakePurger{},
        csrf:    csrf.New("test-csrf"),
        metrics: metrics.New(prometheus.NewRegistry()),
    }
    log := logging.Discard()
    v.catalog = &CatalogHandler{
        Programs:   programFake{db},
        Categories: categoryFake{db},
        Seasons:    seasonFake{db},
        Watchlist:  userFake{db},
        Mailer:     v.mailer,
        Events:     v.events,
        Cache:      v.purger,
        CSRF:       v.csrf,
        Metrics:    v.metrics,
        Log:        log,
    }
    browse := &BrowseHandler{Programs: programFake{db}, Categories: categoryFake{db}, Seasons: seasonFake{db}, Log: log}

    e := v.e
    e.Validator = NewFormValidator()
    e.Pre(echomw.MethodOverrideWithConfig(echomw.MethodOverrideConfig{Getter: echomw.MethodFromForm("_method")}))
    e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            switch c.Request().Header.Get("X-Test-Actor") {
            case "admin":
                c.Set("user_id", adminID)
                c.Set("role", model.RoleAdmin)
            case "user":
                c.Set("user_id", userID)
                c.Set("role", model.RoleUser)
            }
            return next(c)
        }
    })

    h := v.catalog
    e.GET("/program/", h.List)
    e.GET("/program/new", h.New)
    e.POST("/program/new", h.Create)
    e.GET("/program/:slug", h.Show)
    e.GET("/program/:slug/edit", h.Edit)
    e.POST("/program/:slug/edit", h.Update)
    e.DELETE("/program/:id", h.Delete)
    e.GET("/program/:id/watchlist", h.ToggleWatchlist)
    e.POST("/program/:id/watchlist", h.ToggleWatchlist)
    e.GET("/my-watchlist", h.MyWatchlist)

    e.GET("/wild", browse.Index)
    e.GET("/show/:slug", browse.ShowBySlug)
    e.GET("/category/:categoryName", browse.ShowByCategory)
    e.GET("/wild/program/:programName", browse.ShowByProgram)
    e.GET("/season/:id", browse.ShowBySeason)
    return v
}

func (v *env) do(method, target, actor string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
    var req *http.Request
    if form != nil {
        req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    if actor != "" {
        req.Header.Set("X-Test-Actor", actor)
    }
    for _, ck := range cookies {
        req.AddCookie(ck)
    }
    rec := httptest.NewRecorder()
    v.e.ServeHTTP(rec, req)
    return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
    for _, ck := range rec.Result().Cookies() {
        if ck.Name == name {
            return ck
        }
    }
    return nil
}

func seasonOf(id, programID uint64, number uint32) *model.Season {
    return &model.Season{ID: id, ProgramID: programID, Number: number, Year: 2008}
}

func newRequest(method, target, actor string) *http.Request {
    req := httptest.NewRequest(method, target, nil)
    if actor != "" {
        req.Header.Set("X-Test-Actor", actor)
    }
    return req
}

func serve(v *env, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    v.e.ServeHTTP(rec, req)
    return rec
}
