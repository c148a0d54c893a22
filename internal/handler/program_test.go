package handler

import (
    "encoding/json"
    "errors"
    "net/http"
    "net/url"
    "testing"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/wild-series/internal/flash"
)

func decode(t *testing.T, body []byte) map[string]any {
    t.Helper()
    var m map[string]any
    require.NoError(t, json.Unmarshal(body, &m))
    return m
}

func submission(title, categoryID string) url.Values {
    return url.Values{
        "title":       {title},
        "summary":     {"A chemist turns to crime."},
        "poster":      {"https://img.example/bb.jpg"},
        "category_id": {categoryID},
    }
}

func TestCreateProgramDerivesSlugAndNotifies(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")

    rec := v.do(http.MethodPost, "/program/new", "admin", submission("Breaking Bad", "1"))
    require.Equal(t, http.StatusSeeOther, rec.Code)
    assert.Equal(t, "/program/", rec.Header().Get("Location"))

    require.Len(t, v.db.programs, 1)
    stored := v.db.sorted(false, nil)[0]
    assert.Equal(t, "breaking-bad", stored.Slug)
    require.NotNil(t, stored.OwnerID)
    assert.Equal(t, adminID, *stored.OwnerID)

    require.Len(t, v.mailer.sent, 1)
    assert.Equal(t, "Drama", v.mailer.sent[0].CategoryName)
    require.Len(t, v.events.events, 1)
    assert.Equal(t, "breaking-bad", v.events.events[0].Slug)
    assert.Len(t, v.events.events[0].EventID, 36)
    assert.Equal(t, 1, v.purger.calls)

    ck := cookieNamed(rec, "flash")
    require.NotNil(t, ck)
    msgs, err := flash.Decode(ck.Value)
    require.NoError(t, err)
    assert.Equal(t, []flash.Message{{Kind: "success", Text: msgAdded}}, msgs)

    // the listing shows the flash once
    rec = v.do(http.MethodGet, "/program/", "admin", nil, ck)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec.Body.Bytes())
    assert.Len(t, body["programs"], 1)
    assert.Equal(t, []any{map[string]any{"kind": "success", "text": msgAdded}}, body["flashes"])

    rec = v.do(http.MethodGet, "/show/breaking-bad", "", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "Breaking Bad", decode(t, rec.Body.Bytes())["slug"])
}

func TestCreateProgramValidationFailureRerendersForm(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")

    form := submission("", "1")
    form.Set("poster", "not a url")
    rec := v.do(http.MethodPost, "/program/new", "admin", form)
    require.Equal(t, http.StatusOK, rec.Code)

    body := decode(t, rec.Body.Bytes())
    errs := body["errors"].(map[string]any)
    assert.Equal(t, "This value should not be blank.", errs["title"])
    assert.Equal(t, "This value is not a valid URL.", errs["poster"])
    assert.Len(t, body["categories"], 1)

    assert.Empty(t, v.db.programs)
    assert.Empty(t, v.mailer.sent)
    assert.Nil(t, cookieNamed(rec, "flash"))
}

func TestCreateProgramUnknownCategory(t *testing.T) {
    v := newEnv(t)
    rec := v.do(http.MethodPost, "/program/new", "admin", submission("Breaking Bad", "42"))
    require.Equal(t, http.StatusOK, rec.Code)
    errs := decode(t, rec.Body.Bytes())["errors"].(map[string]any)
    assert.Contains(t, errs, "category_id")
    assert.Empty(t, v.db.programs)
}

func TestCreateProgramTitleWithoutSlugCharacters(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    rec := v.do(http.MethodPost, "/program/new", "admin", submission("!!!", "1"))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, decode(t, rec.Body.Bytes())["errors"], "title")
}

func TestCreateProgramEmailFailureKeepsProgram(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.mailer.err = errors.New("smtp down")

    rec := v.do(http.MethodPost, "/program/new", "admin", submission("Breaking Bad", "1"))
    require.Equal(t, http.StatusInternalServerError, rec.Code)
    assert.Equal(t, "notification failed", decode(t, rec.Body.Bytes())["error"])
    assert.Equal(t, 1.0, testutil.ToFloat64(v.metrics.CatalogEvents.WithLabelValues("notification_email", "error")))
    assert.Equal(t, 1.0, testutil.ToFloat64(v.metrics.CatalogEvents.WithLabelValues("program_created", "ok")))

    assert.Len(t, v.db.programs, 1)
    assert.Empty(t, v.events.events)
    assert.Nil(t, cookieNamed(rec, "flash"))
}

func TestListEmptyCatalogIsOK(t *testing.T) {
    v := newEnv(t)
    rec := v.do(http.MethodGet, "/program/", "admin", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec.Body.Bytes())
    assert.Equal(t, []any{}, body["programs"])
    assert.Equal(t, []any{}, body["flashes"])
}

func TestNewFormListsCategories(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(2, "Horror")
    v.db.addCategory(1, "Drama")

    rec := v.do(http.MethodGet, "/program/new", "admin", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    cats := decode(t, rec.Body.Bytes())["categories"].([]any)
    require.Len(t, cats, 2)
    assert.Equal(t, "Drama", cats[0].(map[string]any)["name"])
}

func TestShowIncludesSeasonsAndDeleteToken(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.db.addProgram(7, "Breaking Bad", "breaking-bad", 1)
    v.db.seasons[70] = seasonOf(70, 7, 1)

    rec := v.do(http.MethodGet, "/program/breaking-bad", "admin", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec.Body.Bytes())
    assert.Equal(t, v.csrf.Token(adminID, "delete7"), body["delete_token"])
    assert.Len(t, body["seasons"], 1)
    assert.Equal(t, false, body["isInWatchlist"])

    rec = v.do(http.MethodGet, "/program/unknown", "admin", nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditChangesSlug(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.db.addProgram(7, "Breaking Bad", "breaking-bad", 1)

    rec := v.do(http.MethodGet, "/program/breaking-bad/edit", "admin", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "Breaking Bad", decode(t, rec.Body.Bytes())["program"].(map[string]any)["title"])

    rec = v.do(http.MethodPost, "/program/breaking-bad/edit", "admin", submission("Better Call Saul", "1"))
    require.Equal(t, http.StatusSeeOther, rec.Code)
    require.Len(t, v.db.programs, 1)
    assert.Equal(t, "better-call-saul", v.db.programs[7].Slug)
    assert.Equal(t, 1, v.purger.calls)

    ck := cookieNamed(rec, "flash")
    require.NotNil(t, ck)
    msgs, _ := flash.Decode(ck.Value)
    assert.Equal(t, msgModified, msgs[0].Text)

    assert.Equal(t, http.StatusOK, v.do(http.MethodGet, "/show/better-call-saul", "", nil).Code)
    assert.Equal(t, http.StatusNotFound, v.do(http.MethodGet, "/show/breaking-bad", "", nil).Code)
    assert.Equal(t, http.StatusNotFound, v.do(http.MethodGet, "/program/breaking-bad", "admin", nil).Code)
}

func TestEditValidationFailureKeepsProgram(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.db.addProgram(7, "Breaking Bad", "breaking-bad", 1)

    rec := v.do(http.MethodPost, "/program/breaking-bad/edit", "admin", submission("", "1"))
    require.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec.Body.Bytes())
    assert.Equal(t, "breaking-bad", body["slug"])
    assert.Contains(t, body["errors"], "title")
    assert.Equal(t, "Breaking Bad", v.db.programs[7].Title)
}

func TestDeleteRequiresValidToken(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.db.addProgram(7, "Breaking Bad", "breaking-bad", 1)

    form := url.Values{"_method": {"DELETE"}, "_token": {"forged"}}
    rec := v.do(http.MethodPost, "/program/7", "admin", form)
    require.Equal(t, http.StatusSeeOther, rec.Code)
    assert.Contains(t, v.db.programs, uint64(7))
    assert.Nil(t, cookieNamed(rec, "flash"))
    assert.Zero(t, v.purger.calls)

    // a token minted for another program is rejected too
    form.Set("_token", v.csrf.Token(adminID, "delete8"))
    v.do(http.MethodPost, "/program/7", "admin", form)
    assert.Contains(t, v.db.programs, uint64(7))

    form.Set("_token", v.csrf.Token(adminID, "delete7"))
    rec = v.do(http.MethodPost, "/program/7", "admin", form)
    require.Equal(t, http.StatusSeeOther, rec.Code)
    assert.Equal(t, "/program/", rec.Header().Get("Location"))
    assert.NotContains(t, v.db.programs, uint64(7))
    assert.Equal(t, 1, v.purger.calls)

    ck := cookieNamed(rec, "flash")
    require.NotNil(t, ck)
    msgs, _ := flash.Decode(ck.Value)
    assert.Equal(t, []flash.Message{{Kind: "danger", Text: msgDeleted}}, msgs)
}

func TestDeleteWithHeaderToken(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.db.addProgram(7, "Breaking Bad", "breaking-bad", 1)
    v.db.seasons[70] = seasonOf(70, 7, 1)
    v.db.watch[[2]uint64{userID, 7}] = true

    req := newRequest(http.MethodDelete, "/program/7", "admin")
    req.Header.Set("X-CSRF-Token", v.csrf.Token(adminID, "delete7"))
    rec := serve(v, req)
    require.Equal(t, http.StatusSeeOther, rec.Code)
    assert.Empty(t, v.db.programs)
    assert.Empty(t, v.db.seasons)
    assert.Empty(t, v.db.watch)
}

func TestDeleteMissingProgram(t *testing.T) {
    v := newEnv(t)
    form := url.Values{"_method": {"DELETE"}, "_token": {v.csrf.Token(adminID, "delete9")}}
    assert.Equal(t, http.StatusNotFound, v.do(http.MethodPost, "/program/9", "admin", form).Code)
    assert.Equal(t, http.StatusNotFound, v.do(http.MethodPost, "/program/abc", "admin", url.Values{"_method": {"DELETE"}}).Code)
}

func TestToggleWatchlistAlternates(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.db.addProgram(3, "The Wire", "the-wire", 1)

    for _, want := range []bool{true, false, true} {
        rec := v.do(http.MethodPost, "/program/3/watchlist", "user", nil)
        require.Equal(t, http.StatusOK, rec.Code)
        assert.Equal(t, want, decode(t, rec.Body.Bytes())["isInWatchlist"])
    }

    rec := v.do(http.MethodGet, "/my-watchlist", "user", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    programs := decode(t, rec.Body.Bytes())["programs"].([]any)
    require.Len(t, programs, 1)
    assert.Equal(t, "the-wire", programs[0].(map[string]any)["slug"])
}

func TestToggleWatchlistErrors(t *testing.T) {
    v := newEnv(t)
    v.db.addCategory(1, "Drama")
    v.db.addProgram(3, "The Wire", "the-wire", 1)

    assert.Equal(t, http.StatusUnauthorized, v.do(http.MethodPost, "/program/3/watchlist", "", nil).Code)
    assert.Equal(t, http.StatusNotFound, v.do(http.MethodGet, "/program/4/watchlist", "user", nil).Code)
    assert.Equal(t, http.StatusUnauthorized, v.do(http.MethodGet, "/my-watchlist", "", nil).Code)
}
