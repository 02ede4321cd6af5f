package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"croissants/internal/app/config"
	"croissants/internal/app/ds"
	"croissants/internal/app/dto"
	"croissants/internal/app/form"
	"croissants/internal/app/repository"
	"croissants/internal/app/storage"
)

var testNow = time.Date(2024, 4, 2, 9, 15, 0, 0, time.UTC)

// upstream — поддельный API круассанов
type upstream struct {
	mu           sync.Mutex
	calls        []string
	created      []ds.NewCroissantRequest
	buildings    []ds.Building
	requests     []ds.CroissantRequest
	failRequests bool
	createStatus int
	createBody   string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/buildings":
		_ = json.NewEncoder(w).Encode(ds.BuildingsResponse{Buildings: u.buildings})
	case r.Method == http.MethodGet && r.URL.Path == "/croissants":
		if u.failRequests {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ds.RequestsResponse{Requests: u.requests})
	case r.Method == http.MethodPost && r.URL.Path == "/croissants":
		var req ds.NewCroissantRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if u.createStatus != 0 {
			w.WriteHeader(u.createStatus)
			_, _ = io.WriteString(w, u.createBody)
			return
		}
		u.created = append(u.created, req)
		_ = json.NewEncoder(w).Encode(ds.CroissantRequest{ID: 100, Amount: req.Amount, Location: req.Location, Requester: req.Requester})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/croissants/"):
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (u *upstream) set(fn func(u *upstream)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(u)
}

func (u *upstream) createdRequests() []ds.NewCroissantRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]ds.NewCroissantRequest(nil), u.created...)
}

func (u *upstream) takeCalls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	calls := u.calls
	u.calls = nil
	return calls
}

type testApp struct {
	t        *testing.T
	handler  http.Handler
	upstream *upstream
	store    *storage.MemoryStore
	cookie   *http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	base := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	up := &upstream{
		buildings: []ds.Building{
			{ID: "A", Name: "Tower A", MaxFloors: 5},
			{ID: "B", Name: "Tower B", MaxFloors: 30},
		},
		requests: []ds.CroissantRequest{
			{ID: 1, Amount: 2, Location: ds.Location{Building: "A", Floor: 1}, Requester: "Old", Time: base},
			{ID: 2, Amount: 9, Location: ds.Location{Building: "B", Floor: 7}, Requester: "New", Time: base.Add(time.Hour)},
		},
	}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	repo, err := repository.New(srv.URL, time.Second)
	require.NoError(t, err)

	cfg := &config.Config{
		CORSOrigins: []string{"*"},
		Session:     config.SessionConfig{CookieName: "sid", TTL: time.Hour, SubmitLockTTL: time.Minute},
	}
	store := storage.NewMemoryStore(time.Hour, time.Minute)

	app := NewApp(cfg, repo, store, form.WithClock(func() time.Time { return testNow }))
	require.NoError(t, app.Mount())

	return &testApp{t: t, handler: app.Router, upstream: up, store: store}
}

func (a *testApp) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" {
			a.cookie = c
		}
	}
	return w
}

func (a *testApp) postForm(target string, values url.Values) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, target, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

func (a *testApp) state() dto.StateResponse {
	a.t.Helper()
	w := a.do(http.MethodGet, "/api/state", nil, "")
	require.Equal(a.t, http.StatusOK, w.Code)
	var st dto.StateResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestIndex_RendersCatalogAndNewestFirst(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Tower A")
	assert.Contains(t, body, "Tower B")
	assert.Contains(t, body, `max="5"`)
	newer := strings.Index(body, `data-id="2"`)
	older := strings.Index(body, `data-id="1"`)
	require.True(t, newer > 0 && older > 0)
	assert.Less(t, newer, older)
	assert.NotContains(t, body, `id="stale"`)
	assert.ElementsMatch(t, []string{"GET /buildings", "GET /croissants"}, app.upstream.takeCalls())
}

func TestIndex_FailedReloadShowsStaleList(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")

	app.upstream.set(func(u *upstream) { u.failRequests = true })
	w := app.do(http.MethodGet, "/", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="stale"`)
	assert.Contains(t, body, `data-op="requests"`)
	assert.Contains(t, body, `data-id="2"`, "last fetched list stays visible")
}

func TestDraft_FloorBlurClampsToBuilding(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")

	w := app.postForm("/draft", url.Values{"building": {"A"}, "floor": {"12"}, "blur": {"floor"}})
	require.Equal(t, http.StatusFound, w.Code)
	st := app.state()
	require.NotNil(t, st.Draft.Floor)
	assert.Equal(t, 5, *st.Draft.Floor)

	app.postForm("/draft", url.Values{"floor": {"-3"}, "blur": {"floor"}})
	st = app.state()
	assert.Equal(t, 0, *st.Draft.Floor)
}

func TestSelectBuilding_UnknownIsIgnored(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")

	app.postForm("/building", url.Values{"building": {"B"}})
	app.postForm("/building", url.Values{"building": {"Z"}})

	w := app.do(http.MethodPut, "/api/building/Z", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dto.StateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.CurrentBuilding)
	assert.Equal(t, "B", resp.Data.CurrentBuilding.ID)

	page := app.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, page.Body.String(), `<option value="B" selected>`)
	assert.Contains(t, page.Body.String(), `max="30"`)
}

func TestSubmit_PostsDraftAndReloads(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")
	app.upstream.takeCalls()

	w := app.postForm("/requests", url.Values{"building": {"A"}, "floor": {"3"}, "requester": {"Bob"}})

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []string{"POST /croissants", "GET /croissants"}, app.upstream.takeCalls())
	created := app.upstream.createdRequests()
	require.Len(t, created, 1)
	assert.Equal(t, ds.NewCroissantRequest{
		Amount:    0,
		Location:  ds.Location{Building: "A", Floor: 3},
		Requester: "Bob",
		Time:      "2024-04-02T09:15:00.000Z",
	}, created[0])

	st := app.state()
	assert.Nil(t, st.Draft.Amount)
	assert.Nil(t, st.Draft.Floor)
	assert.Nil(t, st.Draft.Requester)
	assert.True(t, st.Status["submit"].OK)
}

func TestSubmit_RejectedByServerKeepsDraft(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")
	app.upstream.set(func(u *upstream) {
		u.createStatus = http.StatusBadRequest
		u.createBody = `{"message":"floor 5 is not served"}`
	})

	app.do(http.MethodPut, "/api/draft/amount", strings.NewReader(`{"value":"7"}`), "application/json")
	app.do(http.MethodPut, "/api/draft/requester", strings.NewReader(`{"value":"Eve"}`), "application/json")
	w := app.do(http.MethodPost, "/api/requests", nil, "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "floor 5 is not served")

	st := app.state()
	require.NotNil(t, st.Draft.Amount)
	assert.Equal(t, 7, *st.Draft.Amount)
	assert.Equal(t, "Eve", *st.Draft.Requester)
	assert.False(t, st.Status["submit"].OK)
	assert.Contains(t, st.Status["submit"].Reason, "floor 5 is not served")

	page := app.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, page.Body.String(), `data-op="submit"`)
}

func TestSubmit_InFlightIsRejected(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")
	require.NotNil(t, app.cookie)

	ok, err := app.store.AcquireSubmit(testContext(t), app.cookie.Value)
	require.NoError(t, err)
	require.True(t, ok)
	app.upstream.takeCalls()

	w := app.do(http.MethodPost, "/api/requests", nil, "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, app.upstream.takeCalls())
	assert.Contains(t, app.do(http.MethodGet, "/", nil, "").Body.String(), `id="submit" disabled`)
}

func TestSubmit_InFlightDoesNotOverwriteSession(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")
	app.do(http.MethodPut, "/api/draft/requester", strings.NewReader(`{"value":"Bob"}`), "application/json")

	ctx := testContext(t)
	sessionID := app.cookie.Value
	ok, err := app.store.AcquireSubmit(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, ok)

	w := app.do(http.MethodPost, "/api/requests", nil, "")
	require.Equal(t, http.StatusConflict, w.Code)

	w = app.postForm("/requests", url.Values{"building": {"A"}, "requester": {"Mallory"}})
	require.Equal(t, http.StatusFound, w.Code)

	st, err := app.store.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", st.Draft.RequesterOrEmpty())
	assert.False(t, st.SubmitStatus.Done(), "the losing submit must not save its state")
}

func TestDraft_EmptyFormFieldsAreUnset(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")

	app.postForm("/draft", url.Values{"building": {"A"}, "amount": {"4"}, "floor": {"2"}, "requester": {""}})
	st := app.state()
	require.NotNil(t, st.Draft.Amount)
	assert.Equal(t, 4, *st.Draft.Amount)

	w := app.postForm("/draft", url.Values{"building": {"A"}, "amount": {""}, "floor": {" "}, "requester": {""}, "blur": {"floor"}})
	require.Equal(t, http.StatusFound, w.Code)

	st = app.state()
	assert.Nil(t, st.Draft.Amount)
	assert.Empty(t, st.Draft.Invalid)
	require.NotNil(t, st.Draft.Floor)
	assert.Equal(t, 0, *st.Draft.Floor, "blur still normalizes an unset floor")
	require.NotNil(t, st.Draft.Requester)
	assert.Equal(t, "", *st.Draft.Requester)
}

func TestDelete_DeletesAndReloads(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")
	app.upstream.takeCalls()

	w := app.postForm("/requests/42/delete", url.Values{})

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, []string{"DELETE /croissants/42", "GET /croissants"}, app.upstream.takeCalls())

	w = app.do(http.MethodDelete, "/api/requests/42", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"DELETE /croissants/42", "GET /croissants"}, app.upstream.takeCalls())
}

func TestAPI_BadInput(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPut, "/api/draft/colour", strings.NewReader(`{"value":"red"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPut, "/api/draft/amount", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodDelete, "/api/requests/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.postForm("/requests/-1/delete", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, app.upstream.takeCalls())
}

func TestAPI_NaNDraftIsReported(t *testing.T) {
	app := newTestApp(t)

	app.do(http.MethodPut, "/api/draft/floor", strings.NewReader(`{"value":"second"}`), "application/json")
	st := app.state()
	assert.Nil(t, st.Draft.Floor)
	assert.Equal(t, []string{"floor"}, st.Draft.Invalid)

	w := app.do(http.MethodPost, "/api/draft/floor/blur", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	st = app.state()
	require.NotNil(t, st.Draft.Floor)
	assert.Equal(t, 0, *st.Draft.Floor)
}

func TestPingAndMetrics(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, "")

	w := app.do(http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = app.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `croissants_upstream_requests_total{operation="list_buildings",result="ok"}`)
}

func TestSwaggerDoc(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/swagger/doc.json", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Croissants API", doc.Info.Title)
	for _, path := range []string{"/api/state", "/api/draft/{field}", "/api/requests", "/api/requests/{id}"} {
		assert.Contains(t, doc.Paths, path)
	}
}

// testContext returns a context canceled when the test finishes
// (equivalent of testing.T.Context, which needs Go 1.24).
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
