package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"drawtrack/internal/app"
	"drawtrack/internal/ratelimit"
	"drawtrack/pkg/auth"
	"drawtrack/pkg/store"
)

type testEnv struct {
	srv        *httptest.Server
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tm, err := auth.NewTokenManager("test-secret", 0)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	a := app.New(store.NewMemoryStore(), tm)
	sess, err := a.Register(app.RegisterInput{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "longenough",
	}, nil)
	if err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	srv := httptest.NewServer(New(Config{App: a}).Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, adminToken: sess.Token}
}

type envelopeBody struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, envelopeBody) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelopeBody
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func (e *testEnv) mustCreateGame(t *testing.T, name, code string) {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/api/v1/games", e.adminToken,
		map[string]string{"name": name, "code": code})
	if status != http.StatusCreated {
		t.Fatalf("create game %s: status %d", code, status)
	}
}

func (e *testEnv) mustAppend(t *testing.T, code, date, tm, value string) {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/api/v1/results/timewise", e.adminToken,
		map[string]string{"gameCode": code, "dateStr": date, "time": tm, "value": value})
	if status != http.StatusCreated {
		t.Fatalf("append result: status %d", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)
	status, env := e.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || !env.OK {
		t.Fatalf("health status %d ok=%v", status, env.OK)
	}
	var data struct {
		Status   string   `json:"status"`
		Database string   `json:"database"`
		Tables   []string `json:"tables"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode health data: %v", err)
	}
	if data.Status != "ok" || data.Database == "" || len(data.Tables) == 0 {
		t.Fatalf("health data incomplete: %+v", data)
	}
}

func TestGameCRUDOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodPost, "/api/v1/games", e.adminToken,
		map[string]string{"name": "Gali", "code": "gali", "defaultTime": "05:30 PM"})
	if status != http.StatusCreated {
		t.Fatalf("create: status %d error %q", status, env.Error)
	}

	// Duplicate code conflicts.
	status, _ = e.do(t, http.MethodPost, "/api/v1/games", e.adminToken,
		map[string]string{"name": "Other", "code": "GALI"})
	if status != http.StatusConflict {
		t.Fatalf("duplicate create: status %d, want 409", status)
	}

	// Case-insensitive read, no auth needed.
	status, env = e.do(t, http.MethodGet, "/api/v1/games/gAlI", "", nil)
	if status != http.StatusOK {
		t.Fatalf("get: status %d", status)
	}
	var game struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &game); err != nil {
		t.Fatalf("decode game: %v", err)
	}
	if game.Code != "GALI" {
		t.Fatalf("code = %q, want GALI", game.Code)
	}

	status, _ = e.do(t, http.MethodPut, "/api/v1/games/GALI", e.adminToken,
		map[string]string{"name": "Gali Evening"})
	if status != http.StatusOK {
		t.Fatalf("update: status %d", status)
	}

	status, _ = e.do(t, http.MethodDelete, "/api/v1/games/GALI", e.adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: status %d", status)
	}
	status, _ = e.do(t, http.MethodGet, "/api/v1/games/GALI", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("get deleted: status %d, want 404", status)
	}
}

func TestMutationsRequireAdmin(t *testing.T) {
	e := newTestEnv(t)

	// No token.
	status, _ := e.do(t, http.MethodPost, "/api/v1/games", "",
		map[string]string{"name": "Gali", "code": "GALI"})
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous create: status %d, want 401", status)
	}

	// Viewer token.
	status, env := e.do(t, http.MethodPost, "/api/v1/users/register", "",
		map[string]string{"name": "View", "email": "view@example.com", "password": "longenough"})
	if status != http.StatusCreated {
		t.Fatalf("register viewer: status %d", status)
	}
	var sess struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	status, _ = e.do(t, http.MethodPost, "/api/v1/games", sess.Token,
		map[string]string{"name": "Gali", "code": "GALI"})
	if status != http.StatusForbidden {
		t.Fatalf("viewer create: status %d, want 403", status)
	}
}

func TestTimewiseSnapshotMonthlyFlow(t *testing.T) {
	e := newTestEnv(t)
	e.mustCreateGame(t, "Gali", "GALI")
	e.mustCreateGame(t, "Disawar", "DSWR")
	e.mustAppend(t, "GALI", "2026-08-01", "09:00", "45")
	e.mustAppend(t, "GALI", "2026-08-01", "09:00", "46")
	e.mustAppend(t, "DSWR", "2026-08-01", "17:30", "12")

	status, env := e.do(t, http.MethodGet, "/api/v1/results/timewise?dateStr=2026-08-01", "", nil)
	if status != http.StatusOK {
		t.Fatalf("timewise: status %d", status)
	}
	var day struct {
		Rows []struct {
			SlotMin int               `json:"slotMin"`
			Values  map[string]string `json:"values"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(env.Data, &day); err != nil {
		t.Fatalf("decode day: %v", err)
	}
	if len(day.Rows) != 2 || day.Rows[0].Values["GALI"] != "46" {
		t.Fatalf("unexpected day grid: %+v", day.Rows)
	}

	status, env = e.do(t, http.MethodGet, "/api/v1/results/snapshot?dateStr=2026-08-01&time=10:00", "", nil)
	if status != http.StatusOK {
		t.Fatalf("snapshot: status %d", status)
	}
	var snap struct {
		Values map[string]string `json:"values"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Values["GALI"] != "46" || snap.Values["DSWR"] != "XX" {
		t.Fatalf("unexpected snapshot: %+v", snap.Values)
	}

	status, env = e.do(t, http.MethodGet, "/api/v1/results/monthly?year=2026&month=8", "", nil)
	if status != http.StatusOK {
		t.Fatalf("monthly: status %d", status)
	}
	var table struct {
		Days []struct {
			DateStr string            `json:"dateStr"`
			Values  map[string]string `json:"values"`
		} `json:"days"`
	}
	if err := json.Unmarshal(env.Data, &table); err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(table.Days) != 1 || table.Days[0].Values["DSWR"] != "12" {
		t.Fatalf("unexpected monthly table: %+v", table.Days)
	}
}

func TestBadQueryParamsRejected(t *testing.T) {
	e := newTestEnv(t)
	cases := []string{
		"/api/v1/results/timewise?dateStr=01-08-2026",
		"/api/v1/results/snapshot?dateStr=2026-08-01&time=25:00",
		"/api/v1/results/monthly?year=2026&month=13",
		"/api/v1/results/monthly?year=x&month=8",
	}
	for _, path := range cases {
		status, env := e.do(t, http.MethodGet, path, "", nil)
		if status != http.StatusBadRequest {
			t.Fatalf("%s: status %d error %q, want 400", path, status, env.Error)
		}
		if env.OK {
			t.Fatalf("%s: error envelope has ok=true", path)
		}
	}
}

func TestDeleteResultByID(t *testing.T) {
	e := newTestEnv(t)
	e.mustCreateGame(t, "Gali", "GALI")
	status, env := e.do(t, http.MethodPost, "/api/v1/results/timewise", e.adminToken,
		map[string]string{"gameCode": "GALI", "dateStr": "2026-08-01", "time": "09:00", "value": "45"})
	if status != http.StatusCreated {
		t.Fatalf("append: status %d", status)
	}
	var result struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	status, _ = e.do(t, http.MethodDelete, "/api/v1/results/timewise/abc", e.adminToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("non-numeric id: status %d, want 400", status)
	}
	status, _ = e.do(t, http.MethodDelete, "/api/v1/results/timewise/999", e.adminToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("missing id: status %d, want 404", status)
	}
	status, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/results/timewise/%d", result.ID), e.adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete id %d: status %d", result.ID, status)
	}
}

func TestLoginAndMe(t *testing.T) {
	e := newTestEnv(t)
	status, env := e.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "admin@example.com", "password": "longenough"})
	if status != http.StatusOK {
		t.Fatalf("login: status %d error %q", status, env.Error)
	}
	var sess struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	status, env = e.do(t, http.MethodGet, "/api/v1/auth/me", sess.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	var u struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u.Email != "admin@example.com" {
		t.Fatalf("me email = %q", u.Email)
	}

	status, _ = e.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "admin@example.com", "password": "wrongwrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d, want 401", status)
	}

	status, _ = e.do(t, http.MethodGet, "/api/v1/auth/me", "garbage.token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", status)
	}

	status, _ = e.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
	if status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}
}

func TestLoginRateLimited(t *testing.T) {
	r := miniredis.RunT(t)
	limiter, err := ratelimit.New(r.Addr(), "", 2, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	tm, err := auth.NewTokenManager("test-secret", 0)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	a := app.New(store.NewMemoryStore(), tm)
	srv := httptest.NewServer(New(Config{App: a, Limiter: limiter}).Router())
	defer srv.Close()

	e := &testEnv{srv: srv}
	body := map[string]string{"email": "ghost@example.com", "password": "wrongwrong"}
	for i := 0; i < 2; i++ {
		status, _ := e.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		if status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d, want 401", i+1, status)
		}
	}
	status, _ := e.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	if status != http.StatusTooManyRequests {
		t.Fatalf("throttled attempt: status %d, want 429", status)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}
}

func TestBulkUpsertEndpoint(t *testing.T) {
	e := newTestEnv(t)
	status, env := e.do(t, http.MethodPost, "/api/v1/games/bulk", e.adminToken,
		map[string]any{"items": []map[string]string{
			{"name": "Gali", "code": "GALI"},
			{"name": "", "code": "SKIP"},
			{"name": "Disawar", "code": "DSWR"},
		}})
	if status != http.StatusOK {
		t.Fatalf("bulk: status %d error %q", status, env.Error)
	}
	var data struct {
		Applied int `json:"applied"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Applied != 2 {
		t.Fatalf("applied = %d, want 2", data.Applied)
	}
}
