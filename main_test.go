package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"kronologic/schedule"
)

const adminEmail = "gm@example.com"

func newTestApp(t *testing.T) *app {
	t.Helper()
	return newTestAppWith(t, func(*serverConfig) {})
}

func newTestAppWith(t *testing.T, configure func(*serverConfig)) *app {
	t.Helper()
	st, err := openStore("sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := serverConfig{
		PGConn:       "sqlite::memory:",
		ClientID:     "client",
		ClientSecret: "secret",
		Admins:       []string{adminEmail, " other@example.com"},
		MaxRestarts:  100,
		Budget:       schedule.DefaultBudget,
	}
	configure(&cfg)
	a, err := newApp(cfg, st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	a.validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		if token != "good" || audience != "client" {
			return nil, errors.New("bad token")
		}
		return &idtoken.Payload{Claims: map[string]any{"email": adminEmail, "name": "Game Master"}}, nil
	}
	return a
}

func do(t *testing.T, a *app, method, path, email, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+a.signEmail(email))
	}
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	return rec
}

func TestAuthorizeRoundTrip(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+a.signEmail("x@example.com"))
	email, ok := a.authorize(req)
	assert.True(t, ok)
	assert.Equal(t, "x@example.com", email)

	req.Header.Set("Authorization", "Bearer "+a.signEmail("x@example.com")+"tampered")
	_, ok = a.authorize(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer nodot")
	_, ok = a.authorize(req)
	assert.False(t, ok)
}

func TestIsAdminTrimsList(t *testing.T) {
	a := newTestApp(t)
	assert.True(t, a.cfg.isAdmin("other@example.com"))
	assert.False(t, a.cfg.isAdmin("player@example.com"))
}

func TestGoogleCallback(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a, http.MethodPost, "/auth/google/callback", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	post := func(credential string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/google/callback", strings.NewReader(url.Values{"credential": {credential}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		a.routes().ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusUnauthorized, post("bad").Code)

	rec = post("good")
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, adminEmail, profile["email"])
	assert.Equal(t, a.signEmail(adminEmail), profile["token"])
	assert.Equal(t, true, profile["admin"])
}

func TestAdminCheck(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, http.StatusUnauthorized, do(t, a, http.MethodGet, "/api/admin/check", "", "").Code)

	rec := do(t, a, http.MethodGet, "/api/admin/check", "player@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"admin":false}`, rec.Body.String())
}

func TestCreateAndReadPuzzle(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a, http.MethodPost, "/api/puzzles", adminEmail, `{"seed": 10000321, "nb_information": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID    int64             `json:"id"`
		Seed  int64             `json:"seed"`
		Hints schedule.HintView `json:"hints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(10000321), created.Seed)
	assert.Len(t, created.Hints.Starts, 2)

	path := "/api/puzzles/" + strconv.FormatInt(created.ID, 10)

	rec = do(t, a, http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var public struct {
		Hints schedule.HintView `json:"hints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	assert.Equal(t, created.Hints, public.Hints)

	assert.Equal(t, http.StatusUnauthorized, do(t, a, http.MethodGet, path+"/solution", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, a, http.MethodGet, path+"/solution", "player@example.com", "").Code)

	rec = do(t, a, http.MethodGet, path+"/solution", adminEmail, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var full schedule.PuzzleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	assert.Equal(t, schedule.PartPoisoning, full.Part)
	assert.Equal(t, "Detective", full.Designated)
	require.Len(t, full.Characters, 6)
	assert.Len(t, full.Characters[0].Rooms, schedule.DefaultTimes)

	rec = do(t, a, http.MethodGet, path+"/solution.txt", adminEmail, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Time 6:")
	assert.Contains(t, rec.Body.String(), "Hallway\n")

	rec = do(t, a, http.MethodGet, "/api/puzzles", adminEmail, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []puzzleSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, adminEmail, list[0].CreatedBy)
	assert.Equal(t, 2, list[0].Information)
}

func TestCreatePuzzleErrors(t *testing.T) {
	a := newTestApp(t)
	for _, tc := range []struct {
		name  string
		email string
		body  string
		code  int
	}{
		{"anonymous", "", `{}`, http.StatusUnauthorized},
		{"not admin", "player@example.com", `{}`, http.StatusForbidden},
		{"bad json", adminEmail, `{`, http.StatusBadRequest},
		{"bad part", adminEmail, `{"part": 9}`, http.StatusBadRequest},
		{"seed for other part", adminEmail, `{"part": 1, "seed": 20000000}`, http.StatusBadRequest},
		{"too much information", adminEmail, `{"nb_information": 7}`, http.StatusBadRequest},
		{"too many times", adminEmail, `{"nb_times": 1099511627776}`, http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, do(t, a, http.MethodPost, "/api/puzzles", tc.email, tc.body).Code)
		})
	}
}

func TestCreatePuzzleExhausted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rooms:\n  - name: Cell\ncharacters: [Detective]\n"), 0o644))
	a := newTestAppWith(t, func(cfg *serverConfig) {
		cfg.TopologyFile = path
		cfg.MaxRestarts = 2
		cfg.Budget = 1
	})

	rec := do(t, a, http.MethodPost, "/api/puzzles", adminEmail, `{"part": 3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = do(t, a, http.MethodGet, "/api/puzzles", adminEmail, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreatePuzzleDefaultsInformationToRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rooms:
  - name: Left
    adjacent: [Right]
  - name: Right
    adjacent: [Left]
characters: [One, Two]
`), 0o644))
	a := newTestAppWith(t, func(cfg *serverConfig) { cfg.TopologyFile = path })

	rec := do(t, a, http.MethodPost, "/api/puzzles", adminEmail, `{"part": 3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Hints schedule.HintView `json:"hints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.Hints.Starts, 2)
}

func TestCreatePuzzleCanceled(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/api/puzzles", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+a.signEmail(adminEmail))
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSolutionTextLogsWriteErrors(t *testing.T) {
	a := newTestApp(t)
	var logs bytes.Buffer
	a.log = slog.New(slog.NewTextHandler(&logs, nil))

	rec := do(t, a, http.MethodPost, "/api/puzzles", adminEmail, `{"seed": 10000321}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/api/puzzles/"+strconv.FormatInt(created.ID, 10)+"/solution.txt", nil)
	req.Header.Set("Authorization", "Bearer "+a.signEmail(adminEmail))
	a.routes().ServeHTTP(brokenWriter{httptest.NewRecorder()}, req)
	assert.Contains(t, logs.String(), "failed to write solution")
}

func TestGetPuzzleErrors(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, http.StatusBadRequest, do(t, a, http.MethodGet, "/api/puzzles/abc", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, a, http.MethodGet, "/api/puzzles/42", "", "").Code)
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)
	rec := do(t, a, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}
