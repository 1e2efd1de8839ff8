package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strike-hub/strike-league-hub/internal/application/query"
	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakePlayerRepo struct {
	players []*player.Player
}

func (r *fakePlayerRepo) Create(context.Context, *player.Player) error { return nil }

func (r *fakePlayerRepo) GetByID(_ context.Context, id string) (*player.Player, error) {
	for _, p := range r.players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, shared.ErrUnknownParticipant
}

func (r *fakePlayerRepo) GetByChatID(_ context.Context, chatID player.ChatID) (*player.Player, error) {
	for _, p := range r.players {
		if p.ChatID == chatID {
			return p, nil
		}
	}
	return nil, shared.ErrUnknownParticipant
}

func (r *fakePlayerRepo) Update(context.Context, *player.Player) error { return nil }

func (r *fakePlayerRepo) ListActive(context.Context) ([]*player.Player, error) {
	return r.players, nil
}

func (r *fakePlayerRepo) ListByDivision(_ context.Context, d player.Division) ([]*player.Player, error) {
	var out []*player.Player
	for _, p := range r.players {
		if p.Division == d {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) ExistsByChatID(context.Context, player.ChatID) (bool, error) {
	return false, nil
}

func testPlayer(t *testing.T, id string, chatID int64, d player.Division) *player.Player {
	t.Helper()
	p, err := player.NewPlayer(player.NewPlayerParams{
		ID:          id,
		ChatID:      player.ChatID(chatID),
		DisplayName: "Player " + id,
		Division:    d,
	})
	require.NoError(t, err)
	return p
}

func newTestServer(t *testing.T, players ...*player.Player) *Server {
	t.Helper()

	reg := registry.New()
	_, err := reg.Open("house", func() (*session.Session, error) {
		sess, err := session.New("sess-house", "house", "season-1", time.Now().UTC(), 1.0)
		if err != nil {
			return nil, err
		}
		if err := sess.OpenCheckIn(); err != nil {
			return nil, err
		}
		return sess, nil
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	return NewServer(cfg, Dependencies{
		StandingsHandler:     query.NewStandingsHandler(&fakePlayerRepo{players: players}, nil, time.Minute),
		SessionStatusHandler: query.NewSessionStatusHandler(reg),
	})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.buildMiddlewareChain(s.router).ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestStandings_AllDivisions(t *testing.T) {
	s := newTestServer(t,
		testPlayer(t, "p1", 100, 1),
		testPlayer(t, "p2", 200, 2),
	)

	rec := doRequest(s, http.MethodGet, "/api/v1/standings", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	divisions, ok := data["divisions"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, divisions, 2)
}

func TestStandings_SingleDivision(t *testing.T) {
	s := newTestServer(t,
		testPlayer(t, "p1", 100, 1),
		testPlayer(t, "p2", 200, 1),
		testPlayer(t, "p3", 300, 2),
	)

	rec := doRequest(s, http.MethodGet, "/api/v1/standings/1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	divisions := data["divisions"].(map[string]interface{})
	require.Len(t, divisions, 1)
	entries := divisions["1"].([]interface{})
	assert.Len(t, entries, 2)
}

func TestStandings_BadDivision(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/standings/zero", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_division", resp.Error.Code)
}

func TestSessionStatus_KnownGroup(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/sessions/house/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "sess-house", data["session_id"])
}

func TestSessionStatus_UnknownGroupIs404(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/sessions/nowhere/status", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestJobs_DisabledScheduler(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/jobs", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.buildMiddlewareChain(s.router).ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), fmt.Sprintf("request %d should pass", i+1))
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "other clients keep their own window")
}
