package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/challenge-progress/internal/challenge"
	"github.com/terra-clan/challenge-progress/internal/completion"
	"github.com/terra-clan/challenge-progress/internal/config"
	"github.com/terra-clan/challenge-progress/internal/events"
	"github.com/terra-clan/challenge-progress/internal/leaderboard"
	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/payload"
	"github.com/terra-clan/challenge-progress/internal/progress"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type testEnv struct {
	server  *Server
	backend storage.Backend
	deps    Deps
}

func newTestEnv(t *testing.T, backend storage.Backend, token string) *testEnv {
	t.Helper()

	ps := progress.NewStore(backend,
		progress.WithUserIDGenerator(func() string { return "me" }),
		progress.WithUsernameGenerator(func() string { return "User_1234" }),
	)
	lb := leaderboard.NewStore(backend, 100)
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	deps := Deps{
		Backend:     backend,
		Catalog:     challenge.NewCatalog(),
		Normalizer:  challenge.DefaultNormalizer(),
		Progress:    ps,
		Leaderboard: lb,
		Coordinator: completion.NewCoordinator(challenge.DefaultNormalizer(), ps, lb, bus),
		Payloads:    payload.NewAccessor(ps, backend),
		Bus:         bus,
	}

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080, APIToken: token}
	return &testEnv{server: NewServer(cfg, deps), backend: backend, deps: deps}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)

	code, _ = env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, code)
}

type unhealthy struct{}

func (unhealthy) Healthy() bool { return false }

func TestReady_UnhealthyMonitor(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")
	env.server.deps.Health = unhealthy{}

	code, body := env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body.Error.Code)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "s3cret-token")

	code, body := env.do(t, http.MethodGet, "/api/v1/user/id", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing_api_key", body.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/id", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/user/id", nil)
	req.Header.Set("Authorization", "Bearer s3cret-token")
	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays public
	code, _ = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestCompleteChallenge(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, body := env.do(t, http.MethodPost, "/api/v1/challenges/challenge-dictation-wizard/complete", "")
	require.Equal(t, http.StatusOK, code)
	res := decode[completion.Result](t, body.Data)
	assert.Equal(t, "challenge-1", res.ChallengeID)
	assert.True(t, res.NewlyCompleted)
	assert.Equal(t, 150, res.Score)

	code, body = env.do(t, http.MethodPost, "/api/v1/challenges/challenge-1/complete", "")
	require.Equal(t, http.StatusOK, code)
	res = decode[completion.Result](t, body.Data)
	assert.False(t, res.NewlyCompleted)
	assert.Equal(t, 150, res.Score)

	code, body = env.do(t, http.MethodGet, "/api/v1/progress", "")
	require.Equal(t, http.StatusOK, code)
	p := decode[models.UserProgress](t, body.Data)
	assert.Equal(t, []string{"challenge-1"}, p.CompletedChallenges)

	code, body = env.do(t, http.MethodGet, "/api/v1/score", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"score":150,"completedChallenges":1}`, string(body.Data))
}

func TestListChallenges(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")
	env.do(t, http.MethodPost, "/api/v1/challenges/challenge-ocr/complete", "")

	code, body := env.do(t, http.MethodGet, "/api/v1/challenges", "")
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Challenges []models.ChallengeStatus `json:"challenges"`
		Total      int                      `json:"total"`
		Completed  int                      `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, len(challenge.DefaultChallenges()), data.Total)
	assert.Equal(t, 1, data.Completed)
	for _, ch := range data.Challenges {
		assert.Equal(t, ch.ID == "challenge-ocr", ch.Completed, ch.ID)
	}
}

func TestNormalizeChallenge(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, body := env.do(t, http.MethodGet, "/api/v1/challenges/dictation/normalize", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"input":"dictation","canonical":"challenge-1","alias":true,"known":true,
		"aliases":["challenge-dictation-wizard","dictation","dictation-wizard"]}`, string(body.Data))

	_, body = env.do(t, http.MethodGet, "/api/v1/challenges/challenge-1/normalize", "")
	assert.JSONEq(t, `{"input":"challenge-1","canonical":"challenge-1","alias":false,"known":true,
		"aliases":["challenge-dictation-wizard","dictation","dictation-wizard"]}`, string(body.Data))

	_, body = env.do(t, http.MethodGet, "/api/v1/challenges/challenge-new/normalize", "")
	assert.JSONEq(t, `{"input":"challenge-new","canonical":"challenge-new","alias":false,"known":false,"aliases":[]}`, string(body.Data))
}

func TestListAliases(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, body := env.do(t, http.MethodGet, "/api/v1/challenges/aliases", "")
	require.Equal(t, http.StatusOK, code)

	var aliases map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &aliases))
	assert.Equal(t, "challenge-1", aliases["challenge-dictation-wizard"])
	assert.Equal(t, "challenge-ocr", aliases["ocr"])
	assert.NotContains(t, aliases, "challenge-1")
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, body := env.do(t, http.MethodGet, "/api/v1/preferences", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"username":"User_1234","showLeaderboard":true,"darkMode":false}`, string(body.Data))

	code, body = env.do(t, http.MethodPut, "/api/v1/preferences", `{"darkMode":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"username":"User_1234","showLeaderboard":true,"darkMode":true}`, string(body.Data))

	code, body = env.do(t, http.MethodPut, "/api/v1/preferences", `{"username":"`+strings.Repeat("n", 50)+`"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", body.Error.Code)

	code, _ = env.do(t, http.MethodPut, "/api/v1/preferences", `{`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLeaderboard_HidesOptedOutProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	_, err := env.deps.Leaderboard.Upsert(ctx, models.LeaderboardEntry{ID: "other", Username: "Other", Score: 450})
	require.NoError(t, err)
	env.do(t, http.MethodPost, "/api/v1/challenges/challenge-ocr/complete", "")

	code, body := env.do(t, http.MethodGet, "/api/v1/leaderboard", "")
	require.Equal(t, http.StatusOK, code)
	var board struct {
		Entries []models.RankedEntry `json:"entries"`
		Total   int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &board))
	require.Equal(t, 2, board.Total)
	assert.Equal(t, "other", board.Entries[0].ID)
	assert.Equal(t, "me", board.Entries[1].ID)
	assert.Equal(t, 2, board.Entries[1].Rank)

	_, body = env.do(t, http.MethodGet, "/api/v1/leaderboard/rank", "")
	assert.JSONEq(t, `{"userId":"me","rank":2,"ranked":true,"hidden":false}`, string(body.Data))

	env.do(t, http.MethodPut, "/api/v1/preferences", `{"showLeaderboard":false}`)

	_, body = env.do(t, http.MethodGet, "/api/v1/leaderboard", "")
	require.NoError(t, json.Unmarshal(body.Data, &board))
	require.Equal(t, 1, board.Total)
	assert.Equal(t, "other", board.Entries[0].ID)

	_, body = env.do(t, http.MethodGet, "/api/v1/leaderboard/rank", "")
	assert.JSONEq(t, `{"userId":"me","ranked":false,"hidden":true}`, string(body.Data))

	// the hidden score is still kept
	entry, ok, err := env.deps.Leaderboard.Get(ctx, "me")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 150, entry.Score)
}

func TestLeaderboard_Limit(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")
	env.do(t, http.MethodPost, "/api/v1/challenges/challenge-ocr/complete", "")
	_, err := env.deps.Leaderboard.Upsert(context.Background(), models.LeaderboardEntry{ID: "other", Score: 900})
	require.NoError(t, err)

	_, body := env.do(t, http.MethodGet, "/api/v1/leaderboard?limit=1", "")
	var board struct {
		Entries []models.RankedEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "other", board.Entries[0].ID)

	code, _ := env.do(t, http.MethodGet, "/api/v1/leaderboard?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")
	env.do(t, http.MethodPost, "/api/v1/challenges/challenge-2/complete", "")
	env.do(t, http.MethodPost, "/api/v1/challenges/challenge-3/complete", "")

	code, body := env.do(t, http.MethodGet, "/api/v1/me", "")
	require.Equal(t, http.StatusOK, code)
	me := decode[meResponse](t, body.Data)
	assert.Equal(t, "me", me.UserID)
	assert.Equal(t, 300, me.Score)
	require.NotNil(t, me.Rank)
	assert.Equal(t, 1, *me.Rank)
	assert.ElementsMatch(t, []string{"challenge-2", "challenge-3"}, me.Progress.CompletedChallenges)
}

func TestResetProgress(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")
	env.do(t, http.MethodPost, "/api/v1/challenges/challenge-ocr/complete", "")

	code, _ := env.do(t, http.MethodDelete, "/api/v1/progress", "")
	require.Equal(t, http.StatusOK, code)

	_, body := env.do(t, http.MethodGet, "/api/v1/score", "")
	assert.JSONEq(t, `{"score":0,"completedChallenges":0}`, string(body.Data))

	_, body = env.do(t, http.MethodGet, "/api/v1/user/id", "")
	assert.JSONEq(t, `{"userId":"me"}`, string(body.Data))

	// leaderboard history survives a reset
	_, ok, err := env.deps.Leaderboard.Get(context.Background(), "me")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPayloads(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, _ := env.do(t, http.MethodGet, "/api/v1/payloads/challenge-4", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodPut, "/api/v1/payloads/challenge-4", `{"winner":"model-b"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := env.do(t, http.MethodGet, "/api/v1/payloads/challenge-4", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"winner":"model-b"}`, string(body.Data))

	code, body = env.do(t, http.MethodPut, "/api/v1/payloads/brainstorm", `{"topic":"launch","ideas":["a"]}`)
	require.Equal(t, http.StatusOK, code)
	bs := decode[models.Brainstorm](t, body.Data)
	assert.Equal(t, "launch", bs.Topic)
	assert.False(t, bs.UpdatedAt.IsZero())

	code, body = env.do(t, http.MethodPut, "/api/v1/payloads/brainstorm", `{"topik":"typo"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", body.Error.Code)

	code, _ = env.do(t, http.MethodPut, "/api/v1/payloads/brainstorm", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	_, body = env.do(t, http.MethodGet, "/api/v1/payloads", "")
	var list struct {
		Namespaces []string `json:"namespaces"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	assert.Equal(t, []string{"brainstorm", "challenge-4"}, list.Namespaces)

	// saving payloads never completes anything
	_, body = env.do(t, http.MethodGet, "/api/v1/score", "")
	assert.JSONEq(t, `{"score":0,"completedChallenges":0}`, string(body.Data))

	code, _ = env.do(t, http.MethodDelete, "/api/v1/payloads/challenge-4", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, "/api/v1/payloads/challenge-4", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBlobs_NormalizeChallengeID(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, _ := env.do(t, http.MethodPut, "/api/v1/blobs/dictation-wizard", `{"words":12}`)
	require.Equal(t, http.StatusOK, code)

	raw, err := env.backend.Get(context.Background(), "challenge_challenge-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"words":12}`, raw)

	code, body := env.do(t, http.MethodGet, "/api/v1/blobs/challenge-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"words":12}`, string(body.Data))

	code, _ = env.do(t, http.MethodDelete, "/api/v1/blobs/challenge-1", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, "/api/v1/blobs/challenge-1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTranslations(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")

	code, body := env.do(t, http.MethodPost, "/api/v1/translations",
		`{"sourceText":"hola","translatedText":"hello","sourceLanguage":"es","targetLanguage":"en"}`)
	require.Equal(t, http.StatusCreated, code)
	saved := decode[models.TranslationRecord](t, body.Data)
	assert.NotEmpty(t, saved.ID)

	code, _ = env.do(t, http.MethodPost, "/api/v1/translations", `{"translatedText":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	_, body = env.do(t, http.MethodGet, "/api/v1/translations", "")
	var history struct {
		Translations []models.TranslationRecord `json:"translations"`
		Total        int                       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &history))
	require.Equal(t, 1, history.Total)
	assert.Equal(t, saved.ID, history.Translations[0].ID)

	code, _ = env.do(t, http.MethodDelete, "/api/v1/translations", "")
	require.Equal(t, http.StatusOK, code)
	_, body = env.do(t, http.MethodGet, "/api/v1/translations", "")
	require.NoError(t, json.Unmarshal(body.Data, &history))
	assert.Equal(t, 0, history.Total)
}

type downBackend struct {
	*storage.MemoryBackend
}

var errDown = errors.New("connection refused")

func (downBackend) Get(context.Context, string) (string, error) { return "", errDown }
func (downBackend) Set(context.Context, string, string) error { return errDown }
func (downBackend) Ping(context.Context) error { return errDown }

func TestStorageUnavailable(t *testing.T) {
	env := newTestEnv(t, downBackend{storage.NewMemoryBackend()}, "")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/progress"},
		{http.MethodGet, "/api/v1/me"},
		{http.MethodPost, "/api/v1/challenges/challenge-1/complete"},
		{http.MethodGet, "/api/v1/leaderboard"},
	} {
		code, body := env.do(t, tc.method, tc.path, "")
		assert.Equal(t, http.StatusServiceUnavailable, code, tc.path)
		require.NotNil(t, body.Error, tc.path)
		assert.Equal(t, "storage_unavailable", body.Error.Code, tc.path)
	}

	code, _ := env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, storage.NewMemoryBackend(), "")
	ts := httptest.NewServer(env.server.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)

	resp, err := http.Post(ts.URL+"/api/v1/challenges/ocr/complete", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "completion", msg.Type)
	assert.Equal(t, "challenge-ocr", msg.ChallengeID)
	require.NotNil(t, msg.CompletedAt)
}
