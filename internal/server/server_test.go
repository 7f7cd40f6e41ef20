package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qna-forum/backend/internal/cache"
	"github.com/emilythestrangee/qna-forum/backend/internal/config"
	"github.com/emilythestrangee/qna-forum/backend/internal/database"
	"github.com/emilythestrangee/qna-forum/backend/internal/database/dbtest"
	"github.com/emilythestrangee/qna-forum/backend/internal/server"
)

type client struct {
	t *testing.T
	h http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(config.DB{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "forum.db"),
	}, dbtest.QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log, _ := test.NewNullLogger()
	cfg := &config.Config{
		Port:           "0",
		JWTSecret:      []byte("server-test"),
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
	}
	s := server.New(cfg, db, cache.NewIdentities(nil, 0, log), log)
	return &client{t: t, h: s.RegisterRoutes()}
}

func (c *client) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (c *client) list(path, token string) []map[string]interface{} {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())

	var out []map[string]interface{}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (c *client) register(name string) string {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	return body["token"].(string)
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	code, body := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "up", body["status"])
	assert.Equal(t, "sqlite", body["driver"])
}

func TestAuthFlow(t *testing.T) {
	c := newClient(t)
	c.register("alice")

	code, _ := c.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = c.do(http.MethodPost, "/api/register", "", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/api/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := c.do(http.MethodPost, "/api/login", "", map[string]string{
		"email": "ALICE@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)
	user := body["user"].(map[string]interface{})
	assert.NotContains(t, user, "password")

	code, body = c.do(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])

	code, body = c.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Please log in", body["error"])
}

func TestQuestionVotingOverHTTP(t *testing.T) {
	c := newClient(t)
	alice := c.register("alice")
	bob := c.register("bob")

	question := map[string]interface{}{
		"title":   "What is inertia?",
		"content": "<p>Newton's first law</p>",
		"subject": "physics",
		"form":    "four",
		"tags":    []string{"Newton", "motion", "newton"},
	}
	code, _ := c.do(http.MethodPost, "/api/questions", "", question)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := c.do(http.MethodPost, "/api/questions", alice, question)
	require.Equal(t, http.StatusCreated, code, body)
	qid := body["id"].(string)
	assert.Len(t, body["tags"], 2)

	vote := func(token string, dir string, remove bool) (int, map[string]interface{}) {
		return c.do(http.MethodPost, "/api/questions/"+qid+"/vote", token, map[string]interface{}{
			"vote_type": dir, "remove": remove,
		})
	}

	code, _ = vote("", "up", false)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = vote(bob, "up", false)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["score"])
	assert.Equal(t, "up", body["vote"])
	assert.EqualValues(t, 1, body["delta"])

	code, body = vote(alice, "down", false)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["score"])

	code, body = vote(bob, "down", false)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, -2, body["score"])
	assert.EqualValues(t, -2, body["delta"])

	code, body = vote(bob, "down", true)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, -1, body["score"])
	assert.Equal(t, "none", body["vote"])

	code, _ = vote(bob, "sideways", false)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/api/questions/missing/vote", bob, map[string]interface{}{"vote_type": "up"})
	assert.Equal(t, http.StatusNotFound, code)

	list := c.list("/api/questions", alice)
	require.Len(t, list, 1)
	assert.EqualValues(t, -1, list[0]["votes_count"])
	assert.Equal(t, "down", list[0]["viewer_vote"])

	anon := c.list("/api/subjects/physics/questions", "")
	require.Len(t, anon, 1)
	assert.Equal(t, "none", anon[0]["viewer_vote"])

	code, _ = c.do(http.MethodGet, "/api/subjects/astrology/questions", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = c.do(http.MethodGet, "/api/subjects/counts", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["physics"])
	assert.EqualValues(t, 0, body["history"])

	code, _ = c.do(http.MethodGet, "/api/questions?limit=zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestThreadOverHTTP(t *testing.T) {
	c := newClient(t)
	alice := c.register("alice")
	bob := c.register("bob")

	code, body := c.do(http.MethodPost, "/api/questions", alice, map[string]interface{}{
		"title": "Balance this equation", "content": "H2 + O2", "subject": "chemistry", "form": "five",
	})
	require.Equal(t, http.StatusCreated, code, body)
	qid := body["id"].(string)

	code, _ = c.do(http.MethodPut, "/api/questions/"+qid, bob, map[string]interface{}{"title": "mine"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = c.do(http.MethodPost, "/api/questions/"+qid+"/answers", bob, map[string]interface{}{"content": "2H2 + O2 -> 2H2O"})
	require.Equal(t, http.StatusCreated, code, body)
	aid := body["id"].(string)

	code, body = c.do(http.MethodPost, "/api/answers/"+aid+"/vote", alice, map[string]interface{}{"vote_type": "up"})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["score"])

	code, body = c.do(http.MethodPost, "/api/answers/"+aid+"/comments", alice, map[string]interface{}{"content": "Thanks"})
	require.Equal(t, http.StatusCreated, code, body)
	cid := body["id"].(string)

	code, _ = c.do(http.MethodPost, "/api/questions/"+qid+"/comments", bob, map[string]interface{}{"content": "Which state?"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = c.do(http.MethodPost, "/api/questions/"+qid+"/view", "", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, body = c.do(http.MethodGet, "/api/questions/"+qid, bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["answers_count"])
	assert.EqualValues(t, 1, body["views_count"])
	assert.Len(t, body["comments"], 1)
	answers := body["answers"].([]interface{})
	require.Len(t, answers, 1)
	answer := answers[0].(map[string]interface{})
	assert.EqualValues(t, 1, answer["votes_count"])
	assert.Equal(t, "none", answer["viewer_vote"])
	assert.Len(t, answer["comments"], 1)

	code, _ = c.do(http.MethodGet, "/api/users/bob", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, body = c.do(http.MethodGet, "/api/users/bob", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["answers"], 1)

	code, _ = c.do(http.MethodDelete, "/api/comments/"+cid, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = c.do(http.MethodDelete, "/api/comments/"+cid, alice, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodDelete, "/api/questions/"+qid, alice, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/questions/"+qid, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodPost, "/api/answers/"+aid+"/vote", alice, map[string]interface{}{"vote_type": "down"})
	assert.Equal(t, http.StatusNotFound, code)
}
