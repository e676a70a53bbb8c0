package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/db/sqlite"
	errs "github.com/iamwavecut/ngmod/internal/errors"
	"github.com/iamwavecut/ngmod/internal/moderation"
	"github.com/iamwavecut/ngmod/internal/observability"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	client, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "api.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	metrics := observability.NewMetrics()
	engine := moderation.New(client, client, moderation.DefaultConfig(), moderation.WithMetrics(metrics))
	return New(engine, client, metrics.Handler(), "127.0.0.1:0")
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	s.Echo().ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out), recorder.Body.String())
	return out
}

func TestIntentWarnEscalation(t *testing.T) {
	assert := assert.New(t)
	s := testServer(t)

	body := `{"command":"warn","actor_id":1,"chat_id":-42,"target":{"id":7,"username":"troll"}}`
	var last moderation.Decision
	for i := 0; i < 3; i++ {
		recorder := do(t, s, http.MethodPost, "/v1/intents", body)
		assert.Equal(http.StatusOK, recorder.Code)
		assert.NotEmpty(recorder.Header().Get(headerRequestID))
		last = decode[moderation.Decision](t, recorder)
	}
	assert.True(last.OK)
	assert.Equal(moderation.CommandWarn, last.Command)
	assert.Equal(3, last.Payload.WarnCount)
	assert.True(last.Payload.Escalated)
	if assert.Len(last.Actions, 1) {
		assert.Equal(moderation.ActionBan, last.Actions[0].Kind)
	}

	recorder := do(t, s, http.MethodGet, "/v1/chats/-42/members/7", "")
	assert.Equal(http.StatusOK, recorder.Code)
	member := decode[db.Member](t, recorder)
	assert.True(member.Banned)
	assert.Equal("troll", member.UserName)
}

func TestIntentErrorsMapToStatus(t *testing.T) {
	assert := assert.New(t)
	s := testServer(t)

	table := []struct {
		body   string
		status int
	}{
		{`{"command":"dance","chat_id":-1}`, http.StatusBadRequest},
		{`{"command":"warn","chat_id":-1}`, http.StatusBadRequest},
		{`{"command":"warns","chat_id":-1,"target":{"id":5}}`, http.StatusNotFound},
		{`not json`, http.StatusBadRequest},
	}
	for _, row := range table {
		recorder := do(t, s, http.MethodPost, "/v1/intents", row.body)
		assert.Equal(row.status, recorder.Code, row.body)
		decision := decode[moderation.Decision](t, recorder)
		assert.False(decision.OK, row.body)
		assert.NotEmpty(decision.Error, row.body)
	}
}

func TestMemberEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := testServer(t)

	assert.Equal(http.StatusNotFound, do(t, s, http.MethodGet, "/v1/chats/-1/members/9", "").Code)
	assert.Equal(http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/chats/abc/members/9", "").Code)

	recorder := do(t, s, http.MethodPost, "/v1/intents", `{"command":"mute","chat_id":-1,"target":{"id":9},"params":"permanent"}`)
	assert.Equal(http.StatusOK, recorder.Code)
	decision := decode[moderation.Decision](t, recorder)
	assert.True(decision.Payload.Permanent)
	assert.Equal("permanently", decision.Payload.DurationText)

	member := decode[db.Member](t, do(t, s, http.MethodGet, "/v1/chats/-1/members/9", ""))
	assert.True(member.Muted)
	assert.Nil(member.MuteUntil)
}

func TestReportsEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := testServer(t)

	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"command":"report","actor_id":1,"chat_id":-5,"target":{"id":%d},"params":"spam %d"}`, 10+i, i)
		assert.Equal(http.StatusOK, do(t, s, http.MethodPost, "/v1/intents", body).Code)
	}

	reports := decode[[]db.Report](t, do(t, s, http.MethodGet, "/v1/chats/-5/reports", ""))
	if assert.Len(reports, 3) {
		assert.Equal("spam 0", reports[0].Reason)
		assert.Equal(db.ReportPending, reports[0].Status)
	}

	reports = decode[[]db.Report](t, do(t, s, http.MethodGet, "/v1/chats/-5/reports?limit=2", ""))
	assert.Len(reports, 2)

	reports = decode[[]db.Report](t, do(t, s, http.MethodGet, "/v1/chats/-6/reports", ""))
	assert.Empty(reports)

	assert.Equal(http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/chats/-5/reports?limit=-1", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	assert := assert.New(t)
	s := testServer(t)

	assert.Equal(http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	do(t, s, http.MethodPost, "/v1/intents", `{"command":"welcome","chat_id":-3}`)

	recorder := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(http.StatusOK, recorder.Code)
	assert.Contains(recorder.Body.String(), `ngmod_decisions_total{command="welcome",outcome="ok"} 1`)

	assert.Equal(http.StatusNotFound, do(t, s, http.MethodGet, "/nope", "").Code)
}

func TestStatusOf(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(http.StatusBadRequest, StatusOf(errs.InvalidInput("x")))
	assert.Equal(http.StatusNotFound, StatusOf(errs.NotFound("x")))
	assert.Equal(http.StatusConflict, StatusOf(errs.ErrConflict))
	assert.Equal(http.StatusServiceUnavailable, StatusOf(errs.Storage("op", errors.New("io"))))
	assert.Equal(http.StatusInternalServerError, StatusOf(errors.New("other")))
}

func TestServerStartStop(t *testing.T) {
	s := testServer(t)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
