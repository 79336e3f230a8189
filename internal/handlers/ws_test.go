package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) TaskEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event TaskEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func send(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestWebSocket_TaskEvents(t *testing.T) {
	h, _, _ := setupHTTP(t)
	srv := startServer(t, h)
	conn := dial(t, srv, nil)
	require.Eventually(t, func() bool { return h.WSHub.Count() == 1 }, time.Second, 10*time.Millisecond)

	resp := send(t, srv, http.MethodPost, "/tasks", `{"title":"Watch me"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := readEvent(t, conn)
	assert.Equal(t, EventTaskCreated, created.Event)
	require.NotNil(t, created.Task)
	assert.Equal(t, "Watch me", created.Task.Title)
	id := created.ID
	assert.Equal(t, id, created.Task.ID)

	resp = send(t, srv, http.MethodPut, "/tasks/"+id, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := readEvent(t, conn)
	assert.Equal(t, EventTaskUpdated, updated.Event)
	assert.Equal(t, id, updated.ID)
	require.NotNil(t, updated.Task)
	assert.Equal(t, "completed", string(updated.Task.Status))

	resp = send(t, srv, http.MethodDelete, "/tasks/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	deleted := readEvent(t, conn)
	assert.Equal(t, EventTaskDeleted, deleted.Event)
	assert.Equal(t, id, deleted.ID)
	assert.Nil(t, deleted.Task)
}

func TestWebSocket_FailedMutationsAreSilent(t *testing.T) {
	h, _, _ := setupHTTP(t)
	srv := startServer(t, h)
	conn := dial(t, srv, nil)
	require.Eventually(t, func() bool { return h.WSHub.Count() == 1 }, time.Second, 10*time.Millisecond)

	resp := send(t, srv, http.MethodPost, "/tasks", `{"title":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = send(t, srv, http.MethodDelete, "/tasks/missing", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = send(t, srv, http.MethodPost, "/tasks", `{"title":"Real"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// the first frame is the successful create, nothing from the failures
	event := readEvent(t, conn)
	assert.Equal(t, EventTaskCreated, event.Event)
	require.NotNil(t, event.Task)
	assert.Equal(t, "Real", event.Task.Title)
}

func TestWebSocket_RateLimited(t *testing.T) {
	h, _, _ := setupHTTP(t)
	h.RateLimiter.Stop()
	h.RateLimiter = NewRateLimiter(1, time.Minute)
	t.Cleanup(h.RateLimiter.Stop)
	srv := startServer(t, h)

	dial(t, srv, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestWebSocket_OriginRejected(t *testing.T) {
	h, _, _ := setupHTTP(t)
	h.AllowedOrigins = []string{"https://app.example"}
	srv := startServer(t, h)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	dial(t, srv, http.Header{"Origin": {"https://app.example"}})
	require.Eventually(t, func() bool { return h.WSHub.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_DisabledWithoutHub(t *testing.T) {
	h, _, _ := setupHTTP(t)
	h.WSHub = nil
	srv := startServer(t, h)

	resp := send(t, srv, http.MethodGet, "/ws", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWSHub_Close(t *testing.T) {
	h, _, _ := setupHTTP(t)
	srv := startServer(t, h)
	conn := dial(t, srv, nil)
	require.Eventually(t, func() bool { return h.WSHub.Count() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.WSHub.Close(ctx))
	assert.Equal(t, 0, h.WSHub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)

	// a closed hub turns new clients away
	late := dial(t, srv, nil)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, h.WSHub.Count())
}
