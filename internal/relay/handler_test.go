package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "valid-token"

func acceptTestToken(_ context.Context, token string) error {
	if token != testToken {
		return errors.New("bad token")
	}
	return nil
}

func newRelayServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())
	h := NewHandler(hub, acceptTestToken, []string{"http://localhost:3000"}, zap.NewNop())

	router := gin.New()
	router.GET("/api/socket", h.ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/socket?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, event, doctorID string) {
	t.Helper()
	payload, err := json.Marshal(ClientMessage{Event: event, DoctorID: doctorID})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func TestServeWS_RequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewHub(zap.NewNop()), acceptTestToken, nil, zap.NewNop())
	router := gin.New()
	router.GET("/api/socket", h.ServeWS)

	for _, target := range []string{"/api/socket", "/api/socket?token=forged"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}

func TestServeWS_RejectsForeignOrigin(t *testing.T) {
	_, srv := newRelayServer(t)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/socket?token=" + testToken

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(u, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeWS_JoinThenReceive(t *testing.T) {
	hub, srv := newRelayServer(t)
	conn := dial(t, srv, testToken)

	sendMessage(t, conn, EventJoinDoctor, doctorA.Hex())
	require.Eventually(t, func() bool { return hub.RoomSize(doctorA) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), doctorA, EventAppointmentUpdate, map[string]string{"status": "confirmed"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(message, &ev))
	assert.Equal(t, EventAppointmentUpdate, ev.Event)
	assert.Equal(t, doctorA.Hex(), ev.DoctorID)
	assert.JSONEq(t, `{"status":"confirmed"}`, string(ev.Data))
}

func TestServeWS_InvalidDoctorIDIsIgnored(t *testing.T) {
	hub, srv := newRelayServer(t)
	conn := dial(t, srv, testToken)

	sendMessage(t, conn, EventJoinDoctor, "not-an-id")
	sendMessage(t, conn, EventJoinDoctor, strings.ToUpper(doctorB.Hex()))
	require.Eventually(t, func() bool { return hub.RoomSize(doctorB) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.SessionCount())
}

func TestServeWS_LeaveStopsDelivery(t *testing.T) {
	hub, srv := newRelayServer(t)
	conn := dial(t, srv, testToken)

	sendMessage(t, conn, EventJoinDoctor, doctorA.Hex())
	require.Eventually(t, func() bool { return hub.RoomSize(doctorA) == 1 }, time.Second, 10*time.Millisecond)
	sendMessage(t, conn, EventLeaveDoctor, doctorA.Hex())
	require.Eventually(t, func() bool { return hub.RoomSize(doctorA) == 0 }, time.Second, 10*time.Millisecond)
}

func TestServeWS_DisconnectUnregisters(t *testing.T) {
	hub, srv := newRelayServer(t)
	conn := dial(t, srv, testToken)

	sendMessage(t, conn, EventJoinDoctor, doctorA.Hex())
	require.Eventually(t, func() bool { return hub.RoomSize(doctorA) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.RoomSize(doctorA))
}
