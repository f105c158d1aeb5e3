package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"go.uber.org/zap"
)

// Keepalive settings mirror what browser clients were tuned against.
const (
	PingInterval   = 25 * time.Second
	PongWait       = 60 * time.Second
	WriteWait      = 10 * time.Second
	MaxMessageSize = 1 << 20
)

// TokenValidator authenticates the token presented on the upgrade request.
type TokenValidator func(ctx context.Context, token string) error

type Handler struct {
	hub      *Hub
	validate TokenValidator
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(hub *Hub, validate TokenValidator, allowedOrigins []string, log *zap.Logger) *Handler {
	return &Handler{
		hub:      hub,
		validate: validate,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades GET /api/socket. Browsers cannot set headers on websocket
// requests, so the session token is also accepted as ?token=.
func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization required"})
		return
	}
	if err := h.validate(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Session expired, please log in again"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := NewSession(defaultSendBuffer)
	h.hub.Register(session)
	h.log.Debug("relay session connected", zap.String("session", session.ID))

	go h.writePump(session, conn)
	go h.readPump(session, conn)
}

func (h *Handler) readPump(s *Session, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(s)
		conn.Close()
		h.log.Debug("relay session disconnected", zap.String("session", s.ID))
	}()

	conn.SetReadLimit(MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.process(s, msg)
	}
}

func (h *Handler) process(s *Session, msg ClientMessage) {
	if msg.Event != EventJoinDoctor && msg.Event != EventLeaveDoctor {
		return
	}
	doctorID, err := identity.Parse(msg.DoctorID)
	if err != nil {
		h.log.Info("ignoring room request with invalid doctor id",
			zap.String("session", s.ID), zap.String("event", msg.Event), zap.String("doctorId", msg.DoctorID))
		return
	}
	if msg.Event == EventJoinDoctor {
		h.hub.Join(s, doctorID)
	} else {
		h.hub.Leave(s, doctorID)
	}
}

func (h *Handler) writePump(s *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
