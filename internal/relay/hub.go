// Package relay fans appointment and queue updates out to connected
// receptionist sessions. Sessions join one room per doctor they follow.
//
// Delivery is at-most-once: nothing is queued for sessions that are not
// joined, and a session whose send buffer is full misses the event. Clients
// treat the HTTP API as the source of truth and refetch when in doubt.
package relay

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"go.uber.org/zap"
)

const defaultSendBuffer = 64

// Session is one connected client.
type Session struct {
	ID   string
	Send chan []byte

	// closed is guarded by the owning hub's mu.
	closed bool
}

func NewSession(buffer int) *Session {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Session{ID: uuid.NewString(), Send: make(chan []byte, buffer)}
}

func (s *Session) close() {
	if !s.closed {
		s.closed = true
		close(s.Send)
	}
}

// Bridge carries published frames between instances.
type Bridge interface {
	Publish(ctx context.Context, room string, frame []byte) error
}

type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Session]struct{}
	joined map[*Session]map[string]struct{}

	// deliverMu keeps concurrent publishes to a room in call order per session.
	deliverMu sync.Mutex

	bridge Bridge
	closed bool
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Session]struct{}),
		joined: make(map[*Session]map[string]struct{}),
		log:    log,
	}
}

// SetBridge routes publishes through b. It must be called before serving.
func (h *Hub) SetBridge(b Bridge) {
	h.bridge = b
}

// Register tracks a session that has not joined any room yet. After Close
// the session is closed straight away.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return
	}
	if _, ok := h.joined[s]; !ok {
		h.joined[s] = make(map[string]struct{})
	}
}

// Unregister removes the session from every room and closes its Send channel.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.joined[s]
	if !ok {
		return
	}
	for room := range rooms {
		h.removeLocked(s, room)
	}
	delete(h.joined, s)
	s.close()
}

// Join adds the session to the doctor's room. Joining twice is a no-op, as
// is joining a closed session or joining after Close.
func (h *Hub) Join(s *Session, doctorID identity.ID) {
	room := RoomName(doctorID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || s.closed {
		return
	}

	if _, ok := h.joined[s]; !ok {
		h.joined[s] = make(map[string]struct{})
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
	h.joined[s][room] = struct{}{}
}

// Leave removes the session from the doctor's room; it is safe to call when
// the session never joined.
func (h *Hub) Leave(s *Session, doctorID identity.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s, RoomName(doctorID))
}

func (h *Hub) removeLocked(s *Session, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.joined[s]; ok {
		delete(rooms, room)
	}
}

// Publish sends an event to the doctor's room. It never blocks on slow
// sessions. With a bridge configured the frame goes through the bridge so
// every instance delivers it; if the bridge fails it is delivered locally.
func (h *Hub) Publish(ctx context.Context, doctorID identity.ID, kind string, data interface{}) error {
	frame, err := encodeEvent(kind, doctorID, data)
	if err != nil {
		return err
	}
	room := RoomName(doctorID)

	if h.bridge != nil {
		err := h.bridge.Publish(ctx, room, frame)
		if err == nil {
			return nil
		}
		h.log.Warn("relay bridge publish failed, delivering locally", zap.String("room", room), zap.Error(err))
	}
	h.Deliver(room, frame)
	return nil
}

// Deliver fans a pre-encoded frame out to local members of room and returns
// how many sessions accepted it.
func (h *Hub) Deliver(room string, frame []byte) int {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.rooms[room] {
		select {
		case s.Send <- frame:
			delivered++
		default:
			h.log.Debug("relay session buffer full, dropping frame", zap.String("session", s.ID), zap.String("room", room))
		}
	}
	return delivered
}

func (h *Hub) RoomSize(doctorID identity.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[RoomName(doctorID)])
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.joined)
}

// Close disconnects every session. Later joins and registrations are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.joined {
		s.close()
	}
	h.rooms = make(map[string]map[*Session]struct{})
	h.joined = make(map[*Session]map[string]struct{})
}
