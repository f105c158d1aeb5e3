package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	doctorA = identity.MustParse("68c15cac7a7bea4f6c332685")
	doctorB = identity.MustParse("68c195256b30441fa3cab701")
)

func receive(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case frame := <-s.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("session did not receive an event")
		return Event{}
	}
}

func assertNothing(t *testing.T, s *Session) {
	t.Helper()
	select {
	case frame := <-s.Send:
		t.Fatalf("unexpected frame %s", frame)
	default:
	}
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := NewSession(8)

	hub.Join(s, doctorA)
	hub.Join(s, doctorA)
	assert.Equal(t, 1, hub.RoomSize(doctorA))

	require.NoError(t, hub.Publish(context.Background(), doctorA, EventAppointmentUpdate, map[string]string{"status": "confirmed"}))
	receive(t, s)
	assertNothing(t, s)
}

func TestHub_LeaveWithoutJoin(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := NewSession(8)

	hub.Leave(s, doctorA)
	hub.Join(s, doctorA)
	hub.Leave(s, doctorA)
	hub.Leave(s, doctorA)
	assert.Equal(t, 0, hub.RoomSize(doctorA))
}

func TestHub_PublishReachesOnlyJoinedSessions(t *testing.T) {
	hub := NewHub(zap.NewNop())
	joined := NewSession(8)
	other := NewSession(8)
	idle := NewSession(8)
	hub.Register(idle)
	hub.Join(joined, doctorA)
	hub.Join(other, doctorB)

	require.NoError(t, hub.Publish(context.Background(), doctorA, EventQueueUpdate, map[string]string{"queueStatus": "waiting"}))

	ev := receive(t, joined)
	assert.Equal(t, EventQueueUpdate, ev.Event)
	assert.Equal(t, doctorA.Hex(), ev.DoctorID)
	assert.JSONEq(t, `{"queueStatus":"waiting"}`, string(ev.Data))
	assertNothing(t, other)
	assertNothing(t, idle)
}

func TestHub_PublishToEmptyRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())
	assert.NoError(t, hub.Publish(context.Background(), doctorA, EventAppointmentUpdate, nil))
}

func TestHub_SlowSessionDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow := NewSession(1)
	fast := NewSession(8)
	hub.Join(slow, doctorA)
	hub.Join(fast, doctorA)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_ = hub.Publish(context.Background(), doctorA, EventAppointmentUpdate, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full session")
	}
	assert.Len(t, slow.Send, 1)
	assert.Len(t, fast.Send, 5)
}

func TestHub_PublishOrderPerSession(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := NewSession(16)
	hub.Join(s, doctorA)

	for i := 0; i < 10; i++ {
		require.NoError(t, hub.Publish(context.Background(), doctorA, EventAppointmentUpdate, i))
	}
	for i := 0; i < 10; i++ {
		ev := receive(t, s)
		assert.Equal(t, string(rune('0'+i)), string(ev.Data))
	}
}

func TestHub_UnregisterLeavesEveryRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := NewSession(8)
	hub.Join(s, doctorA)
	hub.Join(s, doctorB)

	hub.Unregister(s)
	hub.Unregister(s)

	assert.Equal(t, 0, hub.RoomSize(doctorA))
	assert.Equal(t, 0, hub.RoomSize(doctorB))
	assert.Equal(t, 0, hub.SessionCount())
	_, open := <-s.Send
	assert.False(t, open)
}

func TestHub_JoinAfterCloseIsRefused(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := NewSession(8)
	hub.Register(s)
	hub.Close()

	hub.Join(s, doctorA)
	assert.Equal(t, 0, hub.RoomSize(doctorA))
	assert.Zero(t, hub.Deliver(RoomName(doctorA), []byte(`{}`)))
	_, open := <-s.Send
	assert.False(t, open)

	late := NewSession(8)
	hub.Register(late)
	hub.Join(late, doctorA)
	assert.Equal(t, 0, hub.SessionCount())
	_, open = <-late.Send
	assert.False(t, open)
}

func TestHub_JoinAfterUnregisterIsRefused(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := NewSession(8)
	hub.Register(s)
	hub.Unregister(s)

	hub.Join(s, doctorA)
	assert.Equal(t, 0, hub.RoomSize(doctorA))
	assert.Zero(t, hub.Deliver(RoomName(doctorA), []byte(`{}`)))
}

type fakeBridge struct {
	err    error
	frames [][]byte
}

func (b *fakeBridge) Publish(_ context.Context, _ string, frame []byte) error {
	b.frames = append(b.frames, frame)
	return b.err
}

func TestHub_BridgeRoutesPublishes(t *testing.T) {
	hub := NewHub(zap.NewNop())
	bridge := &fakeBridge{}
	hub.SetBridge(bridge)
	s := NewSession(8)
	hub.Join(s, doctorA)

	require.NoError(t, hub.Publish(context.Background(), doctorA, EventAppointmentUpdate, "x"))
	assert.Len(t, bridge.frames, 1)
	assertNothing(t, s)

	hub.Deliver(RoomName(doctorA), bridge.frames[0])
	assert.Equal(t, EventAppointmentUpdate, receive(t, s).Event)
}

func TestHub_BridgeFailureFallsBackToLocal(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.SetBridge(&fakeBridge{err: errors.New("redis down")})
	s := NewSession(8)
	hub.Join(s, doctorA)

	require.NoError(t, hub.Publish(context.Background(), doctorA, EventAppointmentUpdate, "x"))
	assert.Equal(t, EventAppointmentUpdate, receive(t, s).Event)
}
