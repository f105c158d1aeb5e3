// Package client is the subscriber side of the relay: it keeps one websocket
// open to the API, follows a single doctor's room and hands incoming events to
// callbacks.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/relay"
	"go.uber.org/zap"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

var ErrGaveUp = errors.New("relay: reconnect attempts exhausted")

type Handlers struct {
	OnAppointmentUpdate func(relay.Event)
	OnQueueUpdate       func(relay.Event)
}

type Options struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/api/socket.
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	MaxAttempts      int
	BaseDelay        time.Duration
	Logger           *zap.Logger
}

func (o *Options) withDefaults() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type Subscriber struct {
	opts   Options
	dialer *websocket.Dialer
	state  atomic.Int32

	mu       sync.Mutex
	conn     *websocket.Conn
	doctorID identity.ID
	handlers Handlers

	writeMu sync.Mutex
	done    chan struct{}
	err     error
}

func New(opts Options) *Subscriber {
	opts.withDefaults()
	return &Subscriber{
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		done:   make(chan struct{}),
	}
}

func (s *Subscriber) State() State {
	return State(s.state.Load())
}

// Done is closed when the subscriber stops for good: ctx was cancelled,
// Close was called, or reconnecting failed MaxAttempts times in a row.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Err reports why the subscriber stopped; it is nil after a clean shutdown.
func (s *Subscriber) Err() error {
	<-s.done
	return s.err
}

// Connect dials the relay and keeps the connection alive in the background
// until ctx is done. It returns once the first connection is established.
func (s *Subscriber) Connect(ctx context.Context) error {
	conn, err := s.dialWithBackoff(ctx)
	if err != nil {
		s.finish(err)
		return err
	}
	s.attach(conn)
	go s.run(ctx, conn)
	return nil
}

// Subscribe follows doctorID, replacing any previously followed doctor. It
// may be called before or after Connect.
func (s *Subscriber) Subscribe(doctorID identity.ID, h Handlers) error {
	s.mu.Lock()
	previous := s.doctorID
	s.doctorID = doctorID
	s.handlers = h
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if !previous.IsZero() && previous != doctorID {
		if err := s.send(conn, relay.EventLeaveDoctor, previous); err != nil {
			return err
		}
	}
	return s.send(conn, relay.EventJoinDoctor, doctorID)
}

func (s *Subscriber) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	s.state.Store(int32(Disconnected))
	if conn == nil {
		return nil
	}
	s.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return conn.Close()
}

func (s *Subscriber) run(ctx context.Context, conn *websocket.Conn) {
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	for {
		s.readLoop(conn)
		if ctx.Err() != nil || s.closed() {
			s.finish(nil)
			return
		}

		s.opts.Logger.Info("relay connection lost, reconnecting")
		next, err := s.dialWithBackoff(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = nil
			}
			s.finish(err)
			return
		}
		s.attach(next)
		conn = next
	}
}

func (s *Subscriber) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn == nil
}

// attach installs conn as the live connection and re-joins the followed room.
func (s *Subscriber) attach(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	doctorID := s.doctorID
	s.mu.Unlock()
	s.state.Store(int32(Connected))

	if !doctorID.IsZero() {
		if err := s.send(conn, relay.EventJoinDoctor, doctorID); err != nil {
			s.opts.Logger.Warn("relay re-join failed", zap.Error(err))
		}
	}
}

func (s *Subscriber) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.state.Store(int32(Disconnected))
			return
		}
		var ev relay.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			continue
		}
		s.dispatch(ev)
	}
}

func (s *Subscriber) dispatch(ev relay.Event) {
	s.mu.Lock()
	h := s.handlers
	following := s.doctorID.Hex()
	s.mu.Unlock()

	// Frames for a room left moments ago can still be in flight.
	if ev.DoctorID != following {
		return
	}
	switch ev.Event {
	case relay.EventAppointmentUpdate:
		if h.OnAppointmentUpdate != nil {
			h.OnAppointmentUpdate(ev)
		}
	case relay.EventQueueUpdate:
		if h.OnQueueUpdate != nil {
			h.OnQueueUpdate(ev)
		}
	}
}

func (s *Subscriber) send(conn *websocket.Conn, event string, doctorID identity.ID) error {
	payload, err := json.Marshal(relay.ClientMessage{Event: event, DoctorID: doctorID.Hex()})
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// dialWithBackoff tries up to MaxAttempts times, doubling the delay between
// attempts starting from BaseDelay.
func (s *Subscriber) dialWithBackoff(ctx context.Context) (*websocket.Conn, error) {
	target, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	s.state.Store(int32(Connecting))
	delay := s.opts.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		conn, _, err := s.dialer.DialContext(ctx, target, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		s.opts.Logger.Debug("relay dial failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == s.opts.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.state.Store(int32(Disconnected))
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	s.state.Store(int32(Disconnected))
	return nil, fmt.Errorf("%w: %v", ErrGaveUp, lastErr)
}

func (s *Subscriber) endpoint() (string, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return "", fmt.Errorf("invalid relay url: %w", err)
	}
	if s.opts.Token != "" {
		q := u.Query()
		q.Set("token", s.opts.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Subscriber) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	s.err = err
	s.state.Store(int32(Disconnected))
	close(s.done)
}
