package relay

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

// Event names on the wire. Inbound frames carry join/leave requests; outbound
// frames carry updates.
const (
	EventJoinDoctor        = "join-doctor"
	EventLeaveDoctor       = "leave-doctor"
	EventAppointmentUpdate = "appointment-update"
	EventQueueUpdate       = "queue-update"
)

// Event is an outbound frame.
type Event struct {
	Event     string          `json:"event"`
	DoctorID  string          `json:"doctorId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ClientMessage is an inbound frame.
type ClientMessage struct {
	Event    string `json:"event"`
	DoctorID string `json:"doctorId"`
}

// RoomName is the room every session following doctorID joins.
func RoomName(doctorID identity.ID) string {
	return "doctor-" + doctorID.Hex()
}

func encodeEvent(kind string, doctorID identity.ID, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{
		Event:     kind,
		DoctorID:  doctorID.Hex(),
		Data:      payload,
		Timestamp: time.Now().UTC(),
	})
}
