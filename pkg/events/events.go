package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/wandernest/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("wandernest-portal"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// NopPublisher drops every event. Used when NATS_URL is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

// Event subjects
const (
	AccessRequested     = "tourist.access.requested"
	AccessVerified      = "tourist.access.verified"
	SessionRestored     = "tourist.session.restored"
	SessionLogout       = "tourist.session.logout"
	RequestsFetchFailed = "tourist.requests.fetch_failed"
	BookingSubmitted    = "tourist.booking.submitted"
)

// SessionEvent is the payload for every tourist.access.* and tourist.session.* subject.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	Email     string    `json:"email,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

type BookingSubmittedEvent struct {
	RequestID   string    `json:"request_id"`
	Email       string    `json:"email"`
	City        string    `json:"city"`
	ServiceType string    `json:"service_type"`
	Guests      int       `json:"guests"`
	At          time.Time `json:"at"`
}
