package journal

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSSink forwards journal events to a NATS subject as JSON. It is an
// outbound-only observability tap; nothing in the framework consumes these
// messages.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to the given NATS URL. The subject must be non-empty.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats sink requires a subject")
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

// Attach subscribes the sink to every event on the bus.
func (s *NATSSink) Attach(bus *Bus) {
	bus.SubscribeAll(s.publish)
}

func (s *NATSSink) publish(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("publish event to %s: %w", s.subject, err)
	}
	return nil
}

// Close drains the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
