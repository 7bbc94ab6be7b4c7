// Package notify publishes build completion events to NATS when the manifest
// configures it.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/webgen/internal/webfile"
)

// Event is the JSON payload published after every build.
type Event struct {
	BuildID    string        `json:"build_id"`
	Outcome    string        `json:"outcome"`
	Pages      int           `json:"pages"`
	Static     int           `json:"static"`
	Images     int           `json:"images"`
	Warnings   []string      `json:"warnings,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Publisher sends build events over a NATS connection.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect establishes the NATS connection. Returns (nil, nil) when no notify
// block is configured, so callers can publish unconditionally.
func Connect(cfg *webfile.NotifyConfig) (*Publisher, error) {
	if cfg == nil {
		return nil, nil
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("webgen"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", cfg.URL, err)
	}
	slog.Info("Connected to NATS for build notifications", "url", cfg.URL, "subject", cfg.Subject)
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish sends a build event. A nil publisher is a no-op.
func (p *Publisher) Publish(ev Event) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	return nil
}

// Close flushes and drops the connection. A nil publisher is a no-op.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	_ = p.conn.Flush()
	p.conn.Close()
}
