package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"encodeflow/internal/config"
)

const userAgent = "encodeflow/0.1.0"

// Event identifies a lifecycle milestone worth telling an operator about.
type Event string

const (
	EventEncodingCompleted Event = "encoding_completed"
	EventEncodingFailed    Event = "encoding_failed"
	EventSubmissionFailed  Event = "submission_failed"
	EventTest              Event = "test"
)

// Payload carries event fields. Keys are event specific; missing keys render empty.
type Payload map[string]any

// Service publishes lifecycle events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy backed service when a topic is configured and a
// no-op otherwise.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return Nop()
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Nop()
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: cfg.NotificationTimeout()},
	}
}

// Nop returns a Service that discards every event.
func Nop() Service {
	return noopService{}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	filename := payload.text("filename")
	switch event {
	case EventEncodingCompleted:
		return message{
			title: "encodeflow - Encoded",
			body:  fmt.Sprintf("Encoding complete: %s\nDerived files: %s", filename, payload.text("derived")),
			tags:  []string{"encodeflow", "encode", "completed"},
		}, true
	case EventEncodingFailed:
		return message{
			title:    "encodeflow - Encoding Failed",
			body:     fmt.Sprintf("Provider reported %q for %s (media id %s)", payload.text("status"), filename, payload.text("mediaID")),
			tags:     []string{"encodeflow", "encode", "failed"},
			priority: "high",
		}, true
	case EventSubmissionFailed:
		return message{
			title:    "encodeflow - Submission Failed",
			body:     fmt.Sprintf("Could not submit %s: %s", filename, payload.text("error")),
			tags:     []string{"encodeflow", "submit", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "encodeflow - Test",
			body:     "Notification system test",
			tags:     []string{"encodeflow", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// Recorder captures published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// Recorded is one captured event.
type Recorded struct {
	Event   Event
	Payload Payload
}

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, event Event, payload Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Event: event, Payload: payload})
	return nil
}

// Events returns the recorded events in publish order.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}
