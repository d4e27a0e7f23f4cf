package line

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zhouzirui/line-relay/backend/internal/model/chat"
)

// Webhook is the body of one LINE inbound delivery.
type Webhook struct {
	Destination string  `json:"destination,omitempty"`
	Events      []Event `json:"events"`
}

// Event is the wire form of a webhook event.
type Event struct {
	Type       string   `json:"type"`
	ReplyToken string   `json:"replyToken,omitempty"`
	Timestamp  int64    `json:"timestamp,omitempty"`
	Source     Source   `json:"source"`
	Message    *Message `json:"message,omitempty"`
}

// Source identifies who sent the event.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// Message is the message payload of a "message" event.
type Message struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ErrMissingEvents is returned when the body has no "events" array.
var ErrMissingEvents = errors.New("webhook body has no events field")

// ParseWebhook decodes a webhook body. An empty events array is valid (LINE sends it when
// verifying the endpoint); a missing one is not.
func ParseWebhook(body []byte) (*Webhook, error) {
	var envelope struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if len(envelope.Events) == 0 || string(envelope.Events) == "null" {
		return nil, ErrMissingEvents
	}

	var hook Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("decode webhook events: %w", err)
	}
	return &hook, nil
}

// ID returns the durable push target of the source.
func (s Source) ID() string {
	switch {
	case s.GroupID != "":
		return s.GroupID
	case s.RoomID != "":
		return s.RoomID
	default:
		return s.UserID
	}
}

// ToEvent converts the wire event into the dispatcher's representation.
func (e Event) ToEvent() chat.Event {
	out := chat.Event{
		SourceID:   e.Source.ID(),
		UserID:     e.Source.UserID,
		ReplyToken: e.ReplyToken,
	}

	switch e.Type {
	case "message":
		out.Kind = chat.EventMessage
		if e.Message != nil {
			out.MessageType = e.Message.Type
			if e.Message.Type == "text" {
				text := e.Message.Text
				out.Text = &text
			}
		}
	case "follow":
		out.Kind = chat.EventFollow
	case "join":
		out.Kind = chat.EventJoin
	default:
		out.Kind = chat.EventOther
	}
	return out
}

// ToEvents converts every event of the delivery, preserving order.
func (w *Webhook) ToEvents() []chat.Event {
	events := make([]chat.Event, 0, len(w.Events))
	for _, e := range w.Events {
		events = append(events, e.ToEvent())
	}
	return events
}
