package chat

// EventKind classifies an inbound platform event.
type EventKind int

const (
	EventOther EventKind = iota
	EventMessage
	EventFollow
	EventJoin
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventFollow:
		return "follow"
	case EventJoin:
		return "join"
	default:
		return "other"
	}
}

// Event is one item of an inbound delivery. It is immutable and consumed once.
type Event struct {
	Kind EventKind
	// SourceID is the durable push target: user, group or room id.
	SourceID string
	// UserID is empty for group/room events sent by users who did not share their profile.
	UserID string
	// ReplyToken is single use and tied to this event.
	ReplyToken string
	// MessageType is the platform message type ("text", "sticker", ...) for message events.
	MessageType string
	Text        *string
}

// SessionKey returns the identity conversational state is kept under.
func (e Event) SessionKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.SourceID
}

// TextValue returns the message text, or "" when the event carries none.
func (e Event) TextValue() string {
	if e.Text == nil {
		return ""
	}
	return *e.Text
}

// NewTextEvent builds a text message event.
func NewTextEvent(userID, replyToken, text string) Event {
	return Event{
		Kind:        EventMessage,
		SourceID:    userID,
		UserID:      userID,
		ReplyToken:  replyToken,
		MessageType: "text",
		Text:        &text,
	}
}
