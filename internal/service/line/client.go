package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	// MaxTextRunes is the longest text the Messaging API accepts in one message, minus headroom.
	MaxTextRunes = 4900
	// DefaultTimeout bounds one outbound API call.
	DefaultTimeout = 20 * time.Second
)

// ErrEmptyText is returned instead of sending a message the API would reject.
var ErrEmptyText = errors.New("message text is empty")

// APIError is a non-2xx answer from the Messaging API.
type APIError struct {
	Status  int
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("line api: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("line api: http %d: %s", e.Status, e.Body)
}

// Client sends text messages through the Messaging API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient builds a client. A nil httpClient gets one with DefaultTimeout.
func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// Reply answers an event through its one-shot reply token.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return errors.New("reply token is required")
	}
	msg, err := newTextMessage(text)
	if err != nil {
		return err
	}
	return c.post(ctx, "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: []textMessage{msg}})
}

// Push sends text to a user, group or room id without a reply token.
func (c *Client) Push(ctx context.Context, to, text string) error {
	if to == "" {
		return errors.New("push target is required")
	}
	msg, err := newTextMessage(text)
	if err != nil {
		return err
	}
	return c.post(ctx, "/v2/bot/message/push", pushRequest{To: to, Messages: []textMessage{msg}})
}

func newTextMessage(text string) (textMessage, error) {
	if strings.TrimSpace(text) == "" {
		return textMessage{}, ErrEmptyText
	}
	return textMessage{Type: "text", Text: capRunes(text, MaxTextRunes)}, nil
}

func capRunes(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("line api %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:  resp.StatusCode,
			Message: gjson.GetBytes(raw, "message").String(),
			Body:    strings.TrimSpace(string(raw)),
		}
	}
	return nil
}
