package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/zhouzirui/line-relay/backend/internal/config"
	"github.com/zhouzirui/line-relay/backend/internal/service/line"
	"github.com/zhouzirui/line-relay/backend/internal/service/postprocess"
)

func TestLongAnswerKeepsSuffixAfterSend(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- gjson.GetBytes(body, "messages.0.text").String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{Reply: config.ReplyConfig{MaxChars: 4900, Suffix: "🤖", StripReasoning: true}}
	policy := replyPolicy(cfg)
	require.Less(t, policy.MaxChars, line.MaxTextRunes)

	processed := postprocess.Process(strings.Repeat("ก", 6000), policy)
	client := line.NewClient(srv.Client(), srv.URL, "token")
	require.NoError(t, client.Push(context.Background(), "U1", processed))

	text := <-received
	assert.Equal(t, processed, text)
	assert.True(t, strings.HasSuffix(text, "🤖"), "tail=%q", string([]rune(text)[utf8.RuneCountInString(text)-5:]))
	assert.LessOrEqual(t, utf8.RuneCountInString(text), line.MaxTextRunes)
}

func TestReplyPolicyKeepsSmallerLimit(t *testing.T) {
	cfg := &config.Config{Reply: config.ReplyConfig{MaxChars: 300, Suffix: "ค่ะ"}}
	assert.Equal(t, 300, replyPolicy(cfg).MaxChars)
}
