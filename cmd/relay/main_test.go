package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/line-relay/backend/internal/service/line"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSignCommand(t *testing.T) {
	body := `{"events":[]}`
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := execute(t, "", "sign", "--secret", "s3cret", path)
	require.NoError(t, err)
	assert.Equal(t, line.Sign([]byte(body), "s3cret"), strings.TrimSpace(out))

	out, err = execute(t, body, "sign", "--secret", "s3cret", "-")
	require.NoError(t, err)
	assert.Equal(t, line.Sign([]byte(body), "s3cret"), strings.TrimSpace(out))
}

func TestSignCommandUsesEnvSecret(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "from-env")

	out, err := execute(t, "hello", "sign", "-")
	require.NoError(t, err)
	assert.Equal(t, line.Sign([]byte("hello"), "from-env"), strings.TrimSpace(out))
}

func TestSignCommandRequiresSecret(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "")

	_, err := execute(t, "hello", "sign", "-")
	assert.Error(t, err)
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after cancel")
	}
}
