package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"example.com/timelinefeed/internal/feed"
	"example.com/timelinefeed/internal/live"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// TestServer_GracefulShutdown runs the real listener, opens a stream and
// verifies cancelling ctx stops the server and closes the stream.
func TestServer_GracefulShutdown(t *testing.T) {
	engine := feed.New()
	hub := live.NewHub(engine, 4)
	engine.AddSink(hub)
	s := New(engine, hub, testSecret)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, s, Config{Addr: addr})
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Post("http://"+addr+"/users", "application/json", strings.NewReader(`{"username":"almaz"}`))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	token := createUserHelper(t, resty.New().SetBaseURL("http://"+addr), "almaz")
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/stream?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown gracefully within the expected time")
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}
