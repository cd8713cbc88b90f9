package socket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	h := NewHub(logger.NewNop())
	h.pongWait = 300 * time.Millisecond
	h.pingPeriod = 100 * time.Millisecond
	return h
}

func serveHub(t *testing.T, h *Hub, userID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(userID, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// listen reads until the connection fails. Reading is what makes the
// default ping handler answer with pongs.
func listen(conn *websocket.Conn) <-chan []byte {
	received := make(chan []byte, 16)
	go func() {
		defer close(received)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	}()
	return received
}

func TestHub_IdleClientStaysConnected(t *testing.T) {
	h := newTestHub()
	srv := serveHub(t, h, "admin-1")
	received := listen(dial(t, srv))

	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 10*time.Millisecond)

	// Several read deadlines pass without the client writing anything.
	time.Sleep(4 * h.pongWait)
	assert.Equal(t, 1, h.Count())

	h.PublishRouteUpdate(&models.Route{RouteID: "A", Status: models.RouteStatusCompleted}, &models.RouteUpdateLog{Status: models.RouteStatusCompleted})
	select {
	case msg := <-received:
		assert.Contains(t, string(msg), EventRouteUpdated)
		assert.Contains(t, string(msg), `"id":"A"`)
	case <-time.After(time.Second):
		t.Fatal("route event not delivered")
	}
}

func TestHub_UnresponsiveClientIsDropped(t *testing.T) {
	h := newTestHub()
	srv := serveHub(t, h, "admin-1")
	// Never reads, so pings go unanswered.
	dial(t, srv)

	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return h.Count() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestHub_BroadcastReachesEveryTab(t *testing.T) {
	h := newTestHub()
	srv := serveHub(t, h, "admin-1")
	first := listen(dial(t, srv))
	second := listen(dial(t, srv))
	require.Eventually(t, func() bool { return h.Count() == 2 }, time.Second, 10*time.Millisecond)

	h.Broadcast([]byte("hello"))
	for _, ch := range []<-chan []byte{first, second} {
		select {
		case msg := <-ch:
			assert.Equal(t, "hello", string(msg))
		case <-time.After(time.Second):
			t.Fatal("broadcast not delivered")
		}
	}
}

func TestHub_BroadcastDropsClientWithFullQueue(t *testing.T) {
	h := NewHub(logger.NewNop())
	h.sendBuffer = 1
	// No pumps run for this client, so its queue is never drained.
	stalled := &client{userID: "admin-1", send: make(chan []byte, h.sendBuffer)}
	h.register(stalled)

	start := time.Now()
	h.Broadcast([]byte("first"))
	h.Broadcast([]byte("second"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	assert.Equal(t, 0, h.Count())
	msg, ok := <-stalled.send
	assert.True(t, ok)
	assert.Equal(t, "first", string(msg))
	_, ok = <-stalled.send
	assert.False(t, ok, "send queue closed on drop")

	// Later events skip the dropped client.
	h.Broadcast([]byte("third"))
	h.unregister(stalled)
}
