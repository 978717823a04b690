package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

type testServer struct {
	*httptest.Server
	orch *orch.Orchestrator
	hub  *Hub
}

func newTestServer(t *testing.T, opts Options, joins *JoinLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New(prometheus.NewRegistry())
	hub := NewHub(app.SimplePolicy{}, m)
	o := orch.New(app.NewRegistry(nil), hub, m)
	ctl := NewSignalWSController(o, hub, joins, opts)

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{Server: srv, orch: o, hub: hub}
}

func defaultOptions() Options {
	return Options{
		ReadLimit:    4096,
		SendBuffer:   16,
		PingPeriod:   time.Second,
		PongWait:     2 * time.Second,
		WriteWait:    time.Second,
		MessageRate:  rate.Inf,
		MessageBurst: 1,
	}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// expect reads the next frame and checks its event name.
func expect(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg inbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("waiting for %s: %v", event, err)
	}
	if msg.Event != event {
		t.Fatalf("got event %s (%s), want %s", msg.Event, msg.Data, event)
	}
	return msg.Data
}

func expectCount(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()
	var n int
	if err := json.Unmarshal(expect(t, conn, core.EventUserCount), &n); err != nil || n != want {
		t.Fatalf("userCount = %d (%v), want %d", n, err, want)
	}
}

func expectChat(t *testing.T, conn *websocket.Conn, username, message string) {
	t.Helper()
	var m domain.ChatMessage
	if err := json.Unmarshal(expect(t, conn, core.EventReceiveMessage), &m); err != nil {
		t.Fatal(err)
	}
	if m.Username != username || m.Message != message {
		t.Fatalf("receiveMessage = %+v, want %s: %s", m, username, message)
	}
}

func expectError(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	var s string
	if err := json.Unmarshal(expect(t, conn, core.EventError), &s); err != nil || s != text {
		t.Fatalf("error = %q (%v), want %q", s, err, text)
	}
}

// TestChatOverWebSocket runs the full create/join/chat/leave flow over real sockets.
func TestChatOverWebSocket(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	alice := srv.dial(t)
	bob := srv.dial(t)

	send(t, alice, core.EventCreateRoom, "alice")
	var code string
	if err := json.Unmarshal(expect(t, alice, core.EventRoomCreated), &code); err != nil {
		t.Fatal(err)
	}
	if !core.ValidCode(domain.RoomCode(code)) {
		t.Fatalf("room code %q", code)
	}
	expectCount(t, alice, 1)

	send(t, bob, core.EventJoinRoom, map[string]string{"roomCode": code, "username": "bob"})
	expect(t, bob, core.EventRoomJoined)
	expectCount(t, bob, 2)
	expectChat(t, bob, "System", "bob has joined the room!")
	expectCount(t, alice, 2)
	expectChat(t, alice, "System", "bob has joined the room!")

	send(t, bob, core.EventSendMessage, map[string]string{"roomCode": code, "username": "bob", "message": "hi"})
	expectChat(t, alice, "bob", "hi")
	expectChat(t, bob, "bob", "hi")

	_ = alice.Close()
	expectCount(t, bob, 1)
	expectChat(t, bob, "System", "alice has left the room.")
	if !srv.orch.Registry.Exists(domain.RoomCode(code)) {
		t.Fatal("room gone while bob is inside")
	}

	_ = bob.Close()
	deadline := time.Now().Add(3 * time.Second)
	for srv.orch.Registry.Exists(domain.RoomCode(code)) {
		if time.Now().After(deadline) {
			t.Fatal("room not deleted after last member left")
		}
		time.Sleep(10 * time.Millisecond)
	}

	carol := srv.dial(t)
	send(t, carol, core.EventJoinRoom, map[string]string{"roomCode": code, "username": "carol"})
	expectError(t, carol, "Room does not exist.")
}

func TestWebSocketRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	c := srv.dial(t)

	if err := c.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	expectError(t, c, "Malformed request.")

	send(t, c, core.EventCreateRoom, "   ")
	expectError(t, c, "Username is required to create a room.")

	send(t, c, core.EventJoinRoom, map[string]string{"username": "bob"})
	expectError(t, c, "Room code and username are required to join.")

	send(t, c, core.EventSendMessage, map[string]string{"roomCode": "12345"})
	expectError(t, c, "Message sending failed: Missing required fields.")

	send(t, c, core.EventPing, nil)
	expect(t, c, core.EventPong)
}

func TestWebSocketJoinRateLimit(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), NewJoinLimiter(2, time.Minute))
	c := srv.dial(t)

	for range 2 {
		send(t, c, core.EventJoinRoom, map[string]string{"roomCode": "12345", "username": "bob"})
		expectError(t, c, "Room does not exist.")
	}
	send(t, c, core.EventJoinRoom, map[string]string{"roomCode": "12345", "username": "bob"})
	expectError(t, c, "Too many attempts. Please wait and try again.")
}

func TestWebSocketMessageThrottle(t *testing.T) {
	opts := defaultOptions()
	opts.MessageRate = rate.Every(time.Hour)
	opts.MessageBurst = 1
	srv := newTestServer(t, opts, nil)
	c := srv.dial(t)

	send(t, c, core.EventCreateRoom, "alice")
	var code string
	_ = json.Unmarshal(expect(t, c, core.EventRoomCreated), &code)
	expectCount(t, c, 1)

	msg := map[string]string{"roomCode": code, "username": "alice", "message": "one"}
	send(t, c, core.EventSendMessage, msg)
	expectChat(t, c, "alice", "one")
	send(t, c, core.EventSendMessage, msg)
	expectError(t, c, "You are sending messages too quickly.")
}

func TestWebSocketLeaveKeepsConnection(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	c := srv.dial(t)

	send(t, c, core.EventCreateRoom, "alice")
	expect(t, c, core.EventRoomCreated)
	expectCount(t, c, 1)

	send(t, c, core.EventLeaveRoom, nil)
	expect(t, c, core.EventRoomLeft)

	send(t, c, core.EventCreateRoom, "alice")
	expect(t, c, core.EventRoomCreated)
}

func TestWebSocketOriginCheck(t *testing.T) {
	opts := defaultOptions()
	opts.CheckOrigin = func(r *http.Request) bool { return r.Header.Get("Origin") == "http://good.example" }
	srv := newTestServer(t, opts, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	h := http.Header{}
	h.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, h)
	if err == nil {
		t.Fatal("foreign origin was accepted")
	}
	if resp != nil {
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	h.Set("Origin", "http://good.example")
	conn, resp, err := websocket.DefaultDialer.Dial(url, h)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("allowed origin refused: %v", err)
	}
	_ = conn.Close()
}

func TestConnectionUnregisteredOnClose(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	c := srv.dial(t)
	send(t, c, core.EventPing, nil)
	expect(t, c, core.EventPong)
	if srv.hub.Len() != 1 {
		t.Fatalf("hub has %d connections", srv.hub.Len())
	}
	_ = c.Close()

	deadline := time.Now().Add(3 * time.Second)
	for srv.hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection still registered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
