package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playmatatu/pinball/internal/pinball"
	"github.com/playmatatu/pinball/internal/sim"
)

type inbound struct {
	Type           string            `json:"type"`
	Message        string            `json:"message"`
	Score          int               `json:"score"`
	Lives          int               `json:"lives"`
	PlungerEngaged bool              `json:"plunger_engaged"`
	Event          pinball.GameEvent `json:"event"`
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	session, err := pinball.NewSession(sim.New(sim.DefaultOptions()), pinball.DefaultOptions(), pinball.NotifierFunc(func(pinball.GameEvent) {}))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	hub := NewHub(session)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", HandleWebSocket(hub, func(token string) bool { return token == "ok" }))
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg inbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestClientReceivesStateOnConnect(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv, "")

	msg := read(t, conn)
	if msg.Type != "state" || msg.Lives != pinball.DefaultLives {
		t.Errorf("first message = %+v", msg)
	}

	send(t, conn, `{"type":"get_state"}`)
	if msg := read(t, conn); msg.Type != "state" {
		t.Errorf("get_state reply = %+v", msg)
	}
}

func TestSpectatorCannotSendInput(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv, "")
	read(t, conn)

	send(t, conn, `{"type":"input","data":{"control":"plunger","action":"press"}}`)
	msg := read(t, conn)
	if msg.Type != "error" || !strings.Contains(msg.Message, "Controller") {
		t.Errorf("reply = %+v", msg)
	}
}

func TestControllerInput(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv, "?token=ok")
	read(t, conn)

	send(t, conn, `{"type":"input","data":{"control":"plunger","action":"press"}}`)
	send(t, conn, `{"type":"get_state"}`)
	if msg := read(t, conn); msg.Type != "state" || !msg.PlungerEngaged {
		t.Errorf("state after press = %+v", msg)
	}

	send(t, conn, `{"type":"input","data":{"control":"tilt","action":"press"}}`)
	if msg := read(t, conn); msg.Type != "error" {
		t.Errorf("bad input reply = %+v", msg)
	}

	send(t, conn, `{"type":"spin"}`)
	if msg := read(t, conn); msg.Type != "error" {
		t.Errorf("unknown type reply = %+v", msg)
	}
}

func TestInvalidTokenIsRejected(t *testing.T) {
	_, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("response = %+v", resp)
	}
}

func TestNotifyReachesClients(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv, "")
	read(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.Notify(pinball.GameEvent{Type: pinball.EventScoreAward, Zone: "Score", Points: 1000, Score: 1000})
	msg := read(t, conn)
	if msg.Type != "game_event" || msg.Event.Type != pinball.EventScoreAward || msg.Event.Points != 1000 {
		t.Errorf("event message = %+v", msg)
	}
}

func TestDecodeEvent(t *testing.T) {
	data, _ := json.Marshal(pinball.GameEvent{Type: pinball.EventLifeLost, Lives: 2})
	ev, err := decodeEvent(string(data))
	if err != nil || ev.Type != pinball.EventLifeLost || ev.Lives != 2 {
		t.Errorf("decodeEvent = %+v, %v", ev, err)
	}
	if _, err := decodeEvent(`{"lives":2}`); err == nil {
		t.Error("event without type accepted")
	}
	if _, err := decodeEvent(`not json`); err == nil {
		t.Error("garbage accepted")
	}
}
