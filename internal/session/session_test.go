package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"shengji/internal/dispatch"
	"shengji/internal/protocol"
	"shengji/internal/session"
	"shengji/internal/state"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeServer accepts one client, checks its join frame, then runs script.
func fakeServer(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var join protocol.JoinRoom
		if err := conn.ReadJSON(&join); err != nil {
			t.Errorf("read join: %v", err)
			return
		}
		if join.RoomName != "room1" || join.Name != "alice" {
			t.Errorf("unexpected join %+v", join)
		}
		script(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func closeNormally(conn *websocket.Conn) {
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	// Wait for the client's close reply so no frame is lost.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestSessionAppliesFramesInOrder(t *testing.T) {
	frames := []string{
		`{"Message":{"from":"bob","message":"hi"}}`,
		`"Kicked"`,
		`{"Error":"not your turn"}`,
		`{"State":{"state":{"Play":{}},"cards":[{"value":"🂡"}]}}`,
		`garbage`,
		`{"Broadcast":{"message":"game over","data":{"variant":{"type":"GameFinished","result":{"alice":{"is_defending":true,"is_landlord":false,"won_game":true,"ranks_up":1}}}}}}`,
		`"Beep"`,
	}
	srv := fakeServer(t, func(conn *websocket.Conn) {
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
		closeNormally(conn)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := state.NewStore(state.New("alice"))
	s, err := session.Dial(ctx, wsURL(srv), "room1", dispatch.New(), store, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := store.Snapshot()
	if len(got.Messages) != 2 || got.Messages[0].From != "bob" || !got.Messages[1].FromGame {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if len(got.Errors) != 1 || got.Errors[0] != "not your turn" {
		t.Fatalf("unexpected errors %v", got.Errors)
	}
	if string(got.GameState) != `{"Play":{}}` {
		t.Fatalf("unexpected game state %s", got.GameState)
	}
	if got.Statistics.GamesWonAsDefending != 1 || got.Statistics.RanksGainedTotal != 1 {
		t.Fatalf("unexpected statistics %+v", got.Statistics)
	}
}

func TestSessionSendsChat(t *testing.T) {
	received := make(chan string, 1)
	srv := fakeServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read chat: %v", err)
			return
		}
		received <- string(data)

		var req map[string]string
		json.Unmarshal(data, &req)
		echo, _ := json.Marshal(map[string]protocol.ChatMessage{
			protocol.TagMessage: {From: "alice", Message: req[protocol.TagMessage]},
		})
		conn.WriteMessage(websocket.TextMessage, echo)
		closeNormally(conn)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := state.NewStore(state.New("alice"))
	s, err := session.Dial(ctx, wsURL(srv), "room1", dispatch.New(), store, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := s.SendChat("gg"); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	select {
	case frame := <-received:
		if frame != `{"Message":"gg"}` {
			t.Fatalf("unexpected chat frame %s", frame)
		}
	default:
		t.Fatal("server never received chat")
	}
	if msgs := store.Snapshot().Messages; len(msgs) != 1 || msgs[0].Message != "gg" {
		t.Fatalf("expected echoed chat in store, got %+v", msgs)
	}
	if err := s.SendChat("late"); err != session.ErrClosed {
		t.Fatalf("expected ErrClosed after run, got %v", err)
	}
}

func TestSessionStopsOnCancel(t *testing.T) {
	srv := fakeServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	store := state.NewStore(state.New("alice"))
	s, err := session.Dial(ctx, wsURL(srv), "room1", dispatch.New(), store, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	store := state.NewStore(state.New("alice"))
	if _, err := session.Dial(ctx, "ws://127.0.0.1:1/none", "room1", dispatch.New(), store, nil); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestSessionFlushesQueuedFramesOnCancel(t *testing.T) {
	received := make(chan string, 4)
	srv := fakeServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				close(received)
				return
			}
			received <- string(data)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	store := state.NewStore(state.New("alice"))
	s, err := session.Dial(ctx, wsURL(srv), "room1", dispatch.New(), store, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := s.SendChat("first"); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	if err := s.SendChat("second"); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := s.SendChat("late"); err != session.ErrClosed {
		t.Fatalf("expected ErrClosed after cancel, got %v", err)
	}

	var got []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case frame, ok := <-received:
			if !ok {
				if len(got) != 2 || got[0] != `{"Message":"first"}` || got[1] != `{"Message":"second"}` {
					t.Fatalf("expected both queued frames delivered in order, got %v", got)
				}
				return
			}
			got = append(got, frame)
		case <-timeout:
			t.Fatalf("server saw %v before timing out", got)
		}
	}
}
