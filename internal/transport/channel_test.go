package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/Martbul/outDrinkMe-sub001/internal/protocol"
)

// wsServer runs one session endpoint and hands the accepted connection to
// the test's script.
func wsServer(t *testing.T, script func(ctx context.Context, conn *websocket.Conn, r *http.Request)) string {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/ws/session/{id}", func(w http.ResponseWriter, req *http.Request) {
		conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		script(req.Context(), conn, req)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recvFrame(t *testing.T, ch *Channel) json.RawMessage {
	t.Helper()
	select {
	case raw, ok := <-ch.Messages():
		if !ok {
			t.Fatalf("message stream closed unexpectedly: %v", ch.Err())
		}
		return raw
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for inbound frame")
		return nil // unreachable
	}
}

func TestDial_CredentialRidesAsQueryParam(t *testing.T) {
	gotToken := make(chan string, 1)
	gotSession := make(chan string, 1)

	base := wsServer(t, func(_ context.Context, conn *websocket.Conn, r *http.Request) {
		gotToken <- r.URL.Query().Get("token")
		gotSession <- chi.URLParam(r, "id")
		conn.Close(websocket.StatusNormalClosure, "")
	})

	ch, err := Dial(context.Background(), base, "abc", "bearer-xyz", zap.NewNop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	if tok := <-gotToken; tok != "bearer-xyz" {
		t.Fatalf("token query param: %q", tok)
	}
	if id := <-gotSession; id != "abc" {
		t.Fatalf("session path segment: %q", id)
	}
}

func TestChannel_DeliversFramesAndDropsMalformed(t *testing.T) {
	base := wsServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"action":"chat","sender":"Sam","content":"hi"}`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{{definitely not json`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"action":"start_game"}`))
		// Hold the connection open until the client hangs up.
		_, _, _ = conn.Read(ctx)
	})

	ch, err := Dial(context.Background(), base, "abc", "t", zap.NewNop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	first, err := protocol.Decode(recvFrame(t, ch))
	if err != nil || first.Action != protocol.ActionChat {
		t.Fatalf("first frame: %+v err=%v", first, err)
	}

	// The malformed frame is dropped, not fatal: the next frame arrives.
	second, err := protocol.Decode(recvFrame(t, ch))
	if err != nil || second.Action != protocol.ActionStartGame {
		t.Fatalf("second frame: %+v err=%v", second, err)
	}
}

func TestChannel_SendWritesWholeTextFrame(t *testing.T) {
	got := make(chan []byte, 1)
	base := wsServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		typ, data, err := conn.Read(ctx)
		if err == nil && typ == websocket.MessageText {
			got <- data
		}
		_, _, _ = conn.Read(ctx)
	})

	ch, err := Dial(context.Background(), base, "abc", "t", zap.NewNop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	if err := ch.Send(context.Background(), protocol.JoinRoom("Alex", "me", true)); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case data := <-got:
		env, err := protocol.Decode(data)
		if err != nil || env.Action != protocol.ActionJoinRoom || env.Username != "Alex" {
			t.Fatalf("server received: %s (err=%v)", data, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received the frame")
	}
}

func TestChannel_NormalClosureIsNotAnError(t *testing.T) {
	base := wsServer(t, func(_ context.Context, conn *websocket.Conn, _ *http.Request) {
		conn.Close(websocket.StatusNormalClosure, "done")
	})

	ch, err := Dial(context.Background(), base, "abc", "t", zap.NewNop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case _, ok := <-ch.Messages():
		if ok {
			t.Fatalf("expected stream to close without frames")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream never closed")
	}
	if err := ch.Err(); err != nil {
		t.Fatalf("normal closure should not surface an error: %v", err)
	}
}

func TestChannel_AbnormalClosureSurfacesError(t *testing.T) {
	base := wsServer(t, func(_ context.Context, conn *websocket.Conn, _ *http.Request) {
		conn.Close(websocket.StatusInternalError, "boom")
	})

	ch, err := Dial(context.Background(), base, "abc", "t", zap.NewNop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	for range ch.Messages() {
	}
	if ch.Err() == nil {
		t.Fatalf("abnormal closure must be terminal and visible")
	}
}

func TestChannel_SendAfterCloseFails(t *testing.T) {
	base := wsServer(t, func(_ context.Context, conn *websocket.Conn, _ *http.Request) {
		conn.Close(websocket.StatusNormalClosure, "")
	})

	ch, err := Dial(context.Background(), base, "abc", "t", zap.NewNop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	for range ch.Messages() {
	}

	if err := ch.Send(context.Background(), protocol.StartGame()); err == nil {
		t.Fatalf("send on a dead channel should fail")
	}
}

func TestDial_RefusedEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1", "abc", "t", zap.NewNop()); err == nil {
		t.Fatalf("expected dial failure")
	}
}
