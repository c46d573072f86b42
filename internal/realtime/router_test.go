package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type stubChannel struct {
	name  string
	admit func(r *http.Request) Admission
}

func (s *stubChannel) Name() string                    { return s.name }
func (s *stubChannel) Admit(r *http.Request) Admission { return s.admit(r) }

type captureRecorder struct {
	mu      sync.Mutex
	records []AdmissionRecord
}

func (c *captureRecorder) RecordAdmission(ctx context.Context, rec AdmissionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func (c *captureRecorder) all() []AdmissionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AdmissionRecord(nil), c.records...)
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestRouter_RejectStatusLine(t *testing.T) {
	rec := &captureRecorder{}
	rt := NewRouter(map[string]Channel{
		"/ws/test": &stubChannel{name: "test", admit: func(r *http.Request) Admission {
			return Reject(http.StatusForbidden, "role_not_allowed", "u1")
		}},
	}, ConnOptions{}, WithRecorder(rec))
	srv := httptest.NewServer(rt)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/test"), nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("Dial err = %v, want ErrBadHandshake", err)
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp = %+v, want 403", resp)
	}
	recs := rec.all()
	if len(recs) != 1 || recs[0].Accepted || recs[0].Status != http.StatusForbidden || recs[0].Subject != "u1" {
		t.Errorf("records = %+v", recs)
	}
}

func TestRouter_UnknownPathDestroyed(t *testing.T) {
	rt := NewRouter(map[string]Channel{}, ConnOptions{})
	srv := httptest.NewServer(rt)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/nope"), nil)
	if err == nil {
		t.Fatal("Dial should fail for unknown path")
	}
	if resp != nil {
		t.Errorf("expected no HTTP response, got status %d", resp.StatusCode)
	}
}

func TestRouter_CloseCodeAfterHandshake(t *testing.T) {
	rt := NewRouter(map[string]Channel{
		"/ws/test": &stubChannel{name: "test", admit: func(r *http.Request) Admission {
			return Admission{CloseCode: CloseSessionExpired, Reason: "session expired"}
		}},
	}, ConnOptions{})
	srv := httptest.NewServer(rt)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/test"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	if !websocket.IsCloseError(err, CloseSessionExpired) {
		t.Fatalf("ReadMessage err = %v, want close %d", err, CloseSessionExpired)
	}
}

func TestRouter_ServeAndSend(t *testing.T) {
	registry := NewRegistry[string]()
	received := make(chan string, 1)
	rt := NewRouter(map[string]Channel{
		"/ws/test": &stubChannel{name: "test", admit: func(r *http.Request) Admission {
			return Admission{Subject: "u1", Serve: func(ctx context.Context, c *Conn) {
				_ = registry.Register(c, "u1")
				c.OnClose(func() { registry.Unregister(c) })
				c.Run(ctx, func(ctx context.Context, msg []byte) {
					received <- string(msg)
				})
			}}
		}},
	}, ConnOptions{SendBuffer: 4})
	srv := httptest.NewServer(rt)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/test"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for registry.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d := registry.Broadcast([]byte(`{"hello":"world"}`), nil); d.Sent != 1 {
		t.Fatalf("Broadcast = %+v, want 1 sent", d)
	}
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg) != `{"hello":"world"}` {
		t.Errorf("msg = %s", msg)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	select {
	case got := <-received:
		if got != "ping" {
			t.Errorf("received %q, want ping", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive inbound message")
	}

	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()
	deadline = time.Now().Add(2 * time.Second)
	for registry.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if registry.Len() != 0 {
		t.Error("connection should be unregistered after close")
	}
}

func TestConn_SendAfterClose(t *testing.T) {
	conns := make(chan *Conn, 1)
	rt := NewRouter(map[string]Channel{
		"/ws/test": &stubChannel{name: "test", admit: func(r *http.Request) Admission {
			return Admission{Serve: func(ctx context.Context, c *Conn) {
				conns <- c
				c.Run(ctx, nil)
			}}
		}},
	}, ConnOptions{SendBuffer: 1})
	srv := httptest.NewServer(rt)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/test"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ws.Close()
	c := <-conns
	c.Close()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("conn did not finish closing")
	}
	if c.Ready() {
		t.Error("closed conn should not be ready")
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send err = %v, want ErrConnClosed", err)
	}
	hookRan := make(chan struct{})
	c.OnClose(func() { close(hookRan) })
	select {
	case <-hookRan:
	default:
		t.Error("OnClose on a closed conn should run immediately")
	}
}
