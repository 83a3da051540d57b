package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

type frame struct {
	typ  int
	data []byte
}

// fakeConn blocks reads until closed and records writes.
type fakeConn struct {
	writes    chan frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{writes: make(chan frame, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.writes <- frame{typ: t, data: data}
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                 {}
func (f *fakeConn) SetReadDeadline(time.Time) error    { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) next(t *testing.T) frame {
	t.Helper()
	select {
	case fr := <-f.writes:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
		return frame{}
	}
}

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New("test", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_BroadcastTypes(t *testing.T) {
	h := startHub(t)
	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	waitClients(t, h, 1)

	if err := h.BroadcastJSON(map[string]string{"state": "idle"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	fr := conn.next(t)
	if fr.typ != websocket.TextMessage || string(fr.data) != `{"state":"idle"}` {
		t.Errorf("got %d %q", fr.typ, fr.data)
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	fr = conn.next(t)
	if fr.typ != websocket.BinaryMessage || len(fr.data) != 2 {
		t.Errorf("got %d %v", fr.typ, fr.data)
	}
}

func TestHub_ReplayLastMessage(t *testing.T) {
	h := startHub(t, WithReplay())
	if !waitRunning(h) {
		t.Fatal("hub not running")
	}

	h.Broadcast(NewJSONMessage([]byte(`1`)))
	h.Broadcast(NewJSONMessage([]byte(`2`)))

	// The loop drains broadcasts before it can take the registration.
	deadline := time.Now().Add(2 * time.Second)
	for len(h.broadcast) > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()

	if fr := conn.next(t); string(fr.data) != "2" {
		t.Errorf("replayed %q, want 2", fr.data)
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	h := startHub(t)
	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	waitClients(t, h, 1)

	conn.Close()
	waitClients(t, h, 0)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	waitClients(t, h, 1)

	cancel()
	<-h.Done()

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after hub stopped")
	}
	if h.IsRunning() {
		t.Error("IsRunning after stop")
	}
	if NewClient(h, newFakeConn()) != nil {
		t.Error("NewClient on a stopped hub should return nil")
	}
}

func waitRunning(h *Hub) bool {
	deadline := time.Now().Add(2 * time.Second)
	for !h.IsRunning() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}
