package realtime

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeSub struct {
	id    string
	ready bool
	err   error

	mu   sync.Mutex
	msgs [][]byte
}

func newFakeSub(id string) *fakeSub { return &fakeSub{id: id, ready: true} }

func (f *fakeSub) ID() string  { return f.id }
func (f *fakeSub) Ready() bool { return f.ready }
func (f *fakeSub) Send(msg []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSub) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestRegistry_RegisterOnce(t *testing.T) {
	r := NewRegistry[string]()
	s := newFakeSub("a")
	if err := r.Register(s, "x"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(s, "y"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second Register err = %v, want ErrAlreadyRegistered", err)
	}
	if d, _ := r.Descriptor(s); d != "x" {
		t.Errorf("descriptor = %q, want x (immutable)", d)
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry[string]()
	a, b := newFakeSub("a"), newFakeSub("b")
	_ = r.Register(a, "x")
	_ = r.Register(b, "y")

	if !r.Unregister(a) {
		t.Error("first Unregister should report removal")
	}
	if r.Unregister(a) {
		t.Error("second Unregister should be a no-op")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if _, ok := r.Descriptor(b); !ok {
		t.Error("b should still be registered")
	}
}

func TestRegistry_ForEachMatching(t *testing.T) {
	r := NewRegistry[string]()
	for i := 0; i < 4; i++ {
		_ = r.Register(newFakeSub(fmt.Sprint(i)), map[bool]string{true: "even", false: "odd"}[i%2 == 0])
	}
	var n int
	r.ForEachMatching(func(d string) bool { return d == "even" }, func(Subscriber, string) { n++ })
	if n != 2 {
		t.Errorf("matched %d, want 2", n)
	}
	n = 0
	r.ForEachMatching(nil, func(Subscriber, string) { n++ })
	if n != 4 {
		t.Errorf("nil match visited %d, want 4", n)
	}
}

func TestRegistry_ForEachMatchingSnapshotAllowsMutation(t *testing.T) {
	r := NewRegistry[int]()
	subs := []*fakeSub{newFakeSub("a"), newFakeSub("b"), newFakeSub("c")}
	for i, s := range subs {
		_ = r.Register(s, i)
	}
	var visited int
	r.ForEachMatching(nil, func(s Subscriber, _ int) {
		visited++
		r.Unregister(s)
		_ = r.Register(newFakeSub("late-"+s.ID()), 99)
	})
	if visited != 3 {
		t.Errorf("visited %d, want 3 (snapshot at call time)", visited)
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}

func TestRegistry_BroadcastIsolatesFailures(t *testing.T) {
	r := NewRegistry[string]()
	ok1, ok2 := newFakeSub("ok1"), newFakeSub("ok2")
	failing := newFakeSub("failing")
	failing.err = ErrSendQueueFull
	closed := newFakeSub("closed")
	closed.ready = false
	other := newFakeSub("other")
	for _, s := range []*fakeSub{ok1, ok2, failing, closed} {
		_ = r.Register(s, "O1")
	}
	_ = r.Register(other, "O2")

	d := r.Broadcast([]byte(`{}`), func(order string) bool { return order == "O1" })
	if d.Matched != 4 || d.Sent != 2 || d.Failed != 1 || d.Skipped != 1 {
		t.Errorf("Delivery = %+v", d)
	}
	if ok1.received() != 1 || ok2.received() != 1 {
		t.Error("healthy subscribers should each receive once")
	}
	if other.received() != 0 || closed.received() != 0 {
		t.Error("non-matching and closed subscribers should receive nothing")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		s := newFakeSub(fmt.Sprint(i))
		go func(i int) {
			defer wg.Done()
			_ = r.Register(s, i)
			r.Unregister(s)
		}(i)
		go func() {
			defer wg.Done()
			r.Broadcast([]byte("x"), nil)
		}()
	}
	wg.Wait()
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

type closableSub struct {
	*fakeSub
	closed bool
}

func (c *closableSub) Close() { c.closed = true }

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry[int]()
	c := &closableSub{fakeSub: newFakeSub("c")}
	_ = r.Register(c, 1)
	_ = r.Register(newFakeSub("plain"), 2)
	r.CloseAll()
	if !c.closed {
		t.Error("closable subscriber should be closed")
	}
}
