package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"laundry-ops/backend/internal/delivery/domain"
	"laundry-ops/backend/internal/realtime"
	userdomain "laundry-ops/backend/internal/user/domain"
)

type fakeConn struct {
	id    string
	ready bool
	err   error

	mu   sync.Mutex
	msgs [][]byte
}

func (c *fakeConn) ID() string  { return c.id }
func (c *fakeConn) Ready() bool { return c.ready }
func (c *fakeConn) Send(msg []byte) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.msgs...)
}

type stubTracking struct {
	mu    sync.Mutex
	calls []string
	snap  *domain.TrackingSnapshot
	err   error
}

func (s *stubTracking) DeliveryTrackingSnapshot(ctx context.Context, orderID string) (*domain.TrackingSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, orderID)
	return s.snap, s.err
}

func staff() domain.Descriptor {
	return domain.StaffDescriptor{UserID: "admin-1", Role: userdomain.RoleAdmin}
}

func portal(orderID string) domain.Descriptor {
	return domain.PortalDescriptor{DeliveryID: "del-" + orderID, OrderID: orderID}
}

func TestPublish_PortalSeesOnlyOwnOrder(t *testing.T) {
	reg := realtime.NewRegistry[domain.Descriptor]()
	admin := &fakeConn{id: "admin", ready: true}
	p1 := &fakeConn{id: "p1", ready: true}
	p2 := &fakeConn{id: "p2", ready: true}
	_ = reg.Register(admin, staff())
	_ = reg.Register(p1, portal("O1"))
	_ = reg.Register(p2, portal("O2"))

	b := New(reg, nil)
	d, err := b.Publish(context.Background(), domain.StatusEvent{OrderID: "O2", DeliveryStatus: "out_for_delivery", DriverID: "D1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if d.Matched != 2 || d.Sent != 2 {
		t.Errorf("delivery = %+v, want 2 matched and sent", d)
	}
	if n := len(p1.received()); n != 0 {
		t.Errorf("portal for O1 received %d messages, want 0", n)
	}
	if n := len(p2.received()); n != 1 {
		t.Errorf("portal for O2 received %d messages, want 1", n)
	}
	msgs := admin.received()
	if len(msgs) != 1 {
		t.Fatalf("staff received %d messages, want 1", len(msgs))
	}
	var env map[string]any
	if err := json.Unmarshal(msgs[0], &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env["eventType"] != "status" || env["orderId"] != "O2" || env["driverId"] != "D1" {
		t.Errorf("envelope = %v", env)
	}
	if _, ok := env["tracking"]; ok {
		t.Error("tracking should be omitted without a provider")
	}
}

func TestPublish_SameBytesForEveryRecipient(t *testing.T) {
	reg := realtime.NewRegistry[domain.Descriptor]()
	a := &fakeConn{id: "a", ready: true}
	c := &fakeConn{id: "c", ready: true}
	_ = reg.Register(a, staff())
	_ = reg.Register(c, portal("O1"))

	if _, err := New(reg, nil).Publish(context.Background(), domain.MessageEvent{OrderID: "O1", Message: domain.Message{Body: "hi"}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	ma, mc := a.received(), c.received()
	if len(ma) != 1 || len(mc) != 1 {
		t.Fatalf("received %d and %d messages, want 1 each", len(ma), len(mc))
	}
	if &ma[0][0] != &mc[0][0] {
		t.Error("envelope should be serialized once and shared")
	}
}

func TestPublish_SkipsClosedAndIsolatesFailures(t *testing.T) {
	reg := realtime.NewRegistry[domain.Descriptor]()
	closed := &fakeConn{id: "closed", ready: false}
	failing := &fakeConn{id: "failing", ready: true, err: realtime.ErrSendQueueFull}
	ok := &fakeConn{id: "ok", ready: true}
	_ = reg.Register(closed, staff())
	_ = reg.Register(failing, staff())
	_ = reg.Register(ok, staff())

	d, err := New(reg, nil).Publish(context.Background(), domain.StatusEvent{OrderID: "O1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if d.Matched != 3 || d.Sent != 1 || d.Skipped != 1 || d.Failed != 1 {
		t.Errorf("delivery = %+v", d)
	}
	if len(closed.received()) != 0 {
		t.Error("closed connection should be skipped")
	}
	if len(ok.received()) != 1 {
		t.Error("open connection should still receive the event")
	}
}

func TestPublish_TrackingSnapshot(t *testing.T) {
	eta := 12
	tr := &stubTracking{snap: &domain.TrackingSnapshot{ETAMinutes: &eta}}
	reg := realtime.NewRegistry[domain.Descriptor]()
	a := &fakeConn{id: "a", ready: true}
	_ = reg.Register(a, staff())

	if _, err := New(reg, tr).Publish(context.Background(), domain.StatusEvent{OrderID: "O9"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(tr.calls) != 1 || tr.calls[0] != "O9" {
		t.Errorf("tracking calls = %v, want [O9]", tr.calls)
	}
	var env struct {
		Tracking *struct {
			ETAMinutes *int `json:"etaMinutes"`
		} `json:"tracking"`
	}
	if err := json.Unmarshal(a.received()[0], &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Tracking == nil || env.Tracking.ETAMinutes == nil || *env.Tracking.ETAMinutes != 12 {
		t.Errorf("tracking = %+v", env.Tracking)
	}
}

func TestPublish_TrackingFailureStillBroadcasts(t *testing.T) {
	tr := &stubTracking{err: errors.New("db down")}
	reg := realtime.NewRegistry[domain.Descriptor]()
	a := &fakeConn{id: "a", ready: true}
	_ = reg.Register(a, staff())

	d, err := New(reg, tr).Publish(context.Background(), domain.RescheduleEvent{OrderID: "O1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if d.Sent != 1 {
		t.Errorf("Sent = %d, want 1", d.Sent)
	}
}

func TestPublish_MissingOrderID(t *testing.T) {
	reg := realtime.NewRegistry[domain.Descriptor]()
	a := &fakeConn{id: "a", ready: true}
	_ = reg.Register(a, staff())

	_, err := New(reg, nil).Publish(context.Background(), domain.StatusEvent{})
	if !errors.Is(err, domain.ErrMissingOrderID) {
		t.Fatalf("err = %v, want ErrMissingOrderID", err)
	}
	if len(a.received()) != 0 {
		t.Error("invalid event should not be sent")
	}
}
