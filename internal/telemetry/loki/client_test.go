package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type capture struct {
	mu   sync.Mutex
	reqs []PushRequest
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			http.NotFound(w, r)
			return
		}
		var body PushRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.mu.Lock()
		c.reqs = append(c.reqs, body)
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestPushEventJSON_LabelsFromEvent(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusNoContent))
	defer srv.Close()

	raw := []byte(`{"eventType":"driver_location_updated","source":"driver-location","branchId":"br 1","createdAt":"2026-01-02T03:04:05Z"}`)
	if err := NewClient(srv.URL+"/", nil).PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reqs) != 1 || len(c.reqs[0].Streams) != 1 {
		t.Fatalf("requests = %+v", c.reqs)
	}
	s := c.reqs[0].Streams[0]
	if s.Stream["job"] != Job {
		t.Errorf("job = %q", s.Stream["job"])
	}
	if s.Stream["event_type"] != "driver_location_updated" || s.Stream["source"] != "driver-location" {
		t.Errorf("labels = %v", s.Stream)
	}
	if s.Stream["branch_id"] != "br_1" {
		t.Errorf("branch_id = %q, want sanitized br_1", s.Stream["branch_id"])
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).UnixNano()
	if len(s.Values) != 1 || s.Values[0][0] != jsonInt(want) || s.Values[0][1] != string(raw) {
		t.Errorf("values = %v", s.Values)
	}
}

func TestPushEventJSON_RawLineOnDecodeFailure(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK))
	defer srv.Close()

	if err := NewClient(srv.URL, nil).PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	s := c.reqs[0].Streams[0]
	if len(s.Stream) != 1 || s.Stream["job"] != Job {
		t.Errorf("labels = %v, want job only", s.Stream)
	}
	if s.Values[0][1] != "not json" {
		t.Errorf("line = %q", s.Values[0][1])
	}
}

func TestPush_Non2xxIsError(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusBadRequest))
	defer srv.Close()

	if err := NewClient(srv.URL, nil).Push(context.Background(), time.Now(), "x", nil); err == nil {
		t.Fatal("Push should fail on 400")
	}
}

func TestPush_EmptyBaseURL(t *testing.T) {
	if err := NewClient("", nil).Push(context.Background(), time.Now(), "x", nil); err == nil {
		t.Fatal("Push should fail without base URL")
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
