package realtime

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Admission is a channel's verdict on one upgrade request.
// Exactly one outcome applies: Status rejects with a bare status line; CloseCode completes the handshake
// and closes immediately with that code; otherwise Serve runs the accepted connection.
type Admission struct {
	Status    int
	CloseCode int
	Reason    string
	Subject   string
	Serve     func(ctx context.Context, c *Conn)
}

// Reject returns an Admission that refuses the upgrade with status.
func Reject(status int, reason, subject string) Admission {
	return Admission{Status: status, Reason: reason, Subject: subject}
}

// Channel authenticates upgrade requests for one path.
type Channel interface {
	Name() string
	Admit(r *http.Request) Admission
}

// AdmissionRecord describes one upgrade decision for auditing.
type AdmissionRecord struct {
	Channel    string
	Subject    string
	Accepted   bool
	Status     int
	CloseCode  int
	Reason     string
	RemoteAddr string
	At         time.Time
}

// AdmissionRecorder persists upgrade decisions. Failures must not affect the decision.
type AdmissionRecorder interface {
	RecordAdmission(ctx context.Context, rec AdmissionRecord)
}

// Router dispatches upgrade requests by exact path. Unknown paths have their transport destroyed.
type Router struct {
	channels map[string]Channel
	upgrader websocket.Upgrader
	opts     ConnOptions
	metrics  *Metrics
	recorder AdmissionRecorder
	clientIP func(r *http.Request) string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMetrics records connection metrics.
func WithMetrics(m *Metrics) RouterOption { return func(r *Router) { r.metrics = m } }

// WithRecorder audits every upgrade decision.
func WithRecorder(rec AdmissionRecorder) RouterOption { return func(r *Router) { r.recorder = rec } }

// WithClientIP sets how the remote address is derived for audit records.
func WithClientIP(fn func(r *http.Request) string) RouterOption {
	return func(r *Router) { r.clientIP = fn }
}

// WithCheckOrigin overrides the upgrader's origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) RouterOption {
	return func(r *Router) { r.upgrader.CheckOrigin = fn }
}

// NewRouter returns a Router serving the given path → channel table.
func NewRouter(channels map[string]Channel, opts ConnOptions, options ...RouterOption) *Router {
	rt := &Router{
		channels: channels,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		opts:     opts.withDefaults(),
		clientIP: func(r *http.Request) string { return r.RemoteAddr },
	}
	for _, o := range options {
		o(rt)
	}
	return rt
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch, ok := rt.channels[r.URL.Path]
	if !ok {
		log.Printf("realtime: no channel for %s, dropping connection", r.URL.Path)
		Destroy(w)
		return
	}
	attempt := NewAttempt(r.URL.Path)
	rt.step(attempt, AttemptAuthenticating)
	adm := ch.Admit(r)

	if adm.Status != 0 {
		rt.step(attempt, AttemptRejected)
		rt.record(r, ch.Name(), adm, false)
		rt.metrics.Rejected(r.Context(), ch.Name(), adm.Reason)
		RejectStatus(w, adm.Status)
		return
	}

	rt.step(attempt, AttemptAccepted)
	ws, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		log.Printf("realtime: %s upgrade: %v", ch.Name(), err)
		rt.step(attempt, AttemptClosed)
		return
	}
	conn := NewConn(ws, rt.opts)

	if adm.CloseCode != 0 || adm.Serve == nil {
		rt.record(r, ch.Name(), adm, false)
		rt.metrics.Rejected(r.Context(), ch.Name(), adm.Reason)
		code := adm.CloseCode
		if code == 0 {
			code = websocket.ClosePolicyViolation
		}
		conn.CloseWith(code, adm.Reason)
		<-conn.Done()
		rt.step(attempt, AttemptClosed)
		return
	}

	rt.step(attempt, AttemptOpen)
	rt.record(r, ch.Name(), adm, true)
	rt.metrics.ConnOpened(r.Context(), ch.Name())
	defer func() {
		rt.metrics.ConnClosed(context.WithoutCancel(r.Context()), ch.Name())
		rt.step(attempt, AttemptClosed)
	}()
	adm.Serve(r.Context(), conn)
}

func (rt *Router) step(a *Attempt, next AttemptState) {
	if err := a.Transition(next); err != nil {
		log.Printf("realtime: %s: %v", a.Path, err)
	}
}

func (rt *Router) record(r *http.Request, channel string, adm Admission, accepted bool) {
	if rt.recorder == nil {
		return
	}
	rt.recorder.RecordAdmission(context.WithoutCancel(r.Context()), AdmissionRecord{
		Channel:    channel,
		Subject:    adm.Subject,
		Accepted:   accepted,
		Status:     adm.Status,
		CloseCode:  adm.CloseCode,
		Reason:     adm.Reason,
		RemoteAddr: rt.clientIP(r),
		At:         time.Now().UTC(),
	})
}
