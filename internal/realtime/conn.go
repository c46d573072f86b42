// Package realtime holds the WebSocket plumbing shared by the delivery and driver-location channels:
// connections with a bounded send queue, subscriber registries, the upgrade router and rejections.
package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrConnClosed is returned by Send once the connection is closing or closed.
	ErrConnClosed = errors.New("realtime: connection closed")
	// ErrSendQueueFull is returned by Send when the outbound queue is full; the message is dropped.
	ErrSendQueueFull = errors.New("realtime: send queue full")
)

// CloseSessionExpired is the application close code sent to a portal client whose session has expired.
const CloseSessionExpired = 4401

const (
	stateOpen int32 = iota
	stateClosing
	stateClosed
)

const (
	defaultSendBuffer   = 64
	defaultWriteTimeout = 10 * time.Second
	defaultReadLimit    = 64 << 10
	closeGrace          = time.Second
)

// ConnOptions tunes a connection's send path.
type ConnOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	ReadLimit    int64
}

func (o ConnOptions) withDefaults() ConnOptions {
	if o.SendBuffer < 1 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	return o
}

// Conn is one accepted WebSocket connection. A single writer goroutine drains the send queue;
// Run owns the read side.
type Conn struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration

	state     atomic.Int32
	done      chan struct{} // closed when closing starts
	closed    chan struct{} // closed after the socket is closed and hooks ran
	closeOnce sync.Once

	mu          sync.Mutex
	closeCode   int
	closeReason string
	onClose     []func()
}

// NewConn wraps ws and starts its writer goroutine.
func NewConn(ws *websocket.Conn, opts ConnOptions) *Conn {
	opts = opts.withDefaults()
	ws.SetReadLimit(opts.ReadLimit)
	c := &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		send:         make(chan []byte, opts.SendBuffer),
		writeTimeout: opts.WriteTimeout,
		done:         make(chan struct{}),
		closed:       make(chan struct{}),
		closeCode:    websocket.CloseNormalClosure,
	}
	go c.writePump()
	return c
}

// ID returns the connection id used in logs.
func (c *Conn) ID() string { return c.id }

// Ready reports whether the connection still accepts messages.
func (c *Conn) Ready() bool { return c.state.Load() == stateOpen }

// Done is closed once the connection is fully closed.
func (c *Conn) Done() <-chan struct{} { return c.closed }

// OnClose registers fn to run once after the connection closes. If it is already closed, fn runs immediately.
func (c *Conn) OnClose(fn func()) {
	c.mu.Lock()
	if c.state.Load() != stateClosed {
		c.onClose = append(c.onClose, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}

// Send queues msg for writing without blocking.
func (c *Conn) Send(msg []byte) error {
	if !c.Ready() {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close closes the connection with a normal close frame.
func (c *Conn) Close() {
	c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith starts closing the connection with the given close code and reason. Only the first call wins.
func (c *Conn) CloseWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.closeReason = reason
		c.mu.Unlock()
		c.state.Store(stateClosing)
		close(c.done)
	})
}

// Run reads inbound messages until the peer goes away, the connection is closed, or ctx is done.
// onMessage may be nil to discard inbound data. Run returns after the connection is fully closed.
func (c *Conn) Run(ctx context.Context, onMessage func(ctx context.Context, msg []byte)) {
	stop := context.AfterFunc(ctx, func() {
		c.CloseWith(websocket.CloseGoingAway, "server shutting down")
	})
	defer func() {
		stop()
		c.CloseWith(websocket.CloseNormalClosure, "")
		<-c.closed
	}()
	for {
		mt, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) && c.Ready() {
				log.Printf("realtime: conn %s read: %v", c.id, err)
			}
			return
		}
		if onMessage == nil || (mt != websocket.TextMessage && mt != websocket.BinaryMessage) {
			continue
		}
		onMessage(ctx, msg)
	}
}

func (c *Conn) writePump() {
	defer c.finish()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("realtime: conn %s write: %v", c.id, err)
				c.CloseWith(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) finish() {
	c.mu.Lock()
	code, reason := c.closeCode, c.closeReason
	c.mu.Unlock()
	if code != websocket.CloseAbnormalClosure {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	}
	_ = c.ws.Close()

	c.mu.Lock()
	c.state.Store(stateClosed)
	hooks := c.onClose
	c.onClose = nil
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	close(c.closed)
}
