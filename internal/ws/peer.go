package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// transport is the subset of *websocket.Conn a Peer writes through.
type transport interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Peer is one connected client. The transport is owned by the peer: only its
// write pump writes data frames, and close is idempotent.
type Peer struct {
	id          string
	role        string
	remoteAddr  string
	connectedAt time.Time

	lastActivity atomic.Int64 // unix nanoseconds

	conn transport
	send chan []byte
	ping chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(id, role, remoteAddr string, conn transport, sendBuf int, now time.Time) *Peer {
	p := &Peer{
		id:          id,
		role:        role,
		remoteAddr:  remoteAddr,
		connectedAt: now,
		conn:        conn,
		send:        make(chan []byte, sendBuf),
		ping:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	p.lastActivity.Store(now.UnixNano())
	return p
}

// ID returns the identifier assigned at connect time.
func (p *Peer) ID() string { return p.id }

// Role returns the client-supplied role label.
func (p *Peer) Role() string { return p.role }

// RemoteAddr returns the best-effort client address.
func (p *Peer) RemoteAddr() string { return p.remoteAddr }

// ConnectedAt returns when the peer was admitted.
func (p *Peer) ConnectedAt() time.Time { return p.connectedAt }

// LastActivity returns when the peer last sent a frame.
func (p *Peer) LastActivity() time.Time {
	return time.Unix(0, p.lastActivity.Load())
}

func (p *Peer) touch(now time.Time) {
	p.lastActivity.Store(now.UnixNano())
}

// Open reports whether the transport is still usable.
func (p *Peer) Open() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// enqueue hands data to the write pump without blocking. It returns false
// when the peer is closed or its queue is full.
func (p *Peer) enqueue(data []byte) bool {
	if !p.Open() {
		return false
	}
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// requestPing asks the write pump to send a ping. At most one ping is
// pending at a time.
func (p *Peer) requestPing() bool {
	if !p.Open() {
		return false
	}
	select {
	case p.ping <- struct{}{}:
		return true
	default:
		return false
	}
}

func (p *Peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close() //nolint:errcheck
	})
}

// shutdown sends a going-away close frame before closing the transport.
func (p *Peer) shutdown() {
	if p.Open() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)) //nolint:errcheck
	}
	p.close()
}

// writePump drains the send queue and ping requests until the peer closes or
// a write fails. Runs in its own goroutine per peer.
func (p *Peer) writePump() {
	defer p.close()
	for {
		select {
		case <-p.done:
			return

		case data := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-p.ping:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
