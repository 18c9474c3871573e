package ws

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsremote/obsrelay/internal/auth"
	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/eventlog"
	"github.com/obsremote/obsrelay/internal/idgen"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser sources run from arbitrary origins; the token is the only gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks connected peers and fans events out to them.
type Hub struct {
	opts     Options
	gate     *auth.Gate
	sink     eventlog.Sink
	registry *Registry
	now      func() time.Time // injectable for deterministic tests

	stats *hubStats
}

// New creates a Hub. A nil gate admits everyone; a nil sink discards events.
func New(opts Options, gate *auth.Gate, sink eventlog.Sink) *Hub {
	if gate == nil {
		gate = auth.NewGate("")
	}
	if sink == nil {
		sink = eventlog.Nop{}
	}
	h := &Hub{
		opts:     opts.withDefaults(),
		gate:     gate,
		sink:     sink,
		registry: NewRegistry(),
		now:      time.Now,
	}
	h.stats = newHubStats(func() float64 { return float64(h.Len()) })
	return h
}

// Options returns the effective settings.
func (h *Hub) Options() Options { return h.opts }

// Len returns the number of connected peers.
func (h *Hub) Len() int { return h.registry.Len() }

// ServeHTTP upgrades the request and serves the peer until its transport
// closes. Requests without a valid token are closed with 1008 before any
// frame is exchanged; once Run has stopped, upgrades are closed with 1001.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	q := r.URL.Query()
	addr := clientAddr(r)
	if h.registry.Closed() {
		h.refuseStopping(conn, addr)
		return
	}
	if !h.gate.Authorize(q.Get("token")) {
		h.stats.authFailures.Inc()
		slog.Warn("ws: unauthorized connection rejected", "ip", addr)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)) //nolint:errcheck
		conn.Close()
		return
	}

	id, err := idgen.Peer()
	if err != nil {
		slog.Error("ws: peer id generation failed", "err", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)) //nolint:errcheck
		conn.Close()
		return
	}

	p := newPeer(id, h.role(q.Get("role")), addr, conn, h.opts.SendBuffer, h.now())
	if !h.connect(p) {
		h.refuseStopping(conn, addr)
		return
	}
	go p.writePump()

	h.readLoop(conn, p) // blocks until the connection closes
	h.disconnect(p)
}

// Publish logs ev and broadcasts it. It is the shared path for every ingress
// adapter once an event has been enriched.
func (h *Hub) Publish(ev event.Event, exclude *Peer) int {
	h.stats.countEvent(ev)
	h.sink.Append(ev)
	return h.Broadcast(ev, exclude)
}

// Broadcast encodes ev once and enqueues it for every open peer except
// exclude. It returns the number of peers the frame was queued for.
func (h *Hub) Broadcast(ev event.Event, exclude *Peer) int {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("ws: encode broadcast failed", "type", ev.Type, "err", err)
		return 0
	}
	return h.BroadcastRaw(data, exclude)
}

// BroadcastRaw enqueues data for every open peer except exclude. Closed peers
// found along the way are disconnected; peers with a full queue miss the frame.
func (h *Hub) BroadcastRaw(data []byte, exclude *Peer) int {
	var (
		delivered int
		dead      []*Peer
	)
	h.registry.Each(func(p *Peer) {
		if p == exclude {
			return
		}
		if !p.Open() {
			dead = append(dead, p)
			return
		}
		if p.enqueue(data) {
			delivered++
			return
		}
		h.stats.droppedBackpressure.Inc()
		slog.Debug("ws: peer queue full, frame skipped", "id", p.id)
	})
	for _, p := range dead {
		h.disconnect(p)
	}
	return delivered
}

// --- internal ---------------------------------------------------------------

// connect registers p. In hub mode the hello is queued while p is admitted,
// so it is always the first frame p receives. It reports false when the hub
// has stopped.
func (h *Hub) connect(p *Peer) bool {
	total := 0
	ok := h.registry.Admit(p, func(n int) {
		total = n
		if !h.opts.Passthrough {
			h.sendTo(p, event.Hello(h.now(), p.id, p.role, n))
		}
	})
	if !ok {
		return false
	}
	h.stats.connections.Inc()
	slog.Info("ws: peer connected", "id", p.id, "role", p.role, "ip", p.remoteAddr, "total", total)
	return true
}

func (h *Hub) refuseStopping(conn *websocket.Conn, addr string) {
	h.stats.rejectedStopping.Inc()
	slog.Debug("ws: connection refused, hub stopped", "ip", addr)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)) //nolint:errcheck
	conn.Close()
}

// disconnect closes p and, if this call removed it from the registry,
// announces the departure. It reports whether p was removed.
func (h *Hub) disconnect(p *Peer) bool {
	p.close()
	if !h.registry.Remove(p) {
		return false
	}
	h.stats.disconnects.Inc()
	total := h.registry.Len()

	slog.Info("ws: peer disconnected", "id", p.id, "role", p.role, "total", total)

	if !h.opts.Passthrough {
		h.Broadcast(event.Leave(h.now(), p.id, p.role, total), nil)
	}
	return true
}

func (h *Hub) readLoop(conn *websocket.Conn, p *Peer) {
	conn.SetReadLimit(h.opts.readLimit())
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Debug("ws: read error", "id", p.id, "err", err)
			}
			return
		}
		h.handleFrame(p, raw)
	}
}

// handleFrame processes one inbound data frame from p.
func (h *Hub) handleFrame(p *Peer, raw []byte) {
	now := h.now()
	p.touch(now)

	if len(raw) > h.opts.MaxFrameBytes {
		h.stats.droppedOversize.Inc()
		slog.Debug("ws: oversized frame dropped", "id", p.id, "bytes", len(raw))
		return
	}

	if h.opts.Passthrough {
		h.stats.countSource(event.SourceWS)
		h.BroadcastRaw(raw, p)
		return
	}

	ev, err := event.Parse(raw)
	if err != nil {
		h.stats.invalid.Inc()
		h.sendTo(p, event.Ack(now, false, event.AckMessage(err)))
		return
	}

	enriched := ev.Enrich(now, event.SourceWS, &event.Origin{ID: p.id, Role: p.role, IP: p.remoteAddr})

	var exclude *Peer
	if !h.opts.IncludeSender {
		exclude = p
	}
	h.Publish(enriched, exclude)
	h.sendTo(p, event.Ack(now, true, "received"))
}

func (h *Hub) sendTo(p *Peer, ev event.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("ws: encode frame failed", "type", ev.Type, "err", err)
		return
	}
	if !p.enqueue(data) && p.Open() {
		h.stats.droppedBackpressure.Inc()
	}
}

func (h *Hub) role(raw string) string {
	if raw == "" {
		raw = "unknown"
	}
	r := []rune(raw)
	if len(r) > h.opts.RoleMaxLen {
		r = r[:h.opts.RoleMaxLen]
	}
	return string(r)
}

// clientAddr prefers the first X-Forwarded-For entry over the socket address.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
