// Package ws implements the WebSocket hub: membership, broadcast, connection
// lifecycle and idle pruning.
//
// New(opts, gate, sink) creates a Hub. Hub.ServeHTTP upgrades a request,
// checks the "token" query parameter against the gate (closing with 1008 on
// failure), registers a Peer and sends it a hello frame. Every inbound frame is
// validated, enriched, appended to the sink, broadcast and acknowledged. When
// the transport closes the peer is removed and the remaining peers receive a
// presence/leave frame.
//
// Hub.Run(ctx) owns the prune ticker: closed peers are removed, peers idle for
// longer than Options.IdleThreshold are pinged. When ctx is cancelled every
// connection is closed.
//
// Options.Passthrough turns the hub into a plain relay: frames are forwarded
// verbatim to every other peer with no auth, hello, ack, presence or logging.
//
// Frame format sent to clients (hub mode):
//
//	{"type":"hello","serverTs":"...","id":"p-...","role":"overlay","totalClients":2}
//	{"type":"ack","ok":true,"message":"received","serverTs":"..."}
//	{"type":"presence","action":"leave","id":"p-...","role":"control","serverTs":"...","totalClients":1}
//	{"type":"toast","message":"hi","serverTs":"...","source":"ws","client":{"id":"p-...","role":"control","ip":"..."}}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level.
package ws
