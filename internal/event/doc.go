// Package event defines the JSON event envelope exchanged between peers.
//
// An Event is a required "type" discriminator plus an open map of additional
// fields that are carried verbatim. Parse validates raw frames; Enrich stamps
// the server timestamp, ingress source and (for WebSocket frames) the origin
// peer before an event is logged and broadcast.
//
// Server-synthesised frames (hello, ack, presence) are built with Hello, Ack
// and Leave so every frame on the wire shares the same envelope.
package event
