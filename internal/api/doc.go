// Package api implements the HTTP surface of obsrelay.
//
// New returns the hub router:
//
//	GET  /health   process status, peer count and server time (no auth)
//	POST /trigger  inject one event; bearer token when a token is configured
//	GET  /metrics  Prometheus text exposition
//	GET  /ws       WebSocket upgrade
//	GET  /*        WebSocket upgrade when requested, 404 otherwise
//
// NewRelay returns the pass-through relay router: WebSocket upgrades on any
// path, and a plain-text status line for every other request.
//
// JSON responses always carry Content-Type: application/json.
package api
