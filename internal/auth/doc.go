// Package auth implements the shared-token access check used by every ingress
// path.
//
// Gate.Authorize(presented) reports whether a presented token is acceptable.
// When the configured token is empty the gate is open and every caller passes
// (useful for local development; the server logs a warning at startup).
// Otherwise the presented token must match exactly. The comparison is a plain
// string equality, not constant-time.
//
// Middleware wraps an http.Handler with an "Authorization: Bearer <token>"
// check. UnaryInterceptor does the same for gRPC using the "authorization"
// metadata key. The WebSocket handler calls Authorize directly with the
// "token" query parameter.
package auth
