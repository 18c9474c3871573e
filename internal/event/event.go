package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Wire keys set by the server.
const (
	KeyType     = "type"
	KeyServerTs = "serverTs"
	KeySource   = "source"
	KeyClient   = "client"
)

// Frame types synthesised by the hub.
const (
	TypeHello    = "hello"
	TypeAck      = "ack"
	TypePresence = "presence"
)

// Source tags the ingress path an event arrived on.
type Source string

const (
	SourceWS   Source = "ws"
	SourceREST Source = "rest"
	SourceGRPC Source = "grpc"
)

var (
	// ErrMalformed is returned for frames that are not a JSON object.
	ErrMalformed = errors.New("event: invalid JSON")
	// ErrMissingType is returned for objects without a non-empty string "type".
	ErrMissingType = errors.New("event: missing type")
)

// Origin identifies the peer a WebSocket event came from.
type Origin struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	IP   string `json:"ip"`
}

// Event is one message unit: a discriminator plus arbitrary extra fields.
// Fields never contains the "type" key.
type Event struct {
	Type   string
	Fields map[string]any
}

// New builds an Event of the given type. fields is copied.
func New(typ string, fields map[string]any) Event {
	ev := Event{Type: typ, Fields: make(map[string]any, len(fields)+3)}
	for k, v := range fields {
		if k == KeyType {
			continue
		}
		ev.Fields[k] = v
	}
	return ev
}

// Parse decodes a raw frame. Numbers are kept as json.Number so client values
// are relayed without float rounding.
func Parse(raw []byte) (Event, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Event{}, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}
	switch v := v.(type) {
	case map[string]any:
		return FromMap(v)
	case []any:
		// A container without a type key, same as an object missing it.
		return Event{}, ErrMissingType
	default:
		return Event{}, ErrMalformed
	}
}

// FromMap validates an already-decoded object.
func FromMap(m map[string]any) (Event, error) {
	if m == nil {
		return Event{}, ErrMalformed
	}
	typ, _ := m[KeyType].(string)
	if typ == "" {
		return Event{}, ErrMissingType
	}
	return New(typ, m), nil
}

// AckMessage maps a Parse error to the text sent back in a negative ack.
func AckMessage(err error) string {
	if errors.Is(err, ErrMissingType) {
		return "Missing type"
	}
	return "Invalid JSON"
}

// Enrich returns a copy of e stamped with the server timestamp, source and,
// when origin is non-nil, the sending peer. Server keys overwrite client keys.
func (e Event) Enrich(now time.Time, src Source, origin *Origin) Event {
	out := New(e.Type, e.Fields)
	out.Fields[KeyServerTs] = Timestamp(now)
	out.Fields[KeySource] = string(src)
	if origin != nil {
		out.Fields[KeyClient] = *origin
	}
	return out
}

// Get returns the value stored under key. "type" is served from e.Type.
func (e Event) Get(key string) (any, bool) {
	if key == KeyType {
		return e.Type, e.Type != ""
	}
	v, ok := e.Fields[key]
	return v, ok
}

// ServerTs returns the enrichment timestamp, or "" if the event is not enriched.
func (e Event) ServerTs() string {
	s, _ := e.Fields[KeyServerTs].(string)
	return s
}

// MarshalJSON flattens the event into a single JSON object.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		m[k] = v
	}
	m[KeyType] = e.Type
	return json.Marshal(m)
}

// UnmarshalJSON applies the same validation as Parse.
func (e *Event) UnmarshalJSON(b []byte) error {
	ev, err := Parse(b)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

// Timestamp formats t as an ISO-8601 UTC string with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
