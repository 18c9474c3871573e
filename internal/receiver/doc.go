// Package receiver implements the obsrelay.v1.Ingest gRPC service, a
// machine-to-machine twin of POST /trigger.
//
// Trigger takes a google.protobuf.Struct holding one event. A missing or
// non-string "type" returns codes.InvalidArgument. Accepted events are
// stamped with source "grpc" and handed to the hub, and the reply is
// {ok: true, deliveredTo: <peer count>}. Authentication is enforced upstream
// by auth.UnaryInterceptor.
//
// The service descriptor is written by hand in ingest_grpc.go; the payloads
// are well-known types so no .proto compilation step is needed.
package receiver
