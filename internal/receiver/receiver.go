package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/obsremote/obsrelay/internal/auth"
	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/ws"
)

// Publisher is the part of *ws.Hub the receiver needs.
type Publisher interface {
	Publish(ev event.Event, exclude *ws.Peer) int
	Len() int
}

// Receiver implements IngestServer on top of a hub.
type Receiver struct {
	UnimplementedIngestServer
	hub Publisher
	now func() time.Time
}

// New creates a Receiver that publishes accepted events to hub.
func New(hub Publisher) *Receiver {
	return &Receiver{hub: hub, now: time.Now}
}

// Trigger validates and publishes one event.
func (r *Receiver) Trigger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ev, err := event.FromMap(req.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "Invalid event payload")
	}

	r.hub.Publish(ev.Enrich(r.now(), event.SourceGRPC, nil), nil)
	delivered := r.hub.Len()

	slog.Debug("receiver: event published", "type", ev.Type, "delivered_to", delivered)

	return structpb.NewStruct(map[string]interface{}{
		"ok":          true,
		"deliveredTo": delivered,
	})
}

// Server wraps a grpc.Server bound to one listener.
type Server struct {
	srv *grpc.Server
	lis net.Listener
}

// Listen binds addr and registers rec behind the gate's interceptor.
func Listen(addr string, gate *auth.Gate, rec IngestServer) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("receiver: listen %s: %w", addr, err)
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(auth.UnaryInterceptor(gate)))
	RegisterIngestServer(srv, rec)
	return &Server{srv: srv, lis: lis}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.lis.Addr() }

// Serve blocks until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.lis) }()

	select {
	case <-ctx.Done():
		s.srv.GracefulStop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("receiver: serve: %w", err)
	}
}
