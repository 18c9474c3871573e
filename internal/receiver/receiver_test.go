package receiver_test

import (
	"context"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/obsremote/obsrelay/internal/auth"
	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/receiver"
	"github.com/obsremote/obsrelay/internal/ws"
)

// fakeHub records published events and reports a fixed peer count.
type fakeHub struct {
	mu     sync.Mutex
	events []event.Event
	peers  int
}

func (f *fakeHub) Publish(ev event.Event, _ *ws.Peer) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.peers
}

func (f *fakeHub) Len() int { return f.peers }

func (f *fakeHub) published() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

// startServer runs the ingest service on a random port behind a gate holding
// token and returns a connected client.
func startServer(t *testing.T, token string, hub receiver.Publisher) receiver.IngestClient {
	t.Helper()

	srv, err := receiver.Listen("127.0.0.1:0", auth.NewGate(token), receiver.New(hub))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx) //nolint:errcheck
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient(srv.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return receiver.NewIngestClient(conn)
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func TestTrigger_PublishesEnrichedEvent(t *testing.T) {
	hub := &fakeHub{peers: 3}
	client := startServer(t, "secret", hub)

	req := mustStruct(t, map[string]interface{}{
		"type":  "toast",
		"toast": map[string]interface{}{"message": "hi"},
	})
	resp, err := client.Trigger(withToken("secret"), req)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	got := resp.AsMap()
	if got["ok"] != true {
		t.Errorf("ok: got %v, want true", got["ok"])
	}
	if got["deliveredTo"] != float64(3) {
		t.Errorf("deliveredTo: got %v, want 3", got["deliveredTo"])
	}

	events := hub.published()
	if len(events) != 1 {
		t.Fatalf("published: got %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != "toast" {
		t.Errorf("type: got %q, want toast", ev.Type)
	}
	if src, _ := ev.Get(event.KeySource); src != "grpc" {
		t.Errorf("source: got %v, want grpc", src)
	}
	if ev.ServerTs() == "" {
		t.Error("serverTs: missing")
	}
	if _, ok := ev.Get(event.KeyClient); ok {
		t.Error("client: unexpected on grpc event")
	}
}

func TestTrigger_MissingTypeInvalidArgument(t *testing.T) {
	hub := &fakeHub{}
	client := startServer(t, "", hub)

	for _, m := range []map[string]interface{}{
		{},
		{"toast": "x"},
		{"type": ""},
		{"type": 5},
	} {
		_, err := client.Trigger(context.Background(), mustStruct(t, m))
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%v: code got %v, want InvalidArgument", m, status.Code(err))
		}
	}
	if n := len(hub.published()); n != 0 {
		t.Errorf("published: got %d, want 0", n)
	}
}

func TestTrigger_Unauthenticated(t *testing.T) {
	hub := &fakeHub{}
	client := startServer(t, "secret", hub)
	req := mustStruct(t, map[string]interface{}{"type": "toast"})

	for name, ctx := range map[string]context.Context{
		"no metadata": context.Background(),
		"wrong token": withToken("nope"),
	} {
		_, err := client.Trigger(ctx, req)
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("%s: code got %v, want Unauthenticated", name, status.Code(err))
		}
	}
	if n := len(hub.published()); n != 0 {
		t.Errorf("published: got %d, want 0", n)
	}
}

func TestTrigger_RealHubNoPeers(t *testing.T) {
	client := startServer(t, "", ws.New(ws.HubOptions(), nil, nil))

	resp, err := client.Trigger(context.Background(), mustStruct(t, map[string]interface{}{"type": "scene"}))
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if got := resp.AsMap()["deliveredTo"]; got != float64(0) {
		t.Errorf("deliveredTo: got %v, want 0", got)
	}
}

func TestListen_BadAddress(t *testing.T) {
	if _, err := receiver.Listen("256.0.0.1:bad", auth.NewGate(""), receiver.New(&fakeHub{})); err == nil {
		t.Error("Listen: got nil error, want failure")
	}
}
