package eventlog

import (
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/obsremote/obsrelay/internal/event"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestNATS_ImplementsSink(t *testing.T) {
	var _ Sink = (*NATS)(nil)
	var _ Sink = (*DailyFile)(nil)
}

func TestNATS_PublishesEnrichedEvent(t *testing.T) {
	url := startTestNATS(t)

	sink, err := NewNATS(url, "obsrelay.events")
	if err != nil {
		t.Fatalf("NewNATS: %v", err)
	}
	defer sink.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("obsrelay.events", ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	ev := event.New("toast", map[string]any{"message": "hi"}).Enrich(time.Now(), event.SourceREST, nil)
	sink.Append(ev)
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	select {
	case msg := <-ch:
		var got map[string]any
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["type"] != "toast" || got["message"] != "hi" || got["source"] != "rest" {
			t.Errorf("got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mirrored event")
	}
	if sink.Failed() != 0 {
		t.Errorf("Failed: got %d, want 0", sink.Failed())
	}
}

func TestNewNATS_Unreachable(t *testing.T) {
	_, err := NewNATS("nats://127.0.0.1:1", "x", nats.Timeout(200*time.Millisecond))
	if err == nil {
		t.Fatal("expected error connecting to an unreachable server")
	}
}
