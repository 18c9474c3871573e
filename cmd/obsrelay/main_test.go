package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/obsremote/obsrelay/internal/config"
	"github.com/obsremote/obsrelay/internal/event"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

// waitHTTP polls url until it answers or the deadline passes.
func waitHTTP(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET %s: %v", url, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestTriggerRequest(t *testing.T) {
	req, err := triggerRequest(`{"type":"toast","toast":{"message":"hi"}}`)
	if err != nil {
		t.Fatalf("triggerRequest: %v", err)
	}
	if got := req.AsMap()["type"]; got != "toast" {
		t.Errorf("type: got %v, want toast", got)
	}

	if _, err := triggerRequest("nope"); !errors.Is(err, event.ErrMalformed) {
		t.Errorf("malformed: got %v, want ErrMalformed", err)
	}
	if _, err := triggerRequest(`{"toast":{}}`); !errors.Is(err, event.ErrMissingType) {
		t.Errorf("missing type: got %v, want ErrMissingType", err)
	}
}

func TestHubOptions(t *testing.T) {
	h := config.HubConfig{
		IncludeSender: true,
		MaxFrameBytes: 10,
		RoleMaxLen:    4,
		SendBuffer:    2,
		PruneInterval: time.Second,
		IdleThreshold: time.Minute,
	}
	o := hubOptions(h)
	if !o.IncludeSender || o.MaxFrameBytes != 10 || o.RoleMaxLen != 4 || o.SendBuffer != 2 {
		t.Errorf("options: got %+v", o)
	}
	if o.PruneInterval != time.Second || o.IdleThreshold != time.Minute || o.Passthrough {
		t.Errorf("options: got %+v", o)
	}
}

func TestRunRelay_StatusAndShutdown(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runRelay(ctx, config.RelayConfig{Port: port, MaxFrameBytes: 2000}) }()

	resp := waitHTTP(t, "http://127.0.0.1:"+strconv.Itoa(port)+"/")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if want := "Hands relay OK. WS on ws://localhost:" + strconv.Itoa(port); string(body) != want {
		t.Errorf("body: got %q, want %q", body, want)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runRelay: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runRelay did not return after cancel")
	}
}

func TestRunServe_TriggerIsLogged(t *testing.T) {
	for _, k := range []string{config.EnvPort, config.EnvRelayPort, config.EnvLogDir, config.DefaultNATSURLEnv} {
		t.Setenv(k, "")
	}
	t.Setenv(config.DefaultTokenEnv, "secret")

	c, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Server.HTTPPort = freePort(t)
	c.Server.Log.Dir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, c) }()

	base := "http://127.0.0.1:" + strconv.Itoa(c.Server.HTTPPort)
	waitHTTP(t, base+"/health").Body.Close()

	req, _ := http.NewRequest(http.MethodPost, base+"/trigger", strings.NewReader(`{"type":"toast"}`))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /trigger: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}

	files, _ := filepath.Glob(filepath.Join(c.Server.Log.Dir, "events-*.jsonl"))
	if len(files) != 1 {
		t.Fatalf("log files: got %v, want 1", files)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	lines := 0
	for sc.Scan() {
		ev, err := event.Parse(sc.Bytes())
		if err != nil {
			t.Fatalf("parse line: %v", err)
		}
		if src, _ := ev.Get(event.KeySource); ev.Type != "toast" || src != "rest" {
			t.Errorf("logged: got %+v", ev)
		}
		lines++
	}
	if lines != 1 {
		t.Errorf("lines: got %d, want 1", lines)
	}
}
