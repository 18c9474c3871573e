package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGate_OpenMode(t *testing.T) {
	g := NewGate("")
	if !g.Open() {
		t.Error("Open: got false, want true")
	}
	for _, tok := range []string{"", "anything", "changeme"} {
		if !g.Authorize(tok) {
			t.Errorf("Authorize(%q): got false, want true in open mode", tok)
		}
	}
}

func TestGate_ExactMatch(t *testing.T) {
	g := NewGate("secret")
	if g.Open() {
		t.Error("Open: got true, want false")
	}
	cases := map[string]bool{
		"secret":  true,
		"":        false,
		"Secret":  false,
		"secret ": false,
		"secre":   false,
	}
	for tok, want := range cases {
		if got := g.Authorize(tok); got != want {
			t.Errorf("Authorize(%q): got %v, want %v", tok, got, want)
		}
	}
}

func TestGate_SetToken(t *testing.T) {
	g := NewGate("old")
	g.SetToken("new")
	if g.Authorize("old") {
		t.Error("old token still accepted after SetToken")
	}
	if !g.Authorize("new") {
		t.Error("new token rejected after SetToken")
	}
	g.SetToken("")
	if !g.Open() {
		t.Error("clearing the token should open the gate")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"Bearer ":      "",
		"bearer abc":   "",
		"Basic abc":    "",
		"":             "",
		"Bearer a b c": "a b c",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Errorf("BearerToken(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(NewGate("secret"), next)

	t.Run("valid", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
		req.Header.Set("Authorization", "Bearer secret")
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Errorf("status: got %d, want 204", rr.Code)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
		req.Header.Set("Authorization", "Bearer nope")
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status: got %d, want 401", rr.Code)
		}
		var body map[string]any
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["ok"] != false || body["error"] != "Unauthorized" {
			t.Errorf("body: got %v", body)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/trigger", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rr.Code)
		}
	})
}

func TestMiddleware_OpenModePassesThrough(t *testing.T) {
	called := false
	h := Middleware(NewGate(""), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/trigger", nil))
	if !called {
		t.Error("next handler not called in open mode")
	}
}
