package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsremote/obsrelay/internal/auth"
	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/metrics"
	"github.com/obsremote/obsrelay/internal/ws"
)

// MaxTriggerBytes caps the POST /trigger body.
const MaxTriggerBytes = 1 << 20

// Handler serves the hub's HTTP routes.
type Handler struct {
	hub    *ws.Hub
	gate   *auth.Gate
	port   int
	router chi.Router
	now    func() time.Time
}

// New builds the hub router. reg may be nil, in which case /metrics is not
// mounted.
func New(hub *ws.Hub, gate *auth.Gate, port int, reg prometheus.Gatherer) http.Handler {
	if gate == nil {
		gate = auth.NewGate("")
	}
	h := &Handler{hub: hub, gate: gate, port: port, now: time.Now}

	r := baseRouter()
	r.Get("/health", h.health)
	r.Method(http.MethodPost, "/trigger", auth.Middleware(gate, http.HandlerFunc(h.trigger)))
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}
	r.Handle("/ws", hub)
	r.NotFound(upgradeOr(hub, func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	}))
	h.router = r

	return h
}

// NewRelay builds the pass-through relay router.
func NewRelay(hub *ws.Hub, port int, reg prometheus.Gatherer) http.Handler {
	status := fmt.Sprintf("Hands relay OK. WS on ws://localhost:%d", port)

	r := baseRouter()
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}
	r.Handle("/ws", hub)
	r.NotFound(upgradeOr(hub, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, status) //nolint:errcheck
	}))
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /health.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{
		OK:      true,
		Port:    h.port,
		Clients: h.hub.Len(),
		Time:    event.Timestamp(h.now()),
	})
}

// trigger handles POST /trigger. Auth has already been checked by the
// middleware.
func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxTriggerBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		jsonErr(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	ev, err := event.Parse(body)
	if err != nil {
		slog.Debug("api: trigger rejected", "err", err, "request_id", middleware.GetReqID(r.Context()))
		jsonErr(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	h.hub.Publish(ev.Enrich(h.now(), event.SourceREST, nil), nil)
	jsonResp(w, http.StatusOK, TriggerResponse{OK: true, DeliveredTo: h.hub.Len()})
}

// --- helpers ----------------------------------------------------------------

// corsOptions admits any origin: overlays and control panels are served from
// arbitrary hosts and authenticate with the bearer token, not cookies.
var corsOptions = cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowedHeaders: []string{"Authorization", "Content-Type"},
	MaxAge:         300,
}

func baseRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions))
	return r
}

// upgradeOr hands WebSocket upgrade requests to hub and everything else to
// fallback.
func upgradeOr(hub http.Handler, fallback http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			hub.ServeHTTP(w, r)
			return
		}
		fallback(w, r)
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{OK: false, Error: msg})
}
