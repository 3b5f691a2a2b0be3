package diag

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/realtime"
	"courier-driver-agent/internal/store"
)

// Snapshotter exposes the current order collections.
type Snapshotter interface {
	Snapshot() store.Snapshot
}

// ChannelState exposes the push-channel connection state.
type ChannelState interface {
	State() realtime.State
}

// Handlers holds the diagnostics endpoint dependencies.
type Handlers struct {
	Logger  logx.Logger
	Orders  Snapshotter
	Channel ChannelState
}

// NewHandlers creates a Handlers instance.
func NewHandlers(logger logx.Logger, orders Snapshotter, channel ChannelState) *Handlers {
	return &Handlers{Logger: logger, Orders: orders, Channel: channel}
}

// Ping handles GET /ping and returns 200 with {"message":"pong"}.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead handles HEAD /healthcheck and returns 204 No Content.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// DebugOrders handles GET /debug/orders and dumps the order collections.
func (h *Handlers) DebugOrders(w http.ResponseWriter, r *http.Request) {
	snap := h.Orders.Snapshot()
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"available": snap.Available,
		"mine":      snap.Mine,
		"history":   snap.History,
	})
}

// DebugRealtime handles GET /debug/realtime and reports the channel state.
func (h *Handlers) DebugRealtime(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"state": string(h.Channel.State()),
	})
}

// NotFound returns a JSON 404 error for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "route not found")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.Logger.Error("json encode",
			logx.String("req_id", reqID(r)),
			logx.Err(err),
		)
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.Logger.Warn("http error",
		logx.String("req_id", reqID(r)),
		logx.Int("status", status),
		logx.String("msg", msg),
	)
	h.writeJSON(w, r, status, errResponse{Error: msg})
}

func reqID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return "-"
}
