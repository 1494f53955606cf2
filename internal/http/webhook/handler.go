package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/webhook"
)

// maxBodySize caps gateway callback payloads at 1 MiB.
const maxBodySize = 1 << 20

type Handler struct {
	gateways *gateway.Registry
	pipeline *webhook.Pipeline
}

func NewHandler(gateways *gateway.Registry, pipeline *webhook.Pipeline) *Handler {
	return &Handler{gateways: gateways, pipeline: pipeline}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/{gateway}", h.receive)
}

// receive is the gateway callback ingress. It always answers quickly:
// duplicates and scheduled retries are both acknowledged with 200 so
// the gateway stops redelivering.
func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	gw, err := h.gateways.Get(chi.URLParam(r, "gateway"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	ev, err := gw.ParseWebhook(r.Header, body)
	if err != nil {
		h.writeParseError(w, err)
		return
	}

	if err := h.pipeline.Ingest(r.Context(), *ev); err != nil {
		slog.Error("failed to ingest webhook", "event_id", ev.EventID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]string{"status": "accepted"}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeParseError(w http.ResponseWriter, err error) {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusUnauthorized {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	http.Error(w, err.Error(), http.StatusBadRequest)
}
