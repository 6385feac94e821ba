package api

import (
	"net/http"
)

type statsResponse struct {
	Events            int   `json:"events"`
	PendingDeliveries int   `json:"pending_deliveries"`
	Sent              int64 `json:"sent"`
}

func (h *Handler) getStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Events:            len(h.hooks.Catalog().Names()),
		PendingDeliveries: h.hooks.Pending(),
		Sent:              h.hooks.Sent(),
	})
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.hooks.Store().Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
