package api

import (
	"errors"
	"net/http"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/subscription"
)

type eventResponse struct {
	Name       string `json:"name"`
	Descriptor string `json:"descriptor,omitempty"`
}

type fireRequest struct {
	Payload      any  `json:"payload"`
	OmitEnvelope bool `json:"omit_envelope,omitempty"`
}

func (h *Handler) listEvents(w http.ResponseWriter, _ *http.Request) {
	cat := h.hooks.Catalog()
	events := cat.Events()

	out := make([]eventResponse, 0, len(events))
	for _, name := range cat.Names() {
		out = append(out, eventResponse{Name: name, Descriptor: events[name]})
	}
	writeJSON(w, http.StatusOK, out)
}

// fireEvent fires a configured event with the request payload for the
// caller's subscriptions. Events configured with the "+" marker reach every
// owner.
func (h *Handler) fireEvent(w http.ResponseWriter, r *http.Request) {
	o, ok := owner(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")
	if !h.hooks.Catalog().Has(name) {
		writeError(w, http.StatusNotFound, "event not configured")
		return
	}

	var req fireRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.hooks.OnRawEvent(r.Context(), resthook.RawEvent{
		Event:        name,
		Payload:      req.Payload,
		Scope:        subscription.ForOwner(o),
		OmitEnvelope: req.OmitEnvelope,
	})
	switch {
	case errors.Is(err, resthook.ErrPayloadValidationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
