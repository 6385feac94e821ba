package api

import (
	"errors"
	"net/http"

	"github.com/xraph/resthook"
	"github.com/xraph/resthook/id"
	"github.com/xraph/resthook/subscription"
)

type subscriptionRequest struct {
	Event  string `json:"event"`
	Target string `json:"target"`
}

type subscriptionResponse struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Target    string `json:"target"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toResponse(sub *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:        sub.ID.String(),
		Event:     sub.Event,
		Target:    sub.Target,
		CreatedAt: sub.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt: sub.UpdatedAt.UTC().Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	o, ok := owner(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.hooks.Subscriptions().Create(r.Context(), subscription.Input{
		Owner:  o,
		Event:  req.Event,
		Target: req.Target,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(sub))
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	o, ok := owner(w, r)
	if !ok {
		return
	}

	subs, err := h.hooks.Subscriptions().List(r.Context(), subscription.Filter{
		Event:  queryParam(r, "event"),
		Owner:  o,
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]subscriptionResponse, len(subs))
	for i, sub := range subs {
		out[i] = toResponse(sub)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sub))
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.hooks.Subscriptions().Update(r.Context(), sub.ID, subscription.Input{
		Event:  req.Event,
		Target: req.Target,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.hooks.Subscriptions().Delete(r.Context(), sub.ID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// owned loads the subscription named by the path and checks it belongs to
// the caller. Another owner's subscription is reported as not found.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*subscription.Subscription, bool) {
	o, ok := owner(w, r)
	if !ok {
		return nil, false
	}

	subID, err := id.ParseSubscriptionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return nil, false
	}

	sub, err := h.hooks.Subscriptions().Get(r.Context(), subID)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if sub.Owner != o {
		writeError(w, http.StatusNotFound, "subscription not found")
		return nil, false
	}
	return sub, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *resthook.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, resthook.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "subscription not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
