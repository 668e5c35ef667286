package handlers

import (
	"net/http"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
)

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	h.writeJSON(w, h.session(w, r).Snapshot())
}

// HandleStatus is polled while a diagnosis is pending to pick up the
// slow-start message.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)
	h.writeJSON(w, struct {
		RequestState diagnosis.State `json:"request_state"`
		Status       string          `json:"status"`
	}{
		RequestState: sess.RequestState(),
		Status:       sess.StatusText(),
	})
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	sess.Reset()
	h.writeJSON(w, sess.Snapshot())
}
