package handlers

import (
	"bytes"
	"net/http"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/present"
)

type diagnoseResponse struct {
	Result    present.DisplayModel `json:"result"`
	Fragments present.Fragments    `json:"fragments"`
}

// HandleDiagnose submits the loaded image. A second submission while one is
// pending is refused with 409, mirroring the disabled button.
func (h *Handler) HandleDiagnose(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)

	if _, busy := h.inflight.LoadOrStore(sess.ID, struct{}{}); busy || sess.RequestState() == diagnosis.Pending {
		if !busy {
			h.inflight.Delete(sess.ID)
		}
		h.writeError(w, "A diagnosis is already in progress", http.StatusConflict)
		return
	}
	defer h.inflight.Delete(sess.ID)

	model, err := sess.Submit(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, diagnoseResponse{Result: *model, Fragments: model.HTML()})
}

func (h *Handler) HandleResultChart(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	model, ok := h.session(w, r).Display()
	if !ok {
		h.writeError(w, "No result available", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := model.WriteChart(&buf); err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
