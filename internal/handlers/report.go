package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
)

// HandleReport proxies the remote report for the caller's session.
func (h *Handler) HandleReport(kind diagnosis.ReportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.allow(w, r, http.MethodGet) {
			return
		}
		if h.client == nil {
			h.writeError(w, "Classification service is not configured", http.StatusServiceUnavailable)
			return
		}
		sess := h.session(w, r)

		report, err := h.client.FetchReport(r.Context(), kind, sess.ID)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		defer report.Body.Close()

		w.Header().Set("Content-Type", report.ContentType)
		if report.ContentLength > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(report.ContentLength, 10))
		}
		disposition := "inline"
		if kind == diagnosis.ReportDownload {
			disposition = "attachment"
		}
		w.Header().Set("Content-Disposition", disposition+`; filename="`+diagnosis.ReportFileName+`"`)

		if _, err := io.Copy(w, report.Body); err != nil {
			slog.Error("Failed to stream report", "session", sess.ID, "err", err)
		}
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	if h.client == nil {
		h.writeError(w, "Classification service is not configured", http.StatusServiceUnavailable)
		return
	}

	health, err := h.client.Health(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, health)
}
