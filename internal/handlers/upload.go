package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/neuropathx/neuropathx/internal/ingest"
)

// Multipart overhead allowed on top of the image itself
const formSlack = 1 << 20

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxBytes+formSlack)
	file, header, err := r.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeErr(w, fmt.Errorf("%w: upload exceeds %d bytes", ingest.ErrTooLarge, ingest.MaxBytes))
		return
	}
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	raw := ingest.RawFile{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}
	// Oversize files are rejected by ingestion without being read
	if header.Size <= ingest.MaxBytes {
		raw.Data, err = io.ReadAll(io.LimitReader(file, ingest.MaxBytes+1))
		if err != nil {
			h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
			return
		}
		raw.Size = int64(len(raw.Data))
	}
	if raw.MIMEType == "" || raw.MIMEType == "application/octet-stream" {
		raw.MIMEType = ingest.DetectType(raw.Name, raw.Data)
	}

	if err := sess.Ingest(raw); err != nil {
		h.writeErr(w, fmt.Errorf("failed to load %s: %w", raw.Name, err))
		return
	}
	h.writeJSON(w, sess.Snapshot())
}
