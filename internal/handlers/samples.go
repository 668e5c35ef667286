package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/neuropathx/neuropathx/internal/samples"
)

type sampleListing struct {
	Path        string          `json:"path"`
	Breadcrumbs []string        `json:"breadcrumbs"`
	Default     string          `json:"default,omitempty"`
	Children    []*samples.Node `json:"children"`
}

// HandleSamples lists one folder of the sample tree. Children are returned
// without their own subtrees. The optional back parameter selects a
// breadcrumb of path instead of its last folder.
func (h *Handler) HandleSamples(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	nav := samples.NewNavigator(h.samples.Root)
	if err := nav.Open(query.Get("path")); err != nil {
		h.writeErr(w, err)
		return
	}
	// back jumps to a breadcrumb of the opened path; 0 is Home
	if back := query.Get("back"); back != "" {
		index, err := strconv.Atoi(back)
		if err == nil {
			err = nav.Back(index)
		}
		if err != nil {
			h.writeError(w, "Invalid breadcrumb: "+back, http.StatusBadRequest)
			return
		}
	}

	folder := nav.Current()
	listing := sampleListing{
		Path:        nav.Path(),
		Breadcrumbs: nav.Breadcrumbs(),
		Default:     h.samples.Default,
		Children:    make([]*samples.Node, 0, len(folder.Children)),
	}
	for _, c := range folder.Children {
		listing.Children = append(listing.Children, &samples.Node{Name: c.Name, Type: c.Type, Path: c.Path})
	}
	h.writeJSON(w, listing)
}

// HandleSampleSelect fetches a sample and loads it like an upload.
func (h *Handler) HandleSampleSelect(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)

	var request struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Path == "" {
		h.writeError(w, "path is required", http.StatusBadRequest)
		return
	}
	if h.fetcher == nil {
		h.writeError(w, "Samples are not configured", http.StatusServiceUnavailable)
		return
	}

	if _, err := h.samples.File(request.Path); err != nil {
		h.writeErr(w, err)
		return
	}
	raw, err := h.fetcher.Fetch(r.Context(), request.Path)
	if err != nil {
		h.writeError(w, "Could not load sample file: "+err.Error(), http.StatusBadGateway)
		return
	}
	if err := sess.Ingest(raw); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, sess.Snapshot())
}
