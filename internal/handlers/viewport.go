package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"net/http"

	"github.com/neuropathx/neuropathx/internal/render"
	"github.com/neuropathx/neuropathx/internal/session"
	"github.com/neuropathx/neuropathx/internal/viewport"
)

var errNoImage = errors.New("no image loaded")

// inputEvent is a browser input event as posted by the front-end
type inputEvent struct {
	Type    string  `json:"type"`
	DeltaY  float64 `json:"delta_y"`
	Ctrl    bool    `json:"ctrl"`
	Shift   bool    `json:"shift"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OnImage bool    `json:"on_image"`
	Clicks  int     `json:"clicks"`
}

type viewportResponse struct {
	Viewport       viewport.Viewport `json:"viewport"`
	Transform      string            `json:"transform"`
	Filter         string            `json:"filter"`
	PreventDefault []bool            `json:"prevent_default"`
}

func newViewportResponse(v viewport.Viewport, prevent []bool) viewportResponse {
	if prevent == nil {
		prevent = []bool{}
	}
	return viewportResponse{
		Viewport:       v,
		Transform:      viewport.Transform(v),
		Filter:         viewport.Filter(v),
		PreventDefault: prevent,
	}
}

// HandleViewportEvents applies a batch of events in the order posted. The
// batch is rejected as a whole if any event type is unknown.
func (h *Handler) HandleViewportEvents(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)

	var posted []inputEvent
	if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	events := make([]viewport.Event, 0, len(posted))
	for _, p := range posted {
		kind, err := viewport.ParseKind(p.Type)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		events = append(events, viewport.Event{
			Kind:    kind,
			DeltaY:  p.DeltaY,
			Ctrl:    p.Ctrl,
			Shift:   p.Shift,
			X:       p.X,
			Y:       p.Y,
			OnImage: p.OnImage,
			Clicks:  p.Clicks,
		})
	}

	v, prevent := sess.HandleInput(events...)
	h.writeJSON(w, newViewportResponse(v, prevent))
}

func (h *Handler) HandleViewportReset(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}
	v := h.session(w, r).ResetView()
	h.writeJSON(w, newViewportResponse(v, nil))
}

// HandleViewportRender returns the loaded image with the viewport applied.
func (h *Handler) HandleViewportRender(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)

	img, ok := h.decodeImage(w, sess)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render.WritePNG(&buf, render.Apply(img, sess.Viewport())); err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) HandleImageStats(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)

	img, ok := h.decodeImage(w, sess)
	if !ok {
		return
	}
	h.writeJSON(w, render.Intensity(img))
}

// decodeImage decodes the session's image for rendering, writing the error
// response itself when it cannot.
func (h *Handler) decodeImage(w http.ResponseWriter, sess *session.Session) (image.Image, bool) {
	data, _ := sess.Image()
	if data == nil {
		h.writeError(w, errNoImage.Error(), http.StatusNotFound)
		return nil, false
	}
	img, err := render.Decode(data)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, render.ErrTooManyPixels) {
			code = http.StatusRequestEntityTooLarge
		}
		h.writeError(w, err.Error(), code)
		return nil, false
	}
	return img, true
}
