package session

import (
	"time"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/models"
	"github.com/neuropathx/neuropathx/internal/present"
	"github.com/neuropathx/neuropathx/internal/viewport"
)

// Snapshot is a point-in-time view of a session for adapters.
type Snapshot struct {
	ID             string                `json:"id" yaml:"id"`
	Image          *models.ImageInfo     `json:"image,omitempty" yaml:"image,omitempty"`
	Handle         string                `json:"handle,omitempty" yaml:"handle,omitempty"`
	Viewport       viewport.Viewport     `json:"viewport" yaml:"viewport"`
	Transform      string                `json:"transform" yaml:"transform"`
	Filter         string                `json:"filter" yaml:"filter"`
	Dragging       bool                  `json:"dragging" yaml:"dragging"`
	RequestState   diagnosis.State       `json:"request_state" yaml:"request_state"`
	Status         string                `json:"status,omitempty" yaml:"status,omitempty"`
	Error          string                `json:"error,omitempty" yaml:"error,omitempty"`
	ResultsVisible bool                  `json:"results_visible" yaml:"results_visible"`
	Result         *present.DisplayModel `json:"result,omitempty" yaml:"result,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at" yaml:"updated_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		ID:             s.ID,
		Viewport:       s.view.Viewport,
		Transform:      viewport.Transform(s.view.Viewport),
		Filter:         viewport.Filter(s.view.Viewport),
		Dragging:       s.view.Interaction.Dragging,
		ResultsVisible: s.resultsVisible,
		UpdatedAt:      s.updatedAt,
	}
	if s.info != nil {
		info := *s.info
		snap.Image = &info
	}
	if s.handle != nil {
		snap.Handle = s.handle.ID
	}
	if s.result != nil {
		model := present.Present(*s.result, s.catalog)
		snap.Result = &model
	}
	lastErr := s.lastErr
	s.mu.RUnlock()

	snap.RequestState = s.requests.State()
	snap.Status = s.requests.Status()
	if snap.RequestState == diagnosis.Failed {
		snap.Error = lastErr
	}
	return snap
}
