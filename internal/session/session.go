// Package session owns the single live unit of work: the loaded image and its
// handle, the viewport, the diagnosis request and its result.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neuropathx/neuropathx/internal/clinical"
	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/ingest"
	"github.com/neuropathx/neuropathx/internal/models"
	"github.com/neuropathx/neuropathx/internal/present"
	"github.com/neuropathx/neuropathx/internal/viewport"
)

// Options are the collaborators a session is built from
type Options struct {
	Allocator  ingest.Allocator
	Classifier diagnosis.Classifier
	Catalog    *clinical.Catalog
	SlowAfter  time.Duration
}

// Session is safe for concurrent use. Its lock is never held across the
// classification call or while listeners run.
type Session struct {
	ID string

	allocator ingest.Allocator
	catalog   *clinical.Catalog
	requests  *diagnosis.Orchestrator

	mu             sync.RWMutex
	handle         *ingest.Handle
	info           *models.ImageInfo
	view           viewport.State
	result         *models.ClassificationResult
	resultsVisible bool
	lastErr        string
	imageGen       uint64
	updatedAt      time.Time

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// New creates a session with everything at defaults. An empty id gets a UUID.
func New(id string, opts Options) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if opts.Allocator == nil {
		opts.Allocator = ingest.NewMemoryAllocator()
	}
	if opts.Catalog == nil {
		opts.Catalog = clinical.Default()
	}

	s := &Session{
		ID:        id,
		allocator: opts.Allocator,
		catalog:   opts.Catalog,
		requests:  diagnosis.NewOrchestrator(opts.Classifier, opts.SlowAfter),
		view:      viewport.NewState(),
		updatedAt: time.Now(),
		listeners: make(map[EventType][]EventListener),
	}

	s.requests.OnChange(func(c diagnosis.Change) {
		switch {
		case c.SlowStart:
			s.Emit(EventSlowStart, c.Status)
		case c.State == diagnosis.Pending:
			s.Emit(EventDiagnosisStarted, nil)
		}
	})
	return s
}

// Ingest validates a candidate and, only if it passes, swaps it in as the
// loaded image. On any error the session is left unchanged.
func (s *Session) Ingest(raw ingest.RawFile) error {
	if err := ingest.Validate(raw); err != nil {
		slog.Warn("Rejected image", "file", raw.Name, "type", raw.MIMEType, "size", raw.Size, "err", err)
		return err
	}

	info := models.ImageInfo{
		FileName:  raw.Name,
		MIMEType:  ingest.NormalizeType(raw.MIMEType),
		SizeBytes: raw.Size,
	}
	if w, h, err := ingest.Dimensions(raw.Data); err != nil {
		slog.Warn("Could not read image dimensions", "file", raw.Name, "err", err)
	} else {
		info.Width, info.Height = w, h
	}

	s.mu.Lock()
	h, err := s.allocator.Acquire(raw)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to acquire image handle: %w", err)
	}
	old := s.handle
	s.handle = h
	s.allocator.Release(old)

	s.info = &info
	s.view = viewport.NewState()
	s.result = nil
	s.resultsVisible = false
	s.lastErr = ""
	s.imageGen++
	s.updatedAt = time.Now()
	s.mu.Unlock()

	s.requests.Reset()

	slog.Info("Image loaded", "session", s.ID, "file", info.FileName, "type", info.MIMEType, "bytes", info.SizeBytes)
	s.Emit(EventImageLoaded, info)
	return nil
}

// HandleInput applies events in order and reports, per event, whether the
// platform default must be prevented.
func (s *Session) HandleInput(events ...viewport.Event) (viewport.Viewport, []bool) {
	prevent := make([]bool, len(events))

	s.mu.Lock()
	before := s.view.Viewport
	for i, ev := range events {
		s.view, prevent[i] = viewport.Apply(s.view, ev)
	}
	after := s.view.Viewport
	if after != before {
		s.updatedAt = time.Now()
	}
	s.mu.Unlock()

	if after != before {
		s.Emit(EventViewportChanged, after)
	}
	return after, prevent
}

// ResetView restores the default viewport and ends any drag.
func (s *Session) ResetView() viewport.Viewport {
	v, _ := s.HandleInput(viewport.Event{Kind: viewport.Reset})
	return v
}

func (s *Session) upload() (*diagnosis.Upload, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := s.handle.Bytes()
	if data == nil || s.info == nil {
		return nil, s.imageGen
	}
	return &diagnosis.Upload{
		FileName: s.info.FileName,
		MIMEType: s.handle.MIMEType,
		Data:     data,
	}, s.imageGen
}

// Submit classifies the loaded image and, on success, stores the result and
// returns its display model. With no image it fails with diagnosis.ErrNoImage
// and nothing is sent.
func (s *Session) Submit(ctx context.Context) (*present.DisplayModel, error) {
	upload, gen := s.upload()

	result, err := s.requests.Submit(ctx, upload)
	switch {
	case errors.Is(err, diagnosis.ErrNoImage), errors.Is(err, diagnosis.ErrSuperseded):
		return nil, err
	case err != nil:
		s.mu.Lock()
		if gen != s.imageGen {
			s.mu.Unlock()
			return nil, diagnosis.ErrSuperseded
		}
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.Emit(EventDiagnosisSettled, err)
		return nil, err
	}

	s.mu.Lock()
	if gen != s.imageGen {
		s.mu.Unlock()
		return nil, diagnosis.ErrSuperseded
	}
	s.result = result
	s.resultsVisible = true
	s.lastErr = ""
	s.updatedAt = time.Now()
	model := present.Present(*result, s.catalog)
	s.mu.Unlock()

	slog.Info("Diagnosis complete", "session", s.ID, "label", result.PredictedLabel, "confidence", result.Confidence)
	s.Emit(EventDiagnosisSettled, nil)
	s.Emit(EventResultReady, model)
	return &model, nil
}

// Reset releases the image and returns every field to its default.
func (s *Session) Reset() {
	s.mu.Lock()
	s.allocator.Release(s.handle)
	s.handle = nil
	s.info = nil
	s.view = viewport.NewState()
	s.result = nil
	s.resultsVisible = false
	s.lastErr = ""
	s.imageGen++
	s.updatedAt = time.Now()
	s.mu.Unlock()

	s.requests.Reset()

	slog.Info("Session reset", "session", s.ID)
	s.Emit(EventReset, nil)
}

// Close releases the image when the session is discarded. Unlike Reset it
// emits nothing, so persisted state is left for a later session to restore.
func (s *Session) Close() {
	s.mu.Lock()
	s.allocator.Release(s.handle)
	s.handle = nil
	s.info = nil
	s.result = nil
	s.imageGen++
	s.mu.Unlock()

	s.requests.Reset()
	slog.Debug("Session closed", "session", s.ID)
}

// RestoreLayout applies a persisted "results visible" flag. Only layout is
// restored; the image must be loaded again.
func (s *Session) RestoreLayout(resultsVisible bool) {
	s.mu.Lock()
	s.resultsVisible = resultsVisible
	s.mu.Unlock()
}

func (s *Session) Info() (models.ImageInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return models.ImageInfo{}, false
	}
	return *s.info, true
}

// Image returns the loaded bytes and MIME type, or nil when nothing is loaded
func (s *Session) Image() ([]byte, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return nil, ""
	}
	return s.handle.Bytes(), s.handle.MIMEType
}

func (s *Session) Viewport() viewport.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Viewport
}

func (s *Session) Result() (models.ClassificationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return models.ClassificationResult{}, false
	}
	return *s.result, true
}

// Display presents the current result, if any.
func (s *Session) Display() (present.DisplayModel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return present.DisplayModel{}, false
	}
	return present.Present(*s.result, s.catalog), true
}

func (s *Session) RequestState() diagnosis.State {
	return s.requests.State()
}

func (s *Session) StatusText() string {
	return s.requests.Status()
}

func (s *Session) ResultsVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resultsVisible
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
