package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neuropathx/neuropathx/internal/models"
)

// State is the request state of a session
type State int

const (
	Idle State = iota
	Pending
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "pending":
		*s = Pending
	case "succeeded":
		*s = Succeeded
	case "failed":
		*s = Failed
	default:
		return fmt.Errorf("unknown request state %q", text)
	}
	return nil
}

// DefaultSlowAfter is how long a request may run before the slow-start status shows
const DefaultSlowAfter = 3 * time.Second

const (
	StatusAnalyzing = "Analyzing MRI scan..."
	StatusWakingUp  = "Waking up the AI model. The first request after a pause can take up to a minute..."
)

// Change is delivered to observers when the request state or status text moves.
type Change struct {
	State     State
	Status    string
	SlowStart bool
}

// Orchestrator runs one classification at a time for a session and tracks
// its state. Duplicate submissions are the caller's concern.
type Orchestrator struct {
	classifier Classifier
	slowAfter  time.Duration

	mu        sync.Mutex
	state     State
	status    string
	gen       uint64
	observers []func(Change)
}

func NewOrchestrator(classifier Classifier, slowAfter time.Duration) *Orchestrator {
	if slowAfter <= 0 {
		slowAfter = DefaultSlowAfter
	}
	return &Orchestrator{
		classifier: classifier,
		slowAfter:  slowAfter,
	}
}

// OnChange registers an observer. Observers run on the submitting goroutine
// with no orchestrator lock held.
func (o *Orchestrator) OnChange(fn func(Change)) {
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status is the user-visible status text; empty when nothing is in flight.
func (o *Orchestrator) Status() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Reset returns to Idle. A request still in flight settles as ErrSuperseded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.gen++
	changed := o.state != Idle || o.status != ""
	o.state = Idle
	o.status = ""
	o.mu.Unlock()

	if changed {
		o.notify(Change{State: Idle})
	}
}

type outcome struct {
	result *models.ClassificationResult
	err    error
}

// Submit classifies upload. With no upload it fails with ErrNoImage without
// touching the network or the state. Otherwise the request runs on its own
// goroutine while a slow-start timer runs alongside; both are joined here.
func (o *Orchestrator) Submit(ctx context.Context, upload *Upload) (*models.ClassificationResult, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, ErrNoImage
	}
	if o.classifier == nil {
		return nil, errors.New("no classification service configured")
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.state = Pending
	o.status = StatusAnalyzing
	o.mu.Unlock()
	o.notify(Change{State: Pending, Status: StatusAnalyzing})

	done := make(chan outcome, 1)
	go func() {
		result, err := o.classifier.Classify(ctx, upload)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(o.slowAfter)
	defer timer.Stop()

	var out outcome
	for settled := false; !settled; {
		select {
		case <-timer.C:
			o.slowStart(gen)
		case out = <-done:
			settled = true
		}
	}

	return o.settle(gen, out)
}

func (o *Orchestrator) slowStart(gen uint64) {
	o.mu.Lock()
	if gen != o.gen || o.state != Pending {
		o.mu.Unlock()
		return
	}
	o.status = StatusWakingUp
	o.mu.Unlock()

	slog.Info("Classification service is slow to answer, probably cold-starting", "after", o.slowAfter)
	o.notify(Change{State: Pending, Status: StatusWakingUp, SlowStart: true})
}

func (o *Orchestrator) settle(gen uint64, out outcome) (*models.ClassificationResult, error) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		slog.Debug("Discarding classification for a superseded request", "err", out.err)
		return nil, ErrSuperseded
	}
	if out.err == nil && out.result == nil {
		out.err = ErrMalformedResponse
	}
	state := Succeeded
	if out.err != nil {
		state = Failed
	}
	o.state = state
	o.status = ""
	o.mu.Unlock()

	if out.err != nil {
		var serverErr *ServerError
		if errors.As(out.err, &serverErr) {
			slog.Error("Classification service returned an error", "status", serverErr.Status, "err", out.err)
		} else {
			slog.Error("Classification failed", "err", out.err)
		}
	}

	o.notify(Change{State: state})
	return out.result, out.err
}

func (o *Orchestrator) notify(c Change) {
	o.mu.Lock()
	observers := make([]func(Change), len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, fn := range observers {
		fn(c)
	}
}
