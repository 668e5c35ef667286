// Package viewport maps pointer and wheel input onto the pan, zoom,
// brightness and contrast applied to the displayed image.
package viewport

import (
	"fmt"
	"math"
	"strconv"
)

const (
	MinScale = 0.5
	MaxScale = 5.0

	MinLevel = 0.2
	MaxLevel = 3.0

	zoomStep  = -0.01
	levelStep = 0.005
)

// Viewport is the transform applied to the image.
type Viewport struct {
	Scale      float64 `json:"scale"`
	PanX       float64 `json:"pan_x"`
	PanY       float64 `json:"pan_y"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

// Default returns the identity viewport
func Default() Viewport {
	return Viewport{Scale: 1, Brightness: 1, Contrast: 1}
}

// Interaction tracks an in-progress drag. It is never persisted.
type Interaction struct {
	Dragging bool
	AnchorX  float64
	AnchorY  float64
}

// State is everything the engine needs to apply the next event.
type State struct {
	Viewport    Viewport
	Interaction Interaction
}

// NewState returns the default viewport with no drag in progress
func NewState() State {
	return State{Viewport: Default()}
}

// Kind identifies an input event class.
type Kind int

const (
	Wheel Kind = iota
	PointerDown
	PointerMove
	PointerUp
	Reset
	DragStart
	ContextMenu
)

var kindNames = map[string]Kind{
	"wheel":       Wheel,
	"pointerdown": PointerDown,
	"pointermove": PointerMove,
	"pointerup":   PointerUp,
	"reset":       Reset,
	"dragstart":   DragStart,
	"contextmenu": ContextMenu,
}

// ParseKind resolves a DOM-style event name.
func ParseKind(name string) (Kind, error) {
	k, ok := kindNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown viewport event %q", name)
	}
	return k, nil
}

// Event is one observed input. Pinch gestures arrive as Ctrl+wheel.
type Event struct {
	Kind    Kind
	DeltaY  float64
	Ctrl    bool
	Shift   bool
	X, Y    float64
	OnImage bool
	Clicks  int
}

// Apply returns the state after ev and whether the platform's default
// handling (native drag, text selection, context menu, page scroll) must be
// suppressed. Wheel deltas and pointer positions that are not finite leave
// the state unchanged.
func Apply(s State, ev Event) (State, bool) {
	switch ev.Kind {
	case Wheel:
		if !finite(ev.DeltaY) {
			return s, ev.OnImage
		}
		v := s.Viewport
		switch {
		case ev.Ctrl:
			v.Scale = clamp(v.Scale+ev.DeltaY*zoomStep, MinScale, MaxScale)
		case ev.Shift:
			v.Contrast = clamp(v.Contrast+ev.DeltaY*levelStep, MinLevel, MaxLevel)
		default:
			v.Brightness = clamp(v.Brightness+ev.DeltaY*levelStep, MinLevel, MaxLevel)
		}
		s.Viewport = v
		return s, ev.OnImage

	case PointerDown:
		if !ev.OnImage || !finite(ev.X) || !finite(ev.Y) {
			return s, false
		}
		s.Interaction = Interaction{
			Dragging: true,
			AnchorX:  ev.X - s.Viewport.PanX,
			AnchorY:  ev.Y - s.Viewport.PanY,
		}
		return s, ev.Clicks > 1

	case PointerMove:
		if !s.Interaction.Dragging || !finite(ev.X) || !finite(ev.Y) {
			return s, false
		}
		s.Viewport.PanX = ev.X - s.Interaction.AnchorX
		s.Viewport.PanY = ev.Y - s.Interaction.AnchorY
		return s, false

	case PointerUp:
		s.Interaction = Interaction{}
		return s, false

	case Reset:
		return NewState(), false

	case DragStart, ContextMenu:
		return s, ev.OnImage
	}

	return s, false
}

// Transform renders the geometric part of the viewport.
func Transform(v Viewport) string {
	return fmt.Sprintf("translate(%spx, %spx) scale(%s)", num(v.PanX), num(v.PanY), num(v.Scale))
}

// Filter renders the tonal part of the viewport.
func Filter(v Viewport) string {
	return fmt.Sprintf("brightness(%s) contrast(%s)", num(v.Brightness), num(v.Contrast))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// num trims float noise from repeated small increments.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
