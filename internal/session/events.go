package session

// EventType identifies a session event.
type EventType int

const (
	// EventImageLoaded carries the models.ImageInfo of the new image.
	EventImageLoaded EventType = iota
	// EventViewportChanged carries the new viewport.Viewport.
	EventViewportChanged
	// EventDiagnosisStarted carries nothing.
	EventDiagnosisStarted
	// EventSlowStart carries the waking-up status text.
	EventSlowStart
	// EventDiagnosisSettled carries the request error, nil on success.
	EventDiagnosisSettled
	// EventResultReady carries the present.DisplayModel.
	EventResultReady
	// EventReset carries nothing.
	EventReset
)

// EventListener is called when an event occurs.
type EventListener func(data any)

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type. Listeners run
// without the session lock held and may call back into the session.
func (s *Session) Emit(event EventType, data any) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
