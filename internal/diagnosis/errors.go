package diagnosis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNoImage is returned before any network call when nothing is loaded
	ErrNoImage = errors.New("please upload an MRI image first")
	// ErrTransport wraps failures where no response was received
	ErrTransport = errors.New("could not reach the classification service")
	// ErrMalformedResponse is returned when a 2xx body is not a usable result
	ErrMalformedResponse = errors.New("malformed classification response")
	// ErrSuperseded is returned when the session moved on while the request was in flight
	ErrSuperseded = errors.New("diagnosis superseded by a newer session state")
)

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 64 * 1024

// ServerError is a non-2xx answer from the classification service
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// newServerError builds a ServerError from a failed response body. A JSON
// {"detail": "..."} body supplies the message; anything else falls back to
// a generic message carrying the status.
func newServerError(status int, body io.Reader) *ServerError {
	e := &ServerError{
		Status:  status,
		Message: fmt.Sprintf("server error %d", status),
	}

	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return e
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &detail); err == nil && strings.TrimSpace(detail.Detail) != "" {
		e.Message = detail.Detail
	}
	return e
}
