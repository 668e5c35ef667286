package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/ingest"
	"github.com/neuropathx/neuropathx/internal/samples"
	"github.com/neuropathx/neuropathx/internal/session"
	"github.com/neuropathx/neuropathx/internal/storage"
)

// SessionCookie carries the session ID between browser requests
const SessionCookie = "neuropathx_session"

// Options are the handler's collaborators
type Options struct {
	// NewSession builds a session for a new ID, with any persistence bound
	NewSession func(id string) *session.Session
	Client     *diagnosis.Client
	Samples    *samples.Manifest
	Fetcher    *samples.Fetcher
	StaticDir  string
}

type Handler struct {
	sessionStore *storage.SessionStore
	newSession   func(id string) *session.Session
	client       *diagnosis.Client
	samples      *samples.Manifest
	fetcher      *samples.Fetcher
	staticDir    string

	// sessions with a diagnosis in flight
	inflight sync.Map
}

func New(opts Options) *Handler {
	if opts.NewSession == nil {
		client := opts.Client
		opts.NewSession = func(id string) *session.Session {
			sessOpts := session.Options{}
			if client != nil {
				sessOpts.Classifier = client
			}
			return session.New(id, sessOpts)
		}
	}
	if opts.Samples == nil {
		opts.Samples = samples.Default()
	}
	return &Handler{
		sessionStore: storage.New(),
		newSession:   opts.NewSession,
		client:       opts.Client,
		samples:      opts.Samples,
		fetcher:      opts.Fetcher,
		staticDir:    opts.StaticDir,
	}
}

// Routes registers every endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/session", h.HandleSession)
	mux.HandleFunc("/api/status", h.HandleStatus)
	mux.HandleFunc("/api/reset", h.HandleReset)
	mux.HandleFunc("/api/upload", h.HandleUpload)
	mux.HandleFunc("/api/samples", h.HandleSamples)
	mux.HandleFunc("/api/samples/select", h.HandleSampleSelect)
	mux.HandleFunc("/api/viewport/events", h.HandleViewportEvents)
	mux.HandleFunc("/api/viewport/reset", h.HandleViewportReset)
	mux.HandleFunc("/api/viewport/render.png", h.HandleViewportRender)
	mux.HandleFunc("/api/image/stats", h.HandleImageStats)
	mux.HandleFunc("/api/diagnose", h.HandleDiagnose)
	mux.HandleFunc("/api/result/chart.png", h.HandleResultChart)
	mux.HandleFunc("/api/report/preview", h.HandleReport(diagnosis.ReportPreview))
	mux.HandleFunc("/api/report/download", h.HandleReport(diagnosis.ReportDownload))
	mux.HandleFunc("/api/health", h.HandleHealth)
	mux.HandleFunc("/", h.HandleStatic)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Debug(message, "status", code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	h.writeError(w, err.Error(), statusFor(err))
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var serverErr *diagnosis.ServerError
	switch {
	case errors.Is(err, ingest.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ingest.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, diagnosis.ErrNoImage):
		return http.StatusBadRequest
	case errors.Is(err, diagnosis.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, samples.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &serverErr),
		errors.Is(err, diagnosis.ErrTransport),
		errors.Is(err, diagnosis.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// Session helpers
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return h.sessionStore.GetOrCreate(c.Value, h.newSession)
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Debug("Created session", "session", id)
	return h.sessionStore.GetOrCreate(id, h.newSession)
}
