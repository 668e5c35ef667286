// Package diagnosis talks to the remote classification service and drives
// the request state machine around it.
package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/neuropathx/neuropathx/internal/models"
)

// Upload is the image submitted for classification
type Upload struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Classifier classifies one image
type Classifier interface {
	Classify(ctx context.Context, upload *Upload) (*models.ClassificationResult, error)
}

// Health is the service health answer
type Health struct {
	Status      string `json:"status" yaml:"status"`
	ModelLoaded bool   `json:"model_loaded" yaml:"model_loaded"`
}

// ReportKind selects the report endpoint
type ReportKind string

const (
	ReportPreview  ReportKind = "preview"
	ReportDownload ReportKind = "download"
)

// ReportFileName is the save-as name for downloaded reports
const ReportFileName = "MRI_Report.pdf"

// Client is an HTTP client for the classification and report service
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A zero timeout means no timeout
// beyond the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Classify posts the image as the multipart field "file" to /mri_prediction.
func (c *Client) Classify(ctx context.Context, upload *Upload) (*models.ClassificationResult, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, ErrNoImage
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(upload.FileName)))
	if upload.MIMEType != "" {
		header.Set("Content-Type", upload.MIMEType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, fmt.Errorf("failed to write image to form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mri_prediction", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	slog.Debug("Submitting image for classification", "url", req.URL.String(), "file", upload.FileName, "bytes", len(upload.Data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newServerError(resp.StatusCode, resp.Body)
	}

	var result models.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: missing class or confidence outside [0,1]", ErrMalformedResponse)
	}
	if result.Note != "" {
		slog.Info("Classification service note", "note", result.Note)
	}

	return &result, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newServerError(resp.StatusCode, resp.Body)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &h, nil
}

// ReportURL returns the preview or download URL for a session.
func (c *Client) ReportURL(kind ReportKind, sessionID string) (string, error) {
	switch kind {
	case ReportPreview, ReportDownload:
	default:
		return "", fmt.Errorf("unknown report kind %q", kind)
	}

	u, err := url.Parse(c.BaseURL + "/report/" + string(kind))
	if err != nil {
		return "", fmt.Errorf("failed to parse report url: %w", err)
	}
	if sessionID != "" {
		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Report is a streamed report document. The caller closes Body.
type Report struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// FetchReport streams the report document for a session.
func (c *Client) FetchReport(ctx context.Context, kind ReportKind, sessionID string) (*Report, error) {
	reportURL, err := c.ReportURL(kind, sessionID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, newServerError(resp.StatusCode, resp.Body)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &Report{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}
