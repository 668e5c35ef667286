// Package ingest validates candidate image files and manages the revocable
// in-memory handles that back the loaded image.
package ingest

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxBytes is the largest accepted image (200 MiB)
const MaxBytes int64 = 200 * 1024 * 1024

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
)

// AllowedTypes is the set of accepted MIME types.
var AllowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/jpg":  true,
}

// RawFile is a candidate image regardless of where it came from
// (file picker, drag-and-drop, multipart upload or sample catalog).
type RawFile struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// NewRawFile wraps in-memory bytes; Size is taken from the data.
func NewRawFile(name, mimeType string, data []byte) RawFile {
	return RawFile{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}
}

// ReadFile builds a candidate from a local path. The MIME type comes from the
// extension and falls back to content sniffing.
func ReadFile(path string) (RawFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return RawFile{}, fmt.Errorf("failed to stat image: %w", err)
	}
	// Refuse before reading 200 MiB into memory
	if info.Size() > MaxBytes {
		return RawFile{Name: filepath.Base(path), MIMEType: DetectType(path, nil), Size: info.Size()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RawFile{}, fmt.Errorf("failed to read image: %w", err)
	}

	return NewRawFile(filepath.Base(path), DetectType(path, data), data), nil
}

// DetectType guesses a MIME type from a file name, then from content.
func DetectType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}

// NormalizeType lowercases a MIME type and strips any parameters.
func NormalizeType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Validate checks the type first, then the size.
func Validate(f RawFile) error {
	if !AllowedTypes[NormalizeType(f.MIMEType)] {
		return fmt.Errorf("%w: %q (allowed: image/jpeg, image/png)", ErrUnsupportedType, f.MIMEType)
	}
	if f.Size > MaxBytes {
		return fmt.Errorf("%w: %d bytes (max %d MB)", ErrTooLarge, f.Size, MaxBytes/1024/1024)
	}
	return nil
}
