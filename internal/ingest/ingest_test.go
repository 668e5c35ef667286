package ingest

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		file     RawFile
		expected error
	}{
		{
			name:     "accepts jpeg",
			file:     RawFile{MIMEType: "image/jpeg", Size: 1024},
			expected: nil,
		},
		{
			name:     "accepts legacy image/jpg",
			file:     RawFile{MIMEType: "image/jpg", Size: 1024},
			expected: nil,
		},
		{
			name:     "accepts png with parameters and odd case",
			file:     RawFile{MIMEType: "Image/PNG; charset=binary", Size: 1024},
			expected: nil,
		},
		{
			name:     "accepts exactly the limit",
			file:     RawFile{MIMEType: "image/png", Size: MaxBytes},
			expected: nil,
		},
		{
			name:     "rejects gif",
			file:     RawFile{MIMEType: "image/gif", Size: 10},
			expected: ErrUnsupportedType,
		},
		{
			name:     "rejects dicom",
			file:     RawFile{MIMEType: "application/dicom", Size: 10},
			expected: ErrUnsupportedType,
		},
		{
			name:     "rejects one byte over the limit",
			file:     RawFile{MIMEType: "image/jpeg", Size: MaxBytes + 1},
			expected: ErrTooLarge,
		},
		{
			name:     "type is checked before size",
			file:     RawFile{MIMEType: "text/plain", Size: MaxBytes * 2},
			expected: ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.expected == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestOversizeRejectedForEveryAllowedType(t *testing.T) {
	for mimeType := range AllowedTypes {
		err := Validate(RawFile{MIMEType: mimeType, Size: MaxBytes + 512})
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("Expected ErrTooLarge for %s, got %v", mimeType, err)
		}
	}
}

func TestMemoryAllocator(t *testing.T) {
	alloc := NewMemoryAllocator()

	h1, err := alloc.Acquire(NewRawFile("a.png", "image/png", []byte("one")))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	h2, err := alloc.Acquire(NewRawFile("b.png", "image/png", []byte("two")))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if h1.ID == h2.ID {
		t.Errorf("Expected distinct handle IDs, got %s twice", h1.ID)
	}
	if alloc.Live() != 2 {
		t.Errorf("Expected 2 live handles, got %d", alloc.Live())
	}

	alloc.Release(h1)
	alloc.Release(h1)
	alloc.Release(nil)

	if alloc.Live() != 1 {
		t.Errorf("Expected 1 live handle, got %d", alloc.Live())
	}
	if !h1.Revoked() || h1.Bytes() != nil {
		t.Error("Expected released handle to be revoked with no data")
	}
	if string(h2.Bytes()) != "two" {
		t.Errorf("Expected live handle data 'two', got %q", h2.Bytes())
	}
}

func TestAcquireWithoutData(t *testing.T) {
	alloc := NewMemoryAllocator()
	if _, err := alloc.Acquire(RawFile{Name: "x.png", MIMEType: "image/png", Size: 10}); err == nil {
		t.Error("Expected error acquiring a candidate without data")
	}
	if alloc.Live() != 0 {
		t.Errorf("Expected 0 live handles, got %d", alloc.Live())
	}
}

func TestReadFileAndDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 7, 3))); err != nil {
		t.Fatalf("encode: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if f.Name != "scan.png" {
		t.Errorf("Expected name scan.png, got %s", f.Name)
	}
	if f.MIMEType != "image/png" {
		t.Errorf("Expected image/png, got %s", f.MIMEType)
	}
	if f.Size != int64(buf.Len()) {
		t.Errorf("Expected size %d, got %d", buf.Len(), f.Size)
	}

	w, h, err := Dimensions(f.Data)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 7 || h != 3 {
		t.Errorf("Expected 7x3, got %dx%d", w, h)
	}
}

func TestDetectTypeSniffsContent(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := DetectType("no-extension", buf.Bytes()); got != "image/png" {
		t.Errorf("Expected image/png, got %s", got)
	}
	if got := DetectType("no-extension", nil); got != "application/octet-stream" {
		t.Errorf("Expected application/octet-stream, got %s", got)
	}
}
