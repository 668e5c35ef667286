package samples

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neuropathx/neuropathx/internal/ingest"
)

func TestDefaultManifest(t *testing.T) {
	m := Default()

	if m.Root == nil || !m.Root.IsFolder() {
		t.Fatal("Expected root folder")
	}
	if _, err := m.File(m.Default); err != nil {
		t.Errorf("Expected default sample to resolve: %v", err)
	}
	if len(m.Files()) != 7 {
		t.Errorf("Expected 7 sample files, got %d", len(m.Files()))
	}
}

func TestParseRejectsBadTrees(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no root", "default: a.jpg\n"},
		{"file without path", "root:\n  name: r\n  type: folder\n  children:\n    - name: a\n      type: file\n"},
		{"folder with path", "root:\n  name: r\n  type: folder\n  path: x\n"},
		{"unknown type", "root:\n  name: r\n  type: folder\n  children:\n    - name: a\n      type: link\n"},
		{"missing default", "default: nope.jpg\nroot:\n  name: r\n  type: folder\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}

func TestNavigatorOpen(t *testing.T) {
	nav := NewNavigator(Default().Root)

	tests := []struct {
		path     string
		expected string
		wantErr  bool
	}{
		{"", "Samples", false},
		{"/", "Samples", false},
		{"Glioma", "Glioma", false},
		{"No Tumor/", "No Tumor", false},
		{"Glioma/Te-gl_0010.jpg", "", true},
		{"Astrocytoma", "", true},
	}

	for _, tt := range tests {
		err := nav.Open(tt.path)
		if tt.wantErr {
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Open(%q): expected ErrNotFound, got %v", tt.path, err)
			}
			if nav.Current() != Default().Root {
				t.Errorf("Open(%q): expected to be back at the root after a failure", tt.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("Open(%q) failed: %v", tt.path, err)
			continue
		}
		if nav.Current().Name != tt.expected {
			t.Errorf("Open(%q): expected %s, got %s", tt.path, tt.expected, nav.Current().Name)
		}
	}
}

func TestManifestFileOnlyListed(t *testing.T) {
	if _, err := Default().File("../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNavigator(t *testing.T) {
	nav := NewNavigator(Default().Root)

	if err := nav.Enter("Glioma"); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if nav.Current().Name != "Glioma" {
		t.Errorf("Expected Glioma, got %s", nav.Current().Name)
	}
	crumbs := nav.Breadcrumbs()
	if len(crumbs) != 2 || crumbs[0] != "Home" || crumbs[1] != "Glioma" {
		t.Errorf("Unexpected breadcrumbs %v", crumbs)
	}
	if nav.Path() != "Glioma" {
		t.Errorf("Expected path Glioma, got %s", nav.Path())
	}

	if err := nav.Enter("Te-gl_0010.jpg"); err == nil {
		t.Error("Expected entering a file to fail")
	}
	if err := nav.Back(3); err == nil {
		t.Error("Expected out of range breadcrumb to fail")
	}

	if err := nav.Back(0); err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if nav.Current() != Default().Root {
		t.Error("Expected root after Back(0)")
	}

	_ = nav.Enter("Pituitary")
	nav.Reset()
	if len(nav.Breadcrumbs()) != 1 {
		t.Errorf("Expected reset to root, got %v", nav.Breadcrumbs())
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "glioma"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "glioma", "scan.png"), pngBytes(t), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(dir, time.Second)
	raw, err := f.Fetch(context.Background(), "glioma/scan.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if raw.Name != "scan.png" || raw.MIMEType != "image/png" {
		t.Errorf("Unexpected candidate %s %s", raw.Name, raw.MIMEType)
	}
	if err := ingest.Validate(raw); err != nil {
		t.Errorf("Expected fetched sample to validate: %v", err)
	}

	// Leading traversal is cleaned back under the root
	if _, err := f.Fetch(context.Background(), "../../glioma/scan.png"); err != nil {
		t.Errorf("Expected cleaned path to resolve under root: %v", err)
	}
}

func TestFetchRemote(t *testing.T) {
	data := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/samples/glioma/scan.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		case "/samples/glioma/sniff":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := NewFetcher(server.URL+"/samples/", time.Second)

	raw, err := f.Fetch(context.Background(), "glioma/scan.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if raw.MIMEType != "image/png" || raw.Size != int64(len(data)) {
		t.Errorf("Unexpected candidate %s %d", raw.MIMEType, raw.Size)
	}

	raw, err = f.Fetch(context.Background(), "glioma/sniff")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if raw.MIMEType != "image/png" {
		t.Errorf("Expected sniffed image/png, got %s", raw.MIMEType)
	}

	if _, err := f.Fetch(context.Background(), "glioma/missing.png"); err == nil {
		t.Error("Expected error for missing sample")
	}
}
