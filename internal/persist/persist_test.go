package persist

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/ingest"
	"github.com/neuropathx/neuropathx/internal/models"
	"github.com/neuropathx/neuropathx/internal/session"
)

type fixedClassifier struct{}

func (fixedClassifier) Classify(ctx context.Context, upload *diagnosis.Upload) (*models.ClassificationResult, error) {
	return &models.ClassificationResult{PredictedLabel: "No Tumor", Confidence: 0.97}, nil
}

func scan(t *testing.T) ingest.RawFile {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return ingest.NewRawFile("scan.png", "image/png", buf.Bytes())
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, ok, err := store.Load("abc"); err != nil || ok {
		t.Fatalf("Expected empty store, got ok=%v err=%v", ok, err)
	}

	want := State{ResultsVisible: true, FileName: "scan.png", UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := store.Save("abc", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, ok, err := store.Load("abc")
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if got.ResultsVisible != want.ResultsVisible || got.FileName != want.FileName || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if err := store.Delete("abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("abc"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, key := range []string{"", "../escape", "a/b", strings.Repeat("x", 200)} {
		if err := store.Save(key, State{}); err == nil {
			t.Errorf("Expected error for key %q", key)
		}
	}
}

func TestBindFollowsSession(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	sess := session.New("s1", session.Options{Classifier: fixedClassifier{}})
	if err := Bind(sess, store, sess.ID); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	if err := sess.Ingest(scan(t)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	st, ok, _ := store.Load("s1")
	if !ok || st.ResultsVisible || st.FileName != "scan.png" {
		t.Errorf("Expected loaded-image record, got %+v (ok=%v)", st, ok)
	}

	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	st, _, _ = store.Load("s1")
	if !st.ResultsVisible {
		t.Error("Expected results_visible after diagnosis")
	}
	if !st.UpdatedAt.Equal(sess.UpdatedAt()) {
		t.Errorf("Expected updated_at %v, got %v", sess.UpdatedAt(), st.UpdatedAt)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sessions", "s1.json"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("PNG")) || bytes.Contains(data, []byte("blob:")) {
		t.Error("Expected no image data or handle in persisted state")
	}

	sess.Reset()
	if _, ok, _ := store.Load("s1"); ok {
		t.Error("Expected reset to clear persisted state")
	}
}

func TestBindRestoresLayoutOnly(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save("s2", State{ResultsVisible: true, FileName: "old.png"}); err != nil {
		t.Fatal(err)
	}

	sess := session.New("s2", session.Options{})
	if err := Bind(sess, store, "s2"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if !sess.ResultsVisible() {
		t.Error("Expected restored results_visible")
	}
	if _, ok := sess.Info(); ok {
		t.Error("Expected no image to be restored")
	}
}
