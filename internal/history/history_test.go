package history

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/ingest"
	"github.com/neuropathx/neuropathx/internal/models"
	"github.com/neuropathx/neuropathx/internal/session"
)

func TestJournalAppendAndLoad(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "nested", "history.parquet"))

	records, err := j.Load()
	if err != nil || len(records) != 0 {
		t.Fatalf("Expected empty journal, got %d records (%v)", len(records), err)
	}

	if err := j.Append(Record{SessionID: "a", Label: "Glioma Tumor", Confidence: 0.9, TimestampMS: 1000}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Append(
		Record{SessionID: "b", Error: "server error 500", Status: 500, TimestampMS: 2000},
		Record{SessionID: "c", Label: "No Tumor", Confidence: 0.8, TimestampMS: 3000},
	); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, err = j.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].SessionID != "a" || records[1].Status != 500 || records[2].Label != "No Tumor" {
		t.Errorf("Unexpected records %+v", records)
	}
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{Label: "Glioma Tumor", Confidence: 0.9, DurationMS: 100, TimestampMS: 3000},
		{Label: "Glioma Tumor", Confidence: 0.7, DurationMS: 300, TimestampMS: 1000},
		{Label: "No Tumor", Confidence: 0.99, DurationMS: 200, TimestampMS: 2000},
		{Error: "could not reach the classification service", DurationMS: 5000, TimestampMS: 4000},
	}

	s := Summarize(records)
	if s.Total != 4 || s.SuccessCount != 3 || s.FailureCount != 1 {
		t.Errorf("Unexpected counts %+v", s)
	}
	if s.AverageDuration != 200*time.Millisecond {
		t.Errorf("Expected 200ms average, got %s", s.AverageDuration)
	}
	if len(s.Labels) != 2 || s.Labels[0].Label != "Glioma Tumor" || s.Labels[0].Count != 2 {
		t.Fatalf("Unexpected labels %+v", s.Labels)
	}
	if diff := s.Labels[0].MeanConfidence - 0.8; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected mean confidence 0.8, got %v", s.Labels[0].MeanConfidence)
	}
	if s.First.UnixMilli() != 1000 || s.Last.UnixMilli() != 4000 {
		t.Errorf("Unexpected period %s - %s", s.First, s.Last)
	}

	var buf bytes.Buffer
	s.Print(&buf)
	if !strings.Contains(buf.String(), "Glioma Tumor") || !strings.Contains(buf.String(), "Failed: 1") {
		t.Errorf("Unexpected summary output:\n%s", buf.String())
	}
}

func TestSummarizeEmpty(t *testing.T) {
	var buf bytes.Buffer
	Summarize(nil).Print(&buf)
	if !strings.Contains(buf.String(), "No diagnoses recorded.") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

type scriptedClassifier struct {
	results []*models.ClassificationResult
	errs    []error
	n       int
}

func (c *scriptedClassifier) Classify(ctx context.Context, upload *diagnosis.Upload) (*models.ClassificationResult, error) {
	i := c.n
	c.n++
	return c.results[i], c.errs[i]
}

func TestBindRecordsSettledRequests(t *testing.T) {
	classifier := &scriptedClassifier{
		results: []*models.ClassificationResult{{PredictedLabel: "Pituitary Tumor", Confidence: 0.6}, nil},
		errs:    []error{nil, &diagnosis.ServerError{Status: 503, Message: "server error 503"}},
	}
	sess := session.New("s1", session.Options{Classifier: classifier})
	j := Open(filepath.Join(t.TempDir(), "history.parquet"))
	Bind(sess, j)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	if err := sess.Ingest(ingest.NewRawFile("scan.png", "image/png", buf.Bytes())); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := sess.Submit(context.Background()); err == nil {
		t.Fatal("Expected second submit to fail")
	}
	// No image, nothing recorded
	sess.Reset()
	_, _ = sess.Submit(context.Background())

	records, err := j.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Label != "Pituitary Tumor" || records[0].FileName != "scan.png" || records[0].SessionID != "s1" {
		t.Errorf("Unexpected success record %+v", records[0])
	}
	if records[1].Status != 503 || records[1].Error == "" {
		t.Errorf("Unexpected failure record %+v", records[1])
	}
}
