package storage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/ingest"
	"github.com/neuropathx/neuropathx/internal/models"
	"github.com/neuropathx/neuropathx/internal/session"
)

func TestGetOrCreate(t *testing.T) {
	store := New()
	created := 0
	var mu sync.Mutex
	create := func(id string) *session.Session {
		mu.Lock()
		created++
		mu.Unlock()
		return session.New(id, session.Options{})
	}

	var wg sync.WaitGroup
	results := make([]*session.Session, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.GetOrCreate("abc", create)
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("Expected one session to be created, got %d", created)
	}
	for i, s := range results {
		if s != results[0] {
			t.Errorf("Expected same session at %d", i)
		}
	}
	if results[0].ID != "abc" {
		t.Errorf("Expected id abc, got %s", results[0].ID)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", store.Len())
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func loaded(t *testing.T, id string, opts session.Options) *session.Session {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	sess := session.New(id, opts)
	if err := sess.Ingest(ingest.NewRawFile(id+".png", "image/png", buf.Bytes())); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	return sess
}

func TestEvictIdle(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &clock{t: start}
	store := New()
	store.now = c.now
	allocator := ingest.NewMemoryAllocator()

	old := store.GetOrCreate("old", func(id string) *session.Session { return loaded(t, id, session.Options{Allocator: allocator}) })
	store.GetOrCreate("fresh", func(id string) *session.Session { return loaded(t, id, session.Options{Allocator: allocator}) })

	c.t = start.Add(time.Hour)
	store.Get("fresh")

	if n := store.EvictIdle(start.Add(30 * time.Minute)); n != 1 {
		t.Fatalf("Expected 1 eviction, got %d", n)
	}
	if _, ok := store.Get("old"); ok {
		t.Error("Expected the idle session to be evicted")
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("Expected the recently seen session to stay")
	}
	if allocator.Live() != 1 {
		t.Errorf("Expected the evicted image handle to be released, got %d live", allocator.Live())
	}
	if data, _ := old.Image(); data != nil {
		t.Error("Expected the evicted session to hold no image")
	}
}

type blockingClassifier struct {
	release chan struct{}
}

func (c *blockingClassifier) Classify(ctx context.Context, upload *diagnosis.Upload) (*models.ClassificationResult, error) {
	<-c.release
	return &models.ClassificationResult{PredictedLabel: "No Tumor", Confidence: 0.9}, nil
}

func TestEvictIdleKeepsPending(t *testing.T) {
	classifier := &blockingClassifier{release: make(chan struct{})}
	store := New()
	sess := store.GetOrCreate("busy", func(id string) *session.Session {
		return loaded(t, id, session.Options{Classifier: classifier})
	})

	done := make(chan error, 1)
	go func() {
		_, err := sess.Submit(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sess.RequestState() != diagnosis.Pending {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the diagnosis to start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if n := store.EvictIdle(time.Now().Add(time.Hour)); n != 0 {
		t.Errorf("Expected the pending session to be kept, got %d evictions", n)
	}

	close(classifier.release)
	if err := <-done; err != nil {
		t.Errorf("Expected the diagnosis to finish, got %v", err)
	}
	if n := store.EvictIdle(time.Now().Add(time.Hour)); n != 1 {
		t.Errorf("Expected the settled session to be evicted, got %d", n)
	}
}
