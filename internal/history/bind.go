package history

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/session"
)

// Bind appends a record to j whenever a diagnosis on sess settles.
func Bind(sess *session.Session, j *Journal) {
	var (
		mu      sync.Mutex
		started time.Time
	)

	sess.On(session.EventDiagnosisStarted, func(any) {
		mu.Lock()
		started = time.Now()
		mu.Unlock()
	})

	sess.On(session.EventDiagnosisSettled, func(data any) {
		mu.Lock()
		elapsed := time.Since(started)
		mu.Unlock()

		now := time.Now()
		record := Record{
			SessionID:   sess.ID,
			DurationMS:  elapsed.Milliseconds(),
			TimestampMS: now.UnixMilli(),
		}
		if info, ok := sess.Info(); ok {
			record.FileName = info.FileName
		}

		if err, _ := data.(error); err != nil {
			record.Error = err.Error()
			var serverErr *diagnosis.ServerError
			if errors.As(err, &serverErr) {
				record.Status = serverErr.Status
			}
		} else if result, ok := sess.Result(); ok {
			record.Label = result.PredictedLabel
			record.Confidence = result.Confidence
		}

		if err := j.Append(record); err != nil {
			slog.Error("Failed to append diagnosis history", "path", j.Path(), "err", err)
		}
	})
}
