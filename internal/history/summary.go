package history

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// LabelStats aggregates the successful diagnoses for one label
type LabelStats struct {
	Label          string  `json:"label" yaml:"label"`
	Count          int     `json:"count" yaml:"count"`
	MeanConfidence float64 `json:"mean_confidence" yaml:"mean_confidence"`
}

// Summary aggregates a journal
type Summary struct {
	Total           int           `json:"total" yaml:"total"`
	SuccessCount    int           `json:"success_count" yaml:"success_count"`
	FailureCount    int           `json:"failure_count" yaml:"failure_count"`
	Labels          []LabelStats  `json:"labels" yaml:"labels"`
	AverageDuration time.Duration `json:"average_duration" yaml:"average_duration"`
	First           time.Time     `json:"first,omitempty" yaml:"first,omitempty"`
	Last            time.Time     `json:"last,omitempty" yaml:"last,omitempty"`
}

// Summarize aggregates records; labels are ordered by count, then name.
func Summarize(records []Record) *Summary {
	s := &Summary{Total: len(records)}

	byLabel := make(map[string]*LabelStats)
	var successDuration time.Duration

	for _, r := range records {
		t := r.Time()
		if s.First.IsZero() || t.Before(s.First) {
			s.First = t
		}
		if t.After(s.Last) {
			s.Last = t
		}

		if !r.Succeeded() {
			s.FailureCount++
			continue
		}
		s.SuccessCount++
		successDuration += r.Duration()

		stats, ok := byLabel[r.Label]
		if !ok {
			stats = &LabelStats{Label: r.Label}
			byLabel[r.Label] = stats
		}
		stats.Count++
		stats.MeanConfidence += r.Confidence
	}

	if s.SuccessCount > 0 {
		s.AverageDuration = successDuration / time.Duration(s.SuccessCount)
	}

	for _, stats := range byLabel {
		stats.MeanConfidence /= float64(stats.Count)
		s.Labels = append(s.Labels, *stats)
	}
	sort.Slice(s.Labels, func(i, j int) bool {
		if s.Labels[i].Count != s.Labels[j].Count {
			return s.Labels[i].Count > s.Labels[j].Count
		}
		return s.Labels[i].Label < s.Labels[j].Label
	})

	return s
}

// Print writes a human-readable summary
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "NEUROPATHX DIAGNOSIS HISTORY")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if s.Total == 0 {
		fmt.Fprintln(w, "No diagnoses recorded.")
		return
	}

	fmt.Fprintf(w, "Period: %s to %s\n", s.First.Format("2006-01-02 15:04:05"), s.Last.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Total Requests: %d\n", s.Total)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", s.SuccessCount, float64(s.SuccessCount)/float64(s.Total)*100)
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", s.FailureCount, float64(s.FailureCount)/float64(s.Total)*100)
	fmt.Fprintf(w, "Average Response Time: %s\n", s.AverageDuration)

	if len(s.Labels) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PREDICTED LABELS")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, l := range s.Labels {
			fmt.Fprintf(w, "%-20s %5d   mean confidence %.2f%%\n", l.Label, l.Count, l.MeanConfidence*100)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
