// Package present turns a classification result into the model a viewer
// renders: catalog copy, formatted confidence and a filtered, ranked
// breakdown of class scores.
package present

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/neuropathx/neuropathx/internal/clinical"
	"github.com/neuropathx/neuropathx/internal/models"
)

// MinBreakdownConfidence suppresses near-zero scores (0.1%). Entries must be
// strictly above it to be listed.
const MinBreakdownConfidence = 0.001

// BreakdownEntry is one row of the class-score list.
type BreakdownEntry struct {
	Label      string  `json:"label" yaml:"label"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Percent    string  `json:"percent" yaml:"percent"`
	Predicted  bool    `json:"predicted,omitempty" yaml:"predicted,omitempty"`
}

// DisplayModel is everything needed to render a result.
type DisplayModel struct {
	Label          string           `json:"label" yaml:"label"`
	Known          bool             `json:"known" yaml:"known"`
	Title          string           `json:"title" yaml:"title"`
	Indicator      string           `json:"indicator" yaml:"indicator"`
	Confidence     string           `json:"confidence" yaml:"confidence"`
	Description    RichText         `json:"description" yaml:"description"`
	Recommendation RichText         `json:"recommendation" yaml:"recommendation"`
	Breakdown      []BreakdownEntry `json:"breakdown" yaml:"breakdown"`
}

// Present maps a result onto a display model. Labels missing from the
// catalog degrade to its default entry.
func Present(result models.ClassificationResult, catalog *clinical.Catalog) DisplayModel {
	entry, known := catalog.Lookup(result.PredictedLabel)
	if !known {
		slog.Debug("Label not in clinical catalog, using default entry", "label", result.PredictedLabel)
	}

	return DisplayModel{
		Label:          result.PredictedLabel,
		Known:          known,
		Title:          entry.Title,
		Indicator:      entry.Indicator,
		Confidence:     Percent(result.Confidence),
		Description:    ParseBold(entry.Description),
		Recommendation: ParseBold(entry.Recommendation),
		Breakdown:      Breakdown(result.AllClasses, result.PredictedLabel),
	}
}

// Percent formats a [0,1] score with two decimals.
func Percent(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence*100)
}

// Breakdown filters noise, sorts descending and marks the predicted label.
// The input slice is not modified.
func Breakdown(scores []models.ClassScore, predicted string) []BreakdownEntry {
	entries := make([]BreakdownEntry, 0, len(scores))
	for _, s := range scores {
		if s.Confidence <= MinBreakdownConfidence {
			continue
		}
		entries = append(entries, BreakdownEntry{
			Label:      s.Label,
			Confidence: s.Confidence,
			Percent:    Percent(s.Confidence),
			Predicted:  s.Label == predicted,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Confidence > entries[j].Confidence
	})
	return entries
}
