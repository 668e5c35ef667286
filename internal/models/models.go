package models

// ClassificationResult is the remote classifier's verdict for one image
type ClassificationResult struct {
	PredictedLabel string       `json:"class" yaml:"class"`
	Confidence     float64      `json:"confidence" yaml:"confidence"`
	AllClasses     []ClassScore `json:"all_classes" yaml:"all_classes"`
	Note           string       `json:"note,omitempty" yaml:"note,omitempty"`
}

// ClassScore is one independent per-class score; scores need not sum to 1
type ClassScore struct {
	Label      string  `json:"label" yaml:"label"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ImageInfo describes the provenance of the loaded image
type ImageInfo struct {
	FileName  string `json:"file_name" yaml:"file_name"`
	MIMEType  string `json:"mime_type" yaml:"mime_type"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes"`
	Width     int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// Valid reports whether every confidence lies in [0,1] and a label is present
func (r *ClassificationResult) Valid() bool {
	if r.PredictedLabel == "" || !inUnitRange(r.Confidence) {
		return false
	}
	for _, c := range r.AllClasses {
		if !inUnitRange(c.Confidence) {
			return false
		}
	}
	return true
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
