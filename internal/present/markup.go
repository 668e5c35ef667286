package present

import (
	"html"
	"strings"
)

// Segment is a run of text, optionally emphasised.
type Segment struct {
	Text     string `json:"text" yaml:"text"`
	Emphasis bool   `json:"emphasis,omitempty" yaml:"emphasis,omitempty"`
}

// RichText is catalog copy after the bold transform.
type RichText []Segment

// ParseBold splits text on **...** pairs. It recognises nothing else, and an
// unmatched marker stays literal.
func ParseBold(text string) RichText {
	var out RichText
	rest := text
	for {
		start := strings.Index(rest, "**")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+2:], "**")
		if end < 0 {
			break
		}
		end += start + 2

		if start > 0 {
			out = append(out, Segment{Text: rest[:start]})
		}
		if inner := rest[start+2 : end]; inner != "" {
			out = append(out, Segment{Text: inner, Emphasis: true})
		}
		rest = rest[end+2:]
	}
	if rest != "" {
		out = append(out, Segment{Text: rest})
	}
	return out
}

// Plain drops emphasis.
func (r RichText) Plain() string {
	var b strings.Builder
	for _, s := range r {
		b.WriteString(s.Text)
	}
	return b.String()
}

// HTML escapes every segment; <strong> is the only markup it emits.
func (r RichText) HTML() string {
	var b strings.Builder
	for _, s := range r {
		if s.Emphasis {
			b.WriteString("<strong>")
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString("</strong>")
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
	return b.String()
}
