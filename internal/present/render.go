package present

import (
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
)

// Fragments are ready-to-insert HTML snippets for a browser front-end.
type Fragments struct {
	Title          string   `json:"title"`
	Confidence     string   `json:"confidence"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Breakdown      []string `json:"breakdown"`
}

// HTML renders the model as escaped fragments.
func (m DisplayModel) HTML() Fragments {
	f := Fragments{
		Title:          fmt.Sprintf(`<span class="indicator-icon">%s</span> %s`, html.EscapeString(m.Indicator), html.EscapeString(m.Title)),
		Confidence:     html.EscapeString(m.Confidence),
		Description:    "<strong>Classification Overview:</strong> " + m.Description.HTML(),
		Recommendation: "<strong>Clinical Recommendation:</strong> " + m.Recommendation.HTML(),
		Breakdown:      make([]string, 0, len(m.Breakdown)),
	}
	for _, e := range m.Breakdown {
		class := ""
		if e.Predicted {
			class = ` class="predicted"`
		}
		f.Breakdown = append(f.Breakdown, fmt.Sprintf(`<li%s><span>%s:</span> <strong>%s</strong></li>`,
			class, html.EscapeString(e.Label), html.EscapeString(e.Percent)))
	}
	return f
}

var (
	headingStyle   = lipgloss.NewStyle().Bold(true)
	emphasisStyle  = lipgloss.NewStyle().Bold(true)
	predictedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1976d2"))
	labelStyle     = lipgloss.NewStyle().Faint(true)
)

// Terminal renders the model for a terminal; emphasis becomes bold text.
func (m DisplayModel) Terminal() string {
	var b strings.Builder

	b.WriteString(headingStyle.Render(m.Indicator + " " + m.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s (%s)\n\n", labelStyle.Render("Confidence:"), m.Confidence, m.Label)

	b.WriteString(labelStyle.Render("Classification Overview:"))
	b.WriteString(" ")
	b.WriteString(terminalText(m.Description))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Clinical Recommendation:"))
	b.WriteString(" ")
	b.WriteString(terminalText(m.Recommendation))
	b.WriteString("\n")

	if len(m.Breakdown) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Class scores:"))
		b.WriteString("\n")
		for _, e := range m.Breakdown {
			line := fmt.Sprintf("  %-18s %8s", e.Label+":", e.Percent)
			if e.Predicted {
				line = predictedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func terminalText(r RichText) string {
	var b strings.Builder
	for _, s := range r {
		if s.Emphasis {
			b.WriteString(emphasisStyle.Render(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}
