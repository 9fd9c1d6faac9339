package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/backmassage/clipsweep/internal/term"
)

// Row is one label/value line of a summary box.
type Row struct {
	Label string
	Value string
}

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
	summaryTitle = lipgloss.NewStyle().Bold(true)
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderSummary lays rows out as an aligned two-column block under title.
// With colors enabled the block is framed; otherwise it is plain text.
func RenderSummary(title string, rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Label))
	}

	lines := make([]string, 0, len(rows)+1)
	if term.Enabled() {
		lines = append(lines, summaryTitle.Render(title))
	} else {
		lines = append(lines, title)
	}
	for _, r := range rows {
		label := r.Label + ":" + strings.Repeat(" ", width-lipgloss.Width(r.Label)+1)
		if term.Enabled() {
			label = summaryLabel.Render(label)
		}
		lines = append(lines, label+r.Value)
	}

	body := strings.Join(lines, "\n")
	if !term.Enabled() {
		return body
	}
	return summaryBox.Render(body)
}
