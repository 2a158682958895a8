package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

var (
	colorRed    = lipgloss.Color("#D93025")
	colorOrange = lipgloss.Color("#F97316")
	colorYellow = lipgloss.Color("#F59E0B")
	colorSlate  = lipgloss.Color("#667085")
	colorGreen  = lipgloss.Color("#22A06B")
	colorIris   = lipgloss.Color("#8B5CF6")
)

// styles renders text reports. Styles are bound to the output writer, so
// nothing is colored when it is not a terminal or NO_COLOR is set.
type styles struct {
	title    lipgloss.Style
	muted    lipgloss.Style
	ok       lipgloss.Style
	fail     lipgloss.Style
	severity map[temporal.Severity]lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		title: r.NewStyle().Bold(true).Foreground(colorIris),
		muted: r.NewStyle().Foreground(colorSlate),
		ok:    r.NewStyle().Foreground(colorGreen),
		fail:  r.NewStyle().Foreground(colorRed),
		severity: map[temporal.Severity]lipgloss.Style{
			temporal.SeverityCritical: r.NewStyle().Bold(true).Foreground(colorRed),
			temporal.SeverityHigh:     r.NewStyle().Foreground(colorOrange),
			temporal.SeverityMedium:   r.NewStyle().Foreground(colorYellow),
			temporal.SeverityLow:      r.NewStyle().Foreground(colorSlate),
		},
	}
}

// Severity renders "[critical]" and friends.
func (s *styles) Severity(sev temporal.Severity) string {
	st, ok := s.severity[sev]
	if !ok {
		st = s.muted
	}
	return st.Render("[" + string(sev) + "]")
}

// Status renders a task status.
func (s *styles) Status(status hive.TaskStatus) string {
	switch status {
	case hive.TaskCompleted:
		return s.ok.Render(string(status))
	case hive.TaskFailed:
		return s.fail.Render(string(status))
	default:
		return s.muted.Render(string(status))
	}
}
