package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/bft-labs/fragship/pkg/fragship"
)

// Colors
const (
	accent = "#7D56F4"
	muted  = "#767676"
	good   = "#04B575"
	bad    = "#FF5F87"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color(accent))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(muted)).Width(12)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(good)).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(bad)).Bold(true)
	boxStyle   = lipgloss.NewStyle().Padding(0, 2)
)

// maxStatusLines caps the per-fragment log printed under the summary.
const maxStatusLines = 20

// renderReport formats a transfer report for the terminal. verbose adds the
// per-fragment status log.
func renderReport(r fragship.Report, verbose bool) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("fragship %s", r.Role)))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	outcome := okStyle.Render(string(r.Outcome))
	if r.Outcome != fragship.OutcomeCompleted {
		outcome = errStyle.Render(string(r.Outcome))
	}
	row("outcome", outcome)
	if r.Peer != "" {
		row("peer", r.Peer)
	}
	row("kind", r.Kind.String())
	if r.TargetName != "" {
		row("file", r.TargetName)
	}
	if r.SavedAs != "" {
		row("saved as", r.SavedAs)
	}
	row("fragments", fmt.Sprintf("%d of %d delivered", r.FragmentsDelivered, r.FragmentsExpected))
	if r.Role == fragship.RoleSender {
		row("sent", fmt.Sprintf("%d datagrams, %d NACK, %d timeouts", r.FragmentsSent, r.NackCount, r.Timeouts))
	} else {
		row("rejected", fmt.Sprintf("%d", r.NackCount))
	}
	row("bytes", fmt.Sprintf("%d", r.Bytes))
	row("elapsed", r.Duration.Round(time.Millisecond).String())
	if r.Error != "" {
		row("error", errStyle.Render(r.Error))
	}

	bar := progress.New(progress.WithSolidFill(accent), progress.WithWidth(40))
	b.WriteString("\n")
	b.WriteString(bar.ViewAs(deliveredFraction(r)))
	b.WriteString("\n")

	if verbose && len(r.StatusLog) > 0 {
		b.WriteString("\n")
		entries := r.StatusLog
		if len(entries) > maxStatusLines {
			entries = entries[len(entries)-maxStatusLines:]
			b.WriteString(labelStyle.Render(fmt.Sprintf("... %d earlier", len(r.StatusLog)-maxStatusLines)))
			b.WriteString("\n")
		}
		for _, e := range entries {
			style := okStyle
			if e.Result != "ACK" {
				style = errStyle
			}
			b.WriteString(fmt.Sprintf("fragment %-6d %s\n", e.Fragment, style.Render(e.Result)))
		}
	}

	return boxStyle.Render(b.String())
}

// deliveredFraction is the progress bar value. A transfer that declared no
// fragments is full once it completed.
func deliveredFraction(r fragship.Report) float64 {
	if r.FragmentsExpected <= 0 {
		if r.Outcome == fragship.OutcomeCompleted {
			return 1
		}
		return 0
	}
	f := float64(r.FragmentsDelivered) / float64(r.FragmentsExpected)
	if f > 1 {
		f = 1
	}
	return f
}
