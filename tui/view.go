package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hochfrequenz/cherry-orch/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	skippedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	conflictStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	pendingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("255"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255"))

	selectedStyle = lipgloss.NewStyle().
		Bold(true).
		Background(lipgloss.Color("237"))
)

func statusStyle(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusSuccess:
		return successStyle
	case domain.StatusSkipped:
		return skippedStyle
	case domain.StatusConflictResolved:
		return conflictStyle
	default:
		return pendingStyle
	}
}

// View renders the dashboard
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("cherry-orch — " + m.ledgerPath))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("error: " + m.loadErr.Error()))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(sectionStyle.Render(m.summary()))
	b.WriteString("\n\n")

	rows := m.visibleRows()
	for i, rec := range m.records {
		if i < rows.first || i > rows.last {
			continue
		}
		line := fmt.Sprintf("%-10s %-18s %-20s %s",
			rec.ShortHash(), rec.Status, rec.Timestamp, truncate(rec.Message, 60))
		style := statusStyle(rec.Status)
		if i == m.scroll {
			style = selectedStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render(" j/k scroll · r refresh · q quit "))
	b.WriteString(fmt.Sprintf("  refreshed %s", m.lastRefresh.Format("15:04:05")))
	return b.String()
}

func (m Model) summary() string {
	total := len(m.records)
	done := m.counts[domain.StatusSuccess] +
		m.counts[domain.StatusSkipped] +
		m.counts[domain.StatusConflictResolved]
	return fmt.Sprintf("%d/%d processed · %s · %s · %s · %s",
		done, total,
		successStyle.Render(fmt.Sprintf("%d picked", m.counts[domain.StatusSuccess])),
		skippedStyle.Render(fmt.Sprintf("%d skipped", m.counts[domain.StatusSkipped])),
		conflictStyle.Render(fmt.Sprintf("%d conflicts resolved", m.counts[domain.StatusConflictResolved])),
		pendingStyle.Render(fmt.Sprintf("%d pending", m.counts[domain.StatusPending])))
}

type rowWindow struct {
	first, last int
}

// visibleRows keeps the selected row inside the viewport
func (m Model) visibleRows() rowWindow {
	visible := m.height - 8
	if visible < 5 {
		visible = 5
	}
	first := 0
	if m.scroll >= visible {
		first = m.scroll - visible + 1
	}
	return rowWindow{first: first, last: first + visible - 1}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
