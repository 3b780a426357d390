// Package tui renders a read-only dashboard over a campaign ledger. It
// never mutates the ledger; the file is reloaded on a timer so progress from
// a concurrently running campaign shows up live.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hochfrequenz/cherry-orch/internal/domain"
	"github.com/hochfrequenz/cherry-orch/internal/ledger"
)

const refreshInterval = 2 * time.Second

// Model is the TUI application model
type Model struct {
	ledgerPath string
	format     ledger.Format
	links      ledger.Links

	records []domain.CommitRecord
	counts  map[domain.Status]int
	loadErr error

	width       int
	height      int
	scroll      int
	lastRefresh time.Time
}

// NewModel creates a dashboard model for the ledger at path
func NewModel(path string, format ledger.Format, links ledger.Links) Model {
	m := Model{
		ledgerPath: path,
		format:     format,
		links:      links,
		counts:     make(map[domain.Status]int),
	}
	m.reload()
	return m
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg triggers a ledger reload
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Model) reload() {
	led, err := ledger.Load(m.ledgerPath, m.format, m.links)
	m.loadErr = err
	m.lastRefresh = time.Now()
	if err != nil || led == nil {
		m.records = nil
		m.counts = make(map[domain.Status]int)
		return
	}
	m.records = led.Records()
	m.counts = led.Counts()
}
