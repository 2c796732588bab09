package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/promisingcoder/google-maps-scraper/internal/engine/scraper"
	"github.com/promisingcoder/google-maps-scraper/internal/model"
	"github.com/promisingcoder/google-maps-scraper/internal/tui/styles"
)

// sharedState holds data shared between the sweep goroutine and the
// view. Lives behind a pointer so it survives bubbletea's value copies.
type sharedState struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	result *model.SearchResult
}

func (s *sharedState) getCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

func (s *sharedState) setResult(r *model.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = r
}

func (s *sharedState) getResult() *model.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

type tickMsg time.Time

type sweepDoneMsg struct {
	err error
}

// progressModel renders a live view of a running sweep.
type progressModel struct {
	sweeper   *scraper.Sweeper
	params    model.SearchParams
	stats     *scraper.Stats
	bar       progress.Model
	startTime time.Time
	done      bool
	err       error
	shared    *sharedState
}

// RunProgress runs the sweep under a live progress view and returns the
// final result once the sweep (or the user) ends it.
func RunProgress(sweeper *scraper.Sweeper, params model.SearchParams, stats *scraper.Stats) (*model.SearchResult, error) {
	m := progressModel{
		sweeper:   sweeper,
		params:    params,
		stats:     stats,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		startTime: time.Now(),
		shared:    &sharedState{},
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}

	fm := final.(progressModel)
	if fm.err != nil && !errors.Is(fm.err, context.Canceled) {
		return nil, fm.err
	}
	result := fm.shared.getResult()
	if result == nil {
		return nil, context.Canceled
	}
	return result, nil
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.startSweep(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m progressModel) startSweep() tea.Cmd {
	shared := m.shared
	sweeper := m.sweeper

	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		shared.mu.Lock()
		shared.cancel = cancel
		shared.mu.Unlock()
		defer cancel()

		result, err := sweeper.Run(ctx)
		if result != nil {
			shared.setResult(result)
		}
		return sweepDoneMsg{err: err}
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.done {
				return m, tea.Quit
			}
			if cancel := m.shared.getCancel(); cancel != nil {
				cancel()
			}
			return m, nil
		case "enter", "q":
			if m.done {
				return m, tea.Quit
			}
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()
	case sweepDoneMsg:
		m.done = true
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	var pm tea.Model
	pm, cmd = m.bar.Update(msg)
	m.bar = pm.(progress.Model)
	return m, cmd
}

func (m progressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Searching %q around %.4f, %.4f",
		m.params.Query, m.params.Lat, m.params.Lng)))
	b.WriteString("\n\n")

	b.WriteString(styles.Border.Width(32).Render(m.renderStats()))
	b.WriteString("\n\n")

	var pct float64
	if m.params.MaxResults > 0 {
		pct = float64(m.stats.UniquePlaces.Load()) / float64(m.params.MaxResults)
		if pct > 1 {
			pct = 1
		}
	}
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString("\n\n")

	switch {
	case m.done && m.err != nil && !errors.Is(m.err, context.Canceled):
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("enter quit"))
	case m.done:
		b.WriteString(styles.SuccessText.Render(
			fmt.Sprintf("Complete! %d unique places", m.stats.UniquePlaces.Load())))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("enter quit"))
	default:
		b.WriteString(styles.StatusBar.Render("esc cancel • ctrl+c quit"))
	}

	return b.String()
}

func (m progressModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	row := func(label, value string) {
		sb.WriteString(styles.Label.Render(label))
		sb.WriteString(styles.Value.Render(value))
		sb.WriteString("\n")
	}

	row("Zoom:", fmt.Sprintf("%d", m.stats.CurrentZoom.Load()))
	row("Tiles:", fmt.Sprintf("%d", m.stats.TilesDone.Load()))
	row("Found:", fmt.Sprintf("%d", m.stats.PlacesFound.Load()))
	row("Unique:", fmt.Sprintf("%d/%d", m.stats.UniquePlaces.Load(), m.params.MaxResults))

	if errs := m.stats.Errors.Load(); errs > 0 {
		sb.WriteString(styles.Label.Render("Errors:"))
		sb.WriteString(styles.ErrorText.Render(fmt.Sprintf("%d", errs)))
		sb.WriteString("\n")
	}
	if rl := m.stats.RateLimits.Load(); rl > 0 {
		sb.WriteString(styles.Label.Render("Rate Lim:"))
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Bold(true).
			Render(fmt.Sprintf("%d", rl)))
		sb.WriteString("\n")
	}

	row("Elapsed:", elapsed.String())

	return sb.String()
}
