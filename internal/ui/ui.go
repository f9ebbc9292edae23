package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/enrichr/internal/tasks"
)

// Job is the work a [Model] monitors. It must stop when ctx is cancelled.
type Job func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error

// Model represents the progress view state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	job          Job
	progressChan chan tasks.ProgressUpdate
	doneChan     chan error
	progress     tasks.ProgressUpdate
	spinner      spinner.Model
	bar          progress.Model
	help         help.Model
	keys         keyMap
	cancelling   bool
	done         bool
	err          error
}

// NewModel creates a progress view for job. Cancelling the view cancels the job's context.
func NewModel(ctx context.Context, job Job) *Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.bar

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		job:     job,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run shows the progress view on out until job returns, then reports the job's error.
func Run(ctx context.Context, out io.Writer, job Job) error {
	m := NewModel(ctx, job)
	if _, err := tea.NewProgram(m, tea.WithOutput(out)).Run(); err != nil {
		m.cancel()
		return fmt.Errorf("progress view failed: %w", err)
	}
	return m.Err()
}

// Init starts the job and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-10, 10), 60)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && !m.cancelling {
			m.cancelling = true
			m.cancel()
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()
		case MsgJobComplete:
			m.err, _ = msg.data.(error)
			m.done = true
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current phase, a progress bar for the batch phase and the key help.
func (m *Model) View() string {
	title := styles.Title("Enriching tracks")

	if m.done {
		if m.err != nil {
			return fmt.Sprintf("%s\n%s\n", title, styles.Err(fmt.Sprintf("✗ %v", m.err)))
		}
		return fmt.Sprintf("%s\n%s\n", title, styles.OK(m.progress.Message))
	}

	status := m.progress.Message
	if m.cancelling {
		status = styles.Warn("Cancelling after the current batch...")
	}

	return fmt.Sprintf("%s\n%s %s\n%s\n\n%s",
		title,
		m.spinner.View(),
		status,
		m.bar.ViewAs(m.Percent()),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

// Percent is the completed share of the batch phase.
func (m *Model) Percent() float64 {
	switch m.progress.Phase {
	case tasks.FetchBatches:
		if m.progress.Total == 0 {
			return 0
		}
		return float64(m.progress.Step) / float64(m.progress.Total)
	case tasks.MergeResults, tasks.WriteExport:
		return 1
	default:
		return 0
	}
}

// Err returns the job's error once it has finished.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan error, 1)

	go func() {
		err := m.job(m.ctx, m.progressChan)
		close(m.progressChan)
		m.doneChan <- err
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return jobCompleteMsg(<-m.doneChan)
		}
		return progressUpdateMsg(update)
	}
}
