// Package tui provides the interactive chat over one ingested document.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// Answerer is the chat-facing subset of the document service.
type Answerer interface {
	Answer(ctx context.Context, documentID int64, question string) (entities.Answer, error)
}

type turn struct {
	question string
	answer   string
	err      error
	pages    []int
}

type answerMsg struct {
	answer entities.Answer
	err    error
}

// Model is the Bubble Tea model for a chat session.
type Model struct {
	ctx      context.Context
	svc      Answerer
	doc      entities.Document
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	pending  string
	status   string
	ready    bool
}

// New creates a chat model bound to doc.
func New(ctx context.Context, svc Answerer, doc entities.Document, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.CharLimit = 2000
	ti.Focus()

	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return Model{
		ctx:      ctx,
		svc:      svc,
		doc:      doc,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(80, 10),
		status:   "Ctrl+C to quit",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys, resizes and finished answers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-fh-5)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending != "" {
				return m, nil
			}
			m.pending = q
			m.input.Reset()
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		t := turn{question: m.pending, err: msg.err}
		if msg.err == nil {
			t.answer = msg.answer.Answer
			for _, c := range msg.answer.Context {
				t.pages = append(t.pages, c.Page)
			}
		}
		m.turns = append(m.turns, t)
		m.pending = ""
		m.status = "Ctrl+C to quit"
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	id := m.doc.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
		defer cancel()
		answer, err := m.svc.Answer(ctx, id, question)
		return answerMsg{answer: answer, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	if len(m.turns) == 0 && m.pending == "" {
		return hintStyle.Render("No questions yet.")
	}
	var b strings.Builder
	for _, t := range m.turns {
		b.WriteString(questionStyle.Render("Q: "+t.question) + "\n")
		if t.err != nil {
			b.WriteString(errorStyle.Render("Error: "+t.err.Error()) + "\n\n")
			continue
		}
		b.WriteString(t.answer + "\n")
		if len(t.pages) > 0 {
			b.WriteString(hintStyle.Render(fmt.Sprintf("pages %v", t.pages)) + "\n")
		}
		b.WriteString("\n")
	}
	if m.pending != "" {
		b.WriteString(questionStyle.Render("Q: "+m.pending) + "\n")
	}
	return b.String()
}

// View renders header, transcript, input and status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(fmt.Sprintf("%s (#%d)", m.doc.Filename, m.doc.ID))
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		hintStyle.Render(m.status)
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Run starts the chat program on the terminal.
func Run(ctx context.Context, svc Answerer, doc entities.Document, timeout time.Duration) error {
	_, err := tea.NewProgram(New(ctx, svc, doc, timeout), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
