package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"legalrag/internal/service"
)

// AssistantPort is the TUI-facing subset of the assistant service.
type AssistantPort interface {
	Answer(ctx context.Context, userID, query string) (*service.Exchange, error)
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	assistant AssistantPort
	userID    string
	input     textinput.Model
	viewport  viewport.Model
	lines     []string
	status    string
	ready     bool
	waiting   bool
}

type answerMsg struct {
	exchange *service.Exchange
	err      error
}

// New creates a new chat model. The header line usually carries the corpus
// digest so the user knows what the assistant can speak to.
func New(assistant AssistantPort, userID, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a legal question and press Enter"
	ti.Focus()
	ti.CharLimit = service.MaxQueryChars
	vp := viewport.New(0, 0)
	m := Model{
		assistant: assistant,
		userID:    userID,
		input:     ti,
		viewport:  vp,
		status:    "Ready. Ask about FIRs, bail, or IPC sections.",
	}
	if header != "" {
		m.lines = append(m.lines, headerStyle.Render(header))
	}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // title, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ch)
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		ex := msg.exchange
		m.lines = append(m.lines, assistantStyle.Render("assistant:")+" "+ex.AssistantMessage.Body)
		if len(ex.Sources) > 0 {
			var refs []string
			for _, s := range ex.Sources {
				refs = append(refs, fmt.Sprintf("%s (%.2f)", s.Title, s.Score))
			}
			m.lines = append(m.lines, sourceStyle.Render("sources: "+strings.Join(refs, "; ")))
		}
		m.lines = append(m.lines, "")
		m.status = fmt.Sprintf("Answered with confidence %.2f", ex.Confidence)
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.waiting = true
				m.status = "Thinking..."
				m.lines = append(m.lines, userStyle.Render("you:")+" "+q)
				m.viewport.SetContent(strings.Join(m.lines, "\n"))
				m.viewport.GotoBottom()
				m.input.Reset()
				return m, m.answerCmd(q)
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// answerCmd runs the pipeline off the update loop; the answer path can wait
// on two network calls.
func (m Model) answerCmd(query string) tea.Cmd {
	assistant, userID := m.assistant, m.userID
	return func() tea.Msg {
		ex, err := assistant.Answer(context.Background(), userID, query)
		return answerMsg{exchange: ex, err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("Legal Assistant")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return title + "\n" + chat + "\n" + input + "\n" + status
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
