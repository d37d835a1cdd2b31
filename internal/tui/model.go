package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"csvqa/internal/domain"
	"csvqa/internal/service"
)

// QAPort is the TUI-facing subset of the QA service.
type QAPort interface {
	LoadFile(path string) (*service.LoadResult, error)
	Respond(message string) string
}

type role int

const (
	roleUser role = iota
	roleBot
	roleSystem
)

type entry struct {
	role  role
	text  string
	query string
}

// loadedMsg carries the outcome of a background table load.
type loadedMsg struct {
	path string
	res  *service.LoadResult
	err  error
}

// Model is the Bubble Tea model for the chat window.
type Model struct {
	service  QAPort
	tok      domain.Tokenizer
	input    textinput.Model
	viewport viewport.Model
	history  []entry
	summary  string
	status   string
	startup  string
	loading  bool
	ready    bool
}

// New creates a chat model. When path is not empty the table is loaded as
// soon as the program starts.
func New(svc QAPort, tok domain.Tokenizer, path string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the table, /load <file>, /clear or quit"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  svc,
		tok:      tok,
		input:    ti,
		viewport: vp,
		startup:  path,
		status:   "No CSV data loaded. Use /load <file>.",
	}
}

// Init starts the cursor blink and the startup load, if any.
func (m Model) Init() tea.Cmd {
	if m.startup == "" {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.load(m.startup))
}

func (m Model) load(path string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.service.LoadFile(path)
		return loadedMsg{path: path, res: res, err: err}
	}
}

// Update handles key, window and load events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := historyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = service.UserMessage(msg.err)
			m.history = append(m.history, entry{role: roleSystem, text: m.status})
		} else {
			m.status = msg.res.Status()
			m.summary = fmt.Sprintf("%s · %s", msg.res.Source, msg.res.Summary())
			m.history = append(m.history, entry{
				role: roleSystem,
				text: m.status + "\n" + renderPreview(msg.res),
			})
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			return m.submit()
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.SetValue("")

	switch {
	case text == "/clear":
		m.history = nil
		m.status = "History cleared."
		m.refresh()
		return m, nil
	case strings.HasPrefix(text, "/load"):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/load"))
		if path == "" {
			m.status = "Usage: /load <file>"
			return m, nil
		}
		m.loading = true
		m.status = "Loading " + path + "..."
		return m, m.load(path)
	}

	m.history = append(m.history, entry{role: roleUser, text: text})
	reply := m.service.Respond(text)
	m.history = append(m.history, entry{role: roleBot, text: reply, query: text})
	m.refresh()
	if service.IsQuit(text) {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("CSV Q&A")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	history := historyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "Ask a question about the loaded table."
	}
	var b strings.Builder
	for i, e := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e.role {
		case roleUser:
			b.WriteString(userStyle.Render("you: ") + e.text)
		case roleBot:
			b.WriteString(botStyle.Render("bot: ") + highlightTerms(strings.TrimRight(e.text, "\n"), e.query, m.tok))
		default:
			b.WriteString(systemStyle.Render(e.text))
		}
	}
	return b.String()
}

const previewCellWidth = 24

func renderPreview(res *service.LoadResult) string {
	if len(res.Preview) == 0 {
		return ""
	}
	rows := make([][]string, len(res.Preview))
	for i, row := range res.Preview {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = truncate(cell, previewCellWidth)
		}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(res.Columns...).
		Rows(rows...).
		Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

var (
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	wordRe          = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// highlightTerms marks the words of text whose term also occurs in query.
func highlightTerms(text, query string, tok domain.Tokenizer) string {
	if tok == nil || query == "" {
		return text
	}
	terms := toTermSet(query, tok)
	if len(terms) == 0 {
		return text
	}
	return wordRe.ReplaceAllStringFunc(text, func(w string) string {
		for t := range tok.Tokenize(w) {
			if _, ok := terms[t]; ok {
				return highlightStyle.Render(w)
			}
		}
		return w
	})
}

func toTermSet(s string, tok domain.Tokenizer) map[string]struct{} {
	set := make(map[string]struct{})
	for t := range tok.Tokenize(s) {
		set[t] = struct{}{}
	}
	return set
}
