package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zachkp/zach-dev/internal/chat"
)

// Messages posted by teaView from the controller's goroutines.
type (
	statusMsg   chat.Status
	typingMsg   bool
	appendedMsg chat.Message
	revealMsg   chat.Stage
)

// handledMsg reports whether the controller acted on a command.
type handledMsg struct {
	cmd chat.Command
	ok  bool
}

// teaView forwards controller updates into the bubbletea event loop.
type teaView struct {
	send func(tea.Msg)
}

func (v *teaView) StatusChanged(s chat.Status) { v.send(statusMsg(s)) }
func (v *teaView) Typing(on bool)              { v.send(typingMsg(on)) }
func (v *teaView) Appended(m chat.Message)     { v.send(appendedMsg(m)) }
func (v *teaView) Revealing(s chat.Stage)      { v.send(revealMsg(s)) }

// handler is the part of *chat.Controller the model drives.
type handler interface {
	Handle(ctx context.Context, cmd chat.Command) bool
	InFlight() bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	strongStyle = lipgloss.NewStyle().Bold(true)
	emStyle     = lipgloss.NewStyle().Italic(true)
	codeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Background(lipgloss.Color("236"))
	linkStyle   = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("12"))

	badgeStyle   = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("0"))
	statusColors = map[chat.Status]lipgloss.Color{
		chat.StatusUnknown: lipgloss.Color("7"),
		chat.StatusTesting: lipgloss.Color("11"),
		chat.StatusOnline:  lipgloss.Color("10"),
		chat.StatusOffline: lipgloss.Color("9"),
	}
)

type model struct {
	ctx      context.Context
	ctrl     handler
	endpoint string

	input   textinput.Model
	spinner spinner.Model

	status    chat.Status
	typing    bool
	messages  []chat.Message
	revealing *chat.Stage
	width     int
	// pending is a submitted question the controller has not yet
	// accepted or refused. The input keeps its text until then.
	pending string
}

func newModel(ctx context.Context, ctrl handler, endpoint string) model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the CV..."
	ti.CharLimit = 1000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:      ctx,
		ctrl:     ctrl,
		endpoint: endpoint,
		input:    ti,
		spinner:  sp,
		status:   chat.StatusUnknown,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.dispatch(chat.RetryConnection{}),
	)
}

// dispatch runs cmd on the controller off the event loop. Results come
// back through teaView.
func (m model) dispatch(cmd chat.Command) tea.Cmd {
	return func() tea.Msg {
		return handledMsg{cmd: cmd, ok: m.ctrl.Handle(m.ctx, cmd)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			if m.status == chat.StatusTesting {
				return m, nil
			}
			return m, m.dispatch(chat.RetryConnection{})
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.pending != "" || m.ctrl.InFlight() {
				return m, nil
			}
			m.pending = text
			return m, m.dispatch(chat.Submit{Text: text})
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 4 {
			m.input.Width = msg.Width - 4
		}
		return m, nil

	case statusMsg:
		m.status = chat.Status(msg)
		return m, nil

	case typingMsg:
		m.typing = bool(msg)
		return m, nil

	case revealMsg:
		stage := chat.Stage(msg)
		m.revealing = &stage
		return m, nil

	case handledMsg:
		if _, ok := msg.cmd.(chat.Submit); ok && !msg.ok {
			m.pending = ""
		}
		return m, nil

	case appendedMsg:
		message := chat.Message(msg)
		if message.Sender == chat.SenderUser {
			if m.pending != "" && message.Text == m.pending {
				if strings.TrimSpace(m.input.Value()) == m.pending {
					m.input.Reset()
				}
				m.pending = ""
			}
		} else {
			m.revealing = nil
		}
		m.messages = append(m.messages, message)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("CV chat"))
	b.WriteString(" ")
	b.WriteString(statusBadge(m.status))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(m.endpoint))
	b.WriteString("\n\n")

	for _, msg := range m.messages {
		b.WriteString(renderMessage(msg))
		b.WriteString("\n")
	}

	switch {
	case m.revealing != nil:
		b.WriteString(botStyle.Render("bot: "))
		if m.revealing.Final {
			b.WriteString(renderSpans(m.revealing.Spans))
		} else {
			b.WriteString(m.revealing.Text)
		}
		b.WriteString("\n")
	case m.typing:
		b.WriteString(m.spinner.View() + dimStyle.Render(" typing..."))
		b.WriteString("\n")
	case m.status == chat.StatusTesting:
		b.WriteString(m.spinner.View() + dimStyle.Render(" testing connection..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter send · ctrl+r retest connection · esc quit"))
	return b.String()
}

func statusBadge(s chat.Status) string {
	return badgeStyle.Background(statusColors[s]).Render(s.String())
}

func renderMessage(msg chat.Message) string {
	switch msg.Sender {
	case chat.SenderUser:
		return userStyle.Render("you: ") + msg.Text
	case chat.SenderSystem:
		return errorStyle.Render("! " + msg.Text)
	}
	if msg.IsError {
		return botStyle.Render("bot: ") + errorStyle.Render(msg.Text)
	}
	return botStyle.Render("bot: ") + renderSpans(chat.Format(msg.Text))
}

func renderSpans(spans []chat.Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case chat.SpanStrong:
			b.WriteString(strongStyle.Render(s.Text))
		case chat.SpanEmphasis:
			b.WriteString(emStyle.Render(s.Text))
		case chat.SpanCode:
			b.WriteString(codeStyle.Render(s.Text))
		case chat.SpanLink:
			b.WriteString(linkStyle.Render(s.Text))
			if s.URL != s.Text {
				b.WriteString(dimStyle.Render(" (" + s.URL + ")"))
			}
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
