package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/kkkz76/askvox/core"
	"github.com/kkkz76/askvox/core/conversation"
	"github.com/muesli/reflow/wordwrap"
)

const defaultWidth = 80

// tagCycle is the order ctrl+t steps through. The empty tag means automatic.
var tagCycle = []string{"", conversation.TagWebSearch, conversation.TagImage, conversation.TagVideo}

type (
	conversationMsg struct {
		log   conversation.Log
		state conversation.State
	}
	avatarMsg     overlay.Avatar
	microphoneMsg bool
	transcriptMsg string
	errMsg        struct{ err error }
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle    = lipgloss.NewStyle().Faint(true)
	mediaStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("178"))
)

type model struct {
	ctx     context.Context
	overlay *overlay.Overlay
	input   textinput.Model

	log        conversation.Log
	state      conversation.State
	avatar     overlay.Avatar
	micInUse   bool
	transcript string
	lastErr    error
	width      int
}

func newModel(ctx context.Context, o *overlay.Overlay) model {
	input := textinput.New()
	input.Placeholder = "Ask anything, or ctrl+l to talk"
	input.Focus()
	input.Width = defaultWidth - 4

	return model{
		ctx:     ctx,
		overlay: o,
		input:   input,
		log:     o.Snapshot(),
		avatar:  o.Avatar(),
		width:   defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case conversationMsg:
		m.log, m.state = msg.log, msg.state
		return m, nil
	case avatarMsg:
		m.avatar = overlay.Avatar(msg)
		return m, nil
	case microphoneMsg:
		m.micInUse = bool(msg)
		return m, nil
	case transcriptMsg:
		m.transcript = string(msg)
		return m, nil
	case errMsg:
		m.lastErr = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.lastErr = nil
			return m, m.submit(text)
		case "ctrl+l":
			return m, m.call(m.overlay.StartListening)
		case "ctrl+s":
			return m, m.call(m.overlay.StopListening)
		case "ctrl+w":
			return m, m.notify(m.overlay.OnWake)
		case "ctrl+v":
			return m, m.notify(m.overlay.OnToggleVisibility)
		case "ctrl+t":
			m.overlay.SetTag(nextTag(m.overlay.Tag()))
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit(text string) tea.Cmd {
	return m.call(func(ctx context.Context) error { return m.overlay.Submit(ctx, text) })
}

func (m model) call(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(m.ctx); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

// notify runs fn off the update loop. Posting to the overlay may wait on its
// run loop, which in turn waits on program.Send.
func (m model) notify(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

func nextTag(current string) string {
	for i, tag := range tagCycle {
		if tag == current {
			return tagCycle[(i+1)%len(tagCycle)]
		}
	}
	return tagCycle[0]
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("askvox " + avatarFace(m.avatar)))
	b.WriteString("\n\n")

	if m.avatar.Visible {
		wrap := max(m.width-2, 20)
		for _, message := range m.log.Messages {
			b.WriteString(renderMessage(message, wrap))
			b.WriteString("\n")
		}
		if latest, ok := m.log.LatestAssistant(); ok {
			if media := conversation.DetectMedia(latest.Content); media.Kind != conversation.MediaNone {
				b.WriteString(mediaStyle.Render(describeMedia(media)))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status()))
	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.lastErr.Error()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m model) status() string {
	mic := "mic off"
	if m.micInUse {
		mic = "mic on"
	}
	tag := m.overlay.Tag()
	if tag == "" {
		tag = "auto"
	}
	status := fmt.Sprintf("%s | %s | tag: %s | ctrl+l talk, ctrl+s stop, ctrl+t tag, ctrl+v hide, esc quit",
		m.state, mic, tag)
	if m.transcript != "" {
		status += fmt.Sprintf("\nheard: %q", m.transcript)
	}
	return status
}

func renderMessage(message conversation.Message, width int) string {
	switch {
	case message.Error:
		return errorStyle.Render(wordwrap.String("! "+message.Content, width))
	case message.Role == conversation.RoleUser:
		return userStyle.Render(wordwrap.String("> "+message.Content, width))
	default:
		return assistantStyle.Render(wordwrap.String(message.Content, width))
	}
}

func describeMedia(media conversation.Media) string {
	switch media.Kind {
	case conversation.MediaImage:
		return "image: " + media.URL
	case conversation.MediaYouTube:
		return "video: " + media.URL
	default:
		return ""
	}
}

func avatarFace(avatar overlay.Avatar) string {
	switch {
	case avatar.Thinking:
		return "(-_-)"
	case avatar.Awake:
		return "(o_o)"
	default:
		return "(u_u)"
	}
}
