package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finassist/internal/assistant"
	"github.com/theirongolddev/finassist/internal/llm"
	"github.com/theirongolddev/finassist/internal/tui/theme"
)

const (
	inputHeight   = 3
	cancelledNote = " (durduruldu)"
)

// chatLine is one rendered message in the transcript.
type chatLine struct {
	role   llm.Role
	text   string
	intent string
	failed bool
}

// chatState tracks the chat tab: transcript, input and the reply in flight.
type chatState struct {
	enabled bool
	conv    *assistant.Conversation
	lines   []chatLine

	input textarea.Model
	view  viewport.Model
	width int

	stream    *llm.Stream
	streaming bool
}

// chatStartedMsg carries the stream returned for a sent message.
type chatStartedMsg struct {
	stream *llm.Stream
	intent assistant.Intent
	err    error
}

// chatChunkMsg carries the growing reply after each chunk.
type chatChunkMsg struct {
	stream *llm.Stream
	text   string
	done   bool
	err    error
}

func newChatState(enabled bool) chatState {
	ta := textarea.New()
	ta.Placeholder = "Bir soru yazın..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	return chatState{
		enabled: enabled,
		conv:    assistant.NewConversation("tui"),
		input:   ta,
		view:    viewport.New(80, 10),
	}
}

func (c *chatState) resize(width, height int) {
	c.width = width
	c.input.SetWidth(width - 2)
	vh := height - inputHeight - 1
	if vh < 1 {
		vh = 1
	}
	c.view.Width = width
	c.view.Height = vh
	c.refresh()
}

// refresh re-renders the transcript and keeps the view pinned to the end.
func (c *chatState) refresh() {
	c.view.SetContent(c.renderTranscript())
	c.view.GotoBottom()
}

func (c *chatState) renderTranscript() string {
	t := theme.Active
	w := c.width - 2
	if w < 20 {
		w = 20
	}

	userLabel := lipgloss.NewStyle().Foreground(t.Blue).Bold(true)
	botLabel := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	tagStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Width(w)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Width(w)

	if !c.enabled {
		return lipgloss.NewStyle().Foreground(t.Orange).Render(
			"Sohbet kapalı: OPENAI_API_KEY ayarlanmadı. Forecast ve History sekmeleri kullanılabilir.")
	}
	if len(c.lines) == 0 {
		return tagStyle.Render("Harcamalarınız hakkında bir şey sorun. Örnek: \"gelecek harcama tahmini\".")
	}

	var b strings.Builder
	for i, l := range c.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if l.role == llm.RoleUser {
			b.WriteString(userLabel.Render("Siz"))
		} else {
			b.WriteString(botLabel.Render("Asistan"))
			if l.intent != "" {
				b.WriteString(tagStyle.Render(" · " + l.intent))
			}
		}
		b.WriteString("\n")

		text := l.text
		if text == "" && i == len(c.lines)-1 && c.streaming {
			text = "..."
		}
		if l.failed {
			b.WriteString(errStyle.Render(text))
		} else {
			b.WriteString(textStyle.Render(text))
		}
	}
	return b.String()
}

func (a App) updateChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return a.sendChat()
	case "esc":
		if a.chat.streaming {
			a.chat.stream.Cancel()
			a.chat.finishReply(a.chat.stream.Text()+cancelledNote, false)
			a.chat.stream = nil
		}
		return a, nil
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		a.chat.view, cmd = a.chat.view.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.chat.input, cmd = a.chat.input.Update(msg)
	return a, cmd
}

func (a App) sendChat() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.chat.input.Value())
	if text == "" || a.chat.streaming || !a.chat.enabled || a.assistant == nil {
		return a, nil
	}
	a.chat.input.Reset()
	a.chat.lines = append(a.chat.lines,
		chatLine{role: llm.RoleUser, text: text},
		chatLine{role: llm.RoleAssistant},
	)
	a.chat.streaming = true
	a.chat.refresh()
	return a, tea.Batch(respondCmd(a.assistant, a.chat.conv, text), a.spinner.Tick)
}

func (a App) handleChatStarted(msg chatStartedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.chat.finishReply(msg.err.Error(), true)
		return a, nil
	}
	a.chat.stream = msg.stream
	a.chat.setIntent(msg.intent.Kind.String())
	return a, waitChunkCmd(msg.stream)
}

func (a App) handleChatChunk(msg chatChunkMsg) (tea.Model, tea.Cmd) {
	// A cancelled stream may still deliver; drop it.
	if msg.stream != a.chat.stream {
		return a, nil
	}
	switch {
	case msg.err != nil:
		text := msg.text
		if text != "" {
			text += "\n"
		}
		a.chat.finishReply(text+msg.err.Error(), true)
		a.chat.stream = nil
		return a, nil
	case msg.done:
		a.chat.finishReply(msg.text, false)
		a.chat.stream = nil
		return a, nil
	}
	a.chat.setText(msg.text)
	return a, waitChunkCmd(msg.stream)
}

func (c *chatState) last() *chatLine {
	if len(c.lines) == 0 {
		return nil
	}
	return &c.lines[len(c.lines)-1]
}

func (c *chatState) setText(text string) {
	if l := c.last(); l != nil {
		l.text = text
	}
	c.refresh()
}

func (c *chatState) setIntent(intent string) {
	if l := c.last(); l != nil {
		l.intent = intent
	}
}

func (c *chatState) finishReply(text string, failed bool) {
	if l := c.last(); l != nil {
		l.text = text
		l.failed = failed
	}
	c.streaming = false
	c.refresh()
}

func (a App) renderChatTab(cw, contentH int) string {
	t := theme.Active
	inputBox := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(t.Border).
		Render(a.chat.input.View())

	transcript := a.chat.view.View()
	if a.chat.streaming {
		transcript = strings.TrimRight(transcript, "\n")
		lines := strings.Split(transcript, "\n")
		lines[len(lines)-1] = a.spinner.View() + " " + lines[len(lines)-1]
		transcript = strings.Join(lines, "\n")
	}
	body := padHeight(truncateHeight(transcript, contentH-inputHeight-1), contentH-inputHeight-1)
	return body + "\n" + inputBox
}

// respondCmd asks the assistant for a reply stream.
func respondCmd(a *assistant.Assistant, conv *assistant.Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		s, intent, err := a.Respond(context.Background(), conv, text)
		return chatStartedMsg{stream: s, intent: intent, err: err}
	}
}

// waitChunkCmd blocks for the next chunk of s.
func waitChunkCmd(s *llm.Stream) tea.Cmd {
	return func() tea.Msg {
		c, ok := s.Next()
		if !ok {
			return chatChunkMsg{stream: s, text: s.Text(), done: true, err: s.Err()}
		}
		if c.Err != nil {
			return chatChunkMsg{stream: s, text: s.Text(), err: c.Err}
		}
		return chatChunkMsg{stream: s, text: s.Text()}
	}
}
