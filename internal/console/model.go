// Package console is the terminal front end of the quiz show: a PIN gate,
// the quiz panel, the conversation, the realtime event log and push-to-talk.
package console

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-quiz/core"
	"github.com/koscakluka/ema-quiz/core/conversation"
	"github.com/koscakluka/ema-quiz/core/eventlog"
	"github.com/koscakluka/ema-quiz/core/events"
	"github.com/koscakluka/ema-quiz/core/quiz"
)

// Controller is the part of the orchestrator the console drives.
type Controller interface {
	Authorize(pin string) error
	IsAuthorized() bool
	Connect(ctx context.Context) error
	Disconnect() error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	ChangeTurnMode(ctx context.Context, mode orchestration.TurnMode) error
	SendText(text string) error
	SubmitAnswer(ctx context.Context, answer string) error
	DeleteItem(id string)
	Items() []conversation.Item
	EventLog() []eventlog.Entry
	Elapsed(entry eventlog.Entry) string
	Quiz() quiz.State
}

// LevelsMsg carries a visualization sample into the program.
type LevelsMsg orchestration.Levels

type authorizedMsg struct{ err error }

type actionMsg struct {
	action string
	err    error
}

const (
	quizPanelHeight = 9
	chromeHeight    = 6
)

type Model struct {
	ctx    context.Context
	ctrl   Controller
	bridge *Bridge
	keys   keyMap
	help   help.Model

	pin          textinput.Model
	message      textinput.Model
	conversation viewport.Model
	log          viewport.Model

	authorized bool
	composing  bool
	focusLog   bool
	connected  bool
	turn       events.TurnStateChanged
	levels     LevelsMsg
	items      []conversation.Item
	quiz       quiz.State
	status     string
	err        error

	width, height int
}

func New(ctx context.Context, ctrl Controller, bridge *Bridge) Model {
	pin := textinput.New()
	pin.Placeholder = "PIN"
	pin.EchoMode = textinput.EchoPassword
	pin.EchoCharacter = '•'
	pin.CharLimit = 32
	pin.Focus()

	message := textinput.New()
	message.Placeholder = "Say something to the host"
	message.CharLimit = 500

	return Model{
		ctx:          ctx,
		ctrl:         ctrl,
		bridge:       bridge,
		keys:         defaultKeyMap(),
		help:         help.New(),
		pin:          pin,
		message:      message,
		conversation: viewport.New(40, 10),
		log:          viewport.New(40, 10),
		authorized:   ctrl.IsAuthorized(),
		turn:         events.NewTurnStateChanged("idle", orchestration.TurnModeManual.String(), false),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bridge.wait()}
	if m.authorized {
		cmds = append(cmds, m.connect())
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case eventMsg:
		m.handleEvent(msg.event)
		m.refresh()
		return m, m.bridge.wait()

	case LevelsMsg:
		m.levels = msg
		return m, nil

	case authorizedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.pin.Reset()
			return m, nil
		}
		m.authorized, m.err = true, nil
		m.pin.Blur()
		return m, m.connect()

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.action
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	if m.focusLog {
		m.log, cmd = m.log.Update(msg)
	} else {
		m.conversation, cmd = m.conversation.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if !m.authorized {
		if key.Matches(msg, m.keys.Send) {
			return m, m.authorize(m.pin.Value())
		}
		var cmd tea.Cmd
		m.pin, cmd = m.pin.Update(msg)
		return m, cmd
	}

	if m.composing {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.composing = false
			m.message.Blur()
			return m, nil
		case key.Matches(msg, m.keys.Send):
			text := strings.TrimSpace(m.message.Value())
			m.message.Reset()
			m.message.Blur()
			m.composing = false
			if text == "" {
				return m, nil
			}
			return m, m.run("message sent", func(context.Context) error { return m.ctrl.SendText(text) })
		}
		var cmd tea.Cmd
		m.message, cmd = m.message.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Connect):
		return m, m.connect()
	case key.Matches(msg, m.keys.Disconnect):
		return m, m.run("disconnected", func(context.Context) error { return m.ctrl.Disconnect() })
	case key.Matches(msg, m.keys.PushToTalk):
		return m, m.pushToTalk()
	case key.Matches(msg, m.keys.ToggleMode):
		mode := orchestration.TurnModeVAD
		if m.turn.Mode == orchestration.TurnModeVAD.String() {
			mode = orchestration.TurnModeManual
		}
		return m, m.run("mode "+mode.String(), func(ctx context.Context) error { return m.ctrl.ChangeTurnMode(ctx, mode) })
	case key.Matches(msg, m.keys.Compose):
		m.composing = true
		return m, m.message.Focus()
	case key.Matches(msg, m.keys.Answer):
		return m, m.answer(msg.String())
	case key.Matches(msg, m.keys.DeleteLast):
		if len(m.items) == 0 {
			return m, nil
		}
		id := m.items[len(m.items)-1].ID
		return m, m.run("deleted "+id, func(context.Context) error {
			m.ctrl.DeleteItem(id)
			return nil
		})
	case key.Matches(msg, m.keys.FocusNext):
		m.focusLog = !m.focusLog
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusLog {
		m.log, cmd = m.log.Update(msg)
	} else {
		m.conversation, cmd = m.conversation.Update(msg)
	}
	return m, cmd
}

// pushToTalk toggles capture. Terminals report no key releases, so the same
// key starts and stops the turn.
func (m Model) pushToTalk() tea.Cmd {
	if m.turn.State == orchestration.TurnRecording.String() {
		return m.run("response requested", m.ctrl.StopRecording)
	}
	if !m.turn.CanPushToTalk {
		return nil
	}
	return m.run("recording", m.ctrl.StartRecording)
}

func (m Model) answer(pressed string) tea.Cmd {
	if m.quiz.Question == nil || m.quiz.SubmissionInFlight {
		return nil
	}
	index := int(pressed[0]-'1')
	if index < 0 || index >= len(m.quiz.Question.Options) {
		return nil
	}
	option := m.quiz.Question.Options[index]
	return m.run("answered "+option, func(ctx context.Context) error { return m.ctrl.SubmitAnswer(ctx, option) })
}

func (m Model) authorize(pin string) tea.Cmd {
	return func() tea.Msg {
		return authorizedMsg{err: m.ctrl.Authorize(pin)}
	}
}

func (m Model) connect() tea.Cmd {
	return m.run("connected", func(ctx context.Context) error {
		err := m.ctrl.Connect(ctx)
		if errors.Is(err, orchestration.ErrAlreadyConnected) {
			return nil
		}
		return err
	})
}

// run calls into the orchestrator off the update loop, since the calls may
// block on the network or on the orchestrator's locks.
func (m Model) run(action string, call func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{action: action, err: call(m.ctx)}
	}
}

func (m *Model) handleEvent(event events.Event) {
	switch event := event.(type) {
	case events.TurnStateChanged:
		m.turn = event
		m.connected = event.State != orchestration.TurnIdle.String()
	case events.SessionConnected:
		m.connected = true
	case events.SessionDisconnected:
		m.connected = false
	case events.SessionFailed:
		m.connected = false
		m.err = event.Err
	case events.ConversationInterrupted:
		if event.TrackID != "" {
			m.status = "interrupted " + event.TrackID
		}
	}
}

func (m *Model) refresh() {
	m.items = m.ctrl.Items()
	m.quiz = m.ctrl.Quiz()

	followConversation := m.conversation.AtBottom()
	m.conversation.SetContent(renderConversation(m.items, m.conversation.Width))
	if followConversation {
		m.conversation.GotoBottom()
	}

	entries := m.ctrl.EventLog()
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, renderEntry(m.ctrl.Elapsed(entry), entry, m.log.Width))
	}
	followLog := m.log.AtBottom()
	m.log.SetContent(strings.Join(lines, "\n"))
	if followLog {
		m.log.GotoBottom()
	}
}

func (m *Model) resize() {
	panelWidth := max(m.width/2-4, 20)
	panelHeight := max(m.height-quizPanelHeight-chromeHeight, 5)

	m.conversation.Width, m.conversation.Height = panelWidth, panelHeight
	m.log.Width, m.log.Height = panelWidth, panelHeight
	m.message.Width = max(m.width-4, 20)
	m.help.Width = m.width
}

func (m Model) View() string {
	if !m.authorized {
		view := titleStyle.Render("Quiz Show") + "\n\n" + "Enter the session PIN\n" + m.pin.View()
		if m.err != nil {
			view += "\n" + errorStyle.Render(m.err.Error())
		}
		return view
	}

	conversationPanel, logPanel := focusedStyle, panelStyle
	if m.focusLog {
		conversationPanel, logPanel = panelStyle, focusedStyle
	}

	sections := []string{
		m.header(),
		panelStyle.Width(max(m.width-2, 20)).Render(renderQuiz(m.quiz, max(m.width-6, 20))),
		lipgloss.JoinHorizontal(lipgloss.Top,
			conversationPanel.Render(m.conversation.View()),
			logPanel.Render(m.log.View()),
		),
		inputBarStyle.Render("in  "+renderLevels(m.levels.Input)) + "  " + outputBarStyle.Render("out "+renderLevels(m.levels.Output)),
	}
	if m.composing {
		sections = append(sections, m.message.View())
	}
	sections = append(sections, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) header() string {
	connection := mutedStyle.Render("disconnected")
	if m.connected {
		connection = correctStyle.Render("connected")
	}

	state := m.turn.State
	if state == orchestration.TurnRecording.String() {
		state = recordStyle.Render("● recording")
	}

	pushToTalk := mutedStyle.Render("push-to-talk off")
	if m.turn.CanPushToTalk {
		pushToTalk = "push-to-talk ready"
	}
	return strings.Join([]string{titleStyle.Render("Quiz Show"), connection, m.turn.Mode, state, pushToTalk}, "  ")
}

func (m Model) footer() string {
	line := m.help.ShortHelpView(m.keys.help())
	switch {
	case m.err != nil:
		return errorStyle.Render(m.err.Error()) + "\n" + line
	case m.status != "":
		return mutedStyle.Render(m.status) + "\n" + line
	}
	return line
}
