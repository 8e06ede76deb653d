package console

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Connect    key.Binding
	Disconnect key.Binding
	PushToTalk key.Binding
	ToggleMode key.Binding
	Compose    key.Binding
	Send       key.Binding
	Cancel     key.Binding
	DeleteLast key.Binding
	Answer     key.Binding
	FocusNext  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Connect:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		Disconnect: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "disconnect")),
		PushToTalk: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "push to talk")),
		ToggleMode: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "manual/vad")),
		Compose:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "type message")),
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		DeleteLast: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete last item")),
		Answer:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "answer")),
		FocusNext:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "scroll log/conversation")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Connect, k.Disconnect, k.PushToTalk, k.ToggleMode, k.Compose, k.Answer, k.DeleteLast, k.FocusNext, k.Quit}
}
