package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/enrichr/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgJobComplete
)

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// jobCompleteMsg is the constructor for [MsgJobComplete]
func jobCompleteMsg(err error) Msg {
	return Msg{kind: MsgJobComplete, data: err}
}
