package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Cmd is the reducer's command type; tasks run on the framework's executor
// and deliver their results back as messages.
type Cmd = tea.Cmd

func tickCmd(interval time.Duration) Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return TickMsg{} })
}

func taskCmd(task func() tea.Msg) Cmd {
	return task
}

func batchCmds(cmds ...Cmd) Cmd {
	filtered := make([]Cmd, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd != nil {
			filtered = append(filtered, cmd)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return tea.Batch(filtered...)
	}
}
