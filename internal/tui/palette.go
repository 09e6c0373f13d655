package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// paletteCommand is one palette entry with a state gate.
type paletteCommand struct {
	id      string
	title   string
	enabled func(m *Model) bool
	run     func(m *Model) Cmd
}

type paletteState struct {
	visible  bool
	query    textinput.Model
	selected int
}

// paletteCommands enumerates the commands the palette can run. Gates mirror
// the key bindings' preconditions.
func paletteCommands() []paletteCommand {
	workspaceSelected := func(m *Model) bool { return m.selectedWorkspace() != nil }
	nonMainSelected := func(m *Model) bool {
		workspace := m.selectedWorkspace()
		return workspace != nil && !workspace.IsMain
	}
	liveSession := func(m *Model) bool {
		workspace := m.selectedWorkspace()
		return workspace != nil && workspace.HasLiveStatus()
	}
	canStart := func(m *Model) bool {
		workspace := m.selectedWorkspace()
		return workspace != nil && !workspace.HasLiveStatus()
	}
	return []paletteCommand{
		{"start_agent", "Start agent", canStart, func(m *Model) Cmd { return m.openLaunchDialog() }},
		{"stop_agent", "Stop agent", liveSession, func(m *Model) Cmd { return m.openStopDialog() }},
		{"restart_agent", "Restart agent in pane", liveSession, func(m *Model) Cmd { return m.openRestartConfirm() }},
		{"create_workspace", "Create workspace", func(*Model) bool { return true }, func(m *Model) Cmd { return m.openCreateDialog() }},
		{"edit_workspace", "Edit workspace", nonMainSelected, func(m *Model) Cmd { return m.openEditDialog() }},
		{"delete_workspace", "Delete workspace", nonMainSelected, func(m *Model) Cmd { return m.openDeleteDialog() }},
		{"merge_workspace", "Merge workspace into base", nonMainSelected, func(m *Model) Cmd { return m.openMergeDialog() }},
		{"update_workspace", "Update workspace from base", nonMainSelected, func(m *Model) Cmd { return m.openUpdateFromBaseDialog() }},
		{"refresh", "Refresh workspaces", func(*Model) bool { return true }, func(m *Model) Cmd { return m.dispatchRefreshWorkspaces() }},
		{"ack_attention", "Acknowledge attention", workspaceSelected, func(m *Model) Cmd { m.clearAttentionForSelectedWorkspace(); return nil }},
		{"add_project", "Add project", func(*Model) bool { return true }, func(m *Model) Cmd { return m.openProjectDialog() }},
		{"settings", "Settings", func(*Model) bool { return true }, func(m *Model) Cmd { return m.openSettingsDialog() }},
	}
}

// openPalette shows the palette. Blocked while a dialog is open or in
// interactive mode.
func (m *Model) openPalette() {
	if m.dialog != nil || m.interactive != nil {
		return
	}
	query := textinput.New()
	query.Placeholder = "command"
	query.Focus()
	m.palette = paletteState{visible: true, query: query}
}

func (m *Model) closePalette() {
	m.palette = paletteState{}
}

// enabledPaletteCommands filters by gate, then fuzzy-matches the query.
func (m *Model) enabledPaletteCommands() []paletteCommand {
	var enabled []paletteCommand
	for _, cmd := range paletteCommands() {
		if cmd.enabled(m) {
			enabled = append(enabled, cmd)
		}
	}
	query := m.palette.query.Value()
	if query == "" {
		return enabled
	}
	titles := make([]string, len(enabled))
	for i, cmd := range enabled {
		titles[i] = cmd.title
	}
	matches := fuzzy.Find(query, titles)
	filtered := make([]paletteCommand, 0, len(matches))
	for _, match := range matches {
		filtered = append(filtered, enabled[match.Index])
	}
	return filtered
}

func (m *Model) handlePaletteKey(msg tea.KeyMsg) Cmd {
	switch msg.Type {
	case tea.KeyEscape:
		m.closePalette()
		return nil
	case tea.KeyUp:
		if m.palette.selected > 0 {
			m.palette.selected--
		}
		return nil
	case tea.KeyDown:
		if m.palette.selected < len(m.enabledPaletteCommands())-1 {
			m.palette.selected++
		}
		return nil
	case tea.KeyEnter:
		commands := m.enabledPaletteCommands()
		if m.palette.selected >= 0 && m.palette.selected < len(commands) {
			selected := commands[m.palette.selected]
			m.closePalette()
			m.logEvent("palette", "command_run", map[string]any{"command": selected.id})
			return selected.run(m)
		}
		m.closePalette()
		return nil
	}
	var cmd tea.Cmd
	m.palette.query, cmd = m.palette.query.Update(msg)
	m.palette.selected = 0
	_ = cmd
	return nil
}
