package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// handleKey routes key presses by mode: interactive forwarding wins, then the
// blocking dialog, then the palette, then global bindings.
func (m *Model) handleKey(msg tea.KeyMsg) Cmd {
	if m.interactive != nil {
		return m.handleInteractiveKey(msg)
	}
	if m.dialog != nil {
		return batchCmds(m.handleDialogKey(msg), m.scheduleNextTick())
	}
	if m.palette.visible {
		return batchCmds(m.handlePaletteKey(msg), m.scheduleNextTick())
	}
	if m.helpVisible {
		m.helpVisible = false
		return m.scheduleNextTick()
	}
	return batchCmds(m.handleGlobalKey(msg), m.scheduleNextTick())
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return tea.Quit
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "g":
		m.setSelection(0)
	case "G":
		m.setSelection(len(m.workspaces) - 1)
	case "tab":
		m.cyclePreviewTab()
		return m.previewTabChanged()
	case "1":
		return m.setPreviewTab(TabAgent)
	case "2":
		return m.setPreviewTab(TabGit)
	case "3":
		return m.setPreviewTab(TabShell)
	case "enter":
		return m.handleEnterKey()
	case "esc":
		if m.focus == FocusPreview {
			m.focus = FocusSidebar
		}
	case "pgup":
		m.scrollPreview(m.previewViewportHeight())
	case "pgdown":
		m.scrollPreview(-m.previewViewportHeight())
	case "[":
		m.scrollPreview(3)
	case "]":
		m.scrollPreview(-3)
	case "b":
		m.jumpPreviewToBottom()
	case "s":
		return m.openLaunchDialog()
	case "S":
		return m.openStopDialog()
	case "r":
		return m.openRestartConfirm()
	case "c":
		return m.openCreateDialog()
	case "e":
		return m.openEditDialog()
	case "d":
		return m.openDeleteDialog()
	case "M":
		return m.openMergeDialog()
	case "u":
		return m.openUpdateFromBaseDialog()
	case "P":
		return m.openProjectDialog()
	case ",":
		return m.openSettingsDialog()
	case "R":
		return m.dispatchRefreshWorkspaces()
	case "a":
		m.clearAttentionForSelectedWorkspace()
	case "ctrl+p", ":":
		m.openPalette()
	case "?":
		m.helpVisible = !m.helpVisible
	}
	return nil
}

// handleEnterKey focuses the preview; a second Enter with the preview focused
// is the confirmation that enters interactive mode.
func (m *Model) handleEnterKey() Cmd {
	if m.focus == FocusSidebar {
		m.focus = FocusPreview
		return nil
	}
	if !m.canEnterInteractive() {
		m.showToast("no live session to interact with", ToastInfo)
		return nil
	}
	m.enterInteractive()
	// Release mouse capture so the terminal's own selection works while keys
	// forward to the session.
	return tea.DisableMouse
}

func (m *Model) moveSelection(delta int) {
	m.setSelection(m.selectedIndex + delta)
}

func (m *Model) setSelection(index int) {
	if len(m.workspaces) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(m.workspaces) {
		index = len(m.workspaces) - 1
	}
	if index == m.selectedIndex {
		return
	}
	m.selectedIndex = index
	m.preview = newPreview()
	m.clearAgentActivityTracking()
	m.refreshPreviewSummary()
	m.clearAttentionForSelectedWorkspace()
	m.logEvent("state_change", "selection_changed", map[string]any{
		"index": index,
	})
	m.sched.interactivePollDueAt = m.now()
}

func (m *Model) cyclePreviewTab() {
	switch m.previewTab {
	case TabAgent:
		m.previewTab = TabGit
	case TabGit:
		m.previewTab = TabShell
	default:
		m.previewTab = TabAgent
	}
}

func (m *Model) setPreviewTab(tab PreviewTab) Cmd {
	if m.previewTab == tab {
		return nil
	}
	m.previewTab = tab
	return m.previewTabChanged()
}

// previewTabChanged resets the preview buffer and lazily launches the
// helper session backing the new tab.
func (m *Model) previewTabChanged() Cmd {
	m.preview = newPreview()
	m.refreshPreviewSummary()
	m.sched.interactivePollDueAt = m.now()

	workspace := m.selectedWorkspace()
	if workspace == nil {
		return nil
	}
	switch m.previewTab {
	case TabGit:
		return m.dispatchLazygitLaunch(*workspace)
	case TabShell:
		return m.dispatchShellLaunch(*workspace)
	default:
		return nil
	}
}
