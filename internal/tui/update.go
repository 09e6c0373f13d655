package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Init refreshes the workspace list and schedules the first tick.
func (m *Model) Init() tea.Cmd {
	return batchCmds(
		m.dispatchRefreshWorkspaces(),
		tickCmd(0),
	)
}

// Update is the only mutation point. Every message mutates state, may enqueue
// background tasks, and reschedules the next tick.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.recordMsg(msg)
	cmd := m.update(msg)
	m.recordStateAfterUpdate()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) Cmd {
	m.pruneToasts()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Paste {
			return m.handlePaste(PasteMsg{Text: string(msg.Runes), Bracketed: true})
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case PasteMsg:
		return m.handlePaste(msg)
	case TickMsg:
		return m.handleTick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.scheduleNextTick()
	case PreviewPollCompletedMsg:
		return batchCmds(m.handlePreviewPollCompleted(msg.Completion), m.scheduleNextTick())
	case WorkspaceStatusPollCompletedMsg:
		return batchCmds(m.handleWorkspaceStatusPollCompleted(msg.Completion), m.scheduleNextTick())
	case InteractiveSendCompletedMsg:
		return batchCmds(m.handleInteractiveSendCompleted(msg.Completion), m.scheduleNextTick())
	case StartAgentCompletedMsg:
		m.handleStartAgentCompleted(msg.Completion)
		return m.scheduleNextTick()
	case StopAgentCompletedMsg:
		m.handleStopAgentCompleted(msg.Completion)
		return m.scheduleNextTick()
	case RestartAgentCompletedMsg:
		m.handleRestartAgentCompleted(msg.Completion)
		return m.scheduleNextTick()
	case CreateWorkspaceCompletedMsg:
		return batchCmds(m.handleCreateWorkspaceCompleted(msg), m.scheduleNextTick())
	case DeleteWorkspaceCompletedMsg:
		return batchCmds(m.handleDeleteWorkspaceCompleted(msg.Completion), m.scheduleNextTick())
	case MergeWorkspaceCompletedMsg:
		return batchCmds(m.handleMergeWorkspaceCompleted(msg.Completion), m.scheduleNextTick())
	case UpdateWorkspaceFromBaseCompletedMsg:
		m.handleUpdateFromBaseCompleted(msg.Completion)
		return m.scheduleNextTick()
	case RefreshWorkspacesCompletedMsg:
		m.handleRefreshWorkspacesCompleted(msg)
		return m.scheduleNextTick()
	case DeleteProjectCompletedMsg:
		m.handleDeleteProjectCompleted(msg)
		return m.scheduleNextTick()
	case LazygitLaunchCompletedMsg:
		m.handleLazygitLaunchCompleted(msg)
		return m.scheduleNextTick()
	case WorkspaceShellLaunchCompletedMsg:
		m.handleShellLaunchCompleted(msg)
		return m.scheduleNextTick()
	case NoopMsg:
		return m.scheduleNextTick()
	default:
		return nil
	}
}

// handleTick fires whichever deadlines are due and reschedules. Ticks that
// arrive early (outside the tolerance) are rescheduled without polling.
func (m *Model) handleTick() Cmd {
	now := m.now()
	if !m.tickIsDue(now) {
		return m.scheduleNextTick()
	}
	m.sched.nextTickDueAt = time.Time{}

	var cmds []Cmd
	if !m.sched.nextWorkspaceRefreshDueAt.IsZero() && isDueWithTolerance(now, m.sched.nextWorkspaceRefreshDueAt) {
		m.sched.nextWorkspaceRefreshDueAt = now.Add(workspaceRefreshIntervalMs * time.Millisecond)
		cmds = append(cmds, m.dispatchRefreshWorkspaces())
	}
	if !m.sched.nextVisualDueAt.IsZero() && isDueWithTolerance(now, m.sched.nextVisualDueAt) {
		m.sched.nextVisualDueAt = time.Time{}
		m.advanceVisualAnimation()
	}
	if m.sched.nextPollDueAt.IsZero() || isDueWithTolerance(now, m.sched.nextPollDueAt) {
		m.sched.nextPollDueAt = time.Time{}
		m.sched.interactivePollDueAt = time.Time{}
		cmds = append(cmds, m.pollPreview(), m.pollWorkspaceStatuses())
	}

	cmds = append(cmds, m.scheduleNextTick())
	return batchCmds(cmds...)
}

func (m *Model) handleMouse(msg tea.MouseMsg) Cmd {
	if m.interactive != nil {
		return m.scheduleNextTick()
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollPreview(3)
	case tea.MouseButtonWheelDown:
		m.scrollPreview(-3)
	}
	return m.scheduleNextTick()
}
