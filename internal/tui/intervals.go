package tui

import (
	"time"

	"github.com/mvessia/grove/internal/domain"
)

// Scheduler constants. The adaptive poll interval is the slowest signal; the
// other intervals cut in when something is visibly moving or outstanding.
const (
	pollIntervalTypingMs         = 150
	pollIntervalChangingMs       = 250
	pollIntervalWorkingMs        = 500
	pollIntervalPreviewFocusMs   = 800
	pollIntervalNeedsUserMs      = 1200
	pollIntervalIdleMs           = 2000
	interactiveRecentKeyWindow   = 3 * time.Second
	workspaceRefreshIntervalMs   = 5000
	fastAnimationIntervalMs      = 120
	previewPollInFlightTickMs    = 100
	tickEarlyToleranceMs         = 5
	localTypingSuppressMs        = 450
	agentActivityWindowFrames    = 6
	statusPollMaxTargetsPerCycle = 3

	livePreviewScrollbackLines     = 600
	workspaceStatusScrollbackLines = 120

	toastDuration = 4 * time.Second
	maxToasts     = 3
)

// pollInterval derives the adaptive poll interval from what the user is
// looking at and how busy the selected agent is.
func pollInterval(status domain.WorkspaceStatus, hasSession, previewFocused, interactive bool, sinceLastKey time.Duration, outputChanging bool) time.Duration {
	if interactive {
		if sinceLastKey < interactiveRecentKeyWindow {
			return pollIntervalTypingMs * time.Millisecond
		}
		return pollIntervalChangingMs * time.Millisecond
	}
	if outputChanging {
		return pollIntervalChangingMs * time.Millisecond
	}
	if hasSession && status.IsWorking() {
		return pollIntervalWorkingMs * time.Millisecond
	}
	if previewFocused {
		return pollIntervalPreviewFocusMs * time.Millisecond
	}
	if status.NeedsUser() || status == domain.StatusDone {
		return pollIntervalNeedsUserMs * time.Millisecond
	}
	return pollIntervalIdleMs * time.Millisecond
}

func (m *Model) nextPollInterval() time.Duration {
	sinceLastKey := time.Minute
	if m.interactive != nil {
		sinceLastKey = m.now().Sub(m.interactive.lastKeyTime)
	}
	return pollInterval(
		m.selectedWorkspaceStatus(),
		true,
		m.focus == FocusPreview,
		m.interactive != nil,
		sinceLastKey,
		m.poll.outputChanging,
	)
}

func (m *Model) pushAgentActivityFrame(changed bool) {
	frames := m.poll.agentActivityFrames
	if len(frames) >= agentActivityWindowFrames {
		frames = frames[1:]
	}
	m.poll.agentActivityFrames = append(frames, changed)
}

func (m *Model) hasRecentAgentActivity() bool {
	for _, changed := range m.poll.agentActivityFrames {
		if changed {
			return true
		}
	}
	return false
}

func (m *Model) clearAgentActivityTracking() {
	m.poll.outputChanging = false
	m.poll.agentOutputChanging = false
	m.poll.agentActivityFrames = nil
}

func (m *Model) workspaceOutputChanging(workspacePath string) bool {
	return m.poll.workspaceOutputChanging[workspacePath]
}

func (m *Model) clearStatusTrackingForWorkspacePath(workspacePath string) {
	delete(m.poll.workspaceStatusDigests, workspacePath)
	delete(m.poll.workspaceOutputChanging, workspacePath)
}

// statusIsVisuallyWorking reports whether the status deserves the fast
// animation tick. Local typing suppresses the animation so the spinner does
// not flicker under the user's own echo.
func (m *Model) statusIsVisuallyWorking(workspacePath string, status domain.WorkspaceStatus, isSelected bool) bool {
	if isSelected && m.interactive != nil &&
		m.now().Sub(m.interactive.lastKeyTime) < localTypingSuppressMs*time.Millisecond {
		return false
	}
	switch status {
	case domain.StatusThinking:
		return true
	case domain.StatusActive:
		if workspacePath != "" && m.workspaceOutputChanging(workspacePath) {
			return true
		}
		if isSelected {
			return m.poll.agentOutputChanging || m.hasRecentAgentActivity()
		}
		return false
	default:
		return false
	}
}

func (m *Model) visualTickInterval() (time.Duration, bool) {
	workspacePath := ""
	if workspace := m.selectedWorkspace(); workspace != nil {
		workspacePath = workspace.Path
	}
	if m.statusIsVisuallyWorking(workspacePath, m.selectedWorkspaceStatus(), true) {
		return fastAnimationIntervalMs * time.Millisecond, true
	}
	return 0, false
}

func (m *Model) advanceVisualAnimation() {
	m.poll.fastAnimationFrame++
}

func isDueWithTolerance(now, dueAt time.Time) bool {
	return !now.Add(tickEarlyToleranceMs * time.Millisecond).Before(dueAt)
}

func (m *Model) tickIsDue(now time.Time) bool {
	if m.sched.nextTickDueAt.IsZero() {
		return true
	}
	return isDueWithTolerance(now, m.sched.nextTickDueAt)
}

// scheduleNextTick computes the next tick deadline as the minimum of the
// adaptive poll deadline, the workspace-refresh deadline, the fast-animation
// deadline, and the aggressive in-flight deadline. Existing deadlines are
// retained when still in the future and no later than the candidate;
// every decision is telemetered.
func (m *Model) scheduleNextTick() Cmd {
	scheduledAt := m.now()
	if m.sched.nextWorkspaceRefreshDueAt.IsZero() {
		m.sched.nextWorkspaceRefreshDueAt = scheduledAt.Add(workspaceRefreshIntervalMs * time.Millisecond)
	}

	pollDueAt := scheduledAt.Add(m.nextPollInterval())
	source := "adaptive_poll"
	if due := m.sched.interactivePollDueAt; !due.IsZero() && due.Before(pollDueAt) {
		pollDueAt = due
		source = "interactive_debounce"
	}

	if existing := m.sched.nextPollDueAt; !existing.IsZero() && !existing.After(pollDueAt) {
		if existing.After(scheduledAt) {
			pollDueAt = existing
			source = "retained_poll"
		} else {
			pollDueAt = scheduledAt
			source = "overdue_poll"
		}
	}
	m.sched.nextPollDueAt = pollDueAt

	if interval, ok := m.visualTickInterval(); ok {
		candidate := scheduledAt.Add(interval)
		if existing := m.sched.nextVisualDueAt; !existing.IsZero() &&
			!existing.After(candidate) && existing.After(scheduledAt) {
			candidate = existing
		}
		m.sched.nextVisualDueAt = candidate
	} else {
		m.sched.nextVisualDueAt = time.Time{}
	}

	dueAt := pollDueAt
	trigger := "poll"
	if refresh := m.sched.nextWorkspaceRefreshDueAt; !refresh.IsZero() && refresh.Before(dueAt) {
		dueAt = refresh
		source = "workspace_refresh"
		trigger = "workspace_refresh"
	}
	if visual := m.sched.nextVisualDueAt; !visual.IsZero() && visual.Before(dueAt) {
		dueAt = visual
		trigger = "visual"
	}
	if m.flags.previewPoll {
		inFlightDueAt := scheduledAt.Add(previewPollInFlightTickMs * time.Millisecond)
		if inFlightDueAt.Before(dueAt) {
			dueAt = inFlightDueAt
			source = "poll_in_flight"
			trigger = "task_result"
		}
	}

	if existing := m.sched.nextTickDueAt; !existing.IsZero() &&
		!existing.After(dueAt) && existing.After(scheduledAt) {
		m.logEvent("tick", "retained", map[string]any{
			"source":                source,
			"trigger":               trigger,
			"interval_ms":           durationMillis(existing.Sub(scheduledAt)),
			"pending_depth":         m.pendingInputDepth(),
			"oldest_pending_age_ms": m.oldestPendingInputAgeMs(scheduledAt),
		})
		return nil
	}

	interval := dueAt.Sub(scheduledAt)
	if interval < 0 {
		interval = 0
	}
	m.sched.nextTickDueAt = dueAt
	m.sched.nextTickIntervalMs = durationMillis(interval)
	m.logEvent("tick", "scheduled", map[string]any{
		"source":                source,
		"trigger":               trigger,
		"interval_ms":           m.sched.nextTickIntervalMs,
		"pending_depth":         m.pendingInputDepth(),
		"oldest_pending_age_ms": m.oldestPendingInputAgeMs(scheduledAt),
	})
	return tickCmd(interval)
}
