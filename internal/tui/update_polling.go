package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvessia/grove/internal/capture"
	"github.com/mvessia/grove/internal/daemon"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/launch"
	"github.com/mvessia/grove/internal/runtime"
	"github.com/mvessia/grove/internal/tmux"
	"github.com/mvessia/grove/internal/util"
)

// prepareLivePreviewSession resolves the session the preview pane should
// capture at full fidelity, if any.
func (m *Model) prepareLivePreviewSession() *runtime.LivePreviewTarget {
	workspace := m.selectedWorkspace()
	if workspace == nil {
		return nil
	}
	switch m.previewTab {
	case TabGit:
		sessionName := launch.GitSessionNameForWorkspace(*workspace)
		if !m.lazygitSessions.isReady(sessionName) {
			return nil
		}
		return &runtime.LivePreviewTarget{
			SessionName:            sessionName,
			IncludeEscapeSequences: true,
			DaemonSocketPath:       m.remoteSocketPath(),
		}
	case TabShell:
		sessionName := launch.ShellSessionNameForWorkspace(*workspace)
		if !m.shellSessions.isReady(sessionName) {
			return nil
		}
		return &runtime.LivePreviewTarget{
			SessionName:            sessionName,
			IncludeEscapeSequences: true,
			DaemonSocketPath:       m.remoteSocketPath(),
		}
	default:
		if !workspace.HasLiveStatus() {
			return nil
		}
		return &runtime.LivePreviewTarget{
			SessionName:            launch.SessionNameForWorkspace(*workspace),
			IncludeEscapeSequences: true,
			DaemonSocketPath:       m.remoteSocketPath(),
			StatusContext: &runtime.LivePreviewStatusContext{
				WorkspacePath:  workspace.Path,
				IsMain:         workspace.IsMain,
				SupportedAgent: workspace.SupportedAgent,
				Agent:          workspace.Agent,
			},
		}
	}
}

func (m *Model) remoteSocketPath() string {
	if remote, ok := m.cfg.ActiveRemote(); ok {
		return remote.SocketPath
	}
	return ""
}

func (m *Model) interactiveTargetSession() string {
	if m.interactive == nil {
		return ""
	}
	return m.interactive.targetSession
}

// pollPreview dispatches one preview poll cycle: live capture + cursor
// capture. A request while a poll is in flight is coalesced into a single
// rerun flag.
func (m *Model) pollPreview() Cmd {
	if !m.mux.SupportsBackgroundPoll() {
		m.pollPreviewSync()
		return nil
	}
	if m.flags.previewPoll {
		m.poll.previewPollRequested = true
		m.logEvent("preview_poll", "requested_while_in_flight", map[string]any{
			"generation": m.poll.generation,
		})
		return nil
	}

	livePreview := m.prepareLivePreviewSession()
	cursorSession := m.interactiveTargetSession()
	if livePreview == nil && cursorSession == "" {
		m.poll.previewPollRequested = false
		m.clearAgentActivityTracking()
		m.refreshPreviewSummary()
		m.logEvent("preview_poll", "skipped_no_targets", map[string]any{
			"generation": m.poll.generation,
		})
		return nil
	}

	var previousDigest *capture.Digest
	if livePreview != nil {
		previousDigest = m.preview.lastDigestValue()
	}
	m.poll.generation++
	m.flags.previewPoll = true
	m.poll.previewPollRequested = false
	m.poll.previewPollStartedAt = m.now()
	m.logEvent("preview_poll", "cycle_started", map[string]any{
		"generation":              m.poll.generation,
		"live_capture_targeted":   livePreview != nil,
		"cursor_capture_targeted": cursorSession != "",
	})
	return m.schedulePreviewPollTask(m.poll.generation, livePreview, previousDigest, cursorSession)
}

// schedulePreviewPollTask performs the capture sequence off the reducer
// goroutine and returns a single completion message.
func (m *Model) schedulePreviewPollTask(generation uint64, livePreview *runtime.LivePreviewTarget, previousDigest *capture.Digest, cursorSession string) Cmd {
	mux := m.mux
	socketPath := m.remoteSocketPath()
	attentionTargets := m.attentionPollTargets(livePreview)
	return taskCmd(func() tea.Msg {
		completion := PreviewPollCompletion{
			Generation:       generation,
			AttentionMarkers: map[string]string{},
		}

		if livePreview != nil {
			startedAt := time.Now()
			raw, err := captureSession(mux, livePreview.SessionName, livePreviewScrollbackLines,
				livePreview.IncludeEscapeSequences, livePreview.DaemonSocketPath)
			captureMs := durationMillis(time.Since(startedAt))
			liveCapture := &LivePreviewCapture{
				Session:                livePreview.SessionName,
				IncludeEscapeSequences: livePreview.IncludeEscapeSequences,
				CaptureMs:              captureMs,
			}
			if err != nil {
				liveCapture.Err = err.Error()
			} else {
				change := capture.EvaluateChange(previousDigest, nil, raw)
				output := &LivePreviewCaptureOutput{RawOutput: raw, Change: change}
				if ctx := livePreview.StatusContext; ctx != nil {
					output.ResolvedStatus = &ResolvedLivePreviewStatus{
						Status: runtime.DetectStatus(change.Cleaned, runtime.SessionActivityActive,
							ctx.IsMain, true, ctx.SupportedAgent, ctx.Agent, ctx.WorkspacePath),
						WorkspacePath:  ctx.WorkspacePath,
						IsMain:         ctx.IsMain,
						SupportedAgent: ctx.SupportedAgent,
						Agent:          ctx.Agent,
					}
				}
				liveCapture.Output = output
			}
			completion.LiveCapture = liveCapture
		}

		if cursorSession != "" {
			startedAt := time.Now()
			metadata, err := captureCursor(mux, cursorSession, socketPath)
			cursorCapture := &CursorCapture{
				Session:   cursorSession,
				CaptureMs: durationMillis(time.Since(startedAt)),
				Metadata:  metadata,
			}
			if err != nil {
				cursorCapture.Err = err.Error()
			}
			completion.CursorCapture = cursorCapture
		}

		for _, target := range attentionTargets {
			if marker := runtime.LatestAssistantAttentionMarker(target.agent, target.workspacePath); marker != "" {
				if _, exists := completion.AttentionMarkers[target.workspacePath]; !exists {
					completion.AttentionMarkers[target.workspacePath] = marker
				}
			}
		}

		return PreviewPollCompletedMsg{Completion: completion}
	})
}

type attentionPollTarget struct {
	workspacePath string
	agent         domain.AgentType
}

func (m *Model) attentionPollTargets(livePreview *runtime.LivePreviewTarget) []attentionPollTarget {
	var targets []attentionPollTarget
	if livePreview != nil && livePreview.StatusContext != nil && livePreview.StatusContext.SupportedAgent {
		targets = append(targets, attentionPollTarget{
			workspacePath: livePreview.StatusContext.WorkspacePath,
			agent:         livePreview.StatusContext.Agent,
		})
	}
	return targets
}

// pollWorkspaceStatuses dispatches one round-robin status cycle over the
// non-preview workspaces, capped per cycle.
func (m *Model) pollWorkspaceStatuses() Cmd {
	if !m.mux.SupportsBackgroundPoll() {
		return nil
	}
	if m.flags.workspaceStatusPoll {
		m.poll.statusPollRequested = true
		m.logEvent("workspace_status_poll", "requested_while_in_flight", map[string]any{
			"pending_depth": m.pendingInputDepth(),
		})
		return nil
	}

	livePreviewSession := ""
	if livePreview := m.prepareLivePreviewSession(); livePreview != nil {
		livePreviewSession = livePreview.SessionName
	}
	allTargets := runtime.WorkspaceStatusTargets(m.workspaces, livePreviewSession)
	for i := range allTargets {
		allTargets[i].DaemonSocketPath = m.remoteSocketPath()
	}
	if len(allTargets) == 0 {
		m.poll.statusPollRequested = false
		m.poll.statusPollCursor = 0
		m.logEvent("workspace_status_poll", "skipped_no_targets", nil)
		return nil
	}

	cycleTargets := m.cappedStatusPollTargets(allTargets)
	m.flags.workspaceStatusPoll = true
	m.poll.statusPollRequested = false
	m.poll.statusPollStartedAt = m.now()
	m.logEvent("workspace_status_poll", "cycle_started", map[string]any{
		"cycle_targets": len(cycleTargets),
		"total_targets": len(allTargets),
		"cursor":        m.poll.statusPollCursor,
	})

	mux := m.mux
	return taskCmd(func() tea.Msg {
		completion := WorkspaceStatusPollCompletion{AttentionMarkers: map[string]string{}}
		for _, target := range cycleTargets {
			startedAt := time.Now()
			raw, err := captureSession(mux, target.SessionName, workspaceStatusScrollbackLines,
				false, target.DaemonSocketPath)
			statusCapture := WorkspaceStatusCapture{
				WorkspaceName:  target.WorkspaceName,
				WorkspacePath:  target.WorkspacePath,
				SessionName:    target.SessionName,
				SupportedAgent: target.SupportedAgent,
				CaptureMs:      durationMillis(time.Since(startedAt)),
			}
			if err != nil {
				statusCapture.Err = err.Error()
			} else {
				change := capture.EvaluateChange(nil, nil, raw)
				statusCapture.Output = &WorkspaceStatusCaptureOutput{
					CleanedOutput: change.Cleaned,
					Digest:        change.Digest,
					ResolvedStatus: runtime.DetectStatus(change.Cleaned, runtime.SessionActivityActive,
						target.IsMain, true, target.SupportedAgent, target.Agent, target.WorkspacePath),
				}
			}
			completion.WorkspaceStatusCaptures = append(completion.WorkspaceStatusCaptures, statusCapture)

			if target.SupportedAgent {
				if marker := runtime.LatestAssistantAttentionMarker(target.Agent, target.WorkspacePath); marker != "" {
					completion.AttentionMarkers[target.WorkspacePath] = marker
				}
			}
		}
		return WorkspaceStatusPollCompletedMsg{Completion: completion}
	})
}

// cappedStatusPollTargets selects this cycle's slice of the target list,
// cursoring round-robin so every workspace eventually refreshes.
func (m *Model) cappedStatusPollTargets(targets []runtime.WorkspaceStatusTarget) []runtime.WorkspaceStatusTarget {
	if len(targets) == 0 {
		m.poll.statusPollCursor = 0
		return nil
	}
	total := len(targets)
	start := m.poll.statusPollCursor % total
	count := statusPollMaxTargetsPerCycle
	if count > total {
		count = total
	}
	selected := make([]runtime.WorkspaceStatusTarget, 0, count)
	for offset := range count {
		selected = append(selected, targets[(start+offset)%total])
	}
	m.poll.statusPollCursor = (start + count) % total
	return selected
}

func captureSession(mux tmux.Multiplexer, session string, scrollback int, includeEscapes bool, socketPath string) (string, error) {
	if socketPath != "" {
		return daemon.SessionCaptureViaSocket(socketPath, session, scrollback, includeEscapes)
	}
	return mux.CaptureOutput(session, scrollback, includeEscapes)
}

func captureCursor(mux tmux.Multiplexer, session, socketPath string) (string, error) {
	if socketPath != "" {
		return daemon.SessionCursorMetadataViaSocket(socketPath, session)
	}
	return mux.CaptureCursorMetadata(session)
}

// pollPreviewSync is the delegating fallback when the adapter cannot poll in
// the background; the frame pauses for the duration.
func (m *Model) pollPreviewSync() {
	livePreview := m.prepareLivePreviewSession()
	if livePreview == nil {
		m.clearAgentActivityTracking()
		m.refreshPreviewSummary()
		return
	}
	raw, err := m.mux.CaptureOutput(livePreview.SessionName, livePreviewScrollbackLines, livePreview.IncludeEscapeSequences)
	liveCapture := &LivePreviewCapture{
		Session:                livePreview.SessionName,
		IncludeEscapeSequences: livePreview.IncludeEscapeSequences,
	}
	if err != nil {
		liveCapture.Err = err.Error()
	} else {
		change := capture.EvaluateChange(m.preview.lastDigestValue(), nil, raw)
		liveCapture.Output = &LivePreviewCaptureOutput{RawOutput: raw, Change: change}
		if ctx := livePreview.StatusContext; ctx != nil {
			liveCapture.Output.ResolvedStatus = &ResolvedLivePreviewStatus{
				Status: runtime.DetectStatus(change.Cleaned, runtime.SessionActivityActive,
					ctx.IsMain, true, ctx.SupportedAgent, ctx.Agent, ctx.WorkspacePath),
				WorkspacePath:  ctx.WorkspacePath,
				IsMain:         ctx.IsMain,
				SupportedAgent: ctx.SupportedAgent,
				Agent:          ctx.Agent,
			}
		}
	}
	m.applyLivePreviewCapture(*liveCapture)
}

// handlePreviewPollCompleted applies a poll completion, dropping stale
// generations unchanged. Returns the rerun command when a poll request was
// coalesced while this one was in flight.
func (m *Model) handlePreviewPollCompleted(completion PreviewPollCompletion) Cmd {
	if completion.Generation < m.poll.generation {
		m.logEvent("preview_poll", "stale_result_dropped", map[string]any{
			"generation":        completion.Generation,
			"latest_generation": m.poll.generation,
		})
		return nil
	}
	m.flags.previewPoll = false
	if completion.Generation > m.poll.generation {
		m.poll.generation = completion.Generation
	}

	var attentionPolledPaths []string
	if live := completion.LiveCapture; live != nil && live.Output != nil &&
		live.Output.ResolvedStatus != nil && live.Output.ResolvedStatus.SupportedAgent {
		attentionPolledPaths = append(attentionPolledPaths, live.Output.ResolvedStatus.WorkspacePath)
	}

	if live := completion.LiveCapture; live != nil {
		selectedSession := ""
		if target := m.prepareLivePreviewSession(); target != nil {
			selectedSession = target.SessionName
		}
		if selectedSession == live.Session {
			m.applyLivePreviewCapture(*live)
		} else {
			m.logEvent("preview_poll", "session_mismatch_dropped", map[string]any{
				"captured_session": live.Session,
				"selected_session": selectedSession,
			})
			m.clearAgentActivityTracking()
			m.refreshPreviewSummary()
		}
	} else {
		m.clearAgentActivityTracking()
		m.refreshPreviewSummary()
	}

	m.reconcileAttentionWithMarkerUpdates(attentionPolledPaths, completion.AttentionMarkers)

	if cursor := completion.CursorCapture; cursor != nil {
		m.applyCursorCapture(*cursor)
	}

	var rerun Cmd
	if m.poll.previewPollRequested {
		m.poll.previewPollRequested = false
		rerun = m.pollPreview()
	}

	cycleMs := uint64(0)
	if !m.poll.previewPollStartedAt.IsZero() {
		cycleMs = durationMillis(m.now().Sub(m.poll.previewPollStartedAt))
		m.poll.previewPollStartedAt = time.Time{}
	}
	m.logEvent("preview_poll", "cycle_completed", map[string]any{
		"generation":  completion.Generation,
		"duration_ms": cycleMs,
	})
	return rerun
}

func (m *Model) handleWorkspaceStatusPollCompleted(completion WorkspaceStatusPollCompletion) Cmd {
	m.flags.workspaceStatusPoll = false

	var attentionPolledPaths []string
	for _, statusCapture := range completion.WorkspaceStatusCaptures {
		if statusCapture.SupportedAgent {
			attentionPolledPaths = append(attentionPolledPaths, statusCapture.WorkspacePath)
		}
		m.applyWorkspaceStatusCapture(statusCapture)
	}
	m.reconcileAttentionWithMarkerUpdates(attentionPolledPaths, completion.AttentionMarkers)

	var rerun Cmd
	if m.poll.statusPollRequested {
		m.poll.statusPollRequested = false
		rerun = m.pollWorkspaceStatuses()
	}
	cycleMs := uint64(0)
	if !m.poll.statusPollStartedAt.IsZero() {
		cycleMs = durationMillis(m.now().Sub(m.poll.statusPollStartedAt))
		m.poll.statusPollStartedAt = time.Time{}
	}
	m.logEvent("workspace_status_poll", "cycle_completed", map[string]any{
		"duration_ms":   cycleMs,
		"capture_count": len(completion.WorkspaceStatusCaptures),
	})
	return rerun
}

// applyLivePreviewCapture folds a live capture into the preview buffer,
// drains proven pending inputs, and re-detects the selected workspace status.
func (m *Model) applyLivePreviewCapture(liveCapture LivePreviewCapture) {
	if liveCapture.Err != "" {
		m.applyLivePreviewCaptureError(liveCapture.Session, liveCapture.Err)
		return
	}
	output := liveCapture.Output
	update := m.preview.applyCapture(output.RawOutput)

	var consumed []PendingInteractiveInput
	if update.changedCleaned {
		consumed = m.drainPendingInputsForSession(liveCapture.Session)
	}
	m.poll.outputChanging = update.changedCleaned
	m.poll.agentOutputChanging = update.changedCleaned && len(consumed) == 0
	m.pushAgentActivityFrame(m.poll.agentOutputChanging)

	if resolved := output.ResolvedStatus; resolved != nil {
		if index := m.workspaceIndexByPath(resolved.WorkspacePath); index >= 0 {
			previous := m.workspaces[index].Status
			previousOrphaned := m.workspaces[index].IsOrphaned
			m.workspaces[index].Status = resolved.Status
			m.workspaces[index].IsOrphaned = false
			m.trackStatusTransition(resolved.WorkspacePath, previous, resolved.Status, previousOrphaned, false)
		}
	}
	m.lastTmuxError = ""

	m.logEvent("preview_poll", "capture_completed", map[string]any{
		"session":     liveCapture.Session,
		"capture_ms":  liveCapture.CaptureMs,
		"changed":     update.changedCleaned,
		"changed_raw": update.changedRaw,
	})
	if update.changedCleaned {
		m.emitOutputChanged(liveCapture.Session, consumed)
	}
}

func (m *Model) emitOutputChanged(session string, consumed []PendingInteractiveInput) {
	fields := map[string]any{
		"line_count": len(m.preview.lines),
		"session":    session,
	}
	if len(consumed) > 0 {
		now := m.now()
		first := consumed[0]
		last := consumed[len(consumed)-1]
		oldestInputMs := durationMillis(now.Sub(first.ReceivedAt))
		oldestForwardMs := durationMillis(now.Sub(first.ForwardedAt))
		fields["consumed_input_count"] = len(consumed)
		fields["consumed_input_seq_first"] = first.Seq
		fields["consumed_input_seq_last"] = last.Seq
		fields["input_to_preview_ms"] = oldestInputMs

		m.logInputEvent("interactive_input_to_preview", first.Seq, map[string]any{
			"session":                    session,
			"input_to_preview_ms":        oldestInputMs,
			"tmux_to_preview_ms":         oldestForwardMs,
			"newest_input_to_preview_ms": durationMillis(now.Sub(last.ReceivedAt)),
			"newest_tmux_to_preview_ms":  durationMillis(now.Sub(last.ForwardedAt)),
			"consumed_input_count":       len(consumed),
			"queue_depth":                m.pendingInputDepth(),
		})
		if len(consumed) > 1 {
			m.logInputEvent("interactive_inputs_coalesced", first.Seq, map[string]any{
				"session":                 session,
				"consumed_input_count":    len(consumed),
				"consumed_input_seq_last": last.Seq,
			})
		}
	}
	m.logEvent("preview_update", "output_changed", fields)
}

// applyLivePreviewCaptureError clears session bookkeeping when the session
// vanished; other errors surface as toasts.
func (m *Model) applyLivePreviewCaptureError(session, message string) {
	m.clearAgentActivityTracking()
	missing := tmux.ErrorIndicatesMissingSession(message)
	if missing {
		m.lazygitSessions.removeReady(session)
		m.shellSessions.removeReady(session)
		if workspace := m.selectedWorkspace(); workspace != nil &&
			launch.SessionNameForWorkspace(*workspace) == session {
			index := m.selectedIndex
			previous := m.workspaces[index].Status
			previousOrphaned := m.workspaces[index].IsOrphaned
			next := domain.StatusIdle
			if m.workspaces[index].IsMain {
				next = domain.StatusMain
			}
			nextOrphaned := !m.workspaces[index].IsMain
			m.workspaces[index].Status = next
			m.workspaces[index].IsOrphaned = nextOrphaned
			m.trackStatusTransition(m.workspaces[index].Path, previous, next, previousOrphaned, nextOrphaned)
			m.clearStatusTrackingForWorkspacePath(m.workspaces[index].Path)
		}
		if m.interactive != nil && m.interactive.targetSession == session {
			m.interactive = nil
		}
		m.lastTmuxError = ""
	} else {
		m.lastTmuxError = message
		m.showToast("preview capture failed", ToastError)
	}
	m.logEvent("preview_poll", "capture_failed", map[string]any{
		"session": session,
		"error":   message,
		"missing": missing,
	})
	m.refreshPreviewSummary()
}

// applyWorkspaceStatusCapture folds one low-fidelity capture into the
// workspace list.
func (m *Model) applyWorkspaceStatusCapture(statusCapture WorkspaceStatusCapture) {
	index := m.workspaceIndexByPath(statusCapture.WorkspacePath)
	if index < 0 {
		return
	}
	workspace := &m.workspaces[index]
	previous := workspace.Status
	previousOrphaned := workspace.IsOrphaned

	if statusCapture.Err != "" {
		if tmux.ErrorIndicatesMissingSession(statusCapture.Err) {
			m.lazygitSessions.removeReady(statusCapture.SessionName)
			m.shellSessions.removeReady(statusCapture.SessionName)
			next := domain.StatusIdle
			if workspace.IsMain {
				next = domain.StatusMain
			}
			workspace.Status = next
			workspace.IsOrphaned = !workspace.IsMain
			m.trackStatusTransition(workspace.Path, previous, next, previousOrphaned, workspace.IsOrphaned)
			m.clearStatusTrackingForWorkspacePath(workspace.Path)
		}
		return
	}

	output := statusCapture.Output
	previousDigest, hadDigest := m.poll.workspaceStatusDigests[statusCapture.WorkspacePath]
	changed := !hadDigest || previousDigest != output.Digest
	m.poll.workspaceStatusDigests[statusCapture.WorkspacePath] = output.Digest
	m.poll.workspaceOutputChanging[statusCapture.WorkspacePath] = changed

	workspace.Status = output.ResolvedStatus
	workspace.IsOrphaned = false
	m.trackStatusTransition(workspace.Path, previous, output.ResolvedStatus, previousOrphaned, false)
}

func (m *Model) applyCursorCapture(cursorCapture CursorCapture) {
	if m.interactive == nil || m.interactive.targetSession != cursorCapture.Session {
		return
	}
	if cursorCapture.Err != "" {
		m.interactive.cursor = nil
		return
	}
	metadata, err := capture.ParseCursorMetadata(cursorCapture.Metadata)
	if err != nil {
		m.interactive.cursor = nil
		return
	}
	// Codex draws its own cursor; overlaying ours doubles it.
	if m.interactive.agent == domain.AgentCodex {
		m.interactive.cursor = nil
		return
	}
	m.interactive.cursor = &cursorOverlay{
		paneWidth:     metadata.PaneWidth,
		paneHeight:    metadata.PaneHeight,
		cursorX:       metadata.CursorX,
		cursorY:       metadata.CursorY,
		cursorVisible: metadata.CursorVisible,
	}
}

func (m *Model) trackStatusTransition(workspacePath string, previous, next domain.WorkspaceStatus, previousOrphaned, nextOrphaned bool) {
	if previous == next && previousOrphaned == nextOrphaned {
		return
	}
	m.logEvent("workspace_status", "transition", map[string]any{
		"workspace_path":    workspacePath,
		"previous_status":   previous.String(),
		"next_status":       next.String(),
		"previous_orphaned": previousOrphaned,
		"next_orphaned":     nextOrphaned,
	})
}

// refreshPreviewSummary swaps the preview to a static description when no
// live session is captured.
func (m *Model) refreshPreviewSummary() {
	workspace := m.selectedWorkspace()
	if workspace == nil {
		m.preview.setSummary("no workspace selected")
		return
	}
	switch {
	case workspace.IsOrphaned:
		m.preview.setSummary(fmt.Sprintf("%s: session gone (orphaned); press s to relaunch", workspace.Name))
	case workspace.HasLiveStatus():
		// Live content arrives with the next poll.
	default:
		m.preview.setSummary(fmt.Sprintf("%s (%s): no agent session; press s to start %s",
			workspace.Name, util.CollapseHome(workspace.Path), workspace.Agent))
	}
}

func (m *Model) scrollPreview(delta int) {
	viewportHeight := m.previewViewportHeight()
	oldOffset := m.preview.offset
	oldAuto := m.preview.autoScroll
	if m.preview.scroll(delta, m.now(), viewportHeight) {
		m.logEvent("preview_update", "scrolled", map[string]any{
			"delta":  delta,
			"offset": m.preview.offset,
		})
	}
	if oldAuto != m.preview.autoScroll {
		m.logEvent("preview_update", "autoscroll_toggled", map[string]any{
			"enabled":         m.preview.autoScroll,
			"offset":          m.preview.offset,
			"previous_offset": oldOffset,
		})
	}
}

func (m *Model) jumpPreviewToBottom() {
	m.preview.jumpToBottom()
}
