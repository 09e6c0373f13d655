package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvessia/grove/internal/daemon"
	"github.com/mvessia/grove/internal/input"
	"github.com/mvessia/grove/internal/launch"
)

// canEnterInteractive gates interactive mode: a live session on the selected
// workspace and a preview tab that forwards keys.
func (m *Model) canEnterInteractive() bool {
	if m.dialog != nil || m.palette.visible {
		return false
	}
	if m.previewTab != TabAgent && m.previewTab != TabGit {
		return false
	}
	workspace := m.selectedWorkspace()
	if workspace == nil {
		return false
	}
	if m.previewTab == TabGit {
		return m.lazygitSessions.isReady(launch.GitSessionNameForWorkspace(*workspace))
	}
	return workspace.HasLiveStatus()
}

// enterInteractive records the target session and viewport geometry.
func (m *Model) enterInteractive() {
	workspace := m.selectedWorkspace()
	if workspace == nil {
		return
	}
	targetSession := launch.SessionNameForWorkspace(*workspace)
	if m.previewTab == TabGit {
		targetSession = launch.GitSessionNameForWorkspace(*workspace)
	}
	cols, rows := m.previewViewportSize()
	m.interactive = &interactiveState{
		targetSession: targetSession,
		lastKeyTime:   m.now(),
		viewportCols:  cols,
		viewportRows:  rows,
		agent:         workspace.Agent,
	}
	m.clearAttentionForSelectedWorkspace()
	m.logEvent("interactive", "entered", map[string]any{
		"session": targetSession,
		"tab":     m.previewTab.String(),
	})
}

// exitInteractive restores normal key handling and reschedules a poll.
func (m *Model) exitInteractive() {
	if m.interactive == nil {
		return
	}
	session := m.interactive.targetSession
	m.interactive = nil
	m.focus = FocusPreview
	m.sched.interactivePollDueAt = m.now()
	m.logEvent("interactive", "exited", map[string]any{"session": session})
}

// handleInteractiveKey translates and forwards one key press.
func (m *Model) handleInteractiveKey(msg tea.KeyMsg) Cmd {
	state := m.interactive
	now := m.now()
	state.lastKeyTime = now
	action := state.translator.Translate(msg, now)

	switch action.Kind {
	case input.ActionExitInteractive:
		m.exitInteractive()
		return batchCmds(tea.EnableMouseCellMotion, m.scheduleNextTick())
	case input.ActionCopySelection:
		m.copyScrollbackSelection()
		return m.scheduleNextTick()
	case input.ActionPasteClipboard:
		return batchCmds(m.pasteFromClipboard(), m.scheduleNextTick())
	case input.ActionNoop:
		return m.scheduleNextTick()
	}

	m.sched.interactivePollDueAt = now.Add(pollIntervalTypingMs * time.Millisecond)
	return batchCmds(m.sendInteractiveAction(action, state.targetSession, true), m.scheduleNextTick())
}

// sendInteractiveAction queues the multiplexer command for an action. Traced
// sends get a sequence number drained against later capture diffs.
func (m *Model) sendInteractiveAction(action input.InteractiveAction, targetSession string, traced bool) Cmd {
	sendCommand := input.SendInputCommand(targetSession, action)
	if sendCommand == nil {
		m.logInputEvent("interactive_action_unmapped", m.inputSeq, map[string]any{
			"action":  action.KindName(),
			"session": targetSession,
		})
		return nil
	}

	send := QueuedInteractiveSend{
		Command:       sendCommand,
		TargetSession: targetSession,
		ActionKind:    action.KindName(),
		ReceivedAt:    m.now(),
	}
	if traced {
		m.inputSeq++
		send.Seq = m.inputSeq
	}
	if action.Kind == input.ActionSendLiteral {
		send.LiteralChars = len([]rune(action.Literal))
	}

	if !m.mux.SupportsBackgroundSend() {
		return m.sendInteractiveSyncCmd(send)
	}
	m.pendingSends = append(m.pendingSends, send)
	return m.dispatchNextInteractiveSend()
}

// dispatchNextInteractiveSend keeps at most one send in flight, strictly
// FIFO.
func (m *Model) dispatchNextInteractiveSend() Cmd {
	if m.flags.interactiveSend || len(m.pendingSends) == 0 {
		return nil
	}
	send := m.pendingSends[0]
	m.pendingSends = m.pendingSends[1:]
	m.flags.interactiveSend = true

	mux := m.mux
	socketPath := m.remoteSocketPath()
	return taskCmd(func() tea.Msg {
		startedAt := time.Now()
		var err error
		if socketPath != "" {
			err = daemon.SessionSendKeysViaSocket(socketPath, send.Command)
		} else {
			err = mux.Execute(send.Command)
		}
		completion := InteractiveSendCompletion{
			Send:       send,
			TmuxSendMs: durationMillis(time.Since(startedAt)),
		}
		if err != nil {
			completion.Err = err.Error()
		}
		return InteractiveSendCompletedMsg{Completion: completion}
	})
}

// sendInteractiveSyncCmd is the delegating-path send used when the adapter
// cannot send in the background.
func (m *Model) sendInteractiveSyncCmd(send QueuedInteractiveSend) Cmd {
	startedAt := m.now()
	err := m.mux.Execute(send.Command)
	completion := InteractiveSendCompletion{
		Send:       send,
		TmuxSendMs: durationMillis(m.now().Sub(startedAt)),
	}
	if err != nil {
		completion.Err = err.Error()
	}
	return m.handleInteractiveSendCompleted(completion)
}

// handleInteractiveSendCompleted records tracing and dispatches the next
// queued send.
func (m *Model) handleInteractiveSendCompleted(completion InteractiveSendCompletion) Cmd {
	m.flags.interactiveSend = false
	send := completion.Send

	if completion.Err != "" {
		m.lastTmuxError = completion.Err
		if send.Seq != 0 {
			m.logInputEvent("interactive_forward_failed", send.Seq, map[string]any{
				"session": send.TargetSession,
				"action":  send.ActionKind,
				"error":   completion.Err,
			})
		}
		return m.dispatchNextInteractiveSend()
	}

	m.lastTmuxError = ""
	if send.Seq != 0 {
		forwardedAt := m.now()
		m.pendingInputs = append(m.pendingInputs, PendingInteractiveInput{
			Seq:           send.Seq,
			ReceivedAt:    send.ReceivedAt,
			ForwardedAt:   forwardedAt,
			TargetSession: send.TargetSession,
		})
		fields := map[string]any{
			"session":      send.TargetSession,
			"action":       send.ActionKind,
			"tmux_send_ms": completion.TmuxSendMs,
			"queue_depth":  m.pendingInputDepth(),
		}
		if send.LiteralChars > 0 {
			fields["literal_chars"] = send.LiteralChars
		}
		m.logInputEvent("interactive_forwarded", send.Seq, fields)
	}
	return m.dispatchNextInteractiveSend()
}

// drainPendingInputsForSession consumes the pending inputs proven on screen
// by a changed capture, preserving ascending sequence order.
func (m *Model) drainPendingInputsForSession(session string) []PendingInteractiveInput {
	var drained []PendingInteractiveInput
	kept := m.pendingInputs[:0]
	for _, pending := range m.pendingInputs {
		if pending.TargetSession == session {
			drained = append(drained, pending)
		} else {
			kept = append(kept, pending)
		}
	}
	m.pendingInputs = kept
	return drained
}

// handlePaste forwards a paste event as a single literal send, honoring
// bracketed paste when the event or session advertised it.
func (m *Model) handlePaste(paste PasteMsg) Cmd {
	if m.interactive == nil {
		if m.dialog != nil {
			return batchCmds(m.dialog.HandlePaste(m, paste.Text), m.scheduleNextTick())
		}
		return m.scheduleNextTick()
	}
	state := m.interactive
	if paste.Bracketed {
		state.bracketedPaste = true
	}
	literal := input.PasteLiteral(paste.Text, paste.Bracketed || state.bracketedPaste)
	action := input.InteractiveAction{Kind: input.ActionSendLiteral, Literal: literal}
	state.lastKeyTime = m.now()
	return batchCmds(m.sendInteractiveAction(action, state.targetSession, true), m.scheduleNextTick())
}

// pasteFromClipboard forwards the cached clipboard buffer (Alt-V).
func (m *Model) pasteFromClipboard() Cmd {
	state := m.interactive
	if state == nil {
		return nil
	}
	text, err := m.clip.ReadAll()
	if err != nil || text == "" {
		m.showToast("clipboard empty", ToastInfo)
		return nil
	}
	literal := input.PasteLiteral(text, state.bracketedPaste)
	return m.sendInteractiveAction(input.InteractiveAction{
		Kind:    input.ActionSendLiteral,
		Literal: literal,
	}, state.targetSession, true)
}

// copyScrollbackSelection copies the whole cleaned capture, not just the
// visible viewport (Alt-C).
func (m *Model) copyScrollbackSelection() {
	if len(m.preview.cleanedLines) == 0 {
		m.showToast("nothing to copy", ToastInfo)
		return
	}
	text := ""
	for i, line := range m.preview.cleanedLines {
		if i > 0 {
			text += "\n"
		}
		text += line
	}
	if err := m.clip.WriteAll(text); err != nil {
		m.showToast("copy failed: "+err.Error(), ToastError)
		return
	}
	m.showToast("copied capture to clipboard", ToastSuccess)
}
