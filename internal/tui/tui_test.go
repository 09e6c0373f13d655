package tui

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/config"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/eventlog"
	"github.com/mvessia/grove/internal/runtime"
)

// memoryLogger captures events for assertions.
type memoryLogger struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (l *memoryLogger) Log(event eventlog.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *memoryLogger) find(event, kind string) []eventlog.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var found []eventlog.Event
	for _, entry := range l.events {
		if entry.Event == event && entry.Kind == kind {
			found = append(found, entry)
		}
	}
	return found
}

// testMux is a controllable Multiplexer.
type testMux struct {
	mu             sync.Mutex
	executed       [][]string
	captureOutput  string
	captureErr     error
	backgroundPoll bool
}

func newTestMux() *testMux {
	return &testMux{backgroundPoll: true}
}

func (m *testMux) Execute(command []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, command)
	return nil
}

func (m *testMux) CaptureOutput(string, int, bool) (string, error) {
	if m.captureErr != nil {
		return "", m.captureErr
	}
	return m.captureOutput, nil
}
func (m *testMux) CaptureCursorMetadata(string) (string, error) { return "80 24 0 0 1", nil }
func (m *testMux) ResizeSession(string, int, int) error         { return nil }
func (m *testMux) PasteBuffer(string, string) error             { return nil }
func (m *testMux) SupportsBackgroundSend() bool                 { return true }
func (m *testMux) SupportsBackgroundPoll() bool                 { return m.backgroundPoll }
func (m *testMux) SupportsBackgroundLaunch() bool               { return true }

// fakeClock is a deterministic time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type stubClipboard struct {
	content string
}

func (c *stubClipboard) ReadAll() (string, error) { return c.content, nil }
func (c *stubClipboard) WriteAll(s string) error  { c.content = s; return nil }

func testModelWith(t *testing.T, mux *testMux, logger eventlog.Logger) (*Model, *fakeClock) {
	t.Helper()
	if logger == nil {
		logger = eventlog.NullLogger{}
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	model := NewModel(Options{
		RepoRoot:  "/code/myrepo",
		Config:    config.Default(),
		Mux:       mux,
		Service:   command.NewLifecycleService(mux),
		Logger:    logger,
		Clipboard: &stubClipboard{},
		Now:       clock.Now,
	})
	model.width = 120
	model.height = 40
	return model, clock
}

func addWorkspace(t *testing.T, m *Model, name string, status domain.WorkspaceStatus, isMain bool) domain.Workspace {
	t.Helper()
	ws, err := domain.NewWorkspace(name, "/code/ws/"+name, name, domain.AgentClaude, status, isMain)
	require.NoError(t, err)
	m.workspaces = append(m.workspaces, ws)
	return ws
}

func TestPollIntervalTiers(t *testing.T) {
	assert.Equal(t, 150*time.Millisecond,
		pollInterval(domain.StatusActive, true, true, true, time.Second, false))
	assert.Equal(t, 250*time.Millisecond,
		pollInterval(domain.StatusActive, true, true, true, 10*time.Second, false))
	assert.Equal(t, 250*time.Millisecond,
		pollInterval(domain.StatusIdle, true, false, false, time.Minute, true))
	assert.Equal(t, 500*time.Millisecond,
		pollInterval(domain.StatusThinking, true, false, false, time.Minute, false))
	assert.Equal(t, 800*time.Millisecond,
		pollInterval(domain.StatusIdle, true, true, false, time.Minute, false))
	assert.Equal(t, 1200*time.Millisecond,
		pollInterval(domain.StatusWaiting, true, false, false, time.Minute, false))
	assert.Equal(t, 2000*time.Millisecond,
		pollInterval(domain.StatusIdle, true, false, false, time.Minute, false))
}

func TestGenerationGatingDropsStaleCompletion(t *testing.T) {
	logger := &memoryLogger{}
	model, _ := testModelWith(t, newTestMux(), logger)
	addWorkspace(t, model, "a", domain.StatusActive, false)

	model.poll.generation = 5
	model.flags.previewPoll = true
	before := model.stateSnapshot(0)

	model.update(PreviewPollCompletedMsg{Completion: PreviewPollCompletion{
		Generation: 4,
		LiveCapture: &LivePreviewCapture{
			Session: "grove-ws-a",
			Output:  &LivePreviewCaptureOutput{RawOutput: "new content"},
		},
	}})

	after := model.stateSnapshot(0)
	assert.Equal(t, before, after, "stale completion must not change observable state")
	assert.True(t, model.flags.previewPoll, "stale completion must not clear the in-flight flag")
	assert.NotEmpty(t, logger.find("preview_poll", "stale_result_dropped"))
}

func TestPreviewPollCoalescedWhileInFlight(t *testing.T) {
	logger := &memoryLogger{}
	model, _ := testModelWith(t, newTestMux(), logger)
	addWorkspace(t, model, "a", domain.StatusActive, false)

	cmd := model.pollPreview()
	require.NotNil(t, cmd)
	assert.True(t, model.flags.previewPoll)
	generation := model.poll.generation

	// A second request while in flight coalesces instead of dispatching.
	assert.Nil(t, model.pollPreview())
	assert.True(t, model.poll.previewPollRequested)
	assert.Equal(t, generation, model.poll.generation)
	assert.NotEmpty(t, logger.find("preview_poll", "requested_while_in_flight"))
}

func TestInteractiveSendFIFO(t *testing.T) {
	logger := &memoryLogger{}
	model, _ := testModelWith(t, newTestMux(), logger)
	ws := addWorkspace(t, model, "a", domain.StatusActive, false)
	model.selectedIndex = 0
	model.focus = FocusPreview
	model.enterInteractive()
	require.NotNil(t, model.interactive)

	session := model.interactive.targetSession
	_ = ws

	// Three literal chars in quick succession: only one send in flight.
	cmd1 := model.handleInteractiveKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.NotNil(t, cmd1)
	assert.True(t, model.flags.interactiveSend)
	model.handleInteractiveKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	model.handleInteractiveKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Len(t, model.pendingSends, 2, "only the first send is dispatched")

	// Completions dispatch the next queued send, in order.
	next := model.handleInteractiveSendCompleted(InteractiveSendCompletion{
		Send: QueuedInteractiveSend{Seq: 1, TargetSession: session, ActionKind: "send_literal", ReceivedAt: model.now()},
	})
	require.NotNil(t, next)
	assert.Len(t, model.pendingSends, 1)
	next = model.handleInteractiveSendCompleted(InteractiveSendCompletion{
		Send: QueuedInteractiveSend{Seq: 2, TargetSession: session, ActionKind: "send_literal", ReceivedAt: model.now()},
	})
	require.NotNil(t, next)
	next = model.handleInteractiveSendCompleted(InteractiveSendCompletion{
		Send: QueuedInteractiveSend{Seq: 3, TargetSession: session, ActionKind: "send_literal", ReceivedAt: model.now()},
	})
	assert.Nil(t, next)
	assert.Empty(t, model.pendingSends)

	// All three forwarded inputs are pending until the capture proves them.
	require.Len(t, model.pendingInputs, 3)
	assert.Equal(t, uint64(1), model.pendingInputs[0].Seq)
	assert.Equal(t, uint64(3), model.pendingInputs[2].Seq)

	// The changed capture drains them in ascending order and coalesces.
	model.applyLivePreviewCapture(LivePreviewCapture{
		Session: session,
		Output:  &LivePreviewCaptureOutput{RawOutput: "$ abc"},
	})
	assert.Empty(t, model.pendingInputs)
	coalesced := logger.find("input", "interactive_inputs_coalesced")
	require.Len(t, coalesced, 1)
	assert.Equal(t, 3, coalesced[0].Data["consumed_input_count"])
}

func TestInteractiveForwardFailureSurfacesAndContinues(t *testing.T) {
	logger := &memoryLogger{}
	model, _ := testModelWith(t, newTestMux(), logger)
	addWorkspace(t, model, "a", domain.StatusActive, false)
	model.enterInteractive()

	model.pendingSends = append(model.pendingSends, QueuedInteractiveSend{
		Command:       []string{"tmux", "send-keys", "-t", "s", "-l", "b"},
		TargetSession: "s",
		Seq:           2,
	})
	next := model.handleInteractiveSendCompleted(InteractiveSendCompletion{
		Send: QueuedInteractiveSend{Seq: 1, TargetSession: "s", ActionKind: "send_literal"},
		Err:  "send failed",
	})
	require.NotNil(t, next, "the next queued send continues after a failure")
	assert.Equal(t, "send failed", model.lastTmuxError)
	assert.NotEmpty(t, logger.find("input", "interactive_forward_failed"))
}

func TestAttentionAckScenario(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	selected := addWorkspace(t, model, "sel", domain.StatusActive, false)
	other := addWorkspace(t, model, "other", domain.StatusActive, false)
	model.selectedIndex = 0

	// Marker m1 arrives for the selected workspace: auto-acked, no attention.
	model.reconcileAttentionWithMarkerUpdates([]string{selected.Path}, map[string]string{selected.Path: "m1"})
	assert.False(t, model.workspaceNeedsAttention(selected.Path))
	assert.Equal(t, "m1", model.attentionAckMarkers[selected.Path])

	// Marker m1 for the other workspace: needs attention.
	model.reconcileAttentionWithMarkerUpdates([]string{other.Path}, map[string]string{other.Path: "m1"})
	assert.True(t, model.workspaceNeedsAttention(other.Path))

	// Selecting it acknowledges and clears.
	model.setSelection(1)
	assert.False(t, model.workspaceNeedsAttention(other.Path))
	assert.Equal(t, "m1", model.attentionAckMarkers[other.Path])

	// Deselect; same marker stays acknowledged (ack monotonicity).
	model.setSelection(0)
	model.reconcileAttentionWithMarkerUpdates([]string{other.Path}, map[string]string{other.Path: "m1"})
	assert.False(t, model.workspaceNeedsAttention(other.Path))

	// A new marker m2 re-raises attention only while deselected.
	model.reconcileAttentionWithMarkerUpdates([]string{other.Path}, map[string]string{other.Path: "m2"})
	assert.True(t, model.workspaceNeedsAttention(other.Path))
}

func TestAttentionPrunedOnWorkspaceListChange(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	ws := addWorkspace(t, model, "gone", domain.StatusActive, false)
	model.lastAttentionMarkers[ws.Path] = "m1"
	model.workspaceAttention[ws.Path] = struct{}{}
	model.attentionAckMarkers[ws.Path] = "m0"

	model.workspaces = nil
	model.reconcileAttentionTracking()
	assert.Empty(t, model.workspaceAttention)
	assert.Empty(t, model.attentionAckMarkers)
	assert.Empty(t, model.lastAttentionMarkers)
}

func TestMissingSessionCaptureOrphansWorkspace(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	addWorkspace(t, model, "a", domain.StatusActive, false)
	model.selectedIndex = 0

	model.applyLivePreviewCapture(LivePreviewCapture{
		Session: "grove-ws-a",
		Err:     "can't find session: grove-ws-a (missing session)",
	})
	assert.Equal(t, domain.StatusIdle, model.workspaces[0].Status)
	assert.True(t, model.workspaces[0].IsOrphaned)
	assert.Empty(t, model.lastTmuxError)

	// A main workspace transitions to Main instead, never orphaned.
	model.workspaces[0].IsMain = true
	model.workspaces[0].Status = domain.StatusActive
	model.applyLivePreviewCapture(LivePreviewCapture{
		Session: "grove-ws-a",
		Err:     "missing session",
	})
	assert.Equal(t, domain.StatusMain, model.workspaces[0].Status)
	assert.False(t, model.workspaces[0].IsOrphaned)
}

func TestStatusCaptureRoundRobinCap(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		addWorkspace(t, model, name, domain.StatusActive, false)
	}
	var targets []string
	collect := func() {
		cycle := model.cappedStatusPollTargets(runtime.WorkspaceStatusTargets(model.workspaces, ""))
		assert.LessOrEqual(t, len(cycle), statusPollMaxTargetsPerCycle)
		for _, target := range cycle {
			targets = append(targets, target.WorkspaceName)
		}
	}
	collect()
	collect()
	require.Len(t, targets, 6)
	// Round-robin covers every workspace within two capped cycles.
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e", "a"}, targets)
}

func TestDuplicateStartRejectedWithToast(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	ws := addWorkspace(t, model, "a", domain.StatusIdle, false)

	model.flags.start = true
	cmd := model.dispatchStartAgent(ws, "", false)
	assert.Nil(t, cmd)
	require.NotEmpty(t, model.toasts)
	assert.Equal(t, ToastError, model.toasts[len(model.toasts)-1].severity)
}

func TestSchedulerRetainsEarlierDeadline(t *testing.T) {
	logger := &memoryLogger{}
	model, clock := testModelWith(t, newTestMux(), logger)
	addWorkspace(t, model, "a", domain.StatusIdle, false)

	first := model.scheduleNextTick()
	require.NotNil(t, first)
	firstDue := model.sched.nextTickDueAt

	// Rescheduling immediately with no state change keeps the deadline.
	clock.advance(10 * time.Millisecond)
	second := model.scheduleNextTick()
	assert.Nil(t, second)
	assert.Equal(t, firstDue, model.sched.nextTickDueAt)
	assert.NotEmpty(t, logger.find("tick", "retained"))
}

func TestSchedulerPrefersInFlightInterval(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	addWorkspace(t, model, "a", domain.StatusIdle, false)
	model.flags.previewPoll = true

	model.scheduleNextTick()
	interval := model.sched.nextTickDueAt.Sub(model.now())
	assert.LessOrEqual(t, interval, previewPollInFlightTickMs*time.Millisecond)
}

func TestDialogTabCyclesFields(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	addWorkspace(t, model, "a", domain.StatusIdle, false)
	model.openCreateDialog()
	require.NotNil(t, model.dialog)
	dialog := model.dialog.(*formDialog)
	assert.Equal(t, 0, dialog.focus)

	dialog.HandleKey(model, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, dialog.focus)
	dialog.HandleKey(model, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 0, dialog.focus)
	dialog.HandleKey(model, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, len(dialog.fields)-1, dialog.focus)

	// Escape cancels.
	dialog.HandleKey(model, tea.KeyMsg{Type: tea.KeyEscape})
	assert.Nil(t, model.dialog)
}

func TestOnlyOneBlockingDialogAtATime(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	addWorkspace(t, model, "main", domain.StatusMain, true)
	addWorkspace(t, model, "a", domain.StatusIdle, false)
	model.selectedIndex = 1

	model.openCreateDialog()
	require.NotNil(t, model.dialog)
	assert.Equal(t, "create", model.dialog.ID())

	// The palette refuses to open over a dialog.
	model.openPalette()
	assert.False(t, model.palette.visible)
}

func TestPaletteGatesCommandsByState(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	addWorkspace(t, model, "a", domain.StatusIdle, false)
	model.selectedIndex = 0

	ids := paletteCommandIDs(model)
	assert.Contains(t, ids, "start_agent")
	assert.NotContains(t, ids, "stop_agent")

	model.workspaces[0].Status = domain.StatusActive
	ids = paletteCommandIDs(model)
	assert.Contains(t, ids, "stop_agent")
	assert.NotContains(t, ids, "start_agent")
}

func paletteCommandIDs(m *Model) []string {
	var ids []string
	for _, cmd := range m.enabledPaletteCommands() {
		ids = append(ids, cmd.id)
	}
	return ids
}

func TestPreviewDigestChangeDetection(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	first := model.preview.applyCapture("hello\nworld")
	assert.True(t, first.changedCleaned)

	same := model.preview.applyCapture("hello\nworld")
	assert.False(t, same.changedCleaned)

	styled := model.preview.applyCapture("\x1b[1mhello\x1b[0m\nworld")
	assert.False(t, styled.changedCleaned)
	assert.True(t, styled.changedRaw)
}

func TestCursorCaptureAppliedOnlyInInteractiveMode(t *testing.T) {
	model, _ := testModelWith(t, newTestMux(), nil)
	addWorkspace(t, model, "a", domain.StatusActive, false)
	model.applyCursorCapture(CursorCapture{Session: "grove-ws-a", Metadata: "80 24 3 2 1"})
	assert.Nil(t, model.interactive)

	model.enterInteractive()
	model.applyCursorCapture(CursorCapture{Session: model.interactive.targetSession, Metadata: "80 24 3 2 1"})
	require.NotNil(t, model.interactive.cursor)
	assert.Equal(t, 3, model.interactive.cursor.cursorX)

	// Codex draws its own cursor; the overlay stays off.
	model.interactive.agent = domain.AgentCodex
	model.applyCursorCapture(CursorCapture{Session: model.interactive.targetSession, Metadata: "80 24 3 2 1"})
	assert.Nil(t, model.interactive.cursor)
}

