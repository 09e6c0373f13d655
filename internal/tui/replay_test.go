package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/config"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/eventlog"
)

func replayOptions(t *testing.T) Options {
	t.Helper()
	mux := newTestMux()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return Options{
		RepoRoot:  "/code/myrepo",
		Config:    config.Default(),
		Mux:       mux,
		Service:   command.NewLifecycleService(mux),
		Clipboard: &stubClipboard{},
		Now:       clock.Now,
	}
}

func sampleTrace(t *testing.T) ReplayTrace {
	t.Helper()
	ws, err := domain.NewWorkspace("a", "/code/ws/a", "a", domain.AgentClaude, domain.StatusActive, false)
	require.NoError(t, err)
	wsB, err := domain.NewWorkspace("b", "/code/ws/b", "b", domain.AgentCodex, domain.StatusIdle, false)
	require.NoError(t, err)
	return ReplayTrace{
		Bootstrap: ReplayBootstrap{
			RunID:           "test-run",
			RepoRoot:        "/code/myrepo",
			Width:           120,
			Height:          40,
			SidebarWidthPct: 30,
			Workspaces:      []domain.Workspace{ws, wsB},
			SelectedIndex:   0,
		},
		Messages: []ReplayTraceMessage{
			{Seq: 1, Msg: ReplayMsg{Type: replayMsgKey, KeyType: int(tea.KeyDown)}},
			{Seq: 2, Msg: ReplayMsg{Type: replayMsgKey, KeyRunes: "j", KeyType: int(tea.KeyRunes)}},
			{Seq: 3, Msg: ReplayMsg{Type: replayMsgPreviewPoll, PreviewPoll: &PreviewPollCompletion{
				Generation: 1,
				LiveCapture: &LivePreviewCapture{
					Session: "grove-ws-b",
					Output:  &LivePreviewCaptureOutput{RawOutput: "agent output line"},
				},
				AttentionMarkers: map[string]string{},
			}}},
			{Seq: 4, Msg: ReplayMsg{Type: replayMsgTick}},
		},
	}
}

func TestReplayDriveIsDeterministic(t *testing.T) {
	trace := sampleTrace(t)
	first := ReplayDrive(trace, replayOptions(t))
	second := ReplayDrive(trace, replayOptions(t))
	require.Len(t, first, len(trace.Messages))
	assert.Equal(t, first, second, "identical traces must produce identical per-step snapshots")
}

func TestReplayMsgRoundTripsEveryVariant(t *testing.T) {
	messages := []tea.Msg{
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true},
		tea.MouseMsg{X: 3, Y: 4, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress},
		PasteMsg{Text: "hello", Bracketed: true},
		TickMsg{},
		tea.WindowSizeMsg{Width: 80, Height: 24},
		PreviewPollCompletedMsg{Completion: PreviewPollCompletion{Generation: 7}},
		WorkspaceStatusPollCompletedMsg{Completion: WorkspaceStatusPollCompletion{}},
		InteractiveSendCompletedMsg{Completion: InteractiveSendCompletion{TmuxSendMs: 3}},
		StartAgentCompletedMsg{Completion: SessionCompletion{WorkspaceName: "a", Status: domain.StatusActive}},
		StopAgentCompletedMsg{Completion: SessionCompletion{WorkspaceName: "a", Status: domain.StatusIdle}},
		RestartAgentCompletedMsg{Completion: SessionCompletion{WorkspaceName: "a"}},
		CreateWorkspaceCompletedMsg{Completion: WorkspaceMutationCompletion{WorkspaceName: "a"}, Start: true},
		DeleteWorkspaceCompletedMsg{Completion: WorkspaceMutationCompletion{WorkspaceName: "a"}},
		MergeWorkspaceCompletedMsg{Completion: WorkspaceMutationCompletion{WorkspaceName: "a"}},
		UpdateWorkspaceFromBaseCompletedMsg{Completion: WorkspaceMutationCompletion{WorkspaceName: "a"}},
		RefreshWorkspacesCompletedMsg{Err: "boom"},
		DeleteProjectCompletedMsg{ProjectName: "api"},
		LazygitLaunchCompletedMsg{SessionName: "grove-git-a"},
		WorkspaceShellLaunchCompletedMsg{SessionName: "grove-sh-a", Err: "x"},
		NoopMsg{},
	}
	for _, original := range messages {
		recorded := replayMsgFromTeaMsg(original)
		reconstructed := recorded.ToTeaMsg()
		assert.IsType(t, original, reconstructed)
	}
}

func TestRecorderTraceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	logger, err := eventlog.OpenFileLogger(path)
	require.NoError(t, err)

	options := replayOptions(t)
	options.Logger = logger
	options.Recorder = newReplayRecorder(logger)
	model := NewModel(options)
	model.width = 120
	model.height = 40
	addWorkspace(t, model, "a", domain.StatusActive, false)
	addWorkspace(t, model, "b", domain.StatusIdle, false)
	model.recordBootstrap()

	liveSnapshots := []ReplayStateSnapshot{}
	feed := []tea.Msg{
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter},
		TickMsg{},
	}
	for _, msg := range feed {
		model.Update(msg)
		liveSnapshots = append(liveSnapshots, model.stateSnapshot(model.recorder.seq))
	}
	require.NoError(t, logger.Close())

	trace, err := LoadReplayTrace(path)
	require.NoError(t, err)
	assert.Equal(t, 120, trace.Bootstrap.Width)
	require.Len(t, trace.Messages, len(feed))

	replayed := ReplayDrive(trace, replayOptions(t))
	require.Len(t, replayed, len(liveSnapshots))
	for i := range replayed {
		assert.Equal(t, liveSnapshots[i].SelectedIndex, replayed[i].SelectedIndex, "step %d", i)
		assert.Equal(t, liveSnapshots[i].Mode, replayed[i].Mode, "step %d", i)
		assert.Equal(t, liveSnapshots[i].PreviewLineHash, replayed[i].PreviewLineHash, "step %d", i)
		assert.Equal(t, liveSnapshots[i].ActiveModalID, replayed[i].ActiveModalID, "step %d", i)
		assert.Equal(t, liveSnapshots[i].PendingInputDepth, replayed[i].PendingInputDepth, "step %d", i)
	}
}

func TestLoadReplayTraceRequiresBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	logger, err := eventlog.OpenFileLogger(path)
	require.NoError(t, err)
	logger.Log(eventlog.New("tick", "scheduled"))
	require.NoError(t, logger.Close())

	_, err = LoadReplayTrace(path)
	assert.Error(t, err)
}
