package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/eventlog"
)

// ReplayMsg is the serializable mirror of every reducer message. Traces
// record one per delivered message; replay reconstructs the original message
// from it.
type ReplayMsg struct {
	Type string `json:"type"`

	// key
	KeyType  int    `json:"key_type,omitempty"`
	KeyRunes string `json:"key_runes,omitempty"`
	KeyAlt   bool   `json:"key_alt,omitempty"`

	// mouse
	MouseX      int `json:"mouse_x,omitempty"`
	MouseY      int `json:"mouse_y,omitempty"`
	MouseButton int `json:"mouse_button,omitempty"`
	MouseAction int `json:"mouse_action,omitempty"`

	// paste
	PasteText      string `json:"paste_text,omitempty"`
	PasteBracketed bool   `json:"paste_bracketed,omitempty"`

	// resize
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	PreviewPoll         *PreviewPollCompletion         `json:"preview_poll,omitempty"`
	WorkspaceStatusPoll *WorkspaceStatusPollCompletion `json:"workspace_status_poll,omitempty"`
	InteractiveSend     *InteractiveSendCompletion     `json:"interactive_send,omitempty"`
	Session             *SessionCompletion             `json:"session,omitempty"`
	Mutation            *WorkspaceMutationCompletion   `json:"mutation,omitempty"`
	Workspace           *domain.Workspace              `json:"workspace,omitempty"`
	Start               bool                           `json:"start,omitempty"`
	Workspaces          []domain.Workspace             `json:"workspaces,omitempty"`
	Err                 string                         `json:"err,omitempty"`
	ProjectName         string                         `json:"project_name,omitempty"`
	SessionName         string                         `json:"session_name,omitempty"`
}

// Replay message type names.
const (
	replayMsgKey                 = "key"
	replayMsgMouse               = "mouse"
	replayMsgPaste               = "paste"
	replayMsgTick                = "tick"
	replayMsgResize              = "resize"
	replayMsgPreviewPoll         = "preview_poll_completed"
	replayMsgWorkspaceStatusPoll = "workspace_status_poll_completed"
	replayMsgInteractiveSend     = "interactive_send_completed"
	replayMsgStartAgent          = "start_agent_completed"
	replayMsgStopAgent           = "stop_agent_completed"
	replayMsgRestartAgent        = "restart_agent_completed"
	replayMsgCreateWorkspace     = "create_workspace_completed"
	replayMsgDeleteWorkspace     = "delete_workspace_completed"
	replayMsgMergeWorkspace      = "merge_workspace_completed"
	replayMsgUpdateFromBase      = "update_workspace_from_base_completed"
	replayMsgRefresh             = "refresh_workspaces_completed"
	replayMsgDeleteProject       = "delete_project_completed"
	replayMsgLazygitLaunch       = "lazygit_launch_completed"
	replayMsgShellLaunch         = "workspace_shell_launch_completed"
	replayMsgNoop                = "noop"
)

// replayMsgFromTeaMsg converts a live message into its trace form. Unknown
// framework messages record as noop.
func replayMsgFromTeaMsg(msg tea.Msg) ReplayMsg {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return ReplayMsg{
			Type:     replayMsgKey,
			KeyType:  int(msg.Type),
			KeyRunes: string(msg.Runes),
			KeyAlt:   msg.Alt,
		}
	case tea.MouseMsg:
		return ReplayMsg{
			Type:        replayMsgMouse,
			MouseX:      msg.X,
			MouseY:      msg.Y,
			MouseButton: int(msg.Button),
			MouseAction: int(msg.Action),
		}
	case PasteMsg:
		return ReplayMsg{Type: replayMsgPaste, PasteText: msg.Text, PasteBracketed: msg.Bracketed}
	case TickMsg:
		return ReplayMsg{Type: replayMsgTick}
	case tea.WindowSizeMsg:
		return ReplayMsg{Type: replayMsgResize, Width: msg.Width, Height: msg.Height}
	case PreviewPollCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgPreviewPoll, PreviewPoll: &completion}
	case WorkspaceStatusPollCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgWorkspaceStatusPoll, WorkspaceStatusPoll: &completion}
	case InteractiveSendCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgInteractiveSend, InteractiveSend: &completion}
	case StartAgentCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgStartAgent, Session: &completion}
	case StopAgentCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgStopAgent, Session: &completion}
	case RestartAgentCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgRestartAgent, Session: &completion}
	case CreateWorkspaceCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgCreateWorkspace, Mutation: &completion, Workspace: msg.Workspace, Start: msg.Start}
	case DeleteWorkspaceCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgDeleteWorkspace, Mutation: &completion}
	case MergeWorkspaceCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgMergeWorkspace, Mutation: &completion}
	case UpdateWorkspaceFromBaseCompletedMsg:
		completion := msg.Completion
		return ReplayMsg{Type: replayMsgUpdateFromBase, Mutation: &completion}
	case RefreshWorkspacesCompletedMsg:
		return ReplayMsg{Type: replayMsgRefresh, Workspaces: msg.Workspaces, Err: msg.Err}
	case DeleteProjectCompletedMsg:
		return ReplayMsg{Type: replayMsgDeleteProject, ProjectName: msg.ProjectName, Err: msg.Err}
	case LazygitLaunchCompletedMsg:
		return ReplayMsg{Type: replayMsgLazygitLaunch, SessionName: msg.SessionName, Err: msg.Err}
	case WorkspaceShellLaunchCompletedMsg:
		return ReplayMsg{Type: replayMsgShellLaunch, SessionName: msg.SessionName, Err: msg.Err}
	default:
		return ReplayMsg{Type: replayMsgNoop}
	}
}

// ToTeaMsg reconstructs the live message for replay.
func (r ReplayMsg) ToTeaMsg() tea.Msg {
	switch r.Type {
	case replayMsgKey:
		return tea.KeyMsg{Type: tea.KeyType(r.KeyType), Runes: []rune(r.KeyRunes), Alt: r.KeyAlt}
	case replayMsgMouse:
		return tea.MouseMsg{X: r.MouseX, Y: r.MouseY, Button: tea.MouseButton(r.MouseButton), Action: tea.MouseAction(r.MouseAction)}
	case replayMsgPaste:
		return PasteMsg{Text: r.PasteText, Bracketed: r.PasteBracketed}
	case replayMsgTick:
		return TickMsg{}
	case replayMsgResize:
		return tea.WindowSizeMsg{Width: r.Width, Height: r.Height}
	case replayMsgPreviewPoll:
		return PreviewPollCompletedMsg{Completion: *r.PreviewPoll}
	case replayMsgWorkspaceStatusPoll:
		return WorkspaceStatusPollCompletedMsg{Completion: *r.WorkspaceStatusPoll}
	case replayMsgInteractiveSend:
		return InteractiveSendCompletedMsg{Completion: *r.InteractiveSend}
	case replayMsgStartAgent:
		return StartAgentCompletedMsg{Completion: *r.Session}
	case replayMsgStopAgent:
		return StopAgentCompletedMsg{Completion: *r.Session}
	case replayMsgRestartAgent:
		return RestartAgentCompletedMsg{Completion: *r.Session}
	case replayMsgCreateWorkspace:
		return CreateWorkspaceCompletedMsg{Completion: *r.Mutation, Workspace: r.Workspace, Start: r.Start}
	case replayMsgDeleteWorkspace:
		return DeleteWorkspaceCompletedMsg{Completion: *r.Mutation}
	case replayMsgMergeWorkspace:
		return MergeWorkspaceCompletedMsg{Completion: *r.Mutation}
	case replayMsgUpdateFromBase:
		return UpdateWorkspaceFromBaseCompletedMsg{Completion: *r.Mutation}
	case replayMsgRefresh:
		return RefreshWorkspacesCompletedMsg{Workspaces: r.Workspaces, Err: r.Err}
	case replayMsgDeleteProject:
		return DeleteProjectCompletedMsg{ProjectName: r.ProjectName, Err: r.Err}
	case replayMsgLazygitLaunch:
		return LazygitLaunchCompletedMsg{SessionName: r.SessionName, Err: r.Err}
	case replayMsgShellLaunch:
		return WorkspaceShellLaunchCompletedMsg{SessionName: r.SessionName, Err: r.Err}
	default:
		return NoopMsg{}
	}
}

// ReplayBootstrap is the snapshot sufficient to reconstruct the initial
// model.
type ReplayBootstrap struct {
	RunID           string             `json:"run_id"`
	RepoRoot        string             `json:"repo_root"`
	Width           int                `json:"width"`
	Height          int                `json:"height"`
	SidebarWidthPct int                `json:"sidebar_width_pct"`
	Workspaces      []domain.Workspace `json:"workspaces"`
	SelectedIndex   int                `json:"selected_index"`
}

// ReplayStateSnapshot is the per-step digest asserted during replay.
type ReplayStateSnapshot struct {
	Seq               uint64 `json:"seq"`
	SelectedIndex     int    `json:"selected_index"`
	Mode              string `json:"mode"`
	PreviewOffset     int    `json:"preview_offset"`
	PreviewLineHash   string `json:"preview_line_hash"`
	PendingInputDepth int    `json:"pending_input_depth"`
	ActiveModalID     string `json:"active_modal_id"`
	FrameHash         string `json:"frame_hash"`
}

// replayRecorder emits bootstrap/msg_received/state_after_update events when
// debug recording is enabled.
type replayRecorder struct {
	logger eventlog.Logger
	runID  string
	seq    uint64
}

func newReplayRecorder(logger eventlog.Logger) *replayRecorder {
	return &replayRecorder{logger: logger, runID: uuid.NewString()}
}

func (m *Model) recordBootstrap() {
	if m.recorder == nil {
		return
	}
	bootstrap := ReplayBootstrap{
		RunID:           m.recorder.runID,
		RepoRoot:        m.repoRoot,
		Width:           m.width,
		Height:          m.height,
		SidebarWidthPct: m.cfg.SidebarWidthPct,
		Workspaces:      m.workspaces,
		SelectedIndex:   m.selectedIndex,
	}
	raw, err := json.Marshal(bootstrap)
	if err != nil {
		return
	}
	m.recorder.logger.Log(eventlog.New("replay", "bootstrap").
		WithData("run_id", m.recorder.runID).
		WithData("snapshot", json.RawMessage(raw)))
}

func (m *Model) recordMsg(msg tea.Msg) {
	if m.recorder == nil {
		return
	}
	m.recorder.seq++
	replayMsg := replayMsgFromTeaMsg(msg)
	raw, err := json.Marshal(replayMsg)
	if err != nil {
		return
	}
	m.recorder.logger.Log(eventlog.New("replay", "msg_received").
		WithData("run_id", m.recorder.runID).
		WithData("seq", m.recorder.seq).
		WithData("msg", json.RawMessage(raw)))
}

func (m *Model) recordStateAfterUpdate() {
	if m.recorder == nil {
		return
	}
	snapshot := m.stateSnapshot(m.recorder.seq)
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	m.recorder.logger.Log(eventlog.New("replay", "state_after_update").
		WithData("run_id", m.recorder.runID).
		WithData("seq", m.recorder.seq).
		WithData("snapshot", json.RawMessage(raw)))
}

// stateSnapshot digests the observable reducer state.
func (m *Model) stateSnapshot(seq uint64) ReplayStateSnapshot {
	mode := "list"
	if m.interactive != nil {
		mode = "interactive"
	} else if m.focus == FocusPreview {
		mode = "preview"
	}
	modalID := ""
	if m.dialog != nil {
		modalID = m.dialog.ID()
	} else if m.palette.visible {
		modalID = "palette"
	} else if m.helpVisible {
		modalID = "help"
	}
	return ReplayStateSnapshot{
		Seq:               seq,
		SelectedIndex:     m.selectedIndex,
		Mode:              mode,
		PreviewOffset:     m.preview.offset,
		PreviewLineHash:   hashStrings(m.preview.cleanedLines),
		PendingInputDepth: m.pendingInputDepth(),
		ActiveModalID:     modalID,
		FrameHash:         hashStrings([]string{m.View()}),
	}
}

func hashStrings(lines []string) string {
	digest := xxhash.New()
	for _, line := range lines {
		_, _ = digest.WriteString(line)
		_, _ = digest.WriteString("\n")
	}
	return fmt.Sprintf("%016x", digest.Sum64())
}

// ReplayTrace is a parsed debug recording.
type ReplayTrace struct {
	Bootstrap ReplayBootstrap
	Messages  []ReplayTraceMessage
}

// ReplayTraceMessage is one recorded message with its seq.
type ReplayTraceMessage struct {
	Seq uint64
	Msg ReplayMsg
}

// LoadReplayTrace parses an NDJSON event log into a trace, keeping only
// replay events.
func LoadReplayTrace(path string) (ReplayTrace, error) {
	file, err := os.Open(path)
	if err != nil {
		return ReplayTrace{}, err
	}
	defer file.Close()

	var trace ReplayTrace
	sawBootstrap := false
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event struct {
			Event string `json:"event"`
			Kind  string `json:"kind"`
			Data  struct {
				Seq      uint64          `json:"seq"`
				Msg      json.RawMessage `json:"msg"`
				Snapshot json.RawMessage `json:"snapshot"`
			} `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		if event.Event != "replay" {
			continue
		}
		switch event.Kind {
		case "bootstrap":
			if err := json.Unmarshal(event.Data.Snapshot, &trace.Bootstrap); err == nil {
				sawBootstrap = true
			}
		case "msg_received":
			var msg ReplayMsg
			if err := json.Unmarshal(event.Data.Msg, &msg); err == nil {
				trace.Messages = append(trace.Messages, ReplayTraceMessage{Seq: event.Data.Seq, Msg: msg})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return ReplayTrace{}, err
	}
	if !sawBootstrap {
		return ReplayTrace{}, fmt.Errorf("trace %s has no bootstrap event", path)
	}
	sort.Slice(trace.Messages, func(i, j int) bool { return trace.Messages[i].Seq < trace.Messages[j].Seq })
	return trace, nil
}

// ReplayDrive reconstructs a model from the bootstrap and feeds the recorded
// messages in seq order, returning a snapshot per step.
func ReplayDrive(trace ReplayTrace, options Options) []ReplayStateSnapshot {
	model := NewModel(options)
	model.width = trace.Bootstrap.Width
	model.height = trace.Bootstrap.Height
	model.cfg.SidebarWidthPct = trace.Bootstrap.SidebarWidthPct
	model.workspaces = trace.Bootstrap.Workspaces
	model.selectedIndex = trace.Bootstrap.SelectedIndex
	model.refreshPreviewSummary()

	snapshots := make([]ReplayStateSnapshot, 0, len(trace.Messages))
	for _, recorded := range trace.Messages {
		model.update(recorded.Msg.ToTeaMsg())
		snapshots = append(snapshots, model.stateSnapshot(recorded.Seq))
	}
	return snapshots
}
