// Package tui is Grove's list+preview terminal UI: a single-threaded reducer
// over a closed message set, with all side effects running as background
// tasks that deliver completion messages.
package tui

import (
	"github.com/mvessia/grove/internal/capture"
	"github.com/mvessia/grove/internal/domain"
)

// TickMsg drives the adaptive scheduler.
type TickMsg struct{}

// PasteMsg is a terminal paste event.
type PasteMsg struct {
	Text      string
	Bracketed bool
}

// LivePreviewCaptureOutput is a successful live capture after change
// evaluation.
type LivePreviewCaptureOutput struct {
	RawOutput      string
	Change         capture.Change
	ResolvedStatus *ResolvedLivePreviewStatus
}

// ResolvedLivePreviewStatus carries the status detected from the live capture
// for the selected workspace.
type ResolvedLivePreviewStatus struct {
	Status         domain.WorkspaceStatus
	WorkspacePath  string
	IsMain         bool
	SupportedAgent bool
	Agent          domain.AgentType
}

// LivePreviewCapture is the live slice of a poll completion.
type LivePreviewCapture struct {
	Session                string
	IncludeEscapeSequences bool
	CaptureMs              uint64
	Output                 *LivePreviewCaptureOutput
	Err                    string
}

// CursorCapture is the cursor slice of a poll completion.
type CursorCapture struct {
	Session   string
	CaptureMs uint64
	Metadata  string
	Err       string
}

// WorkspaceStatusCaptureOutput is a successful low-fidelity status capture.
type WorkspaceStatusCaptureOutput struct {
	CleanedOutput  string
	Digest         capture.Digest
	ResolvedStatus domain.WorkspaceStatus
}

// WorkspaceStatusCapture is one status capture result.
type WorkspaceStatusCapture struct {
	WorkspaceName  string
	WorkspacePath  string
	SessionName    string
	SupportedAgent bool
	CaptureMs      uint64
	Output         *WorkspaceStatusCaptureOutput
	Err            string
}

// PreviewPollCompletion is the single message a preview poll task returns.
type PreviewPollCompletion struct {
	Generation       uint64
	LiveCapture      *LivePreviewCapture
	CursorCapture    *CursorCapture
	AttentionMarkers map[string]string
}

// PreviewPollCompletedMsg delivers a preview poll completion.
type PreviewPollCompletedMsg struct {
	Completion PreviewPollCompletion
}

// WorkspaceStatusPollCompletion is the status round-robin task's result.
type WorkspaceStatusPollCompletion struct {
	WorkspaceStatusCaptures []WorkspaceStatusCapture
	AttentionMarkers        map[string]string
}

// WorkspaceStatusPollCompletedMsg delivers a status poll completion.
type WorkspaceStatusPollCompletedMsg struct {
	Completion WorkspaceStatusPollCompletion
}

// InteractiveSendCompletion reports one forwarded input.
type InteractiveSendCompletion struct {
	Send       QueuedInteractiveSend
	TmuxSendMs uint64
	Err        string
}

// InteractiveSendCompletedMsg delivers a send completion.
type InteractiveSendCompletedMsg struct {
	Completion InteractiveSendCompletion
}

// SessionCompletion reports a start/stop/restart outcome.
type SessionCompletion struct {
	WorkspaceName string
	WorkspacePath string
	SessionName   string
	Status        domain.WorkspaceStatus
	Warnings      []string
	Err           string
}

// StartAgentCompletedMsg delivers an agent start completion.
type StartAgentCompletedMsg struct {
	Completion SessionCompletion
}

// StopAgentCompletedMsg delivers an agent stop completion.
type StopAgentCompletedMsg struct {
	Completion SessionCompletion
}

// RestartAgentCompletedMsg delivers an in-pane restart completion.
type RestartAgentCompletedMsg struct {
	Completion SessionCompletion
}

// WorkspaceMutationCompletion reports a lifecycle operation outcome.
type WorkspaceMutationCompletion struct {
	WorkspaceName string
	WorkspacePath string
	Warnings      []string
	Err           string
}

// CreateWorkspaceCompletedMsg delivers a create completion.
type CreateWorkspaceCompletedMsg struct {
	Completion WorkspaceMutationCompletion
	Workspace  *domain.Workspace
	Start      bool
}

// DeleteWorkspaceCompletedMsg delivers a delete completion.
type DeleteWorkspaceCompletedMsg struct {
	Completion WorkspaceMutationCompletion
}

// MergeWorkspaceCompletedMsg delivers a merge completion.
type MergeWorkspaceCompletedMsg struct {
	Completion WorkspaceMutationCompletion
}

// UpdateWorkspaceFromBaseCompletedMsg delivers an update-from-base
// completion.
type UpdateWorkspaceFromBaseCompletedMsg struct {
	Completion WorkspaceMutationCompletion
}

// RefreshWorkspacesCompletedMsg delivers a workspace-list refresh.
type RefreshWorkspacesCompletedMsg struct {
	Workspaces []domain.Workspace
	Err        string
}

// DeleteProjectCompletedMsg delivers a project removal completion.
type DeleteProjectCompletedMsg struct {
	ProjectName string
	Err         string
}

// LazygitLaunchCompletedMsg delivers a lazygit helper session launch result.
type LazygitLaunchCompletedMsg struct {
	SessionName string
	Err         string
}

// WorkspaceShellLaunchCompletedMsg delivers a shell helper session launch
// result.
type WorkspaceShellLaunchCompletedMsg struct {
	SessionName string
	Err         string
}

// NoopMsg is delivered by tasks with nothing to report.
type NoopMsg struct{}
