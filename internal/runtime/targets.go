package runtime

import (
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/launch"
)

// LivePreviewStatusContext lets the poll task resolve the selected
// workspace's status from the high-fidelity live capture.
type LivePreviewStatusContext struct {
	WorkspacePath  string
	IsMain         bool
	SupportedAgent bool
	Agent          domain.AgentType
}

// LivePreviewTarget is the one session captured at full fidelity each cycle.
type LivePreviewTarget struct {
	SessionName            string
	IncludeEscapeSequences bool
	DaemonSocketPath       string
	StatusContext          *LivePreviewStatusContext
}

// WorkspaceStatusTarget is one low-fidelity capture in the status round-robin.
type WorkspaceStatusTarget struct {
	WorkspaceName    string
	WorkspacePath    string
	SessionName      string
	SupportedAgent   bool
	IsMain           bool
	Agent            domain.AgentType
	DaemonSocketPath string
}

// WorkspaceStatusTargets produces the ordered status poll targets, excluding
// the live-preview session, which is captured separately at higher fidelity.
func WorkspaceStatusTargets(workspaces []domain.Workspace, livePreviewSession string) []WorkspaceStatusTarget {
	targets := make([]WorkspaceStatusTarget, 0, len(workspaces))
	for _, workspace := range workspaces {
		sessionName := launch.SessionNameForWorkspace(workspace)
		if livePreviewSession != "" && sessionName == livePreviewSession {
			continue
		}
		targets = append(targets, WorkspaceStatusTarget{
			WorkspaceName:  workspace.Name,
			WorkspacePath:  workspace.Path,
			SessionName:    sessionName,
			SupportedAgent: workspace.SupportedAgent,
			IsMain:         workspace.IsMain,
			Agent:          workspace.Agent,
		})
	}
	return targets
}
