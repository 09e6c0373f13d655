package domain

import (
	"errors"
	"fmt"
)

// PullRequestStatus tracks the remote state of a workspace's pull request.
type PullRequestStatus int

const (
	PullRequestOpen PullRequestStatus = iota
	PullRequestMerged
	PullRequestClosed
)

func (s PullRequestStatus) String() string {
	switch s {
	case PullRequestMerged:
		return "merged"
	case PullRequestClosed:
		return "closed"
	default:
		return "open"
	}
}

// PullRequest is a remote PR associated with a workspace branch.
type PullRequest struct {
	Number int
	URL    string
	Status PullRequestStatus
}

// Workspace pairs a git worktree on a dedicated branch with an optional agent
// session. The main workspace is the repository root worktree.
type Workspace struct {
	Name             string
	Path             string
	ProjectName      string
	ProjectPath      string
	Branch           string
	BaseBranch       string
	LastActivityUnix int64
	Agent            AgentType
	Status           WorkspaceStatus
	IsMain           bool
	IsOrphaned       bool
	SupportedAgent   bool
	PullRequests     []PullRequest
}

var (
	ErrEmptyWorkspaceName   = errors.New("workspace name is required")
	ErrInvalidWorkspaceName = errors.New("workspace name must be [A-Za-z0-9_-]")
	ErrEmptyWorkspacePath   = errors.New("workspace path is required")
)

// ValidWorkspaceName reports whether name is nonempty and uses only
// [A-Za-z0-9_-].
func ValidWorkspaceName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// NewWorkspace validates and constructs a workspace. Supported-agent status is
// derived from the agent type.
func NewWorkspace(name, path, branch string, agent AgentType, status WorkspaceStatus, isMain bool) (Workspace, error) {
	if name == "" {
		return Workspace{}, ErrEmptyWorkspaceName
	}
	if !ValidWorkspaceName(name) {
		return Workspace{}, fmt.Errorf("%w: %q", ErrInvalidWorkspaceName, name)
	}
	if path == "" {
		return Workspace{}, ErrEmptyWorkspacePath
	}
	return Workspace{
		Name:           name,
		Path:           path,
		Branch:         branch,
		Agent:          agent,
		Status:         status,
		IsMain:         isMain,
		SupportedAgent: agent.SupportsStatusDetection(),
	}, nil
}

// WithProjectContext attaches the owning project's name and root path.
func (w Workspace) WithProjectContext(name, path string) Workspace {
	w.ProjectName = name
	w.ProjectPath = path
	return w
}

// WithBaseBranch sets the branch the workspace was created from.
func (w Workspace) WithBaseBranch(base string) Workspace {
	w.BaseBranch = base
	return w
}

// HasLiveStatus reports whether the status implies a live tmux session.
func (w Workspace) HasLiveStatus() bool {
	switch w.Status {
	case StatusActive, StatusThinking, StatusWaiting, StatusDone, StatusError, StatusUnsupported:
		return true
	default:
		return false
	}
}
