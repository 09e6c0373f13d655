package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvessia/grove/internal/domain"
)

// Lifecycle errors surfaced to the command service.
var (
	ErrEmptyBaseBranchRequest   = errors.New("base branch is required")
	ErrEmptyExistingBranch      = errors.New("existing branch is required")
	ErrInvalidPullRequestNumber = errors.New("pull request number is required")
	ErrRepoNameUnavailable      = errors.New("repo name unavailable")
	ErrHomeDirectoryUnavailable = errors.New("home directory unavailable")
)

// BranchModeKind selects how the workspace branch comes into existence.
type BranchModeKind int

const (
	// BranchModeNew creates the workspace branch from a base branch.
	BranchModeNew BranchModeKind = iota
	// BranchModeExisting reuses an already existing branch.
	BranchModeExisting
	// BranchModePullRequest fetches a PR head ref and branches from it. The
	// validator supports it; neither the TUI create dialog nor the CLI offers it.
	BranchModePullRequest
)

// BranchMode is the tagged branch strategy of a create request.
type BranchMode struct {
	Kind              BranchModeKind
	BaseBranch        string
	ExistingBranch    string
	PullRequestNumber int
}

// NewBranchMode creates a workspace branch from base.
func NewBranchMode(base string) BranchMode {
	return BranchMode{Kind: BranchModeNew, BaseBranch: base}
}

// ExistingBranchMode reuses branch.
func ExistingBranchMode(branch string) BranchMode {
	return BranchMode{Kind: BranchModeExisting, ExistingBranch: branch}
}

// PullRequestBranchMode branches from a fetched PR head.
func PullRequestBranchMode(number int, base string) BranchMode {
	return BranchMode{Kind: BranchModePullRequest, PullRequestNumber: number, BaseBranch: base}
}

// CreateRequest describes a workspace creation.
type CreateRequest struct {
	WorkspaceName string
	BranchMode    BranchMode
	Agent         domain.AgentType
}

// Validate applies the create invariants: name charset, branch strategy
// completeness after trimming.
func (r CreateRequest) Validate() error {
	if r.WorkspaceName == "" {
		return domain.ErrEmptyWorkspaceName
	}
	if !domain.ValidWorkspaceName(r.WorkspaceName) {
		return domain.ErrInvalidWorkspaceName
	}
	switch r.BranchMode.Kind {
	case BranchModeNew:
		if strings.TrimSpace(r.BranchMode.BaseBranch) == "" {
			return ErrEmptyBaseBranchRequest
		}
	case BranchModeExisting:
		if strings.TrimSpace(r.BranchMode.ExistingBranch) == "" {
			return ErrEmptyExistingBranch
		}
	case BranchModePullRequest:
		if r.BranchMode.PullRequestNumber <= 0 {
			return ErrInvalidPullRequestNumber
		}
		if strings.TrimSpace(r.BranchMode.BaseBranch) == "" {
			return ErrEmptyBaseBranchRequest
		}
	}
	return nil
}

// BranchName is the branch the worktree will live on.
func (r CreateRequest) BranchName() string {
	if r.BranchMode.Kind == BranchModeExisting {
		return r.BranchMode.ExistingBranch
	}
	return r.WorkspaceName
}

// MarkerBaseBranch is what gets persisted in .grove/base.
func (r CreateRequest) MarkerBaseBranch() string {
	if r.BranchMode.Kind == BranchModeExisting {
		return r.BranchMode.ExistingBranch
	}
	return r.BranchMode.BaseBranch
}

// CreateResult reports the created workspace.
type CreateResult struct {
	WorkspacePath string
	Branch        string
	Warnings      []string
}

// DeleteRequest describes a workspace deletion.
type DeleteRequest struct {
	ProjectName       string
	ProjectPath       string
	WorkspaceName     string
	Branch            string
	WorkspacePath     string
	IsMissing         bool
	DeleteLocalBranch bool
	KillSessions      bool
}

// MergeRequest describes merging a workspace branch into its base.
type MergeRequest struct {
	ProjectName        string
	ProjectPath        string
	WorkspaceName      string
	WorkspaceBranch    string
	WorkspacePath      string
	BaseBranch         string
	CleanupWorkspace   bool
	CleanupLocalBranch bool
}

// UpdateFromBaseRequest describes pulling base into the workspace branch.
type UpdateFromBaseRequest struct {
	ProjectName     string
	ProjectPath     string
	WorkspaceName   string
	WorkspaceBranch string
	WorkspacePath   string
	BaseBranch      string
}

// SetupTemplate supplies optional post-create setup.
type SetupTemplate struct {
	AutoRunSetupCommands bool
	Commands             []string
}

// SessionTerminator stops any tmux sessions attached to a workspace before a
// destructive operation.
type SessionTerminator interface {
	StopWorkspaceSessions(projectName, workspaceName string)
}

// NoopSessionTerminator leaves sessions alone.
type NoopSessionTerminator struct{}

func (NoopSessionTerminator) StopWorkspaceSessions(string, string) {}

// WorkspaceDirectoryPath resolves where a workspace's worktree lives:
// ~/.grove/worktrees/<repo-name>/<workspace-name>.
func WorkspaceDirectoryPath(repoRoot, workspaceName string) (string, error) {
	repoName := filepath.Base(filepath.Clean(repoRoot))
	if repoName == "." || repoName == string(filepath.Separator) || repoName == "" {
		return "", ErrRepoNameUnavailable
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrHomeDirectoryUnavailable
	}
	return filepath.Join(home, groveDir, "worktrees", repoName, workspaceName), nil
}

// envFilesToCopy are carried from the main worktree into new workspaces so
// local tooling keeps working. Copy failures are warnings, not errors.
var envFilesToCopy = []string{
	".env",
	".env.local",
	".env.development",
	".env.development.local",
}

func copyEnvFiles(mainWorktree, workspacePath string) []string {
	var warnings []string
	for _, name := range envFilesToCopy {
		source := filepath.Join(mainWorktree, name)
		if _, err := os.Stat(source); err != nil {
			continue
		}
		data, err := os.ReadFile(source)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("copy %s: %v", name, err))
			continue
		}
		if err := os.WriteFile(filepath.Join(workspacePath, name), data, 0o644); err != nil {
			warnings = append(warnings, fmt.Sprintf("copy %s: %v", name, err))
		}
	}
	return warnings
}
