package lifecycle

import (
	"fmt"
	"os"

	"github.com/mvessia/grove/internal/git"
)

// DeleteWorkspace removes a workspace worktree and optionally its branch.
// Missing paths are tolerated; hard git failures abort. Returns the fatal
// error (if any) and the collected warnings.
func DeleteWorkspace(request DeleteRequest, gitRunner git.Runner, terminator SessionTerminator) (error, []string) {
	var warnings []string

	if request.KillSessions && terminator != nil {
		terminator.StopWorkspaceSessions(request.ProjectName, request.WorkspaceName)
	}

	repoRoot := request.ProjectPath
	if repoRoot == "" {
		repoRoot = request.WorkspacePath
	}

	if request.IsMissing {
		warnings = append(warnings, fmt.Sprintf("workspace path %s was already missing", request.WorkspacePath))
		if err := gitRunner.Run(repoRoot, "worktree", "prune"); err != nil {
			warnings = append(warnings, fmt.Sprintf("worktree prune: %v", err))
		}
	} else {
		if err := gitRunner.Run(repoRoot, "worktree", "remove", "--force", request.WorkspacePath); err != nil {
			// A worktree whose directory vanished needs a prune, not a remove.
			if _, statErr := os.Stat(request.WorkspacePath); os.IsNotExist(statErr) {
				warnings = append(warnings, fmt.Sprintf("worktree remove: %v", err))
				if pruneErr := gitRunner.Run(repoRoot, "worktree", "prune"); pruneErr != nil {
					warnings = append(warnings, fmt.Sprintf("worktree prune: %v", pruneErr))
				}
			} else {
				return fmt.Errorf("git command failed: %s", err), warnings
			}
		}
	}

	if request.DeleteLocalBranch && request.Branch != "" {
		if err := gitRunner.Run(repoRoot, "branch", "-D", request.Branch); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete branch %s: %v", request.Branch, err))
		}
	}

	return nil, warnings
}
