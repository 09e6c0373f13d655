package lifecycle

import (
	"fmt"
	"strings"

	"github.com/mvessia/grove/internal/git"
)

// conflictFilePrefix is git's per-file conflict report line. The merge error
// summary extracts the file names after it.
const conflictFilePrefix = "CONFLICT (content): Merge conflict in "

// MergeWorkspace checks out the base branch in the main worktree and merges
// the workspace branch into it, preferring fast-forward. Conflicts surface as
// an error whose message names the conflicted files; no cleanup happens on
// conflict.
func MergeWorkspace(request MergeRequest, gitRunner git.Runner, terminator SessionTerminator) (error, []string) {
	var warnings []string
	repoRoot := request.ProjectPath
	if repoRoot == "" {
		return fmt.Errorf("project root unavailable for merge"), warnings
	}

	if err := gitRunner.Run(repoRoot, "checkout", request.BaseBranch); err != nil {
		return fmt.Errorf("git command failed: %s", err), warnings
	}

	if err := gitRunner.Run(repoRoot, "merge", "--ff", request.WorkspaceBranch); err != nil {
		message := err.Error()
		if summary, ok := SummarizeMergeConflict(message); ok {
			// Restore a clean base; conflicts are resolved via update-from-base.
			if abortErr := gitRunner.Run(repoRoot, "merge", "--abort"); abortErr != nil {
				warnings = append(warnings, fmt.Sprintf("merge abort: %v", abortErr))
			}
			return fmt.Errorf("%s", summary), warnings
		}
		return fmt.Errorf("merge failed: %s", message), warnings
	}

	if request.CleanupWorkspace {
		deleteErr, deleteWarnings := DeleteWorkspace(DeleteRequest{
			ProjectName:       request.ProjectName,
			ProjectPath:       request.ProjectPath,
			WorkspaceName:     request.WorkspaceName,
			Branch:            request.WorkspaceBranch,
			WorkspacePath:     request.WorkspacePath,
			DeleteLocalBranch: request.CleanupLocalBranch,
			KillSessions:      true,
		}, gitRunner, terminator)
		warnings = append(warnings, deleteWarnings...)
		if deleteErr != nil {
			warnings = append(warnings, fmt.Sprintf("cleanup after merge: %v", deleteErr))
		}
	} else if request.CleanupLocalBranch {
		if err := gitRunner.Run(repoRoot, "branch", "-d", request.WorkspaceBranch); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete branch %s: %v", request.WorkspaceBranch, err))
		}
	}

	return nil, warnings
}

// SummarizeMergeConflict condenses git's conflict output into a single
// actionable line naming the conflicted files. Returns false when the message
// does not describe a content conflict.
func SummarizeMergeConflict(message string) (string, bool) {
	var files []string
	for _, line := range strings.Split(message, "\n") {
		if file, ok := strings.CutPrefix(strings.TrimSpace(line), conflictFilePrefix); ok {
			files = append(files, strings.TrimSpace(file))
		}
	}
	if len(files) == 0 {
		if strings.Contains(strings.ToLower(message), "conflict") {
			return "merge conflict, resolve in base worktree then retry", true
		}
		return "", false
	}
	return fmt.Sprintf("merge conflict, resolve in base worktree then retry (files: %s)", strings.Join(files, ", ")), true
}

// UpdateWorkspaceFromBase merges the base branch into the workspace branch
// inside the workspace worktree. Conflicts are classified distinctly so the
// caller can leave the workspace mid-merge for in-place resolution.
func UpdateWorkspaceFromBase(request UpdateFromBaseRequest, gitRunner git.Runner, terminator SessionTerminator) (error, []string) {
	var warnings []string
	if request.WorkspacePath == "" {
		return fmt.Errorf("workspace path does not exist"), warnings
	}
	if request.WorkspaceBranch == request.BaseBranch {
		return fmt.Errorf("workspace branch matches base branch"), warnings
	}

	if err := gitRunner.Run(request.WorkspacePath, "merge", request.BaseBranch); err != nil {
		message := err.Error()
		if summary, ok := SummarizeMergeConflict(message); ok {
			return fmt.Errorf("update conflict: %s", summary), warnings
		}
		return fmt.Errorf("merge failed: %s", message), warnings
	}
	return nil, warnings
}
