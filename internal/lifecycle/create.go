package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvessia/grove/internal/git"
)

// CreateWorkspace plans and executes the full creation sequence: excludes,
// branch, worktree, env copy, markers, setup. Returns the final workspace
// path, the branch, and non-fatal warnings.
func CreateWorkspace(repoRoot string, request CreateRequest, gitRunner git.Runner, scriptRunner git.SetupScriptRunner, commandRunner git.SetupCommandRunner, template *SetupTemplate) (CreateResult, error) {
	if err := request.Validate(); err != nil {
		return CreateResult{}, err
	}

	workspacePath, err := WorkspaceDirectoryPath(repoRoot, request.WorkspaceName)
	if err != nil {
		return CreateResult{}, err
	}
	if _, err := os.Stat(workspacePath); err == nil {
		return CreateResult{}, fmt.Errorf("git command failed: worktree path %s already exists", workspacePath)
	}

	if err := EnsureGroveGitExcludeEntries(repoRoot); err != nil {
		return CreateResult{}, err
	}

	branch := request.BranchName()
	switch request.BranchMode.Kind {
	case BranchModeNew:
		if err := gitRunner.Run(repoRoot, "branch", branch, request.BranchMode.BaseBranch); err != nil {
			return CreateResult{}, fmt.Errorf("git command failed: %s", err)
		}
	case BranchModeExisting:
		// Branch already exists; worktree add attaches to it.
	case BranchModePullRequest:
		ref := fmt.Sprintf("pull/%d/head:%s", request.BranchMode.PullRequestNumber, branch)
		if err := gitRunner.Run(repoRoot, "fetch", "origin", ref); err != nil {
			return CreateResult{}, fmt.Errorf("git command failed: %s", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(workspacePath), 0o755); err != nil {
		return CreateResult{}, fmt.Errorf("io error: %w", err)
	}
	if err := gitRunner.Run(repoRoot, "worktree", "add", workspacePath, branch); err != nil {
		return CreateResult{}, fmt.Errorf("git command failed: %s", err)
	}

	warnings := copyEnvFiles(repoRoot, workspacePath)

	if err := WriteAgentMarker(workspacePath, request.Agent); err != nil {
		return CreateResult{}, err
	}
	if err := WriteBaseMarker(workspacePath, request.MarkerBaseBranch()); err != nil {
		return CreateResult{}, err
	}

	if setupWarnings := runWorkspaceSetup(repoRoot, workspacePath, branch, scriptRunner, commandRunner, template); len(setupWarnings) > 0 {
		warnings = append(warnings, setupWarnings...)
	}

	return CreateResult{
		WorkspacePath: workspacePath,
		Branch:        branch,
		Warnings:      warnings,
	}, nil
}

// runWorkspaceSetup prefers the checked-in .grove/setup.sh; with none present
// it falls back to the template's commands. Setup failures are warnings so a
// half-set-up workspace is still usable.
func runWorkspaceSetup(repoRoot, workspacePath, branch string, scriptRunner git.SetupScriptRunner, commandRunner git.SetupCommandRunner, template *SetupTemplate) []string {
	scriptPath := filepath.Join(repoRoot, setupScriptFile)
	if _, err := os.Stat(scriptPath); err == nil {
		if err := scriptRunner.Run(git.SetupScriptContext{
			ScriptPath:       scriptPath,
			MainWorktreePath: repoRoot,
			WorkspacePath:    workspacePath,
			WorktreeBranch:   branch,
		}); err != nil {
			return []string{fmt.Sprintf("setup script failed: %v", err)}
		}
		return nil
	}

	if template == nil || !template.AutoRunSetupCommands {
		return nil
	}
	var warnings []string
	for _, command := range template.Commands {
		if err := commandRunner.Run(git.SetupCommandContext{
			MainWorktreePath: repoRoot,
			WorkspacePath:    workspacePath,
			WorktreeBranch:   branch,
		}, command); err != nil {
			warnings = append(warnings, fmt.Sprintf("setup command %q failed: %v", command, err))
		}
	}
	return warnings
}
