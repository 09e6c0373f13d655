// Package git runs git and workspace-setup commands for the lifecycle engine.
// The engine only plans; these runners execute.
package git

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a git command in a repository root. Implementations return
// trimmed stderr in the error so callers can classify failures by substring.
type Runner interface {
	Run(repoRoot string, args ...string) error
}

// CommandRunner is the subprocess-backed Runner.
type CommandRunner struct{}

// NewCommandRunner creates a subprocess git runner.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

func (r *CommandRunner) Run(repoRoot string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return fmt.Errorf("%s", message)
	}
	return nil
}

// SetupScriptContext carries the environment handed to a workspace setup
// script.
type SetupScriptContext struct {
	ScriptPath       string
	MainWorktreePath string
	WorkspacePath    string
	WorktreeBranch   string
}

// SetupCommandContext carries the environment handed to template setup
// commands.
type SetupCommandContext struct {
	MainWorktreePath string
	WorkspacePath    string
	WorktreeBranch   string
}

// SetupScriptRunner executes a workspace's .grove/setup.sh.
type SetupScriptRunner interface {
	Run(context SetupScriptContext) error
}

// SetupCommandRunner executes a single template setup command via bash -lc.
type SetupCommandRunner interface {
	Run(context SetupCommandContext, command string) error
}

// CommandSetupScriptRunner runs setup scripts with bash.
type CommandSetupScriptRunner struct{}

func (CommandSetupScriptRunner) Run(context SetupScriptContext) error {
	cmd := exec.Command("bash", context.ScriptPath)
	cmd.Dir = context.WorkspacePath
	cmd.Env = append(cmd.Environ(),
		"MAIN_WORKTREE="+context.MainWorktreePath,
		"WORKTREE_BRANCH="+context.WorktreeBranch,
		"WORKTREE_PATH="+context.WorkspacePath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			return fmt.Errorf("setup script %q: %w", context.ScriptPath, err)
		}
		return fmt.Errorf("%s", message)
	}
	return nil
}

// CommandSetupCommandRunner runs template commands with bash -lc.
type CommandSetupCommandRunner struct{}

func (CommandSetupCommandRunner) Run(context SetupCommandContext, command string) error {
	cmd := exec.Command("bash", "-lc", command)
	cmd.Dir = context.WorkspacePath
	cmd.Env = append(cmd.Environ(),
		"MAIN_WORKTREE="+context.MainWorktreePath,
		"WORKTREE_BRANCH="+context.WorktreeBranch,
		"WORKTREE_PATH="+context.WorkspacePath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			return fmt.Errorf("setup command exited: %w", err)
		}
		return fmt.Errorf("%s", message)
	}
	return nil
}
