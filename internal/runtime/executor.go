// Package runtime executes launch plans against the multiplexer adapter and
// interprets captured output into workspace statuses and poll targets.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/launch"
	"github.com/mvessia/grove/internal/tmux"
)

// CommandSink receives every planned command in delegating mode.
type CommandSink func(command []string) error

// ExecutionMode selects how plan commands run. A nil Delegate means Process
// mode (the multiplexer adapter spawns subprocesses); a non-nil Delegate
// routes every command through a single sink, which tests and synchronous
// fallbacks use to observe side effects.
type ExecutionMode struct {
	Delegate CommandSink
}

// ProcessMode runs commands through the multiplexer adapter.
func ProcessMode() ExecutionMode {
	return ExecutionMode{}
}

// DelegatingMode routes commands through sink.
func DelegatingMode(sink CommandSink) ExecutionMode {
	return ExecutionMode{Delegate: sink}
}

// SessionExecutionResult reports a launch, stop, or restart outcome.
type SessionExecutionResult struct {
	SessionName string
	Status      domain.WorkspaceStatus
	Err         string
	Warnings    []string
}

// OK reports whether the execution succeeded (possibly with warnings).
func (r SessionExecutionResult) OK() bool {
	return r.Err == ""
}

// Executor runs plans against a multiplexer.
type Executor struct {
	Mux tmux.Multiplexer
}

// NewExecutor creates an executor over the given adapter.
func NewExecutor(mux tmux.Multiplexer) *Executor {
	return &Executor{Mux: mux}
}

func (e *Executor) runCommand(mode ExecutionMode, command []string) error {
	if mode.Delegate != nil {
		return mode.Delegate(command)
	}
	return e.Mux.Execute(command)
}

// ExecuteLaunchRequest materializes the plan, writes any launcher script, and
// executes pre-launch and launch commands in order, stopping at the first
// failure. A "duplicate session" failure counts as success: the session is
// already live and the workspace transitions to Active.
func (e *Executor) ExecuteLaunchRequest(request launch.LaunchRequest, mode ExecutionMode) SessionExecutionResult {
	plan := launch.BuildLaunchPlan(request)
	return e.executePlan(plan, mode)
}

// ExecuteShellLaunchRequest launches a helper session from a shell plan.
func (e *Executor) ExecuteShellLaunchRequest(request launch.ShellLaunchRequest, mode ExecutionMode) SessionExecutionResult {
	plan := launch.BuildShellLaunchPlan(request)
	return e.executePlan(plan, mode)
}

func (e *Executor) executePlan(plan launch.LaunchPlan, mode ExecutionMode) SessionExecutionResult {
	result := SessionExecutionResult{SessionName: plan.SessionName, Status: domain.StatusActive}

	if script := plan.LauncherScript; script != nil {
		if err := writeLauncherScript(script); err != nil {
			result.Status = domain.StatusUnknown
			result.Err = fmt.Sprintf("write launcher script: %v", err)
			return result
		}
	}

	commands := make([][]string, 0, len(plan.PreLaunchCmds)+1)
	commands = append(commands, plan.PreLaunchCmds...)
	if len(plan.LaunchCmd) > 0 {
		commands = append(commands, plan.LaunchCmd)
	}
	for _, command := range commands {
		if err := e.runCommand(mode, command); err != nil {
			if tmux.ErrorIndicatesDuplicateSession(err.Error()) {
				// Session already exists; treat the launch as a reattach.
				return result
			}
			result.Status = domain.StatusUnknown
			result.Err = err.Error()
			return result
		}
	}
	return result
}

func writeLauncherScript(script *launch.LauncherScript) error {
	if err := os.MkdirAll(filepath.Dir(script.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(script.Path, []byte(script.Contents), 0o755)
}

// ExecuteStop runs the stop plan for a workspace's session. A "missing
// session" failure means the session is already gone; the result carries the
// no-session status (Main for the root worktree, Idle otherwise).
func (e *Executor) ExecuteStop(workspace domain.Workspace, mode ExecutionMode) SessionExecutionResult {
	sessionName := launch.SessionNameForWorkspace(workspace)
	stopped := domain.StatusIdle
	if workspace.IsMain {
		stopped = domain.StatusMain
	}
	result := SessionExecutionResult{SessionName: sessionName, Status: stopped}

	for _, command := range launch.StopPlan(sessionName) {
		if err := e.runCommand(mode, command); err != nil {
			if tmux.ErrorIndicatesMissingSession(err.Error()) {
				return result
			}
			result.Err = err.Error()
			return result
		}
	}
	return result
}

// ExecuteRestartInPane interrupts the agent and relaunches it inside the
// existing pane, without recreating the session. Only agents that declare
// pane-restart support are eligible.
func (e *Executor) ExecuteRestartInPane(workspace domain.Workspace, skipPermissions bool, agentEnv [][2]string) SessionExecutionResult {
	sessionName := launch.SessionNameForWorkspace(workspace)
	result := SessionExecutionResult{SessionName: sessionName, Status: domain.StatusActive}

	if !workspace.Agent.SupportsRestartInPane() {
		result.Status = domain.StatusUnknown
		result.Err = fmt.Sprintf("agent %s does not support restart in pane", workspace.Agent)
		return result
	}

	commands := [][]string{
		{"tmux", "send-keys", "-t", sessionName, "C-c"},
	}
	if envCmd := launch.AgentEnvExportCommand(agentEnv); envCmd != "" {
		commands = append(commands, []string{"tmux", "send-keys", "-t", sessionName, envCmd, "Enter"})
	}
	agentCmd := launch.BuildAgentCommand(workspace.Agent, skipPermissions)
	commands = append(commands, []string{"tmux", "send-keys", "-t", sessionName, agentCmd, "Enter"})

	for _, command := range commands {
		if err := e.Mux.Execute(command); err != nil {
			result.Status = domain.StatusUnknown
			result.Err = err.Error()
			return result
		}
	}
	return result
}
