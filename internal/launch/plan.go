package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mvessia/grove/internal/domain"
)

// Scrollback kept per session; the preview captures a fraction of it.
const sessionHistoryLimit = 10000

// launcherScriptRelPath is where the prompt launcher script lives inside a
// workspace. The script deletes itself after the agent exits.
const launcherScriptRelPath = ".grove/launcher.sh"

// openCodeUnsafePermissionJSON is the OPENCODE_PERMISSION payload that lifts
// all confirmation prompts when skip-permissions is requested.
const openCodeUnsafePermissionJSON = `{"edit":"allow","bash":"allow","webfetch":"allow"}`

// LaunchRequest fully describes an agent launch before planning.
type LaunchRequest struct {
	ProjectName          string
	WorkspaceName        string
	WorkspacePath        string
	Agent                domain.AgentType
	Prompt               string
	WorkspaceInitCommand string
	SkipPermissions      bool
	AgentEnv             [][2]string
	CaptureCols          int
	CaptureRows          int
}

// ShellLaunchRequest describes a helper session running an arbitrary command
// (a shell, lazygit) in the workspace directory.
type ShellLaunchRequest struct {
	SessionName          string
	WorkspacePath        string
	Command              string
	WorkspaceInitCommand string
	CaptureCols          int
	CaptureRows          int
}

// LauncherScript is a file the executor must write before running the plan.
type LauncherScript struct {
	Path     string
	Contents string
}

// LaunchPlan is the fully planned command sequence. Pure data.
type LaunchPlan struct {
	SessionName    string
	PaneLookupCmd  []string
	PreLaunchCmds  [][]string
	LaunchCmd      []string
	LauncherScript *LauncherScript
}

// RequestForWorkspace builds a LaunchRequest from a workspace plus launch
// options.
func RequestForWorkspace(workspace domain.Workspace, prompt, initCommand string, skipPermissions bool, agentEnv [][2]string, captureCols, captureRows int) LaunchRequest {
	return LaunchRequest{
		ProjectName:          workspace.ProjectName,
		WorkspaceName:        workspace.Name,
		WorkspacePath:        workspace.Path,
		Agent:                workspace.Agent,
		Prompt:               prompt,
		WorkspaceInitCommand: initCommand,
		SkipPermissions:      skipPermissions,
		AgentEnv:             agentEnv,
		CaptureCols:          captureCols,
		CaptureRows:          captureRows,
	}
}

// ShellRequestForWorkspace builds a ShellLaunchRequest for a helper session.
func ShellRequestForWorkspace(workspace domain.Workspace, sessionName, command, initCommand string, captureCols, captureRows int) ShellLaunchRequest {
	return ShellLaunchRequest{
		SessionName:          sessionName,
		WorkspacePath:        workspace.Path,
		Command:              command,
		WorkspaceInitCommand: initCommand,
		CaptureCols:          captureCols,
		CaptureRows:          captureRows,
	}
}

// BuildLaunchPlan plans the full agent launch without side effects.
func BuildLaunchPlan(request LaunchRequest) LaunchPlan {
	sessionName := SessionNameForWorkspaceInProject(request.ProjectName, request.WorkspaceName)
	agentCmd := BuildAgentCommand(request.Agent, request.SkipPermissions)
	launchCmd := commandWithWorkspaceInit(request.WorkspacePath, agentCmd, request.WorkspaceInitCommand)
	plan := tmuxLaunchPlan(request, sessionName, launchCmd)
	if resize := resizeWindowCommand(sessionName, request.CaptureCols, request.CaptureRows); resize != nil {
		plan.PreLaunchCmds = append(plan.PreLaunchCmds, resize)
	}
	return plan
}

// BuildShellLaunchPlan plans a helper session. An empty trimmed command leaves
// only the session-create pre-launch steps.
func BuildShellLaunchPlan(request ShellLaunchRequest) LaunchPlan {
	wrapped := commandWithWorkspaceInit(request.WorkspacePath, request.Command, request.WorkspaceInitCommand)
	shared := LaunchRequest{
		WorkspaceName: request.SessionName,
		WorkspacePath: request.WorkspacePath,
	}
	plan := tmuxLaunchPlan(shared, request.SessionName, wrapped)
	if resize := resizeWindowCommand(request.SessionName, request.CaptureCols, request.CaptureRows); resize != nil {
		plan.PreLaunchCmds = append(plan.PreLaunchCmds, resize)
	}
	if strings.TrimSpace(wrapped) == "" {
		plan.LaunchCmd = nil
	}
	return plan
}

func tmuxLaunchPlan(request LaunchRequest, sessionName, launchAgentCmd string) LaunchPlan {
	preLaunch := [][]string{
		{"tmux", "new-session", "-d", "-s", sessionName, "-c", request.WorkspacePath},
		{"tmux", "set-option", "-t", sessionName, "history-limit", strconv.Itoa(sessionHistoryLimit)},
	}
	if envCmd := agentEnvCommand(request.AgentEnv); envCmd != "" {
		preLaunch = append(preLaunch, []string{"tmux", "send-keys", "-t", sessionName, envCmd, "Enter"})
	}
	paneLookup := []string{"tmux", "list-panes", "-t", sessionName, "-F", "#{pane_id}"}

	if request.Prompt == "" {
		return LaunchPlan{
			SessionName:   sessionName,
			PaneLookupCmd: paneLookup,
			PreLaunchCmds: preLaunch,
			LaunchCmd:     []string{"tmux", "send-keys", "-t", sessionName, launchAgentCmd, "Enter"},
		}
	}

	launcherPath := filepath.Join(request.WorkspacePath, launcherScriptRelPath)
	return LaunchPlan{
		SessionName:   sessionName,
		PaneLookupCmd: paneLookup,
		PreLaunchCmds: preLaunch,
		LaunchCmd:     []string{"tmux", "send-keys", "-t", sessionName, "bash " + launcherPath, "Enter"},
		LauncherScript: &LauncherScript{
			Path:     launcherPath,
			Contents: launcherScript(launchAgentCmd, request.Prompt, launcherPath),
		},
	}
}

// StopPlan is the two-step sequence that interrupts and kills a session.
func StopPlan(sessionName string) [][]string {
	return [][]string{
		{"tmux", "send-keys", "-t", sessionName, "C-c"},
		{"tmux", "kill-session", "-t", sessionName},
	}
}

// AgentEnvExportCommand renders a single-quoted export line for the agent's
// environment, or "" when no variables are set.
func AgentEnvExportCommand(agentEnv [][2]string) string {
	return agentEnvCommand(agentEnv)
}

// agentEnvCommand renders a single-quoted export line for the agent's
// environment, or "" when no variables are set.
func agentEnvCommand(agentEnv [][2]string) string {
	if len(agentEnv) == 0 {
		return ""
	}
	exports := make([]string, 0, len(agentEnv))
	for _, kv := range agentEnv {
		exports = append(exports, kv[0]+"="+shellQuote(kv[1]))
	}
	return "export " + strings.Join(exports, " ")
}

// shellQuote single-quotes a value, escaping embedded quotes as '"'"'.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func resizeWindowCommand(sessionName string, cols, rows int) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	return []string{"tmux", "resize-window", "-t", sessionName,
		"-x", strconv.Itoa(cols), "-y", strconv.Itoa(rows)}
}

// BuildAgentCommand resolves the command that starts an agent, honoring the
// per-agent environment override.
func BuildAgentCommand(agent domain.AgentType, skipPermissions bool) string {
	if override := strings.TrimSpace(os.Getenv(agent.CommandOverrideEnvVar())); override != "" {
		return override
	}
	return defaultAgentCommand(agent, skipPermissions)
}

func defaultAgentCommand(agent domain.AgentType, skipPermissions bool) string {
	switch {
	case agent == domain.AgentClaude && skipPermissions:
		return "claude --dangerously-skip-permissions"
	case agent == domain.AgentClaude:
		return "claude"
	case agent == domain.AgentCodex && skipPermissions:
		return "codex --dangerously-bypass-approvals-and-sandbox"
	case agent == domain.AgentCodex:
		return "codex"
	case agent == domain.AgentOpenCode && skipPermissions:
		return fmt.Sprintf("OPENCODE_PERMISSION='%s' opencode", openCodeUnsafePermissionJSON)
	default:
		return "opencode"
	}
}
