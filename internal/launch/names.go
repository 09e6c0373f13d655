// Package launch composes the multiplexer command sequences that start, stop,
// and restart agent and shell sessions. Plans are pure data; executing them is
// the runtime's job.
package launch

import (
	"strings"

	"github.com/mvessia/grove/internal/domain"
)

// Session name prefixes. Agent, shell, and git helper sessions use distinct
// prefixes over the same workspace name so they never collide.
const (
	sessionPrefix      = "grove-ws-"
	shellSessionPrefix = "grove-sh-"
	gitSessionPrefix   = "grove-git-"
)

// sanitizeSessionComponent maps arbitrary text onto the tmux-safe charset
// [A-Za-z0-9_-].
func sanitizeSessionComponent(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func sessionNameWithPrefix(prefix, projectName, workspaceName string) string {
	workspace := sanitizeSessionComponent(workspaceName)
	if projectName == "" {
		return prefix + workspace
	}
	return prefix + sanitizeSessionComponent(projectName) + "-" + workspace
}

// SessionNameForWorkspaceInProject derives the deterministic agent session
// name for a workspace, optionally scoped by project.
func SessionNameForWorkspaceInProject(projectName, workspaceName string) string {
	return sessionNameWithPrefix(sessionPrefix, projectName, workspaceName)
}

// SessionNameForWorkspace derives the agent session name for a workspace.
func SessionNameForWorkspace(workspace domain.Workspace) string {
	return SessionNameForWorkspaceInProject(workspace.ProjectName, workspace.Name)
}

// ShellSessionNameForWorkspace derives the helper shell session name.
func ShellSessionNameForWorkspace(workspace domain.Workspace) string {
	return sessionNameWithPrefix(shellSessionPrefix, workspace.ProjectName, workspace.Name)
}

// GitSessionNameForWorkspace derives the lazygit helper session name.
func GitSessionNameForWorkspace(workspace domain.Workspace) string {
	return sessionNameWithPrefix(gitSessionPrefix, workspace.ProjectName, workspace.Name)
}
