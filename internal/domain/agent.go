// Package domain defines the core Grove entities: workspaces, agents,
// statuses, and pull requests.
package domain

import "fmt"

// AgentType identifies which coding agent runs inside a workspace session.
type AgentType int

const (
	AgentClaude AgentType = iota
	AgentCodex
	AgentOpenCode
)

// agentNames maps agent types to their marker-file labels.
var agentNames = map[AgentType]string{
	AgentClaude:   "claude",
	AgentCodex:    "codex",
	AgentOpenCode: "opencode",
}

// String returns the canonical lowercase label used in marker files and CLI flags.
func (a AgentType) String() string {
	if name, ok := agentNames[a]; ok {
		return name
	}
	return fmt.Sprintf("agent(%d)", int(a))
}

// ParseAgentType parses a marker-file label into an AgentType.
func ParseAgentType(value string) (AgentType, error) {
	for agent, name := range agentNames {
		if name == value {
			return agent, nil
		}
	}
	return AgentClaude, fmt.Errorf("unknown agent %q", value)
}

// CommandOverrideEnvVar names the environment variable that overrides the
// agent's launch command.
func (a AgentType) CommandOverrideEnvVar() string {
	switch a {
	case AgentCodex:
		return "GROVE_CODEX_COMMAND"
	case AgentOpenCode:
		return "GROVE_OPENCODE_COMMAND"
	default:
		return "GROVE_CLAUDE_COMMAND"
	}
}

// SupportsStatusDetection reports whether a marker catalog exists for the
// agent's terminal output. OpenCode has none, so its workspaces surface as
// Unsupported rather than guessing.
func (a AgentType) SupportsStatusDetection() bool {
	return a == AgentClaude || a == AgentCodex
}

// SupportsRestartInPane reports whether the agent can be relaunched inside an
// existing pane without recreating the session.
func (a AgentType) SupportsRestartInPane() bool {
	return a == AgentClaude || a == AgentCodex
}
