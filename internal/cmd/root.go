package cmd

import (
	"github.com/spf13/cobra"
)

// Command groups shown in help.
const (
	GroupWorkspace = "workspace"
	GroupAgent     = "agent"
	GroupUI        = "ui"
)

var rootCmd = &cobra.Command{
	Use:   "grove",
	Short: "Orchestrate parallel coding-agent sessions in git worktrees",
	Long: `Grove pairs git worktrees with persistent tmux sessions running coding
agents (Claude, Codex, OpenCode), and drives them from a list+preview TUI.

Run 'grove tui' for the interactive interface, or use the workspace and
agent commands for scripting. Every non-TUI command emits a single JSON
envelope on stdout and exits 0 on success, nonzero on error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exitCode = emitJSON(rootCommandEnvelope())
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitCode is set by command runners and returned from Execute.
var exitCode int

// commandTreeEntry describes one command in the root envelope.
type commandTreeEntry struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Commands    []commandTreeEntry `json:"commands,omitempty"`
}

func rootCommandEnvelope() Envelope {
	return successEnvelope(commandTreeEntry{
		Name:        "grove",
		Description: "workspace orchestrator for coding agents",
		Commands: []commandTreeEntry{
			{
				Name:        "workspace",
				Description: "manage git-worktree workspaces",
				Commands: []commandTreeEntry{
					{Name: "list", Description: "list workspaces in a repository"},
					{Name: "create", Description: "create a workspace on a new or existing branch"},
					{Name: "edit", Description: "change a workspace's agent or base branch"},
					{Name: "delete", Description: "delete a workspace and optionally its branch"},
					{Name: "merge", Description: "merge a workspace branch into its base"},
					{Name: "update", Description: "merge the base branch into a workspace"},
				},
			},
			{
				Name:        "agent",
				Description: "start and stop workspace agents",
				Commands: []commandTreeEntry{
					{Name: "start", Description: "launch the workspace's agent session"},
					{Name: "stop", Description: "stop the workspace's agent session"},
				},
			},
			{Name: "tui", Description: "run the interactive list+preview interface"},
			{Name: "daemon", Description: "serve the unix-socket RPC for remote hosts"},
		},
	})
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupWorkspace, Title: "Workspace Commands:"},
		&cobra.Group{ID: GroupAgent, Title: "Agent Commands:"},
		&cobra.Group{ID: GroupUI, Title: "Interface Commands:"},
	)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return emitJSON(errorEnvelope(err, "run 'grove --help' for usage"))
	}
	return exitCode
}
