package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mvessia/grove/internal/command"
)

var (
	agentRepoFlag            string
	agentWorkspaceFlag       string
	agentWorkspacePathFlag   string
	agentPromptFlag          string
	agentPreLaunchFlag       string
	agentSkipPermissionsFlag bool
	agentDryRunFlag          bool
)

type agentMutationResult struct {
	Workspace workspaceView `json:"workspace"`
	Status    string        `json:"status"`
	Warnings  []string      `json:"warnings,omitempty"`
	DryRun    bool          `json:"dry_run,omitempty"`
}

var agentCmd = &cobra.Command{
	Use:     "agent",
	GroupID: GroupAgent,
	Short:   "Start and stop workspace agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// terminalCaptureGeometry probes the current terminal so launched sessions
// match the operator's viewport.
func terminalCaptureGeometry() (cols, rows int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 0, 0
	}
	return width, height
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch the workspace's agent session",
	Long: `Launch the workspace's agent in a detached tmux session.

Examples:
  grove agent start --workspace feature-a
  grove agent start --workspace feature-a --prompt "fix the failing tests" --skip-permissions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cols, rows := terminalCaptureGeometry()
		response, err := newService().AgentStart(command.AgentStartRequest{
			Context:          command.RepoContext{RepoRoot: agentRepoFlag},
			Selector:         command.Selector{Name: agentWorkspaceFlag, Path: agentWorkspacePathFlag},
			Prompt:           agentPromptFlag,
			PreLaunchCommand: agentPreLaunchFlag,
			SkipPermissions:  agentSkipPermissionsFlag,
			CaptureCols:      cols,
			CaptureRows:      rows,
			DryRun:           agentDryRunFlag,
		})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "check that the workspace exists and tmux is installed"))
			return nil
		}
		exitCode = emitJSON(successEnvelope(agentMutationResult{
			Workspace: viewFromWorkspace(response.Workspace),
			Status:    response.Status.String(),
			Warnings:  response.Warnings,
			DryRun:    agentDryRunFlag,
		}))
		return nil
	},
}

var agentStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the workspace's agent session",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := newService().AgentStop(command.AgentStopRequest{
			Context:  command.RepoContext{RepoRoot: agentRepoFlag},
			Selector: command.Selector{Name: agentWorkspaceFlag, Path: agentWorkspacePathFlag},
			DryRun:   agentDryRunFlag,
		})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "check that the workspace exists"))
			return nil
		}
		exitCode = emitJSON(successEnvelope(agentMutationResult{
			Workspace: viewFromWorkspace(response.Workspace),
			Status:    response.Status.String(),
			Warnings:  response.Warnings,
			DryRun:    agentDryRunFlag,
		}))
		return nil
	},
}

func init() {
	for _, sub := range []*cobra.Command{agentStartCmd, agentStopCmd} {
		sub.Flags().StringVar(&agentRepoFlag, "repo", ".", "repository root")
		sub.Flags().StringVar(&agentWorkspaceFlag, "workspace", "", "workspace name")
		sub.Flags().StringVar(&agentWorkspacePathFlag, "workspace-path", "", "workspace path")
		sub.Flags().BoolVar(&agentDryRunFlag, "dry-run", false, "predict without executing")
		agentCmd.AddCommand(sub)
	}
	agentStartCmd.Flags().StringVar(&agentPromptFlag, "prompt", "", "initial prompt for the agent")
	agentStartCmd.Flags().StringVar(&agentPreLaunchFlag, "pre-launch", "", "workspace init command run before the agent")
	agentStartCmd.Flags().BoolVar(&agentSkipPermissionsFlag, "skip-permissions", false, "pass the agent's skip-permissions flag")

	rootCmd.AddCommand(agentCmd)
}
