package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/tmux"
	"github.com/mvessia/grove/internal/util"
)

// workspaceView is the envelope projection of a workspace.
type workspaceView struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ProjectName string `json:"project_name,omitempty"`
	Branch      string `json:"branch"`
	BaseBranch  string `json:"base_branch,omitempty"`
	Agent       string `json:"agent"`
	Status      string `json:"status"`
	IsMain      bool   `json:"is_main"`
	IsOrphaned  bool   `json:"is_orphaned"`
}

func viewFromWorkspace(workspace domain.Workspace) workspaceView {
	return workspaceView{
		Name:        workspace.Name,
		Path:        workspace.Path,
		ProjectName: workspace.ProjectName,
		Branch:      workspace.Branch,
		BaseBranch:  workspace.BaseBranch,
		Agent:       workspace.Agent.String(),
		Status:      workspace.Status.String(),
		IsMain:      workspace.IsMain,
		IsOrphaned:  workspace.IsOrphaned,
	}
}

type workspaceMutationResult struct {
	Workspace workspaceView `json:"workspace"`
	Warnings  []string      `json:"warnings,omitempty"`
	DryRun    bool          `json:"dry_run,omitempty"`
}

var (
	workspaceRepoFlag     string
	workspaceNameFlag     string
	workspacePathFlag     string
	workspaceBaseFlag     string
	workspaceExistingFlag string
	workspaceAgentFlag    string
	workspaceStartFlag    bool
	workspaceDryRunFlag   bool
	deleteBranchFlag      bool
	forceStopFlag         bool
	cleanupWorkspaceFlag  bool
	cleanupBranchFlag     bool
)

func newService() *command.LifecycleService {
	return command.NewLifecycleService(tmux.NewTmux())
}

func workspaceSelector() command.Selector {
	return command.Selector{
		Name: workspaceNameFlag,
		Path: util.ExpandHome(workspacePathFlag),
	}
}

func repoContext() command.RepoContext {
	return command.RepoContext{RepoRoot: util.ExpandHome(workspaceRepoFlag)}
}

func agentFlagValue() (*domain.AgentType, error) {
	if workspaceAgentFlag == "" {
		return nil, nil
	}
	agent, err := domain.ParseAgentType(workspaceAgentFlag)
	if err != nil {
		return nil, &command.Error{Code: command.CodeInvalidArgument, Message: err.Error()}
	}
	return &agent, nil
}

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	GroupID: GroupWorkspace,
	Short:   "Manage git-worktree workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces in a repository",
	Long: `List the main worktree and every grove workspace of a repository.

Examples:
  grove workspace list --repo ~/code/api`,
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := newService().WorkspaceList(command.WorkspaceListRequest{Context: repoContext()})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "pass --repo pointing at a git repository"))
			return nil
		}
		views := make([]workspaceView, 0, len(response.Workspaces))
		for _, workspace := range response.Workspaces {
			views = append(views, viewFromWorkspace(workspace))
		}
		exitCode = emitJSON(successEnvelope(map[string]any{"workspaces": views}))
		return nil
	},
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a workspace on a new or existing branch",
	Long: `Create a git worktree with grove markers and an agent assignment.

Pass exactly one of --base (new branch from base) or --existing-branch.

Examples:
  grove workspace create --repo ~/code/api --workspace feature-a --base main
  grove workspace create --repo ~/code/api --workspace review --existing-branch pr-42 --agent codex --start`,
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := agentFlagValue()
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "agent must be claude or codex"))
			return nil
		}
		response, err := newService().WorkspaceCreate(command.WorkspaceCreateRequest{
			Context:        repoContext(),
			Name:           workspaceNameFlag,
			BaseBranch:     workspaceBaseFlag,
			ExistingBranch: workspaceExistingFlag,
			Agent:          agent,
			Start:          workspaceStartFlag,
			DryRun:         workspaceDryRunFlag,
		})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "pass --workspace plus --base or --existing-branch"))
			return nil
		}
		result := workspaceMutationResult{
			Workspace: viewFromWorkspace(response.Workspace),
			Warnings:  response.Warnings,
			DryRun:    workspaceDryRunFlag,
		}
		if workspaceStartFlag && !workspaceDryRunFlag {
			if _, startErr := newService().AgentStart(command.AgentStartRequest{
				Context:       repoContext(),
				Selector:      command.Selector{Name: response.Workspace.Name},
				WorkspaceHint: &response.Workspace,
			}); startErr != nil {
				result.Warnings = append(result.Warnings, "agent start failed: "+startErr.Error())
			}
		}
		exitCode = emitJSON(successEnvelope(result))
		return nil
	},
}

var workspaceEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Change a workspace's agent or base branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := agentFlagValue()
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "agent must be claude or codex"))
			return nil
		}
		response, err := newService().WorkspaceEdit(command.WorkspaceEditRequest{
			Context:    repoContext(),
			Selector:   workspaceSelector(),
			Agent:      agent,
			BaseBranch: workspaceBaseFlag,
		})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "pass --agent or --base"))
			return nil
		}
		exitCode = emitJSON(successEnvelope(workspaceMutationResult{
			Workspace: viewFromWorkspace(response.Workspace),
			Warnings:  response.Warnings,
		}))
		return nil
	},
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a workspace and optionally its branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := newService().WorkspaceDelete(command.WorkspaceDeleteRequest{
			Context:      repoContext(),
			Selector:     workspaceSelector(),
			DeleteBranch: deleteBranchFlag,
			ForceStop:    forceStopFlag,
			DryRun:       workspaceDryRunFlag,
		})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "commit or stash changes in the workspace first"))
			return nil
		}
		exitCode = emitJSON(successEnvelope(workspaceMutationResult{
			Workspace: viewFromWorkspace(response.Workspace),
			Warnings:  response.Warnings,
			DryRun:    workspaceDryRunFlag,
		}))
		return nil
	},
}

var workspaceMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a workspace branch into its base",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := newService().WorkspaceMerge(command.WorkspaceMergeRequest{
			Context:          repoContext(),
			Selector:         workspaceSelector(),
			CleanupWorkspace: cleanupWorkspaceFlag,
			CleanupBranch:    cleanupBranchFlag,
			DryRun:           workspaceDryRunFlag,
		})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "resolve conflicts in the base worktree then retry"))
			return nil
		}
		exitCode = emitJSON(successEnvelope(workspaceMutationResult{
			Workspace: viewFromWorkspace(response.Workspace),
			Warnings:  response.Warnings,
			DryRun:    workspaceDryRunFlag,
		}))
		return nil
	},
}

var workspaceUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Merge the base branch into a workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := newService().WorkspaceUpdate(command.WorkspaceUpdateRequest{
			Context:  repoContext(),
			Selector: workspaceSelector(),
			DryRun:   workspaceDryRunFlag,
		})
		if err != nil {
			exitCode = emitJSON(errorEnvelope(err, "resolve conflicts in the workspace then retry"))
			return nil
		}
		exitCode = emitJSON(successEnvelope(workspaceMutationResult{
			Workspace: viewFromWorkspace(response.Workspace),
			Warnings:  response.Warnings,
			DryRun:    workspaceDryRunFlag,
		}))
		return nil
	},
}

func init() {
	for _, sub := range []*cobra.Command{
		workspaceListCmd, workspaceCreateCmd, workspaceEditCmd,
		workspaceDeleteCmd, workspaceMergeCmd, workspaceUpdateCmd,
	} {
		sub.Flags().StringVar(&workspaceRepoFlag, "repo", ".", "repository root")
		workspaceCmd.AddCommand(sub)
	}
	for _, sub := range []*cobra.Command{
		workspaceCreateCmd, workspaceEditCmd, workspaceDeleteCmd,
		workspaceMergeCmd, workspaceUpdateCmd,
	} {
		sub.Flags().StringVar(&workspaceNameFlag, "workspace", "", "workspace name")
		sub.Flags().StringVar(&workspacePathFlag, "workspace-path", "", "workspace path")
	}
	workspaceCreateCmd.Flags().StringVar(&workspaceBaseFlag, "base", "", "base branch for a new branch")
	workspaceCreateCmd.Flags().StringVar(&workspaceExistingFlag, "existing-branch", "", "existing branch to reuse")
	workspaceCreateCmd.Flags().StringVar(&workspaceAgentFlag, "agent", "", "agent (claude|codex)")
	workspaceCreateCmd.Flags().BoolVar(&workspaceStartFlag, "start", false, "start the agent after create")
	workspaceCreateCmd.Flags().BoolVar(&workspaceDryRunFlag, "dry-run", false, "plan without executing")
	workspaceEditCmd.Flags().StringVar(&workspaceBaseFlag, "base", "", "new base branch")
	workspaceEditCmd.Flags().StringVar(&workspaceAgentFlag, "agent", "", "agent (claude|codex)")
	workspaceDeleteCmd.Flags().BoolVar(&deleteBranchFlag, "delete-branch", false, "delete the local branch too")
	workspaceDeleteCmd.Flags().BoolVar(&forceStopFlag, "force-stop", false, "stop sessions before deleting")
	workspaceDeleteCmd.Flags().BoolVar(&workspaceDryRunFlag, "dry-run", false, "plan without executing")
	workspaceMergeCmd.Flags().BoolVar(&cleanupWorkspaceFlag, "cleanup-workspace", false, "delete the workspace after merge")
	workspaceMergeCmd.Flags().BoolVar(&cleanupBranchFlag, "cleanup-branch", false, "delete the branch after merge")
	workspaceMergeCmd.Flags().BoolVar(&workspaceDryRunFlag, "dry-run", false, "plan without executing")
	workspaceUpdateCmd.Flags().BoolVar(&workspaceDryRunFlag, "dry-run", false, "plan without executing")

	rootCmd.AddCommand(workspaceCmd)
}
