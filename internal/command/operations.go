package command

import (
	"path/filepath"

	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/launch"
	"github.com/mvessia/grove/internal/lifecycle"
	"github.com/mvessia/grove/internal/runtime"
)

func (s *LifecycleService) WorkspaceList(request WorkspaceListRequest) (WorkspaceListResponse, error) {
	workspaces, err := ListWorkspacesInRepo(request.Context.RepoRoot)
	if err != nil {
		return WorkspaceListResponse{}, err
	}
	return WorkspaceListResponse{Workspaces: workspaces}, nil
}

func (s *LifecycleService) WorkspaceCreate(request WorkspaceCreateRequest) (WorkspaceMutationResponse, error) {
	branchMode, err := createBranchMode(request.BaseBranch, request.ExistingBranch)
	if err != nil {
		return WorkspaceMutationResponse{}, err
	}
	agent := domain.AgentClaude
	if request.Agent != nil {
		agent = *request.Agent
	}
	createRequest := lifecycle.CreateRequest{
		WorkspaceName: request.Name,
		BranchMode:    branchMode,
		Agent:         agent,
	}
	if err := createRequest.Validate(); err != nil {
		return WorkspaceMutationResponse{}, classifyLifecycleError(err)
	}

	if request.DryRun {
		workspace, err := workspaceFromCreateInputs(request.Context.RepoRoot, createRequest)
		if err != nil {
			return WorkspaceMutationResponse{}, err
		}
		return WorkspaceMutationResponse{Workspace: workspace}, nil
	}

	result, err := lifecycle.CreateWorkspace(request.Context.RepoRoot, createRequest,
		s.GitRunner, s.ScriptRunner, s.CommandRunner, request.SetupTemplate)
	if err != nil {
		return WorkspaceMutationResponse{}, classifyLifecycleError(err)
	}

	workspace, buildErr := workspaceFromCreateInputs(request.Context.RepoRoot, createRequest)
	if buildErr != nil {
		return WorkspaceMutationResponse{}, buildErr
	}
	workspace.Path = result.WorkspacePath
	workspace.Branch = result.Branch
	return WorkspaceMutationResponse{Workspace: workspace, Warnings: result.Warnings}, nil
}

func (s *LifecycleService) WorkspaceEdit(request WorkspaceEditRequest) (WorkspaceMutationResponse, error) {
	workspace, err := s.resolve(request.Context, request.Selector)
	if err != nil {
		return WorkspaceMutationResponse{}, err
	}
	if request.Agent == nil && request.BaseBranch == "" {
		return WorkspaceMutationResponse{}, newError(CodeInvalidArgument,
			"workspace edit requires --agent or --base")
	}
	if request.Agent != nil {
		if err := lifecycle.WriteAgentMarker(workspace.Path, *request.Agent); err != nil {
			return WorkspaceMutationResponse{}, classifyLifecycleError(err)
		}
		workspace.Agent = *request.Agent
		workspace.SupportedAgent = request.Agent.SupportsStatusDetection()
	}
	if request.BaseBranch != "" {
		if err := lifecycle.WriteBaseMarker(workspace.Path, request.BaseBranch); err != nil {
			return WorkspaceMutationResponse{}, classifyLifecycleError(err)
		}
		workspace.BaseBranch = request.BaseBranch
	}
	return WorkspaceMutationResponse{Workspace: workspace}, nil
}

func (s *LifecycleService) WorkspaceDelete(request WorkspaceDeleteRequest) (WorkspaceMutationResponse, error) {
	workspace, err := s.resolve(request.Context, request.Selector)
	if err != nil {
		return WorkspaceMutationResponse{}, err
	}
	if workspace.IsMain {
		return WorkspaceMutationResponse{}, newError(CodeInvalidArgument,
			"the main workspace cannot be deleted")
	}
	if request.DryRun {
		return WorkspaceMutationResponse{Workspace: workspace}, nil
	}

	deleteErr, warnings := lifecycle.DeleteWorkspace(lifecycle.DeleteRequest{
		ProjectName:       workspace.ProjectName,
		ProjectPath:       workspace.ProjectPath,
		WorkspaceName:     workspace.Name,
		Branch:            workspace.Branch,
		WorkspacePath:     workspace.Path,
		IsMissing:         workspace.IsOrphaned,
		DeleteLocalBranch: request.DeleteBranch,
		KillSessions:      request.ForceStop,
	}, s.GitRunner, s.Terminator)
	if deleteErr != nil {
		return WorkspaceMutationResponse{}, classifyRuntimeMessage(deleteErr.Error())
	}
	return WorkspaceMutationResponse{Workspace: workspace, Warnings: warnings}, nil
}

func (s *LifecycleService) WorkspaceMerge(request WorkspaceMergeRequest) (WorkspaceMutationResponse, error) {
	workspace, err := s.resolve(request.Context, request.Selector)
	if err != nil {
		return WorkspaceMutationResponse{}, err
	}
	if workspace.IsMain {
		return WorkspaceMutationResponse{}, newError(CodeInvalidArgument,
			"the main workspace cannot be merged")
	}
	base, err := s.workspaceBaseBranch(workspace)
	if err != nil {
		return WorkspaceMutationResponse{}, err
	}
	if request.DryRun {
		return WorkspaceMutationResponse{Workspace: workspace}, nil
	}

	mergeErr, warnings := lifecycle.MergeWorkspace(lifecycle.MergeRequest{
		ProjectName:        workspace.ProjectName,
		ProjectPath:        workspace.ProjectPath,
		WorkspaceName:      workspace.Name,
		WorkspaceBranch:    workspace.Branch,
		WorkspacePath:      workspace.Path,
		BaseBranch:         base,
		CleanupWorkspace:   request.CleanupWorkspace,
		CleanupLocalBranch: request.CleanupBranch,
	}, s.GitRunner, s.Terminator)
	if mergeErr != nil {
		return WorkspaceMutationResponse{}, classifyRuntimeMessage(mergeErr.Error())
	}
	return WorkspaceMutationResponse{Workspace: workspace, Warnings: warnings}, nil
}

func (s *LifecycleService) WorkspaceUpdate(request WorkspaceUpdateRequest) (WorkspaceMutationResponse, error) {
	workspace, err := s.resolve(request.Context, request.Selector)
	if err != nil {
		return WorkspaceMutationResponse{}, err
	}
	base, err := s.workspaceBaseBranch(workspace)
	if err != nil {
		return WorkspaceMutationResponse{}, err
	}
	if request.DryRun {
		return WorkspaceMutationResponse{Workspace: workspace}, nil
	}

	updateErr, warnings := lifecycle.UpdateWorkspaceFromBase(lifecycle.UpdateFromBaseRequest{
		ProjectName:     workspace.ProjectName,
		ProjectPath:     workspace.ProjectPath,
		WorkspaceName:   workspace.Name,
		WorkspaceBranch: workspace.Branch,
		WorkspacePath:   workspace.Path,
		BaseBranch:      base,
	}, s.GitRunner, s.Terminator)
	if updateErr != nil {
		return WorkspaceMutationResponse{}, classifyRuntimeMessage(updateErr.Error())
	}
	return WorkspaceMutationResponse{Workspace: workspace, Warnings: warnings}, nil
}

func (s *LifecycleService) AgentStart(request AgentStartRequest) (AgentMutationResponse, error) {
	return s.AgentStartForMode(request, runtime.ProcessMode())
}

// AgentStartForMode starts the workspace agent, routing plan commands through
// the given execution mode. Dry runs never execute; they return the predicted
// transition.
func (s *LifecycleService) AgentStartForMode(request AgentStartRequest, mode runtime.ExecutionMode) (AgentMutationResponse, error) {
	workspace, err := s.resolveWithHint(request.Context, request.Selector, request.WorkspaceHint)
	if err != nil {
		return AgentMutationResponse{}, err
	}

	if request.DryRun {
		return AgentMutationResponse{Workspace: workspace, Status: domain.StatusActive}, nil
	}

	launchRequest := launch.RequestForWorkspace(workspace, request.Prompt,
		request.PreLaunchCommand, request.SkipPermissions, nil,
		request.CaptureCols, request.CaptureRows)
	result := s.Executor.ExecuteLaunchRequest(launchRequest, mode)
	if !result.OK() {
		return AgentMutationResponse{}, classifyRuntimeMessage(result.Err)
	}
	workspace.Status = result.Status
	workspace.IsOrphaned = false
	return AgentMutationResponse{Workspace: workspace, Status: result.Status, Warnings: result.Warnings}, nil
}

func (s *LifecycleService) AgentStop(request AgentStopRequest) (AgentMutationResponse, error) {
	return s.AgentStopForMode(request, runtime.ProcessMode())
}

// AgentStopForMode stops the workspace agent through the given execution
// mode. A missing session is already-stopped, not an error.
func (s *LifecycleService) AgentStopForMode(request AgentStopRequest, mode runtime.ExecutionMode) (AgentMutationResponse, error) {
	workspace, err := s.resolveWithHint(request.Context, request.Selector, request.WorkspaceHint)
	if err != nil {
		return AgentMutationResponse{}, err
	}

	stopped := domain.StatusIdle
	if workspace.IsMain {
		stopped = domain.StatusMain
	}
	if request.DryRun {
		return AgentMutationResponse{Workspace: workspace, Status: stopped}, nil
	}

	result := s.Executor.ExecuteStop(workspace, mode)
	if !result.OK() {
		return AgentMutationResponse{}, classifyRuntimeMessage(result.Err)
	}
	workspace.Status = result.Status
	return AgentMutationResponse{Workspace: workspace, Status: result.Status, Warnings: result.Warnings}, nil
}

func (s *LifecycleService) resolve(context RepoContext, selector Selector) (domain.Workspace, error) {
	workspaces, err := ListWorkspacesInRepo(context.RepoRoot)
	if err != nil {
		return domain.Workspace{}, err
	}
	return ResolveWorkspace(workspaces, selector)
}

// resolveWithHint lets the TUI pass its already-resolved workspace so agent
// operations act on the exact entity the user selected.
func (s *LifecycleService) resolveWithHint(context RepoContext, selector Selector, hint *domain.Workspace) (domain.Workspace, error) {
	if hint != nil {
		return *hint, nil
	}
	return s.resolve(context, selector)
}

// workspaceBaseBranch prefers the in-memory base and falls back to the
// marker.
func (s *LifecycleService) workspaceBaseBranch(workspace domain.Workspace) (string, error) {
	if workspace.BaseBranch != "" {
		return workspace.BaseBranch, nil
	}
	markers, err := lifecycle.ReadMarkers(workspace.Path)
	if err != nil {
		return "", classifyLifecycleError(err)
	}
	return markers.BaseBranch, nil
}

func createBranchMode(baseBranch, existingBranch string) (lifecycle.BranchMode, error) {
	switch {
	case baseBranch != "" && existingBranch != "":
		return lifecycle.BranchMode{}, newError(CodeInvalidArgument,
			"pass either --base or --existing-branch, not both")
	case baseBranch != "":
		return lifecycle.NewBranchMode(baseBranch), nil
	case existingBranch != "":
		return lifecycle.ExistingBranchMode(existingBranch), nil
	default:
		return lifecycle.BranchMode{}, newError(CodeInvalidArgument,
			"workspace create requires --base or --existing-branch")
	}
}

func workspaceFromCreateInputs(repoRoot string, request lifecycle.CreateRequest) (domain.Workspace, error) {
	workspacePath, err := lifecycle.WorkspaceDirectoryPath(repoRoot, request.WorkspaceName)
	if err != nil {
		return domain.Workspace{}, classifyLifecycleError(err)
	}
	workspace, err := domain.NewWorkspace(request.WorkspaceName, workspacePath,
		request.BranchName(), request.Agent, domain.StatusIdle, false)
	if err != nil {
		return domain.Workspace{}, newError(CodeInternal, "workspace validation failed: %v", err)
	}
	workspace = workspace.WithBaseBranch(request.MarkerBaseBranch())
	if repoName := filepath.Base(filepath.Clean(repoRoot)); repoName != "." && repoName != "" {
		workspace = workspace.WithProjectContext(repoName, repoRoot)
	}
	return workspace, nil
}
