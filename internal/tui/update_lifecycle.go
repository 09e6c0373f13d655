package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/launch"
	"github.com/mvessia/grove/internal/runtime"
)

// dispatchRefreshWorkspaces reloads the workspace inventory in the
// background, preserving engine-derived state on merge.
func (m *Model) dispatchRefreshWorkspaces() Cmd {
	if m.flags.refresh {
		return nil
	}
	m.flags.refresh = true
	repoRoot := m.repoRoot
	return taskCmd(func() tea.Msg {
		workspaces, err := command.ListWorkspacesInRepo(repoRoot)
		msg := RefreshWorkspacesCompletedMsg{Workspaces: workspaces}
		if err != nil {
			msg.Err = err.Error()
		}
		return msg
	})
}

func (m *Model) handleRefreshWorkspacesCompleted(msg RefreshWorkspacesCompletedMsg) {
	m.flags.refresh = false
	if msg.Err != "" {
		m.showToast("workspace refresh failed: "+msg.Err, ToastError)
		return
	}

	selectedPath := ""
	if workspace := m.selectedWorkspace(); workspace != nil {
		selectedPath = workspace.Path
	}

	// Engine-observed state survives the refresh; the filesystem only knows
	// identity.
	previous := make(map[string]domain.Workspace, len(m.workspaces))
	for _, workspace := range m.workspaces {
		previous[workspace.Path] = workspace
	}
	for i := range msg.Workspaces {
		if old, ok := previous[msg.Workspaces[i].Path]; ok {
			msg.Workspaces[i].Status = old.Status
			msg.Workspaces[i].IsOrphaned = old.IsOrphaned
			msg.Workspaces[i].PullRequests = old.PullRequests
		}
	}
	m.workspaces = msg.Workspaces

	if selectedPath != "" {
		if index := m.workspaceIndexByPath(selectedPath); index >= 0 {
			m.selectedIndex = index
		}
	}
	if m.selectedIndex >= len(m.workspaces) {
		m.selectedIndex = len(m.workspaces) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	m.reconcileAttentionTracking()
	m.refreshPreviewSummary()
}

// dispatchStartAgent launches the selected workspace's agent.
func (m *Model) dispatchStartAgent(workspace domain.Workspace, prompt string, skipPermissions bool) Cmd {
	if m.flags.start {
		m.showToast("agent start already in progress", ToastError)
		return nil
	}
	m.flags.start = true

	initCommand := ""
	if project, ok := m.cfg.ProjectByName(workspace.ProjectName); ok {
		initCommand = project.WorkspaceInitCommand
	}
	cols, rows := m.previewViewportSize()
	request := launch.RequestForWorkspace(workspace, prompt, initCommand, skipPermissions, nil, cols, rows)
	executor := m.executor

	if !m.mux.SupportsBackgroundLaunch() {
		result := executor.ExecuteLaunchRequest(request, runtime.DelegatingMode(m.mux.Execute))
		return func() tea.Msg { return StartAgentCompletedMsg{Completion: sessionCompletionFrom(workspace, result)} }
	}
	return taskCmd(func() tea.Msg {
		result := executor.ExecuteLaunchRequest(request, runtime.ProcessMode())
		return StartAgentCompletedMsg{Completion: sessionCompletionFrom(workspace, result)}
	})
}

func sessionCompletionFrom(workspace domain.Workspace, result runtime.SessionExecutionResult) SessionCompletion {
	return SessionCompletion{
		WorkspaceName: workspace.Name,
		WorkspacePath: workspace.Path,
		SessionName:   result.SessionName,
		Status:        result.Status,
		Warnings:      result.Warnings,
		Err:           result.Err,
	}
}

func (m *Model) handleStartAgentCompleted(completion SessionCompletion) {
	m.flags.start = false
	if completion.Err != "" {
		m.showToast("agent start failed: "+completion.Err, ToastError)
		m.lastTmuxError = completion.Err
		m.logEvent("agent", "start_failed", map[string]any{
			"workspace": completion.WorkspaceName,
			"error":     completion.Err,
		})
		return
	}
	if index := m.workspaceIndexByPath(completion.WorkspacePath); index >= 0 {
		previous := m.workspaces[index].Status
		previousOrphaned := m.workspaces[index].IsOrphaned
		m.workspaces[index].Status = completion.Status
		m.workspaces[index].IsOrphaned = false
		m.trackStatusTransition(completion.WorkspacePath, previous, completion.Status, previousOrphaned, false)
	}
	m.showToast("agent started in "+completion.WorkspaceName, ToastSuccess)
	m.logEvent("agent", "start_completed", map[string]any{
		"workspace": completion.WorkspaceName,
		"session":   completion.SessionName,
	})
	m.sched.interactivePollDueAt = m.now()
}

// dispatchStopAgent stops the selected workspace's session.
func (m *Model) dispatchStopAgent(workspace domain.Workspace) Cmd {
	if m.flags.stop {
		m.showToast("agent stop already in progress", ToastError)
		return nil
	}
	m.flags.stop = true
	executor := m.executor

	if !m.mux.SupportsBackgroundLaunch() {
		result := executor.ExecuteStop(workspace, runtime.DelegatingMode(m.mux.Execute))
		return func() tea.Msg { return StopAgentCompletedMsg{Completion: sessionCompletionFrom(workspace, result)} }
	}
	return taskCmd(func() tea.Msg {
		result := executor.ExecuteStop(workspace, runtime.ProcessMode())
		return StopAgentCompletedMsg{Completion: sessionCompletionFrom(workspace, result)}
	})
}

func (m *Model) handleStopAgentCompleted(completion SessionCompletion) {
	m.flags.stop = false
	if completion.Err != "" {
		m.showToast("agent stop failed: "+completion.Err, ToastError)
		m.lastTmuxError = completion.Err
		return
	}
	if index := m.workspaceIndexByPath(completion.WorkspacePath); index >= 0 {
		previous := m.workspaces[index].Status
		previousOrphaned := m.workspaces[index].IsOrphaned
		m.workspaces[index].Status = completion.Status
		m.workspaces[index].IsOrphaned = false
		m.trackStatusTransition(completion.WorkspacePath, previous, completion.Status, previousOrphaned, false)
		m.clearStatusTrackingForWorkspacePath(completion.WorkspacePath)
	}
	if m.interactive != nil && m.interactive.targetSession == completion.SessionName {
		m.interactive = nil
	}
	m.showToast("agent stopped in "+completion.WorkspaceName, ToastInfo)
}

// dispatchRestartAgent relaunches the agent inside the existing pane.
func (m *Model) dispatchRestartAgent(workspace domain.Workspace, skipPermissions bool) Cmd {
	if m.flags.restart {
		m.showToast("agent restart already in progress", ToastError)
		return nil
	}
	if !workspace.Agent.SupportsRestartInPane() {
		m.showToast("agent does not support restart in pane", ToastError)
		return nil
	}
	m.flags.restart = true
	executor := m.executor
	return taskCmd(func() tea.Msg {
		result := executor.ExecuteRestartInPane(workspace, skipPermissions, nil)
		return RestartAgentCompletedMsg{Completion: sessionCompletionFrom(workspace, result)}
	})
}

func (m *Model) handleRestartAgentCompleted(completion SessionCompletion) {
	m.flags.restart = false
	if completion.Err != "" {
		m.showToast("agent restart failed: "+completion.Err, ToastError)
		return
	}
	if index := m.workspaceIndexByPath(completion.WorkspacePath); index >= 0 {
		m.workspaces[index].Status = completion.Status
	}
	m.showToast("agent restarted in "+completion.WorkspaceName, ToastSuccess)
}

// dispatchCreateWorkspace creates a workspace and optionally starts its
// agent afterward.
func (m *Model) dispatchCreateWorkspace(request command.WorkspaceCreateRequest) Cmd {
	if m.flags.create {
		m.showToast("workspace create already in progress", ToastError)
		return nil
	}
	m.flags.create = true
	service := m.service
	return taskCmd(func() tea.Msg {
		response, err := service.WorkspaceCreate(request)
		msg := CreateWorkspaceCompletedMsg{
			Completion: WorkspaceMutationCompletion{WorkspaceName: request.Name},
			Start:      request.Start,
		}
		if err != nil {
			msg.Completion.Err = err.Error()
			return msg
		}
		msg.Completion.WorkspacePath = response.Workspace.Path
		msg.Completion.Warnings = response.Warnings
		workspace := response.Workspace
		msg.Workspace = &workspace
		return msg
	})
}

func (m *Model) handleCreateWorkspaceCompleted(msg CreateWorkspaceCompletedMsg) Cmd {
	m.flags.create = false
	if msg.Completion.Err != "" {
		m.showToast("workspace create failed: "+msg.Completion.Err, ToastError)
		return nil
	}
	m.showToast("workspace "+msg.Completion.WorkspaceName+" created", ToastSuccess)
	for _, warning := range msg.Completion.Warnings {
		m.showToast(warning, ToastInfo)
	}
	cmds := []Cmd{m.dispatchRefreshWorkspaces()}
	if msg.Start && msg.Workspace != nil {
		cmds = append(cmds, m.dispatchStartAgent(*msg.Workspace, "", false))
	}
	return batchCmds(cmds...)
}

// dispatchDeleteWorkspace removes a workspace.
func (m *Model) dispatchDeleteWorkspace(workspace domain.Workspace, deleteBranch, forceStop bool) Cmd {
	if m.flags.delete {
		m.showToast("workspace delete already in progress", ToastError)
		return nil
	}
	m.flags.delete = true
	service := m.service
	request := command.WorkspaceDeleteRequest{
		Context:      command.RepoContext{RepoRoot: m.repoRoot},
		Selector:     command.Selector{Name: workspace.Name, Path: workspace.Path},
		DeleteBranch: deleteBranch,
		ForceStop:    forceStop,
	}
	return taskCmd(func() tea.Msg {
		response, err := service.WorkspaceDelete(request)
		completion := WorkspaceMutationCompletion{
			WorkspaceName: workspace.Name,
			WorkspacePath: workspace.Path,
		}
		if err != nil {
			completion.Err = err.Error()
		} else {
			completion.Warnings = response.Warnings
		}
		return DeleteWorkspaceCompletedMsg{Completion: completion}
	})
}

func (m *Model) handleDeleteWorkspaceCompleted(completion WorkspaceMutationCompletion) Cmd {
	m.flags.delete = false
	if completion.Err != "" {
		m.showToast("workspace delete failed: "+completion.Err, ToastError)
		return nil
	}
	m.showToast("workspace "+completion.WorkspaceName+" deleted", ToastSuccess)
	for _, warning := range completion.Warnings {
		m.showToast(warning, ToastInfo)
	}
	m.clearStatusTrackingForWorkspacePath(completion.WorkspacePath)
	return m.dispatchRefreshWorkspaces()
}

// dispatchMergeWorkspace merges the workspace branch into its base.
func (m *Model) dispatchMergeWorkspace(workspace domain.Workspace, cleanupWorkspace, cleanupBranch bool) Cmd {
	if m.flags.merge {
		m.showToast("workspace merge already in progress", ToastError)
		return nil
	}
	m.flags.merge = true
	service := m.service
	request := command.WorkspaceMergeRequest{
		Context:          command.RepoContext{RepoRoot: m.repoRoot},
		Selector:         command.Selector{Name: workspace.Name, Path: workspace.Path},
		CleanupWorkspace: cleanupWorkspace,
		CleanupBranch:    cleanupBranch,
	}
	return taskCmd(func() tea.Msg {
		response, err := service.WorkspaceMerge(request)
		completion := WorkspaceMutationCompletion{
			WorkspaceName: workspace.Name,
			WorkspacePath: workspace.Path,
		}
		if err != nil {
			completion.Err = err.Error()
		} else {
			completion.Warnings = response.Warnings
		}
		return MergeWorkspaceCompletedMsg{Completion: completion}
	})
}

func (m *Model) handleMergeWorkspaceCompleted(completion WorkspaceMutationCompletion) Cmd {
	m.flags.merge = false
	if completion.Err != "" {
		m.showToast(completion.Err, ToastError)
		return nil
	}
	m.showToast("workspace "+completion.WorkspaceName+" merged", ToastSuccess)
	for _, warning := range completion.Warnings {
		m.showToast(warning, ToastInfo)
	}
	return m.dispatchRefreshWorkspaces()
}

// dispatchUpdateFromBase merges base into the workspace branch.
func (m *Model) dispatchUpdateFromBase(workspace domain.Workspace) Cmd {
	if m.flags.updateFromBase {
		m.showToast("workspace update already in progress", ToastError)
		return nil
	}
	m.flags.updateFromBase = true
	service := m.service
	request := command.WorkspaceUpdateRequest{
		Context:  command.RepoContext{RepoRoot: m.repoRoot},
		Selector: command.Selector{Name: workspace.Name, Path: workspace.Path},
	}
	return taskCmd(func() tea.Msg {
		response, err := service.WorkspaceUpdate(request)
		completion := WorkspaceMutationCompletion{
			WorkspaceName: workspace.Name,
			WorkspacePath: workspace.Path,
		}
		if err != nil {
			completion.Err = err.Error()
		} else {
			completion.Warnings = response.Warnings
		}
		return UpdateWorkspaceFromBaseCompletedMsg{Completion: completion}
	})
}

func (m *Model) handleUpdateFromBaseCompleted(completion WorkspaceMutationCompletion) {
	m.flags.updateFromBase = false
	if completion.Err != "" {
		m.showToast(completion.Err, ToastError)
		return
	}
	m.showToast("workspace "+completion.WorkspaceName+" updated from base", ToastSuccess)
}

// dispatchLazygitLaunch starts the lazygit helper session for the Git tab.
func (m *Model) dispatchLazygitLaunch(workspace domain.Workspace) Cmd {
	sessionName := launch.GitSessionNameForWorkspace(workspace)
	if m.lazygitSessions.isReady(sessionName) || m.lazygitSessions.isInFlight(sessionName) {
		return nil
	}
	m.lazygitSessions.markInFlight(sessionName)
	executor := m.executor
	cols, rows := m.previewViewportSize()
	request := launch.ShellRequestForWorkspace(workspace, sessionName, "lazygit", "", cols, rows)
	return taskCmd(func() tea.Msg {
		result := executor.ExecuteShellLaunchRequest(request, runtime.ProcessMode())
		msg := LazygitLaunchCompletedMsg{SessionName: result.SessionName}
		if !result.OK() {
			msg.Err = result.Err
		}
		return msg
	})
}

func (m *Model) handleLazygitLaunchCompleted(msg LazygitLaunchCompletedMsg) {
	if msg.Err != "" {
		m.lazygitSessions.markFailed(msg.SessionName)
		m.showToast("lazygit launch failed: "+msg.Err, ToastError)
		return
	}
	m.lazygitSessions.markReady(msg.SessionName)
}

// dispatchShellLaunch starts the workspace shell helper session.
func (m *Model) dispatchShellLaunch(workspace domain.Workspace) Cmd {
	sessionName := launch.ShellSessionNameForWorkspace(workspace)
	if m.shellSessions.isReady(sessionName) || m.shellSessions.isInFlight(sessionName) {
		return nil
	}
	m.shellSessions.markInFlight(sessionName)
	executor := m.executor
	cols, rows := m.previewViewportSize()
	request := launch.ShellRequestForWorkspace(workspace, sessionName, "", "", cols, rows)
	return taskCmd(func() tea.Msg {
		result := executor.ExecuteShellLaunchRequest(request, runtime.ProcessMode())
		msg := WorkspaceShellLaunchCompletedMsg{SessionName: result.SessionName}
		if !result.OK() {
			msg.Err = result.Err
		}
		return msg
	})
}

func (m *Model) handleShellLaunchCompleted(msg WorkspaceShellLaunchCompletedMsg) {
	if msg.Err != "" {
		m.shellSessions.markFailed(msg.SessionName)
		m.showToast("shell launch failed: "+msg.Err, ToastError)
		return
	}
	m.shellSessions.markReady(msg.SessionName)
}

// dispatchDeleteProject removes a project from config (workspaces stay on
// disk).
func (m *Model) dispatchDeleteProject(projectName string) Cmd {
	if m.flags.projectDelete {
		m.showToast("project delete already in progress", ToastError)
		return nil
	}
	m.flags.projectDelete = true
	return taskCmd(func() tea.Msg {
		return DeleteProjectCompletedMsg{ProjectName: projectName}
	})
}

func (m *Model) handleDeleteProjectCompleted(msg DeleteProjectCompletedMsg) {
	m.flags.projectDelete = false
	if msg.Err != "" {
		m.showToast("project delete failed: "+msg.Err, ToastError)
		return
	}
	kept := m.cfg.Projects[:0]
	for _, project := range m.cfg.Projects {
		if project.Name != msg.ProjectName {
			kept = append(kept, project)
		}
	}
	m.cfg.Projects = kept
	m.saveRuntimeConfig()
	m.showToast("project "+msg.ProjectName+" removed", ToastInfo)
}
