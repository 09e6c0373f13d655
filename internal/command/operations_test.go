package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvessia/grove/internal/domain"
	gitpkg "github.com/mvessia/grove/internal/git"
	"github.com/mvessia/grove/internal/lifecycle"
	"github.com/mvessia/grove/internal/runtime"
)

type stubMux struct{}

func (stubMux) Execute([]string) error                          { return nil }
func (stubMux) CaptureOutput(string, int, bool) (string, error) { return "", nil }
func (stubMux) CaptureCursorMetadata(string) (string, error)    { return "80 24 0 0 1", nil }
func (stubMux) ResizeSession(string, int, int) error            { return nil }
func (stubMux) PasteBuffer(string, string) error                { return nil }
func (stubMux) SupportsBackgroundSend() bool                    { return true }
func (stubMux) SupportsBackgroundPoll() bool                    { return true }
func (stubMux) SupportsBackgroundLaunch() bool                  { return true }

type recordingGitRunner struct {
	calls [][]string
	fail  map[string]string
}

func (r *recordingGitRunner) Run(_ string, args ...string) error {
	r.calls = append(r.calls, args)
	joined := strings.Join(args, " ")
	for prefix, message := range r.fail {
		if strings.HasPrefix(joined, prefix) {
			return errors.New(message)
		}
	}
	if len(args) >= 3 && args[0] == "worktree" && args[1] == "add" {
		_ = os.MkdirAll(args[2], 0o755)
	}
	return nil
}

type nopScriptRunner struct{}

func (nopScriptRunner) Run(gitpkg.SetupScriptContext) error { return nil }

type nopCommandRunner struct{}

func (nopCommandRunner) Run(gitpkg.SetupCommandContext, string) error { return nil }

func testService(runner *recordingGitRunner) *LifecycleService {
	return &LifecycleService{
		GitRunner:     runner,
		ScriptRunner:  nopScriptRunner{},
		CommandRunner: nopCommandRunner{},
		Executor:      runtime.NewExecutor(stubMux{}),
		Terminator:    lifecycle.NoopSessionTerminator{},
	}
}

func TestAgentStartDuplicateSessionIsSuccess(t *testing.T) {
	service := testService(&recordingGitRunner{})
	workspaceHint := workspace(t, "feature-a", "/r/feature-a")

	var delegated [][]string
	response, err := service.AgentStartForMode(AgentStartRequest{
		Context:       RepoContext{RepoRoot: "/r"},
		Selector:      Selector{Name: "feature-a"},
		WorkspaceHint: &workspaceHint,
	}, runtime.DelegatingMode(func(command []string) error {
		delegated = append(delegated, command)
		if command[1] == "new-session" {
			return errors.New("duplicate session: grove-ws-feature-a")
		}
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, response.Status)
	assert.Equal(t, domain.StatusActive, response.Workspace.Status)
	assert.Empty(t, response.Warnings)
	assert.Len(t, delegated, 1)
}

func TestAgentStopMissingSessionIsIdle(t *testing.T) {
	service := testService(&recordingGitRunner{})
	workspaceHint := workspace(t, "feature-a", "/r/feature-a")

	response, err := service.AgentStopForMode(AgentStopRequest{
		Context:       RepoContext{RepoRoot: "/r"},
		Selector:      Selector{Name: "feature-a"},
		WorkspaceHint: &workspaceHint,
	}, runtime.DelegatingMode(func(command []string) error {
		return errors.New("missing session: grove-ws-feature-a")
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, response.Status)
}

func TestAgentStartDryRunNeverExecutes(t *testing.T) {
	service := testService(&recordingGitRunner{})
	workspaceHint := workspace(t, "feature-a", "/r/feature-a")

	response, err := service.AgentStartForMode(AgentStartRequest{
		Context:       RepoContext{RepoRoot: "/r"},
		WorkspaceHint: &workspaceHint,
		DryRun:        true,
	}, runtime.DelegatingMode(func(command []string) error {
		t.Fatalf("dry run executed %v", command)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, response.Status)
}

func TestWorkspaceCreateDryRunPredictsWorkspace(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	service := testService(&recordingGitRunner{})
	agent := domain.AgentCodex
	response, err := service.WorkspaceCreate(WorkspaceCreateRequest{
		Context:    RepoContext{RepoRoot: "/code/myrepo"},
		Name:       "feature-a",
		BaseBranch: "main",
		Agent:      &agent,
		DryRun:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "feature-a", response.Workspace.Name)
	assert.Equal(t, "feature-a", response.Workspace.Branch)
	assert.Equal(t, "main", response.Workspace.BaseBranch)
	assert.Equal(t, domain.AgentCodex, response.Workspace.Agent)
	assert.Contains(t, response.Workspace.Path, filepath.Join("myrepo", "feature-a"))
}

func TestWorkspaceCreateInvalidName(t *testing.T) {
	service := testService(&recordingGitRunner{})
	_, err := service.WorkspaceCreate(WorkspaceCreateRequest{
		Context:    RepoContext{RepoRoot: "/code/myrepo"},
		Name:       "bad name",
		BaseBranch: "main",
	})
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CodeInvalidArgument, cmdErr.Code)
}

func TestWorkspaceCreateRequiresBranchStrategy(t *testing.T) {
	service := testService(&recordingGitRunner{})
	_, err := service.WorkspaceCreate(WorkspaceCreateRequest{
		Context: RepoContext{RepoRoot: "/code/myrepo"},
		Name:    "ok",
	})
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CodeInvalidArgument, cmdErr.Code)
}

func TestWorkspaceListDiscoversWorktrees(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	repo := filepath.Join(t.TempDir(), "myrepo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))

	wsPath := filepath.Join(home, ".grove", "worktrees", "myrepo", "feature-a")
	require.NoError(t, os.MkdirAll(wsPath, 0o755))
	require.NoError(t, lifecycle.WriteAgentMarker(wsPath, domain.AgentCodex))
	require.NoError(t, lifecycle.WriteBaseMarker(wsPath, "main"))

	service := testService(&recordingGitRunner{})
	response, err := service.WorkspaceList(WorkspaceListRequest{Context: RepoContext{RepoRoot: repo}})
	require.NoError(t, err)
	require.Len(t, response.Workspaces, 2)

	main := response.Workspaces[0]
	assert.True(t, main.IsMain)
	assert.Equal(t, "main", main.Branch)
	assert.Equal(t, repo, main.Path)

	ws := response.Workspaces[1]
	assert.Equal(t, "feature-a", ws.Name)
	assert.Equal(t, domain.AgentCodex, ws.Agent)
	assert.Equal(t, "main", ws.BaseBranch)
	assert.False(t, ws.IsMain)
	assert.Equal(t, "myrepo", ws.ProjectName)
}

func TestWorkspaceDeleteRejectsMain(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	repo := filepath.Join(t.TempDir(), "myrepo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))

	service := testService(&recordingGitRunner{})
	_, err := service.WorkspaceDelete(WorkspaceDeleteRequest{
		Context:  RepoContext{RepoRoot: repo},
		Selector: Selector{Path: repo},
	})
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CodeInvalidArgument, cmdErr.Code)
}

func TestWorkspaceMergeConflictSurfacesConflictCode(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	repo := filepath.Join(t.TempDir(), "myrepo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))

	wsPath := filepath.Join(home, ".grove", "worktrees", "myrepo", "ws1")
	require.NoError(t, os.MkdirAll(wsPath, 0o755))
	require.NoError(t, lifecycle.WriteAgentMarker(wsPath, domain.AgentClaude))
	require.NoError(t, lifecycle.WriteBaseMarker(wsPath, "main"))

	runner := &recordingGitRunner{fail: map[string]string{
		"merge --ff": "CONFLICT (content): Merge conflict in a.go",
	}}
	service := testService(runner)
	_, err := service.WorkspaceMerge(WorkspaceMergeRequest{
		Context:  RepoContext{RepoRoot: repo},
		Selector: Selector{Name: "ws1"},
	})
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CodeConflict, cmdErr.Code)
	assert.Contains(t, cmdErr.Message, "a.go")
}

func TestWorkspaceEditUpdatesMarkers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	repo := filepath.Join(t.TempDir(), "myrepo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))

	wsPath := filepath.Join(home, ".grove", "worktrees", "myrepo", "ws1")
	require.NoError(t, os.MkdirAll(wsPath, 0o755))
	require.NoError(t, lifecycle.WriteAgentMarker(wsPath, domain.AgentClaude))
	require.NoError(t, lifecycle.WriteBaseMarker(wsPath, "main"))

	service := testService(&recordingGitRunner{})
	agent := domain.AgentCodex
	response, err := service.WorkspaceEdit(WorkspaceEditRequest{
		Context:    RepoContext{RepoRoot: repo},
		Selector:   Selector{Name: "ws1"},
		Agent:      &agent,
		BaseBranch: "develop",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentCodex, response.Workspace.Agent)
	assert.Equal(t, "develop", response.Workspace.BaseBranch)

	markers, err := lifecycle.ReadMarkers(wsPath)
	require.NoError(t, err)
	assert.Equal(t, domain.AgentCodex, markers.Agent)
	assert.Equal(t, "develop", markers.BaseBranch)
}
