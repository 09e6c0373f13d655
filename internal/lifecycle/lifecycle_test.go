package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/git"
)

// fakeGitRunner records invocations and fails commands whose joined args
// match a configured prefix.
type fakeGitRunner struct {
	calls    [][]string
	failures map[string]string
	onRun    func(repoRoot string, args []string)
}

func newFakeGitRunner() *fakeGitRunner {
	return &fakeGitRunner{failures: map[string]string{}}
}

func (f *fakeGitRunner) Run(repoRoot string, args ...string) error {
	f.calls = append(f.calls, args)
	if f.onRun != nil {
		f.onRun(repoRoot, args)
	}
	joined := strings.Join(args, " ")
	for prefix, message := range f.failures {
		if strings.HasPrefix(joined, prefix) {
			return fmt.Errorf("%s", message)
		}
	}
	return nil
}

type fakeScriptRunner struct {
	contexts []git.SetupScriptContext
	err      error
}

func (f *fakeScriptRunner) Run(context git.SetupScriptContext) error {
	f.contexts = append(f.contexts, context)
	return f.err
}

type fakeCommandRunner struct {
	commands []string
	err      error
}

func (f *fakeCommandRunner) Run(_ git.SetupCommandContext, command string) error {
	f.commands = append(f.commands, command)
	return f.err
}

func repoWithGitDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	return root
}

func TestCreateRequestValidation(t *testing.T) {
	request := CreateRequest{WorkspaceName: "", BranchMode: NewBranchMode("main")}
	assert.ErrorIs(t, request.Validate(), domain.ErrEmptyWorkspaceName)

	request = CreateRequest{WorkspaceName: "bad name", BranchMode: NewBranchMode("main")}
	assert.ErrorIs(t, request.Validate(), domain.ErrInvalidWorkspaceName)

	request = CreateRequest{WorkspaceName: "ok", BranchMode: NewBranchMode("  ")}
	assert.ErrorIs(t, request.Validate(), ErrEmptyBaseBranchRequest)

	request = CreateRequest{WorkspaceName: "ok", BranchMode: ExistingBranchMode("")}
	assert.ErrorIs(t, request.Validate(), ErrEmptyExistingBranch)

	request = CreateRequest{WorkspaceName: "ok", BranchMode: PullRequestBranchMode(0, "main")}
	assert.ErrorIs(t, request.Validate(), ErrInvalidPullRequestNumber)

	request = CreateRequest{WorkspaceName: "ok", BranchMode: PullRequestBranchMode(7, "main")}
	assert.NoError(t, request.Validate())
}

func TestCreateRequestBranchNames(t *testing.T) {
	request := CreateRequest{WorkspaceName: "ws", BranchMode: NewBranchMode("main")}
	assert.Equal(t, "ws", request.BranchName())
	assert.Equal(t, "main", request.MarkerBaseBranch())

	request = CreateRequest{WorkspaceName: "ws", BranchMode: ExistingBranchMode("feature/x")}
	assert.Equal(t, "feature/x", request.BranchName())
	assert.Equal(t, "feature/x", request.MarkerBaseBranch())

	request = CreateRequest{WorkspaceName: "ws", BranchMode: PullRequestBranchMode(42, "main")}
	assert.Equal(t, "ws", request.BranchName())
}

func TestMarkerRoundTrip(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, WriteAgentMarker(workspace, domain.AgentCodex))
	require.NoError(t, WriteBaseMarker(workspace, "main"))

	markers, err := ReadMarkers(workspace)
	require.NoError(t, err)
	assert.Equal(t, domain.AgentCodex, markers.Agent)
	assert.Equal(t, "main", markers.BaseBranch)

	// Overwrite is idempotent.
	require.NoError(t, WriteAgentMarker(workspace, domain.AgentClaude))
	agent, err := ReadAgentMarker(workspace)
	require.NoError(t, err)
	assert.Equal(t, domain.AgentClaude, agent)
}

func TestMarkerErrors(t *testing.T) {
	workspace := t.TempDir()
	_, err := ReadMarkers(workspace)
	assert.ErrorIs(t, err, ErrMissingAgentMarker)

	require.NoError(t, WriteAgentMarker(workspace, domain.AgentClaude))
	_, err = ReadMarkers(workspace)
	assert.ErrorIs(t, err, ErrMissingBaseMarker)

	require.NoError(t, os.WriteFile(filepath.Join(workspace, ".grove", "base"), []byte("  \n"), 0o644))
	_, err = ReadMarkers(workspace)
	assert.ErrorIs(t, err, ErrEmptyBaseBranch)

	require.NoError(t, os.WriteFile(filepath.Join(workspace, ".grove", "agent"), []byte("gemini\n"), 0o644))
	_, err = ReadAgentMarker(workspace)
	var invalid InvalidAgentMarkerError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "gemini", invalid.Value)
}

func TestEnsureGroveGitExcludeEntriesIsIdempotent(t *testing.T) {
	root := repoWithGitDir(t)
	for range 3 {
		require.NoError(t, EnsureGroveGitExcludeEntries(root))
	}
	raw, err := os.ReadFile(filepath.Join(root, ".git", "info", "exclude"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), ".grove/"))
}

func TestEnsureGroveGitExcludeEntriesAppendsToExisting(t *testing.T) {
	root := repoWithGitDir(t)
	excludePath := filepath.Join(root, ".git", "info", "exclude")
	require.NoError(t, os.MkdirAll(filepath.Dir(excludePath), 0o755))
	require.NoError(t, os.WriteFile(excludePath, []byte("node_modules"), 0o644))

	require.NoError(t, EnsureGroveGitExcludeEntries(root))
	raw, err := os.ReadFile(excludePath)
	require.NoError(t, err)
	assert.Equal(t, "node_modules\n.grove/\n", string(raw))
}

func TestEnsureGroveGitExcludeEntriesResolvesGitdirFile(t *testing.T) {
	root := t.TempDir()
	gitdir := filepath.Join(root, "real-gitdir")
	require.NoError(t, os.MkdirAll(gitdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: real-gitdir\n"), 0o644))

	require.NoError(t, EnsureGroveGitExcludeEntries(root))
	raw, err := os.ReadFile(filepath.Join(gitdir, "info", "exclude"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), ".grove/")
}

func TestDeleteWorkspaceTolerantOfMissingPath(t *testing.T) {
	runner := newFakeGitRunner()
	err, warnings := DeleteWorkspace(DeleteRequest{
		ProjectPath:   t.TempDir(),
		WorkspaceName: "ws",
		WorkspacePath: "/nonexistent/ws",
		IsMissing:     true,
		Branch:        "ws",
	}, runner, NoopSessionTerminator{})
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	require.NotEmpty(t, runner.calls)
	assert.Equal(t, []string{"worktree", "prune"}, runner.calls[0])
}

func TestDeleteWorkspaceDeletesBranch(t *testing.T) {
	workspace := t.TempDir()
	runner := newFakeGitRunner()
	err, _ := DeleteWorkspace(DeleteRequest{
		ProjectPath:       t.TempDir(),
		WorkspaceName:     "ws",
		WorkspacePath:     workspace,
		Branch:            "ws",
		DeleteLocalBranch: true,
	}, runner, NoopSessionTerminator{})
	require.NoError(t, err)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"worktree", "remove", "--force", workspace}, runner.calls[0])
	assert.Equal(t, []string{"branch", "-D", "ws"}, runner.calls[1])
}

func TestDeleteWorkspaceHardGitFailure(t *testing.T) {
	workspace := t.TempDir()
	runner := newFakeGitRunner()
	runner.failures["worktree remove"] = "fatal: 'ws' contains modified or untracked files"
	err, _ := DeleteWorkspace(DeleteRequest{
		ProjectPath:   t.TempDir(),
		WorkspacePath: workspace,
	}, runner, NoopSessionTerminator{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git command failed")
}

func TestMergeWorkspaceFastForward(t *testing.T) {
	runner := newFakeGitRunner()
	err, warnings := MergeWorkspace(MergeRequest{
		ProjectPath:     t.TempDir(),
		WorkspaceName:   "ws",
		WorkspaceBranch: "ws",
		BaseBranch:      "main",
	}, runner, NoopSessionTerminator{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"checkout", "main"}, runner.calls[0])
	assert.Equal(t, []string{"merge", "--ff", "ws"}, runner.calls[1])
}

func TestMergeWorkspaceConflictSummarized(t *testing.T) {
	runner := newFakeGitRunner()
	runner.failures["merge --ff"] = "Auto-merging a.go\nCONFLICT (content): Merge conflict in a.go\nCONFLICT (content): Merge conflict in b.go\nAutomatic merge failed"
	err, _ := MergeWorkspace(MergeRequest{
		ProjectPath:     t.TempDir(),
		WorkspaceBranch: "ws",
		BaseBranch:      "main",
	}, runner, NoopSessionTerminator{})
	require.Error(t, err)
	assert.Equal(t, "merge conflict, resolve in base worktree then retry (files: a.go, b.go)", err.Error())
	// The failed merge is aborted to keep the base clean.
	assert.Equal(t, []string{"merge", "--abort"}, runner.calls[len(runner.calls)-1])
}

func TestMergeWorkspaceCleanup(t *testing.T) {
	workspace := t.TempDir()
	runner := newFakeGitRunner()
	err, _ := MergeWorkspace(MergeRequest{
		ProjectPath:        t.TempDir(),
		WorkspaceName:      "ws",
		WorkspaceBranch:    "ws",
		WorkspacePath:      workspace,
		BaseBranch:         "main",
		CleanupWorkspace:   true,
		CleanupLocalBranch: true,
	}, runner, NoopSessionTerminator{})
	require.NoError(t, err)
	joined := make([]string, 0, len(runner.calls))
	for _, call := range runner.calls {
		joined = append(joined, strings.Join(call, " "))
	}
	assert.Contains(t, joined, "worktree remove --force "+workspace)
	assert.Contains(t, joined, "branch -D ws")
}

func TestUpdateWorkspaceFromBase(t *testing.T) {
	runner := newFakeGitRunner()
	err, _ := UpdateWorkspaceFromBase(UpdateFromBaseRequest{
		WorkspacePath:   "/r/ws",
		WorkspaceBranch: "ws",
		BaseBranch:      "main",
	}, runner, NoopSessionTerminator{})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"merge", "main"}, runner.calls[0])
}

func TestUpdateWorkspaceFromBaseRejectsSameBranch(t *testing.T) {
	runner := newFakeGitRunner()
	err, _ := UpdateWorkspaceFromBase(UpdateFromBaseRequest{
		WorkspacePath:   "/r/ws",
		WorkspaceBranch: "main",
		BaseBranch:      "main",
	}, runner, NoopSessionTerminator{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matches base branch")
	assert.Empty(t, runner.calls)
}

func TestUpdateWorkspaceFromBaseConflict(t *testing.T) {
	runner := newFakeGitRunner()
	runner.failures["merge main"] = "CONFLICT (content): Merge conflict in x.go"
	err, _ := UpdateWorkspaceFromBase(UpdateFromBaseRequest{
		WorkspacePath:   "/r/ws",
		WorkspaceBranch: "ws",
		BaseBranch:      "main",
	}, runner, NoopSessionTerminator{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update conflict")
	assert.Contains(t, err.Error(), "x.go")
}

func TestSummarizeMergeConflict(t *testing.T) {
	summary, ok := SummarizeMergeConflict("CONFLICT (content): Merge conflict in src/main.go")
	require.True(t, ok)
	assert.Equal(t, "merge conflict, resolve in base worktree then retry (files: src/main.go)", summary)

	summary, ok = SummarizeMergeConflict("error: merge conflict detected")
	require.True(t, ok)
	assert.NotContains(t, summary, "files:")

	_, ok = SummarizeMergeConflict("fatal: not a git repository")
	assert.False(t, ok)
}

func TestCopyEnvFiles(t *testing.T) {
	main := t.TempDir()
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(main, ".env"), []byte("A=1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(main, ".env.local"), []byte("B=2\n"), 0o644))

	warnings := copyEnvFiles(main, workspace)
	assert.Empty(t, warnings)
	raw, err := os.ReadFile(filepath.Join(workspace, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "A=1\n", string(raw))
	_, err = os.Stat(filepath.Join(workspace, ".env.development"))
	assert.True(t, os.IsNotExist(err))
}

func TestWorkspaceDirectoryPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path, err := WorkspaceDirectoryPath("/code/myrepo", "feature-a")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".grove", "worktrees", "myrepo", "feature-a"), path)
}
