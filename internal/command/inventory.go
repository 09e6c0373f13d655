package command

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/lifecycle"
)

// ListWorkspacesInRepo discovers the repo's main workspace plus every grove
// worktree under the per-repo layout. Discovery is pure filesystem I/O: the
// markers identify grove-managed worktrees, and each worktree's HEAD names
// its branch.
func ListWorkspacesInRepo(repoRoot string) ([]domain.Workspace, error) {
	repoName := filepath.Base(filepath.Clean(repoRoot))
	if repoName == "." || repoName == "" {
		return nil, newError(CodeNotFound, "repo name unavailable")
	}

	workspaces := []domain.Workspace{mainWorkspace(repoRoot, repoName)}

	worktreesDir, err := lifecycle.WorkspaceDirectoryPath(repoRoot, "")
	if err != nil {
		// Without a resolvable home there are no grove worktrees to find.
		return workspaces, nil
	}
	entries, err := os.ReadDir(filepath.Clean(worktreesDir))
	if err != nil {
		return workspaces, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(filepath.Clean(worktreesDir), entry.Name())
		markers, err := lifecycle.ReadMarkers(path)
		if err != nil {
			continue
		}
		workspace, err := domain.NewWorkspace(entry.Name(), path, worktreeBranch(path, entry.Name()),
			markers.Agent, domain.StatusUnknown, false)
		if err != nil {
			continue
		}
		workspace = workspace.
			WithProjectContext(repoName, repoRoot).
			WithBaseBranch(markers.BaseBranch)
		if info, err := entry.Info(); err == nil {
			workspace.LastActivityUnix = info.ModTime().Unix()
		}
		workspaces = append(workspaces, workspace)
	}

	sort.SliceStable(workspaces[1:], func(i, j int) bool {
		return workspaces[1+i].Name < workspaces[1+j].Name
	})
	return workspaces, nil
}

func mainWorkspace(repoRoot, repoName string) domain.Workspace {
	agent := domain.AgentClaude
	if markerAgent, err := lifecycle.ReadAgentMarker(repoRoot); err == nil {
		agent = markerAgent
	}
	main := domain.Workspace{
		Name:           sanitizeWorkspaceName(repoName),
		Path:           repoRoot,
		Branch:         worktreeBranch(repoRoot, ""),
		Agent:          agent,
		Status:         domain.StatusMain,
		IsMain:         true,
		SupportedAgent: agent.SupportsStatusDetection(),
	}
	return main.WithProjectContext(repoName, repoRoot)
}

// sanitizeWorkspaceName coerces a repo name into the workspace-name charset.
func sanitizeWorkspaceName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "main"
	}
	return b.String()
}

// worktreeBranch reads the branch a worktree has checked out by following
// .git (directory or gitdir-pointer file) to HEAD. Falls back to the given
// default when HEAD is unreadable or detached.
func worktreeBranch(worktreePath, fallback string) string {
	gitdir := filepath.Join(worktreePath, ".git")
	info, err := os.Stat(gitdir)
	if err != nil {
		return fallback
	}
	if info.Mode().IsRegular() {
		raw, err := os.ReadFile(gitdir)
		if err != nil {
			return fallback
		}
		resolved := ""
		for _, line := range strings.Split(string(raw), "\n") {
			if value, ok := strings.CutPrefix(strings.TrimSpace(line), "gitdir:"); ok {
				resolved = strings.TrimSpace(value)
				break
			}
		}
		if resolved == "" {
			return fallback
		}
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(worktreePath, resolved)
		}
		gitdir = resolved
	}

	raw, err := os.ReadFile(filepath.Join(gitdir, "HEAD"))
	if err != nil {
		return fallback
	}
	head := strings.TrimSpace(string(raw))
	if branch, ok := strings.CutPrefix(head, "ref: refs/heads/"); ok {
		return branch
	}
	return fallback
}
