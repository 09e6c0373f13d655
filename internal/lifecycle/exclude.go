package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// groveGitExcludeEntries are appended to the repo's info/exclude so marker
// files never show up as untracked changes.
var groveGitExcludeEntries = []string{".grove/"}

// EnsureGroveGitExcludeEntries appends the grove exclude entries to the repo's
// git exclude file when missing. Repeated invocations never duplicate lines.
func EnsureGroveGitExcludeEntries(repoRoot string) error {
	excludePath, err := gitExcludePath(repoRoot)
	if err != nil {
		return err
	}

	existing := ""
	raw, err := os.ReadFile(excludePath)
	switch {
	case err == nil:
		existing = string(raw)
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("io error: %w", err)
	}

	var missing []string
	for _, entry := range groveGitExcludeEntries {
		found := false
		for _, line := range strings.Split(existing, "\n") {
			if strings.TrimSpace(line) == entry {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return fmt.Errorf("io error: %w", err)
	}
	file, err := os.OpenFile(excludePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("io error: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		b.WriteString("\n")
	}
	for _, entry := range missing {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("io error: %w", err)
	}
	return nil
}

// gitExcludePath resolves <gitdir>/info/exclude, following the gitdir pointer
// when .git is the file form used by worktrees and submodules.
func gitExcludePath(repoRoot string) (string, error) {
	dotGit := filepath.Join(repoRoot, ".git")
	info, err := os.Stat(dotGit)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(dotGit, "info", "exclude"), nil
	case err == nil && info.Mode().IsRegular():
		return resolveGitdirFileExcludePath(repoRoot, dotGit)
	case err == nil:
		return "", fmt.Errorf("io error: %s is neither file nor directory", dotGit)
	case os.IsNotExist(err):
		return filepath.Join(dotGit, "info", "exclude"), nil
	default:
		return "", fmt.Errorf("io error: %w", err)
	}
}

func resolveGitdirFileExcludePath(repoRoot, dotGitFile string) (string, error) {
	raw, err := os.ReadFile(dotGitFile)
	if err != nil {
		return "", fmt.Errorf("io error: %w", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "gitdir:")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", fmt.Errorf("io error: %s has empty gitdir pointer", dotGitFile)
		}
		if !filepath.IsAbs(value) {
			value = filepath.Join(repoRoot, value)
		}
		return filepath.Join(value, "info", "exclude"), nil
	}
	return "", fmt.Errorf("io error: %s missing gitdir pointer", dotGitFile)
}
