package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvessia/grove/internal/domain"
)

// LatestAssistantAttentionMarker scans the agent's state directory for the
// workspace and returns an opaque token for the newest transcript entry, or ""
// when the agent keeps no per-workspace state. The token only needs to change
// when the assistant produces new output; its contents are never interpreted.
func LatestAssistantAttentionMarker(agent domain.AgentType, workspacePath string) string {
	switch agent {
	case domain.AgentClaude:
		return latestClaudeMarker(workspacePath)
	default:
		return ""
	}
}

// latestClaudeMarker inspects ~/.claude/projects/<munged-path> for the newest
// session transcript. Claude Code munges the workspace path by replacing
// every non-alphanumeric rune with '-'.
func latestClaudeMarker(workspacePath string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	dir := filepath.Join(home, ".claude", "projects", mungeClaudeProjectPath(workspacePath))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var newestName string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UnixNano()
		if newestName == "" || mod > newestMod {
			newestName = entry.Name()
			newestMod = mod
		}
	}
	if newestName == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", newestName, newestMod)
}

func mungeClaudeProjectPath(workspacePath string) string {
	var b strings.Builder
	b.Grow(len(workspacePath))
	for _, r := range workspacePath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
