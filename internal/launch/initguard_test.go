package launch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The guard script's correctness under concurrency rests on three pieces:
// the atomic mkdir lock, the PID liveness check with bounded stale-breaking,
// and the stamp file that makes the init command run at most once. These
// assertions pin each piece of the emitted script.
func TestWorkspaceInitGuardScriptStructure(t *testing.T) {
	script := workspaceInitGuardScript("/r/ws", "npm install")
	hash := WorkspaceInitCommandHash("npm install")

	lockDir := "'/r/ws/.grove/workspace-init-" + hash + ".lock'"
	stampFile := "'/r/ws/.grove/workspace-init-" + hash + ".done'"

	assert.Contains(t, script, "mkdir -p '/r/ws/.grove'")
	assert.Contains(t, script, "while ! mkdir "+lockDir+" 2>/dev/null; do")
	assert.Contains(t, script, "echo \"$$\" > "+lockDir+"/pid")
	assert.Contains(t, script, `kill -0 "$lock_pid"`)
	assert.Contains(t, script, `if [ "$lock_stale_checks" -ge 20 ]; then`)
	assert.Contains(t, script, "trap 'rm -f "+lockDir+"/pid; rmdir "+lockDir+" 2>/dev/null || true' EXIT")
	assert.Contains(t, script, ": > "+stampFile)
	assert.Contains(t, script, "npm install")

	// The stamp is checked both outside and inside the lock so the loser of
	// the race observes the winner's stamp instead of rerunning init.
	assert.Equal(t, 2, strings.Count(script, "if [ ! -f "+stampFile+" ]; then"))

	// A failing init propagates its exit status and never writes the stamp.
	require.Contains(t, script, "init_status=$?")
	assert.Contains(t, script, `exit "$init_status"`)

	before := strings.Index(script, "npm install")
	stampWrite := strings.Index(script, ": > "+stampFile)
	assert.Less(t, before, stampWrite, "stamp is written only after the init command succeeds")
}

func TestCommandWithWorkspaceInitPassthrough(t *testing.T) {
	assert.Equal(t, "claude", commandWithWorkspaceInit("/r/ws", "claude", ""))
	assert.Equal(t, "claude", commandWithWorkspaceInit("/r/ws", "claude", "   "))

	wrapped := commandWithWorkspaceInit("/r/ws", "claude", "make setup")
	assert.True(t, strings.HasPrefix(wrapped, "bash -lc '"))
}
