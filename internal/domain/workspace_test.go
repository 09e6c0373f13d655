package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidWorkspaceName(t *testing.T) {
	valid := []string{"feature-a", "fix_bug", "WS1", "a"}
	for _, name := range valid {
		assert.True(t, ValidWorkspaceName(name), name)
	}
	invalid := []string{"", "has space", "slash/name", "dot.name", "tilde~"}
	for _, name := range invalid {
		assert.False(t, ValidWorkspaceName(name), name)
	}
}

func TestNewWorkspaceValidation(t *testing.T) {
	_, err := NewWorkspace("", "/tmp/ws", "main", AgentClaude, StatusIdle, false)
	assert.ErrorIs(t, err, ErrEmptyWorkspaceName)

	_, err = NewWorkspace("bad name", "/tmp/ws", "main", AgentClaude, StatusIdle, false)
	assert.ErrorIs(t, err, ErrInvalidWorkspaceName)

	_, err = NewWorkspace("ok", "", "main", AgentClaude, StatusIdle, false)
	assert.ErrorIs(t, err, ErrEmptyWorkspacePath)

	ws, err := NewWorkspace("ok", "/tmp/ws", "main", AgentOpenCode, StatusIdle, false)
	require.NoError(t, err)
	assert.False(t, ws.SupportedAgent)

	ws, err = NewWorkspace("ok", "/tmp/ws", "main", AgentClaude, StatusIdle, false)
	require.NoError(t, err)
	assert.True(t, ws.SupportedAgent)
}

func TestAgentTypeRoundTrip(t *testing.T) {
	for _, agent := range []AgentType{AgentClaude, AgentCodex, AgentOpenCode} {
		parsed, err := ParseAgentType(agent.String())
		require.NoError(t, err)
		assert.Equal(t, agent, parsed)
	}
	_, err := ParseAgentType("gemini")
	assert.Error(t, err)
}

func TestStatusNames(t *testing.T) {
	assert.Equal(t, "unknown", StatusUnknown.String())
	assert.Equal(t, "thinking", StatusThinking.String())
	assert.Equal(t, "unsupported", StatusUnsupported.String())
	assert.True(t, StatusThinking.IsWorking())
	assert.True(t, StatusWaiting.NeedsUser())
	assert.False(t, StatusIdle.IsWorking())
}
