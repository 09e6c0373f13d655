package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "grove.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSidebarWidthPct, cfg.SidebarWidthPct)
	assert.Empty(t, cfg.Projects)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.toml")
	cfg := Config{
		SidebarWidthPct: 42,
		Projects: []Project{
			{Name: "api", Path: "/code/api", DefaultAgent: "claude", WorkspaceInitCommand: "direnv allow"},
		},
		RemoteProfiles: []RemoteProfile{
			{Name: "devbox", Host: "dev.example.com", SocketPath: "/run/groved.sock"},
		},
		ActiveRemoteProfile: "devbox",
		AttentionAcks: []AttentionAck{
			{WorkspacePath: "/code/api-ws1", Marker: "session-1.jsonl:12345"},
		},
	}
	require.NoError(t, SaveToPath(path, cfg))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	remote, ok := loaded.ActiveRemote()
	require.True(t, ok)
	assert.Equal(t, "devbox", remote.Name)

	project, ok := loaded.ProjectByName("api")
	require.True(t, ok)
	assert.Equal(t, "/code/api", project.Path)
}

func TestLoadClampsInvalidSidebarWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.toml")
	require.NoError(t, os.WriteFile(path, []byte("sidebar_width_pct = 250\n"), 0o644))
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSidebarWidthPct, cfg.SidebarWidthPct)
}

func TestSaveReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.toml")
	require.NoError(t, SaveToPath(path, Default()))
	require.NoError(t, SaveToPath(path, Config{SidebarWidthPct: 55}))
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.SidebarWidthPct)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestActiveRemoteMissingProfile(t *testing.T) {
	cfg := Config{ActiveRemoteProfile: "gone"}
	_, ok := cfg.ActiveRemote()
	assert.False(t, ok)
}
