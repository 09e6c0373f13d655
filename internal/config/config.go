// Package config loads and saves Grove's TOML configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mvessia/grove/internal/lock"
)

// DefaultSidebarWidthPct is used when the config carries no width.
const DefaultSidebarWidthPct = 30

// Project is one repository Grove manages workspaces for.
type Project struct {
	Name                 string `toml:"name"`
	Path                 string `toml:"path"`
	DefaultAgent         string `toml:"default_agent,omitempty"`
	WorkspaceInitCommand string `toml:"workspace_init_command,omitempty"`
}

// RemoteProfile describes an SSH-reachable host whose daemon socket serves as
// an alternate multiplexer transport.
type RemoteProfile struct {
	Name       string `toml:"name"`
	Host       string `toml:"host"`
	SocketPath string `toml:"socket_path"`
}

// AttentionAck records the last acknowledged attention marker per workspace.
type AttentionAck struct {
	WorkspacePath string `toml:"workspace_path"`
	Marker        string `toml:"marker"`
}

// Config is the persisted grove.toml shape.
type Config struct {
	SidebarWidthPct     int             `toml:"sidebar_width_pct"`
	Projects            []Project       `toml:"projects"`
	RemoteProfiles      []RemoteProfile `toml:"remote_profiles"`
	ActiveRemoteProfile string          `toml:"active_remote_profile,omitempty"`
	AttentionAcks       []AttentionAck  `toml:"attention_acks"`
}

// Default returns a config with sensible zero-state values.
func Default() Config {
	return Config{SidebarWidthPct: DefaultSidebarWidthPct}
}

// DefaultPath is ~/.grove/grove.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("home directory unavailable")
	}
	return filepath.Join(home, ".grove", "grove.toml"), nil
}

// LoadFromPath reads the config, returning defaults when the file is absent.
func LoadFromPath(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SidebarWidthPct <= 0 || cfg.SidebarWidthPct >= 100 {
		cfg.SidebarWidthPct = DefaultSidebarWidthPct
	}
	return cfg, nil
}

// SaveToPath writes the config atomically, serialized across processes by a
// sibling lock file.
func SaveToPath(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	release, err := lock.Acquire(path + ".lock")
	if err != nil {
		return err
	}
	defer release()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// ProjectByName returns the named project, if configured.
func (c Config) ProjectByName(name string) (Project, bool) {
	for _, project := range c.Projects {
		if project.Name == name {
			return project, true
		}
	}
	return Project{}, false
}

// ActiveRemote resolves the active remote profile, if any.
func (c Config) ActiveRemote() (RemoteProfile, bool) {
	if c.ActiveRemoteProfile == "" {
		return RemoteProfile{}, false
	}
	for _, profile := range c.RemoteProfiles {
		if profile.Name == c.ActiveRemoteProfile {
			return profile, true
		}
	}
	return RemoteProfile{}, false
}
