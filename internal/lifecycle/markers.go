// Package lifecycle plans and executes workspace create, delete, merge, and
// update operations against a git runner, and owns the .grove marker files.
package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvessia/grove/internal/domain"
)

const (
	groveDir        = ".grove"
	agentMarkerFile = ".grove/agent"
	baseMarkerFile  = ".grove/base"
	setupScriptFile = ".grove/setup.sh"
	markerFileMode  = 0o644
	groveDirMode    = 0o755
)

// Marker errors.
var (
	ErrMissingAgentMarker = errors.New("workspace agent marker is missing")
	ErrMissingBaseMarker  = errors.New("workspace base marker is missing")
	ErrEmptyBaseBranch    = errors.New("workspace base marker is empty")
)

// InvalidAgentMarkerError reports an agent marker whose value parses to no
// known agent.
type InvalidAgentMarkerError struct {
	Value string
}

func (e InvalidAgentMarkerError) Error() string {
	return fmt.Sprintf("workspace agent marker is invalid: %s", e.Value)
}

// Markers is the pair of persisted per-workspace markers.
type Markers struct {
	Agent      domain.AgentType
	BaseBranch string
}

// ReadMarkers reads both markers for a workspace.
func ReadMarkers(workspacePath string) (Markers, error) {
	agent, err := ReadAgentMarker(workspacePath)
	if err != nil {
		return Markers{}, err
	}
	base, err := readBaseMarker(workspacePath)
	if err != nil {
		return Markers{}, err
	}
	return Markers{Agent: agent, BaseBranch: base}, nil
}

// ReadAgentMarker reads .grove/agent.
func ReadAgentMarker(workspacePath string) (domain.AgentType, error) {
	raw, err := os.ReadFile(filepath.Join(workspacePath, agentMarkerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrMissingAgentMarker
		}
		return 0, fmt.Errorf("workspace marker io error: %w", err)
	}
	value := strings.TrimSpace(string(raw))
	agent, err := domain.ParseAgentType(value)
	if err != nil {
		return 0, InvalidAgentMarkerError{Value: value}
	}
	return agent, nil
}

func readBaseMarker(workspacePath string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(workspacePath, baseMarkerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrMissingBaseMarker
		}
		return "", fmt.Errorf("workspace marker io error: %w", err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", ErrEmptyBaseBranch
	}
	return value, nil
}

// WriteAgentMarker writes .grove/agent, creating .grove if needed. Markers are
// overwritten; marker writes are idempotent.
func WriteAgentMarker(workspacePath string, agent domain.AgentType) error {
	return writeMarker(workspacePath, agentMarkerFile, agent.String())
}

// WriteBaseMarker writes .grove/base.
func WriteBaseMarker(workspacePath, baseBranch string) error {
	return writeMarker(workspacePath, baseMarkerFile, baseBranch)
}

func writeMarker(workspacePath, relPath, value string) error {
	dir := filepath.Join(workspacePath, groveDir)
	if err := os.MkdirAll(dir, groveDirMode); err != nil {
		return fmt.Errorf("io error: %w", err)
	}
	path := filepath.Join(workspacePath, relPath)
	if err := os.WriteFile(path, []byte(value+"\n"), markerFileMode); err != nil {
		return fmt.Errorf("io error: %w", err)
	}
	return nil
}
