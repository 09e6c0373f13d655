package runtime

import (
	"strings"

	"github.com/mvessia/grove/internal/capture"
	"github.com/mvessia/grove/internal/domain"
)

// SessionActivity describes whether the multiplexer reported the session as
// recently active. Reserved for adapters that expose activity timestamps.
type SessionActivity int

const (
	SessionActivityActive SessionActivity = iota
	SessionActivityIdle
)

// statusMarkerTailLines bounds the marker scan to the capture's tail so stale
// scrollback never wins over the agent's current state.
const statusMarkerTailLines = 40

// markerCatalog lists the agent-specific substrings for each distinguished
// status, scanned in priority order Error > Waiting > Thinking > Done. The
// strings track each agent's terminal UI and are pinned by fixtures in
// status_test.go.
type markerCatalog struct {
	errorMarkers    []string
	waitingMarkers  []string
	thinkingMarkers []string
	doneMarkers     []string
}

var claudeMarkers = markerCatalog{
	errorMarkers:    []string{"API Error", "✗ Error", "Execution error"},
	waitingMarkers:  []string{"Do you want", "Would you like", "❯ 1. Yes", "esc to cancel"},
	thinkingMarkers: []string{"esc to interrupt", "✻ Thinking", "Effecting…", "Wrangling…"},
	doneMarkers:     []string{"✻ Done", "⏺ Done"},
}

var codexMarkers = markerCatalog{
	errorMarkers:    []string{"stream error", "ERROR:", "unexpected status"},
	waitingMarkers:  []string{"Allow command?", "Approve this action", "y/N"},
	thinkingMarkers: []string{"Esc to interrupt", "• Working"},
	doneMarkers:     []string{"• Done", "tokens used"},
}

func catalogForAgent(agent domain.AgentType) (markerCatalog, bool) {
	switch agent {
	case domain.AgentClaude:
		return claudeMarkers, true
	case domain.AgentCodex:
		return codexMarkers, true
	default:
		return markerCatalog{}, false
	}
}

// DetectStatus infers a workspace status from cleaned capture output. It is a
// pure function of its arguments.
func DetectStatus(cleaned string, _ SessionActivity, isMain, hasLiveSession, supportedAgent bool, agent domain.AgentType, _ string) domain.WorkspaceStatus {
	if !hasLiveSession {
		if isMain {
			return domain.StatusMain
		}
		return domain.StatusIdle
	}
	if !supportedAgent {
		return domain.StatusUnsupported
	}
	catalog, ok := catalogForAgent(agent)
	if !ok {
		return domain.StatusUnsupported
	}

	tail := strings.Join(capture.TailLines(cleaned, statusMarkerTailLines), "\n")
	switch {
	case containsAny(tail, catalog.errorMarkers):
		return domain.StatusError
	case containsAny(tail, catalog.waitingMarkers):
		return domain.StatusWaiting
	case containsAny(tail, catalog.thinkingMarkers):
		return domain.StatusThinking
	case containsAny(tail, catalog.doneMarkers):
		return domain.StatusDone
	default:
		return domain.StatusActive
	}
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
