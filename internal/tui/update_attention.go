package tui

import (
	"sort"

	"github.com/mvessia/grove/internal/config"
)

// acknowledgeAttentionForPath records the current marker as acknowledged.
// Returns true when the ack table changed.
func (m *Model) acknowledgeAttentionForPath(workspacePath string) bool {
	marker, ok := m.lastAttentionMarkers[workspacePath]
	if !ok {
		return false
	}
	if saved, ok := m.attentionAckMarkers[workspacePath]; ok && saved == marker {
		return false
	}
	m.attentionAckMarkers[workspacePath] = marker
	return true
}

// attentionAcksForConfig renders the ack table in stable order for
// persistence.
func (m *Model) attentionAcksForConfig() []config.AttentionAck {
	acks := make([]config.AttentionAck, 0, len(m.attentionAckMarkers))
	for workspacePath, marker := range m.attentionAckMarkers {
		acks = append(acks, config.AttentionAck{WorkspacePath: workspacePath, Marker: marker})
	}
	sort.Slice(acks, func(i, j int) bool { return acks[i].WorkspacePath < acks[j].WorkspacePath })
	return acks
}

// runtimeConfigSnapshot is the config as the reducer would persist it now.
func (m *Model) runtimeConfigSnapshot() config.Config {
	snapshot := m.cfg
	snapshot.AttentionAcks = m.attentionAcksForConfig()
	return snapshot
}

func (m *Model) saveRuntimeConfig() {
	if m.configPath == "" {
		return
	}
	if err := config.SaveToPath(m.configPath, m.runtimeConfigSnapshot()); err != nil {
		m.lastTmuxError = "attention ack persist failed: " + err.Error()
	}
}

// refreshAttentionForPath recomputes NeedsAttention for one workspace. The
// selected workspace never shows attention; selecting it acknowledges the
// current marker and persists the ack.
func (m *Model) refreshAttentionForPath(workspacePath string) {
	selected := m.selectedWorkspace()
	if selected != nil && selected.Path == workspacePath {
		delete(m.workspaceAttention, workspacePath)
		if m.acknowledgeAttentionForPath(workspacePath) {
			m.saveRuntimeConfig()
		}
		return
	}

	marker, ok := m.lastAttentionMarkers[workspacePath]
	if !ok {
		delete(m.workspaceAttention, workspacePath)
		return
	}
	if saved, ok := m.attentionAckMarkers[workspacePath]; ok && saved == marker {
		delete(m.workspaceAttention, workspacePath)
		return
	}
	m.workspaceAttention[workspacePath] = struct{}{}
}

// workspaceNeedsAttention reports the derived indicator for a workspace.
func (m *Model) workspaceNeedsAttention(workspacePath string) bool {
	_, ok := m.workspaceAttention[workspacePath]
	return ok
}

// clearAttentionForSelectedWorkspace acks the selected workspace explicitly.
func (m *Model) clearAttentionForSelectedWorkspace() {
	workspace := m.selectedWorkspace()
	if workspace == nil {
		return
	}
	delete(m.workspaceAttention, workspace.Path)
	if m.acknowledgeAttentionForPath(workspace.Path) {
		m.saveRuntimeConfig()
	}
}

// reconcileAttentionTracking prunes both maps to the current workspace set
// and recomputes every indicator. Called when the workspace list changes.
func (m *Model) reconcileAttentionTracking() {
	valid := make(map[string]struct{}, len(m.workspaces))
	for _, workspace := range m.workspaces {
		valid[workspace.Path] = struct{}{}
	}
	for path := range m.workspaceAttention {
		if _, ok := valid[path]; !ok {
			delete(m.workspaceAttention, path)
		}
	}
	for path := range m.attentionAckMarkers {
		if _, ok := valid[path]; !ok {
			delete(m.attentionAckMarkers, path)
		}
	}
	for path := range m.lastAttentionMarkers {
		if _, ok := valid[path]; !ok {
			delete(m.lastAttentionMarkers, path)
		}
	}
	for _, workspace := range m.workspaces {
		m.refreshAttentionForPath(workspace.Path)
	}
}

// reconcileAttentionWithMarkerUpdates folds freshly polled markers into the
// tracker. Only the polled paths are updated; unpolled workspaces keep their
// previous markers.
func (m *Model) reconcileAttentionWithMarkerUpdates(polledPaths []string, markers map[string]string) {
	for _, path := range polledPaths {
		if marker, ok := markers[path]; ok {
			m.lastAttentionMarkers[path] = marker
		} else {
			delete(m.lastAttentionMarkers, path)
		}
	}
	for _, path := range polledPaths {
		m.refreshAttentionForPath(path)
	}
}
