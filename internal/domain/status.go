package domain

// WorkspaceStatus is the engine's view of what a workspace's session is doing.
type WorkspaceStatus int

const (
	StatusUnknown WorkspaceStatus = iota
	StatusMain
	StatusIdle
	StatusActive
	StatusThinking
	StatusWaiting
	StatusDone
	StatusError
	StatusUnsupported
)

var statusNames = [...]string{
	StatusUnknown:     "unknown",
	StatusMain:        "main",
	StatusIdle:        "idle",
	StatusActive:      "active",
	StatusThinking:    "thinking",
	StatusWaiting:     "waiting",
	StatusDone:        "done",
	StatusError:       "error",
	StatusUnsupported: "unsupported",
}

func (s WorkspaceStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// IsWorking reports whether the status represents an agent actively producing
// output. Used by the scheduler to pick faster tick intervals.
func (s WorkspaceStatus) IsWorking() bool {
	return s == StatusActive || s == StatusThinking
}

// NeedsUser reports whether the agent is blocked on the user.
func (s WorkspaceStatus) NeedsUser() bool {
	return s == StatusWaiting || s == StatusError
}
