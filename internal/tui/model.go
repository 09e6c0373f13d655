package tui

import (
	"time"

	"github.com/atotto/clipboard"

	"github.com/mvessia/grove/internal/capture"
	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/config"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/eventlog"
	"github.com/mvessia/grove/internal/input"
	"github.com/mvessia/grove/internal/runtime"
	"github.com/mvessia/grove/internal/tmux"
)

// PaneFocus selects which pane consumes navigation keys.
type PaneFocus int

const (
	FocusSidebar PaneFocus = iota
	FocusPreview
)

// PreviewTab selects what the preview pane shows for the selected workspace.
type PreviewTab int

const (
	TabAgent PreviewTab = iota
	TabGit
	TabShell
)

func (t PreviewTab) String() string {
	switch t {
	case TabGit:
		return "git"
	case TabShell:
		return "shell"
	default:
		return "agent"
	}
}

// ToastSeverity grades toast messages.
type ToastSeverity int

const (
	ToastInfo ToastSeverity = iota
	ToastSuccess
	ToastError
)

type toast struct {
	text      string
	severity  ToastSeverity
	expiresAt time.Time
}

// sessionTracker tracks helper-session launch bookkeeping per session name.
type sessionTracker struct {
	ready    map[string]struct{}
	failed   map[string]struct{}
	inFlight map[string]struct{}
}

func newSessionTracker() sessionTracker {
	return sessionTracker{
		ready:    map[string]struct{}{},
		failed:   map[string]struct{}{},
		inFlight: map[string]struct{}{},
	}
}

func (t *sessionTracker) isReady(session string) bool {
	_, ok := t.ready[session]
	return ok
}

func (t *sessionTracker) isFailed(session string) bool {
	_, ok := t.failed[session]
	return ok
}

func (t *sessionTracker) isInFlight(session string) bool {
	_, ok := t.inFlight[session]
	return ok
}

func (t *sessionTracker) markInFlight(session string) { t.inFlight[session] = struct{}{} }

func (t *sessionTracker) markReady(session string) {
	delete(t.inFlight, session)
	delete(t.failed, session)
	t.ready[session] = struct{}{}
}

func (t *sessionTracker) markFailed(session string) {
	delete(t.inFlight, session)
	delete(t.ready, session)
	t.failed[session] = struct{}{}
}

func (t *sessionTracker) removeReady(session string) { delete(t.ready, session) }

// QueuedInteractiveSend is one queued send-keys command.
type QueuedInteractiveSend struct {
	Command       []string
	TargetSession string
	ActionKind    string
	Seq           uint64
	ReceivedAt    time.Time
	LiteralChars  int
}

// PendingInteractiveInput traces one forwarded input until the next changed
// capture proves it landed on screen.
type PendingInteractiveInput struct {
	Seq           uint64
	ReceivedAt    time.Time
	ForwardedAt   time.Time
	TargetSession string
}

// interactiveState is live while the user forwards keystrokes to a session.
type interactiveState struct {
	targetSession  string
	translator     input.Translator
	lastKeyTime    time.Time
	bracketedPaste bool
	viewportCols   int
	viewportRows   int
	cursor         *cursorOverlay
	agent          domain.AgentType
}

type cursorOverlay struct {
	paneWidth     int
	paneHeight    int
	cursorX       int
	cursorY       int
	cursorVisible bool
}

// inFlightFlags gates re-entry of each async operation.
type inFlightFlags struct {
	previewPoll         bool
	workspaceStatusPoll bool
	interactiveSend     bool
	refresh             bool
	create              bool
	delete              bool
	merge               bool
	updateFromBase      bool
	start               bool
	stop                bool
	restart             bool
	projectDelete       bool
}

// schedulerState owns tick deadlines. All deadlines are wall-clock instants.
type schedulerState struct {
	nextTickDueAt             time.Time
	nextTickIntervalMs        uint64
	nextPollDueAt             time.Time
	nextWorkspaceRefreshDueAt time.Time
	nextVisualDueAt           time.Time
	interactivePollDueAt      time.Time
}

// pollState owns capture-change tracking across poll cycles.
type pollState struct {
	generation              uint64
	previewPollRequested    bool
	statusPollRequested     bool
	previewPollStartedAt    time.Time
	statusPollStartedAt     time.Time
	statusPollCursor        int
	outputChanging          bool
	agentOutputChanging     bool
	agentActivityFrames     []bool
	workspaceStatusDigests  map[string]capture.Digest
	workspaceOutputChanging map[string]bool
	fastAnimationFrame      uint64
}

// Clipboard mediates copy/paste; the reducer holds the only handle.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Model is the reducer's exclusive mutable state.
type Model struct {
	width  int
	height int

	repoRoot   string
	configPath string
	cfg        config.Config

	mux      tmux.Multiplexer
	service  *command.LifecycleService
	executor *runtime.Executor
	logger   eventlog.Logger
	recorder *replayRecorder
	clip     Clipboard
	now      func() time.Time

	workspaces    []domain.Workspace
	selectedIndex int
	focus         PaneFocus
	previewTab    PreviewTab

	preview preview
	poll    pollState
	sched   schedulerState
	flags   inFlightFlags

	interactive   *interactiveState
	pendingSends  []QueuedInteractiveSend
	pendingInputs []PendingInteractiveInput
	inputSeq      uint64

	lastAttentionMarkers map[string]string
	attentionAckMarkers  map[string]string
	workspaceAttention   map[string]struct{}

	lazygitSessions sessionTracker
	shellSessions   sessionTracker

	dialog      Dialog
	palette     paletteState
	helpVisible bool

	toasts        []toast
	lastTmuxError string

	quitting bool
}

// Options configures a new Model.
type Options struct {
	RepoRoot   string
	ConfigPath string
	Config     config.Config
	Mux        tmux.Multiplexer
	Service    *command.LifecycleService
	Logger     eventlog.Logger
	Recorder   *replayRecorder
	Clipboard  Clipboard
	Now        func() time.Time
}

// NewModel builds the reducer state. Nil collaborators get production
// defaults.
func NewModel(options Options) *Model {
	if options.Mux == nil {
		options.Mux = tmux.NewTmux()
	}
	if options.Service == nil {
		options.Service = command.NewLifecycleService(options.Mux)
	}
	if options.Logger == nil {
		options.Logger = eventlog.NullLogger{}
	}
	if options.Clipboard == nil {
		options.Clipboard = systemClipboard{}
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	model := &Model{
		repoRoot:   options.RepoRoot,
		configPath: options.ConfigPath,
		cfg:        options.Config,
		mux:        options.Mux,
		service:    options.Service,
		executor:   options.Service.Executor,
		logger:     options.Logger,
		recorder:   options.Recorder,
		clip:       options.Clipboard,
		now:        options.Now,

		lastAttentionMarkers: map[string]string{},
		attentionAckMarkers:  map[string]string{},
		workspaceAttention:   map[string]struct{}{},
		lazygitSessions:      newSessionTracker(),
		shellSessions:        newSessionTracker(),
		preview:              newPreview(),
	}
	model.poll.workspaceStatusDigests = map[string]capture.Digest{}
	model.poll.workspaceOutputChanging = map[string]bool{}
	for _, ack := range options.Config.AttentionAcks {
		model.attentionAckMarkers[ack.WorkspacePath] = ack.Marker
	}
	return model
}

func (m *Model) selectedWorkspace() *domain.Workspace {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.workspaces) {
		return nil
	}
	return &m.workspaces[m.selectedIndex]
}

func (m *Model) selectedWorkspaceStatus() domain.WorkspaceStatus {
	if workspace := m.selectedWorkspace(); workspace != nil {
		return workspace.Status
	}
	return domain.StatusUnknown
}

func (m *Model) workspaceIndexByPath(path string) int {
	for i := range m.workspaces {
		if m.workspaces[i].Path == path {
			return i
		}
	}
	return -1
}

func (m *Model) showToast(text string, severity ToastSeverity) {
	m.toasts = append(m.toasts, toast{
		text:      text,
		severity:  severity,
		expiresAt: m.now().Add(toastDuration),
	})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) pruneToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, entry := range m.toasts {
		if entry.expiresAt.After(now) {
			kept = append(kept, entry)
		}
	}
	m.toasts = kept
}

func (m *Model) pendingInputDepth() int {
	return len(m.pendingInputs)
}

func (m *Model) oldestPendingInputAgeMs(now time.Time) uint64 {
	if len(m.pendingInputs) == 0 {
		return 0
	}
	return durationMillis(now.Sub(m.pendingInputs[0].ReceivedAt))
}

func durationMillis(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}

func (m *Model) logEvent(event, kind string, fields map[string]any) {
	entry := eventlog.New(event, kind)
	if fields != nil {
		entry = entry.WithDataFields(fields)
	}
	m.logger.Log(entry)
}

func (m *Model) logInputEvent(kind string, seq uint64, fields map[string]any) {
	entry := eventlog.New("input", kind).WithData("seq", seq)
	if fields != nil {
		entry = entry.WithDataFields(fields)
	}
	m.logger.Log(entry)
}
