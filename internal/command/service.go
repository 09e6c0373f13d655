// Package command is Grove's imperative surface: typed operations over
// workspaces and agent sessions, shared by the CLI, the daemon, and the TUI.
package command

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/git"
	"github.com/mvessia/grove/internal/lifecycle"
	"github.com/mvessia/grove/internal/runtime"
	"github.com/mvessia/grove/internal/tmux"
)

// ErrorCode classifies command failures for callers.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "invalid_argument"
	CodeNotFound        ErrorCode = "not_found"
	CodeConflict        ErrorCode = "conflict"
	CodeRuntimeFailure  ErrorCode = "runtime_failure"
	CodeInternal        ErrorCode = "internal"
)

// Error is a typed command failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RepoContext scopes a request to one repository.
type RepoContext struct {
	RepoRoot string
}

// Selector identifies a workspace by name, path, or both. With both set, the
// two must resolve to the same workspace.
type Selector struct {
	Name string
	Path string
}

// Requests and responses.

type WorkspaceListRequest struct {
	Context RepoContext
}

type WorkspaceListResponse struct {
	Workspaces []domain.Workspace
}

type WorkspaceCreateRequest struct {
	Context        RepoContext
	Name           string
	BaseBranch     string
	ExistingBranch string
	Agent          *domain.AgentType
	Start          bool
	DryRun         bool
	SetupTemplate  *lifecycle.SetupTemplate
}

type WorkspaceEditRequest struct {
	Context    RepoContext
	Selector   Selector
	Agent      *domain.AgentType
	BaseBranch string
}

type WorkspaceDeleteRequest struct {
	Context      RepoContext
	Selector     Selector
	DeleteBranch bool
	ForceStop    bool
	DryRun       bool
}

type WorkspaceMergeRequest struct {
	Context          RepoContext
	Selector         Selector
	CleanupWorkspace bool
	CleanupBranch    bool
	DryRun           bool
}

type WorkspaceUpdateRequest struct {
	Context  RepoContext
	Selector Selector
	DryRun   bool
}

type AgentStartRequest struct {
	Context          RepoContext
	Selector         Selector
	WorkspaceHint    *domain.Workspace
	Prompt           string
	PreLaunchCommand string
	SkipPermissions  bool
	CaptureCols      int
	CaptureRows      int
	DryRun           bool
}

type AgentStopRequest struct {
	Context       RepoContext
	Selector      Selector
	WorkspaceHint *domain.Workspace
	DryRun        bool
}

type WorkspaceMutationResponse struct {
	Workspace domain.Workspace
	Warnings  []string
}

type AgentMutationResponse struct {
	Workspace domain.Workspace
	Status    domain.WorkspaceStatus
	Warnings  []string
}

// Service is the typed command surface.
type Service interface {
	WorkspaceList(request WorkspaceListRequest) (WorkspaceListResponse, error)
	WorkspaceCreate(request WorkspaceCreateRequest) (WorkspaceMutationResponse, error)
	WorkspaceEdit(request WorkspaceEditRequest) (WorkspaceMutationResponse, error)
	WorkspaceDelete(request WorkspaceDeleteRequest) (WorkspaceMutationResponse, error)
	WorkspaceMerge(request WorkspaceMergeRequest) (WorkspaceMutationResponse, error)
	WorkspaceUpdate(request WorkspaceUpdateRequest) (WorkspaceMutationResponse, error)
	AgentStart(request AgentStartRequest) (AgentMutationResponse, error)
	AgentStop(request AgentStopRequest) (AgentMutationResponse, error)
}

// LifecycleService implements Service over the lifecycle engine and the
// session runtime.
type LifecycleService struct {
	GitRunner     git.Runner
	ScriptRunner  git.SetupScriptRunner
	CommandRunner git.SetupCommandRunner
	Executor      *runtime.Executor
	Terminator    lifecycle.SessionTerminator
}

// NewLifecycleService wires the production collaborators.
func NewLifecycleService(mux tmux.Multiplexer) *LifecycleService {
	return &LifecycleService{
		GitRunner:     git.NewCommandRunner(),
		ScriptRunner:  git.CommandSetupScriptRunner{},
		CommandRunner: git.CommandSetupCommandRunner{},
		Executor:      runtime.NewExecutor(mux),
		Terminator:    lifecycle.NoopSessionTerminator{},
	}
}

// referToSameLocation compares paths after cleaning and absolutization.
func referToSameLocation(a, b string) bool {
	cleanA, errA := filepath.Abs(filepath.Clean(a))
	cleanB, errB := filepath.Abs(filepath.Clean(b))
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return cleanA == cleanB
}

// ResolveWorkspace applies selector-resolution semantics over an inventory.
func ResolveWorkspace(workspaces []domain.Workspace, selector Selector) (domain.Workspace, error) {
	switch {
	case selector.Name != "" && selector.Path != "":
		var byName, byPath *domain.Workspace
		for i := range workspaces {
			if workspaces[i].Name == selector.Name && byName == nil {
				byName = &workspaces[i]
			}
			if referToSameLocation(workspaces[i].Path, selector.Path) && byPath == nil {
				byPath = &workspaces[i]
			}
		}
		switch {
		case byName != nil && byPath != nil && referToSameLocation(byName.Path, byPath.Path):
			return *byName, nil
		case byName != nil && byPath != nil:
			return domain.Workspace{}, newError(CodeInvalidArgument,
				"workspace name/path selectors resolved to different workspaces")
		default:
			return domain.Workspace{}, newError(CodeNotFound,
				"workspace selector did not match any workspace")
		}
	case selector.Name != "":
		for _, workspace := range workspaces {
			if workspace.Name == selector.Name {
				return workspace, nil
			}
		}
		return domain.Workspace{}, newError(CodeNotFound, "workspace '%s' was not found", selector.Name)
	case selector.Path != "":
		for _, workspace := range workspaces {
			if referToSameLocation(workspace.Path, selector.Path) {
				return workspace, nil
			}
		}
		return domain.Workspace{}, newError(CodeNotFound, "workspace path '%s' was not found", selector.Path)
	default:
		return domain.Workspace{}, newError(CodeInvalidArgument, "workspace selector is required")
	}
}

// classifyRuntimeMessage maps free-form runtime failures onto error codes by
// the documented substrings. The substrings are part of the contract with the
// git runner collaborators.
func classifyRuntimeMessage(message string) *Error {
	lower := strings.ToLower(message)
	code := CodeRuntimeFailure
	switch {
	case strings.Contains(lower, "required"), strings.Contains(lower, "matches base branch"):
		code = CodeInvalidArgument
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "path does not exist"),
		strings.Contains(lower, "project root unavailable"):
		code = CodeNotFound
	case strings.Contains(lower, "conflict"),
		strings.Contains(lower, "uncommitted changes"),
		strings.Contains(lower, "merge failed"):
		code = CodeConflict
	}
	return &Error{Code: code, Message: message}
}

// classifyLifecycleError maps typed lifecycle errors onto command codes.
func classifyLifecycleError(err error) *Error {
	message := err.Error()
	var invalidMarker lifecycle.InvalidAgentMarkerError
	switch {
	case errors.Is(err, domain.ErrEmptyWorkspaceName),
		errors.Is(err, domain.ErrInvalidWorkspaceName),
		errors.Is(err, lifecycle.ErrEmptyBaseBranchRequest),
		errors.Is(err, lifecycle.ErrEmptyExistingBranch),
		errors.Is(err, lifecycle.ErrInvalidPullRequestNumber),
		errors.Is(err, lifecycle.ErrEmptyBaseBranch),
		errors.As(err, &invalidMarker):
		return &Error{Code: CodeInvalidArgument, Message: message}
	case errors.Is(err, lifecycle.ErrRepoNameUnavailable),
		errors.Is(err, lifecycle.ErrMissingAgentMarker),
		errors.Is(err, lifecycle.ErrMissingBaseMarker):
		return &Error{Code: CodeNotFound, Message: message}
	default:
		return classifyRuntimeMessage(message)
	}
}
