package daemon

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/tmux"
)

// DefaultSocketFile is the socket name under ~/.grove.
const DefaultSocketFile = "groved.sock"

// Args configures a daemon run.
type Args struct {
	SocketPath string
	// Once makes the daemon exit after handling a single connection.
	Once bool
}

// Server serves the daemon protocol over a unix socket.
type Server struct {
	Service command.Service
	Mux     tmux.Multiplexer
}

// NewServer wires the production command service and tmux adapter.
func NewServer() *Server {
	mux := tmux.NewTmux()
	return &Server{
		Service: command.NewLifecycleService(mux),
		Mux:     mux,
	}
}

// DefaultSocketPath is ~/.grove/groved.sock.
func DefaultSocketPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("home directory unavailable")
	}
	return filepath.Join(home, ".grove", DefaultSocketFile), nil
}

// Serve binds the socket (reclaiming a stale path when nothing answers a
// probe connect) and handles connections until the listener dies or, with
// Once, after the first connection.
func (s *Server) Serve(args Args) error {
	socketPath := args.SocketPath
	if socketPath == "" {
		resolved, err := DefaultSocketPath()
		if err != nil {
			return err
		}
		socketPath = resolved
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return err
	}
	if err := reclaimStaleSocket(socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		s.handleConnection(conn)
		if args.Once {
			return nil
		}
	}
}

// reclaimStaleSocket removes a leftover socket file when no listener answers.
func reclaimStaleSocket(socketPath string) error {
	if _, err := os.Stat(socketPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err == nil {
		conn.Close()
		return fmt.Errorf("socket %s already has an active listener", socketPath)
	}
	return os.Remove(socketPath)
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var request Request
		response := Response{}
		if err := json.Unmarshal(line, &request); err != nil {
			response = Response{Type: ResponseSessionErr, Error: &CommandErrorPayload{
				Code:    string(command.CodeInvalidArgument),
				Message: fmt.Sprintf("malformed request: %v", err),
			}}
		} else {
			response = s.handleRequest(request)
		}
		raw, err := encodeLine(response)
		if err != nil {
			return
		}
		if _, err := conn.Write(raw); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(request Request) Response {
	switch request.Type {
	case RequestPing:
		return Response{Type: ResponsePong, ProtocolVersion: ProtocolVersion}
	case RequestWorkspaceList:
		return s.handleWorkspaceList(request)
	case RequestWorkspaceCreate:
		return s.handleWorkspaceCreate(request)
	case RequestSessionCapture:
		output, err := s.Mux.CaptureOutput(request.SessionName, request.ScrollbackLines, request.IncludeEscapeSequences)
		if err != nil {
			return sessionError(err)
		}
		return Response{Type: ResponseSessionOk, Output: output}
	case RequestSessionCursorMetadata:
		output, err := s.Mux.CaptureCursorMetadata(request.SessionName)
		if err != nil {
			return sessionError(err)
		}
		return Response{Type: ResponseSessionOk, Output: output}
	case RequestSessionSendKeys:
		if err := s.Mux.Execute(request.Command); err != nil {
			return sessionError(err)
		}
		return Response{Type: ResponseSessionOk}
	default:
		return Response{Type: ResponseSessionErr, Error: &CommandErrorPayload{
			Code:    string(command.CodeInvalidArgument),
			Message: fmt.Sprintf("unknown request type %q", request.Type),
		}}
	}
}

func (s *Server) handleWorkspaceList(request Request) Response {
	response, err := s.Service.WorkspaceList(command.WorkspaceListRequest{
		Context: command.RepoContext{RepoRoot: request.RepoRoot},
	})
	if err != nil {
		return Response{Type: ResponseWorkspaceListErr, Error: commandErrorPayload(err)}
	}
	views := make([]WorkspaceView, 0, len(response.Workspaces))
	for _, workspace := range response.Workspaces {
		views = append(views, viewFromWorkspace(workspace))
	}
	return Response{Type: ResponseWorkspaceListOk, Workspaces: views}
}

func (s *Server) handleWorkspaceCreate(request Request) Response {
	if request.Create == nil {
		return Response{Type: ResponseWorkspaceCreateErr, Error: &CommandErrorPayload{
			Code:    string(command.CodeInvalidArgument),
			Message: "workspace_create requires a create payload",
		}}
	}
	createRequest := command.WorkspaceCreateRequest{
		Context:        command.RepoContext{RepoRoot: request.RepoRoot},
		Name:           request.Create.Name,
		BaseBranch:     request.Create.BaseBranch,
		ExistingBranch: request.Create.ExistingBranch,
		DryRun:         request.Create.DryRun,
	}
	if request.Create.Agent != "" {
		agent, err := domain.ParseAgentType(request.Create.Agent)
		if err != nil {
			return Response{Type: ResponseWorkspaceCreateErr, Error: &CommandErrorPayload{
				Code:    string(command.CodeInvalidArgument),
				Message: err.Error(),
			}}
		}
		createRequest.Agent = &agent
	}
	response, err := s.Service.WorkspaceCreate(createRequest)
	if err != nil {
		return Response{Type: ResponseWorkspaceCreateErr, Error: commandErrorPayload(err)}
	}
	view := viewFromWorkspace(response.Workspace)
	return Response{Type: ResponseWorkspaceCreateOk, Workspace: &view, Warnings: response.Warnings}
}

func sessionError(err error) Response {
	return Response{Type: ResponseSessionErr, Error: &CommandErrorPayload{
		Code:    string(command.CodeRuntimeFailure),
		Message: err.Error(),
	}}
}

func commandErrorPayload(err error) *CommandErrorPayload {
	var cmdErr *command.Error
	if errors.As(err, &cmdErr) {
		return &CommandErrorPayload{Code: string(cmdErr.Code), Message: cmdErr.Message}
	}
	return &CommandErrorPayload{Code: string(command.CodeInternal), Message: err.Error()}
}

func viewFromWorkspace(workspace domain.Workspace) WorkspaceView {
	return WorkspaceView{
		Name:        workspace.Name,
		Path:        workspace.Path,
		ProjectName: workspace.ProjectName,
		Branch:      workspace.Branch,
		BaseBranch:  workspace.BaseBranch,
		Agent:       workspace.Agent.String(),
		Status:      workspace.Status.String(),
		IsMain:      workspace.IsMain,
		IsOrphaned:  workspace.IsOrphaned,
	}
}
