package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/domain"
)

type stubService struct {
	listResponse command.WorkspaceListResponse
	listErr      error
}

func (s *stubService) WorkspaceList(command.WorkspaceListRequest) (command.WorkspaceListResponse, error) {
	return s.listResponse, s.listErr
}

func (s *stubService) WorkspaceCreate(request command.WorkspaceCreateRequest) (command.WorkspaceMutationResponse, error) {
	if request.Name == "" {
		return command.WorkspaceMutationResponse{}, &command.Error{
			Code: command.CodeInvalidArgument, Message: "workspace name is required",
		}
	}
	ws, err := domain.NewWorkspace(request.Name, "/r/"+request.Name, request.Name,
		domain.AgentClaude, domain.StatusIdle, false)
	if err != nil {
		return command.WorkspaceMutationResponse{}, err
	}
	return command.WorkspaceMutationResponse{Workspace: ws, Warnings: []string{"env copy skipped"}}, nil
}

func (s *stubService) WorkspaceEdit(command.WorkspaceEditRequest) (command.WorkspaceMutationResponse, error) {
	return command.WorkspaceMutationResponse{}, nil
}
func (s *stubService) WorkspaceDelete(command.WorkspaceDeleteRequest) (command.WorkspaceMutationResponse, error) {
	return command.WorkspaceMutationResponse{}, nil
}
func (s *stubService) WorkspaceMerge(command.WorkspaceMergeRequest) (command.WorkspaceMutationResponse, error) {
	return command.WorkspaceMutationResponse{}, nil
}
func (s *stubService) WorkspaceUpdate(command.WorkspaceUpdateRequest) (command.WorkspaceMutationResponse, error) {
	return command.WorkspaceMutationResponse{}, nil
}
func (s *stubService) AgentStart(command.AgentStartRequest) (command.AgentMutationResponse, error) {
	return command.AgentMutationResponse{}, nil
}
func (s *stubService) AgentStop(command.AgentStopRequest) (command.AgentMutationResponse, error) {
	return command.AgentMutationResponse{}, nil
}

type captureMux struct {
	output   string
	captured [][]string
}

func (m *captureMux) Execute(command []string) error {
	m.captured = append(m.captured, command)
	return nil
}
func (m *captureMux) CaptureOutput(string, int, bool) (string, error) { return m.output, nil }
func (m *captureMux) CaptureCursorMetadata(string) (string, error)    { return "80 24 3 2 1", nil }
func (m *captureMux) ResizeSession(string, int, int) error            { return nil }
func (m *captureMux) PasteBuffer(string, string) error                { return nil }
func (m *captureMux) SupportsBackgroundSend() bool                    { return true }
func (m *captureMux) SupportsBackgroundPoll() bool                    { return true }
func (m *captureMux) SupportsBackgroundLaunch() bool                  { return true }

func startServer(t *testing.T, server *Server) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "groved.sock")
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(Args{SocketPath: socketPath})
	}()
	require.Eventually(t, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() {
		os.Remove(socketPath)
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})
	return socketPath
}

func testServerWorkspace(t *testing.T) domain.Workspace {
	t.Helper()
	ws, err := domain.NewWorkspace("feature-a", "/r/feature-a", "feature-a",
		domain.AgentClaude, domain.StatusActive, false)
	require.NoError(t, err)
	return ws
}

func TestPingRoundTrip(t *testing.T) {
	server := &Server{Service: &stubService{}, Mux: &captureMux{}}
	socketPath := startServer(t, server)

	version, err := Ping(socketPath)
	require.NoError(t, err)
	assert.Equal(t, ProtocolVersion, version)
}

func TestWorkspaceListRoundTrip(t *testing.T) {
	server := &Server{
		Service: &stubService{listResponse: command.WorkspaceListResponse{
			Workspaces: []domain.Workspace{testServerWorkspace(t)},
		}},
		Mux: &captureMux{},
	}
	socketPath := startServer(t, server)

	views, err := WorkspaceListViaSocket(socketPath, "/r")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "feature-a", views[0].Name)
	assert.Equal(t, "claude", views[0].Agent)
	assert.Equal(t, "active", views[0].Status)
}

func TestWorkspaceListError(t *testing.T) {
	server := &Server{
		Service: &stubService{listErr: &command.Error{Code: command.CodeNotFound, Message: "repo name unavailable"}},
		Mux:     &captureMux{},
	}
	socketPath := startServer(t, server)

	_, err := WorkspaceListViaSocket(socketPath, "/r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo name unavailable")
}

func TestWorkspaceCreateRoundTrip(t *testing.T) {
	server := &Server{Service: &stubService{}, Mux: &captureMux{}}
	socketPath := startServer(t, server)

	view, warnings, err := WorkspaceCreateViaSocket(socketPath, "/r", WorkspaceCreatePayload{
		Name:       "feature-a",
		BaseBranch: "main",
	})
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "feature-a", view.Name)
	assert.Equal(t, []string{"env copy skipped"}, warnings)
}

func TestSessionCaptureAndSendKeys(t *testing.T) {
	mux := &captureMux{output: "pane content"}
	server := &Server{Service: &stubService{}, Mux: mux}
	socketPath := startServer(t, server)

	output, err := SessionCaptureViaSocket(socketPath, "grove-ws-feature-a", 600, true)
	require.NoError(t, err)
	assert.Equal(t, "pane content", output)

	cursor, err := SessionCursorMetadataViaSocket(socketPath, "grove-ws-feature-a")
	require.NoError(t, err)
	assert.Equal(t, "80 24 3 2 1", cursor)

	require.NoError(t, SessionSendKeysViaSocket(socketPath,
		[]string{"tmux", "send-keys", "-t", "grove-ws-feature-a", "-l", "abc"}))
	require.Len(t, mux.captured, 1)
	assert.Equal(t, "-l", mux.captured[0][4])
}

func TestServeOnceExitsAfterOneConnection(t *testing.T) {
	server := &Server{Service: &stubService{}, Mux: &captureMux{}}
	socketPath := filepath.Join(t.TempDir(), "groved.sock")
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(Args{SocketPath: socketPath, Once: true})
	}()
	require.Eventually(t, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err := Ping(socketPath)
	require.NoError(t, err)

	select {
	case serveErr := <-done:
		assert.NoError(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit after one connection")
	}
}

func TestReclaimStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "groved.sock")
	require.NoError(t, os.WriteFile(socketPath, nil, 0o644))
	require.NoError(t, reclaimStaleSocket(socketPath))
	_, err := os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err))
}
