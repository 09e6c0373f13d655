package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

const dialTimeout = 5 * time.Second

// roundTrip sends one request line and reads one response line.
func roundTrip(socketPath string, request Request) (Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	raw, err := encodeLine(request)
	if err != nil {
		return Response{}, err
	}
	if _, err := conn.Write(raw); err != nil {
		return Response{}, err
	}

	reader := bufio.NewReaderSize(conn, 4*1024*1024)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return Response{}, err
	}
	var response Response
	if err := json.Unmarshal(line, &response); err != nil {
		return Response{}, err
	}
	return response, nil
}

// Ping checks daemon liveness and protocol version.
func Ping(socketPath string) (int, error) {
	response, err := roundTrip(socketPath, Request{Type: RequestPing})
	if err != nil {
		return 0, err
	}
	if response.Type != ResponsePong {
		return 0, fmt.Errorf("unexpected daemon response %q", response.Type)
	}
	return response.ProtocolVersion, nil
}

// SessionCaptureViaSocket captures a remote session's pane content.
func SessionCaptureViaSocket(socketPath, sessionName string, scrollbackLines int, includeEscapeSequences bool) (string, error) {
	response, err := roundTrip(socketPath, Request{
		Type:                   RequestSessionCapture,
		SessionName:            sessionName,
		ScrollbackLines:        scrollbackLines,
		IncludeEscapeSequences: includeEscapeSequences,
	})
	if err != nil {
		return "", err
	}
	if response.Error != nil {
		return "", fmt.Errorf("%s", response.Error.Message)
	}
	return response.Output, nil
}

// SessionCursorMetadataViaSocket captures a remote session's cursor tuple.
func SessionCursorMetadataViaSocket(socketPath, sessionName string) (string, error) {
	response, err := roundTrip(socketPath, Request{
		Type:        RequestSessionCursorMetadata,
		SessionName: sessionName,
	})
	if err != nil {
		return "", err
	}
	if response.Error != nil {
		return "", fmt.Errorf("%s", response.Error.Message)
	}
	return response.Output, nil
}

// SessionSendKeysViaSocket executes a send command on the remote host.
func SessionSendKeysViaSocket(socketPath string, sendCommand []string) error {
	response, err := roundTrip(socketPath, Request{
		Type:    RequestSessionSendKeys,
		Command: sendCommand,
	})
	if err != nil {
		return err
	}
	if response.Error != nil {
		return fmt.Errorf("%s", response.Error.Message)
	}
	return nil
}

// WorkspaceListViaSocket lists a remote repository's workspaces.
func WorkspaceListViaSocket(socketPath, repoRoot string) ([]WorkspaceView, error) {
	response, err := roundTrip(socketPath, Request{
		Type:     RequestWorkspaceList,
		RepoRoot: repoRoot,
	})
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%s", response.Error.Message)
	}
	return response.Workspaces, nil
}

// WorkspaceCreateViaSocket creates a workspace on the remote host.
func WorkspaceCreateViaSocket(socketPath, repoRoot string, payload WorkspaceCreatePayload) (*WorkspaceView, []string, error) {
	response, err := roundTrip(socketPath, Request{
		Type:     RequestWorkspaceCreate,
		RepoRoot: repoRoot,
		Create:   &payload,
	})
	if err != nil {
		return nil, nil, err
	}
	if response.Error != nil {
		return nil, nil, fmt.Errorf("%s", response.Error.Message)
	}
	return response.Workspace, response.Warnings, nil
}
