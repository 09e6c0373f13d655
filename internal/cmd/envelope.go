// Package cmd provides the grove CLI commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mvessia/grove/internal/command"
)

// Envelope is the single JSON shape every grove command emits: ok plus a
// result, or ok=false plus code/message and a fix hint.
type Envelope struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Fix     string `json:"fix,omitempty"`
	Result  any    `json:"result,omitempty"`
}

func successEnvelope(result any) Envelope {
	return Envelope{OK: true, Result: result}
}

func errorEnvelope(err error, fix string) Envelope {
	var cmdErr *command.Error
	if errors.As(err, &cmdErr) {
		return Envelope{OK: false, Code: string(cmdErr.Code), Message: cmdErr.Message, Fix: fix}
	}
	return Envelope{OK: false, Code: string(command.CodeInternal), Message: err.Error(), Fix: fix}
}

// emitJSON prints an envelope and returns the matching exit code.
func emitJSON(envelope Envelope) int {
	raw, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode envelope: %v\n", err)
		return 1
	}
	fmt.Println(string(raw))
	if envelope.OK {
		return 0
	}
	return 1
}
