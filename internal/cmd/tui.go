package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvessia/grove/internal/daemon"
	"github.com/mvessia/grove/internal/tui"
	"github.com/mvessia/grove/internal/util"
)

var (
	tuiRepoFlag        string
	tuiEventLogFlag    string
	tuiDebugRecordFlag bool

	daemonSocketFlag string
	daemonOnceFlag   bool
)

var tuiCmd = &cobra.Command{
	Use:     "tui",
	GroupID: GroupUI,
	Short:   "Run the interactive list+preview interface",
	Long: `Run Grove's list+preview TUI for the given repository.

With --event-log, telemetry is appended as NDJSON. With --debug-record, the
log additionally captures a deterministic replay trace.

Examples:
  grove tui --repo ~/code/api
  grove tui --repo ~/code/api --event-log ~/.grove/events.jsonl --debug-record`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eventLogPath := resolveEventLogPath(tuiEventLogFlag, tuiDebugRecordFlag, time.Now())
		return tui.Run(tui.RunArgs{
			RepoRoot:     util.ExpandHome(tuiRepoFlag),
			EventLogPath: eventLogPath,
			DebugRecord:  tuiDebugRecordFlag,
		})
	},
}

// resolveEventLogPath expands the flag; debug recording with no explicit log
// gets a timestamped file under ~/.grove.
func resolveEventLogPath(flagValue string, debugRecord bool, now time.Time) string {
	if flagValue != "" {
		return util.ExpandHome(flagValue)
	}
	if !debugRecord {
		return ""
	}
	name := fmt.Sprintf("grove-debug-%s.jsonl", now.Format("20060102-150405"))
	return util.ExpandHome(filepath.Join("~/.grove", name))
}

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: GroupUI,
	Short:   "Serve the unix-socket RPC for remote hosts",
	Long: `Serve grove's line-delimited JSON RPC over a unix socket so a TUI on
another machine can drive this host's workspaces through an SSH-forwarded
socket.

Examples:
  grove daemon
  grove daemon --socket /run/groved.sock --once`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := daemon.NewServer()
		err := server.Serve(daemon.Args{
			SocketPath: util.ExpandHome(daemonSocketFlag),
			Once:       daemonOnceFlag,
		})
		if err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
			return err
		}
		return nil
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiRepoFlag, "repo", ".", "repository root")
	tuiCmd.Flags().StringVar(&tuiEventLogFlag, "event-log", "", "append NDJSON telemetry to this file")
	tuiCmd.Flags().BoolVar(&tuiDebugRecordFlag, "debug-record", false, "record a deterministic replay trace")

	daemonCmd.Flags().StringVar(&daemonSocketFlag, "socket", "", "socket path (default ~/.grove/groved.sock)")
	daemonCmd.Flags().BoolVar(&daemonOnceFlag, "once", false, "exit after handling one connection")

	rootCmd.AddCommand(tuiCmd, daemonCmd)
}
