package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvessia/grove/internal/config"
	"github.com/mvessia/grove/internal/eventlog"
)

// RunArgs configures a TUI run.
type RunArgs struct {
	RepoRoot     string
	EventLogPath string
	DebugRecord  bool
}

// Run loads config, wires the event log and optional debug recorder, and
// drives the bubbletea program until quit.
func Run(args RunArgs) error {
	configPath, err := config.DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return err
	}

	var logger eventlog.Logger = eventlog.NullLogger{}
	if args.EventLogPath != "" {
		fileLogger, err := eventlog.OpenFileLogger(args.EventLogPath)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer fileLogger.Close()
		logger = fileLogger
	}

	var recorder *replayRecorder
	if args.DebugRecord {
		recorder = newReplayRecorder(logger)
	}

	model := NewModel(Options{
		RepoRoot:   args.RepoRoot,
		ConfigPath: configPath,
		Config:     cfg,
		Logger:     logger,
		Recorder:   recorder,
	})
	model.recordBootstrap()

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = program.Run()
	return err
}
