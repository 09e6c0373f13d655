package eventlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoggerWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove-events.jsonl")
	logger, err := OpenFileLogger(path)
	require.NoError(t, err)

	logger.Log(New("state_change", "selection_changed").WithData("index", 1))
	logger.Log(New("tick", "scheduled").WithDataFields(map[string]any{
		"interval_ms": 250,
		"source":      "adaptive_poll",
	}))
	require.NoError(t, logger.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "state_change", first["event"])
	assert.Equal(t, "selection_changed", first["kind"])
	assert.NotZero(t, first["ts"])
	data, ok := first["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["index"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "adaptive_poll", second["data"].(map[string]any)["source"])
}

func TestFileLoggerFlushesOnEventCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove-events.jsonl")
	logger, err := OpenFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	for i := range flushEveryEvents {
		logger.Log(New("burst", "event").WithData("i", i))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.GreaterOrEqual(t, len(lines), flushEveryEvents)
}

func TestFileLoggerConcurrentWritersKeepLinesIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove-events.jsonl")
	logger, err := OpenFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				logger.Log(New("worker", "event").WithDataFields(map[string]any{
					"worker": worker,
					"i":      i,
				}))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 8*50)
	for _, line := range lines {
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &event), line)
	}
}

func TestNullLoggerIsNoop(t *testing.T) {
	NullLogger{}.Log(New("test", "noop"))
}
