package launch

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Number of consecutive dead-holder observations before a stale init lock is
// broken.
const initLockStaleChecks = 20

// commandWithWorkspaceInit wraps command so the workspace init command runs
// exactly once per (workspace, init command) pair before the agent starts.
// Without an init command the agent command passes through untouched.
func commandWithWorkspaceInit(workspacePath, command, initCommand string) string {
	init := strings.TrimSpace(initCommand)
	if init == "" {
		return command
	}
	run := strings.TrimSpace(command)
	if run != "" && initCommandMentionsDirenv(init) {
		run = direnvExecWrapped(run)
	}
	script := workspaceInitGuardScript(workspacePath, init)
	if run != "" {
		script += "\n" + run
	}
	return "bash -lc " + shellQuote(script)
}

// initCommandMentionsDirenv reports whether "direnv" appears as a whole token
// in the init command. Substrings inside longer words do not count.
func initCommandMentionsDirenv(command string) bool {
	isWordRune := func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
	}
	for _, token := range strings.FieldsFunc(command, func(r rune) bool { return !isWordRune(r) }) {
		if strings.EqualFold(token, "direnv") {
			return true
		}
	}
	return false
}

func direnvExecWrapped(command string) string {
	return "direnv exec . bash -lc " + shellQuote(command)
}

// workspaceInitGuardScript emits the bash guard that serializes concurrent
// launches with a mkdir lock and stamps successful init runs. The lock
// directory carries the holder's PID; a holder that stops answering kill -0
// for initLockStaleChecks consecutive checks has its lock broken.
func workspaceInitGuardScript(workspacePath, initCommand string) string {
	hash := WorkspaceInitCommandHash(initCommand)
	groveDir := filepath.Join(workspacePath, ".grove")
	lockDir := filepath.Join(groveDir, fmt.Sprintf("workspace-init-%s.lock", hash))
	stampFile := filepath.Join(groveDir, fmt.Sprintf("workspace-init-%s.done", hash))
	quotedGrove := shellQuote(groveDir)
	quotedLock := shellQuote(lockDir)
	quotedStamp := shellQuote(stampFile)
	return fmt.Sprintf(`lock_stale_checks=0
mkdir -p %[1]s
if [ ! -f %[3]s ]; then
  while ! mkdir %[2]s 2>/dev/null; do
    lock_pid=""
    if [ -f %[2]s/pid ]; then
      lock_pid="$(cat %[2]s/pid 2>/dev/null || true)"
    fi
    if [ -n "$lock_pid" ] && kill -0 "$lock_pid" 2>/dev/null; then
      lock_stale_checks=0
      sleep 0.1
      continue
    fi
    lock_stale_checks=$((lock_stale_checks + 1))
    if [ "$lock_stale_checks" -ge %[4]d ]; then
      rm -rf %[2]s 2>/dev/null || true
      lock_stale_checks=0
    fi
    sleep 0.1
  done
  echo "$$" > %[2]s/pid
  trap 'rm -f %[2]s/pid; rmdir %[2]s 2>/dev/null || true' EXIT
  if [ ! -f %[3]s ]; then
    %[5]s
    init_status=$?
    if [ "$init_status" -ne 0 ]; then
      exit "$init_status"
    fi
    : > %[3]s
  fi
fi`, quotedGrove, quotedLock, quotedStamp, initLockStaleChecks, initCommand)
}

// WorkspaceInitCommandHash is the idempotency key for an init command: the
// 64-bit FNV-1a hash of its bytes as 16 hex digits.
func WorkspaceInitCommandHash(command string) string {
	const (
		fnvOffsetBasis uint64 = 14695981039346656037
		fnvPrime       uint64 = 1099511628211
	)
	hash := fnvOffsetBasis
	for _, b := range []byte(command) {
		hash ^= uint64(b)
		hash *= fnvPrime
	}
	return fmt.Sprintf("%016x", hash)
}

// launcherScript emits the prompt launcher. It sources NVM and shell rc files
// defensively so the agent binary resolves in non-login tmux panes, delivers
// the prompt via heredoc, and removes itself when the agent exits.
func launcherScript(agentCmd, prompt, launcherPath string) string {
	return fmt.Sprintf(`#!/bin/bash
export NVM_DIR="${NVM_DIR:-$HOME/.nvm}"
[ -s "$NVM_DIR/nvm.sh" ] && source "$NVM_DIR/nvm.sh" 2>/dev/null
if ! command -v node &>/dev/null; then
  [ -f "$HOME/.zshrc" ] && source "$HOME/.zshrc" 2>/dev/null
  [ -f "$HOME/.bashrc" ] && source "$HOME/.bashrc" 2>/dev/null
fi
%s "$(cat <<'GROVE_PROMPT_EOF'
%s
GROVE_PROMPT_EOF
)"
rm -f %s
`, agentCmd, prompt, launcherPath)
}
