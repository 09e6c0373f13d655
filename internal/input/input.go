// Package input translates terminal key events into multiplexer send actions
// for interactive mode.
package input

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DoubleEscapeWindow is how close together two Escape presses must land to
// exit interactive mode instead of forwarding the second Escape.
const DoubleEscapeWindow = 350 * time.Millisecond

// ActionKind discriminates InteractiveAction.
type ActionKind int

const (
	ActionNoop ActionKind = iota
	ActionSendNamed
	ActionSendLiteral
	ActionCopySelection
	ActionPasteClipboard
	ActionExitInteractive
)

// InteractiveAction is the reducer-facing result of translating one key
// event.
type InteractiveAction struct {
	Kind    ActionKind
	Named   string
	Literal string
}

// KindName names the action for telemetry.
func (a InteractiveAction) KindName() string {
	switch a.Kind {
	case ActionSendNamed:
		return "send_named"
	case ActionSendLiteral:
		return "send_literal"
	case ActionCopySelection:
		return "copy_selection"
	case ActionPasteClipboard:
		return "paste_clipboard"
	case ActionExitInteractive:
		return "exit_interactive"
	default:
		return "noop"
	}
}

func noop() InteractiveAction             { return InteractiveAction{Kind: ActionNoop} }
func named(name string) InteractiveAction { return InteractiveAction{Kind: ActionSendNamed, Named: name} }
func literal(text string) InteractiveAction {
	return InteractiveAction{Kind: ActionSendLiteral, Literal: text}
}

// Translator is the per-session key state machine. It tracks the double
// escape window.
type Translator struct {
	lastEscapeAt time.Time
}

// Translate maps one key event to an interactive action.
func (t *Translator) Translate(msg tea.KeyMsg, now time.Time) InteractiveAction {
	switch msg.Type {
	case tea.KeyEscape:
		if !t.lastEscapeAt.IsZero() && now.Sub(t.lastEscapeAt) <= DoubleEscapeWindow {
			t.lastEscapeAt = time.Time{}
			return InteractiveAction{Kind: ActionExitInteractive}
		}
		t.lastEscapeAt = now
		return named("Escape")
	case tea.KeyCtrlBackslash:
		return InteractiveAction{Kind: ActionExitInteractive}
	}
	t.lastEscapeAt = time.Time{}

	switch msg.Type {
	case tea.KeyEnter:
		return named("Enter")
	case tea.KeyTab:
		return named("Tab")
	case tea.KeyShiftTab:
		return named("BTab")
	case tea.KeyBackspace:
		return named("BSpace")
	case tea.KeyDelete:
		return named("DC")
	case tea.KeyUp:
		return named("Up")
	case tea.KeyDown:
		return named("Down")
	case tea.KeyLeft:
		return named("Left")
	case tea.KeyRight:
		return named("Right")
	case tea.KeyHome:
		return named("Home")
	case tea.KeyEnd:
		return named("End")
	case tea.KeyPgUp:
		return named("PPage")
	case tea.KeyPgDown:
		return named("NPage")
	case tea.KeySpace:
		return literal(" ")
	case tea.KeyF1, tea.KeyF2, tea.KeyF3, tea.KeyF4, tea.KeyF5, tea.KeyF6,
		tea.KeyF7, tea.KeyF8, tea.KeyF9, tea.KeyF10, tea.KeyF11, tea.KeyF12:
		return named(functionKeyName(msg.Type))
	case tea.KeyRunes:
		if msg.Alt {
			return altRuneAction(msg.Runes)
		}
		return literal(string(msg.Runes))
	}

	if name, ok := ctrlKeyName(msg.Type); ok {
		return named(name)
	}
	return noop()
}

func altRuneAction(runes []rune) InteractiveAction {
	if len(runes) != 1 {
		return noop()
	}
	switch runes[0] {
	case 'c', 'C':
		return InteractiveAction{Kind: ActionCopySelection}
	case 'v', 'V':
		return InteractiveAction{Kind: ActionPasteClipboard}
	default:
		return noop()
	}
}

func functionKeyName(keyType tea.KeyType) string {
	// bubbletea's function-key types descend from KeyF1 (KeyF2 == KeyF1-1).
	return fmt.Sprintf("F%d", int(tea.KeyF1-keyType)+1)
}

// ctrlKeyName maps control-character key types onto tmux C-x names.
func ctrlKeyName(keyType tea.KeyType) (string, bool) {
	switch keyType {
	case tea.KeyCtrlA:
		return "C-a", true
	case tea.KeyCtrlB:
		return "C-b", true
	case tea.KeyCtrlC:
		return "C-c", true
	case tea.KeyCtrlD:
		return "C-d", true
	case tea.KeyCtrlE:
		return "C-e", true
	case tea.KeyCtrlF:
		return "C-f", true
	case tea.KeyCtrlG:
		return "C-g", true
	case tea.KeyCtrlJ:
		return "C-j", true
	case tea.KeyCtrlK:
		return "C-k", true
	case tea.KeyCtrlL:
		return "C-l", true
	case tea.KeyCtrlN:
		return "C-n", true
	case tea.KeyCtrlO:
		return "C-o", true
	case tea.KeyCtrlP:
		return "C-p", true
	case tea.KeyCtrlQ:
		return "C-q", true
	case tea.KeyCtrlR:
		return "C-r", true
	case tea.KeyCtrlS:
		return "C-s", true
	case tea.KeyCtrlT:
		return "C-t", true
	case tea.KeyCtrlU:
		return "C-u", true
	case tea.KeyCtrlV:
		return "C-v", true
	case tea.KeyCtrlW:
		return "C-w", true
	case tea.KeyCtrlX:
		return "C-x", true
	case tea.KeyCtrlY:
		return "C-y", true
	case tea.KeyCtrlZ:
		return "C-z", true
	default:
		return "", false
	}
}

// SendInputCommand maps an action onto the multiplexer command that forwards
// it, or nil for actions the multiplexer does not receive directly.
func SendInputCommand(session string, action InteractiveAction) []string {
	switch action.Kind {
	case ActionSendNamed:
		return []string{"tmux", "send-keys", "-t", session, action.Named}
	case ActionSendLiteral:
		return []string{"tmux", "send-keys", "-t", session, "-l", action.Literal}
	default:
		return nil
	}
}

// Bracketed paste markers; sessions that advertised bracketed paste get the
// pasted text wrapped in them.
const (
	bracketedPasteStart = "\x1b[200~"
	bracketedPasteEnd   = "\x1b[201~"
)

// PasteLiteral renders a paste event as a single literal send.
func PasteLiteral(text string, bracketed bool) string {
	if bracketed {
		return bracketedPasteStart + text + bracketedPasteEnd
	}
	return text
}
