package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/mvessia/grove/internal/domain"
)

var (
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	sidebarFocusedStyle = sidebarStyle.
				BorderForeground(lipgloss.Color("62"))
	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	previewFocusedStyle = previewStyle.
				BorderForeground(lipgloss.Color("62"))
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))
	attentionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	dialogStyle    = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
	toastInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	toastSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	toastErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// statusIcon maps a workspace status to its sidebar glyph. The working states
// animate with the fast frame counter.
func (m *Model) statusIcon(workspace domain.Workspace) string {
	if workspace.IsOrphaned {
		return "!"
	}
	switch workspace.Status {
	case domain.StatusMain:
		return "⌂"
	case domain.StatusIdle:
		return "·"
	case domain.StatusActive, domain.StatusThinking:
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴"}
		if m.statusIsVisuallyWorking(workspace.Path, workspace.Status, m.selectedWorkspace() != nil && m.selectedWorkspace().Path == workspace.Path) {
			return frames[int(m.poll.fastAnimationFrame)%len(frames)]
		}
		return "●"
	case domain.StatusWaiting:
		return "?"
	case domain.StatusDone:
		return "✓"
	case domain.StatusError:
		return "✗"
	case domain.StatusUnsupported:
		return "○"
	default:
		return " "
	}
}

func (m *Model) sidebarWidth() int {
	pct := m.cfg.SidebarWidthPct
	if pct <= 0 || pct >= 100 {
		pct = 30
	}
	width := m.width * pct / 100
	if width < 20 {
		width = 20
	}
	return width
}

func (m *Model) previewViewportHeight() int {
	height := m.height - 4
	if height < 1 {
		height = 1
	}
	return height
}

func (m *Model) previewViewportSize() (cols, rows int) {
	cols = m.width - m.sidebarWidth() - 4
	if cols < 10 {
		cols = 10
	}
	return cols, m.previewViewportHeight()
}

// View renders the list+preview chrome plus any overlays.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "loading…"
	}

	sidebar := m.viewSidebar()
	preview := m.viewPreview()
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, preview)
	footer := m.viewFooter()
	screen := lipgloss.JoinVertical(lipgloss.Left, body, footer)

	if m.dialog != nil {
		return m.overlayCentered(screen, m.dialog.View(m, m.width/2))
	}
	if m.palette.visible {
		return m.overlayCentered(screen, m.viewPalette())
	}
	if m.helpVisible {
		return m.overlayCentered(screen, m.viewKeybindHelp())
	}
	return screen
}

func (m *Model) viewSidebar() string {
	width := m.sidebarWidth()
	innerWidth := width - 4
	var b strings.Builder
	b.WriteString(dimStyle.Render("workspaces"))
	b.WriteString("\n")
	for i, workspace := range m.workspaces {
		icon := m.statusIcon(workspace)
		attention := " "
		if m.workspaceNeedsAttention(workspace.Path) {
			attention = attentionStyle.Render("●")
		}
		label := fmt.Sprintf("%s %s %s", icon, attention, workspace.Name)
		detail := fmt.Sprintf("   %s · %s", workspace.Branch, workspace.Status)
		label = truncate.StringWithTail(label, uint(innerWidth), "…")
		detail = truncate.StringWithTail(detail, uint(innerWidth), "…")
		if i == m.selectedIndex {
			label = selectedItemStyle.Render(padRight(label, innerWidth))
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(detail))
		b.WriteString("\n")
	}
	style := sidebarStyle
	if m.focus == FocusSidebar {
		style = sidebarFocusedStyle
	}
	return style.Width(width).Height(m.height - 3).Render(b.String())
}

func padRight(text string, width int) string {
	gap := width - runewidth.StringWidth(text)
	if gap <= 0 {
		return text
	}
	return text + strings.Repeat(" ", gap)
}

func (m *Model) viewPreview() string {
	cols, rows := m.previewViewportSize()
	var b strings.Builder

	header := fmt.Sprintf("[%s]", m.previewTab)
	if workspace := m.selectedWorkspace(); workspace != nil {
		header = fmt.Sprintf("%s · %s %s", workspace.Name, workspace.Agent, header)
	}
	if m.interactive != nil {
		header += " · INTERACTIVE (Esc Esc or C-\\ to leave)"
	}
	b.WriteString(dimStyle.Render(truncate.StringWithTail(header, uint(cols), "…")))
	b.WriteString("\n")

	if m.preview.summary != "" {
		b.WriteString(m.preview.summary)
	} else {
		lines := m.preview.visible(rows - 1)
		b.WriteString(strings.Join(m.applyCursorToLines(lines), "\n"))
	}

	style := previewStyle
	if m.focus == FocusPreview {
		style = previewFocusedStyle
	}
	return style.Width(cols + 2).Height(m.height - 3).Render(b.String())
}

// applyCursorToLines overlays the interactive cursor as a reverse-video cell.
func (m *Model) applyCursorToLines(lines []string) []string {
	state := m.interactive
	if state == nil || state.cursor == nil || !state.cursor.cursorVisible {
		return lines
	}
	row := len(lines) - (state.cursor.paneHeight - state.cursor.cursorY)
	if row < 0 || row >= len(lines) {
		return lines
	}
	overlaid := make([]string, len(lines))
	copy(overlaid, lines)
	runes := []rune(overlaid[row])
	col := state.cursor.cursorX
	cursorStyle := lipgloss.NewStyle().Reverse(true)
	if col >= len(runes) {
		overlaid[row] = string(runes) + strings.Repeat(" ", col-len(runes)) + cursorStyle.Render(" ")
	} else {
		overlaid[row] = string(runes[:col]) + cursorStyle.Render(string(runes[col])) + string(runes[col+1:])
	}
	return overlaid
}

func (m *Model) viewFooter() string {
	var parts []string
	for _, entry := range m.toasts {
		switch entry.severity {
		case ToastSuccess:
			parts = append(parts, toastSuccessStyle.Render(entry.text))
		case ToastError:
			parts = append(parts, toastErrorStyle.Render(entry.text))
		default:
			parts = append(parts, toastInfoStyle.Render(entry.text))
		}
	}
	if m.lastTmuxError != "" {
		parts = append(parts, toastErrorStyle.Render("tmux: "+m.lastTmuxError))
	}
	if len(parts) == 0 {
		parts = append(parts, dimStyle.Render("s start · S stop · c create · d delete · M merge · enter interact · ? help"))
	}
	return truncate.StringWithTail(strings.Join(parts, "  "), uint(maxInt(m.width, 10)), "…")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m *Model) overlayCentered(_ string, overlay string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
}

func (d *formDialog) View(m *Model, width int) string {
	var b strings.Builder
	b.WriteString(d.title)
	b.WriteString("\n\n")
	if len(d.fields) == 0 {
		b.WriteString("Enter to confirm · Esc to cancel")
	}
	for i := range d.fields {
		field := &d.fields[i]
		marker := "  "
		if i == d.focus {
			marker = "> "
		}
		switch field.kind {
		case fieldText:
			b.WriteString(fmt.Sprintf("%s%s: %s\n", marker, field.label, field.input.View()))
		case fieldToggle:
			check := "[ ]"
			if field.toggled {
				check = "[x]"
			}
			b.WriteString(fmt.Sprintf("%s%s %s\n", marker, check, field.label))
		case fieldChoice:
			b.WriteString(fmt.Sprintf("%s%s: ‹%s›\n", marker, field.label, field.choices[field.choice]))
		}
	}
	if len(d.fields) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Tab next field · Enter confirm · Esc cancel"))
	}
	return dialogStyle.Width(width).Render(b.String())
}

func (m *Model) viewPalette() string {
	var b strings.Builder
	b.WriteString("› ")
	b.WriteString(m.palette.query.View())
	b.WriteString("\n\n")
	for i, cmd := range m.enabledPaletteCommands() {
		line := "  " + cmd.title
		if i == m.palette.selected {
			line = selectedItemStyle.Render("> " + cmd.title)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return dialogStyle.Width(m.width / 2).Render(b.String())
}

func (m *Model) viewKeybindHelp() string {
	rows := []string{
		"j/k, ↑/↓   select workspace",
		"tab, 1/2/3 preview tab (agent/git/shell)",
		"enter      focus preview, then enter interactive",
		"esc esc    leave interactive mode",
		"s / S / r  start / stop / restart agent",
		"c / e / d  create / edit / delete workspace",
		"M / u      merge / update from base",
		"a          acknowledge attention",
		"ctrl+p, :  command palette",
		"R          refresh workspaces",
		"q          quit",
	}
	return dialogStyle.Width(m.width / 2).Render("Keybindings\n\n" + strings.Join(rows, "\n"))
}
