package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvessia/grove/internal/command"
	"github.com/mvessia/grove/internal/config"
	"github.com/mvessia/grove/internal/domain"
	"github.com/mvessia/grove/internal/util"
)

// Dialog is one blocking modal. At most one is open at a time; the palette
// and keybind help are independent overlays.
type Dialog interface {
	ID() string
	Title() string
	HandleKey(m *Model, msg tea.KeyMsg) Cmd
	HandlePaste(m *Model, text string) Cmd
	View(m *Model, width int) string
}

func (m *Model) handleDialogKey(msg tea.KeyMsg) Cmd {
	return m.dialog.HandleKey(m, msg)
}

func (m *Model) closeDialog() {
	m.dialog = nil
}

// fieldKind discriminates form fields.
type fieldKind int

const (
	fieldText fieldKind = iota
	fieldToggle
	fieldChoice
)

type formField struct {
	kind    fieldKind
	label   string
	input   textinput.Model
	toggled bool
	choices []string
	choice  int
}

func textField(label, placeholder, value string) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.SetValue(value)
	ti.CharLimit = 256
	return formField{kind: fieldText, label: label, input: ti}
}

func toggleField(label string, value bool) formField {
	return formField{kind: fieldToggle, label: label, toggled: value}
}

func choiceField(label string, choices []string, selected int) formField {
	return formField{kind: fieldChoice, label: label, choices: choices, choice: selected}
}

// formDialog is the shared dialog chassis: focusable fields, Tab/Shift-Tab
// cycling, Enter-confirm, Escape-cancel.
type formDialog struct {
	id      string
	title   string
	fields  []formField
	focus   int
	confirm func(m *Model, d *formDialog) Cmd
}

func newFormDialog(id, title string, fields []formField, confirm func(m *Model, d *formDialog) Cmd) *formDialog {
	d := &formDialog{id: id, title: title, fields: fields, confirm: confirm}
	d.applyFocus()
	return d
}

func (d *formDialog) ID() string    { return d.id }
func (d *formDialog) Title() string { return d.title }

func (d *formDialog) applyFocus() {
	for i := range d.fields {
		if d.fields[i].kind != fieldText {
			continue
		}
		if i == d.focus {
			d.fields[i].input.Focus()
		} else {
			d.fields[i].input.Blur()
		}
	}
}

func (d *formDialog) cycleFocus(delta int) {
	if len(d.fields) == 0 {
		return
	}
	d.focus = (d.focus + delta + len(d.fields)) % len(d.fields)
	d.applyFocus()
}

func (d *formDialog) textValue(index int) string {
	return strings.TrimSpace(d.fields[index].input.Value())
}

func (d *formDialog) HandleKey(m *Model, msg tea.KeyMsg) Cmd {
	switch msg.Type {
	case tea.KeyEscape:
		m.closeDialog()
		return nil
	case tea.KeyEnter:
		return d.confirm(m, d)
	case tea.KeyTab:
		d.cycleFocus(1)
		return nil
	case tea.KeyShiftTab:
		d.cycleFocus(-1)
		return nil
	}

	if len(d.fields) == 0 {
		return nil
	}
	field := &d.fields[d.focus]
	switch field.kind {
	case fieldToggle:
		if msg.Type == tea.KeySpace || msg.String() == " " {
			field.toggled = !field.toggled
		}
	case fieldChoice:
		switch msg.String() {
		case " ", "right", "l":
			field.choice = (field.choice + 1) % len(field.choices)
		case "left", "h":
			field.choice = (field.choice - 1 + len(field.choices)) % len(field.choices)
		}
	case fieldText:
		var cmd tea.Cmd
		field.input, cmd = field.input.Update(msg)
		_ = cmd
	}
	return nil
}

func (d *formDialog) HandlePaste(m *Model, text string) Cmd {
	if len(d.fields) == 0 {
		return nil
	}
	field := &d.fields[d.focus]
	if field.kind == fieldText {
		field.input.SetValue(field.input.Value() + text)
	}
	return nil
}

// Dialog openers. Each validates its precondition and shows a toast instead
// of opening when the operation cannot apply.

func (m *Model) openLaunchDialog() Cmd {
	workspace := m.selectedWorkspace()
	if workspace == nil {
		return nil
	}
	if workspace.HasLiveStatus() {
		m.showToast("agent already running; S stops it first", ToastInfo)
		return nil
	}
	target := *workspace
	m.dialog = newFormDialog("launch", "Start agent in "+workspace.Name, []formField{
		textField("Prompt (optional)", "initial prompt for the agent", ""),
		toggleField("Skip permission prompts", false),
	}, func(m *Model, d *formDialog) Cmd {
		prompt := d.textValue(0)
		skip := d.fields[1].toggled
		m.closeDialog()
		return m.dispatchStartAgent(target, prompt, skip)
	})
	return nil
}

func (m *Model) openStopDialog() Cmd {
	workspace := m.selectedWorkspace()
	if workspace == nil || !workspace.HasLiveStatus() {
		m.showToast("no live session to stop", ToastInfo)
		return nil
	}
	target := *workspace
	m.dialog = newFormDialog("stop", "Stop agent in "+workspace.Name, nil,
		func(m *Model, d *formDialog) Cmd {
			m.closeDialog()
			return m.dispatchStopAgent(target)
		})
	return nil
}

func (m *Model) openRestartConfirm() Cmd {
	workspace := m.selectedWorkspace()
	if workspace == nil || !workspace.HasLiveStatus() {
		m.showToast("no live session to restart", ToastInfo)
		return nil
	}
	if !workspace.Agent.SupportsRestartInPane() {
		m.showToast("agent does not support restart in pane", ToastError)
		return nil
	}
	target := *workspace
	m.dialog = newFormDialog("confirm", "Restart agent in "+workspace.Name, []formField{
		toggleField("Skip permission prompts", false),
	}, func(m *Model, d *formDialog) Cmd {
		skip := d.fields[0].toggled
		m.closeDialog()
		return m.dispatchRestartAgent(target, skip)
	})
	return nil
}

var agentChoices = []string{"claude", "codex", "opencode"}

func agentChoiceIndex(agent domain.AgentType) int {
	for i, choice := range agentChoices {
		if choice == agent.String() {
			return i
		}
	}
	return 0
}

func (m *Model) openCreateDialog() Cmd {
	defaultBase := "main"
	if workspace := m.selectedWorkspace(); workspace != nil && workspace.IsMain && workspace.Branch != "" {
		defaultBase = workspace.Branch
	}
	m.dialog = newFormDialog("create", "Create workspace", []formField{
		textField("Name", "feature-a", ""),
		textField("Base branch", defaultBase, defaultBase),
		textField("Existing branch (instead of base)", "", ""),
		choiceField("Agent", agentChoices, 0),
		toggleField("Start agent after create", true),
	}, func(m *Model, d *formDialog) Cmd {
		name := d.textValue(0)
		base := d.textValue(1)
		existing := d.textValue(2)
		if name == "" {
			m.showToast("workspace name is required", ToastError)
			return nil
		}
		if existing != "" {
			base = ""
		}
		agent, err := domain.ParseAgentType(agentChoices[d.fields[3].choice])
		if err != nil {
			m.showToast(err.Error(), ToastError)
			return nil
		}
		request := command.WorkspaceCreateRequest{
			Context:        command.RepoContext{RepoRoot: m.repoRoot},
			Name:           name,
			BaseBranch:     base,
			ExistingBranch: existing,
			Agent:          &agent,
			Start:          d.fields[4].toggled,
		}
		m.closeDialog()
		return m.dispatchCreateWorkspace(request)
	})
	return nil
}

func (m *Model) openEditDialog() Cmd {
	workspace := m.selectedWorkspace()
	if workspace == nil || workspace.IsMain {
		m.showToast("select a non-main workspace to edit", ToastInfo)
		return nil
	}
	target := *workspace
	m.dialog = newFormDialog("edit", "Edit "+workspace.Name, []formField{
		choiceField("Agent", agentChoices, agentChoiceIndex(workspace.Agent)),
		textField("Base branch", workspace.BaseBranch, workspace.BaseBranch),
	}, func(m *Model, d *formDialog) Cmd {
		agent, err := domain.ParseAgentType(agentChoices[d.fields[0].choice])
		if err != nil {
			m.showToast(err.Error(), ToastError)
			return nil
		}
		base := d.textValue(1)
		service := m.service
		request := command.WorkspaceEditRequest{
			Context:    command.RepoContext{RepoRoot: m.repoRoot},
			Selector:   command.Selector{Name: target.Name, Path: target.Path},
			Agent:      &agent,
			BaseBranch: base,
		}
		m.closeDialog()
		return taskCmd(func() tea.Msg {
			if _, err := service.WorkspaceEdit(request); err != nil {
				return RefreshWorkspacesCompletedMsg{Err: err.Error()}
			}
			workspaces, listErr := command.ListWorkspacesInRepo(request.Context.RepoRoot)
			msg := RefreshWorkspacesCompletedMsg{Workspaces: workspaces}
			if listErr != nil {
				msg.Err = listErr.Error()
			}
			return msg
		})
	})
	return nil
}

func (m *Model) openDeleteDialog() Cmd {
	workspace := m.selectedWorkspace()
	if workspace == nil || workspace.IsMain {
		m.showToast("the main workspace cannot be deleted", ToastInfo)
		return nil
	}
	target := *workspace
	m.dialog = newFormDialog("delete", "Delete "+workspace.Name, []formField{
		toggleField("Delete local branch", false),
		toggleField("Stop sessions first", true),
	}, func(m *Model, d *formDialog) Cmd {
		deleteBranch := d.fields[0].toggled
		forceStop := d.fields[1].toggled
		m.closeDialog()
		return m.dispatchDeleteWorkspace(target, deleteBranch, forceStop)
	})
	return nil
}

func (m *Model) openMergeDialog() Cmd {
	workspace := m.selectedWorkspace()
	if workspace == nil || workspace.IsMain {
		m.showToast("the main workspace cannot be merged", ToastInfo)
		return nil
	}
	target := *workspace
	m.dialog = newFormDialog("merge", "Merge "+workspace.Name+" into "+workspace.BaseBranch, []formField{
		toggleField("Delete workspace after merge", false),
		toggleField("Delete branch after merge", false),
	}, func(m *Model, d *formDialog) Cmd {
		cleanupWorkspace := d.fields[0].toggled
		cleanupBranch := d.fields[1].toggled
		m.closeDialog()
		return m.dispatchMergeWorkspace(target, cleanupWorkspace, cleanupBranch)
	})
	return nil
}

func (m *Model) openUpdateFromBaseDialog() Cmd {
	workspace := m.selectedWorkspace()
	if workspace == nil || workspace.IsMain {
		m.showToast("select a non-main workspace to update", ToastInfo)
		return nil
	}
	target := *workspace
	m.dialog = newFormDialog("update_from_base", "Update "+workspace.Name+" from "+workspace.BaseBranch, nil,
		func(m *Model, d *formDialog) Cmd {
			m.closeDialog()
			return m.dispatchUpdateFromBase(target)
		})
	return nil
}

func (m *Model) openProjectDialog() Cmd {
	m.dialog = newFormDialog("project", "Add project", []formField{
		textField("Name", "api", ""),
		textField("Path", "~/code/api", ""),
		textField("Workspace init command (optional)", "direnv allow", ""),
	}, func(m *Model, d *formDialog) Cmd {
		name := d.textValue(0)
		path := d.textValue(1)
		if name == "" || path == "" {
			m.showToast("project name and path are required", ToastError)
			return nil
		}
		m.cfg.Projects = append(m.cfg.Projects, projectFromDialog(name, path, d.textValue(2)))
		m.saveRuntimeConfig()
		m.closeDialog()
		m.showToast("project "+name+" added", ToastSuccess)
		return nil
	})
	return nil
}

func projectFromDialog(name, path, initCommand string) config.Project {
	return config.Project{
		Name:                 name,
		Path:                 util.ExpandHome(path),
		WorkspaceInitCommand: initCommand,
	}
}

func (m *Model) openSettingsDialog() Cmd {
	m.dialog = newFormDialog("settings", "Settings", []formField{
		textField("Sidebar width %", strconv.Itoa(m.cfg.SidebarWidthPct), strconv.Itoa(m.cfg.SidebarWidthPct)),
	}, func(m *Model, d *formDialog) Cmd {
		width, err := strconv.Atoi(d.textValue(0))
		if err != nil || width <= 0 || width >= 100 {
			m.showToast("sidebar width must be 1-99", ToastError)
			return nil
		}
		m.cfg.SidebarWidthPct = width
		m.saveRuntimeConfig()
		m.closeDialog()
		return nil
	})
	return nil
}
