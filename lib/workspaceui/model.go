// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspaceui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/topology"
	"github.com/dagfront/dagfront/lib/workspace"
)

// Controller is everything the panel needs from an attached session.
// *session.Session implements it.
type Controller interface {
	Snapshot() workspace.Snapshot
	Attached() string
	Warnings() []workspace.Mismatch
	Transcript() []pipeline.Entry

	Refresh(ctx context.Context) (workspace.Snapshot, error)
	Preview(ctx context.Context, intent topology.Intent) (*topology.Plan, error)
	Execute(ctx context.Context, intent topology.Intent) (*topology.Report, error)
	UpdateStale(ctx context.Context) (string, error)
}

// Mode identifies what keyboard input currently drives.
type Mode int

const (
	// ModeList means keys move the cursor and start actions.
	ModeList Mode = iota
	// ModePrompt means keys edit the name prompt (add or rename).
	ModePrompt
	// ModeConfirm means the previewed forget plan waits for y/n.
	ModeConfirm
)

// minTranscriptHeight is the fewest transcript lines shown when the
// terminal is short.
const minTranscriptHeight = 3

// refreshMsg carries the result of a listing refresh.
type refreshMsg struct {
	snapshot workspace.Snapshot
	err      error
}

// previewMsg carries a forget plan built for confirmation.
type previewMsg struct {
	intent topology.Intent
	plan   *topology.Plan
	err    error
}

// planMsg carries the outcome of an executed intent.
type planMsg struct {
	intent topology.Intent
	report *topology.Report
	err    error
}

// staleMsg carries the outcome of update-stale.
type staleMsg struct {
	output string
	err    error
}

// Model is the bubbletea model of the workspace panel.
type Model struct {
	controller Controller
	keys       KeyMap
	theme      Theme

	snapshot workspace.Snapshot
	attached string
	cursor   int

	mode Mode

	// prompt is the name input; renameFrom is set when the prompt
	// renames rather than adds.
	prompt     textinput.Model
	renameFrom string

	// pending is the intent shown in the confirmation, with the lines
	// of its previewed plan.
	pending     topology.Intent
	pendingPlan []string

	// busy describes the action in flight. Actions are refused while
	// it is set.
	busy string

	transcript []string

	// transcriptScroll is how many lines the transcript pane is
	// scrolled up from the newest output.
	transcriptScroll int

	status         string
	statusLevel    slog.Level
	statusSequence int

	width  int
	height int
	ready  bool
}

// NewModel creates the panel for controller, starting from its current
// snapshot. Startup store mismatches are shown in the status bar.
func NewModel(controller Controller) Model {
	prompt := textinput.New()
	prompt.CharLimit = 255

	model := Model{
		controller: controller,
		keys:       DefaultKeyMap,
		theme:      DefaultTheme,
		snapshot:   controller.Snapshot(),
		attached:   controller.Attached(),
		prompt:     prompt,
		transcript: pipeline.Lines(controller.Transcript()),
	}
	model.selectAttached()

	if warnings := controller.Warnings(); len(warnings) > 0 {
		model.status = warnings[0].String()
		if len(warnings) > 1 {
			model.status = fmt.Sprintf("%s (and %d more store mismatches)", model.status, len(warnings)-1)
		}
		model.statusLevel = slog.LevelWarn
	}
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return nil
}

// Mode returns the current input mode.
func (model Model) Mode() Mode {
	return model.mode
}

// Selected returns the workspace under the cursor.
func (model Model) Selected() (workspace.Workspace, bool) {
	if model.cursor < 0 || model.cursor >= len(model.snapshot.Workspaces) {
		return workspace.Workspace{}, false
	}
	return model.snapshot.Workspaces[model.cursor], true
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.prompt.Width = max(message.Width-lipgloss.Width(model.prompt.Prompt)-2, 10)
		model.ready = true
		return model, nil

	case tea.KeyMsg:
		switch model.mode {
		case ModePrompt:
			return model.handlePromptKeys(message)
		case ModeConfirm:
			return model.handleConfirmKeys(message)
		}
		return model.handleListKeys(message)

	case refreshMsg:
		model.busy = ""
		model.syncTranscript()
		if message.err != nil {
			cmd := model.setStatus("refresh failed: "+message.err.Error(), slog.LevelError)
			return model, cmd
		}
		model.snapshot = message.snapshot
		model.clampCursor()
		return model, nil

	case previewMsg:
		return model.handlePreview(message)

	case planMsg:
		return model.handlePlan(message)

	case staleMsg:
		model.busy = ""
		model.syncTranscript()
		if message.err != nil {
			cmd := model.setStatus("update-stale failed: "+message.err.Error(), slog.LevelError)
			return model, cmd
		}
		summary := "working copy updated"
		if message.output != "" {
			summary = firstLine(message.output)
		}
		cmd := model.setStatus(summary, slog.LevelInfo)
		return model, cmd

	case logRecordMsg:
		cmd := model.setStatus(message.Summary, message.Level)
		return model, cmd

	case logRecordFadeMsg:
		if message.Sequence == model.statusSequence {
			model.status = ""
		}
		return model, nil
	}
	return model, nil
}

func (model Model) handleListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
		return model, nil

	case key.Matches(message, model.keys.Down):
		if model.cursor < len(model.snapshot.Workspaces)-1 {
			model.cursor++
		}
		return model, nil

	case key.Matches(message, model.keys.ScrollUp):
		model.scrollTranscript(model.transcriptHeight() / 2)
		return model, nil

	case key.Matches(message, model.keys.ScrollDown):
		model.scrollTranscript(-model.transcriptHeight() / 2)
		return model, nil
	}

	isAction := key.Matches(message, model.keys.Add, model.keys.Rename, model.keys.Forget,
		model.keys.UpdateStale, model.keys.Refresh)
	if !isAction {
		return model, nil
	}
	if model.busy != "" {
		cmd := model.setStatus("busy: "+model.busy, slog.LevelWarn)
		return model, cmd
	}

	switch {
	case key.Matches(message, model.keys.Add):
		model.renameFrom = ""
		cmd := model.openPrompt("add workspace: ", "")
		return model, cmd

	case key.Matches(message, model.keys.Rename):
		selected, ok := model.Selected()
		if !ok {
			return model, nil
		}
		model.renameFrom = selected.Name
		cmd := model.openPrompt("rename "+selected.Name+" to: ", selected.Name)
		return model, cmd

	case key.Matches(message, model.keys.Forget):
		selected, ok := model.Selected()
		if !ok {
			return model, nil
		}
		intent := topology.ForgetWorkspace{Name: selected.Name}
		model.busy = "previewing " + intent.String()
		return model, model.previewCmd(intent)

	case key.Matches(message, model.keys.UpdateStale):
		model.busy = "updating stale working copy"
		return model, model.updateStaleCmd()

	case key.Matches(message, model.keys.Refresh):
		model.busy = "refreshing"
		return model, model.refreshCmd()
	}
	return model, nil
}

func (model *Model) openPrompt(label, value string) tea.Cmd {
	model.mode = ModePrompt
	model.prompt.Prompt = label
	model.prompt.SetValue(value)
	model.prompt.CursorEnd()
	return model.prompt.Focus()
}

func (model *Model) closePrompt() {
	model.mode = ModeList
	model.prompt.Blur()
	model.prompt.SetValue("")
	model.renameFrom = ""
}

// handlePromptKeys edits the name. Enter submits a valid name, Esc
// cancels, and everything else goes to the text input.
func (model Model) handlePromptKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyCtrlC:
		return model, tea.Quit

	case tea.KeyEsc:
		model.closePrompt()
		return model, nil

	case tea.KeyEnter:
		name := strings.TrimSpace(model.prompt.Value())
		if name == "" {
			model.closePrompt()
			return model, nil
		}
		if err := topology.ValidateName(name); err != nil {
			cmd := model.setStatus(err.Error(), slog.LevelError)
			return model, cmd
		}
		var intent topology.Intent = topology.AddWorkspace{Name: name}
		if model.renameFrom != "" {
			if name == model.renameFrom {
				model.closePrompt()
				return model, nil
			}
			intent = topology.RenameWorkspace{From: model.renameFrom, To: name}
		}
		model.closePrompt()
		model.busy = intent.String()
		return model, model.executeCmd(intent)
	}

	var cmd tea.Cmd
	model.prompt, cmd = model.prompt.Update(message)
	return model, cmd
}

func (model Model) handleConfirmKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit

	case key.Matches(message, model.keys.Confirm):
		intent := model.pending
		model.mode = ModeList
		model.pending = nil
		model.pendingPlan = nil
		model.busy = intent.String()
		return model, model.executeCmd(intent)

	case key.Matches(message, model.keys.Cancel):
		intent := model.pending
		model.mode = ModeList
		model.pending = nil
		model.pendingPlan = nil
		cmd := model.setStatus(intent.String()+" cancelled", slog.LevelInfo)
		return model, cmd
	}
	return model, nil
}

func (model Model) handlePreview(message previewMsg) (tea.Model, tea.Cmd) {
	model.busy = ""
	model.syncTranscript()
	if message.err != nil {
		cmd := model.setStatus(message.intent.String()+": "+message.err.Error(), slog.LevelError)
		return model, cmd
	}
	model.mode = ModeConfirm
	model.pending = message.intent
	model.pendingPlan = message.plan.Describe()
	return model, nil
}

func (model Model) handlePlan(message planMsg) (tea.Model, tea.Cmd) {
	model.busy = ""
	model.syncTranscript()

	if message.err != nil {
		summary := message.intent.String() + ": " + message.err.Error()
		var planError *topology.PlanError
		if errors.As(message.err, &planError) {
			if planError.RolledBack() {
				summary = message.intent.String() + " failed and was rolled back: " + planError.Err.Error()
			} else {
				summary = message.intent.String() + " failed, rollback incomplete: " + planError.Err.Error()
			}
		}
		cmd := model.setStatus(summary, slog.LevelError)
		return model, cmd
	}

	report := message.report
	model.snapshot = report.After
	model.attached = report.Attached
	switch intent := message.intent.(type) {
	case topology.AddWorkspace:
		model.selectName(intent.Name)
	case topology.RenameWorkspace:
		model.selectName(intent.To)
	default:
		model.clampCursor()
	}

	if len(report.Warnings) > 0 {
		cmd := model.setStatus(message.intent.String()+" done with warnings: "+report.Warnings[0], slog.LevelWarn)
		return model, cmd
	}
	cmd := model.setStatus(message.intent.String()+" done", slog.LevelInfo)
	return model, cmd
}

func (model Model) refreshCmd() tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		snapshot, err := controller.Refresh(context.Background())
		return refreshMsg{snapshot: snapshot, err: err}
	}
}

func (model Model) previewCmd(intent topology.Intent) tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		plan, err := controller.Preview(context.Background(), intent)
		return previewMsg{intent: intent, plan: plan, err: err}
	}
}

func (model Model) executeCmd(intent topology.Intent) tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		report, err := controller.Execute(context.Background(), intent)
		return planMsg{intent: intent, report: report, err: err}
	}
}

func (model Model) updateStaleCmd() tea.Cmd {
	controller := model.controller
	return func() tea.Msg {
		output, err := controller.UpdateStale(context.Background())
		return staleMsg{output: output, err: err}
	}
}

// setStatus shows text in the status bar. Errors stay until replaced;
// anything else fades after logRecordFadeDelay.
func (model *Model) setStatus(text string, level slog.Level) tea.Cmd {
	model.statusSequence++
	model.status = text
	model.statusLevel = level
	if level >= slog.LevelError {
		return nil
	}
	sequence := model.statusSequence
	return tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
		return logRecordFadeMsg{Sequence: sequence}
	})
}

// syncTranscript reloads the transcript and returns the pane to the
// newest output.
func (model *Model) syncTranscript() {
	model.transcript = pipeline.Lines(model.controller.Transcript())
	model.transcriptScroll = 0
}

func (model *Model) scrollTranscript(delta int) {
	limit := max(len(model.transcript)-model.transcriptHeight(), 0)
	model.transcriptScroll = min(max(model.transcriptScroll+delta, 0), limit)
}

// transcriptHeight is the number of rows View gives the transcript
// pane: everything the header, list, separators, and footer leave.
func (model Model) transcriptHeight() int {
	used := 1 + max(len(model.snapshot.Workspaces), 1) + 1 + 2
	switch model.mode {
	case ModePrompt:
		used++
	case ModeConfirm:
		used += len(model.pendingPlan) + 2
	}
	return max(model.height-used, minTranscriptHeight)
}

func (model *Model) selectAttached() {
	for index, candidate := range model.snapshot.Workspaces {
		if candidate.Path == model.attached {
			model.cursor = index
			return
		}
	}
	model.clampCursor()
}

func (model *Model) selectName(name string) {
	for index, candidate := range model.snapshot.Workspaces {
		if candidate.Name == name {
			model.cursor = index
			return
		}
	}
	model.clampCursor()
}

func (model *Model) clampCursor() {
	if model.cursor >= len(model.snapshot.Workspaces) {
		model.cursor = len(model.snapshot.Workspaces) - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, model.renderHeader())
	sections = append(sections, model.renderList()...)

	var footer []string
	switch model.mode {
	case ModePrompt:
		footer = append(footer, model.prompt.View())
	case ModeConfirm:
		footer = append(footer, model.renderConfirm()...)
	}
	footer = append(footer, model.renderSeparator(""), model.renderStatus())

	sections = append(sections, model.renderSeparator(" transcript "))
	sections = append(sections, model.renderTranscript(model.transcriptHeight())...)
	sections = append(sections, footer...)
	return strings.Join(sections, "\n")
}

func (model Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	pathStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	layoutStyle := lipgloss.NewStyle().Bold(true).Foreground(model.theme.LayoutColor(model.snapshot.Layout))

	header := titleStyle.Render("dagfront")
	if model.snapshot.ProjectRoot != "" {
		header += " " + pathStyle.Render(model.snapshot.ProjectRoot)
	}
	if model.snapshot.Layout != "" {
		header += " " + layoutStyle.Render("["+string(model.snapshot.Layout)+"]")
	}
	return ansi.Truncate(header, model.width, "…")
}

func (model Model) renderList() []string {
	if len(model.snapshot.Workspaces) == 0 {
		return []string{lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("  no workspaces")}
	}

	nameWidth := 0
	for _, candidate := range model.snapshot.Workspaces {
		nameWidth = max(nameWidth, ansi.StringWidth(candidate.Name))
	}

	normal := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	defaultStyle := lipgloss.NewStyle().Foreground(model.theme.DefaultMarker)
	currentStyle := lipgloss.NewStyle().Foreground(model.theme.CurrentMarker).Bold(true)
	selectedStyle := lipgloss.NewStyle().
		Background(model.theme.SelectedBackground).
		Foreground(model.theme.SelectedForeground).
		Width(model.width)

	lines := make([]string, 0, len(model.snapshot.Workspaces))
	for index, candidate := range model.snapshot.Workspaces {
		indicator := "  "
		if index == model.cursor {
			indicator = "▸ "
		}
		current := " "
		if candidate.Path == model.attached {
			current = "*"
		}
		name := candidate.Name + strings.Repeat(" ", nameWidth-ansi.StringWidth(candidate.Name))

		var markers []string
		if candidate.IsDefault {
			markers = append(markers, "default")
		}
		if candidate.IsScooped {
			markers = append(markers, "scooped")
		}

		if index == model.cursor {
			row := indicator + current + " " + name + "  " + candidate.Path
			if len(markers) > 0 {
				row += "  (" + strings.Join(markers, ", ") + ")"
			}
			lines = append(lines, selectedStyle.Render(ansi.Truncate(row, model.width, "…")))
			continue
		}
		row := indicator + currentStyle.Render(current) + " " + normal.Render(name) + "  " + faint.Render(candidate.Path)
		if len(markers) > 0 {
			row += "  " + defaultStyle.Render("("+strings.Join(markers, ", ")+")")
		}
		lines = append(lines, ansi.Truncate(row, model.width, "…"))
	}
	return lines
}

func (model Model) renderSeparator(title string) string {
	style := lipgloss.NewStyle().Foreground(model.theme.BorderColor)
	fill := max(model.width-ansi.StringWidth(title)-2, 0)
	if title == "" {
		return style.Render(strings.Repeat("─", model.width))
	}
	return style.Render("──" + title + strings.Repeat("─", fill))
}

// renderTranscript returns height rows of transcript ending
// transcriptScroll lines above the newest output, with a scrollbar in
// the last column. Short transcripts are padded with blank rows so the
// layout does not jump.
func (model Model) renderTranscript(height int) []string {
	commandStyle := lipgloss.NewStyle().Foreground(model.theme.CommandText)
	outputStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	total := len(model.transcript)
	end := total - model.transcriptScroll
	start := max(end-height, 0)
	textWidth := max(model.width-2, 1)
	scrollbar := renderScrollbar(model.theme, height, total, height, start)

	lines := make([]string, 0, height)
	for row := range height {
		var text string
		if index := start + row; index < end {
			line := ansi.Truncate(model.transcript[index], textWidth, "…")
			if strings.HasPrefix(line, "$ ") {
				text = commandStyle.Render(line)
			} else {
				text = outputStyle.Render(line)
			}
		}
		padding := max(textWidth-ansi.StringWidth(text), 0)
		lines = append(lines, text+strings.Repeat(" ", padding)+" "+scrollbar[row])
	}
	return lines
}

func (model Model) renderConfirm() []string {
	warnStyle := lipgloss.NewStyle().Foreground(model.theme.WarnText).Bold(true)
	planStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	helpStyle := lipgloss.NewStyle().Foreground(model.theme.HelpText)

	lines := []string{warnStyle.Render(ansi.Truncate(model.pending.String()+"?", model.width, "…"))}
	for _, line := range model.pendingPlan {
		lines = append(lines, planStyle.Render(ansi.Truncate("  "+line, model.width, "…")))
	}
	lines = append(lines, helpStyle.Render("y confirm  n/Esc cancel"))
	return lines
}

func (model Model) renderStatus() string {
	if model.busy != "" {
		style := lipgloss.NewStyle().Foreground(model.theme.WarnText)
		return style.Render(ansi.Truncate("… "+model.busy, model.width, "…"))
	}
	if model.status != "" {
		color := model.theme.NormalText
		switch {
		case model.statusLevel >= slog.LevelError:
			color = model.theme.ErrorText
		case model.statusLevel >= slog.LevelWarn:
			color = model.theme.WarnText
		}
		style := lipgloss.NewStyle().Foreground(color)
		return style.Render(ansi.Truncate(model.status, model.width, "…"))
	}
	return model.renderHelp()
}

func (model Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	bindings := []key.Binding{
		model.keys.Down, model.keys.Up, model.keys.Add, model.keys.Rename,
		model.keys.Forget, model.keys.UpdateStale, model.keys.Refresh, model.keys.ScrollUp,
		model.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return style.Render(ansi.Truncate(" "+strings.Join(parts, "  "), model.width, "…"))
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return line
}
