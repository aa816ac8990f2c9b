// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspaceui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/topology"
	"github.com/dagfront/dagfront/lib/workspace"
)

// fakeController records intents and answers with canned results.
type fakeController struct {
	snapshot   workspace.Snapshot
	attached   string
	warnings   []workspace.Mismatch
	transcript []pipeline.Entry

	previewPlan *topology.Plan
	previewErr  error
	report      *topology.Report
	executeErr  error

	executed []topology.Intent
	previews []topology.Intent
}

func (c *fakeController) Snapshot() workspace.Snapshot   { return c.snapshot }
func (c *fakeController) Attached() string               { return c.attached }
func (c *fakeController) Warnings() []workspace.Mismatch { return c.warnings }
func (c *fakeController) Transcript() []pipeline.Entry   { return c.transcript }
func (c *fakeController) UpdateStale(context.Context) (string, error) {
	return "Working copy already up to date", nil
}

func (c *fakeController) Refresh(context.Context) (workspace.Snapshot, error) {
	return c.snapshot, nil
}

func (c *fakeController) Preview(_ context.Context, intent topology.Intent) (*topology.Plan, error) {
	c.previews = append(c.previews, intent)
	return c.previewPlan, c.previewErr
}

func (c *fakeController) Execute(_ context.Context, intent topology.Intent) (*topology.Report, error) {
	c.executed = append(c.executed, intent)
	c.transcript = append(c.transcript, pipeline.Entry{Sequence: uint64(len(c.transcript) + 1), Command: "jj workspace " + intent.String()})
	return c.report, c.executeErr
}

func scoopedSnapshot() workspace.Snapshot {
	return workspace.Snapshot{
		ProjectRoot: "/src/proj",
		Layout:      workspace.Scooped,
		Workspaces: []workspace.Workspace{
			{Name: "default", Path: "/src/proj/default", IsDefault: true, IsScooped: true},
			{Name: "feature", Path: "/src/proj/feature", IsScooped: true},
		},
	}
}

func newTestModel(controller *fakeController) Model {
	model := NewModel(controller)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	return updated.(Model)
}

func press(t *testing.T, model Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, name := range keys {
		var message tea.KeyMsg
		switch name {
		case "enter":
			message = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			message = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			message = tea.KeyMsg{Type: tea.KeyDown}
		case "pgup":
			message = tea.KeyMsg{Type: tea.KeyPgUp}
		case "pgdown":
			message = tea.KeyMsg{Type: tea.KeyPgDown}
		default:
			message = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(name)}
		}
		var updated tea.Model
		updated, cmd = model.Update(message)
		model = updated.(Model)
	}
	return model, cmd
}

// deliver runs cmd synchronously and feeds its message back.
func deliver(t *testing.T, model Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	updated, _ := model.Update(cmd())
	return updated.(Model)
}

func TestNewModel_SelectsAttachedWorkspace(t *testing.T) {
	controller := &fakeController{snapshot: scoopedSnapshot(), attached: "/src/proj/feature"}
	model := newTestModel(controller)

	selected, ok := model.Selected()
	if !ok || selected.Name != "feature" {
		t.Fatalf("Selected() = %+v, %v; want feature", selected, ok)
	}

	view := model.View()
	for _, want := range []string{"dagfront", "/src/proj", "[scooped]", "default", "feature", "transcript"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestNewModel_ShowsStartupWarnings(t *testing.T) {
	controller := &fakeController{
		snapshot: scoopedSnapshot(),
		warnings: []workspace.Mismatch{
			{Workspace: "feature", Kind: workspace.MissingDirectory, Listed: "/src/proj/feature"},
			{Workspace: "other", Kind: workspace.OrphanRecord, Recorded: "/elsewhere"},
		},
	}
	model := newTestModel(controller)

	view := model.View()
	if !strings.Contains(view, "no workspace found at /src/proj/feature") || !strings.Contains(view, "1 more") {
		t.Errorf("status does not show the startup mismatches:\n%s", view)
	}
}

func TestNavigation(t *testing.T) {
	controller := &fakeController{snapshot: scoopedSnapshot(), attached: "/src/proj/default"}
	model := newTestModel(controller)

	model, _ = press(t, model, "j", "j", "j")
	if selected, _ := model.Selected(); selected.Name != "feature" {
		t.Errorf("after j j j selected %q, want feature (clamped)", selected.Name)
	}
	model, _ = press(t, model, "k", "k")
	if selected, _ := model.Selected(); selected.Name != "default" {
		t.Errorf("after k k selected %q, want default", selected.Name)
	}
}

func TestAddPrompt(t *testing.T) {
	after := scoopedSnapshot()
	after.Workspaces = append(after.Workspaces, workspace.Workspace{Name: "hotfix", Path: "/src/proj/hotfix", IsScooped: true})
	controller := &fakeController{
		snapshot: scoopedSnapshot(),
		attached: "/src/proj/default",
		report:   &topology.Report{After: after, Attached: "/src/proj/default"},
	}
	model := newTestModel(controller)

	model, _ = press(t, model, "a")
	if model.Mode() != ModePrompt {
		t.Fatalf("mode after a = %v, want prompt", model.Mode())
	}
	model, _ = press(t, model, "h", "o", "t", "f", "i", "x")
	model, cmd := press(t, model, "enter")
	if model.Mode() != ModeList {
		t.Errorf("mode after enter = %v, want list", model.Mode())
	}
	if !strings.Contains(model.View(), "add workspace hotfix") {
		t.Errorf("status does not show the running intent:\n%s", model.View())
	}

	model = deliver(t, model, cmd)
	if len(controller.executed) != 1 || controller.executed[0] != (topology.AddWorkspace{Name: "hotfix"}) {
		t.Fatalf("executed = %v, want add hotfix", controller.executed)
	}
	if selected, _ := model.Selected(); selected.Name != "hotfix" {
		t.Errorf("selected after add = %q, want hotfix", selected.Name)
	}
	view := model.View()
	if !strings.Contains(view, "add workspace hotfix done") {
		t.Errorf("status missing completion:\n%s", view)
	}
	if !strings.Contains(view, "$ jj workspace add workspace hotfix") {
		t.Errorf("transcript not refreshed:\n%s", view)
	}
}

func TestAddPrompt_InvalidNameStaysOpen(t *testing.T) {
	controller := &fakeController{snapshot: scoopedSnapshot()}
	model := newTestModel(controller)

	model, _ = press(t, model, "a", "-", "x")
	model, cmd := press(t, model, "enter")
	if model.Mode() != ModePrompt {
		t.Fatalf("mode = %v, want prompt to stay open", model.Mode())
	}
	if cmd != nil {
		t.Error("invalid name produced a command")
	}
	if len(controller.executed) != 0 {
		t.Errorf("executed = %v, want nothing", controller.executed)
	}

	model, _ = press(t, model, "esc")
	if model.Mode() != ModeList {
		t.Errorf("mode after esc = %v, want list", model.Mode())
	}
}

func TestRenamePrompt(t *testing.T) {
	controller := &fakeController{
		snapshot: scoopedSnapshot(),
		attached: "/src/proj/default",
		report:   &topology.Report{After: scoopedSnapshot(), Attached: "/src/proj/default"},
	}
	model := newTestModel(controller)

	model, _ = press(t, model, "j", "r")
	if model.Mode() != ModePrompt {
		t.Fatalf("mode after r = %v, want prompt", model.Mode())
	}
	// The prompt starts with the current name.
	model, _ = press(t, model, "2")
	model, cmd := press(t, model, "enter")
	model = deliver(t, model, cmd)

	want := topology.RenameWorkspace{From: "feature", To: "feature2"}
	if len(controller.executed) != 1 || controller.executed[0] != want {
		t.Fatalf("executed = %v, want %v", controller.executed, want)
	}
}

func TestForgetConfirmation(t *testing.T) {
	plan := &topology.Plan{
		Intent: topology.ForgetWorkspace{Name: "feature"},
		Steps: []topology.Step{
			topology.InvokeVCS{Job: pipeline.Job{Args: []string{"workspace", "forget", "feature"}}},
		},
	}
	controller := &fakeController{
		snapshot:    scoopedSnapshot(),
		attached:    "/src/proj/default",
		previewPlan: plan,
		report: &topology.Report{
			After: workspace.Snapshot{
				ProjectRoot: "/src/proj",
				Layout:      workspace.Unscooped,
				Workspaces:  []workspace.Workspace{{Name: "default", Path: "/src/proj", IsDefault: true}},
			},
			Attached: "/src/proj",
		},
	}
	model := newTestModel(controller)

	model, cmd := press(t, model, "j", "f")
	model = deliver(t, model, cmd)
	if model.Mode() != ModeConfirm {
		t.Fatalf("mode after preview = %v, want confirm", model.Mode())
	}
	if !strings.Contains(model.View(), "forget workspace feature?") {
		t.Errorf("confirmation not shown:\n%s", model.View())
	}
	if !strings.Contains(model.View(), "jj workspace forget feature") {
		t.Errorf("previewed plan not shown:\n%s", model.View())
	}
	if len(controller.executed) != 0 {
		t.Fatal("forget executed before confirmation")
	}

	model, cmd = press(t, model, "y")
	model = deliver(t, model, cmd)
	if len(controller.executed) != 1 {
		t.Fatalf("executed = %v, want one forget", controller.executed)
	}
	if !strings.Contains(model.View(), "[unscooped]") {
		t.Errorf("layout not updated from the report:\n%s", model.View())
	}
	if selected, _ := model.Selected(); selected.Name != "default" {
		t.Errorf("selected = %q, want default after cursor clamp", selected.Name)
	}
}

func TestForgetConfirmation_Cancel(t *testing.T) {
	controller := &fakeController{
		snapshot:    scoopedSnapshot(),
		previewPlan: &topology.Plan{Intent: topology.ForgetWorkspace{Name: "default"}},
	}
	model := newTestModel(controller)

	model, cmd := press(t, model, "f")
	model = deliver(t, model, cmd)
	model, _ = press(t, model, "n")
	if model.Mode() != ModeList {
		t.Errorf("mode = %v, want list", model.Mode())
	}
	if len(controller.executed) != 0 {
		t.Errorf("executed = %v, want nothing", controller.executed)
	}
	if !strings.Contains(model.View(), "cancelled") {
		t.Errorf("status missing cancellation:\n%s", model.View())
	}
}

func TestForgetPreviewRefused(t *testing.T) {
	controller := &fakeController{
		snapshot:   scoopedSnapshot(),
		previewErr: topology.ErrRepoHostMove,
	}
	model := newTestModel(controller)

	model, cmd := press(t, model, "f")
	model = deliver(t, model, cmd)
	if model.Mode() != ModeList {
		t.Errorf("mode = %v, want list", model.Mode())
	}
	if !strings.Contains(model.View(), topology.ErrRepoHostMove.Error()) {
		t.Errorf("refusal not shown:\n%s", model.View())
	}
}

func TestPlanFailureKeepsSnapshot(t *testing.T) {
	controller := &fakeController{
		snapshot: scoopedSnapshot(),
		executeErr: &topology.PlanError{
			Intent: topology.AddWorkspace{Name: "x"},
			Err:    errors.New("jj exploded"),
		},
	}
	model := newTestModel(controller)

	model, _ = press(t, model, "a", "x")
	model, cmd := press(t, model, "enter")
	model = deliver(t, model, cmd)

	view := model.View()
	if !strings.Contains(view, "failed and was rolled back: jj exploded") {
		t.Errorf("status missing rollback summary:\n%s", view)
	}
	if len(model.snapshot.Workspaces) != 2 {
		t.Errorf("snapshot changed after a failed plan: %+v", model.snapshot)
	}
}

func TestBusyRefusesActions(t *testing.T) {
	controller := &fakeController{snapshot: scoopedSnapshot()}
	model := newTestModel(controller)

	model, first := press(t, model, "g")
	if first == nil {
		t.Fatal("refresh produced no command")
	}
	model, _ = press(t, model, "u")
	if !strings.Contains(model.View(), "refreshing") {
		t.Errorf("busy state not shown:\n%s", model.View())
	}

	model = deliver(t, model, first)
	model, cmd := press(t, model, "u")
	model = deliver(t, model, cmd)
	if !strings.Contains(model.View(), "Working copy already up to date") {
		t.Errorf("update-stale output not shown:\n%s", model.View())
	}
}

func TestLogRecordFades(t *testing.T) {
	controller := &fakeController{snapshot: scoopedSnapshot()}
	model := newTestModel(controller)

	updated, cmd := model.Update(logRecordMsg{Summary: "plan warning (warning=orphan)", Level: slog.LevelWarn})
	model = updated.(Model)
	if cmd == nil {
		t.Fatal("warning did not schedule a fade")
	}
	if !strings.Contains(model.View(), "plan warning") {
		t.Fatalf("log record not shown:\n%s", model.View())
	}

	// A stale fade for an older record leaves the status alone.
	updated, _ = model.Update(logRecordFadeMsg{Sequence: model.statusSequence - 1})
	model = updated.(Model)
	if !strings.Contains(model.View(), "plan warning") {
		t.Fatal("stale fade cleared the current record")
	}

	updated, _ = model.Update(logRecordFadeMsg{Sequence: model.statusSequence})
	model = updated.(Model)
	if strings.Contains(model.View(), "plan warning") {
		t.Error("fade did not clear the record")
	}
}

func TestQuit(t *testing.T) {
	model := newTestModel(&fakeController{snapshot: scoopedSnapshot()})
	_, cmd := press(t, model, "q")
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestTranscriptScrolling(t *testing.T) {
	controller := &fakeController{snapshot: scoopedSnapshot(), attached: "/src/proj/default"}
	for index := range 60 {
		controller.transcript = append(controller.transcript, pipeline.Entry{
			Sequence: uint64(index + 1),
			Command:  fmt.Sprintf("jj cmd-%02d", index),
		})
	}
	model := newTestModel(controller)

	view := model.View()
	if !strings.Contains(view, "cmd-59") || strings.Contains(view, "cmd-00") {
		t.Fatalf("initial view should show only the newest output:\n%s", view)
	}

	keys := make([]string, 10)
	for index := range keys {
		keys[index] = "pgup"
	}
	model, _ = press(t, model, keys...)
	view = model.View()
	if !strings.Contains(view, "cmd-00") || strings.Contains(view, "cmd-59") {
		t.Fatalf("scrolled to the top, view should show the oldest output:\n%s", view)
	}

	model, _ = press(t, model, "pgdown")
	if model.transcriptScroll == 0 {
		t.Error("one pgdown from the top returned to the newest output")
	}

	// New output returns the pane to the bottom.
	updated, _ := model.Update(refreshMsg{snapshot: scoopedSnapshot()})
	model = updated.(Model)
	if model.transcriptScroll != 0 || !strings.Contains(model.View(), "cmd-59") {
		t.Errorf("refresh did not return to the newest output (scroll %d)", model.transcriptScroll)
	}
}

func TestRenderScrollbar(t *testing.T) {
	theme := DefaultTheme
	if cells := renderScrollbar(theme, 4, 3, 4, 0); len(cells) != 4 {
		t.Fatalf("fitting content: %d cells, want 4", len(cells))
	}

	thumbCount := func(cells []string) (first, count int) {
		first = -1
		for index, cell := range cells {
			if strings.Contains(cell, "┃") {
				if first < 0 {
					first = index
				}
				count++
			}
		}
		return first, count
	}

	if first, count := thumbCount(renderScrollbar(theme, 10, 100, 10, 0)); first != 0 || count != 1 {
		t.Errorf("top: thumb at %d size %d, want 0 size 1", first, count)
	}
	if first, count := thumbCount(renderScrollbar(theme, 10, 100, 10, 90)); first != 9 || count != 1 {
		t.Errorf("bottom: thumb at %d size %d, want 9 size 1", first, count)
	}
	if first, count := thumbCount(renderScrollbar(theme, 10, 20, 10, 10)); first != 5 || count != 5 {
		t.Errorf("half: thumb at %d size %d, want 5 size 5", first, count)
	}
}
