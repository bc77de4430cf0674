package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/handle"
	"github.com/roach88/loadorder/internal/history"
	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/store"
	"github.com/roach88/loadorder/internal/testutil"
)

// installationName is the journal key used for every scenario.
const installationName = "scenario"

// Harness executes one scenario.
type Harness struct {
	scenario *Scenario
	settings game.Settings
	root     string
	gamePath string
	local    string
	handle   *handle.Handle
	journal  *history.Store
	logger   *slog.Logger
	seq      int
}

// Run executes a scenario in a fresh scratch directory and returns the
// result. The directory and journal are removed afterwards.
//
// Execution flow:
//  1. Write plugin files and the order and active files
//  2. Open the game handle with an in-memory journal
//  3. Execute steps, checking expect clauses
//  4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	root, err := os.MkdirTemp("", "loadorder-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(root)

	return RunIn(root, scenario)
}

// RunIn executes a scenario using root as the scratch directory.
func RunIn(root string, scenario *Scenario) (*Result, error) {
	code, err := game.ParseCode(scenario.Game)
	if err != nil {
		return nil, err
	}
	settings, err := game.Lookup(code)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewDeterministicClock()
	journal, err := history.Open(":memory:",
		history.WithIDGenerator(testutil.NewSequenceIDGenerator("")),
		history.WithClock(clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer journal.Close()

	h := &Harness{
		scenario: scenario,
		settings: settings,
		root:     root,
		gamePath: filepath.Join(root, "game"),
		local:    filepath.Join(root, "local"),
		journal:  journal,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if err := h.writePlugins(); err != nil {
		return nil, fmt.Errorf("failed to write plugins: %w", err)
	}
	if err := h.writeFiles(); err != nil {
		return nil, fmt.Errorf("failed to write files: %w", err)
	}

	result := NewResult()
	h.open(result)
	if h.handle != nil {
		for i, step := range scenario.Steps {
			if err := h.execute(i, step, result); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
	}

	if err := h.collect(result); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) paths() game.Paths {
	return h.settings.Resolve(h.gamePath, h.local)
}

func (h *Harness) pluginTime(i int) time.Time {
	return testutil.BaseTime.Add(time.Duration(i) * time.Minute)
}

func (h *Harness) writePlugins() error {
	dir := h.paths().PluginsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, p := range h.scenario.Plugins {
		var data []byte
		switch {
		case p.Invalid:
			data = []byte("not a plugin")
		case h.settings.Format == plugin.FormatTES3:
			data = testutil.TES3Header(p.Master)
		default:
			data = testutil.TES4Header(p.Master)
		}
		name := p.Name
		if p.Ghosted {
			name += plugin.GhostExtension
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		mtime := h.pluginTime(i)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) writeFiles() error {
	if h.scenario.Files.Order != nil {
		if err := h.writeFile(FileOrder, h.scenario.Files.Order); err != nil {
			return err
		}
	}
	if h.scenario.Files.Active != nil {
		if err := h.writeFile(FileActive, h.scenario.Files.Active); err != nil {
			return err
		}
	}
	return nil
}

// writeFile writes a list file the way an external tool would.
func (h *Harness) writeFile(which string, lines []string) error {
	p := h.paths()
	if which == FileActive {
		return store.NewActiveList(h.settings.ActiveList, p.ActiveFile).Write(lines)
	}
	if p.OrderFile == "" {
		return fmt.Errorf("%s has no load order file", h.settings.Name)
	}
	if err := os.MkdirAll(filepath.Dir(p.OrderFile), 0o755); err != nil {
		return err
	}
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	return os.WriteFile(p.OrderFile, []byte(content), 0o644)
}

func (h *Harness) open(result *Result) {
	method := h.settings.DefaultMethod
	if h.scenario.Method != "" {
		method, _ = game.ParseMethod(h.scenario.Method)
	}
	opts := []handle.Option{
		handle.WithLogger(h.logger),
		handle.WithMethod(method),
		handle.WithRecorder(&history.Recorder{
			Store:        h.journal,
			Installation: installationName,
			Game:         uint(h.settings.Code),
			Method:       method.String(),
		}),
	}
	if h.scenario.MaxActive > 0 {
		opts = append(opts, handle.WithMaxActive(h.scenario.MaxActive))
	}

	hd, warnings, err := handle.Open(h.settings.Code, h.gamePath, h.local, opts...)
	h.handle = hd
	event := h.record(TraceEvent{Op: OpOpen}, warnings, err, result)
	if h.scenario.OpenExpect != nil {
		checkExpect("open", h.scenario.OpenExpect, event, result)
	}
}

func (h *Harness) execute(i int, step Step, result *Result) error {
	event := TraceEvent{Op: step.Op, Name: step.Name, Names: step.Names}
	var (
		warnings []status.Warning
		err      error
	)

	switch step.Op {
	case OpLoad:
		warnings, err = h.handle.Reload()
	case OpSetLoadOrder:
		warnings, err = h.handle.SetLoadOrder(step.Names)
	case OpSetActive:
		warnings, err = h.handle.SetActivePlugins(step.Names)
	case OpActivate:
		warnings, err = h.handle.Activate(step.Name)
	case OpDeactivate:
		warnings, err = h.handle.Deactivate(step.Name)
	case OpMove:
		index := step.Index
		event.Index = &index
		warnings, err = h.handle.MovePlugin(step.Name, step.Index)
	case OpRestore:
		warnings, err = h.restore(step.Entry)
	case OpTouch:
		if err := h.touch(step.Name, step.Minutes); err != nil {
			return err
		}
	case OpWriteFile:
		if err := h.writeFile(step.File, step.Lines); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	recorded := h.record(event, warnings, err, result)
	if step.Expect != nil {
		checkExpect(fmt.Sprintf("step %d (%s)", i, step.Op), step.Expect, recorded, result)
	}
	return nil
}

func (h *Harness) restore(seq int) ([]status.Warning, error) {
	entries, err := h.journal.List(context.Background(), installationName, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Seq == int64(seq) {
			return h.handle.SetState(e.LoadOrder, e.Active)
		}
	}
	return nil, status.Errorf(status.InvalidArgs, "no journal entry %d", seq)
}

// touch changes a plugin's modification time to the given number of
// minutes after the first plugin's time.
func (h *Harness) touch(name string, minutes int) error {
	dir := h.paths().PluginsDir
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		path += plugin.GhostExtension
	}
	mtime := h.pluginTime(minutes)
	return os.Chtimes(path, mtime, mtime)
}

// record appends a trace event carrying the step's outcome and the state
// after it.
func (h *Harness) record(event TraceEvent, warnings []status.Warning, err error, result *Result) TraceEvent {
	h.seq++
	event.Seq = h.seq

	switch {
	case err != nil:
		event.Code = status.CodeOf(err).String()
		h.logger.Debug("step failed", "op", event.Op, "error", err)
	default:
		event.Code = status.Highest(warnings).String()
	}
	for _, w := range warnings {
		event.Warnings = append(event.Warnings, w.String())
	}

	event.Order = []string{}
	event.Active = []string{}
	if h.handle != nil {
		if order, err := h.handle.LoadOrder(); err == nil && order != nil {
			event.Order = order
		}
		if active, err := h.handle.ActivePlugins(); err == nil && active != nil {
			event.Active = active
		}
	}

	result.Trace = append(result.Trace, event)
	return event
}

func checkExpect(where string, want *Expect, got TraceEvent, result *Result) {
	if want.Code != got.Code {
		result.AddError(fmt.Sprintf("%s: expected code %s, got %s", where, want.Code, got.Code))
	}
	if want.Order != nil && !reflect.DeepEqual(want.Order, got.Order) {
		result.AddError(fmt.Sprintf("%s: expected order %v, got %v", where, want.Order, got.Order))
	}
	if want.Active != nil && !reflect.DeepEqual(want.Active, got.Active) {
		result.AddError(fmt.Sprintf("%s: expected active %v, got %v", where, want.Active, got.Active))
	}
}

// collect reads the final files and journal into the result.
func (h *Harness) collect(result *Result) error {
	p := h.paths()

	active, found, err := store.NewActiveList(h.settings.ActiveList, p.ActiveFile).Read()
	if err != nil {
		return fmt.Errorf("failed to read active file: %w", err)
	}
	if found {
		result.Files[FileActive] = nonNil(active)
	}

	if p.OrderFile != "" {
		data, err := os.ReadFile(p.OrderFile)
		switch {
		case err == nil:
			var lines []string
			for _, l := range strings.Split(string(data), "\n") {
				if l = strings.TrimSpace(l); l != "" {
					lines = append(lines, l)
				}
			}
			result.Files[FileOrder] = nonNil(lines)
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to read order file: %w", err)
		}
	}

	entries, err := h.journal.List(context.Background(), installationName, 0)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	for _, e := range entries {
		result.Journal = append(result.Journal, e.Operation)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
