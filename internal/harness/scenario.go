package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/status"
)

// Scenario is a load order test case.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Game is a game code or name accepted by game.ParseCode.
	Game string `yaml:"game"`

	// Method optionally overrides the game's default method.
	Method string `yaml:"method,omitempty"`

	// MaxActive optionally overrides the active plugin ceiling.
	MaxActive int `yaml:"max_active,omitempty"`

	Plugins []PluginSpec `yaml:"plugins"`

	// Files are written before the handle is opened.
	Files Files `yaml:"files,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`

	// OpenExpect optionally checks the result of opening the handle.
	OpenExpect *Expect `yaml:"open_expect,omitempty"`
}

// PluginSpec is a plugin file to create.
type PluginSpec struct {
	Name    string `yaml:"name"`
	Master  bool   `yaml:"master,omitempty"`
	Ghosted bool   `yaml:"ghosted,omitempty"`

	// Invalid writes a file without a plugin header.
	Invalid bool `yaml:"invalid,omitempty"`
}

// Files are the persisted lists of an installation.
type Files struct {
	Order  []string `yaml:"order,omitempty"`
	Active []string `yaml:"active,omitempty"`
}

// Step is one operation.
type Step struct {
	Op      string   `yaml:"op"`
	Name    string   `yaml:"name,omitempty"`
	Names   []string `yaml:"names,omitempty"`
	Index   int      `yaml:"index,omitempty"`
	Entry   int      `yaml:"entry,omitempty"`
	Minutes int      `yaml:"minutes,omitempty"`
	File    string   `yaml:"file,omitempty"`
	Lines   []string `yaml:"lines,omitempty"`
	Expect  *Expect  `yaml:"expect,omitempty"`
}

// Expect checks the outcome of one step. Nil lists are not checked.
type Expect struct {
	// Code is the symbolic return code, e.g. OK or LO_MISMATCH. For a
	// successful step with warnings it is the highest warning code.
	Code   string   `yaml:"code"`
	Order  []string `yaml:"order,omitempty"`
	Active []string `yaml:"active,omitempty"`
}

// Assertion validates the final trace, state or files.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op and Code select trace events (trace_contains, trace_count).
	Op   string `yaml:"op,omitempty"`
	Code string `yaml:"code,omitempty"`

	// Count is the expected number of events (trace_count) or journal
	// entries (history_count).
	Count int `yaml:"count,omitempty"`

	// Order and Active are the expected final state (final_state).
	Order  []string `yaml:"order,omitempty"`
	Active []string `yaml:"active,omitempty"`

	// File and Lines are the expected file content (file_lines).
	File  string   `yaml:"file,omitempty"`
	Lines []string `yaml:"lines,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertFileLines     = "file_lines"
	AssertHistoryCount  = "history_count"
)

// Step operations.
const (
	OpOpen         = "open"
	OpLoad         = "load"
	OpSetLoadOrder = "set_load_order"
	OpSetActive    = "set_active"
	OpActivate     = "activate"
	OpDeactivate   = "deactivate"
	OpMove         = "move"
	OpRestore      = "restore"
	OpTouch        = "touch"
	OpWriteFile    = "write_file"
)

// File selectors for write_file and file_lines.
const (
	FileOrder  = "order"
	FileActive = "active"
)

var codesByName = func() map[string]status.Code {
	m := make(map[string]status.Code, status.Max+1)
	for c := status.OK; c <= status.Max; c++ {
		m[c.String()] = c
	}
	return m
}()

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filepath.Base(path), err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := game.ParseCode(s.Game); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	if s.Method != "" {
		if _, err := game.ParseMethod(s.Method); err != nil {
			return fmt.Errorf("method: %w", err)
		}
	}
	if len(s.Plugins) == 0 {
		return fmt.Errorf("plugins list is required and must be non-empty")
	}
	for i, p := range s.Plugins {
		if p.Name == "" {
			return fmt.Errorf("plugins[%d]: name is required", i)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.OpenExpect != nil {
		if err := validateExpect("open_expect", s.OpenExpect); err != nil {
			return err
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	switch step.Op {
	case OpLoad:
	case OpSetLoadOrder, OpSetActive:
		if step.Names == nil {
			return fmt.Errorf("steps[%d]: names is required for %s (use [] for none)", i, step.Op)
		}
	case OpActivate, OpDeactivate, OpMove, OpTouch:
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required for %s", i, step.Op)
		}
	case OpRestore:
		if step.Entry <= 0 {
			return fmt.Errorf("steps[%d]: entry must be positive for restore", i)
		}
	case OpWriteFile:
		if step.File != FileOrder && step.File != FileActive {
			return fmt.Errorf("steps[%d]: file must be %q or %q", i, FileOrder, FileActive)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	if step.Expect != nil {
		return validateExpect(fmt.Sprintf("steps[%d].expect", i), step.Expect)
	}
	return nil
}

func validateExpect(where string, e *Expect) error {
	if _, ok := codesByName[e.Code]; !ok {
		return fmt.Errorf("%s: unknown code %q", where, e.Code)
	}
	return nil
}

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", i)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", i)
		}
	case AssertFinalState:
		if a.Order == nil && a.Active == nil {
			return fmt.Errorf("assertions[%d]: order or active is required for final_state", i)
		}
	case AssertFileLines:
		if a.File != FileOrder && a.File != FileActive {
			return fmt.Errorf("assertions[%d]: file must be %q or %q", i, FileOrder, FileActive)
		}
	case AssertHistoryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	if a.Code != "" {
		if _, ok := codesByName[a.Code]; !ok {
			return fmt.Errorf("assertions[%d]: unknown code %q", i, a.Code)
		}
	}
	return nil
}
