package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fxdispatch/internal/engine"
	"github.com/roach88/fxdispatch/internal/normalize"
)

// Scenario defines a dispatch scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the CUE catalog directory.
	// Relative paths are resolved against the scenario file location.
	Catalog string `yaml:"catalog"`

	// Scene is the host scene fixture (host.SceneData YAML).
	Scene string `yaml:"scene"`

	// Config overrides fields of config.Default(), using the snapshot's
	// yaml names.
	Config yaml.Node `yaml:"config,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one host notification, or a move of the scenario clock.
type Step struct {
	Action         *normalize.Event         `yaml:"action,omitempty"`
	Template       *engine.TemplateCreated `yaml:"template,omitempty"`
	Removal        *engine.EffectRemoved   `yaml:"removal,omitempty"`
	SceneUnloaded  string                   `yaml:"scene_unloaded,omitempty"`
	MessageDeleted string                   `yaml:"message_deleted,omitempty"`

	// Advance moves the scheduler forward and runs every continuation due.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Expect validates the step's dispatch result (action and template
	// steps) or cancellation count (message_deleted steps).
	Expect *Expect `yaml:"expect,omitempty"`
}

// kind returns the step kind, or "" when the step sets no kind or several.
func (s *Step) kind() string {
	var kinds []string
	if s.Action != nil {
		kinds = append(kinds, StepAction)
	}
	if s.Template != nil {
		kinds = append(kinds, StepTemplate)
	}
	if s.Removal != nil {
		kinds = append(kinds, StepRemoval)
	}
	if s.SceneUnloaded != "" {
		kinds = append(kinds, StepSceneUnloaded)
	}
	if s.MessageDeleted != "" {
		kinds = append(kinds, StepMessageDeleted)
	}
	if s.Advance > 0 {
		kinds = append(kinds, StepAdvance)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Step kinds.
const (
	StepAction         = "action"
	StepTemplate       = "template"
	StepRemoval        = "removal"
	StepSceneUnloaded  = "scene_unloaded"
	StepMessageDeleted = "message_deleted"
	StepAdvance        = "advance"
)

// Expect is a subset match on a step's result. Unset fields are not checked.
type Expect struct {
	// Dispatched is false when the event is expected to be dropped before
	// dispatch (not applicable, not routed, nothing waiting).
	Dispatched *bool    `yaml:"dispatched,omitempty"`
	Outcome    string   `yaml:"outcome,omitempty"`
	Rule       string   `yaml:"rule,omitempty"`
	Definition string   `yaml:"definition,omitempty"`
	Reason     string   `yaml:"reason,omitempty"`
	Deferred   *bool    `yaml:"deferred,omitempty"`
	Delayed    *bool    `yaml:"delayed,omitempty"`
	Phases     []string `yaml:"phases,omitempty"`

	// Error is a substring of the expected dispatch error.
	Error string `yaml:"error,omitempty"`

	// Cancelled is the expected number of cancelled continuations.
	Cancelled *int `yaml:"cancelled,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is used by batch_count, sound_count and dispatch_log.
	Count int `yaml:"count,omitempty"`

	// Origin and State are used by guard_state.
	Origin string `yaml:"origin,omitempty"`
	State  string `yaml:"state,omitempty"`

	// Outcome filters dispatch_log.
	Outcome string `yaml:"outcome,omitempty"`

	// Deferred and Scheduled are used by pending.
	Deferred  int `yaml:"deferred,omitempty"`
	Scheduled int `yaml:"scheduled,omitempty"`

	// Batch and Index select one placement; Phase, File and Location are
	// compared when set. Location uses the trace notation, e.g. "token:orc".
	Batch    int    `yaml:"batch,omitempty"`
	Index    int    `yaml:"index,omitempty"`
	Phase    string `yaml:"phase,omitempty"`
	File     string `yaml:"file,omitempty"`
	Location string `yaml:"location,omitempty"`
}

// Assertion type constants.
const (
	AssertBatchCount  = "batch_count"
	AssertSoundCount  = "sound_count"
	AssertGuardState  = "guard_state"
	AssertPending     = "pending"
	AssertDispatchLog = "dispatch_log"
	AssertPlacement   = "placement"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Catalog and scene paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving catalog and scene paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return loadScenarioBytes(data, basePath, "")
}

// loadScenarioBytes parses and validates a scenario. A non-empty catalog
// replaces the scenario's own catalog path.
func loadScenarioBytes(data []byte, basePath, catalog string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if catalog != "" {
		scenario.Catalog = catalog
	} else {
		scenario.Catalog = resolve(basePath, scenario.Catalog)
	}
	scenario.Scene = resolve(basePath, scenario.Scene)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
		return fmt.Errorf("catalog not found: %s", s.Catalog)
	}

	if s.Scene == "" {
		return fmt.Errorf("scene is required")
	}
	if _, err := os.Stat(s.Scene); os.IsNotExist(err) {
		return fmt.Errorf("scene file not found: %s", s.Scene)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		if s.Steps[i].kind() == "" {
			return fmt.Errorf("steps[%d]: exactly one of action, template, removal, scene_unloaded, message_deleted or advance is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBatchCount, AssertSoundCount, AssertDispatchLog:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertGuardState:
		if a.Origin == "" {
			return fmt.Errorf("assertions[%d]: origin is required for guard_state", index)
		}
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for guard_state", index)
		}
	case AssertPending:
	case AssertPlacement:
		if a.Phase == "" && a.File == "" && a.Location == "" {
			return fmt.Errorf("assertions[%d]: placement needs at least one of phase, file or location", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
