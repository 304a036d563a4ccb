package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/ci"
)

// Scenario is a sequence of triggers and the assertions that must hold
// once they have run.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Policy overrides individual default limits. Zero fields keep the
	// default.
	Policy PolicyOverride `yaml:"policy,omitempty"`

	// Users maps user ids to display names for rendering.
	Users map[string]string `yaml:"users,omitempty"`

	// RunIDPrefix prefixes the sequential run IDs. Defaults to the name.
	RunIDPrefix string `yaml:"run_id_prefix,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// PolicyOverride holds optional replacements for cause.Policy limits.
type PolicyOverride struct {
	MaxDepth     int `yaml:"max_depth,omitempty"`
	MaxUpstreams int `yaml:"max_upstreams,omitempty"`
	MaxCauses    int `yaml:"max_causes,omitempty"`
}

// Apply returns base with every non-zero override applied.
func (o PolicyOverride) Apply(base cause.Policy) cause.Policy {
	if o.MaxDepth != 0 {
		base.MaxDepth = o.MaxDepth
	}
	if o.MaxUpstreams != 0 {
		base.MaxUpstreams = o.MaxUpstreams
	}
	if o.MaxCauses != 0 {
		base.MaxCauses = o.MaxCauses
	}
	return base
}

// Step schedules one project, or runs a block of nested steps.
type Step struct {
	Trigger string      `yaml:"trigger,omitempty"`
	As      string      `yaml:"as,omitempty"`
	Repeat  int         `yaml:"repeat,omitempty"`
	Causes  []CauseSpec `yaml:"causes,omitempty"`
	Steps   []Step      `yaml:"steps,omitempty"`
}

// times returns how often the step runs.
func (s Step) times() int {
	if s.Repeat == 0 {
		return 1
	}
	return s.Repeat
}

// CauseSpec describes one cause of a trigger.
type CauseSpec struct {
	Kind cause.Kind `yaml:"kind"`

	// User is the user id of a user cause. Nil is anonymous.
	User *string `yaml:"user,omitempty"`

	// System marks a user cause as started by the system actor.
	System bool `yaml:"system,omitempty"`

	Addr string `yaml:"addr,omitempty"`
	Note string `yaml:"note,omitempty"`

	// Ref names the upstream run: an alias or "project#number".
	Ref string `yaml:"ref,omitempty"`

	// All expands an alias to every run recorded under it.
	All bool `yaml:"all,omitempty"`

	// Optional skips an upstream cause whose reference does not resolve.
	Optional bool `yaml:"optional,omitempty"`
}

// Assertion checks the chain of one run.
type Assertion struct {
	Type string `yaml:"type"`

	// Run selects the run: an alias (its latest run) or "project#number".
	Run string `yaml:"run"`

	// Max bounds max_upstream_nodes, max_depth and max_roots.
	Max int `yaml:"max,omitempty"`

	// Build is the "project#number" searched by contains_build.
	Build string `yaml:"build,omitempty"`

	// Absent inverts contains_build.
	Absent bool `yaml:"absent,omitempty"`

	// Text is the substring searched by renders.
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertMaxUpstreamNodes = "max_upstream_nodes"
	AssertMaxDepth         = "max_depth"
	AssertMaxRoots         = "max_roots"
	AssertContainsBuild    = "contains_build"
	AssertRenders          = "renders"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if err := s.Policy.Apply(cause.DefaultPolicy()).Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := validateSteps("steps", s.Steps); err != nil {
		return err
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateSteps(path string, steps []Step) error {
	for i, step := range steps {
		at := fmt.Sprintf("%s[%d]", path, i)
		if step.Repeat < 0 {
			return fmt.Errorf("%s: repeat must be non-negative", at)
		}
		switch {
		case step.Trigger != "" && len(step.Steps) > 0:
			return fmt.Errorf("%s: trigger and steps are mutually exclusive", at)
		case len(step.Steps) > 0:
			if step.As != "" || len(step.Causes) > 0 {
				return fmt.Errorf("%s: a block takes only repeat and steps", at)
			}
			if err := validateSteps(at+".steps", step.Steps); err != nil {
				return err
			}
		case step.Trigger == "":
			return fmt.Errorf("%s: trigger is required", at)
		}
		for j, c := range step.Causes {
			if err := validateCause(fmt.Sprintf("%s.causes[%d]", at, j), c); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateCause(at string, c CauseSpec) error {
	if !slices.Contains(cause.Kinds, c.Kind) || c.Kind == cause.KindDeeplyNested {
		return fmt.Errorf("%s: unknown cause kind %q", at, c.Kind)
	}
	if c.Kind == cause.KindUpstream && c.Ref == "" {
		return fmt.Errorf("%s: ref is required for upstream causes", at)
	}
	if c.Kind != cause.KindUpstream && (c.Ref != "" || c.All || c.Optional) {
		return fmt.Errorf("%s: ref, all and optional apply to upstream causes only", at)
	}
	if c.Kind == cause.KindUser && c.System && c.User != nil {
		return fmt.Errorf("%s: user and system are mutually exclusive", at)
	}
	if c.Kind == cause.KindRemote && c.Addr == "" {
		return fmt.Errorf("%s: addr is required for remote causes", at)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Run == "" {
		return fmt.Errorf("assertions[%d]: run is required", index)
	}

	switch a.Type {
	case AssertMaxUpstreamNodes, AssertMaxDepth, AssertMaxRoots:
		if a.Max < 0 {
			return fmt.Errorf("assertions[%d]: max must be non-negative for %s", index, a.Type)
		}
	case AssertContainsBuild:
		if _, _, err := ci.ParseRef(a.Build); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertRenders:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for renders", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
