package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wdshin/Concuerror/internal/model"
	"github.com/wdshin/Concuerror/internal/schedule"
)

// Scenario defines one exploration test.
// A scenario names a program, the exploration options, and what the
// session is expected to find.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is an inline program. Exactly one of Program and ProgramFile
	// must be set.
	Program *model.Program `yaml:"program,omitempty"`

	// ProgramFile is a YAML or CUE program file, relative to the scenario
	// file.
	ProgramFile string `yaml:"program_file,omitempty"`

	// ProgramName picks a program of a CUE file that declares several.
	ProgramName string `yaml:"program_name,omitempty"`

	Options Options `yaml:"options,omitempty"`
	Expect  Expect  `yaml:"expect"`
}

// Options are the exploration options of a scenario.
type Options struct {
	// InitPath seeds the frontier, e.g. "P1,P1.1".
	InitPath string `yaml:"init_path,omitempty"`

	// MaxRounds bounds the number of rounds; 0 explores until the
	// frontier is exhausted.
	MaxRounds int `yaml:"max_rounds,omitempty"`

	// Details records decision traces in tickets.
	Details bool `yaml:"details,omitempty"`
}

// Expect lists the expectations of a scenario. Unset fields are not
// checked.
type Expect struct {
	// Outcome is "ok" (no tickets) or "fail" (at least one ticket).
	Outcome string `yaml:"outcome"`

	Runs    *int `yaml:"runs,omitempty"`
	Rounds  *int `yaml:"rounds,omitempty"`
	Tickets *int `yaml:"tickets,omitempty"`

	// Kinds is the exact set of ticket kinds found, in any order.
	Kinds []string `yaml:"kinds,omitempty"`

	// Details must each be a substring of some ticket detail.
	Details []string `yaml:"details,omitempty"`
}

// Outcome values.
const (
	OutcomeOK   = "ok"
	OutcomeFail = "fail"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// ProgramFile is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.ProgramFile != "" && !filepath.IsAbs(scenario.ProgramFile) {
		scenario.ProgramFile = filepath.Join(filepath.Dir(path), scenario.ProgramFile)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario with strict field validation. It does
// not resolve ProgramFile or validate.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Program == nil && s.ProgramFile == "":
		return fmt.Errorf("one of program and program_file is required")
	case s.Program != nil && s.ProgramFile != "":
		return fmt.Errorf("program and program_file are mutually exclusive")
	}

	if s.ProgramFile != "" {
		if _, err := os.Stat(s.ProgramFile); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.ProgramFile)
		}
	}

	if s.Options.MaxRounds < 0 {
		return fmt.Errorf("options.max_rounds must be non-negative")
	}
	if _, err := schedule.Parse(s.Options.InitPath); err != nil {
		return fmt.Errorf("options.init_path: %w", err)
	}

	switch s.Expect.Outcome {
	case OutcomeOK, OutcomeFail:
	case "":
		return fmt.Errorf("expect.outcome is required")
	default:
		return fmt.Errorf("expect.outcome: unknown outcome %q (want ok or fail)", s.Expect.Outcome)
	}

	counts := []struct {
		field string
		n     *int
	}{{"runs", s.Expect.Runs}, {"rounds", s.Expect.Rounds}, {"tickets", s.Expect.Tickets}}
	for _, c := range counts {
		if c.n != nil && *c.n < 0 {
			return fmt.Errorf("expect.%s must be non-negative", c.field)
		}
	}

	return nil
}
