package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/capture-relay/internal/binding"
	"github.com/roach88/capture-relay/internal/event"
)

// Scenario defines a relay test scenario: a sequence of steps followed by
// assertions on the consumer calls and the queue.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartMillis is the enqueue clock's starting point.
	// Defaults to DefaultStartMillis.
	StartMillis int64 `yaml:"start_millis,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and queue.
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultStartMillis is the enqueue clock start when a scenario sets none.
const DefaultStartMillis int64 = 1700000000000

// Step is one scenario step. Exactly one field is set.
type Step struct {
	// SMS delivers a single-part SMS-received signal.
	SMS *SMSStep `yaml:"sms,omitempty"`

	// Notification delivers a posted notification.
	Notification *NotificationStep `yaml:"notification,omitempty"`

	// Bind attaches the recording consumer for a category, or "all".
	Bind string `yaml:"bind,omitempty"`

	// Unbind clears a category's binding, or "all".
	Unbind string `yaml:"unbind,omitempty"`

	// Advance moves the enqueue clock forward (Go duration syntax).
	Advance string `yaml:"advance,omitempty"`

	// ConsumerFails makes the consumer reject (true) or accept (false) later
	// calls.
	ConsumerFails *bool `yaml:"consumer_fails,omitempty"`

	// Drain empties the queue and records what it returned.
	Drain bool `yaml:"drain,omitempty"`
}

// SMSStep is one SMS part. Absent sender or body become empty strings.
type SMSStep struct {
	Sender          *string `yaml:"sender"`
	Body            *string `yaml:"body"`
	TimestampMillis int64   `yaml:"timestamp_millis"`
}

// NotificationStep is one posted notification. Absent extras are not set.
type NotificationStep struct {
	SourceAppID string  `yaml:"source_app_id"`
	Title       *string `yaml:"title"`
	Text        *string `yaml:"text"`
	BigText     *string `yaml:"big_text"`
}

// Assertion validates the trace or the final queue.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Method is the consumer method (forwarded_contains, forwarded_count).
	Method string `yaml:"method,omitempty"`

	// Args are the expected call arguments (forwarded_contains).
	// Subset match: only specified fields are validated.
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of calls (forwarded_count).
	Count int `yaml:"count,omitempty"`

	// Records are the expected records, oldest first (queued, drained).
	Records []string `yaml:"records,omitempty"`
}

// Assertion type constants.
const (
	AssertForwardedContains = "forwarded_contains"
	AssertForwardedCount    = "forwarded_count"
	AssertQueued            = "queued"
	AssertDrained           = "drained"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
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
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	set := 0
	if step.SMS != nil {
		set++
	}
	if step.Notification != nil {
		set++
	}
	if step.Bind != "" {
		set++
		if err := validateCategory(step.Bind); err != nil {
			return err
		}
	}
	if step.Unbind != "" {
		set++
		if err := validateCategory(step.Unbind); err != nil {
			return err
		}
	}
	if step.Advance != "" {
		set++
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("advance must be non-negative")
		}
	}
	if step.ConsumerFails != nil {
		set++
	}
	if step.Drain {
		set++
	}

	if set != 1 {
		return fmt.Errorf("exactly one action is required, got %d", set)
	}
	return nil
}

func validateCategory(c string) error {
	if c == "all" {
		return nil
	}
	for _, known := range binding.Categories {
		if event.Category(c) == known {
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", c)
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertForwardedContains:
		if a.Method == "" {
			return fmt.Errorf("method is required for forwarded_contains")
		}
	case AssertForwardedCount:
		if a.Method == "" {
			return fmt.Errorf("method is required for forwarded_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for forwarded_count")
		}
	case AssertQueued, AssertDrained:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
