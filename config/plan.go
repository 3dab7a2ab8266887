package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/simon020286/go-flightplan/device"
)

// Default values applied when a plan leaves them out
const (
	DefaultDriver         = "minidrone"
	DefaultConnectTimeout = 30 * time.Second
	DefaultFinallyTimeout = 10 * time.Second
)

// PlanConfig represents a complete flight plan from YAML
type PlanConfig struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description,omitempty"`
	Device         DeviceConfig   `yaml:"device"`
	Setup          []ActionConfig `yaml:"setup,omitempty"`   // Run once after connect, no delay
	Steps          []StepConfig   `yaml:"steps"`             // The timed sequence
	Finally        []ActionConfig `yaml:"finally,omitempty"` // Run on abort or cancellation
	FinallyTimeout Duration       `yaml:"finally_timeout,omitempty"`
}

// DeviceConfig selects the driver that flies the plan
type DeviceConfig struct {
	Driver         string   `yaml:"driver"`
	Address        string   `yaml:"address,omitempty"`
	Port           string   `yaml:"port,omitempty"`
	ConnectTimeout Duration `yaml:"connect_timeout,omitempty"`
}

// StepConfig represents one timed step from YAML
type StepConfig struct {
	ID      string         `yaml:"id"`
	Delay   Duration       `yaml:"delay"`
	Timeout Duration       `yaml:"timeout,omitempty"`
	OnError string         `yaml:"on_error,omitempty"` // continue | abort
	Actions []ActionConfig `yaml:"actions"`
}

// ActionConfig is an action type plus its parameters.
// In YAML the type sits under the "action" key next to the parameters:
//
//	- action: log
//	  message: Landing commenced
type ActionConfig struct {
	Type   string
	Params map[string]any
}

// UnmarshalYAML splits the "action" key from the parameters
func (a *ActionConfig) UnmarshalYAML(node *yaml.Node) error {
	// Scalar shorthand: "- land"
	if node.Kind == yaml.ScalarNode {
		a.Type = node.Value
		a.Params = map[string]any{}
		return nil
	}

	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	t, ok := raw["action"].(string)
	if !ok || t == "" {
		return fmt.Errorf("line %d: action entry without 'action' type", node.Line)
	}
	delete(raw, "action")
	a.Type = t
	a.Params = raw
	return nil
}

// MarshalYAML writes the action back in its inline form
func (a ActionConfig) MarshalYAML() (any, error) {
	out := make(map[string]any, len(a.Params)+1)
	for k, v := range a.Params {
		out[k] = v
	}
	out["action"] = a.Type
	return out, nil
}

// Action is a shorthand constructor for ActionConfig
func Action(actionType string, params map[string]any) ActionConfig {
	if params == nil {
		params = map[string]any{}
	}
	return ActionConfig{Type: actionType, Params: params}
}

// Duration accepts Go duration strings ("5s", "1500ms") or plain integers
// in milliseconds
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var ms int64
		if err := node.Decode(&ms); err != nil {
			return err
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Parse decodes and validates a plan
func Parse(data []byte) (*PlanConfig, error) {
	return ParseNamed(data, "")
}

// ParseNamed is Parse with a fallback for plans without a name
func ParseNamed(data []byte, name string) (*PlanConfig, error) {
	var cfg PlanConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a plan file
func LoadFile(path string) (*PlanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (p *PlanConfig) applyDefaults() {
	if p.Device.Driver == "" {
		p.Device.Driver = DefaultDriver
	}
	if p.Device.ConnectTimeout == 0 {
		p.Device.ConnectTimeout = Duration(DefaultConnectTimeout)
	}
	if p.FinallyTimeout == 0 {
		p.FinallyTimeout = Duration(DefaultFinallyTimeout)
	}
	for i := range p.Steps {
		if p.Steps[i].ID == "" {
			p.Steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
	}
}

// DeviceConfig converts the plan's device section for device.Open
func (p *PlanConfig) DeviceConfig() device.Config {
	return device.Config{
		Driver:         p.Device.Driver,
		Address:        p.Device.Address,
		Port:           p.Device.Port,
		ConnectTimeout: p.Device.ConnectTimeout.Std(),
	}
}
