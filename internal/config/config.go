// Package config holds run configuration: which model, which integrator,
// step size, initial state and contact parameters, loaded from YAML with
// defaults filled in.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/armature-sim/armature/internal/contact"
)

const (
	DefaultDt       = 0.001
	DefaultDuration = 10.0
)

type Config struct {
	// Model names a catalog entry; ModelFile points at a YAML model
	// description instead. ModelFile wins when both are set.
	Model     string `yaml:"model"`
	ModelFile string `yaml:"model_file,omitempty"`

	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`

	// Q0 and V0 override the neutral initial state. Lengths must match
	// the model's position and velocity dimensions.
	Q0 []float64 `yaml:"q0,omitempty"`
	V0 []float64 `yaml:"v0,omitempty"`

	TerrainHeight float64             `yaml:"terrain_height"`
	Contact       contact.SoftParams  `yaml:"contact"`
	Limits        contact.LimitParams `yaml:"joint_limits"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "pendulum",
		Integrator: "semi-implicit-euler",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Contact:    contact.DefaultSoftParams(),
		Limits:     contact.DefaultLimitParams(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.Model == "" && c.ModelFile == "" {
		return fmt.Errorf("either model or model_file must be set")
	}
	return nil
}
