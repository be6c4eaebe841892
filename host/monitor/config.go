package monitor

import (
	"errors"
	"math"

	"gopkg.in/yaml.v3"
)

// Config is the monitor's YAML configuration.
type Config struct {
	// Device is the serial device the carriage firmware is attached to.
	Device string `yaml:"device"`

	Baud int `yaml:"baud"`

	// StepsPerMM must match the firmware build so heights convert to
	// millimeters correctly.
	StepsPerMM uint32 `yaml:"steps_per_mm"`
}

// LoadConfig parses a YAML configuration, fills in defaults, and validates.
func LoadConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.StepsPerMM == 0 {
		c.StepsPerMM = 200
	}
}

// OverrideStepsPerMM applies a command-line override. The firmware does
// its step arithmetic in 32 bits, so wider values are rejected instead
// of silently truncated.
func (c *Config) OverrideStepsPerMM(v uint64) error {
	if v == 0 || v > math.MaxUint32 {
		return errors.New("monitor config: steps_per_mm out of range")
	}
	c.StepsPerMM = uint32(v)
	return nil
}

func (c *Config) validate() error {
	if c.Device == "" {
		return errors.New("monitor config: device is required")
	}
	if c.Baud < 0 {
		return errors.New("monitor config: baud must be positive")
	}
	return nil
}
