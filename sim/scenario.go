package sim

import (
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"liftmill/core"
)

// Scenario describes one simulated session: the machine configuration and
// a timeline of operator events.
type Scenario struct {
	StepsPerMM    uint32 `yaml:"steps_per_mm"`
	StepsPerTick  uint32 `yaml:"steps_per_tick"`
	MaxHeightMM   uint32 `yaml:"max_height_mm"`
	PulseWidthUS  uint32 `yaml:"pulse_width_us"`
	MicrostepMode string `yaml:"microstep_mode"`

	Debounce struct {
		Policy   string `yaml:"policy"` // none | ticks | duration
		Ticks    uint32 `yaml:"ticks"`
		WindowMS uint32 `yaml:"window_ms"`
	} `yaml:"debounce"`

	RecoveryOffset uint32 `yaml:"recovery_offset"`

	// StartPositionMM is the unknown power-up height of the carriage.
	StartPositionMM uint32 `yaml:"start_position_mm"`

	RunTicks int     `yaml:"run_ticks"`
	Events   []Event `yaml:"events"`
}

// Event is one operator action, applied just before the given tick.
type Event struct {
	AtTick    int  `yaml:"at_tick"`
	Turns     int  `yaml:"turns"` // dial detents: positive clockwise
	PressHome bool `yaml:"press_home"`
	TripLimit bool `yaml:"trip_limit"`
}

// LoadScenario parses a YAML scenario, fills in defaults, and validates.
func LoadScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	sc.applyDefaults()
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.StepsPerMM == 0 {
		sc.StepsPerMM = 200
	}
	if sc.StepsPerTick == 0 {
		sc.StepsPerTick = 1
	}
	if sc.MaxHeightMM == 0 {
		sc.MaxHeightMM = 45
	}
	if sc.PulseWidthUS == 0 {
		sc.PulseWidthUS = 1000
	}
	if sc.MicrostepMode == "" {
		sc.MicrostepMode = "full"
	}
	if sc.Debounce.Policy == "" {
		sc.Debounce.Policy = "none"
	}
	if sc.RunTicks == 0 {
		sc.RunTicks = 5000
	}
}

func (sc *Scenario) validate() error {
	if _, err := sc.mode(); err != nil {
		return err
	}
	switch sc.Debounce.Policy {
	case "none":
	case "ticks":
		if sc.Debounce.Ticks == 0 {
			return errors.New("scenario: debounce.ticks required for ticks policy")
		}
	case "duration":
		if sc.Debounce.WindowMS == 0 {
			return errors.New("scenario: debounce.window_ms required for duration policy")
		}
	default:
		return errors.New("scenario: unknown debounce policy " + sc.Debounce.Policy)
	}
	if sc.StartPositionMM > sc.MaxHeightMM {
		return errors.New("scenario: start_position_mm above max_height_mm")
	}
	if sc.RunTicks < 0 {
		return errors.New("scenario: run_ticks must not be negative")
	}
	for _, ev := range sc.Events {
		if ev.AtTick < 0 || ev.AtTick >= sc.RunTicks {
			return errors.New("scenario: event at_tick outside the run")
		}
	}
	return nil
}

func (sc *Scenario) mode() (core.MicrostepMode, error) {
	switch sc.MicrostepMode {
	case "full":
		return core.ModeFull, nil
	case "half":
		return core.ModeHalf, nil
	case "quarter":
		return core.ModeQuarter, nil
	case "eighth":
		return core.ModeEighth, nil
	case "sixteenth":
		return core.ModeSixteenth, nil
	}
	return core.ModeFull, errors.New("scenario: unknown microstep mode " + sc.MicrostepMode)
}

func (sc *Scenario) debouncePolicy() core.DebouncePolicy {
	switch sc.Debounce.Policy {
	case "ticks":
		return core.DebounceTicks
	case "duration":
		return core.DebounceDuration
	}
	return core.DebounceNone
}

func (sc *Scenario) pulseWidth() time.Duration {
	return time.Duration(sc.PulseWidthUS) * time.Microsecond
}
