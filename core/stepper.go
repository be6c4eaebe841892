package core

// Step pulse generation and motor driver line management
// Modeled on A4988/DRV8825 style drivers: step/dir/enable plus
// two or three microstep mode-select lines.

import "time"

// Direction of a pulse train as seen from the motor shaft
type Direction uint8

const (
	DirClockwise Direction = iota
	DirCounterClockwise
)

func (d Direction) String() string {
	if d == DirClockwise {
		return "cw"
	}
	return "ccw"
}

// MicrostepMode is the driver's microstep resolution level
type MicrostepMode uint8

const (
	ModeFull MicrostepMode = iota
	ModeHalf
	ModeQuarter
	ModeEighth
	ModeSixteenth
)

func (m MicrostepMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeHalf:
		return "half"
	case ModeQuarter:
		return "quarter"
	case ModeEighth:
		return "eighth"
	case ModeSixteenth:
		return "sixteenth"
	}
	return "unknown"
}

// modeTable maps each MicrostepMode to its mode-select line levels.
// Builds with only two mode lines use the first two columns and are
// limited to full/half/quarter.
var modeTable = [...][3]bool{
	ModeFull:      {false, false, false},
	ModeHalf:      {true, false, false},
	ModeQuarter:   {false, true, false},
	ModeEighth:    {true, true, false},
	ModeSixteenth: {true, true, true},
}

// PulseBackend generates the physical step pulse train. The default is
// synchronous GPIO toggling with busy waits; platforms with hardware
// assist (PIO on RP2040) provide their own implementation.
type PulseBackend interface {
	// Pulse emits exactly steps pulses on the step line and returns once
	// the train is complete. Direction and enable are already set.
	Pulse(steps uint32) error
}

// StepGeneratorConfig holds the construction parameters for a StepGenerator.
// All fields are fixed after construction.
type StepGeneratorConfig struct {
	Step   DigitalOutput
	Dir    DigitalOutput
	Enable DigitalOutput // active-low driver enable

	// ModeLines are the 2 or 3 microstep mode-select outputs, in order.
	ModeLines []DigitalOutput

	Mode MicrostepMode

	// PulseWidth is the hold time for each half of a step pulse.
	PulseWidth time.Duration

	// Sleep is the wait primitive for pulse timing. Defaults to time.Sleep,
	// which must not run with interrupts masked: firmware targets inject a
	// masking-safe busy-wait, tests inject a no-op.
	Sleep func(time.Duration)

	// Backend overrides GPIO pulse generation when non-nil.
	Backend PulseBackend
}

// StepGenerator drives the motor driver's control lines and emits bounded
// step pulse trains. Pulses are synchronous: Rotate blocks its caller for
// steps x 2 x PulseWidth, so callers bound steps per invocation.
type StepGenerator struct {
	step      DigitalOutput
	dir       DigitalOutput
	enable    DigitalOutput
	modeLines []DigitalOutput

	pulseWidth time.Duration
	sleep      func(time.Duration)
	backend    PulseBackend

	enabled bool
}

// NewStepGenerator validates the configuration, writes the mode-select
// lines, and parks the driver disabled.
func NewStepGenerator(cfg StepGeneratorConfig) (*StepGenerator, error) {
	if cfg.Step == nil {
		return nil, configErr("Step", "output required")
	}
	if cfg.Dir == nil {
		return nil, configErr("Dir", "output required")
	}
	if cfg.Enable == nil {
		return nil, configErr("Enable", "output required")
	}
	if n := len(cfg.ModeLines); n < 2 || n > 3 {
		return nil, configErr("ModeLines", "need 2 or 3 mode-select outputs")
	}
	if cfg.PulseWidth <= 0 {
		return nil, configErr("PulseWidth", "must be positive")
	}

	s := &StepGenerator{
		step:       cfg.Step,
		dir:        cfg.Dir,
		enable:     cfg.Enable,
		modeLines:  cfg.ModeLines,
		pulseWidth: cfg.PulseWidth,
		sleep:      cfg.Sleep,
		backend:    cfg.Backend,
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}

	if err := s.SetMode(cfg.Mode); err != nil {
		return nil, err
	}
	if err := s.Disable(); err != nil {
		return nil, err
	}

	return s, nil
}

// SetMode writes the mode-select lines for the given microstep mode.
// Idempotent and independent of motor movement.
func (s *StepGenerator) SetMode(mode MicrostepMode) error {
	if int(mode) >= len(modeTable) {
		return configErr("Mode", "unknown microstep mode")
	}
	if len(s.modeLines) == 2 && mode > ModeQuarter {
		return configErr("Mode", mode.String()+" needs a third mode line")
	}

	levels := modeTable[mode]
	for i, line := range s.modeLines {
		if err := line.Write(levels[i]); err != nil {
			return ioFault(RoleMode1+PinRole(i), err)
		}
	}
	return nil
}

// Enable drives the active-low enable line to power the motor coils.
func (s *StepGenerator) Enable() error {
	if err := s.enable.Write(false); err != nil {
		return ioFault(RoleEnable, err)
	}
	s.enabled = true
	return nil
}

// Disable releases the motor coils.
func (s *StepGenerator) Disable() error {
	if err := s.enable.Write(true); err != nil {
		return ioFault(RoleEnable, err)
	}
	s.enabled = false
	return nil
}

// IsEnabled reports the tracked driver enable state.
func (s *StepGenerator) IsEnabled() bool {
	return s.enabled
}

// Rotate sets the direction line and emits steps pulses. If the driver was
// disabled on entry it is enabled for the train and disabled again after;
// if it was already enabled it is left enabled. Any output-write failure
// aborts the remaining pulses and reports the failing line.
func (s *StepGenerator) Rotate(steps uint32, dir Direction) error {
	if steps == 0 {
		return nil
	}

	if err := s.dir.Write(dir == DirClockwise); err != nil {
		return ioFault(RoleDir, err)
	}

	wasEnabled := s.enabled
	if !wasEnabled {
		if err := s.Enable(); err != nil {
			return err
		}
	}

	err := s.pulse(steps)

	if !wasEnabled {
		if derr := s.Disable(); err == nil {
			err = derr
		}
	}

	return err
}

func (s *StepGenerator) pulse(steps uint32) error {
	if s.backend != nil {
		return s.backend.Pulse(steps)
	}

	for i := uint32(0); i < steps; i++ {
		if err := s.step.Write(true); err != nil {
			return ioFault(RoleStep, err)
		}
		s.sleep(s.pulseWidth)
		if err := s.step.Write(false); err != nil {
			return ioFault(RoleStep, err)
		}
		s.sleep(s.pulseWidth)
	}
	return nil
}
