package core

// HeightController state machine
//
// The controller owns the decoder, the step generator, the display, and the
// two reference switches. It is uncalibrated until a homing jog reaches the
// home sensor; from then on it tracks the dial-selected target height,
// moving at most StepsPerTick steps per control-loop tick.
//
// Every method on the controller must run under exclusive access; the
// Bridge enforces that.

import "time"

// DebouncePolicy selects how rapid dial events are coalesced before the
// motor reacts. Exactly one discipline is active per build.
type DebouncePolicy uint8

const (
	// DebounceNone reacts to every tick immediately.
	DebounceNone DebouncePolicy = iota

	// DebounceTicks suppresses motor action for a fixed number of ticks
	// after the most recent dial event.
	DebounceTicks

	// DebounceDuration suppresses motor action while the time since the
	// most recent dial event is below a threshold.
	DebounceDuration
)

// ControllerConfig holds the construction parameters for a Controller.
// All numeric fields are in motor micro-steps unless noted.
type ControllerConfig struct {
	Encoder *QuadratureDecoder
	Motor   *StepGenerator
	Display Display

	// Home is the reference sensor sampled while homing and raised as an
	// interrupt to force recalibration. Read returns true when triggered.
	Home DigitalInput

	// Limit is the optional safety cutoff sensor (nil when the build has
	// no dedicated limit switch).
	Limit DigitalInput

	StepsPerMM   uint32
	StepsPerTick uint32
	MaxHeight    uint32

	// InitialTarget is the target height at power-up, before the operator
	// has touched the dial.
	InitialTarget uint32

	Debounce DebouncePolicy

	// DebounceTickCount is the cooldown length for DebounceTicks.
	DebounceTickCount uint32

	// DebounceWindow is the cooldown length for DebounceDuration.
	DebounceWindow time.Duration

	// Now supplies the monotonic clock for DebounceDuration. Defaults to
	// time.Now; tests inject a fake.
	Now func() time.Time

	// RecoveryOffset, when non-zero, is the number of steps driven away
	// from the limit switch after a trip instead of leaving the carriage
	// pinned against it.
	RecoveryOffset uint32
}

// Controller is the height-control state machine.
type Controller struct {
	encoder *QuadratureDecoder
	motor   *StepGenerator
	display Display
	home    DigitalInput
	limit   DigitalInput

	stepsPerMM     uint32
	stepsPerTick   uint32
	maxHeight      uint32
	debounce       DebouncePolicy
	debounceTicks  uint32
	debounceWindow time.Duration
	now            func() time.Time
	recoveryOffset uint32

	target     uint32
	current    uint32
	calibrated bool

	cooldown    uint32    // remaining suppressed ticks (DebounceTicks)
	lastEncoder time.Time // most recent dial event (DebounceDuration)

	greeted bool // welcome frame replaced by the first homing refresh
}

// NewController validates the configuration and shows the welcome frame.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Encoder == nil {
		return nil, configErr("Encoder", "required")
	}
	if cfg.Motor == nil {
		return nil, configErr("Motor", "required")
	}
	if cfg.Display == nil {
		return nil, configErr("Display", "required")
	}
	if cfg.Home == nil {
		return nil, configErr("Home", "input required")
	}
	if cfg.StepsPerMM == 0 {
		return nil, configErr("StepsPerMM", "must be positive")
	}
	if cfg.StepsPerTick == 0 {
		return nil, configErr("StepsPerTick", "must be positive")
	}
	if cfg.MaxHeight == 0 {
		return nil, configErr("MaxHeight", "must be positive")
	}
	if cfg.InitialTarget > cfg.MaxHeight {
		return nil, configErr("InitialTarget", "exceeds MaxHeight")
	}
	switch cfg.Debounce {
	case DebounceNone:
	case DebounceTicks:
		if cfg.DebounceTickCount == 0 {
			return nil, configErr("DebounceTickCount", "must be positive")
		}
	case DebounceDuration:
		if cfg.DebounceWindow <= 0 {
			return nil, configErr("DebounceWindow", "must be positive")
		}
	default:
		return nil, configErr("Debounce", "unknown policy")
	}

	c := &Controller{
		encoder:        cfg.Encoder,
		motor:          cfg.Motor,
		display:        cfg.Display,
		home:           cfg.Home,
		limit:          cfg.Limit,
		stepsPerMM:     cfg.StepsPerMM,
		stepsPerTick:   cfg.StepsPerTick,
		maxHeight:      cfg.MaxHeight,
		debounce:       cfg.Debounce,
		debounceTicks:  cfg.DebounceTickCount,
		debounceWindow: cfg.DebounceWindow,
		now:            cfg.Now,
		recoveryOffset: cfg.RecoveryOffset,
		target:         cfg.InitialTarget,
	}
	if c.now == nil {
		c.now = time.Now
	}

	if err := c.display.Update(WelcomeFrame()); err != nil {
		return nil, &DisplayFault{Err: err}
	}

	return c, nil
}

// Calibrated reports whether the absolute position is known.
func (c *Controller) Calibrated() bool { return c.calibrated }

// CurrentHeight returns the calibrated position in steps, if known.
func (c *Controller) CurrentHeight() (uint32, bool) {
	return c.current, c.calibrated
}

// TargetHeight returns the dial-selected target in steps.
func (c *Controller) TargetHeight() uint32 { return c.target }

// Tick runs one control-loop iteration: a homing jog while uncalibrated,
// otherwise at most StepsPerTick steps toward the target.
func (c *Controller) Tick() error {
	if !c.calibrated {
		return c.homeStep()
	}

	if c.current == c.target {
		return nil
	}
	if c.motorSuppressed() {
		return nil
	}

	steps := c.stepsPerTick
	if c.current < c.target {
		// Clamp to the remaining distance so oversized StepsPerTick
		// settles on the target instead of oscillating around it.
		if remaining := c.target - c.current; steps > remaining {
			steps = remaining
		}
		if err := c.motor.Rotate(steps, DirClockwise); err != nil {
			return err
		}
		c.current += steps
	} else {
		if remaining := c.current - c.target; steps > remaining {
			steps = remaining
		}
		if err := c.motor.Rotate(steps, DirCounterClockwise); err != nil {
			return err
		}
		c.current -= steps
	}

	return nil
}

// homeStep jogs toward the home reference and finalizes calibration once
// the sensor reports triggered. No timeout: the physical stop is the
// safety mechanism.
func (c *Controller) homeStep() error {
	if err := c.motor.Rotate(c.stepsPerTick, DirCounterClockwise); err != nil {
		return err
	}

	triggered, err := c.home.Read()
	if err != nil {
		return ioFault(RoleHome, err)
	}
	if !triggered {
		if !c.greeted {
			// Replace the welcome frame with the calibration notice.
			// Folded into the homing path so a tick never updates the
			// display more than once.
			c.greeted = true
			return c.refreshDisplay()
		}
		return nil
	}

	c.greeted = true
	c.current = 0
	c.calibrated = true
	DebugPrintln("homing complete, target=" + utoa(c.target))
	return c.refreshDisplay()
}

// motorSuppressed applies the debounce discipline to the stepping
// side-effect. Target updates are never suppressed.
func (c *Controller) motorSuppressed() bool {
	switch c.debounce {
	case DebounceTicks:
		if c.cooldown > 0 {
			c.cooldown--
			return true
		}
	case DebounceDuration:
		if c.now().Sub(c.lastEncoder) < c.debounceWindow {
			return true
		}
	}
	return false
}

func (c *Controller) armCooldown() {
	switch c.debounce {
	case DebounceTicks:
		c.cooldown = c.debounceTicks
	case DebounceDuration:
		c.lastEncoder = c.now()
	}
}

// HandleEncoderEdge decodes one dial edge and adjusts the target height.
// Clockwise raises the target one millimeter, counter-clockwise lowers it;
// both saturate rather than wrap. Mid-detent edges change nothing.
func (c *Controller) HandleEncoderEdge() error {
	rotation, err := c.encoder.Update()
	if err != nil {
		return err
	}

	switch rotation {
	case RotationClockwise:
		if c.maxHeight-c.target < c.stepsPerMM {
			c.target = c.maxHeight
		} else {
			c.target += c.stepsPerMM
		}
	case RotationCounterClockwise:
		if c.target < c.stepsPerMM {
			c.target = 0
		} else {
			c.target -= c.stepsPerMM
		}
	default:
		return nil
	}

	c.armCooldown()
	return c.refreshDisplay()
}

// HandleHomeEdge forces recalibration: the absolute position is discarded
// and the next ticks re-run the homing jog.
func (c *Controller) HandleHomeEdge() error {
	c.calibrated = false
	DebugPrintln("home switch: forcing recalibration")
	return c.refreshDisplay()
}

// HandleLimitEdge is the safety cutoff: the carriage is declared to be at
// the limit, the target collapses to the safe position, and, when a
// recovery offset is configured, the carriage immediately backs off the
// switch by that many steps.
func (c *Controller) HandleLimitEdge() error {
	c.calibrated = true
	c.current = 0
	c.target = 0
	DebugPrintln("limit switch tripped")

	var moveErr error
	if c.recoveryOffset > 0 {
		if moveErr = c.motor.Rotate(c.recoveryOffset, DirClockwise); moveErr == nil {
			c.current = c.recoveryOffset
			c.target = c.recoveryOffset
		}
	}

	// The screen must show the collapsed position even when the recovery
	// move fails; the motor fault stays the primary error.
	if err := c.refreshDisplay(); err != nil && moveErr == nil {
		moveErr = err
	}
	return moveErr
}

// refreshDisplay shows the frame matching the current state: the target
// height while calibrated, the calibration notice otherwise.
func (c *Controller) refreshDisplay() error {
	var frame Frame
	if c.calibrated {
		frame = HeightFrame(c.target / c.stepsPerMM)
	} else {
		frame = CalibratingFrame()
	}
	if err := c.display.Update(frame); err != nil {
		return &DisplayFault{Err: err}
	}
	return nil
}

// StatusLine renders one telemetry line for the host monitor.
// Format: "state=<tracking|homing> target=<steps> current=<steps>".
// current is omitted while uncalibrated.
func (c *Controller) StatusLine() string {
	if !c.calibrated {
		return "state=homing target=" + utoa(c.target)
	}
	return "state=tracking target=" + utoa(c.target) +
		" current=" + utoa(c.current)
}
