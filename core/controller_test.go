package core

import (
	"errors"
	"testing"
	"time"
)

// fakeDisplay is a test implementation of Display
type fakeDisplay struct {
	frames []Frame
	err    error
}

func (d *fakeDisplay) Update(frame Frame) error {
	if d.err != nil {
		return d.err
	}
	d.frames = append(d.frames, frame)
	return nil
}

func (d *fakeDisplay) last() Frame {
	if len(d.frames) == 0 {
		return Frame{Kind: FrameKind(255)}
	}
	return d.frames[len(d.frames)-1]
}

// rig wires a controller to fake pins for testing
type rig struct {
	ctrl *Controller
	pins *motorPins
	encA *fakeInput
	encB *fakeInput
	home *fakeInput
	disp *fakeDisplay
}

func newRig(t *testing.T, mutate func(*ControllerConfig)) *rig {
	t.Helper()

	motor, pins := newTestMotor(t, ModeFull, 3)
	r := &rig{
		pins: pins,
		encA: &fakeInput{},
		encB: &fakeInput{},
		home: &fakeInput{},
		disp: &fakeDisplay{},
	}

	cfg := ControllerConfig{
		Encoder:      NewQuadratureDecoder(r.encA, r.encB),
		Motor:        motor,
		Display:      r.disp,
		Home:         r.home,
		StepsPerMM:   200,
		StepsPerTick: 1,
		MaxHeight:    9000, // 45mm
	}
	if mutate != nil {
		mutate(&cfg)
	}

	ctrl, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	r.ctrl = ctrl
	return r
}

// calibrate drives one homing tick with the home sensor triggered
func (r *rig) calibrate(t *testing.T) {
	t.Helper()
	r.home.level = true
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("homing tick failed: %v", err)
	}
	r.home.level = false
	if !r.ctrl.Calibrated() {
		t.Fatal("controller not calibrated after triggered homing tick")
	}
}

// click simulates one full encoder detent (leading and trailing A edges)
func (r *rig) click(t *testing.T, rot Rotation) {
	t.Helper()
	r.encA.level = true
	r.encB.level = rot == RotationCounterClockwise
	if err := r.ctrl.HandleEncoderEdge(); err != nil {
		t.Fatalf("leading encoder edge failed: %v", err)
	}
	r.encA.level = false
	if err := r.ctrl.HandleEncoderEdge(); err != nil {
		t.Fatalf("trailing encoder edge failed: %v", err)
	}
}

func TestNewControllerShowsWelcome(t *testing.T) {
	r := newRig(t, nil)
	if len(r.disp.frames) != 1 || r.disp.frames[0].Kind != FrameWelcome {
		t.Errorf("frames after construction = %v, want one welcome frame", r.disp.frames)
	}
	if r.ctrl.Calibrated() {
		t.Error("controller calibrated at construction")
	}
}

func TestNewControllerValidation(t *testing.T) {
	motor, _ := newTestMotor(t, ModeFull, 3)
	valid := ControllerConfig{
		Encoder:      NewQuadratureDecoder(&fakeInput{}, &fakeInput{}),
		Motor:        motor,
		Display:      &fakeDisplay{},
		Home:         &fakeInput{},
		StepsPerMM:   200,
		StepsPerTick: 1,
		MaxHeight:    9000,
	}

	tests := []struct {
		name   string
		mutate func(*ControllerConfig)
	}{
		{"nil encoder", func(c *ControllerConfig) { c.Encoder = nil }},
		{"nil motor", func(c *ControllerConfig) { c.Motor = nil }},
		{"nil display", func(c *ControllerConfig) { c.Display = nil }},
		{"nil home", func(c *ControllerConfig) { c.Home = nil }},
		{"zero steps per mm", func(c *ControllerConfig) { c.StepsPerMM = 0 }},
		{"zero steps per tick", func(c *ControllerConfig) { c.StepsPerTick = 0 }},
		{"zero max height", func(c *ControllerConfig) { c.MaxHeight = 0 }},
		{"initial target past max", func(c *ControllerConfig) { c.InitialTarget = 9001 }},
		{"tick debounce without count", func(c *ControllerConfig) { c.Debounce = DebounceTicks }},
		{"duration debounce without window", func(c *ControllerConfig) { c.Debounce = DebounceDuration }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid
			test.mutate(&cfg)
			_, err := NewController(cfg)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("got %v, want ConfigurationError", err)
			}
		})
	}
}

func TestHomingJogsUntilSensorTriggers(t *testing.T) {
	r := newRig(t, nil)

	// Sensor silent: every tick jogs one step toward home, stays uncalibrated
	for i := 0; i < 5; i++ {
		if err := r.ctrl.Tick(); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
		if r.ctrl.Calibrated() {
			t.Fatalf("calibrated after %d ticks with sensor silent", i+1)
		}
	}
	if got := r.pins.step.rises(); got != 5 {
		t.Errorf("emitted %d homing pulses, want 5", got)
	}
	if r.pins.dir.level {
		t.Error("homing jog set dir high, want counter-clockwise (low)")
	}
	if r.disp.last().Kind != FrameCalibrating {
		t.Errorf("display shows %v during homing, want calibrating", r.disp.last().Kind)
	}

	// Sensor triggers: calibration completes inside the tick
	r.home.level = true
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("triggering tick failed: %v", err)
	}
	current, ok := r.ctrl.CurrentHeight()
	if !ok || current != 0 {
		t.Errorf("current = %d,%v after homing, want 0,true", current, ok)
	}
	if r.disp.last().Kind != FrameHeight {
		t.Errorf("display shows %v after homing, want height", r.disp.last().Kind)
	}
}

// The display contract allows at most one Update per Tick. The tightest
// case is the very first tick with the carriage already on the home
// sensor: the welcome replacement and the homing completion must not
// both refresh.
func TestTickUpdatesDisplayAtMostOnce(t *testing.T) {
	r := newRig(t, nil)
	r.home.level = true // powered up resting on the hard stop

	before := len(r.disp.frames)
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if got := len(r.disp.frames) - before; got != 1 {
		t.Errorf("display updated %d times in one tick, want 1", got)
	}
	if f := r.disp.last(); f.Kind != FrameHeight {
		t.Errorf("display shows %v after instant homing, want height", f.Kind)
	}
	if !r.ctrl.Calibrated() {
		t.Error("not calibrated after triggered first tick")
	}
}

func TestHomeReadFaultKeepsStateUnchanged(t *testing.T) {
	r := newRig(t, nil)
	readErr := errors.New("pin read failed")
	r.home.err = readErr

	err := r.ctrl.Tick()
	var fault *IoFault
	if !errors.As(err, &fault) || fault.Role != RoleHome {
		t.Fatalf("got %v, want IoFault on home", err)
	}
	if r.ctrl.Calibrated() {
		t.Error("calibrated despite home read fault")
	}
}

// The worked example: 200 steps/mm, 45mm max, three clockwise clicks select
// 3mm, and exactly 600 single-step ticks converge on the target.
func TestTrackingConvergenceExample(t *testing.T) {
	r := newRig(t, nil)

	for i := 0; i < 3; i++ {
		r.click(t, RotationClockwise)
	}
	if got := r.ctrl.TargetHeight(); got != 600 {
		t.Fatalf("target = %d after 3 clicks, want 600", got)
	}

	r.calibrate(t)
	homingPulses := r.pins.step.rises()

	for i := 0; i < 600; i++ {
		if err := r.ctrl.Tick(); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
	}
	current, _ := r.ctrl.CurrentHeight()
	if current != 600 {
		t.Errorf("current = %d after 600 ticks, want 600", current)
	}
	if got := r.pins.step.rises() - homingPulses; got != 600 {
		t.Errorf("emitted %d tracking pulses, want 600", got)
	}

	// Idempotence: at target, a tick issues nothing and changes nothing
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("idle tick failed: %v", err)
	}
	if got := r.pins.step.rises() - homingPulses; got != 600 {
		t.Errorf("idle tick emitted pulses (total %d)", got)
	}
}

func TestTargetSaturation(t *testing.T) {
	t.Run("clamps at max height", func(t *testing.T) {
		r := newRig(t, nil)
		for i := 0; i < 50; i++ { // 50mm of clicks on a 45mm machine
			r.click(t, RotationClockwise)
		}
		if got := r.ctrl.TargetHeight(); got != 9000 {
			t.Errorf("target = %d, want exactly max height 9000", got)
		}
	})

	t.Run("floors at zero", func(t *testing.T) {
		r := newRig(t, nil)
		r.click(t, RotationClockwise)
		for i := 0; i < 5; i++ {
			r.click(t, RotationCounterClockwise)
		}
		if got := r.ctrl.TargetHeight(); got != 0 {
			t.Errorf("target = %d, want 0", got)
		}
	})
}

func TestMidDetentEdgeChangesNothing(t *testing.T) {
	r := newRig(t, nil)
	framesBefore := len(r.disp.frames)

	// Leading edge only: direction latched but not yet emitted
	r.encA.level = true
	if err := r.ctrl.HandleEncoderEdge(); err != nil {
		t.Fatalf("HandleEncoderEdge failed: %v", err)
	}
	if got := r.ctrl.TargetHeight(); got != 0 {
		t.Errorf("target = %d after mid-detent edge, want 0", got)
	}
	if len(r.disp.frames) != framesBefore {
		t.Error("display refreshed for a mid-detent edge")
	}
}

func TestPerTickStepsClampToRemainingDistance(t *testing.T) {
	r := newRig(t, func(cfg *ControllerConfig) {
		cfg.StepsPerTick = 7
	})
	r.calibrate(t)
	homingPulses := r.pins.step.rises()

	// One CW click selects 200 steps
	r.click(t, RotationClockwise)

	// ceil(200/7) = 29 ticks, the last one clamped to 4 steps
	for i := 0; i < 29; i++ {
		if err := r.ctrl.Tick(); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
	}
	current, _ := r.ctrl.CurrentHeight()
	if current != 200 {
		t.Errorf("current = %d, want exactly 200 (no overshoot)", current)
	}
	if got := r.pins.step.rises() - homingPulses; got != 200 {
		t.Errorf("emitted %d pulses, want 200", got)
	}
}

func TestTrackingMovesDownward(t *testing.T) {
	r := newRig(t, func(cfg *ControllerConfig) {
		cfg.InitialTarget = 400
	})
	r.calibrate(t)

	// Converge upward to 400 first
	for i := 0; i < 400; i++ {
		if err := r.ctrl.Tick(); err != nil {
			t.Fatalf("tick failed: %v", err)
		}
	}

	// Lower the target one millimeter and watch direction flip
	r.click(t, RotationCounterClockwise)
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if r.pins.dir.level {
		t.Error("dir line high while moving down, want counter-clockwise (low)")
	}
	current, _ := r.ctrl.CurrentHeight()
	if current != 399 {
		t.Errorf("current = %d, want 399", current)
	}
}

func TestHomeEdgeForcesRecalibration(t *testing.T) {
	r := newRig(t, nil)
	r.calibrate(t)

	if err := r.ctrl.HandleHomeEdge(); err != nil {
		t.Fatalf("HandleHomeEdge failed: %v", err)
	}
	if r.ctrl.Calibrated() {
		t.Error("still calibrated after home edge")
	}
	if r.disp.last().Kind != FrameCalibrating {
		t.Errorf("display shows %v, want calibrating", r.disp.last().Kind)
	}

	// Next ticks re-run the homing jog
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if r.pins.dir.level {
		t.Error("re-homing jog set dir high, want counter-clockwise (low)")
	}
}

func TestLimitEdgeCollapsesToSafeValue(t *testing.T) {
	t.Run("no recovery offset", func(t *testing.T) {
		r := newRig(t, nil)
		r.calibrate(t)
		r.click(t, RotationClockwise)

		if err := r.ctrl.HandleLimitEdge(); err != nil {
			t.Fatalf("HandleLimitEdge failed: %v", err)
		}
		current, ok := r.ctrl.CurrentHeight()
		if !ok || current != 0 {
			t.Errorf("current = %d,%v, want 0,true", current, ok)
		}
		if got := r.ctrl.TargetHeight(); got != 0 {
			t.Errorf("target = %d, want 0", got)
		}
		if f := r.disp.last(); f.Kind != FrameHeight || f.HeightMM != 0 {
			t.Errorf("display shows %v, want height 0", f)
		}
	})

	t.Run("with recovery offset", func(t *testing.T) {
		r := newRig(t, func(cfg *ControllerConfig) {
			cfg.RecoveryOffset = 20
		})
		r.calibrate(t)
		pulsesBefore := r.pins.step.rises()

		if err := r.ctrl.HandleLimitEdge(); err != nil {
			t.Fatalf("HandleLimitEdge failed: %v", err)
		}
		if got := r.pins.step.rises() - pulsesBefore; got != 20 {
			t.Errorf("recovery move emitted %d pulses, want 20", got)
		}
		if !r.pins.dir.level {
			t.Error("recovery move dir low, want away from limit (high)")
		}
		current, _ := r.ctrl.CurrentHeight()
		if current != 20 || r.ctrl.TargetHeight() != 20 {
			t.Errorf("current/target = %d/%d, want 20/20",
				current, r.ctrl.TargetHeight())
		}

		// Recovered state is steady: next tick does nothing
		if err := r.ctrl.Tick(); err != nil {
			t.Fatalf("tick failed: %v", err)
		}
		if got := r.pins.step.rises() - pulsesBefore; got != 20 {
			t.Error("tick after recovery moved the motor")
		}
	})

	t.Run("failed recovery move still refreshes display", func(t *testing.T) {
		r := newRig(t, func(cfg *ControllerConfig) {
			cfg.RecoveryOffset = 20
		})
		r.calibrate(t)
		r.click(t, RotationClockwise)
		r.pins.step.err = errors.New("pin write failed")

		err := r.ctrl.HandleLimitEdge()
		var fault *IoFault
		if !errors.As(err, &fault) || fault.Role != RoleStep {
			t.Fatalf("got %v, want IoFault on step", err)
		}
		// The collapse to zero happened before the failed move and the
		// operator must see it, not the pre-trip height.
		if f := r.disp.last(); f.Kind != FrameHeight || f.HeightMM != 0 {
			t.Errorf("display shows %v, want height 0", f)
		}
		current, _ := r.ctrl.CurrentHeight()
		if current != 0 || r.ctrl.TargetHeight() != 0 {
			t.Errorf("current/target = %d/%d, want 0/0",
				current, r.ctrl.TargetHeight())
		}
	})
}

func TestDebounceTicksCoalescesBurst(t *testing.T) {
	r := newRig(t, func(cfg *ControllerConfig) {
		cfg.Debounce = DebounceTicks
		cfg.DebounceTickCount = 3
	})
	r.calibrate(t)
	pulsesBefore := r.pins.step.rises()

	// A burst of 4 clicks: target accumulates in full
	for i := 0; i < 4; i++ {
		r.click(t, RotationClockwise)
	}
	if got := r.ctrl.TargetHeight(); got != 800 {
		t.Fatalf("target = %d after burst, want 800 (never suppressed)", got)
	}

	// Cooldown window: 3 ticks with zero motor action
	for i := 0; i < 3; i++ {
		if err := r.ctrl.Tick(); err != nil {
			t.Fatalf("tick failed: %v", err)
		}
		if got := r.pins.step.rises() - pulsesBefore; got != 0 {
			t.Fatalf("motor moved during cooldown tick %d", i)
		}
	}

	// First tick after the window starts the coalesced move
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if got := r.pins.step.rises() - pulsesBefore; got != 1 {
		t.Errorf("emitted %d pulses after cooldown, want 1", got)
	}
}

func TestDebounceDurationCoalescesBurst(t *testing.T) {
	now := time.Unix(1000, 0)
	r := newRig(t, func(cfg *ControllerConfig) {
		cfg.Debounce = DebounceDuration
		cfg.DebounceWindow = 50 * time.Millisecond
		cfg.Now = func() time.Time { return now }
	})
	r.calibrate(t)
	pulsesBefore := r.pins.step.rises()

	r.click(t, RotationClockwise)
	r.click(t, RotationClockwise)
	if got := r.ctrl.TargetHeight(); got != 400 {
		t.Fatalf("target = %d, want 400", got)
	}

	// Inside the window: suppressed
	now = now.Add(20 * time.Millisecond)
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if got := r.pins.step.rises() - pulsesBefore; got != 0 {
		t.Error("motor moved inside the debounce window")
	}

	// Past the window: motor reacts
	now = now.Add(50 * time.Millisecond)
	if err := r.ctrl.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if got := r.pins.step.rises() - pulsesBefore; got != 1 {
		t.Errorf("emitted %d pulses past the window, want 1", got)
	}
}

func TestEncoderEdgeDisplayFaultStillUpdatesTarget(t *testing.T) {
	r := newRig(t, nil)
	r.disp.err = errors.New("bus stuck")

	r.encA.level = true
	if err := r.ctrl.HandleEncoderEdge(); err != nil {
		t.Fatalf("leading edge failed: %v", err)
	}
	r.encA.level = false
	err := r.ctrl.HandleEncoderEdge()

	var fault *DisplayFault
	if !errors.As(err, &fault) {
		t.Fatalf("got %v, want DisplayFault", err)
	}
	if got := r.ctrl.TargetHeight(); got != 200 {
		t.Errorf("target = %d despite display fault, want 200", got)
	}
}

func TestStatusLine(t *testing.T) {
	r := newRig(t, nil)
	if got := r.ctrl.StatusLine(); got != "state=homing target=0" {
		t.Errorf("status = %q", got)
	}

	r.click(t, RotationClockwise)
	r.calibrate(t)
	if got := r.ctrl.StatusLine(); got != "state=tracking target=200 current=0" {
		t.Errorf("status = %q", got)
	}
}
