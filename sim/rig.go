package sim

// The rig stands in for the interrupt layer: it owns the bridge, feeds it
// switch edges and encoder detent waveforms exactly as EXTI would, and
// advances a virtual clock so duration-based debounce is deterministic.

import (
	"time"

	"liftmill/core"
)

// FrameRecorder is a core.Display that keeps every frame shown.
type FrameRecorder struct {
	Frames []core.Frame
}

func (d *FrameRecorder) Update(frame core.Frame) error {
	d.Frames = append(d.Frames, frame)
	return nil
}

// Last returns the most recent frame, if any.
func (d *FrameRecorder) Last() (core.Frame, bool) {
	if len(d.Frames) == 0 {
		return core.Frame{}, false
	}
	return d.Frames[len(d.Frames)-1], true
}

// Result summarizes a finished run.
type Result struct {
	Calibrated       bool
	TargetSteps      uint32
	CurrentSteps     uint32
	TicksToCalibrate int // -1 when homing never completed
	CarriagePosition int64
	FramesShown      int
}

// Rig is a fully wired simulated machine.
type Rig struct {
	Bridge   *core.Bridge
	Carriage *Carriage
	Display  *FrameRecorder

	EncoderA *Pin
	EncoderB *Pin

	scenario   *Scenario
	now        time.Time
	tickPeriod time.Duration
}

// NewRig builds the controller against simulated pins per the scenario.
func NewRig(sc *Scenario) (*Rig, error) {
	mode, err := sc.mode()
	if err != nil {
		return nil, err
	}

	r := &Rig{
		Display:  &FrameRecorder{},
		EncoderA: NewPin(),
		EncoderB: NewPin(),
		scenario: sc,
		now:      time.Unix(0, 0),
	}

	step, dir, enable := NewPin(), NewPin(), NewPin()
	modeLines := []core.DigitalOutput{NewPin(), NewPin(), NewPin()}
	home := NewPin()

	r.Carriage = NewCarriage(step, dir, home,
		int64(sc.StartPositionMM)*int64(sc.StepsPerMM))

	motor, err := core.NewStepGenerator(core.StepGeneratorConfig{
		Step:       step,
		Dir:        dir,
		Enable:     enable,
		ModeLines:  modeLines,
		Mode:       mode,
		PulseWidth: sc.pulseWidth(),
		Sleep:      func(time.Duration) {}, // simulated time, no real waits
	})
	if err != nil {
		return nil, err
	}

	// One tick spends at most StepsPerTick full pulse cycles
	r.tickPeriod = 2 * sc.pulseWidth() * time.Duration(sc.StepsPerTick)

	ctrl, err := core.NewController(core.ControllerConfig{
		Encoder:           core.NewQuadratureDecoder(r.EncoderA, r.EncoderB),
		Motor:             motor,
		Display:           r.Display,
		Home:              home,
		StepsPerMM:        sc.StepsPerMM,
		StepsPerTick:      sc.StepsPerTick,
		MaxHeight:         sc.MaxHeightMM * sc.StepsPerMM,
		Debounce:          sc.debouncePolicy(),
		DebounceTickCount: sc.Debounce.Ticks,
		DebounceWindow:    time.Duration(sc.Debounce.WindowMS) * time.Millisecond,
		Now:               func() time.Time { return r.now },
		RecoveryOffset:    sc.RecoveryOffset,
	})
	if err != nil {
		return nil, err
	}

	r.Bridge = core.NewBridge(ctrl)
	return r, nil
}

// Turn feeds whole dial detents into the bridge: both phase-A edges per
// detent, with phase B held at the level that encodes the direction.
func (r *Rig) Turn(detents int) error {
	ccw := detents < 0
	if ccw {
		detents = -detents
	}
	for i := 0; i < detents; i++ {
		r.EncoderA.Set(true)
		r.EncoderB.Set(ccw)
		if err := r.Bridge.HandleEncoderEdge(); err != nil {
			return err
		}
		r.EncoderA.Set(false)
		if err := r.Bridge.HandleEncoderEdge(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one control-loop tick and advances the virtual clock.
func (r *Rig) Step() error {
	err := r.Bridge.HandleTick()
	r.now = r.now.Add(r.tickPeriod)
	return err
}

// Run plays the whole scenario timeline.
func (r *Rig) Run() (*Result, error) {
	ticksToCalibrate := -1

	for tick := 0; tick < r.scenario.RunTicks; tick++ {
		for _, ev := range r.scenario.Events {
			if ev.AtTick != tick {
				continue
			}
			if ev.Turns != 0 {
				if err := r.Turn(ev.Turns); err != nil {
					return nil, err
				}
			}
			if ev.PressHome {
				if err := r.Bridge.HandleHomeEdge(); err != nil {
					return nil, err
				}
			}
			if ev.TripLimit {
				if err := r.Bridge.HandleLimitEdge(); err != nil {
					return nil, err
				}
			}
		}

		if err := r.Step(); err != nil {
			return nil, err
		}

		if ticksToCalibrate < 0 && r.Bridge.Controller().Calibrated() {
			ticksToCalibrate = tick + 1
		}
	}

	ctrl := r.Bridge.Controller()
	current, calibrated := ctrl.CurrentHeight()
	return &Result{
		Calibrated:       calibrated,
		TargetSteps:      ctrl.TargetHeight(),
		CurrentSteps:     current,
		TicksToCalibrate: ticksToCalibrate,
		CarriagePosition: r.Carriage.Position(),
		FramesShown:      len(r.Display.Frames),
	}, nil
}
