//go:build rp2040

package main

import (
	"machine"
	"time"

	"liftmill/core"
)

var (
	pinEncoderA = machine.GP10
	pinEncoderB = machine.GP11
	pinHome     = machine.GP12
	pinLimit    = machine.GP13

	pinStep   = machine.GP2
	pinDir    = machine.GP3
	pinEnable = machine.GP4
	pinMode1  = machine.GP5
	pinMode2  = machine.GP6
	pinMode3  = machine.GP7
)

const (
	stepsPerMM     = 200
	stepsPerTick   = 4
	maxHeightMM    = 45
	pulseWidth     = 250 * time.Microsecond
	debounceWindow = 30 * time.Millisecond
	recoverySteps  = 20
	statusInterval = 250
)

func main() {
	core.SetDebugWriter(func(s string) { println(s) })
	core.SetDebugEnabled(true)
	println("liftmill rp2040")

	for _, pin := range []machine.Pin{pinEncoderA, pinEncoderB, pinHome, pinLimit} {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	}
	for _, pin := range []machine.Pin{pinDir, pinEnable, pinMode1, pinMode2, pinMode3} {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	pulser, err := NewPIOPulser(0, 0, pinStep, pulseWidth)
	if err != nil {
		fatal(err)
	}

	motor, err := core.NewStepGenerator(core.StepGeneratorConfig{
		Step:       output{pinStep}, // unused while the PIO backend owns the pin
		Dir:        output{pinDir},
		Enable:     output{pinEnable},
		ModeLines:  []core.DigitalOutput{output{pinMode1}, output{pinMode2}, output{pinMode3}},
		Mode:       core.ModeHalf,
		PulseWidth: pulseWidth,
		Sleep:      busyWait,
		Backend:    pulser,
	})
	if err != nil {
		fatal(err)
	}

	ctrl, err := core.NewController(core.ControllerConfig{
		Encoder:        core.NewQuadratureDecoder(input{pinEncoderA}, input{pinEncoderB}),
		Motor:          motor,
		Display:        consoleDisplay{},
		Home:           activeLow{pinHome},
		Limit:          activeLow{pinLimit},
		StepsPerMM:     stepsPerMM,
		StepsPerTick:   stepsPerTick,
		MaxHeight:      maxHeightMM * stepsPerMM,
		Debounce:       core.DebounceDuration,
		DebounceWindow: debounceWindow,
		RecoveryOffset: recoverySteps,
	})
	if err != nil {
		fatal(err)
	}
	bridge := core.NewBridge(ctrl)

	pinEncoderA.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		_ = bridge.HandleEncoderEdge()
	})
	pinHome.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		_ = bridge.HandleHomeEdge()
	})
	pinLimit.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		_ = bridge.HandleLimitEdge()
	})

	tick := 0
	for {
		_ = bridge.HandleTick()
		tick++
		if tick%statusInterval == 0 {
			println(bridge.StatusLine())
		}
		time.Sleep(time.Millisecond)
	}
}

// consoleDisplay mirrors status frames to the USB serial console. The
// Pico build has no character LCD attached.
type consoleDisplay struct{}

func (consoleDisplay) Update(frame core.Frame) error {
	lines, err := core.RenderFrame(frame)
	if err != nil {
		return err
	}
	for _, line := range lines {
		println("[lcd] " + line)
	}
	return nil
}

func fatal(err error) {
	for {
		println("fatal: " + err.Error())
		time.Sleep(time.Second)
	}
}
