//go:build bluepill

package main

import (
	"device/arm"
	"machine"
	"time"

	"liftmill/core"
)

// Pin assignment of the original STM32F103 control board
var (
	pinEncoderA = machine.PB0
	pinEncoderB = machine.PB1
	pinHome     = machine.PA1
	pinLimit    = machine.PA2

	pinStep   = machine.PB6
	pinDir    = machine.PB7
	pinEnable = machine.PA10
	pinMode1  = machine.PA11
	pinMode2  = machine.PA12
	pinMode3  = machine.PB5

	pinLCDRS = machine.PB12
	pinLCDEN = machine.PB13
	pinLCDD4 = machine.PB14
	pinLCDD5 = machine.PB15
	pinLCDD6 = machine.PA8
	pinLCDD7 = machine.PA9
)

const (
	stepsPerMM     = 200
	stepsPerTick   = 1
	maxHeightMM    = 45
	pulseWidth     = time.Millisecond
	debounceTicks  = 25
	recoverySteps  = 20
	statusInterval = 250 // ticks between telemetry lines
)

func main() {
	core.SetDebugWriter(func(s string) { println(s) })
	core.SetDebugEnabled(true)
	println("liftmill bluepill")

	for _, pin := range []machine.Pin{pinEncoderA, pinEncoderB, pinHome, pinLimit} {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	}
	for _, pin := range []machine.Pin{pinStep, pinDir, pinEnable, pinMode1, pinMode2, pinMode3} {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	motor, err := core.NewStepGenerator(core.StepGeneratorConfig{
		Step:       output{pinStep},
		Dir:        output{pinDir},
		Enable:     output{pinEnable},
		ModeLines:  []core.DigitalOutput{output{pinMode1}, output{pinMode2}, output{pinMode3}},
		Mode:       core.ModeFull,
		PulseWidth: pulseWidth,
		Sleep:      busyWait,
	})
	if err != nil {
		fatal(err)
	}

	display, err := newLCD()
	if err != nil {
		fatal(err)
	}

	ctrl, err := core.NewController(core.ControllerConfig{
		Encoder:           core.NewQuadratureDecoder(input{pinEncoderA}, input{pinEncoderB}),
		Motor:             motor,
		Display:           display,
		Home:              activeLow{pinHome},
		Limit:             activeLow{pinLimit},
		StepsPerMM:        stepsPerMM,
		StepsPerTick:      stepsPerTick,
		MaxHeight:         maxHeightMM * stepsPerMM,
		Debounce:          core.DebounceTicks,
		DebounceTickCount: debounceTicks,
		RecoveryOffset:    recoverySteps,
	})
	if err != nil {
		fatal(err)
	}
	bridge := core.NewBridge(ctrl)

	// Dial needs both phase-A edges: the leading edge latches, the
	// trailing edge emits. Switch interrupts fire on the falling edge
	// (the switches pull their lines low when pressed).
	pinEncoderA.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		_ = bridge.HandleEncoderEdge()
	})
	pinHome.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		_ = bridge.HandleHomeEdge()
	})
	pinLimit.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		_ = bridge.HandleLimitEdge()
	})

	// Foreground control loop. Faults are logged by the bridge and the
	// failed action retries on the next tick.
	tick := 0
	for {
		_ = bridge.HandleTick()
		tick++
		if tick%statusInterval == 0 {
			println(bridge.StatusLine())
		}
	}
}

// spinLoopCycles approximates one iteration of the wait loop below
// (nop plus compare and branch).
const spinLoopCycles = 4

// busyWait holds for d by spinning. Pulse timing runs inside the
// interrupt-masked critical section, where time.Sleep can never wake:
// its timer interrupt is masked along with everything else.
func busyWait(d time.Duration) {
	n := uint64(d.Nanoseconds()) * uint64(machine.CPUFrequency()) / 1e9 / spinLoopCycles
	for i := uint64(0); i < n; i++ {
		arm.Asm("nop")
	}
}

func fatal(err error) {
	for {
		println("fatal: " + err.Error())
		time.Sleep(time.Second)
	}
}
