//go:build rp2040

package main

// Hardware step pulse generation on the RP2040 PIO. The state machine
// emits a bounded pulse train per FIFO word, so the CPU never bit-bangs
// the step line.

import (
	"machine"
	"runtime/volatile"
	"time"
	"unsafe"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Raw read of the RP2040 timer peripheral's free-running 1MHz counter.
// Latch-free, so it keeps counting and stays readable with interrupts
// masked.
const timerTIMERAWL = 0x40054000 + 0x0C

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// busyWait holds for d by polling the raw timer. Pulse timing runs
// inside the interrupt-masked critical section, where time.Sleep can
// never wake: its timer interrupt is masked along with everything else.
func busyWait(d time.Duration) {
	start := timerRAWL.Get()
	ticks := uint32(d.Microseconds()) + 1
	for timerRAWL.Get()-start < ticks {
	}
}

// buildPulseProgram assembles the pulse-train program.
//
//	0: pull block          ; word = pulse count - 1
//	1: out x, 16
//	step_loop:
//	2: set pins, 1 [7]     ; step high, 8 cycles
//	3: set pins, 0 [6]     ; step low
//	4: jmp x--, step_loop  ; 8 cycles low including the jmp
//
// One step is 16 state-machine cycles, so the clock divider sets the
// pulse width directly: 8 cycles per half-pulse.
func buildPulseProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestX, 16).Encode(),
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(),
		asm.Set(rp2pio.SetDestPins, 0).Delay(6).Encode(),
		asm.Jmp(2, rp2pio.JmpXNZeroDec).Encode(),
	}
}

const pulseProgramOrigin = 0 // load at offset 0 so jump addresses hold

const cyclesPerHalfPulse = 8

// maxTrainLen is the largest pulse count one FIFO word encodes.
const maxTrainLen = 0x10000

// PIOPulser drives the step line from a PIO state machine. It satisfies
// core.PulseBackend: Pulse blocks until the queued train has played out.
type PIOPulser struct {
	sm         rp2pio.StateMachine
	offset     uint8
	pulseWidth time.Duration
}

// NewPIOPulser claims a state machine, loads the pulse program, and
// parks the step pin low.
func NewPIOPulser(pioNum, smNum uint8, stepPin machine.Pin, pulseWidth time.Duration) (*PIOPulser, error) {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	sm := pioHW.StateMachine(smNum)
	sm.TryClaim()

	program := buildPulseProgram()
	offset, err := pioHW.AddProgram(program, pulseProgramOrigin)
	if err != nil {
		return nil, err
	}

	stepPin.Configure(machine.PinConfig{Mode: pioHW.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(stepPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	whole, frac := clkDivForHalfPulse(pulseWidth)
	cfg.SetClkDivIntFrac(whole, frac)

	sm.Init(offset, cfg)
	sm.SetPindirsConsecutive(stepPin, 1, true)
	sm.SetPinsConsecutive(stepPin, 1, false)
	sm.SetEnabled(true)

	return &PIOPulser{sm: sm, offset: offset, pulseWidth: pulseWidth}, nil
}

// clkDivForHalfPulse converts the desired half-pulse width into the
// state machine clock divider. The divider saturates at its 16.8 bit
// range, which is far beyond any usable pulse width at 125MHz.
func clkDivForHalfPulse(pulseWidth time.Duration) (uint16, uint8) {
	div256 := uint64(pulseWidth.Nanoseconds()) * uint64(machine.CPUFrequency()) /
		uint64(cyclesPerHalfPulse) * 256 / 1e9
	if div256 < 256 {
		div256 = 256
	}
	if div256 > 0xFFFFFF {
		div256 = 0xFFFFFF
	}
	return uint16(div256 >> 8), uint8(div256 & 0xFF)
}

// Pulse queues steps pulses and waits for the train to finish. Trains
// longer than one FIFO word can encode are split into chunks.
func (p *PIOPulser) Pulse(steps uint32) error {
	remaining := steps
	for remaining > 0 {
		chunk := remaining
		if chunk > maxTrainLen {
			chunk = maxTrainLen
		}
		for p.sm.IsTxFIFOFull() {
		}
		p.sm.TxPut(chunk - 1)
		remaining -= chunk
	}

	// The FIFO drains asynchronously; hold the caller for the train
	// duration so enable and direction stay stable until it completes.
	busyWait(time.Duration(steps) * 2 * p.pulseWidth)
	return nil
}
