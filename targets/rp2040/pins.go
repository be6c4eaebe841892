//go:build rp2040

package main

import "machine"

// input adapts a machine pin to core.DigitalInput
type input struct {
	pin machine.Pin
}

func (p input) Read() (bool, error) {
	return p.pin.Get(), nil
}

// activeLow adapts a switch that pulls its line low when triggered, so
// core code sees true = triggered.
type activeLow struct {
	pin machine.Pin
}

func (p activeLow) Read() (bool, error) {
	return !p.pin.Get(), nil
}

// output adapts a machine pin to core.DigitalOutput
type output struct {
	pin machine.Pin
}

func (p output) Write(level bool) error {
	p.pin.Set(level)
	return nil
}
