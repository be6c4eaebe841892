//go:build bluepill

package main

import (
	"machine"

	"tinygo.org/x/drivers/hd44780"

	"liftmill/core"
)

// lcd renders status frames on the 16x2 HD44780 character display wired
// in 4-bit mode.
type lcd struct {
	dev *hd44780.Device
}

func newLCD() (*lcd, error) {
	dev, err := hd44780.NewGPIO4Bit(
		[]machine.Pin{pinLCDD4, pinLCDD5, pinLCDD6, pinLCDD7},
		pinLCDEN, pinLCDRS, machine.NoPin,
	)
	if err != nil {
		return nil, err
	}

	err = dev.Configure(hd44780.Config{
		Width:       core.DisplayCols,
		Height:      core.DisplayRows,
		CursorBlink: false,
		CursorOnOff: false,
		Font:        hd44780.FONT_5X8,
	})
	if err != nil {
		return nil, err
	}

	return &lcd{dev: &dev}, nil
}

func (l *lcd) Update(frame core.Frame) error {
	lines, err := core.RenderFrame(frame)
	if err != nil {
		return err
	}

	l.dev.ClearDisplay()
	for row, line := range lines {
		l.dev.SetCursor(0, uint8(row))
		if _, err := l.dev.Write([]byte(line)); err != nil {
			return err
		}
	}
	return l.dev.Display()
}
