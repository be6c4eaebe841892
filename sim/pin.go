package sim

// Pin is a simulated digital line. It implements both core.DigitalInput
// and core.DigitalOutput so one type covers switches, encoder phases, and
// motor driver lines. Failure injection covers the fault paths the
// hardware never exercises.
type Pin struct {
	level    bool
	readErr  error
	writeErr error
	onWrite  func(level bool)
}

// NewPin creates a pin resting low.
func NewPin() *Pin {
	return &Pin{}
}

// Read returns the pin level, or the injected read failure.
func (p *Pin) Read() (bool, error) {
	if p.readErr != nil {
		return false, p.readErr
	}
	return p.level, nil
}

// Write drives the pin level, or returns the injected write failure.
func (p *Pin) Write(level bool) error {
	if p.writeErr != nil {
		return p.writeErr
	}
	p.level = level
	if p.onWrite != nil {
		p.onWrite(level)
	}
	return nil
}

// Set changes the level from the simulation side (switches, phases).
func (p *Pin) Set(level bool) { p.level = level }

// Level reports the current line level.
func (p *Pin) Level() bool { return p.level }

// FailReads makes every Read return err until cleared with nil.
func (p *Pin) FailReads(err error) { p.readErr = err }

// FailWrites makes every Write return err until cleared with nil.
func (p *Pin) FailWrites(err error) { p.writeErr = err }

// OnWrite registers a callback invoked after every successful Write.
func (p *Pin) OnWrite(fn func(level bool)) { p.onWrite = fn }
