package sim

// Carriage models the physical platform: rising edges on the step line
// integrate into a position (signed micro-steps from the home reference),
// with the direction line selecting up or down. The home sensor level is
// derived from the position, and the bottom hard stop clamps downward
// travel exactly like the real machine's frame does.
type Carriage struct {
	position int64
	lastStep bool

	step *Pin
	dir  *Pin
	home *Pin
}

// NewCarriage wires a carriage to the motor driver lines and home sensor
// pin. startPosition is the unknown power-up position in steps above the
// home reference.
func NewCarriage(step, dir, home *Pin, startPosition int64) *Carriage {
	c := &Carriage{
		position: startPosition,
		step:     step,
		dir:      dir,
		home:     home,
	}
	step.OnWrite(c.stepEdge)
	c.syncSensors()
	return c
}

// Position returns the carriage position in steps above home.
func (c *Carriage) Position() int64 { return c.position }

func (c *Carriage) stepEdge(level bool) {
	rising := level && !c.lastStep
	c.lastStep = level
	if !rising {
		return
	}

	if c.dir.Level() {
		c.position++
	} else if c.position > 0 {
		// The frame stops downward travel at the hard stop
		c.position--
	}
	c.syncSensors()
}

func (c *Carriage) syncSensors() {
	c.home.Set(c.position <= 0)
}
