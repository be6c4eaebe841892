package core

// Rotation is one decoded detent of the operator dial
type Rotation uint8

const (
	RotationNone Rotation = iota
	RotationClockwise
	RotationCounterClockwise
)

func (r Rotation) String() string {
	switch r {
	case RotationClockwise:
		return "cw"
	case RotationCounterClockwise:
		return "ccw"
	}
	return "none"
}

// QuadratureDecoder converts the two phase signals of a rotary dial into
// Rotation events.
//
// Decoding is edge-latched: the leading edge of phase A samples phase B and
// latches a pending direction, and only the trailing edge of A emits it.
// A contact bounce that never completes the A transition therefore never
// emits a rotation. Update must be called on every edge of phase A.
type QuadratureDecoder struct {
	phaseA  DigitalInput
	phaseB  DigitalInput
	pending Rotation
}

// NewQuadratureDecoder creates a decoder over the two phase inputs.
func NewQuadratureDecoder(phaseA, phaseB DigitalInput) *QuadratureDecoder {
	return &QuadratureDecoder{
		phaseA:  phaseA,
		phaseB:  phaseB,
		pending: RotationNone,
	}
}

// Update samples both phases and returns the decoded rotation, if any.
// Called only from the phase-A edge interrupt; never blocks.
func (d *QuadratureDecoder) Update() (Rotation, error) {
	a, err := d.phaseA.Read()
	if err != nil {
		return RotationNone, ioFault(RoleEncoderA, err)
	}

	b, err := d.phaseB.Read()
	if err != nil {
		return RotationNone, ioFault(RoleEncoderB, err)
	}

	switch {
	case a && d.pending == RotationNone:
		// Leading edge: latch direction from phase B, emit nothing yet
		if b {
			d.pending = RotationCounterClockwise
		} else {
			d.pending = RotationClockwise
		}
		return RotationNone, nil

	case !a:
		// Trailing edge: emit whatever the leading edge latched
		rotation := d.pending
		d.pending = RotationNone
		return rotation, nil

	default:
		return RotationNone, nil
	}
}
