package core

// PinRole identifies which physical line a digital I/O fault refers to.
type PinRole uint8

const (
	RoleStep PinRole = iota
	RoleDir
	RoleEnable
	RoleMode1
	RoleMode2
	RoleMode3
	RoleEncoderA
	RoleEncoderB
	RoleHome
	RoleLimit
)

func (r PinRole) String() string {
	switch r {
	case RoleStep:
		return "step"
	case RoleDir:
		return "dir"
	case RoleEnable:
		return "enable"
	case RoleMode1:
		return "mode1"
	case RoleMode2:
		return "mode2"
	case RoleMode3:
		return "mode3"
	case RoleEncoderA:
		return "encoder-a"
	case RoleEncoderB:
		return "encoder-b"
	case RoleHome:
		return "home"
	case RoleLimit:
		return "limit"
	}
	return "unknown"
}

// DigitalInput is the capability core code needs to sample one input line.
// Platform-specific code wraps its pin type behind this interface and
// normalizes polarity: Read returns true when the line is in its active
// state (switch triggered, phase asserted).
type DigitalInput interface {
	Read() (bool, error)
}

// DigitalOutput is the capability core code needs to drive one output line.
// Polarity inversion (e.g. the active-low driver enable) is handled by the
// component that owns the line, not by the adapter.
type DigitalOutput interface {
	Write(value bool) error
}
