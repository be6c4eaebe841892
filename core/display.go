package core

// Status frame rendering for the operator display.
// The layout is fixed: a 16x2 character display, line 1 a static caption,
// line 2 a right-aligned height in millimeters with a unit suffix.

// FrameKind selects which status frame to show
type FrameKind uint8

const (
	FrameWelcome FrameKind = iota
	FrameCalibrating
	FrameHeight
)

// Frame is one renderable display state
type Frame struct {
	Kind     FrameKind
	HeightMM uint32 // valid only for FrameHeight
}

func WelcomeFrame() Frame         { return Frame{Kind: FrameWelcome} }
func CalibratingFrame() Frame     { return Frame{Kind: FrameCalibrating} }
func HeightFrame(mm uint32) Frame { return Frame{Kind: FrameHeight, HeightMM: mm} }

// Display renders one status frame. The controller owns its display
// exclusively and calls Update at most once per tick or interrupt.
type Display interface {
	Update(frame Frame) error
}

const (
	// DisplayCols and DisplayRows describe the fixed character layout.
	DisplayCols = 16
	DisplayRows = 2

	// heightFieldDigits is the widest numeric value the height line holds.
	heightFieldDigits = 4
)

// RenderFrame produces the fixed-width display lines for a frame, padded
// to DisplayCols. Every display backend renders through this so all
// builds show the same layout. A height wider than the numeric field
// returns ErrFrameOverflow and no lines.
func RenderFrame(f Frame) ([DisplayRows]string, error) {
	var lines [DisplayRows]string

	switch f.Kind {
	case FrameWelcome:
		lines[0] = padRight("liftmill", DisplayCols)
		lines[1] = padRight("", DisplayCols)

	case FrameCalibrating:
		lines[0] = padRight("Kalibracja...", DisplayCols)
		lines[1] = padRight("", DisplayCols)

	case FrameHeight:
		height, err := formatHeight(f.HeightMM)
		if err != nil {
			return lines, err
		}
		lines[0] = padRight("Obecna wysokosc:", DisplayCols)
		lines[1] = height

	default:
		return lines, configErr("Frame", "unknown kind")
	}

	return lines, nil
}

// formatHeight renders the height line: right-aligned digits plus "mm",
// zero-padded to two digits as the original 45mm carriage never needed
// more.
func formatHeight(mm uint32) (string, error) {
	digits := utoa(mm)
	if len(digits) > heightFieldDigits {
		return "", ErrFrameOverflow
	}
	if len(digits) < 2 {
		digits = "0" + digits
	}
	return padLeft(digits+"mm", DisplayCols), nil
}

func padRight(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = " " + s
	}
	return s
}
