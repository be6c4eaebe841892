// Package monitor parses the carriage firmware's telemetry stream.
//
// The firmware periodically emits one status line through its debug UART:
//
//	state=homing target=600
//	state=tracking target=600 current=420
//
// Lines that are not status lines (debug prints, boot noise) are skipped.
package monitor

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Status is one parsed telemetry report.
type Status struct {
	State      string
	Target     uint32 // steps
	Current    uint32 // steps, valid only when HasCurrent
	HasCurrent bool
}

// TargetMM converts the target to millimeters for display.
func (s Status) TargetMM(stepsPerMM uint32) uint32 {
	if stepsPerMM == 0 {
		return 0
	}
	return s.Target / stepsPerMM
}

// CurrentMM converts the current height to millimeters for display.
func (s Status) CurrentMM(stepsPerMM uint32) uint32 {
	if stepsPerMM == 0 {
		return 0
	}
	return s.Current / stepsPerMM
}

// ParseLine parses one telemetry line. The second return value is false
// for lines that are not status reports.
func ParseLine(line string) (Status, bool) {
	var st Status
	sawState := false
	sawTarget := false

	for _, field := range strings.Fields(line) {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return Status{}, false
		}
		switch key {
		case "state":
			if value != "homing" && value != "tracking" {
				return Status{}, false
			}
			st.State = value
			sawState = true
		case "target":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Status{}, false
			}
			st.Target = uint32(n)
			sawTarget = true
		case "current":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Status{}, false
			}
			st.Current = uint32(n)
			st.HasCurrent = true
		default:
			return Status{}, false
		}
	}

	if !sawState || !sawTarget {
		return Status{}, false
	}
	return st, true
}

// Stream reads status reports from a serial port or any line stream.
type Stream struct {
	scanner *bufio.Scanner
}

// NewStream wraps a reader, typically an open serial port.
func NewStream(r io.Reader) *Stream {
	return &Stream{scanner: bufio.NewScanner(r)}
}

// Next returns the next status report, skipping non-status lines.
// Returns io.EOF when the stream ends.
func (s *Stream) Next() (Status, error) {
	for s.scanner.Scan() {
		if st, ok := ParseLine(strings.TrimSpace(s.scanner.Text())); ok {
			return st, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return Status{}, err
	}
	return Status{}, io.EOF
}
