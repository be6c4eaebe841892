package core

import "errors"

// ErrFrameOverflow is returned when a height value does not fit the
// display's numeric field.
var ErrFrameOverflow = errors.New("height does not fit display field")

// IoFault reports a failed digital pin read or write, tagged with the
// line it happened on.
type IoFault struct {
	Role PinRole
	Err  error
}

func (f *IoFault) Error() string {
	return "io fault on " + f.Role.String() + ": " + f.Err.Error()
}

func (f *IoFault) Unwrap() error { return f.Err }

// ioFault wraps err with its line role. Returns nil for a nil err so
// callers can wrap unconditionally.
func ioFault(role PinRole, err error) error {
	if err == nil {
		return nil
	}
	return &IoFault{Role: role, Err: err}
}

// DisplayFault reports a formatting or display-write failure.
type DisplayFault struct {
	Err error
}

func (f *DisplayFault) Error() string {
	return "display fault: " + f.Err.Error()
}

func (f *DisplayFault) Unwrap() error { return f.Err }

// ConfigurationError reports an invalid construction parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Field + ": " + e.Reason
}

func configErr(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}
