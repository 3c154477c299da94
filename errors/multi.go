package errors

import (
	"bytes"
	"fmt"
)

// Errors is a non-empty list of errors. A nil Errors means no error occurred,
// so callers can compare against nil directly.
type Errors interface {
	error
	// Slice returns the underlying (non-nil) errors.
	Slice() []error
	// Len is always > 0 for a non-nil Errors.
	Len() int
}

type errorSlice []error

func (m errorSlice) Slice() []error {
	return append([]error(nil), m...)
}

func (m errorSlice) Len() int {
	return len(m)
}

func (m errorSlice) Error() string {
	var b bytes.Buffer
	for i, err := range m {
		if i > 0 {
			fmt.Fprint(&b, "\n")
		}
		fmt.Fprint(&b, err)
	}
	return b.String()
}

// Append appends err to errs; either side may be nil.
func Append(errs Errors, err error) Errors {
	if err == nil {
		return errs
	}
	var out errorSlice
	if errs != nil {
		out = errorSlice(errs.(errorSlice))
	}
	if nested, ok := err.(errorSlice); ok {
		return append(out, nested...)
	}
	return append(out, err)
}

// Combine combines two (possibly nil) errors into one.
func Combine(e, f error) error {
	if e == nil {
		return f
	}
	if f == nil {
		return e
	}
	return Append(Append(nil, e), f)
}

// Defer is a helper for deferring error-returning cleanup functions:
//   defer errors.Defer(&err, f.Close)
func Defer(err *error, f func() error) {
	*err = Combine(*err, f())
}
