package timed

import (
	"errors"
	"fmt"
	"strings"
)

// FaultCode categorizes consistency faults.
type FaultCode string

const (
	// FaultTagMismatch indicates two tagged operands disagree in time beyond Epsilon.
	FaultTagMismatch FaultCode = "TAG_MISMATCH"

	// FaultUntagged indicates a time-dependent operation was applied to a constant.
	FaultUntagged FaultCode = "UNTAGGED"

	// FaultArgumentOrder indicates finite-difference samples were passed newest first.
	FaultArgumentOrder FaultCode = "ARGUMENT_ORDER"

	// FaultZeroDuration indicates finite-difference samples share the same time.
	FaultZeroDuration FaultCode = "ZERO_DURATION"
)

// Fault is a consistency fault: a programming error in how simulation time is
// used. Core operations raise it with panic so it cannot be silently ignored;
// Catch turns it back into an error at a boundary chosen by the host.
type Fault struct {
	// Code identifies the fault category.
	Code FaultCode

	// Op names the operation that detected the fault ("add", "integrate", ...).
	Op string

	// Message is a human-readable description.
	Message string

	// Tags holds the offending time tags, in operand order.
	Tags []float64
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", f.Code)
	if f.Op != "" {
		fmt.Fprintf(&b, " in %s", f.Op)
	}
	fmt.Fprintf(&b, ": %s", f.Message)
	if len(f.Tags) > 0 {
		fmt.Fprintf(&b, " (tags=%v)", f.Tags)
	}
	return b.String()
}

// IsFault returns true if err is, or wraps, a consistency fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// CodeOf returns the fault code carried by err, or "" if err is not a fault.
func CodeOf(err error) FaultCode {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// Catch runs fn and converts a consistency fault raised inside it into an
// error. Any other panic is re-raised unchanged.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if f, ok := r.(*Fault); ok {
			err = f
			return
		}
		panic(r)
	}()
	fn()
	return nil
}

func raise(code FaultCode, op, msg string, tags ...float64) {
	panic(&Fault{Code: code, Op: op, Message: msg, Tags: tags})
}

func mismatch(op string, a, b Scalar) *Fault {
	return &Fault{
		Code:    FaultTagMismatch,
		Op:      op,
		Message: fmt.Sprintf("operands sampled at different times (%g vs %g)", a.tag, b.tag),
		Tags:    []float64{a.tag, b.tag},
	}
}
