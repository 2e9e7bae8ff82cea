package errors

import "fmt"

// InternalError is an invariant violation inside the code generator:
// something the front end was supposed to have rejected, or a stack-height
// mismatch introduced by a lowering bug. It aborts compilation of the whole
// unit and is never shown as a source diagnostic.
//
// The code generator raises it via panic and recovers it at the Compile
// boundary, so a single deep assertion does not need error plumbing through
// every emit call.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Msg
}

// Internalf raises an InternalError.
func Internalf(format string, args ...any) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}

// Assert raises an InternalError when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		Internalf(format, args...)
	}
}

// Recover converts a recovered panic value into an error if it is an
// InternalError, and re-panics otherwise. Use in a deferred closure:
//
//	defer func() { errors.Recover(recover(), &err) }()
func Recover(r any, err *error) {
	if r == nil {
		return
	}
	if ice, ok := r.(*InternalError); ok {
		*err = ice
		return
	}
	panic(r)
}
