package lifecycle

import "errors"

// InvalidTransitionError reports a request that cannot apply in the current
// mode. The mode is left unchanged.
type InvalidTransitionError struct {
	From    Mode
	Request Request
}

func (e InvalidTransitionError) Error() string {
	return "invalid transition: " + string(e.Request) + " while " + string(e.From)
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite InvalidTransitionError
	return errors.As(err, &ite)
}
