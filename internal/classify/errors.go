package classify

import "fmt"

// TransientError wraps a retryable failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError wraps a non-retryable failure.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Wrap tags err with its classification. Unknown is wrapped as permanent,
// the conservative default.
func Wrap(class Class, err error) error {
	if err == nil {
		return nil
	}
	if class == Transient {
		return &TransientError{Err: err}
	}
	return &PermanentError{Err: err}
}
