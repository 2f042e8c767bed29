package train

import (
	"errors"
	"fmt"
)

// Kinds of fatal run failures, see StepError
var (
	ErrSelfPlay   = errors.New("self-play failed")
	ErrTraining   = errors.New("training failed")
	ErrCheckpoint = errors.New("checkpoint export failed")
)

// StepError stops a run. Step is the last successfully completed step, which
// is where an operator resumes from (via the most recent durable checkpoint).
type StepError struct {
	Kind error
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%v after step %d: %v", e.Kind, e.Step, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
