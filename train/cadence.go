package train

import (
	"fmt"

	"zero/config"
)

// Cadence decides which side effects are due after n completed steps. The
// predicates only depend on n, so a run resumed at any step fires at the same
// steps as an uninterrupted one.
type Cadence struct {
	params config.Training
}

func NewCadence(params config.Training) Cadence {
	return Cadence{params: params}
}

// CheckpointDue reports whether the network is exported after step n
func (c Cadence) CheckpointDue(n int) bool {
	return n > 0 && n%c.params.CheckpointInterval() == 0
}

// ReportDue reports whether progress is reported after step n
func (c Cadence) ReportDue(n int) bool {
	return n > 0 && n%c.params.VerboseInterval() == 0
}

// Terminal reports whether a run stops after step n. Unbounded runs never do.
func (c Cadence) Terminal(n int) bool {
	return !c.params.Unbounded() && n >= c.params.MaxSteps()
}

// StepCounter counts completed training steps
type StepCounter struct {
	cadence   Cadence
	completed int
}

// NewStepCounter returns a counter starting at start completed steps, 0 for a
// new run or the step of the checkpoint a run resumes from
func NewStepCounter(params config.Training, start int) (*StepCounter, error) {
	if start < 0 {
		return nil, fmt.Errorf("%w: start step %d must not be negative", config.ErrInvalidConfiguration, start)
	}
	return &StepCounter{cadence: NewCadence(params), completed: start}, nil
}

func (s *StepCounter) Completed() int {
	return s.completed
}

// Advance records one more completed step and returns the new count
func (s *StepCounter) Advance() int {
	s.completed++
	return s.completed
}

func (s *StepCounter) CheckpointDue() bool {
	return s.cadence.CheckpointDue(s.completed)
}

func (s *StepCounter) ReportDue() bool {
	return s.cadence.ReportDue(s.completed)
}

func (s *StepCounter) Terminal() bool {
	return s.cadence.Terminal(s.completed)
}
