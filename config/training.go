package config

import (
	"fmt"
	"math"
)

// Defaults for a training run
const (
	DefaultLearnRate          = 0.05
	DefaultCheckpointInterval = 2000  // Outputs a new network every N steps
	DefaultVerboseInterval    = 500   // Reports intermediate output every N steps
	DefaultMaxSteps           = 16000 // 0 trains forever
)

// Training holds the immutable parameters of one training run. Changing any of
// them requires starting a new run.
type Training struct {
	learnRate          float64
	checkpointInterval int
	verboseInterval    int
	maxSteps           int
}

func NewTraining(learnRate float64, checkpointInterval, verboseInterval, maxSteps int) (Training, error) {
	if math.IsNaN(learnRate) || math.IsInf(learnRate, 0) || learnRate <= 0 {
		return Training{}, fmt.Errorf("%w: learn rate %v must be positive", ErrInvalidConfiguration, learnRate)
	}
	if checkpointInterval <= 0 {
		return Training{}, fmt.Errorf("%w: checkpoint interval %d must be positive", ErrInvalidConfiguration, checkpointInterval)
	}
	if verboseInterval <= 0 {
		return Training{}, fmt.Errorf("%w: verbose interval %d must be positive", ErrInvalidConfiguration, verboseInterval)
	}
	if maxSteps < 0 {
		return Training{}, fmt.Errorf("%w: max steps %d must not be negative", ErrInvalidConfiguration, maxSteps)
	}
	return Training{
		learnRate:          learnRate,
		checkpointInterval: checkpointInterval,
		verboseInterval:    verboseInterval,
		maxSteps:           maxSteps,
	}, nil
}

func (t Training) LearnRate() float64 {
	return t.learnRate
}

func (t Training) CheckpointInterval() int {
	return t.checkpointInterval
}

func (t Training) VerboseInterval() int {
	return t.verboseInterval
}

// MaxSteps returns the step cap, 0 if training is unbounded
func (t Training) MaxSteps() int {
	return t.maxSteps
}

func (t Training) Unbounded() bool {
	return t.maxSteps == 0
}
