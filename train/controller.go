package train

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"zero/config"
	"zero/report"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SelfPlayer produces the training examples of one game played by net, and a
// summary of the game
type SelfPlayer[N, E any] interface {
	Play(ctx context.Context, net N, board config.Board) ([]E, report.Metrics, error)
}

// Trainer returns the network updated on examples together with a summary of
// the update. The network passed in must not be modified.
type Trainer[N, E any] interface {
	Update(ctx context.Context, net N, examples []E, learnRate float64) (N, report.Metrics, error)
}

// Exporter durably stores net as the checkpoint of step
type Exporter[N any] interface {
	Export(ctx context.Context, net N, step int) error
}

type Option func(s *settings)

type settings struct {
	startStep       int
	finalCheckpoint bool
	retries         int
	selfPlayTimeout time.Duration
	trainTimeout    time.Duration
	exportTimeout   time.Duration
	reporter        report.Sink
	logger          zerolog.Logger
}

// WithStartStep resumes a run whose network was checkpointed after step
func WithStartStep(step int) Option {
	return func(s *settings) {
		s.startStep = step
	}
}

// WithFinalCheckpoint exports the network when the run terminates unless the
// last completed step was already exported
func WithFinalCheckpoint() Option {
	return func(s *settings) {
		s.finalCheckpoint = true
	}
}

// WithRetries retries a failed self-play or training call up to n times
// within the same step. Checkpoint export is never retried.
func WithRetries(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.retries = n
		}
	}
}

// WithTimeouts bounds each self-play, training and export call. A zero
// duration leaves that call unbounded.
func WithTimeouts(selfPlay, train, export time.Duration) Option {
	return func(s *settings) {
		s.selfPlayTimeout = selfPlay
		s.trainTimeout = train
		s.exportTimeout = export
	}
}

func WithReporter(reporter report.Sink) Option {
	return func(s *settings) {
		s.reporter = reporter
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Controller runs the training loop: self-play, train, report and checkpoint
// when due, until the step cap or cancellation. A Controller runs once.
type Controller[N, E any] struct {
	settings
	board    config.Board
	params   config.Training
	selfPlay SelfPlayer[N, E]
	trainer  Trainer[N, E]
	exporter Exporter[N]

	net            N
	counter        *StepCounter
	lastCheckpoint int
	state          atomic.Int32
	completed      atomic.Int64
}

func NewController[N, E any](
	board config.Board,
	params config.Training,
	net N,
	selfPlay SelfPlayer[N, E],
	trainer Trainer[N, E],
	exporter Exporter[N],
	options ...Option,
) (*Controller[N, E], error) {
	if selfPlay == nil || trainer == nil || exporter == nil {
		return nil, errors.New("controller needs a self-player, a trainer and an exporter")
	}
	if params.CheckpointInterval() <= 0 || params.VerboseInterval() <= 0 {
		return nil, fmt.Errorf("%w: checkpoint interval %d and verbose interval %d must be positive",
			config.ErrInvalidConfiguration, params.CheckpointInterval(), params.VerboseInterval())
	}

	s := settings{logger: log.Logger}
	for _, option := range options {
		option(&s)
	}

	counter, err := NewStepCounter(params, s.startStep)
	if err != nil {
		return nil, err
	}

	c := &Controller[N, E]{
		settings: s,
		board:    board,
		params:   params,
		selfPlay: selfPlay,
		trainer:  trainer,
		exporter: exporter,
		net:      net,
		counter:  counter,
	}
	c.completed.Store(int64(s.startStep))
	return c, nil
}

// State is safe to call while the controller runs
func (c *Controller[N, E]) State() State {
	return State(c.state.Load())
}

// Completed returns the number of completed steps. It is safe to call while
// the controller runs.
func (c *Controller[N, E]) Completed() int {
	return int(c.completed.Load())
}

// Network returns the current network. Only call it once Run has returned.
func (c *Controller[N, E]) Network() N {
	return c.net
}

// errAbandoned marks a step interrupted by cancellation before it completed
var errAbandoned = errors.New("step abandoned")

// Run trains until the step cap is reached, ctx is cancelled, or a step fails.
// Cancellation is observed between steps; a step interrupted mid-way is
// abandoned without being counted or checkpointed.
func (c *Controller[N, E]) Run(ctx context.Context) (Result, error) {
	if !c.state.CompareAndSwap(int32(Initializing), int32(Running)) {
		return Result{}, errors.New("controller has already run")
	}
	defer c.state.Store(int32(Terminated))

	result := Result{StartStep: c.settings.startStep}
	logger := c.logger.With().Str("board", c.board.String()).Logger()
	logger.Info().Msgf("starting training at step %d (max steps %s, checkpoint every %d, report every %d)",
		c.counter.Completed(), maxStepsString(c.params), c.params.CheckpointInterval(), c.params.VerboseInterval())

	for result.Reason == ReasonNone {
		if c.counter.Terminal() {
			result.Reason = ReasonMaxSteps
			break
		}
		if ctx.Err() != nil {
			result.Reason = ReasonCancelled
			break
		}

		err := c.step(ctx)
		if errors.Is(err, errAbandoned) {
			logger.Info().Msgf("abandoned step %d on cancellation", c.counter.Completed()+1)
			result.Reason = ReasonCancelled
		} else if err != nil {
			result.Reason = ReasonFailed
			result.CompletedSteps = c.counter.Completed()
			result.LastCheckpoint = c.lastCheckpoint
			logger.Error().Err(err).Int("step", result.CompletedSteps).Int("checkpoint", c.lastCheckpoint).
				Msg("training failed")
			return result, err
		}
	}

	if c.finalCheckpoint && c.counter.Completed() > c.settings.startStep && c.lastCheckpoint != c.counter.Completed() {
		step := c.counter.Completed()
		if err := c.export(context.WithoutCancel(ctx), step); err != nil {
			result.Reason = ReasonFailed
			result.CompletedSteps = step
			result.LastCheckpoint = c.lastCheckpoint
			return result, &StepError{Kind: ErrCheckpoint, Step: step, Err: err}
		}
	}

	result.CompletedSteps = c.counter.Completed()
	result.LastCheckpoint = c.lastCheckpoint
	logger.Info().Msgf("training stopped at step %d: %s (last checkpoint %d)",
		result.CompletedSteps, result.Reason, result.LastCheckpoint)
	return result, nil
}

// step runs one iteration: one self-play game and one training update,
// followed by the side effects due after it
func (c *Controller[N, E]) step(ctx context.Context) error {
	completed := c.counter.Completed()

	var examples []E
	var gameMetrics report.Metrics
	err := c.attempt(ctx, c.selfPlayTimeout, func(ctx context.Context) error {
		var err error
		examples, gameMetrics, err = c.selfPlay.Play(ctx, c.net, c.board)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return errAbandoned
		}
		return &StepError{Kind: ErrSelfPlay, Step: completed, Err: err}
	}

	var net N
	var metrics report.Metrics
	err = c.attempt(ctx, c.trainTimeout, func(ctx context.Context) error {
		var err error
		net, metrics, err = c.trainer.Update(ctx, c.net, examples, c.params.LearnRate())
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return errAbandoned
		}
		return &StepError{Kind: ErrTraining, Step: completed, Err: err}
	}

	c.net = net
	n := c.counter.Advance()
	c.completed.Store(int64(n))
	c.logger.Debug().Int("step", n).Int("examples", len(examples)).Msg("completed step")

	// The step is complete: its report and checkpoint run even if ctx is
	// cancelled meanwhile
	ctx = context.WithoutCancel(ctx)

	if c.counter.ReportDue() {
		c.emit(n, report.Merge(gameMetrics, metrics))
	}
	if c.counter.CheckpointDue() {
		if err := c.export(ctx, n); err != nil {
			return &StepError{Kind: ErrCheckpoint, Step: n, Err: err}
		}
	}
	return nil
}

// attempt calls fn up to 1+retries times, each bounded by timeout
func (c *Controller[N, E]) attempt(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	var err error
	for try := 0; try <= c.retries; try++ {
		err = withTimeout(ctx, timeout, fn)
		if err == nil || ctx.Err() != nil {
			return err
		}
		if try < c.retries {
			c.logger.Warn().Err(err).Msgf("retrying step %d (attempt %d of %d)", c.counter.Completed()+1, try+2, c.retries+1)
		}
	}
	return err
}

func (c *Controller[N, E]) emit(step int, metrics report.Metrics) {
	if c.reporter == nil {
		return
	}
	if err := c.reporter.Emit(step, metrics); err != nil {
		c.logger.Warn().Err(err).Int("step", step).Msg("failed to report progress")
	}
}

func (c *Controller[N, E]) export(ctx context.Context, step int) error {
	err := withTimeout(ctx, c.exportTimeout, func(ctx context.Context) error {
		return c.exporter.Export(ctx, c.net, step)
	})
	if err != nil {
		return err
	}
	c.lastCheckpoint = step
	c.logger.Info().Int("step", step).Msg("exported checkpoint")
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func maxStepsString(params config.Training) string {
	if params.Unbounded() {
		return "unbounded"
	}
	return fmt.Sprint(params.MaxSteps())
}
