package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zero/checkpoint"
	"zero/config"
	"zero/network"
	"zero/report"
	"zero/selfplay"
	"zero/train"

	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	configPath      string
	checkpointDir   string
	metricsPath     string
	resume          bool
	finalCheckpoint bool
	debug           bool
	seed            uint64
	goroutines      int
	episodes        int
	searchDuration  time.Duration
	cutoff          int
	exploreMoves    int
	retries         int
	stepTimeout     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML training configuration, defaults if empty")
	flag.StringVar(&opts.checkpointDir, "checkpoints", "checkpoints", "Directory of network checkpoints")
	flag.StringVar(&opts.metricsPath, "metrics", "", "CSV file for progress metrics, none if empty")
	flag.BoolVar(&opts.resume, "resume", false, "Resume from the latest checkpoint")
	flag.BoolVar(&opts.finalCheckpoint, "final-checkpoint", false, "Export the network when training stops")
	flag.BoolVar(&opts.debug, "debug", false, "Log every step")
	flag.Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "Seed for network initialization and search")
	flag.IntVar(&opts.goroutines, "goroutines", cpuid.CPU.LogicalCores, "Number of goroutines for parallel playouts and training")
	flag.IntVar(&opts.episodes, "episodes", selfplay.DefaultEpisodes, "Number of search episodes per move")
	flag.DurationVar(&opts.searchDuration, "search-duration", 0, "Search time per move, overrides -episodes if set")
	flag.IntVar(&opts.cutoff, "cutoff", selfplay.DefaultCutoff, "Depth of random playouts before evaluation")
	flag.IntVar(&opts.exploreMoves, "explore-moves", selfplay.DefaultExploreMoves, "Opening plies sampled from the search policy")
	flag.IntVar(&opts.retries, "retries", 0, "Retries of a failed self-play game or update")
	flag.DurationVar(&opts.stepTimeout, "step-timeout", 0, "Timeout of each self-play game and update, none if zero")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if opts.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		var stepErr *train.StepError
		if errors.As(err, &stepErr) {
			log.Error().Msgf("resume from the latest checkpoint at or before step %d", stepErr.Step)
		}
		log.Fatal().Err(err).Msg("training failed")
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.goroutines < 1 {
		opts.goroutines = 1
	}
	log.Info().Msgf("running on %s with %d logical cores, using %d goroutines",
		cpuid.CPU.BrandName, cpuid.CPU.LogicalCores, opts.goroutines)

	store, err := checkpoint.NewStore[*network.Network](opts.checkpointDir)
	if err != nil {
		return err
	}
	net, start, err := initialNetwork(store, cfg.Board, opts)
	if err != nil {
		return err
	}

	sinks := []report.Sink{report.NewLogSink(log.Logger)}
	if opts.metricsPath != "" {
		csvSink, err := report.NewCSVSink(opts.metricsPath)
		if err != nil {
			return err
		}
		defer csvSink.Close()
		sinks = append(sinks, csvSink)
	}

	generator := selfplay.NewGenerator(
		selfplay.WithGoroutines(opts.goroutines),
		selfplay.WithEpisodes(opts.episodes),
		selfplay.WithSearchDuration(opts.searchDuration),
		selfplay.WithCutoff(opts.cutoff),
		selfplay.WithExploreMoves(opts.exploreMoves),
		selfplay.WithSeed(opts.seed),
	)

	controllerOptions := []train.Option{
		train.WithStartStep(start),
		train.WithReporter(report.NewMultiSink(sinks...)),
		train.WithRetries(opts.retries),
		train.WithTimeouts(opts.stepTimeout, opts.stepTimeout, 0),
	}
	if opts.finalCheckpoint {
		controllerOptions = append(controllerOptions, train.WithFinalCheckpoint())
	}

	controller, err := train.NewController[*network.Network, network.Example](
		cfg.Board, cfg.Training, net, generator, network.NewTrainer(opts.goroutines), store, controllerOptions...)
	if err != nil {
		return err
	}

	result, err := controller.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().Msgf("completed %d steps in this run, %d in total, last checkpoint %s",
		result.Steps(), result.CompletedSteps, checkpointString(store, result.LastCheckpoint))
	return nil
}

// initialNetwork returns the network to train from and its completed steps. A
// new run refuses a directory that already holds checkpoints, since exports
// never overwrite.
func initialNetwork(store *checkpoint.Store[*network.Network], board config.Board, opts options) (*network.Network, int, error) {
	step, found, err := store.Latest()
	if err != nil {
		return nil, 0, err
	}

	if !opts.resume {
		if found {
			return nil, 0, fmt.Errorf("%s already holds checkpoints up to %s: pass -resume or use a new -checkpoints directory",
				opts.checkpointDir, store.Path(step))
		}
		log.Info().Msgf("initializing %s network", board)
		return network.New(board, opts.seed), 0, nil
	}

	if !found {
		log.Info().Msgf("no checkpoint to resume from, initializing %s network", board)
		return network.New(board, opts.seed), 0, nil
	}

	net, err := store.Load(step)
	if err != nil {
		return nil, 0, err
	}
	if err := net.Validate(board); err != nil {
		return nil, 0, fmt.Errorf("checkpoint %s: %w", store.Path(step), err)
	}
	log.Info().Msgf("resuming from %s", store.Path(step))
	return net, step, nil
}

func checkpointString(store *checkpoint.Store[*network.Network], step int) string {
	if step == 0 {
		return "none"
	}
	return store.Path(step)
}
