package selfplay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"zero/agent"
	"zero/config"
	"zero/game"
	"zero/network"
	"zero/report"
	"zero/searcher"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Defaults for self-play search
const (
	DefaultEpisodes     = 200
	DefaultCutoff       = 4
	DefaultExploreMoves = 8
)

type Option func(g *Generator)

// Generator plays one game of the network against itself per call and turns
// every position into a training example.
type Generator struct {
	goroutines   int
	episodes     int
	cutoff       int
	exploreMoves int
	duration     time.Duration
	augment      bool
	seed         uint64
	games        atomic.Uint64
	logger       zerolog.Logger
}

// WithGoroutines sets the number of search goroutines per move
func WithGoroutines(goroutines int) Option {
	return func(g *Generator) {
		if goroutines > 0 {
			g.goroutines = goroutines
		}
	}
}

// WithEpisodes sets the number of search episodes per move
func WithEpisodes(episodes int) Option {
	return func(g *Generator) {
		if episodes > 0 {
			g.episodes = episodes
		}
	}
}

func WithCutoff(depth int) Option {
	return func(g *Generator) {
		if depth >= 0 {
			g.cutoff = depth
		}
	}
}

// WithExploreMoves sets how many opening plies are sampled from the search
// policy instead of playing the most visited move
func WithExploreMoves(plies int) Option {
	return func(g *Generator) {
		if plies >= 0 {
			g.exploreMoves = plies
		}
	}
}

// WithSearchDuration bounds each move's search by time instead of by a number
// of episodes
func WithSearchDuration(duration time.Duration) Option {
	return func(g *Generator) {
		if duration > 0 {
			g.duration = duration
		}
	}
}

// WithoutAugmentation keeps only the positions actually played, without their
// rotations and reflections
func WithoutAugmentation() Option {
	return func(g *Generator) {
		g.augment = false
	}
}

func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

func NewGenerator(options ...Option) *Generator {
	g := &Generator{ // Default values
		goroutines:   1,
		episodes:     DefaultEpisodes,
		cutoff:       DefaultCutoff,
		exploreMoves: DefaultExploreMoves,
		augment:      true,
		seed:         uint64(time.Now().UnixNano()),
		logger:       log.Logger,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

type position struct {
	input  []float64
	policy []float64
	player string
}

// Play runs one self-play game and returns its examples together with the
// search totals of the game. A cancelled context abandons the game.
func (g *Generator) Play(ctx context.Context, net *network.Network, board config.Board) ([]network.Example, report.Metrics, error) {
	if err := net.Validate(board); err != nil {
		return nil, nil, err
	}

	seed := g.seed + g.games.Add(1)
	options := []searcher.Option{
		searcher.WithCutoff(g.cutoff),
		searcher.WithEvaluationFn(net.Evaluate),
		searcher.WithSeed(seed),
		searcher.WithMetrics(),
	}
	if g.duration > 0 {
		options = append(options, searcher.WithDuration(g.duration))
	} else {
		options = append(options, searcher.WithEpisodes(g.episodes))
	}
	mcts := searcher.NewMCTS(g.goroutines, options...)
	player := agent.NewTrainingAgent(mcts, g.exploreMoves, seed)

	start := time.Now()
	var state game.State = game.NewPlacement(board, game.DefaultConnect(board.Side()))
	positions := []position{}
	var search searchTotals
	for ply := 0; !state.Over(); ply++ {
		move, policy, metric, err := player.FindMove(ctx, state, ply)
		if err != nil {
			return nil, nil, fmt.Errorf("search failed at ply %d: %w", ply, err)
		}
		search.add(metric)

		target := make([]float64, board.Squares())
		for m, p := range policy {
			target[m] = p
		}
		positions = append(positions, position{
			input:  state.Input(),
			policy: target,
			player: state.Player(),
		})

		state = state.Play(move)
	}

	winner := state.Winner()
	g.logger.Debug().Msgf("self-play game over after %d plies in %s, winner: %q", len(positions), time.Since(start), winner)

	return g.examples(board, positions, winner), search.metrics(len(positions)), nil
}

type searchTotals struct {
	episodes     int
	fullPlayouts int
	duration     time.Duration
}

func (s *searchTotals) add(metric searcher.SearchMetric) {
	s.episodes += metric.Episodes
	s.fullPlayouts += metric.FullPlayouts
	s.duration += metric.Duration
}

func (s *searchTotals) metrics(plies int) report.Metrics {
	return report.Metrics{
		"plies":                float64(plies),
		"search_episodes":      float64(s.episodes),
		"search_full_playouts": float64(s.fullPlayouts),
		"search_seconds":       s.duration.Seconds(),
	}
}

func (g *Generator) examples(board config.Board, positions []position, winner string) []network.Example {
	symmetries := 1
	if g.augment {
		symmetries = game.Symmetries
	}

	examples := make([]network.Example, 0, len(positions)*symmetries)
	for _, pos := range positions {
		outcome := 0.0
		switch winner {
		case "":
		case pos.player:
			outcome = 1
		default:
			outcome = -1
		}
		for sym := 0; sym < symmetries; sym++ {
			examples = append(examples, network.Example{
				Input:   game.TransformPlane(board, pos.input, sym),
				Policy:  game.TransformPlane(board, pos.policy, sym),
				Outcome: outcome,
			})
		}
	}
	return examples
}
