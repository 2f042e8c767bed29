package searcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"zero/game"

	"golang.org/x/exp/rand"
)

type Option func(mcts *MCTS)

// MCTS is a tree-parallel Monte Carlo tree search with virtual loss. Rollouts
// are random up to the cutoff depth, where the position is scored by the
// evaluation function.
type MCTS struct {
	goroutines int
	duration   time.Duration
	episodes   int
	cutoff     int
	evaluate   game.Evaluate
	seed       uint64
	searches   atomic.Uint64
	metrics    Collector
}

func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

func WithEpisodes(episodes int) Option {
	return func(m *MCTS) {
		if episodes > 0 {
			m.episodes = episodes
		}
	}
}

// WithCutoff limits rollouts to depth random moves. A depth of 0 evaluates
// new leaves directly.
func WithCutoff(depth int) Option {
	return func(m *MCTS) {
		if depth >= 0 {
			m.cutoff = depth
		}
	}
}

func WithEvaluationFn(evaluate game.Evaluate) Option {
	return func(m *MCTS) {
		if evaluate != nil {
			m.evaluate = evaluate
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.seed = seed
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = NewCollector()
	}
}

func NewMCTS(goroutines int, options ...Option) *MCTS {
	m := &MCTS{ // Default values
		goroutines: max(goroutines, 1),
		cutoff:     MaxCutoff,
		evaluate:   game.EvaluateNeutral,
		seed:       uint64(time.Now().UnixNano()),
		metrics:    NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.episodes <= 0 && m.duration <= 0 {
		panic("Must specify search episodes or duration")
	}
	return m
}

// Simulate searches from state and returns the root visit distribution over
// legal moves. A cancelled context abandons the search and returns its error.
func (m *MCTS) Simulate(ctx context.Context, state game.State) (map[game.Move]float64, SearchMetric, error) {
	if state.Over() {
		return nil, SearchMetric{}, errors.New("cannot search: game is over")
	}

	// Each search and each goroutine gets its own random stream
	base := m.seed + m.searches.Add(1)*uint64(m.goroutines+1)
	root := newDecision(nil, "", state, rand.New(rand.NewSource(base)))

	// Run simulations to collect statistics
	m.metrics.Start(m.goroutines, m.cutoff)
	if m.episodes > 0 {
		m.iterate(ctx, root, state, base)
	} else {
		m.countdown(ctx, root, state, base)
	}
	metric := m.metrics.Complete()

	if err := ctx.Err(); err != nil {
		return nil, metric, err
	}
	return root.Policy(), metric, nil
}

func (m *MCTS) iterate(ctx context.Context, root *decision, state game.State, base uint64) {
	task := make(chan any, m.episodes)
	for i := 0; i < m.episodes; i++ {
		task <- nil
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()

			for range task {
				if ctx.Err() != nil {
					return
				}
				m.simulate(root, state, rng)
				m.metrics.AddEpisode()
			}
		}(rand.New(rand.NewSource(base + uint64(i) + 1)))
	}

	wg.Wait()
}

func (m *MCTS) countdown(ctx context.Context, root *decision, state game.State, base uint64) {
	ctx, cancel := context.WithTimeout(ctx, m.duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()

			// At least one episode per goroutine so the root has a policy
			for {
				m.simulate(root, state, rng)
				m.metrics.AddEpisode()
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}(rand.New(rand.NewSource(base + uint64(i) + 1)))
	}

	wg.Wait()
}

func (m *MCTS) simulate(root *decision, state game.State, rng *rand.Rand) {
	newNode, newState := selectThenExpand(root, state, rng)
	player, score := rollout(newState, m.cutoff, m.evaluate, m.metrics, rng)
	backup(newNode, player, score)
}

func selectThenExpand(root *decision, state game.State, rng *rand.Rand) (*decision, game.State) {
	parent := root
	child, state, selected := parent.SelectOrExpand(state, rng)
	for selected && (child != parent) {
		parent = child
		child, state, selected = parent.SelectOrExpand(state, rng)
	}
	return child, state
}

func rollout(state game.State, cutoff int, evaluate game.Evaluate, metrics Collector, rng *rand.Rand) (string, float64) {
	depth := 0
	// Rollout till game over or for cutoff number of moves
	for !state.Over() && depth < cutoff {
		moves := state.LegalMoves()
		move := moves[rng.Intn(len(moves))] // Random rollout policy
		state = state.Play(move)
		depth++
	}

	if state.Over() { // Game over before cutoff
		metrics.AddFullPlayout()
		if winner := state.Winner(); winner != "" {
			return winner, Win
		}
		return state.Player(), Draw
	}

	// At cutoff state, return an evaluation score from current player's perspective
	return state.Player(), evaluate(state)
}

func backup(newNode *decision, player string, score float64) {
	node := newNode
	for node != nil {
		node = node.Backup(player, score)
	}
}
