package agent

import (
	"context"
	"math"
	"sort"

	"zero/game"
	"zero/searcher"

	"golang.org/x/exp/rand"
)

type Agent interface {
	// FindMove returns the move to play, the search policy it was chosen from,
	// and the search metrics (if collected)
	FindMove(ctx context.Context, state game.State, ply int) (game.Move, map[game.Move]float64, searcher.SearchMetric, error)
}

type trainingAgent struct {
	mcts         *searcher.MCTS
	rng          *rand.Rand
	exploreMoves int
}

// NewTrainingAgent returns a new agent for self-play during training. The first
// exploreMoves plies are sampled proportionally to the search policy, later
// plies play the most visited move.
func NewTrainingAgent(mcts *searcher.MCTS, exploreMoves int, seed uint64) Agent {
	return &trainingAgent{
		mcts:         mcts,
		rng:          rand.New(rand.NewSource(seed)),
		exploreMoves: exploreMoves,
	}
}

func (a *trainingAgent) FindMove(ctx context.Context, state game.State, ply int) (game.Move, map[game.Move]float64, searcher.SearchMetric, error) {
	policy, metric, err := a.mcts.Simulate(ctx, state)
	if err != nil {
		return 0, nil, metric, err
	}
	if ply < a.exploreMoves {
		return sample(adjustTemperature(policy, 1.0), a.rng), policy, metric, nil
	}
	return findMax(policy), policy, metric, nil
}

func adjustTemperature(policy map[game.Move]float64, temperature float64) map[game.Move]float64 {
	// Compute temperature-adjusted move probabilities
	exponent := 1.0 / temperature
	sum := 0.0
	adjusted := make(map[game.Move]float64, len(policy))
	for move, visit := range policy {
		prob := math.Pow(visit, exponent)
		sum += prob
		adjusted[move] = prob
	}
	// Normalize
	for move := range adjusted {
		adjusted[move] /= sum
	}
	return adjusted
}

func sample(policy map[game.Move]float64, rng *rand.Rand) game.Move {
	// Iterate in move order so a seeded generator draws the same move from the
	// same policy. Policies only repeat when the search runs on one goroutine.
	moves := sortedMoves(policy)
	sampled := rng.Float64()
	cumulative := 0.0
	for _, move := range moves {
		cumulative += policy[move]
		if sampled < cumulative {
			return move
		}
	}
	return moves[len(moves)-1] // Fallback in case of rounding errors
}

func findMax(policy map[game.Move]float64) game.Move {
	moves := sortedMoves(policy)
	maxMove := moves[0]
	for _, move := range moves[1:] {
		if policy[move] > policy[maxMove] {
			maxMove = move
		}
	}
	return maxMove
}

func sortedMoves(policy map[game.Move]float64) []game.Move {
	moves := make([]game.Move, 0, len(policy))
	for move := range policy {
		moves = append(moves, move)
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i] < moves[j] })
	return moves
}
