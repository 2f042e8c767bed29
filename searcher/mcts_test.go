package searcher

import (
	"context"
	"testing"
	"time"

	"zero/config"
	"zero/game"

	"github.com/stretchr/testify/require"
)

func ticTacToe(t *testing.T, moves ...game.Move) game.State {
	t.Helper()
	board, err := config.NewBoard(3)
	require.NoError(t, err)
	var state game.State = game.NewPlacement(board, 3)
	for _, move := range moves {
		state = state.Play(move)
	}
	return state
}

func TestNewMCTS(t *testing.T) {
	require.Panics(t, func() { NewMCTS(1) }, "Should panic without episodes or duration")
	require.NotPanics(t, func() { NewMCTS(1, WithEpisodes(1)) })
	require.NotPanics(t, func() { NewMCTS(0, WithDuration(time.Millisecond)) })
}

func TestMCTSSimulate(t *testing.T) {
	t.Run("finds the winning move", func(t *testing.T) {
		// X X . / O O . / . . .
		state := ticTacToe(t, 0, 3, 1, 4)
		mcts := NewMCTS(4, WithEpisodes(2000), WithSeed(7), WithMetrics())

		policy, metric, err := mcts.Simulate(context.Background(), state)

		require.NoError(t, err)
		require.Len(t, policy, 5, "Every legal move should be explored")
		for move, p := range policy {
			if move != 2 {
				require.Greater(t, policy[2], p, "Winning move should get the most visits")
			}
		}
		require.Equal(t, 2000, metric.Episodes)
		require.Equal(t, 4, metric.Goroutines)
		require.Positive(t, metric.FullPlayouts)
	})

	t.Run("policy sums to one", func(t *testing.T) {
		state := ticTacToe(t)
		mcts := NewMCTS(2, WithEpisodes(200), WithSeed(1))

		policy, _, err := mcts.Simulate(context.Background(), state)

		require.NoError(t, err)
		sum := 0.0
		for _, p := range policy {
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9)
	})

	t.Run("evaluation at cutoff", func(t *testing.T) {
		state := ticTacToe(t)
		evaluations := 0
		evaluate := func(game.State) float64 {
			evaluations++
			return 0
		}
		mcts := NewMCTS(1, WithEpisodes(20), WithCutoff(0), WithEvaluationFn(evaluate))

		_, _, err := mcts.Simulate(context.Background(), state)

		require.NoError(t, err)
		require.Equal(t, 20, evaluations, "Every episode should evaluate its new leaf")
	})

	t.Run("duration budget", func(t *testing.T) {
		state := ticTacToe(t)
		mcts := NewMCTS(2, WithDuration(20*time.Millisecond), WithMetrics())

		policy, metric, err := mcts.Simulate(context.Background(), state)

		require.NoError(t, err)
		require.NotEmpty(t, policy)
		require.Positive(t, metric.Episodes)
		require.GreaterOrEqual(t, metric.Duration, 20*time.Millisecond)
	})

	t.Run("expired duration still explores", func(t *testing.T) {
		state := ticTacToe(t)
		mcts := NewMCTS(3, WithDuration(time.Nanosecond), WithMetrics())

		policy, metric, err := mcts.Simulate(context.Background(), state)

		require.NoError(t, err)
		require.NotEmpty(t, policy, "Every goroutine should run at least one episode")
		require.GreaterOrEqual(t, metric.Episodes, 3)
	})

	t.Run("cancelled search", func(t *testing.T) {
		state := ticTacToe(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		mcts := NewMCTS(2, WithEpisodes(1000))

		policy, _, err := mcts.Simulate(ctx, state)

		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, policy)
	})

	t.Run("game over", func(t *testing.T) {
		state := ticTacToe(t, 0, 3, 1, 4, 2)
		mcts := NewMCTS(1, WithEpisodes(10))

		_, _, err := mcts.Simulate(context.Background(), state)

		require.Error(t, err)
	})
}
