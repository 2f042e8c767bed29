package selfplay

import (
	"context"
	"testing"
	"time"

	"zero/config"
	"zero/game"
	"zero/network"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testBoard(t *testing.T, side int) config.Board {
	t.Helper()
	board, err := config.NewBoard(side)
	require.NoError(t, err)
	return board
}

func TestGeneratorPlay(t *testing.T) {
	board := testBoard(t, 3)
	net := network.New(board, 1)

	t.Run("one example per position", func(t *testing.T) {
		g := NewGenerator(WithEpisodes(50), WithSeed(1), WithoutAugmentation(), WithLogger(zerolog.Nop()))

		examples, _, err := g.Play(context.Background(), net, board)

		require.NoError(t, err)
		require.GreaterOrEqual(t, len(examples), 5, "A tic-tac-toe game lasts at least 5 plies")
		require.LessOrEqual(t, len(examples), 9)
		require.Equal(t, make([]float64, 9), examples[0].Input, "First position is the empty board")
		for _, example := range examples {
			require.Len(t, example.Input, 9)
			require.Len(t, example.Policy, 9)
			sum := 0.0
			for square, p := range example.Policy {
				if p > 0 {
					require.Zero(t, example.Input[square], "Policy should only cover empty squares")
				}
				sum += p
			}
			require.InDelta(t, 1.0, sum, 1e-9)
			require.Contains(t, []float64{-1, 0, 1}, example.Outcome)
		}
	})

	t.Run("outcomes alternate between players", func(t *testing.T) {
		g := NewGenerator(WithEpisodes(50), WithSeed(2), WithoutAugmentation(), WithLogger(zerolog.Nop()))

		examples, _, err := g.Play(context.Background(), net, board)

		require.NoError(t, err)
		for i := 1; i < len(examples); i++ {
			require.Equal(t, -examples[i-1].Outcome, examples[i].Outcome,
				"Consecutive positions belong to opposite players")
		}
	})

	t.Run("augmentation adds every symmetry", func(t *testing.T) {
		plain := NewGenerator(WithEpisodes(30), WithSeed(3), WithoutAugmentation(), WithLogger(zerolog.Nop()))
		augmented := NewGenerator(WithEpisodes(30), WithSeed(3), WithLogger(zerolog.Nop()))

		base, _, err := plain.Play(context.Background(), net, board)
		require.NoError(t, err)
		all, _, err := augmented.Play(context.Background(), net, board)
		require.NoError(t, err)

		require.Len(t, all, len(base)*game.Symmetries, "Same seed should replay the same game")
		for i, example := range base {
			require.Equal(t, example, all[i*game.Symmetries], "Identity symmetry comes first")
		}
	})

	t.Run("network must match the board", func(t *testing.T) {
		g := NewGenerator(WithEpisodes(10), WithLogger(zerolog.Nop()))

		_, _, err := g.Play(context.Background(), net, testBoard(t, 5))

		require.Error(t, err)
	})

	t.Run("cancelled context abandons the game", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		g := NewGenerator(WithEpisodes(10), WithLogger(zerolog.Nop()))

		examples, metrics, err := g.Play(ctx, net, board)

		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, examples)
		require.Nil(t, metrics)
	})

	t.Run("search totals of the game", func(t *testing.T) {
		g := NewGenerator(WithEpisodes(40), WithSeed(4), WithoutAugmentation(), WithLogger(zerolog.Nop()))

		examples, metrics, err := g.Play(context.Background(), net, board)

		require.NoError(t, err)
		require.Equal(t, float64(len(examples)), metrics["plies"])
		require.Equal(t, float64(40*len(examples)), metrics["search_episodes"], "Every ply should run the full episode budget")
		require.Positive(t, metrics["search_full_playouts"])
		require.LessOrEqual(t, metrics["search_full_playouts"], metrics["search_episodes"])
		require.Positive(t, metrics["search_seconds"])
	})

	t.Run("search bounded by duration", func(t *testing.T) {
		g := NewGenerator(WithSearchDuration(2*time.Millisecond), WithSeed(5), WithoutAugmentation(), WithLogger(zerolog.Nop()))

		examples, metrics, err := g.Play(context.Background(), net, board)

		require.NoError(t, err)
		require.NotEmpty(t, examples)
		require.Positive(t, metrics["search_episodes"])
		require.GreaterOrEqual(t, metrics["search_seconds"], (2*time.Millisecond).Seconds()*float64(len(examples)))
	})
}

func TestGeneratorOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		g := NewGenerator()

		require.Equal(t, DefaultExploreMoves, g.exploreMoves)
		require.Equal(t, DefaultEpisodes, g.episodes)
		require.Zero(t, g.duration)
		require.True(t, g.augment)
	})

	t.Run("explore moves", func(t *testing.T) {
		require.Zero(t, NewGenerator(WithExploreMoves(0)).exploreMoves, "Zero plays greedily from the first ply")
		require.Equal(t, 3, NewGenerator(WithExploreMoves(3)).exploreMoves)
		require.Equal(t, DefaultExploreMoves, NewGenerator(WithExploreMoves(-1)).exploreMoves, "Negative values are ignored")
	})

	t.Run("greedy games repeat with one goroutine", func(t *testing.T) {
		board := testBoard(t, 3)
		net := network.New(board, 1)
		play := func(seed uint64) []network.Example {
			g := NewGenerator(WithEpisodes(30), WithSeed(seed), WithExploreMoves(0), WithoutAugmentation(), WithLogger(zerolog.Nop()))
			examples, _, err := g.Play(context.Background(), net, board)
			require.NoError(t, err)
			return examples
		}

		require.Equal(t, play(6), play(6))
	})
}
