package game

import (
	"testing"

	"zero/config"

	"github.com/stretchr/testify/require"
)

func newBoard(t *testing.T, side int) config.Board {
	t.Helper()
	board, err := config.NewBoard(side)
	require.NoError(t, err)
	return board
}

func playAll(t *testing.T, state State, moves ...Move) State {
	t.Helper()
	for _, move := range moves {
		state = state.Play(move)
	}
	return state
}

func TestPlacementNew(t *testing.T) {
	board := newBoard(t, 7)
	state := NewPlacement(board, DefaultConnect(board.Side()))

	require.Equal(t, Black, state.Player(), "Black should move first")
	require.Len(t, state.LegalMoves(), 49, "Every square should be legal on an empty board")
	require.False(t, state.Over())
	require.Equal(t, "", state.Winner())
	require.Equal(t, make([]float64, 49), state.Input())

	require.Panics(t, func() { NewPlacement(board, 0) })
	require.Panics(t, func() { NewPlacement(board, 8) })
}

func TestPlacementPlay(t *testing.T) {
	t.Run("play returns a new state", func(t *testing.T) {
		board := newBoard(t, 3)
		state := NewPlacement(board, 3)

		next := state.Play(4)

		require.Equal(t, "", state.At(4), "Previous state should not change")
		require.Equal(t, Black, next.(*Placement).At(4))
		require.Equal(t, White, next.Player())
		require.NotContains(t, next.LegalMoves(), Move(4))
		require.Len(t, next.LegalMoves(), 8)
	})

	t.Run("occupied square panics", func(t *testing.T) {
		board := newBoard(t, 3)
		state := NewPlacement(board, 3).Play(4)

		require.Panics(t, func() { state.Play(4) })
		require.Panics(t, func() { state.Play(-1) })
		require.Panics(t, func() { state.Play(9) })
	})

	t.Run("input is from the mover's perspective", func(t *testing.T) {
		board := newBoard(t, 3)
		state := playAll(t, NewPlacement(board, 3), 0, 1)

		require.Equal(t, Black, state.Player())
		require.Equal(t, []float64{1, -1, 0, 0, 0, 0, 0, 0, 0}, state.Input())

		state = state.Play(2)
		require.Equal(t, []float64{-1, 1, -1, 0, 0, 0, 0, 0, 0}, state.Input())
	})
}

func TestPlacementWinner(t *testing.T) {
	tests := []struct {
		name   string
		side   int
		moves  []Move
		winner string
	}{
		{"row", 3, []Move{0, 3, 1, 4, 2}, Black},
		{"column", 3, []Move{1, 0, 4, 3, 8, 6}, White},
		{"diagonal", 3, []Move{0, 1, 4, 2, 8}, Black},
		{"anti-diagonal", 3, []Move{2, 0, 4, 1, 6}, Black},
		{"four in a row on 7x7", 7, []Move{10, 0, 11, 1, 12, 2, 13}, Black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := newBoard(t, tt.side)
			state := playAll(t, NewPlacement(board, DefaultConnect(tt.side)), tt.moves...)

			require.True(t, state.Over())
			require.Equal(t, tt.winner, state.Winner())
			require.Empty(t, state.LegalMoves())
			require.Panics(t, func() { state.Play(Move(len(state.Input()) - 1)) })
		})
	}

	t.Run("three in a row does not win on 7x7", func(t *testing.T) {
		board := newBoard(t, 7)
		state := playAll(t, NewPlacement(board, 4), 10, 0, 11, 1, 12)

		require.False(t, state.Over())
		require.Equal(t, "", state.Winner())
	})

	t.Run("full board without a line is a draw", func(t *testing.T) {
		board := newBoard(t, 3)
		// X O X / X O O / O X X
		state := playAll(t, NewPlacement(board, 3), 0, 1, 2, 4, 3, 5, 7, 6, 8)

		require.True(t, state.Over())
		require.Equal(t, "", state.Winner())
		require.Empty(t, state.LegalMoves())
	})

	t.Run("single square board is won by the first move", func(t *testing.T) {
		board := newBoard(t, 1)
		state := NewPlacement(board, DefaultConnect(1)).Play(0)

		require.Equal(t, Black, state.Winner())
	})
}

func TestPlacementString(t *testing.T) {
	board := newBoard(t, 3)
	state := playAll(t, NewPlacement(board, 3), 0, 4)

	require.Equal(t, "X..\n.O.\n...\n", state.(*Placement).String())
}
