package searcher

import "zero/game"

type mockState struct {
	player string
	moves  []game.Move
	played []game.Move
	winner string
}

func (m mockState) Player() string {
	return m.player
}

func (m mockState) LegalMoves() []game.Move {
	return append([]game.Move(nil), m.moves...)
}

func (m mockState) Play(move game.Move) game.State {
	return mockState{played: append(append([]game.Move(nil), m.played...), move)}
}

func (m mockState) Winner() string {
	return m.winner
}

func (m mockState) Over() bool {
	return len(m.moves) == 0
}

func (m mockState) Input() []float64 {
	return nil
}
