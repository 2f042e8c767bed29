package game

// Player names
const (
	Black = "black"
	White = "white"
)

// Move is the index of the square a stone is placed on
type Move int

// State should be immutable - operations on State always return a new copy
type State interface {
	Player() string
	LegalMoves() []Move
	Play(Move) State
	// Winner returns the winning player, or "" while the game is in progress or drawn
	Winner() string
	Over() bool
	// Input encodes the position from the perspective of the player to move:
	// +1 for own stones, -1 for opponent stones, 0 for empty squares.
	Input() []float64
}

// Evaluates the game state to a score between -1 and 1 indicating how
// favorable the current player's position is to a winning (positive) outcome.
type Evaluate func(State) float64

// EvaluateNeutral scores every position as even
func EvaluateNeutral(State) float64 {
	return 0
}
