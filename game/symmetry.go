package game

import "zero/config"

// Symmetries is the number of symmetries of a square board (the dihedral group)
const Symmetries = 8

// Transform maps a square to its image under symmetry sym in [0, Symmetries).
// Symmetry 0 is the identity. Symmetries 4-7 mirror before rotating.
func Transform(board config.Board, square int, sym int) int {
	side := board.Side()
	row, col := square/side, square%side
	if sym >= 4 {
		col = side - 1 - col
	}
	for i := 0; i < sym%4; i++ {
		row, col = col, side-1-row
	}
	return row*side + col
}

// TransformPlane applies symmetry sym to a per-square vector
func TransformPlane(board config.Board, plane []float64, sym int) []float64 {
	out := make([]float64, len(plane))
	for square, v := range plane {
		out[Transform(board, square, sym)] = v
	}
	return out
}
