package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when a parameter is outside its legal range.
// Configuration errors are never retried: fix the value and restart.
var ErrInvalidConfiguration = errors.New("config: invalid configuration")

// DefaultBoardSize is the side length of the board
const DefaultBoardSize = 7

// Board is the fixed board geometry of a run. The side length must be odd.
type Board struct {
	side int
}

func NewBoard(side int) (Board, error) {
	if side < 1 {
		return Board{}, fmt.Errorf("%w: board size %d must be positive", ErrInvalidConfiguration, side)
	}
	if side%2 == 0 {
		return Board{}, fmt.Errorf("%w: board size %d must be odd", ErrInvalidConfiguration, side)
	}
	return Board{side: side}, nil
}

func (b Board) Side() int {
	return b.side
}

// Squares returns the number of squares on the board (side * side)
func (b Board) Squares() int {
	return b.side * b.side
}

// Center returns the index of the center square
func (b Board) Center() int {
	return b.Squares() / 2
}

func (b Board) String() string {
	return fmt.Sprintf("%dx%d", b.side, b.side)
}
