package game

import (
	"fmt"

	"zero/config"
)

const (
	empty int8 = iota
	black
	white
)

// Placement is a k-in-a-row placement game on an odd square board. Players
// alternate placing one stone on an empty square, black first. The first
// player with connect stones in a row, column or diagonal wins. A full board
// without a line is a draw.
type Placement struct {
	board   config.Board
	connect int
	cells   []int8
	toMove  int8
	winner  int8
	placed  int
}

// DefaultConnect returns the line length needed to win on a board of the given side
func DefaultConnect(side int) int {
	return min(side, 4)
}

func NewPlacement(board config.Board, connect int) *Placement {
	if connect < 1 || connect > board.Side() {
		panic(fmt.Sprintf("connect length %d does not fit a %s board", connect, board))
	}
	return &Placement{
		board:   board,
		connect: connect,
		cells:   make([]int8, board.Squares()),
		toMove:  black,
	}
}

func (p *Placement) Board() config.Board {
	return p.board
}

func (p *Placement) Player() string {
	return playerName(p.toMove)
}

func (p *Placement) LegalMoves() []Move {
	if p.Over() {
		return nil
	}
	moves := make([]Move, 0, len(p.cells)-p.placed)
	for i, cell := range p.cells {
		if cell == empty {
			moves = append(moves, Move(i))
		}
	}
	return moves
}

func (p *Placement) Play(move Move) State {
	if p.Over() {
		panic("cannot play: game is over")
	}
	if int(move) < 0 || int(move) >= len(p.cells) || p.cells[move] != empty {
		panic(fmt.Sprintf("cannot play: square %d is not available", move))
	}

	next := &Placement{
		board:   p.board,
		connect: p.connect,
		cells:   make([]int8, len(p.cells)),
		toMove:  opponent(p.toMove),
		placed:  p.placed + 1,
	}
	copy(next.cells, p.cells)
	next.cells[move] = p.toMove
	if next.completesLine(int(move)) {
		next.winner = p.toMove
	}
	return next
}

func (p *Placement) Winner() string {
	if p.winner == empty {
		return ""
	}
	return playerName(p.winner)
}

func (p *Placement) Over() bool {
	return p.winner != empty || p.placed == len(p.cells)
}

func (p *Placement) Input() []float64 {
	input := make([]float64, len(p.cells))
	for i, cell := range p.cells {
		switch cell {
		case p.toMove:
			input[i] = 1
		case opponent(p.toMove):
			input[i] = -1
		}
	}
	return input
}

// At returns the player occupying a square, or "" if it is empty
func (p *Placement) At(square int) string {
	if p.cells[square] == empty {
		return ""
	}
	return playerName(p.cells[square])
}

func (p *Placement) String() string {
	side := p.board.Side()
	buf := make([]byte, 0, (side+1)*side)
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			switch p.cells[row*side+col] {
			case black:
				buf = append(buf, 'X')
			case white:
				buf = append(buf, 'O')
			default:
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}

// completesLine reports whether the stone on square is part of a line of at
// least connect stones of the same color
func (p *Placement) completesLine(square int) bool {
	side := p.board.Side()
	row, col := square/side, square%side
	color := p.cells[square]
	directions := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, d := range directions {
		count := 1
		count += p.run(row, col, d[0], d[1], color)
		count += p.run(row, col, -d[0], -d[1], color)
		if count >= p.connect {
			return true
		}
	}
	return false
}

func (p *Placement) run(row, col, dr, dc int, color int8) int {
	side := p.board.Side()
	count := 0
	for {
		row, col = row+dr, col+dc
		if row < 0 || row >= side || col < 0 || col >= side {
			return count
		}
		if p.cells[row*side+col] != color {
			return count
		}
		count++
	}
}

func opponent(color int8) int8 {
	if color == black {
		return white
	}
	return black
}

func playerName(color int8) string {
	if color == black {
		return Black
	}
	return White
}
