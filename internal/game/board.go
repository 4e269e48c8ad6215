// Package game implements the 3x3 Tic-Tac-Toe rule engine run by a game
// host: board state, win/draw detection, and the box-drawing board
// rendering, ported from original_source/game.py.
package game

import (
	"fmt"
	"math/rand"
	"strings"
)

// Sign identifies what occupies a cell: empty, X (player 1), or O (player 2).
type Sign int

const (
	Empty Sign = iota
	X
	O
)

func (s Sign) String() string {
	switch s {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return " "
	}
}

// Board is a 3x3 Tic-Tac-Toe game in progress.
type Board struct {
	cells [3][3]Sign
	turn  Sign // whose move is next: X or O
}

// New creates a board whose first move belongs to firstTurn (X or O).
func New(firstTurn Sign) *Board {
	if firstTurn != X && firstTurn != O {
		panic("game: first turn must be X or O")
	}
	return &Board{turn: firstTurn}
}

// Turn returns whose move is next.
func (b *Board) Turn() Sign { return b.turn }

func (b *Board) changeTurn() {
	if b.turn == X {
		b.turn = O
	} else {
		b.turn = X
	}
}

// IsCoordValid reports whether (x, y) is within the 3x3 grid.
func (b *Board) IsCoordValid(x, y int) bool {
	return x >= 0 && x <= 2 && y >= 0 && y <= 2
}

// IsCellEmpty reports whether (x, y) is unoccupied. Caller must ensure the
// coordinate is valid first.
func (b *Board) IsCellEmpty(x, y int) bool {
	return b.cells[x][y] == Empty
}

// Put places the current turn's sign at (x, y) and advances the turn.
// Panics if the game is already finished or the cell is occupied — callers
// (the host's /put handler) are expected to validate first, matching
// original_source/game.py's put().
func (b *Board) Put(x, y int) {
	if b.IsFinished() {
		panic("game: board is already finished")
	}
	if !b.IsCellEmpty(x, y) {
		panic("game: cell is not empty")
	}
	b.cells[x][y] = b.turn
	b.changeTurn()
}

// Winner returns the winning sign, or Empty if there is no winner yet.
func (b *Board) Winner() Sign {
	c := &b.cells
	for i := 0; i < 3; i++ {
		if c[i][0] != Empty && c[i][0] == c[i][1] && c[i][1] == c[i][2] {
			return c[i][0]
		}
		if c[0][i] != Empty && c[0][i] == c[1][i] && c[1][i] == c[2][i] {
			return c[0][i]
		}
	}
	if c[0][0] != Empty && c[0][0] == c[1][1] && c[1][1] == c[2][2] {
		return c[0][0]
	}
	if c[0][2] != Empty && c[0][2] == c[1][1] && c[1][1] == c[2][0] {
		return c[0][2]
	}
	return Empty
}

// IsDraw reports whether the board is full with no winner.
func (b *Board) IsDraw() bool {
	if b.Winner() != Empty {
		return false
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if b.cells[i][j] == Empty {
				return false
			}
		}
	}
	return true
}

// IsFinished reports whether the game has a winner or is a draw.
func (b *Board) IsFinished() bool {
	return b.Winner() != Empty || b.IsDraw()
}

// RandomPlay plays a uniformly random empty cell for the current turn and
// returns the coordinate played. Used for the computer opponent in solo
// play and, per original_source/game.py, also reused there as a generic
// "play anywhere" helper.
func (b *Board) RandomPlay() (x, y int) {
	if b.IsFinished() {
		panic("game: board is already finished")
	}
	var choices [][2]int
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if b.cells[i][j] == Empty {
				choices = append(choices, [2]int{i, j})
			}
		}
	}
	pick := choices[rand.Intn(len(choices))]
	b.Put(pick[0], pick[1])
	return pick[0], pick[1]
}

// RenderBoard draws the current board using box-drawing characters, the
// same layout as original_source/game.py's get_board_as_string.
func (b *Board) RenderBoard() string {
	var sb strings.Builder
	sb.WriteString("┏━━━┳━━━┳━━━┓\n")
	for row := 0; row < 3; row++ {
		fmt.Fprintf(&sb, "┃ %s ┃ %s ┃ %s ┃\n", b.cells[row][0], b.cells[row][1], b.cells[row][2])
		if row < 2 {
			sb.WriteString("┣━━━╋━━━╋━━━┫\n")
		}
	}
	sb.WriteString("┗━━━┻━━━┻━━━┛\n")
	return sb.String()
}

// RenderHelpBoard draws the coordinate legend shown by the host's /help
// command, the same layout as get_help_board_as_string.
func RenderHelpBoard() string {
	var sb strings.Builder
	sb.WriteString("┏━━━━━━━━┳━━━━━━━━┳━━━━━━━━┓\n")
	for row := 0; row < 3; row++ {
		sb.WriteString("┃        ┃        ┃        ┃\n")
		fmt.Fprintf(&sb, "┃ (%d, 0) ┃ (%d, 1) ┃ (%d, 2) ┃\n", row, row, row)
		sb.WriteString("┃        ┃        ┃        ┃\n")
		if row < 2 {
			sb.WriteString("┣━━━━━━━━╋━━━━━━━━╋━━━━━━━━┫\n")
		}
	}
	sb.WriteString("┗━━━━━━━━┻━━━━━━━━┻━━━━━━━━┛\n")
	return sb.String()
}

// RandomFirstTurn picks X or O with equal probability, matching
// original_source's np.random.randint(1, 3) seed for who moves first.
func RandomFirstTurn() Sign {
	if rand.Intn(2) == 0 {
		return X
	}
	return O
}
