package main

import "github.com/pkg/errors"

const (
	BoardSize = 15
	WinLength = 5

	boardCells = BoardSize * BoardSize
)

// Cell values match the wire encoding: 0 empty, 1 black, 2 white.
type Cell int

const (
	CellEmpty Cell = iota
	CellBlack
	CellWhite
)

type PlayerColor int

const (
	PlayerBlack PlayerColor = iota
	PlayerWhite
)

type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func NewMove(row, col int) Move {
	return Move{Row: row, Col: col}
}

func (m Move) IsValid() bool {
	return m.Row >= 0 && m.Col >= 0 && m.Row < BoardSize && m.Col < BoardSize
}

func (m Move) Equals(other Move) bool {
	return m.Row == other.Row && m.Col == other.Col
}

func otherPlayer(player PlayerColor) PlayerColor {
	if player == PlayerBlack {
		return PlayerWhite
	}
	return PlayerBlack
}

func validPlayer(player PlayerColor) bool {
	return player == PlayerBlack || player == PlayerWhite
}

func CellFromPlayer(player PlayerColor) Cell {
	if player == PlayerBlack {
		return CellBlack
	}
	return CellWhite
}

func PlayerFromCell(cell Cell) (PlayerColor, bool) {
	switch cell {
	case CellBlack:
		return PlayerBlack, true
	case CellWhite:
		return PlayerWhite, true
	default:
		return PlayerBlack, false
	}
}

func (c Cell) String() string {
	switch c {
	case CellBlack:
		return "Black"
	case CellWhite:
		return "White"
	default:
		return "Empty"
	}
}

func (p PlayerColor) String() string {
	if p == PlayerBlack {
		return "Black"
	}
	return "White"
}

// Board is a fixed 15x15 Gomoku position. The cell grid is shared between
// value copies, so search code must call Copy before every hypothetical move;
// mutation never crosses a Copy boundary.
type Board struct {
	cells     []Cell
	moveCount int
	hash      uint64
}

func NewBoard() Board {
	return Board{cells: make([]Cell, boardCells)}
}

// BoardFromGrid restores a board from the wire format: exactly 15 rows of 15
// ints with values in {0, 1, 2}. Anything else fails with ErrInvalidBoard.
func BoardFromGrid(grid [][]int) (Board, error) {
	if len(grid) != BoardSize {
		return Board{}, errors.Wrapf(ErrInvalidBoard, "expected %d rows, got %d", BoardSize, len(grid))
	}
	b := NewBoard()
	for row, line := range grid {
		if len(line) != BoardSize {
			return Board{}, errors.Wrapf(ErrInvalidBoard, "row %d: expected %d cells, got %d", row, BoardSize, len(line))
		}
		for col, value := range line {
			if value < 0 || value > 2 {
				return Board{}, errors.Wrapf(ErrInvalidBoard, "cell (%d,%d): value %d not in {0,1,2}", row, col, value)
			}
			if value == 0 {
				continue
			}
			b.cells[boardIndex(row, col)] = Cell(value)
			b.moveCount++
		}
	}
	b.hash = computeBoardHash(b)
	return b, nil
}

// Grid serializes back to the wire format.
func (b Board) Grid() [][]int {
	grid := make([][]int, BoardSize)
	for row := 0; row < BoardSize; row++ {
		line := make([]int, BoardSize)
		for col := 0; col < BoardSize; col++ {
			line[col] = int(b.At(row, col))
		}
		grid[row] = line
	}
	return grid
}

func boardIndex(row, col int) int {
	return row*BoardSize + col
}

func (b Board) At(row, col int) Cell {
	return b.cells[boardIndex(row, col)]
}

func (b Board) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < BoardSize && col < BoardSize
}

func (b Board) IsValidMove(row, col int) bool {
	return b.InBounds(row, col) && b.At(row, col) == CellEmpty
}

// MakeMove places a stone iff the move is valid and the player is one of the
// two real colors. It reports false and leaves the board untouched otherwise;
// illegal moves are a query result here, not an error, because search probes
// moves in tight loops.
func (b *Board) MakeMove(row, col int, player PlayerColor) bool {
	if !validPlayer(player) || !b.IsValidMove(row, col) {
		return false
	}
	cell := CellFromPlayer(player)
	b.cells[boardIndex(row, col)] = cell
	b.moveCount++
	b.hash ^= zobrist.stone(row, col, cell)
	return true
}

func (b Board) MoveCount() int {
	return b.moveCount
}

func (b Board) IsFull() bool {
	return b.moveCount == boardCells
}

// Hash is the Zobrist hash of the position, maintained incrementally.
func (b Board) Hash() uint64 {
	return b.hash
}

var lineDirections = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// CheckWin reports whether the stone at the just-played cell sits in a run of
// five or more. Only the 4 axes through that cell are walked, so the check is
// O(1) in board size; ScanWin covers the no-anchor case.
func (b Board) CheckWin(row, col int) bool {
	if !b.InBounds(row, col) {
		return false
	}
	cell := b.At(row, col)
	if cell == CellEmpty {
		return false
	}
	for _, dir := range lineDirections {
		count := 1
		count += b.countRun(row, col, dir[0], dir[1], cell)
		count += b.countRun(row, col, -dir[0], -dir[1], cell)
		if count >= WinLength {
			return true
		}
	}
	return false
}

func (b Board) countRun(row, col, dr, dc int, cell Cell) int {
	count := 0
	r, c := row+dr, col+dc
	for b.InBounds(r, c) && b.At(r, c) == cell {
		count++
		r += dr
		c += dc
	}
	return count
}

// ScanWin finds a winner without an anchor move by scanning the whole board.
func (b Board) ScanWin() (PlayerColor, bool) {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			cell := b.At(row, col)
			if cell == CellEmpty {
				continue
			}
			for _, dir := range lineDirections {
				// Only count runs from their first stone.
				prevRow, prevCol := row-dir[0], col-dir[1]
				if b.InBounds(prevRow, prevCol) && b.At(prevRow, prevCol) == cell {
					continue
				}
				if 1+b.countRun(row, col, dir[0], dir[1], cell) >= WinLength {
					player, _ := PlayerFromCell(cell)
					return player, true
				}
			}
		}
	}
	return PlayerBlack, false
}

func (b Board) ValidMoves() []Move {
	moves := make([]Move, 0, boardCells-b.moveCount)
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if b.At(row, col) == CellEmpty {
				moves = append(moves, Move{Row: row, Col: col})
			}
		}
	}
	return moves
}

// Copy returns an independent board; mutating one never affects the other.
func (b Board) Copy() Board {
	clone := Board{moveCount: b.moveCount, hash: b.hash}
	clone.cells = make([]Cell, boardCells)
	copy(clone.cells, b.cells)
	return clone
}
