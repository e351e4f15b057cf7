package main

// Zobrist keys for the fixed 15x15 board, generated once from a fixed seed so
// position hashes are stable across processes and restarts.
type zobristTable struct {
	stones [boardCells * 2]uint64
	// One key per player color, folded into eval cache keys so the same
	// position evaluated for Black and for White never collides.
	perspective [2]uint64
}

var zobrist = newZobristTable(0x9e3779b97f4a7c15)

func newZobristTable(seed uint64) *zobristTable {
	rng := splitmix64{state: seed}
	table := &zobristTable{}
	for i := range table.stones {
		table.stones[i] = rng.next()
	}
	for i := range table.perspective {
		table.perspective[i] = rng.next()
	}
	return table
}

func (z *zobristTable) stone(row, col int, cell Cell) uint64 {
	idx := boardIndex(row, col) * 2
	if cell == CellWhite {
		idx++
	}
	return z.stones[idx]
}

func computeBoardHash(b Board) uint64 {
	var hash uint64
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			cell := b.At(row, col)
			if cell == CellEmpty {
				continue
			}
			hash ^= zobrist.stone(row, col, cell)
		}
	}
	return hash
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
