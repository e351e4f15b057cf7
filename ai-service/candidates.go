package main

import "sort"

const (
	// Candidate limits for the search root and for interior nodes.
	defaultRootCandidates  = 30
	defaultInnerCandidates = 20

	proximityRadius = 2
	threatRadius    = 1
)

type candidateMove struct {
	move         Move
	nearOpponent bool
	centerDist   int
}

// SmartMoves returns the candidate cells worth searching for player, most
// promising first, truncated to limit. An empty board yields only the center.
// Otherwise every empty cell within Chebyshev distance 2 of any stone is
// ranked by (adjacent to an opponent stone, closeness to center). Collection
// is row-major and the sort is stable, so ties keep row-major order; the
// search relies on this ordering being deterministic.
func (b Board) SmartMoves(player PlayerColor, limit int) []Move {
	if limit <= 0 {
		return nil
	}
	if b.moveCount == 0 {
		return []Move{{Row: BoardSize / 2, Col: BoardSize / 2}}
	}
	opponentCell := CellFromPlayer(otherPlayer(player))
	candidates := make([]candidateMove, 0, 64)
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if b.At(row, col) != CellEmpty {
				continue
			}
			if !b.hasStoneNear(row, col, proximityRadius) {
				continue
			}
			candidates = append(candidates, candidateMove{
				move:         Move{Row: row, Col: col},
				nearOpponent: b.hasCellNear(row, col, threatRadius, opponentCell),
				centerDist:   centerDistance(row, col),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].nearOpponent != candidates[j].nearOpponent {
			return candidates[i].nearOpponent
		}
		return candidates[i].centerDist < candidates[j].centerDist
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	moves := make([]Move, len(candidates))
	for i, cand := range candidates {
		moves[i] = cand.move
	}
	return moves
}

func (b Board) hasStoneNear(row, col, radius int) bool {
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, c := row+dr, col+dc
			if b.InBounds(r, c) && b.At(r, c) != CellEmpty {
				return true
			}
		}
	}
	return false
}

func (b Board) hasCellNear(row, col, radius int, cell Cell) bool {
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, c := row+dr, col+dc
			if b.InBounds(r, c) && b.At(r, c) == cell {
				return true
			}
		}
	}
	return false
}

func centerDistance(row, col int) int {
	return abs(row-BoardSize/2) + abs(col-BoardSize/2)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
