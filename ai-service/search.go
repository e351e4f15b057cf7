package main

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// winScore matches the five weight so forced-win sentinels dominate
	// every leaf score a position without a five can produce.
	winScore       = 100000
	maxSearchDepth = 4
)

type SearchStats struct {
	Nodes     int
	Depth     int
	Elapsed   time.Duration
	Evaluator string
}

// SearchEngine picks moves by depth-limited minimax with alpha-beta pruning.
// Engines keep no per-search state and are safe for concurrent use; every
// hypothetical move happens on a board copy.
type SearchEngine struct {
	maxDepth  int
	evaluator Evaluator
	evalName  string
	store     *ConfigStore
}

func NewSearchEngine(maxDepth int, evaluator Evaluator, evalName string, store *ConfigStore) *SearchEngine {
	return &SearchEngine{
		maxDepth:  maxDepth,
		evaluator: evaluator,
		evalName:  evalName,
		store:     store,
	}
}

type searchContext struct {
	rootPlayer PlayerColor
	innerLimit int
	stats      *SearchStats
}

// BestMove returns the strongest move found for player. Forced outcomes are
// resolved before any search: a win in one is taken, then the opponent's win
// in one is blocked; minimax cannot prefer the block on its own once every
// reply to an open four scores as the same forced loss. Ties between
// candidate scores keep the first candidate in priority order.
func (e *SearchEngine) BestMove(board Board, player PlayerColor) (Move, SearchStats, error) {
	stats := SearchStats{Depth: e.maxDepth, Evaluator: e.evalName}
	if !validPlayer(player) {
		return Move{}, stats, errors.Wrapf(ErrInvalidPlayer, "player %d", int(player))
	}
	start := time.Now()

	if move, ok := winInOne(board, player); ok {
		stats.Elapsed = time.Since(start)
		return move, stats, nil
	}
	if move, ok := winInOne(board, otherPlayer(player)); ok {
		stats.Elapsed = time.Since(start)
		return move, stats, nil
	}

	config := e.store.Get()
	moves := board.SmartMoves(player, config.RootCandidates)
	if len(moves) == 0 {
		// Full board; callers are expected to check game over first.
		stats.Elapsed = time.Since(start)
		return Move{Row: BoardSize / 2, Col: BoardSize / 2}, stats, nil
	}

	sc := &searchContext{
		rootPlayer: player,
		innerLimit: config.InnerCandidates,
		stats:      &stats,
	}
	bestMove := moves[0]
	bestScore := math.Inf(-1)
	for _, move := range moves {
		child := board.Copy()
		child.MakeMove(move.Row, move.Col, player)
		score := e.minimax(child, e.maxDepth-1, math.Inf(-1), math.Inf(1), false, sc)
		if score > bestScore {
			bestScore = score
			bestMove = move
		}
	}
	stats.Elapsed = time.Since(start)
	log.Debug().
		Int("nodes", stats.Nodes).
		Int("depth", e.maxDepth).
		Float64("score", bestScore).
		Str("evaluator", e.evalName).
		Msg("search complete")
	return bestMove, stats, nil
}

func (e *SearchEngine) minimax(board Board, depth int, alpha, beta float64, maximizing bool, sc *searchContext) float64 {
	sc.stats.Nodes++
	if depth == 0 {
		return e.evaluator.Evaluate(board, sc.rootPlayer)
	}
	current := sc.rootPlayer
	if !maximizing {
		current = otherPlayer(sc.rootPlayer)
	}
	moves := board.SmartMoves(current, sc.innerLimit)
	if len(moves) == 0 || board.IsFull() {
		return e.evaluator.Evaluate(board, sc.rootPlayer)
	}
	if maximizing {
		best := math.Inf(-1)
		for _, move := range moves {
			child := board.Copy()
			child.MakeMove(move.Row, move.Col, current)
			if child.CheckWin(move.Row, move.Col) {
				// Faster wins score higher.
				return winScore - float64(e.maxDepth-depth)
			}
			score := e.minimax(child, depth-1, alpha, beta, false, sc)
			best = math.Max(best, score)
			alpha = math.Max(alpha, score)
			if beta <= alpha {
				break
			}
		}
		return best
	}
	best := math.Inf(1)
	for _, move := range moves {
		child := board.Copy()
		child.MakeMove(move.Row, move.Col, current)
		if child.CheckWin(move.Row, move.Col) {
			// Slower losses score higher.
			return -winScore + float64(e.maxDepth-depth)
		}
		score := e.minimax(child, depth-1, alpha, beta, true, sc)
		best = math.Min(best, score)
		beta = math.Min(beta, score)
		if beta <= alpha {
			break
		}
	}
	return best
}

// winInOne finds the first empty cell, row-major, that completes a five for
// player.
func winInOne(board Board, player PlayerColor) (Move, bool) {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if !board.IsValidMove(row, col) {
				continue
			}
			probe := board.Copy()
			probe.MakeMove(row, col, player)
			if probe.CheckWin(row, col) {
				return Move{Row: row, Col: col}, true
			}
		}
	}
	return Move{}, false
}
