package main

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Evaluator scores a position from forPlayer's perspective, positive when the
// position favors that player. Implementations must not mutate the board and
// must be safe for concurrent calls.
type Evaluator interface {
	Evaluate(board Board, forPlayer PlayerColor) float64
}

// HeuristicEvaluator is the pattern-based static evaluator: the player's run
// scores minus the opponent's, so the result is zero-sum between the two
// perspectives. Pure function of (position, weights), memoized.
type HeuristicEvaluator struct {
	store *ConfigStore
	cache *evalCache
}

func NewHeuristicEvaluator(store *ConfigStore) *HeuristicEvaluator {
	return &HeuristicEvaluator{
		store: store,
		cache: newEvalCache(evalCacheSize, evalCacheBuckets),
	}
}

func (h *HeuristicEvaluator) Evaluate(board Board, forPlayer PlayerColor) float64 {
	weights, fingerprint := h.store.Weights()
	key := board.Hash() ^ zobrist.perspective[forPlayer] ^ fingerprint
	if score, ok := h.cache.get(key); ok {
		return score
	}
	own := patternScore(board, CellFromPlayer(forPlayer), weights)
	opp := patternScore(board, CellFromPlayer(otherPlayer(forPlayer)), weights)
	score := own - opp
	h.cache.put(key, score)
	return score
}

// patternScore sums the run table over every run of cell's color. A run is
// counted exactly once, from the stone whose predecessor along the axis is
// not the same color; its two boundary cells decide open versus blocked.
func patternScore(board Board, cell Cell, weights HeuristicWeights) float64 {
	score := 0.0
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if board.At(row, col) != cell {
				continue
			}
			for _, dir := range lineDirections {
				prevRow, prevCol := row-dir[0], col-dir[1]
				if board.InBounds(prevRow, prevCol) && board.At(prevRow, prevCol) == cell {
					continue
				}
				length := 1
				r, c := row+dir[0], col+dir[1]
				for board.InBounds(r, c) && board.At(r, c) == cell {
					length++
					r += dir[0]
					c += dir[1]
				}
				if length < 2 {
					continue
				}
				openEnds := 0
				if board.InBounds(prevRow, prevCol) && board.At(prevRow, prevCol) == CellEmpty {
					openEnds++
				}
				if board.InBounds(r, c) && board.At(r, c) == CellEmpty {
					openEnds++
				}
				score += runScore(length, openEnds, weights)
			}
		}
	}
	return score
}

func runScore(length, openEnds int, weights HeuristicWeights) float64 {
	if length >= WinLength {
		return weights.Five
	}
	open := openEnds == 2
	switch length {
	case 4:
		if open {
			return weights.OpenFour
		}
		return weights.Four
	case 3:
		if open {
			return weights.OpenThree
		}
		return weights.Three
	case 2:
		if open {
			return weights.OpenTwo
		}
		return weights.Two
	}
	return 0
}

type MoveScore struct {
	Move  Move    `json:"move"`
	Score float64 `json:"score"`
}

// TopCandidateScores statically scores each candidate move one ply deep, in
// parallel, and returns them highest first. Ties keep candidate priority
// order. Board copies make the parallel evaluation safe.
func TopCandidateScores(ctx context.Context, board Board, player PlayerColor, eval Evaluator, limit int) ([]MoveScore, error) {
	moves := board.SmartMoves(player, limit)
	scores := make([]MoveScore, len(moves))
	g, _ := errgroup.WithContext(ctx)
	for i, move := range moves {
		i, move := i, move
		g.Go(func() error {
			after := board.Copy()
			after.MakeMove(move.Row, move.Col, player)
			scores[i] = MoveScore{Move: move, Score: eval.Evaluate(after, player)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

const (
	evalCacheSize    = 1 << 15
	evalCacheBuckets = 2
)

type evalCacheEntry struct {
	key   uint64
	score float64
	valid bool
}

// evalCache is a small direct-mapped cache with a fixed bucket fan-out per
// slot. Evaluators are shared across concurrent searches, hence the lock.
type evalCache struct {
	mu      sync.RWMutex
	mask    uint64
	buckets int
	entries []evalCacheEntry
}

func newEvalCache(size uint64, buckets int) *evalCache {
	if buckets <= 0 {
		buckets = 2
	}
	if size < 1 {
		size = 1
	}
	if size&(size-1) != 0 {
		size = nextPowerOfTwo(size)
	}
	return &evalCache{
		mask:    size - 1,
		buckets: buckets,
		entries: make([]evalCacheEntry, int(size)*buckets),
	}
}

func nextPowerOfTwo(v uint64) uint64 {
	power := uint64(1)
	for power < v {
		power <<= 1
	}
	return power
}

func (ec *evalCache) bucketIndex(key uint64) int {
	return int(key&ec.mask) * ec.buckets
}

func (ec *evalCache) get(key uint64) (float64, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	start := ec.bucketIndex(key)
	for i := 0; i < ec.buckets; i++ {
		entry := ec.entries[start+i]
		if entry.valid && entry.key == key {
			return entry.score, true
		}
	}
	return 0, false
}

func (ec *evalCache) put(key uint64, score float64) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	start := ec.bucketIndex(key)
	victim := start
	for i := 0; i < ec.buckets; i++ {
		idx := start + i
		entry := ec.entries[idx]
		if entry.valid && entry.key == key {
			ec.entries[idx].score = score
			return
		}
		if !entry.valid {
			victim = idx
			break
		}
	}
	ec.entries[victim] = evalCacheEntry{key: key, score: score, valid: true}
}
