package main

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func newTestEngine(depth int) (*SearchEngine, *ConfigStore) {
	store := NewConfigStore(DefaultConfig())
	eval := NewHeuristicEvaluator(store)
	return NewSearchEngine(depth, eval, "heuristic", store), store
}

func TestBestMoveEmptyBoardIsCenter(t *testing.T) {
	engine, _ := newTestEngine(1)
	move, _, err := engine.BestMove(NewBoard(), PlayerBlack)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !move.Equals(Move{Row: 7, Col: 7}) {
		t.Fatalf("expected center (7,7), got (%d,%d)", move.Row, move.Col)
	}
}

func TestBestMoveTakesImmediateWin(t *testing.T) {
	for depth := 1; depth <= maxSearchDepth; depth++ {
		engine, _ := newTestEngine(depth)
		board := NewBoard()
		for col := 5; col < 9; col++ {
			board.MakeMove(7, col, PlayerBlack)
		}
		move, _, err := engine.BestMove(board, PlayerBlack)
		if err != nil {
			t.Fatalf("depth %d: unexpected error: %v", depth, err)
		}
		if !move.Equals(Move{Row: 7, Col: 4}) && !move.Equals(Move{Row: 7, Col: 9}) {
			t.Fatalf("depth %d: expected winning completion, got (%d,%d)", depth, move.Row, move.Col)
		}
		probe := board.Copy()
		probe.MakeMove(move.Row, move.Col, PlayerBlack)
		if !probe.CheckWin(move.Row, move.Col) {
			t.Fatalf("depth %d: chosen move does not win", depth)
		}
	}
}

func TestBestMoveBlocksOpenFour(t *testing.T) {
	for depth := 1; depth <= maxSearchDepth; depth++ {
		engine, _ := newTestEngine(depth)
		board := NewBoard()
		for col := 5; col < 9; col++ {
			board.MakeMove(7, col, PlayerBlack)
		}
		move, _, err := engine.BestMove(board, PlayerWhite)
		if err != nil {
			t.Fatalf("depth %d: unexpected error: %v", depth, err)
		}
		if !move.Equals(Move{Row: 7, Col: 4}) && !move.Equals(Move{Row: 7, Col: 9}) {
			t.Fatalf("depth %d: expected a blocking cell, got (%d,%d)", depth, move.Row, move.Col)
		}
	}
}

func TestBestMoveInvalidPlayer(t *testing.T) {
	engine, _ := newTestEngine(2)
	_, _, err := engine.BestMove(NewBoard(), PlayerColor(5))
	if !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("expected ErrInvalidPlayer, got %v", err)
	}
}

func TestBestMoveFullBoardFallsBackToCenter(t *testing.T) {
	engine, _ := newTestEngine(2)
	board := NewBoard()
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			player := PlayerWhite
			if (row+2*col)%4 < 2 {
				player = PlayerBlack
			}
			board.MakeMove(row, col, player)
		}
	}
	move, _, err := engine.BestMove(board, PlayerBlack)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !move.Equals(Move{Row: 7, Col: 7}) {
		t.Fatalf("expected center fallback, got (%d,%d)", move.Row, move.Col)
	}
}

func TestBestMoveDeterministic(t *testing.T) {
	board := NewBoard()
	board.MakeMove(7, 7, PlayerBlack)
	board.MakeMove(6, 6, PlayerWhite)
	board.MakeMove(7, 8, PlayerBlack)

	engine, _ := newTestEngine(2)
	first, _, err := engine.BestMove(board, PlayerWhite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, _, err := engine.BestMove(board, PlayerWhite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !again.Equals(first) {
			t.Fatalf("search not deterministic: (%d,%d) then (%d,%d)",
				first.Row, first.Col, again.Row, again.Col)
		}
	}
}

func TestMinimaxDepthZeroIsStaticEval(t *testing.T) {
	engine, _ := newTestEngine(2)
	board := NewBoard()
	board.MakeMove(7, 7, PlayerBlack)
	board.MakeMove(8, 8, PlayerWhite)
	board.MakeMove(7, 8, PlayerBlack)

	stats := SearchStats{}
	sc := &searchContext{rootPlayer: PlayerBlack, innerLimit: defaultInnerCandidates, stats: &stats}
	got := engine.minimax(board, 0, math.Inf(-1), math.Inf(1), true, sc)
	want := engine.evaluator.Evaluate(board, PlayerBlack)
	if got != want {
		t.Fatalf("expected static eval %f at depth 0, got %f", want, got)
	}
	if stats.Nodes != 1 {
		t.Fatalf("expected exactly one node, got %d", stats.Nodes)
	}
}

// plainMinimax mirrors SearchEngine.minimax without alpha-beta cutoffs; the
// pruned search must produce the same value for the same position and
// candidate order.
func plainMinimax(e *SearchEngine, board Board, depth int, maximizing bool, sc *searchContext) float64 {
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
	best := math.Inf(-1)
	if !maximizing {
		best = math.Inf(1)
	}
	for _, move := range moves {
		child := board.Copy()
		child.MakeMove(move.Row, move.Col, current)
		if child.CheckWin(move.Row, move.Col) {
			if maximizing {
				return winScore - float64(e.maxDepth-depth)
			}
			return -winScore + float64(e.maxDepth-depth)
		}
		score := plainMinimax(e, child, depth-1, !maximizing, sc)
		if maximizing {
			best = math.Max(best, score)
		} else {
			best = math.Min(best, score)
		}
	}
	return best
}

func TestAlphaBetaMatchesPlainMinimax(t *testing.T) {
	board := NewBoard()
	board.MakeMove(7, 7, PlayerBlack)
	board.MakeMove(7, 8, PlayerWhite)
	board.MakeMove(8, 7, PlayerBlack)
	board.MakeMove(6, 6, PlayerWhite)
	board.MakeMove(8, 8, PlayerBlack)

	engine, store := newTestEngine(3)
	config := store.Get()
	sc := &searchContext{
		rootPlayer: PlayerWhite,
		innerLimit: config.InnerCandidates,
		stats:      &SearchStats{},
	}
	for _, move := range board.SmartMoves(PlayerWhite, config.RootCandidates) {
		child := board.Copy()
		child.MakeMove(move.Row, move.Col, PlayerWhite)
		if child.CheckWin(move.Row, move.Col) {
			continue
		}
		pruned := engine.minimax(child, engine.maxDepth-1, math.Inf(-1), math.Inf(1), false, sc)
		plain := plainMinimax(engine, child, engine.maxDepth-1, false, sc)
		if pruned != plain {
			t.Fatalf("move (%d,%d): pruned %f != plain %f", move.Row, move.Col, pruned, plain)
		}
	}
}

func TestMinimaxPrefersFasterWin(t *testing.T) {
	engine, _ := newTestEngine(4)
	// Sentinel bias: a win reached with more remaining depth scores
	// strictly higher, a loss reached sooner strictly lower.
	fast := winScore - float64(engine.maxDepth-3)
	slow := winScore - float64(engine.maxDepth-1)
	if fast <= slow {
		t.Fatalf("expected faster win to outscore slower win: %f vs %f", fast, slow)
	}
	fastLoss := -winScore + float64(engine.maxDepth-3)
	slowLoss := -winScore + float64(engine.maxDepth-1)
	if fastLoss >= slowLoss {
		t.Fatalf("expected faster loss to score below slower loss: %f vs %f", fastLoss, slowLoss)
	}
}
