package main

import (
	"context"
	"testing"
)

func newTestEvaluator() (*HeuristicEvaluator, *ConfigStore) {
	store := NewConfigStore(DefaultConfig())
	return NewHeuristicEvaluator(store), store
}

func TestEvaluateZeroSum(t *testing.T) {
	eval, _ := newTestEvaluator()
	board := NewBoard()
	board.MakeMove(7, 7, PlayerBlack)
	board.MakeMove(7, 8, PlayerBlack)
	board.MakeMove(5, 5, PlayerWhite)
	board.MakeMove(5, 6, PlayerWhite)
	board.MakeMove(5, 7, PlayerWhite)

	forBlack := eval.Evaluate(board, PlayerBlack)
	forWhite := eval.Evaluate(board, PlayerWhite)
	if forBlack != -forWhite {
		t.Fatalf("expected zero-sum scores, got %f and %f", forBlack, forWhite)
	}
}

func TestEvaluateOpenThreeCountedOnce(t *testing.T) {
	eval, store := newTestEvaluator()
	weights := store.Get().Heuristics
	board := NewBoard()
	for col := 5; col < 8; col++ {
		board.MakeMove(7, col, PlayerBlack)
	}
	// One run of three with both ends empty, anchored once at its start
	// stone. Every other direction sees only length-1 runs, which score 0.
	score := eval.Evaluate(board, PlayerBlack)
	if score != weights.OpenThree {
		t.Fatalf("expected open-three score %f, got %f", weights.OpenThree, score)
	}
}

func TestEvaluateBlockedRunScoresLower(t *testing.T) {
	eval, store := newTestEvaluator()
	weights := store.Get().Heuristics
	board := NewBoard()
	for col := 5; col < 8; col++ {
		board.MakeMove(7, col, PlayerBlack)
	}
	board.MakeMove(7, 4, PlayerWhite)

	score := eval.Evaluate(board, PlayerBlack)
	if score != weights.Three {
		t.Fatalf("expected blocked-three score %f, got %f", weights.Three, score)
	}
}

func TestEvaluateEdgeRunIsBlocked(t *testing.T) {
	eval, store := newTestEvaluator()
	weights := store.Get().Heuristics
	board := NewBoard()
	// Run touching the board edge: the out-of-bounds end is not open.
	board.MakeMove(0, 0, PlayerBlack)
	board.MakeMove(0, 1, PlayerBlack)
	board.MakeMove(0, 2, PlayerBlack)

	score := eval.Evaluate(board, PlayerBlack)
	if score != weights.Three {
		t.Fatalf("expected blocked-three score %f at edge, got %f", weights.Three, score)
	}
}

func TestEvaluateFiveDominates(t *testing.T) {
	eval, store := newTestEvaluator()
	weights := store.Get().Heuristics
	board := NewBoard()
	for col := 3; col < 8; col++ {
		board.MakeMove(7, col, PlayerBlack)
	}
	score := eval.Evaluate(board, PlayerBlack)
	if score != weights.Five {
		t.Fatalf("expected five score %f, got %f", weights.Five, score)
	}
}

func TestEvaluateCacheFollowsWeightChanges(t *testing.T) {
	eval, store := newTestEvaluator()
	board := NewBoard()
	for col := 5; col < 8; col++ {
		board.MakeMove(7, col, PlayerBlack)
	}
	before := eval.Evaluate(board, PlayerBlack)

	config := store.Get()
	config.Heuristics.OpenThree = 2000
	if err := store.Update(config); err != nil {
		t.Fatalf("config update failed: %v", err)
	}
	after := eval.Evaluate(board, PlayerBlack)
	if after != 2000 {
		t.Fatalf("expected rescored 2000 after weight change, got %f (was %f)", after, before)
	}
}

func TestTopCandidateScoresOrdered(t *testing.T) {
	eval, _ := newTestEvaluator()
	board := NewBoard()
	for col := 4; col < 8; col++ {
		board.MakeMove(7, col, PlayerBlack)
	}
	board.MakeMove(6, 4, PlayerWhite)

	scores, err := TopCandidateScores(context.Background(), board, PlayerBlack, eval, defaultRootCandidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) == 0 {
		t.Fatalf("expected candidate scores")
	}
	for i := 1; i < len(scores); i++ {
		if scores[i-1].Score < scores[i].Score {
			t.Fatalf("scores not descending at %d: %f < %f", i, scores[i-1].Score, scores[i].Score)
		}
	}
	top := scores[0].Move
	if !(top.Equals(Move{Row: 7, Col: 3}) || top.Equals(Move{Row: 7, Col: 8})) {
		t.Fatalf("expected a five-completing top move, got (%d,%d)", top.Row, top.Col)
	}
}
