package main

import (
	"testing"

	"github.com/pkg/errors"
)

func newTestRegistry(t *testing.T) *EngineRegistry {
	t.Helper()
	store := NewConfigStore(DefaultConfig())
	heuristic := NewHeuristicEvaluator(store)
	learned := NewLearnedEvaluator(NewModelClient(store), heuristic)
	registry, err := NewEngineRegistry(store, heuristic, learned)
	if err != nil {
		t.Fatalf("registry construction failed: %v", err)
	}
	return registry
}

func TestEngineRegistryLevels(t *testing.T) {
	registry := newTestRegistry(t)
	cases := []struct {
		name      string
		depth     int
		evaluator string
	}{
		{"easy", 1, "heuristic"},
		{"medium", 2, "heuristic"},
		{"hard", 3, "learned"},
		{"expert", 4, "learned"},
	}
	for _, tc := range cases {
		engine, err := registry.Engine(tc.name)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if engine.maxDepth != tc.depth {
			t.Fatalf("%s: expected depth %d, got %d", tc.name, tc.depth, engine.maxDepth)
		}
		if engine.evalName != tc.evaluator {
			t.Fatalf("%s: expected evaluator %s, got %s", tc.name, tc.evaluator, engine.evalName)
		}
	}
}

func TestEngineRegistryUnknownDifficulty(t *testing.T) {
	registry := newTestRegistry(t)
	for _, name := range []string{"", "impossible", "EASY"} {
		if _, err := registry.Engine(name); !errors.Is(err, ErrUnknownDifficulty) {
			t.Fatalf("difficulty %q: expected ErrUnknownDifficulty, got %v", name, err)
		}
	}
}
