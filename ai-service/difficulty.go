package main

import "github.com/pkg/errors"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

type difficultyLevel struct {
	depth   int
	learned bool
}

// difficultyTable is the fixed strength policy: search depth and whether the
// learned evaluator backs the leaves. Read-only for the process lifetime.
var difficultyTable = map[Difficulty]difficultyLevel{
	DifficultyEasy:   {depth: 1, learned: false},
	DifficultyMedium: {depth: 2, learned: false},
	DifficultyHard:   {depth: 3, learned: true},
	DifficultyExpert: {depth: 4, learned: true},
}

// EngineRegistry holds one engine per difficulty, built once at startup and
// passed to request handlers.
type EngineRegistry struct {
	engines map[Difficulty]*SearchEngine
}

func NewEngineRegistry(store *ConfigStore, heuristic, learned Evaluator) (*EngineRegistry, error) {
	engines := make(map[Difficulty]*SearchEngine, len(difficultyTable))
	for name, level := range difficultyTable {
		if level.depth < 1 || level.depth > maxSearchDepth {
			return nil, errors.Errorf("difficulty %s: depth %d out of range [1,%d]",
				name, level.depth, maxSearchDepth)
		}
		evaluator := heuristic
		evalName := "heuristic"
		if level.learned {
			evaluator = learned
			evalName = "learned"
		}
		engines[name] = NewSearchEngine(level.depth, evaluator, evalName, store)
	}
	return &EngineRegistry{engines: engines}, nil
}

// Engine resolves a difficulty name. Unknown names fail with
// ErrUnknownDifficulty, never a silent default.
func (r *EngineRegistry) Engine(name string) (*SearchEngine, error) {
	engine, ok := r.engines[Difficulty(name)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDifficulty, "difficulty %q", name)
	}
	return engine, nil
}
