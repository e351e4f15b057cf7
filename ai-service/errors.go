package main

import "github.com/pkg/errors"

// Error kinds surfaced at operation boundaries. Search internals never return
// errors: on a validated board every copy and move application succeeds.
var (
	ErrInvalidBoard         = errors.New("invalid board")
	ErrInvalidPlayer        = errors.New("invalid player")
	ErrUnknownDifficulty    = errors.New("unknown difficulty")
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
)
