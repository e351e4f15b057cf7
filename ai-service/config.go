package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
)

// HeuristicWeights scores the pattern runs the static evaluator finds. A run
// is open when both extension ends are empty in-bounds cells; the plain
// variant covers runs with one or zero open ends.
type HeuristicWeights struct {
	Five      float64 `json:"five"`
	OpenFour  float64 `json:"open_four"`
	Four      float64 `json:"four"`
	OpenThree float64 `json:"open_three"`
	Three     float64 `json:"three"`
	OpenTwo   float64 `json:"open_two"`
	Two       float64 `json:"two"`
}

type Config struct {
	ListenAddr      string           `json:"listen_addr"`
	LogLevel        string           `json:"log_level"`
	ModelBaseURL    string           `json:"model_base_url"`
	ModelTimeoutMs  int              `json:"model_timeout_ms"`
	ModelPollMs     int              `json:"model_poll_ms"`
	LearnedScale    float64          `json:"learned_scale"`
	RootCandidates  int              `json:"root_candidates"`
	InnerCandidates int              `json:"inner_candidates"`
	Heuristics      HeuristicWeights `json:"heuristics"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:     ":8000",
		LogLevel:       "info",
		ModelBaseURL:   "http://model-inference:5000",
		ModelTimeoutMs: 2000,
		ModelPollMs:    5000,

		// Learned values land in [-1,1]; scaled they must stay below the
		// forced-win sentinel floor so a verified five always outranks them.
		LearnedScale: 8000,

		RootCandidates:  defaultRootCandidates,
		InnerCandidates: defaultInnerCandidates,

		Heuristics: HeuristicWeights{
			Five:      100000,
			OpenFour:  10000,
			Four:      5000,
			OpenThree: 1000,
			Three:     100,
			OpenTwo:   50,
			Two:       10,
		},
	}
}

// LoadConfig starts from defaults and applies AI_* environment overrides.
func LoadConfig() Config {
	config := DefaultConfig()
	config.ListenAddr = getenv("AI_LISTEN_ADDR", config.ListenAddr)
	config.LogLevel = getenv("AI_LOG_LEVEL", config.LogLevel)
	config.ModelBaseURL = getenv("AI_MODEL_BASE_URL", config.ModelBaseURL)
	config.ModelTimeoutMs = getenvInt("AI_MODEL_TIMEOUT_MS", config.ModelTimeoutMs)
	config.ModelPollMs = getenvInt("AI_MODEL_POLL_MS", config.ModelPollMs)
	config.LearnedScale = getenvFloat("AI_LEARNED_SCALE", config.LearnedScale)
	config.RootCandidates = getenvInt("AI_ROOT_CANDIDATES", config.RootCandidates)
	config.InnerCandidates = getenvInt("AI_INNER_CANDIDATES", config.InnerCandidates)
	return config
}

// ConfigStore is the single mutable configuration holder, shared by handlers
// and evaluators. The weights fingerprint is precomputed on every update so
// eval cache keys stay cheap on the hot path.
type ConfigStore struct {
	mu        sync.RWMutex
	config    Config
	weightsFP uint64
}

func NewConfigStore(config Config) *ConfigStore {
	resolved := resolvedConfig(config)
	return &ConfigStore{
		config:    resolved,
		weightsFP: weightsFingerprint(resolved.Heuristics),
	}
}

func (s *ConfigStore) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Weights returns the current heuristic weights together with their
// fingerprint, under one lock acquisition.
func (s *ConfigStore) Weights() (HeuristicWeights, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Heuristics, s.weightsFP
}

// Update merges zero fields from defaults, validates, and swaps the config.
func (s *ConfigStore) Update(newConfig Config) error {
	resolved := resolvedConfig(newConfig)
	if err := validateConfig(resolved); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = resolved
	s.weightsFP = weightsFingerprint(resolved.Heuristics)
	s.mu.Unlock()
	return nil
}

// resolvedConfig fills unset fields from defaults so partial JSON updates
// keep the rest of the running configuration.
func resolvedConfig(config Config) Config {
	defaults := DefaultConfig()
	if config.ListenAddr == "" {
		config.ListenAddr = defaults.ListenAddr
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.ModelBaseURL == "" {
		config.ModelBaseURL = defaults.ModelBaseURL
	}
	if config.ModelTimeoutMs <= 0 {
		config.ModelTimeoutMs = defaults.ModelTimeoutMs
	}
	if config.ModelPollMs <= 0 {
		config.ModelPollMs = defaults.ModelPollMs
	}
	if config.LearnedScale == 0 {
		config.LearnedScale = defaults.LearnedScale
	}
	if config.RootCandidates == 0 {
		config.RootCandidates = defaults.RootCandidates
	}
	if config.InnerCandidates == 0 {
		config.InnerCandidates = defaults.InnerCandidates
	}
	config.Heuristics = resolvedWeights(config.Heuristics)
	return config
}

func resolvedWeights(weights HeuristicWeights) HeuristicWeights {
	defaults := DefaultConfig().Heuristics
	if weights == (HeuristicWeights{}) {
		return defaults
	}
	if weights.Five == 0 {
		weights.Five = defaults.Five
	}
	if weights.OpenFour == 0 {
		weights.OpenFour = defaults.OpenFour
	}
	if weights.Four == 0 {
		weights.Four = defaults.Four
	}
	if weights.OpenThree == 0 {
		weights.OpenThree = defaults.OpenThree
	}
	if weights.Three == 0 {
		weights.Three = defaults.Three
	}
	if weights.OpenTwo == 0 {
		weights.OpenTwo = defaults.OpenTwo
	}
	if weights.Two == 0 {
		weights.Two = defaults.Two
	}
	return weights
}

func validateConfig(config Config) error {
	if config.RootCandidates <= 0 || config.InnerCandidates <= 0 {
		return errors.Errorf("candidate limits must be positive: root=%d inner=%d",
			config.RootCandidates, config.InnerCandidates)
	}
	if config.LearnedScale <= 0 || config.LearnedScale >= winScore-maxSearchDepth {
		return errors.Errorf("learned_scale %v out of range (0, %v)",
			config.LearnedScale, float64(winScore-maxSearchDepth))
	}
	weights := config.Heuristics
	for name, value := range map[string]float64{
		"five":       weights.Five,
		"open_four":  weights.OpenFour,
		"four":       weights.Four,
		"open_three": weights.OpenThree,
		"three":      weights.Three,
		"open_two":   weights.OpenTwo,
		"two":        weights.Two,
	} {
		if value <= 0 {
			return errors.Errorf("heuristic weight %s must be positive, got %v", name, value)
		}
	}
	return nil
}

// weightsFingerprint hashes the weight vector so cached evaluations are
// invalidated the moment the weights change.
func weightsFingerprint(weights HeuristicWeights) uint64 {
	buf := make([]byte, 0, 7*8)
	for _, value := range []float64{
		weights.Five,
		weights.OpenFour,
		weights.Four,
		weights.OpenThree,
		weights.Three,
		weights.OpenTwo,
		weights.Two,
	} {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(value))
	}
	return xxhash.Checksum64(buf)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(value, "%f", &parsed); err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
