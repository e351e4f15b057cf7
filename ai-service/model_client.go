package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const modelMemoSize = 1 << 12

type modelEvalRequest struct {
	BoardState    [][]int `json:"board_state"`
	CurrentPlayer int     `json:"current_player"`
}

type modelEvalResponse struct {
	Value float64 `json:"value"`
}

// ModelHealth is the inference service's health payload, proxied through
// this service's own /api/health.
type ModelHealth struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
}

// ModelClient talks to the long-lived model inference process. The model
// returns a position value in [-1,1]; Evaluate rescales it into the search's
// score range. Inference runs behind a single-flight group plus a mutex so
// one position in flight is asked once and the model device is never hit
// concurrently.
type ModelClient struct {
	client  *http.Client
	baseURL string
	store   *ConfigStore

	flight singleflight.Group
	infer  sync.Mutex
	memo   *evalCache

	mu      sync.RWMutex
	health  ModelHealth
	healthy bool
}

func NewModelClient(store *ConfigStore) *ModelClient {
	config := store.Get()
	return &ModelClient{
		client: &http.Client{
			Timeout: time.Duration(config.ModelTimeoutMs) * time.Millisecond,
		},
		baseURL: strings.TrimRight(config.ModelBaseURL, "/"),
		store:   store,
		memo:    newEvalCache(modelMemoSize, evalCacheBuckets),
	}
}

// Ready reports whether the last health probe saw a loaded model.
func (mc *ModelClient) Ready() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.healthy
}

// Health returns the last probed model health.
func (mc *ModelClient) Health() ModelHealth {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.health
}

// PollHealth keeps the readiness flag fresh until ctx is done.
func (mc *ModelClient) PollHealth(ctx context.Context) {
	interval := time.Duration(mc.store.Get().ModelPollMs) * time.Millisecond
	for {
		mc.probe()
		if !sleepWithContext(ctx, interval) {
			return
		}
	}
}

func (mc *ModelClient) probe() {
	var health ModelHealth
	err := mc.getJSON("/health", &health)
	mc.mu.Lock()
	wasReady := mc.healthy
	if err != nil {
		mc.healthy = false
		mc.health = ModelHealth{Status: "unreachable"}
	} else {
		mc.health = health
		mc.healthy = health.ModelLoaded && health.Status == "healthy"
	}
	nowReady := mc.healthy
	mc.mu.Unlock()
	if nowReady && !wasReady {
		log.Info().Str("device", health.Device).Str("version", health.Version).
			Msg("model evaluator ready")
	}
	if !nowReady && wasReady {
		log.Warn().Err(err).Msg("model evaluator unavailable")
	}
}

func (mc *ModelClient) markUnavailable() {
	mc.mu.Lock()
	mc.healthy = false
	mc.mu.Unlock()
}

// Evaluate asks the model for a value of the position from forPlayer's
// perspective, scaled by the configured learned scale. Any failure comes
// back wrapping ErrEvaluatorUnavailable so callers can degrade.
func (mc *ModelClient) Evaluate(board Board, forPlayer PlayerColor) (float64, error) {
	if !mc.Ready() {
		return 0, errors.Wrap(ErrEvaluatorUnavailable, "model not ready")
	}
	payload, err := json.Marshal(modelEvalRequest{
		BoardState:    board.Grid(),
		CurrentPlayer: playerToInt(forPlayer),
	})
	if err != nil {
		return 0, errors.Wrap(ErrEvaluatorUnavailable, "encode inference request")
	}
	key := xxhash.Checksum64(payload)
	if value, ok := mc.memo.get(key); ok {
		return mc.scaled(value), nil
	}
	result, err, _ := mc.flight.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		var reply modelEvalResponse
		mc.infer.Lock()
		err := mc.postJSON("/evaluate", payload, &reply)
		mc.infer.Unlock()
		if err != nil {
			return 0.0, err
		}
		value := math.Max(-1, math.Min(1, reply.Value))
		mc.memo.put(key, value)
		return value, nil
	})
	if err != nil {
		mc.markUnavailable()
		return 0, errors.Wrapf(ErrEvaluatorUnavailable, "model inference: %v", err)
	}
	return mc.scaled(result.(float64)), nil
}

func (mc *ModelClient) scaled(value float64) float64 {
	return value * mc.store.Get().LearnedScale
}

func (mc *ModelClient) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, mc.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := mc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("GET %s -> %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (mc *ModelClient) postJSON(path string, body []byte, out any) error {
	req, err := http.NewRequest(http.MethodPost, mc.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := mc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("POST %s -> %d: %s", path, resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// LearnedEvaluator scores through the model client and falls back to the
// static evaluator whenever the model cannot answer, so difficulty levels
// that want the model degrade instead of failing.
type LearnedEvaluator struct {
	model    *ModelClient
	fallback Evaluator
}

func NewLearnedEvaluator(model *ModelClient, fallback Evaluator) *LearnedEvaluator {
	return &LearnedEvaluator{model: model, fallback: fallback}
}

func (l *LearnedEvaluator) Evaluate(board Board, forPlayer PlayerColor) float64 {
	score, err := l.model.Evaluate(board, forPlayer)
	if err != nil {
		log.Debug().Err(err).Msg("model evaluation failed, using heuristic")
		return l.fallback.Evaluate(board, forPlayer)
	}
	return score
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
