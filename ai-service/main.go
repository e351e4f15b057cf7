package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const serviceVersion = "1.0.0"

type moveRequest struct {
	BoardState    [][]int `json:"board_state"`
	CurrentPlayer int     `json:"current_player"`
	Difficulty    string  `json:"difficulty"`
}

type moveResponse struct {
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Difficulty string `json:"difficulty"`
	Evaluator  string `json:"evaluator"`
	Nodes      int    `json:"nodes"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

type validateRequest struct {
	BoardState [][]int `json:"board_state"`
	Row        int     `json:"row"`
	Col        int     `json:"col"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

type gameOverRequest struct {
	BoardState  [][]int `json:"board_state"`
	LastMoveRow *int    `json:"last_move_row"`
	LastMoveCol *int    `json:"last_move_col"`
}

type gameOverResponse struct {
	GameOver bool `json:"game_over"`
	Winner   int  `json:"winner"`
	IsDraw   bool `json:"is_draw"`
}

type evaluateRequest struct {
	BoardState    [][]int `json:"board_state"`
	CurrentPlayer int     `json:"current_player"`
}

type evaluateResponse struct {
	Score    float64     `json:"score"`
	TopMoves []MoveScore `json:"top_moves"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func main() {
	config := LoadConfig()
	setupLogging(config.LogLevel)

	store := NewConfigStore(config)
	model := NewModelClient(store)
	heuristic := NewHeuristicEvaluator(store)
	learned := NewLearnedEvaluator(model, heuristic)
	registry, err := NewEngineRegistry(store, heuristic, learned)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine registry")
	}
	hub := NewAnalysisHub()

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := newRouter(registry, store, model, heuristic, hub)

	server := &http.Server{
		Addr:    store.Get().ListenAddr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx.Done())
		return nil
	})
	g.Go(func() error {
		model.PollHealth(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("ai-service listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("graceful shutdown failed")
			return server.Close()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("ai-service exiting after error")
		os.Exit(1)
	}
	log.Info().Msg("ai-service stopped")
}

func newRouter(registry *EngineRegistry, store *ConfigStore, model *ModelClient, heuristic Evaluator, hub *AnalysisHub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/api/move", func(w http.ResponseWriter, req *http.Request) {
		var payload moveRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload", err)
			return
		}
		board, err := BoardFromGrid(payload.BoardState)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		player, err := playerFromInt(payload.CurrentPlayer)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		difficulty := payload.Difficulty
		if difficulty == "" {
			difficulty = string(DifficultyMedium)
		}
		engine, err := registry.Engine(difficulty)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		if board.IsFull() {
			// Game-over detection is the caller's job; a full board has
			// no move to compute.
			writeError(w, http.StatusBadRequest, "board is full",
				errors.Wrap(ErrInvalidBoard, "no empty cell"))
			return
		}
		move, stats, err := engine.BestMove(board, player)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		hub.PublishSearch(difficulty, move, stats)
		writeJSON(w, http.StatusOK, moveResponse{
			Row:        move.Row,
			Col:        move.Col,
			Difficulty: difficulty,
			Evaluator:  stats.Evaluator,
			Nodes:      stats.Nodes,
			ElapsedMs:  stats.Elapsed.Milliseconds(),
		})
	})

	r.Post("/api/validate", func(w http.ResponseWriter, req *http.Request) {
		var payload validateRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload", err)
			return
		}
		board, err := BoardFromGrid(payload.BoardState)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, validateResponse{
			Valid: board.IsValidMove(payload.Row, payload.Col),
		})
	})

	r.Post("/api/game-over", func(w http.ResponseWriter, req *http.Request) {
		var payload gameOverRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload", err)
			return
		}
		board, err := BoardFromGrid(payload.BoardState)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gameOverStatus(board, payload.LastMoveRow, payload.LastMoveCol))
	})

	r.Post("/api/evaluate", func(w http.ResponseWriter, req *http.Request) {
		var payload evaluateRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload", err)
			return
		}
		board, err := BoardFromGrid(payload.BoardState)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		player, err := playerFromInt(payload.CurrentPlayer)
		if err != nil {
			writeBoundaryError(w, err)
			return
		}
		topMoves, err := TopCandidateScores(req.Context(), board, player, heuristic, store.Get().RootCandidates)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "evaluation failed", err)
			return
		}
		writeJSON(w, http.StatusOK, evaluateResponse{
			Score:    heuristic.Evaluate(board, player),
			TopMoves: topMoves,
		})
	})

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		modelHealth := model.Health()
		writeJSON(w, http.StatusOK, healthResponse{
			Status:      "healthy",
			Version:     serviceVersion,
			ModelLoaded: model.Ready(),
			Device:      modelHealth.Device,
		})
	})

	r.Get("/api/config", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, store.Get())
	})

	r.Post("/api/config", func(w http.ResponseWriter, req *http.Request) {
		var payload Config
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload", err)
			return
		}
		if err := store.Update(payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid config", err)
			return
		}
		writeJSON(w, http.StatusOK, store.Get())
	})

	r.Get("/ws/analysis", func(w http.ResponseWriter, req *http.Request) {
		serveAnalysisWS(hub, w, req)
	})

	return r
}

// gameOverStatus resolves the position's terminal state. With a last move the
// anchored win check suffices; without one the full board is scanned.
func gameOverStatus(board Board, lastRow, lastCol *int) gameOverResponse {
	var result gameOverResponse
	if lastRow != nil && lastCol != nil {
		if board.CheckWin(*lastRow, *lastCol) {
			winner, _ := PlayerFromCell(board.At(*lastRow, *lastCol))
			return gameOverResponse{GameOver: true, Winner: playerToInt(winner)}
		}
	} else if winner, won := board.ScanWin(); won {
		return gameOverResponse{GameOver: true, Winner: playerToInt(winner)}
	}
	if board.IsFull() {
		result.GameOver = true
		result.IsDraw = true
	}
	return result
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func playerToInt(player PlayerColor) int {
	if player == PlayerBlack {
		return 1
	}
	return 2
}

// playerFromInt maps the wire encoding to a player. Anything outside {1, 2}
// fails with ErrInvalidPlayer.
func playerFromInt(value int) (PlayerColor, error) {
	switch value {
	case 1:
		return PlayerBlack, nil
	case 2:
		return PlayerWhite, nil
	default:
		return PlayerBlack, errors.Wrapf(ErrInvalidPlayer, "player %d not in {1,2}", value)
	}
}

// writeBoundaryError maps the sentinel error kinds to HTTP statuses: bad
// input is the caller's fault, everything else is ours.
func writeBoundaryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidBoard):
		writeError(w, http.StatusBadRequest, "invalid board", err)
	case errors.Is(err, ErrInvalidPlayer):
		writeError(w, http.StatusBadRequest, "invalid player", err)
	case errors.Is(err, ErrUnknownDifficulty):
		writeError(w, http.StatusBadRequest, "unknown difficulty", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
