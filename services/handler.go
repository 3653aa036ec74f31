package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/game"
	"github.com/mming1274-7/True-Name-RPG-FHE/metrics"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// GameHandler exposes the engine's entry points over HTTP and records
// match notifications.
type GameHandler struct {
	engine *game.Engine
	store  BatchStore
	log    *slog.Logger

	mu      sync.RWMutex
	results map[uint64][]game.MatchResult
}

// NewGameHandler creates a handler over engine, persisting through store.
// It registers itself as the engine's result callback.
func NewGameHandler(engine *game.Engine, store BatchStore, log *slog.Logger) *GameHandler {
	h := &GameHandler{
		engine:  engine,
		store:   store,
		log:     log,
		results: make(map[uint64][]game.MatchResult),
	}
	engine.SetResultCallback(h.onMatch)
	return h
}

func (h *GameHandler) onMatch(m game.MatchResult) {
	h.mu.Lock()
	h.results[m.BatchID] = append(h.results[m.BatchID], m)
	h.mu.Unlock()

	metrics.Counter("truename_matches_total").Inc()
	h.log.Info("True name guessed",
		"batchID", m.BatchID,
		"attacker", m.Attacker.String(),
		"defender", m.Defender.String())
}

// RegisterRoutes registers the game and callback routes.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Post("/batch/open", h.handleOpen)
	r.Post("/batch/{id}/secret", h.handleSecret)
	r.Post("/batch/{id}/guess", h.handleGuess)
	r.Post("/batch/{id}/close", h.handleClose)
	r.Post("/batch/{id}/request-decryption", h.handleRequestDecryption)
	r.Get("/batch/{id}", h.handleGetBatch)
	r.Get("/results/{id}", h.handleGetResults)

	r.Post("/oracle/callback", h.handleOracleCallback)
}

// statusForError maps the engine's failure taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, game.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, game.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, game.ErrUnknownBatch), errors.Is(err, game.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, game.ErrLifecycle),
		errors.Is(err, game.ErrCapacity),
		errors.Is(err, game.ErrStaleVersion),
		errors.Is(err, game.ErrNoSecret),
		errors.Is(err, game.ErrRequestOutstanding),
		errors.Is(err, game.ErrReplay),
		errors.Is(err, game.ErrConsistency),
		errors.Is(err, game.ErrVerification):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusForError(err))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// decodeSigned decodes a Signed envelope and recovers the signer.
func decodeSigned[T any](r *http.Request) (*T, crypto.PublicKey, error) {
	var signed crypto.Signed[T]
	if err := json.NewDecoder(r.Body).Decode(&signed); err != nil {
		return nil, nil, fmt.Errorf("decoding request: %w", err)
	}
	return signed.Recover()
}

// batchIDParam parses the {id} route parameter.
func batchIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func (h *GameHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	_, caller, err := decodeSigned[OpenRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.engine.Open(caller)
	if err != nil {
		writeError(w, err)
		return
	}

	h.persistBatch(id)
	metrics.Counter("truename_batches_opened_total").Inc()
	writeJSON(w, OpenResponse{BatchID: id})
}

func (h *GameHandler) handleSecret(w http.ResponseWriter, r *http.Request) {
	id, err := batchIDParam(r)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	req, caller, err := decodeSigned[SecretRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.BatchID != id {
		http.Error(w, "batch id mismatch between URL and body", http.StatusBadRequest)
		return
	}

	secret, err := fhe.NewCiphertext(req.Payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.engine.SubmitSecret(caller, id, secret); err != nil {
		writeError(w, err)
		return
	}

	h.persistBatch(id)
	w.WriteHeader(http.StatusOK)
}

func (h *GameHandler) handleGuess(w http.ResponseWriter, r *http.Request) {
	id, err := batchIDParam(r)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	req, caller, err := decodeSigned[GuessRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.BatchID != id {
		http.Error(w, "batch id mismatch between URL and body", http.StatusBadRequest)
		return
	}

	guess, err := fhe.NewCiphertext(req.Payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.engine.SubmitGuess(caller, id, guess); err != nil {
		writeError(w, err)
		return
	}

	h.persistBatch(id)
	metrics.Counter("truename_guesses_total").Inc()
	w.WriteHeader(http.StatusOK)
}

func (h *GameHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := batchIDParam(r)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	req, caller, err := decodeSigned[CloseRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.BatchID != id {
		http.Error(w, "batch id mismatch between URL and body", http.StatusBadRequest)
		return
	}

	if err := h.engine.Close(caller, id); err != nil {
		writeError(w, err)
		return
	}

	h.persistBatch(id)
	w.WriteHeader(http.StatusOK)
}

func (h *GameHandler) handleRequestDecryption(w http.ResponseWriter, r *http.Request) {
	id, err := batchIDParam(r)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	req, caller, err := decodeSigned[DecryptRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.BatchID != id {
		http.Error(w, "batch id mismatch between URL and body", http.StatusBadRequest)
		return
	}

	reqID, err := h.engine.RequestDecryption(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.persistBatch(id)
	h.persistContext(reqID)
	metrics.Counter("truename_decryption_requests_total").Inc()
	writeJSON(w, DecryptResponse{RequestID: reqID})
}

func (h *GameHandler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := batchIDParam(r)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	view, err := h.engine.View(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, view)
}

func (h *GameHandler) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id, err := batchIDParam(r)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	view, err := h.engine.View(id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ResultsResponse{
		BatchID:    id,
		Resolved:   view.Resolved,
		MatchCount: view.MatchCount,
	}

	h.mu.RLock()
	for _, m := range h.results[id] {
		resp.Matches = append(resp.Matches, MatchNotification{
			BatchID:   m.BatchID,
			RequestID: m.RequestID,
			Attacker:  m.Attacker.String(),
			Defender:  m.Defender.String(),
		})
	}
	h.mu.RUnlock()

	writeJSON(w, resp)
}

// handleOracleCallback receives the oracle's asynchronous result. Replay,
// consistency, and verification violations surface here, to the oracle,
// never to a player.
func (h *GameHandler) handleOracleCallback(w http.ResponseWriter, r *http.Request) {
	var cb oracle.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.engine.HandleDecryptionResult(cb.RequestID, cb.Cleartext, cb.Proof)
	if err != nil {
		metrics.Counter("truename_callback_rejections_total").Inc()
		writeError(w, err)
		return
	}

	h.persistBatch(report.BatchID)
	h.persistContext(report.RequestID)
	metrics.Counter("truename_batches_resolved_total").Inc()
	writeJSON(w, ResultsResponse{
		BatchID:    report.BatchID,
		Resolved:   true,
		MatchCount: report.MatchCount,
	})
}

// persistBatch writes a batch snapshot through the store. Persistence is
// write-behind: a store failure is logged, not surfaced to the caller.
func (h *GameHandler) persistBatch(id uint64) {
	rec, err := h.engine.Snapshot(id)
	if err != nil {
		h.log.Error("Snapshot failed", "batchID", id, "err", err)
		return
	}
	if err := h.store.SaveBatch(rec); err != nil {
		h.log.Error("Persisting batch failed", "batchID", id, "err", err)
	}
}

func (h *GameHandler) persistContext(reqID oracle.RequestID) {
	rec, err := h.engine.SnapshotContext(reqID)
	if err != nil {
		h.log.Error("Context snapshot failed", "requestID", reqID, "err", err)
		return
	}
	if err := h.store.SaveContext(rec); err != nil {
		h.log.Error("Persisting context failed", "requestID", reqID, "err", err)
	}
}
