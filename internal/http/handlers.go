package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"healthscribe/internal/core"
	"healthscribe/internal/metrics"
	"healthscribe/internal/store"
	"healthscribe/pkg"
)

// SummaryStore is the mock NFT storage the API reads from and mints into.
type SummaryStore interface {
	GetAll(ctx context.Context) ([]pkg.MedicalSummary, error)
	GetByID(ctx context.Context, id string) (pkg.MedicalSummary, error)
	Mint(ctx context.Context, id, wallet string) (pkg.MedicalSummary, error)
}

// MintNotifier is told about every successful mint.
type MintNotifier interface {
	NotifyMinted(ctx context.Context, s pkg.MedicalSummary) error
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.Server.
type Server struct {
	Chat     *core.ChatService
	Store    SummaryStore
	Notifier MintNotifier

	handler http.Handler
}

// NewServer builds the router.  notifier may be nil.
func NewServer(chat *core.ChatService, st SummaryStore, notifier MintNotifier, corsOrigins []string) *Server {
	s := &Server{Chat: chat, Store: st, Notifier: notifier}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/messages", s.handlePostMessage)
			r.Post("/reset", s.handleReset)
			r.Post("/summary", s.handleSummarize)
		})
		r.Get("/summaries", s.handleListSummaries)
		r.Get("/summaries/{id}", s.handleGetSummary)
		r.Post("/summaries/{id}/mint", s.handleMint)
		r.Post("/wallets", s.handleConnectWallet)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(r)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	Stage     pkg.Stage     `json:"stage,omitempty"`
	Detected  []string      `json:"detected_symptoms,omitempty"`
	Messages  []pkg.Message `json:"messages"`
}

// handleCreateSession starts a new session and returns it with the greeting.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, msgs, err := s.Chat.StartSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID, Messages: msgs})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, msgs, err := s.Chat.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		Stage:     sess.Context.Stage,
		Detected:  sess.Context.Detected,
		Messages:  msgs,
	})
}

// handlePostMessage runs one chat turn.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req pkg.SendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.Chat.Send(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msgs, err := s.Chat.Reset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Stage: pkg.StageInitial, Messages: msgs})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Chat.Summarize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	all, err := s.Store.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleMint assigns a stored summary to a wallet.  Notification failures
// are logged and do not undo the mint.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req pkg.MintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	minted, err := s.Store.Mint(r.Context(), chi.URLParam(r, "id"), req.Wallet)
	if err != nil {
		metrics.MintsTotal.WithLabelValues(mintResult(err)).Inc()
		writeError(w, err)
		return
	}
	metrics.MintsTotal.WithLabelValues("ok").Inc()
	slog.Info("summary minted", "summary_id", minted.ID, "wallet", minted.OwnerWallet)

	if s.Notifier != nil {
		if err := s.Notifier.NotifyMinted(r.Context(), minted); err != nil {
			slog.Warn("mint notification failed", "summary_id", minted.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, minted)
}

func (s *Server) handleConnectWallet(w http.ResponseWriter, _ *http.Request) {
	addr, err := store.NewMockWalletAddress()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr})
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body of at most maxBodyBytes into v.  On failure
// it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request"})
	return false
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pkg.ErrSessionNotFound), errors.Is(err, pkg.ErrSummaryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pkg.ErrWalletRequired), errors.Is(err, pkg.ErrEmptyMessage):
		status = http.StatusBadRequest
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func mintResult(err error) string {
	switch {
	case errors.Is(err, pkg.ErrWalletRequired):
		return "no_wallet"
	case errors.Is(err, pkg.ErrSummaryNotFound):
		return "not_found"
	default:
		return "error"
	}
}
