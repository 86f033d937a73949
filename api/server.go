// Package api exposes the agent over HTTP.
//
// Information Hiding:
// - Request/response wire shapes hidden from the orchestration core
// - The server depends on a small runner interface, not the concrete
//   orchestrator

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kimmiai/kimmi/chain"
	"github.com/kimmiai/kimmi/model"
)

// Runner is the orchestration surface the server needs.
type Runner interface {
	Run(ctx context.Context, userText string) (model.Turn, error)
	RunContentPipeline(ctx context.Context, payload chain.Input) (model.Turn, error)
}

// Server routes HTTP requests to the agent.
type Server struct {
	runner Runner
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates a server over the given runner.
func NewServer(runner Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		runner: runner,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /run_agent", s.handleRunAgent)
	s.mux.HandleFunc("POST /ideate", s.handleIdeate)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"duration", time.Since(start).String())
}

// runRequest accepts either a free-form prompt or a structured
// content-ideation input record.
type runRequest struct {
	Prompt string `json:"prompt"`

	Niche       string      `json:"niche"`
	TrendSource string      `json:"trend_source"`
	Notes       string      `json:"notes"`
	Style       chain.Style `json:"style"`
	Platform    string      `json:"platform"`
}

type runResponse struct {
	Message     string             `json:"message"`
	ToolResults []model.ToolResult `json:"tool_results"`
	Raw         map[string]any     `json:"raw,omitempty"`
	Exhausted   bool               `json:"exhausted,omitempty"`
}

func (s *Server) handleRunAgent(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Niche) != "" {
		turn, err := s.runner.RunContentPipeline(r.Context(), chain.Input{
			Niche:       req.Niche,
			TrendSource: req.TrendSource,
			Notes:       req.Notes,
			Style:       req.Style,
			Platform:    req.Platform,
		})
		if err != nil {
			s.logger.Error("content pipeline failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "content pipeline failed")
			return
		}
		s.writeTurn(w, turn)
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, "prompt must not be empty")
		return
	}

	turn, err := s.runner.Run(r.Context(), req.Prompt)
	if err != nil {
		s.logger.Error("agent run failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "agent run failed")
		return
	}

	s.writeTurn(w, turn)
}

func (s *Server) handleIdeate(w http.ResponseWriter, r *http.Request) {
	var payload chain.Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Niche) == "" {
		s.writeError(w, http.StatusBadRequest, "niche must not be empty")
		return
	}

	turn, err := s.runner.RunContentPipeline(r.Context(), payload)
	if err != nil {
		s.logger.Error("content pipeline failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "content pipeline failed")
		return
	}

	s.writeTurn(w, turn)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeTurn(w http.ResponseWriter, turn model.Turn) {
	s.writeJSON(w, http.StatusOK, runResponse{
		Message:     turn.AssistantMessage.Content,
		ToolResults: turn.ToolResults,
		Raw:         turn.RawModelReply,
		Exhausted:   turn.Exhausted,
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
