// Package server exposes the agent over HTTP:
// GET /ask?question=... runs one turn on a new conversation.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/callbacks"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "server")

const (
	// HeaderRequestID is the response header with the request ID
	HeaderRequestID = "X-Request-ID"

	// ErrQuestionRequired is the error text for a missing question
	ErrQuestionRequired = "Question is required"
	// ErrProcessingFailed is the error text for a failed turn
	ErrProcessingFailed = "AI processing failed"

	shutdownTimeout = 10 * time.Second
)

// AskResponse is the body of a successful /ask
type AskResponse struct {
	Answer string `json:"answer"`
}

// ErrorResponse is the body of a failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Option configures the Server
type Option func(*Server)

// WithAddr sets the listen address, :3000 by default
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithPublicDir sets the directory of static files served at /
func WithPublicDir(dir string) Option {
	return func(s *Server) {
		s.publicDir = dir
	}
}

// WithScratchpad records each request and logs the turn stats
func WithScratchpad(sp *callbacks.Scratchpad) Option {
	return func(s *Server) {
		s.scratchpad = sp
	}
}

// Server is the HTTP front end of the agent.
// Each request owns its conversation, the agent is shared.
type Server struct {
	agent      *assistants.Agent
	addr       string
	publicDir  string
	scratchpad *callbacks.Scratchpad
}

// New returns the server for the agent
func New(agent *assistants.Agent, opts ...Option) *Server {
	s := &Server{
		agent: agent,
		addr:  ":3000",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ask", s.ask)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"agent":  s.agent.Name(),
			"tools":  s.agent.Registry().Names(),
		})
	})

	if s.publicDir != "" {
		if st, err := os.Stat(s.publicDir); err == nil && st.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(s.publicDir)))
		} else {
			logger.KV(xlog.WARNING,
				"status", "public_dir_not_found",
				"dir", s.publicDir,
			)
		}
	}
	return withRequestID(mux)
}

// ListenAndServe serves until the context is canceled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.NOTICE,
			"status", "listening",
			"addr", s.addr,
			"agent", s.agent.Name(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "failed to serve")
	case <-ctx.Done():
	}

	logger.KV(xlog.NOTICE, "status", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shutdown")
	}
	return nil
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.reply(w, r, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}

	question := strings.TrimSpace(r.URL.Query().Get("question"))
	if question == "" {
		s.reply(w, r, http.StatusBadRequest, ErrorResponse{Error: ErrQuestionRequired})
		return
	}

	ctx := chatmodel.WithChatContext(r.Context(), chatmodel.NewChatContext("", chatmodel.SourceHTTP))
	chatCtx := chatmodel.GetChatContext(ctx)
	chatCtx.SetMetadata("request_id", w.Header().Get(HeaderRequestID))

	if s.scratchpad != nil {
		s.scratchpad.StartRun(ctx)
		defer func() {
			stats, _ := s.scratchpad.EndRun(ctx)
			if stats != nil {
				logger.ContextKV(ctx, xlog.DEBUG,
					"status", "run_stats",
					"chat_id", stats.ChatID,
					"duration", stats.Duration.String(),
					"llm_calls", stats.LLMCalls,
					"tool_calls", stats.ToolsCalls,
					"input_tokens", stats.LLMInputTokens,
					"output_tokens", stats.LLMOutputTokens,
					"failed", stats.Failed,
				)
			}
		}()
	}

	conv, err := s.agent.NewConversation(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.agent.Run(ctx, conv, question)
	if err != nil {
		var ute *assistants.UnknownToolError
		if errors.As(err, &ute) {
			s.reply(w, r, http.StatusOK, AskResponse{Answer: ute.Error()})
			return
		}
		s.fail(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, AskResponse{Answer: res.Output})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.ContextKV(r.Context(), xlog.ERROR,
		"status", "ask_failed",
		"request_id", w.Header().Get(HeaderRequestID),
		"question", slices.StringUpto(r.URL.Query().Get("question"), 64),
		"err", err.Error(),
	)
	s.reply(w, r, http.StatusInternalServerError, ErrorResponse{Error: ErrProcessingFailed})
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, status int, body any) {
	metricskey.StatsHTTPRequests.IncrCounter(1, strconv.Itoa(status))
	logger.ContextKV(r.Context(), xlog.DEBUG,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", w.Header().Get(HeaderRequestID),
		"status", status,
	)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// withRequestID sets X-Request-ID on every response,
// the ID of the request is kept when provided.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}
