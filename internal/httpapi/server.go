package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vllmpoc/internal/engine"
	"vllmpoc/pkg/types"
)

// Completer runs one chat completion. *chat.Service implements it.
type Completer interface {
	Complete(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error)
}

// modelCreated is the fixed creation timestamp reported by the model listing.
const modelCreated = 1677610602

type server struct {
	opts Options
}

// NewMux builds the HTTP handler serving the chat API.
func NewMux(opts Options) http.Handler {
	s := &server{opts: opts.withDefaults()}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(s.opts.CORSOrigins)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", s.info)
	r.Get("/health", s.health)
	r.Get("/models", s.models)
	r.Get("/v1/models", s.models)
	r.Post("/v1/chat/completions", s.chatCompletions)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.engine() != nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r, s.opts.Version)

	return r
}

// corsOptions allows origins with credentials. A "*" entry allows every
// origin by echoing it back, since browsers reject a literal "*" on
// credentialed requests.
func corsOptions(origins []string) cors.Options {
	o := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	for _, origin := range origins {
		if origin == "*" {
			o.AllowedOrigins = nil
			o.AllowOriginFunc = func(*http.Request, string) bool { return true }
			break
		}
	}
	return o
}

func (s *server) engine() engine.Engine {
	if s.opts.Engines == nil {
		return nil
	}
	return s.opts.Engines.Get()
}

// modelName is the configured model, or the engine's when none is configured.
func (s *server) modelName() string {
	if s.opts.Model != "" {
		return s.opts.Model
	}
	if e := s.engine(); e != nil {
		return e.Name()
	}
	return ""
}

// requestLogger returns the logger for r at its effective level.
func (s *server) requestLogger(r *http.Request) zerolog.Logger {
	lvl := requestLogLevel(r, s.opts.LogLevel)
	c := s.opts.Logger.Level(lvl.zerologLevel()).With().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		c = c.Str("request_id", rid)
	}
	return c.Logger()
}

// info godoc
// @Summary      Service information
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.InfoResponse
// @Router       / [get]
func (s *server) info(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"health": "/health",
		"chat":   "/v1/chat/completions",
		"models": "/models",
	}
	if swaggerBuilt {
		endpoints["docs"] = "/docs/index.html"
	}
	writeJSON(w, http.StatusOK, types.InfoResponse{
		Message:   "vLLM POC Server",
		Version:   s.opts.Version,
		Platform:  s.opts.Platform.Config.Name,
		Backend:   string(s.opts.Platform.Config.Backend),
		Endpoints: endpoints,
	})
}

// health godoc
// @Summary      Engine health
// @Description  503 until the engine has been loaded. status is demo_mode when the stand-in answers requests.
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /health [get]
func (s *server) health(w http.ResponseWriter, r *http.Request) {
	e := s.engine()
	if e == nil {
		writeJSONError(w, http.StatusServiceUnavailable, detailNotLoaded)
		return
	}
	status := "healthy"
	if e.Mode() == engine.ModeStandIn {
		status = "demo_mode"
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:        status,
		Model:         s.modelName(),
		GPUMemoryUsed: s.opts.Platform.Config.GPUSummary(),
	})
}

// models godoc
// @Summary      List models
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
// @Router       /v1/models [get]
func (s *server) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{
		Object: "list",
		Data: []types.ModelCard{{
			ID:      s.modelName(),
			Object:  "model",
			Created: modelCreated,
			OwnedBy: "vllm-poc",
		}},
	})
}

// chatCompletions godoc
// @Summary      Create a chat completion
// @Description  Flattens the conversation into a prompt, generates with the loaded engine and returns one choice.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Chat request"
// @Success      200      {object}  types.ChatResponse
// @Failure      413      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /v1/chat/completions [post]
func (s *server) chatCompletions(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	start := time.Now()

	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	req, err := decodeChatRequest(r.Body)
	if err != nil {
		status := http.StatusUnprocessableEntity
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		log.Info().Int("status", status).Err(err).Msg("chat rejected")
		writeJSONError(w, status, err.Error())
		return
	}
	if s.opts.Chat == nil || s.engine() == nil {
		observeGeneration(outcomeUnavailable, types.Usage{})
		writeJSONError(w, http.StatusServiceUnavailable, detailNotLoaded)
		return
	}

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()
	if s.opts.GenerationTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, s.opts.GenerationTimeout)
		defer cancelTimeout()
	}
	ctx = log.WithContext(ctx)

	log.Info().Int("messages", len(req.Messages)).Msg("chat start")
	resp, err := s.opts.Chat.Complete(ctx, req)
	if err != nil {
		// Client went away; nobody is listening for the answer.
		if r.Context().Err() != nil {
			observeGeneration(outcomeCanceled, types.Usage{})
			log.Info().Dur("dur", time.Since(start)).Msg("chat canceled")
			return
		}
		switch {
		case s.opts.BaseContext.Err() != nil:
			err = newStatusError(http.StatusServiceUnavailable, "Server shutting down")
		case errors.Is(err, context.DeadlineExceeded) && s.opts.GenerationTimeout > 0:
			err = newStatusError(http.StatusGatewayTimeout, "Generation timed out after %s", s.opts.GenerationTimeout)
		}
		status, detail := errorStatus(err)
		outcome := outcomeError
		if status == http.StatusServiceUnavailable {
			outcome = outcomeUnavailable
		}
		observeGeneration(outcome, types.Usage{})
		log.Error().Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("chat end")
		writeJSONError(w, status, detail)
		return
	}
	observeGeneration(outcomeOK, resp.Usage)
	log.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).
		Str("id", resp.ID).Int("prompt_tokens", resp.Usage.PromptTokens).Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat end")
	writeJSON(w, http.StatusOK, resp)
}

// statusError is an error carrying its HTTP status.
type statusError struct {
	code int
	msg  string
}

func (e statusError) Error() string   { return e.msg }
func (e statusError) StatusCode() int { return e.code }

func newStatusError(code int, format string, args ...any) error {
	return statusError{code: code, msg: fmt.Sprintf(format, args...)}
}
