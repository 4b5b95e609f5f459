// Package api exposes the treasury over HTTP+JSON.
//
// Callers identify themselves with an HS256 bearer token whose subject is
// their address. Reads are open; mutations require a token and are then
// authorized by the treasury's own role checks.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/metrics"
	"AgentTreasury/internal/recorder"
	"AgentTreasury/internal/treasury"
)

// Options configures a Server. Metrics and Limiter are optional.
type Options struct {
	Treasury *treasury.Treasury
	Recorder recorder.Recorder
	Tokens   *Tokens
	Limiter  *RateLimiter
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Server routes HTTP requests to the treasury.
type Server struct {
	t       *treasury.Treasury
	rec     recorder.Recorder
	tokens  *Tokens
	limiter *RateLimiter
	metrics *metrics.Metrics
	log     *zap.Logger
	router  *mux.Router
}

func New(opts Options) (*Server, error) {
	if opts.Treasury == nil {
		return nil, errors.New("api: treasury required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("api: token verifier required")
	}
	s := &Server{
		t:       opts.Treasury,
		rec:     opts.Recorder,
		tokens:  opts.Tokens,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		log:     opts.Logger,
	}
	if s.rec == nil {
		s.rec = recorder.NewNoopRecorder()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("api")
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.authenticate)
	if s.limiter != nil {
		v1.Use(s.limiter.Middleware)
	}

	v1.HandleFunc("/deposits", s.deposit).Methods(http.MethodPost)
	v1.HandleFunc("/withdrawals", s.withdraw).Methods(http.MethodPost)

	v1.HandleFunc("/agents", s.listAgents).Methods(http.MethodGet)
	v1.HandleFunc("/agents", s.registerAgent).Methods(http.MethodPost)
	v1.HandleFunc("/agents/top", s.topAgents).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{id:[0-9]+}", s.getAgent).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{id:[0-9]+}/status", s.setAgentStatus).Methods(http.MethodPut)
	v1.HandleFunc("/agents/{id:[0-9]+}/allocation", s.updateAllocation).Methods(http.MethodPut)
	v1.HandleFunc("/agents/{id:[0-9]+}/trades", s.recordTrade).Methods(http.MethodPost)
	v1.HandleFunc("/agents/{id:[0-9]+}/pnl", s.agentPnL).Methods(http.MethodGet)

	v1.HandleFunc("/fees", s.getFees).Methods(http.MethodGet)
	v1.HandleFunc("/fees/quote", s.quoteFees).Methods(http.MethodGet)
	v1.HandleFunc("/fees/performance", s.setPerformanceFee).Methods(http.MethodPut)
	v1.HandleFunc("/fees/management", s.setManagementFee).Methods(http.MethodPut)
	v1.HandleFunc("/emergency-stop", s.emergencyStop).Methods(http.MethodPost)
	v1.HandleFunc("/governance", s.setGovernance).Methods(http.MethodPut)

	v1.HandleFunc("/share-price", s.sharePrice).Methods(http.MethodGet)
	v1.HandleFunc("/state", s.state).Methods(http.MethodGet)
	v1.HandleFunc("/investors/{addr}", s.investor).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.events).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("api stopped")
	return nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = msg
	writeJSON(w, status, body)
}

// statusFor maps the fault taxonomy onto HTTP.
func statusFor(k fault.Kind) int {
	switch k {
	case fault.KindAuthorization:
		return http.StatusForbidden
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindState:
		return http.StatusConflict
	case fault.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	k := fault.KindOf(err)
	if k == fault.KindUnknown {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeError(w, statusFor(k), k.Code(), err.Error())
}
