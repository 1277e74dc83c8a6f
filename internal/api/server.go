// Package api serves the pool's read surface and the permissionless upkeep
// endpoints over HTTP. Every pool operation is dispatched through the
// module registry.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"PoolKeeper/internal/metrics"
	"PoolKeeper/internal/model"
	"PoolKeeper/internal/registry"
)

// Dispatcher routes operation names to pool modules.
type Dispatcher interface {
	Call(ctx context.Context, op string, req registry.Request) (any, error)
	Modules() []registry.ModuleInfo
}

// Options configure optional collaborators of a Server.
type Options struct {
	Metrics        *metrics.Metrics
	StableDecimals uint8
	RiskDecimals   uint8
	// Limiter throttles the upkeep endpoints. nil disables throttling.
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

// Server is the HTTP front of the pool.
type Server struct {
	pool Dispatcher
	opts Options
	log  *zap.Logger
}

// Route is one entry of the route table.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// NewServer creates a Server dispatching to d.
func NewServer(d Dispatcher, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pool: d, opts: opts, log: logger.Named("api")}
}

func (s *Server) routes() []Route {
	return []Route{
		{"PoolSummary", http.MethodGet, "/pool", s.getSummary},
		{"PoolTWAP", http.MethodGet, "/pool/twap", s.op("twapSwaps", nil)},
		{"PoolValue", http.MethodGet, "/pool/value", s.op("totalValue", nil)},
		{"Account", http.MethodGet, "/accounts/{account}", s.op("account", accountArgs)},
		{"AccountValue", http.MethodGet, "/accounts/{account}/value", s.op("portfolioValue", accountArgs)},
		{"AccountFees", http.MethodGet, "/accounts/{account}/fees", s.op("feesForWithdraw", sharesArgs)},
		{"CheckUpkeep", http.MethodGet, "/upkeep", s.limited(s.checkUpkeep)},
		{"PerformUpkeep", http.MethodPost, "/upkeep", s.limited(s.op("performUpkeep", dataArgs))},
		{"Modules", http.MethodGet, "/modules", s.getModules},
	}
}

// Router builds the multiplexer for all routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	for _, route := range s.routes() {
		var handler http.Handler
		handler = route.HandlerFunc
		handler = s.RESTLogger(handler, route.Name)

		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(handler)
	}
	if s.opts.Metrics != nil {
		router.Methods(http.MethodGet).Path("/metrics").Name("Metrics").Handler(s.opts.Metrics.Handler())
	}
	return router
}

// RESTLogger logs the requests internally.
func (s *Server) RESTLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.String("route", name),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

type argsFunc func(r *http.Request) map[string]string

func accountArgs(r *http.Request) map[string]string {
	return map[string]string{"account": mux.Vars(r)["account"]}
}

func sharesArgs(r *http.Request) map[string]string {
	return map[string]string{
		"account": mux.Vars(r)["account"],
		"shares":  r.URL.Query().Get("shares"),
	}
}

func dataArgs(r *http.Request) map[string]string {
	return map[string]string{"data": r.URL.Query().Get("data")}
}

// op serves a registry operation as JSON.
func (s *Server) op(name string, args argsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := registry.Request{Caller: r.RemoteAddr}
		if args != nil {
			req.Args = args(r)
		}
		res, err := s.pool.Call(r.Context(), name, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, map[string]any{"result": res})
	}
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	res, err := s.pool.Call(r.Context(), "summary", registry.Request{Caller: r.RemoteAddr})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summary, ok := res.(model.PoolSummary); ok && s.opts.Metrics != nil {
		s.opts.Metrics.ObserveSummary(summary, s.opts.StableDecimals, s.opts.RiskDecimals)
	}
	s.writeJSON(w, r, map[string]any{"result": res})
}

func (s *Server) checkUpkeep(w http.ResponseWriter, r *http.Request) {
	data := r.URL.Query().Get("data")
	res, err := s.pool.Call(r.Context(), "checkUpkeep", registry.Request{
		Caller: r.RemoteAddr,
		Args:   map[string]string{"data": data},
	})
	needed, _ := res.(bool)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveCheck(needed, err)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"upkeep_needed": needed, "perform_data": data})
}

func (s *Server) getModules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.pool.Modules())
}

// limited rejects requests beyond the configured rate.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Limiter != nil && !s.opts.Limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.writeStatus(w, r, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	s.writeStatus(w, r, http.StatusOK, v)
}

func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to send JSON response", zap.String("method", r.Method), zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeStatus(w, r, statusOf(err), map[string]string{
		"error": err.Error(),
		"code":  model.CodeOf(err),
	})
}

func statusOf(err error) int {
	var e *model.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch {
	case e.Code == model.CodeFunctionNotFound:
		return http.StatusNotFound
	case e.Code == model.CodePriceFeed:
		return http.StatusBadGateway
	case e.Kind == model.KindValidation:
		return http.StatusBadRequest
	case e.Kind == model.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusConflict
	}
}
