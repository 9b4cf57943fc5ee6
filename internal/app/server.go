package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/creasty/defaults"
	"github.com/gorilla/mux"
	"github.com/rxtech-lab/kis-autotrader/internal/journal"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/scheduler"
	"github.com/rxtech-lab/kis-autotrader/internal/strategy"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/internal/version"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// TokenStatus reports the in-memory session without the token itself.
type TokenStatus struct {
	Valid     bool       `json:"valid"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name          string              `json:"name"`
	Type          types.StrategyType  `json:"type"`
	SelectionMode types.SelectionMode `json:"selection_mode"`
}

// StatusResponse is served by GET /status.
type StatusResponse struct {
	Scheduler  scheduler.Status `json:"scheduler"`
	Token      TokenStatus      `json:"token"`
	Strategies []StrategyInfo   `json:"strategies"`
	Fallback   bool             `json:"synthetic_fallback"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

// Server is the operations HTTP surface: health, metrics, status,
// scheduler control and journal queries.
type Server struct {
	app    *App
	router *mux.Router
	http   *http.Server
}

// NewServer creates the ops server for a.
func NewServer(a *App) *Server {
	s := &Server{app: a, router: mux.NewRouter()}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.router.HandleFunc("/scheduler", s.handleSchedulerUpdate).Methods(http.MethodPut)

	sched := s.router.PathPrefix("/scheduler").Subrouter()
	sched.HandleFunc("/start", s.handleSchedulerStart).Methods(http.MethodPost)
	sched.HandleFunc("/stop", s.handleSchedulerStop).Methods(http.MethodPost)
	sched.HandleFunc("/run", s.handleSchedulerRun).Methods(http.MethodPost)

	s.router.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)
	s.router.HandleFunc("/strategies/{type}/schema", s.handleSchema).Methods(http.MethodGet)

	s.router.HandleFunc("/journal/summary", s.handleJournalSummary).Methods(http.MethodGet)
	s.router.HandleFunc("/journal/outcomes", s.handleJournalOutcomes).Methods(http.MethodGet)

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", addr)
	}

	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.app.Logger.Info("Ops server listening", zap.String("addr", listener.Addr().String()))

	served := make(chan error, 1)

	go func() {
		served <- s.http.Serve(listener)
	}()

	select {
	case err := <-served:
		if err == http.ErrServerClosed {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.GetVersion()})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Scheduler:  s.app.Scheduler.Status(),
		Token:      TokenStatus{Valid: s.app.Sessions.IsValid()},
		Strategies: s.strategies(),
		Fallback:   s.app.Config.Broker.UseFallback,
	}

	if session, ok := s.app.Sessions.Session(); ok {
		resp.Token.IssuedAt = &session.IssuedAt
		resp.Token.ExpiresAt = &session.ExpiresAt
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	settings, err := s.decodeSettings(r)
	if err != nil {
		writeError(w, err)

		return
	}

	if err := s.app.Scheduler.Start(settings); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, s.app.Scheduler.Status())
}

func (s *Server) handleSchedulerUpdate(w http.ResponseWriter, r *http.Request) {
	settings, err := s.decodeSettings(r)
	if err != nil {
		writeError(w, err)

		return
	}

	if err := s.app.Scheduler.Update(settings); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, s.app.Scheduler.Status())
}

func (s *Server) handleSchedulerStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.app.Scheduler.Stop(); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, s.app.Scheduler.Status())
}

func (s *Server) handleSchedulerRun(w http.ResponseWriter, _ *http.Request) {
	s.app.Scheduler.Trigger()

	writeJSON(w, http.StatusOK, s.app.Scheduler.Status())
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.strategies())
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := strategy.ParameterSchema(types.StrategyType(mux.Vars(r)["type"]))
	if err != nil {
		writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, schema)
}

func (s *Server) handleJournalSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.app.Journal.Summary(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	if summary == nil {
		summary = []journal.StrategySummary{}
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleJournalOutcomes(w http.ResponseWriter, r *http.Request) {
	var since time.Time

	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid since %q", raw))

			return
		}

		since = parsed
	}

	outcomes, err := s.app.Journal.Outcomes(r.Context(), since)
	if err != nil {
		writeError(w, err)

		return
	}

	if outcomes == nil {
		outcomes = []types.OrderOutcome{}
	}

	writeJSON(w, http.StatusOK, outcomes)
}

func (s *Server) strategies() []StrategyInfo {
	registered := s.app.Engine.Strategies()
	infos := make([]StrategyInfo, 0, len(registered))

	for _, st := range registered {
		infos = append(infos, StrategyInfo{
			Name:          st.Name(),
			Type:          st.Type(),
			SelectionMode: st.Config().SelectionMode,
		})
	}

	return infos
}

// decodeSettings reads optional schedule settings from the body. An empty
// body uses the configured schedule.
func (s *Server) decodeSettings(r *http.Request) (scheduler.Settings, error) {
	settings := s.app.Config.Scheduler

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return settings, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to read request body", err)
	}

	if len(body) == 0 {
		return settings, nil
	}

	settings = scheduler.Settings{}
	if err := json.Unmarshal(body, &settings); err != nil {
		return settings, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid schedule settings", err)
	}

	if err := defaults.Set(&settings); err != nil {
		return settings, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid schedule settings", err)
	}

	return settings, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, httpStatus(code), errorResponse{Error: logger.Redact(err.Error()), Code: code})
}

func httpStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeSchedulerRunning, errors.ErrCodeSchedulerNotRunning:
		return http.StatusConflict
	case errors.ErrCodeInvalidSchedule, errors.ErrCodeInvalidParameter:
		return http.StatusBadRequest
	case errors.ErrCodeUnsupportedStrategy:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
