// Package server exposes the assistant over HTTP for the chat UI.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/assistant"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
)

const sessionHeader = "X-Session-ID"

// historyRowCap bounds how many result rows each stored chat turn keeps.
const historyRowCap = 50

// Turn is one stored question/answer pair in a chat history.
type Turn struct {
	Question  string           `json:"question"`
	SQL       string           `json:"sql,omitempty"`
	Narrative string           `json:"narrative,omitempty"`
	Result    *database.Result `json:"result,omitempty"`
	Notices   []string         `json:"notices,omitempty"`
	Outcome   string           `json:"outcome"`
	Error     string           `json:"error,omitempty"`
	At        time.Time        `json:"at"`
}

// Server wires the assistant session to an HTTP surface. Asks are
// serialized per chat session, matching a UI that shows one turn at a time.
type Server struct {
	cfg     *config.Config
	session *assistant.Session

	mu        sync.Mutex
	histories map[string][]Turn
	inFlight  map[string]*sync.Mutex

	registry    *prometheus.Registry
	asksTotal   *prometheus.CounterVec
	askDuration prometheus.Histogram
}

// New creates a Server around an assistant session.
func New(cfg *config.Config, session *assistant.Session) *Server {
	s := &Server{
		cfg:       cfg,
		session:   session,
		histories: make(map[string][]Turn),
		inFlight:  make(map[string]*sync.Mutex),
		registry:  prometheus.NewRegistry(),
	}

	s.asksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sql_assistant_asks_total",
		Help: "Questions answered, by terminal outcome.",
	}, []string{"outcome"})
	s.askDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sql_assistant_ask_duration_seconds",
		Help:    "Wall-clock time to answer a question.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	s.registry.MustRegister(s.asksTotal, s.askDuration)

	return s
}

// Router builds the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/connect", s.handleConnect)
	r.Post("/api/model", s.handleModel)
	r.Post("/api/ask", s.handleAsk)
	r.Get("/api/schema", s.handleSchema)
	r.Get("/api/history", s.handleHistory)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe() error {
	zap.S().Infof("listening on %s", s.cfg.Server.Addr)
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

type connectRequest struct {
	Dialect                        string `json:"dialect"`
	Path                           string `json:"path"`
	Host                           string `json:"host"`
	Port                           int    `json:"port"`
	User                           string `json:"user"`
	Password                       string `json:"password"`
	DBName                         string `json:"dbname"`
	SSLMode                        string `json:"sslmode"`
	CloudSQLInstanceConnectionName string `json:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool   `json:"cloudsql_use_private_ip"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Dialect == "" {
		req.Dialect = s.cfg.Database.Dialect
	}
	if req.SSLMode == "" {
		req.SSLMode = s.cfg.Database.SSLMode
	}

	dbCfg := config.DatabaseConfig{
		Dialect:                        req.Dialect,
		Path:                           req.Path,
		Host:                           req.Host,
		Port:                           req.Port,
		User:                           req.User,
		Password:                       req.Password,
		DBName:                         req.DBName,
		SSLMode:                        req.SSLMode,
		CloudSQLInstanceConnectionName: req.CloudSQLInstanceConnectionName,
		UsePrivateIP:                   req.UsePrivateIP,
	}
	if err := s.session.Connect(r.Context(), dbCfg); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected", "dialect": req.Dialect})
}

type modelRequest struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.session.ConnectModel(r.Context(), req.APIKey, req.Model); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "connected",
		"model":  s.session.CurrentModel(),
	})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	sessionID := s.sessionID(r, w)

	// One in-flight ask per chat session; the UI shows one turn at a time.
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	answer := s.session.Ask(r.Context(), req.Question)
	s.askDuration.Observe(time.Since(start).Seconds())
	s.asksTotal.WithLabelValues(answer.Outcome).Inc()

	turn := Turn{
		Question:  answer.Question,
		SQL:       answer.SQL,
		Narrative: answer.Narrative,
		Result:    trimResult(answer.Result),
		Notices:   answer.Notices,
		Outcome:   answer.Outcome,
		At:        time.Now().UTC(),
	}
	if answer.Err != nil {
		turn.Error = answer.Err.Error()
	}
	s.appendTurn(sessionID, turn)

	status := http.StatusOK
	if answer.Outcome == "error" {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, turn)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	descriptor, err := s.session.Schema(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, descriptor)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := s.sessionID(r, w)
	s.mu.Lock()
	history := append([]Turn(nil), s.histories[sessionID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionID reads the chat session id from the request, minting a fresh one
// when absent. The id is echoed on the response so clients can persist it.
func (s *Server) sessionID(r *http.Request, w http.ResponseWriter) string {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(sessionHeader, id)
	return id
}

func (s *Server) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.inFlight[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.inFlight[sessionID] = lock
	}
	return lock
}

func (s *Server) appendTurn(sessionID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[sessionID] = append(s.histories[sessionID], turn)
}

// trimResult bounds stored history rows so long results do not accumulate
// in memory across a conversation.
func trimResult(result *database.Result) *database.Result {
	if result == nil || len(result.Rows) <= historyRowCap {
		return result
	}
	return &database.Result{
		Columns:   result.Columns,
		Rows:      result.Rows[:historyRowCap],
		Truncated: true,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
