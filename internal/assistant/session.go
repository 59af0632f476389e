package assistant

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/llm"
)

var errNotConnected = errors.New("not connected")

// Answer is the terminal result of one user turn.
type Answer struct {
	Question  string           `json:"question"`
	SQL       string           `json:"sql,omitempty"`
	Result    *database.Result `json:"result,omitempty"`
	Narrative string           `json:"narrative,omitempty"`
	Notices   []string         `json:"notices,omitempty"`
	// Outcome is one of "agent", "fallback", "rejected", "error".
	Outcome string `json:"outcome"`
	Err     error  `json:"-"`
}

// Session owns the live database handle, the model client, and the
// agent/fallback controller for one conversation. A turn is serialized: the
// session mutex admits one Ask at a time.
type Session struct {
	mu     sync.Mutex
	cfg    *config.Config
	db     database.Introspector
	client llm.Client
	agent  Agent

	// newAgent builds the agent whenever both collaborators are present.
	// Swappable in tests.
	newAgent func(database.Introspector, llm.Client, config.PipelineConfig) Agent
}

// NewSession creates a session with no database or model attached yet.
func NewSession(cfg *config.Config) *Session {
	return &Session{
		cfg:      cfg,
		newAgent: NewAgent,
	}
}

// Connect opens a pool for the target database, replacing any previous
// connection. The old pool is fully torn down before the new one is opened;
// pools are never reused across targets.
func (s *Session) Connect(ctx context.Context, dbCfg config.DatabaseConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			zap.S().Warnf("closing previous database connection: %v", err)
		}
		s.db = nil
		s.agent = nil
	}

	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		return &ErrConnection{Msg: "failed to connect to database", Err: err}
	}
	s.db = db
	s.rebuildAgent()
	zap.S().Infof("connected to %s database", dbCfg.Dialect)
	return nil
}

// ConnectModel validates the API key and attaches a model client, replacing
// any previous one.
func (s *Session) ConnectModel(ctx context.Context, apiKey, preferred string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			zap.S().Warnf("closing previous model client: %v", err)
		}
		s.client = nil
		s.agent = nil
	}

	client, err := llm.Connect(ctx, llm.Config{APIKey: apiKey, Model: preferred})
	if err != nil {
		return &ErrConnection{Msg: "failed to connect to model", Err: err}
	}
	s.client = client
	s.rebuildAgent()
	zap.S().Infof("model client ready, current model %s", client.CurrentModel())
	return nil
}

func (s *Session) rebuildAgent() {
	if s.db != nil && s.client != nil && s.newAgent != nil {
		s.agent = s.newAgent(s.db, s.client, s.cfg.Pipeline)
	}
}

// CurrentModel returns the model serving this session, or empty when no
// model is connected.
func (s *Session) CurrentModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return ""
	}
	return s.client.CurrentModel()
}

// Schema returns the current schema snapshot for display.
func (s *Session) Schema(ctx context.Context) (*database.SchemaDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &ErrConnection{Msg: "no database connected", Err: errNotConnected}
	}
	descriptor, err := s.db.Snapshot(ctx, s.cfg.Pipeline.TableCap)
	if err != nil {
		return nil, &ErrSchema{Msg: "failed to build schema snapshot", Err: err}
	}
	return descriptor, nil
}

// Close tears down the database pool and the model client.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			firstErr = err
		}
		s.db = nil
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.client = nil
	}
	s.agent = nil
	return firstErr
}

// Ask answers one question. The agent attempt runs first on its own
// goroutine under a hard wall-clock budget; on timeout or error the direct
// generate-validate-execute pipeline takes over. Every turn terminates with
// an Answer, never a hang.
func (s *Session) Ask(ctx context.Context, question string) Answer {
	s.mu.Lock()
	defer s.mu.Unlock()

	answer := Answer{Question: question}

	if s.db == nil {
		answer.Err = &ErrConnection{Msg: "no database connected", Err: errNotConnected}
		answer.Outcome = "error"
		return answer
	}
	if s.client == nil {
		answer.Err = &ErrConnection{Msg: "no model connected", Err: errNotConnected}
		answer.Outcome = "error"
		return answer
	}

	if s.agent != nil {
		narrative, err := s.runAgent(ctx, question)
		switch {
		case err == nil:
			answer.Narrative = narrative
			answer.Outcome = "agent"
			s.extractSideTable(ctx, &answer)
			return answer
		case isTimeout(err):
			answer.Notices = append(answer.Notices, "agent attempt timed out, switching to direct approach")
			zap.S().Warnf("agent attempt timed out after %v", s.cfg.Pipeline.AgentTimeout)
		default:
			answer.Notices = append(answer.Notices, sanitizeNotice(err))
			zap.S().Warnf("agent attempt failed, switching to direct approach: %v", err)
		}
	}

	s.fallback(ctx, question, &answer)
	return answer
}

// runAgent executes the agent on its own goroutine so the caller is never
// blocked past the budget. On timeout the in-flight attempt is cancelled
// and its eventual result discarded.
func (s *Session) runAgent(parent context.Context, question string) (string, error) {
	timeout := s.cfg.Pipeline.AgentTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	type agentResult struct {
		text string
		err  error
	}
	done := make(chan agentResult, 1)
	agent := s.agent
	go func() {
		text, err := agent.Answer(ctx, question)
		done <- agentResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-time.After(timeout):
		return "", &ErrTimeout{Msg: "agent attempt exceeded its budget", Err: context.DeadlineExceeded}
	}
}

// fallback runs the direct pipeline: snapshot -> samples -> prompt ->
// generate -> validate -> execute. A failing stage short-circuits with its
// specific error.
func (s *Session) fallback(ctx context.Context, question string, answer *Answer) {
	descriptor, err := s.db.Snapshot(ctx, s.cfg.Pipeline.TableCap)
	if err != nil {
		answer.Err = &ErrSchema{Msg: "failed to build schema snapshot", Err: err}
		answer.Outcome = "error"
		return
	}
	samples := collectSamples(ctx, s.db, descriptor, s.cfg.Pipeline.SampleTables, s.cfg.Pipeline.SampleRows)
	prompt := BuildPrompt(question, descriptor, samples)

	sqlText, err := withRetry(ctx, DefaultRetryOptions, func(ctx context.Context) (string, error) {
		text, genErr := s.client.GenerateSQL(ctx, prompt)
		if genErr != nil {
			return "", &ErrGeneration{Msg: "model returned no usable SQL", Err: genErr}
		}
		return text, nil
	})
	if err != nil {
		answer.Err = err
		answer.Outcome = "error"
		return
	}

	if err := Validate(sqlText); err != nil {
		answer.SQL = sqlText
		answer.Err = err
		answer.Outcome = "rejected"
		return
	}

	result, err := s.db.Select(ctx, sqlText, s.cfg.Pipeline.RowCap)
	if err != nil {
		answer.SQL = sqlText
		answer.Err = &ErrExecution{Msg: "statement failed", Err: err}
		answer.Outcome = "error"
		return
	}

	answer.SQL = sqlText
	answer.Result = result
	answer.Outcome = "fallback"
}

var fencedSQLRe = regexp.MustCompile("(?is)```sql\\s*(.+?)```")

// extractSideTable makes a best-effort attempt to recover tabular data from
// an agent narrative by re-running the first fenced SQL block it contains.
// Failures are swallowed: the narrative alone is still a valid answer.
func (s *Session) extractSideTable(ctx context.Context, answer *Answer) {
	m := fencedSQLRe.FindStringSubmatch(answer.Narrative)
	if m == nil {
		return
	}
	sqlText := strings.TrimSpace(m[1])
	if err := Validate(sqlText); err != nil {
		zap.S().Debugf("side extraction rejected: %v", err)
		return
	}
	result, err := s.db.Select(ctx, sqlText, s.cfg.Pipeline.RowCap)
	if err != nil {
		zap.S().Debugf("side extraction failed: %v", err)
		return
	}
	answer.SQL = sqlText
	answer.Result = result
}

// collectSamples fetches a few rows from the first few tables. Per-table
// failures are logged and skipped.
func collectSamples(ctx context.Context, db database.Introspector, descriptor *database.SchemaDescriptor, tables, rows int) []TableSample {
	if descriptor == nil || tables <= 0 || rows <= 0 {
		return nil
	}
	var samples []TableSample
	for i, table := range descriptor.Tables {
		if i >= tables {
			break
		}
		result, err := db.SampleRows(ctx, table.Name, rows)
		if err != nil {
			zap.S().Warnf("skipping sample rows for table %s: %v", table.Name, err)
			continue
		}
		samples = append(samples, TableSample{Table: table.Name, Rows: result})
	}
	return samples
}

func isTimeout(err error) bool {
	var te *ErrTimeout
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

const noticeLimit = 200

// sanitizeNotice turns an internal error into a short user-visible notice,
// never a raw stack trace.
func sanitizeNotice(err error) string {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > noticeLimit {
		msg = msg[:noticeLimit] + "..."
	}
	return "agent attempt failed (" + msg + "), switching to direct approach"
}
