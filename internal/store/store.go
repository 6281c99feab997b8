// Package store provides SQLite persistence for session history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spboyer/crucible/internal/models"

	_ "modernc.org/sqlite"
)

// Session statuses recorded in history.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a session is not in history.
var ErrNotFound = errors.New("session not found")

// Store handles SQLite persistence. All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// SessionRow is one session as stored in history.
type SessionRow struct {
	ID            string
	Topic         string
	Status        string
	Error         string
	Model         string
	StartedAt     time.Time
	CompletedAt   time.Time
	AnalysisScore float64
	IdeasScore    float64
	Iterations    int
	Checkpoints   int
	DegradedSteps int
}

// IterationRow is one scored iteration as stored in history.
type IterationRow struct {
	SessionID  string
	Phase      models.Phase
	Iteration  int
	FinalScore float64
	Grade      string
	RedFlags   int
	Action     models.Action
	Reason     models.DecisionReason
	Degraded   []string
	Timestamp  time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		model TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		analysis_score REAL DEFAULT 0,
		ideas_score REAL DEFAULT 0,
		iterations INTEGER DEFAULT 0,
		checkpoints INTEGER DEFAULT 0,
		degraded_steps INTEGER DEFAULT 0,
		deliverables TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);

	CREATE TABLE IF NOT EXISTS iterations (
		session_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		final_score REAL NOT NULL,
		grade TEXT,
		red_flags INTEGER DEFAULT 0,
		action TEXT,
		reason TEXT,
		degraded TEXT,
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (session_id, phase, iteration),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordSession stores sess and its iterations, replacing any earlier
// record with the same ID. A non-nil runErr marks the session failed.
func (s *Store) RecordSession(ctx context.Context, sess *models.Session, runErr error) error {
	if sess == nil {
		return errors.New("record session: nil session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	status, errText := StatusCompleted, ""
	if runErr != nil {
		status, errText = StatusFailed, runErr.Error()
	}

	var deliverables []byte
	if sess.Deliverables != nil {
		var err error
		if deliverables, err = json.Marshal(sess.Deliverables); err != nil {
			return fmt.Errorf("marshal deliverables: %w", err)
		}
	}

	var completed any
	if !sess.CompletedAt.IsZero() {
		completed = sess.CompletedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (
			id, topic, status, error, model, started_at, completed_at,
			analysis_score, ideas_score, iterations, checkpoints, degraded_steps, deliverables
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			completed_at = excluded.completed_at,
			analysis_score = excluded.analysis_score,
			ideas_score = excluded.ideas_score,
			iterations = excluded.iterations,
			checkpoints = excluded.checkpoints,
			degraded_steps = excluded.degraded_steps,
			deliverables = excluded.deliverables
	`,
		sess.ID,
		sess.Topic,
		status,
		errText,
		sess.Settings.Model,
		sess.StartedAt,
		completed,
		phaseScore(sess, models.PhaseAnalysisLoop),
		phaseScore(sess, models.PhaseIdeaLoop),
		len(sess.Iterations),
		len(sess.Checkpoints),
		len(sess.Degraded),
		string(deliverables),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO iterations (
			session_id, phase, iteration, final_score, grade, red_flags, action, reason, degraded, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare iterations: %w", err)
	}
	defer stmt.Close()

	for _, it := range sess.Iterations {
		grade, flags := "", 0
		if it.Score != nil {
			grade, flags = it.Score.Grade, len(it.Score.RedFlags)
		}
		if _, err := stmt.ExecContext(ctx,
			sess.ID,
			string(it.Phase),
			it.Iteration,
			it.FinalScore(),
			grade,
			flags,
			string(it.Decision.Action),
			string(it.Decision.Reason),
			strings.Join(it.Degraded, ","),
			it.Timestamp,
		); err != nil {
			return fmt.Errorf("save iteration %s/%d: %w", it.Phase, it.Iteration, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, status, error, model, started_at, completed_at,
			analysis_score, ideas_score, iterations, checkpoints, degraded_steps
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		row, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetSession returns one session by ID, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (SessionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, topic, status, error, model, started_at, completed_at,
			analysis_score, ideas_score, iterations, checkpoints, degraded_steps
		FROM sessions
		WHERE id = ?
	`, id)
	out, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRow{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return out, err
}

// Iterations returns the iterations of a session in execution order.
func (s *Store) Iterations(ctx context.Context, sessionID string) ([]IterationRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, phase, iteration, final_score, grade, red_flags, action, reason, degraded, timestamp
		FROM iterations
		WHERE session_id = ?
		ORDER BY rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	defer rows.Close()

	var out []IterationRow
	for rows.Next() {
		var (
			it                           IterationRow
			phase, action, reason, grade string
			degraded                     sql.NullString
		)
		if err := rows.Scan(&it.SessionID, &phase, &it.Iteration, &it.FinalScore, &grade, &it.RedFlags,
			&action, &reason, &degraded, &it.Timestamp); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		it.Phase = models.Phase(phase)
		it.Grade = grade
		it.Action = models.Action(action)
		it.Reason = models.DecisionReason(reason)
		if degraded.Valid && degraded.String != "" {
			it.Degraded = strings.Split(degraded.String, ",")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Deliverables returns the stored deliverables of a completed session.
func (s *Store) Deliverables(ctx context.Context, id string) (*models.Deliverables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT deliverables FROM sessions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query deliverables: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var d models.Deliverables
	if err := json.Unmarshal([]byte(raw.String), &d); err != nil {
		return nil, fmt.Errorf("decode deliverables: %w", err)
	}
	return &d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (SessionRow, error) {
	var (
		row       SessionRow
		errText   sql.NullString
		model     sql.NullString
		completed sql.NullTime
	)
	if err := sc.Scan(&row.ID, &row.Topic, &row.Status, &errText, &model, &row.StartedAt, &completed,
		&row.AnalysisScore, &row.IdeasScore, &row.Iterations, &row.Checkpoints, &row.DegradedSteps); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, err
		}
		return row, fmt.Errorf("scan session: %w", err)
	}
	row.Error = errText.String
	row.Model = model.String
	if completed.Valid {
		row.CompletedAt = completed.Time
	}
	return row, nil
}

// phaseScore is the carried-forward score of a phase, or its best score
// when the session did not reach finalization.
func phaseScore(sess *models.Session, phase models.Phase) float64 {
	if d := sess.Deliverables; d != nil {
		switch {
		case phase == models.PhaseAnalysisLoop && d.Analysis != nil:
			return d.Analysis.FinalScore
		case phase == models.PhaseIdeaLoop && d.Ideas != nil:
			return d.Ideas.FinalScore
		}
	}
	best := 0.0
	for _, v := range sess.ScoresFor(phase) {
		best = max(best, v)
	}
	return best
}
