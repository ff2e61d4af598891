// File: internal/store/store.go
// Package store persists analysis runs and their verdicts in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("analysis run not found")

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id UUID PRIMARY KEY,
    source TEXT NOT NULL DEFAULT '',
    vulnerable BOOLEAN NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS verdicts (
    run_id UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    pattern TEXT NOT NULL,
    status TEXT NOT NULL,
    sink TEXT NOT NULL DEFAULT '',
    active_endorsers TEXT[] NOT NULL DEFAULT '{}',
    PRIMARY KEY (run_id, position)
);
`

const (
	sqlInsertRun = `
        INSERT INTO analysis_runs (id, source, vulnerable, created_at)
        VALUES ($1, $2, $3, $4);
    `
	sqlSelectRun = `
        SELECT created_at
        FROM analysis_runs
        WHERE id = $1;
    `
	sqlSelectVerdicts = `
        SELECT pattern, status, sink, active_endorsers
        FROM verdicts
        WHERE run_id = $1
        ORDER BY position ASC;
    `
)

var verdictColumns = []string{"run_id", "position", "pattern", "status", "sink", "active_endorsers"}

// Store provides the PostgreSQL persistence for analysis results.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveResult writes a run and its verdicts in one transaction. source names
// the analyzed input and may be empty.
func (s *Store) SaveResult(ctx context.Context, result *taint.Result, source string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful Commit returns ErrTxClosed.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertRun, result.RunID, source, result.Vulnerable(), result.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", result.RunID, err)
	}

	if len(result.Verdicts) > 0 {
		if err := s.persistVerdicts(ctx, tx, result); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Persisted analysis run",
		zap.Stringer("run_id", result.RunID),
		zap.Int("verdicts", len(result.Verdicts)),
	)
	return nil
}

func (s *Store) persistVerdicts(ctx context.Context, tx pgx.Tx, result *taint.Result) error {
	rows := make([][]interface{}, len(result.Verdicts))
	for i, v := range result.Verdicts {
		endorsers := v.ActiveEndorsers
		if endorsers == nil {
			// The column is NOT NULL.
			endorsers = []string{}
		}
		rows[i] = []interface{}{result.RunID, i, v.Pattern, string(v.Status), v.Sink, endorsers}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"verdicts"}, verdictColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy verdicts: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied verdicts count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// GetVerdictsByRunID returns a run's verdicts in catalog order.
func (s *Store) GetVerdictsByRunID(ctx context.Context, runID uuid.UUID) ([]taint.Verdict, error) {
	rows, err := s.pool.Query(ctx, sqlSelectVerdicts, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []taint.Verdict
	for rows.Next() {
		var v taint.Verdict
		var status string
		if err := rows.Scan(&v.Pattern, &status, &v.Sink, &v.ActiveEndorsers); err != nil {
			return nil, fmt.Errorf("failed to scan verdict row: %w", err)
		}
		v.Status = taint.Status(status)
		if len(v.ActiveEndorsers) == 0 {
			v.ActiveEndorsers = nil
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return verdicts, nil
}

// GetResult reassembles a stored run.
func (s *Store) GetResult(ctx context.Context, runID uuid.UUID) (*taint.Result, error) {
	result := &taint.Result{RunID: runID}
	if err := s.pool.QueryRow(ctx, sqlSelectRun, runID).Scan(&result.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	verdicts, err := s.GetVerdictsByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	result.Verdicts = verdicts
	return result, nil
}
