package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/codec"
)

var (
	// ErrRunNotFound is returned when no run matches the requested build.
	ErrRunNotFound = errors.New("run not found")

	// ErrDuplicateRun is returned when a run with the same project and
	// number already exists.
	ErrDuplicateRun = errors.New("run already exists")
)

// RunRecord is the persisted form of one run.
type RunRecord struct {
	ID      string       // Run ID (UUIDv7 in production)
	Project string       // Full project name
	Number  int          // Build number, unique per project
	Causes  cause.Chain  // Bounded cause chain attached at schedule time
	ChainID string       // Content address of Causes; computed on write when empty
	Policy  cause.Policy // Limits the chain was built under
	Seq     int64        // Logical clock
}

// WriteRun inserts a run record. Records are append-only: writing a second
// run with the same project and number returns ErrDuplicateRun.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) error {
	causesJSON, err := codec.Encode(rec.Causes)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	chainID := rec.ChainID
	if chainID == "" {
		chainID, err = codec.ChainID(rec.Causes)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}

	policyJSON, err := json.Marshal(rec.Policy)
	if err != nil {
		return fmt.Errorf("write run: marshal policy: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, project, number, causes, chain_id, policy, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Project,
		rec.Number,
		string(causesJSON),
		chainID,
		string(policyJSON),
		rec.Seq,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("write run %s#%d: %w", rec.Project, rec.Number, ErrDuplicateRun)
		}
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// ReadRun retrieves a single run by project and build number.
// Returns ErrRunNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, project string, number int) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project, number, causes, chain_id, policy, seq
		FROM runs
		WHERE project = ? AND number = ?
	`, project, number)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s#%d: %w", project, number, ErrRunNotFound)
	}
	return rec, err
}

// ListRuns returns every run of a project ordered by build number.
// Returns an empty slice (not nil) if the project has no runs.
func (s *Store) ListRuns(ctx context.Context, project string) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, number, causes, chain_id, policy, seq
		FROM runs
		WHERE project = ?
		ORDER BY number ASC
	`, project)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return collectRuns(rows)
}

// ReadAllRuns returns every run ordered by seq ASC, id ASC.
func (s *Store) ReadAllRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, number, causes, chain_id, policy, seq
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all runs: %w", err)
	}
	return collectRuns(rows)
}

// RunsByChain returns every run whose chain hashes to chainID, ordered by
// seq ASC, id ASC. Served by idx_runs_chain_id.
func (s *Store) RunsByChain(ctx context.Context, chainID string) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, number, causes, chain_id, policy, seq
		FROM runs
		WHERE chain_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, chainID)
	if err != nil {
		return nil, fmt.Errorf("query runs by chain: %w", err)
	}
	return collectRuns(rows)
}

// LatestNumber returns the highest build number of a project, or 0 when
// the project has no runs.
func (s *Store) LatestNumber(ctx context.Context, project string) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(number) FROM runs WHERE project = ?
	`, project).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("latest number: %w", err)
	}
	return int(n.Int64), nil
}

// MaxSeq returns the highest seq written so far, or 0 for an empty store.
// Used to resume the scheduler clock.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return n.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func collectRuns(rows *sql.Rows) ([]RunRecord, error) {
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// scanRun scans a row into a RunRecord, decoding the stored chain as-is.
func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var causesJSON, policyJSON string

	if err := row.Scan(
		&rec.ID, &rec.Project, &rec.Number, &causesJSON, &rec.ChainID, &policyJSON, &rec.Seq,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}

	chain, err := codec.Decode([]byte(causesJSON))
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %s#%d: %w", rec.Project, rec.Number, err)
	}
	rec.Causes = chain

	if policyJSON != "" {
		if err := json.Unmarshal([]byte(policyJSON), &rec.Policy); err != nil {
			return RunRecord{}, fmt.Errorf("run %s#%d: unmarshal policy: %w", rec.Project, rec.Number, err)
		}
	}

	return rec, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
