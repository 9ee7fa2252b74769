// Package results persists run, step and break-event records to SQLite so
// avalanche statistics survive the run and can be queried afterwards.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Store is a SQLite-backed results store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the results database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing results schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one recorded simulation run.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     *time.Time
	DataFile       string
	ThresholdsFile string
	Steps          int
	Increment      float64
	TotalBroken    int64
}

// StepRecord is one strain step's outcome.
type StepRecord struct {
	Step       int
	Broken     int
	Cumulative int64
	Iterations int
	Duration   time.Duration
}

// EventRecord is one severed bond.
type EventRecord struct {
	Step      int
	Iteration int
	BondIndex int
	BondType  int
}

// CreateRun inserts a new run row and returns its generated ID.
func (s *Store) CreateRun(ctx context.Context, dataFile, thresholdsFile string, steps int, increment float64) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, data_file, thresholds_file, steps, increment)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), dataFile, thresholdsFile, steps, increment)
	if err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's completion time and final total.
func (s *Store) FinishRun(ctx context.Context, runID string, totalBroken int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, total_broken = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), totalBroken, runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// RecordStep writes one step row and its break events in a single
// transaction, so a crash never leaves a step without its events.
func (s *Store) RecordStep(ctx context.Context, runID string, step StepRecord, events []EventRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording step: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO steps (run_id, step, broken, cumulative, iterations, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, step.Step, step.Broken, step.Cumulative, step.Iterations, step.Duration.Milliseconds()); err != nil {
		return fmt.Errorf("recording step %d: %w", step.Step, err)
	}

	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, step, iteration, bond_index, bond_type)
			VALUES (?, ?, ?, ?, ?)`,
			runID, ev.Step, ev.Iteration, ev.BondIndex, ev.BondType); err != nil {
			return fmt.Errorf("recording event for bond %d: %w", ev.BondIndex, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns all recorded runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, data_file, thresholds_file, steps, increment, total_broken
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID, or nil if not found.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, data_file, thresholds_file, steps, increment, total_broken
		FROM runs WHERE id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var started string
	var finished sql.NullString
	if err := rows.Scan(&r.ID, &started, &finished, &r.DataFile, &r.ThresholdsFile,
		&r.Steps, &r.Increment, &r.TotalBroken); err != nil {
		return r, fmt.Errorf("scanning run: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
		r.StartedAt = t
	}
	if finished.Valid {
		if t, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
			r.FinishedAt = &t
		}
	}
	return r, nil
}

// Summary aggregates a run's avalanche statistics.
type Summary struct {
	Run           Run
	StepsRecorded int
	TotalBroken   int64
	MaxAvalanche  int
	MeanAvalanche float64

	// SizeCounts maps avalanche size (bonds broken in one step) to the
	// number of steps with that size, including zero-break steps.
	SizeCounts map[int]int
}

// Summarize computes the avalanche-size statistics for a run.
func (s *Store) Summarize(ctx context.Context, runID string) (*Summary, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT broken FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("summarizing run: %w", err)
	}
	defer rows.Close()

	sum := &Summary{Run: *run, SizeCounts: make(map[int]int)}
	for rows.Next() {
		var broken int
		if err := rows.Scan(&broken); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		sum.StepsRecorded++
		sum.TotalBroken += int64(broken)
		sum.SizeCounts[broken]++
		if broken > sum.MaxAvalanche {
			sum.MaxAvalanche = broken
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if sum.StepsRecorded > 0 {
		sum.MeanAvalanche = float64(sum.TotalBroken) / float64(sum.StepsRecorded)
	}
	return sum, nil
}

// Sizes returns the distinct avalanche sizes of a summary in ascending
// order, for stable presentation.
func (sum *Summary) Sizes() []int {
	sizes := make([]int, 0, len(sum.SizeCounts))
	for size := range sum.SizeCounts {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}
