package results

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	collection_id TEXT NOT NULL,
	run_dir       TEXT NOT NULL,
	args          TEXT NOT NULL,
	auc           REAL NOT NULL,
	rmse          REAL NOT NULL,
	real_time     REAL NOT NULL,
	exit_code     INTEGER NOT NULL,
	finished_at   TEXT NOT NULL,
	collected_at  TEXT NOT NULL
)`

var runsIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_runs_run_dir ON runs(run_dir)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_collection ON runs(collection_id)`,
}

// Record is one stored scoring of a run.
type Record struct {
	CollectionID string
	Run          Run
	CollectedAt  time.Time
}

// Store keeps the history of every collection in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the history database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(createRunsTable); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	for i, idx := range runsIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// Append stores runs under collectionID in one transaction.
func (s *Store) Append(collectionID string, runs []*Run, collectedAt time.Time) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	at := collectedAt.UTC().Format(time.RFC3339Nano)
	for _, run := range runs {
		_, err := sq.Insert("runs").
			Columns("collection_id", "run_dir", "args", "auc", "rmse", "real_time", "exit_code", "finished_at", "collected_at").
			Values(collectionID, run.Dir, string(run.Args), run.Result.AUC, run.Result.RMSE, run.Result.RealTime,
				run.Result.ExitCode, run.Result.Time.UTC().Format(time.RFC3339Nano), at).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.Dir, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// History returns every stored scoring of runDir, oldest first. An empty
// runDir returns the whole history.
func (s *Store) History(runDir string) ([]*Record, error) {
	q := sq.Select("collection_id", "run_dir", "args", "auc", "rmse", "real_time", "exit_code", "finished_at", "collected_at").
		From("runs").
		OrderBy("id")
	if runDir != "" {
		q = q.Where(sq.Eq{"run_dir": runDir})
	}

	rows, err := q.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec                     Record
			args                    string
			finishedAt, collectedAt string
		)
		if err := rows.Scan(&rec.CollectionID, &rec.Run.Dir, &args, &rec.Run.Result.AUC, &rec.Run.Result.RMSE,
			&rec.Run.Result.RealTime, &rec.Run.Result.ExitCode, &finishedAt, &collectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Run.Args = []byte(args)
		if rec.Run.Result.Time, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("invalid finished_at %q: %w", finishedAt, err)
		}
		if rec.CollectedAt, err = time.Parse(time.RFC3339Nano, collectedAt); err != nil {
			return nil, fmt.Errorf("invalid collected_at %q: %w", collectedAt, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
