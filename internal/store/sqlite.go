package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// SQLiteStore implements Store in a single local SQLite file: the
// server-side counterpart of the browser's local storage. Timestamps are
// stored as RFC 3339 text and costs as decimal text.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_sessions (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	game_date        TEXT NOT NULL,
	selected_numbers TEXT NOT NULL,
	grids            TEXT NOT NULL,
	strategy         TEXT NOT NULL DEFAULT '',
	total_cost       TEXT NOT NULL,
	status           TEXT NOT NULL,
	results          TEXT,
	checked_at       TEXT
);
CREATE INDEX IF NOT EXISTS game_sessions_game_date_idx ON game_sessions (game_date);
`

// OpenSQLite opens (or creates) the database at path with WAL journaling
// and a busy timeout, then applies the schema. Use ":memory:" in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		// Each connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, sqliteSchema) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, gs *model.GameSession) error {
	row, err := encodeSession(gs)
	if err != nil {
		return err
	}
	var results, checkedAt sql.NullString
	if row.results != nil {
		results = sql.NullString{String: string(row.results), Valid: true}
	}
	if gs.CheckedAt != nil {
		checkedAt = sql.NullString{String: gs.CheckedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_sessions (id, name, created_at, game_date, selected_numbers, grids,
		                            strategy, total_cost, status, results, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gs.ID, gs.Name, gs.CreatedAt.UTC().Format(time.RFC3339Nano), gs.GameDate,
		string(row.numbers), string(row.grids), gs.Strategy, gs.TotalCost.String(),
		gs.Status, results, checkedAt,
	)
	if isSQLiteDuplicate(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, gs.ID)
	}
	if err != nil {
		return fmt.Errorf("create session %s: %w", gs.ID, err)
	}
	return nil
}

const sqliteSelect = `SELECT id, name, created_at, game_date, selected_numbers, grids,
	        strategy, total_cost, status, results, checked_at
	 FROM game_sessions`

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.GameSession, error) {
	gs, err := scanSQLiteSession(s.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return gs, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]model.GameSession, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.GameSession{}
	for rows.Next() {
		gs, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *gs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Text timestamps with variable fractional digits do not sort
	// lexically, so order in Go.
	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *SQLiteStore) UpdateSessionResult(ctx context.Context, id, status string, result *model.GameResult, checkedAt time.Time) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE game_sessions SET status = ?, results = ?, checked_at = ? WHERE id = ?`,
		status, string(data), checkedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) GetSpendByGameDate(ctx context.Context) (map[string]decimal.Decimal, error) {
	// Costs are decimal text; sum in Go to keep exact precision.
	rows, err := s.db.QueryContext(ctx, `SELECT game_date, total_cost FROM game_sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	spend := make(map[string]decimal.Decimal)
	for rows.Next() {
		var date, total string
		if err := rows.Scan(&date, &total); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("decode total cost for %s: %w", date, err)
		}
		spend[date] = spend[date].Add(v)
	}
	return spend, rows.Err()
}

func scanSQLiteSession(row rowScanner) (*model.GameSession, error) {
	var gs model.GameSession
	var createdAt, numbers, grids, total string
	var results, checkedAt sql.NullString

	if err := row.Scan(&gs.ID, &gs.Name, &createdAt, &gs.GameDate, &numbers, &grids,
		&gs.Strategy, &total, &gs.Status, &results, &checkedAt); err != nil {
		return nil, err
	}

	var err error
	if gs.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	var resultBytes []byte
	if results.Valid {
		resultBytes = []byte(results.String)
	}
	if err := decodeSession(&gs, []byte(numbers), []byte(grids), resultBytes, total); err != nil {
		return nil, err
	}
	if checkedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, checkedAt.String)
		if err != nil {
			return nil, fmt.Errorf("decode checked_at: %w", err)
		}
		gs.CheckedAt = &t
	}
	return &gs, nil
}

// isSQLiteDuplicate reports whether err is a primary key or unique
// constraint violation.
func isSQLiteDuplicate(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	switch sqErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
