package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Costs are stored as NUMERIC for exact decimal precision; numbers, grids
// and results are stored as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// PostgresSchema creates the sessions table.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS game_sessions (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	game_date        TEXT NOT NULL,
	selected_numbers JSONB NOT NULL,
	grids            JSONB NOT NULL,
	strategy         TEXT NOT NULL DEFAULT '',
	total_cost       NUMERIC(14,2) NOT NULL,
	status           TEXT NOT NULL,
	results          JSONB,
	checked_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS game_sessions_game_date_idx ON game_sessions (game_date);
`

// Migrate applies PostgresSchema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, PostgresSchema)
	return err
}

func (s *PostgresStore) CreateSession(ctx context.Context, gs *model.GameSession) error {
	row, err := encodeSession(gs)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_sessions (id, name, created_at, game_date, selected_numbers, grids,
		                            strategy, total_cost, status, results, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::NUMERIC, $9, $10, $11)`,
		gs.ID, gs.Name, gs.CreatedAt, gs.GameDate, row.numbers, row.grids,
		gs.Strategy, gs.TotalCost.String(), gs.Status, row.results, gs.CheckedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, gs.ID)
	}
	if err != nil {
		return fmt.Errorf("create session %s: %w", gs.ID, err)
	}
	return nil
}

const selectSession = `SELECT id, name, created_at, game_date, selected_numbers, grids,
	        strategy, total_cost::TEXT, status, results, checked_at
	 FROM game_sessions`

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.GameSession, error) {
	gs, err := scanSession(s.pool.QueryRow(ctx, selectSession+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return gs, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]model.GameSession, error) {
	rows, err := s.pool.Query(ctx, selectSession+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.GameSession{}
	for rows.Next() {
		gs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *gs)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) UpdateSessionResult(ctx context.Context, id, status string, result *model.GameResult, checkedAt time.Time) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET status = $2, results = $3, checked_at = $4 WHERE id = $1`,
		id, status, data, checkedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM game_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) GetSpendByGameDate(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT game_date, COALESCE(SUM(total_cost), 0)::TEXT
		 FROM game_sessions GROUP BY game_date`)
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
		spend[date] = v
	}
	return spend, rows.Err()
}

// encodedSession holds the JSON columns of a session row.
type encodedSession struct {
	numbers []byte
	grids   []byte
	results []byte // nil when unchecked
}

func encodeSession(gs *model.GameSession) (encodedSession, error) {
	var row encodedSession
	var err error
	if row.numbers, err = json.Marshal(gs.SelectedNumbers); err != nil {
		return row, fmt.Errorf("encode numbers: %w", err)
	}
	if row.grids, err = json.Marshal(gs.Tickets); err != nil {
		return row, fmt.Errorf("encode grids: %w", err)
	}
	if gs.Results != nil {
		if row.results, err = json.Marshal(gs.Results); err != nil {
			return row, fmt.Errorf("encode results: %w", err)
		}
	}
	return row, nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.GameSession, error) {
	var gs model.GameSession
	var numbers, grids, results []byte
	var total string
	var checkedAt *time.Time

	if err := row.Scan(&gs.ID, &gs.Name, &gs.CreatedAt, &gs.GameDate, &numbers, &grids,
		&gs.Strategy, &total, &gs.Status, &results, &checkedAt); err != nil {
		return nil, err
	}
	if err := decodeSession(&gs, numbers, grids, results, total); err != nil {
		return nil, err
	}
	gs.CheckedAt = checkedAt
	return &gs, nil
}

func decodeSession(gs *model.GameSession, numbers, grids, results []byte, total string) error {
	if err := json.Unmarshal(numbers, &gs.SelectedNumbers); err != nil {
		return fmt.Errorf("decode numbers: %w", err)
	}
	if err := json.Unmarshal(grids, &gs.Tickets); err != nil {
		return fmt.Errorf("decode grids: %w", err)
	}
	if len(results) > 0 && string(results) != "null" {
		var r model.GameResult
		if err := json.Unmarshal(results, &r); err != nil {
			return fmt.Errorf("decode results: %w", err)
		}
		gs.Results = &r
	}
	cost, err := decimal.NewFromString(total)
	if err != nil {
		return fmt.Errorf("decode total cost: %w", err)
	}
	gs.TotalCost = cost
	return nil
}
