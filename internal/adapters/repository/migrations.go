package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/okian/wordleboard/pkg/logger"
)

// migration is one forward schema step.
type migration struct {
	version int
	name    string
	up      string
}

const migration001 = `
CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Permanent, one row per player per game.
CREATE TABLE IF NOT EXISTS score_history (
    player_id TEXT NOT NULL REFERENCES players(id),
    game INTEGER NOT NULL,
    score SMALLINT NOT NULL CHECK (score BETWEEN 1 AND 7),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (player_id, game)
);

-- Scores for the active game; emptied at every game rollover.
CREATE TABLE IF NOT EXISTS daily_scores (
    player_id TEXT NOT NULL REFERENCES players(id),
    game INTEGER NOT NULL,
    score SMALLINT NOT NULL,
    PRIMARY KEY (player_id, game)
);

CREATE TABLE IF NOT EXISTS aggregates (
    player_id TEXT NOT NULL REFERENCES players(id),
    window_name TEXT NOT NULL CHECK (window_name IN ('daily', 'weekly', 'alltime')),
    games INTEGER NOT NULL DEFAULT 0,
    total INTEGER NOT NULL DEFAULT 0,
    average DOUBLE PRECISION NOT NULL DEFAULT 0,
    histogram INTEGER[] NOT NULL DEFAULT '{0,0,0,0,0,0,0}',
    PRIMARY KEY (player_id, window_name)
);

CREATE INDEX IF NOT EXISTS idx_aggregates_window_average ON aggregates(window_name, average) WHERE games > 0;

CREATE TABLE IF NOT EXISTS ratings (
    player_id TEXT PRIMARY KEY REFERENCES players(id),
    mu DOUBLE PRECISION NOT NULL,
    sigma DOUBLE PRECISION NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cursors (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

INSERT INTO cursors (name, value) VALUES ('game', 0), ('week', 0) ON CONFLICT (name) DO NOTHING;
`

// Game ids are unbounded puzzle numbers; INTEGER overflowed past 2^31-1.
const migration002 = `
ALTER TABLE score_history ALTER COLUMN game TYPE BIGINT;
ALTER TABLE daily_scores ALTER COLUMN game TYPE BIGINT;
ALTER TABLE cursors ALTER COLUMN value TYPE BIGINT;
`

func migrations() []migration {
	return []migration{
		{version: 1, name: "create_wordle_schema", up: migration001},
		{version: 2, name: "widen_game_ids", up: migration002},
	}
}

// Migrate applies pending schema migrations, each in its own transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("%w: create migrations table: %w", ErrMigrationFailed, err)
	}

	applied := make(map[int]bool)
	rows, err := s.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("%w: list applied: %w", ErrMigrationFailed, err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scan applied: %w", ErrMigrationFailed, err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: list applied: %w", ErrMigrationFailed, err)
	}

	for _, m := range migrations() {
		if applied[m.version] {
			continue
		}
		err := s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, m.version, err)
		}
		s.opts.log.Info(ctx, "applied migration", logger.Int("version", m.version), logger.String("name", m.name))
	}
	return nil
}
