package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/wordleboard/internal/domain/model"
)

// Pool defaults applied when the URL does not set them.
const (
	defaultMaxConns        = 10
	defaultMinConns        = 2
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = 30 * time.Minute
	defaultHealthCheck     = time.Minute

	pgForeignKeyViolation = "23503"
)

// PostgresStore persists state in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresStore connects to databaseURL and verifies the connection.
// Call Migrate before first use.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...Option) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database url: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = defaultMaxConns
	}
	if cfg.MinConns == 0 {
		cfg.MinConns = defaultMinConns
	}
	cfg.MaxConnLifetime = defaultMaxConnLifetime
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	cfg.HealthCheckPeriod = defaultHealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PostgresStore{pool: pool, opts: o}, nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// withTx commits when fn returns nil and rolls back otherwise.
func (s *PostgresStore) withTx(ctx context.Context, txo pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, txo)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrTransaction, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %w)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTransaction, err)
	}
	return nil
}

// Update implements Store. The game cursor row is locked first so writers
// from several processes still apply one at a time.
func (s *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT value FROM cursors WHERE name = 'game' FOR UPDATE`); err != nil {
			return fmt.Errorf("lock cursor: %w", err)
		}
		return fn(&pgTx{tx: tx, prior: s.opts.prior})
	})
}

// View implements Store with a repeatable-read, read-only transaction.
func (s *PostgresStore) View(ctx context.Context, fn func(tx ReadTx) error) error {
	return s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, prior: s.opts.prior})
	})
}

type pgTx struct {
	tx    pgx.Tx
	prior model.Rating
}

func notFoundOnFK(err error, playerID string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	return err
}

func (t *pgTx) EnsurePlayer(ctx context.Context, playerID, name string) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO players (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		playerID, name)
	if err != nil {
		return false, fmt.Errorf("insert player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := t.tx.Exec(ctx,
			`UPDATE players SET name = $2, updated_at = NOW() WHERE id = $1`,
			playerID, name); err != nil {
			return false, fmt.Errorf("rename player: %w", err)
		}
		return false, nil
	}

	batch := &pgx.Batch{}
	for _, w := range model.Windows {
		batch.Queue(`INSERT INTO aggregates (player_id, window_name) VALUES ($1, $2)`, playerID, string(w))
	}
	batch.Queue(`INSERT INTO ratings (player_id, mu, sigma) VALUES ($1, $2, $3)`, playerID, t.prior.Mu, t.prior.Sigma)
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("create player rows: %w", err)
	}
	return true, nil
}

func (t *pgTx) PlayerName(ctx context.Context, playerID string) (string, error) {
	var name string
	err := t.tx.QueryRow(ctx, `SELECT name FROM players WHERE id = $1`, playerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	if err != nil {
		return "", fmt.Errorf("select player: %w", err)
	}
	return name, nil
}

func (t *pgTx) PlayerCount(ctx context.Context) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

func (t *pgTx) Stats(ctx context.Context, playerID string) (model.PlayerStats, error) {
	name, err := t.PlayerName(ctx, playerID)
	if err != nil {
		return model.PlayerStats{}, err
	}
	st := model.PlayerStats{Player: model.Player{ID: playerID, Name: name}}

	rows, err := t.tx.Query(ctx,
		`SELECT window_name, games, total, average, histogram FROM aggregates WHERE player_id = $1`,
		playerID)
	if err != nil {
		return model.PlayerStats{}, fmt.Errorf("select aggregates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var w string
		agg, err := scanAggregate(rows, &w)
		if err != nil {
			return model.PlayerStats{}, err
		}
		switch model.Window(w) {
		case model.WindowDaily:
			st.Daily = agg
		case model.WindowWeekly:
			st.Weekly = agg
		case model.WindowAllTime:
			st.AllTime = agg
		}
	}
	if err := rows.Err(); err != nil {
		return model.PlayerStats{}, fmt.Errorf("select aggregates: %w", err)
	}

	if err := t.tx.QueryRow(ctx,
		`SELECT mu, sigma FROM ratings WHERE player_id = $1`, playerID,
	).Scan(&st.Rating.Mu, &st.Rating.Sigma); err != nil {
		return model.PlayerStats{}, fmt.Errorf("select rating: %w", err)
	}
	return st, nil
}

// scanAggregate reads (prefix..., games, total, average, histogram).
func scanAggregate(row pgx.Row, prefix ...any) (model.Aggregate, error) {
	var (
		agg  model.Aggregate
		hist []int32
	)
	dest := append(prefix, &agg.Games, &agg.Total, &agg.Average, &hist)
	if err := row.Scan(dest...); err != nil {
		return model.Aggregate{}, fmt.Errorf("scan aggregate: %w", err)
	}
	for i := 0; i < len(hist) && i < model.HistogramBuckets; i++ {
		agg.Histogram[i] = int(hist[i])
	}
	return agg, nil
}

func (t *pgTx) RecordDaily(ctx context.Context, playerID string, score, game int) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO score_history (player_id, game, score) VALUES ($1, $2, $3) ON CONFLICT (player_id, game) DO NOTHING`,
		playerID, game, score)
	if err != nil {
		return false, notFoundOnFK(fmt.Errorf("insert score: %w", err), playerID)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	current, err := t.GameCursor(ctx)
	if err != nil {
		return false, err
	}
	if game != current {
		return true, nil
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO daily_scores (player_id, game, score) VALUES ($1, $2, $3)`,
		playerID, game, score); err != nil {
		return false, fmt.Errorf("insert daily score: %w", err)
	}
	if err := t.bump(ctx, playerID, score, model.WindowDaily); err != nil {
		return false, err
	}
	return true, nil
}

func (t *pgTx) bump(ctx context.Context, playerID string, score int, w model.Window) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE aggregates
		SET games = games + 1,
		    total = total + $2,
		    average = (total + $2)::double precision / (games + 1),
		    histogram[$2] = histogram[$2] + 1
		WHERE player_id = $1 AND window_name = $3`,
		playerID, score, string(w))
	if err != nil {
		return fmt.Errorf("update %s aggregate: %w", w, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	return nil
}

func (t *pgTx) RecordCumulative(ctx context.Context, playerID string, score int, w model.Window) error {
	if w != model.WindowWeekly && w != model.WindowAllTime {
		return fmt.Errorf("%w: cumulative %q", ErrInvalidWindow, w)
	}
	return t.bump(ctx, playerID, score, w)
}

func (t *pgTx) ResetWindow(ctx context.Context, w model.Window) error {
	if !w.Resettable() {
		return fmt.Errorf("%w: reset %q", ErrInvalidWindow, w)
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE aggregates
		SET games = 0, total = 0, average = 0, histogram = '{0,0,0,0,0,0,0}'
		WHERE window_name = $1`, string(w))
	if err != nil {
		return fmt.Errorf("reset %s: %w", w, err)
	}
	return nil
}

func (t *pgTx) ClearDailyScores(ctx context.Context) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM daily_scores`); err != nil {
		return fmt.Errorf("clear daily scores: %w", err)
	}
	return nil
}

func (t *pgTx) DailyScores(ctx context.Context, game int) ([]model.ScoreRecord, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT player_id, score, game FROM daily_scores WHERE game = $1 ORDER BY player_id COLLATE "C"`, game)
	if err != nil {
		return nil, fmt.Errorf("select daily scores: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ScoreRecord, error) {
		var r model.ScoreRecord
		err := row.Scan(&r.PlayerID, &r.Score, &r.Game)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan daily scores: %w", err)
	}
	return out, nil
}

func (t *pgTx) Standings(ctx context.Context, w model.Window) ([]model.Standing, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWindow, w)
	}
	rows, err := t.tx.Query(ctx, `
		SELECT a.player_id, p.name, a.games, a.total, a.average, a.histogram
		FROM aggregates a JOIN players p ON p.id = a.player_id
		WHERE a.window_name = $1 AND a.games > 0
		ORDER BY a.average, a.player_id COLLATE "C"`, string(w))
	if err != nil {
		return nil, fmt.Errorf("select standings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Standing, error) {
		var s model.Standing
		agg, err := scanAggregate(row, &s.PlayerID, &s.Name)
		s.Aggregate = agg
		return s, err
	})
	if err != nil {
		return nil, err
	}
	// Averages are recomputed in SQL; sort again so ties use the exact Go ordering.
	SortStandings(out)
	return out, nil
}

func (t *pgTx) Ratings(ctx context.Context) ([]model.RatedPlayer, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT r.player_id, p.name, r.mu, r.sigma
		FROM ratings r JOIN players p ON p.id = r.player_id
		ORDER BY r.player_id COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RatedPlayer, error) {
		var p model.RatedPlayer
		err := row.Scan(&p.PlayerID, &p.Name, &p.Mu, &p.Sigma)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan ratings: %w", err)
	}
	return out, nil
}

func (t *pgTx) PutRating(ctx context.Context, playerID string, r model.Rating) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ratings SET mu = $2, sigma = $3, updated_at = NOW() WHERE player_id = $1`,
		playerID, r.Mu, r.Sigma)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	return nil
}

func (t *pgTx) cursor(ctx context.Context, name string) (int, error) {
	var v int
	if err := t.tx.QueryRow(ctx, `SELECT value FROM cursors WHERE name = $1`, name).Scan(&v); err != nil {
		return 0, fmt.Errorf("select %s cursor: %w", name, err)
	}
	return v, nil
}

func (t *pgTx) GameCursor(ctx context.Context) (int, error) { return t.cursor(ctx, "game") }
func (t *pgTx) WeekCursor(ctx context.Context) (int, error) { return t.cursor(ctx, "week") }

func (t *pgTx) SetGameCursor(ctx context.Context, game int) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE cursors SET value = $1 WHERE name = 'game' AND value <= $1`, game)
	if err != nil {
		return fmt.Errorf("update game cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: -> %d", ErrCursorBackward, game)
	}
	return nil
}

func (t *pgTx) SetWeekCursor(ctx context.Context, week int) error {
	if _, err := t.tx.Exec(ctx, `UPDATE cursors SET value = $1 WHERE name = 'week'`, week); err != nil {
		return fmt.Errorf("update week cursor: %w", err)
	}
	return nil
}
