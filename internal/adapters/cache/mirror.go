// Package cache mirrors committed leaderboards into Redis sorted sets so
// external dashboards can read them without touching the bot. The bot reads
// them back when its own store cannot be queried.
//
// Keys:
//   - "wordle:board:{window}" sorted set, member player id, score average
//   - "wordle:games:{window}" hash, player id -> games in the window
//   - "wordle:rating"         sorted set, member player id, score exposure
//   - "wordle:names"          hash, player id -> display name
//   - "wordle:meta"           hash, game and updated_at
//
// Notifications are published on the "wordle:notifications" channel.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
	"github.com/okian/wordleboard/pkg/metrics"
)

// ChannelNotifications carries every outbound notification as JSON.
const ChannelNotifications = "wordle:notifications"

const (
	keyBoard         = "wordle:board:"
	keyGames         = "wordle:games:"
	keyRating        = "wordle:rating"
	keyNames         = "wordle:names"
	keyMeta          = "wordle:meta"
	defaultMirrorTTL = 14 * 24 * time.Hour
)

// Snapshot is the committed state pushed after a unit of work.
type Snapshot struct {
	Game      int
	Standings map[model.Window][]model.Standing
	Ratings   []model.RatedPlayer
}

// Entry is one row read back from a mirrored board.
type Entry struct {
	PlayerID string
	Name     string
	Score    float64
	// Games is zero on the rating board.
	Games int
}

// Mirror writes snapshots to Redis.
type Mirror struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

// NewMirror wraps an existing client.
func NewMirror(client redis.UniversalClient, opts ...Option) *Mirror {
	m := &Mirror{client: client, ttl: defaultMirrorTTL, logger: logger.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return NewMirror(client, opts...), nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}

// Publish replaces every mirrored board with the snapshot in one MULTI.
func (m *Mirror) Publish(ctx context.Context, snap Snapshot) error {
	pipe := m.client.TxPipeline()

	names := make(map[string]any)
	for _, w := range model.Windows {
		key, gamesKey := keyBoard+string(w), keyGames+string(w)
		pipe.Del(ctx, key, gamesKey)
		rows := snap.Standings[w]
		if len(rows) == 0 {
			continue
		}
		members := make([]redis.Z, 0, len(rows))
		games := make(map[string]any, len(rows))
		for _, row := range rows {
			members = append(members, redis.Z{Score: row.Aggregate.Average, Member: row.PlayerID})
			games[row.PlayerID] = row.Games
			names[row.PlayerID] = row.Name
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.HSet(ctx, gamesKey, games)
		pipe.Expire(ctx, key, m.ttl)
		pipe.Expire(ctx, gamesKey, m.ttl)
	}

	pipe.Del(ctx, keyRating)
	if len(snap.Ratings) > 0 {
		members := make([]redis.Z, 0, len(snap.Ratings))
		for _, r := range snap.Ratings {
			members = append(members, redis.Z{Score: r.Exposure, Member: r.PlayerID})
			names[r.PlayerID] = r.Name
		}
		pipe.ZAdd(ctx, keyRating, members...)
		pipe.Expire(ctx, keyRating, m.ttl)
	}

	if len(names) > 0 {
		pipe.HSet(ctx, keyNames, names)
		pipe.Expire(ctx, keyNames, m.ttl)
	}
	pipe.HSet(ctx, keyMeta, map[string]any{
		"game":       strconv.Itoa(snap.Game),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordMirrorPublishError()
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	m.logger.Debug(ctx, "mirrored leaderboards", logger.GameID(snap.Game), logger.Int("rated", len(snap.Ratings)))
	return nil
}

// Top reads back a mirrored board. Daily, weekly and all-time boards are
// ascending by average; the rating board is descending by exposure.
func (m *Mirror) Top(ctx context.Context, board string, n int64) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	var (
		zs       []redis.Z
		gamesKey string
		err      error
	)
	if board == "rating" {
		zs, err = m.client.ZRevRangeWithScores(ctx, keyRating, 0, n-1).Result()
	} else {
		w, ok := model.ParseWindow(board)
		if !ok {
			return nil, ErrInvalidBoard
		}
		gamesKey = keyGames + string(w)
		zs, err = m.client.ZRangeWithScores(ctx, keyBoard+string(w), 0, n-1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("read board %s: %w", board, err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(zs))
	for i, z := range zs {
		ids[i], _ = z.Member.(string)
	}
	names, err := m.client.HMGet(ctx, keyNames, ids...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read names: %w", err)
	}

	var games []any
	if gamesKey != "" {
		games, err = m.client.HMGet(ctx, gamesKey, ids...).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("read games: %w", err)
		}
	}

	out := make([]Entry, len(zs))
	for i, z := range zs {
		out[i] = Entry{PlayerID: ids[i], Score: z.Score}
		if i < len(names) {
			if s, ok := names[i].(string); ok {
				out[i].Name = s
			}
		}
		if i < len(games) {
			if s, ok := games[i].(string); ok {
				out[i].Games, _ = strconv.Atoi(s)
			}
		}
	}
	return out, nil
}

// Send publishes a notification on the notifications channel. It lets the
// mirror sit behind the worker pool next to the chat poster.
func (m *Mirror) Send(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: matches worker.Sender
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := m.client.Publish(ctx, ChannelNotifications, payload).Err(); err != nil {
		metrics.RecordMirrorPublishError()
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}
