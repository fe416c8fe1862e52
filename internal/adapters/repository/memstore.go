package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/okian/wordleboard/internal/domain/model"
)

type scoreKey struct {
	playerID string
	game     int
}

// state is an immutable snapshot once published; writers work on a clone.
type state struct {
	players map[string]string
	history map[scoreKey]int
	daily   []model.ScoreRecord
	aggs    map[model.Window]map[string]model.Aggregate
	ratings map[string]model.Rating
	game    int
	week    int
}

func newState() *state {
	s := &state{
		players: make(map[string]string),
		history: make(map[scoreKey]int),
		aggs:    make(map[model.Window]map[string]model.Aggregate, len(model.Windows)),
		ratings: make(map[string]model.Rating),
	}
	for _, w := range model.Windows {
		s.aggs[w] = make(map[string]model.Aggregate)
	}
	return s
}

func (s *state) clone() *state {
	c := &state{
		players: maps.Clone(s.players),
		history: maps.Clone(s.history),
		daily:   append([]model.ScoreRecord(nil), s.daily...),
		aggs:    make(map[model.Window]map[string]model.Aggregate, len(s.aggs)),
		ratings: maps.Clone(s.ratings),
		game:    s.game,
		week:    s.week,
	}
	for w, m := range s.aggs {
		c.aggs[w] = maps.Clone(m)
	}
	return c
}

// MemoryStore keeps all state in process. Writers are serialized and work on
// a private copy that replaces the published snapshot only on success, so a
// failed unit of work leaves no trace and readers never see partial writes.
type MemoryStore struct {
	writeMu sync.Mutex

	mu     sync.RWMutex
	cur    *state
	closed bool

	opts options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{cur: newState(), opts: o}
}

func (s *MemoryStore) snapshot() (*state, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.cur, nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	base, err := s.snapshot()
	if err != nil {
		return err
	}
	tx := &memTx{st: base.clone(), prior: s.opts.prior}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cur = tx.st
	return nil
}

// View implements Store.
func (s *MemoryStore) View(ctx context.Context, fn func(tx ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	return fn(&memTx{st: snap, prior: s.opts.prior})
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memTx struct {
	st    *state
	prior model.Rating
}

func (t *memTx) EnsurePlayer(_ context.Context, playerID, name string) (bool, error) {
	if _, ok := t.st.players[playerID]; ok {
		t.st.players[playerID] = name
		return false, nil
	}
	t.st.players[playerID] = name
	for _, w := range model.Windows {
		t.st.aggs[w][playerID] = model.Aggregate{}
	}
	t.st.ratings[playerID] = t.prior
	return true, nil
}

func (t *memTx) PlayerName(_ context.Context, playerID string) (string, error) {
	name, ok := t.st.players[playerID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	return name, nil
}

func (t *memTx) PlayerCount(context.Context) (int, error) {
	return len(t.st.players), nil
}

func (t *memTx) Stats(_ context.Context, playerID string) (model.PlayerStats, error) {
	name, ok := t.st.players[playerID]
	if !ok {
		return model.PlayerStats{}, fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	return model.PlayerStats{
		Player:  model.Player{ID: playerID, Name: name},
		Daily:   t.st.aggs[model.WindowDaily][playerID],
		Weekly:  t.st.aggs[model.WindowWeekly][playerID],
		AllTime: t.st.aggs[model.WindowAllTime][playerID],
		Rating:  t.st.ratings[playerID],
	}, nil
}

func (t *memTx) RecordDaily(_ context.Context, playerID string, score, game int) (bool, error) {
	if _, ok := t.st.players[playerID]; !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	key := scoreKey{playerID: playerID, game: game}
	if _, dup := t.st.history[key]; dup {
		return false, nil
	}
	t.st.history[key] = score
	if game == t.st.game {
		t.st.daily = append(t.st.daily, model.ScoreRecord{PlayerID: playerID, Score: score, Game: game})
		agg := t.st.aggs[model.WindowDaily][playerID]
		agg.Record(score)
		t.st.aggs[model.WindowDaily][playerID] = agg
	}
	return true, nil
}

func (t *memTx) RecordCumulative(_ context.Context, playerID string, score int, w model.Window) error {
	if w != model.WindowWeekly && w != model.WindowAllTime {
		return fmt.Errorf("%w: cumulative %q", ErrInvalidWindow, w)
	}
	agg, ok := t.st.aggs[w][playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	agg.Record(score)
	t.st.aggs[w][playerID] = agg
	return nil
}

func (t *memTx) ResetWindow(_ context.Context, w model.Window) error {
	if !w.Resettable() {
		return fmt.Errorf("%w: reset %q", ErrInvalidWindow, w)
	}
	for id := range t.st.aggs[w] {
		t.st.aggs[w][id] = model.Aggregate{}
	}
	return nil
}

func (t *memTx) ClearDailyScores(context.Context) error {
	t.st.daily = nil
	return nil
}

func (t *memTx) DailyScores(_ context.Context, game int) ([]model.ScoreRecord, error) {
	out := make([]model.ScoreRecord, 0, len(t.st.daily))
	for _, r := range t.st.daily {
		if r.Game == game {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) Standings(_ context.Context, w model.Window) ([]model.Standing, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWindow, w)
	}
	out := make([]model.Standing, 0, len(t.st.aggs[w]))
	for id, agg := range t.st.aggs[w] {
		if agg.Empty() {
			continue
		}
		out = append(out, model.Standing{PlayerID: id, Name: t.st.players[id], Aggregate: agg})
	}
	SortStandings(out)
	return out, nil
}

func (t *memTx) Ratings(context.Context) ([]model.RatedPlayer, error) {
	out := make([]model.RatedPlayer, 0, len(t.st.ratings))
	for id, r := range t.st.ratings {
		out = append(out, model.RatedPlayer{PlayerID: id, Name: t.st.players[id], Rating: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (t *memTx) PutRating(_ context.Context, playerID string, r model.Rating) error {
	if _, ok := t.st.ratings[playerID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	t.st.ratings[playerID] = r
	return nil
}

func (t *memTx) GameCursor(context.Context) (int, error) { return t.st.game, nil }
func (t *memTx) WeekCursor(context.Context) (int, error) { return t.st.week, nil }

func (t *memTx) SetGameCursor(_ context.Context, game int) error {
	if game < t.st.game {
		return fmt.Errorf("%w: %d -> %d", ErrCursorBackward, t.st.game, game)
	}
	t.st.game = game
	return nil
}

func (t *memTx) SetWeekCursor(_ context.Context, week int) error {
	t.st.week = week
	return nil
}

// SortStandings orders rows by ascending average, then player id.
func SortStandings(rows []model.Standing) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Average != rows[j].Average {
			return rows[i].Average < rows[j].Average
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
}
