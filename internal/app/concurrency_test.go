package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/wordleboard/internal/adapters/cache"
	"github.com/okian/wordleboard/internal/adapters/notify"
	"github.com/okian/wordleboard/internal/adapters/repository"
	service "github.com/okian/wordleboard/internal/app"
	"github.com/okian/wordleboard/internal/domain/classify"
	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
)

// chat is a GroupMe bot endpoint that records posted texts in arrival order.
type chat struct {
	mu    sync.Mutex
	texts []string
}

func (c *chat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.texts = append(c.texts, body.Text)
	c.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (c *chat) posted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func TestService_ChatReceivesRolloverInOrder(t *testing.T) {
	Convey("Given a service posting to GroupMe with default workers", t, func() {
		room := &chat{}
		srv := httptest.NewServer(room)
		defer srv.Close()

		w := &week{n: 100}
		ctx := context.Background()
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithWeekSignal(w),
			service.WithSender(notify.Fanout{notify.NewGroupMe("bot", notify.WithPostURL(srv.URL))}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		So(svc.GetStats(ctx)["workerCount"], ShouldEqual, 1)

		_, _ = svc.HandleMessage(ctx, msg("alice", "Alice", "Wordle 900 3/6"))
		_, _ = svc.HandleMessage(ctx, msg("bob", "Bob", "Wordle 900 3/6"))

		Convey("When a new week's game and a command arrive together", func() {
			w.set(101)
			_, err := svc.HandleMessage(ctx, msg("alice", "Alice", "Wordle 901 4/6"))
			So(err, ShouldBeNil)
			_, err = svc.HandleMessage(ctx, msg("bob", "Bob", "!wordle help"))
			So(err, ShouldBeNil)

			Convey("Then the chat sees weekly winners, then daily winners, then the reply", func() {
				So(eventually(func() bool { return len(room.posted()) == 3 }), ShouldBeTrue)
				posted := room.posted()
				So(posted[0], ShouldStartWith, "This week's winners")
				So(posted[1], ShouldStartWith, "Yesterday's winners of Wordle 900")
				So(posted[2], ShouldContainSubstring, "!wordle leaderboard")
			})
		})
	})
}

func TestService_ConcurrentSubmissions(t *testing.T) {
	const n = 20

	Convey("Given a running service", t, func() {
		svc, ctx := startService()
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When the same score is submitted concurrently", func() {
			results := make([]service.Result, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = svc.HandleMessage(ctx, msg("alice", "Alice", "Wordle 900 3/6"))
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one is recorded and the rest are duplicates", func() {
				recorded := 0
				for i := 0; i < n; i++ {
					So(errs[i], ShouldBeNil)
					So(results[i].Kind, ShouldEqual, classify.KindScore)
					if !results[i].Duplicate {
						recorded++
					}
				}
				So(recorded, ShouldEqual, 1)

				p, err := svc.Player(ctx, "alice")
				So(err, ShouldBeNil)
				So(p.AllTime.Games, ShouldEqual, 1)
				So(p.Weekly.Games, ShouldEqual, 1)
				So(p.Daily.Games, ShouldEqual, 1)
			})
		})

		Convey("When many players open the next game at once", func() {
			_, err := svc.HandleMessage(ctx, msg("alice", "Alice", "Wordle 900 3/6"))
			So(err, ShouldBeNil)

			results := make([]service.Result, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("p%02d", i)
					results[i], errs[i] = svc.HandleMessage(ctx, msg(id, "Player "+id, "Wordle 901 4/6"))
				}(i)
			}
			wg.Wait()

			Convey("Then game 900 is closed exactly once", func() {
				rollovers := 0
				for i := 0; i < n; i++ {
					So(errs[i], ShouldBeNil)
					if results[i].Outcome.DailyRollover {
						rollovers++
						So(results[i].Outcome.ClosedGame, ShouldEqual, 900)
					}
				}
				So(rollovers, ShouldEqual, 1)

				daily, err := svc.Leaderboard(ctx, model.WindowDaily, 100)
				So(err, ShouldBeNil)
				So(daily, ShouldHaveLength, n)
				So(svc.GetStats(ctx)["game"], ShouldEqual, 901)
			})
		})
	})
}

// gatedStore holds the first Update until release is closed.
type gatedStore struct {
	repository.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Update(ctx context.Context, fn func(tx repository.Tx) error) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Store.Update(ctx, fn)
}

func TestService_StopRejectsQueuedWriters(t *testing.T) {
	Convey("Given a write in flight while another waits for the lock", t, func() {
		store := &gatedStore{
			Store:   repository.NewMemoryStore(),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		svc, ctx := startService(service.WithStore(store))

		first := make(chan error, 1)
		go func() {
			_, err := svc.HandleMessage(ctx, msg("alice", "Alice", "Wordle 900 3/6"))
			first <- err
		}()
		<-store.entered

		second := make(chan error, 1)
		go func() {
			_, err := svc.HandleMessage(ctx, msg("bob", "Bob", "Wordle 900 4/6"))
			second <- err
		}()
		time.Sleep(20 * time.Millisecond)

		Convey("When Stop runs before the lock is released", func() {
			stopped := make(chan error, 1)
			go func() { stopped <- svc.Stop(ctx) }()
			time.Sleep(20 * time.Millisecond)
			close(store.release)

			Convey("Then the in-flight write commits and the waiting one is refused", func() {
				So(<-first, ShouldBeNil)
				So(errors.Is(<-second, service.ErrNotStarted), ShouldBeTrue)
				So(<-stopped, ShouldBeNil)
			})
		})
	})
}

// flakyStore fails every read once down is set.
type flakyStore struct {
	repository.Store
	down atomic.Bool
}

func (f *flakyStore) View(ctx context.Context, fn func(tx repository.ReadTx) error) error {
	if f.down.Load() {
		return errors.New("connection refused")
	}
	return f.Store.View(ctx, fn)
}

func TestService_LeaderboardFallsBackToMirror(t *testing.T) {
	Convey("Given a service mirroring into redis", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = client.Close() }()

		store := &flakyStore{Store: repository.NewMemoryStore()}
		svc, ctx := startService(service.WithStore(store), service.WithMirror(cache.NewMirror(client)))
		defer func() { _ = svc.Stop(ctx) }()

		_, _ = svc.HandleMessage(ctx, msg("alice", "Alice", "Wordle 900 3/6"))
		_, _ = svc.HandleMessage(ctx, msg("bob", "Bob", "Wordle 900 5/6"))
		_, _ = svc.HandleMessage(ctx, msg("carol", "Carol", "Wordle 900 3/6"))

		Convey("When the store stops answering", func() {
			store.down.Store(true)
			daily, err := svc.Leaderboard(ctx, model.WindowDaily, 10)

			Convey("Then the last mirrored board is served with competition ranks", func() {
				So(err, ShouldBeNil)
				So(daily, ShouldHaveLength, 3)
				So(daily[0].Rank, ShouldEqual, 1)
				So(daily[1].Rank, ShouldEqual, 1)
				So(daily[0].Average, ShouldEqual, 3)
				So(daily[0].Games, ShouldEqual, 1)
				So(daily[2].PlayerID, ShouldEqual, "bob")
				So(daily[2].Name, ShouldEqual, "Bob")
				So(daily[2].Rank, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a mirror that cannot be read back", t, func() {
		store := &flakyStore{Store: repository.NewMemoryStore()}
		svc, ctx := startService(service.WithStore(store), service.WithMirror(&recordingMirror{}))
		defer func() { _ = svc.Stop(ctx) }()

		store.down.Store(true)
		_, err := svc.Leaderboard(ctx, model.WindowDaily, 10)
		So(err, ShouldNotBeNil)
	})
}
