package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/wordleboard/internal/adapters/http/api"
	service "github.com/okian/wordleboard/internal/app"
	"github.com/okian/wordleboard/internal/domain/classify"
	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	mu       sync.Mutex
	messages []model.Message
	result   service.Result
	err      error

	entries   []types.Entry
	ratings   []types.RatingEntry
	player    types.Player
	readErr   error
	lastBoard model.Window
	lastLimit int
}

func (m *mockDependencies) HandleMessage(_ context.Context, msg model.Message) (service.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.result, m.err
}

func (m *mockDependencies) Leaderboard(_ context.Context, w model.Window, limit int) ([]types.Entry, error) {
	m.lastBoard, m.lastLimit = w, limit
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.entries, nil
}

func (m *mockDependencies) Ratings(_ context.Context, limit int) ([]types.RatingEntry, error) {
	m.lastLimit = limit
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.ratings, nil
}

func (m *mockDependencies) Player(_ context.Context, id string) (types.Player, error) {
	if m.readErr != nil {
		return types.Player{}, m.readErr
	}
	p := m.player
	p.PlayerID = id
	return p, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats(context.Context) map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}, nil, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

const aliceCallback = `{"attachments":[],"avatar_url":"","created_at":1709553600,"group_id":"g1",` +
	`"id":"msg-1","name":" Alice ","sender_id":"u1","sender_type":"user","source_guid":"x",` +
	`"system":false,"text":"Wordle 900 3/6\n⬛🟨⬛⬛⬛","user_id":"u1"}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			So(do(mux, http.MethodPost, "/stats", "{}").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then unknown paths are not found", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then every response carries a request id", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			req.Header.Set(api.HeaderRequestID, "abc")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Header().Get(api.HeaderRequestID), ShouldEqual, "abc")
		})

		Convey("Then /live is only mounted when configured", func() {
			So(do(mux, http.MethodGet, "/live", "").Code, ShouldEqual, http.StatusNotFound)

			called := false
			live := newMux(deps, api.WithLiveFeed(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusSwitchingProtocols)
			}))
			do(live, http.MethodGet, "/live", "")
			So(called, ShouldBeTrue)
		})
	})
}

func TestWebhook(t *testing.T) {
	Convey("Given the webhook endpoint", t, func() {
		deps := &mockDependencies{result: service.Result{Kind: classify.KindScore}}
		mux := newMux(deps)

		Convey("When a GroupMe callback is posted", func() {
			w := do(mux, http.MethodPost, "/webhook", aliceCallback)

			Convey("Then the message is handed to the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ack map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["status"], ShouldEqual, "ok")
				So(ack["kind"], ShouldEqual, "score")

				So(deps.messages, ShouldHaveLength, 1)
				m := deps.messages[0]
				So(m.ID, ShouldEqual, "msg-1")
				So(m.SenderID, ShouldEqual, "u1")
				So(m.Name, ShouldEqual, "Alice")
				So(m.Text, ShouldStartWith, "Wordle 900 3/6")
				So(m.CreatedAt.Unix(), ShouldEqual, 1709553600)
			})
		})

		Convey("When the callback is posted to the root path", func() {
			w := do(mux, http.MethodPost, "/", aliceCallback)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.messages, ShouldHaveLength, 1)
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/webhook", "{nope")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.messages, ShouldBeEmpty)
		})

		Convey("When the method is not POST", func() {
			So(do(mux, http.MethodGet, "/webhook", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a system message arrives", func() {
			w := do(mux, http.MethodPost, "/webhook", `{"id":"s1","system":true,"text":"Bob joined the group"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.messages, ShouldBeEmpty)
		})

		Convey("When the score is malformed", func() {
			deps.err = fmt.Errorf("%w: game id", classify.ErrMalformedScore)
			w := do(mux, http.MethodPost, "/webhook", aliceCallback)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(w.Body.String(), ShouldContainSubstring, "malformed_score")
		})

		Convey("When storage fails", func() {
			deps.err = errors.New("connection reset")
			w := do(mux, http.MethodPost, "/webhook", aliceCallback)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the service is not running", func() {
			deps.err = service.ErrNotStarted
			So(do(mux, http.MethodPost, "/webhook", aliceCallback).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the result is a duplicate submission", func() {
			deps.result = service.Result{Kind: classify.KindScore, Duplicate: true}
			w := do(mux, http.MethodPost, "/webhook", aliceCallback)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given the leaderboard endpoint", t, func() {
		deps := &mockDependencies{
			entries: []types.Entry{{Rank: 1, PlayerID: "u1", Name: "Alice", Games: 1, Average: 3}},
			ratings: []types.RatingEntry{{Rank: 1, PlayerID: "u1", Name: "Alice", Mu: 27, Sigma: 7, Exposure: 6}},
		}
		mux := newMux(deps)

		Convey("When no parameters are given", func() {
			w := do(mux, http.MethodGet, "/leaderboard", "")

			Convey("Then the daily board is returned with the default limit", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastBoard, ShouldEqual, model.WindowDaily)
				So(deps.lastLimit, ShouldEqual, 10)
				So(w.Body.String(), ShouldContainSubstring, `"window":"daily"`)
				So(w.Body.String(), ShouldContainSubstring, `"name":"Alice"`)
			})
		})

		Convey("When the all-time board is requested", func() {
			w := do(mux, http.MethodGet, "/leaderboard?window=all&limit=3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastBoard, ShouldEqual, model.WindowAllTime)
			So(deps.lastLimit, ShouldEqual, 3)
		})

		Convey("When the rating board is requested", func() {
			w := do(mux, http.MethodGet, "/leaderboard?window=rating&limit=5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"exposure":6`)
		})

		Convey("When the window is unknown", func() {
			So(do(mux, http.MethodGet, "/leaderboard?window=monthly", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is not a number", func() {
			So(do(mux, http.MethodGet, "/leaderboard?limit=ten", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service rejects the limit", func() {
			deps.readErr = fmt.Errorf("%w: must be between 1 and 100", service.ErrInvalidLimit)
			So(do(mux, http.MethodGet, "/leaderboard?limit=1000", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPlayer(t *testing.T) {
	Convey("Given the player endpoint", t, func() {
		deps := &mockDependencies{player: types.Player{Name: "Alice"}}
		mux := newMux(deps)

		Convey("When the player exists", func() {
			w := do(mux, http.MethodGet, "/players/u1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var p types.Player
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.PlayerID, ShouldEqual, "u1")
			So(p.Name, ShouldEqual, "Alice")
		})

		Convey("When the player is unknown", func() {
			deps.readErr = fmt.Errorf("%w: u9", service.ErrNotFound)
			So(do(mux, http.MethodGet, "/players/u9", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the path is malformed", func() {
			So(do(mux, http.MethodGet, "/players/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/players/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		So(api.NewKind("api.op", api.ErrUnavailable).Error(), ShouldEqual, "api.op: service unavailable")
		So(api.Wrap("api.op", nil), ShouldBeNil)
	})
}
