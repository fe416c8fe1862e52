package ranking

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/internal/domain/rating"
)

func rated(id string, mu, sigma float64) model.RatedPlayer {
	r := model.Rating{Mu: mu, Sigma: sigma}
	return model.RatedPlayer{PlayerID: id, Name: "name-" + id, Rating: r, Exposure: mu - 3*sigma}
}

func TestIndex_BasicOperations(t *testing.T) {
	x := NewIndex()
	if x.Len() != 0 {
		t.Fatalf("expected empty index, got %d", x.Len())
	}
	if _, err := x.Rank("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := x.Top(0); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}

	x.Upsert(rated("B", 28, 8))
	x.Upsert(rated("A", 30, 2))

	top, err := x.Top(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 || top[0].PlayerID != "A" || top[1].PlayerID != "B" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if top[0].Rank != 1 || top[1].Rank != 2 {
		t.Errorf("unexpected ranks: %d %d", top[0].Rank, top[1].Rank)
	}

	b, err := x.Rank("B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Rank != 2 || b.Name != "name-B" {
		t.Errorf("unexpected row for B: %+v", b)
	}

	// B overtakes A after a rating change.
	x.Upsert(rated("B", 40, 1))
	if b, _ := x.Rank("B"); b.Rank != 1 {
		t.Errorf("expected B to lead, got rank %d", b.Rank)
	}
	if x.Len() != 2 {
		t.Errorf("upsert of a known id must not grow the index, got %d", x.Len())
	}

	if a, _ := x.Rank("A"); a.Rank != 2 {
		t.Errorf("expected A to drop to rank 2, got %d", a.Rank)
	}
}

func TestIndex_TiesShareRank(t *testing.T) {
	x := NewIndex()
	x.Replace([]model.RatedPlayer{
		rated("d", 19, 3),
		rated("z", 40, 1),
		rated("c", 25, 5),
		rated("e", 10, 3),
	})

	top, _ := x.Top(4)
	ids := []string{top[0].PlayerID, top[1].PlayerID, top[2].PlayerID, top[3].PlayerID}
	if fmt.Sprint(ids) != "[z c d e]" {
		t.Fatalf("unexpected order %v", ids)
	}
	wantRanks := []int{1, 2, 2, 4}
	for i, w := range wantRanks {
		if top[i].Rank != w {
			t.Errorf("row %d: expected rank %d, got %d", i, w, top[i].Rank)
		}
	}
	if d, _ := x.Rank("d"); d.Rank != 2 {
		t.Errorf("expected d to share rank 2, got %d", d.Rank)
	}
	if e, _ := x.Rank("e"); e.Rank != 4 {
		t.Errorf("expected e at rank 4, got %d", e.Rank)
	}
}

func TestIndex_MatchesEngineOrdering(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	engine := rating.NewEngine()
	x := NewIndex()

	players := make([]model.RatedPlayer, 0, 300)
	for i := 0; i < 300; i++ {
		// Coarse values force plenty of exposure ties.
		p := model.RatedPlayer{
			PlayerID: fmt.Sprintf("p%03d", r.Intn(1000)),
			Rating:   model.Rating{Mu: float64(15 + r.Intn(20)), Sigma: float64(1 + r.Intn(8))},
		}
		p.Exposure = engine.Exposure(p.Rating)
		x.Upsert(p)
		players = append(players, p)
	}

	latest := map[string]model.RatedPlayer{}
	for _, p := range players {
		latest[p.PlayerID] = p
	}
	unique := make([]model.RatedPlayer, 0, len(latest))
	for _, p := range latest {
		unique = append(unique, p)
	}
	want := engine.Leaderboard(unique)

	got, err := x.Top(len(want) + 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].PlayerID != want[i].PlayerID || got[i].Rank != want[i].Rank {
			t.Fatalf("row %d: want %s/%d got %s/%d", i, want[i].PlayerID, want[i].Rank, got[i].PlayerID, got[i].Rank)
		}
		row, _ := x.Rank(want[i].PlayerID)
		if row.Rank != want[i].Rank {
			t.Fatalf("Rank(%s): want %d got %d", want[i].PlayerID, want[i].Rank, row.Rank)
		}
	}
}

func TestIndex_ConcurrentAccess(t *testing.T) {
	x := NewIndex()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("w%d-%d", w, i%20)
				x.Upsert(rated(id, float64(i%30), 2))
				_, _ = x.Rank(id)
				_, _ = x.Top(5)
			}
		}(w)
	}
	wg.Wait()
	if x.Len() != 160 {
		t.Errorf("expected 160 players, got %d", x.Len())
	}
}

func BenchmarkIndex_Upsert(b *testing.B) {
	x := NewIndex()
	r := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x.Upsert(rated(fmt.Sprintf("p%d", i%10_000), r.Float64()*50, r.Float64()*8))
	}
}

func BenchmarkIndex_Rank(b *testing.B) {
	x := NewIndex()
	for i := 0; i < 10_000; i++ {
		x.Upsert(rated(fmt.Sprintf("p%d", i), float64(i%97), 3))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = x.Rank(fmt.Sprintf("p%d", i%10_000))
	}
}
