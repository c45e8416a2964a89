package payout

import (
	"testing"

	"github.com/wordgems/backend/internal/models"
)

func seats(scores ...int) []models.MatchPlayer {
	out := make([]models.MatchPlayer, len(scores))
	for i, s := range scores {
		out[i] = models.MatchPlayer{UserID: string(rune('a' + i)), Score: s}
	}
	return out
}

func byUser(ranked []models.MatchPlayer) map[string]models.MatchPlayer {
	out := make(map[string]models.MatchPlayer, len(ranked))
	for _, p := range ranked {
		out[p.UserID] = p
	}
	return out
}

func TestRankAndAllocateSimpleSplit(t *testing.T) {
	ranked := RankAndAllocate(seats(90, 70, 50), 500, []float64{3, 1.5, 0.5})
	got := byUser(ranked)

	want := map[string]struct {
		rank     int
		winnings int
	}{
		"a": {1, 300},
		"b": {2, 150},
		"c": {3, 50},
	}
	for user, w := range want {
		p := got[user]
		if p.Rank != w.rank || p.Winnings != w.winnings {
			t.Errorf("user %s: got rank=%d winnings=%d, want rank=%d winnings=%d",
				user, p.Rank, p.Winnings, w.rank, w.winnings)
		}
	}
}

func TestRankAndAllocateTieBandSplitsEvenly(t *testing.T) {
	// Positions 1 and 2 pool 300+150=450 and split it 225 each; both keep
	// rank 1 and the next player drops to rank 3.
	ranked := RankAndAllocate(seats(90, 90, 70, 50), 500, []float64{3, 1.5, 0.5})
	got := byUser(ranked)

	if got["a"].Winnings != 225 || got["b"].Winnings != 225 {
		t.Errorf("tied winners got %d and %d, want 225 each", got["a"].Winnings, got["b"].Winnings)
	}
	if got["a"].Rank != 1 || got["b"].Rank != 1 {
		t.Errorf("tied winners got ranks %d and %d, want 1 and 1", got["a"].Rank, got["b"].Rank)
	}
	if got["c"].Rank != 3 || got["c"].Winnings != 50 {
		t.Errorf("third place got rank=%d winnings=%d, want rank=3 winnings=50", got["c"].Rank, got["c"].Winnings)
	}
	if got["d"].Rank != 4 || got["d"].Winnings != 0 {
		t.Errorf("fourth place got rank=%d winnings=%d, want rank=4 winnings=0", got["d"].Rank, got["d"].Winnings)
	}
}

func TestRankAndAllocateRoundingRemainderGoesToFirst(t *testing.T) {
	ranked := RankAndAllocate(seats(30, 20, 10), 100, []float64{1, 1, 1})
	got := byUser(ranked)

	if got["a"].Winnings != 34 || got["b"].Winnings != 33 || got["c"].Winnings != 33 {
		t.Errorf("got winnings %d/%d/%d, want 34/33/33",
			got["a"].Winnings, got["b"].Winnings, got["c"].Winnings)
	}
	total := got["a"].Winnings + got["b"].Winnings + got["c"].Winnings
	if total != 100 {
		t.Errorf("pool not fully spent: paid %d of 100", total)
	}
}

func TestRankAndAllocateTieSpansBeyondPaidPositions(t *testing.T) {
	// Only one paid position, but both players tie for it. The band pools
	// 100+0 and splits it 50/50.
	ranked := RankAndAllocate(seats(60, 60), 100, []float64{1})
	got := byUser(ranked)

	if got["a"].Winnings != 50 || got["b"].Winnings != 50 {
		t.Errorf("got winnings %d/%d, want 50/50", got["a"].Winnings, got["b"].Winnings)
	}
	if got["a"].Rank != 1 || got["b"].Rank != 1 {
		t.Errorf("got ranks %d/%d, want 1/1", got["a"].Rank, got["b"].Rank)
	}
}

func TestRankAndAllocateTieBandOddRemainderToEarliest(t *testing.T) {
	// Band pools 101 across two tied players: 51 to the earlier seat.
	ranked := RankAndAllocate(seats(60, 60), 101, []float64{1})

	if ranked[0].Winnings != 51 || ranked[1].Winnings != 50 {
		t.Errorf("got winnings %d/%d, want 51/50", ranked[0].Winnings, ranked[1].Winnings)
	}
}

func TestRankAndAllocateZeroPoolRanksOnly(t *testing.T) {
	ranked := RankAndAllocate(seats(30, 50, 10), 0, []float64{1})
	got := byUser(ranked)

	if got["b"].Rank != 1 || got["a"].Rank != 2 || got["c"].Rank != 3 {
		t.Errorf("got ranks b=%d a=%d c=%d, want 1/2/3", got["b"].Rank, got["a"].Rank, got["c"].Rank)
	}
	for _, p := range ranked {
		if p.Winnings != 0 {
			t.Errorf("user %s got winnings %d from empty pool", p.UserID, p.Winnings)
		}
	}
}

func TestRankAndAllocateDoesNotModifyInput(t *testing.T) {
	in := seats(10, 90)
	RankAndAllocate(in, 100, []float64{1})
	if in[0].Score != 10 || in[0].Winnings != 0 || in[0].Rank != 0 {
		t.Errorf("input slice was modified: %+v", in[0])
	}
}
