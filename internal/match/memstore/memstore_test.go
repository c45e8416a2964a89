package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wordgems/backend/internal/match"
	"github.com/wordgems/backend/internal/models"
)

func sample(id string, users ...string) *models.Match {
	m := &models.Match{
		ID:        id,
		LobbyType: "duel",
		Board:     models.Board{{"A", "B"}, {"C", "D"}},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:    models.MatchStatusWaiting,
	}
	for _, u := range users {
		m.Players = append(m.Players, models.MatchPlayer{UserID: u, Words: []string{}})
	}
	return m
}

func TestSaveIncrementsVersion(t *testing.T) {
	s := New()
	ctx := context.Background()

	m := sample("m1", "u1")
	if err := s.Save(ctx, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.Version != 1 {
		t.Errorf("got version %d, want 1", m.Version)
	}
	if err := s.Save(ctx, m); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if m.Version != 2 {
		t.Errorf("got version %d, want 2", m.Version)
	}
}

func TestSaveRejectsStaleVersion(t *testing.T) {
	s := New()
	ctx := context.Background()

	m := sample("m1", "u1")
	if err := s.Save(ctx, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, _ := s.Get(ctx, "m1")
	second, _ := s.Get(ctx, "m1")

	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save first reader: %v", err)
	}
	if err := s.Save(ctx, second); !errors.Is(err, match.ErrVersionConflict) {
		t.Fatalf("got %v, want ErrVersionConflict", err)
	}
}

func TestSaveRejectsCreateWithNonZeroVersion(t *testing.T) {
	s := New()
	m := sample("m1", "u1")
	m.Version = 3
	if err := s.Save(context.Background(), m); !errors.Is(err, match.ErrVersionConflict) {
		t.Fatalf("got %v, want ErrVersionConflict", err)
	}
}

func TestGetReturnsIsolatedCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Save(ctx, sample("m1", "u1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Players[0].Score = 999
	got.Board[0][0] = "Z"

	again, _ := s.Get(ctx, "m1")
	if again.Players[0].Score != 0 || again.Board[0][0] != "A" {
		t.Error("stored match shares memory with a returned copy")
	}
}

func TestGetUnknown(t *testing.T) {
	s := New()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, match.ErrMatchNotFound) {
		t.Fatalf("got %v, want ErrMatchNotFound", err)
	}
}

func TestListByUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, m := range []*models.Match{
		sample("m1", "u1", "u2"),
		sample("m2", "u2"),
		sample("m3", "u1"),
	} {
		if err := s.Save(ctx, m); err != nil {
			t.Fatalf("Save %s: %v", m.ID, err)
		}
	}

	got, err := s.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m3" {
		t.Errorf("got %d matches, want m1 and m3", len(got))
	}
}

func TestWaitingPointer(t *testing.T) {
	s := New()
	ctx := context.Background()

	if id, _ := s.GetWaiting(ctx, "duel"); id != "" {
		t.Errorf("fresh store has waiting pointer %q", id)
	}
	if err := s.SetWaiting(ctx, "duel", "m1"); err != nil {
		t.Fatalf("SetWaiting: %v", err)
	}
	if id, _ := s.GetWaiting(ctx, "duel"); id != "m1" {
		t.Errorf("got %q, want m1", id)
	}
	if err := s.ClearWaiting(ctx, "duel"); err != nil {
		t.Fatalf("ClearWaiting: %v", err)
	}
	if id, _ := s.GetWaiting(ctx, "duel"); id != "" {
		t.Errorf("pointer %q survived clear", id)
	}
}

func TestRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Save(ctx, sample("m1", "u1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Remove(ctx, "m1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, "m1"); !errors.Is(err, match.ErrMatchNotFound) {
		t.Fatalf("got %v, want ErrMatchNotFound", err)
	}
	// Removing twice is fine.
	if err := s.Remove(ctx, "m1"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}
