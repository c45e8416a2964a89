package lobby

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wordgems/backend/internal/models"
)

func validConfig(lobbyType string) models.LobbyConfig {
	return models.LobbyConfig{
		LobbyType:         lobbyType,
		Name:              "Test " + lobbyType,
		EntryFee:          50,
		BoardSize:         4,
		GameDuration:      180,
		MaxPlayers:        2,
		PayoutMultipliers: []float64{1},
		TotalPrizePool:    90,
	}
}

func TestNewSkipsInvalidAndDuplicateEntries(t *testing.T) {
	bad := validConfig("bad")
	bad.BoardSize = 7

	c := New([]models.LobbyConfig{
		validConfig("bronze"),
		bad,
		validConfig("bronze"),
		validConfig("silver"),
	})

	if got := len(c.All()); got != 2 {
		t.Fatalf("got %d lobbies, want 2", got)
	}
	if _, err := c.Get("bronze"); err != nil {
		t.Errorf("expected bronze to load: %v", err)
	}
	if _, err := c.Get("bad"); !errors.Is(err, ErrUnknownLobbyType) {
		t.Errorf("expected ErrUnknownLobbyType for bad, got %v", err)
	}
}

func TestGetUnknownLobbyType(t *testing.T) {
	c := New(nil)
	if _, err := c.Get("nope"); !errors.Is(err, ErrUnknownLobbyType) {
		t.Errorf("got %v, want ErrUnknownLobbyType", err)
	}
}

func TestAllPreservesFileOrder(t *testing.T) {
	c := New([]models.LobbyConfig{
		validConfig("bronze"),
		validConfig("silver"),
		validConfig("gold"),
	})
	all := c.All()
	want := []string{"bronze", "silver", "gold"}
	for i, lt := range want {
		if all[i].LobbyType != lt {
			t.Errorf("position %d: got %s, want %s", i, all[i].LobbyType, lt)
		}
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobbies.yaml")
	data := `lobbies:
  - lobby_type: bronze
    name: Bronze Arena
    entry_fee: 50
    board_size: 4
    game_duration: 180
    max_players: 2
    payout_multipliers: [1]
    total_prize_pool: 90
    time_bonus_per_second: 0.5
    time_bonus_max_points: 60
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := c.Get("bronze")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.EntryFee != 50 || cfg.TimeBonusPerSecond != 0.5 || cfg.TimeBonusMaxPoints != 60 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
