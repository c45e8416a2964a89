package lobby

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wordgems/backend/internal/models"
)

// ErrUnknownLobbyType is returned when a lobby type is not in the catalog.
var ErrUnknownLobbyType = errors.New("unknown lobby type")

const (
	minGameDuration = 60
	maxGameDuration = 1800
	minPlayers      = 2
	maxPlayers      = 10
)

// Catalog is the read-only set of lobby presets, keyed by lobby type.
type Catalog struct {
	ordered []models.LobbyConfig
	byType  map[string]models.LobbyConfig
}

type catalogFile struct {
	Lobbies []models.LobbyConfig `yaml:"lobbies"`
}

// Load reads and validates the lobby catalog from a YAML file. Entries that
// fail validation are skipped with a warning rather than failing the load,
// so one bad preset cannot take every lobby offline.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lobby catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lobby catalog: %w", err)
	}

	return New(file.Lobbies), nil
}

// New builds a catalog from already-parsed presets, dropping invalid ones.
func New(lobbies []models.LobbyConfig) *Catalog {
	c := &Catalog{byType: make(map[string]models.LobbyConfig)}
	for _, l := range lobbies {
		if err := validate(l); err != nil {
			log.Warn().
				Str("lobby_type", l.LobbyType).
				Err(err).
				Msg("skipping invalid lobby config")
			continue
		}
		if _, dup := c.byType[l.LobbyType]; dup {
			log.Warn().Str("lobby_type", l.LobbyType).Msg("skipping duplicate lobby config")
			continue
		}
		c.byType[l.LobbyType] = l
		c.ordered = append(c.ordered, l)
	}
	log.Info().Int("count", len(c.ordered)).Msg("loaded lobby catalog")
	return c
}

// Get returns the preset for a lobby type.
func (c *Catalog) Get(lobbyType string) (models.LobbyConfig, error) {
	cfg, ok := c.byType[lobbyType]
	if !ok {
		return models.LobbyConfig{}, fmt.Errorf("%w: %s", ErrUnknownLobbyType, lobbyType)
	}
	return cfg, nil
}

// All returns the presets in file order.
func (c *Catalog) All() []models.LobbyConfig {
	out := make([]models.LobbyConfig, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func validate(l models.LobbyConfig) error {
	switch {
	case l.LobbyType == "":
		return errors.New("lobby_type is required")
	case l.Name == "":
		return errors.New("name is required")
	case l.EntryFee < 0:
		return errors.New("entry_fee must be non-negative")
	case l.BoardSize != 4 && l.BoardSize != 5:
		return fmt.Errorf("board_size must be 4 or 5, got %d", l.BoardSize)
	case l.GameDuration < minGameDuration || l.GameDuration > maxGameDuration:
		return fmt.Errorf("game_duration must be within [%d, %d] seconds, got %d",
			minGameDuration, maxGameDuration, l.GameDuration)
	case l.MaxPlayers < minPlayers || l.MaxPlayers > maxPlayers:
		return fmt.Errorf("max_players must be within [%d, %d], got %d",
			minPlayers, maxPlayers, l.MaxPlayers)
	case l.TotalPrizePool < 0:
		return errors.New("total_prize_pool must be non-negative")
	}
	return nil
}
