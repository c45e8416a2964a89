package board

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wordgems/backend/internal/models"
)

// dice is the classic 16-die set. Each board cell rolls one die; the bag is
// reshuffled per board and cycled when the board has more cells than dice.
var dice = [][]string{
	{"A", "A", "E", "E", "G", "N"},
	{"E", "L", "R", "T", "T", "Y"},
	{"A", "O", "O", "T", "T", "W"},
	{"A", "B", "B", "J", "O", "O"},
	{"E", "H", "R", "T", "V", "W"},
	{"C", "I", "M", "O", "T", "U"},
	{"D", "I", "S", "T", "T", "Y"},
	{"E", "I", "O", "S", "S", "T"},
	{"D", "E", "L", "R", "V", "Y"},
	{"A", "C", "H", "O", "P", "S"},
	{"H", "I", "M", "N", "Q", "U"},
	{"E", "E", "I", "N", "S", "U"},
	{"E", "E", "G", "H", "N", "W"},
	{"A", "F", "F", "K", "P", "S"},
	{"H", "L", "N", "N", "R", "Z"},
	{"D", "E", "I", "L", "R", "X"},
}

// Generator produces random letter boards from the die set.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator constructs a Generator with its own seeded source.
func NewGenerator() *Generator {
	return &Generator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewGeneratorWithSource constructs a Generator from a caller-provided
// source, used by tests that need a reproducible board.
func NewGeneratorWithSource(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate rolls a size×size board. A rolled "Q" face becomes the combined
// "QU" token so that standard Q words remain traceable.
func (g *Generator) Generate(size int) models.Board {
	g.mu.Lock()
	defer g.mu.Unlock()

	bag := make([][]string, len(dice))
	copy(bag, dice)
	g.rng.Shuffle(len(bag), func(i, j int) {
		bag[i], bag[j] = bag[j], bag[i]
	})

	grid := make(models.Board, size)
	idx := 0
	for r := 0; r < size; r++ {
		grid[r] = make([]string, size)
		for c := 0; c < size; c++ {
			die := bag[idx%len(bag)]
			face := die[g.rng.Intn(len(die))]
			if face == "Q" {
				face = "QU"
			}
			grid[r][c] = face
			idx++
		}
	}
	return grid
}
