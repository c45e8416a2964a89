package board

import (
	"testing"

	"github.com/wordgems/backend/internal/models"
)

func grid(rows ...[]string) models.Board {
	return models.Board(rows)
}

func TestCanFormWordAdjacentPath(t *testing.T) {
	b := grid(
		[]string{"C", "A", "T", "S"},
		[]string{"O", "X", "E", "R"},
		[]string{"D", "O", "G", "S"},
		[]string{"E", "M", "I", "T"},
	)

	for _, word := range []string{"CAT", "CATS", "DOG", "DOGS", "TEX"} {
		if !CanFormWord(b, word) {
			t.Errorf("expected %q to be formable", word)
		}
	}
}

func TestCanFormWordTopRowPath(t *testing.T) {
	b := grid(
		[]string{"C", "A", "T"},
		[]string{"X", "X", "X"},
		[]string{"X", "X", "X"},
	)
	if !CanFormWord(b, "CAT") {
		t.Error("expected CAT along the top row to be formable")
	}
}

func TestCanFormWordRejectsNonAdjacentLetters(t *testing.T) {
	b := grid(
		[]string{"C", "A", "T", "S"},
		[]string{"O", "X", "E", "R"},
		[]string{"D", "O", "G", "S"},
		[]string{"E", "M", "I", "T"},
	)

	// D and T are never adjacent on this board.
	if CanFormWord(b, "DT") {
		t.Error("expected non-adjacent path to be rejected")
	}
	if CanFormWord(b, "CAZ") {
		t.Error("expected missing letter to be rejected")
	}
}

func TestCanFormWordCellUsedOnce(t *testing.T) {
	b := grid(
		[]string{"N", "O"},
		[]string{"X", "X"},
	)

	// NOON needs two Os and two Ns; the board has one of each.
	if CanFormWord(b, "NOON") {
		t.Error("expected cell reuse to be rejected")
	}
	if !CanFormWord(b, "NO") {
		t.Error("expected NO to be formable")
	}
}

func TestCanFormWordMultiLetterToken(t *testing.T) {
	b := grid(
		[]string{"QU", "I"},
		[]string{"C", "K"},
	)

	// The QU die face is consumed as a whole.
	if !CanFormWord(b, "QUICK") {
		t.Error("expected QUICK to be formable across the QU face")
	}
	if CanFormWord(b, "QIK") {
		t.Error("expected lone Q prefix to be rejected")
	}
}

func TestCanFormWordBacktracksThroughDeadEnds(t *testing.T) {
	// Two As: the path through the top-right A dead-ends, the other works.
	b := grid(
		[]string{"B", "A"},
		[]string{"A", "R"},
	)
	if !CanFormWord(b, "BAR") {
		t.Error("expected BAR to be formable via backtracking")
	}
}

func TestGenerateBoardDimensionsAndTokens(t *testing.T) {
	g := NewGenerator()
	for _, size := range []int{4, 5} {
		b := g.Generate(size)
		if len(b) != size {
			t.Fatalf("got %d rows, want %d", len(b), size)
		}
		for _, row := range b {
			if len(row) != size {
				t.Fatalf("got %d cols, want %d", len(row), size)
			}
			for _, cell := range row {
				if cell == "Q" {
					t.Error("bare Q should be rendered as QU")
				}
				if cell == "" {
					t.Error("empty cell")
				}
			}
		}
	}
}
