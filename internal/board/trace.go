package board

import (
	"strings"

	"github.com/wordgems/backend/internal/models"
)

// CanFormWord reports whether the word can be traced on the board as a path
// of adjacent cells (8-directional), visiting each cell at most once. A cell
// consumes its whole token per step: a multi-letter token must match a
// contiguous run of the remaining word exactly.
func CanFormWord(b models.Board, rawWord string) bool {
	if len(b) == 0 || len(b[0]) == 0 {
		return false
	}
	word := strings.ToUpper(rawWord)
	if word == "" {
		return false
	}

	rows, cols := len(b), len(b[0])
	visited := make([][]bool, rows)
	for r := range visited {
		visited[r] = make([]bool, cols)
	}

	var dfs func(r, c, index int) bool
	dfs = func(r, c, index int) bool {
		token := b[r][c]
		if !tokenMatchesAt(word, token, index) {
			return false
		}
		next := index + len(token)
		if next == len(word) {
			return true
		}

		visited[r][c] = true
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				nr, nc := r+dr, c+dc
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				if visited[nr][nc] {
					continue
				}
				if dfs(nr, nc, next) {
					visited[r][c] = false
					return true
				}
			}
		}
		visited[r][c] = false
		return false
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if dfs(r, c, 0) {
				return true
			}
		}
	}
	return false
}

// tokenMatchesAt reports whether token covers word[index:index+len(token)].
func tokenMatchesAt(word, token string, index int) bool {
	if index+len(token) > len(word) {
		return false
	}
	return word[index:index+len(token)] == token
}
