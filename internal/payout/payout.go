// Package payout turns final scores into ranks and prize amounts.
package payout

import (
	"math"
	"sort"

	"github.com/wordgems/backend/internal/models"
)

// RankAndAllocate sorts players by score descending and splits the prize
// pool across the top positions according to the multiplier table.
//
// Rules:
//   - N = min(player count, multiplier count); only the top N order
//     positions carry a base allocation.
//   - Base allocation for position r is floor(pool * weight[r] / sum), with
//     the rounding leftover added to position 1 so the pool is fully spent.
//   - Players with equal scores form a tie band. The band pools the base
//     allocations of every position it spans (positions beyond N contribute
//     zero) and splits them evenly, handing remainder units to the
//     earliest-ordered members.
//   - Reported rank is the band's starting position (standard competition
//     ranking), so ties share the better rank and the next band skips ahead.
//
// The input slice is not modified; the returned slice is a ranked copy.
func RankAndAllocate(players []models.MatchPlayer, prizePool int, multipliers []float64) []models.MatchPlayer {
	ordered := make([]models.MatchPlayer, len(players))
	copy(ordered, players)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	n := len(ordered)
	if len(multipliers) < n {
		n = len(multipliers)
	}

	if prizePool <= 0 || n == 0 {
		return rankOnly(ordered)
	}

	weights := make([]float64, n)
	var weightSum float64
	for i := 0; i < n; i++ {
		w := multipliers[i]
		if w < 0 {
			w = 0
		}
		weights[i] = w
		weightSum += w
	}

	baseAmounts := make([]int, n)
	if weightSum > 0 {
		distributed := 0
		for r := 0; r < n; r++ {
			amt := int(math.Floor(float64(prizePool) * weights[r] / weightSum))
			if amt < 0 {
				amt = 0
			}
			baseAmounts[r] = amt
			distributed += amt
		}
		if remainder := prizePool - distributed; remainder > 0 {
			baseAmounts[0] += remainder
		}
	}

	result := make([]models.MatchPlayer, 0, len(ordered))
	for i := 0; i < len(ordered); {
		j := bandEnd(ordered, i)
		startRank := i + 1

		bandTotal := 0
		for r := startRank; r <= j+1; r++ {
			if r <= n {
				bandTotal += baseAmounts[r-1]
			}
		}

		size := j - i + 1
		per := bandTotal / size
		rem := bandTotal - per*size
		for k := i; k <= j; k++ {
			p := ordered[k]
			p.Rank = startRank
			p.Winnings = per
			if rem > 0 {
				p.Winnings++
				rem--
			}
			result = append(result, p)
		}
		i = j + 1
	}
	return result
}

// rankOnly assigns competition ranks with zero winnings.
func rankOnly(ordered []models.MatchPlayer) []models.MatchPlayer {
	result := make([]models.MatchPlayer, 0, len(ordered))
	for i := 0; i < len(ordered); {
		j := bandEnd(ordered, i)
		for k := i; k <= j; k++ {
			p := ordered[k]
			p.Rank = i + 1
			p.Winnings = 0
			result = append(result, p)
		}
		i = j + 1
	}
	return result
}

// bandEnd returns the last index of the tie band starting at i.
func bandEnd(ordered []models.MatchPlayer, i int) int {
	j := i
	for j+1 < len(ordered) && ordered[j+1].Score == ordered[i].Score {
		j++
	}
	return j
}
