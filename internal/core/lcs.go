package core

// LCSResult holds a longest common subsequence and the positions in each
// input that contributed to it, in ascending order.
type LCSResult[T any] struct {
	Sequence     []T
	LeftIndices  []int
	RightIndices []int
}

// MatchFunc decides whether two elements are aligned by the LCS
type MatchFunc[T any] func(left, right T) bool

// Equal is the exact-equality match strategy
func Equal[T comparable](left, right T) bool {
	return left == right
}

// LCS computes the longest common subsequence of left and right using
// match to align elements. Backtracking starts from the end of both inputs,
// takes a diagonal step whenever the elements match, and otherwise moves
// toward the larger neighbour, preferring to drop from left on ties.
func LCS[T any](left, right []T, match MatchFunc[T]) *LCSResult[T] {
	table := lcsTable(left, right, match)

	// Backtrack collects in reverse; flipped at the end.
	result := &LCSResult[T]{}
	i, j := len(left), len(right)
	for i > 0 && j > 0 {
		if match(left[i-1], right[j-1]) {
			result.Sequence = append(result.Sequence, left[i-1])
			result.LeftIndices = append(result.LeftIndices, i-1)
			result.RightIndices = append(result.RightIndices, j-1)
			i--
			j--
			continue
		}
		if table[i][j-1] > table[i-1][j] {
			j--
		} else {
			i--
		}
	}

	reverse(result.Sequence)
	reverse(result.LeftIndices)
	reverse(result.RightIndices)
	return result
}

func lcsTable[T any](left, right []T, match MatchFunc[T]) [][]int {
	table := make([][]int, len(left)+1)
	for i := range table {
		table[i] = make([]int, len(right)+1)
	}
	for i := 1; i <= len(left); i++ {
		for j := 1; j <= len(right); j++ {
			if match(left[i-1], right[j-1]) {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i][j-1], table[i-1][j])
			}
		}
	}
	return table
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
