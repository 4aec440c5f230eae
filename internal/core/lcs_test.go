package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func runes(s string) []rune {
	return []rune(s)
}

func TestLCS_Strings(t *testing.T) {
	tests := []struct {
		left, right string
		want        string
	}{
		{"HELLO", "HOLLO", "HLLO"},
		{"ABCD", "ABCD1234", "ABCD"},
		{"", "ABC", ""},
		{"ABC", "", ""},
		{"ABC", "XYZ", ""},
		{"AGGTAB", "GXTXAYB", "GTAB"},
	}
	for _, tt := range tests {
		t.Run(tt.left+"/"+tt.right, func(t *testing.T) {
			result := LCS(runes(tt.left), runes(tt.right), Equal[rune])
			assert.Equal(t, tt.want, string(result.Sequence))
			assert.Len(t, result.LeftIndices, len(tt.want))
			assert.Len(t, result.RightIndices, len(tt.want))
		})
	}
}

func TestLCS_IndicesAscending(t *testing.T) {
	result := LCS(runes("XAYBZC"), runes("ABC"), Equal[rune])

	assert.Equal(t, "ABC", string(result.Sequence))
	assert.Equal(t, []int{1, 3, 5}, result.LeftIndices)
	assert.Equal(t, []int{0, 1, 2}, result.RightIndices)
}

func TestLCS_TiePrefersDroppingLeft(t *testing.T) {
	// Both "A" and "B" are a longest common subsequence. Backtracking from
	// the end drops from the left on ties, which keeps the later match.
	result := LCS(runes("AB"), runes("BA"), Equal[rune])

	assert.Equal(t, "A", string(result.Sequence))
	assert.Equal(t, []int{0}, result.LeftIndices)
	assert.Equal(t, []int{1}, result.RightIndices)
}

func TestLCS_CustomMatch(t *testing.T) {
	caseless := func(a, b rune) bool {
		return a == b || a-b == 'a'-'A' || b-a == 'a'-'A'
	}
	result := LCS(runes("abc"), runes("ABC"), caseless)
	assert.Equal(t, []int{0, 1, 2}, result.LeftIndices)
}
