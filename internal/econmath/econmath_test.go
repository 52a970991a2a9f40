package econmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 6.0, Clamp(2, 6, 16))
	assert.Equal(t, 16.0, Clamp(99, 6, 16))
	assert.Equal(t, 10.5, Clamp(10.5, 6, 16))
}

func TestRatioDegenerate(t *testing.T) {
	assert.Equal(t, 2.0, Ratio(10, 5, 0))
	assert.Equal(t, 7.0, Ratio(10, 0, 7))
	assert.Equal(t, 7.0, Ratio(10, -1, 7))
}

func TestApportionExactWhenSupplyCovers(t *testing.T) {
	shares := Apportion([]int{3, 0, 5}, 100)
	assert.Equal(t, []int{3, 0, 5}, shares)
}

func TestApportionSumsToTotal(t *testing.T) {
	claims := []int{7, 3, 9, 1, 0, 14}
	total := 20
	shares := Apportion(claims, total)

	sum := 0
	for i, s := range shares {
		require.LessOrEqual(t, s, claims[i], "share %d exceeds its claim", i)
		require.GreaterOrEqual(t, s, 0)
		sum += s
	}
	assert.Equal(t, total, sum)
}

func TestApportionProportional(t *testing.T) {
	// A claim twice as large gets (within one unit) twice the share.
	shares := Apportion([]int{10, 20, 30}, 30)
	assert.Equal(t, []int{5, 10, 15}, shares)
}

func TestApportionDeterministicTies(t *testing.T) {
	a := Apportion([]int{1, 1, 1}, 2)
	b := Apportion([]int{1, 1, 1}, 2)
	assert.Equal(t, a, b)
	assert.Equal(t, []int{1, 1, 0}, a)
}

func TestApportionEmptyAndZero(t *testing.T) {
	assert.Equal(t, []int{0, 0}, Apportion([]int{0, 0}, 10))
	assert.Equal(t, []int{0, 0}, Apportion([]int{4, 4}, 0))
	assert.Empty(t, Apportion(nil, 5))
}
