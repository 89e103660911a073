package rebalance

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestApportion(t *testing.T) {
	tests := []struct {
		n       int
		weights []int
		want    []int
	}{
		{10, []int{50, 30, 20}, []int{5, 3, 2}},
		{3, []int{1, 1, 1}, []int{1, 1, 1}},
		{2, []int{1, 1, 1}, []int{1, 1, 0}},
		{7, []int{10, 0, 4}, []int{5, 0, 2}},
		{100, []int{2, 3}, []int{2, 3}},
		{0, []int{5, 5}, []int{0, 0}},
	}
	for _, tt := range tests {
		got := apportion(tt.n, tt.weights)
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("apportion(%d, %v) = %v, want %v", tt.n, tt.weights, got, tt.want)
				break
			}
		}
	}
}

func TestApportion_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("quotas sum to min(n, total) and respect weights", prop.ForAll(
		func(n int, weights []int) bool {
			got := apportion(n, weights)
			sum, total := 0, 0
			for i, q := range got {
				if q < 0 || q > weights[i] {
					return false
				}
				sum += q
				total += weights[i]
			}
			return sum == min(n, total)
		},
		gen.IntRange(0, 500),
		gen.SliceOfN(3, gen.IntRange(0, 200)),
	))

	properties.TestingRun(t)
}
