package rebalance

import "sort"

// apportion splits n across buckets in proportion to weights using the
// largest remainder method. No bucket receives more than its weight, and ties
// on the remainder go to the earlier bucket.
func apportion(n int, weights []int) []int {
	out := make([]int, len(weights))
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if n <= 0 || total == 0 {
		return out
	}
	if n > total {
		n = total
	}

	type rem struct {
		idx  int
		frac int // remainder numerator over total
	}
	rems := make([]rem, 0, len(weights))
	assigned := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		out[i] = n * w / total
		assigned += out[i]
		rems = append(rems, rem{idx: i, frac: n * w % total})
	}

	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].frac > rems[b].frac
	})
	for _, r := range rems {
		if assigned >= n {
			break
		}
		if out[r.idx] < weights[r.idx] {
			out[r.idx]++
			assigned++
		}
	}
	return out
}
