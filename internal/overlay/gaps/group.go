package gaps

import (
	"math"
	"sort"
)

// Group partitions items into proximity groups along one axis. Items are
// visited sorted by (primary, secondary) and each joins the first group whose
// first member lies within eps on the primary axis. Equal inputs always yield
// equal groups, whatever their original order.
func Group[T any](items []T, primary, secondary func(T) float64, eps float64) [][]T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := primary(sorted[i]), primary(sorted[j])
		if pi != pj {
			return pi < pj
		}
		return secondary(sorted[i]) < secondary(sorted[j])
	})

	var groups [][]T
	for _, it := range sorted {
		k := primary(it)
		placed := false
		for g := range groups {
			if math.Abs(primary(groups[g][0])-k) <= eps {
				groups[g] = append(groups[g], it)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []T{it})
		}
	}
	return groups
}
