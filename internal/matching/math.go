package matching

import (
	"fmt"
	"math/big"
	"sort"
)

// Sqrt returns the floor integer square root of n via Newton's method.
// Exact on perfect squares and monotone non-decreasing. Negative input is a
// programming error; amounts are validated positive long before they get
// here.
func Sqrt(n int64) int64 {
	if n < 0 {
		panic(fmt.Sprintf("matching: sqrt of negative %d", n))
	}
	if n < 2 {
		return n
	}
	x := n / 2
	for {
		y := (x + n/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}

// Allocate splits totalFunds across projects proportionally to the square
// roots of their eligible donation totals, floor division per project. The
// second return is the unallocated remainder: rounding loss, or the whole
// pot when nothing is eligible. It stays with the sponsor and is never
// silently redistributed.
//
// Only projects with a positive eligible total receive an entry; a project
// whose floored share is zero still gets its explicit zero so distributions
// stay auditable. Results are independent of map iteration order.
func Allocate(totalFunds int64, eligibleTotals map[string]int64) (map[string]int64, int64) {
	if totalFunds < 0 {
		panic(fmt.Sprintf("matching: negative pool funds %d", totalFunds))
	}

	roots := make(map[string]int64, len(eligibleTotals))
	var rootSum int64
	for id, total := range eligibleTotals {
		if total <= 0 {
			continue
		}
		r := Sqrt(total)
		roots[id] = r
		rootSum += r
	}
	if rootSum == 0 {
		return map[string]int64{}, totalFunds
	}

	allocs := make(map[string]int64, len(roots))
	var allocated int64
	for id, r := range roots {
		share := mulDiv(totalFunds, r, rootSum)
		allocs[id] = share
		allocated += share
	}
	return allocs, totalFunds - allocated
}

// mulDiv computes a*b/den with the product widened through big.Int. The
// quotient is bounded by a, so it always fits back into int64.
func mulDiv(a, b, den int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	p.Quo(p, big.NewInt(den))
	return p.Int64()
}

// sortedProjectIDs returns the allocation keys in lexical order so payouts
// and row inserts run in a stable sequence.
func sortedProjectIDs(allocs map[string]int64) []string {
	ids := make([]string, 0, len(allocs))
	for id := range allocs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
