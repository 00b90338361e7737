package detection

import (
	"gonum.org/v1/gonum/floats"
)

// NMS runs greedy non-maximum suppression in descending score order and
// returns at most limit survivors (limit <= 0 means no limit). A box is
// suppressed when its IoU with an already kept box exceeds thresh. Equal
// scores keep their input order.
func NMS(cands []Candidate, thresh float64, limit int) []Candidate {
	if len(cands) == 0 {
		return nil
	}

	neg := make([]float64, len(cands))
	for i, c := range cands {
		neg[i] = -c.Score
	}
	order := make([]int, len(cands))
	floats.ArgsortStable(neg, order)

	kept := make([]Candidate, 0, len(cands))
	for _, idx := range order {
		c := cands[idx]
		suppressed := false
		for _, k := range kept {
			if IoU(c.Box, k.Box) > thresh {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		kept = append(kept, c)
		if limit > 0 && len(kept) == limit {
			break
		}
	}
	return kept
}
