package detection

// SelectorConfig weights candidate matching against an existing track.
type SelectorConfig struct {
	RecentLostFrames int     // Up to this many lost frames, overlap dominates
	MinScore         float64 // Match score a candidate must beat
	ProximityScale   float64 // Pixels at which proximity halves
}

// DefaultSelectorConfig returns the production matching weights.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		RecentLostFrames: 5,
		MinScore:         0.2,
		ProximityScale:   100,
	}
}

// Select picks the candidate to follow. With no track the largest face
// wins. With a track, candidates are scored on overlap and proximity to
// last; overlap dominates while the track is fresh and proximity once it
// has been lost for a while. If nothing scores above MinScore, the largest
// face wins. Ties keep the earliest candidate.
func Select(cands []Candidate, last *Box, lostFrames int, cfg SelectorConfig) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	if last == nil {
		return largest(cands), true
	}

	wIoU, wProx := 0.7, 0.3
	if lostFrames > cfg.RecentLostFrames {
		wIoU, wProx = 0.3, 0.7
	}

	best := -1
	bestScore := 0.0
	for i, c := range cands {
		prox := 1 / (1 + CenterDistance(c.Box, *last)/cfg.ProximityScale)
		score := wIoU*IoU(c.Box, *last) + wProx*prox
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best >= 0 && bestScore > cfg.MinScore {
		return cands[best], true
	}
	return largest(cands), true
}

func largest(cands []Candidate) Candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Box.Area() > best.Box.Area() {
			best = c
		}
	}
	return best
}
