package strategy

import (
	rand "math/rand/v2"

	"github.com/tntool/escapebot/internal/stats"
)

// eliminationStrategy ("10-rule") starts with every room as a candidate and
// strikes out, in fixed priority order, whichever room currently looks like
// the killer's next target: last killed, most crowded, highest stake, worst
// history, whale trap, empty-room trap, sudden crowd spike, and the room hit
// two rounds ago. Removal stops once a single candidate is left; the final
// pick is uniform among the survivors.
type eliminationStrategy struct {
	rng *rand.Rand
}

func (s *eliminationStrategy) ID() string   { return Elimination }
func (s *eliminationStrategy) Name() string { return "Sequential elimination" }

func (s *eliminationStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	candidates := append([]stats.RoomID(nil), snap.Order...)

	// Rule 1: the room just killed.
	candidates = remove(candidates, snap.LastKilled)

	// Rule 2: the crowd is a target.
	if len(candidates) > 1 {
		candidates = remove(candidates, argbest(candidates, func(r stats.RoomID) float64 {
			return float64(snap.Live[r].Players)
		}))
	}

	// Rule 3: big money is a target.
	if len(candidates) > 1 {
		candidates = remove(candidates, argbest(candidates, func(r stats.RoomID) float64 {
			return snap.Live[r].StakeVolume
		}))
	}

	// Rule 4: the historically most-killed room.
	if len(candidates) > 1 {
		candidates = remove(candidates, argbest(candidates, func(r stats.RoomID) float64 {
			return killRate(snap.History[r])
		}))
	}

	// Rule 5: highest stake per player, the whale trap.
	if len(candidates) > 1 {
		candidates = remove(candidates, argbest(candidates, func(r stats.RoomID) float64 {
			ls := snap.Live[r]
			if ls.Players == 0 {
				return 0
			}
			return ls.StakeVolume / float64(ls.Players)
		}))
	}

	// Rule 6: the emptiest room, the quiet trap.
	if len(candidates) > 1 {
		candidates = remove(candidates, argbest(candidates, func(r stats.RoomID) float64 {
			return -float64(snap.Live[r].Players)
		}))
	}

	// Rule 7: a sudden player influx over the previous frame.
	if len(candidates) > 1 {
		spiked := false
		for _, r := range candidates {
			if playerDelta(snap, r) > 5 {
				spiked = true
				break
			}
		}
		if spiked {
			candidates = remove(candidates, argbest(candidates, func(r stats.RoomID) float64 {
				return float64(playerDelta(snap, r))
			}))
		}
	}

	// Rule 8: the room killed two rounds ago, avoiding short repeats.
	if len(snap.KillLog) >= 2 {
		candidates = remove(candidates, snap.KillLog[len(snap.KillLog)-2])
	}

	if len(candidates) == 0 {
		fallback := remove(append([]stats.RoomID(nil), snap.Order...), snap.LastKilled)
		if len(fallback) == 0 {
			return uniform(s.rng, snap.Order)
		}
		return uniform(s.rng, fallback)
	}
	return uniform(s.rng, candidates)
}

func playerDelta(snap *stats.Snapshot, r stats.RoomID) int {
	return snap.Live[r].Players - snap.History[r].LastPlayers
}

// argbest returns the candidate maximizing score, earliest wins ties.
func argbest(candidates []stats.RoomID, score func(stats.RoomID) float64) stats.RoomID {
	best := candidates[0]
	bestScore := score(best)
	for _, r := range candidates[1:] {
		if s := score(r); s > bestScore {
			best, bestScore = r, s
		}
	}
	return best
}

func remove(candidates []stats.RoomID, target stats.RoomID) []stats.RoomID {
	if target == stats.None {
		return candidates
	}
	out := candidates[:0]
	for _, r := range candidates {
		if r != target {
			out = append(out, r)
		}
	}
	return out
}
