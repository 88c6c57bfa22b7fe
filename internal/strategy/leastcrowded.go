package strategy

import (
	rand "math/rand/v2"
	"sort"

	"github.com/tntool/escapebot/internal/stats"
)

// leastCrowdedStrategy ranks rooms by player count and by stake volume
// independently, sums the two ranks, nudges the last-killed room down, and
// picks the lowest combined score.
type leastCrowdedStrategy struct {
	rng *rand.Rand
}

func (s *leastCrowdedStrategy) ID() string   { return LeastCrowded }
func (s *leastCrowdedStrategy) Name() string { return "Least crowded" }

func (s *leastCrowdedStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	empty := true
	for _, r := range snap.Order {
		ls := snap.Live[r]
		if ls.Players > 0 || ls.StakeVolume > 0 {
			empty = false
			break
		}
	}
	if empty {
		return uniform(s.rng, snap.Order)
	}

	byPlayers := append([]stats.RoomID(nil), snap.Order...)
	sort.SliceStable(byPlayers, func(i, j int) bool {
		return snap.Live[byPlayers[i]].Players < snap.Live[byPlayers[j]].Players
	})
	byStake := append([]stats.RoomID(nil), snap.Order...)
	sort.SliceStable(byStake, func(i, j int) bool {
		return snap.Live[byStake[i]].StakeVolume < snap.Live[byStake[j]].StakeVolume
	})

	scores := make(map[stats.RoomID]float64, len(snap.Order))
	for i, r := range byPlayers {
		scores[r] += float64(i)
	}
	for i, r := range byStake {
		scores[r] += float64(i)
	}
	if snap.LastKilled != stats.None {
		scores[snap.LastKilled] += 0.5
	}

	best := snap.Order[0]
	for _, r := range snap.Order[1:] {
		if scores[r] < scores[best] {
			best = r
		}
	}
	return best
}
