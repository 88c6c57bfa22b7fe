package strategy

import (
	"math"
	rand "math/rand/v2"

	"github.com/tntool/escapebot/internal/stats"
)

// killerPersonalityStrategy models the killer's taste from the window of
// killed-room snapshots and hides in the room least similar to it. The
// last-killed room is disqualified outright.
type killerPersonalityStrategy struct {
	rng *rand.Rand
}

func (s *killerPersonalityStrategy) ID() string   { return KillerPersonality }
func (s *killerPersonalityStrategy) Name() string { return "Killer personality avoidance" }

func (s *killerPersonalityStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	avgPlayers, avgStake, ok := killerAverages(snap)
	if !ok {
		return uniform(s.rng, snap.Order)
	}

	best := stats.None
	bestScore := math.Inf(-1)
	for _, r := range snap.Order {
		if r == snap.LastKilled {
			continue
		}
		ls := snap.Live[r]
		playerDist := math.Abs(float64(ls.Players)-avgPlayers) / (avgPlayers + 1)
		stakeDist := math.Abs(ls.StakeVolume-avgStake) / (avgStake + 1)
		if score := playerDist + stakeDist; score > bestScore {
			best, bestScore = r, score
		}
	}
	if best == stats.None {
		return uniform(s.rng, snap.Order)
	}
	return best
}
