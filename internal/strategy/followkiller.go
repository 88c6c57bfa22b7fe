package strategy

import (
	rand "math/rand/v2"

	"github.com/tntool/escapebot/internal/stats"
)

// followKillerStrategy bets on the room the killer just visited, on the
// theory that the same room rarely gets hit twice in a row.
type followKillerStrategy struct {
	rng *rand.Rand
}

func (s *followKillerStrategy) ID() string   { return FollowKiller }
func (s *followKillerStrategy) Name() string { return "Follow the killer" }

func (s *followKillerStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	if snap.LastKilled != stats.None {
		for _, r := range snap.Order {
			if r == snap.LastKilled {
				return r
			}
		}
	}
	return uniform(s.rng, snap.Order)
}
