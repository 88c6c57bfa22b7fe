package strategy

import (
	rand "math/rand/v2"

	"github.com/tntool/escapebot/internal/stats"
)

// randomStrategy picks uniformly among all rooms.
type randomStrategy struct {
	rng *rand.Rand
}

func (s *randomStrategy) ID() string   { return Random }
func (s *randomStrategy) Name() string { return "Uniform random" }

func (s *randomStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	return uniform(s.rng, snap.Order)
}
