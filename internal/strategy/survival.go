package strategy

import "github.com/tntool/escapebot/internal/stats"

// survivalStrategy picks the room with the best smoothed historical survival
// rate. With no history every room scores 0.5 and the first room wins, which
// is an acceptable cold-start default.
type survivalStrategy struct{}

func (s *survivalStrategy) ID() string   { return SurvivalRate }
func (s *survivalStrategy) Name() string { return "Historical survival" }

func (s *survivalStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	best := snap.Order[0]
	bestScore := survivalRate(snap.History[best])
	for _, r := range snap.Order[1:] {
		if score := survivalRate(snap.History[r]); score > bestScore {
			best, bestScore = r, score
		}
	}
	return best
}
