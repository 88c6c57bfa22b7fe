package strategy

import "github.com/tntool/escapebot/internal/stats"

// weightedSafetyStrategy blends historical survival with inverted crowd and
// stake pressure, penalizing the last-killed room.
type weightedSafetyStrategy struct{}

func (s *weightedSafetyStrategy) ID() string   { return WeightedSafety }
func (s *weightedSafetyStrategy) Name() string { return "Weighted safety" }

func (s *weightedSafetyStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	maxPlayers, maxStake := maxLive(snap)

	best := stats.None
	var bestScore float64
	for _, r := range snap.Order {
		ls := snap.Live[r]
		playerScore := 1 - float64(ls.Players)/maxPlayers
		stakeScore := 1 - ls.StakeVolume/maxStake

		score := 0.4*survivalRate(snap.History[r]) + 0.3*playerScore + 0.3*stakeScore
		if r == snap.LastKilled {
			score -= 0.5
		}
		if best == stats.None || score > bestScore {
			best, bestScore = r, score
		}
	}
	return best
}
