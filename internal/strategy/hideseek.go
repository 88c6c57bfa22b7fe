package strategy

import (
	"math"

	"github.com/tntool/escapebot/internal/stats"
)

// hideSeekStrategy scores every room by a composite danger estimate and
// hides in the least dangerous one. Danger blends kill history, crowd size,
// stake volume and similarity to the killer's preferred conditions, plus a
// flat penalty on the room just killed.
type hideSeekStrategy struct{}

func (s *hideSeekStrategy) ID() string   { return HideSeek }
func (s *hideSeekStrategy) Name() string { return "Hide and seek" }

func (s *hideSeekStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	maxPlayers, maxStake := maxLive(snap)
	avgPlayers, avgStake, haveKillerProfile := killerAverages(snap)

	best := stats.None
	var bestDanger float64
	for _, r := range snap.Order {
		ls := snap.Live[r]

		histDanger := killRate(snap.History[r])
		crowdDanger := float64(ls.Players) / maxPlayers
		moneyDanger := ls.StakeVolume / maxStake

		personalityDanger := 0.0
		if haveKillerProfile {
			playerSim := 1 - math.Abs(float64(ls.Players)-avgPlayers)/(avgPlayers+maxPlayers+1)
			stakeSim := 1 - math.Abs(ls.StakeVolume-avgStake)/(avgStake+maxStake+1)
			personalityDanger = (playerSim + stakeSim) / 2
		}

		danger := 0.3*histDanger + 0.2*crowdDanger + 0.2*moneyDanger + 0.3*personalityDanger
		if r == snap.LastKilled {
			danger += 1.0
		}
		if best == stats.None || danger < bestDanger {
			best, bestDanger = r, danger
		}
	}
	return best
}
