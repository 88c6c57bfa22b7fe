// Package strategy implements the room-selection policies. Each strategy is
// a small self-contained picker over a statistics snapshot; none of them may
// fail, so every policy degrades to a uniform random pick when the inputs it
// needs are not available yet.
package strategy

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/tntool/escapebot/internal/stats"
)

// Strategy picks a room from the current statistics snapshot.
type Strategy interface {
	// ID is the stable identifier persisted in strategy profiles.
	ID() string
	// Name is a short human-readable label.
	Name() string
	// Pick returns the chosen room. It must always return a valid room
	// from snap.Order, even on a cold start with no history.
	Pick(snap *stats.Snapshot) stats.RoomID
}

// Strategy identifiers, persisted in profiles. Values match the original
// tool's configuration files so saved profiles keep working.
const (
	Random            = "RANDOM"
	LeastCrowded      = "MIN_PLAYER_BET"
	SurvivalRate      = "PROBABILITY"
	FollowKiller      = "FOLLOW_KILLER"
	RoundRobin        = "SEQUENTIAL"
	KillerPersonality = "KILLER_PERSONALITY"
	WeightedSafety    = "SMART_SAFE"
	Elimination       = "VIP_10"
	HideSeek          = "HIDE_SEEK_MASTER"
)

// IDs returns all strategy identifiers in menu order.
func IDs() []string {
	return []string{
		Random, LeastCrowded, SurvivalRate, FollowKiller, RoundRobin,
		KillerPersonality, WeightedSafety, Elimination, HideSeek,
	}
}

// New constructs the strategy for id. The rng is shared by every randomized
// policy so runs are reproducible under a fixed seed.
func New(id string, rng *rand.Rand) (Strategy, error) {
	switch id {
	case Random:
		return &randomStrategy{rng: rng}, nil
	case LeastCrowded:
		return &leastCrowdedStrategy{rng: rng}, nil
	case SurvivalRate:
		return &survivalStrategy{}, nil
	case FollowKiller:
		return &followKillerStrategy{rng: rng}, nil
	case RoundRobin:
		return &roundRobinStrategy{}, nil
	case KillerPersonality:
		return &killerPersonalityStrategy{rng: rng}, nil
	case WeightedSafety:
		return &weightedSafetyStrategy{}, nil
	case Elimination:
		return &eliminationStrategy{rng: rng}, nil
	case HideSeek:
		return &hideSeekStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", id)
	}
}

// uniform picks uniformly among rooms.
func uniform(rng *rand.Rand, rooms []stats.RoomID) stats.RoomID {
	return rooms[rng.IntN(len(rooms))]
}

// survivalRate returns the Laplace-smoothed survival probability for a room's
// history: (survivals+1)/(kills+survivals+2). Never divides by zero.
func survivalRate(h stats.HistoryStats) float64 {
	return float64(h.Survivals+1) / float64(h.Kills+h.Survivals+2)
}

// killRate is the smoothed complement used by danger scores.
func killRate(h stats.HistoryStats) float64 {
	return float64(h.Kills+1) / float64(h.Kills+h.Survivals+2)
}

// maxLive returns the frame maxima used to normalize crowd and stake scores,
// defaulting to 1 so cold starts never divide by zero.
func maxLive(snap *stats.Snapshot) (maxPlayers, maxStake float64) {
	maxPlayers, maxStake = 1, 1
	for _, r := range snap.Order {
		ls := snap.Live[r]
		if float64(ls.Players) > maxPlayers {
			maxPlayers = float64(ls.Players)
		}
		if ls.StakeVolume > maxStake {
			maxStake = ls.StakeVolume
		}
	}
	return maxPlayers, maxStake
}

// killerAverages returns the mean crowd conditions across the killer-history
// window, with ok=false when the window is empty.
func killerAverages(snap *stats.Snapshot) (avgPlayers, avgStake float64, ok bool) {
	if len(snap.KillerHistory) == 0 {
		return 0, 0, false
	}
	for _, k := range snap.KillerHistory {
		avgPlayers += float64(k.Players)
		avgStake += k.StakeVolume
	}
	n := float64(len(snap.KillerHistory))
	return avgPlayers / n, avgStake / n, true
}
