package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tntool/escapebot/internal/randutil"
	"github.com/tntool/escapebot/internal/stats"
)

func testSnapshot() *stats.Snapshot {
	snap := &stats.Snapshot{
		Order:   append([]stats.RoomID(nil), stats.DefaultRooms...),
		Live:    make(map[stats.RoomID]stats.LiveState),
		History: make(map[stats.RoomID]stats.HistoryStats),
	}
	for _, r := range snap.Order {
		snap.Live[r] = stats.LiveState{}
		snap.History[r] = stats.HistoryStats{}
	}
	return snap
}

func TestNewKnownAndUnknown(t *testing.T) {
	rng := randutil.New(1)
	for _, id := range IDs() {
		s, err := New(id, rng)
		require.NoError(t, err)
		assert.Equal(t, id, s.ID())
	}
	_, err := New("BOGUS", rng)
	assert.Error(t, err)
}

func TestAllStrategiesColdStart(t *testing.T) {
	// Every policy must return a valid room on an empty snapshot.
	rng := randutil.New(42)
	snap := testSnapshot()
	for _, id := range IDs() {
		s, err := New(id, rng)
		require.NoError(t, err)
		pick := s.Pick(snap)
		assert.Contains(t, snap.Order, pick, "strategy %s", id)
	}
}

func TestSurvivalRatePrefersBestHistory(t *testing.T) {
	snap := testSnapshot()
	// Room 1: 0.9 survival score, room 2: 0.545.
	snap.History[1] = stats.HistoryStats{Kills: 2, Survivals: 8}
	snap.History[2] = stats.HistoryStats{Kills: 5, Survivals: 5}

	s, err := New(SurvivalRate, nil)
	require.NoError(t, err)
	assert.Equal(t, stats.RoomID(1), s.Pick(snap))

	assert.InDelta(t, 0.75, survivalRate(snap.History[1]), 1e-9)
	assert.InDelta(t, 0.5, survivalRate(snap.History[2]), 1e-9)
}

func TestSurvivalRateSmoothing(t *testing.T) {
	assert.InDelta(t, 0.5, survivalRate(stats.HistoryStats{}), 1e-9)
	assert.InDelta(t, 0.9, survivalRate(stats.HistoryStats{Kills: 0, Survivals: 8}), 1e-9)
}

func TestRoundRobinCycles(t *testing.T) {
	snap := testSnapshot()
	s, err := New(RoundRobin, nil)
	require.NoError(t, err)

	var picks []stats.RoomID
	for i := 0; i < 9; i++ {
		picks = append(picks, s.Pick(snap))
	}
	assert.Equal(t, []stats.RoomID{1, 2, 3, 4, 5, 6, 7, 8, 1}, picks)
}

func TestFollowKiller(t *testing.T) {
	snap := testSnapshot()
	snap.LastKilled = 6

	s, err := New(FollowKiller, randutil.New(1))
	require.NoError(t, err)
	assert.Equal(t, stats.RoomID(6), s.Pick(snap))
}

func TestLeastCrowdedPicksQuietRoom(t *testing.T) {
	snap := testSnapshot()
	for _, r := range snap.Order {
		snap.Live[r] = stats.LiveState{Players: 10 * int(r), StakeVolume: 100 * float64(r)}
	}
	s, err := New(LeastCrowded, randutil.New(1))
	require.NoError(t, err)
	assert.Equal(t, stats.RoomID(1), s.Pick(snap))
}

func TestLeastCrowdedAvoidsLastKilledOnTie(t *testing.T) {
	snap := testSnapshot()
	// All rooms identical; the last-killed penalty must break the tie away
	// from room 1.
	snap.LastKilled = 1
	for _, r := range snap.Order {
		snap.Live[r] = stats.LiveState{Players: 5, StakeVolume: 50}
	}
	s, err := New(LeastCrowded, randutil.New(1))
	require.NoError(t, err)
	assert.NotEqual(t, stats.RoomID(1), s.Pick(snap))
}

func TestKillerPersonalityAvoidsProfile(t *testing.T) {
	snap := testSnapshot()
	snap.KillerHistory = []stats.KillerSnapshot{
		{Players: 50, StakeVolume: 500},
		{Players: 60, StakeVolume: 600},
	}
	snap.LastKilled = 3
	snap.Live[3] = stats.LiveState{Players: 2, StakeVolume: 10}  // disqualified
	snap.Live[4] = stats.LiveState{Players: 55, StakeVolume: 550} // killer's taste
	snap.Live[5] = stats.LiveState{Players: 1, StakeVolume: 5}   // most dissimilar

	s, err := New(KillerPersonality, randutil.New(1))
	require.NoError(t, err)
	pick := s.Pick(snap)
	assert.NotEqual(t, stats.RoomID(3), pick)
	assert.NotEqual(t, stats.RoomID(4), pick)
}

func TestWeightedSafetyPenalizesLastKilled(t *testing.T) {
	snap := testSnapshot()
	// Identical live/history for all rooms; only the penalty differs.
	snap.LastKilled = 1
	s, err := New(WeightedSafety, nil)
	require.NoError(t, err)
	assert.NotEqual(t, stats.RoomID(1), s.Pick(snap))
}

func TestEliminationExcludesCrowdAndLastKilled(t *testing.T) {
	snap := testSnapshot()
	snap.LastKilled = 7
	// Round 101 scenario: room 3 has the most players and stake.
	snap.Live[3] = stats.LiveState{Players: 50, StakeVolume: 500}
	for _, r := range snap.Order {
		if r != 3 {
			snap.Live[r] = stats.LiveState{Players: 10, StakeVolume: 100}
		}
		h := snap.History[r]
		h.LastPlayers = snap.Live[r].Players
		snap.History[r] = h
	}

	s, err := New(Elimination, randutil.New(1))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		pick := s.Pick(snap)
		assert.NotEqual(t, stats.RoomID(3), pick, "most-crowded room must be eliminated")
		assert.NotEqual(t, stats.RoomID(7), pick, "last-killed room must be eliminated")
	}
}

func TestEliminationSpikeRule(t *testing.T) {
	snap := testSnapshot()
	// Room 5 spiked by 20 players over the previous frame.
	snap.Live[5] = stats.LiveState{Players: 25, StakeVolume: 100}
	h := snap.History[5]
	h.LastPlayers = 5
	snap.History[5] = h
	// Make the earlier rules prefer different rooms so the spike rule is the
	// one that eliminates 5.
	snap.Live[2] = stats.LiveState{Players: 90, StakeVolume: 50}  // most crowded
	snap.Live[3] = stats.LiveState{Players: 30, StakeVolume: 900} // highest stake
	snap.History[4] = stats.HistoryStats{Kills: 9, Survivals: 1}  // worst history
	snap.Live[6] = stats.LiveState{Players: 10, StakeVolume: 200} // worst stake-per-player
	for _, r := range []stats.RoomID{2, 3, 4, 6} {
		hh := snap.History[r]
		hh.LastPlayers = snap.Live[r].Players
		snap.History[r] = hh
	}

	s, err := New(Elimination, randutil.New(1))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		assert.NotEqual(t, stats.RoomID(5), s.Pick(snap))
	}
}

func TestEliminationRepeatPatternRule(t *testing.T) {
	snap := testSnapshot()
	snap.KillLog = []stats.RoomID{6, 8}
	snap.LastKilled = 8

	s, err := New(Elimination, randutil.New(1))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		pick := s.Pick(snap)
		assert.NotEqual(t, stats.RoomID(6), pick, "room killed two rounds ago must be eliminated")
		assert.NotEqual(t, stats.RoomID(8), pick)
	}
}

func TestHideSeekAvoidsDanger(t *testing.T) {
	snap := testSnapshot()
	snap.LastKilled = 2
	snap.History[1] = stats.HistoryStats{Kills: 8, Survivals: 2}
	snap.Live[4] = stats.LiveState{Players: 80, StakeVolume: 900}

	s, err := New(HideSeek, nil)
	require.NoError(t, err)
	pick := s.Pick(snap)
	assert.NotEqual(t, stats.RoomID(1), pick)
	assert.NotEqual(t, stats.RoomID(2), pick)
	assert.NotEqual(t, stats.RoomID(4), pick)
}

func TestRandomDeterministicUnderSeed(t *testing.T) {
	snap := testSnapshot()
	a, err := New(Random, randutil.New(7))
	require.NoError(t, err)
	b, err := New(Random, randutil.New(7))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Pick(snap), b.Pick(snap))
	}
}
