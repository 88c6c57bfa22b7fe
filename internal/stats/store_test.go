package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTelemetryPartialFrame(t *testing.T) {
	s := NewStore(nil)

	s.ApplyTelemetry([]RoomUpdate{
		{Room: 1, Players: 10, StakeVolume: 100},
		{Room: 2, Players: 20, StakeVolume: 200},
	})

	// Second frame only reports room 1; room 2 keeps its stale data.
	s.ApplyTelemetry([]RoomUpdate{
		{Room: 1, Players: 15, StakeVolume: 150},
	})

	assert.Equal(t, LiveState{Players: 15, StakeVolume: 150}, s.Live(1))
	assert.Equal(t, LiveState{Players: 20, StakeVolume: 200}, s.Live(2))
	// LastPlayers keeps the prior frame's value for spike detection.
	assert.Equal(t, 10, s.History(1).LastPlayers)
}

func TestApplyTelemetryUnknownRoomIgnored(t *testing.T) {
	s := NewStore(nil)
	s.ApplyTelemetry([]RoomUpdate{{Room: 99, Players: 5}})
	assert.Equal(t, LiveState{}, s.Live(99))
}

func TestApplySettlementAccounting(t *testing.T) {
	s := NewStore(nil)
	s.ApplyTelemetry([]RoomUpdate{{Room: 3, Players: 50, StakeVolume: 500}})

	s.ApplySettlement(3, 1)

	kills, survivals := 0, 0
	for _, r := range s.Rooms() {
		h := s.History(r)
		kills += h.Kills
		survivals += h.Survivals
	}
	assert.Equal(t, 1, kills)
	assert.Equal(t, len(s.Rooms())-1, survivals)
	assert.Equal(t, 1, s.History(3).LastKillRound)
	assert.Equal(t, RoomID(3), s.LastKilled())

	snap := s.Snapshot()
	require.Len(t, snap.KillerHistory, 1)
	assert.Equal(t, KillerSnapshot{Players: 50, StakeVolume: 500}, snap.KillerHistory[0])
	assert.Equal(t, []RoomID{3}, snap.KillLog)
}

func TestKillerHistoryBounded(t *testing.T) {
	s := NewStore(nil)
	for i := 0; i < killerHistorySize+15; i++ {
		s.ApplySettlement(RoomID(i%8+1), i+1)
	}
	snap := s.Snapshot()
	assert.Len(t, snap.KillerHistory, killerHistorySize)
	assert.Len(t, snap.KillLog, killLogSize)
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewStore(nil)
	snap := s.Snapshot()
	snap.Live[1] = LiveState{Players: 999}
	assert.Equal(t, LiveState{}, s.Live(1))
}

func TestSetLastKilled(t *testing.T) {
	s := NewStore(nil)
	s.SetLastKilled(5)
	assert.Equal(t, RoomID(5), s.LastKilled())

	// Unknown rooms are rejected.
	s.SetLastKilled(42)
	assert.Equal(t, RoomID(5), s.LastKilled())
}
