// Package stats tracks per-room telemetry and historical outcomes for the
// escape game. Live state is overwritten wholesale per telemetry frame while
// history counters mutate exactly once per settlement.
package stats

import "sync"

// RoomID identifies one of the fixed set of rooms.
type RoomID int

// None marks the absence of a room (no kill observed yet).
const None RoomID = 0

// DefaultRooms is the room order used by the live game.
var DefaultRooms = []RoomID{1, 2, 3, 4, 5, 6, 7, 8}

const (
	// killerHistorySize bounds the killer-personality window.
	killerHistorySize = 20
	// killLogSize bounds the recent-kill sequence used by pattern rules.
	killLogSize = 10
)

// LiveState is the current telemetry for a room, replaced on every frame
// that reports the room.
type LiveState struct {
	Players     int
	StakeVolume float64
}

// HistoryStats accumulates settlement outcomes for a room over the process
// lifetime.
type HistoryStats struct {
	Kills         int
	Survivals     int
	LastKillRound int // round index of the most recent kill, 0 if never
	// Previous-frame telemetry, kept so strategies can spot sudden
	// player-count spikes between frames.
	LastPlayers int
	LastStake   float64
}

// KillerSnapshot captures the crowd conditions of a room at the moment it was
// killed. Strategies use the window of these to model killer behaviour.
type KillerSnapshot struct {
	Players     int
	StakeVolume float64
}

// RoomUpdate is one room's telemetry within a frame.
type RoomUpdate struct {
	Room        RoomID
	Players     int
	StakeVolume float64
}

// Store holds live and historical room statistics. All methods are safe for
// concurrent use; the engine is the sole writer but the dashboard reads
// snapshots concurrently.
type Store struct {
	mu            sync.RWMutex
	order         []RoomID
	live          map[RoomID]LiveState
	history       map[RoomID]HistoryStats
	killerHistory []KillerSnapshot
	killLog       []RoomID
	lastKilled    RoomID
}

// NewStore creates a store for the given room order.
func NewStore(order []RoomID) *Store {
	if len(order) == 0 {
		order = DefaultRooms
	}
	s := &Store{
		order:   append([]RoomID(nil), order...),
		live:    make(map[RoomID]LiveState, len(order)),
		history: make(map[RoomID]HistoryStats, len(order)),
	}
	for _, r := range order {
		s.live[r] = LiveState{}
		s.history[r] = HistoryStats{}
	}
	return s
}

// Rooms returns the fixed room order.
func (s *Store) Rooms() []RoomID {
	return append([]RoomID(nil), s.order...)
}

// ApplyTelemetry overwrites live state for every room present in the frame.
// Rooms absent from the frame keep their previous values.
func (s *Store) ApplyTelemetry(updates []RoomUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		prev, ok := s.live[u.Room]
		if !ok {
			continue
		}
		s.live[u.Room] = LiveState{Players: u.Players, StakeVolume: u.StakeVolume}
		h := s.history[u.Room]
		h.LastPlayers = prev.Players
		h.LastStake = prev.StakeVolume
		s.history[u.Room] = h
	}
}

// SetLastKilled seeds the last-killed room from the enter-game notification,
// before any settlement has been observed on this connection.
func (s *Store) SetLastKilled(room RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[room]; ok {
		s.lastKilled = room
	}
}

// ApplySettlement records the killed room for a round: its kill counter
// increments, every other room's survival counter increments, and the killer
// profile window gains a snapshot of the killed room's live state. The caller
// is responsible for calling this at most once per round id.
func (s *Store) ApplySettlement(killed RoomID, roundIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[killed]; !ok {
		return
	}
	for _, r := range s.order {
		h := s.history[r]
		if r == killed {
			h.Kills++
			h.LastKillRound = roundIndex
		} else {
			h.Survivals++
		}
		s.history[r] = h
	}

	ls := s.live[killed]
	s.killerHistory = append(s.killerHistory, KillerSnapshot{
		Players:     ls.Players,
		StakeVolume: ls.StakeVolume,
	})
	if len(s.killerHistory) > killerHistorySize {
		s.killerHistory = s.killerHistory[len(s.killerHistory)-killerHistorySize:]
	}

	s.killLog = append(s.killLog, killed)
	if len(s.killLog) > killLogSize {
		s.killLog = s.killLog[len(s.killLog)-killLogSize:]
	}
	s.lastKilled = killed
}

// LastKilled returns the most recently killed room, or None.
func (s *Store) LastKilled() RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastKilled
}

// Live returns the current live state for a room.
func (s *Store) Live(room RoomID) LiveState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live[room]
}

// History returns the accumulated history for a room.
func (s *Store) History(room RoomID) HistoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history[room]
}

// Snapshot is a consistent copy of everything a strategy needs to pick a
// room. It is safe to read without further locking.
type Snapshot struct {
	Order         []RoomID
	Live          map[RoomID]LiveState
	History       map[RoomID]HistoryStats
	KillerHistory []KillerSnapshot
	KillLog       []RoomID
	LastKilled    RoomID
}

// Snapshot copies the store state under one lock acquisition.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Order:         append([]RoomID(nil), s.order...),
		Live:          make(map[RoomID]LiveState, len(s.live)),
		History:       make(map[RoomID]HistoryStats, len(s.history)),
		KillerHistory: append([]KillerSnapshot(nil), s.killerHistory...),
		KillLog:       append([]RoomID(nil), s.killLog...),
		LastKilled:    s.lastKilled,
	}
	for r, v := range s.live {
		snap.Live[r] = v
	}
	for r, v := range s.history {
		snap.History[r] = v
	}
	return snap
}
