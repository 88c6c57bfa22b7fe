package strategy

import "github.com/tntool/escapebot/internal/stats"

// roundRobinStrategy cycles deterministically through the rooms in order,
// one per invocation. The index lives on the strategy instance, so the cycle
// spans rounds for as long as the strategy is kept.
type roundRobinStrategy struct {
	next int
}

func (s *roundRobinStrategy) ID() string   { return RoundRobin }
func (s *roundRobinStrategy) Name() string { return "Round robin" }

func (s *roundRobinStrategy) Pick(snap *stats.Snapshot) stats.RoomID {
	r := snap.Order[s.next%len(snap.Order)]
	s.next = (s.next + 1) % len(snap.Order)
	return r
}
