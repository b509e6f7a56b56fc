package queue

import "sync/atomic"

// Sequencer numbers jobs in scheduling order.
type Sequencer struct{ n atomic.Uint64 }

func (s *Sequencer) Next() uint64 { return s.n.Add(1) }
