package flurry

import (
	"time"
)

// frameStats holds per-frame timing and population metrics.
// Only populated when Scheduler.debug is true.
type frameStats struct {
	tickTime  time.Duration
	emitters  int
	particles int
	spawned   uint64
	culled    uint64
	dropped   uint64
	failures  uint64
}

// snapshot captures cumulative counters across every emitter.
func (s *Scheduler) snapshot() frameStats {
	st := frameStats{emitters: len(s.emitters)}
	for _, e := range s.emitters {
		es := e.Stats()
		st.particles += e.ActiveCount()
		st.spawned += es.Spawned
		st.culled += es.Culled
		st.dropped += es.Dropped
		st.failures += es.SinkFailures
	}
	return st
}

// delta turns two cumulative snapshots into this frame's activity. The
// receiver is the snapshot taken before the frame and carries tickTime.
func (st frameStats) delta(after frameStats) frameStats {
	return frameStats{
		tickTime:  st.tickTime,
		emitters:  after.emitters,
		particles: after.particles,
		spawned:   sub(after.spawned, st.spawned),
		culled:    sub(after.culled, st.culled),
		dropped:   sub(after.dropped, st.dropped),
		failures:  sub(after.failures, st.failures),
	}
}

// sub guards against counters of emitters unregistered mid-frame.
func sub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// debugLog prints the frame's timing and population stats.
func (s *Scheduler) debugLog(st frameStats) {
	if !s.debug {
		return
	}
	s.cfg.Logf("[flurry] frame %d: tick %v | emitters %d | particles %d",
		s.frames, st.tickTime, st.emitters, st.particles)
	if st.spawned+st.culled+st.dropped+st.failures > 0 {
		s.cfg.Logf("[flurry] frame %d: spawned %d | culled %d | dropped %d | sink failures %d",
			s.frames, st.spawned, st.culled, st.dropped, st.failures)
	}
}
