package workload

// Synchronization counts the per-iteration rendezvous with the parent. When
// disabled every call is a no-op.
type Synchronization struct {
	iterations int
	enabled    bool
	done       int
}

func NewSynchronization(iterations int, enabled bool) *Synchronization {
	return &Synchronization{iterations: iterations, enabled: enabled}
}

// Synchronize signals readiness and waits for the release. Bodies call it
// at the top of every timed iteration.
func (s *Synchronization) Synchronize(w *Io) error {
	if !s.enabled {
		return nil
	}
	if err := w.Signal(); err != nil {
		return err
	}
	if err := w.WaitForRelease(); err != nil {
		return err
	}
	s.done++
	return nil
}

// Validate reports whether the body synchronized once per iteration.
func (s *Synchronization) Validate() bool {
	return !s.enabled || s.done == s.iterations
}

// ExecuteRemaining finishes the rounds a failed body skipped so the parent,
// which always runs every round, does not block.
func (s *Synchronization) ExecuteRemaining(w *Io) error {
	for s.enabled && s.done < s.iterations {
		if err := s.Synchronize(w); err != nil {
			return err
		}
	}
	return nil
}
