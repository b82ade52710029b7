package probe

// budget is the remaining attempt allowance. Zero means unlimited.
type budget int

// next applies the failure rule to the remaining allowance: more than one
// left is decremented and retried, unlimited stays unlimited, and a single
// remaining attempt (or a negative budget) is exhausted.
func (b budget) next() (budget, bool) {
	switch {
	case b > 1:
		return b - 1, true
	case b != 0:
		return b, false
	default:
		return 0, true
	}
}

type phase int

const (
	phaseInit phase = iota
	phaseAttempting
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseInit:
		return "init"
	case phaseAttempting:
		return "attempting"
	case phaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// state is Init, Attempting(trial, remaining) or Done(last outcome).
type state struct {
	phase     phase
	trial     int
	remaining budget
	skipped   bool
	last      AttemptResult
}

func initial() state { return state{phase: phaseInit} }

func attempting(maxAttempts int) state {
	return state{phase: phaseAttempting, trial: 1, remaining: budget(maxAttempts)}
}

// retry moves to the next trial with the already-decremented allowance.
func (s state) retry(remaining budget) state {
	s.trial++
	s.remaining = remaining
	return s
}

func (s state) done() state {
	s.phase = phaseDone
	return s
}
