package footstep

// State is the decision state of a StateMachine.
type State int

const (
	// Idle accepts new events.
	Idle State = iota
	// Cooldown suppresses events until the countdown reaches zero.
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// StateMachine turns per-sample confidence into discrete events separated
// by at least the cooldown length.
type StateMachine struct {
	cooldown  int
	remaining int
}

// SetCooldown sets the number of samples suppressed after each event.
// Values below 1 are raised to 1. The running countdown is not changed.
func (m *StateMachine) SetCooldown(samples int) {
	if samples < 1 {
		samples = 1
	}
	m.cooldown = samples
}

// Step advances one sample. During cooldown it only counts down. Otherwise a
// confidence above threshold is an event when both gates hold. A candidate
// failing bandOK is dropped silently; one failing only energyOK is reported
// as filtered.
func (m *StateMachine) Step(confidence, threshold float64, bandOK, energyOK bool) (detected, filtered bool) {
	if m.remaining > 0 {
		m.remaining--
		return false, false
	}
	if !(confidence > threshold) || !bandOK {
		return false, false
	}
	if !energyOK {
		return false, true
	}
	m.remaining = m.cooldown
	return true, false
}

// State returns the current state.
func (m *StateMachine) State() State {
	if m.remaining > 0 {
		return Cooldown
	}
	return Idle
}

// Remaining returns the samples left in the current cooldown.
func (m *StateMachine) Remaining() int { return m.remaining }

// CooldownSamples returns the configured cooldown length.
func (m *StateMachine) CooldownSamples() int { return m.cooldown }

// Reset returns to Idle.
func (m *StateMachine) Reset() { m.remaining = 0 }
