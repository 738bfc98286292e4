package footstep

import "testing"

func TestStateMachineCooldown(t *testing.T) {
	var m StateMachine
	m.SetCooldown(3)

	steps := []struct {
		confidence float64
		detected   bool
		state      State
	}{
		{0.9, true, Cooldown},
		{0.9, false, Cooldown},
		{0.9, false, Cooldown},
		{0.9, false, Idle},
		{0.9, true, Cooldown},
	}

	for i, s := range steps {
		detected, _ := m.Step(s.confidence, 0.5, true, true)
		if detected != s.detected || m.State() != s.state {
			t.Fatalf("step %d: detected=%v state=%v, want %v %v", i, detected, m.State(), s.detected, s.state)
		}
	}
}

func TestStateMachineThresholdIsStrict(t *testing.T) {
	var m StateMachine
	m.SetCooldown(10)
	if detected, _ := m.Step(0.5, 0.5, true, true); detected {
		t.Fatal("confidence equal to threshold must not trigger")
	}
}

func TestStateMachineFiltered(t *testing.T) {
	var m StateMachine
	m.SetCooldown(10)

	detected, filtered := m.Step(0.9, 0.5, true, false)
	if detected || !filtered {
		t.Fatalf("Step() = (%v, %v), want (false, true)", detected, filtered)
	}
	if m.State() != Idle {
		t.Fatal("filtered event must not start a cooldown")
	}
}

func TestStateMachineBandGate(t *testing.T) {
	var m StateMachine
	m.SetCooldown(10)

	for _, energyOK := range []bool{true, false} {
		detected, filtered := m.Step(1, 0.5, false, energyOK)
		if detected || filtered {
			t.Fatalf("energyOK=%v: Step() = (%v, %v), want (false, false)", energyOK, detected, filtered)
		}
	}
	if m.State() != Idle {
		t.Fatal("band-gated candidate must not start a cooldown")
	}
	if detected, _ := m.Step(1, 0.5, true, true); !detected {
		t.Fatal("candidate passing both gates was not detected")
	}
}

func TestStateMachineReset(t *testing.T) {
	var m StateMachine
	m.SetCooldown(0)
	if m.CooldownSamples() != 1 {
		t.Fatalf("CooldownSamples() = %d, want 1", m.CooldownSamples())
	}
	m.Step(1, 0, true, true)
	m.Reset()
	if m.State() != Idle || m.Remaining() != 0 {
		t.Fatal("Reset() did not return to idle")
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "idle" || Cooldown.String() != "cooldown" || State(9).String() != "unknown" {
		t.Fatal("unexpected State strings")
	}
}
