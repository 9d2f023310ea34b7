// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"sync"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	s := New().Snapshot()

	if s.Gear != 8 {
		t.Errorf("Gear = %d, want 8", s.Gear)
	}
	if s.Mode != ModeStandard {
		t.Errorf("Mode = %v, want STD", s.Mode)
	}
	if s.Power != 0 || s.Cadence != 0 || s.TargetPower != 0 || s.SimulatedPower != 0 {
		t.Errorf("non-zero metrics: %+v", s)
	}
	if s.Connected || s.Busy {
		t.Errorf("Connected/Busy set on new session: %+v", s)
	}
}

func TestSetGear_Clamps(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-100, 1}, {0, 1}, {1, 1}, {9, 9}, {16, 16}, {17, 16}, {255, 16},
	}

	st := New()
	for _, tt := range tests {
		if got := st.SetGear(tt.in); got != tt.want {
			t.Errorf("SetGear(%d) = %d, want %d", tt.in, got, tt.want)
		}
		if got := st.Snapshot().Gear; got != tt.want {
			t.Errorf("after SetGear(%d) Gear = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestShiftGear(t *testing.T) {
	st := New()
	st.SetGear(16)

	if g, changed := st.ShiftGear(1); g != 16 || changed {
		t.Errorf("ShiftGear(+1) at top = %d, %v", g, changed)
	}
	if g, changed := st.ShiftGear(-1); g != 15 || !changed {
		t.Errorf("ShiftGear(-1) = %d, %v", g, changed)
	}

	st.SetGear(1)
	if g, changed := st.ShiftGear(-1); g != 1 || changed {
		t.Errorf("ShiftGear(-1) at bottom = %d, %v", g, changed)
	}
}

func TestSetTargetPower_TracksPrevious(t *testing.T) {
	st := New()
	st.SetTargetPower(150)
	prev := st.SetTargetPower(220)

	if prev != 150 {
		t.Errorf("SetTargetPower returned %d, want 150", prev)
	}
	s := st.Snapshot()
	if s.TargetPower != 220 || s.PreviousTargetPower != 150 {
		t.Errorf("Target/Previous = %d/%d, want 220/150", s.TargetPower, s.PreviousTargetPower)
	}
}

func TestSetSimulatedPower_Memoizes(t *testing.T) {
	st := New()

	if !st.SetSimulatedPower(180) {
		t.Error("first value reported unchanged")
	}
	if st.SetSimulatedPower(180) {
		t.Error("repeated value reported changed")
	}
	if !st.SetSimulatedPower(185) {
		t.Error("new value reported unchanged")
	}
	if st.Snapshot().TargetPower != 0 {
		t.Error("SetSimulatedPower touched TargetPower")
	}
}

func TestSetMode_IgnoresUnknown(t *testing.T) {
	st := New()
	st.SetMode(ModeSimulation)
	st.SetMode(Mode(42))

	if got := st.Snapshot().Mode; got != ModeSimulation {
		t.Errorf("Mode = %v, want SIM", got)
	}
}

func TestModeString(t *testing.T) {
	tests := map[Mode]string{
		ModeStandard:      "STD",
		ModeConstantPower: "ERG",
		ModeSimulation:    "SIM",
		Mode(9):           "UNKNOWN",
	}
	for m, want := range tests {
		if got := m.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", m, got, want)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				st.SetMetrics(j, i*j)
				st.ShiftGear(1 - 2*(j%2))
				st.SetBusy(j%2 == 0)
				_ = st.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if g := st.Snapshot().Gear; g < 1 || g > 16 {
		t.Errorf("Gear = %d out of range", g)
	}
}
