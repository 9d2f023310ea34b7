// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package physics

import (
	"math"
	"testing"
)

func TestTargetPower_ZeroConditions(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{"default floors at zero", DefaultParams(), 0},
		{"simple floors at 50", SimpleParams(), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(tt.params)
			got := m.TargetPower(Input{Gear: 8, Cadence: 90})
			if got != tt.want {
				t.Errorf("TargetPower = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTargetPower_MonotonicInGrade(t *testing.T) {
	m := NewModel(DefaultParams())
	prev := -1
	for grade := 0.0; grade <= 10.0; grade += 1.0 {
		got := m.TargetPower(Input{Grade: grade, Crr: 0.004, CdA: 0.3, Gear: 8, Cadence: 60})
		if got <= prev {
			t.Fatalf("grade %.1f%%: power %d not greater than %d", grade, got, prev)
		}
		prev = got
	}
}

func TestTargetPower_NonNegativeDownhill(t *testing.T) {
	m := NewModel(DefaultParams())
	got := m.TargetPower(Input{Grade: -12, Crr: 0.004, CdA: 0.3, Gear: 16, Cadence: 100})
	if got != 0 {
		t.Errorf("steep descent TargetPower = %d, want 0", got)
	}
}

func TestTargetPower_RoundsToStep(t *testing.T) {
	m := NewModel(DefaultParams())
	for grade := 0.0; grade < 8; grade += 0.37 {
		got := m.TargetPower(Input{Grade: grade, Crr: 0.005, CdA: 0.32, Gear: 8, Cadence: 85})
		if got%5 != 0 {
			t.Fatalf("grade %.2f: %d is not a multiple of 5", grade, got)
		}
	}
}

func TestTargetPower_Ceiling(t *testing.T) {
	m := NewModel(SimpleParams())
	got := m.TargetPower(Input{Grade: 20, Crr: 0.005, CdA: 0.4, Gear: 16, Cadence: 120})
	if got != 400 {
		t.Errorf("TargetPower = %d, want ceiling 400", got)
	}
}

func TestTargetPower_Headwind(t *testing.T) {
	m := NewModel(DefaultParams())
	base := Input{Grade: 1, Crr: 0.004, CdA: 0.3, Gear: 8, Cadence: 80}
	calm := m.TargetPower(base)

	headwind := base
	headwind.WindSpeed = 5
	if got := m.TargetPower(headwind); got <= calm {
		t.Errorf("headwind %d <= calm %d", got, calm)
	}

	// A tailwind faster than the rider removes drag entirely
	tailwind := base
	tailwind.WindSpeed = -50
	gravity, rolling, drag := m.Forces(tailwind)
	if drag != 0 {
		t.Errorf("drag = %f with overtaking tailwind, want 0", drag)
	}
	if gravity <= 0 || rolling <= 0 {
		t.Errorf("gravity/rolling = %f/%f, want positive", gravity, rolling)
	}
}

func TestSpeed_ReferenceGear(t *testing.T) {
	m := NewModel(DefaultParams())

	got := m.Speed(Input{Gear: 8, Cadence: 90})
	want := 90.0 / 60.0 * 6.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Speed = %f, want %f", got, want)
	}

	if m.Speed(Input{Gear: 12, Cadence: 90}) <= got {
		t.Error("higher gear did not increase speed")
	}
	if m.Speed(Input{Gear: 8, Cadence: 0}) != 0 {
		t.Error("zero cadence produced speed")
	}
}

func TestGearMultiplier_Floor(t *testing.T) {
	m := NewModel(Params{Mass: 80, Gravity: Gravity, AirDensity: AirDensity, MetersPerRev: 6, ReferenceGear: 8, GearStep: 0.5})
	if got := m.GearMultiplier(1); got != 0.1 {
		t.Errorf("GearMultiplier(1) = %f, want 0.1", got)
	}
}

func TestNewModel_ZeroParams(t *testing.T) {
	m := NewModel(Params{})
	if m.Params != DefaultParams() {
		t.Errorf("Params = %+v, want defaults", m.Params)
	}
}
