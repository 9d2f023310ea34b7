// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package physics estimates the power a rider would need to hold the current
// cadence under simulated ride conditions.
package physics

import "math"

// Physical constants for cycling
const (
	Gravity    = 9.81
	AirDensity = 1.225 // kg/m³ at sea level
)

// Params tunes the model. Zero Ceiling means unbounded.
type Params struct {
	Mass          float64 // rider + bike, kg
	Gravity       float64
	AirDensity    float64
	MetersPerRev  float64 // distance covered per crank revolution at ReferenceGear
	ReferenceGear int
	GearStep      float64 // fractional speed change per gear away from ReferenceGear
	Floor         int
	Ceiling       int
	Step          int // round output to a multiple of Step watts
}

// DefaultParams returns the full model: floored at 0, rounded to 5 W.
func DefaultParams() Params {
	return Params{
		Mass:          85.0,
		Gravity:       Gravity,
		AirDensity:    AirDensity,
		MetersPerRev:  6.0,
		ReferenceGear: 8,
		GearStep:      0.1,
		Floor:         0,
		Ceiling:       2000,
		Step:          5,
	}
}

// SimpleParams returns the conservative variant clamped to [50, 400] W.
func SimpleParams() Params {
	p := DefaultParams()
	p.Floor = 50
	p.Ceiling = 400
	return p
}

// Input is everything the model reads from the session.
type Input struct {
	Grade     float64 // percent
	WindSpeed float64 // m/s, positive is headwind
	Crr       float64
	CdA       float64
	Gear      int
	Cadence   int // rpm
}

// Model is a pure function of its Params and Input.
type Model struct {
	Params Params
}

// NewModel creates a model. A zero Params value selects DefaultParams.
func NewModel(p Params) *Model {
	if p == (Params{}) {
		p = DefaultParams()
	}
	return &Model{Params: p}
}

// GearMultiplier scales speed relative to the reference gear.
func (m *Model) GearMultiplier(gear int) float64 {
	mult := 1.0 + float64(gear-m.Params.ReferenceGear)*m.Params.GearStep
	if mult < 0.1 {
		return 0.1
	}
	return mult
}

// Speed estimates forward speed in m/s from cadence and gear.
func (m *Model) Speed(in Input) float64 {
	if in.Cadence <= 0 {
		return 0
	}
	return float64(in.Cadence) / 60.0 * m.Params.MetersPerRev * m.GearMultiplier(in.Gear)
}

// Forces returns the gravity, rolling and aerodynamic power components in W.
func (m *Model) Forces(in Input) (gravity, rolling, drag float64) {
	p := m.Params
	speed := m.Speed(in)

	gravity = p.Mass * p.Gravity * speed * in.Grade / 100.0
	rolling = p.Mass * p.Gravity * in.Crr * speed

	relative := math.Max(0, speed+in.WindSpeed)
	drag = 0.5 * p.AirDensity * in.CdA * relative * relative * relative

	return gravity, rolling, drag
}

// TargetPower returns the clamped, rounded power for in. Never negative.
func (m *Model) TargetPower(in Input) int {
	gravity, rolling, drag := m.Forces(in)
	total := gravity + rolling + drag

	p := m.Params
	if total < float64(p.Floor) {
		total = float64(p.Floor)
	}
	if p.Ceiling > 0 && total > float64(p.Ceiling) {
		total = float64(p.Ceiling)
	}

	watts := int(math.Round(total))
	if p.Step > 1 {
		watts = int(math.Round(total/float64(p.Step))) * p.Step
	}
	if watts < 0 {
		return 0
	}
	return watts
}
