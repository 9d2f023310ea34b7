// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ftms encodes and decodes the Bluetooth Fitness Machine Service
// records the bridge exchanges with training applications.
package ftms

// 16-bit assigned numbers
const (
	ServiceUUID16             = 0x1826
	FeatureUUID16             = 0x2ACC
	IndoorBikeDataUUID16      = 0x2AD2
	SupportedPowerRangeUUID16 = 0x2AD8
	ControlPointUUID16        = 0x2AD9
)

// GearUUID is the vendor characteristic carrying the gear record.
const GearUUID = "6e40fec4-b5a3-f393-e0a9-e50e24dcca9e"

// Supported power range advertised to controllers, in watts
const (
	MinTargetPower       = 0
	MaxTargetPower       = 2000
	TargetPowerIncrement = 5
)

// Control point opcodes
const (
	OpRequestControl      = 0x00
	OpReset               = 0x01
	OpSetTargetPower      = 0x05
	OpStartResume         = 0x07
	OpSetSimulationParams = 0x11
	OpResponseCode        = 0x80
)

// Control point result codes
const (
	ResultSuccess          = 0x01
	ResultNotSupported     = 0x02
	ResultInvalidParameter = 0x03
	ResultFailed           = 0x04
	ResultNotPermitted     = 0x05
)

// Indoor bike data layout
const (
	IndoorBikeDataSize = 10

	// FlagsPower and FlagsCadence are the first two flag bytes as sent.
	FlagsPower   = 0x44
	FlagsCadence = 0x02

	// speedPlaceholder fills the instantaneous speed field (0.01 km/h units).
	speedPlaceholder = 0x0300
)

// Simulation parameter scale factors
const (
	WindSpeedResolution = 0.001  // m/s
	GradeResolution     = 0.01   // percent
	CrrResolution       = 0.0001 // unitless
	CdAResolution       = 0.01   // kg/m
)

// Gear record size
const GearRecordSize = 2

// Feature bits advertised in the Fitness Machine Feature characteristic
const (
	FeatureCadenceSupported        = 1 << 1
	FeaturePowerMeasurementSupport = 1 << 14

	TargetPowerSettingSupported       = 1 << 3
	TargetIndoorBikeSimulationSupport = 1 << 13
)
