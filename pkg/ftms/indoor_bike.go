// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ftms

import (
	"encoding/binary"
	"fmt"
)

// EncodeIndoorBikeData builds the 10-byte indoor bike data record.
// Cadence is written unsigned and power signed, both little-endian.
func EncodeIndoorBikeData(cadence, power int) []byte {
	buf := make([]byte, IndoorBikeDataSize)
	buf[0] = FlagsPower
	buf[1] = FlagsCadence
	binary.LittleEndian.PutUint16(buf[2:4], speedPlaceholder)
	binary.LittleEndian.PutUint16(buf[4:6], clampUint16(cadence))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(clampInt16(power)))
	// bytes 8-9 stay zero
	return buf
}

// DecodeIndoorBikeData extracts cadence and power from a record built by
// EncodeIndoorBikeData.
func DecodeIndoorBikeData(buf []byte) (cadence, power int, err error) {
	if len(buf) < IndoorBikeDataSize {
		return 0, 0, fmt.Errorf("%w: indoor bike data needs %d bytes, got %d",
			ErrShortPayload, IndoorBikeDataSize, len(buf))
	}
	cadence = int(binary.LittleEndian.Uint16(buf[4:6]))
	power = int(int16(binary.LittleEndian.Uint16(buf[6:8])))
	return cadence, power, nil
}

// EncodeGear builds the 2-byte gear record. An unset gear reads as 1.
func EncodeGear(gear int) []byte {
	if gear <= 0 {
		gear = 1
	}
	buf := make([]byte, GearRecordSize)
	binary.LittleEndian.PutUint16(buf, clampUint16(gear))
	return buf
}

// DecodeGear reads a gear record.
func DecodeGear(buf []byte) (int, error) {
	if len(buf) < GearRecordSize {
		return 0, fmt.Errorf("%w: gear record needs %d bytes, got %d",
			ErrShortPayload, GearRecordSize, len(buf))
	}
	return int(binary.LittleEndian.Uint16(buf)), nil
}

// FeatureRecord returns the Fitness Machine Feature value: 4 bytes of machine
// features followed by 4 bytes of target setting features.
func FeatureRecord() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], FeatureCadenceSupported|FeaturePowerMeasurementSupport)
	binary.LittleEndian.PutUint32(buf[4:8], TargetPowerSettingSupported|TargetIndoorBikeSimulationSupport)
	return buf
}

// SupportedPowerRange returns the 6-byte supported power range record.
func SupportedPowerRange() []byte {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(MinTargetPower))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(MaxTargetPower))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(TargetPowerIncrement))
	return buf
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

func clampInt16(v int) int16 {
	if v < -0x8000 {
		return -0x8000
	}
	if v > 0x7FFF {
		return 0x7FFF
	}
	return int16(v)
}
