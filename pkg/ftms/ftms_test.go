// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ftms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestEncodeIndoorBikeData_Layout(t *testing.T) {
	buf := EncodeIndoorBikeData(90, 120)

	want := []byte{0x44, 0x02, 0x00, 0x03, 90, 0x00, 120, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf, want) {
		t.Errorf("EncodeIndoorBikeData = % X, want % X", buf, want)
	}
}

func TestIndoorBikeData_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		cadence int
		power   int
	}{
		{"idle", 0, 0},
		{"steady", 90, 200},
		{"sprint", 240, 1450},
		{"negative power", 30, -12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cadence, power, err := DecodeIndoorBikeData(EncodeIndoorBikeData(tt.cadence, tt.power))
			if err != nil {
				t.Fatalf("DecodeIndoorBikeData failed: %v", err)
			}
			if cadence != tt.cadence || power != tt.power {
				t.Errorf("got %d/%d, want %d/%d", cadence, power, tt.cadence, tt.power)
			}
		})
	}
}

func TestEncodeIndoorBikeData_Saturates(t *testing.T) {
	cadence, power, _ := DecodeIndoorBikeData(EncodeIndoorBikeData(-5, 40000))
	if cadence != 0 {
		t.Errorf("cadence = %d, want 0", cadence)
	}
	if power != math.MaxInt16 {
		t.Errorf("power = %d, want %d", power, math.MaxInt16)
	}
}

func TestDecodeIndoorBikeData_Short(t *testing.T) {
	if _, _, err := DecodeIndoorBikeData([]byte{0x44, 0x02}); !errors.Is(err, ErrShortPayload) {
		t.Errorf("err = %v, want ErrShortPayload", err)
	}
}

func TestEncodeGear(t *testing.T) {
	tests := []struct {
		gear int
		want []byte
	}{
		{0, []byte{0x01, 0x00}},
		{-4, []byte{0x01, 0x00}},
		{8, []byte{0x08, 0x00}},
		{16, []byte{0x10, 0x00}},
	}
	for _, tt := range tests {
		got := EncodeGear(tt.gear)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeGear(%d) = % X, want % X", tt.gear, got, tt.want)
		}
		if g, err := DecodeGear(got); err != nil || g != int(tt.want[0]) {
			t.Errorf("DecodeGear = %d, %v", g, err)
		}
	}
}

func TestResponse(t *testing.T) {
	got := Response(OpSetTargetPower, ResultSuccess)
	if !bytes.Equal(got, []byte{0x80, 0x05, 0x01}) {
		t.Errorf("Response = % X", got)
	}
}

func TestOpcode(t *testing.T) {
	if _, err := Opcode(nil); !errors.Is(err, ErrEmptyWrite) {
		t.Errorf("err = %v, want ErrEmptyWrite", err)
	}
	if op, err := Opcode([]byte{0x11, 0x00}); err != nil || op != OpSetSimulationParams {
		t.Errorf("Opcode = 0x%02X, %v", op, err)
	}
}

func TestParseTargetPower(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    int
		wantErr bool
	}{
		{"200 W", []byte{0x05, 0xC8, 0x00}, 200, false},
		{"1000 W", []byte{0x05, 0xE8, 0x03}, 1000, false},
		{"negative", []byte{0x05, 0xF6, 0xFF}, -10, false},
		{"short", []byte{0x05, 0xC8}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargetPower(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTargetPower = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseSimulation(t *testing.T) {
	wind := int16(-2500) // -2.5 m/s
	grade := int16(450)  // 4.5 %

	data := make([]byte, 8)
	data[0] = OpSetSimulationParams
	binary.LittleEndian.PutUint16(data[1:3], uint16(wind))
	binary.LittleEndian.PutUint16(data[3:5], uint16(grade))
	data[5] = 40 // 0.004
	data[6] = 51 // 0.51
	data[7] = 11

	sim, err := ParseSimulation(data)
	if err != nil {
		t.Fatalf("ParseSimulation failed: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"wind", sim.WindSpeed, -2.5},
		{"grade", sim.Grade, 4.5},
		{"crr", sim.Crr, 0.004},
		{"cda", sim.CdA, 0.51},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %f, want %f", c.name, c.got, c.want)
		}
	}
	if !sim.HasGear || sim.Gear != 11 {
		t.Errorf("Gear = %d (has=%v), want 11", sim.Gear, sim.HasGear)
	}
}

func TestParseSimulation_WithoutGear(t *testing.T) {
	sim, err := ParseSimulation([]byte{0x11, 0, 0, 0x64, 0, 0, 0})
	if err != nil {
		t.Fatalf("ParseSimulation failed: %v", err)
	}
	if sim.HasGear {
		t.Error("HasGear set on 7-byte payload")
	}
	if math.Abs(sim.Grade-1.0) > 1e-9 {
		t.Errorf("Grade = %f, want 1.0", sim.Grade)
	}

	if _, err := ParseSimulation([]byte{0x11, 0, 0}); !errors.Is(err, ErrShortPayload) {
		t.Errorf("err = %v, want ErrShortPayload", err)
	}
}

func TestEncodeSimulation_RoundTrip(t *testing.T) {
	in := Simulation{WindSpeed: 3.2, Grade: -6.75, Crr: 0.0051, CdA: 0.32, Gear: 4, HasGear: true}
	out, err := ParseSimulation(EncodeSimulation(in))
	if err != nil {
		t.Fatalf("ParseSimulation failed: %v", err)
	}
	if math.Abs(out.Grade-in.Grade) > 1e-9 || math.Abs(out.WindSpeed-in.WindSpeed) > 1e-9 {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
	if out.Gear != 4 || !out.HasGear {
		t.Errorf("gear = %d (has=%v)", out.Gear, out.HasGear)
	}
}

func TestEncodeTargetPower(t *testing.T) {
	if got := EncodeTargetPower(200); !bytes.Equal(got, []byte{0x05, 0xC8, 0x00}) {
		t.Errorf("EncodeTargetPower(200) = % X", got)
	}
}

func TestFeatureRecords(t *testing.T) {
	feature := FeatureRecord()
	if len(feature) != 8 {
		t.Fatalf("FeatureRecord length = %d, want 8", len(feature))
	}
	targets := binary.LittleEndian.Uint32(feature[4:8])
	if targets&TargetPowerSettingSupported == 0 || targets&TargetIndoorBikeSimulationSupport == 0 {
		t.Errorf("target features = 0x%08X", targets)
	}

	power := SupportedPowerRange()
	if binary.LittleEndian.Uint16(power[2:4]) != MaxTargetPower {
		t.Errorf("max power = %d", binary.LittleEndian.Uint16(power[2:4]))
	}
}

func TestFormatOpcode(t *testing.T) {
	if got := FormatOpcode(0x05); got != "SET_TARGET_POWER" {
		t.Errorf("FormatOpcode(0x05) = %q", got)
	}
	if got := FormatOpcode(0x42); got != "UNKNOWN(0x42)" {
		t.Errorf("FormatOpcode(0x42) = %q", got)
	}
}
