// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettler

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks line statistics and anomaly rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalLines      uint64
	StatusFrames    uint64
	KeyFrames       uint64
	IgnoredLines    uint64
	OverlongLines   uint64
	AnomalousFrames uint64
	CommandsSent    uint64

	// Rates (calculated)
	LineRate  float64 // lines/sec
	NoiseRate float64 // ignored+overlong/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one decoded line: either a parsed frame or the parse error.
func (s *Statistics) Update(f *Frame, err error, validationErrors []ValidationError) {
	s.TotalLines++
	s.LastUpdateTime = time.Now()

	if err != nil {
		if errors.Is(err, ErrLineTooLong) {
			s.OverlongLines++
		} else {
			s.IgnoredLines++
		}
		return
	}
	if f == nil {
		return
	}

	switch f.Kind {
	case FrameStatus:
		s.StatusFrames++
	case FrameKey:
		s.KeyFrames++
	}
	if len(validationErrors) > 0 {
		s.AnomalousFrames++
	}
}

// RecordCommand counts an outbound command.
func (s *Statistics) RecordCommand() {
	s.CommandsSent++
}

// CalculateRates calculates line and noise rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.LineRate = float64(s.TotalLines) / elapsed
		s.NoiseRate = float64(s.IgnoredLines+s.OverlongLines) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var statusPercent, ignoredPercent float64
	if s.TotalLines > 0 {
		statusPercent = float64(s.StatusFrames) * 100.0 / float64(s.TotalLines)
		ignoredPercent = float64(s.IgnoredLines+s.OverlongLines) * 100.0 / float64(s.TotalLines)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Lines:     %8d\n", s.TotalLines)
	result += fmt.Sprintf("Status Frames:   %8d (%.1f%%)\n", s.StatusFrames, statusPercent)
	if s.KeyFrames > 0 {
		result += fmt.Sprintf("Key Frames:      %8d\n", s.KeyFrames)
	}
	if s.IgnoredLines+s.OverlongLines > 0 {
		result += fmt.Sprintf("Ignored Lines:   %8d (%.1f%%)\n", s.IgnoredLines+s.OverlongLines, ignoredPercent)
		if s.OverlongLines > 0 {
			result += fmt.Sprintf("  Overlong:         %5d\n", s.OverlongLines)
		}
	}
	if s.AnomalousFrames > 0 {
		result += fmt.Sprintf("Anomalous:       %8d\n", s.AnomalousFrames)
	}
	result += fmt.Sprintf("Commands Sent:   %8d\n", s.CommandsSent)
	result += fmt.Sprintf("Line Rate:       %8.1f lines/sec\n", s.LineRate)
	result += fmt.Sprintf("Noise Rate:      %8.1f lines/sec\n", s.NoiseRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
