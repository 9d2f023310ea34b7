// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrIgnored marks a line that is neither a status nor a key frame. Serial
// noise produces these regularly; callers drop them silently.
var ErrIgnored = errors.New("line ignored")

// Frame is one parsed inbound line.
type Frame struct {
	Kind      FrameKind
	Fields    []string
	Raw       string
	Timestamp time.Time

	// Status frame values. HasX is false when the field did not parse.
	Cadence    int
	Power      int
	HasCadence bool
	HasPower   bool

	// Key frame value
	KeyCode string
}

// SplitFields splits a line according to the dialect's delimiter.
func SplitFields(line string, d Dialect) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !d.Tabs {
		return strings.Fields(line)
	}
	fields := strings.Split(line, "\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// ParseLine classifies and parses a single line.
func ParseLine(line string, d Dialect) (*Frame, error) {
	fields := SplitFields(line, d)

	switch {
	case len(fields) > d.MinFields:
		f := &Frame{
			Kind:      FrameStatus,
			Fields:    fields,
			Raw:       line,
			Timestamp: time.Now(),
		}
		if cadence, err := strconv.Atoi(fields[1]); err == nil {
			if d.HalfCadence {
				cadence *= 2
			}
			f.Cadence = cadence
			f.HasCadence = true
		}
		if power, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			f.Power = power
			f.HasPower = true
		}
		if !f.HasCadence && !f.HasPower {
			return nil, fmt.Errorf("%w: no numeric cadence or power in %q", ErrIgnored, line)
		}
		return f, nil

	case len(fields) == KeyFrameFields:
		return &Frame{
			Kind:      FrameKey,
			Fields:    fields,
			Raw:       line,
			Timestamp: time.Now(),
			KeyCode:   fields[len(fields)-1],
		}, nil
	}

	return nil, fmt.Errorf("%w: %d fields", ErrIgnored, len(fields))
}
