// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettler

import "errors"

// ErrLineTooLong is returned when a line exceeds MaxLineLength before a
// terminator arrives. The partial line is discarded.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// LineDecoder splits a serial byte stream into protocol lines.
type LineDecoder struct {
	buffer   []byte
	overflow bool
}

// NewLineDecoder creates a decoder with an empty buffer.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{
		buffer: make([]byte, 0, MaxLineLength),
	}
}

// Reset drops any partially received line.
func (d *LineDecoder) Reset() {
	d.buffer = d.buffer[:0]
	d.overflow = false
}

// DecodeByte consumes one byte. It returns the completed line (without the
// terminator) and true when b ends a line. Empty lines are not reported.
func (d *LineDecoder) DecodeByte(b byte) (string, bool, error) {
	switch b {
	case '\r':
		// Wait for LF; a lone CR is folded into the terminator.
		return "", false, nil
	case '\n':
		if d.overflow {
			d.Reset()
			return "", false, ErrLineTooLong
		}
		if len(d.buffer) == 0 {
			return "", false, nil
		}
		line := string(d.buffer)
		d.Reset()
		return line, true, nil
	}

	if d.overflow {
		return "", false, nil
	}
	if len(d.buffer) >= MaxLineLength {
		d.overflow = true
		return "", false, nil
	}
	d.buffer = append(d.buffer, b)
	return "", false, nil
}

// Decode feeds p to the decoder and returns every completed line.
func (d *LineDecoder) Decode(p []byte) []string {
	var lines []string
	for _, b := range p {
		line, ok, err := d.DecodeByte(b)
		if err != nil || !ok {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
