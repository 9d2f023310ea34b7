// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettler

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// TestFuzzLineDecoder_RandomBytes feeds random bytes to the decoder and
// parser and verifies neither panics.
func TestFuzzLineDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewLineDecoder()

		length := rng.Intn(1024) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, line := range d.Decode(data) {
			if len(line) > MaxLineLength {
				t.Fatalf("round %d: line of %d bytes exceeds limit", i, len(line))
			}
			ParseLine(line, DialectRacer)
			ParseLine(line, DialectClassic)
		}
	}
}

// TestFuzzParseLine_RandomStatus builds random well-formed status lines and
// checks cadence and power survive parsing.
func TestFuzzParseLine_RandomStatus(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		dialect := DialectRacer
		sep := " "
		if rng.Intn(2) == 1 {
			dialect = DialectClassic
			sep = "\t"
		}

		count := dialect.MinFields + 1 + rng.Intn(3)
		fields := make([]string, count)
		for j := range fields {
			fields[j] = strconv.Itoa(rng.Intn(1000))
		}
		cadence := rng.Intn(200)
		power := rng.Intn(1500)
		fields[1] = strconv.Itoa(cadence)
		fields[count-1] = strconv.Itoa(power)

		line := strings.Join(fields, sep)
		f, err := ParseLine(line, dialect)
		if err != nil {
			t.Fatalf("round %d: ParseLine(%q) failed: %v", i, line, err)
		}

		wantCadence := cadence
		if dialect.HalfCadence {
			wantCadence *= 2
		}
		if f.Cadence != wantCadence || f.Power != power {
			t.Fatalf("round %d: got cadence=%d power=%d, want %d/%d",
				i, f.Cadence, f.Power, wantCadence, power)
		}
	}
}

// TestFuzzParseLine_ShortLines verifies lines at or below the threshold
// never produce a status frame.
func TestFuzzParseLine_ShortLines(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		count := rng.Intn(DialectRacer.MinFields + 1)
		fields := make([]string, count)
		for j := range fields {
			fields[j] = fmt.Sprint(rng.Intn(500))
		}
		f, err := ParseLine(strings.Join(fields, " "), DialectRacer)
		if err == nil && f.Kind == FrameStatus {
			t.Fatalf("round %d: %d fields parsed as status frame", i, count)
		}
	}
}
