// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trainer owns the serial connection to a Kettler trainer: opening
// and re-opening the port, the reset handshake, the status poller, and the
// traffic control that keeps multi-step command sequences from being
// interleaved with status requests.
package trainer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/ergostat/pkg/kettler"
	"github.com/Thermoquad/ergostat/pkg/session"
)

// Timing holds every fixed delay of the serial side.
type Timing struct {
	BusyRetry    time.Duration // poller re-check while a sequence is in flight
	PollInterval time.Duration // between status requests
	StepDelay    time.Duration // after each command of a sequence
	ConnectRetry time.Duration // after a failed open or a lost port
	Settle       time.Duration // between reset and computer mode
}

// DefaultTiming returns the delays the trainer firmware needs.
func DefaultTiming() Timing {
	return Timing{
		BusyRetry:    50 * time.Millisecond,
		PollInterval: 250 * time.Millisecond,
		StepDelay:    150 * time.Millisecond,
		ConnectRetry: 5 * time.Second,
		Settle:       5 * time.Second,
	}
}

// Config configures a Transport. Zero fields take defaults.
type Config struct {
	Path    string
	Baud    int
	Dialect kettler.Dialect
	Timing  Timing
	Open    Opener
	Log     *logrus.Entry
}

// Transport is the serial client.
type Transport struct {
	cfg     Config
	log     *logrus.Entry
	session *session.State

	mu   sync.RWMutex
	port Port

	// traffic is held by the handshake, by each command sequence and by each
	// status request.
	traffic sync.Mutex

	// qmu guards queue and running, and the session busy flag mirrors them
	// under it.
	qmu     sync.Mutex
	queue   []sequence
	running bool
	wake    chan struct{}

	// pollDue is set when the poller had to defer; the sequence worker then
	// writes the status request before releasing the channel.
	pollDue atomic.Bool

	statsMu sync.Mutex
	stats   *kettler.Statistics

	onFrame     func(*kettler.Frame)
	onConnected func(context.Context)
}

// New creates a transport that mirrors its connected and busy flags into st.
func New(cfg Config, st *session.State) *Transport {
	if cfg.Baud == 0 {
		cfg.Baud = 57600
	}
	if cfg.Dialect.Name == "" {
		cfg.Dialect = kettler.DialectRacer
	}
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	if cfg.Open == nil {
		cfg.Open = SerialOpener
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if st == nil {
		st = session.New()
	}

	return &Transport{
		cfg:     cfg,
		log:     cfg.Log.WithField("component", "serial"),
		session: st,
		wake:    make(chan struct{}, 1),
		stats:   kettler.NewStatistics(),
	}
}

// OnFrame registers the handler for parsed inbound frames. Must be called
// before Run.
func (t *Transport) OnFrame(fn func(*kettler.Frame)) {
	t.onFrame = fn
}

// OnConnected registers a hook started in its own goroutine after every
// successful handshake. ctx ends when the port is lost. Must be called before
// Run.
func (t *Transport) OnConnected(fn func(ctx context.Context)) {
	t.onConnected = fn
}

// Dialect returns the configured firmware dialect.
func (t *Transport) Dialect() kettler.Dialect {
	return t.cfg.Dialect
}

// Connected reports whether the handshake has completed on the current port.
func (t *Transport) Connected() bool {
	return t.session.Snapshot().Connected
}

// Busy reports whether a command sequence is queued or running.
func (t *Transport) Busy() bool {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	return t.running || len(t.queue) > 0
}

// Stats returns a copy of the line statistics.
func (t *Transport) Stats() kettler.Statistics {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return *t.stats
}

// Run drives the connection until ctx ends: connect, supervise, and
// reconnect after the port is lost. It only returns ctx's error.
func (t *Transport) Run(ctx context.Context) error {
	go t.runSequences(ctx)

	for {
		if err := t.Connect(ctx); err != nil {
			return err
		}

		connCtx, cancel := context.WithCancel(ctx)
		lost := make(chan struct{})

		go t.readLoop(t.currentPort(), lost)
		go t.pollLoop(connCtx)
		if t.onConnected != nil {
			go t.onConnected(connCtx)
		}

		select {
		case <-ctx.Done():
			cancel()
			t.closePort()
			return ctx.Err()
		case <-lost:
			cancel()
			t.closePort()
			t.log.Warnf("Port lost, reconnecting in %s", t.cfg.Timing.ConnectRetry)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.Timing.ConnectRetry):
		}
	}
}

// Connect opens the port, retrying every ConnectRetry until it succeeds, then
// performs the reset handshake. Open failures are logged, never returned;
// the only error is ctx's.
func (t *Transport) Connect(ctx context.Context) error {
	var port Port
	for {
		p, err := t.cfg.Open(t.cfg.Path, t.cfg.Baud)
		if err == nil {
			port = p
			break
		}
		t.log.WithError(err).Errorf("Error opening port, retrying in %s", t.cfg.Timing.ConnectRetry)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.Timing.ConnectRetry):
		}
	}

	t.mu.Lock()
	t.port = port
	t.mu.Unlock()
	t.log.WithField("path", t.cfg.Path).Info("Port opened")

	t.traffic.Lock()
	t.Write(kettler.CmdReset)
	select {
	case <-ctx.Done():
		t.traffic.Unlock()
		t.closePort()
		return ctx.Err()
	case <-time.After(t.cfg.Timing.Settle):
	}
	t.Write(kettler.CmdComputerMode)
	t.traffic.Unlock()

	t.session.SetConnected(true)
	t.log.Info("Trainer in computer mode")
	return nil
}

// Write sends one command. It is a no-op while no port is open; write errors
// are logged and the command is dropped.
func (t *Transport) Write(cmd string) {
	port := t.currentPort()
	if port == nil {
		return
	}

	if _, err := port.Write(kettler.EncodeCommand(cmd)); err != nil {
		t.log.WithError(err).WithField("command", cmd).Error("Write error")
		return
	}

	t.statsMu.Lock()
	t.stats.RecordCommand()
	t.statsMu.Unlock()

	if cmd != kettler.CmdStatus {
		t.log.WithField("command", cmd).Debug(kettler.FormatCommand(cmd))
	}
}

// sequence is one queued command sequence and the command names it sets.
type sequence struct {
	cmds  []string
	names map[string]bool
}

func newSequence(cmds []string) sequence {
	names := make(map[string]bool, len(cmds))
	for _, cmd := range cmds {
		names[kettler.CommandName(cmd)] = true
	}
	return sequence{cmds: append([]string(nil), cmds...), names: names}
}

// supersedes reports whether s sets everything older sets, so older can be
// dropped once s is queued after it.
func (s sequence) supersedes(older sequence) bool {
	for name := range older.names {
		if !s.names[name] {
			return false
		}
	}
	return true
}

// Sequence queues commands to be written in order, StepDelay apart, with the
// traffic lock held from the first write until StepDelay after the last.
// Sequences run one at a time in submission order and are never cancelled
// once started. A queued sequence that has not started is dropped when a
// newer one sets the same commands, so only the latest target reaches the
// trainer. Sequence never blocks; Busy reports true from the moment it
// returns.
func (t *Transport) Sequence(cmds ...string) {
	if len(cmds) == 0 {
		return
	}
	next := newSequence(cmds)

	t.qmu.Lock()
	kept := t.queue[:0]
	dropped := 0
	for _, queued := range t.queue {
		if next.supersedes(queued) {
			dropped++
			continue
		}
		kept = append(kept, queued)
	}
	t.queue = append(kept, next)
	t.session.SetBusy(true)
	t.qmu.Unlock()

	if dropped > 0 {
		t.log.WithField("dropped", dropped).Debug("Superseded command sequences dropped")
	}

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Transport) runSequences(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		seq, ok := t.nextSequence()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-t.wake:
			}
			continue
		}
		t.execute(seq.cmds)
	}
}

func (t *Transport) nextSequence() (sequence, bool) {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	if len(t.queue) == 0 {
		return sequence{}, false
	}
	seq := t.queue[0]
	t.queue = t.queue[1:]
	t.running = true
	return seq, true
}

func (t *Transport) execute(cmds []string) {
	t.traffic.Lock()
	for _, cmd := range cmds {
		t.Write(cmd)
		time.Sleep(t.cfg.Timing.StepDelay)
	}

	// A poll deferred during the sequence goes out before the next one, so
	// a burst of sequences never starves telemetry.
	if t.pollDue.Swap(false) {
		t.Write(kettler.CmdStatus)
		if t.queued() > 0 {
			time.Sleep(t.cfg.Timing.StepDelay)
		}
	}
	t.traffic.Unlock()

	t.qmu.Lock()
	t.running = false
	if len(t.queue) == 0 {
		t.session.SetBusy(false)
	}
	t.qmu.Unlock()
}

func (t *Transport) queued() int {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	return len(t.queue)
}

// pollLoop requests status every PollInterval, deferring by BusyRetry while
// a sequence is queued or holds the channel.
func (t *Transport) pollLoop(ctx context.Context) {
	for {
		wait := t.cfg.Timing.PollInterval
		if t.Busy() || !t.traffic.TryLock() {
			t.pollDue.Store(true)
			wait = t.cfg.Timing.BusyRetry
		} else {
			t.pollDue.Store(false)
			t.Write(kettler.CmdStatus)
			t.traffic.Unlock()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// readLoop decodes lines until the port fails, then closes lost.
func (t *Transport) readLoop(port Port, lost chan<- struct{}) {
	defer close(lost)
	if port == nil {
		return
	}

	decoder := kettler.NewLineDecoder()
	buf := make([]byte, 128)
	for {
		n, err := port.Read(buf)
		if err != nil {
			t.log.WithError(err).Debug("Read error")
			return
		}

		for i := 0; i < n; i++ {
			line, ok, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				t.record(nil, decodeErr, nil)
				continue
			}
			if ok {
				t.handleLine(line)
			}
		}
	}
}

func (t *Transport) handleLine(line string) {
	frame, err := kettler.ParseLine(line, t.cfg.Dialect)
	if err != nil {
		// Serial noise, acknowledgements and partial frames.
		t.record(nil, err, nil)
		return
	}

	validationErrors := kettler.ValidateFrame(frame)
	t.record(frame, nil, validationErrors)
	for _, v := range validationErrors {
		t.log.WithField("line", line).Warn(v.Message)
	}

	if t.onFrame != nil {
		t.onFrame(frame)
	}
}

func (t *Transport) record(f *kettler.Frame, err error, validationErrors []kettler.ValidationError) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.stats.Update(f, err, validationErrors)
}

func (t *Transport) currentPort() Port {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.port
}

func (t *Transport) closePort() {
	t.mu.Lock()
	port := t.port
	t.port = nil
	t.mu.Unlock()

	t.session.SetConnected(false)
	if port != nil {
		if err := port.Close(); err != nil {
			t.log.WithError(err).Debug("Close error")
		}
	}
}
