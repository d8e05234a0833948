// Package stand runs the shaker-plate measurement engine: it samples the
// load cells, converts them to weight, checks plausibility, serves host
// commands arriving over CAN and reports status frames.
package stand

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"eusama-go/bus"
	"eusama-go/canbus"
	"eusama-go/errcode"
	"eusama-go/services/stand/internal/actuator"
	"eusama-go/services/stand/internal/calib"
	"eusama-go/services/stand/internal/dispatch"
	"eusama-go/services/stand/internal/hw"
	"eusama-go/services/stand/internal/ledmux"
	"eusama-go/services/stand/internal/plaus"
	"eusama-go/services/stand/internal/proto"
	"eusama-go/services/stand/internal/publish"
	"eusama-go/services/stand/internal/sched"
	"eusama-go/types"
	"eusama-go/x/conv"
	"eusama-go/x/mathx"
	"eusama-go/x/timex"
	"eusama-go/x/util"
)

var topicState = bus.T("stand", "state")

type Stand struct {
	cfg   types.StandConfig
	board *hw.Board
	conn  *bus.Connection

	clock sched.Clock
	gate  sync.Locker
	table *calib.Table
	disp  *dispatch.Dispatcher
	act   *actuator.Supervisor
	pub   *publish.Publisher
	leds  *ledmux.Mux
	lanes *publish.ChanLanes // nil when lanes were injected
	can   canbus.Bus

	wake chan struct{}

	// Loop-owned.
	offsets      [8]uint16
	raw          [8]uint16
	comp         [8]uint16
	weights      [8]uint16
	leftFail     plaus.Result
	rightFail    plaus.Result
	readErrs     uint32
	storeFailing bool
	line         []byte
}

type Option func(*Stand)

// WithLanes replaces the channel lanes feeding the board's CAN bus.
func WithLanes(l publish.Lanes) Option {
	return func(s *Stand) {
		s.pub = publish.New(l)
		s.lanes = nil
	}
}

// New wires the components around board. conn may be nil, in which case
// no state is published on the bus.
func New(cfg types.StandConfig, board *hw.Board, conn *bus.Connection, opts ...Option) *Stand {
	cfg = cfg.WithDefaults()
	if board == nil {
		board = &hw.Board{}
	}
	gate := board.Gate
	if gate == nil {
		gate = &sync.Mutex{}
	}
	s := &Stand{
		cfg:   cfg,
		board: board,
		conn:  conn,
		gate:  gate,
		table: calib.New(gate),
		act:   actuator.New(board.Outputs),
		leds:  ledmux.New(board.LEDs),
		wake:  make(chan struct{}, 1),
	}
	s.disp = dispatch.New(gate, s.table, s.act)

	s.can = board.CAN
	if s.can != nil && cfg.CAN.Trace {
		s.can = canbus.NewLoggedBus(s.can, slog.Default(), slog.LevelInfo, canbus.LogAll, proto.TraceFilter(cfg.CAN.TraceDMS))
	}
	s.lanes = publish.NewChanLanes(timex.Ms(cfg.LaneTimeoutMs, 5*time.Millisecond))
	s.pub = publish.New(s.lanes)

	for _, o := range opts {
		o(s)
	}
	return s
}

// Clock exposes the tick flags so a platform can drive them from its own
// timer interrupts.
func (s *Stand) Clock() *sched.Clock { return &s.clock }

// OnFrame applies an inbound frame. Safe to call from the receive worker.
func (s *Stand) OnFrame(f canbus.Frame) {
	s.disp.Handle(f)
}

// Start loads the calibration table and measures the zero-load offsets.
func (s *Stand) Start(ctx context.Context) error {
	s.loadTable()
	return s.zero(ctx)
}

func (s *Stand) loadTable() {
	s.leds.Set(ledmux.Startup)
	if s.board.Store != nil {
		if err := s.table.Load(s.board.Store); err != nil {
			println("[stand] calibration load failed, using raw counts:", err.Error())
		} else {
			println("[stand] calibration table loaded")
		}
	}
	s.leds.Set(0)
}

// zero lets the plate settle and averages the offsets.
func (s *Stand) zero(ctx context.Context) error {
	if err := s.settle(ctx); err != nil {
		return err
	}
	if err := s.CalibrateOffsets(ctx); err != nil {
		return err
	}
	s.leds.Set(ledmux.Measuring)
	println("[stand] measuring")
	return nil
}

func (s *Stand) fastPeriod() time.Duration {
	return timex.Us(s.cfg.FastPeriodUs, time.Millisecond)
}

// settle waits for the load cells to come to rest, keeping the LEDs scanned.
func (s *Stand) settle(ctx context.Context) error {
	if s.cfg.SettleMs <= 0 {
		return nil
	}
	println("[stand] settling for", s.cfg.SettleMs, "ms")
	deadline := time.NewTimer(time.Duration(s.cfg.SettleMs) * time.Millisecond)
	defer deadline.Stop()
	tick := time.NewTicker(s.fastPeriod())
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-tick.C:
			s.leds.Step()
		}
	}
}

// CalibrateOffsets averages OffsetSamples raw readings, one per fast
// period, and uses the mean as each channel's zero.
func (s *Stand) CalibrateOffsets(ctx context.Context) error {
	n := s.cfg.OffsetSamples
	if n <= 0 || s.board.Source == nil {
		return nil
	}
	var sums [8]uint32
	var raw [8]uint16
	tick := time.NewTicker(s.fastPeriod())
	defer tick.Stop()
	got := 0
	for i := 0; i < n; i++ {
		if err := s.board.Source.Read(&raw); err != nil {
			s.readErrs++
		} else {
			for ch, v := range raw {
				sums[ch] += uint32(v)
			}
			got++
		}
		s.leds.Step()
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	if got == 0 {
		return errcode.Wrap(errcode.Error, "stand.offsets", errors.New("no samples"))
	}
	for ch := range sums {
		s.offsets[ch] = uint16(sums[ch] / uint32(got))
	}
	println("[stand] offsets from", got, "samples")
	return nil
}

// Offsets returns the per-channel zero computed at startup.
func (s *Stand) Offsets() [8]uint16 { return s.offsets }

// Step runs one loop iteration: a pending calibration flush, then any
// pending 1 ms and 10 ms work.
func (s *Stand) Step() {
	s.flush()
	if s.clock.PollFast() {
		s.fastTick()
	}
	if s.clock.PollSlow() {
		s.slowTick()
	}
}

func (s *Stand) flush() {
	if s.board.Store == nil || !s.table.Dirty() {
		return
	}
	s.leds.Blank()
	wrote, err := s.table.FlushIfDirty(s.board.Store)
	switch {
	case err != nil && !s.storeFailing:
		s.storeFailing = true
		println("[calib] save failed, will retry:", err.Error())
	case wrote:
		if s.storeFailing {
			println("[calib] save recovered")
		}
		s.storeFailing = false
		println("[calib] table saved")
	}
}

func (s *Stand) fastTick() {
	if s.board.Source != nil {
		if err := s.board.Source.Read(&s.raw); err != nil {
			s.readErrs++
		}
	}
	for ch := range s.raw {
		s.comp[ch] = mathx.SubClampU16(s.raw[ch], s.offsets[ch])
	}
	s.table.Weights(&s.comp, &s.weights)
	s.leftFail, s.rightFail = plaus.Sides(&s.weights)
	s.leds.Set(ledmux.Pattern(s.leftFail == plaus.Fail, s.rightFail == plaus.Fail))
	s.leds.Step()
}

func (s *Stand) slowTick() {
	now := s.clock.Now10ms()
	_ = s.pub.Weights(&s.weights)
	s.act.Tick10ms()

	if s.board.Top != nil && s.act.SampleTopPosition(s.board.Top.Get()) {
		_ = s.pub.Top(now)
	}

	if s.clock.Phase10() == 0 {
		mask, secs := s.act.MotorSummary()
		_ = s.pub.Status(
			proto.MotorStatusMsg{Running: mask, Seconds: secs},
			s.systemStatus(mask),
		)
		s.act.ClearTopLatch()
	}

	if s.clock.Phase100() == 0 {
		s.report()
	}
}

// report publishes the state snapshot and mirrors it to the console.
func (s *Stand) report() {
	if s.conn == nil && s.board.Console == nil {
		return
	}
	st := s.Snapshot()
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(topicState, st, true))
	}
	if s.board.Console != nil {
		s.line = appendState(s.line[:0], &st)
		_, _ = s.board.Console.Write(s.line)
	}
}

// appendState renders "t=<t10ms> w=<w0>,...,<w7> L=<ok|FAIL> R=<ok|FAIL>
// m=<mask>/<secs>s lamp=<lamp> drop=<n>\n".
func appendState(b []byte, st *types.StandState) []byte {
	b = append(b, "t="...)
	b = conv.AppendUint(b, uint64(st.T10ms))
	b = append(b, " w="...)
	for i, w := range st.Weights {
		if i > 0 {
			b = append(b, ',')
		}
		b = conv.AppendUint(b, uint64(w))
	}
	b = append(b, " L="...)
	b = append(b, okFail(st.LeftFail)...)
	b = append(b, " R="...)
	b = append(b, okFail(st.RightFail)...)
	b = append(b, " m="...)
	b = conv.AppendUint(b, uint64(st.Motors))
	b = append(b, '/')
	b = conv.AppendUint(b, uint64(st.MotorSecs))
	b = append(b, "s lamp="...)
	b = conv.AppendUint(b, uint64(st.Lamp))
	b = append(b, " drop="...)
	b = conv.AppendUint(b, uint64(st.FramesDropped))
	return append(b, '\n')
}

func okFail(fail bool) string {
	if fail {
		return "FAIL"
	}
	return "ok"
}

func (s *Stand) systemStatus(motors uint8) proto.SystemStatusMsg {
	var sumL, sumR uint16
	for i := 0; i < 4; i++ {
		sumL += s.weights[i]
		sumR += s.weights[i+4]
	}
	flags := motors&(proto.FlagLeftMotor|proto.FlagRightMotor) |
		util.Bit(s.act.TopLatched(), proto.FlagTop) |
		util.Bit(s.leftFail == plaus.Fail, proto.FlagLeftFail) |
		util.Bit(s.rightFail == plaus.Fail, proto.FlagRightFail)
	return proto.SystemStatusMsg{
		Flags:    flags,
		Lamp:     s.act.Lamp(),
		SumLeft:  sumL,
		SumRight: sumR,
	}
}

// Weights returns the latest calibrated weights.
func (s *Stand) Weights() [8]uint16 { return s.weights }

// Snapshot summarizes the engine for diagnostics.
func (s *Stand) Snapshot() types.StandState {
	mask, secs := s.act.MotorSummary()
	ds := s.disp.Stats()
	sent, failed := s.pub.Counts()
	fo, so := s.clock.Overruns()
	return types.StandState{
		T10ms:         s.clock.Now10ms(),
		Weights:       s.weights,
		Offsets:       s.offsets,
		LeftFail:      s.leftFail == plaus.Fail,
		RightFail:     s.rightFail == plaus.Fail,
		Motors:        mask,
		MotorSecs:     secs,
		Lamp:          s.act.Lamp(),
		Top:           s.act.TopLatched(),
		Dirty:         s.table.Dirty(),
		LEDs:          s.leds.Mask(),
		FramesApplied: ds.Applied,
		FramesDropped: ds.Dropped(),
		Sent:          sent,
		SendFailed:    failed,
		ReadErrors:    s.readErrs,
		FastOverruns:  fo,
		SlowOverruns:  so,
	}
}

// Listen feeds frames from the board's CAN bus into the dispatcher until
// ctx is done or the bus closes.
func (s *Stand) Listen(ctx context.Context) error {
	if s.can == nil {
		return errcode.Closed
	}
	for {
		f, err := s.can.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, canbus.ErrClosed) {
				return errcode.Closed
			}
			println("[stand] can receive:", err.Error())
			continue
		}
		s.OnFrame(f)
	}
}

// Run starts the engine and blocks until ctx is done. The lane pump and
// the receive worker start once the table is loaded, so commands are
// applied while the plate settles; the tick sources start after zeroing.
func (s *Stand) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.loadTable()

	if s.lanes != nil && s.can != nil {
		wg.Add(1)
		go func() { defer wg.Done(); s.lanes.Pump(ctx, s.can) }()
	}
	if s.can != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Listen(ctx); err != nil && ctx.Err() == nil {
				println("[stand] receive worker stopped:", err.Error())
			}
		}()
	}

	if err := s.zero(ctx); err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.clock.Run(ctx, s.fastPeriod(), timex.Ms(s.cfg.SlowPeriodMs, 10*time.Millisecond), s.wake)
	}()

	for {
		select {
		case <-ctx.Done():
			println("[stand] stopped")
			return ctx.Err()
		case <-s.wake:
			s.Step()
		}
	}
}
