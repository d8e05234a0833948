//go:build !rp2040

// Command stand-sim runs the stand engine against a simulated board on the
// host and plays the test-bench side of the CAN link.
//
//	go run ./services/stand/cmd/stand-sim
package main

import (
	"context"
	"fmt"
	"time"

	"eusama-go/bus"
	"eusama-go/canbus"
	"eusama-go/services/stand"
	"eusama-go/services/stand/internal/platform"
	"eusama-go/services/stand/internal/proto"
	"eusama-go/types"
)

func main() {
	fmt.Println("== EUSAMA stand: host simulation ==")

	cfg := types.StandConfig{
		OffsetSamples: 20,
		EEPROM:        types.EEPROMConfig{Addr: 0x50, PageSize: 32, Size: 4096},
	}.WithDefaults()

	board, sim, err := platform.OpenSim(cfg)
	if err != nil {
		fmt.Println("open:", err)
		return
	}
	defer board.Close()

	// Unloaded plate: every cell sits at a small zero offset.
	for ch := 0; ch < 8; ch++ {
		sim.SetLoad(ch, 40)
	}

	b := bus.NewBus(8)
	conn := b.NewConnection("stand")
	states := b.NewConnection("sim").Subscribe(bus.T("stand", "state"))

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	s := stand.New(cfg, board, conn)
	go func() {
		if err := s.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Println("stand:", err)
		}
	}()
	go watch(ctx, sim.Host)

	script := []struct {
		at   time.Duration
		what string
		do   func()
	}{
		{500 * time.Millisecond, "teach channel 0: 512 counts = 75 kg", func() {
			send(ctx, sim.Host, proto.ScaleCommand{Channel: 0, Slot: 0, ADCount: 512, Weight: 75}.Frame())
		}},
		{800 * time.Millisecond, "load left plate", func() {
			for ch := 0; ch < 4; ch++ {
				sim.SetLoad(ch, 552)
			}
		}},
		{1000 * time.Millisecond, "foreign 11-bit frame (ignored)", func() {
			send(ctx, sim.Host, canbus.MustFrame(0x123, []byte{0xDE, 0xAD}))
		}},
		{1200 * time.Millisecond, "both motors for 2 s", func() {
			send(ctx, sim.Host, proto.MotorCommand{Mask: 0x03, Seconds: 2}.Frame())
		}},
		{1500 * time.Millisecond, "lamps left+right", func() {
			send(ctx, sim.Host, proto.LampCommand{Bits: 0x05}.Frame())
		}},
		{1700 * time.Millisecond, "display 61/58", func() {
			send(ctx, sim.Host, proto.DisplayCommand{Diff: 3, Left: 61, Right: 58}.Frame())
		}},
		{2000 * time.Millisecond, "plate reaches top", func() { sim.Top.Set(true) }},
		{2300 * time.Millisecond, "plate leaves top", func() { sim.Top.Set(false) }},
	}

	start := time.Now()
	for _, step := range script {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(start.Add(step.at))):
		}
		fmt.Printf("[sim] %6s %s\n", time.Since(start).Round(time.Millisecond), step.what)
		step.do()
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("[sim] motors %v/%v lamps %v/%v/%v\n",
				sim.Motors[0].Get(), sim.Motors[1].Get(),
				sim.Lamps[0].Get(), sim.Lamps[1].Get(), sim.Lamps[2].Get())
			return
		case m := <-states.Channel():
			if st, ok := m.Payload.(types.StandState); ok {
				fmt.Printf("[state] t=%d w=%v fail=%v/%v motors=%#x/%ds sent=%d dropped=%d\n",
					st.T10ms, st.Weights, st.LeftFail, st.RightFail, st.Motors, st.MotorSecs, st.Sent, st.FramesDropped)
			}
		}
	}
}

func send(ctx context.Context, host canbus.Bus, f canbus.Frame) {
	if err := host.Send(ctx, f); err != nil {
		fmt.Println("[sim] send:", err)
	}
}

// watch prints every non-DMS frame the stand emits and a DMS count per second.
func watch(ctx context.Context, host canbus.Bus) {
	periodic := proto.Periodic()
	dms := 0
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	frames := make(chan canbus.Frame, 16)
	go func() {
		for {
			f, err := host.Receive(ctx)
			if err != nil {
				close(frames)
				return
			}
			frames <- f
		}
	}()
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			if periodic(f) {
				dms++
				continue
			}
			sub, _ := proto.SubOf(f.ID)
			fmt.Printf("[can] %-13s %s\n", sub, f)
		case <-tick.C:
			fmt.Printf("[can] %d DMS frames/s\n", dms)
			dms = 0
		}
	}
}
