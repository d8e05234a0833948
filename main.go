package main

import (
	"context"
	"time"

	"eusama-go/bus"
	"eusama-go/services/config"
	"eusama-go/services/heartbeat"
	"eusama-go/services/stand"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(bootDelay)
	println("[main] boot", device)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, device)

	b := bus.NewBus(8)

	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	for {
		if err := stand.Run(ctx, b.NewConnection("stand")); err != nil {
			println("[main] stand exited:", err.Error())
		}
		time.Sleep(time.Second)
	}
}
