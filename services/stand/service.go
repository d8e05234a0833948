package stand

import (
	"context"

	"eusama-go/bus"
	"eusama-go/errcode"
	"eusama-go/services/stand/internal/platform"
	"eusama-go/types"
	"eusama-go/x/util"
)

var topicConfigStand = bus.T("config", "stand")

// Run waits for the retained stand configuration, opens the board and runs
// the engine until ctx is done.
func Run(ctx context.Context, conn *bus.Connection) error {
	sub := conn.Subscribe(topicConfigStand)
	defer conn.Unsubscribe(sub)

	var cfg types.StandConfig
	select {
	case <-ctx.Done():
		return ctx.Err()
	case msg, ok := <-sub.Channel():
		if !ok {
			return errcode.Closed
		}
		if err := util.DecodeJSON(msg.Payload, &cfg); err != nil {
			println("[stand] bad config:", err.Error())
			return errcode.Wrap(errcode.InvalidConfig, "stand.config", err)
		}
	}

	board, err := platform.Open(cfg)
	if err != nil {
		println("[stand] platform:", err.Error())
		return err
	}
	defer board.Close()

	println("[stand] running on", board.Name)
	return New(cfg, board, conn).Run(ctx)
}
