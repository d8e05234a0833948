package heartbeat

import (
	"context"
	"time"

	"eusama-go/bus"
	"eusama-go/types"
	"eusama-go/x/util"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicStandState      = bus.T("stand", "state")
)

const defaultInterval = time.Second

// Service prints a periodic liveness line with the latest stand state.
type Service struct {
	last    types.StandState
	haveAny bool
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	stateSub := conn.Subscribe(topicStandState)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case t := <-tick.C:
			s.beat(t)
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.StandState); ok {
				s.last, s.haveAny = st, true
			}
		case msg := <-cfgSub.Channel():
			if d, ok := interval(msg.Payload); ok {
				tick.Reset(d)
				println("[heartbeat] interval set to", int(d/time.Second), "s")
			} else {
				println("[heartbeat] ignoring bad config")
			}
		}
	}
}

func (s *Service) beat(t time.Time) {
	if !s.haveAny {
		println("[heartbeat]", t.Format("15:04:05"), "waiting for stand")
		return
	}
	st := &s.last
	println("[heartbeat]", t.Format("15:04:05"),
		"t10ms", st.T10ms,
		"fail", st.LeftFail, st.RightFail,
		"motors", st.Motors,
		"sent", st.Sent, "send_failed", st.SendFailed,
		"dropped", st.FramesDropped,
		"overruns", st.FastOverruns, st.SlowOverruns)
}

// interval decodes a heartbeat config payload.
func interval(payload any) (time.Duration, bool) {
	var c types.HeartbeatConfig
	if err := util.DecodeJSON(payload, &c); err != nil || c.IntervalS <= 0 {
		return 0, false
	}
	return time.Duration(c.IntervalS) * time.Second, true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
