// Package runtime is the tick-loop driver: it calls charger.Process on
// a schedule, the same ticker-plus-config-subscription shape the
// teacher's services/heartbeat used for its own periodic loop, except
// here the interval also doubles as the scheduling budget for the
// single-threaded charger tick (no goroutine ever mutates connector
// state concurrently with Process).
package runtime

import (
	"context"
	"time"

	"github.com/pazzk-labs/evse-core/bus"
	"github.com/pazzk-labs/evse-core/charger"
	"github.com/pazzk-labs/evse-core/x/timex"
)

var topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
var topicChargerTick = bus.Topic{"charger", "tick"}

// Runner drives one *charger.Charger from a ticker, with its period
// adjustable at runtime via a "config/heartbeat" retained/published
// message carrying {"interval_ms": N}.
type Runner struct {
	Charger        *charger.Charger
	DefaultPeriod  time.Duration
}

// New builds a Runner with the given default tick period.
func New(c *charger.Charger, defaultPeriodMs int) *Runner {
	if defaultPeriodMs <= 0 {
		defaultPeriodMs = 100
	}
	return &Runner{Charger: c, DefaultPeriod: time.Duration(defaultPeriodMs) * time.Millisecond}
}

// Start launches the tick loop in a goroutine and returns immediately.
// Every call into r.Charger from the loop happens on that one
// goroutine — callers must not call Charger.Process themselves while
// the runner is active.
func (r *Runner) Start(ctx context.Context, conn *bus.Connection) {
	go r.loop(ctx, conn)
}

func (r *Runner) loop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(r.DefaultPeriod)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			now := timex.NowMs()
			if err := r.Charger.Process(now); err != nil {
				continue
			}
			conn.Publish(&bus.Message{Topic: topicChargerTick, Payload: now})
		case msg := <-cfgSub.Channel():
			if msg == nil {
				continue
			}
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval_ms"]; ok {
					if ms, ok := iv.(float64); ok && ms > 0 {
						tick.Reset(time.Duration(ms) * time.Millisecond)
					}
				}
			}
		}
	}
}
