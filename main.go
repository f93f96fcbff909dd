package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/pazzk-labs/evse-core/bus"
	"github.com/pazzk-labs/evse-core/charger"
	"github.com/pazzk-labs/evse-core/config"
	"github.com/pazzk-labs/evse-core/connector"
	"github.com/pazzk-labs/evse-core/connector/session"
	"github.com/pazzk-labs/evse-core/metering"
	"github.com/pazzk-labs/evse-core/persistence"
	"github.com/pazzk-labs/evse-core/pilot"
	"github.com/pazzk-labs/evse-core/runtime"
	"github.com/pazzk-labs/evse-core/safety"
	"github.com/pazzk-labs/evse-core/session/bridge"
	"github.com/pazzk-labs/evse-core/simhw"
)

// main is the host demo wiring: an embedded board build replaces simhw's
// PWM/Relay/CPReader/Meter with real HLW8112/GPIO/PWM handles but leaves
// everything from config.Load down unchanged.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log.Println("[main] loading config …")
	cfg, err := config.Load("default")
	if err != nil {
		log.Fatalf("[main] config.Load: %v", err)
	}

	b := bus.NewBus(4)
	sysConn := b.NewConnection("system")
	bridgeConn := b.NewConnection("bridge")

	if err := config.PublishRetained(sysConn, "default"); err != nil {
		log.Fatalf("[main] config.PublishRetained: %v", err)
	}

	sup := safety.New()
	freq := safety.NewFrequencyEntry("line-frequency", cfg.Safety.NominalHz, cfg.Safety.ToleranceHz)
	sup.AddAndEnable(freq)

	c := charger.New(256)

	for _, cc := range cfg.Connectors {
		p, err := pilot.New(&simhw.PWM{}, &simhw.Relay{}, &simhw.CP{Level: pilot.CPLevel12V})
		if err != nil {
			log.Fatalf("[main] pilot.New(%s): %v", cc.Name, err)
		}

		store := persistence.NewEnergyStore("/var/lib/evse-core", cc.Name)
		meter, err := metering.New(&simhw.Meter{}, store)
		if err != nil {
			log.Fatalf("[main] metering.New(%s): %v", cc.Name, err)
		}

		base, err := connector.New(connector.Params{
			ID:              cc.ID,
			Name:            cc.Name,
			MaxCurrentA:     cc.MaxCurrentA,
			SafetyEntryName: "line-frequency",
		}, p, sup, meter)
		if err != nil {
			log.Fatalf("[main] connector.New(%s): %v", cc.Name, err)
		}

		sess, err := session.New(base)
		if err != nil {
			log.Fatalf("[main] session.New(%s): %v", cc.Name, err)
		}
		if err := sess.Enable(); err != nil {
			log.Fatalf("[main] session.Enable(%s): %v", cc.Name, err)
		}
		if _, err := c.Attach(sess); err != nil {
			log.Fatalf("[main] charger.Attach(%s): %v", cc.Name, err)
		}
	}

	log.Println("[main] starting tick runner …")
	r := runtime.New(c, cfg.Heartbeat.IntervalMs)
	r.Start(ctx, sysConn)

	log.Println("[main] starting session bridge …")
	go bridge.Start(ctx, bridgeConn, c)

	<-ctx.Done()
	log.Println("[main] shutting down")
}
