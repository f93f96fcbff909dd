// Command chg is a host-only inspection/control CLI over a simulated
// charger core, the same role cmd/boardtest played for the HAL core:
// a small sequencing/inspection harness runnable on a laptop instead of
// real hardware.
package main

import (
	"fmt"
	"os"

	"github.com/pazzk-labs/evse-core/charger"
	"github.com/pazzk-labs/evse-core/connector"
	"github.com/pazzk-labs/evse-core/metering"
	"github.com/pazzk-labs/evse-core/pilot"
	"github.com/pazzk-labs/evse-core/simhw"
	"github.com/pazzk-labs/evse-core/x/timex"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	pwm := &simhw.PWM{}
	relay := &simhw.Relay{}
	cp := &simhw.CP{Level: pilot.CPLevel12V}
	p, err := pilot.New(pwm, relay, cp)
	if err != nil {
		fatal(err)
	}
	meter, err := metering.New(&simhw.Meter{}, &simhw.MemStore{})
	if err != nil {
		fatal(err)
	}
	conn, err := connector.New(connector.Params{Name: "connector-1", MaxCurrentA: 32}, p, nil, meter)
	if err != nil {
		fatal(err)
	}
	c := charger.New(64)
	if _, err := c.Attach(conn); err != nil {
		fatal(err)
	}
	if err := conn.Enable(); err != nil {
		fatal(err)
	}

	switch os.Args[1] {
	case "show":
		runShow(c, conn, p)
	case "set":
		runSet(c, conn, p, cp, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func runShow(c *charger.Charger, conn *connector.Connector, p *pilot.Pilot) {
	if err := c.Process(timex.NowMs()); err != nil {
		fatal(err)
	}
	printStatus(conn, p)
}

func runSet(c *charger.Charger, conn *connector.Connector, p *pilot.Pilot, cp *simhw.CP, args []string) {
	if len(args) < 2 || args[0] != "pilot" {
		usage()
		os.Exit(2)
	}
	level, err := parsePilotLetter(args[1])
	if err != nil {
		fatal(err)
	}
	cp.Level = level
	if err := c.Process(timex.NowMs()); err != nil {
		fatal(err)
	}
	printStatus(conn, p)
}

func parsePilotLetter(s string) (pilot.CPLevel, error) {
	switch s {
	case "A":
		return pilot.CPLevel12V, nil
	case "B":
		return pilot.CPLevel9V, nil
	case "C":
		return pilot.CPLevel6V, nil
	case "D":
		return pilot.CPLevel3V, nil
	case "E":
		return pilot.CPLevelUnstable, nil
	case "F":
		return pilot.CPLevelNeg12V, nil
	default:
		return 0, fmt.Errorf("unknown pilot state %q (want A, B, C, D, E, or F)", s)
	}
}

func printStatus(conn *connector.Connector, p *pilot.Pilot) {
	fmt.Printf("connector=%s state=%s contactor_closed=%v duty_permille=%d\n",
		conn.Name(), conn.State(), p.ContactorClosed(), p.DutyPermille())
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chg show | chg set pilot {A|B|C|D|E|F}")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "chg:", err)
	os.Exit(1)
}
