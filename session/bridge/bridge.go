// Package bridge forwards charger events upward over a transport link —
// UART by default, via the teacher's own tinygo-uartx dependency — and
// routes inbound remote-start/stop/reservation commands down into the
// session-governed connectors. It keeps the teacher's services/bridge
// shape (config-driven transport, framed protocol, backoff-supervised
// link, state published retained) repurposed from a generic bus-relay
// link into a charger-event/command channel.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pazzk-labs/evse-core/bus"
	"github.com/pazzk-labs/evse-core/charger"
	"github.com/pazzk-labs/evse-core/connector/session"
	"github.com/pazzk-labs/evse-core/errcode"
)

// Config is the JSON-encoded configuration expected on "config/bridge".
type Config struct {
	Transport TransportConfig `json:"transport"`
}

type TransportConfig struct {
	Type string      `json:"type"` // "uart" (built in) or registered via RegisterTransport
	UART *UARTConfig `json:"uart,omitempty"`
}

// UARTConfig carries enough information for an injected dialler (backed
// by github.com/jangala-dev/tinygo-uartx on-target) to open the link.
type UARTConfig struct {
	Baud           int `json:"baud"`
	RxPin          int `json:"rx_pin"`
	TxPin          int `json:"tx_pin"`
	ReadTimeoutMS  int `json:"read_timeout_ms,omitempty"`
	WriteTimeoutMS int `json:"write_timeout_ms,omitempty"`
}

// Service supervises one link and forwards between it and a charger.
type Service struct {
	conn       *bus.Connection
	charger    *charger.Charger
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
}

// Start subscribes to "config/bridge" and supervises a link once
// configured. It blocks until ctx is cancelled.
func Start(ctx context.Context, conn *bus.Connection, c *charger.Charger) {
	s := &Service{conn: conn, charger: c, stateTopic: bus.Topic{"bridge", "state"}}
	s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "bridge"})
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()
	go s.runLink(ctx, cfg)
}

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.handleLink(ctx, rwc); err != nil {
			_ = rwc.Close()
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		return
	}
}

// handleLink forwards charger event records upward as framePub frames
// and applies inbound frameCmd frames as remote-start/stop/reservation
// commands against the named connector.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	sub, err := s.charger.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			if f.Type == frameCmd {
				s.applyCommand(f.Payload)
			}
		}
	}()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil
		case err := <-errCh:
			return err
		case <-tick.C:
			for _, rec := range sub.Drain() {
				payload, _ := json.Marshal(rec)
				if err := wr.WriteFrame(Frame{Type: framePub, Payload: payload}); err != nil {
					return err
				}
			}
		}
	}
}

// Command is the inbound payload carried by frameCmd frames.
type Command struct {
	Verb          string `json:"verb"` // "remote_start" | "remote_stop" | "reserve" | "cancel_reservation"
	ConnectorName string `json:"connector_name"`
	IDTag         string `json:"id_tag,omitempty"`
}

func (s *Service) applyCommand(payload []byte) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return
	}
	conn, err := s.charger.GetByName(cmd.ConnectorName)
	if err != nil {
		return
	}
	sess, ok := conn.(*session.Session)
	if !ok {
		return
	}
	switch cmd.Verb {
	case "remote_start":
		_ = sess.RemoteStart(cmd.IDTag)
	case "remote_stop":
		_ = sess.RemoteStop()
	case "reserve":
		_ = sess.Reserve(cmd.IDTag)
	case "cancel_reservation":
		sess.CancelReservation()
	}
}

// ---- transport registry (built-in: uart) ----

type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport allows external packages to add transports.
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "uart":
		return newUARTTransport(cfg)
	default:
		return nil, errcode.Wrap(errcode.Unsupported, "bridge.newTransport", cfg.Type, nil)
	}
}

// UARTDial is injected by platform code, backed by tinygo-uartx on an
// actual board; the host build leaves it nil and uart transport dials
// fail with errNoDial, which the supervisor treats as a retryable
// "degraded" state rather than a crash.
var UARTDial func(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error)

var errNoDial = errors.New("UARTDial not configured for this build")

type uartTransport struct{ cfg TransportConfig }

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, errcode.Wrap(errcode.Invalid, "bridge.newUARTTransport", "uart transport requires uart config", nil)
	}
	return &uartTransport{cfg: cfg}, nil
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoDial
	}
	return UARTDial(ctx, *u.cfg.UART)
}

func (u *uartTransport) String() string { return "uart" }

// ---- minimal length-prefixed framing ----

const (
	framePing  byte = 0x01
	framePub   byte = 0x10
	frameCmd   byte = 0x11
	frameClose byte = 0x7f
)

type Frame struct {
	Type    byte
	Payload []byte
}

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := hdr[0]
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: typ, Payload: buf}, nil
}

func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > 0xFFFF {
		return fmt.Errorf("frame too large: %d", len(f.Payload))
	}
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload) & 0xFF)}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}

// ---- utilities ----

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case []byte:
		return cfg, json.Unmarshal(v, &cfg)
	case string:
		return cfg, json.Unmarshal([]byte(v), &cfg)
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		return cfg, json.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,
		"status": status,
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(&bus.Message{Topic: s.stateTopic, Payload: payload, Retained: true})
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
