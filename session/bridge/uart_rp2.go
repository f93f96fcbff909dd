//go:build rp2040 || rp2350

package bridge

import (
	"context"
	"io"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

// uartLink adapts a tinygo-uartx UART into the io.ReadWriteCloser the
// framed reader/writer above expects. There is no hardware "close" for
// a board UART, so Close is a no-op — the link goes away when the
// caller stops reading/writing it.
type uartLink struct {
	ctx context.Context
	u   *uartx.UART
}

func (l *uartLink) Read(p []byte) (int, error)  { return l.u.RecvSomeContext(l.ctx, p) }
func (l *uartLink) Write(p []byte) (int, error) { return l.u.Write(p) }
func (l *uartLink) Close() error                { return nil }

func init() {
	UARTDial = func(ctx context.Context, cfg UARTConfig) (io.ReadWriteCloser, error) {
		u := uartx.UART0
		if err := u.Configure(uartx.UARTConfig{}); err != nil {
			return nil, err
		}
		u.SetBaudRate(uint32(cfg.Baud))
		return &uartLink{ctx: ctx, u: u}, nil
	}
}
