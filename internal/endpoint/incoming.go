package endpoint

import (
	"context"
	"errors"
	"iter"
	"net"

	"github.com/quic-go/quic-go"
)

// Incoming yields connections initiated by peers of a server endpoint. It
// ends once the endpoint is closed, its driver stops, or Close is called.
type Incoming struct {
	ln     *quic.Listener
	driver *Driver
}

// Accept waits for the next inbound connection. It returns
// ErrEndpointClosed after the endpoint has shut down.
func (in *Incoming) Accept(ctx context.Context) (*quic.Conn, error) {
	c, err := in.ln.Accept(ctx)
	if err == nil {
		return c, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if in.driver.stopped() || isClosedErr(err) {
		return nil, ErrEndpointClosed
	}
	return nil, err
}

// All ranges over inbound connections until Accept fails.
func (in *Incoming) All(ctx context.Context) iter.Seq[*quic.Conn] {
	return func(yield func(*quic.Conn) bool) {
		for {
			c, err := in.Accept(ctx)
			if err != nil {
				return
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Addr returns the address the server is listening on.
func (in *Incoming) Addr() net.Addr { return in.ln.Addr() }

// Close stops accepting new connections. The socket stays bound until the
// driver stops.
func (in *Incoming) Close() error { return in.ln.Close() }

func isClosedErr(err error) bool {
	return errors.Is(err, quic.ErrServerClosed) ||
		errors.Is(err, quic.ErrTransportClosed) ||
		errors.Is(err, net.ErrClosed)
}
