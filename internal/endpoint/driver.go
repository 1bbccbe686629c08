package endpoint

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/quic-go/quic-go"
)

// Driver owns the I/O lifetime of an endpoint.
//
// quic-go services the socket on its own goroutines; the driver keeps the
// transport and socket alive until it is stopped, either explicitly or by
// the context passed to Run. Stopping is not graceful: open connections are
// abandoned, not drained.
type Driver struct {
	role   string
	tr     *quic.Transport
	conn   *net.UDPConn
	logger *slog.Logger

	stopOnce sync.Once
	done     chan struct{}
	err      error
}

func newDriver(role string, conn *net.UDPConn) *Driver {
	return &Driver{
		role:   role,
		tr:     &quic.Transport{Conn: conn},
		conn:   conn,
		logger: slog.Default().With("role", role),
		done:   make(chan struct{}),
	}
}

// Run blocks until ctx is done or the driver is stopped, then releases the
// socket. It returns ctx.Err() when the context ended the run.
func (d *Driver) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		_ = d.Stop()
		return ctx.Err()
	case <-d.done:
		return d.err
	}
}

// Stop closes the transport and its socket. It is safe to call more than
// once; later calls return the result of the first.
func (d *Driver) Stop() error {
	d.stopOnce.Do(func() {
		addr := d.conn.LocalAddr().String()
		err := d.tr.Close()
		// Transport.Close leaves a caller-supplied socket open.
		if cerr := d.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = errors.Join(err, cerr)
		}
		d.err = err
		close(d.done)
		d.logger.Debug("endpoint: stopped", "addr", addr, "err", err)
	})
	return d.err
}

// Done is closed once the driver has stopped.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Err returns the error from tearing down the transport, if any.
func (d *Driver) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

func (d *Driver) stopped() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}
