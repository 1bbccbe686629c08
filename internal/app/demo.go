package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"quicdemo/internal/config"
	"quicdemo/internal/endpoint"
	"quicdemo/internal/logging"
	"quicdemo/internal/telemetry"
)

type Options struct {
	// ConfigPath is the -config flag value; empty means auto-resolve.
	ConfigPath string
	// Verbose forces debug logging regardless of the configured level.
	Verbose bool
	// Provider overrides file-based loading; ConfigPath is ignored when set.
	Provider config.ConfigProvider
}

// Result summarises an echo run.
type Result struct {
	ServerAddr string
	ClientAddr string
	Rounds     int
	Metrics    telemetry.MetricsSnapshot
}

// Run resolves and loads the configuration, sets up logging and runs one
// echo session between a local server and client endpoint.
func Run(ctx context.Context, opts Options) error {
	provider := opts.Provider
	var (
		resolved config.ResolvedConfigPath
		created  bool
	)
	if provider == nil {
		var err error
		resolved, err = config.ResolveConfigPath(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		created, err = config.EnsureConfigFile(resolved.Path)
		if err != nil {
			return fmt.Errorf("ensure config file: %w", err)
		}
		provider = config.NewFileConfigProvider(resolved.Path)
	}

	cfg, err := provider.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logrt, err := logging.NewRuntime(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logrt.Close() }()
	if opts.Verbose {
		_ = logrt.SetLevel("debug")
	}
	slog.SetDefault(logrt.Logger())
	logger := slog.Default()
	if created {
		logger.Warn("config: created new config file", "path", resolved.Path, "source", resolved.Source)
	}

	res, err := RunEcho(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("quicdemo: finished",
		"server", res.ServerAddr,
		"client", res.ClientAddr,
		"rounds", res.Rounds,
		"streams", res.Metrics.Streams,
		"bytes_in", res.Metrics.BytesIngress,
		"bytes_out", res.Metrics.BytesEgress,
	)
	return nil
}

// RunEcho binds a server endpoint and a client endpoint trusting the
// server's certificate, then echoes cfg.Message over cfg.Rounds
// bidirectional streams on a single connection.
func RunEcho(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	serverDriver, incoming, certDER, err := endpoint.MakeServerEndpoint(cfg.ServerAddr)
	if err != nil {
		return Result{}, fmt.Errorf("server endpoint: %w", err)
	}
	defer serverDriver.Stop()

	client, clientDriver, err := endpoint.MakeClientEndpoint(cfg.ClientAddr, [][]byte{certDER})
	if err != nil {
		return Result{}, fmt.Errorf("client endpoint: %w", err)
	}
	defer clientDriver.Stop()

	res := Result{
		ServerAddr: incoming.Addr().String(),
		ClientAddr: client.LocalAddr().String(),
		Rounds:     cfg.Rounds,
	}
	dialAddr := reachableAddr(incoming.Addr(), client.LocalAddr())
	logger.Info("quicdemo: endpoints bound", "server", res.ServerAddr, "client", res.ClientAddr, "alpn", endpoint.ALPN)

	metrics := telemetry.NewMetricsCollector()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveEcho(gctx, incoming, metrics, logger)
	})
	g.Go(func() error {
		return runClient(gctx, client, dialAddr, cfg, logger)
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res.Metrics = metrics.Snapshot()
	return res, nil
}

// serveEcho accepts a single connection and echoes every bidirectional
// stream on it until the peer closes the connection.
func serveEcho(ctx context.Context, incoming *endpoint.Incoming, metrics *telemetry.MetricsCollector, logger *slog.Logger) error {
	conn, err := incoming.Accept(ctx)
	if err != nil {
		return fmt.Errorf("server: accept: %w", err)
	}
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()
	logger.Info("server: connection accepted",
		"remote", conn.RemoteAddr().String(),
		"alpn", conn.ConnectionState().TLS.NegotiatedProtocol,
	)

	for {
		st, err := conn.AcceptStream(ctx)
		if err != nil {
			if closedByPeer(err) {
				logger.Debug("server: connection closed by peer", "remote", conn.RemoteAddr().String())
				return nil
			}
			return fmt.Errorf("server: accept stream: %w", err)
		}
		n, err := io.Copy(st, st)
		if err != nil {
			st.CancelRead(1)
			st.CancelWrite(1)
			return fmt.Errorf("server: echo stream %d: %w", st.StreamID(), err)
		}
		metrics.StreamDone(n, n)
		if err := st.Close(); err != nil {
			return fmt.Errorf("server: close stream %d: %w", st.StreamID(), err)
		}
		logger.Debug("server: stream echoed", "stream", st.StreamID(), "bytes", n)
	}
}

func runClient(ctx context.Context, client *endpoint.Endpoint, serverAddr string, cfg *config.Config, logger *slog.Logger) error {
	conn, err := client.Connect(ctx, serverAddr, cfg.ServerName)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer func() { _ = conn.CloseWithError(0, "done") }()
	logger.Info("client: connected", "server", serverAddr, "server_name", cfg.ServerName)

	for i := 1; i <= cfg.Rounds; i++ {
		start := time.Now()
		st, err := conn.OpenStreamSync(ctx)
		if err != nil {
			return fmt.Errorf("client: open stream: %w", err)
		}
		if _, err := io.WriteString(st, cfg.Message); err != nil {
			return fmt.Errorf("client: write: %w", err)
		}
		if err := st.Close(); err != nil {
			return fmt.Errorf("client: close send side: %w", err)
		}
		resp, err := io.ReadAll(st)
		if err != nil {
			return fmt.Errorf("client: read: %w", err)
		}
		if string(resp) != cfg.Message {
			return fmt.Errorf("client: round %d: echo mismatch (%d bytes, want %d)", i, len(resp), len(cfg.Message))
		}
		logger.Info("client: echo", "round", i, "bytes", len(resp), "rtt", time.Since(start).String())
	}
	return nil
}

func closedByPeer(err error) bool {
	var appErr *quic.ApplicationError
	return errors.As(err, &appErr) && appErr.Remote && appErr.ErrorCode == 0
}

// reachableAddr returns the address the client should dial for a server
// bound at listen. A wildcard listen IP is replaced by the loopback address
// of the client socket's family; the port is kept.
func reachableAddr(listen, client net.Addr) string {
	la, ok := listen.(*net.UDPAddr)
	if !ok || (la.IP != nil && !la.IP.IsUnspecified()) {
		return listen.String()
	}
	loopback := net.IPv6loopback
	if ca, ok := client.(*net.UDPAddr); ok && ca.IP.To4() != nil {
		loopback = net.IPv4(127, 0, 0, 1)
	}
	return net.JoinHostPort(loopback.String(), strconv.Itoa(la.Port))
}
