package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/quic-go/quic-go"
)

// lookupNetIP resolves hostnames for bind and connect addresses.
var lookupNetIP = net.DefaultResolver.LookupNetIP

var errNoAddresses = errors.New("no addresses found")

// Endpoint is a live UDP-bound QUIC endpoint. The socket stays open until
// the endpoint is closed or its driver stops.
type Endpoint struct {
	driver *Driver
	client *ClientConfig
}

// MakeClientEndpoint builds a client configuration trusting trustAnchors and
// binds it to bindAddr. The endpoint only dials out; it never accepts
// connections.
func MakeClientEndpoint(bindAddr string, trustAnchors [][]byte) (*Endpoint, *Driver, error) {
	cfg, err := NewClientConfig(trustAnchors)
	if err != nil {
		return nil, nil, err
	}
	return BindClient(cfg, bindAddr)
}

// MakeServerEndpoint builds a server configuration with a fresh self-signed
// certificate and listens on bindAddr. It returns the driver, the stream of
// incoming connections and the server certificate in DER form.
func MakeServerEndpoint(bindAddr string) (*Driver, *Incoming, []byte, error) {
	cfg, certDER, err := NewServerConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	_, driver, incoming, err := BindServer(cfg, bindAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	return driver, incoming, certDER, nil
}

// BindClient binds a UDP socket at addr for outbound connections using cfg.
func BindClient(cfg *ClientConfig, addr string) (*Endpoint, *Driver, error) {
	d, err := bind("client", addr)
	if err != nil {
		return nil, nil, err
	}
	return &Endpoint{driver: d, client: cfg}, d, nil
}

// BindServer binds a UDP socket at addr and starts accepting connections
// with cfg.
func BindServer(cfg *ServerConfig, addr string) (*Endpoint, *Driver, *Incoming, error) {
	d, err := bind("server", addr)
	if err != nil {
		return nil, nil, nil, err
	}
	ln, err := d.tr.Listen(cfg.tls, cfg.quic)
	if err != nil {
		_ = d.Stop()
		return nil, nil, nil, &Error{Kind: KindBind, Index: -1, Addr: addr, Err: err}
	}
	return &Endpoint{driver: d}, d, &Incoming{ln: ln, driver: d}, nil
}

func bind(role, addr string) (*Driver, error) {
	udpAddr, err := resolveUDPAddr(context.Background(), addr)
	if err != nil {
		return nil, &Error{Kind: KindAddressResolution, Index: -1, Addr: addr, Err: err}
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, &Error{Kind: KindBind, Index: -1, Addr: udpAddr.String(), Err: err}
	}
	d := newDriver(role, conn)
	d.logger.Debug("endpoint: bound", "addr", conn.LocalAddr().String())
	return d, nil
}

// resolveUDPAddr resolves addr to a single UDP address. Hostnames that
// resolve to several addresses use the first one.
func resolveUDPAddr(ctx context.Context, addr string) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := net.LookupPort("udp", portStr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		return &net.UDPAddr{Port: port}, nil
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return net.UDPAddrFromAddrPort(netip.AddrPortFrom(ip, uint16(port))), nil
	}

	ips, err := lookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%s: %w", host, errNoAddresses)
	}
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(ips[0].Unmap(), uint16(port))), nil
}

// LocalAddr returns the bound socket address.
func (e *Endpoint) LocalAddr() net.Addr { return e.driver.conn.LocalAddr() }

// Driver returns the driver servicing this endpoint.
func (e *Endpoint) Driver() *Driver { return e.driver }

// Connect dials the server at addr, verifying its certificate against
// serverName and the endpoint's trust anchors.
func (e *Endpoint) Connect(ctx context.Context, addr, serverName string) (*quic.Conn, error) {
	if e.client == nil {
		return nil, ErrNoClientConfig
	}
	if e.driver.stopped() {
		return nil, ErrEndpointClosed
	}
	raddr, err := resolveUDPAddr(ctx, addr)
	if err != nil {
		return nil, &Error{Kind: KindAddressResolution, Index: -1, Addr: addr, Err: err}
	}
	c, err := e.driver.tr.Dial(ctx, raddr, e.client.tlsFor(serverName), e.client.quic)
	if err != nil {
		if e.driver.stopped() || isClosedErr(err) {
			return nil, ErrEndpointClosed
		}
		return nil, fmt.Errorf("endpoint: connect %s: %w", raddr, err)
	}
	return c, nil
}

// Close stops the endpoint's driver and releases the socket.
func (e *Endpoint) Close() error { return e.driver.Stop() }
