package endpoint

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/quic-go/quic-go"

	"quicdemo/internal/certgen"
)

// ALPN is the application protocol advertised by both roles.
const ALPN = "hq-24"

// generate produces the server certificate and key.
var generate = certgen.Generate

// ServerHostname is the DNS name the server certificate is issued for.
const ServerHostname = "localhost"

// ClientConfig is an immutable client-side transport configuration. It trusts
// exactly the certificate authorities it was built from.
type ClientConfig struct {
	tls     *tls.Config
	quic    *quic.Config
	anchors []*x509.Certificate
}

// NewClientConfig parses each DER trust anchor and registers it as a root the
// client accepts when verifying a server. Parsing stops at the first
// malformed entry. An empty list leaves the system roots in effect.
func NewClientConfig(trustAnchors [][]byte) (*ClientConfig, error) {
	anchors := make([]*x509.Certificate, 0, len(trustAnchors))
	var pool *x509.CertPool
	for i, der := range trustAnchors {
		// ParseCertificate keeps a reference to der; copy so the caller may reuse it.
		cert, err := x509.ParseCertificate(append([]byte(nil), der...))
		if err != nil {
			return nil, &Error{Kind: KindCertificateParse, Index: i, Err: err}
		}
		if pool == nil {
			pool = x509.NewCertPool()
		}
		pool.AddCert(cert)
		anchors = append(anchors, cert)
	}

	return &ClientConfig{
		tls: &tls.Config{
			RootCAs:    pool,
			NextProtos: []string{ALPN},
			MinVersion: tls.VersionTLS13,
		},
		quic:    &quic.Config{},
		anchors: anchors,
	}, nil
}

// TrustAnchors reports how many authorities were registered.
func (c *ClientConfig) TrustAnchors() int { return len(c.anchors) }

// TLSConfig returns a copy of the TLS settings used for dialing.
func (c *ClientConfig) TLSConfig() *tls.Config { return c.tls.Clone() }

func (c *ClientConfig) tlsFor(serverName string) *tls.Config {
	t := c.tls.Clone()
	t.ServerName = serverName
	return t
}

// ServerConfig is an immutable server-side transport configuration backed by
// a single self-signed certificate.
type ServerConfig struct {
	tls  *tls.Config
	quic *quic.Config
}

// NewServerConfig generates a self-signed certificate for ServerHostname and
// builds a server configuration that serves it. The certificate DER is
// returned so it can be handed to clients as a trust anchor.
func NewServerConfig() (*ServerConfig, []byte, error) {
	certDER, keyDER, err := generate(ServerHostname)
	if err != nil {
		return nil, nil, newError(KindGeneration, err)
	}
	cfg, err := newServerConfig(certDER, keyDER)
	if err != nil {
		return nil, nil, err
	}
	return cfg, append([]byte(nil), certDER...), nil
}

func newServerConfig(certDER, keyDER []byte) (*ServerConfig, error) {
	pair, err := certgen.KeyPair(certDER, keyDER)
	if err != nil {
		return nil, newError(KindCertificateRegistration, err)
	}
	return &ServerConfig{
		tls: &tls.Config{
			Certificates: []tls.Certificate{pair},
			NextProtos:   []string{ALPN},
			MinVersion:   tls.VersionTLS13,
		},
		quic: &quic.Config{
			// Negative disables peer-initiated unidirectional streams.
			MaxIncomingUniStreams: -1,
		},
	}, nil
}

// MaxIncomingUniStreams reports the effective unidirectional stream limit
// peers are granted.
func (c *ServerConfig) MaxIncomingUniStreams() int64 {
	if c.quic.MaxIncomingUniStreams < 0 {
		return 0
	}
	return c.quic.MaxIncomingUniStreams
}

// Certificates returns the DER chain served by this configuration.
func (c *ServerConfig) Certificates() [][]byte {
	var out [][]byte
	for _, pair := range c.tls.Certificates {
		for _, der := range pair.Certificate {
			out = append(out, append([]byte(nil), der...))
		}
	}
	return out
}
