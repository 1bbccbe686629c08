package certgen

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/net/idna"
)

// hostProfile accepts plain DNS names only (letters, digits, hyphens, dots).
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(true),
	idna.VerifyDNSLength(true),
)

// Error reports that certificate material could not be produced.
type Error struct {
	Host string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("certgen: %s for %q: %v", e.Op, e.Host, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Generate creates a self-signed certificate for hostname and returns the
// DER-encoded certificate and its DER-encoded (PKCS#8) private key.
func Generate(hostname string) (certDER, keyDER []byte, err error) {
	name, err := hostProfile.ToASCII(hostname)
	if err != nil || name == "" {
		if err == nil {
			err = errors.New("empty hostname")
		}
		return nil, nil, &Error{Host: hostname, Op: "validate hostname", Err: err}
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, &Error{Host: hostname, Op: "generate key", Err: err}
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, nil, &Error{Host: hostname, Op: "generate serial", Err: err}
	}

	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: name,
		},
		NotBefore:             now.Add(-1 * time.Minute),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{name},
	}
	certDER, err = x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, pub, priv)
	if err != nil {
		return nil, nil, &Error{Host: hostname, Op: "create certificate", Err: err}
	}
	keyDER, err = x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, &Error{Host: hostname, Op: "encode private key", Err: err}
	}
	return certDER, keyDER, nil
}

// KeyPair loads a DER certificate and DER private key into a tls.Certificate.
// It fails if either blob is malformed or the key does not match the
// certificate's public key.
func KeyPair(certDER, keyDER []byte) (tls.Certificate, error) {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return tls.X509KeyPair(certPEM, keyPEM)
}
