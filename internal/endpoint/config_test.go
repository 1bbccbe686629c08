package endpoint

import (
	"errors"
	"strings"
	"testing"

	"quicdemo/internal/certgen"
)

func generateAnchors(t *testing.T, n int) [][]byte {
	t.Helper()
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		der, _, err := certgen.Generate("localhost")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		out = append(out, der)
	}
	return out
}

func TestNewClientConfig_TrustStoreSize(t *testing.T) {
	anchors := generateAnchors(t, 3)
	// Duplicates are kept as separate entries.
	anchors = append(anchors, anchors[0])

	cfg, err := NewClientConfig(anchors)
	if err != nil {
		t.Fatalf("NewClientConfig: %v", err)
	}
	if got := cfg.TrustAnchors(); got != len(anchors) {
		t.Fatalf("trust anchors=%d want %d", got, len(anchors))
	}
	tc := cfg.TLSConfig()
	if tc.RootCAs == nil {
		t.Fatalf("expected custom root pool")
	}
	if len(tc.NextProtos) != 1 || tc.NextProtos[0] != ALPN {
		t.Fatalf("next protos=%v want [%s]", tc.NextProtos, ALPN)
	}
}

func TestNewClientConfig_Empty(t *testing.T) {
	cfg, err := NewClientConfig(nil)
	if err != nil {
		t.Fatalf("NewClientConfig: %v", err)
	}
	if cfg.TrustAnchors() != 0 {
		t.Fatalf("trust anchors=%d want 0", cfg.TrustAnchors())
	}
	if cfg.TLSConfig().RootCAs != nil {
		t.Fatalf("expected system roots (nil RootCAs) for empty anchors")
	}
}

func TestNewClientConfig_ParseErrorIdentifiesEntry(t *testing.T) {
	anchors := generateAnchors(t, 4)
	anchors[2] = []byte("definitely not DER")

	cfg, err := NewClientConfig(anchors)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg != nil {
		t.Fatalf("expected no configuration on failure, got %+v", cfg)
	}
	if !errors.Is(err, ErrCertificateParse) {
		t.Fatalf("err=%v want certificate parse kind", err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("err=%T want *Error", err)
	}
	if e.Index != 2 {
		t.Fatalf("index=%d want 2", e.Index)
	}
	if e.Unwrap() == nil {
		t.Fatalf("expected underlying parse error")
	}
	if !strings.Contains(err.Error(), "trust anchor 2") {
		t.Fatalf("message %q does not name the entry", err.Error())
	}
}

func TestNewClientConfig_CopiesInput(t *testing.T) {
	anchors := generateAnchors(t, 1)
	cfg, err := NewClientConfig(anchors)
	if err != nil {
		t.Fatalf("NewClientConfig: %v", err)
	}
	want := string(cfg.anchors[0].Raw)
	for i := range anchors[0] {
		anchors[0][i] = 0
	}
	if string(cfg.anchors[0].Raw) != want {
		t.Fatalf("configuration aliases caller's trust anchor bytes")
	}
}

func TestNewServerConfig(t *testing.T) {
	cfg, certDER, err := NewServerConfig()
	if err != nil {
		t.Fatalf("NewServerConfig: %v", err)
	}
	if got := cfg.MaxIncomingUniStreams(); got != 0 {
		t.Fatalf("uni stream limit=%d want 0", got)
	}
	chain := cfg.Certificates()
	if len(chain) != 1 {
		t.Fatalf("chain len=%d want 1", len(chain))
	}
	if string(chain[0]) != string(certDER) {
		t.Fatalf("returned certificate differs from the served leaf")
	}
	if len(cfg.tls.NextProtos) != 1 || cfg.tls.NextProtos[0] != ALPN {
		t.Fatalf("next protos=%v want [%s]", cfg.tls.NextProtos, ALPN)
	}

	// The returned bytes belong to the caller.
	certDER[0] ^= 0xff
	if string(cfg.Certificates()[0]) == string(certDER) {
		t.Fatalf("returned certificate aliases the configuration")
	}
}

func TestNewServerConfig_RegistrationErrors(t *testing.T) {
	certDER, keyDER, err := certgen.Generate("localhost")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, otherKey, err := certgen.Generate("localhost")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	cases := map[string][]byte{
		"malformed key":  keyDER[:len(keyDER)/2],
		"mismatched key": otherKey,
	}
	for name, key := range cases {
		cfg, err := newServerConfig(certDER, key)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if cfg != nil {
			t.Fatalf("%s: expected no configuration", name)
		}
		if !errors.Is(err, ErrCertificateRegistration) {
			t.Fatalf("%s: err=%v want registration kind", name, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	err := error(&Error{Kind: KindBind, Index: -1, Addr: "127.0.0.1:1", Err: errors.New("boom")})
	if !errors.Is(err, ErrBind) {
		t.Fatalf("expected bind kind to match")
	}
	if errors.Is(err, ErrAddressResolution) {
		t.Fatalf("bind error must not match address resolution")
	}
	if got := err.Error(); got != "endpoint: bind 127.0.0.1:1: boom" {
		t.Fatalf("message=%q", got)
	}
}

func TestNewServerConfig_GenerationError(t *testing.T) {
	orig := generate
	defer func() { generate = orig }()

	cause := errors.New("entropy exhausted")
	generate = func(string) ([]byte, []byte, error) { return nil, nil, cause }

	cfg, certDER, err := NewServerConfig()
	if cfg != nil || certDER != nil {
		t.Fatalf("expected no configuration or certificate on failure")
	}
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err=%v want generation kind", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("err=%v does not wrap the cause", err)
	}
	if _, _, _, err := MakeServerEndpoint("127.0.0.1:0"); !errors.Is(err, ErrGeneration) {
		t.Fatalf("MakeServerEndpoint: err=%v want generation kind", err)
	}
}
