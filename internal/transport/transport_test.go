package transport

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dalbodeule/dgram-gate/internal/config"
	"github.com/dalbodeule/dgram-gate/internal/dtls"
)

const testTimeout = 5 * time.Second

// startTestServer binds a server on an ephemeral port and returns it together
// with a client config pointing at it. Secured servers use a self-signed
// localhost identity, which the client config trusts via Debug mode.
func startTestServer(t *testing.T, secure bool) (*Server, *config.Config) {
	t.Helper()

	serverCfg := &config.Config{
		Host:   "127.0.0.1",
		Port:   0,
		Secure: secure,
	}

	var (
		srv *Server
		err error
	)
	if secure {
		identity, idErr := dtls.NewSelfSignedLocalhostIdentity()
		if idErr != nil {
			t.Fatalf("create self-signed identity: %v", idErr)
		}
		srv, err = NewServerWithIdentity(serverCfg, identity, nil)
	} else {
		srv, err = NewServer(serverCfg, nil)
	}
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	port := srv.Addr().(*net.UDPAddr).Port
	clientCfg := &config.Config{
		Host:   "127.0.0.1",
		Port:   uint16(port),
		Secure: secure,
		Debug:  true, // trust the self-signed test certificate
	}
	return srv, clientCfg
}

func newTestClient(t *testing.T, cfg *config.Config) *Client {
	t.Helper()

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("start client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.SetTimeout(testTimeout); err != nil {
		t.Fatalf("set client timeout: %v", err)
	}
	return client
}

func TestCleartextEchoRoundTrip(t *testing.T) {
	srv, clientCfg := startTestServer(t, false)

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.HandleClient() }()

	client := newTestClient(t, clientCfg)

	payload := []byte("round-trip payload \x00\x01\x02")
	n, err := client.Send(payload)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("send: wrote %d bytes, want %d", n, len(payload))
	}

	buf := make([]byte, 1024)
	n, err = client.Receive(buf)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Fatalf("echo mismatch: got %q, want %q", buf[:n], payload)
	}

	if err := <-srvErr; err != nil {
		t.Fatalf("server interaction: %v", err)
	}
}

func TestClientServerHelloScenario(t *testing.T) {
	srv, clientCfg := startTestServer(t, false)

	srvErr := make(chan error, 1)
	go func() {
		stream, err := srv.Accept()
		if err != nil {
			srvErr <- err
			return
		}
		defer stream.Close()

		buf := make([]byte, 1024)
		n, err := stream.Read(buf)
		if err != nil {
			srvErr <- err
			return
		}
		if got := string(buf[:n]); got != "Hello, Server!" {
			srvErr <- fmt.Errorf("unexpected request payload %q", got)
			return
		}

		_, err = stream.Write([]byte("Hello, Client!"))
		srvErr <- err
	}()

	client := newTestClient(t, clientCfg)

	if _, err := client.Send([]byte("Hello, Server!")); err != nil {
		t.Fatalf("send: %v", err)
	}

	buf := make([]byte, 1024)
	n, err := client.Receive(buf)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got := string(buf[:n]); got != "Hello, Client!" {
		t.Fatalf("got reply %q, want %q", got, "Hello, Client!")
	}
	if n != len("Hello, Client!") {
		t.Fatalf("reply length %d, want %d", n, len("Hello, Client!"))
	}

	if err := <-srvErr; err != nil {
		t.Fatalf("server interaction: %v", err)
	}
}

func TestSecuredEchoRoundTrip(t *testing.T) {
	srv, clientCfg := startTestServer(t, true)

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.HandleClient() }()

	// NewClient only returns once the connector handshake has completed.
	client := newTestClient(t, clientCfg)

	payload := []byte("secured round-trip payload")
	if _, err := client.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	buf := make([]byte, 1024)
	n, err := client.Receive(buf)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Fatalf("echo mismatch: got %q, want %q", buf[:n], payload)
	}

	if err := <-srvErr; err != nil {
		t.Fatalf("server interaction: %v", err)
	}
}

func TestSecuredServerCertLoadFailure(t *testing.T) {
	cfg := &config.Config{
		Host:     "127.0.0.1",
		Port:     0,
		Secure:   true,
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	}

	// A bad identity must fail at construction, never during a later exchange.
	_, err := NewServer(cfg, nil)
	var certErr *CertLoadError
	if !errors.As(err, &certErr) {
		t.Fatalf("expected CertLoadError, got %v", err)
	}
}

func TestSecuredHandshakeVerifyFailure(t *testing.T) {
	srv, clientCfg := startTestServer(t, true)
	clientCfg.Debug = false // verification on: the self-signed chain must be rejected

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.HandleClient() }()

	_, err := NewClient(clientCfg, nil)
	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("expected HandshakeError, got %v", err)
	}

	if err := <-srvErr; err == nil {
		t.Fatal("server side must fail the interaction as well")
	}
}

func TestReceiveTimeout(t *testing.T) {
	// A silent peer: a bound socket that never answers.
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("bind sink socket: %v", err)
	}
	defer sink.Close()

	clientCfg := &config.Config{
		Host: "127.0.0.1",
		Port: uint16(sink.LocalAddr().(*net.UDPAddr).Port),
	}
	client, err := NewClient(clientCfg, nil)
	if err != nil {
		t.Fatalf("start client: %v", err)
	}
	defer client.Close()

	const timeout = 200 * time.Millisecond
	if err := client.SetTimeout(timeout); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if _, err := client.Send([]byte("ping")); err != nil {
		t.Fatalf("send: %v", err)
	}

	start := time.Now()
	_, err = client.Receive(make([]byte, 64))
	elapsed := time.Since(start)

	if !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed < timeout-50*time.Millisecond {
		t.Fatalf("receive returned well before the timeout elapsed: %v", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("receive blocked far past the configured timeout: %v", elapsed)
	}
}

func TestClosedClientOperations(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("bind sink socket: %v", err)
	}
	defer sink.Close()

	clientCfg := &config.Config{
		Host: "127.0.0.1",
		Port: uint16(sink.LocalAddr().(*net.UDPAddr).Port),
	}
	client, err := NewClient(clientCfg, nil)
	if err != nil {
		t.Fatalf("start client: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := client.Send([]byte("late")); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("Send after close: got %v, want ErrStreamClosed", err)
	}
	if _, err := client.Receive(make([]byte, 16)); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("Receive after close: got %v, want ErrStreamClosed", err)
	}
	if err := client.SetTimeout(time.Second); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("SetTimeout after close: got %v, want ErrStreamClosed", err)
	}
	if _, err := client.PeerAddr(); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("PeerAddr after close: got %v, want ErrStreamClosed", err)
	}
	if err := client.Close(); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("double close: got %v, want ErrStreamClosed", err)
	}
}

func TestClientPeerAddr(t *testing.T) {
	_, clientCfg := startTestServer(t, false)

	client := newTestClient(t, clientCfg)

	addr, err := client.PeerAddr()
	if err != nil {
		t.Fatalf("peer addr: %v", err)
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		t.Fatalf("peer addr type %T, want *net.UDPAddr", addr)
	}
	if !udpAddr.IP.Equal(net.ParseIP("127.0.0.1")) {
		t.Fatalf("peer IP %v, want 127.0.0.1", udpAddr.IP)
	}
	if udpAddr.Port != int(clientCfg.Port) {
		t.Fatalf("peer port %d, want %d", udpAddr.Port, clientCfg.Port)
	}
}
