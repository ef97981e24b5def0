package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	piondtls "github.com/pion/dtls/v3"
	"github.com/pion/transport/v3/udp"

	"github.com/dalbodeule/dgram-gate/internal/config"
	"github.com/dalbodeule/dgram-gate/internal/dtls"
	"github.com/dalbodeule/dgram-gate/internal/logging"
	"github.com/dalbodeule/dgram-gate/internal/observability"
)

// serverBufSize 는 한 상호작용에서 수신하는 데이터그램의 최대 크기입니다.
const serverBufSize = 4096

// Server 는 수동적으로 연결을 받는 쪽입니다. (ko)
// Server is the passive listener side of a datagram exchange. (en)
//
// 와일드카드 주소의 고정 포트에 리스닝 소켓 하나를 바인드하고,
// 들어오는 데이터그램을 발신지 주소 기준으로 demux 해 상호작용마다
// per-peer 스트림을 만듭니다. 하나의 리스닝 소켓을 clone 해서 돌려쓰는 방식은
// 서로 다른 클라이언트의 데이터그램이 진행 중인 핸드셰이크에 끼어들 수 있으므로
// 사용하지 않습니다.
//
// 보안 모드의 Acceptor 신원(인증서+키)은 생성 시 한 번 로드되어
// 여러 클라이언트 상호작용에 재사용됩니다.
type Server struct {
	ln               net.Listener
	secure           bool
	handshakeTimeout time.Duration
	logger           logging.Logger
}

// NewServer 는 설정된 포트의 와일드카드 주소에 리스닝 소켓을 바인드합니다.
//
// 보안 모드이면 cfg.CertFile/cfg.KeyFile 의 PEM 신원을 먼저 로드하며,
// 로드 실패 시 CertLoadError 를 반환하고 Server 는 생성되지 않습니다.
func NewServer(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if !cfg.Secure {
		return newServer(cfg, nil, logger)
	}

	identity, err := dtls.LoadIdentity(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, &CertLoadError{CertFile: cfg.CertFile, KeyFile: cfg.KeyFile, Err: err}
	}
	return newServer(cfg, &identity, logger)
}

// NewServerWithIdentity 는 이미 메모리에 준비된 Acceptor 신원으로 보안 Server 를 생성합니다.
// 디버그 모드의 self-signed 신원이나 테스트에서 사용합니다.
func NewServerWithIdentity(cfg *config.Config, identity tls.Certificate, logger logging.Logger) (*Server, error) {
	return newServer(cfg, &identity, logger)
}

func newServer(cfg *config.Config, identity *tls.Certificate, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewStdJSONLogger("transport")
	}
	log := logger.With(logging.Fields{"component": "transport_server"})

	// IPv4/IPv6 둘 다 받도록 와일드카드 주소에 바인드합니다.
	laddr := &net.UDPAddr{Port: int(cfg.Port)}

	var (
		ln  net.Listener
		err error
	)
	if identity != nil {
		ln, err = piondtls.Listen("udp", laddr, dtls.AcceptorConfig(*identity, log))
	} else {
		ln, err = udp.Listen("udp", laddr)
	}
	if err != nil {
		return nil, &BindError{Addr: laddr.String(), Err: err}
	}

	log.Info("datagram server listening", logging.Fields{
		"addr":   ln.Addr().String(),
		"secure": identity != nil,
	})

	return &Server{
		ln:               ln,
		secure:           identity != nil,
		handshakeTimeout: defaultHandshakeTimeout,
		logger:           log,
	}, nil
}

// Addr 는 실제로 바인드된 리스닝 주소를 반환합니다. (포트 0 바인드 시 유용)
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Accept 는 새로운 피어의 첫 데이터그램이 도착할 때까지 블록한 뒤,
// 해당 피어와의 스트림을 반환합니다.
//
// 보안 모드에서는 첫 데이터그램(ClientHello)으로 시드된 Acceptor 핸드셰이크를
// 완료한 뒤에만 스트림을 반환합니다. 핸드셰이크 실패 시 HandshakeError 를 반환하며
// 응답은 전송되지 않고, 이 계층에서 재시도하지 않습니다.
func (s *Server) Accept() (Stream, error) {
	conn, err := s.ln.Accept()
	if err != nil {
		observability.TransportErrorsTotal.WithLabelValues("accept_failed").Inc()
		return nil, fmt.Errorf("transport: accept: %w", err)
	}

	log := s.logger.With(logging.Fields{
		"interaction_id": uuid.NewString(),
		"peer":           conn.RemoteAddr().String(),
	})

	if !s.secure {
		log.Debug("cleartext interaction accepted", nil)
		return newCleartextStream(conn), nil
	}

	dconn, ok := conn.(*piondtls.Conn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("transport: unexpected listener conn type %T", conn)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.handshakeTimeout)
	defer cancel()

	if err := dconn.HandshakeContext(ctx); err != nil {
		_ = dconn.Close()
		observability.DTLSHandshakesTotal.WithLabelValues("failure").Inc()
		log.Warn("dtls handshake failed", logging.Fields{
			"error": err.Error(),
		})
		return nil, &HandshakeError{Role: "acceptor", Err: err}
	}

	observability.DTLSHandshakesTotal.WithLabelValues("success").Inc()
	log.Info("dtls handshake completed", nil)
	return newSecuredStream(dconn), nil
}

// HandleClient 는 클라이언트 하나의 상호작용을 처리합니다:
// 첫 데이터그램을 기다렸다가 (보안 모드에서는 핸드셰이크 후) 페이로드 하나를 읽어
// 그대로 발신자에게 되돌려줍니다. 상호작용이 끝나면 per-peer 스트림은 닫힙니다.
func (s *Server) HandleClient() error {
	start := time.Now()

	stream, err := s.Accept()
	if err != nil {
		return err
	}
	defer func() {
		_ = stream.Close()
	}()

	buf := make([]byte, serverBufSize)
	n, err := stream.Read(buf)
	if err != nil {
		observability.TransportErrorsTotal.WithLabelValues("receive_failed").Inc()
		return fmt.Errorf("transport: read datagram: %w", err)
	}
	observability.DatagramsTotal.WithLabelValues("received").Inc()

	if _, err := stream.Write(buf[:n]); err != nil {
		observability.TransportErrorsTotal.WithLabelValues("send_failed").Inc()
		return fmt.Errorf("transport: echo datagram: %w", err)
	}
	observability.DatagramsTotal.WithLabelValues("sent").Inc()

	observability.HandleClientDurationSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Close 는 리스닝 소켓을 해제합니다. 블록 중인 Accept 는 에러와 함께 깨어납니다.
// 이미 Accept 된 스트림은 닫지 않습니다.
func (s *Server) Close() error {
	return s.ln.Close()
}
