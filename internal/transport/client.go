package transport

import (
	"context"
	"net"
	"time"

	piondtls "github.com/pion/dtls/v3"

	"github.com/dalbodeule/dgram-gate/internal/config"
	"github.com/dalbodeule/dgram-gate/internal/dtls"
	"github.com/dalbodeule/dgram-gate/internal/logging"
	"github.com/dalbodeule/dgram-gate/internal/observability"
)

// defaultHandshakeTimeout 은 DTLS 핸드셰이크 전체(flight 재전송 포함)에 허용하는 상한입니다.
const defaultHandshakeTimeout = 30 * time.Second

// Client 는 능동적으로 연결을 여는 쪽입니다. (ko)
// Client is the active opener of a datagram exchange. (en)
//
// 생성 시 임시 로컬 소켓을 바인드해 원격 주소로 connect 하고,
// 보안 모드이면 Connector 역할로 핸드셰이크까지 마친 스트림을 보유합니다.
// 인스턴스 하나는 단일 실행 흐름에서 사용하는 것을 전제로 합니다.
type Client struct {
	stream Stream
	raddr  *net.UDPAddr
	logger logging.Logger
}

// NewClient 는 설정에 따라 평문 또는 보안 스트림을 가진 Client 를 생성합니다.
//
// 보안 모드에서 핸드셰이크가 실패하면 HandshakeError 를 반환하며 Client 는 생성되지 않습니다.
// cfg.Debug 가 true 이면 서버 인증서 체인 검증을 스킵합니다. (self-signed 테스트용)
func NewClient(cfg *config.Config, logger logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewStdJSONLogger("transport")
	}
	log := logger.With(logging.Fields{"component": "transport_client", "remote": cfg.Addr()})

	raddr, err := net.ResolveUDPAddr("udp", cfg.Addr())
	if err != nil {
		return nil, &ConnectError{Addr: cfg.Addr(), Err: err}
	}

	if !cfg.Secure {
		conn, err := net.DialUDP("udp", nil, raddr)
		if err != nil {
			return nil, &ConnectError{Addr: cfg.Addr(), Err: err}
		}
		log.Info("cleartext datagram stream ready", logging.Fields{
			"local": conn.LocalAddr().String(),
		})
		return &Client{
			stream: newCleartextStream(conn),
			raddr:  raddr,
			logger: log,
		}, nil
	}

	dconn, err := piondtls.Dial("udp", raddr, dtls.ConnectorConfig(cfg.Host, cfg.Debug, log))
	if err != nil {
		return nil, &ConnectError{Addr: cfg.Addr(), Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultHandshakeTimeout)
	defer cancel()

	if err := dconn.HandshakeContext(ctx); err != nil {
		_ = dconn.Close()
		observability.DTLSHandshakesTotal.WithLabelValues("failure").Inc()
		log.Error("dtls handshake failed", logging.Fields{
			"error": err.Error(),
		})
		return nil, &HandshakeError{Role: "connector", Err: err}
	}

	observability.DTLSHandshakesTotal.WithLabelValues("success").Inc()
	log.Info("dtls handshake completed", logging.Fields{
		"local": dconn.LocalAddr().String(),
	})

	return &Client{
		stream: newSecuredStream(dconn),
		raddr:  raddr,
		logger: log,
	}, nil
}

// Send 는 data 전체를 메시지 하나로 전송하고 쓰인 바이트 수를 반환합니다.
func (c *Client) Send(data []byte) (int, error) {
	n, err := c.stream.Write(data)
	if err != nil {
		observability.TransportErrorsTotal.WithLabelValues("send_failed").Inc()
		return n, err
	}
	observability.DatagramsTotal.WithLabelValues("sent").Inc()
	return n, nil
}

// Receive 는 다음 메시지를 buf 로 읽고 읽은 바이트 수를 반환합니다.
// buf 가 수신 데이터그램보다 작으면 초과분은 일반적인 데이터그램 소켓 의미대로 버려집니다.
func (c *Client) Receive(buf []byte) (int, error) {
	n, err := c.stream.Read(buf)
	if err != nil {
		observability.TransportErrorsTotal.WithLabelValues("receive_failed").Inc()
		return n, err
	}
	observability.DatagramsTotal.WithLabelValues("received").Inc()
	return n, nil
}

// SetTimeout 은 스트림의 읽기/쓰기 양방향 타임아웃을 설정합니다. 0 은 무한 대기입니다.
func (c *Client) SetTimeout(d time.Duration) error {
	return c.stream.SetTimeout(d)
}

// PeerAddr 는 connect 된 원격 주소를 반환합니다.
func (c *Client) PeerAddr() (net.Addr, error) {
	return c.stream.PeerAddr()
}

// Close 는 스트림과 소켓을 해제합니다.
// 닫힌 뒤의 Send/Receive/SetTimeout/PeerAddr 는 ErrStreamClosed 로 실패합니다.
func (c *Client) Close() error {
	err := c.stream.Close()
	if err == nil {
		c.logger.Debug("client stream closed", nil)
	}
	return err
}
