package transport

import (
	"net"
	"time"

	piondtls "github.com/pion/dtls/v3"
)

// Stream 은 평문/보안 데이터그램 피어에 대한 공통 capability 집합입니다. (ko)
// Stream is the uniform capability set over a cleartext or secured datagram peer. (en)
//
// 구현체는 정확히 두 가지뿐입니다:
//   - cleartextStream: UDP 소켓을 직접 감싼 평문 스트림
//   - securedStream:   핸드셰이크가 완료된 DTLS 세션을 감싼 보안 스트림
//
// 보안 스트림은 핸드셰이크가 완료된 뒤에만 생성되므로,
// 부분적으로만 핸드셰이크된 스트림은 외부에서 관찰될 수 없습니다.
type Stream interface {
	// Read 는 다음 메시지를 읽습니다. 평문 모드에서는 호출 한 번이 데이터그램 하나입니다.
	Read(p []byte) (int, error)

	// Write 는 메시지 하나를 전송합니다. 평문 모드에서는 호출 한 번이 데이터그램 하나입니다.
	Write(p []byte) (int, error)

	// SetTimeout 은 읽기/쓰기 양방향에 동일하게 적용되는 타임아웃을 설정합니다.
	// d 가 0 이면 무한 대기이며, 0 보다 크면 각 연산이 d 경과 시
	// timeout 에러로 실패합니다. (IsTimeout 으로 판별)
	SetTimeout(d time.Duration) error

	// PeerAddr 는 연결된 상대 주소를 반환합니다.
	PeerAddr() (net.Addr, error)

	// Close 는 스트림과 하부 소켓을 해제합니다.
	// 닫힌 뒤의 모든 연산은 ErrStreamClosed 로 결정적으로 실패합니다.
	// 이미 블록된 연산이 즉시 깨어나는 것은 보장하지 않습니다.
	Close() error
}

// armDeadline 은 연산 직전에 양방향 데드라인을 재장전합니다.
// 타임아웃이 "데드라인 설정 시점"이 아닌 "연산 시작 시점" 기준으로 적용되도록 합니다.
func armDeadline(conn net.Conn, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return conn.SetDeadline(time.Now().Add(d))
}

// cleartextStream 은 UDP 소켓을 직접 감싼 평문 스트림입니다.
// 클라이언트 측에서는 connect 된 *net.UDPConn 을,
// 서버 측에서는 발신지 주소로 demux 된 per-peer conn 을 감쌉니다.
type cleartextStream struct {
	conn    net.Conn
	timeout time.Duration
	closed  bool
}

func newCleartextStream(conn net.Conn) *cleartextStream {
	return &cleartextStream{conn: conn}
}

func (s *cleartextStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	if err := armDeadline(s.conn, s.timeout); err != nil {
		return 0, err
	}
	return s.conn.Read(p)
}

func (s *cleartextStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	if err := armDeadline(s.conn, s.timeout); err != nil {
		return 0, err
	}
	return s.conn.Write(p)
}

func (s *cleartextStream) SetTimeout(d time.Duration) error {
	if s.closed {
		return ErrStreamClosed
	}
	s.timeout = d
	if d <= 0 {
		return s.conn.SetDeadline(time.Time{})
	}
	// 즉시 적용해 두면 이후 연산이 armDeadline 으로 다시 장전합니다.
	return s.conn.SetDeadline(time.Now().Add(d))
}

func (s *cleartextStream) PeerAddr() (net.Addr, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	return s.conn.RemoteAddr(), nil
}

func (s *cleartextStream) Close() error {
	if s.closed {
		return ErrStreamClosed
	}
	s.closed = true
	return s.conn.Close()
}

// securedStream 은 핸드셰이크가 완료된 DTLS 세션을 감싼 보안 스트림입니다.
// 읽기/쓰기는 pion/dtls 의 레코드 암복호화에 그대로 위임하며,
// 이 계층은 동작을 추가하지 않고 동일한 capability 만 노출합니다.
type securedStream struct {
	conn    *piondtls.Conn
	timeout time.Duration
	closed  bool
}

func newSecuredStream(conn *piondtls.Conn) *securedStream {
	return &securedStream{conn: conn}
}

func (s *securedStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	if err := armDeadline(s.conn, s.timeout); err != nil {
		return 0, err
	}
	return s.conn.Read(p)
}

func (s *securedStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	if err := armDeadline(s.conn, s.timeout); err != nil {
		return 0, err
	}
	return s.conn.Write(p)
}

func (s *securedStream) SetTimeout(d time.Duration) error {
	if s.closed {
		return ErrStreamClosed
	}
	s.timeout = d
	if d <= 0 {
		return s.conn.SetDeadline(time.Time{})
	}
	return s.conn.SetDeadline(time.Now().Add(d))
}

func (s *securedStream) PeerAddr() (net.Addr, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	return s.conn.RemoteAddr(), nil
}

func (s *securedStream) Close() error {
	if s.closed {
		return ErrStreamClosed
	}
	s.closed = true
	return s.conn.Close()
}
