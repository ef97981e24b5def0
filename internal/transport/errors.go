package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrStreamClosed 는 이미 닫힌 스트림에 대한 모든 이후 연산이 반환하는 에러입니다.
var ErrStreamClosed = errors.New("transport: stream is closed")

// BindError 는 Client/Server 생성 시 소켓 바인드가 실패했음을 나타냅니다.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("transport: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ConnectError 는 Client 생성 시 원격 주소 해석 또는 connect 가 실패했음을 나타냅니다.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// HandshakeError 는 DTLS 핸드셰이크가 실패했음을 나타냅니다.
// 현재 핸드셰이크 시도에만 치명적이며, 이 계층에서 자동 재시도는 하지 않습니다.
type HandshakeError struct {
	Role string // "connector" 또는 "acceptor"
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("transport: %s handshake failed: %v", e.Role, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// CertLoadError 는 보안 모드 Server 생성 시 PEM 신원 로드가 실패했음을 나타냅니다.
// 이 에러가 발생하면 Server 는 생성되지 않습니다.
type CertLoadError struct {
	CertFile string
	KeyFile  string
	Err      error
}

func (e *CertLoadError) Error() string {
	return fmt.Sprintf("transport: load acceptor identity (cert=%q key=%q): %v", e.CertFile, e.KeyFile, e.Err)
}

func (e *CertLoadError) Unwrap() error { return e.Err }

// IsTimeout 은 err 가 설정된 타임아웃 만료로 인한 것인지 판별합니다.
// 표준 라이브러리 소켓(os.ErrDeadlineExceeded)과 pion 계열의
// timeout net.Error 를 모두 인식합니다.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
