package dtls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	piondtls "github.com/pion/dtls/v3"

	"github.com/dalbodeule/dgram-gate/internal/logging"
)

// LoadIdentity 는 PEM 인증서/개인키 파일에서 Acceptor 신원을 읽어옵니다.
// 경로가 잘못되었거나 PEM 형식이 아니면 에러를 반환합니다.
func LoadIdentity(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load PEM identity (cert=%q key=%q): %w", certFile, keyFile, err)
	}
	return cert, nil
}

// AcceptorConfig 는 서버(Acceptor) 역할의 pion DTLS 설정을 생성합니다.
// 신원은 한 번 로드하면 여러 클라이언트 상호작용에 재사용됩니다.
func AcceptorConfig(identity tls.Certificate, logger logging.Logger) *piondtls.Config {
	return &piondtls.Config{
		Certificates:         []tls.Certificate{identity},
		ExtendedMasterSecret: piondtls.RequireExtendedMasterSecret,
		LoggerFactory:        NewPionLoggerFactory(logger),
	}
}

// ConnectorConfig 는 클라이언트(Connector) 역할의 pion DTLS 설정을 생성합니다.
//
// insecureSkipVerify 가 true 이면 서버 인증서 체인 검증을 스킵합니다.
// (디버그 모드에서 self-signed 테스트 인증서를 신뢰하기 위한 용도입니다.
// 운영 환경에서는 반드시 false 로 두고 시스템 루트 CA 를 사용해야 합니다.)
func ConnectorConfig(serverName string, insecureSkipVerify bool, logger logging.Logger) *piondtls.Config {
	cfg := &piondtls.Config{
		ServerName:           serverName,
		InsecureSkipVerify:   insecureSkipVerify,
		ExtendedMasterSecret: piondtls.RequireExtendedMasterSecret,
		LoggerFactory:        NewPionLoggerFactory(logger),
	}

	if !insecureSkipVerify {
		rootCAs, err := x509.SystemCertPool()
		if err != nil || rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		cfg.RootCAs = rootCAs
	}

	return cfg
}
