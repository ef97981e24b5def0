package main

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dalbodeule/dgram-gate/internal/config"
	"github.com/dalbodeule/dgram-gate/internal/logging"
	"github.com/dalbodeule/dgram-gate/internal/transport"
)

func main() {
	envFile := flag.String("env-file", "", "path to .env file (defaults to ./.env when present)")
	hostFlag := flag.String("host", "", "server IP literal (overrides DGRAM_HOST)")
	portFlag := flag.Uint("port", 0, "server UDP port (overrides DGRAM_PORT)")
	secureFlag := flag.Bool("secure", false, "force DTLS even when DGRAM_SECURE is unset")
	messageFlag := flag.String("message", "Hello, Server!", "payload to send")
	timeoutFlag := flag.Duration("timeout", 5*time.Second, "read/write timeout; 0 blocks forever")
	flag.Parse()

	bootLog := logging.NewStdJSONLogger("client")

	// 1. 환경변수(.env 포함)에서 클라이언트 설정 로드
	cfg, err := config.Load(*envFile)
	if err != nil {
		bootLog.Error("failed to load client config", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// 2. CLI 인자 우선, env 후순위로 최종 설정 구성
	if h := strings.TrimSpace(*hostFlag); h != "" {
		cfg.Host = h
	}
	if *portFlag > 0 {
		if *portFlag > 65535 {
			bootLog.Error("invalid -port value", logging.Fields{
				"port": *portFlag,
			})
			os.Exit(1)
		}
		cfg.Port = uint16(*portFlag)
	}
	if *secureFlag {
		cfg.Secure = true
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Error("invalid client config", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger := logging.NewStdJSONLoggerWithLevel("client", logging.ParseLevel(cfg.Logging.Level))
	logger.Info("dgram-gate client starting", logging.Fields{
		"remote": cfg.Addr(),
		"secure": cfg.Secure,
		"debug":  cfg.Debug,
	})

	// 3. 스트림 생성 (보안 모드이면 Connector 핸드셰이크까지 수행)
	client, err := transport.NewClient(cfg, logger)
	if err != nil {
		logger.Error("failed to open datagram stream", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer client.Close()

	if err := client.SetTimeout(*timeoutFlag); err != nil {
		logger.Error("failed to set stream timeout", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	peer, err := client.PeerAddr()
	if err != nil {
		logger.Error("failed to resolve peer address", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// 4. 에코 왕복 한 번 수행
	if _, err := client.Send([]byte(*messageFlag)); err != nil {
		logger.Error("failed to send datagram", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	buf := make([]byte, 4096)
	n, err := client.Receive(buf)
	if err != nil {
		if transport.IsTimeout(err) {
			logger.Error("timed out waiting for echo", logging.Fields{
				"peer":    peer.String(),
				"timeout": timeoutFlag.String(),
			})
		} else {
			logger.Error("failed to receive echo", logging.Fields{
				"error": err.Error(),
			})
		}
		os.Exit(1)
	}

	logger.Info("echo received", logging.Fields{
		"peer":  peer.String(),
		"bytes": n,
		"reply": string(buf[:n]),
	})
}
