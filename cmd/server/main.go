package main

import (
	"errors"
	"flag"
	"net/http"
	"os"

	"github.com/dalbodeule/dgram-gate/internal/config"
	"github.com/dalbodeule/dgram-gate/internal/dtls"
	"github.com/dalbodeule/dgram-gate/internal/logging"
	"github.com/dalbodeule/dgram-gate/internal/observability"
	"github.com/dalbodeule/dgram-gate/internal/transport"
)

func main() {
	envFile := flag.String("env-file", "", "path to .env file (defaults to ./.env when present)")
	metricsListen := flag.String("metrics-listen", "", "prometheus /metrics listen address (e.g. :9100); empty disables the endpoint")
	flag.Parse()

	bootLog := logging.NewStdJSONLogger("server")

	// 1. 서버 설정 로드 (.env + 환경변수)
	cfg, err := config.Load(*envFile)
	if err != nil {
		bootLog.Error("failed to load server config", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger := logging.NewStdJSONLoggerWithLevel("server", logging.ParseLevel(cfg.Logging.Level))
	logger.Info("dgram-gate server starting", logging.Fields{
		"host":      cfg.Host,
		"port":      cfg.Port,
		"secure":    cfg.Secure,
		"cert_file": cfg.CertFile,
		"debug":     cfg.Debug,
	})

	// 2. 메트릭 등록 및 운영 엔드포인트 시작
	observability.MustRegister()
	if *metricsListen != "" {
		metricsSrv := observability.NewMetricsServer(*metricsListen)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", logging.Fields{
					"error": err.Error(),
				})
			}
		}()
		logger.Info("metrics endpoint listening", logging.Fields{
			"addr": *metricsListen,
		})
	}

	// 3. 서버 생성
	//
	// 보안 모드 + 디버그 모드에서 인증서 경로가 비어 있으면 self-signed localhost
	// 신원으로 테스트할 수 있게 합니다. 운영 환경에서는 반드시 PEM 경로를 지정해야 하며,
	// 로드 실패는 생성 시점에 CertLoadError 로 드러납니다.
	var server *transport.Server
	if cfg.Secure && cfg.Debug && cfg.CertFile == "" && cfg.KeyFile == "" {
		identity, idErr := dtls.NewSelfSignedLocalhostIdentity()
		if idErr != nil {
			logger.Error("failed to create self-signed localhost identity", logging.Fields{
				"error": idErr.Error(),
			})
			os.Exit(1)
		}
		logger.Warn("using self-signed localhost certificate for DTLS (debug mode)", logging.Fields{
			"note": "do not use this in production",
		})
		server, err = transport.NewServerWithIdentity(cfg, identity, logger)
	} else {
		server, err = transport.NewServer(cfg, logger)
	}
	if err != nil {
		logger.Error("failed to start datagram server", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer server.Close()

	logger.Info("datagram server ready", logging.Fields{
		"addr": server.Addr().String(),
	})

	// 4. 상호작용 처리 루프
	//
	// HandleClient 는 상호작용 하나(첫 데이터그램 대기 → 선택적 핸드셰이크 → 에코)를
	// 처리합니다. 핸드셰이크 실패는 해당 상호작용에만 치명적이므로 루프는 계속합니다.
	for {
		if err := server.HandleClient(); err != nil {
			logger.Error("client interaction failed", logging.Fields{
				"error": err.Error(),
			})
			continue
		}
	}
}
