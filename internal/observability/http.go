package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
)

// NewMetricsServer 는 /metrics 와 /healthz 를 노출하는 H1/H2 지원 HTTP 서버를 생성합니다.
// 데이터그램 전송 코어와는 독립적인 운영용 엔드포인트입니다.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	http2.ConfigureServer(srv, &http2.Server{})
	return srv
}
