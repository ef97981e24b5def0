package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 전역 레지스트리에 등록할 dgram-gate 메트릭들을 정의합니다.
// Prometheus 기본 네임스페이스를 사용하며, 메트릭 이름에 dgramgate_ 접두어를 붙입니다.

var (
	// DTLS 핸드셰이크 총 횟수 (성공/실패 라벨 포함).
	DTLSHandshakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramgate_dtls_handshakes_total",
			Help: "Total number of DTLS handshakes, labeled by result.",
		},
		[]string{"result"}, // success, failure
	)

	// 스트림을 통해 주고받은 애플리케이션 메시지 수 (방향 라벨 포함).
	DatagramsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramgate_datagrams_total",
			Help: "Total number of application datagrams exchanged over streams, labeled by direction.",
		},
		[]string{"direction"}, // sent, received
	)

	// 전송 계층 에러 카운터 (에러 유형 라벨 포함).
	TransportErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramgate_transport_errors_total",
			Help: "Total number of transport-level errors, labeled by error type.",
		},
		[]string{"type"}, // e.g. accept_failed, send_failed, receive_failed
	)

	// 서버 측 클라이언트 상호작용 처리 시간 분포.
	HandleClientDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dgramgate_handle_client_duration_seconds",
			Help:    "Histogram of per-interaction handling latencies in seconds, handshake included.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// MustRegister 는 위에서 정의한 메트릭들을 전역 Prometheus 레지스트리에 등록합니다.
// 서버 시작 시 한 번만 호출해야 합니다.
func MustRegister() {
	prometheus.MustRegister(
		DTLSHandshakesTotal,
		DatagramsTotal,
		TransportErrorsTotal,
		HandleClientDurationSeconds,
	)
}
