package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// maxEnvFileSize 는 .env 파일을 읽을 때 허용하는 최대 크기입니다.
const maxEnvFileSize = 8 * 1024

// Config 는 데이터그램 전송 코어가 소비하는 설정 값 객체입니다.
// 한 번 구성되면 변경하지 않는 것을 전제로 하며,
// 전송 코어는 이 값을 주입받을 뿐 환경변수/파일을 직접 읽지 않습니다.
type Config struct {
	Host     string // IPv4/IPv6 리터럴 (예: "127.0.0.1", "::1")
	Port     uint16 // UDP 포트
	Secure   bool   // true 이면 DTLS 로 보호된 스트림을 사용
	CertFile string // 서버 전용: PEM 인증서 경로
	KeyFile  string // 서버 전용: PEM 개인키 경로
	Debug    bool   // true 이면 디버그 모드 (self-signed 인증서 신뢰/생성 등)

	Logging LoggingConfig // 공통 로그 설정
}

// LoggingConfig 는 공통 로그 설정을 담습니다.
type LoggingConfig struct {
	Level string // 예: "debug", "info", "warn", "error"
}

// Default 는 로컬 개발용 기본 설정을 반환합니다.
func Default() *Config {
	return &Config{
		Host: "127.0.0.1",
		Port: 50505,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Addr 는 "host:port" 형식의 주소 문자열을 반환합니다.
// IPv6 리터럴도 올바르게 괄호로 감쌉니다.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// Validate 는 설정 값의 형식을 검증합니다.
// Host 는 반드시 IP 리터럴이어야 합니다. (호스트네임 해석은 이 계층의 책임이 아닙니다.)
func (c *Config) Validate() error {
	if net.ParseIP(c.Host) == nil {
		return fmt.Errorf("config: host %q is not a valid IP literal", c.Host)
	}
	return nil
}

// Load 는 envFile(.env 형식) 을 먼저 읽어 현재 환경변수를 보완한 뒤,
// "환경변수 > .env > 기본값" 우선순위로 설정을 구성합니다.
//
// envFile 이 빈 문자열이면 현재 디렉터리의 ".env" 가 존재할 때만 읽습니다.
//
// 환경변수:
//   - DGRAM_HOST       : IP 리터럴, 기본 "127.0.0.1"
//   - DGRAM_PORT       : uint16, 기본 50505
//   - DGRAM_SECURE     : bool, 기본 false
//   - DGRAM_CERT_FILE  : 서버 전용 PEM 인증서 경로
//   - DGRAM_KEY_FILE   : 서버 전용 PEM 개인키 경로
//   - DGRAM_DEBUG      : bool, 기본 false
//   - DGRAM_LOG_LEVEL  : 기본 "info"
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		if fi, err := os.Stat(".env"); err == nil && !fi.IsDir() {
			envFile = ".env"
		}
	}
	if envFile != "" {
		if err := loadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	def := Default()
	cfg := &Config{
		Host:     getEnvOrDefault("DGRAM_HOST", def.Host),
		Port:     def.Port,
		Secure:   getEnvBool("DGRAM_SECURE", false),
		CertFile: strings.TrimSpace(os.Getenv("DGRAM_CERT_FILE")),
		KeyFile:  strings.TrimSpace(os.Getenv("DGRAM_KEY_FILE")),
		Debug:    getEnvBool("DGRAM_DEBUG", false),
		Logging: LoggingConfig{
			Level: getEnvOrDefault("DGRAM_LOG_LEVEL", def.Logging.Level),
		},
	}

	if v := strings.TrimSpace(os.Getenv("DGRAM_PORT")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("config: invalid DGRAM_PORT %q: %w", v, err)
		}
		cfg.Port = uint16(n)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile 은 KEY=VALUE 형식의 .env 파일을 읽어 os.Environ 에 주입합니다.
// - "export KEY=VALUE" 형식을 지원
// - # 으로 시작하는 줄은 주석으로 간주
// - 이미 설정된 OS 환경변수가 있으면 이를 우선시합니다.
func loadEnvFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config: stat env file: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("config: env file %q is a directory", path)
	}
	if fi.Size() > maxEnvFileSize {
		return fmt.Errorf("config: env file %q exceeds %d bytes", path, maxEnvFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open env file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		// 양 끝의 작은/큰따옴표 제거
		val = strings.Trim(val, `"'`)

		if key != "" {
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read env file: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
