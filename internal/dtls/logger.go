package dtls

import (
	"fmt"

	pionlog "github.com/pion/logging"

	"github.com/dalbodeule/dgram-gate/internal/logging"
)

// NewPionLoggerFactory 는 pion 계열 라이브러리의 내부 로그를
// 프로젝트 공통 logging.Logger 로 흘려보내는 LoggerFactory 를 생성합니다.
// pion 의 trace/debug 는 모두 debug 레벨로 내립니다.
func NewPionLoggerFactory(base logging.Logger) pionlog.LoggerFactory {
	return &pionLoggerFactory{base: base}
}

type pionLoggerFactory struct {
	base logging.Logger
}

func (f *pionLoggerFactory) NewLogger(scope string) pionlog.LeveledLogger {
	return &pionLeveledLogger{
		log: f.base.With(logging.Fields{"scope": scope}),
	}
}

type pionLeveledLogger struct {
	log logging.Logger
}

func (p *pionLeveledLogger) Trace(msg string) { p.log.Debug(msg, nil) }
func (p *pionLeveledLogger) Tracef(format string, args ...interface{}) {
	p.log.Debug(fmt.Sprintf(format, args...), nil)
}

func (p *pionLeveledLogger) Debug(msg string) { p.log.Debug(msg, nil) }
func (p *pionLeveledLogger) Debugf(format string, args ...interface{}) {
	p.log.Debug(fmt.Sprintf(format, args...), nil)
}

func (p *pionLeveledLogger) Info(msg string) { p.log.Info(msg, nil) }
func (p *pionLeveledLogger) Infof(format string, args ...interface{}) {
	p.log.Info(fmt.Sprintf(format, args...), nil)
}

func (p *pionLeveledLogger) Warn(msg string) { p.log.Warn(msg, nil) }
func (p *pionLeveledLogger) Warnf(format string, args ...interface{}) {
	p.log.Warn(fmt.Sprintf(format, args...), nil)
}

func (p *pionLeveledLogger) Error(msg string) { p.log.Error(msg, nil) }
func (p *pionLeveledLogger) Errorf(format string, args ...interface{}) {
	p.log.Error(fmt.Sprintf(format, args...), nil)
}
