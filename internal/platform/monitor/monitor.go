// Package monitor writes categorized operational logs for the office panel:
// errors, security events, performance measurements, and access records.
// Each category goes to its own rotating JSON log file so that security
// review and performance triage do not have to grep a mixed stream.
package monitor

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels for security events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Config controls where log files live and when they rotate.
type Config struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
}

// Monitor fans events out to per-category rotating log files.
type Monitor struct {
	errors      zerolog.Logger
	security    zerolog.Logger
	performance zerolog.Logger
	access      zerolog.Logger

	// Operations slower than this are escalated to warn level.
	slowThreshold time.Duration
}

// New creates a Monitor writing under cfg.Dir. Files rotate at
// cfg.MaxSizeMB megabytes keeping cfg.MaxBackups old files.
func New(cfg Config) *Monitor {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}

	newLogger := func(name string) zerolog.Logger {
		w := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name+".log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		return zerolog.New(w).With().Timestamp().Logger()
	}

	return &Monitor{
		errors:        newLogger("errors"),
		security:      newLogger("security"),
		performance:   newLogger("performance"),
		access:        newLogger("access"),
		slowThreshold: time.Second,
	}
}

// Nop returns a Monitor that discards everything. Useful in tests.
func Nop() *Monitor {
	return &Monitor{
		errors:        zerolog.Nop(),
		security:      zerolog.Nop(),
		performance:   zerolog.Nop(),
		access:        zerolog.Nop(),
		slowThreshold: time.Second,
	}
}

// Error records an application error with optional context fields.
func (m *Monitor) Error(err error, msg string, fields map[string]any) {
	evt := m.errors.Error().Err(err)
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg(msg)
}

// Security records a security-relevant event such as a failed login,
// an invalid CSRF token, or an ownership violation.
func (m *Monitor) Security(event, severity string, fields map[string]any) {
	evt := m.security.Warn()
	if severity == SeverityCritical {
		evt = m.security.Error()
	} else if severity == SeverityInfo {
		evt = m.security.Info()
	}
	evt = evt.Str("event", event).Str("severity", severity)
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg("security event")
}

// Performance records an operation duration. Operations slower than the
// threshold are logged at warn level.
func (m *Monitor) Performance(operation string, elapsed time.Duration, fields map[string]any) {
	evt := m.performance.Info()
	if elapsed > m.slowThreshold {
		evt = m.performance.Warn().Bool("slow", true)
	}
	evt = evt.Str("operation", operation).Dur("elapsed", elapsed)
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg("performance")
}

// Access records a handled request.
func (m *Monitor) Access(method, path string, status int, remoteIP, requestID string, elapsed time.Duration) {
	m.access.Info().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Str("remote_ip", remoteIP).
		Str("request_id", requestID).
		Dur("elapsed", elapsed).
		Msg("access")
}

// SetSlowThreshold overrides the performance escalation threshold.
func (m *Monitor) SetSlowThreshold(d time.Duration) {
	m.slowThreshold = d
}
