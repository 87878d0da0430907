package logger

import (
	"bufio"
	"net"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// level is shared by every Logger so SetLevel applies process-wide.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex  = regexp.MustCompile(`eyJ[^\s]+`)
	userIDRegex = regexp.MustCompile(`\buser_id\s*=\s*\S+`)
)

// Logger is a centralized structured logger
type Logger struct {
	out *zap.Logger
}

// New creates a new Logger writing JSON lines to stdout.
func New() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil

	zl, err := cfg.Build()
	if err != nil {
		zl = zap.NewNop()
	}
	return &Logger{out: zl}
}

// NewWith wraps an existing zap logger, mostly for tests.
func NewWith(zl *zap.Logger) *Logger {
	return &Logger{out: zl}
}

// SetLevel changes the level of every Logger. Unknown names keep the current level.
func SetLevel(name string) error {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

// Anonymize replaces sensitive information in logs (emails, tokens, IDs)
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	s = userIDRegex.ReplaceAllString(s, "user_id=[USER_ID]")
	return s
}

func (l *Logger) Info(module, msg string, fields ...zap.Field) {
	l.out.Info(Anonymize(msg), append(fields, zap.String("module", module))...)
}

func (l *Logger) Debug(module, msg string, fields ...zap.Field) {
	l.out.Debug(Anonymize(msg), append(fields, zap.String("module", module))...)
}

func (l *Logger) Error(module, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("module", module))
	if err != nil {
		fields = append(fields, zap.String("error", Anonymize(err.Error())))
	}
	l.out.Error(Anonymize(msg), fields...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.out.Sync()
}

type responseData struct {
	status int
	size   int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	data *responseData
}

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.data.size += size
	return size, err
}

func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.data.status = statusCode
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets websocket upgrades pass through the logging middleware.
func (r *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.data.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

// route prefers the matched mux pattern so path parameters such as user IDs
// stay out of the logs.
func route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

// RequestLogger logs method, route, status, size and duration of every request.
func (l *Logger) RequestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		data := &responseData{status: http.StatusOK}
		lw := &loggingResponseWriter{ResponseWriter: w, data: data}

		h.ServeHTTP(lw, r)

		l.Debug("http", "request served",
			zap.String("method", r.Method),
			zap.String("route", route(r)),
			zap.Int("status", data.status),
			zap.Int("size", data.size),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
