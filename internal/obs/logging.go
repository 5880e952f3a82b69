package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// LogConfig selects the logger output. Format is "json" (default) or
// "console"; Level is any zerolog level name and defaults to info.
type LogConfig struct {
	Format  string
	Level   string
	Service string
	Out     io.Writer
}

// NewLogger builds the process logger and sets the global zerolog level.
func NewLogger(cfg LogConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if f := strings.ToLower(strings.TrimSpace(cfg.Format)); f == "console" || f == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	service := cfg.Service
	if service == "" {
		service = "kasir-api"
	}
	return zerolog.New(out).With().Timestamp().Str("service", service).Logger()
}

// RequestLogger writes one access log line per request and puts a
// request-scoped logger on the context for zerolog.Ctx. Server errors log at
// error level and client errors at warn.
type RequestLogger struct {
	Logger zerolog.Logger
	// Skip suppresses the access line, not the context logger.
	Skip func(*http.Request) bool
}

func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		scoped := l.Logger.With().Str("request_id", reqID).Logger()
		r = r.WithContext(scoped.WithContext(r.Context()))

		rec := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)
		if l.Skip != nil && l.Skip(r) {
			return
		}

		status := rec.Status()
		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = scoped.Error()
		case status >= http.StatusBadRequest:
			evt = scoped.Warn()
		default:
			evt = scoped.Info()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", Route(r, r.URL.Path)).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int64("bytes", rec.BytesWritten()).
			Str("remote_ip", r.RemoteAddr)
		if region := r.URL.Query().Get("regionId"); region != "" {
			evt = evt.Str("region", region)
		}
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			evt = evt.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
		}
		if ua := r.UserAgent(); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http request")
	})
}

// SkipProbes skips access logs for health checks and metric scrapes.
func SkipProbes(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/health/") || r.URL.Path == "/metrics"
}
