package audit

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	reqctx "github.com/baechuer/user-service/internal/pkg/context"
)

// Logger provides structured audit logging for auth and user-management events.
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record emits one audit event. It has the shape expected by the
// application services' WithAudit hook.
func (l *Logger) Record(action string, fields map[string]string) {
	l.emit(context.Background(), action, fields)
}

// RecordCtx is Record plus the request id carried by ctx.
func (l *Logger) RecordCtx(ctx context.Context, action string, fields map[string]string) {
	l.emit(ctx, action, fields)
}

func (l *Logger) emit(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	switch fields["result"] {
	case "error", "denied", "rate_limited":
		ev = l.log.Warn()
	}

	ev = ev.Str("action", action)
	if rid := reqctx.GetRequestID(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" || strings.HasSuffix(k, "_email") {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}
	ev.Msg("audit")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
