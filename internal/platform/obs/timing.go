package obs

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

var base atomic.Pointer[zap.Logger]

func init() { base.Store(zap.NewNop()) }

// SetLogger installs the process-wide logger used by L and Time.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	base.Store(l)
}

// WithRequestID stores id in ctx for later log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// L returns the base logger annotated with the request id carried by ctx.
func L(ctx context.Context) *zap.Logger {
	l := base.Load()
	if id := RequestID(ctx); id != "" {
		return l.With(zap.String("req_id", id))
	}
	return l
}

// Time logs the duration of an operation and its error, if any.
//
//	defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	l := L(ctx)

	return func(errp *error) {
		fields := []zap.Field{
			zap.String("op", name),
			zap.Int64("dur_ms", time.Since(start).Milliseconds()),
		}

		if errp != nil && *errp != nil {
			l.Warn("op failed", append(fields, zap.Error(*errp))...)
			return
		}
		l.Debug("op done", fields...)
	}
}
