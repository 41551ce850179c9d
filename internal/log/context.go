package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type requestID struct{}

type sessionID struct{}

func RequestIDFromContext(c context.Context) string {
	v, _ := c.Value(requestID{}).(string)
	return v
}

func AttachRequestIDToContext(c context.Context, id string) context.Context {
	return context.WithValue(c, requestID{}, id)
}

func SessionIDFromContext(c context.Context) string {
	v, _ := c.Value(sessionID{}).(string)
	return v
}

func AttachSessionIDToContext(c context.Context, id string) context.Context {
	return context.WithValue(c, sessionID{}, id)
}

// AttachTraceIdFromContext copies the request id and the active span ids of
// the event context into every log line.
func AttachTraceIdFromContext() zerolog.HookFunc {
	return func(e *zerolog.Event, level zerolog.Level, message string) {
		c := e.GetCtx()
		if c == nil {
			return
		}
		if reqID := RequestIDFromContext(c); reqID != "" {
			e.Str(KeyRequestID, reqID)
		}
		spanCtx := trace.SpanContextFromContext(c)
		if spanCtx.IsValid() {
			e.Str(KeyTraceID, spanCtx.TraceID().String()).
				Str(KeySpanID, spanCtx.SpanID().String())
		}
	}
}
