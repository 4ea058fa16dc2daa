// Package restyutil dumps full request/response exchanges of a resty
// client to an output sink when debug logging is enabled. Upstream
// breakage usually means a header or cookie regression, and having the
// raw exchange on disk is the fastest way to diff one.
package restyutil

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type contextKey struct{}

var messageIdContextKey = contextKey{}

// InstrumentClient attaches exchange dumping to client. A nil output
// makes this a no-op.
func InstrumentClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx := req.Context()
		if !slog.Default().Enabled(ctx, slog.LevelDebug) {
			return nil
		}
		messageId := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		slog.DebugContext(
			ctx, "start request",
			"method", req.Method,
			"url", req.URL,
			"message_id", messageId,
		)
		req.SetContext(context.WithValue(ctx, messageIdContextKey, messageId))
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		messageId, ok := ctx.Value(messageIdContextKey).(string)
		if !ok {
			return nil
		}
		output.Write(messageId, formatHttpMessage(res))
		slog.DebugContext(
			ctx, "request finished",
			"method", res.Request.Method,
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"message_id", messageId,
		)
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		slog.ErrorContext(
			req.Context(), "request failed",
			"method", req.Method,
			"url", req.URL,
			"err", err,
		)
	})
}
