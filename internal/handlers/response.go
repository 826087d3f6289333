package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

var exposeErrors atomic.Bool

func init() {
	exposeErrors.Store(true)
}

// ExposeErrors controls whether failure responses carry the internal error
// chain. Production turns it off.
func ExposeErrors(v bool) {
	exposeErrors.Store(v)
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return apperr.Validation("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Validation("invalid JSON: " + err.Error())
	}
	return nil
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", "error", err, "path", string(ctx.Path()))
		status = xhttp.StatusInternalServerError
		b = []byte(`{"success":false,"message":"internal server error"}`)
	}
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeSuccess(ctx *xhttp.RequestCtx, status int, message string, data any) {
	writeJSON(ctx, status, envelope{Success: true, Message: message, Data: data})
}

type upstreamDetail struct {
	StatusCode int `json:"status_code,omitempty"`
	Response   any `json:"response,omitempty"`
}

// writeFailure renders err through the error taxonomy. Server side failures
// are logged and reported with the request id.
func writeFailure(ctx *xhttp.RequestCtx, err error) {
	status := apperr.HTTPStatus(err)
	resp := envelope{Success: false, Message: apperr.Message(err)}
	if exposeErrors.Load() {
		resp.Error = err.Error()
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindUpstream {
		resp.Data = upstreamDetail{StatusCode: appErr.UpstreamStatus, Response: rawBody(appErr.UpstreamBody)}
	}

	if status >= xhttp.StatusInternalServerError {
		rid := xhttp.RequestID(ctx)
		logger.Error("request failed",
			"status", status,
			"kind", apperr.KindOf(err).String(),
			"path", string(ctx.Path()),
			"request_id", rid,
			"error", err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", rid)
			scope.SetTag("path", string(ctx.Path()))
			scope.SetTag("kind", apperr.KindOf(err).String())
			sentry.CaptureException(err)
		})
	}

	writeJSON(ctx, status, resp)
}

// rawBody embeds JSON bodies as is and anything else as a string.
func rawBody(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	return string(b)
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	var raw string
	switch v := ctx.UserValue(name).(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return id, nil
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// queryInt returns def when the parameter is absent.
func queryInt(ctx *xhttp.RequestCtx, key string, def int) (int, error) {
	v := query(ctx, key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validationf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func queryDate(ctx *xhttp.RequestCtx, key string) (*model.Date, error) {
	v := query(ctx, key)
	if v == "" {
		return nil, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return nil, apperr.Validationf("%s must be YYYY-MM-DD", key)
	}
	return &d, nil
}

func queryQueueStatus(ctx *xhttp.RequestCtx) *model.QueueStatus {
	v := query(ctx, "status")
	if v == "" {
		return nil
	}
	s := model.QueueStatus(v)
	return &s
}
