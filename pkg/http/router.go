package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

// NewRouter returns a new Router
func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router with JSON not-found handling and
// automatic 405s.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

// NotFoundHandler is the default 404 handler
func NotFoundHandler(ctx *RequestCtx) {
	writeStatus(ctx, StatusNotFound)
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	writeStatus(ctx, StatusMethodNotAllowed)
}

func writeStatus(ctx *RequestCtx, code int) {
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.SetStatusCode(code)
	ctx.SetBodyString(`{"success":false,"message":"` + StatusText(code) + `"}`)
}

// RoutePath is the registered pattern that served ctx, e.g.
// /api/queue/{id}/sent, or "" when no route matched.
func RoutePath(ctx *RequestCtx) string {
	p, _ := ctx.UserValue(router.MatchedRoutePathParam).(string)
	return p
}
