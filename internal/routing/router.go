package routing

import (
	"context"
	"net/http"
	"runtime/debug"
)

type RouteClass string

const (
	RouteClassPublicAPI RouteClass = "public_api"
	RouteClassOps       RouteClass = "ops"
)

type Router struct {
	routes []route
}

type route struct {
	method  string
	pattern PathPattern
	rc      RouteClass
	handler http.Handler
}

type paramsKey struct{}

// Params returns the path segments captured for the matched route.
func Params(r *http.Request) map[string]string {
	p, _ := r.Context().Value(paramsKey{}).(map[string]string)
	return p
}

func NewRouter() *Router {
	return &Router{}
}

// Handle registers a pattern. A panic inside the handler becomes a JSON
// 500; the stack never reaches the response.
func (r *Router) Handle(rc RouteClass, method string, path string, h http.Handler) {
	pattern, ok := parsePathPattern(path)
	if !ok {
		panic("routing: invalid path pattern " + path)
	}
	r.routes = append(r.routes, route{
		method:  method,
		pattern: pattern,
		rc:      rc,
		handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					_ = debug.Stack()
					WriteError(w, req, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			h.ServeHTTP(w, req)
		}),
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	pathMatched := false
	for _, rt := range r.routes {
		params, ok := rt.pattern.Match(req.URL.Path)
		if !ok {
			continue
		}
		pathMatched = true
		if rt.method != req.Method {
			continue
		}
		if params != nil {
			req = req.WithContext(context.WithValue(req.Context(), paramsKey{}, params))
		}
		rt.handler.ServeHTTP(w, req)
		return
	}
	if pathMatched {
		WriteError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	WriteError(w, req, http.StatusNotFound, "not_found", "not found")
}
