package api

import (
	"net/http"
	"strings"
)

// routeKey identifica un handler por método HTTP + primer segmento del path.
// Se deriva por request y nunca se persiste: "GET /patroni/algo" y
// "GET /patroni" resuelven al mismo handler.
type routeKey struct {
	method  string
	segment string
}

// Router es una tabla explícita de despacho, construida una sola vez al
// crear el server y de solo lectura en tiempo de request.
//
// Resolución: primero (método, segmento); si no hay entrada, el handler
// default del método; si tampoco hay, 501 como haría un server HTTP mínimo
// ante un método que no implementa.
type Router struct {
	routes   map[routeKey]http.Handler
	defaults map[string]http.Handler
}

func NewRouter() *Router {
	return &Router{
		routes:   make(map[routeKey]http.Handler),
		defaults: make(map[string]http.Handler),
	}
}

// Handle registra un handler para (método, primer segmento).
func (rt *Router) Handle(method, segment string, h http.Handler) {
	rt.routes[routeKey{method: method, segment: segment}] = h
}

// HandleFunc es el equivalente para http.HandlerFunc.
func (rt *Router) HandleFunc(method, segment string, h http.HandlerFunc) {
	rt.Handle(method, segment, h)
}

// Default registra el handler de fallback para un método.
func (rt *Router) Default(method string, h http.Handler) {
	rt.defaults[method] = h
}

// DefaultFunc es el equivalente para http.HandlerFunc.
func (rt *Router) DefaultFunc(method string, h http.HandlerFunc) {
	rt.Default(method, h)
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := routeKey{method: r.Method, segment: firstSegment(r.URL.Path)}
	if h, ok := rt.routes[key]; ok {
		h.ServeHTTP(w, r)
		return
	}
	if h, ok := rt.defaults[r.Method]; ok {
		h.ServeHTTP(w, r)
		return
	}
	http.Error(w, "Unsupported method ('"+r.Method+"')", http.StatusNotImplemented)
}

// firstSegment devuelve el primer segmento no vacío del path.
// "/" y "" devuelven "".
func firstSegment(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
