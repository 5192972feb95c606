package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// =================================================================================
// AUTH GUARD (HTTP Basic)
// =================================================================================

// checkAuthHeader valida el header Authorization contra el secreto
// configurado. Devuelve "" si el request está autorizado, o el motivo del
// challenge si no. Es una función pura sobre estado inmutable: el secreto no
// cambia después de construir el server.
func (s *Server) checkAuthHeader(header string) string {
	if s.authKey == "" {
		// Sin secreto configurado el endpoint es abierto.
		return ""
	}
	if header == "" {
		return "no auth header received"
	}
	const scheme = "Basic "
	if !strings.HasPrefix(header, scheme) {
		return "not authenticated"
	}
	// Comparación en tiempo constante: el secreto es corto pero no hay razón
	// para filtrar prefijos por timing.
	if subtle.ConstantTimeCompare([]byte(header[len(scheme):]), []byte(s.authKey)) != 1 {
		return "not authenticated"
	}
	return ""
}

// requireAuth envuelve un handler mutante: si el guard emite challenge,
// responde 401 con WWW-Authenticate y el handler protegido NUNCA se invoca.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reason := s.checkAuthHeader(r.Header.Get("Authorization")); reason != "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="pgward"`)
			writeText(w, http.StatusUnauthorized, reason)
			return
		}
		next(w, r)
	}
}
