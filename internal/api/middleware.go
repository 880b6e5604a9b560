package api

import (
	"net/http"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/security"
)

// withAuth requires a bearer token matching TokenHash on mutating routes.
func withAuth(s *Server, next http.HandlerFunc, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.TokenHash == "" {
			next(w, r)
			return
		}
		tok, ok := security.BearerToken(r.Header.Get("Authorization"))
		if !ok || !security.CheckToken(s.TokenHash, tok) {
			s.log().Warn("unauthorized request", "action", action, "path", r.URL.Path, "remote", r.RemoteAddr)
			s.err(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.log().Debug("authorized", "action", action, "path", r.URL.Path)
		next(w, r)
	}
}
