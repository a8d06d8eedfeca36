package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/docbind/internal/auth"
)

// ctxKeyClaims is the context key for the authenticated token claims.
const ctxKeyClaims contextKey = "claims"

// loginRequest is the JSON body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is returned on successful login.
type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	Role        auth.Role `json:"role"`
}

// handleLogin exchanges a username and password for an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	acc, err := s.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("verifying credentials", "error", err, "username", req.Username)
		}
		writeStatus(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	ttl := s.tokenTTL()
	token, err := auth.GenerateToken(acc.Username, acc.Role, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("generating token", "error", err)
		writeStatus(w, r, http.StatusInternalServerError, "failed to generate token")
		return
	}

	s.logger.Info("login", "username", acc.Username, "role", acc.Role)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl / time.Second),
		Role:        acc.Role,
	})
}

// tokenTTL returns the configured token lifetime.
func (s *Server) tokenTTL() time.Duration {
	if s.secCfg.JWT.AccessTokenTTL <= 0 {
		return auth.DefaultTokenTTL
	}
	return time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
}

// authEnabled reports whether requests must carry a token.
func (s *Server) authEnabled() bool {
	return s.secCfg.JWT.Secret != ""
}

// authMiddleware validates bearer tokens on protected routes. With no
// secret configured every request is allowed.
//
// Browsers cannot set headers on WebSocket upgrades, so the token may also
// be passed as the "token" query parameter.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		raw := bearerToken(r)
		if raw == "" {
			writeStatus(w, r, http.StatusUnauthorized, "bearer token required")
			return
		}

		claims, err := auth.ParseToken(raw, s.secCfg.JWT.Secret)
		if err != nil {
			s.logger.Debug("rejected token", "error", err, "path", r.URL.Path)
			writeStatus(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission rejects callers whose role lacks perm. It must run
// after authMiddleware.
func (s *Server) requirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.authEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			claims := claimsFromContext(r.Context())
			if claims == nil || !auth.HasPermission(claims.Role, perm) {
				writeStatus(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// claimsFromContext returns the token claims set by authMiddleware, or nil.
func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ctxKeyClaims).(*auth.Claims) //nolint:errcheck // absent claims yield nil
	return claims
}

// bearerToken extracts the token from the Authorization header or the
// token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
