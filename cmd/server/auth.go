package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookieName    = "costeo_session"
	sessionSecretMissing = "SESSION_SECRET no está configurado; la administración está deshabilitada"
)

type authService struct {
	db            *sql.DB
	sessionSecret []byte
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func newAuthService(db *sql.DB, sessionSecret string) *authService {
	return &authService{db: db, sessionSecret: []byte(sessionSecret)}
}

func (a *authService) validateCredentials(ctx context.Context, email, password string) (bool, error) {
	var passwordHash string
	err := a.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE email = ?`, email).Scan(&passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user credentials: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrHashTooShort) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password hash: %w", err)
	}
	return true, nil
}

// enabled reports whether sessions can be signed. Without a secret any cookie could be forged.
func (a *authService) enabled() bool {
	return len(a.sessionSecret) > 0
}

func (a *authService) createSessionValue(email string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(email))
	return payload + "." + a.sign(payload)
}

func (a *authService) sign(payload string) string {
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *authService) verifySessionValue(value string) (string, bool) {
	if !a.enabled() {
		return "", false
	}
	payload, signature, ok := strings.Cut(value, ".")
	if !ok || strings.Contains(signature, ".") {
		return "", false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	expected, _ := hex.DecodeString(a.sign(payload))
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil || len(decoded) == 0 {
		return "", false
	}

	return string(decoded), true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(email),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.enabled() {
		writeProblem(w, r, http.StatusServiceUnavailable, sessionSecretMissing)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	valid, err := s.auth.validateCredentials(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "login failed", "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "Error de autenticación")
		return
	}
	if !valid {
		writeProblem(w, r, http.StatusUnauthorized, "Credenciales inválidas. Intenta de nuevo.")
		return
	}

	s.auth.setSessionCookie(w, strings.TrimSpace(req.Email))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.enabled() {
			writeProblem(w, r, http.StatusServiceUnavailable, sessionSecretMissing)
			return
		}
		if !isAuthenticated(r, s.auth) {
			writeProblem(w, r, http.StatusUnauthorized, "Inicia sesión para continuar")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAuthenticated(r *http.Request, auth *authService) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}

	_, ok := auth.verifySessionValue(cookie.Value)
	return ok
}
