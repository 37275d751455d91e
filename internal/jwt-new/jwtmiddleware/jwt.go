package jwtmiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	security "github.com/linemk/mc-store/internal/jwt-new"
)

type contextKey string

const (
	identityKey contextKey = "identity"

	SessionHeader = "X-Session-ID"
	SessionCookie = "sid"
)

// Identity: кто выполняет запрос: всегда сессия, опционально пользователь
type Identity struct {
	SessionID string
	UserID    string
	Email     string
	Admin     bool
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext извлекает Identity из контекста.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Session берёт идентификатор сессии из заголовка X-Session-ID или cookie sid.
// Если его нет, создаёт новый и отдаёт клиенту в cookie и заголовке ответа.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(SessionHeader))
		if sid == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				sid = c.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, sid)

		id, _ := FromContext(r.Context())
		id.SessionID = sid
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// NewJWTMiddleware создаёт middleware, которое проверяет токен, если он передан.
// Запросы без заголовка Authorization проходят как анонимные.
func NewJWTMiddleware(secret string, access *security.AccessChecker) func(http.Handler) http.Handler {
	if secret == "" {
		panic("JWT secret is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization (формат: "Bearer <token>")
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := security.ParseToken(parts[1], secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			id, _ := FromContext(r.Context())
			id.UserID = claims.UserID
			id.Email = claims.Email
			id.Admin = access.IsAdmin(claims.Email)
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// RequireUser пропускает только запросы с проверенным токеном
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := FromContext(r.Context()); !ok || id.UserID == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin пропускает только администраторов
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || id.UserID == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if !id.Admin {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
