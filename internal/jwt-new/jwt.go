package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/mc-store/internal/domain/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims: данные, извлечённые из проверенного токена
type Claims struct {
	UserID string
	Email  string
}

// NewToken генерирует JWT-токен для указанного пользователя с заданным временем жизни.
func NewToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", user.ID),
		"email": user.Email,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок действия токена
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub not found", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	return &Claims{UserID: sub, Email: email}, nil
}

// AccessChecker: единая проверка прав администратора по белому списку email
type AccessChecker struct {
	admins map[string]struct{}
}

func NewAccessChecker(adminEmails []string) *AccessChecker {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = struct{}{}
		}
	}
	return &AccessChecker{admins: admins}
}

// IsAdmin сообщает, входит ли email в список администраторов
func (c *AccessChecker) IsAdmin(email string) bool {
	if c == nil {
		return false
	}
	_, ok := c.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok
}
