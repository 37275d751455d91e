package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
	security "github.com/linemk/mc-store/internal/jwt-new"
	"github.com/linemk/mc-store/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	access   AccessPolicy
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, access AccessPolicy, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		access:   access,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Login осуществляет аутентификацию покупателя.
// Если пользователь не найден, он создаётся (пароль хэшируется через bcrypt).
// Почты администраторов так не регистрируются, их заводит ProvisionAdmins.
// Если найден, введённый пароль сравнивается с сохранённым хэшем.
// Возвращает подписанный JWT с идентификатором и email пользователя.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "service.AuthService.Login"
	email = strings.ToLower(strings.TrimSpace(email))
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		if a.access != nil && a.access.IsAdmin(email) {
			logger.Warn("refusing to register admin account on login")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Info("user not found, creating new user")
		passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash password", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
		}
		user, err = a.userRepo.CreateUser(ctx, &models.User{Email: email, PassHash: passHash})
		if err != nil {
			logger.Error("failed to create user", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to create user: %w", op, storageFault(err))
		}
	case err != nil:
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, storageFault(err))
	default:
		if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
			logger.Warn("invalid password")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
	}

	token, err := security.NewToken(user, a.secret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}

// ProvisionAdmins заводит учётные записи администраторов с готовым bcrypt-хэшем пароля.
// Уже существующие записи не меняются.
func (a *AuthService) ProvisionAdmins(ctx context.Context, emails []string, passHash string) error {
	const op = "service.AuthService.ProvisionAdmins"
	logger := a.log.With(slog.String("op", op))

	if passHash == "" {
		if len(emails) > 0 {
			logger.Warn("admin password hash is not set, admin accounts are not provisioned")
		}
		return nil
	}
	if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
		return fmt.Errorf("%s: invalid admin password hash: %w", op, err)
	}

	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		_, err := a.userRepo.GetUserByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrUserNotFound) {
			logger.Error("failed to get user", slog.Any("error", err))
			return fmt.Errorf("%s: failed to get user: %w", op, storageFault(err))
		}
		if _, err := a.userRepo.CreateUser(ctx, &models.User{Email: email, PassHash: []byte(passHash)}); err != nil {
			logger.Error("failed to create admin", slog.Any("error", err))
			return fmt.Errorf("%s: failed to create admin: %w", op, storageFault(err))
		}
		logger.Info("admin account provisioned", slog.String("email", email))
	}
	return nil
}
