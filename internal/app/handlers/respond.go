package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/linemk/mc-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/mc-store/internal/service"
)

// ник игрока Minecraft: 3-16 символов, латиница, цифры, подчёркивание
var playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("mcname", func(fl validator.FieldLevel) bool {
		return playerNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// errorStatuses сопоставляет ошибки сервисного слоя с HTTP статусами, первая подходящая побеждает
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrStorage, http.StatusInternalServerError},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrAccessDenied, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrCouponExists, http.StatusConflict},
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrInvalidTransition, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidCoupon, http.StatusBadRequest},
}

// writeError отвечает клиенту по ошибке сервиса. Отказ по купону уходит JSON с причиной.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var rejection *service.CouponRejection
	if errors.As(err, &rejection) {
		logger.Info("coupon rejected", slog.String("code", rejection.Code), slog.String("reason", rejection.Reason))
		writeJSON(w, logger, http.StatusBadRequest, CouponInvalidResponse{
			Valid:  false,
			Code:   rejection.Code,
			Reason: rejection.Reason,
			Error:  rejection.Message(),
		})
		return
	}

	for _, e := range errorStatuses {
		if !errors.Is(err, e.err) {
			continue
		}
		if e.status >= http.StatusInternalServerError {
			logger.Error("request failed", slog.Any("error", err))
			http.Error(w, "internal server error", e.status)
			return
		}
		logger.Info("request rejected", slog.Any("error", err))
		http.Error(w, e.err.Error(), e.status)
		return
	}

	logger.Error("unexpected error", slog.Any("error", err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// decodeRequest читает и валидирует тело запроса. Пустое тело допустимо, если allowEmpty.
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return false
		}
	}

	if err := validate.Struct(dst); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation error"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return "validation error: " + strings.Join(fields, ", ")
}

// requester собирает участника операции из контекста запроса
func requester(r *http.Request, contactEmail string) service.Requester {
	id, _ := jwtmiddleware.FromContext(r.Context())
	return service.Requester{
		SessionID:    id.SessionID,
		UserID:       id.UserID,
		AccountEmail: id.Email,
		ContactEmail: strings.TrimSpace(contactEmail),
	}
}

func sessionID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	id, ok := jwtmiddleware.FromContext(r.Context())
	if !ok || id.SessionID == "" {
		logger.Error("session not found in context")
		http.Error(w, "session is required", http.StatusBadRequest)
		return "", false
	}
	return id.SessionID, true
}

func int64Param(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		logger.Error("invalid path parameter", slog.String("param", name), slog.String("value", raw))
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}
