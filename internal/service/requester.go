package service

import (
	"strings"

	"github.com/linemk/mc-store/internal/domain/models"
)

// Requester описывает того, кто выполняет операцию над заказом.
// Все поля являются непрозрачными строками от слоя идентификации.
type Requester struct {
	SessionID string
	// UserID и AccountEmail берутся из проверенного JWT
	UserID       string
	AccountEmail string
	// ContactEmail: email, указанный клиентом как доказательство владения заказом
	ContactEmail string
}

// AccessPolicy решает, обладает ли учётная запись правами администратора.
type AccessPolicy interface {
	IsAdmin(email string) bool
}

func isAdmin(policy AccessPolicy, who Requester) bool {
	return policy != nil && who.AccountEmail != "" && policy.IsAdmin(who.AccountEmail)
}

// owns проверяет владение заказом по сессии, пользователю или email
func owns(order *models.Order, who Requester) bool {
	if who.SessionID != "" && order.SessionID != nil && *order.SessionID == who.SessionID {
		return true
	}
	if who.UserID != "" && order.UserID != nil && *order.UserID == who.UserID {
		return true
	}
	for _, email := range []string{who.ContactEmail, who.AccountEmail} {
		if email != "" && strings.EqualFold(strings.TrimSpace(email), order.Email) {
			return true
		}
	}
	return false
}

// OrderNotifier получает события заказа. Реализация не должна блокировать
// вызывающего и не возвращает ошибок.
type OrderNotifier interface {
	OrderCreated(order *models.Order)
	StatusChanged(order *models.Order, previous models.OrderStatus)
}

type nopNotifier struct{}

func (nopNotifier) OrderCreated(*models.Order)                      {}
func (nopNotifier) StatusChanged(*models.Order, models.OrderStatus) {}

func notifierOrNop(n OrderNotifier) OrderNotifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
