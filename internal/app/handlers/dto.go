package handlers

import (
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/service"
)

// Денежные суммы в ответах всегда строки с двумя знаками, например "40.00"

type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Featured    bool   `json:"featured"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       models.FormatMoney(p.Price),
		Category:    p.Category,
		Featured:    p.Featured,
	}
}

type CartItemResponse struct {
	ID        int64           `json:"id"`
	Product   ProductResponse `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal string          `json:"lineTotal"`
}

type CartResponse struct {
	SessionID string             `json:"sessionId"`
	Items     []CartItemResponse `json:"items"`
	Subtotal  string             `json:"subtotal"`
}

func toCartResponse(view *service.CartView) CartResponse {
	items := make([]CartItemResponse, 0, len(view.Lines))
	for _, l := range view.Lines {
		items = append(items, CartItemResponse{
			ID:        l.LineID,
			Product:   toProductResponse(l.Product),
			Quantity:  l.Quantity,
			LineTotal: models.FormatMoney(l.LineTotal),
		})
	}
	return CartResponse{
		SessionID: view.SessionID,
		Items:     items,
		Subtotal:  models.FormatMoney(view.Subtotal),
	}
}

type OrderItemResponse struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
}

type CouponErrorResponse struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type OrderResponse struct {
	ID             string               `json:"id"`
	Status         string               `json:"status"`
	OriginalAmount string               `json:"originalAmount"`
	DiscountAmount string               `json:"discountAmount"`
	TotalAmount    string               `json:"totalAmount"`
	CouponCode     *string              `json:"couponCode,omitempty"`
	PlayerName     *string              `json:"playerName,omitempty"`
	Email          string               `json:"email"`
	PaymentMethod  string               `json:"paymentMethod"`
	Items          []OrderItemResponse  `json:"items"`
	CouponError    *CouponErrorResponse `json:"couponError,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   models.FormatMoney(it.UnitPrice),
			TotalPrice:  models.FormatMoney(it.TotalPrice),
		})
	}
	return OrderResponse{
		ID:             o.ID,
		Status:         string(o.Status),
		OriginalAmount: models.FormatMoney(o.OriginalAmount),
		DiscountAmount: models.FormatMoney(o.DiscountAmount),
		TotalAmount:    models.FormatMoney(o.TotalAmount),
		CouponCode:     o.CouponCode,
		PlayerName:     o.PlayerName,
		Email:          o.Email,
		PaymentMethod:  o.PaymentMethod,
		Items:          items,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrderList(orders []*models.Order) []OrderResponse {
	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	return resp
}

type CouponResponse struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	DiscountType       string    `json:"discountType"`
	DiscountValue      string    `json:"discountValue"`
	MinimumOrderAmount *string   `json:"minimumOrderAmount,omitempty"`
	MaxUsages          *int      `json:"maxUsages,omitempty"`
	CurrentUsages      int       `json:"currentUsages"`
	ValidFrom          time.Time `json:"validFrom"`
	ValidUntil         time.Time `json:"validUntil"`
	IsActive           bool      `json:"isActive"`
	Description        *string   `json:"description,omitempty"`
}

func toCouponResponse(c *models.Coupon) CouponResponse {
	resp := CouponResponse{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: models.FormatMoney(c.DiscountValue),
		MaxUsages:     c.MaxUsages,
		CurrentUsages: c.CurrentUsages,
		ValidFrom:     c.ValidFrom,
		ValidUntil:    c.ValidUntil,
		IsActive:      c.IsActive,
		Description:   c.Description,
	}
	if c.MinimumOrderAmount != nil {
		m := models.FormatMoney(*c.MinimumOrderAmount)
		resp.MinimumOrderAmount = &m
	}
	return resp
}

// CouponValidResponse: купон применим к сумме
type CouponValidResponse struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	DiscountAmount string `json:"discountAmount"`
	FinalAmount    string `json:"finalAmount"`
}

// CouponInvalidResponse: купон отклонён, reason машиночитаемый
type CouponInvalidResponse struct {
	Valid  bool   `json:"valid"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}
