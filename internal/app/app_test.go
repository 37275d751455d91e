package app_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/linemk/mc-store/internal/app"
	"github.com/linemk/mc-store/internal/app/handlers"
	"github.com/linemk/mc-store/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestApp(t *testing.T, opts ...func(*config.Config)) *httptest.Server {
	t.Helper()
	adminHash, err := bcrypt.GenerateFromPassword([]byte("adminpass1"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.Config{
		Env:        "local",
		HTTPServer: config.HTTPServerConfig{RequestTimeout: 5 * time.Second},
		Storage:    config.StorageConfig{Driver: config.DriverMemory},
		JWT:        config.JWTConfig{Secret: "testsecret", TokenTTL: time.Hour},
		Admin:      config.AdminConfig{Emails: []string{"admin@example.com"}, PasswordHash: string(adminHash)},
		SeedProducts: []config.SeedProduct{
			{Name: "VIP", Price: "25.00", Category: "ranks", Featured: true},
			{Name: "1000 coins", Price: "5.00", Category: "coins"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	application, err := app.NewApp(slog.New(slog.NewTextHandler(os.Stdout, nil)), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, application.Close()) })

	srv := httptest.NewServer(application.Router())
	t.Cleanup(srv.Close)
	return srv
}

// client хранит сессию и токен между запросами, как это делает браузер магазина
type client struct {
	t       *testing.T
	baseURL string
	session string
	token   string
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	return c.doWithHeaders(method, path, body, nil)
}

func (c *client) doWithHeaders(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.session != "" {
		req.Header.Set("X-Session-ID", c.session)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	if sid := resp.Header.Get("X-Session-ID"); sid != "" {
		c.session = sid
	}
	return resp
}

func (c *client) login(email, password string) {
	c.t.Helper()
	resp := c.do("POST", "/api/auth", map[string]string{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&auth))
	require.NotEmpty(c.t, auth.Token)
	c.token = auth.Token
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// сценарий с аутентификацией: регистрация, повторный вход, неверный пароль
func TestAuth(t *testing.T) {
	srv := newTestApp(t)
	c := &client{t: t, baseURL: srv.URL}

	c.login("player@example.com", "password123")
	c.login("player@example.com", "password123")

	resp := c.do("POST", "/api/auth", map[string]string{"email": "player@example.com", "password": "wrongpass1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = c.do("POST", "/api/auth", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	c.token = "garbage"
	resp = c.do("GET", "/api/products", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// сценарий покупки: админ заводит купон, покупатель оформляет заказ со скидкой и отменяет его
func TestCheckoutThroughRouter(t *testing.T) {
	srv := newTestApp(t)

	admin := &client{t: t, baseURL: srv.URL}
	admin.login("admin@example.com", "adminpass1")

	buyer := &client{t: t, baseURL: srv.URL}
	resp := buyer.do("GET", "/api/admin/coupons", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, buyer.session, "session id is minted on first request")

	player := &client{t: t, baseURL: srv.URL}
	player.login("player@example.com", "password123")
	resp = player.do("GET", "/api/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = admin.do("POST", "/api/admin/coupons", map[string]any{
		"code":          "SAVE20",
		"discountType":  "percentage",
		"discountValue": "20",
		"maxUsages":     1,
		"validUntil":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var products []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	resp = buyer.do("GET", "/api/products?category=ranks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &products)
	require.Len(t, products, 1)

	resp = buyer.do("POST", "/api/cart/items", map[string]any{"productId": products[0].ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = buyer.do("POST", "/api/orders", map[string]any{
		"couponCode":    "save20",
		"email":         "buyer@example.com",
		"paymentMethod": "paypal",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var order struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		TotalAmount string `json:"totalAmount"`
	}
	decodeInto(t, resp, &order)
	assert.Equal(t, "60.00", order.TotalAmount)

	var cart struct {
		Items    []any  `json:"items"`
		Subtotal string `json:"subtotal"`
	}
	resp = buyer.do("GET", "/api/cart", nil)
	decodeInto(t, resp, &cart)
	assert.Empty(t, cart.Items, "cart is cleared after checkout")

	// лимит купона исчерпан
	resp = buyer.do("POST", "/api/coupons/validate", map[string]any{"code": "SAVE20", "orderAmount": "75"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = admin.do("PUT", fmt.Sprintf("/api/admin/orders/%s/status", order.ID), map[string]string{"status": "payment_pending"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// владелец не может отменить заказ в ожидании оплаты, администратор может
	resp = buyer.do("PUT", fmt.Sprintf("/api/orders/%s/cancel", order.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = admin.do("PUT", fmt.Sprintf("/api/orders/%s/cancel", order.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &order)
	assert.Equal(t, "cancelled", order.Status)
}

// почта из белого списка администраторов не регистрируется через /api/auth
func TestAuth_AdminCannotSelfRegister(t *testing.T) {
	srv := newTestApp(t, func(cfg *config.Config) { cfg.Admin.PasswordHash = "" })
	c := &client{t: t, baseURL: srv.URL}

	resp := c.do("POST", "/api/auth", map[string]string{"email": "admin@example.com", "password": "attacker-chosen-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = c.do("GET", "/api/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// заведённый при старте администратор входит только со своим паролем
	provisioned := newTestApp(t)
	admin := &client{t: t, baseURL: provisioned.URL}
	resp = admin.do("POST", "/api/auth", map[string]string{"email": "admin@example.com", "password": "attacker-chosen-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	admin.login("admin@example.com", "adminpass1")
	resp = admin.do("GET", "/api/admin/orders", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// одинаковый ключ идемпотентности в разных сессиях оформляет разные заказы
func TestCheckout_IdempotencyKeyPerSession(t *testing.T) {
	srv := newTestApp(t)
	alice := &client{t: t, baseURL: srv.URL}
	bob := &client{t: t, baseURL: srv.URL}
	key := map[string]string{handlers.IdempotencyKeyHeader: "1"}

	resp := alice.do("POST", "/api/cart/items", map[string]any{"productId": 1, "quantity": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = bob.do("POST", "/api/cart/items", map[string]any{"productId": 2, "quantity": 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var aliceOrder, bobOrder struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		TotalAmount string `json:"totalAmount"`
	}
	resp = alice.doWithHeaders("POST", "/api/orders", map[string]any{"email": "alice@example.com", "paymentMethod": "paypal"}, key)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeInto(t, resp, &aliceOrder)

	resp = bob.doWithHeaders("POST", "/api/orders", map[string]any{"email": "bob@example.com", "paymentMethod": "paypal"}, key)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(handlers.ReplayedHeader))
	decodeInto(t, resp, &bobOrder)
	assert.NotEqual(t, aliceOrder.ID, bobOrder.ID)
	assert.Equal(t, "bob@example.com", bobOrder.Email)
	assert.Equal(t, "15.00", bobOrder.TotalAmount)

	// повтор в той же сессии возвращает тот же заказ
	resp = bob.doWithHeaders("POST", "/api/orders", map[string]any{"email": "bob@example.com", "paymentMethod": "paypal"}, key)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(handlers.ReplayedHeader))
}

func TestNewApp_RejectsBadConfig(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err := app.NewApp(log, &config.Config{Storage: config.StorageConfig{Driver: "mongo"}})
	assert.Error(t, err)

	_, err = app.NewApp(log, &config.Config{
		Storage:      config.StorageConfig{Driver: config.DriverMemory},
		SeedProducts: []config.SeedProduct{{Name: "VIP", Price: "free"}},
	})
	assert.Error(t, err)

	_, err = app.NewApp(log, &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		Admin:   config.AdminConfig{Emails: []string{"admin@example.com"}, PasswordHash: "plain-text"},
	})
	assert.Error(t, err)
}
