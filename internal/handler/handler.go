// Package handler содержит HTTP-обработчики API витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/backend"
	"github.com/mmeshcher/storefront-system/internal/currency"
	"github.com/mmeshcher/storefront-system/internal/middleware"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/pricing"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)

	GetCart(ctx context.Context, userID int64) (*service.CartView, error)
	AddCartItem(ctx context.Context, userID int64, item model.CartItem) (*service.CartView, error)
	RemoveCartItem(ctx context.Context, userID int64, variantID string) (*service.CartView, error)
	UpdateCartQuantity(ctx context.Context, userID int64, variantID string, quantity int) (*service.CartView, error)
	ClearCart(ctx context.Context, userID int64) error

	GetCoupons(ctx context.Context, userID int64) ([]model.Coupon, error)
	AddCoupon(ctx context.Context, userID int64, c model.Coupon) error
	RemoveCoupon(ctx context.Context, userID int64, couponID string) error
	ClearCoupons(ctx context.Context, userID int64) error

	GetPoints(ctx context.Context, userID int64) (model.PointsState, error)
	SelectPoints(ctx context.Context, userID int64, n int64) (model.PointsState, error)
	ClearSelectedPoints(ctx context.Context, userID int64) error
	SyncPointsConfig(ctx context.Context, userID int64) (model.PointsState, error)
	RedeemCode(ctx context.Context, userID int64, code string) (int64, error)

	Summary(ctx context.Context, userID int64, shipping int64) (pricing.Summary, error)
	Checkout(ctx context.Context, userID int64, shipping int64) (*model.Order, error)

	GetProducts(ctx context.Context, refresh bool) ([]model.Product, error)
	GetEvents(ctx context.Context, refresh bool) ([]model.Event, error)
	GetRewards(ctx context.Context, refresh bool) ([]model.Reward, error)
	GetOrders(ctx context.Context, userID int64, refresh bool) ([]model.Order, error)
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию покупателя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || err.Error() == "invalid credentials" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

type cartResponse struct {
	Items               []model.CartItem `json:"items"`
	TotalItems          int              `json:"total_items"`
	TotalPrice          int64            `json:"total_price"`
	TotalPriceFormatted string           `json:"total_price_formatted"`
}

func cartResponseFrom(view *service.CartView) cartResponse {
	return cartResponse{
		Items:               view.Items,
		TotalItems:          view.TotalItems,
		TotalPrice:          view.TotalPrice,
		TotalPriceFormatted: currency.Format(view.TotalPrice),
	}
}

// GetCart возвращает корзину текущего покупателя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	view, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("get cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, cartResponseFrom(view))
}

// AddCartItem добавляет вариант товара в корзину текущего покупателя.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var item model.CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if item.VariantID == "" || item.UnitPrice < 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := h.service.AddCartItem(r.Context(), userID, item)
	if err != nil {
		h.logger.Error("add cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, cartResponseFrom(view))
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartQuantity устанавливает количество позиции корзины.
func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	variantID := chi.URLParam(r, "variantID")

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := h.service.UpdateCartQuantity(r.Context(), userID, variantID, req.Quantity)
	if err != nil {
		h.logger.Error("update quantity error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, cartResponseFrom(view))
}

// RemoveCartItem удаляет позицию из корзины текущего покупателя.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	view, err := h.service.RemoveCartItem(r.Context(), userID, chi.URLParam(r, "variantID"))
	if err != nil {
		h.logger.Error("remove cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, cartResponseFrom(view))
}

// ClearCart очищает корзину текущего покупателя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		h.logger.Error("clear cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetCoupons возвращает выбранные купоны текущего покупателя.
func (h *Handler) GetCoupons(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	coupons, err := h.service.GetCoupons(r.Context(), userID)
	if err != nil {
		h.logger.Error("get coupons error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, coupons)
}

// AddCoupon добавляет купон к выбору текущего покупателя.
func (h *Handler) AddCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var c model.Coupon
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if c.ID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AddCoupon(r.Context(), userID, c); err != nil {
		h.logger.Error("add coupon error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveCoupon удаляет купон из выбора текущего покупателя.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.RemoveCoupon(r.Context(), userID, chi.URLParam(r, "couponID")); err != nil {
		h.logger.Error("remove coupon error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ClearCoupons сбрасывает выбор купонов текущего покупателя.
func (h *Handler) ClearCoupons(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.ClearCoupons(r.Context(), userID); err != nil {
		h.logger.Error("clear coupons error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetPoints возвращает состояние бонусного счёта текущего покупателя.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	state, err := h.service.GetPoints(r.Context(), userID)
	if err != nil {
		h.logger.Error("get points error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, state)
}

type selectPointsRequest struct {
	Points int64 `json:"points"`
}

// SelectPoints устанавливает количество баллов к списанию.
func (h *Handler) SelectPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req selectPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := h.service.SelectPoints(r.Context(), userID, req.Points)
	if err != nil {
		h.logger.Error("select points error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, state)
}

// ClearSelectedPoints сбрасывает выбор баллов.
func (h *Handler) ClearSelectedPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.ClearSelectedPoints(r.Context(), userID); err != nil {
		h.logger.Error("clear selected points error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// SyncPoints подтягивает серверную конфигурацию бонусного счёта.
func (h *Handler) SyncPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	state, err := h.service.SyncPointsConfig(r.Context(), userID)
	if err != nil {
		h.logger.Error("sync points error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	writeJSON(w, state)
}

type redeemCodeRequest struct {
	Code string `json:"code"`
}

type redeemCodeResponse struct {
	PointsEarned int64 `json:"points_earned"`
}

// RedeemCode погашает код начисления баллов.
func (h *Handler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req redeemCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	earned, err := h.service.RedeemCode(r.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRedemptionCode):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, backend.ErrCodeNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, backend.ErrCodeAlreadyUsed):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("redeem code error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, redeemCodeResponse{PointsEarned: earned})
}

type summaryResponse struct {
	Subtotal       int64  `json:"subtotal"`
	Discount       int64  `json:"discount"`
	PointsDiscount int64  `json:"points_discount"`
	Shipping       int64  `json:"shipping"`
	Tax            int64  `json:"tax"`
	Total          int64  `json:"total"`
	TotalFormatted string `json:"total_formatted"`
}

func summaryResponseFrom(s pricing.Summary) summaryResponse {
	return summaryResponse{
		Subtotal:       s.Subtotal,
		Discount:       s.Discount,
		PointsDiscount: s.PointsDiscount,
		Shipping:       s.Shipping,
		Tax:            s.Tax,
		Total:          s.Total,
		TotalFormatted: currency.Format(s.Total),
	}
}

type checkoutRequest struct {
	Shipping int64 `json:"shipping"`
}

// GetSummary возвращает предварительный итог заказа.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var shipping int64
	if v := r.URL.Query().Get("shipping"); v != "" {
		parsed, err := parseShipping(v)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		shipping = parsed
	}

	summary, err := h.service.Summary(r.Context(), userID, shipping)
	if err != nil {
		h.logger.Error("summary error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, summaryResponseFrom(summary))
}

type orderResponse struct {
	ID             int64            `json:"id"`
	Items          []model.CartItem `json:"items"`
	Subtotal       int64            `json:"subtotal"`
	Discount       int64            `json:"discount"`
	PointsDiscount int64            `json:"points_discount"`
	Shipping       int64            `json:"shipping"`
	Tax            int64            `json:"tax"`
	Total          int64            `json:"total"`
	TotalFormatted string           `json:"total_formatted"`
	Status         string           `json:"status"`
	CreatedAt      string           `json:"created_at"`
}

func orderResponseFrom(o model.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		Items:          o.Items,
		Subtotal:       o.Subtotal,
		Discount:       o.Discount,
		PointsDiscount: o.PointsDiscount,
		Shipping:       o.Shipping,
		Tax:            o.Tax,
		Total:          o.Total,
		TotalFormatted: currency.Format(o.Total),
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
	}
}

// Checkout оформляет заказ из текущего состояния корзины.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Shipping < 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.Checkout(r.Context(), userID, req.Shipping)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, service.ErrBelowMinRedeem):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		default:
			h.logger.Error("checkout error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(orderResponseFrom(*order)); err != nil {
		h.logger.Error("encode order error", zap.Error(err))
	}
}

// GetOrders возвращает историю заказов текущего покупателя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	refresh := r.URL.Query().Get("refresh") == "1"

	orders, err := h.service.GetOrders(r.Context(), userID, refresh)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, orderResponseFrom(o))
	}

	writeJSON(w, resp)
}

// GetProducts возвращает каталог товаров.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"

	products, err := h.service.GetProducts(r.Context(), refresh)
	if err != nil {
		h.logger.Error("get products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	writeJSON(w, products)
}

// GetEvents возвращает список мероприятий.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"

	events, err := h.service.GetEvents(r.Context(), refresh)
	if err != nil {
		h.logger.Error("get events error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	writeJSON(w, events)
}

// GetRewards возвращает вознаграждения программы лояльности.
func (h *Handler) GetRewards(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"

	rewards, err := h.service.GetRewards(r.Context(), refresh)
	if err != nil {
		h.logger.Error("get rewards error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	writeJSON(w, rewards)
}

func parseShipping(v string) (int64, error) {
	shipping, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if shipping < 0 {
		return 0, errors.New("negative shipping")
	}
	return shipping, nil
}
