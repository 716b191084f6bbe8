// Package model содержит доменные сущности витрины и программы лояльности.
package model

import "time"

// User представляет зарегистрированного покупателя.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// CartItem описывает позицию корзины. Цена хранится в сатангах.
type CartItem struct {
	VariantID   string `json:"variant_id"`
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	MaxQuantity int    `json:"max_quantity"`
}

// DiscountType описывает способ расчёта скидки по купону.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountShipping   DiscountType = "shipping"
)

// Coupon описывает купон, выбранный покупателем.
// Value трактуется по типу: проценты для percentage, сатанги для fixed.
type Coupon struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Description string       `json:"description"`
	Type        DiscountType `json:"type"`
	Value       int64        `json:"value"`
	MinPurchase int64        `json:"min_purchase"`
	MaxDiscount *int64       `json:"max_discount,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Applicable  bool         `json:"applicable"`
}

// PointsState содержит состояние бонусного счёта покупателя.
// ExchangeRate — сатангов за один балл.
type PointsState struct {
	Available    int64  `json:"available"`
	Selected     int64  `json:"selected"`
	ExchangeRate int64  `json:"exchange_rate"`
	MinRedeem    int64  `json:"min_redeem"`
	MaxRedeem    *int64 `json:"max_redeem,omitempty"`
	ExpiryDays   *int   `json:"expiry_days,omitempty"`
}

// OrderStatus описывает статус обработки заказа. Клиент создаёт заказ
// в статусе PENDING, дальнейшие переходы принадлежат бэкенду.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order описывает оформленный заказ со снимком позиций корзины.
type Order struct {
	ID             int64
	Items          []CartItem
	Subtotal       int64
	Discount       int64
	PointsDiscount int64
	Shipping       int64
	Tax            int64
	Total          int64
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Product описывает товар каталога.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
}

// Event описывает мероприятие, доступное для покупки билетов.
type Event struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Image    string    `json:"image"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

// Reward описывает вознаграждение, доступное за баллы.
type Reward struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Points int64  `json:"points"`
}
