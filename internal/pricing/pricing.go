// Package pricing содержит чистый расчёт итоговой суммы заказа.
package pricing

import "github.com/shopspring/decimal"

// VATRate — ставка НДС Таиланда, применяется к сумме после скидок.
var VATRate = decimal.New(7, -2)

// Summary содержит разложение итоговой суммы заказа в сатангах.
type Summary struct {
	Subtotal       int64 `json:"subtotal"`
	Discount       int64 `json:"discount"`
	PointsDiscount int64 `json:"points_discount"`
	Shipping       int64 `json:"shipping"`
	Tax            int64 `json:"tax"`
	Total          int64 `json:"total"`
}

// Compose рассчитывает итог заказа: налогооблагаемая база — сумма корзины
// за вычетом скидок, усечённая снизу нулём; налог — 7% от базы с
// округлением до сатанга в большую сторону от половины; итог — база
// плюс доставка плюс налог. Итог не бывает отрицательным.
func Compose(subtotal, discount, pointsDiscount, shipping int64) Summary {
	base := subtotal - discount - pointsDiscount
	if base < 0 {
		base = 0
	}

	tax := decimal.NewFromInt(base).Mul(VATRate).Round(0).IntPart()

	total := base + shipping + tax
	if total < 0 {
		total = 0
	}

	return Summary{
		Subtotal:       subtotal,
		Discount:       discount,
		PointsDiscount: pointsDiscount,
		Shipping:       shipping,
		Tax:            tax,
		Total:          total,
	}
}
