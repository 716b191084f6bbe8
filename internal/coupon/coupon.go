// Package coupon реализует хранилище выбранных купонов и расчёт скидки.
package coupon

import (
	"time"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// Store содержит набор купонов, выбранных покупателем. Повторное
// добавление купона с тем же идентификатором игнорируется.
type Store struct {
	coupons []model.Coupon

	now func() time.Time
}

// NewStore создаёт пустой набор купонов.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Restore создаёт набор купонов из сохранённого снимка.
func Restore(coupons []model.Coupon) *Store {
	s := NewStore()
	s.coupons = make([]model.Coupon, len(coupons))
	copy(s.coupons, coupons)
	return s
}

// Add добавляет купон в набор. Дубликат по идентификатору — молчаливый no-op.
func (s *Store) Add(c model.Coupon) {
	for i := range s.coupons {
		if s.coupons[i].ID == c.ID {
			return
		}
	}
	s.coupons = append(s.coupons, c)
}

// Remove удаляет все купоны с указанным идентификатором.
func (s *Store) Remove(id string) {
	res := s.coupons[:0]
	for _, c := range s.coupons {
		if c.ID != id {
			res = append(res, c)
		}
	}
	s.coupons = res
}

// Clear удаляет все выбранные купоны.
func (s *Store) Clear() {
	s.coupons = nil
}

// Coupons возвращает копию набора купонов.
func (s *Store) Coupons() []model.Coupon {
	res := make([]model.Coupon, len(s.coupons))
	copy(res, s.coupons)
	return res
}

// TotalDiscount возвращает суммарную скидку по выбранным купонам для
// указанной суммы корзины. Купоны с недостигнутым минимумом покупки не
// участвуют. Итог усечён диапазоном [0, subtotal]: суммарная скидка не
// может превышать сумму корзины.
func (s *Store) TotalDiscount(subtotal int64) int64 {
	var total int64
	for i := range s.coupons {
		total += s.discountFor(&s.coupons[i], subtotal)
	}

	if total < 0 {
		total = 0
	}
	if total > subtotal {
		total = subtotal
	}
	return total
}

func (s *Store) discountFor(c *model.Coupon, subtotal int64) int64 {
	if !c.Applicable {
		return 0
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(s.now()) {
		return 0
	}
	if subtotal < c.MinPurchase {
		return 0
	}

	switch c.Type {
	case model.DiscountPercentage:
		d := subtotal * c.Value / 100
		if c.MaxDiscount != nil && d > *c.MaxDiscount {
			d = *c.MaxDiscount
		}
		return d
	case model.DiscountFixed:
		return c.Value
	case model.DiscountShipping:
		// скидка на доставку применяется отдельно от суммы корзины
		return 0
	default:
		return 0
	}
}
