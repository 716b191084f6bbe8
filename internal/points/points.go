// Package points реализует хранилище бонусного счёта покупателя.
package points

import "github.com/mmeshcher/storefront-system/internal/model"

// Store содержит состояние бонусного счёта: доступный баланс, выбранное
// к списанию количество баллов и серверную конфигурацию обмена.
// Выбранное значение всегда усекается до [0, available].
type Store struct {
	state model.PointsState
}

// NewStore создаёт счёт с указанным доступным балансом и курсом обмена.
func NewStore(available, exchangeRate int64) *Store {
	return &Store{state: model.PointsState{
		Available:    available,
		ExchangeRate: exchangeRate,
	}}
}

// Restore создаёт счёт из сохранённого снимка состояния.
func Restore(state model.PointsState) *Store {
	s := &Store{state: state}
	s.clampSelected()
	return s
}

// State возвращает копию текущего состояния счёта.
func (s *Store) State() model.PointsState {
	return s.state
}

// SetAvailable устанавливает доступный баланс и заново усекает выбор.
func (s *Store) SetAvailable(available int64) {
	if available < 0 {
		available = 0
	}
	s.state.Available = available
	s.clampSelected()
}

// Credit увеличивает доступный баланс на указанное число баллов.
func (s *Store) Credit(points int64) {
	if points <= 0 {
		return
	}
	s.state.Available += points
}

// SetSelected устанавливает количество баллов к списанию,
// усекая его до диапазона [0, Available].
func (s *Store) SetSelected(n int64) {
	s.state.Selected = n
	s.clampSelected()
}

// ClearSelected сбрасывает выбор баллов.
func (s *Store) ClearSelected() {
	s.state.Selected = 0
}

// DiscountAmount возвращает скидку за выбранные баллы в сатангах.
func (s *Store) DiscountAmount() int64 {
	return s.state.Selected * s.state.ExchangeRate
}

// SetExchangeRate применяет серверный курс обмена (сатангов за балл).
func (s *Store) SetExchangeRate(rate int64) {
	s.state.ExchangeRate = rate
}

// SetRedeemLimits применяет серверные границы списания.
func (s *Store) SetRedeemLimits(min int64, max *int64) {
	s.state.MinRedeem = min
	s.state.MaxRedeem = max
}

// SetExpiryDays применяет серверный срок сгорания баллов в днях.
func (s *Store) SetExpiryDays(days *int) {
	s.state.ExpiryDays = days
}

func (s *Store) clampSelected() {
	if s.state.Selected < 0 {
		s.state.Selected = 0
	}
	if s.state.Selected > s.state.Available {
		s.state.Selected = s.state.Available
	}
}
