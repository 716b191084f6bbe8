// Package cart реализует хранилище состояния корзины покупателя.
package cart

import "github.com/mmeshcher/storefront-system/internal/model"

// Store содержит позиции корзины одного покупателя. Операции никогда не
// возвращают ошибок: выходящие за границы значения усекаются, операции с
// отсутствующими позициями ничего не делают.
type Store struct {
	items []model.CartItem
}

// NewStore создаёт пустую корзину.
func NewStore() *Store {
	return &Store{}
}

// Restore создаёт корзину из сохранённого снимка позиций.
func Restore(items []model.CartItem) *Store {
	s := &Store{items: make([]model.CartItem, len(items))}
	copy(s.items, items)
	return s
}

// AddItem добавляет вариант товара в корзину. Если вариант уже есть,
// количество увеличивается на единицу, но не выше MaxQuantity.
// Количество у нового входного элемента игнорируется и всегда ставится в 1.
func (s *Store) AddItem(item model.CartItem) {
	for i := range s.items {
		if s.items[i].VariantID == item.VariantID {
			if s.items[i].Quantity < s.items[i].MaxQuantity {
				s.items[i].Quantity++
			}
			return
		}
	}

	item.Quantity = 1
	if item.MaxQuantity < 1 {
		item.MaxQuantity = 1
	}
	s.items = append(s.items, item)
}

// RemoveItem удаляет позицию по идентификатору варианта.
func (s *Store) RemoveItem(variantID string) {
	for i := range s.items {
		if s.items[i].VariantID == variantID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity устанавливает количество позиции, усекая его до
// диапазона [1, MaxQuantity]. Неизвестный вариант игнорируется.
func (s *Store) UpdateQuantity(variantID string, quantity int) {
	for i := range s.items {
		if s.items[i].VariantID != variantID {
			continue
		}
		if quantity < 1 {
			quantity = 1
		}
		if quantity > s.items[i].MaxQuantity {
			quantity = s.items[i].MaxQuantity
		}
		s.items[i].Quantity = quantity
		return
	}
}

// Clear удаляет все позиции корзины.
func (s *Store) Clear() {
	s.items = nil
}

// Items возвращает копию позиций корзины.
func (s *Store) Items() []model.CartItem {
	res := make([]model.CartItem, len(s.items))
	copy(res, s.items)
	return res
}

// TotalItems возвращает суммарное количество единиц товара в корзине.
func (s *Store) TotalItems() int {
	total := 0
	for i := range s.items {
		total += s.items[i].Quantity
	}
	return total
}

// TotalPrice возвращает стоимость корзины в сатангах.
func (s *Store) TotalPrice() int64 {
	var total int64
	for i := range s.items {
		total += s.items[i].UnitPrice * int64(s.items[i].Quantity)
	}
	return total
}
