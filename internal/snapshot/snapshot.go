// Package snapshot реализует версионированную сериализацию состояния
// клиентских хранилищ с пошаговыми миграциями схемы.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// Kind идентифицирует тип сохраняемого хранилища.
type Kind string

const (
	KindCart    Kind = "cart"
	KindCoupons Kind = "coupons"
	KindPoints  Kind = "points"
)

// Текущие версии схем. Снимок более старой версии прогоняется через
// цепочку миграций, снимок более новой версии не читается.
const (
	CartVersion    = 4
	CouponsVersion = 1
	PointsVersion  = 2
)

// ErrUnknownVersion возвращается для снимка с версией новее текущей или
// с версией, для которой нет шага миграции. Вызывающий обязан
// залогировать ошибку и детерминированно откатиться к пустому состоянию.
var ErrUnknownVersion = errors.New("unknown snapshot version")

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type migrateStep func(json.RawMessage) (json.RawMessage, error)

func encode(version int, state any) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	raw, err := json.Marshal(envelope{Version: version, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return raw, nil
}

func decode(raw []byte, current int, steps map[int]migrateStep) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	if env.Version > current || env.Version < 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, env.Version)
	}

	data := env.Data
	for v := env.Version; v < current; v++ {
		step, ok := steps[v]
		if !ok {
			return nil, fmt.Errorf("%w: no migration from %d", ErrUnknownVersion, v)
		}
		migrated, err := step(data)
		if err != nil {
			return nil, fmt.Errorf("migrate from version %d: %w", v, err)
		}
		data = migrated
	}

	return data, nil
}

type cartState struct {
	Items []model.CartItem `json:"items"`
}

// До версии 4 позиции корзины хранились без ограничения MaxQuantity,
// поэтому старый снимок сбрасывается в пустой список.
func resetCartItems(json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(cartState{Items: []model.CartItem{}})
}

var cartMigrations = map[int]migrateStep{
	1: resetCartItems,
	2: resetCartItems,
	3: resetCartItems,
}

// EncodeCart сериализует позиции корзины в снимок текущей версии.
func EncodeCart(items []model.CartItem) ([]byte, error) {
	if items == nil {
		items = []model.CartItem{}
	}
	return encode(CartVersion, cartState{Items: items})
}

// DecodeCart читает снимок корзины, применяя миграции схемы.
func DecodeCart(raw []byte) ([]model.CartItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	data, err := decode(raw, CartVersion, cartMigrations)
	if err != nil {
		return nil, err
	}

	var st cartState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal cart state: %w", err)
	}
	return st.Items, nil
}

type couponsState struct {
	Coupons []model.Coupon `json:"coupons"`
}

// EncodeCoupons сериализует набор купонов в снимок текущей версии.
func EncodeCoupons(coupons []model.Coupon) ([]byte, error) {
	if coupons == nil {
		coupons = []model.Coupon{}
	}
	return encode(CouponsVersion, couponsState{Coupons: coupons})
}

// DecodeCoupons читает снимок набора купонов.
func DecodeCoupons(raw []byte) ([]model.Coupon, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	data, err := decode(raw, CouponsVersion, nil)
	if err != nil {
		return nil, err
	}

	var st couponsState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal coupons state: %w", err)
	}
	return st.Coupons, nil
}

// В версии 1 курс обмена хранился в поле pointsValue, границ списания и
// срока сгорания не было. Миграция переименовывает поле и подставляет
// значения по умолчанию.
func migratePointsV1(data json.RawMessage) (json.RawMessage, error) {
	var old struct {
		Available   int64 `json:"available"`
		Selected    int64 `json:"selected"`
		PointsValue int64 `json:"pointsValue"`
	}
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}

	return json.Marshal(model.PointsState{
		Available:    old.Available,
		Selected:     old.Selected,
		ExchangeRate: old.PointsValue,
	})
}

var pointsMigrations = map[int]migrateStep{
	1: migratePointsV1,
}

// EncodePoints сериализует состояние бонусного счёта в снимок текущей версии.
func EncodePoints(state model.PointsState) ([]byte, error) {
	return encode(PointsVersion, state)
}

// DecodePoints читает снимок бонусного счёта, применяя миграции схемы.
func DecodePoints(raw []byte) (model.PointsState, error) {
	if len(raw) == 0 {
		return model.PointsState{}, nil
	}

	data, err := decode(raw, PointsVersion, pointsMigrations)
	if err != nil {
		return model.PointsState{}, err
	}

	var st model.PointsState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.PointsState{}, fmt.Errorf("unmarshal points state: %w", err)
	}
	return st, nil
}
