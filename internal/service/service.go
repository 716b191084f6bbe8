// Package service реализует бизнес-логику витрины и программы лояльности.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/backend"
	"github.com/mmeshcher/storefront-system/internal/cache"
	"github.com/mmeshcher/storefront-system/internal/cart"
	"github.com/mmeshcher/storefront-system/internal/coupon"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/points"
	"github.com/mmeshcher/storefront-system/internal/pricing"
	"github.com/mmeshcher/storefront-system/internal/snapshot"
	"github.com/mmeshcher/storefront-system/internal/validation"
)

// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrBelowMinRedeem возвращается, если выбрано меньше баллов, чем
	// минимально допустимо к списанию.
	ErrBelowMinRedeem = errors.New("selected points below redeem minimum")
	// ErrInvalidRedemptionCode возвращается для кода начисления с
	// некорректным форматом или контрольной суммой.
	ErrInvalidRedemptionCode = errors.New("invalid redemption code")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetSnapshot(ctx context.Context, userID int64, kind snapshot.Kind) ([]byte, error)
	SaveSnapshot(ctx context.Context, userID int64, kind snapshot.Kind, data []byte) error
	CreateOrder(ctx context.Context, userID int64, order model.Order) (int64, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
}

// Backend описывает контракт размещённого бэкенда витрины.
type Backend interface {
	GetProducts(ctx context.Context) ([]model.Product, error)
	GetEvents(ctx context.Context) ([]model.Event, error)
	GetRewards(ctx context.Context) ([]model.Reward, error)
	GetProfile(ctx context.Context, customerID string) (*backend.Profile, error)
	RedeemCode(ctx context.Context, customerID, code string) (int64, error)
}

// CartView — производное представление корзины только для чтения.
type CartView struct {
	Items      []model.CartItem `json:"items"`
	TotalItems int              `json:"total_items"`
	TotalPrice int64            `json:"total_price"`
}

// Service содержит бизнес-логику витрины.
type Service struct {
	repo    Repository
	backend Backend
	logger  *zap.Logger

	products *cache.Collection[model.Product]
	events   *cache.Collection[model.Event]
	rewards  *cache.Collection[model.Reward]
	orders   *cache.Collection[model.Order]
}

// NewService создаёт сервис с указанным репозиторием и клиентом бэкенда.
// Коллекции каталога и заказов кэшируются с окном свежести ttl.
func NewService(repo Repository, b Backend, logger *zap.Logger, ttl time.Duration) *Service {
	s := &Service{
		repo:    repo,
		backend: b,
		logger:  logger,
	}

	s.products = cache.New(ttl, func(ctx context.Context, _ string) ([]model.Product, error) {
		return s.backend.GetProducts(ctx)
	})
	s.events = cache.New(ttl, func(ctx context.Context, _ string) ([]model.Event, error) {
		return s.backend.GetEvents(ctx)
	})
	s.rewards = cache.New(ttl, func(ctx context.Context, _ string) ([]model.Reward, error) {
		return s.backend.GetRewards(ctx)
	})
	s.orders = cache.New(ttl, func(ctx context.Context, key string) ([]model.Order, error) {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, err
		}
		return s.repo.GetOrdersByUser(ctx, userID)
	})

	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового покупателя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	return s.repo.CreateUser(ctx, login, hashed)
}

// AuthenticateUser проверяет логин и пароль покупателя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// --- корзина ---

func (s *Service) loadCart(ctx context.Context, userID int64) (*cart.Store, error) {
	raw, err := s.repo.GetSnapshot(ctx, userID, snapshot.KindCart)
	if err != nil {
		return nil, err
	}

	items, err := snapshot.DecodeCart(raw)
	if err != nil {
		if errors.Is(err, snapshot.ErrUnknownVersion) {
			s.logger.Warn("cart snapshot has unknown version, falling back to empty cart",
				zap.Int64("userID", userID), zap.Error(err))
			return cart.NewStore(), nil
		}
		return nil, err
	}

	return cart.Restore(items), nil
}

func (s *Service) saveCart(ctx context.Context, userID int64, c *cart.Store) error {
	raw, err := snapshot.EncodeCart(c.Items())
	if err != nil {
		return err
	}
	return s.repo.SaveSnapshot(ctx, userID, snapshot.KindCart, raw)
}

// GetCart возвращает представление корзины покупателя.
func (s *Service) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cartView(c), nil
}

// AddCartItem добавляет вариант товара в корзину. Повторное добавление
// увеличивает количество с усечением до максимума.
func (s *Service) AddCartItem(ctx context.Context, userID int64, item model.CartItem) (*CartView, error) {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.AddItem(item)

	if err := s.saveCart(ctx, userID, c); err != nil {
		return nil, err
	}
	return cartView(c), nil
}

// RemoveCartItem удаляет позицию корзины. Отсутствующий вариант — no-op.
func (s *Service) RemoveCartItem(ctx context.Context, userID int64, variantID string) (*CartView, error) {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.RemoveItem(variantID)

	if err := s.saveCart(ctx, userID, c); err != nil {
		return nil, err
	}
	return cartView(c), nil
}

// UpdateCartQuantity устанавливает количество позиции с усечением до
// диапазона [1, MaxQuantity].
func (s *Service) UpdateCartQuantity(ctx context.Context, userID int64, variantID string, quantity int) (*CartView, error) {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.UpdateQuantity(variantID, quantity)

	if err := s.saveCart(ctx, userID, c); err != nil {
		return nil, err
	}
	return cartView(c), nil
}

// ClearCart очищает корзину и сбрасывает выбранные купоны.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}
	c.Clear()
	if err := s.saveCart(ctx, userID, c); err != nil {
		return err
	}

	return s.ClearCoupons(ctx, userID)
}

func cartView(c *cart.Store) *CartView {
	return &CartView{
		Items:      c.Items(),
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice(),
	}
}

// --- купоны ---

func (s *Service) loadCoupons(ctx context.Context, userID int64) (*coupon.Store, error) {
	raw, err := s.repo.GetSnapshot(ctx, userID, snapshot.KindCoupons)
	if err != nil {
		return nil, err
	}

	coupons, err := snapshot.DecodeCoupons(raw)
	if err != nil {
		if errors.Is(err, snapshot.ErrUnknownVersion) {
			s.logger.Warn("coupons snapshot has unknown version, falling back to empty selection",
				zap.Int64("userID", userID), zap.Error(err))
			return coupon.NewStore(), nil
		}
		return nil, err
	}

	return coupon.Restore(coupons), nil
}

func (s *Service) saveCoupons(ctx context.Context, userID int64, st *coupon.Store) error {
	raw, err := snapshot.EncodeCoupons(st.Coupons())
	if err != nil {
		return err
	}
	return s.repo.SaveSnapshot(ctx, userID, snapshot.KindCoupons, raw)
}

// GetCoupons возвращает выбранные покупателем купоны.
func (s *Service) GetCoupons(ctx context.Context, userID int64) ([]model.Coupon, error) {
	st, err := s.loadCoupons(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.Coupons(), nil
}

// AddCoupon добавляет купон в выбор. Дубликат по идентификатору — no-op.
func (s *Service) AddCoupon(ctx context.Context, userID int64, c model.Coupon) error {
	st, err := s.loadCoupons(ctx, userID)
	if err != nil {
		return err
	}
	st.Add(c)
	return s.saveCoupons(ctx, userID, st)
}

// RemoveCoupon удаляет купон из выбора.
func (s *Service) RemoveCoupon(ctx context.Context, userID int64, couponID string) error {
	st, err := s.loadCoupons(ctx, userID)
	if err != nil {
		return err
	}
	st.Remove(couponID)
	return s.saveCoupons(ctx, userID, st)
}

// ClearCoupons сбрасывает выбор купонов.
func (s *Service) ClearCoupons(ctx context.Context, userID int64) error {
	st, err := s.loadCoupons(ctx, userID)
	if err != nil {
		return err
	}
	st.Clear()
	return s.saveCoupons(ctx, userID, st)
}

// --- баллы ---

func (s *Service) loadPoints(ctx context.Context, userID int64) (*points.Store, error) {
	raw, err := s.repo.GetSnapshot(ctx, userID, snapshot.KindPoints)
	if err != nil {
		return nil, err
	}

	state, err := snapshot.DecodePoints(raw)
	if err != nil {
		if errors.Is(err, snapshot.ErrUnknownVersion) {
			s.logger.Warn("points snapshot has unknown version, falling back to empty state",
				zap.Int64("userID", userID), zap.Error(err))
			return points.Restore(model.PointsState{}), nil
		}
		return nil, err
	}

	return points.Restore(state), nil
}

func (s *Service) savePoints(ctx context.Context, userID int64, st *points.Store) error {
	raw, err := snapshot.EncodePoints(st.State())
	if err != nil {
		return err
	}
	return s.repo.SaveSnapshot(ctx, userID, snapshot.KindPoints, raw)
}

// GetPoints возвращает состояние бонусного счёта покупателя.
func (s *Service) GetPoints(ctx context.Context, userID int64) (model.PointsState, error) {
	st, err := s.loadPoints(ctx, userID)
	if err != nil {
		return model.PointsState{}, err
	}
	return st.State(), nil
}

// SelectPoints устанавливает количество баллов к списанию с усечением
// до [0, available] и возвращает новое состояние счёта.
func (s *Service) SelectPoints(ctx context.Context, userID int64, n int64) (model.PointsState, error) {
	st, err := s.loadPoints(ctx, userID)
	if err != nil {
		return model.PointsState{}, err
	}

	st.SetSelected(n)

	if err := s.savePoints(ctx, userID, st); err != nil {
		return model.PointsState{}, err
	}
	return st.State(), nil
}

// ClearSelectedPoints сбрасывает выбор баллов.
func (s *Service) ClearSelectedPoints(ctx context.Context, userID int64) error {
	st, err := s.loadPoints(ctx, userID)
	if err != nil {
		return err
	}
	st.ClearSelected()
	return s.savePoints(ctx, userID, st)
}

// SyncPointsConfig подтягивает профиль лояльности с бэкенда и применяет
// серверную конфигурацию счёта: баланс, курс обмена, границы списания и
// срок сгорания. Возвращает обновлённое состояние.
func (s *Service) SyncPointsConfig(ctx context.Context, userID int64) (model.PointsState, error) {
	profile, err := s.backend.GetProfile(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		return model.PointsState{}, err
	}

	st, err := s.loadPoints(ctx, userID)
	if err != nil {
		return model.PointsState{}, err
	}

	st.SetAvailable(profile.Points)
	st.SetExchangeRate(profile.ExchangeRate)
	st.SetRedeemLimits(profile.MinRedeem, profile.MaxRedeem)
	st.SetExpiryDays(profile.ExpiryDays)

	if err := s.savePoints(ctx, userID, st); err != nil {
		return model.PointsState{}, err
	}
	return st.State(), nil
}

// RedeemCode погашает код начисления на бэкенде и зачисляет полученные
// баллы на счёт. Локальное состояние меняется только после успешного
// ответа бэкенда.
func (s *Service) RedeemCode(ctx context.Context, userID int64, code string) (int64, error) {
	if !validation.IsValidRedemptionCode(code) {
		return 0, ErrInvalidRedemptionCode
	}

	earned, err := s.backend.RedeemCode(ctx, strconv.FormatInt(userID, 10), code)
	if err != nil {
		s.logger.Warn("redeem code failed",
			zap.Int64("userID", userID), zap.Error(err))
		return 0, err
	}

	st, err := s.loadPoints(ctx, userID)
	if err != nil {
		return 0, err
	}

	st.Credit(earned)

	if err := s.savePoints(ctx, userID, st); err != nil {
		return 0, err
	}
	return earned, nil
}

// --- итог заказа и оформление ---

// Summary рассчитывает предварительный итог заказа по текущему
// состоянию корзины, купонов и баллов.
func (s *Service) Summary(ctx context.Context, userID int64, shipping int64) (pricing.Summary, error) {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return pricing.Summary{}, err
	}
	coupons, err := s.loadCoupons(ctx, userID)
	if err != nil {
		return pricing.Summary{}, err
	}
	pts, err := s.loadPoints(ctx, userID)
	if err != nil {
		return pricing.Summary{}, err
	}

	subtotal := c.TotalPrice()
	return pricing.Compose(subtotal, coupons.TotalDiscount(subtotal), pts.DiscountAmount(), shipping), nil
}

// Checkout оформляет заказ: составляет снимок корзины с итоговыми
// суммами, сохраняет заказ в статусе PENDING и сбрасывает купоны и
// выбранные баллы. Дальнейшие статусы заказа принадлежат бэкенду.
func (s *Service) Checkout(ctx context.Context, userID int64, shipping int64) (*model.Order, error) {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.TotalItems() == 0 {
		return nil, ErrEmptyCart
	}

	coupons, err := s.loadCoupons(ctx, userID)
	if err != nil {
		return nil, err
	}
	pts, err := s.loadPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := pts.State()
	if state.Selected > 0 && state.Selected < state.MinRedeem {
		return nil, ErrBelowMinRedeem
	}
	if state.MaxRedeem != nil && state.Selected > *state.MaxRedeem {
		pts.SetSelected(*state.MaxRedeem)
	}

	subtotal := c.TotalPrice()
	summary := pricing.Compose(subtotal, coupons.TotalDiscount(subtotal), pts.DiscountAmount(), shipping)

	order := model.Order{
		Items:          c.Items(),
		Subtotal:       summary.Subtotal,
		Discount:       summary.Discount,
		PointsDiscount: summary.PointsDiscount,
		Shipping:       summary.Shipping,
		Tax:            summary.Tax,
		Total:          summary.Total,
		Status:         model.OrderStatusPending,
	}

	id, err := s.repo.CreateOrder(ctx, userID, order)
	if err != nil {
		return nil, err
	}
	order.ID = id
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	// заказ оформлен: корзина, купоны и выбор баллов начинаются заново
	c.Clear()
	if err := s.saveCart(ctx, userID, c); err != nil {
		return nil, err
	}
	coupons.Clear()
	if err := s.saveCoupons(ctx, userID, coupons); err != nil {
		return nil, err
	}
	pts.ClearSelected()
	if err := s.savePoints(ctx, userID, pts); err != nil {
		return nil, err
	}

	s.orders.Invalidate(strconv.FormatInt(userID, 10))

	return &order, nil
}

// --- кэшированные коллекции ---

// GetProducts возвращает каталог товаров через кэш коллекций.
func (s *Service) GetProducts(ctx context.Context, refresh bool) ([]model.Product, error) {
	if refresh {
		return s.products.Refresh(ctx, "products")
	}
	return s.products.Get(ctx, "products")
}

// GetEvents возвращает список мероприятий через кэш коллекций.
func (s *Service) GetEvents(ctx context.Context, refresh bool) ([]model.Event, error) {
	if refresh {
		return s.events.Refresh(ctx, "events")
	}
	return s.events.Get(ctx, "events")
}

// GetRewards возвращает вознаграждения программы лояльности через кэш коллекций.
func (s *Service) GetRewards(ctx context.Context, refresh bool) ([]model.Reward, error) {
	if refresh {
		return s.rewards.Refresh(ctx, "rewards")
	}
	return s.rewards.Get(ctx, "rewards")
}

// GetOrders возвращает историю заказов покупателя через кэш коллекций.
func (s *Service) GetOrders(ctx context.Context, userID int64, refresh bool) ([]model.Order, error) {
	key := strconv.FormatInt(userID, 10)
	if refresh {
		return s.orders.Refresh(ctx, key)
	}
	return s.orders.Get(ctx, key)
}
