package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/backend"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/snapshot"
)

type snapshotKey struct {
	userID int64
	kind   snapshot.Kind
}

type stubRepo struct {
	snapshots map[snapshotKey][]byte
	saveErr   error

	orders      []model.Order
	ordersCalls int
	createErr   error
	nextOrderID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		snapshots:   make(map[snapshotKey][]byte),
		nextOrderID: 1,
	}
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return nil, nil
}

func (s *stubRepo) GetSnapshot(ctx context.Context, userID int64, kind snapshot.Kind) ([]byte, error) {
	return s.snapshots[snapshotKey{userID, kind}], nil
}

func (s *stubRepo) SaveSnapshot(ctx context.Context, userID int64, kind snapshot.Kind, data []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshots[snapshotKey{userID, kind}] = data
	return nil
}

func (s *stubRepo) CreateOrder(ctx context.Context, userID int64, order model.Order) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	id := s.nextOrderID
	s.nextOrderID++
	order.ID = id
	s.orders = append(s.orders, order)
	return id, nil
}

func (s *stubRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	s.ordersCalls++
	return s.orders, nil
}

type stubBackend struct {
	profile    *backend.Profile
	profileErr error

	redeemPoints int64
	redeemErr    error
	redeemCalls  int
}

func (b *stubBackend) GetProducts(ctx context.Context) ([]model.Product, error) { return nil, nil }
func (b *stubBackend) GetEvents(ctx context.Context) ([]model.Event, error)     { return nil, nil }
func (b *stubBackend) GetRewards(ctx context.Context) ([]model.Reward, error)   { return nil, nil }

func (b *stubBackend) GetProfile(ctx context.Context, customerID string) (*backend.Profile, error) {
	return b.profile, b.profileErr
}

func (b *stubBackend) RedeemCode(ctx context.Context, customerID, code string) (int64, error) {
	b.redeemCalls++
	return b.redeemPoints, b.redeemErr
}

func newTestService(repo *stubRepo, b *stubBackend) *Service {
	return NewService(repo, b, zap.NewNop(), 5*time.Minute)
}

func testCartItem(variantID string, price int64) model.CartItem {
	return model.CartItem{
		VariantID:   variantID,
		ProductID:   "p-" + variantID,
		Name:        "item",
		UnitPrice:   price,
		MaxQuantity: 10,
	}
}

func TestAddCartItem_PersistsSnapshot(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubBackend{})

	view, err := svc.AddCartItem(context.Background(), 1, testCartItem("v1", 10000))
	if err != nil {
		t.Fatalf("AddCartItem error: %v", err)
	}
	if view.TotalItems != 1 || view.TotalPrice != 10000 {
		t.Fatalf("unexpected view: %+v", view)
	}

	raw := repo.snapshots[snapshotKey{1, snapshot.KindCart}]
	if len(raw) == 0 {
		t.Fatalf("cart snapshot not persisted")
	}

	items, err := snapshot.DecodeCart(raw)
	if err != nil {
		t.Fatalf("DecodeCart error: %v", err)
	}
	if len(items) != 1 || items[0].VariantID != "v1" {
		t.Fatalf("unexpected persisted items: %+v", items)
	}
}

func TestGetCart_UnknownSnapshotVersionFallsBack(t *testing.T) {
	repo := newStubRepo()
	repo.snapshots[snapshotKey{1, snapshot.KindCart}] = []byte(`{"version":99,"data":{}}`)
	svc := newTestService(repo, &stubBackend{})

	view, err := svc.GetCart(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if view.TotalItems != 0 {
		t.Fatalf("expected empty cart fallback, got %+v", view)
	}
}

func TestClearCart_AlsoClearsCoupons(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubBackend{})
	ctx := context.Background()

	if _, err := svc.AddCartItem(ctx, 1, testCartItem("v1", 10000)); err != nil {
		t.Fatalf("AddCartItem error: %v", err)
	}
	if err := svc.AddCoupon(ctx, 1, model.Coupon{ID: "c1", Type: model.DiscountFixed, Value: 100, Applicable: true}); err != nil {
		t.Fatalf("AddCoupon error: %v", err)
	}

	if err := svc.ClearCart(ctx, 1); err != nil {
		t.Fatalf("ClearCart error: %v", err)
	}

	view, err := svc.GetCart(ctx, 1)
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if view.TotalItems != 0 {
		t.Fatalf("cart not cleared: %+v", view)
	}

	coupons, err := svc.GetCoupons(ctx, 1)
	if err != nil {
		t.Fatalf("GetCoupons error: %v", err)
	}
	if len(coupons) != 0 {
		t.Fatalf("coupons must be cleared with the cart: %+v", coupons)
	}
}

func TestCheckout(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubBackend{})
	ctx := context.Background()

	if _, err := svc.AddCartItem(ctx, 1, testCartItem("v1", 50000)); err != nil {
		t.Fatalf("AddCartItem error: %v", err)
	}
	if _, err := svc.UpdateCartQuantity(ctx, 1, "v1", 2); err != nil {
		t.Fatalf("UpdateCartQuantity error: %v", err)
	}
	if err := svc.AddCoupon(ctx, 1, model.Coupon{ID: "c1", Type: model.DiscountFixed, Value: 10000, Applicable: true}); err != nil {
		t.Fatalf("AddCoupon error: %v", err)
	}

	// баланс и выбор баллов: 100 баллов по 25 сатангов
	repo.snapshots[snapshotKey{1, snapshot.KindPoints}] = mustEncodePoints(t, model.PointsState{
		Available: 500, Selected: 100, ExchangeRate: 25,
	})

	order, err := svc.Checkout(ctx, 1, 4000)
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	if order.ID != 1 || order.Status != model.OrderStatusPending {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Subtotal != 100000 || order.Discount != 10000 || order.PointsDiscount != 2500 {
		t.Fatalf("unexpected amounts: %+v", order)
	}
	// база 87500, налог 7% = 6125, итог 87500+4000+6125
	if order.Tax != 6125 || order.Total != 97625 {
		t.Fatalf("unexpected tax/total: %+v", order)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("order must snapshot cart items: %+v", order.Items)
	}

	view, _ := svc.GetCart(ctx, 1)
	if view.TotalItems != 0 {
		t.Fatalf("cart must be empty after checkout")
	}
	coupons, _ := svc.GetCoupons(ctx, 1)
	if len(coupons) != 0 {
		t.Fatalf("coupons must be cleared after checkout")
	}
	pts, _ := svc.GetPoints(ctx, 1)
	if pts.Selected != 0 {
		t.Fatalf("selected points must be cleared after checkout")
	}
	if pts.Available != 500 {
		t.Fatalf("available points must stay, got %d", pts.Available)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubBackend{})

	_, err := svc.Checkout(context.Background(), 1, 0)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckout_BelowMinRedeem(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubBackend{})
	ctx := context.Background()

	if _, err := svc.AddCartItem(ctx, 1, testCartItem("v1", 10000)); err != nil {
		t.Fatalf("AddCartItem error: %v", err)
	}
	repo.snapshots[snapshotKey{1, snapshot.KindPoints}] = mustEncodePoints(t, model.PointsState{
		Available: 500, Selected: 50, ExchangeRate: 25, MinRedeem: 100,
	})

	_, err := svc.Checkout(ctx, 1, 0)
	if !errors.Is(err, ErrBelowMinRedeem) {
		t.Fatalf("expected ErrBelowMinRedeem, got %v", err)
	}
	if len(repo.orders) != 0 {
		t.Fatalf("no order must be created")
	}
}

func TestRedeemCode(t *testing.T) {
	repo := newStubRepo()
	b := &stubBackend{redeemPoints: 150}
	svc := newTestService(repo, b)
	ctx := context.Background()

	earned, err := svc.RedeemCode(ctx, 1, "79927398713")
	if err != nil {
		t.Fatalf("RedeemCode error: %v", err)
	}
	if earned != 150 {
		t.Fatalf("earned = %d, want 150", earned)
	}

	pts, err := svc.GetPoints(ctx, 1)
	if err != nil {
		t.Fatalf("GetPoints error: %v", err)
	}
	if pts.Available != 150 {
		t.Fatalf("Available = %d, want 150", pts.Available)
	}
}

func TestRedeemCode_InvalidChecksum(t *testing.T) {
	b := &stubBackend{}
	svc := newTestService(newStubRepo(), b)

	_, err := svc.RedeemCode(context.Background(), 1, "79927398710")
	if !errors.Is(err, ErrInvalidRedemptionCode) {
		t.Fatalf("expected ErrInvalidRedemptionCode, got %v", err)
	}
	if b.redeemCalls != 0 {
		t.Fatalf("backend must not be called for invalid code")
	}
}

func TestRedeemCode_BackendFailureLeavesStateUntouched(t *testing.T) {
	repo := newStubRepo()
	b := &stubBackend{redeemErr: backend.ErrCodeAlreadyUsed}
	svc := newTestService(repo, b)
	ctx := context.Background()

	_, err := svc.RedeemCode(ctx, 1, "79927398713")
	if !errors.Is(err, backend.ErrCodeAlreadyUsed) {
		t.Fatalf("expected ErrCodeAlreadyUsed, got %v", err)
	}

	if len(repo.snapshots) != 0 {
		t.Fatalf("failed redemption must not mutate local state")
	}
}

func TestSyncPointsConfig(t *testing.T) {
	repo := newStubRepo()
	max := int64(5000)
	days := 365
	b := &stubBackend{profile: &backend.Profile{
		CustomerID:   "1",
		Points:       2500,
		ExchangeRate: 25,
		MinRedeem:    100,
		MaxRedeem:    &max,
		ExpiryDays:   &days,
	}}
	svc := newTestService(repo, b)

	st, err := svc.SyncPointsConfig(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncPointsConfig error: %v", err)
	}

	if st.Available != 2500 || st.ExchangeRate != 25 || st.MinRedeem != 100 {
		t.Fatalf("unexpected state: %+v", st)
	}
	if st.MaxRedeem == nil || *st.MaxRedeem != 5000 || st.ExpiryDays == nil || *st.ExpiryDays != 365 {
		t.Fatalf("server limits not applied: %+v", st)
	}
}

func TestGetOrders_CachedAndInvalidatedByCheckout(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubBackend{})
	ctx := context.Background()

	if _, err := svc.GetOrders(ctx, 1, false); err != nil {
		t.Fatalf("GetOrders error: %v", err)
	}
	if _, err := svc.GetOrders(ctx, 1, false); err != nil {
		t.Fatalf("GetOrders error: %v", err)
	}
	if repo.ordersCalls != 1 {
		t.Fatalf("fresh orders read must come from cache, calls = %d", repo.ordersCalls)
	}

	if _, err := svc.AddCartItem(ctx, 1, testCartItem("v1", 10000)); err != nil {
		t.Fatalf("AddCartItem error: %v", err)
	}
	if _, err := svc.Checkout(ctx, 1, 0); err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	orders, err := svc.GetOrders(ctx, 1, false)
	if err != nil {
		t.Fatalf("GetOrders error: %v", err)
	}
	if repo.ordersCalls != 2 {
		t.Fatalf("checkout must invalidate the orders cache, calls = %d", repo.ordersCalls)
	}
	if len(orders) != 1 {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestSelectPoints_Clamped(t *testing.T) {
	repo := newStubRepo()
	repo.snapshots[snapshotKey{1, snapshot.KindPoints}] = mustEncodePoints(t, model.PointsState{
		Available: 2500, ExchangeRate: 25,
	})
	svc := newTestService(repo, &stubBackend{})

	st, err := svc.SelectPoints(context.Background(), 1, 3000)
	if err != nil {
		t.Fatalf("SelectPoints error: %v", err)
	}
	if st.Selected != 2500 {
		t.Fatalf("Selected = %d, want 2500", st.Selected)
	}
}

func mustEncodePoints(t *testing.T, state model.PointsState) []byte {
	t.Helper()
	raw, err := snapshot.EncodePoints(state)
	if err != nil {
		t.Fatalf("EncodePoints error: %v", err)
	}
	return raw
}
