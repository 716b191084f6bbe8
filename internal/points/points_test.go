package points

import (
	"testing"

	"github.com/mmeshcher/storefront-system/internal/model"
)

func TestSetSelected_Clamped(t *testing.T) {
	tests := []struct {
		name      string
		available int64
		requested int64
		want      int64
	}{
		{name: "within range", available: 2500, requested: 1000, want: 1000},
		{name: "above available", available: 2500, requested: 3000, want: 2500},
		{name: "negative", available: 2500, requested: -5, want: 0},
		{name: "exact available", available: 2500, requested: 2500, want: 2500},
		{name: "zero balance", available: 0, requested: 100, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.available, 25)
			s.SetSelected(tt.requested)
			if got := s.State().Selected; got != tt.want {
				t.Fatalf("Selected = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDiscountAmount(t *testing.T) {
	s := NewStore(2500, 25)
	s.SetSelected(100)

	if got := s.DiscountAmount(); got != 2500 {
		t.Fatalf("DiscountAmount = %d, want 2500", got)
	}

	s.ClearSelected()
	if got := s.DiscountAmount(); got != 0 {
		t.Fatalf("DiscountAmount after clear = %d, want 0", got)
	}
}

func TestSetAvailable_ReclampsSelection(t *testing.T) {
	s := NewStore(2500, 25)
	s.SetSelected(2000)

	s.SetAvailable(500)
	if got := s.State().Selected; got != 500 {
		t.Fatalf("Selected = %d, want 500", got)
	}

	s.SetAvailable(-10)
	if st := s.State(); st.Available != 0 || st.Selected != 0 {
		t.Fatalf("negative available must reset to zero, got %+v", st)
	}
}

func TestCredit(t *testing.T) {
	s := NewStore(100, 25)

	s.Credit(50)
	if got := s.State().Available; got != 150 {
		t.Fatalf("Available = %d, want 150", got)
	}

	s.Credit(0)
	s.Credit(-20)
	if got := s.State().Available; got != 150 {
		t.Fatalf("non-positive credit must be a no-op, got %d", got)
	}
}

func TestAdministrativeSetters(t *testing.T) {
	s := NewStore(0, 0)

	max := int64(5000)
	days := 365

	s.SetExchangeRate(25)
	s.SetRedeemLimits(100, &max)
	s.SetExpiryDays(&days)

	st := s.State()
	if st.ExchangeRate != 25 {
		t.Fatalf("ExchangeRate = %d, want 25", st.ExchangeRate)
	}
	if st.MinRedeem != 100 || st.MaxRedeem == nil || *st.MaxRedeem != 5000 {
		t.Fatalf("redeem limits not applied: %+v", st)
	}
	if st.ExpiryDays == nil || *st.ExpiryDays != 365 {
		t.Fatalf("expiry days not applied: %+v", st)
	}
}

func TestRestore_ClampsStaleSelection(t *testing.T) {
	s := Restore(model.PointsState{Available: 100, Selected: 500, ExchangeRate: 25})

	if got := s.State().Selected; got != 100 {
		t.Fatalf("Selected = %d, want 100", got)
	}
}
