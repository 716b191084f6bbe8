package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmeshcher/storefront-system/internal/model"
)

func TestGetProducts_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/catalog/products" {
			t.Fatalf("path = %s, want /api/catalog/products", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("authorization = %q, want bearer token", got)
		}

		products := []model.Product{
			{ID: "p1", Name: "ticket", Price: 45000},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(products); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "test-token")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.GetProducts(ctx)
	if err != nil {
		t.Fatalf("GetProducts error: %v", err)
	}
	if len(res) != 1 || res[0].ID != "p1" || res[0].Price != 45000 {
		t.Fatalf("unexpected products: %+v", res)
	}
}

func TestGetProfile_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/loyalty/profile/42" {
			t.Fatalf("path = %s, want /api/loyalty/profile/42", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Profile{
			CustomerID:   "42",
			Points:       2500,
			ExchangeRate: 25,
			MinRedeem:    100,
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := client.GetProfile(ctx, "42")
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if p.Points != 2500 || p.ExchangeRate != 25 || p.MinRedeem != 100 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestRedeemCode(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantPoints int64
		wantErr    error
	}{
		{
			name:       "ok",
			status:     http.StatusOK,
			body:       `{"points":150}`,
			wantPoints: 150,
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			wantErr: ErrCodeNotFound,
		},
		{
			name:    "already used",
			status:  http.StatusConflict,
			wantErr: ErrCodeAlreadyUsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/loyalty/redeem" {
					t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
				}

				var req redeemRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if req.CustomerID != "42" || req.Code != "79927398713" {
					t.Fatalf("unexpected request body: %+v", req)
				}

				w.WriteHeader(tt.status)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer ts.Close()

			client := NewClient(ts.URL, "")

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			points, err := client.RedeemCode(ctx, "42", "79927398713")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RedeemCode error: %v", err)
			}
			if points != tt.wantPoints {
				t.Fatalf("points = %d, want %d", points, tt.wantPoints)
			}
		})
	}
}

func TestGetEvents_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"e1","name":"concert"}]`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := client.GetEvents(ctx)
	if err != nil {
		t.Fatalf("GetEvents error: %v", err)
	}
	if len(res) != 1 || res[0].ID != "e1" {
		t.Fatalf("unexpected events: %+v", res)
	}
	if calls.Load() < 2 {
		t.Fatalf("expected a retry after 500, calls = %d", calls.Load())
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := &Client{}

	if _, err := client.GetProducts(context.Background()); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
