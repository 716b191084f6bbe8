// Package backend предоставляет клиент для размещённого бэкенда витрины:
// каталог, профиль лояльности и начисление баллов по коду.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// DefaultTimeout ограничивает длительность одного запроса к бэкенду,
// чтобы загрузка коллекции не зависала дольше разумного.
const DefaultTimeout = 15 * time.Second

// ErrCodeNotFound возвращается, если код начисления не существует.
var (
	ErrCodeNotFound = errors.New("redemption code not found")
	// ErrCodeAlreadyUsed возвращается, если код начисления уже погашен.
	ErrCodeAlreadyUsed = errors.New("redemption code already used")
)

// Client инкапсулирует HTTP-взаимодействие с бэкендом витрины.
// Временные сбои сети и ответы 5xx повторяются автоматически.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

// Profile описывает профиль лояльности покупателя на бэкенде.
type Profile struct {
	CustomerID   string `json:"customer_id"`
	Points       int64  `json:"points"`
	ExchangeRate int64  `json:"exchange_rate"`
	MinRedeem    int64  `json:"min_redeem"`
	MaxRedeem    *int64 `json:"max_redeem,omitempty"`
	ExpiryDays   *int   `json:"expiry_days,omitempty"`
}

// NewClient создаёт клиент бэкенда по указанному адресу и сервисному токену.
func NewClient(baseURL, token string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    rc,
	}
}

func (c *Client) url(path string) string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + path
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("backend client not configured")
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	return resp, nil
}

func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var zero T

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return zero, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}

	return result, nil
}

// GetProducts возвращает каталог товаров.
func (c *Client) GetProducts(ctx context.Context) ([]model.Product, error) {
	return getJSON[[]model.Product](ctx, c, "/api/catalog/products")
}

// GetEvents возвращает список мероприятий.
func (c *Client) GetEvents(ctx context.Context) ([]model.Event, error) {
	return getJSON[[]model.Event](ctx, c, "/api/catalog/events")
}

// GetRewards возвращает список вознаграждений программы лояльности.
func (c *Client) GetRewards(ctx context.Context) ([]model.Reward, error) {
	return getJSON[[]model.Reward](ctx, c, "/api/loyalty/rewards")
}

// GetProfile возвращает профиль лояльности покупателя.
func (c *Client) GetProfile(ctx context.Context, customerID string) (*Profile, error) {
	p, err := getJSON[Profile](ctx, c, "/api/loyalty/profile/"+customerID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type redeemRequest struct {
	CustomerID string `json:"customer_id"`
	Code       string `json:"code"`
}

type redeemResponse struct {
	Points int64 `json:"points"`
}

// RedeemCode погашает код начисления баллов и возвращает число
// начисленных баллов. Неизвестный и уже погашенный коды различаются
// типизированными ошибками.
func (c *Client) RedeemCode(ctx context.Context, customerID, code string) (int64, error) {
	body, err := json.Marshal(redeemRequest{CustomerID: customerID, Code: code})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/loyalty/redeem", body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, ErrCodeNotFound
	case http.StatusConflict:
		return 0, ErrCodeAlreadyUsed
	default:
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result redeemResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return result.Points, nil
}
