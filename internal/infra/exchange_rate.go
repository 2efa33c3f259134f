package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sats_display/internal/domain"

	"github.com/shopspring/decimal"
)

// maxRateBody caps how much of a rates response is read.
const maxRateBody = 64 << 10

// btcpayRate is one element of the store rates response.
// rate may arrive as a JSON string or number; decimal handles both.
type btcpayRate struct {
	CurrencyPair string          `json:"currencyPair"`
	Errors       []string        `json:"errors"`
	Rate         decimal.Decimal `json:"rate"`
}

// BTCPayClient fetches BTC rates from a BTCPay Server store.
// It performs exactly one request per call; caching and retry policy belong to the caller.
type BTCPayClient struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewBTCPayClient creates a new rates client
func NewBTCPayClient(timeout time.Duration) *BTCPayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &BTCPayClient{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		now: time.Now,
	}
}

// RatesURL builds {server}/api/v1/stores/{store}/rates?currencyPair={pair}.
func RatesURL(creds domain.Credentials, pair domain.CurrencyPair) string {
	q := url.Values{}
	q.Set("currencyPair", pair.String())
	return domain.NormalizeServerURL(creds.ServerURL) +
		"/api/v1/stores/" + url.PathEscape(creds.StoreID) + "/rates?" + q.Encode()
}

// FetchRate implements domain.RateProvider.
func (c *BTCPayClient) FetchRate(ctx context.Context, pair domain.CurrencyPair, creds domain.Credentials) (domain.ExchangeRate, error) {
	if err := creds.Validate(); err != nil {
		return domain.ExchangeRate{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, RatesURL(creds, pair), nil)
	if err != nil {
		return domain.ExchangeRate{}, domain.NewFatalNetworkError("build request", err)
	}
	req.Header.Set("Authorization", "token "+creds.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExchangeRate{}, domain.NewNetworkError("fetch rate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxRateBody))
		return domain.ExchangeRate{}, domain.NewStatusError("fetch rate", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRateBody))
	if err != nil {
		return domain.ExchangeRate{}, domain.NewNetworkError("read body", err)
	}

	var data []btcpayRate
	if err := json.Unmarshal(body, &data); err != nil {
		return domain.ExchangeRate{}, domain.NewFatalNetworkError("decode", err)
	}

	entry, err := pickRate(data, pair)
	if err != nil {
		return domain.ExchangeRate{}, domain.NewFatalNetworkError("decode", err)
	}

	rate, err := domain.NewExchangeRate(pair, entry.Rate, c.now())
	if err != nil {
		return domain.ExchangeRate{}, domain.NewFatalNetworkError("decode", err)
	}
	return rate, nil
}

// pickRate prefers the element whose currencyPair matches, else the first one.
func pickRate(data []btcpayRate, pair domain.CurrencyPair) (btcpayRate, error) {
	if len(data) == 0 {
		return btcpayRate{}, errors.New("empty rates response")
	}
	entry := data[0]
	for _, d := range data {
		if strings.EqualFold(d.CurrencyPair, pair.String()) {
			entry = d
			break
		}
	}
	if len(entry.Errors) > 0 {
		return btcpayRate{}, fmt.Errorf("%w: %s", domain.ErrInvalidRate, strings.Join(entry.Errors, "; "))
	}
	return entry, nil
}
