package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/model"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient downloads daily adjusted closes from the Yahoo v8 chart API.
type YahooClient struct {
	BaseURL string
	Client  *http.Client
	Cache   *ResponseCache

	log *slog.Logger
}

// NewYahooClient creates a client. An empty baseURL uses the public endpoint.
// The response cache is attached when GetCache enables it.
func NewYahooClient(baseURL string) *YahooClient {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Cache:   GetCache(),
		log:     logger.Component("yahoo"),
	}
}

// ProviderError is a non-success answer from the market-data provider.
type ProviderError struct {
	Symbol     string
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *ProviderError) Error() string {
	if e.Symbol != "" {
		return e.Symbol + ": " + e.Message
	}
	return e.Message
}

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailyCloses returns the adjusted daily closes of symbol between start
// and end, oldest first. Null closes are skipped.
func (c *YahooClient) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]model.PricePoint, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start must be before end")
	}

	key := CacheKey(symbol, start, end)
	if cached, ok := c.Cache.Get(key); ok {
		c.logger().Debug("cache hit", "symbol", symbol, "points", len(cached))
		return cached, nil
	}

	u, err := url.Parse(fmt.Sprintf("%s/v8/finance/chart/%s", c.BaseURL, url.PathEscape(symbol)))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,split")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (portfolio-frontier)")
	req.Header.Set("Accept", "application/json")

	began := time.Now()
	resp, err := c.httpClient().Do(req)
	elapsed := time.Since(began)
	if err != nil {
		c.logger().Warn("request failed", "symbol", symbol, "error", err, "duration", elapsed)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.logger().Info("response", "symbol", symbol, "status", resp.StatusCode, "duration", elapsed)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &ProviderError{Symbol: symbol, StatusCode: resp.StatusCode, Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return nil, &ProviderError{
			Symbol:     symbol,
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("rate limit exceeded, retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return nil, &ProviderError{
			Symbol:     symbol,
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("provider returned status %d", resp.StatusCode),
		}
	}

	var body yahooChartResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if e := body.Chart.Error; e != nil {
		return nil, &ProviderError{Symbol: symbol, StatusCode: resp.StatusCode, Code: e.Code, Message: e.Description}
	}
	if len(body.Chart.Result) == 0 {
		return nil, &ProviderError{Symbol: symbol, StatusCode: resp.StatusCode, Code: "NO_DATA", Message: "no data"}
	}

	r := body.Chart.Result[0]
	var closes []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}

	points := make([]model.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		points = append(points, model.PricePoint{Date: model.DateOf(time.Unix(ts, 0).UTC()), Close: *closes[i]})
	}
	if len(points) == 0 {
		return nil, &ProviderError{Symbol: symbol, StatusCode: resp.StatusCode, Code: "NO_DATA", Message: "no valid closes"}
	}
	c.Cache.Set(key, points)
	return points, nil
}

// FetchPriceTable downloads years*365 calendar days of closes ending at end
// for every instrument. Instruments that fail are skipped and returned in
// skipped; the table keeps the requested order of the rest. It fails only when
// nothing could be fetched or ctx is done.
func (c *YahooClient) FetchPriceTable(ctx context.Context, instruments []string, end time.Time, years float64) (*model.PriceTable, []string, error) {
	if len(instruments) == 0 {
		return nil, nil, fmt.Errorf("no instruments")
	}
	start := end.Add(-time.Duration(years*365*24) * time.Hour)

	fetched := map[string][]model.PricePoint{}
	var skipped []string
	var firstErr error
	for _, inst := range instruments {
		points, err := c.FetchDailyCloses(ctx, inst, start, end)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			c.logger().Warn("skipping instrument", "symbol", inst, "error", err)
			skipped = append(skipped, inst)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fetched[inst] = points
	}
	if len(fetched) == 0 {
		return nil, skipped, fmt.Errorf("no instrument could be fetched: %w", firstErr)
	}

	valid := make([]string, 0, len(fetched))
	for _, inst := range instruments {
		if _, ok := fetched[inst]; ok {
			valid = append(valid, inst)
		}
	}
	table := model.NewPriceTable(valid)
	for _, inst := range valid {
		for _, p := range fetched[inst] {
			if err := table.Add(inst, p.Date, p.Close); err != nil {
				return nil, skipped, err
			}
		}
	}
	return table, skipped, nil
}

// IsRateLimited reports whether err is a provider rate-limit answer.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.StatusCode == http.StatusTooManyRequests
}

func (c *YahooClient) httpClient() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

func (c *YahooClient) logger() *slog.Logger {
	if c.log == nil {
		return logger.Component("yahoo")
	}
	return c.log
}
