package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/series"
)

var ErrAllEndpointsFailed = errors.New("all feed endpoints failed")

// Source supplies market data for the engine. History seeds the buffer,
// Price feeds the live/reverting target. Implementations must be safe for
// use from background fetch goroutines.
type Source interface {
	// History returns up to limit one-minute samples in increasing time
	// order. An empty slice (with an error) signals total failure.
	History(ctx context.Context, symbol string, limit int) ([]series.Sample, error)
	// Price returns the current price, or ok=false when no fresh price is
	// available. Failures are silent by contract; the engine holds the last
	// known price for that tick.
	Price(ctx context.Context, symbol string) (price float64, ok bool)
}

// defaultEndpoints are tried in order until one answers.
var defaultEndpoints = []string{
	"https://api.binance.com",
	"https://api1.binance.com",
	"https://api2.binance.com",
}

// HTTPSource fetches market data from Binance-compatible REST endpoints
// with failover across mirrors.
type HTTPSource struct {
	endpoints []string
	client    *http.Client
	log       *zap.Logger
}

// NewHTTPSource creates an HTTPSource. Nil endpoints use the defaults.
func NewHTTPSource(endpoints []string, log *zap.Logger) *HTTPSource {
	if len(endpoints) == 0 {
		endpoints = defaultEndpoints
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSource{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 5 * time.Second},
		log:       log,
	}
}

// History fetches recent one-minute closes.
func (s *HTTPSource) History(ctx context.Context, symbol string, limit int) ([]series.Sample, error) {
	if limit <= 0 {
		limit = 300
	}
	path := fmt.Sprintf("/api/v3/klines?symbol=%s&interval=1m&limit=%d", url.QueryEscape(symbol), limit)

	var lastErr error
	for _, ep := range s.endpoints {
		// Binance kline rows are mixed-type JSON arrays; only the open
		// time [0] and close price [4] matter here.
		var rows [][]json.RawMessage
		if err := s.getJSON(ctx, ep+path, &rows); err != nil {
			lastErr = err
			s.log.Debug("history endpoint failed", zap.String("endpoint", ep), zap.Error(err))
			continue
		}

		samples := make([]series.Sample, 0, len(rows))
		for _, row := range rows {
			if len(row) < 5 {
				continue
			}
			var openTime int64
			var closeStr string
			if err := json.Unmarshal(row[0], &openTime); err != nil {
				continue
			}
			if err := json.Unmarshal(row[4], &closeStr); err != nil {
				continue
			}
			price, err := strconv.ParseFloat(closeStr, 64)
			if err != nil || price <= 0 {
				continue
			}
			samples = append(samples, series.Sample{Time: openTime, Price: price})
		}
		return samples, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

// Price fetches the current ticker price. ok=false on any failure.
func (s *HTTPSource) Price(ctx context.Context, symbol string) (float64, bool) {
	path := "/api/v3/ticker/price?symbol=" + url.QueryEscape(symbol)

	for _, ep := range s.endpoints {
		var body struct {
			Symbol string `json:"symbol"`
			Price  string `json:"price"`
		}
		if err := s.getJSON(ctx, ep+path, &body); err != nil {
			s.log.Debug("price endpoint failed", zap.String("endpoint", ep), zap.Error(err))
			continue
		}
		price, err := strconv.ParseFloat(body.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		return price, true
	}
	return 0, false
}

func (s *HTTPSource) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
