package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hbrandt/coincast/internal/series"
)

func TestHTTPSourceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/klines":
			if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
				t.Errorf("unexpected symbol %q", got)
			}
			w.Write([]byte(`[
				[1700000000000, "100.0", "101.0", "99.0", "100.5", "12.3", 1700000059999, "0", 1, "0", "0", "0"],
				[1700000060000, "100.5", "102.0", "100.0", "101.5", "9.1", 1700000119999, "0", 1, "0", "0", "0"]
			]`))
		case "/api/v3/ticker/price":
			w.Write([]byte(`{"symbol":"BTCUSDT","price":"101.75"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource([]string{srv.URL}, nil)
	ctx := context.Background()

	samples, err := src.History(ctx, "BTCUSDT", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Time != 1700000000000 || samples[0].Price != 100.5 {
		t.Errorf("unexpected first sample %+v", samples[0])
	}
	if samples[1].Price != 101.5 {
		t.Errorf("unexpected second sample %+v", samples[1])
	}

	price, ok := src.Price(ctx, "BTCUSDT")
	if !ok || price != 101.75 {
		t.Errorf("expected price 101.75, got %.4f ok=%v", price, ok)
	}
}

func TestHTTPSourceFailover(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer dead.Close()
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3000.5"}`))
	}))
	defer alive.Close()

	src := NewHTTPSource([]string{dead.URL, alive.URL}, nil)
	price, ok := src.Price(context.Background(), "ETHUSDT")
	if !ok || price != 3000.5 {
		t.Errorf("expected failover price 3000.5, got %.4f ok=%v", price, ok)
	}
}

// brokenSource always fails, standing in for a total network outage.
type brokenSource struct{}

func (brokenSource) History(context.Context, string, int) ([]series.Sample, error) {
	return nil, errors.New("network down")
}

func (brokenSource) Price(context.Context, string) (float64, bool) {
	return 0, false
}

func TestFailoverSynthesizesHistory(t *testing.T) {
	f := NewFailover(brokenSource{}, nil)
	ctx := context.Background()

	samples, err := f.History(ctx, "BTCUSDT", 50)
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if len(samples) != 50 {
		t.Fatalf("expected 50 synthetic samples, got %d", len(samples))
	}
	prev := int64(0)
	for _, s := range samples {
		if s.Price <= 0 {
			t.Errorf("non-positive synthetic price %.8f", s.Price)
		}
		if prev != 0 && s.Time-prev != 60_000 {
			t.Errorf("expected one-minute spacing, got %d", s.Time-prev)
		}
		prev = s.Time
	}

	// A symbol in synthetic mode keeps producing live prices too.
	price, ok := f.Price(ctx, "BTCUSDT")
	if !ok || price <= 0 {
		t.Errorf("expected synthetic live price, got %.4f ok=%v", price, ok)
	}

	// Symbols never requested stay on the primary path and report no price.
	if _, ok := f.Price(ctx, "ETHUSDT"); ok {
		t.Error("expected primary miss for non-synthetic symbol")
	}
}

func TestSyntheticSourceSeedsFromCatalog(t *testing.T) {
	s := NewSyntheticSource(42)
	samples, _ := s.History(context.Background(), "BTCUSDT", 10)

	base := LookupAsset("BTCUSDT").BasePrice
	last := samples[len(samples)-1].Price
	// A 10-step +-0.2% walk stays well within 5% of the base price.
	if last < base*0.95 || last > base*1.05 {
		t.Errorf("walk strayed from base %.0f: %.2f", base, last)
	}
}
