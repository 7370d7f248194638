package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hbrandt/coincast/internal/remote"
	"github.com/hbrandt/coincast/internal/sim"
)

func testServer(t *testing.T) *remote.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := NewService(Config{DBPath: filepath.Join(t.TempDir(), "sync.db")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv := httptest.NewServer(svc.Router())
	t.Cleanup(srv.Close)
	return remote.NewClient(srv.URL, nil)
}

func testDescriptor(t *testing.T) sim.Descriptor {
	t.Helper()
	d, err := sim.NewDescriptor("BTCUSDT", 60000, 75000, time.Hour, sim.VolatilityMedium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestServiceRegisterAndFetch(t *testing.T) {
	client := testServer(t)
	ctx := context.Background()
	d := testDescriptor(t)

	id, err := client.Create(ctx, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a server-assigned id")
	}

	got, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RemoteID != id || got.ID != d.ID {
		t.Errorf("id mismatch: %+v", got)
	}
	if got.TargetPrice != 75000 || got.Volatility != sim.VolatilityMedium || !got.Active {
		t.Errorf("descriptor round trip mismatch: %+v", got)
	}
}

func TestServiceUnknownSimulation(t *testing.T) {
	client := testServer(t)

	if _, err := client.Get(context.Background(), "nope"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestServicePointsRoundTrip(t *testing.T) {
	client := testServer(t)
	ctx := context.Background()

	id, err := client.Create(ctx, testDescriptor(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, price := range []float64{60100, 60250, 60400} {
		p := remote.Point{Time: int64(1000 * (i + 1)), Price: price, Simulated: true}
		if err := client.AppendPoint(ctx, id, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	pts, err := client.Points(ctx, id, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Time <= pts[i-1].Time {
			t.Error("points must be ascending by time")
		}
	}

	window, err := client.Points(ctx, id, 2000, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(window) != 1 || window[0].Price != 60250 {
		t.Errorf("expected the middle point, got %+v", window)
	}
}

func TestServiceRelaysInsertsToSubscribers(t *testing.T) {
	client := testServer(t)
	ctx := context.Background()

	id, err := client.Create(ctx, testDescriptor(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := make(chan remote.Event, 16)
	cancel, err := client.Subscribe(ctx, id, func(ev remote.Event) { events <- ev })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	p := remote.Point{Time: 5000, Price: 61000, Simulated: true}
	if err := client.AppendPoint(ctx, id, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != remote.EventInsert || ev.Point == nil || ev.Point.Price != 61000 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for insert relay")
	}

	if err := client.SetActive(ctx, id, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Type != remote.EventDeactivate {
			t.Errorf("expected deactivate, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deactivate relay")
	}
}
