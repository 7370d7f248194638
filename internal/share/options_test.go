package share

import (
	"testing"

	"github.com/hbrandt/coincast/internal/sim"
)

func TestDecodeDefaults(t *testing.T) {
	opts, desc, err := Decode("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc != nil {
		t.Error("expected no descriptor")
	}
	if opts != DefaultOptions() {
		t.Errorf("expected defaults, got %+v", opts)
	}
}

func TestDecodeOptions(t *testing.T) {
	opts, _, err := Decode("symbol=ETHUSDT&bg=0&line=39&grid=false&stroke=2&fill=0.4&header=false")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Symbol != "ETHUSDT" || opts.Background != "0" || opts.LineColor != "39" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.ShowGrid || opts.ShowHeader {
		t.Error("grid and header must be disabled")
	}
	if !opts.ShowTimeframes {
		t.Error("unspecified keys keep their default")
	}
	if opts.StrokeWidth != 2 || opts.FillOpacity != 0.4 {
		t.Errorf("unexpected stroke/fill %+v", opts)
	}
}

func TestDecodeFullURL(t *testing.T) {
	opts, _, err := Decode("https://coincast.dev/embed?symbol=SOLUSDT&bg=transparent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Symbol != "SOLUSDT" {
		t.Errorf("expected SOLUSDT, got %s", opts.Symbol)
	}
}

func TestEncodeDecodeDescriptorRoundTrip(t *testing.T) {
	d := &sim.Descriptor{
		ID:          "abc-123",
		RemoteID:    "r-9",
		Active:      true,
		AssetID:     "BTCUSDT",
		StartPrice:  61234.5,
		TargetPrice: 70000,
		StartTime:   1700000000000,
		DurationMs:  3600000,
		Volatility:  sim.VolatilityHigh,
	}
	opts := DefaultOptions()
	opts.Symbol = "BTCUSDT"

	raw := Encode(opts, d)
	gotOpts, gotDesc, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDesc == nil {
		t.Fatal("expected a descriptor")
	}
	if *gotDesc != *d {
		t.Errorf("descriptor mismatch:\n got %+v\nwant %+v", *gotDesc, *d)
	}
	if gotOpts.Symbol != "BTCUSDT" {
		t.Errorf("expected symbol BTCUSDT, got %s", gotOpts.Symbol)
	}
}

func TestDecodeRejectsMalformedDescriptor(t *testing.T) {
	if _, _, err := Decode("sim=x&sp=abc&tp=1&st=0&dur=1000"); err == nil {
		t.Error("expected error for malformed start price")
	}
	if _, _, err := Decode("sim=x&sp=100&tp=-5&st=0&dur=1000"); err == nil {
		t.Error("expected error for non-positive target")
	}
	if _, _, err := Decode("sim=x&sp=100&tp=200&st=0&dur=0"); err == nil {
		t.Error("expected error for zero duration")
	}
}
