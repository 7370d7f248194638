package share

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/hbrandt/coincast/internal/sim"
)

// Options is the flat widget configuration carried by a share/embed link.
// Zero-value fields fall back to the defaults below.
type Options struct {
	Symbol string

	// Appearance. Background accepts a color or the literal "transparent".
	Background  string
	LineColor   string
	TextColor   string
	StrokeWidth int
	FillOpacity float64

	// Chrome visibility.
	ShowHeader     bool
	ShowTimeframes bool
	ShowGrid       bool
}

// DefaultOptions returns the widget defaults used when a key is absent.
func DefaultOptions() Options {
	return Options{
		Symbol:         "BTCUSDT",
		Background:     "transparent",
		LineColor:      "45",
		TextColor:      "252",
		StrokeWidth:    1,
		FillOpacity:    0.15,
		ShowHeader:     true,
		ShowTimeframes: true,
		ShowGrid:       true,
	}
}

// Decode parses a share link (full URL or bare query string) into widget
// options and, when the link embeds one, a simulation descriptor to view.
// Unrecognized keys are ignored.
func Decode(raw string) (Options, *sim.Descriptor, error) {
	opts := DefaultOptions()
	if raw == "" {
		return opts, nil, nil
	}

	q, err := parseQuery(raw)
	if err != nil {
		return opts, nil, fmt.Errorf("parse share link: %w", err)
	}

	if v := q.Get("symbol"); v != "" {
		opts.Symbol = v
	}
	if v := q.Get("bg"); v != "" {
		opts.Background = v
	}
	if v := q.Get("line"); v != "" {
		opts.LineColor = v
	}
	if v := q.Get("text"); v != "" {
		opts.TextColor = v
	}
	if v := q.Get("stroke"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.StrokeWidth = n
		}
	}
	if v := q.Get("fill"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			opts.FillOpacity = f
		}
	}
	opts.ShowHeader = boolOr(q, "header", opts.ShowHeader)
	opts.ShowTimeframes = boolOr(q, "timeframes", opts.ShowTimeframes)
	opts.ShowGrid = boolOr(q, "grid", opts.ShowGrid)

	desc, err := decodeDescriptor(q)
	if err != nil {
		return opts, nil, err
	}
	if desc != nil && opts.Symbol == DefaultOptions().Symbol {
		opts.Symbol = desc.AssetID
	}
	return opts, desc, nil
}

// Encode serializes options and an optional descriptor into a query string
// suitable for a viewer link. Defaults are written explicitly so a link's
// meaning cannot drift with future default changes.
func Encode(opts Options, desc *sim.Descriptor) string {
	q := url.Values{}
	q.Set("symbol", opts.Symbol)
	q.Set("bg", opts.Background)
	q.Set("line", opts.LineColor)
	q.Set("text", opts.TextColor)
	q.Set("stroke", strconv.Itoa(opts.StrokeWidth))
	q.Set("fill", strconv.FormatFloat(opts.FillOpacity, 'g', -1, 64))
	q.Set("header", strconv.FormatBool(opts.ShowHeader))
	q.Set("timeframes", strconv.FormatBool(opts.ShowTimeframes))
	q.Set("grid", strconv.FormatBool(opts.ShowGrid))

	if desc != nil {
		q.Set("sim", desc.ID)
		if desc.RemoteID != "" {
			q.Set("rid", desc.RemoteID)
		}
		q.Set("asset", desc.AssetID)
		q.Set("sp", strconv.FormatFloat(desc.StartPrice, 'g', -1, 64))
		q.Set("tp", strconv.FormatFloat(desc.TargetPrice, 'g', -1, 64))
		q.Set("st", strconv.FormatInt(desc.StartTime, 10))
		q.Set("dur", strconv.FormatInt(desc.DurationMs, 10))
		q.Set("vol", desc.Volatility.String())
	}
	return q.Encode()
}

func decodeDescriptor(q url.Values) (*sim.Descriptor, error) {
	id := q.Get("sim")
	if id == "" {
		return nil, nil
	}

	sp, err1 := strconv.ParseFloat(q.Get("sp"), 64)
	tp, err2 := strconv.ParseFloat(q.Get("tp"), 64)
	st, err3 := strconv.ParseInt(q.Get("st"), 10, 64)
	dur, err4 := strconv.ParseInt(q.Get("dur"), 10, 64)
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			return nil, fmt.Errorf("malformed simulation fields in share link: %w", err)
		}
	}
	if sp <= 0 || tp <= 0 || dur <= 0 {
		return nil, fmt.Errorf("share link simulation fields out of range")
	}

	return &sim.Descriptor{
		ID:          id,
		RemoteID:    q.Get("rid"),
		Active:      true,
		AssetID:     q.Get("asset"),
		StartPrice:  sp,
		TargetPrice: tp,
		StartTime:   st,
		DurationMs:  dur,
		Volatility:  sim.ParseVolatility(q.Get("vol")),
	}, nil
}

func parseQuery(raw string) (url.Values, error) {
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		return url.ParseQuery(u.RawQuery)
	}
	return url.ParseQuery(raw)
}

func boolOr(q url.Values, key string, def bool) bool {
	v := q.Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
