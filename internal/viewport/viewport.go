package viewport

import (
	"math"
	"time"

	"github.com/hbrandt/coincast/internal/series"
)

const (
	// MinTimeSpanMs is the smallest zoomable time window.
	MinTimeSpanMs = 60_000
	// resizeYFactor scales the y-domain per dragged pixel; positive dy
	// (dragging down) expands the range.
	resizeYFactor = 0.003
	// Wheel zoom factors for the value axis.
	zoomOutFactor = 1.05
	zoomInFactor  = 0.95
	// yPadFrac pads the auto y-domain by this fraction of the visible range
	// on both sides.
	yPadFrac = 0.15
	// fallbackCount is how many recent samples VisibleSlice returns before
	// any x-domain has been set.
	fallbackCount = 100
)

// ZoomDir is a wheel/pinch zoom direction.
type ZoomDir int

const (
	ZoomIn ZoomDir = iota
	ZoomOut
)

// Viewport maintains the visible time/price window over a price buffer,
// independent of how data arrives. Domains are transient UI state and are
// never persisted.
type Viewport struct {
	xMin, xMax float64 // ms epoch; kept as floats so pan round-trips exactly
	hasX       bool
	yMin, yMax float64
	hasY       bool

	autoX bool
	autoY bool

	width int
}

// New creates a Viewport with both auto-follow flags enabled.
func New(width int) *Viewport {
	if width < 1 {
		width = 1
	}
	return &Viewport{autoX: true, autoY: true, width: width}
}

// SetWidth updates the container width used for pixel/time conversion.
func (v *Viewport) SetWidth(w int) {
	if w >= 1 {
		v.width = w
	}
}

// XDomain returns the time window, if one has been established.
func (v *Viewport) XDomain() (from, to int64, ok bool) {
	if !v.hasX {
		return 0, 0, false
	}
	return int64(v.xMin), int64(v.xMax), true
}

// YDomain returns the price window, if one has been established.
func (v *Viewport) YDomain() (min, max float64, ok bool) {
	return v.yMin, v.yMax, v.hasY
}

// FollowingX reports whether the time window tracks the newest sample.
func (v *Viewport) FollowingX() bool { return v.autoX }

// FollowingY reports whether the price window is derived from the visible
// slice.
func (v *Viewport) FollowingY() bool { return v.autoY }

// SetTimeframe pins the window to the given duration ending at the latest
// sample and re-enables time auto-follow.
func (v *Viewport) SetTimeframe(d time.Duration, lastTime int64) {
	if d <= 0 {
		return
	}
	v.xMax = float64(lastTime)
	v.xMin = float64(lastTime) - float64(d.Milliseconds())
	v.hasX = true
	v.autoX = true
}

// Pan shifts the time window by a pixel delta. Dragging right (positive dx)
// moves the window into the past. Panning releases time auto-follow.
func (v *Viewport) Pan(dxPixels float64) {
	if !v.hasX || dxPixels == 0 {
		return
	}
	msPerPixel := (v.xMax - v.xMin) / float64(v.width)
	shift := -dxPixels * msPerPixel
	v.xMin += shift
	v.xMax += shift
	v.autoX = false
}

// ResizeY scales the price window about its center by dragging over the
// value axis. Dragging down expands the range. Releases price auto-follow.
func (v *Viewport) ResizeY(dyPixels float64) {
	if !v.hasY || dyPixels == 0 {
		return
	}
	scale := 1 + dyPixels*resizeYFactor
	if scale < 0.05 {
		scale = 0.05
	}
	v.scaleY(scale)
	v.autoY = false
}

// Zoom handles a wheel/pinch step. Over the value axis it scales the price
// window; elsewhere it scales the time span, re-anchoring to the latest
// sample while auto-follow is on and around the center otherwise.
func (v *Viewport) Zoom(dir ZoomDir, overYAxis bool, lastTime int64) {
	if overYAxis {
		if !v.hasY {
			return
		}
		if dir == ZoomOut {
			v.scaleY(zoomOutFactor)
		} else {
			v.scaleY(zoomInFactor)
		}
		v.autoY = false
		return
	}

	if !v.hasX {
		return
	}
	span := v.xMax - v.xMin
	if dir == ZoomOut {
		span *= zoomOutFactor
	} else {
		span *= zoomInFactor
	}
	if span < MinTimeSpanMs {
		span = MinTimeSpanMs
	}
	if v.autoX {
		v.xMax = float64(lastTime)
		v.xMin = v.xMax - span
	} else {
		center := (v.xMin + v.xMax) / 2
		v.xMin = center - span/2
		v.xMax = center + span/2
	}
}

// ZoomFactor applies an arbitrary time-span scale factor, used by pinch
// gestures where the factor is the ratio of successive pinch distances.
func (v *Viewport) ZoomFactor(factor float64, lastTime int64) {
	if !v.hasX || factor <= 0 {
		return
	}
	// A growing pinch distance (factor > 1) zooms in.
	span := (v.xMax - v.xMin) / factor
	if span < MinTimeSpanMs {
		span = MinTimeSpanMs
	}
	if v.autoX {
		v.xMax = float64(lastTime)
		v.xMin = v.xMax - span
	} else {
		center := (v.xMin + v.xMax) / 2
		v.xMin = center - span/2
		v.xMax = center + span/2
	}
}

// Follow re-anchors the window to the newest sample, preserving the span.
// Called whenever new data arrives; a no-op unless auto-follow is on.
func (v *Viewport) Follow(lastTime int64) {
	if !v.autoX || !v.hasX {
		return
	}
	span := v.xMax - v.xMin
	v.xMax = float64(lastTime)
	v.xMin = v.xMax - span
}

// VisibleSlice returns the samples inside the time window padded by half
// the window width on both sides, so scrolling never clips visibly at the
// edges. Before any window is set it falls back to the most recent samples.
func (v *Viewport) VisibleSlice(buf *series.Buffer) []series.Sample {
	if !v.hasX {
		return buf.LastN(fallbackCount)
	}
	pad := (v.xMax - v.xMin) / 2
	from := int64(math.Floor(v.xMin - pad))
	to := int64(math.Ceil(v.xMax + pad))
	return buf.Between(from, to)
}

// ApplyAutoY recomputes the price window from the visible slice when price
// auto-follow is on: min/max padded by 15% of the range, degenerating to
// +-10% around a flat price, defaulting to [0,100] with no input.
func (v *Viewport) ApplyAutoY(visible []series.Sample) {
	if !v.autoY {
		return
	}
	if len(visible) == 0 {
		v.yMin, v.yMax = 0, 100
		v.hasY = true
		return
	}
	min, max := visible[0].Price, visible[0].Price
	for _, s := range visible[1:] {
		if s.Price < min {
			min = s.Price
		}
		if s.Price > max {
			max = s.Price
		}
	}
	if min == max {
		v.yMin, v.yMax = min*0.9, max*1.1
		v.hasY = true
		return
	}
	pad := (max - min) * yPadFrac
	v.yMin, v.yMax = min-pad, max+pad
	v.hasY = true
}

// Reset re-enables both auto-follow flags and clears any manual price
// window override.
func (v *Viewport) Reset() {
	v.autoX = true
	v.autoY = true
	v.hasY = false
}

func (v *Viewport) scaleY(factor float64) {
	center := (v.yMin + v.yMax) / 2
	half := (v.yMax - v.yMin) / 2 * factor
	v.yMin = center - half
	v.yMax = center + half
}
