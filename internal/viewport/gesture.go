package viewport

import "math"

// State is the pointer interaction state of the chart.
type State int

const (
	// Idle: no pointer held down.
	Idle State = iota
	// Dragging: pointer held over the plot area, panning time.
	Dragging
	// ResizingY: pointer held over the value-axis hit zone, scaling price.
	ResizingY
	// Pinching: two pointers down, zooming by distance ratio.
	Pinching
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case ResizingY:
		return "resizing-y"
	case Pinching:
		return "pinching"
	default:
		return "idle"
	}
}

// DefaultAxisZone is the width of the value-axis hit zone at the right edge
// of the chart.
const DefaultAxisZone = 60

// Gesture turns raw pointer events into pan/resize/pinch deltas. It runs on
// the UI thread with no parallelism, but every entry point resets cleanly so
// rapid re-entrant events (a second pointer-down mid-drag) cannot wedge it.
type Gesture struct {
	state    State
	width    int
	axisZone int

	lastX, lastY int
	pinchDist    float64
}

// NewGesture creates a Gesture for a container of the given width. An
// axisZone <= 0 uses the default.
func NewGesture(width, axisZone int) *Gesture {
	if axisZone <= 0 {
		axisZone = DefaultAxisZone
	}
	if width < 1 {
		width = 1
	}
	return &Gesture{width: width, axisZone: axisZone}
}

// State returns the current interaction state.
func (g *Gesture) State() State { return g.state }

// SetWidth updates the container width used for the axis hit test.
func (g *Gesture) SetWidth(w int) {
	if w >= 1 {
		g.width = w
	}
}

// overAxis reports whether x falls inside the value-axis hit zone.
func (g *Gesture) overAxis(x int) bool {
	zone := g.axisZone
	if zone > g.width {
		zone = g.width
	}
	return x >= g.width-zone
}

// Down handles a pointer press. A press over the axis zone starts ResizingY,
// anywhere else starts Dragging. A press while a gesture is already active
// restarts the gesture from the new position.
func (g *Gesture) Down(x, y int) State {
	g.lastX, g.lastY = x, y
	g.pinchDist = 0
	if g.overAxis(x) {
		g.state = ResizingY
	} else {
		g.state = Dragging
	}
	return g.state
}

// Move handles pointer motion and returns the delta since the previous
// event. Deltas are zero while idle or pinching.
func (g *Gesture) Move(x, y int) (dx, dy int, state State) {
	if g.state != Dragging && g.state != ResizingY {
		return 0, 0, g.state
	}
	dx = x - g.lastX
	dy = y - g.lastY
	g.lastX, g.lastY = x, y
	return dx, dy, g.state
}

// Up ends any active gesture.
func (g *Gesture) Up() {
	g.state = Idle
	g.pinchDist = 0
}

// Pinch handles a two-pointer gesture frame and returns the zoom factor,
// the ratio of this frame's inter-pointer distance to the previous one.
// The first frame establishes the baseline and returns 1. Pinching takes
// over from any drag in progress.
func (g *Gesture) Pinch(x1, y1, x2, y2 int) float64 {
	dist := math.Hypot(float64(x2-x1), float64(y2-y1))
	if g.state != Pinching || g.pinchDist == 0 {
		g.state = Pinching
		g.pinchDist = dist
		return 1
	}
	factor := dist / g.pinchDist
	g.pinchDist = dist
	return factor
}
